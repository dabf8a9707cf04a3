package grading

import (
	"context"
	"encoding/json"
	"net/mail"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/bulletin/core"
)

const ingestionReportTmpl = "ingestion_report"

var nowFunc = time.Now // mockable

type (
	// GradeStore is the grade record store: it supplies and records grade entries.
	GradeStore interface {
		// FetchGradeEntries returns the entries of a student for a term, in ingestion order.
		FetchGradeEntries(ctx context.Context, studentID, termID string) ([]GradeEntry, error)
		// CommitGradeEntries records all entries in one write and returns the number saved.
		CommitGradeEntries(ctx context.Context, entries []GradeEntry) (int, error)
	}

	SubjectCatalog interface {
		// FetchSubjectCatalog returns the subjects of a class in catalog order.
		FetchSubjectCatalog(ctx context.Context, classID string) ([]Subject, error)
	}

	ClassRoster interface {
		// FetchClassStudents returns the student ids of a class in roster order.
		FetchClassStudents(ctx context.Context, classID string) ([]string, error)
	}

	Deps struct {
		Grades     GradeStore
		Catalog    SubjectCatalog
		Roster     ClassRoster
		Mailer     core.EmailService
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Service struct {
		grades     GradeStore
		catalog    SubjectCatalog
		roster     ClassRoster
		mailer     core.EmailService
		log        core.Logger
		validate   *validator.Validate
		translator ut.Translator

		workers      int
		fetchTimeout time.Duration
		notifyEmail  string
	}
)

func NewService(deps Deps, conf core.GradingConfig) *Service {
	workers := conf.CompileWorkers
	if workers < 1 {
		workers = 1
	}
	return &Service{
		grades:       deps.Grades,
		catalog:      deps.Catalog,
		roster:       deps.Roster,
		mailer:       deps.Mailer,
		log:          deps.Logger,
		validate:     deps.Validate,
		translator:   deps.Translator,
		workers:      workers,
		fetchTimeout: conf.FetchTimeout,
		notifyEmail:  conf.NotifyEmail,
	}
}

// Bulletin compiles the bulletin of a student for a term.
// Unreachable collaborators are listed in Bulletin.Unavailable; only a done ctx fails the call.
func (svc *Service) Bulletin(ctx context.Context, classID, termID, studentID string) (Bulletin, error) {
	catalog, catErr := svc.fetchCatalog(ctx, classID)
	blt := svc.compile(ctx, classID, termID, studentID, catalog, catErr)
	if err := ctx.Err(); err != nil {
		return Bulletin{}, err
	}
	return blt, nil
}

// ClassBulletins compiles and ranks the bulletins of every student of a class, in roster order.
// Students are compiled concurrently; a student whose grades cannot be fetched gets an empty
// bulletin and does not affect the others.
func (svc *Service) ClassBulletins(ctx context.Context, classID, termID string) ([]Bulletin, error) {
	students, err := svc.fetchStudents(ctx, classID)
	if err != nil || len(students) == 0 {
		return []Bulletin{}, ctx.Err()
	}
	catalog, catErr := svc.fetchCatalog(ctx, classID)

	bulletins := make([]Bulletin, len(students))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(svc.workers)
	for i, studentID := range students {
		i, studentID := i, studentID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bulletins[i] = svc.compile(gctx, classID, termID, studentID, catalog, catErr)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return RankBulletins(bulletins), nil
}

// ClassAverages computes, for every student of a class, the overall average of each of the
// given terms along with the annual average. An empty term id counts as an absent term.
func (svc *Service) ClassAverages(ctx context.Context, classID string, terms [3]string) (map[string]TermAverages, error) {
	averages := make(map[string]TermAverages)
	students, err := svc.fetchStudents(ctx, classID)
	if err != nil || len(students) == 0 {
		return averages, ctx.Err()
	}
	catalog, _ := svc.fetchCatalog(ctx, classID)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(svc.workers)
	for _, studentID := range students {
		studentID := studentID
		g.Go(func() error {
			var overalls [3]TermOverallAverage
			for i, termID := range terms {
				if err := gctx.Err(); err != nil {
					return err
				}
				overalls[i] = TermOverallAverage{StudentID: studentID, TermID: termID}
				if termID == "" || len(catalog) == 0 {
					continue
				}
				entries, _ := svc.fetchEntries(gctx, studentID, termID)
				overalls[i] = termOverall(studentID, termID, catalog, entries)
			}

			mu.Lock()
			averages[studentID] = StudentYear(studentID, overalls[0], overalls[1], overalls[2])
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return averages, nil
}

// Ingest validates a batch of grade entries and commits the valid ones in one write.
// When no record is valid, nothing is committed and an *EmptyBatchError is returned.
func (svc *Service) Ingest(ctx context.Context, batch []NewGradeEntry) (IngestionResult, error) {
	valid, rejections := PrepareBatch(svc.validate, svc.translator, batch, nowFunc().UTC())
	return svc.commit(ctx, valid, rejections)
}

// IngestJSON is Ingest over raw JSON records; a record that cannot be decoded is rejected on its own.
func (svc *Service) IngestJSON(ctx context.Context, batch []json.RawMessage) (IngestionResult, error) {
	valid, rejections := PrepareJSONBatch(svc.validate, svc.translator, batch, nowFunc().UTC())
	return svc.commit(ctx, valid, rejections)
}

func (svc *Service) commit(ctx context.Context, valid []GradeEntry, rejections []Rejection) (IngestionResult, error) {
	if rejections == nil {
		rejections = []Rejection{}
	}
	if len(valid) == 0 {
		return IngestionResult{}, &EmptyBatchError{Rejections: rejections}
	}

	saved, err := svc.grades.CommitGradeEntries(ctx, valid)
	if err != nil {
		return IngestionResult{}, errors.Wrap(err, "committing grade entries")
	}

	res := IngestionResult{Saved: saved, Rejected: len(rejections), Rejections: rejections}
	svc.notify(res)
	return res, nil
}

func (svc *Service) compile(ctx context.Context, classID, termID, studentID string, catalog []Subject, catErr error) Bulletin {
	var unavailable []string
	if catErr != nil {
		unavailable = append(unavailable, SourceCatalog)
	}
	entries, err := svc.fetchEntries(ctx, studentID, termID)
	if err != nil {
		unavailable = append(unavailable, SourceGrades)
	}

	blt := CompileBulletin(classID, studentID, termID, catalog, entries)
	blt.Unavailable = unavailable
	return blt
}

func termOverall(studentID, termID string, catalog []Subject, entries []GradeEntry) TermOverallAverage {
	averages := make(map[string]SubjectTermAverage, len(catalog))
	for _, subj := range catalog {
		averages[subj.ID] = SubjectAverage(studentID, subj.ID, termID, entries)
	}
	return OverallAverage(studentID, termID, catalog, averages)
}

func (svc *Service) notify(res IngestionResult) {
	if svc.notifyEmail == "" || svc.mailer == nil {
		return
	}
	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: svc.notifyEmail}},
		Subject:      "Grade ingestion report",
		TemplateName: ingestionReportTmpl,
		TemplateData: res,
	})
}

// fetch helpers: a failed fetch is logged and reported as an *UpstreamError with no data.

func (svc *Service) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if svc.fetchTimeout > 0 {
		return context.WithTimeout(ctx, svc.fetchTimeout)
	}
	return context.WithCancel(ctx)
}

func (svc *Service) fetchCatalog(ctx context.Context, classID string) ([]Subject, error) {
	ctx, cancel := svc.fetchContext(ctx)
	defer cancel()

	subjects, err := svc.catalog.FetchSubjectCatalog(ctx, classID)
	if err != nil {
		return nil, svc.upstreamErr(SourceCatalog, err, map[string]interface{}{"class_id": classID})
	}
	return subjects, nil
}

func (svc *Service) fetchStudents(ctx context.Context, classID string) ([]string, error) {
	ctx, cancel := svc.fetchContext(ctx)
	defer cancel()

	students, err := svc.roster.FetchClassStudents(ctx, classID)
	if err != nil {
		return nil, svc.upstreamErr(SourceRoster, err, map[string]interface{}{"class_id": classID})
	}
	return students, nil
}

func (svc *Service) fetchEntries(ctx context.Context, studentID, termID string) ([]GradeEntry, error) {
	ctx, cancel := svc.fetchContext(ctx)
	defer cancel()

	entries, err := svc.grades.FetchGradeEntries(ctx, studentID, termID)
	if err != nil {
		return nil, svc.upstreamErr(SourceGrades, err, map[string]interface{}{"student_id": studentID, "term_id": termID})
	}
	return entries, nil
}

func (svc *Service) upstreamErr(source string, err error, extras map[string]interface{}) error {
	uErr := &UpstreamError{Source: source, Err: err}
	if svc.log != nil {
		svc.log.Warn("grading: "+uErr.Error(), errors.WithStack(uErr), extras)
	}
	return uErr
}
