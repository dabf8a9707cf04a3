package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/bulletin/core/grading"
)

const (
	selectGradesQ = `
		SELECT id, student_id, subject_id, term_id, kind, value, recorded_at
		FROM grade_entries
		WHERE student_id = $1 AND term_id = $2
		ORDER BY seq`

	insertGradesQ = `
		INSERT INTO grade_entries (id, student_id, subject_id, term_id, kind, value, recorded_at)
		VALUES (:id, :student_id, :subject_id, :term_id, :kind, :value, :recorded_at)`

	selectSubjectsQ = `
		SELECT id, class_id, name, coefficient
		FROM subjects
		WHERE class_id = $1
		ORDER BY position, id`

	upsertSubjectQ = `
		INSERT INTO subjects (id, class_id, name, coefficient, position)
		VALUES ($1, $2, $3, $4, (SELECT COALESCE(MAX(position), 0) + 1 FROM subjects WHERE class_id = $2))
		ON CONFLICT (class_id, id) DO UPDATE SET name = EXCLUDED.name, coefficient = EXCLUDED.coefficient`

	selectStudentsQ = `
		SELECT student_id
		FROM enrollments
		WHERE class_id = $1
		ORDER BY position, student_id`

	insertEnrollmentQ = `
		INSERT INTO enrollments (class_id, student_id, position)
		VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM enrollments WHERE class_id = $1))
		ON CONFLICT (class_id, student_id) DO NOTHING`
)

type gradeRow struct {
	ID         string    `db:"id"`
	StudentID  string    `db:"student_id"`
	SubjectID  string    `db:"subject_id"`
	TermID     string    `db:"term_id"`
	Kind       string    `db:"kind"`
	Value      float64   `db:"value"`
	RecordedAt time.Time `db:"recorded_at"`
}

func (row gradeRow) entry() grading.GradeEntry {
	return grading.GradeEntry{
		ID:         row.ID,
		StudentID:  row.StudentID,
		SubjectID:  row.SubjectID,
		TermID:     row.TermID,
		Kind:       grading.AssessmentKind(row.Kind),
		Value:      row.Value,
		RecordedAt: row.RecordedAt.UTC(),
	}
}

type gradeRepository struct {
	db *sqlx.DB
}

var _ grading.GradeStore = (*gradeRepository)(nil)

func NewGradeRepository(db *sqlx.DB) *gradeRepository {
	return &gradeRepository{db: db}
}

// FetchGradeEntries returns the entries of a student for a term in insertion order.
func (repo *gradeRepository) FetchGradeEntries(ctx context.Context, studentID, termID string) ([]grading.GradeEntry, error) {
	var rows []gradeRow
	if err := repo.db.SelectContext(ctx, &rows, selectGradesQ, studentID, termID); err != nil {
		return nil, errors.Wrap(err, "selecting grade entries")
	}
	entries := make([]grading.GradeEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

// CommitGradeEntries inserts all entries with a single statement in one transaction.
func (repo *gradeRepository) CommitGradeEntries(ctx context.Context, entries []grading.GradeEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	rows := make([]gradeRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, gradeRow{
			ID:         uuid.New().String(),
			StudentID:  e.StudentID,
			SubjectID:  e.SubjectID,
			TermID:     e.TermID,
			Kind:       string(e.Kind),
			Value:      e.Value,
			RecordedAt: e.RecordedAt.UTC(),
		})
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if _, err = tx.NamedExecContext(ctx, insertGradesQ, rows); err != nil {
		return 0, errors.Wrap(err, "inserting grade entries")
	}
	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing grade entries")
	}
	return len(rows), nil
}

type subjectRow struct {
	ID          string  `db:"id"`
	ClassID     string  `db:"class_id"`
	Name        string  `db:"name"`
	Coefficient float64 `db:"coefficient"`
}

type catalogRepository struct {
	db *sqlx.DB
}

var _ grading.SubjectCatalog = (*catalogRepository)(nil)

func NewCatalogRepository(db *sqlx.DB) *catalogRepository {
	return &catalogRepository{db: db}
}

func (repo *catalogRepository) FetchSubjectCatalog(ctx context.Context, classID string) ([]grading.Subject, error) {
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, selectSubjectsQ, classID); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	subjects := make([]grading.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, grading.Subject(row))
	}
	return subjects, nil
}

// SaveSubjects appends subjects to the catalog of a class; existing ones are updated in place.
func (repo *catalogRepository) SaveSubjects(ctx context.Context, classID string, subjects ...grading.Subject) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, subj := range subjects {
			if _, err := tx.ExecContext(ctx, upsertSubjectQ, subj.ID, classID, subj.Name, subj.Coefficient); err != nil {
				return errors.Wrapf(err, "saving subject %s", subj.ID)
			}
		}
		return nil
	})
}

type rosterRepository struct {
	db *sqlx.DB
}

var _ grading.ClassRoster = (*rosterRepository)(nil)

func NewRosterRepository(db *sqlx.DB) *rosterRepository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) FetchClassStudents(ctx context.Context, classID string) ([]string, error) {
	students := make([]string, 0)
	if err := repo.db.SelectContext(ctx, &students, selectStudentsQ, classID); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	return students, nil
}

// EnrollStudents appends students to the roster of a class, skipping those already enrolled.
func (repo *rosterRepository) EnrollStudents(ctx context.Context, classID string, studentIDs ...string) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, id := range studentIDs {
			if _, err := tx.ExecContext(ctx, insertEnrollmentQ, classID, id); err != nil {
				return errors.Wrapf(err, "enrolling student %s", id)
			}
		}
		return nil
	})
}

func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
