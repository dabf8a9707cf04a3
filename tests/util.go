package testutil

import (
	"context"
	"io"
	"log"
	"net/mail"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/grading"
	emailsvc "github.com/trezcool/bulletin/services/email"
	logsvc "github.com/trezcool/bulletin/services/logger"
	inmemdb "github.com/trezcool/bulletin/storage/database/inmem"
)

const ClassID = "6A"

// Recorded is the timestamp of the grades seeded by SeedClass.
var Recorded = time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC)

// Env is a grading service backed by an in-memory store.
type Env struct {
	DB         *inmemdb.DB
	Conf       *core.Config
	Logger     *logsvc.RollbarLogger
	Validate   *validator.Validate
	Translator ut.Translator
	Svc        *grading.Service
}

func NewConfig() *core.Config {
	return &core.Config{
		TestMode:         true,
		AppName:          "Bulletin",
		Env:              "TEST",
		Storage:          core.StorageInMem,
		DefaultFromEmail: mail.Address{Name: "Bulletin", Address: "noreply@bulletin.test"},
		Grading: core.GradingConfig{
			CompileWorkers: 4,
			FetchTimeout:   time.Second,
			NotifyEmail:    "registrar@school.test",
		},
	}
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	core.InitValidators(validate, translator)
	grading.InitValidators(validate, translator)
	return validate, translator
}

// NewEnv sets up an in-memory grading service with a silent logger and a synchronous mailer.
func NewEnv(t *testing.T) *Env {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	conf := NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	validate, translator := NewValidator()

	svc := grading.NewService(
		grading.Deps{
			Grades:     inmemdb.NewGradeRepository(db),
			Catalog:    inmemdb.NewCatalogRepository(db),
			Roster:     inmemdb.NewRosterRepository(db),
			Mailer:     emailsvc.NewConsoleServiceMock(conf),
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
		},
		conf.Grading,
	)
	return &Env{DB: db, Conf: conf, Logger: logger, Validate: validate, Translator: translator, Svc: svc}
}

// SeedClass enrolls s1, s2 and s3 in ClassID with Maths (3), Français (2) and Histoire (1), and
// records term t1 grades: s1 averages 12.40, s2 16.80 and s3 has no grade.
func SeedClass(t *testing.T, db *inmemdb.DB) {
	inmemdb.NewCatalogRepository(db).SaveSubjects(ClassID,
		grading.Subject{ID: "maths", Name: "Maths", Coefficient: 3},
		grading.Subject{ID: "french", Name: "Français", Coefficient: 2},
		grading.Subject{ID: "history", Name: "Histoire", Coefficient: 1},
	)
	inmemdb.NewRosterRepository(db).EnrollStudents(ClassID, "s1", "s2", "s3")

	entry := func(student, subject string, kind grading.AssessmentKind, value float64) grading.GradeEntry {
		return grading.GradeEntry{StudentID: student, SubjectID: subject, TermID: "t1", Kind: kind, Value: value, RecordedAt: Recorded}
	}
	_, err := inmemdb.NewGradeRepository(db).CommitGradeEntries(context.Background(), []grading.GradeEntry{
		entry("s1", "maths", grading.KindFormative, 12),
		entry("s1", "maths", grading.KindSummative, 16),
		entry("s1", "french", grading.KindFormative, 10),
		entry("s2", "maths", grading.KindSummative, 18),
		entry("s2", "french", grading.KindSummative, 15),
	})
	if err != nil {
		t.Fatalf("SeedClass() failed: %v", err)
	}
}
