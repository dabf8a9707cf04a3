// Package shared wires the dependencies common to the api and admin apps.
package shared

import (
	"io"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/grading"
	emailsvc "github.com/trezcool/bulletin/services/email"
	"github.com/trezcool/bulletin/storage/database"
	inmemdb "github.com/trezcool/bulletin/storage/database/inmem"
	sqlxrepos "github.com/trezcool/bulletin/storage/database/sqlx"
)

type Storage struct {
	Grades  grading.GradeStore
	Catalog grading.SubjectCatalog
	Roster  grading.ClassRoster
	DB      *sqlx.DB // nil with the inmem storage
}

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenStorage opens the configured storage backend.
// The postgres database is created if needed and migrated when migrate is set.
func OpenStorage(conf *core.Config, migrate bool) (*Storage, error) {
	switch conf.Storage {
	case core.StorageInMem:
		db, err := inmemdb.Open()
		if err != nil {
			return nil, errors.Wrap(err, "opening inmem database")
		}
		if conf.FixturesFile != "" {
			if err = loadFixtures(db, conf.FixturesFile); err != nil {
				return nil, err
			}
		}
		return &Storage{
			Grades:  inmemdb.NewGradeRepository(db),
			Catalog: inmemdb.NewCatalogRepository(db),
			Roster:  inmemdb.NewRosterRepository(db),
		}, nil

	case core.StoragePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err = database.Migrate(db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return &Storage{
			Grades:  sqlxrepos.NewGradeRepository(db),
			Catalog: sqlxrepos.NewCatalogRepository(db),
			Roster:  sqlxrepos.NewRosterRepository(db),
			DB:      db,
		}, nil

	default:
		return nil, errors.Errorf("unknown storage %q", conf.Storage)
	}
}

func loadFixtures(db *inmemdb.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening fixtures")
	}
	defer func() { _ = f.Close() }()
	return inmemdb.LoadFixtures(db, f)
}

// NewMailer returns the console email service in debug, SendGrid otherwise.
func NewMailer(conf *core.Config, logger core.Logger, out io.Writer) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(log.New(out, "EMAIL : ", log.LstdFlags), conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

// NewGradingService initializes the validators and binds the grading service to its collaborators.
func NewGradingService(
	conf *core.Config,
	storage *Storage,
	mailer core.EmailService,
	logger core.Logger,
) (*grading.Service, ut.Translator) {
	validate, translator := core.NewValidator()
	core.InitValidators(validate, translator)
	grading.InitValidators(validate, translator)

	svc := grading.NewService(
		grading.Deps{
			Grades:     storage.Grades,
			Catalog:    storage.Catalog,
			Roster:     storage.Roster,
			Mailer:     mailer,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
		},
		conf.Grading,
	)
	return svc, translator
}
