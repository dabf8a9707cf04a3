package inmemdb

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/bulletin/core/grading"
)

type (
	DB struct {
		grades      *gradeTable
		subjects    *subjectTable
		enrollments *enrollmentTable
	}

	// grade entries in ingestion order
	gradeTable struct {
		sync.RWMutex
		rows []grading.GradeEntry
	}

	subjectTable struct {
		sync.RWMutex
		table map[string][]grading.Subject // {class_id: subjects in catalog order}
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string][]string // {class_id: student ids in roster order}
	}

	// Fixtures is the JSON document accepted by LoadFixtures.
	Fixtures struct {
		Subjects    []grading.Subject    `json:"subjects"`
		Enrollments map[string][]string  `json:"enrollments"`
		Grades      []grading.GradeEntry `json:"grades"`
	}
)

func Open() (*DB, error) {
	db := &DB{
		grades:      &gradeTable{},
		subjects:    &subjectTable{table: make(map[string][]grading.Subject)},
		enrollments: &enrollmentTable{table: make(map[string][]string)},
	}
	return db, nil
}

// LoadFixtures seeds db from a JSON Fixtures document.
// The document is rejected as a whole, leaving db untouched, when a subject or grade breaks
// the constraints of the postgres schema.
func LoadFixtures(db *DB, r io.Reader) error {
	var fx Fixtures
	if err := json.NewDecoder(r).Decode(&fx); err != nil {
		return errors.Wrap(err, "decoding fixtures")
	}
	if err := fx.validate(); err != nil {
		return errors.Wrap(err, "invalid fixtures")
	}

	catalog := NewCatalogRepository(db)
	for _, subj := range fx.Subjects {
		catalog.SaveSubjects(subj.ClassID, subj)
	}
	roster := NewRosterRepository(db)
	for classID, students := range fx.Enrollments {
		roster.EnrollStudents(classID, students...)
	}
	if len(fx.Grades) > 0 {
		rows := make([]grading.GradeEntry, len(fx.Grades))
		for i, e := range fx.Grades {
			if e.ID == "" {
				e.ID = uuid.New().String()
			}
			e.RecordedAt = e.RecordedAt.UTC()
			rows[i] = e
		}
		db.grades.Lock()
		db.grades.rows = append(db.grades.rows, rows...)
		db.grades.Unlock()
	}
	return nil
}

func (fx Fixtures) validate() error {
	for i, subj := range fx.Subjects {
		if subj.ID == "" || subj.ClassID == "" {
			return errors.Errorf("subjects[%d]: id and class_id are required", i)
		}
		if subj.Coefficient <= 0 {
			return errors.Errorf("subjects[%d]: coefficient must be positive, got %v", i, subj.Coefficient)
		}
	}
	for i, e := range fx.Grades {
		if e.StudentID == "" || e.SubjectID == "" || e.TermID == "" {
			return errors.Errorf("grades[%d]: student_id, subject_id and term_id are required", i)
		}
		if !e.Kind.IsValid() {
			return errors.Errorf("grades[%d]: unknown assessment kind %q", i, e.Kind)
		}
		if !grading.IsValidGrade(e.Value) {
			return errors.Errorf("grades[%d]: grade %v is not between %v and %v", i, e.Value, grading.MinGrade, grading.MaxGrade)
		}
	}
	return nil
}
