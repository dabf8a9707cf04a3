package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/bulletin/core/grading"
)

type gradeRepository struct {
	db *gradeTable
}

var _ grading.GradeStore = (*gradeRepository)(nil)

func NewGradeRepository(db *DB) *gradeRepository {
	return &gradeRepository{db: db.grades}
}

func (repo *gradeRepository) FetchGradeEntries(ctx context.Context, studentID, termID string) ([]grading.GradeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]grading.GradeEntry, 0)
	for _, e := range repo.db.rows {
		if e.StudentID == studentID && e.TermID == termID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// CommitGradeEntries appends all entries under a single lock, so a batch is never partially visible.
func (repo *gradeRepository) CommitGradeEntries(ctx context.Context, entries []grading.GradeEntry) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rows := make([]grading.GradeEntry, len(entries))
	for i, e := range entries {
		e.ID = uuid.New().String()
		rows[i] = e
	}

	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.rows = append(repo.db.rows, rows...)
	return len(rows), nil
}

type catalogRepository struct {
	db *subjectTable
}

var _ grading.SubjectCatalog = (*catalogRepository)(nil)

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db.subjects}
}

func (repo *catalogRepository) FetchSubjectCatalog(ctx context.Context, classID string) ([]grading.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]grading.Subject, len(repo.db.table[classID]))
	copy(subjects, repo.db.table[classID])
	return subjects, nil
}

// SaveSubjects appends subjects to the catalog of a class, replacing those with the same id in place.
func (repo *catalogRepository) SaveSubjects(classID string, subjects ...grading.Subject) {
	repo.db.Lock()
	defer repo.db.Unlock()

	catalog := repo.db.table[classID]
outer:
	for _, subj := range subjects {
		subj.ClassID = classID
		for i := range catalog {
			if catalog[i].ID == subj.ID {
				catalog[i] = subj
				continue outer
			}
		}
		catalog = append(catalog, subj)
	}
	repo.db.table[classID] = catalog
}

type rosterRepository struct {
	db *enrollmentTable
}

var _ grading.ClassRoster = (*rosterRepository)(nil)

func NewRosterRepository(db *DB) *rosterRepository {
	return &rosterRepository{db: db.enrollments}
}

func (repo *rosterRepository) FetchClassStudents(ctx context.Context, classID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]string, len(repo.db.table[classID]))
	copy(students, repo.db.table[classID])
	return students, nil
}

// EnrollStudents appends students to the roster of a class, skipping those already enrolled.
func (repo *rosterRepository) EnrollStudents(classID string, studentIDs ...string) {
	repo.db.Lock()
	defer repo.db.Unlock()

	roster := repo.db.table[classID]
	enrolled := make(map[string]bool, len(roster))
	for _, id := range roster {
		enrolled[id] = true
	}
	for _, id := range studentIDs {
		if !enrolled[id] {
			roster = append(roster, id)
			enrolled[id] = true
		}
	}
	repo.db.table[classID] = roster
}
