package grading

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bulletin/core"
)

// AssessmentKind tells whether a grade comes from an in-term assessment or the term exam.
type AssessmentKind string

const (
	KindFormative AssessmentKind = "formative"
	KindSummative AssessmentKind = "summative"
)

var (
	dateLayouts = []string{time.RFC3339, "2006-01-02"}

	Kinds = []AssessmentKind{KindFormative, KindSummative}

	// labels used by teachers when typing grades in, mapped to their kind
	kindLabels = map[string]AssessmentKind{
		string(KindFormative): KindFormative,
		string(KindSummative): KindSummative,
		"devoir":              KindFormative,
		"contrôle":            KindFormative,
		"controle":            KindFormative,
		"interrogation":       KindFormative,
		"examen":              KindSummative,
	}
)

// KindFromLabel resolves a kind or an assessment label ("Devoir", "Examen", ...) to its kind.
func KindFromLabel(label string) (AssessmentKind, bool) {
	kind, ok := kindLabels[core.CleanString(label, true /* lower */)]
	return kind, ok
}

func (k AssessmentKind) IsValid() bool {
	return k == KindFormative || k == KindSummative
}

// Subject is a catalog entry of a class.
type Subject struct {
	ID          string  `json:"id"`
	ClassID     string  `json:"class_id"`
	Name        string  `json:"name"`
	Coefficient float64 `json:"coefficient"`
}

// GradeEntry is a single recorded grade. Entries are never mutated once committed:
// a later entry of the same student/subject/term/kind supersedes the earlier ones.
type GradeEntry struct {
	ID         string         `json:"id"`
	StudentID  string         `json:"student_id"`
	SubjectID  string         `json:"subject_id"`
	TermID     string         `json:"term_id"`
	Kind       AssessmentKind `json:"kind"`
	Value      float64        `json:"value"`
	RecordedAt time.Time      `json:"recorded_at"` // UTC
}

// NewGradeEntry contains the information needed to record a new GradeEntry.
type NewGradeEntry struct {
	StudentID  string         `json:"student_id" validate:"required"`
	SubjectID  string         `json:"subject_id" validate:"required"`
	TermID     string         `json:"term_id" validate:"required"`
	Kind       AssessmentKind `json:"kind" validate:"required,assessmentkind"`
	Value      *float64       `json:"value" validate:"required,gradevalue"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// UnmarshalJSON accepts recorded_at as an RFC 3339 timestamp or a YYYY-MM-DD date.
func (ne *NewGradeEntry) UnmarshalJSON(data []byte) error {
	type entry NewGradeEntry
	aux := struct {
		*entry
		RecordedAt string `json:"recorded_at"`
	}{entry: (*entry)(ne)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.RecordedAt == "" {
		ne.RecordedAt = time.Time{}
		return nil
	}
	t, err := ParseDate(aux.RecordedAt)
	if err != nil {
		return core.NewValidationError(errors.New(invalidEntryMsg), core.FieldError{Field: "recorded_at", Error: err.Error()})
	}
	ne.RecordedAt = t
	return nil
}

// ParseDate parses an RFC 3339 timestamp or a YYYY-MM-DD date (midnight UTC).
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("invalid date %q, expected RFC 3339 or YYYY-MM-DD", s)
}

// Clean trims ids and resolves assessment labels to their kind.
func (ne *NewGradeEntry) Clean() {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.SubjectID = core.CleanString(ne.SubjectID)
	ne.TermID = core.CleanString(ne.TermID)
	if kind, ok := KindFromLabel(string(ne.Kind)); ok {
		ne.Kind = kind
	}
}

type SubjectTermAverage struct {
	StudentID string       `json:"student_id"`
	SubjectID string       `json:"subject_id"`
	TermID    string       `json:"term_id"`
	Formative null.Float64 `json:"formative"`
	Summative null.Float64 `json:"summative"`
	Average   null.Float64 `json:"average"`
}

type TermOverallAverage struct {
	StudentID string       `json:"student_id"`
	TermID    string       `json:"term_id"`
	Value     null.Float64 `json:"value"`
}

type AnnualAverage struct {
	StudentID string       `json:"student_id"`
	Value     null.Float64 `json:"value"`
}

// TermAverages is one student's line of the class averages listing.
type TermAverages struct {
	T1     null.Float64 `json:"t1"`
	T2     null.Float64 `json:"t2"`
	T3     null.Float64 `json:"t3"`
	Annual null.Float64 `json:"annual"`
}

type BulletinRow struct {
	SubjectID   string       `json:"subject_id"`
	Subject     string       `json:"subject"`
	Coefficient float64      `json:"coefficient"`
	Formative   null.Float64 `json:"formative"`
	Summative   null.Float64 `json:"summative"`
	Average     null.Float64 `json:"average"`
	Remark      string       `json:"remark"`
}

// Bulletin is the compiled report card of a student for a term.
type Bulletin struct {
	StudentID   string        `json:"student_id"`
	ClassID     string        `json:"class_id"`
	TermID      string        `json:"term_id"`
	Rows        []BulletinRow `json:"rows"`
	Overall     null.Float64  `json:"overall"`
	Admitted    bool          `json:"admitted"`
	Decision    string        `json:"decision"`
	Observation string        `json:"observation"`
	Rank        int           `json:"rank"` // 0: not ranked
	ClassSize   int           `json:"class_size"`

	// collaborators that could not be reached while compiling (SourceCatalog, SourceGrades)
	Unavailable []string `json:"unavailable,omitempty"`
}
