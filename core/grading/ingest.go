package grading

import (
	"encoding/json"
	"reflect"
	"sort"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/bulletin/core"
)

const invalidEntryMsg = "invalid grade entry"

// Rejection describes a batch record that was left out of the commit.
type Rejection struct {
	Index  int               `json:"index"` // position in the submitted batch
	Reason string            `json:"reason"`
	Fields map[string]string `json:"fields,omitempty"`
	Err    error             `json:"-"`
}

type IngestionResult struct {
	Saved      int         `json:"saved"`
	Rejected   int         `json:"rejected"`
	Rejections []Rejection `json:"rejections"`
}

// PrepareBatch validates every record of batch independently and returns the entries ready to
// be committed, in submission order, along with the rejected records.
// Records without RecordedAt are stamped with now.
func PrepareBatch(validate *validator.Validate, translator ut.Translator, batch []NewGradeEntry, now time.Time) ([]GradeEntry, []Rejection) {
	records := make([]record, len(batch))
	for i, ne := range batch {
		records[i] = record{index: i, entry: ne}
	}
	return prepareRecords(validate, translator, records, nil, now)
}

// PrepareJSONBatch is PrepareBatch over JSON records decoded one by one:
// a record that cannot be decoded is rejected without affecting the others.
func PrepareJSONBatch(validate *validator.Validate, translator ut.Translator, raws []json.RawMessage, now time.Time) ([]GradeEntry, []Rejection) {
	records := make([]record, 0, len(raws))
	var rejections []Rejection
	for i, raw := range raws {
		var ne NewGradeEntry
		if err := json.Unmarshal(raw, &ne); err != nil {
			rejections = append(rejections, decodeRejection(i, err))
			continue
		}
		records = append(records, record{index: i, entry: ne})
	}
	return prepareRecords(validate, translator, records, rejections, now)
}

// record is a batch entry along with its position in the submitted batch.
type record struct {
	index int
	entry NewGradeEntry
}

func prepareRecords(validate *validator.Validate, translator ut.Translator, records []record, rejections []Rejection, now time.Time) ([]GradeEntry, []Rejection) {
	valid := make([]GradeEntry, 0, len(records))

	for _, rec := range records {
		ne := rec.entry
		ne.Clean()
		if err := validate.Struct(ne); err != nil {
			rejections = append(rejections, newRejection(rec.index, core.TranslateValidationErrors(err, translator, invalidEntryMsg)))
			continue
		}

		recordedAt := ne.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = now
		}
		valid = append(valid, GradeEntry{
			StudentID:  ne.StudentID,
			SubjectID:  ne.SubjectID,
			TermID:     ne.TermID,
			Kind:       ne.Kind,
			Value:      *ne.Value,
			RecordedAt: recordedAt.UTC(),
		})
	}
	sort.SliceStable(rejections, func(i, j int) bool { return rejections[i].Index < rejections[j].Index })
	return valid, rejections
}

// decodeRejection turns a JSON decoding failure into a rejection, naming the field when known.
func decodeRejection(idx int, err error) Rejection {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		err = core.NewValidationError(
			errors.New(invalidEntryMsg),
			core.FieldError{Field: typeErr.Field, Error: "must be a " + jsonTypeName(typeErr.Type)},
		)
	case isValidationError(err):
	default:
		err = errors.Wrap(err, "malformed grade entry")
	}
	return newRejection(idx, err)
}

func isValidationError(err error) bool {
	_, ok := errors.Cause(err).(*core.ValidationError)
	return ok
}

func jsonTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "number"
	case reflect.String:
		return "string"
	default:
		return t.String()
	}
}

func newRejection(idx int, err error) Rejection {
	rej := Rejection{Index: idx, Reason: err.Error(), Err: err}
	if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
		rej.Fields = vErr.FieldsMap()
		if len(vErr.Fields) > 0 {
			rej.Reason = vErr.Fields[0].Field + ": " + vErr.Fields[0].Error
		}
	}
	return rej
}
