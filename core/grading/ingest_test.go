package grading

import (
	"encoding/json"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/bulletin/core"
)

func newTestValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

func grade(v float64) *float64 { return &v }

func newEntry(kind AssessmentKind, value *float64) NewGradeEntry {
	return NewGradeEntry{StudentID: "s1", SubjectID: "maths", TermID: "t1", Kind: kind, Value: value}
}

func TestPrepareBatch(t *testing.T) {
	validate, translator := newTestValidator()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	recorded := time.Date(2024, 2, 1, 9, 0, 0, 0, time.FixedZone("WAT", 3600))

	withDate := newEntry(KindSummative, grade(0))
	withDate.RecordedAt = recorded
	padded := NewGradeEntry{StudentID: " s2 ", SubjectID: "french ", TermID: " t1", Kind: "Devoir", Value: grade(20)}

	noIDs := NewGradeEntry{Kind: KindFormative, Value: grade(12)}
	batch := []NewGradeEntry{
		newEntry(KindFormative, grade(25)), // 0: out of range
		newEntry(KindFormative, grade(15)), // 1
		newEntry(KindFormative, nil),       // 2: missing value
		withDate,                           // 3
		newEntry("quiz", grade(12)),        // 4: unknown kind
		noIDs,                              // 5
		padded,                             // 6
		newEntry(KindSummative, grade(-1)), // 7: out of range
	}

	valid, rejections := PrepareBatch(validate, translator, batch, now)

	wantValid := []GradeEntry{
		{StudentID: "s1", SubjectID: "maths", TermID: "t1", Kind: KindFormative, Value: 15, RecordedAt: now},
		{StudentID: "s1", SubjectID: "maths", TermID: "t1", Kind: KindSummative, Value: 0, RecordedAt: recorded.UTC()},
		{StudentID: "s2", SubjectID: "french", TermID: "t1", Kind: KindFormative, Value: 20, RecordedAt: now},
	}
	assert.Equal(t, wantValid, valid)

	require.Len(t, rejections, 5)
	wantIdx := []int{0, 2, 4, 5, 7}
	for i, rej := range rejections {
		assert.Equal(t, wantIdx[i], rej.Index)
		assert.NotEmpty(t, rej.Reason)
		assert.IsType(t, &core.ValidationError{}, rej.Err)
	}
	assert.Equal(t, map[string]string{"value": gradeValueText}, rejections[0].Fields)
	assert.Equal(t, "value: "+gradeValueText, rejections[0].Reason)
	assert.Equal(t, map[string]string{"value": "this field is required"}, rejections[1].Fields)
	assert.Equal(t, map[string]string{"kind": assessmentKindText}, rejections[2].Fields)
	assert.Equal(t, map[string]string{
		"student_id": "this field is required",
		"subject_id": "this field is required",
		"term_id":    "this field is required",
	}, rejections[3].Fields)
	assert.Equal(t, map[string]string{"value": gradeValueText}, rejections[4].Fields)
}

func TestPrepareBatch_outOfRangeThenValid(t *testing.T) {
	validate, translator := newTestValidator()

	valid, rejections := PrepareBatch(validate, translator, []NewGradeEntry{
		newEntry(KindFormative, grade(25)),
		newEntry(KindFormative, grade(15)),
	}, t0)

	require.Len(t, valid, 1)
	assert.Equal(t, 15.0, valid[0].Value)
	require.Len(t, rejections, 1)
	assert.Equal(t, 0, rejections[0].Index)
}

func TestPrepareJSONBatch(t *testing.T) {
	validate, translator := newTestValidator()
	raws := []json.RawMessage{
		json.RawMessage(`{"student_id": "s1", "subject_id": "maths", "term_id": "t1", "kind": "Devoir", "value": "abc"}`),
		json.RawMessage(`{"student_id": "s1", "subject_id": "maths", "term_id": "t1", "kind": "Examen", "value": 15, "recorded_at": "2024-02-01"}`),
		json.RawMessage(`{"student_id": "s1", "subject_id": "maths", "term_id": "t1", "kind": "Examen", "value": 12, "recorded_at": "01/02/2024"}`),
		json.RawMessage(`{"student_id": "s1", "subject_id": "maths", "term_id": "t1", "kind": "Devoir", "value": 30}`),
		json.RawMessage(`12`),
		json.RawMessage(`{"student_id": "s1", "subject_id": "maths", "term_id": "t1", "kind": "Devoir", "value": 9.5, "recorded_at": "2024-02-01T09:00:00+01:00"}`),
	}

	valid, rejections := PrepareJSONBatch(validate, translator, raws, t0)

	require.Len(t, valid, 2)
	assert.Equal(t, 15.0, valid[0].Value)
	assert.Equal(t, KindSummative, valid[0].Kind)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), valid[0].RecordedAt)
	assert.Equal(t, 9.5, valid[1].Value)
	assert.Equal(t, time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC), valid[1].RecordedAt)

	require.Len(t, rejections, 4)
	tests := []struct {
		index  int
		reason string
		fields map[string]string
	}{
		{index: 0, reason: "value: must be a number", fields: map[string]string{"value": "must be a number"}},
		{index: 2, reason: `recorded_at: invalid date "01/02/2024", expected RFC 3339 or YYYY-MM-DD`},
		{index: 3, reason: "value: grade must be between 0 and 20", fields: map[string]string{"value": "grade must be between 0 and 20"}},
		{index: 4},
	}
	for i, tt := range tests {
		rej := rejections[i]
		assert.Equal(t, tt.index, rej.Index)
		if tt.reason != "" {
			assert.Equal(t, tt.reason, rej.Reason)
		}
		if tt.fields != nil {
			assert.Equal(t, tt.fields, rej.Fields)
		}
	}
	assert.Contains(t, rejections[3].Reason, "malformed grade entry")
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-02-01", want: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{in: "2024-02-01T09:30:00Z", want: time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)},
		{in: "01/02/2024", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), tt.in)
	}
}

func TestEmptyBatchError(t *testing.T) {
	var err error = &EmptyBatchError{Rejections: []Rejection{{Index: 0}, {Index: 1}}}

	assert.True(t, IsEmptyBatch(err))
	assert.ErrorIs(t, err, ErrNothingToSave)
	assert.Equal(t, "nothing to save: 2 record(s) rejected", err.Error())
	assert.False(t, IsEmptyBatch(ErrNothingToSave))
}
