package grading

import (
	"github.com/volatiletech/null/v8"
)

// SubjectAverage computes the term average of one student in one subject.
//
// Entries are partitioned by kind and, within a kind, only the latest entry is retained
// (latest RecordedAt; on equal timestamps the entry ingested last, i.e. appearing last in
// entries, wins). Earlier entries are superseded, not averaged together.
// Entries of another student, subject or term are ignored.
func SubjectAverage(studentID, subjectID, termID string, entries []GradeEntry) SubjectTermAverage {
	var formative, summative *GradeEntry
	for i := range entries {
		e := &entries[i]
		if e.StudentID != studentID || e.SubjectID != subjectID || e.TermID != termID {
			continue
		}
		switch e.Kind {
		case KindFormative:
			formative = latest(formative, e)
		case KindSummative:
			summative = latest(summative, e)
		}
	}

	sta := SubjectTermAverage{
		StudentID: studentID,
		SubjectID: subjectID,
		TermID:    termID,
		Formative: entryValue(formative),
		Summative: entryValue(summative),
	}
	switch {
	case sta.Formative.Valid && sta.Summative.Valid:
		sta.Average = null.Float64From(Round2((sta.Formative.Float64 + sta.Summative.Float64) / 2))
	case sta.Formative.Valid:
		sta.Average = sta.Formative
	case sta.Summative.Valid:
		sta.Average = sta.Summative
	}
	return sta
}

func latest(curr, candidate *GradeEntry) *GradeEntry {
	if curr == nil || !candidate.RecordedAt.Before(curr.RecordedAt) {
		return candidate
	}
	return curr
}

func entryValue(e *GradeEntry) null.Float64 {
	if e == nil {
		return null.Float64{}
	}
	return null.Float64From(e.Value)
}

// OverallAverage computes the coefficient-weighted term average over the catalog subjects.
// Subjects without an average (or with a non-positive coefficient) are left out of both
// the numerator and the denominator. The result is absent when no subject contributes.
func OverallAverage(studentID, termID string, catalog []Subject, averages map[string]SubjectTermAverage) TermOverallAverage {
	toa := TermOverallAverage{StudentID: studentID, TermID: termID}

	var points, coefs float64
	for _, subj := range catalog {
		if subj.Coefficient <= 0 {
			continue
		}
		sta, ok := averages[subj.ID]
		if !ok || !sta.Average.Valid {
			continue
		}
		points += sta.Average.Float64 * subj.Coefficient
		coefs += subj.Coefficient
	}
	if coefs > 0 {
		toa.Value = null.Float64From(Round2(points / coefs))
	}
	return toa
}

// YearAverage computes the unweighted mean of the available term averages.
// Missing terms are neither weighted nor zero-filled; the result is absent when all terms are.
func YearAverage(studentID string, terms ...TermOverallAverage) AnnualAverage {
	aa := AnnualAverage{StudentID: studentID}

	var sum float64
	var n int
	for _, t := range terms {
		if t.Value.Valid {
			sum += t.Value.Float64
			n++
		}
	}
	if n > 0 {
		aa.Value = null.Float64From(Round2(sum / float64(n)))
	}
	return aa
}

// StudentYear builds a student's line of the class averages listing from its term averages.
func StudentYear(studentID string, t1, t2, t3 TermOverallAverage) TermAverages {
	return TermAverages{
		T1:     t1.Value,
		T2:     t2.Value,
		T3:     t3.Value,
		Annual: YearAverage(studentID, t1, t2, t3).Value,
	}
}
