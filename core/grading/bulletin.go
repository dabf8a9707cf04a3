package grading

import (
	"sort"
)

// CompileBulletin assembles the bulletin of a student for a term from the class catalog and
// the student's grade entries. Rows follow catalog order. The result only depends on its inputs.
func CompileBulletin(classID, studentID, termID string, catalog []Subject, entries []GradeEntry) Bulletin {
	blt := Bulletin{
		StudentID: studentID,
		ClassID:   classID,
		TermID:    termID,
		Rows:      make([]BulletinRow, 0, len(catalog)),
	}

	averages := make(map[string]SubjectTermAverage, len(catalog))
	for _, subj := range catalog {
		sta := SubjectAverage(studentID, subj.ID, termID, entries)
		averages[subj.ID] = sta
		blt.Rows = append(blt.Rows, BulletinRow{
			SubjectID:   subj.ID,
			Subject:     subj.Name,
			Coefficient: subj.Coefficient,
			Formative:   sta.Formative,
			Summative:   sta.Summative,
			Average:     sta.Average,
			Remark:      Remark(sta.Average),
		})
	}

	blt.Overall = OverallAverage(studentID, termID, catalog, averages).Value
	blt.Admitted, blt.Decision = Decision(blt.Overall)
	blt.Observation = Observation(blt.Overall)
	return blt
}

// RankBulletins sets Rank and ClassSize on bulletins of the same class and term.
// Rank is the 1-based position in a stable descending sort of the overall averages, so tied
// students keep their roster order. Bulletins without an overall average are not ranked (Rank 0).
// The returned slice keeps the input order.
func RankBulletins(bulletins []Bulletin) []Bulletin {
	ranked := make([]Bulletin, len(bulletins))
	copy(ranked, bulletins)

	idx := make([]int, 0, len(ranked))
	for i := range ranked {
		ranked[i].Rank = 0
		ranked[i].ClassSize = len(ranked)
		if ranked[i].Overall.Valid {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return ranked[idx[a]].Overall.Float64 > ranked[idx[b]].Overall.Float64
	})
	for pos, i := range idx {
		ranked[i].Rank = pos + 1
	}
	return ranked
}
