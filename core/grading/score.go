package grading

import (
	"math"
	"math/big"
	"strconv"

	"github.com/volatiletech/null/v8"
)

const (
	MinGrade = 0.
	MaxGrade = 20.
	PassMark = 10.

	// shown in place of an absent score
	AbsentLabel = "Abs"
	// shown in place of a remark, decision or observation that cannot be computed
	NoRemark = "-"

	DecisionAdmitted    = "Admis"
	DecisionNotAdmitted = "Non admis"
)

// bands are ordered by decreasing lower bound; a score belongs to the first band whose min it reaches.
var bands = []struct {
	min         float64
	remark      string
	observation string
}{
	{min: 16, remark: "Excellent", observation: "Excellent travail. Félicitations!"},
	{min: 14, remark: "Bien", observation: "Bon travail. Continuez ainsi."},
	{min: PassMark, remark: "Passable", observation: "Travail satisfaisant. Peut mieux faire."},
	{min: math.Inf(-1), remark: "Insuffisant", observation: "Travail insuffisant. Des efforts sont nécessaires."},
}

// Round2 rounds x to 2 decimals, half-up (away from zero).
// Rounding applies to the shortest decimal representation of x, so 12.345 (stored as 12.34499...)
// gives 12.35 while 12.34499999999 gives 12.34.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(math.Abs(x), 'f', -1, 64))
	if !ok {
		return x
	}
	r.Mul(r, big.NewRat(100, 1)).Add(r, big.NewRat(1, 2))
	cents := new(big.Int).Quo(r.Num(), r.Denom()) // floor, r >= 0
	v, _ := new(big.Rat).SetFrac(cents, big.NewInt(100)).Float64()
	return math.Copysign(v, x)
}

// IsValidGrade reports whether v can be recorded as a grade.
func IsValidGrade(v float64) bool {
	return !math.IsNaN(v) && v >= MinGrade && v <= MaxGrade
}

// Remark is the qualitative appreciation of a subject average.
func Remark(avg null.Float64) string {
	if !avg.Valid {
		return NoRemark
	}
	for _, b := range bands {
		if avg.Float64 >= b.min {
			return b.remark
		}
	}
	return NoRemark
}

// Observation is the class council feedback for an overall average.
func Observation(overall null.Float64) string {
	if !overall.Valid {
		return NoRemark
	}
	for _, b := range bands {
		if overall.Float64 >= b.min {
			return b.observation
		}
	}
	return NoRemark
}

// Decision returns the admission flag and its label for an overall average.
func Decision(overall null.Float64) (bool, string) {
	switch {
	case !overall.Valid:
		return false, NoRemark
	case overall.Float64 >= PassMark:
		return true, DecisionAdmitted
	default:
		return false, DecisionNotAdmitted
	}
}

// FormatScore renders a score with 2 decimals, or AbsentLabel.
func FormatScore(score null.Float64) string {
	if !score.Valid {
		return AbsentLabel
	}
	return strconv.FormatFloat(score.Float64, 'f', 2, 64)
}
