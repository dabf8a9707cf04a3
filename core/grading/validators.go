package grading

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/bulletin/core"
)

var (
	gradeValueTag  = "gradevalue"
	gradeValueText = fmt.Sprintf("grade must be between %.0f and %.0f", MinGrade, MaxGrade)

	assessmentKindTag  = "assessmentkind"
	assessmentKindText = "unknown assessment kind"
)

// InitValidators registers the grading validations on an initialized validator.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(gradeValueTag, gradeValueValidation)
	core.RegisterCustomTranslation(validate, translator, gradeValueTag, gradeValueText)

	_ = validate.RegisterValidation(assessmentKindTag, assessmentKindValidation)
	core.RegisterCustomTranslation(validate, translator, assessmentKindTag, assessmentKindText)
}

// gradeValueValidation checks that a grade is within [MinGrade, MaxGrade]
func gradeValueValidation(fl validator.FieldLevel) bool {
	if v, ok := fl.Field().Interface().(float64); ok {
		return IsValidGrade(v)
	}
	return false
}

// assessmentKindValidation checks that a kind is one of Kinds
func assessmentKindValidation(fl validator.FieldLevel) bool {
	if kind, ok := fl.Field().Interface().(AssessmentKind); ok {
		return kind.IsValid()
	}
	return false
}
