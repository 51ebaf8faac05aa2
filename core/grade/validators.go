package grade

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/schoolrecords/sf10/core"
)

var (
	gradeLevelTag  = "gradelevel"
	gradeLevelText = "grade level must be one of Grade 1 to Grade 6"

	quarterTag  = "quarter"
	quarterText = "quarter must be one of 1st Quarter to 4th Quarter"

	subjectRequiredTag  = "subjectrequired"
	subjectRequiredText = "{0} is required"

	subjectRangeTag  = "subjectrange"
	subjectRangeText = fmt.Sprintf("{0} must be between %d and %d", minScore, maxScore)
)

// InitValidators registers the grade validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(gradeLevelTag, gradeLevelValidation)
	core.RegisterCustomTranslation(validate, translator, gradeLevelTag, gradeLevelText)

	_ = validate.RegisterValidation(quarterTag, quarterValidation)
	core.RegisterCustomTranslation(validate, translator, quarterTag, quarterText)

	validate.RegisterStructValidation(gradeRecordStructValidation, GradeRecord{})
	registerSubjectTranslation(validate, translator, subjectRequiredTag, subjectRequiredText)
	registerSubjectTranslation(validate, translator, subjectRangeTag, subjectRangeText)
}

// registerSubjectTranslation renders subject errors with the subject label, eg. "MATH is required".
func registerSubjectTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, columnLabel(fe.Field()))
			return s
		},
	)
}

func gradeLevelValidation(fl validator.FieldLevel) bool {
	lvl := fl.Field().String()
	for _, gl := range GradeLevels {
		if lvl == gl {
			return true
		}
	}
	return false
}

func quarterValidation(fl validator.FieldLevel) bool {
	_, ok := QuarterSlot(fl.Field().String())
	return ok
}

// gradeRecordStructValidation checks every subject score of a GradeRecord:
// required subjects must be present, and any present score must be within [60, 100].
func gradeRecordStructValidation(sl validator.StructLevel) {
	rec, ok := sl.Current().Interface().(GradeRecord)
	if !ok {
		return
	}
	for _, sub := range Subjects {
		score := rec.Get(sub.Column)
		switch {
		case !present(score):
			if sub.Required {
				sl.ReportError(score, sub.Column, sub.Column, subjectRequiredTag, "")
			}
		case score.Int < minScore || score.Int > maxScore:
			sl.ReportError(score, sub.Column, sub.Column, subjectRangeTag, "")
		}
	}
}
