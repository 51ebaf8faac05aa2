package grade_test

import (
	"sort"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/schoolrecords/sf10/core/grade"
	"github.com/schoolrecords/sf10/tests"
)

func fullScores() grade.Scores {
	return grade.Scores{
		MotherTongue: null.IntFrom(90), Filipino: null.IntFrom(88), English: null.IntFrom(85),
		Math: null.IntFrom(92), Science: null.IntFrom(87), AP: null.IntFrom(89),
		MAPEH: null.IntFrom(91), Music: null.IntFrom(90), Arts: null.IntFrom(92),
		PE: null.IntFrom(93), Health: null.IntFrom(89), EP: null.IntFrom(94),
	}
}

func validRecord() grade.GradeRecord {
	return grade.GradeRecord{
		LRN:        "123456789012",
		GradeLevel: grade.Grade1,
		Section:    "Sampaguita",
		Quarter:    grade.Quarter1,
		Scores:     fullScores(),
	}
}

func TestGradeRecordValidate(t *testing.T) {
	validate, translator := testutil.NewValidator()

	tests := []struct {
		name    string
		mutate  func(rec *grade.GradeRecord)
		wantErr map[string]string
	}{
		{name: "valid", mutate: func(*grade.GradeRecord) {}},
		{
			name:   "optional subjects in range",
			mutate: func(r *grade.GradeRecord) { r.Arabic = null.IntFrom(60); r.EPPTLE = null.IntFrom(100) },
		},
		{
			name:    "missing math",
			mutate:  func(r *grade.GradeRecord) { r.Math = null.Int{} },
			wantErr: map[string]string{"math": "MATH is required"},
		},
		{
			name:    "zero is missing",
			mutate:  func(r *grade.GradeRecord) { r.MotherTongue = null.IntFrom(0) },
			wantErr: map[string]string{"mother_tongue": "MOTHER TONGUE is required"},
		},
		{
			name: "required out of range",
			mutate: func(r *grade.GradeRecord) {
				r.Science = null.IntFrom(59)
				r.PE = null.IntFrom(101)
			},
			wantErr: map[string]string{
				"science": "SCIENCE must be between 60 and 100",
				"pe":      "PE must be between 60 and 100",
			},
		},
		{
			name:    "optional out of range",
			mutate:  func(r *grade.GradeRecord) { r.Islamic = null.IntFrom(45) },
			wantErr: map[string]string{"islamic": "ISLAMIC must be between 60 and 100"},
		},
		{
			name:   "all missing",
			mutate: func(r *grade.GradeRecord) { r.Scores = grade.Scores{} },
			wantErr: map[string]string{
				"mother_tongue": "MOTHER TONGUE is required",
				"filipino":      "FILIPINO is required",
				"english":       "ENGLISH is required",
				"math":          "MATH is required",
				"science":       "SCIENCE is required",
				"ap":            "AP is required",
				"mapeh":         "MAPEH is required",
				"music":         "MUSIC is required",
				"arts":          "ARTS is required",
				"pe":            "PE is required",
				"health":        "HEALTH is required",
				"ep":            "EP is required",
			},
		},
		{
			name: "bad identity",
			mutate: func(r *grade.GradeRecord) {
				r.LRN = "12345"
				r.GradeLevel = "Grade 7"
				r.Quarter = "5th Quarter"
				r.Section = " "
			},
			wantErr: map[string]string{
				"lrn":         "a learner reference number is made of 12 digits",
				"grade_level": "grade level must be one of Grade 1 to Grade 6",
				"quarter":     "quarter must be one of 1st Quarter to 4th Quarter",
				"section":     "this field is required",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			err := rec.Validate(validate)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			if !ok {
				t.Fatalf("Validate() error = %v; want validator.ValidationErrors", err)
			}
			got := make(map[string]string, len(vErrs))
			for _, fe := range vErrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			if len(got) != len(tt.wantErr) {
				keys := make([]string, 0, len(got))
				for k := range got {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				t.Fatalf("Validate() reported %v; want %d fields", keys, len(tt.wantErr))
			}
			for field, msg := range tt.wantErr {
				if got[field] != msg {
					t.Errorf("%s: got %q; want %q", field, got[field], msg)
				}
			}
		})
	}
}
