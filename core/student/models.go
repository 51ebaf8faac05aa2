package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/schoolrecords/sf10/core"
)

const (
	SexMale   = "Male"
	SexFemale = "Female"
)

// Credentials are the documents presented for admission to Grade 1.
type Credentials struct {
	KinderProgressReport    bool      `json:"kinder_progress_report" db:"kinder_progress_report"`
	ECCDChecklist           bool      `json:"eccd_checklist" db:"eccd_checklist"`
	KindergartenCertificate bool      `json:"kindergarten_certificate" db:"kindergarten_certificate"`
	PEPTPasser              bool      `json:"pept_passer" db:"pept_passer"`
	PEPTRating              string    `json:"pept_rating" db:"pept_rating"`
	ExamDate                null.Time `json:"exam_date" db:"exam_date"`
	Other                   string    `json:"other" db:"other_credential"`
}

// Student is a learner, identified by their LRN.
type Student struct {
	LRN           string    `json:"lrn" db:"lrn" validate:"required,lrn"`
	LastName      string    `json:"last_name" db:"last_name" validate:"required"`
	FirstName     string    `json:"first_name" db:"first_name" validate:"required"`
	MiddleName    string    `json:"middle_name" db:"middle_name"`
	NameExtension string    `json:"name_extension" db:"name_extension"`
	Birthdate     null.Time `json:"birthdate" db:"birthdate"`
	Sex           string    `json:"sex" db:"sex" validate:"required,oneof=Male Female"`
	GradeLevel    string    `json:"grade_level" db:"grade_level" validate:"required,gradelevel"`
	Section       string    `json:"section" db:"section" validate:"required"`

	Credentials
	// school the learner completed kindergarten in
	KinderSchool        string `json:"kinder_school" db:"kinder_school"`
	KinderSchoolID      string `json:"kinder_school_id" db:"kinder_school_id"`
	KinderSchoolAddress string `json:"kinder_school_address" db:"kinder_school_address"`
	TestingCenter       string `json:"testing_center" db:"testing_center"`
	Remark              string `json:"remark" db:"remark"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns "Last, First Middle Ext.".
func (s Student) FullName() string {
	name := s.LastName + ", " + s.FirstName
	if s.MiddleName != "" {
		name += " " + s.MiddleName
	}
	if s.NameExtension != "" {
		name += " " + s.NameExtension
	}
	return name
}

func (s *Student) Validate(validate *validator.Validate) error {
	s.LRN = core.CleanString(s.LRN)
	s.LastName = core.CleanString(s.LastName)
	s.FirstName = core.CleanString(s.FirstName)
	s.MiddleName = core.CleanString(s.MiddleName)
	s.NameExtension = core.CleanString(s.NameExtension)
	s.Section = core.CleanString(s.Section)
	s.Sex = core.Title(core.CleanString(s.Sex))
	return validate.Struct(s)
}

// Filter narrows a learner query. Empty fields do not filter.
// Search does a case-insensitive match on the LRN or one of the names.
type Filter struct {
	GradeLevel string `query:"grade_level"`
	Section    string `query:"section"`
	Search     string `query:"search"`
}
