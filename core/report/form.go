package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/schoolrecords/sf10/core/grade"
	"github.com/schoolrecords/sf10/core/student"
)

// certificationBlocks is the number of certification boxes printed on the form.
const certificationBlocks = 3

// School is the issuing school.
type School struct {
	grade.School
	Principal string
}

type Learner struct {
	LRN           string
	LastName      string
	FirstName     string
	MiddleName    string
	NameExtension string
	Birthdate     string // mm/dd/yyyy
	Sex           string
}

// Eligibility is the "Eligibility for elementary school enrolment" block.
type Eligibility struct {
	student.Credentials
	KinderSchool        string
	KinderSchoolID      string
	KinderSchoolAddress string
	TestingCenter       string
	Remark              string
}

// Certification states the grade a learner may be admitted to. The zero value renders as an empty box.
type Certification struct {
	StudentName      string
	LRN              string
	EligibleForGrade string
	SchoolName       string
	SchoolID         string
	Division         string
	LastSchoolYear   string
	PrincipalName    string
	Date             time.Time
}

// Form holds everything printed on a SF10-ES.
type Form struct {
	Learner        Learner
	Eligibility    Eligibility
	Records        []grade.ScholasticRecord
	Certifications []Certification
}

// NewForm assembles the form of a learner from their scholastic records.
func NewForm(s student.Student, records []grade.ScholasticRecord, school School, date time.Time) Form {
	form := Form{
		Learner: Learner{
			LRN:           s.LRN,
			LastName:      s.LastName,
			FirstName:     s.FirstName,
			MiddleName:    s.MiddleName,
			NameExtension: s.NameExtension,
			Sex:           s.Sex,
		},
		Eligibility: Eligibility{
			Credentials:         s.Credentials,
			KinderSchool:        s.KinderSchool,
			KinderSchoolID:      s.KinderSchoolID,
			KinderSchoolAddress: s.KinderSchoolAddress,
			TestingCenter:       s.TestingCenter,
			Remark:              s.Remark,
		},
		Records:        records,
		Certifications: make([]Certification, certificationBlocks),
	}
	if s.Birthdate.Valid {
		form.Learner.Birthdate = s.Birthdate.Time.Format("01/02/2006")
	}
	if cert, ok := Certify(s, records, school, date); ok {
		form.Certifications[0] = cert
	}
	return form
}

// Certify builds the certification of the most recent grade level with a final general average:
// a learner who passed Grade n is eligible for Grade n+1, otherwise for Grade n again.
func Certify(s student.Student, records []grade.ScholasticRecord, school School, date time.Time) (Certification, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if !rec.HasGrades() {
			continue
		}
		n, ok := grade.GradeNumber(rec.GradeLevel)
		if !ok {
			continue
		}
		if rec.Grades[grade.GeneralAverage].Remarks == grade.Passed {
			n++
		}
		return Certification{
			StudentName:      printedName(s),
			LRN:              s.LRN,
			EligibleForGrade: strconv.Itoa(n),
			SchoolName:       school.Name,
			SchoolID:         school.ID,
			Division:         school.Division,
			LastSchoolYear:   rec.SchoolYear,
			PrincipalName:    school.Principal,
			Date:             date,
		}, true
	}
	return Certification{}, false
}

// printedName is "First Middle Last Ext.".
func printedName(s student.Student) string {
	return strings.Join(strings.Fields(strings.Join([]string{s.FirstName, s.MiddleName, s.LastName, s.NameExtension}, " ")), " ")
}
