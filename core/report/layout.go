package report

import (
	"fmt"

	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/grade"
)

const (
	// recordsOnFirstPage scholastic record slots go on page 1, the others on page 2.
	recordsOnFirstPage = 4
	// maxRecordSlots leaves room for Grade 7 & 8 on page 2.
	maxRecordSlots = 8
	minRecordSlots = 6
)

// Margins in mm.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// PageFormat is a physical page size in mm.
type PageFormat struct {
	Name    string
	Width   float64
	Height  float64
	Margins Margins
}

var (
	defaultMargins = Margins{Top: 10, Right: 10, Bottom: 15, Left: 10}

	Letter = PageFormat{Name: core.PageFormatLetter, Width: 215.9, Height: 279.4, Margins: defaultMargins}
	Folio  = PageFormat{Name: core.PageFormatFolio, Width: 215.9, Height: 330.2, Margins: defaultMargins}
)

// PageFormatByName returns the page format registered under name.
func PageFormatByName(name string) (PageFormat, bool) {
	switch name {
	case core.PageFormatLetter:
		return Letter, true
	case core.PageFormatFolio:
		return Folio, true
	default:
		return PageFormat{}, false
	}
}

// ContentWidth is the page width within margins.
func (f PageFormat) ContentWidth() float64 {
	return f.Width - f.Margins.Left - f.Margins.Right
}

// ContentHeight is the page height within margins.
func (f PageFormat) ContentHeight() float64 {
	return f.Height - f.Margins.Top - f.Margins.Bottom
}

// Region kinds
const (
	KindHeader        = "header"
	KindSection       = "section" // titled block of label/value lines
	KindRecord        = "record"
	KindCertification = "certification"
)

// Field is a "Label: value" pair.
type Field struct {
	Label string
	Value string
}

// Region is one block of the form. A rasterizer draws the title, the fields then the table.
type Region struct {
	ID      string
	Kind    string
	Page    int
	Title   string
	Fields  []Field
	Columns []string
	Rows    [][]string
	Footer  []string
	Hidden  bool
}

// Surface is the laid-out form. Regions are drawn in order, skipping hidden ones.
type Surface struct {
	Format  PageFormat
	regions []*Region
}

func (s *Surface) add(r *Region) {
	s.regions = append(s.regions, r)
}

// Regions returns every region, hidden or not.
func (s *Surface) Regions() []*Region {
	return s.regions
}

// Visible returns the regions to draw.
func (s *Surface) Visible() []*Region {
	visible := make([]*Region, 0, len(s.regions))
	for _, r := range s.regions {
		if !r.Hidden {
			visible = append(visible, r)
		}
	}
	return visible
}

// Region returns the region with the given id.
func (s *Surface) Region(id string) (*Region, bool) {
	for _, r := range s.regions {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// Pages is the number of pages of the form.
func (s *Surface) Pages() int {
	var pages int
	for _, r := range s.regions {
		if r.Page > pages {
			pages = r.Page
		}
	}
	return pages
}

// ShowPage hides every region not on page n.
func (s *Surface) ShowPage(n int) {
	for _, r := range s.regions {
		r.Hidden = r.Page != n
	}
}

func (s *Surface) visibility() []bool {
	state := make([]bool, len(s.regions))
	for i, r := range s.regions {
		state[i] = r.Hidden
	}
	return state
}

func (s *Surface) restore(state []bool) {
	for i, r := range s.regions {
		if i < len(state) {
			r.Hidden = state[i]
		}
	}
}

// Layout lays the form out on the two pages of the SF10-ES: header, personal information,
// eligibility & the first 4 scholastic records on page 1; the other records & the
// certifications on page 2. At least 6 record slots are laid out, at most 8.
func Layout(form Form, format PageFormat) *Surface {
	s := &Surface{Format: format}

	s.add(&Region{
		ID:    "header",
		Kind:  KindHeader,
		Page:  1,
		Title: "Learner's Permanent Academic Record for Elementary School (SF10-ES)",
		Fields: []Field{
			{Value: "Republic of the Philippines"},
			{Value: "Department of Education"},
		},
	})
	s.add(personalInfoRegion(form.Learner))
	s.add(eligibilityRegion(form.Eligibility))

	slots := len(form.Records)
	if slots < minRecordSlots {
		slots = minRecordSlots
	}
	if slots > maxRecordSlots {
		slots = maxRecordSlots
	}
	for i := 0; i < slots; i++ {
		var rec grade.ScholasticRecord
		if i < len(form.Records) {
			rec = form.Records[i]
		} else {
			rec = grade.Placeholder(grade.GradeLevelName(i+1), grade.School{})
		}
		page := 1
		if i >= recordsOnFirstPage {
			page = 2
		}
		s.add(recordRegion(i, page, rec))
	}

	for i, cert := range form.Certifications {
		s.add(certificationRegion(i, cert))
	}
	return s
}

func personalInfoRegion(l Learner) *Region {
	return &Region{
		ID:    "personal-info",
		Kind:  KindSection,
		Page:  1,
		Title: "LEARNER'S PERSONAL INFORMATION",
		Fields: []Field{
			{Label: "LAST NAME", Value: l.LastName},
			{Label: "FIRST NAME", Value: l.FirstName},
			{Label: "NAME EXTN. (Jr,I,II)", Value: l.NameExtension},
			{Label: "MIDDLE NAME", Value: l.MiddleName},
			{Label: "Learner Reference Number (LRN)", Value: l.LRN},
			{Label: "Birthdate (mm/dd/yyyy)", Value: l.Birthdate},
			{Label: "Sex", Value: l.Sex},
		},
	}
}

func checkbox(checked bool) string {
	if checked {
		return "[x]"
	}
	return "[ ]"
}

func eligibilityRegion(e Eligibility) *Region {
	examDate := ""
	if e.ExamDate.Valid {
		examDate = e.ExamDate.Time.Format("01/02/2006")
	}
	return &Region{
		ID:    "eligibility",
		Kind:  KindSection,
		Page:  1,
		Title: "ELIGIBILITY FOR ELEMENTARY SCHOOL ENROLMENT",
		Fields: []Field{
			{Label: "Credential Presented for Grade 1"},
			{Label: checkbox(e.KinderProgressReport) + " Kinder Progress Report"},
			{Label: checkbox(e.ECCDChecklist) + " ECCD Checklist"},
			{Label: checkbox(e.KindergartenCertificate) + " Kindergarten Certificate of Completion"},
			{Label: "Name of School", Value: e.KinderSchool},
			{Label: "School ID", Value: e.KinderSchoolID},
			{Label: "Address of School", Value: e.KinderSchoolAddress},
			{Label: "Other Credential Presented"},
			{Label: checkbox(e.PEPTPasser) + " PEPT Passer"},
			{Label: "Rating", Value: e.PEPTRating},
			{Label: "Date of Examination/Assessment (mm/dd/yyyy)", Value: examDate},
			{Label: "Others (Pls. Specify)", Value: e.Other},
			{Label: "Name and Address of Testing Center", Value: e.TestingCenter},
			{Label: "Remark", Value: e.Remark},
		},
	}
}

var recordColumns = []string{"LEARNING AREAS", "1", "2", "3", "4", "FINAL RATING", "REMARKS"}

func recordRegion(slot, page int, rec grade.ScholasticRecord) *Region {
	r := &Region{
		ID:    fmt.Sprintf("school-record-%d", slot),
		Kind:  KindRecord,
		Page:  page,
		Title: "SCHOLASTIC RECORD",
		Fields: []Field{
			{Label: "School", Value: rec.School},
			{Label: "School ID", Value: rec.SchoolID},
			{Label: "District", Value: rec.District},
			{Label: "Division", Value: rec.Division},
			{Label: "Region", Value: rec.Region},
			{Label: "Classified as Grade", Value: gradeNumber(rec.GradeLevel)},
			{Label: "Section", Value: rec.Section},
			{Label: "School Year", Value: rec.SchoolYear},
			{Label: "Name of Adviser/Teacher", Value: rec.Adviser},
			{Label: "Signature", Value: rec.Signature},
		},
		Columns: recordColumns,
	}
	for _, name := range grade.TemplateRows() {
		g := rec.Grades[name]
		r.Rows = append(r.Rows, []string{name, g.Q1, g.Q2, g.Q3, g.Q4, g.Final, g.Remarks})
	}
	return r
}

func gradeNumber(level string) string {
	if n, ok := grade.GradeNumber(level); ok {
		return fmt.Sprint(n)
	}
	return ""
}

func certificationRegion(slot int, c Certification) *Region {
	date := ""
	if !c.Date.IsZero() {
		date = c.Date.Format("01/02/2006")
	}
	return &Region{
		ID:    fmt.Sprintf("certification-%d", slot),
		Kind:  KindCertification,
		Page:  2,
		Title: "CERTIFICATION",
		Fields: []Field{
			{Label: "I CERTIFY that this is a true record of", Value: c.StudentName},
			{Label: "with LRN", Value: c.LRN},
			{Label: "and that he/she is eligible for admission to Grade", Value: c.EligibleForGrade},
			{Label: "School Name", Value: c.SchoolName},
			{Label: "School ID", Value: c.SchoolID},
			{Label: "Division", Value: c.Division},
			{Label: "Last School Year Attended", Value: c.LastSchoolYear},
			{Label: "Date", Value: date},
		},
		Footer: []string{c.PrincipalName, "Name of Principal/School Head over Printed Name", "(Affix School Seal here)"},
	}
}
