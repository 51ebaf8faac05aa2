package grade

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
)

// Grade levels
const (
	Grade1 = "Grade 1"
	Grade2 = "Grade 2"
	Grade3 = "Grade 3"
	Grade4 = "Grade 4"
	Grade5 = "Grade 5"
	Grade6 = "Grade 6"
)

// Quarters
const (
	Quarter1 = "1st Quarter"
	Quarter2 = "2nd Quarter"
	Quarter3 = "3rd Quarter"
	Quarter4 = "4th Quarter"
)

// Remarks
const (
	Passed = "Passed"
	Failed = "Failed"
)

// GeneralAverage is the synthetic template row; it has no column and is always computed.
const GeneralAverage = "General Average"

const (
	passingRating = 75
	minScore      = 60
	maxScore      = 100
)

var (
	GradeLevels = []string{Grade1, Grade2, Grade3, Grade4, Grade5, Grade6}
	Quarters    = []string{Quarter1, Quarter2, Quarter3, Quarter4}

	quarterSlots = map[string]int{
		Quarter1: 0,
		Quarter2: 1,
		Quarter3: 2,
		Quarter4: 3,
	}
)

// QuarterSlot maps a quarter name to its q1..q4 index.
func QuarterSlot(quarter string) (int, bool) {
	slot, ok := quarterSlots[quarter]
	return slot, ok
}

// GradeNumber extracts n from "Grade n".
func GradeNumber(level string) (int, bool) {
	if !strings.HasPrefix(level, "Grade ") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(level, "Grade "))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func GradeLevelName(n int) string {
	return "Grade " + strconv.Itoa(n)
}

// Subject is one graded learning area of the SF10 form.
type Subject struct {
	Column   string // store column & json field
	Name     string // SF10 row name
	Required bool
}

// Label is the name used in data-entry error messages, eg. "MOTHER TONGUE".
func (s Subject) Label() string {
	return columnLabel(s.Column)
}

func columnLabel(column string) string {
	return strings.ToUpper(strings.ReplaceAll(column, "_", " "))
}

// Subjects lists the 15 graded subjects in SF10 row order.
var Subjects = []Subject{
	{Column: "mother_tongue", Name: "Mother Tongue", Required: true},
	{Column: "filipino", Name: "Filipino", Required: true},
	{Column: "english", Name: "English", Required: true},
	{Column: "math", Name: "Mathematics", Required: true},
	{Column: "science", Name: "Science", Required: true},
	{Column: "ap", Name: "Araling Panlipunan", Required: true},
	{Column: "epp_tle", Name: "EPP / TLE"},
	{Column: "mapeh", Name: "MAPEH", Required: true},
	{Column: "music", Name: "Music", Required: true},
	{Column: "arts", Name: "Arts", Required: true},
	{Column: "pe", Name: "Physical Education", Required: true},
	{Column: "health", Name: "Health", Required: true},
	{Column: "ep", Name: "Eduk. sa Pagpapakatao", Required: true},
	{Column: "arabic", Name: "*Arabic Language"},
	{Column: "islamic", Name: "*Islamic Values Education"},
}

// TemplateRows returns the 16 SF10 subject rows, always in the same order.
func TemplateRows() []string {
	rows := make([]string, 0, len(Subjects)+1)
	for _, sub := range Subjects {
		rows = append(rows, sub.Name)
	}
	return append(rows, GeneralAverage)
}

// Scores holds the 15 optional subject scores of one quarter.
type Scores struct {
	MotherTongue null.Int `json:"mother_tongue"`
	Filipino     null.Int `json:"filipino"`
	English      null.Int `json:"english"`
	Math         null.Int `json:"math"`
	Science      null.Int `json:"science"`
	AP           null.Int `json:"ap"`
	EPPTLE       null.Int `json:"epp_tle"`
	MAPEH        null.Int `json:"mapeh"`
	Music        null.Int `json:"music"`
	Arts         null.Int `json:"arts"`
	PE           null.Int `json:"pe"`
	Health       null.Int `json:"health"`
	EP           null.Int `json:"ep"`
	Arabic       null.Int `json:"arabic"`
	Islamic      null.Int `json:"islamic"`
}

// Field returns a pointer to the score stored under column, nil for unknown columns.
func (s *Scores) Field(column string) *null.Int {
	switch column {
	case "mother_tongue":
		return &s.MotherTongue
	case "filipino":
		return &s.Filipino
	case "english":
		return &s.English
	case "math":
		return &s.Math
	case "science":
		return &s.Science
	case "ap":
		return &s.AP
	case "epp_tle":
		return &s.EPPTLE
	case "mapeh":
		return &s.MAPEH
	case "music":
		return &s.Music
	case "arts":
		return &s.Arts
	case "pe":
		return &s.PE
	case "health":
		return &s.Health
	case "ep":
		return &s.EP
	case "arabic":
		return &s.Arabic
	case "islamic":
		return &s.Islamic
	default:
		return nil
	}
}

// Get returns the score stored under column.
func (s Scores) Get(column string) null.Int {
	if f := s.Field(column); f != nil {
		return *f
	}
	return null.Int{}
}

// Key identifies a GradeRecord.
type Key struct {
	LRN        string `json:"lrn" query:"lrn" validate:"required,lrn"`
	GradeLevel string `json:"grade_level" query:"grade_level" validate:"required,gradelevel"`
	Section    string `json:"section" query:"section" validate:"required"`
	Quarter    string `json:"quarter" query:"quarter" validate:"required,quarter"`
}

// GradeRecord is one quarter of grades of a learner, in clear.
type GradeRecord struct {
	ID         string `json:"id"`
	LRN        string `json:"lrn" validate:"required,lrn"`
	GradeLevel string `json:"grade_level" validate:"required,gradelevel"`
	Section    string `json:"section" validate:"required"`
	Quarter    string `json:"quarter" validate:"required,quarter"`
	Adviser    string `json:"adviser"`
	SchoolYear string `json:"school_year"`
	Scores
	Average   null.Int  `json:"average"` // always computed
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r GradeRecord) Key() Key {
	return Key{LRN: r.LRN, GradeLevel: r.GradeLevel, Section: r.Section, Quarter: r.Quarter}
}

func (r *GradeRecord) clean() {
	r.ID = strings.TrimSpace(r.ID)
	r.LRN = strings.TrimSpace(r.LRN)
	r.GradeLevel = strings.TrimSpace(r.GradeLevel)
	r.Section = strings.TrimSpace(r.Section)
	r.Quarter = strings.TrimSpace(r.Quarter)
	r.Adviser = strings.TrimSpace(r.Adviser)
	r.SchoolYear = strings.TrimSpace(r.SchoolYear)
}

// Row is a GradeRecord as persisted: every score is ciphertext.
type Row struct {
	ID           string    `db:"id"`
	LRN          string    `db:"lrn"`
	GradeLevel   string    `db:"grade_level"`
	Section      string    `db:"section"`
	Quarter      string    `db:"quarter"`
	Adviser      string    `db:"adviser"`
	SchoolYear   string    `db:"school_year"`
	MotherTongue string    `db:"mother_tongue"`
	Filipino     string    `db:"filipino"`
	English      string    `db:"english"`
	Math         string    `db:"math"`
	Science      string    `db:"science"`
	AP           string    `db:"ap"`
	EPPTLE       string    `db:"epp_tle"`
	MAPEH        string    `db:"mapeh"`
	Music        string    `db:"music"`
	Arts         string    `db:"arts"`
	PE           string    `db:"pe"`
	Health       string    `db:"health"`
	EP           string    `db:"ep"`
	Arabic       string    `db:"arabic"`
	Islamic      string    `db:"islamic"`
	Average      string    `db:"average"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Cipher returns a pointer to the sealed value of column ("average" included).
func (r *Row) Cipher(column string) *string {
	switch column {
	case "mother_tongue":
		return &r.MotherTongue
	case "filipino":
		return &r.Filipino
	case "english":
		return &r.English
	case "math":
		return &r.Math
	case "science":
		return &r.Science
	case "ap":
		return &r.AP
	case "epp_tle":
		return &r.EPPTLE
	case "mapeh":
		return &r.MAPEH
	case "music":
		return &r.Music
	case "arts":
		return &r.Arts
	case "pe":
		return &r.PE
	case "health":
		return &r.Health
	case "ep":
		return &r.EP
	case "arabic":
		return &r.Arabic
	case "islamic":
		return &r.Islamic
	case "average":
		return &r.Average
	default:
		return nil
	}
}

// Same reports whether k & o identify the same record. Sections compare case-insensitively.
func (k Key) Same(o Key) bool {
	return k.LRN == o.LRN && k.GradeLevel == o.GradeLevel && k.Quarter == o.Quarter &&
		strings.EqualFold(k.Section, o.Section)
}

func (r Row) Key() Key {
	return Key{LRN: r.LRN, GradeLevel: r.GradeLevel, Section: r.Section, Quarter: r.Quarter}
}

// RowFilter narrows a store read. Empty fields do not filter.
type RowFilter struct {
	LRN        string
	GradeLevel string
	Section    string
}

// Rating is one SF10 subject row of a scholastic record.
type Rating struct {
	Q1      string `json:"q1"`
	Q2      string `json:"q2"`
	Q3      string `json:"q3"`
	Q4      string `json:"q4"`
	Final   string `json:"final"`
	Remarks string `json:"remarks"`
}

func (r Rating) Quarter(slot int) string {
	switch slot {
	case 0:
		return r.Q1
	case 1:
		return r.Q2
	case 2:
		return r.Q3
	case 3:
		return r.Q4
	default:
		return ""
	}
}

func (r *Rating) setQuarter(slot int, val string) {
	switch slot {
	case 0:
		r.Q1 = val
	case 1:
		r.Q2 = val
	case 2:
		r.Q3 = val
	case 3:
		r.Q4 = val
	}
}

// ScholasticRecord is the per-grade-level view of a learner's grades. It is never persisted.
type ScholasticRecord struct {
	School      string            `json:"school"`
	SchoolID    string            `json:"school_id"`
	District    string            `json:"district"`
	Division    string            `json:"division"`
	Region      string            `json:"region"`
	GradeLevel  string            `json:"grade_level"`
	Section     string            `json:"section"`
	Adviser     string            `json:"adviser"`
	SchoolYear  string            `json:"school_year"`
	Signature   string            `json:"signature"`
	Grades      map[string]Rating `json:"grades"`
	Placeholder bool              `json:"placeholder"` // no grades on record for this level
}

// School describes the school printed on every scholastic record.
type School struct {
	Name     string
	ID       string
	District string
	Division string
	Region   string
}

// Validate cleans the record identity & checks it along with every subject score.
func (r *GradeRecord) Validate(validate *validator.Validate) error {
	r.clean()
	return validate.Struct(r)
}

func (k *Key) Validate(validate *validator.Validate) error {
	k.LRN = strings.TrimSpace(k.LRN)
	k.GradeLevel = strings.TrimSpace(k.GradeLevel)
	k.Section = strings.TrimSpace(k.Section)
	k.Quarter = strings.TrimSpace(k.Quarter)
	return validate.Struct(k)
}
