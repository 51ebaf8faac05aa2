package printreq

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/schoolrecords/sf10/core"
)

// Statuses
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

var Statuses = []string{StatusPending, StatusAccepted, StatusRejected, StatusCompleted}

// Request asks the registrar to print the SF10 of a learner.
type Request struct {
	ID             string    `json:"id" db:"id"`
	LRN            string    `json:"lrn" db:"lrn"`
	StudentName    string    `json:"student_name" db:"student_name"`
	GradeLevel     string    `json:"grade_level" db:"grade_level"`
	Section        string    `json:"section" db:"section"`
	RequestedBy    string    `json:"requested_by" db:"requested_by"`
	RequesterName  string    `json:"requester_name" db:"requester_name"`
	RequesterEmail string    `json:"requester_email" db:"requester_email"`
	Status         string    `json:"status" db:"status"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// IsOpen reports whether the request still awaits a decision or its printout.
func (r Request) IsOpen() bool {
	return r.Status == StatusPending || r.Status == StatusAccepted
}

type NewRequest struct {
	LRN string `json:"lrn" validate:"required,lrn"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.LRN = core.CleanString(nr.LRN)
	return validate.Struct(nr)
}

// Filter narrows a request query. Empty fields do not filter.
// Search does a case-insensitive match on the student name.
type Filter struct {
	Status      string `query:"status" validate:"omitempty,oneof=pending accepted rejected completed"`
	Search      string `query:"search"`
	LRN         string `query:"lrn"`
	RequestedBy string `query:"-"`
}

func (f *Filter) Validate(validate *validator.Validate) error {
	f.Status = core.CleanString(f.Status, true /* lower */)
	f.Search = core.CleanString(f.Search, true /* lower */)
	f.LRN = core.CleanString(f.LRN)
	return validate.Struct(f)
}
