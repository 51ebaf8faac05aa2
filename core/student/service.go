package student

import (
	"context"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core"
)

var ErrNotFound = errors.New("student not found")

type (
	Repository interface {
		// QueryStudents applies AND operation on available Filter fields, ordered by last & first name.
		QueryStudents(ctx context.Context, filter Filter) ([]Student, error)
		GetStudent(ctx context.Context, lrn string) (Student, error)
		// SaveStudent inserts the student or overwrites the one holding the same LRN.
		SaveStudent(ctx context.Context, s Student) (Student, error)
	}

	Service struct {
		repo     Repository
		sheets   core.SpreadsheetWriter
		validate *validator.Validate
	}
)

func NewService(repo Repository, sheets core.SpreadsheetWriter, validate *validator.Validate) *Service {
	return &Service{repo: repo, sheets: sheets, validate: validate}
}

// Query lists learners. Teachers only see their advisory class.
func (svc *Service) Query(ctx context.Context, sess core.Session, filter Filter) ([]Student, error) {
	if !sess.IsAuthenticated() {
		return nil, core.ErrUnauthenticated
	}
	filter.Search = core.CleanString(filter.Search, true /* lower */)
	if !sess.IsAdmin() {
		if !sess.IsTeacher() {
			return nil, core.ErrForbidden
		}
		filter.GradeLevel = sess.GradeLevel
		filter.Section = sess.Section
	}
	students, err := svc.repo.QueryStudents(ctx, filter)
	return students, errors.Wrap(err, "querying students")
}

// Get returns one learner. Teachers may only read learners of their advisory class.
func (svc *Service) Get(ctx context.Context, sess core.Session, lrn string) (Student, error) {
	if !sess.IsAuthenticated() {
		return Student{}, core.ErrUnauthenticated
	}
	s, err := svc.repo.GetStudent(ctx, core.CleanString(lrn))
	if err != nil {
		return Student{}, errors.Wrap(err, "getting student")
	}
	if !sess.IsAdmin() && !sess.Advises(s.GradeLevel, s.Section) {
		return Student{}, core.ErrForbidden
	}
	return s, nil
}

// Save creates or updates a learner. Admins only.
func (svc *Service) Save(ctx context.Context, sess core.Session, s Student) (Student, error) {
	if !sess.IsAdmin() {
		return Student{}, core.ErrForbidden
	}
	if err := s.Validate(svc.validate); err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	if existing, err := svc.repo.GetStudent(ctx, s.LRN); err == nil {
		s.CreatedAt = existing.CreatedAt
	} else if errors.Cause(err) == ErrNotFound {
		s.CreatedAt = now
	} else {
		return Student{}, errors.Wrap(err, "getting student")
	}
	s.UpdatedAt = now

	saved, err := svc.repo.SaveStudent(ctx, s)
	return saved, errors.Wrap(err, "saving student")
}

// Export writes the learners matching filter as a workbook with a "Students" sheet.
func (svc *Service) Export(ctx context.Context, sess core.Session, filter Filter, w io.Writer) error {
	students, err := svc.Query(ctx, sess, filter)
	if err != nil {
		return err
	}
	sheet := core.Sheet{
		Name:   "Students",
		Header: []string{"LRN", "Last Name", "First Name", "Middle Name", "Birthdate", "Sex", "Grade Level", "Section"},
		Rows:   make([][]string, 0, len(students)),
	}
	for _, s := range students {
		var birthdate string
		if s.Birthdate.Valid {
			birthdate = s.Birthdate.Time.Format("2006-01-02")
		}
		sheet.Rows = append(sheet.Rows, []string{
			s.LRN, s.LastName, s.FirstName, s.MiddleName, birthdate, s.Sex, s.GradeLevel, s.Section,
		})
	}
	return errors.Wrap(svc.sheets.WriteSheets(w, sheet), "writing students workbook")
}
