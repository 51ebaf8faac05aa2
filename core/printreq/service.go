package printreq

import (
	"bytes"
	"context"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/student"
)

var (
	ErrNotFound          = errors.New("printing request not found")
	ErrOpenRequestExists = errors.New("a printing request is already open for this learner")
	ErrInvalidTransition = errors.New("this printing request cannot change to the requested status")

	decisionTemplate = "print_request_decided"

	// allowed status changes
	transitions = map[string]string{
		StatusAccepted:  StatusPending,
		StatusRejected:  StatusPending,
		StatusCompleted: StatusAccepted,
	}
)

type (
	// Printout is the printed SF10 of a completed request.
	Printout struct {
		FileName string
		Content  []byte
	}

	Repository interface {
		// CreateRequest fails with ErrOpenRequestExists when an open request exists for the same LRN.
		CreateRequest(ctx context.Context, r Request) (Request, error)
		GetRequest(ctx context.Context, id string) (Request, error)
		// QueryRequests applies AND operation on available Filter fields, most recent first.
		QueryRequests(ctx context.Context, filter Filter) ([]Request, error)
		// UpdateStatus moves a request from one status to another in one atomic step.
		// It fails with ErrInvalidTransition when the request is not in status from.
		UpdateStatus(ctx context.Context, id, from, to string, at time.Time) (Request, error)
	}

	// Students reads learners.
	Students interface {
		Get(ctx context.Context, sess core.Session, lrn string) (student.Student, error)
	}

	Service struct {
		repo     Repository
		students Students
		mailSvc  core.EmailService
		sheets   core.SpreadsheetWriter
		validate *validator.Validate
		conf     *core.Config
	}
)

func NewService(
	repo Repository,
	students Students,
	mailSvc core.EmailService,
	sheets core.SpreadsheetWriter,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		students: students,
		mailSvc:  mailSvc,
		sheets:   sheets,
		validate: validate,
		conf:     conf,
	}
}

// Create files a request for a learner of the teacher's advisory class.
func (svc *Service) Create(ctx context.Context, sess core.Session, nr NewRequest) (Request, error) {
	if !sess.IsTeacher() {
		return Request{}, core.ErrForbidden
	}
	if err := nr.Validate(svc.validate); err != nil {
		return Request{}, err
	}

	s, err := svc.students.Get(ctx, sess, nr.LRN)
	if err != nil {
		return Request{}, errors.Wrap(err, "getting student")
	}

	now := time.Now().UTC()
	r, err := svc.repo.CreateRequest(ctx, Request{
		ID:             uuid.New().String(),
		LRN:            s.LRN,
		StudentName:    s.FullName(),
		GradeLevel:     s.GradeLevel,
		Section:        s.Section,
		RequestedBy:    sess.UserID,
		RequesterName:  sess.Name,
		RequesterEmail: sess.Email,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if errors.Cause(err) == ErrOpenRequestExists {
		return Request{}, core.NewValidationError(err, core.FieldError{Field: "lrn", Error: err.Error()})
	}
	return r, errors.Wrap(err, "creating printing request")
}

// Query lists requests. Teachers only see their own.
func (svc *Service) Query(ctx context.Context, sess core.Session, filter Filter) ([]Request, error) {
	if !sess.IsAuthenticated() {
		return nil, core.ErrUnauthenticated
	}
	if err := filter.Validate(svc.validate); err != nil {
		return nil, err
	}
	if !sess.IsAdmin() {
		if !sess.IsTeacher() {
			return nil, core.ErrForbidden
		}
		filter.RequestedBy = sess.UserID
	}
	reqs, err := svc.repo.QueryRequests(ctx, filter)
	return reqs, errors.Wrap(err, "querying printing requests")
}

func (svc *Service) Get(ctx context.Context, sess core.Session, id string) (Request, error) {
	if !sess.IsAuthenticated() {
		return Request{}, core.ErrUnauthenticated
	}
	r, err := svc.repo.GetRequest(ctx, strings.TrimSpace(id))
	if err != nil {
		return Request{}, errors.Wrap(err, "getting printing request")
	}
	if !sess.IsAdmin() && r.RequestedBy != sess.UserID {
		return Request{}, core.ErrForbidden
	}
	return r, nil
}

// Accept approves a pending request & notifies the requester.
func (svc *Service) Accept(ctx context.Context, sess core.Session, id string) (Request, error) {
	r, err := svc.setStatus(ctx, sess, id, StatusAccepted)
	if err != nil {
		return Request{}, err
	}
	return r, svc.notify(r, nil)
}

// Reject turns a pending request down & notifies the requester.
func (svc *Service) Reject(ctx context.Context, sess core.Session, id string) (Request, error) {
	r, err := svc.setStatus(ctx, sess, id, StatusRejected)
	if err != nil {
		return Request{}, err
	}
	return r, svc.notify(r, nil)
}

// Complete marks an accepted request as printed & mails the printout to the requester.
func (svc *Service) Complete(ctx context.Context, sess core.Session, id string, sf10 Printout) (Request, error) {
	r, err := svc.setStatus(ctx, sess, id, StatusCompleted)
	if err != nil {
		return Request{}, err
	}
	return r, svc.notify(r, &sf10)
}

func (svc *Service) setStatus(ctx context.Context, sess core.Session, id, status string) (Request, error) {
	if !sess.IsAdmin() {
		return Request{}, core.ErrForbidden
	}
	r, err := svc.repo.UpdateStatus(ctx, strings.TrimSpace(id), transitions[status], status, time.Now().UTC())
	if errors.Cause(err) == ErrInvalidTransition {
		return Request{}, core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
	}
	return r, errors.Wrap(err, "updating printing request status")
}

func (svc *Service) notify(r Request, sf10 *Printout) error {
	if r.RequesterEmail == "" {
		return nil
	}
	msg := &core.EmailMessage{
		To:              []mail.Address{{Name: r.RequesterName, Address: r.RequesterEmail}},
		Subject:         "SF10 printing request " + r.Status,
		TemplateName:    decisionTemplate,
		FrontendBaseURL: svc.conf.FrontendBaseURL,
		TemplateData: map[string]string{
			"StudentName": r.StudentName,
			"LRN":         r.LRN,
			"Status":      r.Status,
		},
	}
	if sf10 != nil && len(sf10.Content) > 0 {
		if err := msg.Attach(bytes.NewReader(sf10.Content), sf10.FileName, "application/pdf"); err != nil {
			return errors.Wrap(err, "attaching SF10")
		}
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

// Export writes the filtered requests as a workbook with a "Requests" sheet.
func (svc *Service) Export(ctx context.Context, sess core.Session, filter Filter, w io.Writer) error {
	reqs, err := svc.Query(ctx, sess, filter)
	if err != nil {
		return err
	}
	sheet := core.Sheet{
		Name:   "Requests",
		Header: []string{"ID", "LRN", "Student Name", "Grade Level", "Section", "Requested By", "Email", "Created At", "Status"},
		Rows:   make([][]string, 0, len(reqs)),
	}
	for _, r := range reqs {
		sheet.Rows = append(sheet.Rows, []string{
			r.ID,
			r.LRN,
			r.StudentName,
			r.GradeLevel,
			r.Section,
			r.RequesterName,
			r.RequesterEmail,
			r.CreatedAt.Format("01/02/2006"),
			core.Title(r.Status),
		})
	}
	return errors.Wrap(svc.sheets.WriteSheets(w, sheet), "writing requests workbook")
}
