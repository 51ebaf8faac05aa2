package report

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/grade"
	"github.com/schoolrecords/sf10/core/student"
)

var ErrInProgress = errors.New("an SF10 is already being generated for this learner")

type (
	// Guard allows one run at a time per key.
	Guard interface {
		// Acquire returns false when key is already held.
		Acquire(ctx context.Context, key string) (bool, error)
		Release(ctx context.Context, key string) error
	}

	// Students reads learners.
	Students interface {
		Get(ctx context.Context, sess core.Session, lrn string) (student.Student, error)
	}

	// Records reads the aggregated scholastic records of a learner.
	Records interface {
		Records(ctx context.Context, sess core.Session, lrn string) ([]grade.ScholasticRecord, error)
	}

	// SF10 is a generated permanent record.
	SF10 struct {
		FileName string
		Content  []byte
	}

	Service struct {
		students Students
		records  Records
		exporter *Exporter
		guard    Guard
		school   School
		format   PageFormat
		logger   core.Logger
	}
)

var nowFunc = time.Now

func NewService(
	students Students,
	records Records,
	exporter *Exporter,
	guard Guard,
	school School,
	format PageFormat,
	logger core.Logger,
) *Service {
	return &Service{
		students: students,
		records:  records,
		exporter: exporter,
		guard:    guard,
		school:   school,
		format:   format,
		logger:   logger,
	}
}

// FileName is the download name of the SF10 of a learner.
func FileName(s student.Student) string {
	return "SF10-ES_" + s.LastName + "_" + s.FirstName + ".pdf"
}

// Generate renders the SF10-ES of a learner as a PDF. Admins only.
// A second call for the same learner fails with ErrInProgress until the first one returns.
func (svc *Service) Generate(ctx context.Context, sess core.Session, lrn string) (SF10, error) {
	if !sess.IsAuthenticated() {
		return SF10{}, core.ErrUnauthenticated
	}
	if !sess.IsAdmin() {
		return SF10{}, core.ErrForbidden
	}
	lrn = core.CleanString(lrn)

	key := "sf10:" + lrn
	ok, err := svc.guard.Acquire(ctx, key)
	if err != nil {
		return SF10{}, errors.Wrap(err, "acquiring render guard")
	}
	if !ok {
		return SF10{}, ErrInProgress
	}
	defer func() {
		// the request context may be done already
		if err := svc.guard.Release(context.Background(), key); err != nil {
			svc.logger.Error("report.Generate: releasing render guard", err, sess)
		}
	}()

	s, err := svc.students.Get(ctx, sess, lrn)
	if err != nil {
		return SF10{}, errors.Wrap(err, "getting student")
	}
	recs, err := svc.records.Records(ctx, sess, lrn)
	if err != nil {
		return SF10{}, errors.Wrap(err, "getting scholastic records")
	}

	form := NewForm(s, recs, svc.school, nowFunc())
	content, err := svc.exporter.Export(ctx, Layout(form, svc.format))
	if err != nil {
		return SF10{}, errors.Wrap(err, "exporting SF10")
	}
	return SF10{FileName: FileName(s), Content: content}, nil
}
