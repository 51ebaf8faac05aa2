package grade

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/codec"
)

var errKeyChanged = errors.New("the learner, grade level, section and quarter of a record cannot be changed")

type Service struct {
	repo     Repository
	codec    codec.Codec
	validate *validator.Validate
	school   School
}

func NewService(repo Repository, cdc codec.Codec, validate *validator.Validate, school School) *Service {
	return &Service{
		repo:     repo,
		codec:    cdc,
		validate: validate,
		school:   school,
	}
}

// authorize lets admins through, and teachers for their own advisory class only.
func authorize(sess core.Session, gradeLevel, section string) error {
	if !sess.IsAuthenticated() {
		return core.ErrUnauthenticated
	}
	if sess.IsAdmin() || sess.Advises(gradeLevel, section) {
		return nil
	}
	return core.ErrForbidden
}

// Save validates & stores one quarter of grades, then returns the fresh scholastic records
// of the learner. The average is always recomputed; a submitted one is ignored.
// A record with an ID is updated in place, any other record is upserted on its key.
func (svc *Service) Save(ctx context.Context, sess core.Session, rec GradeRecord) ([]ScholasticRecord, error) {
	if !sess.IsAuthenticated() {
		return nil, core.ErrUnauthenticated
	}
	if err := rec.Validate(svc.validate); err != nil {
		return nil, err
	}
	if err := authorize(sess, rec.GradeLevel, rec.Section); err != nil {
		return nil, err
	}
	if !sess.IsAdmin() {
		rec.Section = sess.Section
	}

	rec.Average = ComputeAverage(rec.Scores)
	if rec.Adviser == "" && sess.IsTeacher() {
		rec.Adviser = sess.Name
	}

	row, err := svc.seal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "sealing grade record")
	}

	now := time.Now().UTC()
	row.UpdatedAt = now
	if rec.ID != "" {
		existing, err := svc.repo.GetRow(ctx, rec.ID)
		if err != nil {
			return nil, errors.Wrap(err, "getting grade row")
		}
		if !existing.Key().Same(row.Key()) {
			return nil, core.NewValidationError(errKeyChanged)
		}
		row.CreatedAt = existing.CreatedAt
		if _, err = svc.repo.UpdateRow(ctx, row); err != nil {
			return nil, errors.Wrap(err, "updating grade row")
		}
	} else {
		row.ID = uuid.New().String()
		row.CreatedAt = now
		if _, err = svc.repo.UpsertRow(ctx, row); err != nil {
			return nil, errors.Wrap(err, "upserting grade row")
		}
	}

	return svc.Records(ctx, sess, rec.LRN)
}

// Delete removes the record identified by key.
func (svc *Service) Delete(ctx context.Context, sess core.Session, key Key) error {
	if err := key.Validate(svc.validate); err != nil {
		return err
	}
	if err := authorize(sess, key.GradeLevel, key.Section); err != nil {
		return err
	}
	if !sess.IsAdmin() {
		key.Section = sess.Section
	}
	return errors.Wrap(svc.repo.DeleteRow(ctx, key), "deleting grade row")
}

// Quarters returns the decrypted quarter records of a learner for one grade level.
// Teachers only get the records of their own advisory class.
func (svc *Service) Quarters(ctx context.Context, sess core.Session, lrn, gradeLevel string) ([]GradeRecord, error) {
	filter := RowFilter{LRN: strings.TrimSpace(lrn), GradeLevel: strings.TrimSpace(gradeLevel)}
	if !sess.IsAdmin() {
		if err := authorize(sess, filter.GradeLevel, sess.Section); err != nil {
			return nil, err
		}
		filter.Section = sess.Section
	}

	rows, err := svc.repo.QueryRows(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying grade rows")
	}
	return svc.openAll(rows), nil
}

// Records returns the six scholastic records of a learner, Grade 1 to Grade 6.
// Teachers only see the grades entered for their own advisory class.
func (svc *Service) Records(ctx context.Context, sess core.Session, lrn string) ([]ScholasticRecord, error) {
	if !sess.IsAuthenticated() {
		return nil, core.ErrUnauthenticated
	}
	filter := RowFilter{LRN: strings.TrimSpace(lrn)}
	if !sess.IsAdmin() {
		if !sess.IsTeacher() {
			return nil, core.ErrForbidden
		}
		filter.GradeLevel = sess.GradeLevel
		filter.Section = sess.Section
	}

	rows, err := svc.repo.QueryRows(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying grade rows")
	}
	return Aggregate(svc.openAll(rows), svc.school), nil
}

// seal encrypts every score of rec.
func (svc *Service) seal(rec GradeRecord) (Row, error) {
	row := Row{
		ID:         rec.ID,
		LRN:        rec.LRN,
		GradeLevel: rec.GradeLevel,
		Section:    rec.Section,
		Quarter:    rec.Quarter,
		Adviser:    rec.Adviser,
		SchoolYear: rec.SchoolYear,
	}
	for _, sub := range Subjects {
		sealed, err := svc.codec.Encrypt(formatScore(rec.Get(sub.Column)))
		if err != nil {
			return Row{}, errors.Wrap(err, sub.Column)
		}
		*row.Cipher(sub.Column) = sealed
	}
	sealed, err := svc.codec.Encrypt(formatScore(rec.Average))
	if err != nil {
		return Row{}, errors.Wrap(err, "average")
	}
	row.Average = sealed
	return row, nil
}

// open decrypts row. Unreadable scores come out absent.
func (svc *Service) open(row Row) GradeRecord {
	rec := GradeRecord{
		ID:         row.ID,
		LRN:        row.LRN,
		GradeLevel: row.GradeLevel,
		Section:    row.Section,
		Quarter:    row.Quarter,
		Adviser:    row.Adviser,
		SchoolYear: row.SchoolYear,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	for _, sub := range Subjects {
		*rec.Field(sub.Column) = parseScore(svc.codec.Decrypt(*row.Cipher(sub.Column)))
	}
	rec.Average = parseScore(svc.codec.Decrypt(row.Average))
	return rec
}

func (svc *Service) openAll(rows []Row) []GradeRecord {
	recs := make([]GradeRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, svc.open(row))
	}
	return recs
}
