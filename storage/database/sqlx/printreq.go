package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core/printreq"
)

var (
	printRequestColumns = []string{
		"id", "lrn", "student_name", "grade_level", "section", "requested_by",
		"requester_name", "requester_email", "status", "created_at", "updated_at",
	}

	createPrintRequestQuery = `INSERT INTO print_requests (` + strings.Join(printRequestColumns, ", ") + `)
VALUES (` + namedParams(printRequestColumns) + `)`
)

type printRequestRepository struct {
	db *sqlx.DB
}

var _ printreq.Repository = (*printRequestRepository)(nil) // interface compliance check

func NewPrintRequestRepository(db *sqlx.DB) printreq.Repository {
	return &printRequestRepository{db: db}
}

// CreateRequest relies on the partial unique index on open requests.
func (repo *printRequestRepository) CreateRequest(ctx context.Context, r printreq.Request) (printreq.Request, error) {
	if _, err := repo.db.NamedExecContext(ctx, createPrintRequestQuery, r); err != nil {
		if isUniqueViolation(err, uniqueOpenRequestIdx) {
			return printreq.Request{}, printreq.ErrOpenRequestExists
		}
		return printreq.Request{}, errors.Wrap(err, "inserting printing request")
	}
	return r, nil
}

func (repo *printRequestRepository) GetRequest(ctx context.Context, id string) (printreq.Request, error) {
	var r printreq.Request
	err := repo.db.GetContext(ctx, &r, "SELECT * FROM print_requests WHERE id = $1", id)
	if err == sql.ErrNoRows || isInvalidUUID(err) {
		return printreq.Request{}, printreq.ErrNotFound
	}
	return r, errors.Wrap(err, "getting printing request")
}

func (repo *printRequestRepository) QueryRequests(ctx context.Context, filter printreq.Filter) ([]printreq.Request, error) {
	where := newConditions()
	where.addEq("status", filter.Status)
	where.addEq("lrn", filter.LRN)
	where.addEq("requested_by", filter.RequestedBy)
	if filter.Search != "" {
		where.add("student_name ILIKE ?", likePattern(filter.Search))
	}

	q := "SELECT * FROM print_requests" + where.String() + " ORDER BY created_at DESC, id"
	reqs := make([]printreq.Request, 0)
	if err := repo.db.SelectContext(ctx, &reqs, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting printing requests")
	}
	return reqs, nil
}

// UpdateStatus is a compare-and-set on the status column.
func (repo *printRequestRepository) UpdateStatus(ctx context.Context, id, from, to string, at time.Time) (printreq.Request, error) {
	var r printreq.Request
	err := repo.db.GetContext(ctx, &r,
		"UPDATE print_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4 RETURNING *",
		to, at, id, from,
	)
	switch {
	case err == nil:
		return r, nil
	case isInvalidUUID(err):
		return printreq.Request{}, printreq.ErrNotFound
	case err != sql.ErrNoRows:
		return printreq.Request{}, errors.Wrap(err, "updating printing request")
	}

	// nothing updated: unknown request or wrong status
	if _, err = repo.GetRequest(ctx, id); err != nil {
		return printreq.Request{}, err
	}
	return printreq.Request{}, printreq.ErrInvalidTransition
}
