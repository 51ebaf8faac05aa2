package grade

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("grade record not found")

// Repository persists sealed grade rows.
type Repository interface {
	// QueryRows returns the rows matching every non-empty field of filter,
	// ordered by grade level, quarter & creation time.
	QueryRows(ctx context.Context, filter RowFilter) ([]Row, error)
	GetRow(ctx context.Context, id string) (Row, error)
	// UpsertRow inserts row, or overwrites the row holding the same
	// (lrn, grade_level, section, quarter) in one atomic statement. Last write wins.
	// Sections match case-insensitively; the first spelling stored is kept.
	UpsertRow(ctx context.Context, row Row) (Row, error)
	// UpdateRow overwrites the row with the same id and key, ErrNotFound otherwise.
	UpdateRow(ctx context.Context, row Row) (Row, error)
	DeleteRow(ctx context.Context, key Key) error
}
