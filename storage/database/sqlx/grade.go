package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core/grade"
)

var (
	gradeKeyColumns  = []string{"lrn", "grade_level", "section", "quarter"}
	gradeDataColumns = func() []string {
		cols := []string{"adviser", "school_year"}
		for _, subj := range grade.Subjects {
			cols = append(cols, subj.Column)
		}
		return append(cols, "average")
	}()
	gradeColumns = append(append(append([]string{"id"}, gradeKeyColumns...), gradeDataColumns...), "created_at", "updated_at")

	// ON CONFLICT makes the insert-or-update one atomic statement: concurrent saves of the
	// same key never create two rows, the last one wins.
	upsertGradeQuery = `INSERT INTO grade_records (` + strings.Join(gradeColumns, ", ") + `)
VALUES (` + namedParams(gradeColumns) + `)
ON CONFLICT (lrn, grade_level, lower(section), quarter) DO UPDATE SET ` + excludedSet(gradeDataColumns) + `, updated_at = EXCLUDED.updated_at
RETURNING *`

	updateGradeQuery = `UPDATE grade_records SET ` + namedSet(gradeDataColumns) + `, updated_at = :updated_at
WHERE id = :id AND lrn = :lrn AND grade_level = :grade_level AND lower(section) = lower(:section) AND quarter = :quarter
RETURNING *`
)

func namedParams(cols []string) string {
	params := make([]string, len(cols))
	for i, c := range cols {
		params[i] = ":" + c
	}
	return strings.Join(params, ", ")
}

func namedSet(cols []string) string {
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = c + " = :" + c
	}
	return strings.Join(set, ", ")
}

func excludedSet(cols []string) string {
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = c + " = EXCLUDED." + c
	}
	return strings.Join(set, ", ")
}

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) QueryRows(ctx context.Context, filter grade.RowFilter) ([]grade.Row, error) {
	where := newConditions()
	where.addEq("lrn", filter.LRN)
	where.addEq("grade_level", filter.GradeLevel)
	if filter.Section != "" {
		where.add("lower(section) = lower(?)", filter.Section)
	}

	q := "SELECT * FROM grade_records" + where.String() + " ORDER BY grade_level, quarter, created_at, id"
	rows := make([]grade.Row, 0)
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting grade records")
	}
	return rows, nil
}

func (repo *gradeRepository) GetRow(ctx context.Context, id string) (grade.Row, error) {
	var row grade.Row
	err := repo.db.GetContext(ctx, &row, "SELECT * FROM grade_records WHERE id = $1", id)
	if err == sql.ErrNoRows || isInvalidUUID(err) {
		return grade.Row{}, grade.ErrNotFound
	}
	return row, errors.Wrap(err, "getting grade record")
}

func (repo *gradeRepository) UpsertRow(ctx context.Context, row grade.Row) (grade.Row, error) {
	return repo.namedGet(ctx, upsertGradeQuery, row)
}

// UpdateRow never moves a row to another key.
func (repo *gradeRepository) UpdateRow(ctx context.Context, row grade.Row) (grade.Row, error) {
	return repo.namedGet(ctx, updateGradeQuery, row)
}

func (repo *gradeRepository) namedGet(ctx context.Context, query string, row grade.Row) (grade.Row, error) {
	rows, err := repo.db.NamedQueryContext(ctx, query, row)
	if err != nil {
		return grade.Row{}, errors.Wrap(err, "saving grade record")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return grade.Row{}, errors.Wrap(err, "saving grade record")
		}
		return grade.Row{}, grade.ErrNotFound
	}
	var saved grade.Row
	if err = rows.StructScan(&saved); err != nil {
		return grade.Row{}, errors.Wrap(err, "scanning grade record")
	}
	return saved, nil
}

func (repo *gradeRepository) DeleteRow(ctx context.Context, key grade.Key) error {
	res, err := repo.db.ExecContext(ctx,
		"DELETE FROM grade_records WHERE lrn = $1 AND grade_level = $2 AND lower(section) = lower($3) AND quarter = $4",
		key.LRN, key.GradeLevel, key.Section, key.Quarter,
	)
	if err != nil {
		return errors.Wrap(err, "deleting grade record")
	}
	return checkAffected(res, grade.ErrNotFound)
}
