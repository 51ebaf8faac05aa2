package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core/student"
)

var (
	studentColumns = []string{
		"lrn", "last_name", "first_name", "middle_name", "name_extension", "birthdate", "sex",
		"grade_level", "section", "kinder_progress_report", "eccd_checklist", "kindergarten_certificate",
		"pept_passer", "pept_rating", "exam_date", "other_credential", "kinder_school", "kinder_school_id",
		"kinder_school_address", "testing_center", "remark", "created_at", "updated_at",
	}

	saveStudentQuery = `INSERT INTO students (` + strings.Join(studentColumns, ", ") + `)
VALUES (` + namedParams(studentColumns) + `)
ON CONFLICT (lrn) DO UPDATE SET ` + excludedSet(studentColumns[1:len(studentColumns)-2]) + `, updated_at = EXCLUDED.updated_at
RETURNING *`
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.Filter) ([]student.Student, error) {
	where := newConditions()
	where.addEq("grade_level", filter.GradeLevel)
	if filter.Section != "" {
		where.add("lower(section) = lower(?)", filter.Section)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where.add("(lrn ILIKE ? OR last_name ILIKE ? OR first_name ILIKE ? OR middle_name ILIKE ?)",
			pattern, pattern, pattern, pattern)
	}

	q := "SELECT * FROM students" + where.String() + " ORDER BY last_name, first_name, lrn"
	students := make([]student.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return students, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, lrn string) (student.Student, error) {
	var s student.Student
	err := repo.db.GetContext(ctx, &s, "SELECT * FROM students WHERE lrn = $1", lrn)
	if err == sql.ErrNoRows {
		return student.Student{}, student.ErrNotFound
	}
	return s, errors.Wrap(err, "getting student")
}

func (repo *studentRepository) SaveStudent(ctx context.Context, s student.Student) (student.Student, error) {
	rows, err := repo.db.NamedQueryContext(ctx, saveStudentQuery, s)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "saving student")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return student.Student{}, errors.Wrap(err, "saving student")
		}
		return student.Student{}, errors.New("saving student: no row returned")
	}
	var saved student.Student
	return saved, errors.Wrap(rows.StructScan(&saved), "scanning student")
}
