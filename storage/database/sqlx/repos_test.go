package sqlxrepos

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/grade"
	"github.com/schoolrecords/sf10/core/printreq"
	"github.com/schoolrecords/sf10/core/student"
	"github.com/schoolrecords/sf10/core/user"
	"github.com/schoolrecords/sf10/storage/database"
)

// prepareDB needs a running PostgreSQL: TEST_DATABASE_HOST=localhost go test ./storage/database/sqlx
func prepareDB(t *testing.T) *sqlx.DB {
	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine:        "postgres",
		Host:          host,
		Port:          "5432",
		Name:          "sf10_test",
		User:          "sf10_test",
		Password:      "sf10_test",
		AdminUser:     os.Getenv("TEST_DATABASE_ADMIN_USER"),
		AdminPassword: os.Getenv("TEST_DATABASE_ADMIN_PASSWORD"),
		DisableTLS:    true,
	}}
	require.NoError(t, database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db.DB, nil))
	_, err = db.Exec("TRUNCATE print_requests, grade_records, students, users")
	require.NoError(t, err)
	return db
}

func gradeRow(key grade.Key, adviser string, at time.Time) grade.Row {
	return grade.Row{
		ID:         uuid.New().String(),
		LRN:        key.LRN,
		GradeLevel: key.GradeLevel,
		Section:    key.Section,
		Quarter:    key.Quarter,
		Adviser:    adviser,
		Math:       "sealed-" + adviser,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

func TestGradeRepository(t *testing.T) {
	db := prepareDB(t)
	repo := NewGradeRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	key := grade.Key{LRN: "136428170048", GradeLevel: grade.Grade1, Section: "Sampaguita", Quarter: grade.Quarter1}

	first, err := repo.UpsertRow(ctx, gradeRow(key, "Ms. Reyes", now))
	require.NoError(t, err)

	// same key: overwritten in place
	second, err := repo.UpsertRow(ctx, gradeRow(key, "Mr. Cruz", now.Add(time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Mr. Cruz", second.Adviser)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	rows, err := repo.QueryRows(ctx, grade.RowFilter{LRN: key.LRN})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "sealed-Mr. Cruz", rows[0].Math)

	t.Run("concurrent upserts keep one row", func(t *testing.T) {
		k := key
		k.Quarter = grade.Quarter2
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.UpsertRow(ctx, gradeRow(k, "Ms. Reyes", now))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		rows, err := repo.QueryRows(ctx, grade.RowFilter{LRN: k.LRN, GradeLevel: k.GradeLevel})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("update by id", func(t *testing.T) {
		row := second
		row.Math = "resealed"
		updated, err := repo.UpdateRow(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, "resealed", updated.Math)

		row.Quarter = grade.Quarter3
		_, err = repo.UpdateRow(ctx, row)
		assert.Equal(t, grade.ErrNotFound, err, "key cannot change")

		_, err = repo.GetRow(ctx, "not-a-uuid")
		assert.Equal(t, grade.ErrNotFound, err)
	})

	t.Run("sections match case-insensitively", func(t *testing.T) {
		k := key
		k.Section = "SAMPAGUITA"
		upper, err := repo.UpsertRow(ctx, gradeRow(k, "Ms. Reyes", now))
		require.NoError(t, err)
		assert.Equal(t, first.ID, upper.ID)
		assert.Equal(t, "Sampaguita", upper.Section, "first spelling is kept")

		rows, err := repo.QueryRows(ctx, grade.RowFilter{LRN: key.LRN, Section: "sampaguita", GradeLevel: key.GradeLevel})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("delete", func(t *testing.T) {
		lower := key
		lower.Section = "sampaguita"
		require.NoError(t, repo.DeleteRow(ctx, lower))
		assert.Equal(t, grade.ErrNotFound, repo.DeleteRow(ctx, key))
	})
}

func TestStudentRepository(t *testing.T) {
	db := prepareDB(t)
	repo := NewStudentRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	juan := student.Student{
		LRN: "136428170048", LastName: "Santos", FirstName: "Juan", Sex: student.SexMale,
		GradeLevel: grade.Grade1, Section: "Sampaguita", CreatedAt: now, UpdatedAt: now,
	}
	maria := student.Student{
		LRN: "136428170049", LastName: "Reyes", FirstName: "Maria", Sex: student.SexFemale,
		GradeLevel: grade.Grade1, Section: "Rosal", CreatedAt: now, UpdatedAt: now,
	}
	for _, s := range []student.Student{juan, maria} {
		_, err := repo.SaveStudent(ctx, s)
		require.NoError(t, err)
	}

	juan.Remark = "transferred in"
	saved, err := repo.SaveStudent(ctx, juan)
	require.NoError(t, err)
	assert.Equal(t, "transferred in", saved.Remark)

	tests := []struct {
		name   string
		filter student.Filter
		want   []string
	}{
		{name: "all", want: []string{"136428170049", "136428170048"}},
		{name: "section (any case)", filter: student.Filter{Section: "sampaguita"}, want: []string{"136428170048"}},
		{name: "search", filter: student.Filter{Search: "mar"}, want: []string{"136428170049"}},
		{name: "search lrn", filter: student.Filter{Search: "0048"}, want: []string{"136428170048"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students, err := repo.QueryStudents(ctx, tt.filter)
			require.NoError(t, err)
			lrns := make([]string, len(students))
			for i, s := range students {
				lrns[i] = s.LRN
			}
			assert.Equal(t, tt.want, lrns)
		})
	}

	_, err = repo.GetStudent(ctx, "000000000000")
	assert.Equal(t, student.ErrNotFound, err)
}

func TestUserAndPrintRequestRepositories(t *testing.T) {
	db := prepareDB(t)
	usrRepo := NewUserRepository(db)
	reqRepo := NewPrintRequestRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	teacher := user.User{
		ID: uuid.New().String(), Name: "Ms. Reyes", Username: "mreyes", Email: "mreyes@school.test",
		IsActive: true, Roles: []string{user.RoleTeacher}, GradeLevel: grade.Grade1, Section: "Sampaguita",
		PasswordHash: []byte("hash"), CreatedAt: now, UpdatedAt: now,
	}
	_, err := usrRepo.CreateUser(ctx, teacher)
	require.NoError(t, err)

	assert.Equal(t, user.ErrUsernameExists, usrRepo.CheckUsernameUniqueness(ctx, "mreyes", ""))
	assert.Equal(t, user.ErrEmailExists, usrRepo.CheckUsernameUniqueness(ctx, "other", "mreyes@school.test"))
	assert.NoError(t, usrRepo.CheckUsernameUniqueness(ctx, "other", ""))

	got, err := usrRepo.GetUserByUsernameOrEmail(ctx, "mreyes@school.test")
	require.NoError(t, err)
	assert.Equal(t, []string{user.RoleTeacher}, got.Roles)

	teachers, err := usrRepo.QueryUsers(ctx, user.QueryFilter{Role: user.RoleTeacher})
	require.NoError(t, err)
	assert.Len(t, teachers, 1)

	blocked, err := usrRepo.SetActive(ctx, teacher.ID, false, now)
	require.NoError(t, err)
	assert.False(t, blocked.IsActive)

	req := printreq.Request{
		ID: uuid.New().String(), LRN: "136428170048", StudentName: "Santos, Juan",
		GradeLevel: grade.Grade1, Section: "Sampaguita", RequestedBy: teacher.ID,
		Status: printreq.StatusPending, CreatedAt: now, UpdatedAt: now,
	}
	_, err = reqRepo.CreateRequest(ctx, req)
	require.NoError(t, err)

	dup := req
	dup.ID = uuid.New().String()
	_, err = reqRepo.CreateRequest(ctx, dup)
	assert.Equal(t, printreq.ErrOpenRequestExists, err)

	_, err = reqRepo.UpdateStatus(ctx, req.ID, printreq.StatusAccepted, printreq.StatusCompleted, now)
	assert.Equal(t, printreq.ErrInvalidTransition, err)

	rejected, err := reqRepo.UpdateStatus(ctx, req.ID, printreq.StatusPending, printreq.StatusRejected, now)
	require.NoError(t, err)
	assert.Equal(t, printreq.StatusRejected, rejected.Status)

	// closed: a new request is allowed
	_, err = reqRepo.CreateRequest(ctx, dup)
	require.NoError(t, err)

	_, err = reqRepo.UpdateStatus(ctx, uuid.New().String(), printreq.StatusPending, printreq.StatusAccepted, now)
	assert.Equal(t, printreq.ErrNotFound, err)

	open, err := reqRepo.QueryRequests(ctx, printreq.Filter{Status: printreq.StatusPending, Search: "santos"})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, dup.ID, open[0].ID)
}
