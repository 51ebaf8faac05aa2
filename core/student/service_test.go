package student_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/grade"
	"github.com/schoolrecords/sf10/core/student"
	"github.com/schoolrecords/sf10/core/user"
	"github.com/schoolrecords/sf10/storage/database/dummy"
	"github.com/schoolrecords/sf10/tests"
)

var (
	ctx = context.Background()

	adminSess   = core.Session{UserID: "1", Name: "Admin", Roles: []string{user.RoleAdmin}}
	adviserSess = core.Session{UserID: "2", Name: "Ms. Reyes", Roles: []string{user.RoleTeacher}, GradeLevel: grade.Grade1, Section: "Sampaguita"}
	anonSess    = core.Session{}

	juan  = student.Student{LRN: "136428170048", LastName: "Santos", FirstName: "Juan", Sex: student.SexMale, GradeLevel: grade.Grade1, Section: "Sampaguita"}
	maria = student.Student{LRN: "136428170049", LastName: "Reyes", FirstName: "Maria", Sex: student.SexFemale, GradeLevel: grade.Grade1, Section: "Rosal"}
	pedro = student.Student{LRN: "136428170050", LastName: "Bautista", FirstName: "Pedro", Sex: student.SexMale, GradeLevel: grade.Grade2, Section: "Sampaguita"}
)

func setup(t *testing.T) (*student.Service, *testutil.SheetWriterMock) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewStudentRepository(db)
	for _, s := range []student.Student{juan, maria, pedro} {
		_, err = repo.SaveStudent(ctx, s)
		require.NoError(t, err)
	}
	sheets := new(testutil.SheetWriterMock)
	validate, _ := testutil.NewValidator()
	return student.NewService(repo, sheets, validate), sheets
}

func lrns(students []student.Student) []string {
	res := make([]string, len(students))
	for i, s := range students {
		res[i] = s.LRN
	}
	return res
}

func TestService_Query(t *testing.T) {
	svc, _ := setup(t)

	tests := []struct {
		name    string
		sess    core.Session
		filter  student.Filter
		want    []string
		wantErr error
	}{
		{name: "anonymous", sess: anonSess, wantErr: core.ErrUnauthenticated},
		{name: "no role", sess: core.Session{UserID: "3"}, wantErr: core.ErrForbidden},
		{name: "admin: all", sess: adminSess, want: []string{pedro.LRN, maria.LRN, juan.LRN}},
		{name: "admin: grade level", sess: adminSess, filter: student.Filter{GradeLevel: grade.Grade1}, want: []string{maria.LRN, juan.LRN}},
		{name: "admin: section", sess: adminSess, filter: student.Filter{Section: "Sampaguita"}, want: []string{pedro.LRN, juan.LRN}},
		{name: "admin: search name", sess: adminSess, filter: student.Filter{Search: " MARIA "}, want: []string{maria.LRN}},
		{name: "admin: search lrn", sess: adminSess, filter: student.Filter{Search: "170050"}, want: []string{pedro.LRN}},
		{name: "adviser: own class only", sess: adviserSess, filter: student.Filter{GradeLevel: grade.Grade2}, want: []string{juan.LRN}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Query(ctx, tt.sess, tt.filter)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, lrns(got))
		})
	}
}

func TestService_Get(t *testing.T) {
	svc, _ := setup(t)

	tests := []struct {
		name    string
		sess    core.Session
		lrn     string
		wantErr error
	}{
		{name: "anonymous", sess: anonSess, lrn: juan.LRN, wantErr: core.ErrUnauthenticated},
		{name: "not found", sess: adminSess, lrn: "000000000000", wantErr: student.ErrNotFound},
		{name: "adviser: another class", sess: adviserSess, lrn: maria.LRN, wantErr: core.ErrForbidden},
		{name: "adviser: own class", sess: adviserSess, lrn: " " + juan.LRN + " "},
		{name: "admin", sess: adminSess, lrn: maria.LRN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Get(ctx, tt.sess, tt.lrn)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, core.CleanString(tt.lrn), got.LRN)
		})
	}
}

func TestService_Save(t *testing.T) {
	svc, _ := setup(t)

	t.Run("admins only", func(t *testing.T) {
		_, err := svc.Save(ctx, adviserSess, juan)
		assert.Equal(t, core.ErrForbidden, err)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := svc.Save(ctx, adminSess, student.Student{LRN: "1364", Sex: "other", GradeLevel: "Grade 9"})
		require.Error(t, err)
		for _, field := range []string{"LRN", "LastName", "FirstName", "Sex", "GradeLevel", "Section"} {
			assert.Contains(t, err.Error(), "'"+field+"'")
		}
	})

	var created student.Student
	t.Run("create", func(t *testing.T) {
		var err error
		created, err = svc.Save(ctx, adminSess, student.Student{
			LRN:         " 136428170051 ",
			LastName:    " Garcia ",
			FirstName:   "Ana",
			Sex:         "FEMALE",
			GradeLevel:  grade.Grade1,
			Section:     "Rosal",
			Birthdate:   null.TimeFrom(time.Date(2014, 6, 2, 0, 0, 0, 0, time.UTC)),
			Credentials: student.Credentials{KinderProgressReport: true},
		})
		require.NoError(t, err)
		assert.Equal(t, "136428170051", created.LRN)
		assert.Equal(t, "Garcia, Ana", created.FullName())
		assert.Equal(t, student.SexFemale, created.Sex)
		assert.False(t, created.CreatedAt.IsZero())
	})

	t.Run("update keeps creation time", func(t *testing.T) {
		upd := created
		upd.MiddleName = "Cruz"
		upd.CreatedAt = time.Time{}
		saved, err := svc.Save(ctx, adminSess, upd)
		require.NoError(t, err)
		assert.Equal(t, created.CreatedAt, saved.CreatedAt)
		assert.Equal(t, "Garcia, Ana Cruz", saved.FullName())

		got, err := svc.Get(ctx, adminSess, created.LRN)
		require.NoError(t, err)
		assert.Equal(t, "Cruz", got.MiddleName)
	})
}

func TestService_Export(t *testing.T) {
	svc, sheets := setup(t)

	err := svc.Export(ctx, anonSess, student.Filter{}, new(bytes.Buffer))
	assert.Equal(t, core.ErrUnauthenticated, err)

	require.NoError(t, svc.Export(ctx, adviserSess, student.Filter{}, new(bytes.Buffer)))
	require.Len(t, sheets.Sheets, 1)
	sheet := sheets.Sheets[0]
	assert.Equal(t, "Students", sheet.Name)
	assert.Equal(t, [][]string{
		{juan.LRN, "Santos", "Juan", "", "", student.SexMale, grade.Grade1, "Sampaguita"},
	}, sheet.Rows)
}
