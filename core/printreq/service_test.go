package printreq_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/grade"
	"github.com/schoolrecords/sf10/core/printreq"
	"github.com/schoolrecords/sf10/core/student"
	"github.com/schoolrecords/sf10/core/user"
	emailsvc "github.com/schoolrecords/sf10/services/email"
	"github.com/schoolrecords/sf10/storage/database/dummy"
	"github.com/schoolrecords/sf10/tests"
)

var (
	ctx = context.Background()

	adminSess   = core.Session{UserID: "1", Name: "Admin", Roles: []string{user.RoleAdminPrincipal}}
	adviserSess = core.Session{UserID: "2", Name: "Ms. Reyes", Email: "reyes@school.test", Roles: []string{user.RoleTeacher}, GradeLevel: grade.Grade1, Section: "Sampaguita"}
	otherSess   = core.Session{UserID: "3", Name: "Mr. Cruz", Roles: []string{user.RoleTeacher}, GradeLevel: grade.Grade1, Section: "Rosal"}

	juan  = student.Student{LRN: "136428170048", LastName: "Santos", FirstName: "Juan", Sex: student.SexMale, GradeLevel: grade.Grade1, Section: "Sampaguita"}
	maria = student.Student{LRN: "136428170049", LastName: "Reyes", FirstName: "Maria", Sex: student.SexFemale, GradeLevel: grade.Grade1, Section: "Rosal"}
)

func setup(t *testing.T) (*printreq.Service, *testutil.SheetWriterMock) {
	conf := &core.Config{AppName: "SF10 Records", TestMode: true, WorkDir: core.Getwd(), FrontendBaseURL: "http://sf10.test"}
	logger := new(testutil.LoggerMock)
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	db, err := dummydb.Open()
	require.NoError(t, err)
	stdRepo := dummydb.NewStudentRepository(db)
	for _, s := range []student.Student{juan, maria} {
		_, err = stdRepo.SaveStudent(ctx, s)
		require.NoError(t, err)
	}

	sheets := new(testutil.SheetWriterMock)
	validate, _ := testutil.NewValidator()
	svc := printreq.NewService(
		dummydb.NewPrintRequestRepository(db),
		student.NewService(stdRepo, sheets, validate),
		emailsvc.NewConsoleServiceMock(conf, logger),
		sheets,
		validate,
		conf,
	)
	return svc, sheets
}

func validationField(t *testing.T, err error) string {
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "error = %v, want *core.ValidationError", err)
	require.Len(t, verr.Fields, 1)
	return verr.Fields[0].Field
}

func TestService_Create(t *testing.T) {
	svc, _ := setup(t)

	tests := []struct {
		name      string
		sess      core.Session
		lrn       string
		wantErr   error
		wantField string
	}{
		{name: "admins do not file requests", sess: adminSess, lrn: juan.LRN, wantErr: core.ErrForbidden},
		{name: "invalid lrn", sess: adviserSess, lrn: "13642817", wantField: "NewRequest.LRN"},
		{name: "unknown learner", sess: adviserSess, lrn: "000000000000", wantErr: student.ErrNotFound},
		{name: "learner of another class", sess: adviserSess, lrn: maria.LRN, wantErr: core.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.sess, printreq.NewRequest{LRN: tt.lrn})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			} else {
				assert.Contains(t, err.Error(), tt.wantField)
			}
		})
	}

	r, err := svc.Create(ctx, adviserSess, printreq.NewRequest{LRN: " " + juan.LRN})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, printreq.Request{
		ID:             r.ID,
		LRN:            juan.LRN,
		StudentName:    "Santos, Juan",
		GradeLevel:     grade.Grade1,
		Section:        "Sampaguita",
		RequestedBy:    adviserSess.UserID,
		RequesterName:  adviserSess.Name,
		RequesterEmail: adviserSess.Email,
		Status:         printreq.StatusPending,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, r)

	_, err = svc.Create(ctx, adviserSess, printreq.NewRequest{LRN: juan.LRN})
	assert.Equal(t, "lrn", validationField(t, err), "one open request per learner")
}

func TestService_statusFlow(t *testing.T) {
	svc, _ := setup(t)

	r, err := svc.Create(ctx, adviserSess, printreq.NewRequest{LRN: juan.LRN})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, adviserSess, r.ID)
	assert.Equal(t, core.ErrForbidden, err, "teachers cannot decide")

	printout := printreq.Printout{FileName: "SF10-ES_Santos_Juan.pdf", Content: []byte("%PDF-1.3 sf10")}
	_, err = svc.Complete(ctx, adminSess, r.ID, printout)
	assert.Equal(t, "status", validationField(t, err), "pending requests cannot be completed")

	_, err = svc.Accept(ctx, adminSess, "unknown")
	assert.Equal(t, printreq.ErrNotFound, errors.Cause(err))

	accepted, err := svc.Accept(ctx, adminSess, r.ID)
	require.NoError(t, err)
	assert.Equal(t, printreq.StatusAccepted, accepted.Status)

	sent := emailsvc.GetSentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, adviserSess.Email, sent[0].To[0].Address)
	assert.Contains(t, sent[0].Subject, printreq.StatusAccepted)

	_, err = svc.Reject(ctx, adminSess, r.ID)
	assert.Equal(t, "status", validationField(t, err), "accepted requests cannot be rejected")

	require.Empty(t, sent[0].Attachments)

	completed, err := svc.Complete(ctx, adminSess, r.ID, printout)
	require.NoError(t, err)
	assert.Equal(t, printreq.StatusCompleted, completed.Status)

	sent = emailsvc.GetSentMessages()
	require.Len(t, sent, 2, "completion mails the printout")
	assert.Contains(t, sent[1].Subject, printreq.StatusCompleted)
	require.Len(t, sent[1].Attachments, 1)
	at := sent[1].Attachments[0]
	assert.Equal(t, printout.FileName, at.Filename)
	assert.Equal(t, "application/pdf", at.ContentType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(printout.Content), at.Content.String())

	// closed: another request can be filed & rejected
	r2, err := svc.Create(ctx, adviserSess, printreq.NewRequest{LRN: juan.LRN})
	require.NoError(t, err)
	rejected, err := svc.Reject(ctx, adminSess, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, printreq.StatusRejected, rejected.Status)
	assert.Len(t, emailsvc.GetSentMessages(), 3)

	got, err := svc.Get(ctx, adviserSess, r.ID)
	require.NoError(t, err)
	assert.Equal(t, printreq.StatusCompleted, got.Status)

	_, err = svc.Get(ctx, otherSess, r.ID)
	assert.Equal(t, core.ErrForbidden, err, "teachers only read their own requests")
}

func TestService_Query(t *testing.T) {
	svc, sheets := setup(t)

	r, err := svc.Create(ctx, adviserSess, printreq.NewRequest{LRN: juan.LRN})
	require.NoError(t, err)
	r2, err := svc.Create(ctx, otherSess, printreq.NewRequest{LRN: maria.LRN})
	require.NoError(t, err)
	_, err = svc.Accept(ctx, adminSess, r2.ID)
	require.NoError(t, err)

	ids := func(reqs []printreq.Request) []string {
		res := make([]string, len(reqs))
		for i, r := range reqs {
			res[i] = r.ID
		}
		return res
	}

	tests := []struct {
		name    string
		sess    core.Session
		filter  printreq.Filter
		want    []string
		wantErr bool
	}{
		{name: "invalid status", sess: adminSess, filter: printreq.Filter{Status: "lost"}, wantErr: true},
		{name: "admin: all, most recent first", sess: adminSess, want: []string{r2.ID, r.ID}},
		{name: "admin: status", sess: adminSess, filter: printreq.Filter{Status: " Pending "}, want: []string{r.ID}},
		{name: "admin: search", sess: adminSess, filter: printreq.Filter{Search: "REYES"}, want: []string{r2.ID}},
		{name: "admin: lrn", sess: adminSess, filter: printreq.Filter{LRN: juan.LRN}, want: []string{r.ID}},
		{name: "teacher: own requests", sess: otherSess, want: []string{r2.ID}},
		{name: "teacher: cannot see others", sess: otherSess, filter: printreq.Filter{RequestedBy: adviserSess.UserID}, want: []string{r2.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Query(ctx, tt.sess, tt.filter)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	t.Run("export", func(t *testing.T) {
		require.NoError(t, svc.Export(ctx, adminSess, printreq.Filter{Status: printreq.StatusAccepted}, new(bytes.Buffer)))
		require.Len(t, sheets.Sheets, 1)
		rows := sheets.Sheets[0].Rows
		require.Len(t, rows, 1)
		assert.Equal(t, []string{r2.ID, maria.LRN, "Reyes, Maria", grade.Grade1, "Rosal", otherSess.Name, "", r2.CreatedAt.Format("01/02/2006"), "Accepted"}, rows[0])
	})
}
