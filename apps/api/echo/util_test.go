package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/schoolrecords/sf10/apps/api/echo"
	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/grade"
	"github.com/schoolrecords/sf10/core/printreq"
	"github.com/schoolrecords/sf10/core/report"
	"github.com/schoolrecords/sf10/core/student"
	"github.com/schoolrecords/sf10/core/user"
	emailsvc "github.com/schoolrecords/sf10/services/email"
	locksvc "github.com/schoolrecords/sf10/services/lock"
	rendersvc "github.com/schoolrecords/sf10/services/render"
	xlsxsvc "github.com/schoolrecords/sf10/services/xlsx"
	"github.com/schoolrecords/sf10/storage/database/dummy"
	"github.com/schoolrecords/sf10/tests"
)

const (
	juanLRN  = "136428170048"
	mariaLRN = "136428170049"
)

var (
	ctxBg           = context.Background()
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

// testApp is a server on in-memory repositories, with one admin, one adviser of
// Grade 1 Sampaguita & two learners.
type testApp struct {
	server  Server
	conf    *core.Config
	logger  *testutil.LoggerMock
	usrRepo user.Repository

	admin   user.User
	adviser user.User
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{
		AppName:         "SF10 Records",
		TestMode:        true,
		WorkDir:         core.Getwd(),
		FrontendBaseURL: "http://sf10.test",
		Server: core.ServerConfig{
			SecretKey:                 "secret",
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
	logger := new(testutil.LoggerMock)
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	db, err := dummydb.Open()
	require.NoError(t, err)
	usrRepo := dummydb.NewUserRepository(db)
	stdRepo := dummydb.NewStudentRepository(db)

	validate, translator := testutil.NewValidator()
	sheets := xlsxsvc.NewWriter()
	school := grade.School{Name: "Sta. Lucia ES", ID: "104712", District: "San Jose", Division: "Batangas", Region: "IV-A"}

	usrSvc := user.NewService(usrRepo, sheets, validate)
	stdSvc := student.NewService(stdRepo, sheets, validate)
	grdSvc := grade.NewService(dummydb.NewGradeRepository(db), testutil.NewCodec(t), validate, school)
	exporter := report.NewExporter(rendersvc.NewRasterizer(48), rendersvc.NewPDFAssembler("SF10-ES", school.Name), 1)
	rptSvc := report.NewService(
		stdSvc,
		grdSvc,
		exporter,
		locksvc.NewMemoryGuard(),
		report.School{School: school, Principal: "Dr. Dela Cruz"},
		report.Letter,
		logger,
	)
	reqSvc := printreq.NewService(
		dummydb.NewPrintRequestRepository(db),
		stdSvc,
		emailsvc.NewConsoleServiceMock(conf, logger),
		sheets,
		validate,
		conf,
	)

	app := &testApp{
		server: NewServer(&Options{
			Conf:           conf,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
			UserSvc:        usrSvc,
			StudentSvc:     stdSvc,
			GradeSvc:       grdSvc,
			ReportSvc:      rptSvc,
			PrintReqSvc:    reqSvc,
		}),
		conf:    conf,
		logger:  logger,
		usrRepo: usrRepo,
	}
	app.admin = testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@school.test", "admin1234", []string{user.RoleAdminPrincipal}, true)
	app.adviser = testutil.CreateTeacher(t, usrRepo, "Ms. Reyes", "mreyes", "reyes1234", grade.Grade1, "Sampaguita")

	now := time.Now().UTC()
	for _, s := range []student.Student{
		{LRN: juanLRN, LastName: "Santos", FirstName: "Juan", Sex: student.SexMale, GradeLevel: grade.Grade1, Section: "Sampaguita"},
		{LRN: mariaLRN, LastName: "Reyes", FirstName: "Maria", Sex: student.SexFemale, GradeLevel: grade.Grade1, Section: "Rosal"},
	} {
		s.CreatedAt, s.UpdatedAt = now, now
		_, err = stdRepo.SaveStudent(ctxBg, s)
		require.NoError(t, err)
	}
	return app
}

func (app *testApp) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}
