package echoapi_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/schoolrecords/sf10/apps/api/echo"
	"github.com/schoolrecords/sf10/core/grade"
	"github.com/schoolrecords/sf10/core/user"
	"github.com/schoolrecords/sf10/tests"
)

func TestUserAPI_login(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "Mr. Cruz", "mcruz", "cruz@school.test", "cruz12345", []string{user.RoleTeacher}, false)

	app.run(t, []httpTest{
		{
			name:     "empty data",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "this field is required", "password": "this field is required"}`),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{"username": "admin", "password": "wrong"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name:     "unknown user",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{"username": "nobody", "password": "admin1234"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name:     "inactive user",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{"username": "cruz@school.test", "password": "cruz12345"}`),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: user.ErrInactive.Error()}),
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := app.do(httpTest{
			method: http.MethodPost,
			path:   "/v1/users/login",
			body:   []byte(`{"username": " MReyes ", "password": "reyes1234"}`),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp LoginResponse
		decode(t, rec, &resp)
		require.NotEmpty(t, resp.Token)

		// the token opens the authed endpoints
		rec = app.do(httpTest{method: http.MethodGet, path: "/v1/users/me", token: resp.Token})
		require.Equal(t, http.StatusOK, rec.Code)
		var me user.User
		decode(t, rec, &me)
		assert.Equal(t, "mreyes", me.Username)
		assert.Equal(t, grade.Grade1, me.GradeLevel)
		assert.True(t, me.LastLogin.Valid)
	})
}

func TestUserAPI_refreshToken(t *testing.T) {
	app := setup(t)
	path := "/v1/users/refresh-token"

	expired, err := GenerateToken(app.conf, GetUserClaims(app.conf, app.adviser, time.Now().Add(-5*time.Hour).Unix()))
	require.NoError(t, err)

	app.run(t, []httpTest{
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     path,
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "refresh expired",
			method:   http.MethodPost,
			path:     path,
			token:    expired,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "refresh has expired"}),
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := app.do(httpTest{method: http.MethodPost, path: path, token: getToken(t, app.conf, app.adviser)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp LoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("blocked user", func(t *testing.T) {
		_, err := app.usrRepo.SetActive(ctxBg, app.adviser.ID, false, time.Now())
		require.NoError(t, err)
		rec := app.do(httpTest{method: http.MethodPost, path: path, token: getToken(t, app.conf, app.adviser)})
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		}, rec)
	})
}

func TestUserAPI_registerAndActivate(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, app.conf, app.admin)

	app.run(t, []httpTest{
		{
			name:     "password mismatch",
			method:   http.MethodPost,
			path:     "/v1/users/register",
			body:     []byte(`{"name": "Mr. Cruz", "email": "cruz@school.test", "password": "cruz12345", "password_confirm": "cruz54321", "grade_level": "Grade 2", "section": "Rosal"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "email taken",
			method:   http.MethodPost,
			path:     "/v1/users/register",
			body:     []byte(`{"name": "Admin 2", "email": "admin@school.test", "password": "cruz12345", "password_confirm": "cruz12345", "grade_level": "Grade 2", "section": "Rosal"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
	})

	rec := app.do(httpTest{
		method: http.MethodPost,
		path:   "/v1/users/register",
		body:   []byte(`{"name": "Mr. Cruz", "email": "cruz@school.test", "password": "cruz12345", "password_confirm": "cruz12345", "grade_level": "Grade 2", "section": "Rosal"}`),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cruz user.User
	decode(t, rec, &cruz)
	assert.False(t, cruz.IsActive)
	assert.Equal(t, []string{user.RoleTeacher}, cruz.Roles)

	login := httpTest{
		method: http.MethodPost,
		path:   "/v1/users/login",
		body:   []byte(`{"username": "cruz@school.test", "password": "cruz12345"}`),
	}
	assert.Equal(t, http.StatusForbidden, app.do(login).Code, "pending activation")

	app.run(t, []httpTest{
		{
			name:     "teacher cannot activate",
			method:   http.MethodPost,
			path:     "/v1/users/" + cruz.ID + "/activate",
			token:    getToken(t, app.conf, app.adviser),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "unknown user",
			method:   http.MethodPost,
			path:     "/v1/users/unknown/activate",
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: user.ErrNotFound.Error()}),
		},
		{
			name:     "admin cannot block themselves",
			method:   http.MethodPost,
			path:     "/v1/users/" + app.admin.ID + "/block",
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"is_active": "you cannot block your own account"}`),
		},
		{
			name:     "activate",
			method:   http.MethodPost,
			path:     "/v1/users/" + cruz.ID + "/activate",
			token:    adminToken,
			wantCode: http.StatusOK,
		},
	})
	assert.Equal(t, http.StatusOK, app.do(login).Code, "activated")
}

func TestUserAPI_queryAndExport(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, app.conf, app.admin)

	app.run(t, []httpTest{
		{
			name:     "teacher forbidden",
			method:   http.MethodGet,
			path:     "/v1/users",
			token:    getToken(t, app.conf, app.adviser),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "roles",
			method:   http.MethodGet,
			path:     "/v1/users/roles",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, user.Roles),
		},
	})

	rec := app.do(httpTest{method: http.MethodGet, path: "/v1/users?role=teacher:", token: adminToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var users []user.User
	decode(t, rec, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "mreyes", users[0].Username)

	rec = app.do(httpTest{method: http.MethodGet, path: "/v1/users/export", token: adminToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/vnd.openxmlformats"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "users.xlsx")
	assert.Equal(t, "PK", rec.Body.String()[:2], "xlsx is a zip archive")
}
