package echoapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/tests"
)

func Test_userApi_query(t *testing.T) {
	srv, env := setup(t)

	path := func(search, ordering string, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now()
	usr1 := testutil.CreateUser(t, env.UserRepo, "User", "awe", "awe@mmdc.edu.ph", "", nil, true, now.Add(-7*time.Hour))
	usr2 := testutil.CreateUser(t, env.UserRepo, "King", "user02", "king@mmdc.edu.ph", "", nil, true, now.Add(-6*time.Hour))
	student := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "user3@mmdc.edu.ph", "", []string{user.RoleStudent}, true, now.Add(-5*time.Hour))
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@mmdc.edu.ph", "", []string{user.RoleAdmin}, true, now.Add(-4*time.Hour))
	principal := testutil.CreateUser(t, env.UserRepo, "Principal", "princip", "princip@mmdc.edu.ph", "", []string{user.RoleAdminPrincipal}, true, now.Add(-3*time.Hour))
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "teacher@mmdc.edu.ph", "", []string{user.RoleTeacher}, true, now.Add(-2*time.Hour))
	naughty := testutil.CreateUser(t, env.UserRepo, "N Dog", "ndog", "ndog@mmdc.edu.ph", "", []string{user.RoleStudent}, false, now.Add(-time.Hour))

	adminToken := getToken(t, env, admin)
	empty := marchallList(t)

	runHTTPTests(t, srv, []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, env, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", path: "/v1/users", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, naughty, teacher, principal, admin, student, usr2, usr1),
		},
		// filtering
		{name: "search (unknown)", path: path("lol", "", nil), token: adminToken, wantCode: http.StatusOK, wantData: empty},
		{
			name: "search=USE", path: path("USE", "", nil), token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, student, usr2, usr1),
		},
		{name: "role (unknown)", path: path("", "", nil, "lol"), token: adminToken, wantCode: http.StatusOK, wantData: empty},
		{
			name: "role=admin:", path: path("", "", nil, user.RoleAdmin), token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, principal, admin),
		},
		{
			name: "role=teacher:,student:", path: path("", "", nil, user.RoleTeacher, user.RoleStudent), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, naughty, teacher, student),
		},
		{
			name: "is_active=false", path: path("", "", bPtr(false)), token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, naughty),
		},
		{
			name: "is_active=lol", path: "/v1/users?is_active=lol", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"is_active": "invalid value"}),
		},
		// ordering
		{
			name: "order by created_at", path: path("", "created_at", nil), token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, usr1, usr2, student, admin, principal, teacher, naughty),
		},
		{
			name: "order by is_active,-name", path: path("", "is_active,-name", nil), token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, naughty, usr1, teacher, principal, usr2, student, admin),
		},
		// pagination
		{
			name: "page 2", path: "/v1/users?ordering=created_at&page=2&page_size=3", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, admin, principal, teacher),
		},
		{name: "page out of range", path: "/v1/users?page=9", token: adminToken, wantCode: http.StatusOK, wantData: empty},
	})
}

func Test_userApi_login(t *testing.T) {
	srv, env := setup(t)
	pwd := "Str0ng-Passw0rd!"
	usr := testutil.CreateUser(t, env.UserRepo, "Jane", "jane", "jane@mmdc.edu.ph", pwd, []string{user.RoleStudent}, true)
	testutil.CreateUser(t, env.UserRepo, "Gone", "gone", "gone@mmdc.edu.ph", pwd, nil, false)

	body := func(uname, pwd string) []byte {
		return marchallObj(t, LoginRequest{Username: uname, Password: pwd})
	}

	runHTTPTests(t, srv, []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/login", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login", body: body("jane", "nope"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login", body: body("john", pwd),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/login", body: body("gone", pwd),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	for _, uname := range []string{" JANE ", "jane@mmdc.edu.ph"} {
		rec := do(srv, http.MethodPost, "/v1/users/login", "", body(uname, pwd))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp LoginResponse
		unmarchall(t, rec, &resp)
		require.NotEmpty(t, resp.Token)

		rec = do(srv, http.MethodGet, "/v1/users/me", resp.Token)
		require.Equal(t, http.StatusOK, rec.Code)
		var me user.User
		unmarchall(t, rec, &me)
		assert.Equal(t, usr.ID, me.ID)
		assert.False(t, me.LastLogin.IsZero())
	}

	t.Run("token refresh", func(t *testing.T) {
		rec := do(srv, http.MethodPost, "/v1/users/token-refresh", getToken(t, env, usr))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		unmarchall(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)

		rec = do(srv, http.MethodPost, "/v1/users/token-refresh", "not-a-token")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	srv, env := setup(t)
	testutil.CreateUser(t, env.UserRepo, "Jane", "jane", "jane@mmdc.edu.ph", "", nil, true)

	for _, email := range []string{"jane@mmdc.edu.ph", "unknown@mmdc.edu.ph"} {
		rec := do(srv, http.MethodPost, "/v1/users/password-reset", "", marchallObj(t, PasswordResetRequest{Email: email}))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	sent := env.Mail.SentMessages()
	require.Len(t, sent, 1, "no email for unknown addresses")
	assert.Equal(t, "jane@mmdc.edu.ph", sent[0].To[0].Address)

	rec := do(srv, http.MethodPost, "/v1/users/password-reset", "", []byte(`{"email": "nope"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(srv, http.MethodPost, "/v1/users/password-reset-confirm", "", marchallObj(t, user.ResetUserPassword{
		UID: "x", Token: "y", Password: "Str0ng-Passw0rd!", PasswordConfirm: "Str0ng-Passw0rd!",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_userApi_detail(t *testing.T) {
	srv, env := setup(t)
	owner := testutil.CreateUser(t, env.UserRepo, "Owner", "owner", "owner@mmdc.edu.ph", "", []string{user.RoleAdminOwner}, true)
	admin := env.CreateAdmin(t, "admin")
	student := env.CreateStudent(t, "student")
	other := env.CreateStudent(t, "other")

	adminToken := getToken(t, env, admin)
	studentToken := getToken(t, env, student)

	runHTTPTests(t, srv, []httpTest{
		{name: "self", path: "/v1/users/" + student.ID, token: studentToken, wantCode: http.StatusOK, wantData: marchallObj(t, student)},
		{
			name: "someone else", path: "/v1/users/" + other.ID, token: studentToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "admin", path: "/v1/users/" + other.ID, token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, other)},
		{name: "unknown", path: "/v1/users/d9c0a4f4-4b7e-4d8f-8a3c-1f2e3d4c5b6a", token: adminToken, wantCode: http.StatusNotFound},
		{name: "roles", path: "/v1/users/roles", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)},
		{
			name: "student cannot set roles", method: http.MethodPut, path: "/v1/users/" + student.ID, token: studentToken,
			body: []byte(`{"roles": ["admin:"]}`), wantCode: http.StatusForbidden,
		},
		{
			name: "admin cannot grant a higher role", method: http.MethodPut, path: "/v1/users/" + other.ID, token: adminToken,
			body: []byte(`{"roles": ["admin:owner"]}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": errNoPermsToSetRoles}),
		},
		{name: "cannot delete self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "cannot delete a higher role", method: http.MethodDelete, path: "/v1/users/" + owner.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "students cannot delete", method: http.MethodDelete, path: "/v1/users/" + student.ID, token: studentToken, wantCode: http.StatusForbidden},
		{
			name: "cannot bulk delete a higher role", method: http.MethodDelete, path: "/v1/users?id=" + other.ID + "&id=" + owner.ID,
			token: adminToken, wantCode: http.StatusForbidden,
		},
	})

	t.Run("update self", func(t *testing.T) {
		rec := do(srv, http.MethodPut, "/v1/users/"+student.ID, studentToken, []byte(`{"name": "  New Name "}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		unmarchall(t, rec, &got)
		assert.Equal(t, "New Name", got.Name)
		assert.Equal(t, student.Username, got.Username)
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(srv, http.MethodDelete, "/v1/users/"+other.ID, adminToken)
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = do(srv, http.MethodGet, "/v1/users/"+other.ID, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		// a deleted user's token no longer works
		rec = do(srv, http.MethodGet, "/v1/users/me", getToken(t, env, other))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("register", func(t *testing.T) {
		nu := user.NewUser{
			Name:            "Maria Clara",
			Username:        "mclara",
			Email:           "MClara@mmdc.edu.ph",
			Password:        "Gr33n-Mang0-Tree!",
			PasswordConfirm: "Gr33n-Mang0-Tree!",
			Roles:           []string{user.RoleTeacher},
		}
		rec := do(srv, http.MethodPost, "/v1/users/register", adminToken, marchallObj(t, nu))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got user.User
		unmarchall(t, rec, &got)
		assert.Equal(t, "mclara@mmdc.edu.ph", got.Email)
		assert.True(t, got.IsTeacher())

		rec = do(srv, http.MethodPost, "/v1/users/register", adminToken, marchallObj(t, nu))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "already exists"), rec.Body.String())

		rec = do(srv, http.MethodPost, "/v1/users/register", studentToken, marchallObj(t, nu))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
