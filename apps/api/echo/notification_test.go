package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/notification"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/tests"
)

func Test_notificationApi(t *testing.T) {
	srv, env := setup(t)

	admin := env.CreateAdmin(t, "registrar")
	teacher := env.CreateTeacher(t, "tmendoza")
	jdoe := env.CreateStudent(t, "jdoe")
	asantos := env.CreateStudent(t, "asantos")
	testutil.CreateUser(t, env.UserRepo, "Old Student", "old", "old@mmdc.edu.ph", "", []string{user.RoleStudent}, false)

	adminTkn := getToken(t, env, admin)
	jdoeTkn := getToken(t, env, jdoe)
	asantosTkn := getToken(t, env, asantos)

	announcement := marchallObj(t, map[string]interface{}{
		"roles": []string{user.RoleStudent},
		"title": "Enrollment opens Monday",
		"body":  "Enrollment for the first term opens on Monday.",
	})

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "auth required",
			path:     "/v1/notifications",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "students cannot announce",
			method:   http.MethodPost,
			path:     "/v1/notifications",
			body:     announcement,
			token:    jdoeTkn,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "no recipients",
			method:   http.MethodPost,
			path:     "/v1/notifications",
			body:     marchallObj(t, map[string]string{"title": "Hello"}),
			token:    adminTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"user_ids": "at least one recipient or role is required"}),
		},
		{
			name:     "announce to active students",
			method:   http.MethodPost,
			path:     "/v1/notifications",
			body:     announcement,
			token:    adminTkn,
			wantCode: http.StatusCreated,
			wantData: marchallObj(t, CountResponse{Count: 2}),
		},
		{
			name:     "teachers got nothing",
			path:     "/v1/notifications/unread-count",
			token:    getToken(t, env, teacher),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, CountResponse{Count: 0}),
		},
		{
			name:     "bad unread flag",
			path:     "/v1/notifications?unread=maybe",
			token:    jdoeTkn,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad ids",
			method:   http.MethodPost,
			path:     "/v1/notifications/read",
			body:     marchallObj(t, MarkReadRequest{IDs: []string{"nope"}}),
			token:    jdoeTkn,
			wantCode: http.StatusBadRequest,
		},
	})

	mine := func(tkn, query string) []notification.Notification {
		rec := do(srv, http.MethodGet, "/v1/notifications"+query, tkn)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var notifs []notification.Notification
		unmarchall(t, rec, &notifs)
		return notifs
	}

	jdoeNotifs := mine(jdoeTkn, "")
	require.Len(t, jdoeNotifs, 1)
	assert.Equal(t, jdoe.ID, jdoeNotifs[0].UserID)
	assert.Equal(t, notification.KindAnnouncement, jdoeNotifs[0].Kind)
	assert.Equal(t, "Enrollment opens Monday", jdoeNotifs[0].Title)
	assert.Nil(t, jdoeNotifs[0].ReadAt)

	asantosNotifs := mine(asantosTkn, "?unread=true")
	require.Len(t, asantosNotifs, 1)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "cannot read others' notifications",
			method:   http.MethodPost,
			path:     "/v1/notifications/read",
			body:     marchallObj(t, MarkReadRequest{IDs: []string{asantosNotifs[0].ID}}),
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, CountResponse{Count: 0}),
		},
		{
			name:     "mark read",
			method:   http.MethodPost,
			path:     "/v1/notifications/read",
			body:     marchallObj(t, MarkReadRequest{IDs: []string{jdoeNotifs[0].ID}}),
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, CountResponse{Count: 1}),
		},
		{
			name:     "unread count after read",
			path:     "/v1/notifications/unread-count",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, CountResponse{Count: 0}),
		},
		{
			name:     "unread only",
			path:     "/v1/notifications?unread=true",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "read all",
			method:   http.MethodPost,
			path:     "/v1/notifications/read-all",
			token:    asantosTkn,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, CountResponse{Count: 1}),
		},
		{
			name:     "cannot delete others' notifications",
			method:   http.MethodDelete,
			path:     "/v1/notifications/" + asantosNotifs[0].ID,
			token:    jdoeTkn,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: notification.ErrNotFound.Error()}),
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/v1/notifications/" + jdoeNotifs[0].ID,
			token:    jdoeTkn,
			wantCode: http.StatusNoContent,
		},
	})

	assert.Empty(t, mine(jdoeTkn, ""))
	assert.Len(t, mine(asantosTkn, ""), 1)
}
