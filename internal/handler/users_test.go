package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/shiptrack/internal/auth"
	"github.com/sakif/shiptrack/internal/handler"
	"github.com/sakif/shiptrack/internal/model"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestUserHandler_GetMe(t *testing.T) {
	env := newTestEnv(t)
	h := handler.NewUserHandler(env.users, false, testLogger)
	u := env.createUser(t, "1", "ada", true)

	t.Run("signed in", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleGetMe(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), u.ID))

		assert.Equal(t, http.StatusOK, rr.Code)
		var got model.User
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "ada", got.TwitterHandle)
		assert.True(t, got.IsOnboarded)
	})

	t.Run("no session", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleGetMe(rr, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "unauthorized", decodeError(t, rr).Error)
	})

	t.Run("deleted user", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleGetMe(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), "gone"))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestUserHandler_Onboard(t *testing.T) {
	env := newTestEnv(t)
	h := handler.NewUserHandler(env.users, false, testLogger)
	u := env.createUser(t, "1", "ada", false)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{
			name:       "missing project",
			body:       `{"projectDescription":"","commitmentLevel":"casual"}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "projectDescription",
		},
		{
			name:       "bad commitment",
			body:       `{"projectDescription":"a CLI","commitmentLevel":"yolo"}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "commitmentLevel",
		},
		{
			name:       "unknown field",
			body:       `{"projectDescription":"a CLI","commitmentLevel":"casual","isOnboarded":true}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "body",
		},
		{
			name:       "empty body",
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantField:  "body",
		},
		{
			name:       "valid",
			body:       `{"projectDescription":"a CLI for shipping","commitmentLevel":"regular","email":"ada@example.com"}`,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/onboarding", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			h.HandleOnboard(rr, asUser(req, u.ID))

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantField != "" {
				body := decodeError(t, rr)
				assert.Equal(t, "validation_error", body.Error)
				assert.Equal(t, tt.wantField, body.Field)
				assert.NotEmpty(t, body.Detail)
			}
		})
	}

	rr := httptest.NewRecorder()
	h.HandleOnboardingStatus(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/onboarding/status", nil), u.ID))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"isOnboarded":true}`, rr.Body.String())
}

func TestUserHandler_UpdateMe(t *testing.T) {
	env := newTestEnv(t)
	h := handler.NewUserHandler(env.users, false, testLogger)
	u := env.createUser(t, "1", "ada", true)

	req := httptest.NewRequest(http.MethodPut, "/api/users/me", strings.NewReader(`{"commitmentLevel":"hardcore"}`))
	rr := httptest.NewRecorder()
	h.HandleUpdateMe(rr, asUser(req, u.ID))

	require.Equal(t, http.StatusOK, rr.Code)
	var got model.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, model.CommitmentHardcore, got.CommitmentLevel)
	assert.Equal(t, "a static site generator", got.ProjectDescription)
}

func TestUserHandler_DeleteMe(t *testing.T) {
	env := newTestEnv(t)
	h := handler.NewUserHandler(env.users, false, testLogger)
	u := env.createUser(t, "1", "ada", true)

	rr := httptest.NewRecorder()
	h.HandleDeleteMe(rr, asUser(httptest.NewRequest(http.MethodDelete, "/api/users/me", nil), u.ID))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	cookie := findCookie(rr.Result().Cookies(), auth.SessionCookie)
	require.NotNil(t, cookie)
	assert.Equal(t, -1, cookie.MaxAge)

	rr = httptest.NewRecorder()
	h.HandleGetMe(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), u.ID))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUserHandler_Leaderboard(t *testing.T) {
	env := newTestEnv(t)
	h := handler.NewUserHandler(env.users, false, testLogger)
	for i, handle := range []string{"ada", "bob", "cy"} {
		u := env.createUser(t, handle, handle, true)
		require.NoError(t, env.db.UpdateStats(t.Context(), u.ID, model.Stats{TotalShips: i * 10}))
	}
	env.createUser(t, "lurker", "lurker", false)

	rr := httptest.NewRecorder()
	h.HandleLeaderboard(rr, httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=2", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var entries []model.LeaderboardEntry
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "cy", entries[0].TwitterHandle)
	assert.Equal(t, "bob", entries[1].TwitterHandle)

	for _, bad := range []string{"0", "-3", "ten"} {
		rr = httptest.NewRecorder()
		h.HandleLeaderboard(rr, httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, "limit=%s", bad)
	}
}
