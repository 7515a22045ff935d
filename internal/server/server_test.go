package server_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/shiptrack/internal/auth"
	"github.com/sakif/shiptrack/internal/config"
	"github.com/sakif/shiptrack/internal/model"
	"github.com/sakif/shiptrack/internal/server"
)

const jwtSecret = "server-test-secret-0123456789"

func newTestServer(t *testing.T, mutate func(*config.Config)) (*server.Server, *server.Deps) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg := config.Default()
	cfg.Database.Path = ":memory:"
	cfg.Auth.JWTSecret = jwtSecret
	cfg.LLM.APIKey = "test-key"
	cfg.Scheduler.Enabled = false
	if mutate != nil {
		mutate(&cfg)
	}

	deps, err := server.Wire(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { deps.DB.Close() })

	srv, err := server.New(cfg, deps, logger)
	require.NoError(t, err)
	return srv, deps
}

func TestRoutes(t *testing.T) {
	srv, deps := newTestServer(t, nil)

	user := &model.User{TwitterID: "42", TwitterHandle: "ada"}
	require.NoError(t, deps.DB.Upsert(context.Background(), user))

	tokens, err := auth.NewTokenService(jwtSecret, 0)
	require.NoError(t, err)
	token, err := tokens.Generate(user.ID)
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		path       string
		session    bool
		wantStatus int
	}{
		{name: "healthz", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "home", method: http.MethodGet, path: "/", wantStatus: http.StatusOK},
		{name: "leaderboard api", method: http.MethodGet, path: "/api/leaderboard", wantStatus: http.StatusOK},
		{name: "me without session", method: http.MethodGet, path: "/api/users/me", wantStatus: http.StatusUnauthorized},
		{name: "me with session", method: http.MethodGet, path: "/api/users/me", session: true, wantStatus: http.StatusOK},
		{name: "onboarding status", method: http.MethodGet, path: "/api/onboarding/status", session: true, wantStatus: http.StatusOK},
		{name: "dashboard redirects to onboarding", method: http.MethodGet, path: "/dashboard", session: true, wantStatus: http.StatusSeeOther},
		{name: "oauth login redirects", method: http.MethodGet, path: "/auth/twitter/login", wantStatus: http.StatusTemporaryRedirect},
		{name: "unknown route", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodPost, path: "/api/users/me", session: true, wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.session {
				req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
			}
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestCronEndpointsRequireSecret(t *testing.T) {
	hash, err := auth.HashSecret("cron-secret", 4)
	require.NoError(t, err)
	srv, _ := newTestServer(t, func(c *config.Config) { c.Auth.CronSecretHash = hash })

	for _, path := range []string{"/api/check-tweets", "/api/test-notifications"} {
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}

	// No users means the run has nothing to fetch or classify.
	req := httptest.NewRequest(http.MethodGet, "/api/check-tweets", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":true`)
}

func TestNewRequiresJWTSecret(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := config.Default()
	cfg.Database.Path = ":memory:"

	deps, err := server.Wire(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer deps.DB.Close()

	_, err = server.New(cfg, deps, logger)
	assert.Error(t, err)
}
