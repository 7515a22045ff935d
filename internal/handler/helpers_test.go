package handler_test

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/sakif/shiptrack/internal/auth"
	"github.com/sakif/shiptrack/internal/model"
	"github.com/sakif/shiptrack/internal/repository/sqlite"
	"github.com/sakif/shiptrack/internal/service"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

// testEnv is the real service stack over an in-memory database.
type testEnv struct {
	db     *sqlite.DB
	tokens *auth.TokenService
	users  *service.UserService
	auth   *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return &testEnv{
		db:     db,
		tokens: tokens,
		users:  service.NewUserService(db, testLogger),
		auth:   service.NewAuthService(db, tokens, testLogger),
	}
}

// createUser stores a user through the login path and optionally onboards it.
func (e *testEnv) createUser(t *testing.T, xID, handle string, onboarded bool) *model.User {
	t.Helper()
	u := &model.User{TwitterID: xID, TwitterHandle: handle, Name: handle}
	if err := e.db.Upsert(context.Background(), u); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if onboarded {
		u.ProjectDescription = "a static site generator"
		u.CommitmentLevel = model.CommitmentSerious
		u.Email = handle + "@example.com"
		u.IsOnboarded = true
		if err := e.db.UpdateProfile(context.Background(), u); err != nil {
			t.Fatalf("UpdateProfile: %v", err)
		}
	}
	return u
}

// asUser attaches a session for userID the way auth.RequireAuth would.
func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
