// Package service holds the business logic between handlers and the store.
//
// AuthService sits between the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)
//
// KEY RESPONSIBILITIES:
//   - Turn an X (Twitter) OAuth profile into a stored user and a session token
//   - Keep auth rules out of HTTP code so they are testable with fakes
//
// X does not share the account's email through OAuth 2.0, so a freshly
// created user has no email until onboarding collects one.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/shiptrack/internal/auth"
	"github.com/sakif/shiptrack/internal/model"
	"github.com/sakif/shiptrack/internal/repository"
)

// AuthService handles login and session issuance.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users   repository.UserRepository → read/write user records
//   - tokens  *auth.TokenService        → generate/validate JWTs
//   - logger  *slog.Logger              → structured logging
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and pick the redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegisterTwitter handles the X OAuth callback.
//
//  1. Upsert the user keyed by X's stable account id. The first login
//     creates the record; later logins refresh handle, name and photo.
//  2. Issue a session JWT for the internal user id.
//
// Onboarding answers and tracker stats are never touched here, so logging in
// again cannot reset a streak.
func (s *AuthService) LoginOrRegisterTwitter(ctx context.Context, xUser *auth.TwitterUser) (*AuthResult, error) {
	if xUser == nil {
		return nil, fmt.Errorf("service/auth: twitter user must not be nil")
	}

	user := &model.User{
		TwitterID:     xUser.ID,
		TwitterHandle: xUser.Username,
		Name:          xUser.Name,
		PhotoURL:      xUser.ProfileImageURL,
	}

	// After this call, user holds the stored record including its ID.
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (twitterID=%s): %w", xUser.ID, err)
	}

	s.logger.Info("user authenticated via X",
		slog.String("userID", user.ID),
		slog.String("handle", user.TwitterHandle),
		slog.Bool("onboarded", user.IsOnboarded),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// ValidateToken returns the user id a session token encodes.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}
