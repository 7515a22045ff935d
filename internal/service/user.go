package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/shiptrack/internal/apperror"
	"github.com/sakif/shiptrack/internal/model"
	"github.com/sakif/shiptrack/internal/repository"
)

const maxProjectDescriptionLen = 500

// UserService owns the profile, onboarding and leaderboard rules.
//
// Handlers pass in the user id taken from the session; the service never
// trusts an id from the request body.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// OnboardInput is the body of POST /api/onboarding.
type OnboardInput struct {
	ProjectDescription string `json:"projectDescription"`
	CommitmentLevel    string `json:"commitmentLevel"`
	Email              string `json:"email,omitempty"`
}

// UpdateProfileInput is the body of PUT /api/users/me. Nil fields are left
// unchanged.
type UpdateProfileInput struct {
	Name               *string `json:"name,omitempty"`
	Email              *string `json:"email,omitempty"`
	ProjectDescription *string `json:"projectDescription,omitempty"`
	CommitmentLevel    *string `json:"commitmentLevel,omitempty"`
}

// OnboardingStatus is the body of GET /api/onboarding/status.
type OnboardingStatus struct {
	IsOnboarded bool `json:"isOnboarded"`
}

func (s *UserService) GetMe(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("no user in session")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %s: %w", userID, err)
	}
	return user, nil
}

func (s *UserService) OnboardingStatus(ctx context.Context, userID string) (OnboardingStatus, error) {
	user, err := s.GetMe(ctx, userID)
	if err != nil {
		return OnboardingStatus{}, err
	}
	return OnboardingStatus{IsOnboarded: user.IsOnboarded}, nil
}

// Onboard records the project and commitment level and marks the user as
// onboarded, which makes them visible to the tracker and the leaderboard.
// Onboarding again simply overwrites the answers.
func (s *UserService) Onboard(ctx context.Context, userID string, in OnboardInput) (*model.User, error) {
	project, err := validateProject(in.ProjectDescription)
	if err != nil {
		return nil, err
	}
	level, ok := model.ParseCommitmentLevel(in.CommitmentLevel)
	if !ok {
		return nil, apperror.ValidationFailed("commitmentLevel", "must be casual, serious or hardcore")
	}

	user, err := s.GetMe(ctx, userID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Email) != "" {
		email, err := validateEmail(in.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	user.ProjectDescription = project
	user.CommitmentLevel = level
	user.IsOnboarded = true

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: onboarding user %s: %w", userID, err)
	}

	s.logger.Info("user onboarded",
		slog.String("userID", user.ID),
		slog.String("commitmentLevel", string(level)),
		slog.Bool("hasEmail", user.Email != ""),
	)
	return user, nil
}

// UpdateMe applies a partial profile update.
func (s *UserService) UpdateMe(ctx context.Context, userID string, in UpdateProfileInput) (*model.User, error) {
	user, err := s.GetMe(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "must not be empty")
		}
		user.Name = name
	}
	if in.Email != nil {
		if strings.TrimSpace(*in.Email) == "" {
			user.Email = ""
		} else {
			email, err := validateEmail(*in.Email)
			if err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if in.ProjectDescription != nil {
		project, err := validateProject(*in.ProjectDescription)
		if err != nil {
			return nil, err
		}
		user.ProjectDescription = project
	}
	if in.CommitmentLevel != nil {
		level, ok := model.ParseCommitmentLevel(*in.CommitmentLevel)
		if !ok {
			return nil, apperror.ValidationFailed("commitmentLevel", "must be casual, serious or hardcore")
		}
		user.CommitmentLevel = level
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating user %s: %w", userID, err)
	}
	return user, nil
}

// DeleteMe removes the account. Stats are gone with it.
func (s *UserService) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.Unauthorized("no user in session")
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("service/user: deleting user %s: %w", userID, err)
	}
	s.logger.Info("user deleted", slog.String("userID", userID))
	return nil
}

// Leaderboard returns the top onboarded users. limit <= 0 selects the
// default; values above the maximum are clamped.
func (s *UserService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = repository.DefaultLeaderboardLimit
	}
	if limit > repository.MaxLeaderboardLimit {
		limit = repository.MaxLeaderboardLimit
	}
	entries, err := s.users.Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service/user: leaderboard: %w", err)
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	return entries, nil
}

func validateProject(raw string) (string, error) {
	project := strings.TrimSpace(raw)
	if project == "" {
		return "", apperror.ValidationFailed("projectDescription", "must not be empty")
	}
	if len([]rune(project)) > maxProjectDescriptionLen {
		return "", apperror.ValidationFailed("projectDescription",
			fmt.Sprintf("must be at most %d characters", maxProjectDescriptionLen))
	}
	return project, nil
}

func validateEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", apperror.ValidationFailed("email", "must be a valid email address")
	}
	return addr.Address, nil
}
