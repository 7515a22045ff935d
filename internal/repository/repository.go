// Package repository declares the storage interfaces the service and tracker
// layers depend on. Implementations live in sub-packages (see sqlite).
package repository

import (
	"context"

	"github.com/sakif/shiptrack/internal/model"
)

const (
	DefaultLeaderboardLimit = 5
	MaxLeaderboardLimit     = 100
)

// UserRepository is the user-record store: one document per user, keyed by id.
type UserRepository interface {
	// Upsert creates or refreshes a user keyed by TwitterID. Profile fields
	// from X are overwritten; onboarding data and stats are kept.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// ListUsers returns every user, oldest first. Used by the tracker scan.
	ListUsers(ctx context.Context) ([]model.User, error)
	// UpdateProfile writes the user-editable fields.
	UpdateProfile(ctx context.Context, user *model.User) error
	// UpdateStats writes only the tracker-owned counters.
	UpdateStats(ctx context.Context, id string, stats model.Stats) error
	DeleteUser(ctx context.Context, id string) error
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}
