package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/sakif/shiptrack/internal/apperror"
	"github.com/sakif/shiptrack/internal/model"
)

// fakeUserRepo is an in-memory repository.UserRepository.
// Using a fake (not a mock framework) keeps tests easy to read: you can see
// exactly what the fake does.
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	byXID  map[string]*model.User // keyed by X account id (for Upsert)
	nextID int
	// set to a non-nil error to simulate a database failure
	upsertErr error
	listErr   error
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*model.User),
		byXID:  make(map[string]*model.User),
		nextID: 1,
	}
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.byXID[user.TwitterID]; ok {
		// UPDATE path: keep ID, onboarding and stats; refresh profile fields
		existing.TwitterHandle = user.TwitterHandle
		existing.Name = user.Name
		existing.PhotoURL = user.PhotoURL
		existing.UpdatedAt = time.Now()
		*user = *existing
		return nil
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	if user.CommitmentLevel == "" {
		user.CommitmentLevel = model.CommitmentCasual
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	f.byXID[user.TwitterID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) ListUsers(context.Context) ([]model.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, user *model.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	u.Name = user.Name
	u.Email = user.Email
	u.ProjectDescription = user.ProjectDescription
	u.CommitmentLevel = user.CommitmentLevel
	u.IsOnboarded = user.IsOnboarded
	return nil
}

func (f *fakeUserRepo) UpdateStats(_ context.Context, id string, stats model.Stats) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.Stats = stats
	return nil
}

func (f *fakeUserRepo) DeleteUser(_ context.Context, id string) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.byXID, u.TwitterID)
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) Leaderboard(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	var out []model.LeaderboardEntry
	for _, u := range f.users {
		if !u.IsOnboarded {
			continue
		}
		out = append(out, model.LeaderboardEntry{
			ID:              u.ID,
			TwitterHandle:   u.TwitterHandle,
			CommitmentLevel: u.CommitmentLevel,
			TotalShips:      u.TotalShips,
			StreakCount:     u.StreakCount,
			Stars:           u.Stars,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalShips > out[j].TotalShips })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// seedUser stores u as-is (the insert path keeps every field) and returns its ID.
func (f *fakeUserRepo) seedUser(u model.User) string {
	if err := f.Upsert(context.Background(), &u); err != nil {
		panic(err)
	}
	return u.ID
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
