package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sakif/shiptrack/internal/apperror"
	"github.com/sakif/shiptrack/internal/model"
)

// newTestDB returns a fresh in-memory database closed at the end of the test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser upserts a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, twitterID, handle string) *model.User {
	t.Helper()
	user := &model.User{
		TwitterID:     twitterID,
		TwitterHandle: handle,
		Name:          handle + " name",
		PhotoURL:      "https://pbs.twimg.com/profile_images/" + handle + ".jpg",
	}
	if err := db.Upsert(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// onboard marks a user onboarded with the given project.
func onboard(t *testing.T, db *DB, u *model.User, project string) {
	t.Helper()
	u.ProjectDescription = project
	u.CommitmentLevel = model.CommitmentSerious
	u.IsOnboarded = true
	if err := db.UpdateProfile(context.Background(), u); err != nil {
		t.Fatalf("failed to onboard test user: %v", err)
	}
}

// =========================================================================
// UPSERT TESTS
// =========================================================================

func TestUpsert_CreatesUser(t *testing.T) {
	db := newTestDB(t)

	user := createTestUser(t, db, "1001", "ada")

	if user.ID == "" {
		t.Error("Upsert() did not set user.ID")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Upsert() did not set timestamps")
	}
	if user.CommitmentLevel != model.CommitmentCasual {
		t.Errorf("CommitmentLevel = %q, want %q", user.CommitmentLevel, model.CommitmentCasual)
	}
	if user.IsOnboarded {
		t.Error("new user should not be onboarded")
	}
}

func TestUpsert_ExistingUserKeepsIDAndStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := createTestUser(t, db, "1001", "ada")
	onboard(t, db, first, "a tiny compiler")
	if err := db.UpdateStats(ctx, first.ID, model.Stats{StreakCount: 4, TotalShips: 9, Stars: 12}); err != nil {
		t.Fatalf("UpdateStats() error = %v", err)
	}

	again := &model.User{TwitterID: "1001", TwitterHandle: "ada_builds", Name: "Ada L."}
	if err := db.Upsert(ctx, again); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if again.ID != first.ID {
		t.Errorf("ID changed on re-login: %q -> %q", first.ID, again.ID)
	}
	if again.TwitterHandle != "ada_builds" {
		t.Errorf("TwitterHandle = %q, want refreshed handle", again.TwitterHandle)
	}
	if again.TotalShips != 9 || again.StreakCount != 4 || again.Stars != 12 {
		t.Errorf("stats not preserved: %+v", again.Stats)
	}
	if again.ProjectDescription != "a tiny compiler" || !again.IsOnboarded {
		t.Error("onboarding answers not preserved")
	}
}

func TestUpsert_RequiresTwitterID(t *testing.T) {
	db := newTestDB(t)

	err := db.Upsert(context.Background(), &model.User{TwitterHandle: "nobody"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Upsert() error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// GET / LIST TESTS
// =========================================================================

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestListUsers(t *testing.T) {
	db := newTestDB(t)

	empty, err := db.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListUsers() on empty db returned %d users", len(empty))
	}

	for i := 0; i < 3; i++ {
		createTestUser(t, db, fmt.Sprintf("%d", 2000+i), fmt.Sprintf("user%d", i))
	}

	users, err := db.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 3 {
		t.Errorf("ListUsers() returned %d users, want 3", len(users))
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdateProfile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "1001", "ada")

	user.Email = "ada@example.com"
	onboard(t, db, user, "a tiny compiler")

	got, err := db.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Errorf("Email = %q", got.Email)
	}
	if got.CommitmentLevel != model.CommitmentSerious {
		t.Errorf("CommitmentLevel = %q", got.CommitmentLevel)
	}
	if !got.IsOnboarded {
		t.Error("IsOnboarded = false, want true")
	}
}

func TestUpdateProfile_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateProfile(context.Background(), &model.User{ID: "ghost"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateProfile() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateStats_RoundTripsLastShipDate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "1001", "ada")

	shipped := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	stats := model.Stats{
		StreakCount:       7,
		TotalShips:        50,
		Stars:             56,
		LastShipDate:      &shipped,
		LastCheckedPostID: "1780000000000000001",
	}
	if err := db.UpdateStats(ctx, user.ID, stats); err != nil {
		t.Fatalf("UpdateStats() error = %v", err)
	}

	got, err := db.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.StreakCount != 7 || got.TotalShips != 50 || got.Stars != 56 {
		t.Errorf("stats = %+v", got.Stats)
	}
	if got.LastShipDate == nil || !got.LastShipDate.Equal(shipped) {
		t.Errorf("LastShipDate = %v, want %v", got.LastShipDate, shipped)
	}
	if got.LastCheckedPostID != "1780000000000000001" {
		t.Errorf("LastCheckedPostID = %q", got.LastCheckedPostID)
	}

	// clearing the date stores NULL again
	stats.LastShipDate = nil
	if err := db.UpdateStats(ctx, user.ID, stats); err != nil {
		t.Fatalf("UpdateStats() error = %v", err)
	}
	got, _ = db.GetUserByID(ctx, user.ID)
	if got.LastShipDate != nil {
		t.Errorf("LastShipDate = %v, want nil", got.LastShipDate)
	}
}

func TestUpdateStats_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateStats(context.Background(), "ghost", model.Stats{})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateStats() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDeleteUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "1001", "ada")

	if err := db.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if _, err := db.GetUserByID(ctx, user.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteUser(ctx, user.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteUser() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LEADERBOARD TESTS
// =========================================================================

func TestLeaderboard_OrdersByShipsAndSkipsUnonboarded(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ships := map[string]int{"ada": 12, "grace": 30, "linus": 30, "ken": 2}
	streaks := map[string]int{"ada": 1, "grace": 2, "linus": 5, "ken": 0}
	i := 0
	for handle, n := range ships {
		u := createTestUser(t, db, fmt.Sprintf("%d", 3000+i), handle)
		i++
		onboard(t, db, u, handle+"'s project")
		if err := db.UpdateStats(ctx, u.ID, model.Stats{TotalShips: n, StreakCount: streaks[handle]}); err != nil {
			t.Fatalf("UpdateStats() error = %v", err)
		}
	}
	lurker := createTestUser(t, db, "3999", "lurker")
	if err := db.UpdateStats(ctx, lurker.ID, model.Stats{TotalShips: 99}); err != nil {
		t.Fatalf("UpdateStats() error = %v", err)
	}

	top, err := db.Leaderboard(ctx, 3)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("Leaderboard(3) returned %d entries", len(top))
	}
	want := []string{"linus", "grace", "ada"}
	for i, handle := range want {
		if top[i].TwitterHandle != handle {
			t.Errorf("top[%d] = %q, want %q", i, top[i].TwitterHandle, handle)
		}
	}
}

func TestLeaderboard_DefaultLimit(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 8; i++ {
		u := createTestUser(t, db, fmt.Sprintf("%d", 4000+i), fmt.Sprintf("u%d", i))
		onboard(t, db, u, "project")
	}

	top, err := db.Leaderboard(context.Background(), 0)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	if len(top) != 5 {
		t.Errorf("Leaderboard(0) returned %d entries, want default 5", len(top))
	}
}
