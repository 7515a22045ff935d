package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/shiptrack/internal/apperror"
	"github.com/sakif/shiptrack/internal/model"
	"github.com/sakif/shiptrack/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, twitter_id, twitter_handle, name, email, photo_url,
	project_description, commitment_level, is_onboarded,
	streak_count, total_ships, stars, last_ship_date, last_checked_post_id,
	created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		level    string
		lastShip sql.NullTime
	)
	err := row.Scan(
		&u.ID,
		&u.TwitterID,
		&u.TwitterHandle,
		&u.Name,
		&u.Email,
		&u.PhotoURL,
		&u.ProjectDescription,
		&level,
		&u.IsOnboarded,
		&u.StreakCount,
		&u.TotalShips,
		&u.Stars,
		&lastShip,
		&u.LastCheckedPostID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.CommitmentLevel = model.CommitmentLevel(level)
	if lastShip.Valid {
		t := lastShip.Time
		u.LastShipDate = &t
	}
	return &u, nil
}

// Upsert inserts a new user or refreshes the X profile fields of an existing
// one, matching on twitter_id. Onboarding answers and stats are never touched
// here, so a re-login cannot reset a streak.
//
// On return user holds the canonical stored record.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	if user.TwitterID == "" {
		return apperror.ValidationFailed("twitterId", "twitter id is required")
	}

	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE twitter_id = ?`, user.TwitterID,
	).Scan(&existingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: looking up user by twitter_id %s: %w", user.TwitterID, err)
	}

	now := time.Now()
	if existingID != "" {
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET twitter_handle = ?, name = ?, photo_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.TwitterHandle,
			user.Name,
			user.PhotoURL,
			now,
			existingID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", existingID, err)
		}
	} else {
		existingID = xid.New().String()
		level := user.CommitmentLevel
		if level == "" {
			level = model.CommitmentCasual
		}
		_, err = db.conn.ExecContext(ctx,
			`INSERT INTO users (id, twitter_id, twitter_handle, name, email, photo_url,
			                    commitment_level, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			existingID,
			user.TwitterID,
			user.TwitterHandle,
			user.Name,
			user.Email,
			user.PhotoURL,
			string(level),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting user (twitterID=%s): %w", user.TwitterID, err)
		}
	}

	stored, err := db.GetUserByID(ctx, existingID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// ListUsers returns every stored user, oldest first.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// UpdateProfile writes the fields a user may edit about themselves.
func (db *DB) UpdateProfile(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET name = ?, email = ?, project_description = ?, commitment_level = ?,
		     is_onboarded = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name,
		user.Email,
		user.ProjectDescription,
		string(user.CommitmentLevel),
		user.IsOnboarded,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile %s: %w", user.ID, err)
	}
	return requireOneRow(result, user.ID)
}

// UpdateStats writes the tracker-owned counters for one user.
func (db *DB) UpdateStats(ctx context.Context, id string, stats model.Stats) error {
	var lastShip sql.NullTime
	if stats.LastShipDate != nil {
		lastShip = sql.NullTime{Time: *stats.LastShipDate, Valid: true}
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET streak_count = ?, total_ships = ?, stars = ?, last_ship_date = ?,
		     last_checked_post_id = ?, updated_at = ?
		 WHERE id = ?`,
		stats.StreakCount,
		stats.TotalShips,
		stats.Stars,
		lastShip,
		stats.LastCheckedPostID,
		time.Now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating stats %s: %w", id, err)
	}
	return requireOneRow(result, id)
}

// DeleteUser removes the user record permanently.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	return requireOneRow(result, id)
}

// Leaderboard returns onboarded users ranked by total ships, then streak.
func (db *DB) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = repository.DefaultLeaderboardLimit
	}
	if limit > repository.MaxLeaderboardLimit {
		limit = repository.MaxLeaderboardLimit
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, twitter_handle, commitment_level, project_description,
		        total_ships, streak_count, stars
		 FROM users
		 WHERE is_onboarded = 1
		 ORDER BY total_ships DESC, streak_count DESC, created_at
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]model.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var (
			e     model.LeaderboardEntry
			level string
		)
		if err := rows.Scan(
			&e.ID, &e.TwitterHandle, &level, &e.ProjectDescription,
			&e.TotalShips, &e.StreakCount, &e.Stars,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning leaderboard row: %w", err)
		}
		e.CommitmentLevel = model.CommitmentLevel(level)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating leaderboard: %w", err)
	}
	return entries, nil
}

// requireOneRow turns "no rows affected" into a NotFound error.
func requireOneRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
