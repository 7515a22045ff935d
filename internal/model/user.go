// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// CommitmentLevel is the cadence a user says they intend to ship at.
// It is advisory: the tracker never enforces it.
type CommitmentLevel string

const (
	CommitmentCasual   CommitmentLevel = "casual"
	CommitmentSerious  CommitmentLevel = "serious"
	CommitmentHardcore CommitmentLevel = "hardcore"
)

// ParseCommitmentLevel normalises user input into a CommitmentLevel.
// "regular" and "intense" are accepted as aliases for serious and hardcore.
func ParseCommitmentLevel(s string) (CommitmentLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "casual":
		return CommitmentCasual, true
	case "serious", "regular":
		return CommitmentSerious, true
	case "hardcore", "intense":
		return CommitmentHardcore, true
	}
	return "", false
}

// Stats holds the counters the tracker maintains for a user.
//
// TotalShips never decreases. StreakCount drops to zero whenever a
// tracking cycle finds no valid update.
type Stats struct {
	StreakCount       int        `json:"streakCount"       db:"streak_count"`
	TotalShips        int        `json:"totalShips"        db:"total_ships"`
	Stars             int        `json:"stars"             db:"stars"`
	LastShipDate      *time.Time `json:"lastShipDate"      db:"last_ship_date"`
	LastCheckedPostID string     `json:"lastCheckedPostId" db:"last_checked_post_id"`
}

// User represents an account linked to an X (Twitter) profile and a project.
//
// TwitterID is the stable numeric id X hands back from OAuth. We keep our own
// xid as the primary key so the store is not tied to X's numbering.
type User struct {
	ID                 string          `json:"id"                 db:"id"`
	TwitterID          string          `json:"twitterId"          db:"twitter_id"`
	TwitterHandle      string          `json:"twitterHandle"      db:"twitter_handle"` // without the leading @
	Name               string          `json:"name"               db:"name"`
	Email              string          `json:"email"              db:"email"` // X does not share email; set during onboarding
	PhotoURL           string          `json:"photoURL"           db:"photo_url"`
	ProjectDescription string          `json:"projectDescription" db:"project_description"`
	CommitmentLevel    CommitmentLevel `json:"commitmentLevel"    db:"commitment_level"`
	IsOnboarded        bool            `json:"isOnboarded"        db:"is_onboarded"`
	Stats
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Trackable reports whether the tracker should evaluate this user.
func (u *User) Trackable() bool {
	return u.TwitterHandle != "" && u.IsOnboarded && strings.TrimSpace(u.ProjectDescription) != ""
}

// LeaderboardEntry is the public projection of a user shown on the leaderboard.
type LeaderboardEntry struct {
	ID                 string          `json:"id"`
	TwitterHandle      string          `json:"twitterHandle"`
	CommitmentLevel    CommitmentLevel `json:"commitmentLevel"`
	ProjectDescription string          `json:"projectDescription"`
	TotalShips         int             `json:"totalShips"`
	StreakCount        int             `json:"streakCount"`
	Stars              int             `json:"stars"`
}
