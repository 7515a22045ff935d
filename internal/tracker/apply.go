// Package tracker runs the daily evaluation: fetch each user's recent posts,
// classify them, update streak statistics and queue notifications.
package tracker

import (
	"time"

	"github.com/sakif/shiptrack/internal/model"
)

const (
	streakEvery    = 7
	milestoneEvery = 50

	encourageAfterDays    = 3
	disappointedAfterDays = 7

	starsPerShip       = 1
	starsPerStreakWeek = 5
)

// Outcome is the result of applying one evaluation to a user's stats.
type Outcome struct {
	Stats   model.Stats
	Notify  []model.NotificationKind
	Changed bool
	Shipped bool
	Reset   bool
}

// Apply computes the state transition for a single user. found reports
// whether a qualifying post was seen, postID names it. Calendar days are
// taken in loc. Apply is pure.
//
// A user who already shipped today is left alone whether or not a post was
// found: later runs the same day stop at the post that was counted.
func Apply(stats model.Stats, found bool, postID string, now time.Time, loc *time.Location) Outcome {
	if loc == nil {
		loc = time.Local
	}
	if shippedToday(stats, now, loc) {
		return Outcome{Stats: stats}
	}
	if found {
		return applyShip(stats, postID, now, loc)
	}
	return applyMiss(stats, now)
}

func shippedToday(stats model.Stats, now time.Time, loc *time.Location) bool {
	return stats.LastShipDate != nil && civilDay(*stats.LastShipDate, loc).Equal(civilDay(now, loc))
}

func applyShip(stats model.Stats, postID string, now time.Time, loc *time.Location) Outcome {
	today := civilDay(now, loc)

	// A gap of more than one day keeps the current streak rather than
	// restarting it at one. The miss cycle in between normally reset it.
	increment := 0
	if stats.LastShipDate == nil || civilDay(*stats.LastShipDate, loc).AddDate(0, 0, 1).Equal(today) {
		increment = 1
	}

	next := stats
	next.StreakCount += increment
	next.TotalShips++
	shippedAt := now
	next.LastShipDate = &shippedAt
	next.LastCheckedPostID = postID

	var kinds []model.NotificationKind
	if next.StreakCount > 0 && next.StreakCount%streakEvery == 0 {
		next.Stars += starsPerStreakWeek
		kinds = append(kinds, model.NotifyStreak)
	} else {
		next.Stars += starsPerShip
	}
	if next.TotalShips%milestoneEvery == 0 {
		kinds = append(kinds, model.NotifyMilestone)
	}

	return Outcome{Stats: next, Notify: kinds, Changed: true, Shipped: true}
}

func applyMiss(stats model.Stats, now time.Time) Outcome {
	out := Outcome{Stats: stats}

	switch days := DaysSince(stats.LastShipDate, now); {
	case days >= disappointedAfterDays:
		out.Notify = []model.NotificationKind{model.NotifyDisappointment}
	case days >= encourageAfterDays:
		out.Notify = []model.NotificationKind{model.NotifyEncouragement}
	}

	if stats.StreakCount > 0 {
		out.Stats.StreakCount = 0
		out.Changed = true
		out.Reset = true
	}
	return out
}

// DaysSince returns whole 24h periods elapsed since last, or 0 when the user
// has never shipped.
func DaysSince(last *time.Time, now time.Time) int {
	if last == nil {
		return 0
	}
	d := now.Sub(*last)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
