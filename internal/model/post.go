package model

import "time"

// Post is a single X post fetched for evaluation.
// Posts are never persisted; only the id of the post that counted as a ship
// survives, in Stats.LastCheckedPostID.
type Post struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
	AuthorHandle string    `json:"authorHandle"`
}

// NotificationKind selects one of the fixed email templates.
type NotificationKind string

const (
	NotifyEncouragement  NotificationKind = "encouragement"
	NotifyDisappointment NotificationKind = "disappointment"
	NotifyStreak         NotificationKind = "streak"
	NotifyMilestone      NotificationKind = "milestone"
)

// NotificationKinds lists every kind in a stable order.
var NotificationKinds = []NotificationKind{
	NotifyEncouragement,
	NotifyDisappointment,
	NotifyStreak,
	NotifyMilestone,
}

// Notification is a transient (kind, recipient, payload) tuple produced by the
// tracker and consumed immediately by the email dispatcher.
type Notification struct {
	Kind       NotificationKind
	Email      string
	Username   string
	Streak     int
	DaysSince  int
	TotalShips int
}
