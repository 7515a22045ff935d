package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/shiptrack/internal/model"
	"github.com/sakif/shiptrack/internal/repository"
)

// Notifier sends one email and reports whether it went out.
type Notifier interface {
	Send(ctx context.Context, n model.Notification) bool
}

// NotificationResult is one line of the test-notifications report.
type NotificationResult struct {
	User      string                 `json:"user"`
	EmailType model.NotificationKind `json:"emailType"`
	Success   bool                   `json:"success"`
	Timestamp time.Time              `json:"timestamp"`
}

// NotificationService sends every template to every reachable user so an
// operator can eyeball them. It does not read or change stats.
type NotificationService struct {
	users    repository.UserRepository
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewNotificationService(users repository.UserRepository, notifier Notifier, logger *slog.Logger) *NotificationService {
	return &NotificationService{users: users, notifier: notifier, logger: logger, now: time.Now}
}

// samplePayloads fills each template with representative numbers.
func samplePayloads(email, handle string) []model.Notification {
	return []model.Notification{
		{Kind: model.NotifyEncouragement, Email: email, Username: handle, DaysSince: 5},
		{Kind: model.NotifyDisappointment, Email: email, Username: handle, DaysSince: 10},
		{Kind: model.NotifyStreak, Email: email, Username: handle, Streak: 7},
		{Kind: model.NotifyMilestone, Email: email, Username: handle, TotalShips: 50},
	}
}

// SendTestNotifications sends all four kinds to each user that has both a
// handle and an email. A failed send is reported, not returned.
func (s *NotificationService) SendTestNotifications(ctx context.Context) ([]NotificationResult, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/notifications: listing users: %w", err)
	}

	results := []NotificationResult{}
	for _, u := range users {
		if u.TwitterHandle == "" || u.Email == "" {
			continue
		}
		for _, n := range samplePayloads(u.Email, u.TwitterHandle) {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			results = append(results, NotificationResult{
				User:      u.TwitterHandle,
				EmailType: n.Kind,
				Success:   s.notifier.Send(ctx, n),
				Timestamp: s.now().UTC(),
			})
		}
	}

	s.logger.Info("test notifications sent", slog.Int("count", len(results)))
	return results, nil
}
