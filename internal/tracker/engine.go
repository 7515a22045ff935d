package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/shiptrack/internal/metrics"
	"github.com/sakif/shiptrack/internal/model"
)

// ErrRunInProgress is returned when Run is called while another run in the
// same process has not finished.
var ErrRunInProgress = errors.New("tracker: run already in progress")

// UserStore is the slice of the repository the engine needs.
type UserStore interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateStats(ctx context.Context, id string, stats model.Stats) error
}

// Fetcher returns recent posts, newest first. It never fails.
type Fetcher interface {
	Fetch(ctx context.Context, handle string) []model.Post
}

// Classifier judges whether a post is an update about the project.
type Classifier interface {
	Classify(ctx context.Context, postText, projectDescription string) (bool, error)
}

// Notifier sends one email and reports whether it went out.
type Notifier interface {
	Send(ctx context.Context, n model.Notification) bool
}

// RunSummary describes one completed run.
type RunSummary struct {
	Users    int           `json:"users"`
	Eligible int           `json:"eligible"`
	Shipped  int           `json:"shipped"`
	Reset    int           `json:"reset"`
	Notified int           `json:"notified"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Engine evaluates every tracked user once per Run.
type Engine struct {
	store      UserStore
	fetcher    Fetcher
	classifier Classifier
	notifier   Notifier
	logger     *slog.Logger
	now        func() time.Time
	loc        *time.Location

	running sync.Mutex
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// New builds an Engine. Options override the clock and the calendar zone.
func New(store UserStore, fetcher Fetcher, classifier Classifier, notifier Notifier, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		fetcher:    fetcher,
		classifier: classifier,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
		loc:        time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates all users sequentially. Per-user failures are logged and
// counted; only a failure to list users fails the run.
func (e *Engine) Run(ctx context.Context) (RunSummary, error) {
	if !e.running.TryLock() {
		metrics.TrackerRuns.WithLabelValues("skipped").Inc()
		return RunSummary{}, ErrRunInProgress
	}
	defer e.running.Unlock()

	start := time.Now()
	var sum RunSummary

	users, err := e.store.ListUsers(ctx)
	if err != nil {
		metrics.ObserveRun("failed", start)
		return sum, fmt.Errorf("tracker: listing users: %w", err)
	}
	sum.Users = len(users)
	e.logger.Info("tracker: run started", "users", len(users))

	for i := range users {
		if err := ctx.Err(); err != nil {
			sum.Duration = time.Since(start)
			metrics.ObserveRun("failed", start)
			return sum, err
		}
		u := &users[i]
		if !u.Trackable() {
			continue
		}
		sum.Eligible++

		out, err := e.evaluate(ctx, u)
		if err != nil {
			sum.Failed++
			metrics.UserErrors.Inc()
			e.logger.Error("tracker: user evaluation failed",
				"userID", u.ID,
				"handle", u.TwitterHandle,
				"error", err,
			)
			continue
		}
		if out.Shipped {
			sum.Shipped++
			metrics.Ships.Inc()
		}
		if out.Reset {
			sum.Reset++
			metrics.StreakResets.Inc()
		}
		sum.Notified += e.notify(ctx, u, out)
	}

	sum.Duration = time.Since(start)
	metrics.ObserveRun("ok", start)
	e.logger.Info("tracker: run finished",
		"users", sum.Users,
		"eligible", sum.Eligible,
		"shipped", sum.Shipped,
		"reset", sum.Reset,
		"notified", sum.Notified,
		"failed", sum.Failed,
		"duration", sum.Duration,
	)
	return sum, nil
}

// evaluate fetches, classifies and persists one user's transition.
func (e *Engine) evaluate(ctx context.Context, u *model.User) (Outcome, error) {
	posts := e.fetcher.Fetch(ctx, u.TwitterHandle)

	var found bool
	var postID string
	for _, p := range posts {
		// Everything from here on was already seen by an earlier run.
		if u.LastCheckedPostID != "" && p.ID == u.LastCheckedPostID {
			break
		}
		ok, err := e.classifier.Classify(ctx, p.Text, u.ProjectDescription)
		if err != nil {
			return Outcome{}, fmt.Errorf("classifying post %s: %w", p.ID, err)
		}
		if ok {
			found, postID = true, p.ID
			break
		}
	}

	out := Apply(u.Stats, found, postID, e.now(), e.loc)
	if out.Changed {
		if err := e.store.UpdateStats(ctx, u.ID, out.Stats); err != nil {
			return Outcome{}, fmt.Errorf("updating stats: %w", err)
		}
		u.Stats = out.Stats
	}
	return out, nil
}

// notify sends the outcome's notifications and returns how many went out.
func (e *Engine) notify(ctx context.Context, u *model.User, out Outcome) int {
	if len(out.Notify) == 0 {
		return 0
	}
	if u.Email == "" {
		e.logger.Debug("tracker: no email on file, skipping notifications", "userID", u.ID)
		return 0
	}

	sent := 0
	days := DaysSince(u.LastShipDate, e.now())
	for _, kind := range out.Notify {
		ok := e.notifier.Send(ctx, model.Notification{
			Kind:       kind,
			Email:      u.Email,
			Username:   u.TwitterHandle,
			Streak:     out.Stats.StreakCount,
			DaysSince:  days,
			TotalShips: out.Stats.TotalShips,
		})
		if ok {
			sent++
		}
	}
	return sent
}
