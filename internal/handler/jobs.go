package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/shiptrack/internal/apperror"
	"github.com/sakif/shiptrack/internal/auth"
	"github.com/sakif/shiptrack/internal/service"
	"github.com/sakif/shiptrack/internal/tracker"
)

// TrackerRunner runs one tracking pass. Satisfied by *tracker.Engine.
type TrackerRunner interface {
	Run(ctx context.Context) (tracker.RunSummary, error)
}

// NotificationTester sends every email template to every reachable user.
type NotificationTester interface {
	SendTestNotifications(ctx context.Context) ([]service.NotificationResult, error)
}

// JobsHandler exposes the batch jobs for an external cron.
//
// When a cron secret hash is configured the caller must send
// "Authorization: Bearer <secret>"; without one the endpoints are open,
// which is only meant for local development.
type JobsHandler struct {
	runner TrackerRunner
	tester NotificationTester
	cron   *auth.SecretVerifier
	logger *slog.Logger
}

func NewJobsHandler(runner TrackerRunner, tester NotificationTester, cron *auth.SecretVerifier, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{runner: runner, tester: tester, cron: cron, logger: logger}
}

type checkTweetsResponse struct {
	Success bool                `json:"success"`
	Summary *tracker.RunSummary `json:"summary,omitempty"`
}

type failureResponse struct {
	Error string `json:"error"`
}

// HandleCheckTweets runs the tracker once and waits for it to finish.
//
// HTTP: GET /api/check-tweets
// RESPONSE: {"success": true, "summary": {...}}  or  500 {"error": "Failed to check tweets"}
//
// The run is detached from the request context so a cron client hanging up
// does not abort a half-finished batch.
func (h *JobsHandler) HandleCheckTweets(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	sum, err := h.runner.Run(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, tracker.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, failureResponse{Error: "Tracker run already in progress"})
		return
	case err != nil:
		h.logger.Error("check-tweets failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, failureResponse{Error: "Failed to check tweets"})
		return
	}
	writeJSON(w, http.StatusOK, checkTweetsResponse{Success: true, Summary: &sum})
}

type testNotificationsResponse struct {
	Success bool                         `json:"success"`
	Results []service.NotificationResult `json:"results"`
	Message string                       `json:"message"`
}

// HandleTestNotifications sends all four templates to every user with an
// email address and reports each attempt.
//
// HTTP: GET /api/test-notifications
func (h *JobsHandler) HandleTestNotifications(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	results, err := h.tester.SendTestNotifications(context.WithoutCancel(r.Context()))
	if err != nil {
		h.logger.Error("test-notifications failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, failureResponse{Error: "Failed to run test notifications"})
		return
	}
	writeJSON(w, http.StatusOK, testNotificationsResponse{
		Success: true,
		Results: results,
		Message: fmt.Sprintf("Tested %d email notifications", len(results)),
	})
}

func (h *JobsHandler) authorized(w http.ResponseWriter, r *http.Request) bool {
	if h.cron == nil {
		return true
	}
	secret, ok := auth.BearerToken(r)
	if !ok || h.cron.Verify(secret) != nil {
		h.logger.Warn("cron endpoint: rejected request", slog.String("path", r.URL.Path))
		writeError(w, apperror.Unauthorized("valid cron secret required"))
		return false
	}
	return true
}
