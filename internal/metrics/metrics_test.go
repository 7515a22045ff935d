package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposure(t *testing.T) {
	ObserveRun("ok", time.Now().Add(-1500*time.Millisecond))
	UserErrors.Inc()
	Ships.Inc()
	StreakResets.Inc()
	IncNotification("streak", true)
	IncNotification("milestone", false)
	ClassifierCalls.WithLabelValues("true").Inc()
	IncAPIRetry("/users/:id/tweets")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"shiptrack_tracker_runs_total",
		"shiptrack_tracker_duration_seconds",
		"shiptrack_tracker_user_errors_total",
		"shiptrack_ships_total",
		"shiptrack_streak_resets_total",
		`shiptrack_notifications_total{kind="milestone",result="failed"}`,
		`shiptrack_classifier_calls_total{result="true"}`,
		"shiptrack_api_retries_total",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}
