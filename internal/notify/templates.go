package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/sakif/shiptrack/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// subjects are plain text, so they are formatted outside html/template.
var subjects = map[model.NotificationKind]func(model.Notification) string{
	model.NotifyEncouragement:  func(model.Notification) string { return "Hey! We miss your updates!" },
	model.NotifyDisappointment: func(model.Notification) string { return "We're worried about your progress" },
	model.NotifyStreak: func(n model.Notification) string {
		return fmt.Sprintf("🔥 %d Day Streak! Keep it up!", n.Streak)
	},
	model.NotifyMilestone: func(n model.Notification) string {
		return fmt.Sprintf("🎉 Milestone Alert: %d Updates!", n.TotalShips)
	},
}

// Render returns the subject and HTML body for n.
func Render(n model.Notification) (subject, body string, err error) {
	subjectFn, ok := subjects[n.Kind]
	if !ok {
		return "", "", fmt.Errorf("notify: unknown notification kind %q", n.Kind)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(n.Kind), n); err != nil {
		return "", "", fmt.Errorf("notify: rendering %s: %w", n.Kind, err)
	}
	return subjectFn(n), buf.String(), nil
}
