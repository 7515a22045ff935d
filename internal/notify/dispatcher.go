// Package notify renders and sends the four notification emails.
package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/shiptrack/internal/metrics"
	"github.com/sakif/shiptrack/internal/model"
)

// DefaultFrom is the sender address used when none is configured.
const DefaultFrom = "Ship <notifications@ship.vennlabs.io>"

// Dispatcher turns notifications into emails. It never returns an error:
// every failure is logged and reported as false.
type Dispatcher struct {
	sender Sender
	from   string
	logger *slog.Logger
}

func NewDispatcher(sender Sender, from string, logger *slog.Logger) *Dispatcher {
	if from == "" {
		from = DefaultFrom
	}
	return &Dispatcher{sender: sender, from: from, logger: logger}
}

// Send renders n and hands it to the transport once.
func (d *Dispatcher) Send(ctx context.Context, n model.Notification) bool {
	ok := d.send(ctx, n)
	metrics.IncNotification(string(n.Kind), ok)
	return ok
}

func (d *Dispatcher) send(ctx context.Context, n model.Notification) bool {
	to := strings.TrimSpace(n.Email)
	if to == "" {
		d.logger.Error("notify: missing recipient", "kind", n.Kind, "username", n.Username)
		return false
	}

	subject, body, err := Render(n)
	if err != nil {
		d.logger.Error("notify: render failed", "kind", n.Kind, "error", err)
		return false
	}

	err = d.sender.Send(ctx, Message{
		From:    d.from,
		To:      []string{to},
		Subject: subject,
		HTML:    body,
	})
	if err != nil {
		d.logger.Error("notify: send failed", "kind", n.Kind, "to", to, "error", err)
		return false
	}

	d.logger.Info("notify: email sent", "kind", n.Kind, "to", to)
	return true
}
