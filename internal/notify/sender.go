package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// Message is one rendered email ready for a transport.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender delivers a Message. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendSender delivers messages through the Resend API client.
type ResendSender struct {
	client *resend.Client
}

// NewResendSender builds a sender for apiKey. An empty baseURL keeps the
// client's default endpoint; a nil httpClient gets a 10s timeout.
func NewResendSender(apiKey, baseURL string, httpClient *http.Client) *ResendSender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	client := resend.NewCustomClient(httpClient, apiKey)
	if baseURL != "" {
		// The client resolves "emails" against BaseURL, so it needs a trailing slash.
		if u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/"); err == nil {
			client.BaseURL = u
		}
	}
	return &ResendSender{client: client}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("notify: resend: %w", err)
	}
	return nil
}

// LogSender logs messages instead of delivering them. Used when no email API
// key is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Logger.Info("notify: email not sent, no transport configured",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}
