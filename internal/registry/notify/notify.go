// Package notify delivers confirmation emails and one-time codes.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNotConfigured is returned by senders with no endpoint configured.
var ErrNotConfigured = errors.New("notify: transport not configured")

// Mailer sends a single HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SMSSender sends a single text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// LogMailer writes messages to the log instead of sending them. Used in
// development when no mail API is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(ctx context.Context, to, subject, html string) error {
	m.Logger.InfoContext(ctx, "email not sent (log mailer)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("html_bytes", len(html)),
	)
	return nil
}

// LogSMSSender logs messages, including the body so codes can be read off
// a development console.
type LogSMSSender struct {
	Logger *slog.Logger
}

func (s LogSMSSender) SendSMS(ctx context.Context, to, body string) error {
	s.Logger.InfoContext(ctx, "sms not sent (log sender)",
		slog.String("to", to),
		slog.String("body", body),
	)
	return nil
}
