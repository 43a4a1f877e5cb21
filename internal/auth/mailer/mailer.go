// Package mailer abstracts outbound account email. Production wires an SMTP
// or API-backed implementation; development logs the links instead.
package mailer

import (
	"context"
	"log/slog"
)

// Mailer dispatches the two account emails the service sends.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes the would-be emails to the log. Default in development.
type LogMailer struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerification(ctx context.Context, email, token string) error {
	m.logger.InfoContext(ctx, "verification email (dev mailer)",
		"email", email,
		"token", token,
	)
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.logger.InfoContext(ctx, "password reset email (dev mailer)",
		"email", email,
		"token", token,
	)
	return nil
}
