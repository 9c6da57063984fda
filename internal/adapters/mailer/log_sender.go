package mailer

// Package mailer delivers password reset links. LogSender writes them to the
// structured log, which is how local and staging deployments hand links to testers.

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/kavach-app/kavach/internal/ports"
)

// ResetPath is the page that accepts a reset token.
const ResetPath = "/auth/reset"

// LogSender implements ports.ResetSender by logging the reset link.
type LogSender struct {
	baseURL string
	logger  *slog.Logger
}

var _ ports.ResetSender = (*LogSender)(nil)

// NewLogSender creates a LogSender that builds links under baseURL.
func NewLogSender(baseURL string, logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger.With("component", "reset_mailer"),
	}
}

// Link returns the reset URL carrying token.
func (s *LogSender) Link(token string) string {
	return s.baseURL + ResetPath + "?" + url.Values{"token": {token}}.Encode()
}

// SendReset logs the reset link for email.
func (s *LogSender) SendReset(ctx context.Context, email, token string) error {
	if email == "" || token == "" {
		return errors.New("email and token are required")
	}
	s.logger.InfoContext(ctx, "password reset link issued", "email", email, "link", s.Link(token))
	return nil
}
