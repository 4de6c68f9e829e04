package campaign

import (
	"context"
	"fmt"
	"strings"

	"github.com/foxzi/leadmail/internal/address"
	"github.com/foxzi/leadmail/internal/apperr"
	"github.com/foxzi/leadmail/internal/mailer"
	"github.com/foxzi/leadmail/internal/metrics"
	"github.com/foxzi/leadmail/internal/models"
)

// Subject and HTML body of the SMTP confirmation message
const (
	TestSubject = "Test Email - Campaign Manager"
	TestBody    = "<h1>✓ Success!</h1><p>Your SMTP is working correctly!</p>"
)

// VerifyTransport checks that the stored SMTP settings reach a server
// that accepts the credentials. No message is sent.
func (r *Runner) VerifyTransport(ctx context.Context) error {
	settings, err := r.store.Settings().GetSMTP(ctx)
	if err != nil {
		return fmt.Errorf("failed to get smtp settings: %w", err)
	}
	if settings == nil || settings.Host == "" || !settings.HasCredentials() {
		return apperr.ConfigIncomplete("Settings incomplete")
	}

	err = r.newTransport(r.mailerConfig(settings)).Verify(ctx)
	metrics.IncSMTPCheck("verify", err)
	if err != nil {
		r.logger.Warn("smtp verify failed", "host", settings.Host, "error", err)
		return err
	}
	return nil
}

// SendTest sends a fixed confirmation message to one address
func (r *Runner) SendTest(ctx context.Context, to string) (*mailer.Receipt, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, apperr.Validation("Email required")
	}
	if err := address.Validate(to); err != nil {
		return nil, apperr.Validation("Invalid email address")
	}

	settings, err := r.store.Settings().GetSMTP(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get smtp settings: %w", err)
	}
	if !settings.HasCredentials() {
		return nil, apperr.ConfigIncomplete("SMTP not configured")
	}

	receipt, err := r.newTransport(r.mailerConfig(settings)).Send(ctx, testMessage(settings, to))
	metrics.IncSMTPCheck("test_send", err)
	if err != nil {
		r.logger.Warn("test email failed", "to", to, "error", err)
		return nil, err
	}

	r.logger.Info("test email sent", "to", to, "message_id", receipt.MessageID)
	return receipt, nil
}

func testMessage(s *models.SMTPSettings, to string) *mailer.Message {
	return &mailer.Message{
		From:    FromAddress(s),
		To:      to,
		Subject: TestSubject,
		HTML:    TestBody,
	}
}
