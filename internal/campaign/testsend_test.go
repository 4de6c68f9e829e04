package campaign

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/leadmail/internal/apperr"
	"github.com/foxzi/leadmail/internal/mailer"
	"github.com/foxzi/leadmail/internal/mailer/mailertest"
	"github.com/foxzi/leadmail/internal/models"
	"github.com/foxzi/leadmail/internal/store/memstore"
)

func TestVerifyTransport(t *testing.T) {
	ctx := context.Background()

	t.Run("settings incomplete", func(t *testing.T) {
		f := newFixture(t, Config{})
		require.NoError(t, f.store.Settings().SaveSMTP(ctx, &models.SMTPSettings{User: "u", Pass: "p"}))

		err := f.runner.VerifyTransport(ctx)
		assert.Equal(t, apperr.CodeConfigIncomplete, apperr.CodeOf(err))
		assert.Equal(t, "Settings incomplete", apperr.Message(err))
		assert.Empty(t, f.transport.cfgs)
	})

	t.Run("no settings at all", func(t *testing.T) {
		r := NewRunner(memstore.New(), Config{})
		assert.Equal(t, apperr.CodeConfigIncomplete, apperr.CodeOf(r.VerifyTransport(ctx)))
	})

	t.Run("connectivity failure carries the cause", func(t *testing.T) {
		f := newFixture(t, Config{})
		f.transport.verifyErr = &mailer.Error{Kind: mailer.KindConnect, Stage: "connect to smtp.example.com:587", Err: errors.New("no such host")}

		err := f.runner.VerifyTransport(ctx)
		assert.Equal(t, apperr.CodeConnectivity, apperr.CodeOf(err))
		assert.Contains(t, err.Error(), "no such host")
	})

	t.Run("success", func(t *testing.T) {
		f := newFixture(t, Config{})
		assert.NoError(t, f.runner.VerifyTransport(ctx))
	})

	t.Run("real server", func(t *testing.T) {
		srv := mailertest.Start(t, mailertest.WithAuth("u", "p"))
		s := memstore.New()
		require.NoError(t, s.Settings().SaveSMTP(ctx, &models.SMTPSettings{Host: srv.Host, Port: srv.Port, User: "u", Pass: "p"}))
		assert.NoError(t, NewRunner(s, Config{}).VerifyTransport(ctx))

		require.NoError(t, s.Settings().SaveSMTP(ctx, &models.SMTPSettings{Host: srv.Host, Port: srv.Port, User: "u", Pass: "bad"}))
		err := NewRunner(s, Config{}).VerifyTransport(ctx)
		assert.Equal(t, apperr.CodeConnectivity, apperr.CodeOf(err))
	})
}

func TestSendTest(t *testing.T) {
	ctx := context.Background()

	t.Run("email required", func(t *testing.T) {
		f := newFixture(t, Config{})
		_, err := f.runner.SendTest(ctx, "  ")
		assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
		assert.Equal(t, "Email required", apperr.Message(err))
	})

	t.Run("invalid address", func(t *testing.T) {
		f := newFixture(t, Config{})
		_, err := f.runner.SendTest(ctx, "not an address")
		assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
	})

	t.Run("smtp not configured", func(t *testing.T) {
		r := NewRunner(memstore.New(), Config{})
		_, err := r.SendTest(ctx, "me@example.com")
		assert.Equal(t, apperr.CodeConfigIncomplete, apperr.CodeOf(err))
		assert.Equal(t, "SMTP not configured", apperr.Message(err))
	})

	t.Run("sends fixed message", func(t *testing.T) {
		f := newFixture(t, Config{})
		_, err := f.runner.SendTest(ctx, "me@example.com")
		require.NoError(t, err)

		require.Len(t, f.transport.sent, 1)
		msg := f.transport.sent[0]
		assert.Equal(t, "me@example.com", msg.To)
		assert.Equal(t, TestSubject, msg.Subject)
		assert.Equal(t, TestBody, msg.HTML)
		assert.Equal(t, `"Jane" <jane@co.com>`, msg.From)
	})

	t.Run("send failure is returned", func(t *testing.T) {
		f := newFixture(t, Config{})
		f.transport.failFor["me@example.com"] = &mailer.Error{Kind: mailer.KindRecipient, Stage: "RCPT TO me@example.com", Err: errors.New("550 no")}
		_, err := f.runner.SendTest(ctx, "me@example.com")
		assert.Equal(t, apperr.CodeRecipientSend, apperr.CodeOf(err))
	})

	t.Run("real server", func(t *testing.T) {
		srv := mailertest.Start(t, mailertest.WithAuth("u@example.com", "p"))
		s := memstore.New()
		require.NoError(t, s.Settings().SaveSMTP(ctx, &models.SMTPSettings{Host: srv.Host, Port: srv.Port, User: "u@example.com", Pass: "p"}))

		receipt, err := NewRunner(s, Config{}).SendTest(ctx, "me@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, receipt.MessageID)

		msgs := srv.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "u@example.com", msgs[0].From)
		assert.Contains(t, string(msgs[0].Data), "Subject: "+TestSubject)
	})
}
