// Package mailer delivers messages through a configured SMTP server.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/foxzi/leadmail/internal/address"
)

// Signer signs a raw message, e.g. with DKIM
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// Option configures a Transport
type Option func(*Transport)

// WithSigner signs every message before DATA
func WithSigner(s Signer) Option {
	return func(t *Transport) { t.signer = s }
}

// WithLogger sets the transport logger
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// Transport sends mail through one SMTP server. Every call opens its own
// connection, so a broken session never affects the next message.
type Transport struct {
	cfg    Config
	signer Signer
	logger *slog.Logger
}

// New builds a transport. It never touches the network.
func New(cfg Config, opts ...Option) *Transport {
	t := &Transport{
		cfg:    cfg.withDefaults(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "mailer", "smtp_addr", t.cfg.Addr())
	return t
}

// Config returns the effective configuration
func (t *Transport) Config() Config {
	return t.cfg
}

// Verify connects, greets, negotiates TLS, authenticates and quits
func (t *Transport) Verify(ctx context.Context) error {
	c, done, err := t.open(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := c.Quit(); err != nil {
		t.logger.Debug("QUIT failed", "error", err)
	}
	return nil
}

// Send delivers one message
func (t *Transport) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	data, id, err := msg.compose()
	if err != nil {
		return nil, &Error{Kind: KindData, Stage: "compose", Temporary: false, Err: err}
	}

	if t.signer != nil {
		signed, err := t.signer.Sign(data)
		if err != nil {
			t.logger.Warn("DKIM signing failed, sending unsigned", "error", err)
		} else {
			data = signed
		}
	}

	c, done, err := t.open(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	from := address.Bare(msg.From)
	if from == "" {
		from = t.cfg.User
	}
	to := address.Bare(msg.To)

	if err := c.Mail(from, nil); err != nil {
		return nil, categorize(KindSender, "MAIL FROM", err)
	}
	if err := c.Rcpt(to, nil); err != nil {
		return nil, categorize(KindRecipient, fmt.Sprintf("RCPT TO %s", to), err)
	}

	wc, err := c.Data()
	if err != nil {
		return nil, categorize(KindData, "DATA", err)
	}
	if _, err := bytes.NewReader(data).WriteTo(wc); err != nil {
		wc.Close()
		return nil, categorize(KindData, "DATA", err)
	}
	if err := wc.Close(); err != nil {
		return nil, categorize(KindData, "DATA close", err)
	}

	if err := c.Quit(); err != nil {
		t.logger.Debug("QUIT failed", "error", err)
	}

	t.logger.Debug("message sent", "to", to, "message_id", id)
	return &Receipt{MessageID: id, From: from, To: to}, nil
}

// open returns a greeted, TLS-upgraded and authenticated client.
// done closes the connection and must always be called.
func (t *Transport) open(ctx context.Context) (*smtp.Client, func(), error) {
	cfg := t.cfg
	if cfg.Host == "" {
		return nil, nil, &Error{Kind: KindConnect, Stage: "connect", Temporary: false, Err: ErrNoHost}
	}

	tlsConfig := &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: true, // self-signed relays are accepted
	}

	c, done, err := t.connect(ctx, tlsConfig)
	if err != nil {
		return nil, nil, err
	}

	// go-smtp only upgrades while building the client, so a server that
	// offers STARTTLS is dialed a second time
	if !cfg.ImplicitTLS() {
		if ok, _ := c.Extension("STARTTLS"); ok {
			done()
			if c, done, err = t.connectStartTLS(ctx, tlsConfig); err != nil {
				return nil, nil, err
			}
		}
	}

	if cfg.HasAuth() {
		var auth sasl.Client
		if !c.SupportsAuth(sasl.Plain) && c.SupportsAuth(sasl.Login) {
			auth = sasl.NewLoginClient(cfg.User, cfg.Pass)
		} else {
			auth = sasl.NewPlainClient("", cfg.User, cfg.Pass)
		}
		if err := c.Auth(auth); err != nil {
			done()
			return nil, nil, categorize(KindAuth, "AUTH", err)
		}
	}

	return c, done, nil
}

func (t *Transport) dial(ctx context.Context, tlsConfig *tls.Config) (net.Conn, func() bool, error) {
	cfg := t.cfg
	addr := cfg.Addr()

	netDialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	var conn net.Conn
	var err error
	if cfg.ImplicitTLS() {
		d := &tls.Dialer{NetDialer: netDialer, Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = netDialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, nil, categorize(KindConnect, "connect to "+addr, err)
	}

	// go-smtp has no context support; closing the socket unblocks it
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	return conn, stop, nil
}

// connect dials and greets. On port 465 the session is already encrypted.
func (t *Transport) connect(ctx context.Context, tlsConfig *tls.Config) (*smtp.Client, func(), error) {
	cfg := t.cfg
	conn, stop, err := t.dial(ctx, tlsConfig)
	if err != nil {
		return nil, nil, err
	}

	c := smtp.NewClient(conn)
	done := func() {
		stop()
		c.Close()
	}

	// The greeting is read by the first command and bounded by CommandTimeout
	c.CommandTimeout = cfg.GreetingTimeout
	if err := c.Hello(cfg.HeloName); err != nil {
		done()
		return nil, nil, categorize(KindConnect, "EHLO", err)
	}
	c.CommandTimeout = cfg.SocketTimeout
	c.SubmissionTimeout = cfg.SocketTimeout
	return c, done, nil
}

// connectStartTLS dials in plaintext and upgrades before anything else
func (t *Transport) connectStartTLS(ctx context.Context, tlsConfig *tls.Config) (*smtp.Client, func(), error) {
	cfg := t.cfg
	conn, stop, err := t.dial(ctx, tlsConfig)
	if err != nil {
		return nil, nil, err
	}

	// NewClientStartTLS reads the greeting and runs EHLO and STARTTLS
	// before timeouts can be set on the client
	conn.SetDeadline(time.Now().Add(cfg.GreetingTimeout + cfg.SocketTimeout))
	c, err := smtp.NewClientStartTLS(conn, tlsConfig)
	if err != nil {
		stop()
		conn.Close()
		return nil, nil, categorize(KindTLS, "STARTTLS", err)
	}
	conn.SetDeadline(time.Time{})

	done := func() {
		stop()
		c.Close()
	}

	c.CommandTimeout = cfg.SocketTimeout
	c.SubmissionTimeout = cfg.SocketTimeout
	if err := c.Hello(cfg.HeloName); err != nil {
		done()
		return nil, nil, categorize(KindTLS, "EHLO after STARTTLS", err)
	}
	return c, done, nil
}
