package mailer

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/leadmail/internal/mailer/mailertest"
)

func TestImplicitTLS(t *testing.T) {
	tests := []struct {
		port int
		want bool
	}{
		{port: 465, want: true},
		{port: 587, want: false},
		{port: 25, want: false},
		{port: 2525, want: false},
		{port: 0, want: false},
	}

	for _, tt := range tests {
		cfg := Config{Host: "smtp.example.com", Port: tt.port}
		if got := cfg.ImplicitTLS(); got != tt.want {
			t.Errorf("ImplicitTLS() port %d = %v, want %v", tt.port, got, tt.want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := New(Config{Host: "smtp.example.com"}).Config()

	assert.Equal(t, DefaultPort, cfg.EffectivePort())
	assert.Equal(t, "smtp.example.com:587", cfg.Addr())
	assert.Equal(t, 15*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 15*time.Second, cfg.GreetingTimeout)
	assert.Equal(t, 15*time.Second, cfg.SocketTimeout)
	assert.False(t, cfg.HasAuth())

	assert.False(t, Config{User: "u"}.HasAuth())
	assert.True(t, Config{User: "u", Pass: "p"}.HasAuth())
}

func TestFormatFrom(t *testing.T) {
	assert.Equal(t, `"Jane" <jane@co.com>`, FormatFrom("Jane", "jane@co.com"))
	assert.Equal(t, "jane@co.com", FormatFrom("", "jane@co.com"))
	assert.Equal(t, `"Jane \"JJ\" Doe" <j@co.com>`, FormatFrom(`Jane "JJ" Doe`, "j@co.com"))
}

func TestSendDeliversMessage(t *testing.T) {
	srv := mailertest.Start(t, mailertest.WithAuth("user@example.com", "secret"))

	tr := New(Config{Host: srv.Host, Port: srv.Port, User: "user@example.com", Pass: "secret"})
	receipt, err := tr.Send(context.Background(), &Message{
		From:    FormatFrom("Jane", "jane@example.com"),
		To:      "ana@example.org",
		Subject: "Great News About 12 Oak St",
		HTML:    "<h1>Hello Ana!</h1>",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", receipt.From)
	assert.Equal(t, "ana@example.org", receipt.To)
	assert.True(t, strings.HasSuffix(receipt.MessageID, "@example.com>"))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "jane@example.com", msgs[0].From)
	assert.Equal(t, []string{"ana@example.org"}, msgs[0].To)

	data := string(msgs[0].Data)
	assert.Contains(t, data, "Subject: Great News About 12 Oak St")
	assert.Contains(t, data, "Jane")
	assert.Contains(t, data, "text/html")
	assert.Contains(t, data, receipt.MessageID)
}

func TestSendUpgradesWithStartTLS(t *testing.T) {
	srv := mailertest.Start(t, mailertest.WithTLS(), mailertest.WithAuth("u", "p"))

	// Not 465, so the session starts in plaintext and upgrades; the
	// self-signed certificate is accepted
	tr := New(Config{Host: srv.Host, Port: srv.Port, User: "u", Pass: "p"})
	require.False(t, tr.Config().ImplicitTLS())

	_, err := tr.Send(context.Background(), &Message{From: "a@example.com", To: "b@example.com", Subject: "s", HTML: "b"})
	require.NoError(t, err)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].TLS)

	assert.NoError(t, tr.Verify(context.Background()))
}

func TestSendPlaintextWithoutStartTLS(t *testing.T) {
	srv := mailertest.Start(t)

	tr := New(Config{Host: srv.Host, Port: srv.Port})
	_, err := tr.Send(context.Background(), &Message{From: "a@example.com", To: "b@example.com", Subject: "s", HTML: "b"})
	require.NoError(t, err)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].TLS)
}

func TestSendWithoutHostNeverDials(t *testing.T) {
	srv := mailertest.Start(t)

	tr := New(Config{Host: "", Port: srv.Port})
	_, err := tr.Send(context.Background(), &Message{From: "a@example.com", To: "b@example.com", Subject: "s", HTML: "b"})
	require.Error(t, err)

	var me *Error
	require.True(t, errors.As(err, &me))
	assert.Equal(t, KindConnect, me.Kind)
	assert.ErrorIs(t, err, ErrNoHost)
	assert.True(t, IsConnectivity(err))
	assert.Empty(t, srv.Messages())

	assert.ErrorIs(t, tr.Verify(context.Background()), ErrNoHost)
}

func TestSendSignsWithSigner(t *testing.T) {
	srv := mailertest.Start(t)

	tr := New(Config{Host: srv.Host, Port: srv.Port}, WithSigner(prefixSigner("X-Signed: yes\r\n")))
	_, err := tr.Send(context.Background(), &Message{From: "a@example.com", To: "b@example.com", Subject: "s", HTML: "b"})
	require.NoError(t, err)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(string(msgs[0].Data), "X-Signed: yes"))
}

func TestSendSignerFailureSendsUnsigned(t *testing.T) {
	srv := mailertest.Start(t)

	tr := New(Config{Host: srv.Host, Port: srv.Port}, WithSigner(failingSigner{}))
	_, err := tr.Send(context.Background(), &Message{From: "a@example.com", To: "b@example.com", Subject: "s", HTML: "b"})
	require.NoError(t, err)
	assert.Len(t, srv.Messages(), 1)
}

func TestSendRecipientRejected(t *testing.T) {
	srv := mailertest.Start(t, mailertest.RejectRecipient("bad@example.org"))

	tr := New(Config{Host: srv.Host, Port: srv.Port})
	_, err := tr.Send(context.Background(), &Message{From: "a@example.com", To: "bad@example.org", Subject: "s", HTML: "b"})
	require.Error(t, err)

	var me *Error
	require.True(t, errors.As(err, &me))
	assert.Equal(t, KindRecipient, me.Kind)
	assert.Equal(t, 550, me.Code)
	assert.False(t, me.Temporary)
	assert.False(t, IsConnectivity(err))
	assert.Contains(t, err.Error(), "RCPT TO bad@example.org")
	assert.Contains(t, err.Error(), "mailbox unavailable")
	assert.Empty(t, srv.Messages())
}

func TestVerify(t *testing.T) {
	srv := mailertest.Start(t, mailertest.WithAuth("u", "p"))

	ok := New(Config{Host: srv.Host, Port: srv.Port, User: "u", Pass: "p"})
	assert.NoError(t, ok.Verify(context.Background()))

	bad := New(Config{Host: srv.Host, Port: srv.Port, User: "u", Pass: "wrong"})
	err := bad.Verify(context.Background())
	require.Error(t, err)

	var me *Error
	require.True(t, errors.As(err, &me))
	assert.Equal(t, KindAuth, me.Kind)
	assert.True(t, IsConnectivity(err))
}

func TestVerifyConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().(*net.TCPAddr)
	l.Close()

	tr := New(Config{Host: "127.0.0.1", Port: addr.Port, ConnectTimeout: time.Second})
	err = tr.Verify(context.Background())
	require.Error(t, err)

	var me *Error
	require.True(t, errors.As(err, &me))
	assert.Equal(t, KindConnect, me.Kind)
	assert.True(t, me.Temporary)
	assert.Contains(t, err.Error(), "connect to 127.0.0.1:")
}

func TestVerifyGreetingTimeout(t *testing.T) {
	// accepts connections but never greets
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	addr := l.Addr().(*net.TCPAddr)
	tr := New(Config{Host: "127.0.0.1", Port: addr.Port, GreetingTimeout: 200 * time.Millisecond})

	start := time.Now()
	err = tr.Verify(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnectivity(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      int
		temporary bool
	}{
		{name: "permanent from text", err: errors.New("550 5.1.1 user unknown"), code: 550, temporary: false},
		{name: "temporary from text", err: errors.New("421 try later"), code: 421, temporary: true},
		{name: "no code", err: errors.New("connection reset by peer"), code: 0, temporary: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := categorize(KindRecipient, "RCPT TO x", tt.err)
			if e.Code != tt.code {
				t.Errorf("Code = %d, want %d", e.Code, tt.code)
			}
			if e.Temporary != tt.temporary {
				t.Errorf("Temporary = %v, want %v", e.Temporary, tt.temporary)
			}
			if IsTemporary(e) != tt.temporary {
				t.Errorf("IsTemporary() = %v, want %v", IsTemporary(e), tt.temporary)
			}
		})
	}

	if !IsTemporary(errors.New("unknown")) {
		t.Error("unknown errors should be temporary")
	}
}

type prefixSigner string

func (p prefixSigner) Sign(msg []byte) ([]byte, error) {
	return append([]byte(p), msg...), nil
}

type failingSigner struct{}

func (failingSigner) Sign([]byte) ([]byte, error) {
	return nil, errors.New("no key")
}
