package mailer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jordan-wright/email"

	"github.com/foxzi/leadmail/internal/address"
)

// Message is one outgoing HTML email
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Receipt describes an accepted message
type Receipt struct {
	MessageID string
	From      string
	To        string
}

// FormatFrom renders a display name and address as `"Name" <address>`,
// or the bare address when name is empty
func FormatFrom(name, addr string) string {
	if name == "" {
		return addr
	}
	return `"` + strings.ReplaceAll(name, `"`, `\"`) + `" <` + addr + ">"
}

func messageID(from string) string {
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), address.DomainOrDefault(from, "localhost"))
}

// compose renders the message as RFC 5322 bytes and returns its Message-ID
func (m *Message) compose() ([]byte, string, error) {
	id := messageID(m.From)

	e := email.NewEmail()
	e.From = m.From
	e.To = []string{m.To}
	e.Subject = m.Subject
	e.HTML = []byte(m.HTML)
	e.Headers.Set("Message-Id", id)

	raw, err := e.Bytes()
	if err != nil {
		return nil, "", fmt.Errorf("failed to compose message: %w", err)
	}
	return raw, id, nil
}
