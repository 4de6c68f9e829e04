// Package address holds small helpers for RFC 5322 mailbox strings.
package address

import (
	"errors"
	"net/mail"
	"strings"
)

var ErrInvalid = errors.New("invalid email address")

// Bare extracts the bare address from a header value such as
// `"Jane" <jane@example.com>`. Unparseable input is returned trimmed.
func Bare(s string) string {
	if addr, err := mail.ParseAddress(s); err == nil {
		return addr.Address
	}
	return strings.TrimSpace(s)
}

// Domain extracts the lower-cased domain part of an address.
// Returns empty string if there is none.
func Domain(s string) string {
	a := Bare(s)
	at := strings.LastIndex(a, "@")
	if at <= 0 || at == len(a)-1 {
		return ""
	}
	return strings.ToLower(a[at+1:])
}

// DomainOrDefault is Domain with a fallback
func DomainOrDefault(s, def string) string {
	if d := Domain(s); d != "" {
		return d
	}
	return def
}

// Validate accepts a single bare address or a named mailbox
func Validate(s string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil || Domain(s) == "" {
		return ErrInvalid
	}
	return nil
}
