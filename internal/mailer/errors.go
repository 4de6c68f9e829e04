package mailer

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/emersion/go-smtp"
)

// Kind tells which stage of an SMTP exchange failed
type Kind string

const (
	KindConnect   Kind = "connect"
	KindTLS       Kind = "tls"
	KindAuth      Kind = "auth"
	KindSender    Kind = "sender"
	KindRecipient Kind = "recipient"
	KindData      Kind = "data"
)

// Connectivity reports whether the failure happened before the server
// accepted an authenticated session
func (k Kind) Connectivity() bool {
	switch k {
	case KindConnect, KindTLS, KindAuth:
		return true
	}
	return false
}

// ErrNoHost is returned instead of dialing the local machine
var ErrNoHost = errors.New("no SMTP host configured")

// Error is a transport failure with its stage and classification
type Error struct {
	Kind      Kind
	Stage     string
	Code      int
	Temporary bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// smtpCodePattern matches SMTP response codes at word boundaries
var smtpCodePattern = regexp.MustCompile(`\b(4\d{2}|5\d{2})\b`)

// categorize wraps err, reading the reply code when the server sent one.
// 5xx is permanent, everything else is treated as temporary.
func categorize(kind Kind, stage string, err error) *Error {
	e := &Error{Kind: kind, Stage: stage, Err: err, Temporary: true}

	var se *smtp.SMTPError
	if errors.As(err, &se) {
		e.Code = se.Code
	} else if m := smtpCodePattern.FindStringSubmatch(err.Error()); len(m) > 1 {
		fmt.Sscanf(m[1], "%d", &e.Code)
	}

	if e.Code >= 500 {
		e.Temporary = false
	}
	return e
}

// IsTemporary reports whether err may succeed on a later attempt
func IsTemporary(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Temporary
	}
	return true
}

// IsConnectivity reports whether err is a connect, TLS or auth failure
func IsConnectivity(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind.Connectivity()
}
