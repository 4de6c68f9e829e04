// Package apperr carries machine-readable codes alongside human messages.
package apperr

import (
	"errors"

	"github.com/foxzi/leadmail/internal/mailer"
	"github.com/foxzi/leadmail/internal/store"
)

// Code identifies a class of failure for API clients
type Code string

const (
	CodeConfigIncomplete Code = "CONFIG_INCOMPLETE"
	CodeConnectivity     Code = "CONNECTIVITY_ERROR"
	CodeRecipientSend    Code = "RECIPIENT_SEND_ERROR"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeDuplicateEmail   Code = "DUPLICATE_EMAIL"
	CodeNotFound         Code = "NOT_FOUND"
	CodeTemplateNotFound Code = "TEMPLATE_NOT_FOUND"
	CodeNoRecipients     Code = "NO_RECIPIENTS"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// Error is a failure with a code and a message safe to show users
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(CodeValidation, message)
}

func ConfigIncomplete(message string) *Error {
	return New(CodeConfigIncomplete, message)
}

// CodeOf classifies any error
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}

	var me *mailer.Error
	if errors.As(err, &me) {
		if me.Kind.Connectivity() {
			return CodeConnectivity
		}
		return CodeRecipientSend
	}

	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		return CodeDuplicateEmail
	case errors.Is(err, store.ErrNotFound):
		return CodeNotFound
	}
	return CodeInternal
}

// Message returns the user-facing text for err
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
