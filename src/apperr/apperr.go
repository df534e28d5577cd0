package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies where a failure came from. Only KindStartup is fatal; every
// other kind is reported to the user and the app returns to idle.
type Kind string

const (
	KindStartup     Kind = "STARTUP"
	KindOverlay     Kind = "OVERLAY"
	KindCapture     Kind = "CAPTURE"
	KindRecognition Kind = "RECOGNITION"
	KindClipboard   Kind = "CLIPBOARD"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies cause under kind. A nil cause yields a plain New.
func Wrap(cause error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Startup(cause error, message string) *Error {
	return Wrap(cause, KindStartup, message)
}

func Overlay(cause error, message string) *Error {
	return Wrap(cause, KindOverlay, message)
}

func Capture(cause error, message string) *Error {
	return Wrap(cause, KindCapture, message)
}

func Recognition(cause error, message string) *Error {
	return Wrap(cause, KindRecognition, message)
}

func Clipboard(cause error, message string) *Error {
	return Wrap(cause, KindClipboard, message)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsFatal reports whether err must abort the process.
func IsFatal(err error) bool {
	return KindOf(err) == KindStartup
}
