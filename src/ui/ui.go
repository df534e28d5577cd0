// Package ui confines window work to the UI-owning thread. A valid Token can
// only be obtained from a Driver, so any function taking a Token is known to
// be running on that thread.
package ui

import (
	"fyne.io/fyne/v2"
)

type thread struct{ name string }

var (
	mainThread   = &thread{name: "fyne"}
	inlineThread = &thread{name: "inline"}
)

// Token proves the holder is running on the UI-owning thread. The zero Token
// is invalid.
type Token struct {
	t *thread
}

// Valid reports whether the token was issued by a Driver.
func (t Token) Valid() bool { return t.t != nil }

func (t Token) String() string {
	if t.t == nil {
		return "ui.Token(invalid)"
	}
	return "ui.Token(" + t.t.name + ")"
}

// Driver runs functions on the UI-owning thread.
type Driver interface {
	// Do schedules fn on the UI thread. It may return before fn runs.
	Do(fn func(Token))
}

// FyneDriver marshals onto fyne's main event loop.
type FyneDriver struct{}

func (FyneDriver) Do(fn func(Token)) {
	fyne.Do(func() { fn(Token{t: mainThread}) })
}

// Inline runs fn synchronously on the calling goroutine. It is for tests and
// tools that have no window system; the caller is responsible for only using
// it from a single goroutine.
type Inline struct{}

func (Inline) Do(fn func(Token)) { fn(Token{t: inlineThread}) }
