// Package overlay selects a screen rectangle with a full-screen drag gesture.
package overlay

import (
	"omniselect-ocr/src/screenshot"
	"omniselect-ocr/src/ui"
)

// Result is the outcome of one overlay session. Region is only meaningful
// when Cancelled is false.
type Result struct {
	Region    screenshot.Region
	Cancelled bool
}

// Opener shows the capture overlay. Open must be called on the UI thread,
// which the token proves. It returns once the window is shown; done is called
// exactly once, on the UI thread, after the window has been closed. When
// Open returns an error, done is never called.
type Opener interface {
	Open(tok ui.Token, done func(Result)) error
}
