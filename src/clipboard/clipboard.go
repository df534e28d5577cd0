package clipboard

import (
	"errors"
	"sync"

	"golang.design/x/clipboard"

	"omniselect-ocr/src/apperr"
)

var errNotInitialized = errors.New("clipboard not initialized")

// Writer sets the system clipboard text. Concurrent writes are serialised;
// the last one wins.
type Writer struct {
	mu      sync.Mutex
	initErr error
	write   func(text string) error
}

// Init prepares the system clipboard. A failure is kept and returned by every
// later Write so the app stays up without clipboard access.
func Init() *Writer {
	w := &Writer{write: writeSystem}
	if err := clipboard.Init(); err != nil {
		w.initErr = err
	}
	return w
}

// NewWriter wraps a custom write function.
func NewWriter(write func(text string) error) *Writer {
	return &Writer{write: write}
}

func writeSystem(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// InitErr reports why the system clipboard is unavailable, if it is.
func (w *Writer) InitErr() error { return w.initErr }

func (w *Writer) Write(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.initErr != nil {
		return apperr.Clipboard(w.initErr, "clipboard unavailable")
	}
	if w.write == nil {
		return apperr.Clipboard(errNotInitialized, "clipboard unavailable")
	}
	if err := w.write(text); err != nil {
		return apperr.Clipboard(err, "failed to write clipboard")
	}
	return nil
}
