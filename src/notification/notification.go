// Package notification shows desktop notifications for capture outcomes.
package notification

import (
	"log"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
)

const (
	Title          = "OmniSelect-OCR"
	PreviewRunes   = 50
	DefaultTimeout = 3 * time.Second

	successPrefix = "Text copied to clipboard!\n"
	noTextMessage = "No text found in selection."
	ellipsis      = "…"
)

// SendFunc delivers one notification. beeep.Notify in production.
type SendFunc func(title, message string, timeout time.Duration) error

func beeepSend(title, message string, timeout time.Duration) error {
	// beeep has no per-notification lifetime; the platform decides.
	return beeep.Notify(title, message, "")
}

// Notifier formats capture outcomes and sends them fire-and-forget.
type Notifier struct {
	timeout time.Duration
	send    SendFunc
}

func New(timeout time.Duration) *Notifier {
	return NewWithSender(timeout, beeepSend)
}

func NewWithSender(timeout time.Duration, send SendFunc) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Notifier{timeout: timeout, send: send}
}

// Notify sends message under the application title. Failures are logged only.
func (n *Notifier) Notify(message string) {
	if err := n.send(Title, message, n.timeout); err != nil {
		log.Printf("notification: failed to show %q: %v", firstLine(message), err)
	}
}

func (n *Notifier) Success(text string) { n.Notify(SuccessMessage(text)) }

func (n *Notifier) NoText() { n.Notify(noTextMessage) }

func (n *Notifier) Failure(err error) { n.Notify(ErrorMessage(err)) }

func SuccessMessage(text string) string { return successPrefix + Preview(text) }

func NoTextMessage() string { return noTextMessage }

// ErrorMessage is "Error: " followed by the user-facing description of err.
func ErrorMessage(err error) string {
	return "Error: " + Describe(err)
}

// Describe is the user-facing description of err.
func Describe(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// Preview returns the first PreviewRunes runes of text, marked with an
// ellipsis only when something was cut.
func Preview(text string) string {
	r := []rune(text)
	if len(r) <= PreviewRunes {
		return text
	}
	return string(r[:PreviewRunes]) + ellipsis
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
