package notification

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniselect-ocr/src/apperr"
)

type sent struct {
	title, message string
	timeout        time.Duration
}

func recorder(out *[]sent, err error) SendFunc {
	return func(title, message string, timeout time.Duration) error {
		*out = append(*out, sent{title, message, timeout})
		return err
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"short", "Hello World", "Hello World"},
		{"exactly fifty", strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{"fifty one", strings.Repeat("a", 51), strings.Repeat("a", 50) + "…"},
		{"multibyte counted as runes", strings.Repeat("é", 60), strings.Repeat("é", 50) + "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.in))
		})
	}
}

func TestSuccessMessage(t *testing.T) {
	var got []sent
	n := NewWithSender(0, recorder(&got, nil))
	n.Success("Hello World")

	require.Len(t, got, 1)
	assert.Equal(t, Title, got[0].title)
	assert.Equal(t, "Text copied to clipboard!\nHello World", got[0].message)
	assert.NotContains(t, got[0].message, "…")
	assert.Equal(t, DefaultTimeout, got[0].timeout)
}

func TestNoTextAndFailure(t *testing.T) {
	var got []sent
	n := NewWithSender(5*time.Second, recorder(&got, nil))
	n.NoText()
	n.Failure(apperr.Capture(errors.New("permission denied"), "screen capture failed"))
	n.Failure(errors.New("plain"))

	require.Len(t, got, 3)
	assert.Equal(t, "No text found in selection.", got[0].message)
	assert.Equal(t, "Error: screen capture failed: permission denied", got[1].message)
	assert.Equal(t, "Error: plain", got[2].message)
	assert.Equal(t, 5*time.Second, got[0].timeout)
}

func TestNotifySwallowsSendError(t *testing.T) {
	var got []sent
	n := NewWithSender(0, recorder(&got, errors.New("no notification daemon")))
	assert.NotPanics(t, func() { n.NoText() })
	assert.Len(t, got, 1)
}

func TestDescribeNil(t *testing.T) {
	assert.Equal(t, "unknown error", Describe(nil))
}
