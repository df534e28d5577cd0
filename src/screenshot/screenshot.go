package screenshot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/kbinani/screenshot"

	"omniselect-ocr/src/apperr"
)

// ErrEmptyRegion is returned for regions with zero width or height. Callers
// treat it as "nothing to recognise" rather than a failure.
var ErrEmptyRegion = errors.New("selection has no area")

// Region is a normalised rectangle in screen pixels: X1<=X2 and Y1<=Y2.
// X2 and Y2 are exclusive, so a single-point selection has no area.
type Region struct {
	X1, Y1, X2, Y2 int
}

// NewRegion builds a normalised Region spanning the two corners in any order.
func NewRegion(a, b image.Point) Region {
	return Region{
		X1: min(a.X, b.X),
		Y1: min(a.Y, b.Y),
		X2: max(a.X, b.X),
		Y2: max(a.Y, b.Y),
	}
}

func (r Region) Width() int  { return r.X2 - r.X1 }
func (r Region) Height() int { return r.Y2 - r.Y1 }

// Empty reports whether the region covers no pixels.
func (r Region) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle { return image.Rect(r.X1, r.Y1, r.X2, r.Y2) }

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d) %dx%d", r.X1, r.Y1, r.X2, r.Y2, r.Width(), r.Height())
}

// captureRect is swapped in tests.
var captureRect = screenshot.CaptureRect

// Capture grabs the pixels under region from the screen.
func Capture(region Region) (*image.RGBA, error) {
	if region.Empty() {
		return nil, ErrEmptyRegion
	}
	img, err := captureRect(region.Rect())
	if err != nil {
		return nil, apperr.Capture(err, "failed to capture screen region")
	}
	if img == nil {
		return nil, apperr.Capture(nil, "screen capture returned no image")
	}
	return img, nil
}

// EncodePNG encodes img for engines that take image bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// DisplayBounds returns the bounds of the primary display.
func DisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	return screenshot.GetDisplayBounds(0), nil
}

// CapturePrimary grabs the whole primary display together with its bounds in
// screen coordinates. The overlay shows it as a frozen backdrop.
func CapturePrimary() (*image.RGBA, image.Rectangle, error) {
	bounds, err := DisplayBounds()
	if err != nil {
		return nil, image.Rectangle{}, apperr.Capture(err, "failed to read display bounds")
	}
	img, err := captureRect(bounds)
	if err != nil {
		return nil, image.Rectangle{}, apperr.Capture(err, "failed to capture screen")
	}
	return img, bounds, nil
}
