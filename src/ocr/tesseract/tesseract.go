// Package tesseract registers a local Tesseract engine with package ocr.
// Import it for side effects; it needs libtesseract at build time.
package tesseract

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"omniselect-ocr/src/ocr"
	"omniselect-ocr/src/screenshot"
)

const EngineName = "tesseract"

func init() {
	ocr.Register(EngineName, func(opts ocr.Options) (ocr.Engine, error) {
		return New(opts.Languages...), nil
	})
}

// Engine runs Tesseract through a fresh gosseract client per call.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// New returns an engine for languages, defaulting to English.
func New(languages ...string) *Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Engine{languages: languages, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return EngineName }

func (e *Engine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := screenshot.EncodePNG(img)
	if err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Version reports the linked Tesseract version.
func Version() string { return gosseract.Version() }
