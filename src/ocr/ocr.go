// Package ocr is the boundary to text recognition engines. Engines register
// themselves by name; New builds the configured one.
package ocr

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"

	"omniselect-ocr/src/llm"
	"omniselect-ocr/src/screenshot"
)

// Engine turns an image into text. It may be slow and may fail. An image
// without text yields "" and a nil error.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Options carries engine settings from configuration.
type Options struct {
	Engine    string
	Languages []string
	APIKey    string
	Model     string
	Providers []string
	URL       string
}

// Factory builds an engine from options.
type Factory func(Options) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes an engine available to New under name.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = f
}

// Registered lists the available engine names, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the engine named by opts.Engine.
func New(opts Options) (Engine, error) {
	name := strings.ToLower(strings.TrimSpace(opts.Engine))
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown OCR engine %q (available: %s)", opts.Engine, strings.Join(Registered(), ", "))
	}
	return f(opts)
}

func init() {
	Register(VisionEngineName, func(opts Options) (Engine, error) {
		if opts.APIKey == "" {
			return nil, fmt.Errorf("the %s engine needs OPENROUTER_API_KEY", VisionEngineName)
		}
		if opts.Model == "" {
			return nil, fmt.Errorf("the %s engine needs MODEL", VisionEngineName)
		}
		return NewVision(llm.New(llm.Config{
			APIKey:    opts.APIKey,
			Model:     opts.Model,
			Providers: opts.Providers,
			URL:       opts.URL,
		})), nil
	})
}

const VisionEngineName = "llm"

// Vision recognises text with a hosted vision model.
type Vision struct {
	client *llm.Client
}

func NewVision(client *llm.Client) *Vision { return &Vision{client: client} }

func (v *Vision) Name() string { return VisionEngineName }

func (v *Vision) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := screenshot.EncodePNG(img)
	if err != nil {
		return "", err
	}
	return v.client.QueryVision(ctx, data)
}

// Ping checks the remote model is reachable.
func (v *Vision) Ping(ctx context.Context) error { return v.client.Ping(ctx) }
