// Package runtimeinit loads configuration and builds the boundaries shared by
// the resident app and the command-line tool.
package runtimeinit

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"omniselect-ocr/src/clipboard"
	"omniselect-ocr/src/config"
	"omniselect-ocr/src/logutil"
	"omniselect-ocr/src/notification"
	"omniselect-ocr/src/ocr"
)

type Options struct {
	LoadOptions config.LoadOptions
	Verbose     bool
	// SkipClipboard leaves Runtime.Clipboard nil, for tools that print.
	SkipClipboard bool
	// PingTimeout bounds the reachability check of remote engines. Zero
	// skips it.
	PingTimeout time.Duration
}

// Runtime holds what Bootstrap built. Close releases the log file.
type Runtime struct {
	Config    *config.Config
	Engine    ocr.Engine
	Clipboard *clipboard.Writer
	Notifier  *notification.Notifier

	logCloser io.Closer
}

type pinger interface {
	Ping(ctx context.Context) error
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	rt := &Runtime{Config: cfg}
	rt.logCloser = logutil.Setup(logutil.Options{FileLogging: cfg.EnableFileLogging, Verbose: opts.Verbose})
	if len(cfg.Sources) > 0 {
		log.Printf("Config: loaded from %s", strings.Join(cfg.Sources, ", "))
	}

	if err := cfg.Validate(); err != nil {
		rt.Close()
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	rt.Engine, err = ocr.New(EngineOptions(cfg))
	if err != nil {
		rt.Close()
		return nil, err
	}
	log.Printf("OCR engine: %s", rt.Engine.Name())
	if cfg.OCREngine == config.EngineLLM {
		log.Printf("Using model %s with key %s", cfg.Model, logutil.RedactKey(cfg.APIKey))
	}

	if p, ok := rt.Engine.(pinger); ok && opts.PingTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), opts.PingTimeout)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("startup check failed: %w", err)
		}
		log.Printf("OCR engine ping succeeded")
	}

	rt.Notifier = notification.New(cfg.NotifyTimeout())
	if !opts.SkipClipboard {
		rt.Clipboard = clipboard.Init()
		if err := rt.Clipboard.InitErr(); err != nil {
			log.Printf("Clipboard unavailable, captures will report errors: %v", err)
		}
	}
	return rt, nil
}

// EngineOptions maps configuration onto engine settings.
func EngineOptions(cfg *config.Config) ocr.Options {
	return ocr.Options{
		Engine:    cfg.OCREngine,
		Languages: cfg.TesseractLangs,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		Providers: cfg.Providers,
	}
}

func (rt *Runtime) Close() {
	if rt.logCloser != nil {
		_ = rt.logCloser.Close()
		rt.logCloser = nil
	}
}
