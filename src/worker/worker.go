// Package worker runs the capture → recognise → clipboard → notify pipeline
// off the UI thread, one goroutine per resolved selection.
package worker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"omniselect-ocr/src/apperr"
	"omniselect-ocr/src/logutil"
	"omniselect-ocr/src/ocr"
	"omniselect-ocr/src/screenshot"
)

const DefaultDeadline = 20 * time.Second

// CaptureFunc grabs the screen pixels inside a region.
type CaptureFunc func(screenshot.Region) (*image.RGBA, error)

type Clipboard interface {
	Write(text string) error
}

type Notifier interface {
	Success(text string)
	NoText()
	Failure(err error)
}

// Outcome is what a pipeline run ended with.
type Outcome int

const (
	Copied Outcome = iota
	NoText
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Copied:
		return "copied"
	case NoText:
		return "no text"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Pipeline holds the boundaries one capture flows through.
type Pipeline struct {
	Capture   CaptureFunc
	Engine    ocr.Engine
	Clipboard Clipboard
	Notifier  Notifier
	// Deadline bounds the engine call; zero means DefaultDeadline.
	Deadline time.Duration
	// Settle is waited before capturing so the overlay is off screen.
	Settle time.Duration
}

// Run processes one region and reports the result to the user. Errors and
// panics never escape.
func (p *Pipeline) Run(ctx context.Context, region screenshot.Region) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker: panic while processing %s: %v\n%s", region, r, debug.Stack())
			p.Notifier.Failure(apperr.Recognition(fmt.Errorf("%v", r), "OCR worker crashed"))
			out = Failed
		}
		log.Printf("Worker: %s finished as %s in %v", region, out, time.Since(start).Round(time.Millisecond))
	}()

	text, err := p.process(ctx, region)
	if err != nil {
		log.Printf("Worker: %s failed: %v", region, err)
		p.Notifier.Failure(err)
		return Failed
	}
	if text == "" {
		p.Notifier.NoText()
		return NoText
	}
	if err := p.Clipboard.Write(text); err != nil {
		log.Printf("Worker: clipboard write failed: %v", err)
		p.Notifier.Failure(err)
		return Failed
	}
	log.Printf("Worker: copied %d chars: %s", len(text), logutil.Sanitize(text))
	p.Notifier.Success(text)
	return Copied
}

func (p *Pipeline) process(ctx context.Context, region screenshot.Region) (string, error) {
	if p.Settle > 0 {
		select {
		case <-time.After(p.Settle):
		case <-ctx.Done():
			return "", apperr.Capture(ctx.Err(), "capture abandoned")
		}
	}

	img, err := p.Capture(region)
	if errors.Is(err, screenshot.ErrEmptyRegion) {
		log.Printf("Worker: %s has no area", region)
		return "", nil
	}
	if err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.Capture(err, "screen capture failed")
		}
		return "", err
	}

	deadline := p.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	rctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	log.Printf("Worker: Starting OCR for region %dx%d with %s", region.Width(), region.Height(), p.Engine.Name())
	text, err := recognizeWithContext(rctx, p.Engine, img)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.Recognition(err, fmt.Sprintf("OCR timed out after %v", deadline))
		}
		if apperr.KindOf(err) == "" {
			err = apperr.Recognition(err, "OCR failed")
		}
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// recognizeWithContext returns when either the engine or ctx finishes. An
// engine that ignores ctx keeps running in the background.
func recognizeWithContext(ctx context.Context, engine ocr.Engine, img image.Image) (string, error) {
	type result struct {
		text string
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resCh <- result{err: fmt.Errorf("engine panic: %v", r)}
			}
		}()
		text, err := engine.Recognize(ctx, img)
		resCh <- result{text, err}
	}()
	select {
	case r := <-resCh:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Spawner starts one independent goroutine per capture. Nothing is returned
// to the caller; a WaitGroup lets shutdown give in-flight work a grace period.
type Spawner struct {
	ctx      context.Context
	pipeline *Pipeline
	wg       sync.WaitGroup
	inFlight atomic.Int32
	onDone   func(screenshot.Region, Outcome)
}

// NewSpawner runs pipeline for every Go call. Workers are not cancelled by
// shutdown; they finish or hit the pipeline deadline.
func NewSpawner(pipeline *Pipeline) *Spawner {
	return &Spawner{ctx: context.Background(), pipeline: pipeline}
}

// OnDone registers a hook called from the worker goroutine after each run.
func (s *Spawner) OnDone(f func(screenshot.Region, Outcome)) { s.onDone = f }

// Go never blocks on recognition.
func (s *Spawner) Go(region screenshot.Region) {
	s.wg.Add(1)
	s.inFlight.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Add(-1)
		out := s.pipeline.Run(s.ctx, region)
		if s.onDone != nil {
			s.onDone(region, out)
		}
	}()
}

func (s *Spawner) InFlight() int { return int(s.inFlight.Load()) }

// Wait blocks until all workers are done or timeout passes. It reports
// whether every worker finished.
func (s *Spawner) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
