// Package dispatcher moves capture triggers from any goroutine onto the UI
// thread, keeps at most one overlay session open, and hands resolved regions
// to the OCR worker without waiting for it.
package dispatcher

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"omniselect-ocr/src/overlay"
	"omniselect-ocr/src/screenshot"
	"omniselect-ocr/src/ui"
)

const DefaultPollInterval = 100 * time.Millisecond

// Notifier reports overlay failures to the user.
type Notifier interface {
	Failure(err error)
}

type Options struct {
	Driver  ui.Driver
	Overlay overlay.Opener
	// Spawn starts OCR for a resolved region. It must not block.
	Spawn    func(screenshot.Region)
	Notifier Notifier
	// PollInterval is how often the UI thread checks for a pending trigger.
	PollInterval time.Duration
}

type Dispatcher struct {
	driver   ui.Driver
	opener   overlay.Opener
	spawn    func(screenshot.Region)
	notifier Notifier
	interval time.Duration

	pending atomic.Bool
	// active is only touched on the UI thread.
	active bool

	dropped atomic.Int64
}

func New(opts Options) *Dispatcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Dispatcher{
		driver:   opts.Driver,
		opener:   opts.Overlay,
		spawn:    opts.Spawn,
		notifier: opts.Notifier,
		interval: opts.PollInterval,
	}
}

// Trigger requests an overlay session. Safe from any goroutine; it only sets
// a flag, so it is fine to call from the keyboard hook.
func (d *Dispatcher) Trigger() {
	d.pending.Store(true)
}

// Run posts a poll to the UI thread every interval until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	t := time.NewTicker(d.interval)
	defer t.Stop()
	log.Printf("Dispatcher: polling every %v", d.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			d.Tick()
		}
	}
}

// Tick schedules one poll on the UI thread.
func (d *Dispatcher) Tick() {
	d.driver.Do(d.poll)
}

func (d *Dispatcher) poll(tok ui.Token) {
	if !d.pending.Swap(false) {
		return
	}
	if d.active {
		n := d.dropped.Add(1)
		log.Printf("Dispatcher: overlay already active, trigger dropped (%d so far)", n)
		return
	}

	d.active = true
	log.Printf("Dispatcher: opening overlay")
	if err := d.opener.Open(tok, d.finish); err != nil {
		d.active = false
		log.Printf("Dispatcher: overlay failed: %v", err)
		d.notifier.Failure(err)
	}
}

// finish runs on the UI thread once the overlay window has closed.
func (d *Dispatcher) finish(res overlay.Result) {
	d.active = false
	if res.Cancelled {
		log.Printf("Dispatcher: selection cancelled")
		return
	}
	log.Printf("Dispatcher: handing %s to OCR", res.Region)
	d.spawn(res.Region)
}

// Active reports whether an overlay session is open. The token confines the
// read to the UI thread.
func (d *Dispatcher) Active(tok ui.Token) bool {
	return tok.Valid() && d.active
}

// Pending reports whether a trigger is waiting for the next poll.
func (d *Dispatcher) Pending() bool { return d.pending.Load() }

// Dropped counts triggers ignored because a session was already open.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }
