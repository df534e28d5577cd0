package hotkey

import (
	"fmt"
	"log"
	"sync"
	"time"

	gohook "github.com/robotn/gohook"

	"omniselect-ocr/src/apperr"
)

// HookReadyTimeout bounds how long Start waits for the OS hook to report
// that it is installed.
const HookReadyTimeout = 2 * time.Second

// EventSource is the global input event stream. The default source is
// gohook; tests feed synthetic events.
type EventSource interface {
	Start() chan gohook.Event
	End()
}

type gohookSource struct{}

func (gohookSource) Start() chan gohook.Event { return gohook.Start() }
func (gohookSource) End()                     { gohook.End() }

// Listener turns the global key event stream into chord triggers.
type Listener struct {
	src       EventSource
	chord     Chord
	onTrigger func()
	done      chan struct{}
	stopOnce  sync.Once
}

// Start installs the global keyboard hook and calls onTrigger each time chord
// becomes fully held. onTrigger runs on the listener goroutine and must only
// signal; it must not do UI work.
func Start(chord Chord, onTrigger func()) (*Listener, error) {
	return StartWithSource(gohookSource{}, chord, onTrigger, HookReadyTimeout)
}

// StartWithSource is Start with an explicit event source and ready timeout.
func StartWithSource(src EventSource, chord Chord, onTrigger func(), readyTimeout time.Duration) (*Listener, error) {
	if chord.Empty() {
		return nil, apperr.Startup(nil, "hotkey chord is empty")
	}

	log.Printf("Starting keyboard hook for %s", chord)
	evChan := src.Start()
	if evChan == nil {
		return nil, apperr.Startup(nil, "keyboard hook could not be installed")
	}

	tracker := NewTracker(chord)
	var early []gohook.Event

	timer := time.NewTimer(readyTimeout)
	defer timer.Stop()
wait:
	for {
		select {
		case ev, ok := <-evChan:
			if !ok {
				return nil, apperr.Startup(nil, "keyboard hook stopped during startup (is input monitoring permitted?)")
			}
			if ev.Kind == gohook.HookEnabled {
				log.Printf("Keyboard hook enabled")
				break wait
			}
			early = append(early, ev)
		case <-timer.C:
			// gohook never closes the channel when the native hook fails
			// to install, so silence is the only failure signal.
			src.End()
			return nil, apperr.Startup(nil, fmt.Sprintf("keyboard hook did not report ready within %v (is input monitoring permitted?)", readyTimeout))
		}
	}

	l := &Listener{
		src:       src,
		chord:     chord,
		onTrigger: onTrigger,
		done:      make(chan struct{}),
	}
	go l.loop(evChan, tracker, early)
	log.Printf("Hotkey listener configured for: %s", chord)
	return l, nil
}

func (l *Listener) loop(evChan chan gohook.Event, tracker *Tracker, early []gohook.Event) {
	defer close(l.done)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in hotkey goroutine: %v", r)
		}
	}()

	for _, ev := range early {
		l.handle(tracker, ev)
	}
	for ev := range evChan {
		l.handle(tracker, ev)
	}
	log.Printf("Keyboard event channel closed")
}

func (l *Listener) handle(tracker *Tracker, ev gohook.Event) {
	switch ev.Kind {
	case gohook.KeyDown, gohook.KeyHold:
		if tracker.Press(ev.Keycode) {
			log.Printf("Hotkey chord detected: %s", l.chord)
			if l.onTrigger != nil {
				l.onTrigger()
			}
		}
	case gohook.KeyUp:
		tracker.Release(ev.Keycode)
	case gohook.HookDisabled:
		log.Printf("Keyboard hook disabled")
	}
}

// Stop removes the hook and waits briefly for the listener goroutine to exit.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		l.src.End()
		select {
		case <-l.done:
		case <-time.After(500 * time.Millisecond):
			log.Printf("Hotkey listener stop timeout")
		}
	})
}

// Done is closed when the event stream ends.
func (l *Listener) Done() <-chan struct{} { return l.done }
