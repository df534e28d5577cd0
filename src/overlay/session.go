package overlay

import (
	"image"

	"omniselect-ocr/src/screenshot"
)

// State is the lifecycle position of one overlay session.
type State int

const (
	Inactive State = iota
	Armed
	Dragging
	Resolved
	Cancelled
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	case Resolved:
		return "resolved"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Session tracks the drag gesture of one overlay. Points are in screen
// pixels. Input that does not apply to the current state is ignored.
type Session struct {
	state   State
	anchor  image.Point
	current image.Point
	region  screenshot.Region
}

func NewSession() *Session { return &Session{} }

func (s *Session) State() State { return s.state }

// Finished reports whether the session reached Resolved or Cancelled.
func (s *Session) Finished() bool {
	return s.state == Resolved || s.state == Cancelled
}

// Arm moves a fresh session to Armed once its window is on screen.
func (s *Session) Arm() bool {
	if s.state != Inactive {
		return false
	}
	s.state = Armed
	return true
}

// Press anchors a zero-size selection at p.
func (s *Session) Press(p image.Point) bool {
	if s.state != Armed {
		return false
	}
	s.anchor, s.current = p, p
	s.state = Dragging
	return true
}

// Move updates the far corner. The selection is not normalised until release.
func (s *Session) Move(p image.Point) bool {
	if s.state != Dragging {
		return false
	}
	s.current = p
	return true
}

// Release resolves the session to the normalised rectangle spanning the
// anchor and p. A release at the anchor yields a single-point region.
func (s *Session) Release(p image.Point) (screenshot.Region, bool) {
	if s.state != Dragging {
		return screenshot.Region{}, false
	}
	s.current = p
	s.region = screenshot.NewRegion(s.anchor, p)
	s.state = Resolved
	return s.region, true
}

// Cancel aborts an unfinished session. It reports false once the session has
// already resolved or been cancelled.
func (s *Session) Cancel() bool {
	if s.Finished() {
		return false
	}
	s.state = Cancelled
	return true
}

// Selection returns the raw anchor and far corner while dragging.
func (s *Session) Selection() (anchor, current image.Point, ok bool) {
	if s.state != Dragging {
		return image.Point{}, image.Point{}, false
	}
	return s.anchor, s.current, true
}

// Region returns the resolved region.
func (s *Session) Region() (screenshot.Region, bool) {
	return s.region, s.state == Resolved
}
