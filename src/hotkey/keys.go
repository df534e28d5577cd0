package hotkey

import (
	"fmt"
	"sort"
	"strings"
)

// Key is an abstract, platform-independent key name such as "ctrl" or "q".
// Left and right modifier variants share one Key.
type Key string

// keycodes maps each Key to its libuiohook virtual key codes, which gohook
// reports in Event.Keycode with the same values on every OS.
var keycodes = map[Key][]uint16{
	// Modifiers: left and right variants
	"ctrl":  {0x001D, 0x0E1D},
	"shift": {0x002A, 0x0036},
	"alt":   {0x0038, 0x0E38},
	"cmd":   {0x0E5B, 0x0E5C},

	"1": {0x0002}, "2": {0x0003}, "3": {0x0004}, "4": {0x0005}, "5": {0x0006},
	"6": {0x0007}, "7": {0x0008}, "8": {0x0009}, "9": {0x000A}, "0": {0x000B},

	"q": {0x0010}, "w": {0x0011}, "e": {0x0012}, "r": {0x0013}, "t": {0x0014},
	"y": {0x0015}, "u": {0x0016}, "i": {0x0017}, "o": {0x0018}, "p": {0x0019},
	"a": {0x001E}, "s": {0x001F}, "d": {0x0020}, "f": {0x0021}, "g": {0x0022},
	"h": {0x0023}, "j": {0x0024}, "k": {0x0025}, "l": {0x0026},
	"z": {0x002C}, "x": {0x002D}, "c": {0x002E}, "v": {0x002F}, "b": {0x0030},
	"n": {0x0031}, "m": {0x0032},

	"f1": {0x003B}, "f2": {0x003C}, "f3": {0x003D}, "f4": {0x003E},
	"f5": {0x003F}, "f6": {0x0040}, "f7": {0x0041}, "f8": {0x0042},
	"f9": {0x0043}, "f10": {0x0044}, "f11": {0x0057}, "f12": {0x0058},

	"esc":   {0x0001},
	"tab":   {0x000F},
	"enter": {0x001C},
	"space": {0x0039},
}

var keyByCode = func() map[uint16]Key {
	m := make(map[uint16]Key)
	for k, codes := range keycodes {
		for _, c := range codes {
			m[c] = k
		}
	}
	return m
}()

// KeyForCode returns the Key for a gohook keycode.
func KeyForCode(code uint16) (Key, bool) {
	k, ok := keyByCode[code]
	return k, ok
}

// CodesFor returns the keycodes that produce k, or nil if k is unknown.
func CodesFor(k Key) []uint16 {
	return keycodes[k]
}

// normalizeKey maps user spellings to canonical key names.
func normalizeKey(part string) Key {
	part = strings.ToLower(strings.TrimSpace(part))
	switch part {
	case "ctrl", "control":
		return "ctrl"
	case "alt", "option", "opt":
		return "alt"
	case "win", "cmd", "command", "super", "meta":
		return "cmd"
	case "escape":
		return "esc"
	case "return":
		return "enter"
	default:
		return Key(part)
	}
}

// Chord is an immutable, non-empty set of distinct keys that must all be held
// at once to fire a trigger.
type Chord struct {
	keys []Key
}

// NewChord validates keys and builds a Chord.
func NewChord(keys ...Key) (Chord, error) {
	if len(keys) == 0 {
		return Chord{}, fmt.Errorf("hotkey chord is empty")
	}
	seen := make(map[Key]bool, len(keys))
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if _, ok := keycodes[k]; !ok {
			return Chord{}, fmt.Errorf("unknown key %q in hotkey chord", string(k))
		}
		if seen[k] {
			return Chord{}, fmt.Errorf("duplicate key %q in hotkey chord", string(k))
		}
		seen[k] = true
		out = append(out, k)
	}
	return Chord{keys: out}, nil
}

// ParseChord parses a chord like "Ctrl+Shift+2".
func ParseChord(s string) (Chord, error) {
	if strings.TrimSpace(s) == "" {
		return Chord{}, fmt.Errorf("hotkey chord is empty")
	}
	parts := strings.Split(s, "+")
	keys := make([]Key, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return Chord{}, fmt.Errorf("malformed hotkey chord %q", s)
		}
		keys = append(keys, normalizeKey(p))
	}
	return NewChord(keys...)
}

// MustParseChord is ParseChord for constants; it panics on error.
func MustParseChord(s string) Chord {
	c, err := ParseChord(s)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultChord returns the chord for an OS family: Cmd+Shift+2 on macOS,
// Ctrl+Shift+2 everywhere else.
func DefaultChord(goos string) Chord {
	if goos == "darwin" {
		return MustParseChord("cmd+shift+2")
	}
	return MustParseChord("ctrl+shift+2")
}

// Keys returns a copy of the chord's keys in declaration order.
func (c Chord) Keys() []Key {
	return append([]Key(nil), c.keys...)
}

func (c Chord) Empty() bool { return len(c.keys) == 0 }

func (c Chord) String() string {
	parts := make([]string, len(c.keys))
	for i, k := range c.keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, "+")
}

// Tracker holds the set of currently-down keys and detects the transition
// into "every chord key held". It is not safe for concurrent use; the
// listener goroutine owns it.
type Tracker struct {
	chord Chord
	held  map[uint16]Key
}

func NewTracker(chord Chord) *Tracker {
	return &Tracker{chord: chord, held: make(map[uint16]Key)}
}

// Press records a key-down for code and reports whether this event completed
// the chord. Repeats of an already-held key never report true. Unknown codes
// are ignored.
func (t *Tracker) Press(code uint16) bool {
	k, ok := keyByCode[code]
	if !ok {
		return false
	}
	before := t.satisfied()
	t.held[code] = k
	return !before && t.satisfied()
}

// Release records a key-up for code. Releasing a key that is not held is a
// no-op.
func (t *Tracker) Release(code uint16) {
	delete(t.held, code)
}

// Held returns the currently held keys, sorted.
func (t *Tracker) Held() []Key {
	set := make(map[Key]bool, len(t.held))
	for _, k := range t.held {
		set[k] = true
	}
	out := make([]Key, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *Tracker) satisfied() bool {
	if t.chord.Empty() {
		return false
	}
	for _, want := range t.chord.keys {
		found := false
		for _, have := range t.held {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
