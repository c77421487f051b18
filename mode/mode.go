// Package mode implements the per-task display policies. Each policy is a
// small synchronous state machine: lines go in, the visible snapshot comes
// out. Locking and rendering live above this package.
package mode

import (
	"fmt"

	"github.com/flanksource/progress/errors"
)

// Kind names a display policy.
type Kind string

const (
	KindLimited         Kind = "limited"
	KindCapturing       Kind = "capturing"
	KindWindow          Kind = "window"
	KindWindowWithTitle Kind = "window-with-title"
)

// Mode is a value describing which policy a task uses and, for the window
// kinds, how many terminal lines it may occupy.
type Mode struct {
	kind  Kind
	lines int
}

// Limited shows a single replaced line and can mirror raw messages to a
// passthrough writer.
func Limited() Mode { return Mode{kind: KindLimited} }

// Capturing shows a single replaced line and never forwards output.
func Capturing() Mode { return Mode{kind: KindCapturing} }

// Window shows the n most recent lines, oldest evicted first.
func Window(n int) Mode { return Mode{kind: KindWindow, lines: n} }

// WindowWithTitle shows a pinned title plus the n-1 most recent lines.
func WindowWithTitle(n int) Mode { return Mode{kind: KindWindowWithTitle, lines: n} }

// Kind returns the policy name.
func (m Mode) Kind() Kind { return m.kind }

// Lines returns the requested display height for window kinds, 0 otherwise.
func (m Mode) Lines() int { return m.lines }

func (m Mode) String() string {
	switch m.kind {
	case KindWindow, KindWindowWithTitle:
		return fmt.Sprintf("%s(%d)", m.kind, m.lines)
	default:
		return string(m.kind)
	}
}

// State is a display policy instance owned by exactly one task. Callers are
// responsible for serializing access.
type State interface {
	// LinesToDisplay reports the maximum terminal lines the policy uses.
	LinesToDisplay() int
	// HandleMessage folds one message into the state and returns the new
	// visible snapshot.
	HandleMessage(msg string) []string
	// Lines returns the current visible snapshot without mutating state.
	Lines() []string
}

// LineWriter receives passthrough output from the limited policy.
type LineWriter interface {
	WriteLine(line string) error
}

// Option configures a State during construction.
type Option func(*config)

type config struct {
	passthrough LineWriter
	wrapWidth   int
}

// WithPassthrough sets the writer limited mode mirrors raw messages to.
func WithPassthrough(w LineWriter) Option {
	return func(c *config) { c.passthrough = w }
}

// WithWrapWidth wraps stored window lines at the given rune width.
func WithWrapWidth(w int) Option {
	return func(c *config) { c.wrapWidth = w }
}

// New builds the State for m. Construction is the only fallible step:
// window sizes below the mode's minimum are rejected with an
// InvalidWindowSizeError cause.
func New(m Mode, opts ...Option) (State, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	switch m.kind {
	case KindLimited:
		return newLimited(cfg.passthrough), nil
	case KindCapturing:
		return newCapturing(), nil
	case KindWindow:
		if m.lines < 1 {
			return nil, errors.InvalidWindowSize(m.lines, 1, string(KindWindow))
		}
		return newWindow(m.lines, cfg.wrapWidth), nil
	case KindWindowWithTitle:
		if m.lines < 2 {
			return nil, errors.InvalidWindowSize(m.lines, 2, string(KindWindowWithTitle))
		}
		return newWindowWithTitle(m.lines, cfg.wrapWidth), nil
	default:
		return nil, errors.MissingParameter("kind", string(m.kind))
	}
}

// TitleSetter is implemented by states that display a pinned title.
type TitleSetter interface {
	SetTitle(title string)
}

// EmojiAdder is implemented by states that decorate their title.
type EmojiAdder interface {
	AddEmoji(emoji string)
}

// SupportsTitle reports whether s accepts a title.
func SupportsTitle(s State) bool {
	_, ok := s.(TitleSetter)
	return ok
}

// SupportsEmoji reports whether s accepts emoji decorations.
func SupportsEmoji(s State) bool {
	_, ok := s.(EmojiAdder)
	return ok
}
