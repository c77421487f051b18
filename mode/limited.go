package mode

// limited keeps only the most recent message visible. When passthrough is
// enabled every raw message is also mirrored to the configured writer, so
// plain terminal output and the rendered display stay in sync.
type limited struct {
	current     string
	seen        bool
	passthrough LineWriter
	forwarding  bool
}

func newLimited(w LineWriter) *limited {
	return &limited{passthrough: w, forwarding: w != nil}
}

func (l *limited) LinesToDisplay() int { return 1 }

func (l *limited) HandleMessage(msg string) []string {
	l.current = msg
	l.seen = true
	if l.forwarding && l.passthrough != nil {
		// Mirror failures do not disturb display state.
		_ = l.passthrough.WriteLine(msg)
	}
	return l.Lines()
}

func (l *limited) Lines() []string {
	if !l.seen {
		return nil
	}
	return []string{l.current}
}

// SetPassthrough toggles mirroring without replacing the writer.
func (l *limited) SetPassthrough(on bool) {
	l.forwarding = on && l.passthrough != nil
}
