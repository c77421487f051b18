package mode

// capturing keeps the most recent message visible and records the full
// history, without ever forwarding anything to the terminal.
type capturing struct {
	history []string
}

func newCapturing() *capturing { return &capturing{} }

func (c *capturing) LinesToDisplay() int { return 1 }

func (c *capturing) HandleMessage(msg string) []string {
	c.history = append(c.history, msg)
	return c.Lines()
}

func (c *capturing) Lines() []string {
	if len(c.history) == 0 {
		return nil
	}
	return []string{c.history[len(c.history)-1]}
}

// Captured returns a copy of every message handled so far, oldest first.
func (c *capturing) Captured() []string {
	out := make([]string, len(c.history))
	copy(out, c.history)
	return out
}
