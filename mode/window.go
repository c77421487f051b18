package mode

import "strings"

// window keeps the maxLines most recent lines, evicting the oldest first.
type window struct {
	maxLines  int
	wrapWidth int
	lines     []string
}

func newWindow(maxLines, wrapWidth int) *window {
	return &window{maxLines: maxLines, wrapWidth: wrapWidth}
}

func (w *window) LinesToDisplay() int { return w.maxLines }

func (w *window) HandleMessage(msg string) []string {
	for _, line := range splitMessage(msg, w.wrapWidth) {
		w.push(line)
	}
	return w.Lines()
}

func (w *window) push(line string) {
	w.lines = append(w.lines, line)
	if len(w.lines) > w.maxLines {
		w.lines = w.lines[len(w.lines)-w.maxLines:]
	}
}

func (w *window) Lines() []string {
	out := make([]string, len(w.lines))
	copy(out, w.lines)
	return out
}

// splitMessage breaks a message into stored lines: embedded newlines always
// split, and a positive wrapWidth additionally wraps long lines at that rune
// count.
func splitMessage(msg string, wrapWidth int) []string {
	raw := strings.Split(msg, "\n")
	if wrapWidth <= 0 {
		return raw
	}
	var out []string
	for _, line := range raw {
		runes := []rune(line)
		if len(runes) <= wrapWidth {
			out = append(out, line)
			continue
		}
		for len(runes) > wrapWidth {
			out = append(out, string(runes[:wrapWidth]))
			runes = runes[wrapWidth:]
		}
		out = append(out, string(runes))
	}
	return out
}
