package mode

import (
	"strings"

	"github.com/samber/lo"
)

// windowWithTitle pins a title line above a window of the most recent
// messages. The first message handled becomes the title; everything after
// fills the body. Of the maxLines budget one line is always the title.
type windowWithTitle struct {
	maxLines  int
	wrapWidth int
	title     string
	hasTitle  bool
	emojis    []string
	body      []string
}

func newWindowWithTitle(maxLines, wrapWidth int) *windowWithTitle {
	return &windowWithTitle{maxLines: maxLines, wrapWidth: wrapWidth}
}

func (w *windowWithTitle) LinesToDisplay() int { return w.maxLines }

func (w *windowWithTitle) HandleMessage(msg string) []string {
	lines := splitMessage(msg, w.wrapWidth)
	if !w.hasTitle && len(lines) > 0 {
		w.title = lines[0]
		w.hasTitle = true
		lines = lines[1:]
	}
	for _, line := range lines {
		w.push(line)
	}
	return w.Lines()
}

func (w *windowWithTitle) push(line string) {
	w.body = append(w.body, line)
	if max := w.maxLines - 1; len(w.body) > max {
		w.body = w.body[len(w.body)-max:]
	}
}

// Lines returns the decorated title followed by the body, newest last. Body
// lines identical to the title are skipped so the title never repeats.
func (w *windowWithTitle) Lines() []string {
	if !w.hasTitle {
		return nil
	}
	out := make([]string, 0, len(w.body)+1)
	out = append(out, w.decoratedTitle())
	for _, line := range w.body {
		if line == w.title {
			continue
		}
		out = append(out, line)
	}
	return out
}

func (w *windowWithTitle) decoratedTitle() string {
	title := w.title
	if w.wrapWidth > 0 {
		title = lo.Ellipsis(title, w.wrapWidth)
	}
	if len(w.emojis) == 0 {
		return title
	}
	return strings.Join(w.emojis, " ") + " " + title
}

// SetTitle replaces the pinned title.
func (w *windowWithTitle) SetTitle(title string) {
	w.title = title
	w.hasTitle = true
}

// Title returns the undecorated title.
func (w *windowWithTitle) Title() string { return w.title }

// AddEmoji appends a decoration shown before the title.
func (w *windowWithTitle) AddEmoji(emoji string) {
	w.emojis = append(w.emojis, emoji)
}
