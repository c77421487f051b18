package task

import (
	"os"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/muesli/termenv"
)

// clearFrame resets the terminal before each redraw: erase the screen and
// move the cursor home.
const clearFrame = "\x1b[2J\x1b[1H"

// Render draws one frame: the clear sequence, then every task's cached
// lines in ascending id order with a blank line between tasks, written to
// the sink as a single block so concurrent passthrough output never lands
// inside the frame.
func (m *Manager) Render() error {
	block := []string{clearFrame}
	for i, id := range m.sortedIDs() {
		if i > 0 {
			block = append(block, "")
		}
		block = append(block, m.snapshot(id)...)
	}
	return m.out.WriteBlock(block)
}

func (m *Manager) snapshot(id uint64) []string {
	m.linesMu.RLock()
	defer m.linesMu.RUnlock()
	out := make([]string, len(m.lines[id]))
	copy(out, m.lines[id])
	return out
}

// renderLoop redraws the display at the configured interval while any task
// state changed since the last frame. Runs only for interactive terminals.
func (m *Manager) renderLoop() {
	defer close(m.renderDone)

	interval := m.opts.RenderInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	out := termenv.NewOutput(os.Stdout)
	out.HideCursor()
	defer out.ShowCursor()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !m.dirty.Swap(false) {
				continue
			}
			if err := m.Render(); err != nil {
				logger.Debugf("render failed: %v", err)
			}
		case <-m.renderStop:
			return
		}
	}
}
