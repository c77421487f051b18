package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/progress/mode"
)

func TestRenderOrdersTasksByID(t *testing.T) {
	m, out := testManager(t)

	a, err := m.CreateTask(mode.Window(3), 0)
	require.NoError(t, err)
	b, err := m.CreateTask(mode.Window(3), 0)
	require.NoError(t, err)

	// Update out of id order; the frame must still be id ordered.
	b.CaptureStdout("b1")
	a.CaptureStdout("a1")
	a.CaptureStdout("a2")

	out.Reset()
	require.NoError(t, m.Render())

	assert.Equal(t, []string{clearFrame, "a1", "a2", "", "b1"}, out.Lines())
}

func TestRenderIsDeterministicAcrossCalls(t *testing.T) {
	m, out := testManager(t)

	h, err := m.CreateTask(mode.WindowWithTitle(3), 0)
	require.NoError(t, err)
	h.CaptureStdout("Build")
	h.CaptureStdout("step 1")

	out.Reset()
	require.NoError(t, m.Render())
	first := out.Lines()

	out.Reset()
	require.NoError(t, m.Render())
	assert.Equal(t, first, out.Lines())
}

func TestRenderEmptyManagerEmitsOnlyClear(t *testing.T) {
	m, out := testManager(t)

	out.Reset()
	require.NoError(t, m.Render())
	assert.Equal(t, []string{clearFrame}, out.Lines())
}

func TestRemoveDropsTaskFromFrame(t *testing.T) {
	m, out := testManager(t)

	a, err := m.CreateTask(mode.Window(2), 0)
	require.NoError(t, err)
	b, err := m.CreateTask(mode.Window(2), 0)
	require.NoError(t, err)
	a.CaptureStdout("a")
	b.CaptureStdout("b")

	m.Remove(a.ID())
	out.Reset()
	require.NoError(t, m.Render())
	assert.Equal(t, []string{clearFrame, "b"}, out.Lines())
}
