package task

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/progress/errors"
	"github.com/flanksource/progress/mode"
	"github.com/flanksource/progress/sink"
)

func testManager(t *testing.T) (*Manager, *sink.Memory) {
	t.Helper()
	out := sink.NewMemory()
	m := NewManagerWithOptions(Options{
		NoProgress: true,
		Output:     out,
		MaxRetries: 3,
	})
	t.Cleanup(func() { _ = m.Stop() })
	return m, out
}

func TestTaskIDsAreMonotonicAndNeverReused(t *testing.T) {
	m, _ := testManager(t)

	a, err := m.CreateTask(mode.Capturing(), 0)
	require.NoError(t, err)
	b, err := m.CreateTask(mode.Capturing(), 0)
	require.NoError(t, err)
	assert.Greater(t, b.ID(), a.ID())

	m.Remove(a.ID())
	c, err := m.CreateTask(mode.Capturing(), 0)
	require.NoError(t, err)
	assert.Greater(t, c.ID(), b.ID())
}

func TestSetTotalJobsRejectsZero(t *testing.T) {
	m, _ := testManager(t)
	h, err := m.CreateTask(mode.Capturing(), 10)
	require.NoError(t, err)

	err = h.SetTotalJobs(0)
	require.Error(t, err)
	assert.Equal(t, errors.DisplayOperation, errors.KindOf(err))
	assert.Equal(t, 10, h.TotalJobs())

	require.NoError(t, h.SetTotalJobs(20))
	assert.Equal(t, 20, h.TotalJobs())
}

func TestSetTitleRequiresTitleCapableMode(t *testing.T) {
	m, _ := testManager(t)

	lim, err := m.CreateTask(mode.Limited(), 0)
	require.NoError(t, err)
	err = lim.SetTitle("nope")
	require.Error(t, err)
	assert.Equal(t, errors.TaskOperation, errors.KindOf(err))
	require.Error(t, lim.AddEmoji("🎯"))

	wt, err := m.CreateTask(mode.WindowWithTitle(3), 0)
	require.NoError(t, err)
	require.NoError(t, wt.SetTitle("titled"))
	require.NoError(t, wt.AddEmoji("🎯"))
	assert.Equal(t, []string{"🎯 titled"}, wt.Lines())
}

func TestCaptureStdoutFlowsThroughMode(t *testing.T) {
	m, _ := testManager(t)
	h, err := m.CreateTask(mode.Window(2), 0)
	require.NoError(t, err)

	h.CaptureStdout("one")
	h.CaptureStdout("two")
	h.CaptureStdout("three")
	assert.Equal(t, []string{"two", "three"}, h.Lines())
}

func TestLimitedPassthroughReachesManagerSink(t *testing.T) {
	m, out := testManager(t)
	h, err := m.CreateTask(mode.Limited(), 0)
	require.NoError(t, err)

	h.CaptureStdout("hello")
	h.CaptureStdout("world")
	assert.Equal(t, []string{"hello", "world"}, out.Lines())
}

func TestProgressCompletionMarksCompleted(t *testing.T) {
	m, _ := testManager(t)
	h, err := m.CreateTask(mode.Capturing(), 3)
	require.NoError(t, err)

	h.Increment()
	h.Increment()
	assert.Equal(t, StatusPending, h.Status())

	h.Increment()
	assert.Equal(t, StatusCompleted, h.Status())
	assert.Equal(t, 100.0, h.ProgressPercentage())
}

func TestRetryCountResetsOnlyWhenCompleted(t *testing.T) {
	m, _ := testManager(t)
	h, err := m.CreateTask(mode.Capturing(), 2)
	require.NoError(t, err)

	h.Retrying()
	h.Retrying()
	assert.Equal(t, 2, h.RetryCount())

	h.Fail(fmt.Errorf("still broken"))
	assert.Equal(t, 2, h.RetryCount())
	assert.Equal(t, 1, h.FailureCount())

	h.SetStatus(StatusCompleted)
	assert.Zero(t, h.RetryCount())
}

func TestCancelIsCooperative(t *testing.T) {
	m, _ := testManager(t)
	h, err := m.CreateTask(mode.Capturing(), 0)
	require.NoError(t, err)

	assert.False(t, h.Cancelled())
	h.Cancel("user aborted")
	assert.True(t, h.Cancelled())
	assert.Equal(t, "user aborted", h.CancelReason())
	assert.Equal(t, StatusCancelled, h.Status())

	select {
	case <-h.Done():
	default:
		t.Fatal("done channel should be closed after cancel")
	}

	// A second cancel keeps the first reason.
	h.Cancel("other")
	assert.Equal(t, "user aborted", h.CancelReason())
}

func TestConcurrentTasksStayIsolated(t *testing.T) {
	m, _ := testManager(t)

	const tasks = 8
	const messages = 200
	handles := make([]*Handle, tasks)
	for i := range handles {
		h, err := m.CreateTask(mode.Window(5), messages)
		require.NoError(t, err)
		handles[i] = h
	}

	var wg sync.WaitGroup
	for i, h := range handles {
		wg.Add(1)
		go func(i int, h *Handle) {
			defer wg.Done()
			for n := 0; n < messages; n++ {
				h.CaptureStdout(fmt.Sprintf("task%d msg%d", i, n))
				h.Increment()
			}
		}(i, h)
	}
	wg.Wait()

	for i, h := range handles {
		lines := h.Lines()
		require.Len(t, lines, 5)
		for j, line := range lines {
			assert.Equal(t, fmt.Sprintf("task%d msg%d", i, messages-5+j), line)
		}
		assert.Equal(t, 100.0, h.ProgressPercentage())
	}
}
