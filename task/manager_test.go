package task

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/progress/errors"
	"github.com/flanksource/progress/mode"
)

func TestOperationsOnMissingTaskNameIDAndOperation(t *testing.T) {
	m, _ := testManager(t)

	err := m.SetTitle(42, "ghost")
	require.Error(t, err)
	assert.Equal(t, errors.TaskOperation, errors.KindOf(err))
	assert.Contains(t, err.Error(), "task 42 not found")
	assert.Contains(t, err.Error(), "set-title")

	_, err = m.ProgressPercentage(42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "progress-percentage")
}

func TestCreateTaskPropagatesModeCreationErrors(t *testing.T) {
	m, _ := testManager(t)

	_, err := m.CreateTask(mode.WindowWithTitle(1), 0)
	require.Error(t, err)

	var sizeErr *errors.InvalidWindowSizeError
	require.True(t, stderrors.As(err, &sizeErr))
	assert.Equal(t, 1, sizeErr.Size)
	assert.Equal(t, 2, sizeErr.MinSize)
	assert.Zero(t, m.TaskCount())
}

func TestChildLinksAreVisibleFromBothSides(t *testing.T) {
	m, _ := testManager(t)

	parent, err := m.CreateTask(mode.WindowWithTitle(3), 0)
	require.NoError(t, err)
	child, err := m.CreateChildTask(parent.ID(), mode.Limited(), "", 10)
	require.NoError(t, err)

	assert.Equal(t, parent.ID(), child.ParentJobID())
	assert.Equal(t, []uint64{child.ID()}, parent.ChildJobIDs())

	assert.True(t, parent.RemoveChildJob(child.ID()))
	assert.Zero(t, child.ParentJobID())
	assert.Empty(t, parent.ChildJobIDs())

	// Second removal reports the link no longer exists.
	assert.False(t, parent.RemoveChildJob(child.ID()))
}

func TestCreateChildTaskRequiresExistingParent(t *testing.T) {
	m, _ := testManager(t)
	_, err := m.CreateChildTask(99, mode.Limited(), "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task 99 not found")
}

func TestCumulativeProgressAveragesSelfAndChildren(t *testing.T) {
	m, _ := testManager(t)

	parent, err := m.CreateTask(mode.Capturing(), 100)
	require.NoError(t, err)
	c1, err := m.CreateChildTask(parent.ID(), mode.Capturing(), "", 100)
	require.NoError(t, err)
	c2, err := m.CreateChildTask(parent.ID(), mode.Capturing(), "", 100)
	require.NoError(t, err)

	parent.SetProgress(50)
	c1.SetProgress(80)
	c2.SetProgress(40)

	got, err := m.CumulativeProgress(parent.ID())
	require.NoError(t, err)
	assert.InDelta(t, 56.666, got, 0.01)

	// A leaf's cumulative progress is its own percentage.
	leaf, err := m.CumulativeProgress(c1.ID())
	require.NoError(t, err)
	assert.InDelta(t, 80.0, leaf, 0.001)
}

func TestCumulativeProgressRecursesGrandchildren(t *testing.T) {
	m, _ := testManager(t)

	root, err := m.CreateTask(mode.Capturing(), 100)
	require.NoError(t, err)
	child, err := m.CreateChildTask(root.ID(), mode.Capturing(), "", 100)
	require.NoError(t, err)
	grand, err := m.CreateChildTask(child.ID(), mode.Capturing(), "", 100)
	require.NoError(t, err)

	root.SetProgress(100)
	child.SetProgress(50)
	grand.SetProgress(0)

	// child subtree: (50+0)/2 = 25; root: (100+25)/2 = 62.5
	got, err := m.CumulativeProgress(root.ID())
	require.NoError(t, err)
	assert.InDelta(t, 62.5, got, 0.001)
}

func TestSpawnRetriesRetryableFailuresExactlyBudgetPlusOne(t *testing.T) {
	m, _ := testManager(t)
	m.opts.RetryDelay = time.Millisecond

	var attempts atomic.Int32
	h, err := m.Spawn(mode.Capturing(), 0, func(ctx context.Context, h *Handle) error {
		attempts.Add(1)
		return errors.New(errors.External, "always failing", errors.Retryable())
	})
	require.NoError(t, err)

	waitErr := m.Wait()
	require.Error(t, waitErr)
	assert.Equal(t, int32(4), attempts.Load())
	assert.Equal(t, StatusFailed, h.Status())
	assert.Equal(t, 3, h.RetryCount())
	assert.Contains(t, h.ErrorMessage(), "always failing")
}

func TestSpawnDoesNotRetryNonRetryableErrors(t *testing.T) {
	m, _ := testManager(t)

	var attempts atomic.Int32
	h, err := m.Spawn(mode.Capturing(), 0, func(ctx context.Context, h *Handle) error {
		attempts.Add(1)
		return errors.New(errors.External, "hard failure")
	})
	require.NoError(t, err)

	require.Error(t, m.Wait())
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, StatusFailed, h.Status())
}

func TestSpawnFailureDoesNotAffectOtherTasks(t *testing.T) {
	m, _ := testManager(t)

	ok, err := m.Spawn(mode.Capturing(), 2, func(ctx context.Context, h *Handle) error {
		h.SetProgress(2)
		return nil
	})
	require.NoError(t, err)
	_, err = m.Spawn(mode.Capturing(), 0, func(ctx context.Context, h *Handle) error {
		return errors.New(errors.External, "broken")
	})
	require.NoError(t, err)

	waitErr := m.Wait()
	require.Error(t, waitErr)
	assert.Equal(t, StatusCompleted, ok.Status())
	assert.Equal(t, 100.0, ok.ProgressPercentage())
}

func TestCancelAllStopsSpawnedTasks(t *testing.T) {
	m, _ := testManager(t)

	started := make(chan struct{})
	h, err := m.Spawn(mode.Capturing(), 0, func(ctx context.Context, h *Handle) error {
		close(started)
		<-h.Done()
		return nil
	})
	require.NoError(t, err)

	<-started
	m.CancelAll("shutting down")
	require.NoError(t, m.Wait())
	assert.True(t, h.Cancelled())
	assert.Equal(t, "shutting down", h.CancelReason())
}

func TestStatisticsSurviveRemoval(t *testing.T) {
	m, _ := testManager(t)

	h, err := m.CreateTask(mode.Capturing(), 4)
	require.NoError(t, err)
	h.SetProgress(4)
	m.Remove(h.ID())

	_, err = m.Get(h.ID())
	require.Error(t, err)

	r := h.Statistics()
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, 4, r.CompletedJobs)
	assert.Equal(t, 100.0, r.ProgressPercentage)
}

func TestStopIsIdempotent(t *testing.T) {
	m, _ := testManager(t)
	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())
}
