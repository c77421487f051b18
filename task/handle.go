package task

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/flanksource/progress/errors"
	"github.com/flanksource/progress/mode"
)

// Handle is the caller-facing reference to one task. Each handle owns its
// display state and job record behind its own mutex, so operations on
// different tasks never contend. Parent/child links live in the Manager
// under the hierarchy lock, not here.
type Handle struct {
	id      uint64
	manager *Manager

	mu    sync.Mutex
	state mode.State
	job   job

	cancelled  atomic.Bool
	done       chan struct{}
	cancelOnce sync.Once
}

// ID returns the task id. Ids are allocated monotonically and never reused.
func (h *Handle) ID() uint64 { return h.id }

// LinesToDisplay reports the terminal lines this task's mode occupies.
func (h *Handle) LinesToDisplay() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.LinesToDisplay()
}

// CaptureStdout feeds one output line through the task's display mode and
// publishes the resulting snapshot to the renderer.
func (h *Handle) CaptureStdout(line string) {
	h.mu.Lock()
	snapshot := h.state.HandleMessage(line)
	h.mu.Unlock()
	h.manager.publish(h.id, snapshot)
}

// Lines returns the task's current visible snapshot.
func (h *Handle) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Lines()
}

// SetTitle updates the pinned title. Modes without a title reject the call.
func (h *Handle) SetTitle(title string) error {
	h.mu.Lock()
	ts, ok := h.state.(mode.TitleSetter)
	if !ok {
		h.mu.Unlock()
		return errors.New(errors.TaskOperation, "mode does not support a title",
			errors.WithTaskID(h.id), errors.WithOperation("set-title"))
	}
	ts.SetTitle(title)
	snapshot := h.state.Lines()
	h.mu.Unlock()
	h.manager.publish(h.id, snapshot)
	return nil
}

// AddEmoji prepends a decoration to the title. Modes without a title reject
// the call.
func (h *Handle) AddEmoji(emoji string) error {
	h.mu.Lock()
	ea, ok := h.state.(mode.EmojiAdder)
	if !ok {
		h.mu.Unlock()
		return errors.New(errors.TaskOperation, "mode does not support emoji",
			errors.WithTaskID(h.id), errors.WithOperation("add-emoji"))
	}
	ea.AddEmoji(emoji)
	snapshot := h.state.Lines()
	h.mu.Unlock()
	h.manager.publish(h.id, snapshot)
	return nil
}

// SetTotalJobs replaces the job total. Zero is rejected and the previous
// total is kept, since a zero denominator would make every percentage
// meaningless.
func (h *Handle) SetTotalJobs(total int) error {
	if total == 0 {
		return errors.New(errors.DisplayOperation, "total jobs must be greater than zero",
			errors.WithTaskID(h.id), errors.WithOperation("set-total-jobs"))
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.job.totalJobs = total
	return nil
}

// TotalJobs returns the configured total.
func (h *Handle) TotalJobs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.totalJobs
}

// CompletedJobs returns the completed count.
func (h *Handle) CompletedJobs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.completedJobs
}

// SetProgress records an absolute completed count, refreshing the speed
// estimate. Reaching the total marks the task completed.
func (h *Handle) SetProgress(completed int) {
	h.mu.Lock()
	h.job.setProgress(completed, time.Now())
	if h.job.totalJobs > 0 && h.job.completedJobs >= h.job.totalJobs && !h.job.status.Terminal() {
		h.job.setStatus(StatusCompleted)
	}
	h.mu.Unlock()
	h.manager.markDirty()
}

// Increment advances progress by one job.
func (h *Handle) Increment() {
	h.mu.Lock()
	completed := h.job.completedJobs + 1
	h.job.setProgress(completed, time.Now())
	if h.job.totalJobs > 0 && completed >= h.job.totalJobs && !h.job.status.Terminal() {
		h.job.setStatus(StatusCompleted)
	}
	h.mu.Unlock()
	h.manager.markDirty()
}

// ProgressPercentage returns completion as a percentage clamped to [0,100].
func (h *Handle) ProgressPercentage() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.percentage()
}

// Elapsed returns the time since the task was created.
func (h *Handle) Elapsed() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Since(h.job.createdAt)
}

// Speed returns the current jobs-per-second estimate, 0 when unknown.
func (h *Handle) Speed() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.speed
}

// EstimatedTimeRemaining returns the projected time to finish. The second
// return is false until enough progress observations exist to estimate.
func (h *Handle) EstimatedTimeRemaining() (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.remaining()
}

// Status returns the task's lifecycle state.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.status
}

// SetStatus applies a lifecycle transition.
func (h *Handle) SetStatus(s Status) {
	h.mu.Lock()
	h.job.setStatus(s)
	h.mu.Unlock()
	h.manager.markDirty()
}

// Fail records err and moves the task to failed.
func (h *Handle) Fail(err error) {
	h.mu.Lock()
	if err != nil {
		h.job.errMessage = err.Error()
	}
	h.job.setStatus(StatusFailed)
	h.mu.Unlock()
	h.manager.markDirty()
}

// Retrying clears the previous error and counts a retry attempt.
func (h *Handle) Retrying() {
	h.SetStatus(StatusRetry)
}

// ErrorMessage returns the recorded failure message, if any.
func (h *Handle) ErrorMessage() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.errMessage
}

// RetryCount returns the retries consumed so far.
func (h *Handle) RetryCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.retryCount
}

// MaxRetries returns the retry budget.
func (h *Handle) MaxRetries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.maxRetries
}

// SetMaxRetries replaces the retry budget.
func (h *Handle) SetMaxRetries(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.job.maxRetries = n
}

// FailureCount returns how many times the task has failed.
func (h *Handle) FailureCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.failureCount
}

// Cancel requests cooperative cancellation with an optional reason. The
// task function keeps running until it observes Cancelled or Done.
func (h *Handle) Cancel(reason string) {
	h.cancelOnce.Do(func() {
		h.mu.Lock()
		h.job.cancelReason = reason
		if !h.job.status.Terminal() {
			h.job.setStatus(StatusCancelled)
		}
		h.mu.Unlock()
		h.cancelled.Store(true)
		close(h.done)
		h.manager.markDirty()
	})
}

// Cancelled reports whether cancellation was requested. Cheap enough to
// poll from a tight loop.
func (h *Handle) Cancelled() bool { return h.cancelled.Load() }

// CancelReason returns the reason passed to Cancel, if any.
func (h *Handle) CancelReason() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.cancelReason
}

// Done returns a channel closed when cancellation is requested, for
// select-based task functions.
func (h *Handle) Done() <-chan struct{} { return h.done }

// ParentJobID returns the parent task id, 0 when the task has no parent.
func (h *Handle) ParentJobID() uint64 {
	return h.manager.parentOf(h.id)
}

// ChildJobIDs returns the direct child ids in registration order.
func (h *Handle) ChildJobIDs() []uint64 {
	return h.manager.childrenOf(h.id)
}

// RemoveChildJob unlinks a direct child, reporting whether the link
// existed. The child task itself keeps running.
func (h *Handle) RemoveChildJob(childID uint64) bool {
	return h.manager.unlinkChild(h.id, childID)
}
