package task

import "time"

// job is the bookkeeping record behind a Handle. All fields are guarded by
// the owning Handle's mutex; nothing here locks.
type job struct {
	totalJobs     int
	completedJobs int
	status        Status
	failureCount  int
	retryCount    int
	maxRetries    int
	errMessage    string
	cancelReason  string
	createdAt     time.Time

	// last progress observation, used for the speed estimate. A zero
	// lastUpdateAt means no observation was recorded yet.
	lastUpdateAt        time.Time
	lastUpdateCompleted int
	speed               float64 // jobs per second
}

func newJob(total int) job {
	return job{
		totalJobs:  total,
		status:     StatusPending,
		maxRetries: 3,
		createdAt:  time.Now(),
	}
}

// setStatus applies a transition. Retry count is cleared only when the task
// completes, so a task that succeeded after retries reports zero pending
// retries while failureCount still records the history.
func (j *job) setStatus(s Status) {
	j.status = s
	switch s {
	case StatusCompleted:
		j.retryCount = 0
	case StatusRetry:
		j.retryCount++
		j.errMessage = ""
	case StatusFailed:
		j.failureCount++
	}
}

// setProgress records an absolute progress value at now. The first
// observation only establishes the baseline; later observations with a
// positive time and work delta refresh the speed estimate.
func (j *job) setProgress(completed int, now time.Time) {
	prevAt := j.lastUpdateAt
	prevCompleted := j.lastUpdateCompleted

	j.completedJobs = completed
	j.lastUpdateAt = now
	j.lastUpdateCompleted = completed

	if prevAt.IsZero() {
		return
	}
	dt := now.Sub(prevAt).Seconds()
	delta := completed - prevCompleted
	if dt > 0 && delta > 0 {
		j.speed = float64(delta) / dt
	}
}

// percentage returns completed/total clamped to [0,100]. A task with no
// total reports 0.
func (j *job) percentage() float64 {
	if j.totalJobs <= 0 {
		return 0
	}
	p := float64(j.completedJobs) / float64(j.totalJobs) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// remaining returns the estimated time left, and whether an estimate exists.
// An estimate needs a speed observation; a finished task reports zero.
func (j *job) remaining() (time.Duration, bool) {
	if j.totalJobs > 0 && j.completedJobs >= j.totalJobs {
		return 0, true
	}
	if j.speed <= 0 || j.totalJobs <= 0 {
		return 0, false
	}
	left := j.totalJobs - j.completedJobs
	return time.Duration(float64(left) / j.speed * float64(time.Second)), true
}
