package task

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/flanksource/commons/text"
)

// Report is a point-in-time snapshot of a task's statistics. It stays
// valid after the task leaves the registry.
type Report struct {
	TaskID             uint64
	Status             Status
	TotalJobs          int
	CompletedJobs      int
	ProgressPercentage float64
	Elapsed            time.Duration
	EstimatedRemaining time.Duration
	HasEstimate        bool
	Speed              float64
	FailureCount       int
	RetryCount         int
	MaxRetries         int
	Cancelled          bool
	CancelReason       string
	ErrorMessage       string
	ParentJobID        uint64
	ChildJobCount      int
}

// Statistics captures a consistent snapshot of the task's counters and
// timing estimates.
func (h *Handle) Statistics() Report {
	h.mu.Lock()
	r := Report{
		TaskID:             h.id,
		Status:             h.job.status,
		TotalJobs:          h.job.totalJobs,
		CompletedJobs:      h.job.completedJobs,
		ProgressPercentage: h.job.percentage(),
		Elapsed:            time.Since(h.job.createdAt),
		Speed:              h.job.speed,
		FailureCount:       h.job.failureCount,
		RetryCount:         h.job.retryCount,
		MaxRetries:         h.job.maxRetries,
		CancelReason:       h.job.cancelReason,
		ErrorMessage:       h.job.errMessage,
	}
	r.EstimatedRemaining, r.HasEstimate = h.job.remaining()
	h.mu.Unlock()

	r.Cancelled = h.cancelled.Load()
	r.ParentJobID = h.manager.parentOf(h.id)
	r.ChildJobCount = len(h.manager.childrenOf(h.id))
	return r
}

// Pretty renders the report for humans, using the manager's styles.
func (h *Handle) Pretty() string {
	return h.manager.pretty(h.Statistics())
}

func (m *Manager) pretty(r Report) string {
	style := m.styles.forStatus(r.Status)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s task %d %s",
		style.Render(r.Status.Icon()), r.TaskID, style.Render(string(r.Status)))
	if r.TotalJobs > 0 {
		fmt.Fprintf(&sb, " %d/%d (%.1f%%)", r.CompletedJobs, r.TotalJobs, r.ProgressPercentage)
	}
	fmt.Fprintf(&sb, " in %s", text.HumanizeDuration(r.Elapsed))
	if r.HasEstimate && r.EstimatedRemaining > 0 {
		fmt.Fprintf(&sb, ", %s left", text.HumanizeDuration(r.EstimatedRemaining))
	}
	if r.Speed > 0 {
		fmt.Fprintf(&sb, " (%.1f/s)", r.Speed)
	}
	if r.RetryCount > 0 {
		fmt.Fprintf(&sb, " %s", m.styles.retry.Render(fmt.Sprintf("retry %d/%d", r.RetryCount, r.MaxRetries)))
	}
	if r.ErrorMessage != "" {
		fmt.Fprintf(&sb, " %s", m.styles.failed.Render(r.ErrorMessage))
	}
	if r.Cancelled && r.CancelReason != "" {
		fmt.Fprintf(&sb, " %s", m.styles.muted.Render("("+r.CancelReason+")"))
	}
	return sb.String()
}

// Summary returns one pretty line per registered task in id order.
func (m *Manager) Summary() string {
	var sb strings.Builder
	handles := m.registry.all()
	byID := map[uint64]*Handle{}
	ids := make([]uint64, 0, len(handles))
	for _, h := range handles {
		byID[h.id] = h
		ids = append(ids, h.id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		sb.WriteString(m.pretty(byID[id].Statistics()))
		sb.WriteString("\n")
	}
	return sb.String()
}
