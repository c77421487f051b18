package task

import (
	"context"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/flanksource/commons/logger"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/flanksource/progress/errors"
	"github.com/flanksource/progress/mode"
	"github.com/flanksource/progress/sink"
)

// Manager owns the task registry, the parent/child hierarchy, the cached
// display lines and the renderer. All engine state hangs off a Manager;
// there are no package globals, so independent managers never interfere.
type Manager struct {
	opts     Options
	registry *registry
	out      *sink.Synced

	// hierarchy links are kept here rather than on the handles so that
	// linking a child updates both directions under one lock.
	hierarchyMu sync.RWMutex
	parents     map[uint64]uint64
	children    map[uint64][]uint64

	// latest visible snapshot per task, consumed by the renderer.
	linesMu sync.RWMutex
	lines   map[uint64][]string

	styles      styleSet
	interactive bool
	dirty       atomic.Bool
	stopped     atomic.Bool

	renderStop chan struct{}
	renderDone chan struct{}
}

// NewManager builds a manager with default options writing to stdout.
func NewManager() *Manager {
	return NewManagerWithOptions(DefaultOptions())
}

// NewManagerWithOptions builds a manager from opts. When the output is an
// interactive terminal and progress display is enabled, a background
// renderer redraws the display at the configured interval.
func NewManagerWithOptions(opts Options) *Manager {
	out := opts.Output
	if out == nil {
		out = sink.Stdout()
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd())) && !opts.NoProgress
	if opts.WindowWidth == 0 {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			opts.WindowWidth = w
		}
	}

	renderer := lipgloss.NewRenderer(os.Stdout)
	if opts.NoColor {
		renderer.SetColorProfile(termenv.Ascii)
	}

	m := &Manager{
		opts:        opts,
		registry:    newRegistry(),
		out:         sink.NewSynced(out),
		parents:     map[uint64]uint64{},
		children:    map[uint64][]uint64{},
		lines:       map[uint64][]string{},
		styles:      newStyleSet(renderer),
		interactive: interactive,
	}

	if interactive {
		m.renderStop = make(chan struct{})
		m.renderDone = make(chan struct{})
		go m.renderLoop()
	}
	return m
}

// newHandle builds and registers a handle for the given mode.
func (m *Manager) newHandle(md mode.Mode, total int) (*Handle, error) {
	var stateOpts []mode.Option
	if md.Kind() == mode.KindLimited {
		stateOpts = append(stateOpts, mode.WithPassthrough(m.out))
	}
	if m.opts.WindowWidth > 0 {
		stateOpts = append(stateOpts, mode.WithWrapWidth(m.opts.WindowWidth))
	}
	state, err := mode.New(md, stateOpts...)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		id:      m.registry.allocateID(),
		manager: m,
		state:   state,
		job:     newJob(total),
		done:    make(chan struct{}),
	}
	if m.opts.MaxRetries > 0 {
		h.job.maxRetries = m.opts.MaxRetries
	}
	m.registry.register(h)
	return h, nil
}

// CreateTask registers a new task using the given display mode and job
// total. A total of 0 means the total is not yet known.
func (m *Manager) CreateTask(md mode.Mode, total int) (*Handle, error) {
	return m.newHandle(md, total)
}

// CreateTaskWithTitle registers a task whose mode shows a pinned title.
func (m *Manager) CreateTaskWithTitle(md mode.Mode, title string) (*Handle, error) {
	h, err := m.newHandle(md, 0)
	if err != nil {
		return nil, err
	}
	if err := h.SetTitle(title); err != nil {
		m.Remove(h.id)
		return nil, err
	}
	return h, nil
}

// CreateChildTask registers a task linked under parentID. Both directions
// of the link are installed under the hierarchy lock, so no reader ever
// observes a child that knows its parent before the parent knows the child.
func (m *Manager) CreateChildTask(parentID uint64, md mode.Mode, title string, total int) (*Handle, error) {
	if _, ok := m.registry.get(parentID); !ok {
		return nil, errors.TaskNotFound(parentID, "create-child-task")
	}
	h, err := m.newHandle(md, total)
	if err != nil {
		return nil, err
	}
	if title != "" {
		// Only modes with a title accept one; others just show output.
		_ = h.SetTitle(title)
	}

	m.hierarchyMu.Lock()
	m.parents[h.id] = parentID
	m.children[parentID] = append(m.children[parentID], h.id)
	m.hierarchyMu.Unlock()
	return h, nil
}

// Func is a task body. It should poll h.Cancelled or select on h.Done to
// honor cancellation.
type Func func(ctx context.Context, h *Handle) error

// Spawn registers a task and runs fn in the background. Retryable failures
// are re-attempted up to the task's retry budget with backoff; the final
// error is recorded on the task and reported by Wait.
func (m *Manager) Spawn(md mode.Mode, total int, fn Func) (*Handle, error) {
	h, err := m.newHandle(md, total)
	if err != nil {
		return nil, err
	}
	m.registry.spawn(func() error {
		return m.run(h, fn)
	})
	return h, nil
}

func (m *Manager) run(h *Handle, fn Func) error {
	ctx := context.Background()
	h.SetStatus(StatusRunning)
	cfg := m.retryConfig(h)
	for {
		err := fn(ctx, h)
		if h.Cancelled() {
			return nil
		}
		if err == nil {
			if h.Status() == StatusRunning {
				h.SetStatus(StatusCompleted)
			}
			return nil
		}
		if errors.IsRetryable(err) && h.RetryCount() < h.MaxRetries() {
			h.Retrying()
			logger.Debugf("task %d attempt %d failed, retrying: %v", h.id, h.RetryCount(), err)
			select {
			case <-time.After(cfg.Delay(h.RetryCount())):
				h.SetStatus(StatusRunning)
				continue
			case <-h.Done():
				return nil
			}
		}
		h.Fail(err)
		return errors.WithContext(err, errors.Context{TaskID: h.id, Component: "task"})
	}
}

func (m *Manager) retryConfig(h *Handle) errors.RetryConfig {
	cfg := errors.DefaultRetryConfig()
	cfg.MaxRetries = h.MaxRetries()
	if m.opts.RetryDelay > 0 {
		cfg.BaseDelay = m.opts.RetryDelay
	}
	return cfg
}

// Get returns the handle for id.
func (m *Manager) Get(id uint64) (*Handle, error) {
	h, ok := m.registry.get(id)
	if !ok {
		return nil, errors.TaskNotFound(id, "get")
	}
	return h, nil
}

// TaskCount returns the number of registered tasks.
func (m *Manager) TaskCount() int { return m.registry.count() }

// Remove unregisters id and unlinks it from the hierarchy. Handles already
// held stay usable for statistics queries.
func (m *Manager) Remove(id uint64) {
	m.hierarchyMu.Lock()
	if parent, ok := m.parents[id]; ok {
		m.children[parent] = removeID(m.children[parent], id)
		delete(m.parents, id)
	}
	for _, child := range m.children[id] {
		delete(m.parents, child)
	}
	delete(m.children, id)
	m.hierarchyMu.Unlock()

	m.registry.remove(id)
	m.linesMu.Lock()
	delete(m.lines, id)
	m.linesMu.Unlock()
	m.dirty.Store(true)
}

// SetTitle updates the title of task id.
func (m *Manager) SetTitle(id uint64, title string) error {
	h, ok := m.registry.get(id)
	if !ok {
		return errors.TaskNotFound(id, "set-title")
	}
	return h.SetTitle(title)
}

// AddEmoji decorates the title of task id.
func (m *Manager) AddEmoji(id uint64, emoji string) error {
	h, ok := m.registry.get(id)
	if !ok {
		return errors.TaskNotFound(id, "add-emoji")
	}
	return h.AddEmoji(emoji)
}

// SetTotalJobs replaces the job total of task id.
func (m *Manager) SetTotalJobs(id uint64, total int) error {
	h, ok := m.registry.get(id)
	if !ok {
		return errors.TaskNotFound(id, "set-total-jobs")
	}
	return h.SetTotalJobs(total)
}

// SetProgress records an absolute completed count for task id.
func (m *Manager) SetProgress(id uint64, completed int) error {
	h, ok := m.registry.get(id)
	if !ok {
		return errors.TaskNotFound(id, "set-progress")
	}
	h.SetProgress(completed)
	return nil
}

// ProgressPercentage returns the clamped completion percentage of task id.
func (m *Manager) ProgressPercentage(id uint64) (float64, error) {
	h, ok := m.registry.get(id)
	if !ok {
		return 0, errors.TaskNotFound(id, "progress-percentage")
	}
	return h.ProgressPercentage(), nil
}

// CumulativeProgress returns the task's own percentage averaged equally
// with the cumulative percentage of each direct child. The value is
// computed fresh from current state on every call.
func (m *Manager) CumulativeProgress(id uint64) (float64, error) {
	h, ok := m.registry.get(id)
	if !ok {
		return 0, errors.TaskNotFound(id, "cumulative-progress")
	}
	m.hierarchyMu.RLock()
	defer m.hierarchyMu.RUnlock()
	return m.cumulative(h), nil
}

// cumulative is called with hierarchyMu held for reading.
func (m *Manager) cumulative(h *Handle) float64 {
	sum := h.ProgressPercentage()
	terms := 1
	for _, childID := range m.children[h.id] {
		child, ok := m.registry.get(childID)
		if !ok {
			continue
		}
		sum += m.cumulative(child)
		terms++
	}
	return sum / float64(terms)
}

func (m *Manager) parentOf(id uint64) uint64 {
	m.hierarchyMu.RLock()
	defer m.hierarchyMu.RUnlock()
	return m.parents[id]
}

func (m *Manager) childrenOf(id uint64) []uint64 {
	m.hierarchyMu.RLock()
	defer m.hierarchyMu.RUnlock()
	out := make([]uint64, len(m.children[id]))
	copy(out, m.children[id])
	return out
}

// unlinkChild removes the parent→child link in both directions, reporting
// whether it existed.
func (m *Manager) unlinkChild(parentID, childID uint64) bool {
	m.hierarchyMu.Lock()
	defer m.hierarchyMu.Unlock()
	if m.parents[childID] != parentID {
		return false
	}
	delete(m.parents, childID)
	m.children[parentID] = removeID(m.children[parentID], childID)
	return true
}

func removeID(ids []uint64, id uint64) []uint64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// publish stores a task's latest visible snapshot for the renderer.
func (m *Manager) publish(id uint64, lines []string) {
	m.linesMu.Lock()
	m.lines[id] = lines
	m.linesMu.Unlock()
	m.dirty.Store(true)
}

func (m *Manager) markDirty() { m.dirty.Store(true) }

// sortedIDs returns the ids with cached lines in ascending order, so the
// frame layout is deterministic regardless of update order.
func (m *Manager) sortedIDs() []uint64 {
	m.linesMu.RLock()
	defer m.linesMu.RUnlock()
	ids := make([]uint64, 0, len(m.lines))
	for id := range m.lines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CancelAll requests cooperative cancellation of every task.
func (m *Manager) CancelAll(reason string) {
	m.registry.cancelAll(reason)
}

// Wait blocks until every spawned task function has finished and returns
// the first failure, if any. Tasks are isolated: one failing never stops
// the others.
func (m *Manager) Wait() error {
	return m.registry.join()
}

// Stop shuts the manager down: cancels every task, waits for spawned
// functions, stops the renderer, draws a final frame and releases the
// output sink. Safe to call more than once.
func (m *Manager) Stop() error {
	if !m.stopped.CompareAndSwap(false, true) {
		return nil
	}
	m.registry.cancelAll("manager stopped")
	runErr := m.registry.join()

	if m.renderStop != nil {
		close(m.renderStop)
		<-m.renderDone
	}
	if err := m.Render(); err != nil {
		logger.Errorf("final render failed: %v", err)
	}
	if err := m.out.Close(); err != nil {
		logger.Errorf("closing output sink failed: %v", err)
	}
	return runErr
}
