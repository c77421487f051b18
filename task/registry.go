package task

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// registry is the one structure shared by every task: an id-to-handle map
// behind a read/write lock plus a monotonic id allocator. Looking up one
// task takes a read lock only, so it never blocks work on another task.
type registry struct {
	mu      sync.RWMutex
	handles map[uint64]*Handle
	nextID  atomic.Uint64

	// background task functions run under one group; Wait returns the
	// first failure after every function has finished.
	group errgroup.Group
}

func newRegistry() *registry {
	return &registry{handles: map[uint64]*Handle{}}
}

// allocateID hands out the next task id. Ids are never reused, even after
// the task is removed.
func (r *registry) allocateID() uint64 {
	return r.nextID.Add(1)
}

// register stores h under its id. The id must come from allocateID;
// reusing or fabricating one is a programming error.
func (r *registry) register(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handles[h.id]; exists {
		panic(fmt.Sprintf("task id %d registered twice", h.id))
	}
	r.handles[h.id] = h
}

// get returns the handle for id, if present.
func (r *registry) get(id uint64) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// remove drops id from the registry. Existing handles stay usable for
// statistics queries.
func (r *registry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

// count returns the number of registered tasks.
func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// ids returns the registered task ids in unspecified order.
func (r *registry) ids() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint64, 0, len(r.handles))
	for id := range r.handles {
		out = append(out, id)
	}
	return out
}

// all returns a snapshot of every registered handle.
func (r *registry) all() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	return out
}

// spawn runs fn as a background unit tracked by join.
func (r *registry) spawn(fn func() error) {
	r.group.Go(fn)
}

// join waits for every background unit. One task failing does not stop the
// others; the first error is returned once all have finished.
func (r *registry) join() error {
	return r.group.Wait()
}

// cancelAll requests cooperative cancellation of every registered task.
func (r *registry) cancelAll(reason string) {
	for _, h := range r.all() {
		h.Cancel(reason)
	}
}
