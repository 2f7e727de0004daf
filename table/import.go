package table

import (
	"fmt"
	"sync"

	"github.com/capnweb-go/capnweb/wire"
)

// ResolutionState is the resolution state of an Import (spec.md §3
// "Import entry").
type ResolutionState int

const (
	Pending ResolutionState = iota
	Fulfilled
	Rejected
)

// Import is a remote capability the peer sent, identified by the id the
// exporting side assigned. RefCount is the number of outstanding local
// stubs; once it reaches zero the owning Imports table schedules a
// release message and deletes the entry (invariant 2).
type Import struct {
	ID   int64
	Path wire.Path

	mu       sync.Mutex
	cond     *sync.Cond
	refCount int64
	state    ResolutionState
	value    interface{}
	err      error
}

func newImport(id int64, path wire.Path) *Import {
	im := &Import{ID: id, Path: path, refCount: 1, state: Pending}
	im.cond = sync.NewCond(&im.mu)
	return im
}

// Resolve fulfills the import with v. A no-op if already resolved.
func (im *Import) Resolve(v interface{}) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.state != Pending {
		return
	}
	im.state = Fulfilled
	im.value = v
	im.cond.Broadcast()
}

// Reject fails the import with err. A no-op if already resolved.
func (im *Import) Reject(err error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.state != Pending {
		return
	}
	im.state = Rejected
	im.err = err
	im.cond.Broadcast()
}

// Wait blocks the calling goroutine until the import resolves. Per
// spec.md §5, this is one of the suspension points user code may hit;
// it must never be called from the session's own dispatch loop.
func (im *Import) Wait() (interface{}, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	for im.state == Pending {
		im.cond.Wait()
	}
	return im.value, im.err
}

// Snapshot returns the current resolution state without blocking.
func (im *Import) Snapshot() (ResolutionState, interface{}, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.state, im.value, im.err
}

func (im *Import) incRef() {
	im.mu.Lock()
	im.refCount++
	im.mu.Unlock()
}

func (im *Import) decRef() int64 {
	im.mu.Lock()
	im.refCount--
	n := im.refCount
	im.mu.Unlock()
	return n
}

// Imports is the local side's import table, keyed by the peer's export
// ids. releaseFn is invoked (synchronously) whenever an entry's refcount
// reaches zero, so the session can enqueue or batch the release message.
type Imports struct {
	mu        sync.Mutex
	entries   map[int64]*Import
	releaseFn func(id int64, count int64)
}

func NewImports(releaseFn func(id, count int64)) *Imports {
	return &Imports{entries: make(map[int64]*Import), releaseFn: releaseFn}
}

// GetOrCreate returns the import entry for id, creating a pending one on
// first sight (an inbound ["export", id]) or incrementing the refcount of
// an existing one (a repeated reference to the same export, spec.md §4.3).
func (t *Imports) GetOrCreate(id int64, path wire.Path) *Import {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[id]; ok {
		e.incRef()
		return e
	}
	e := newImport(id, path)
	t.entries[id] = e
	return e
}

func (t *Imports) Get(id int64) (*Import, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return e, ok
}

// Dup increments id's local refcount, extending the stub's lifetime
// without creating a new wire reference (spec.md §3 "Stub").
func (t *Imports) Dup(id int64) error {
	t.mu.Lock()
	e, ok := t.entries[id]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("table: dup of unknown import %d", id)
	}
	e.incRef()
	return nil
}

// Release decrements id's local refcount; at zero it deletes the entry and
// invokes releaseFn (invariant 2). id 0 names the peer's main and is never
// released (invariant 5).
func (t *Imports) Release(id int64) {
	if id == 0 {
		return
	}
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	remaining := e.decRef()
	if remaining <= 0 {
		delete(t.entries, id)
	}
	t.mu.Unlock()
	if remaining <= 0 && t.releaseFn != nil {
		t.releaseFn(id, 1)
	}
}

func (t *Imports) Snapshot() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]int64, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	return ids
}

// RejectAll rejects every still-pending import with err (spec.md
// invariant 4: a terminal error rejects every outstanding promise).
func (t *Imports) RejectAll(err error) {
	t.mu.Lock()
	entries := make([]*Import, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	t.mu.Unlock()
	for _, e := range entries {
		e.Reject(err)
	}
}

func (t *Imports) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[int64]*Import)
}
