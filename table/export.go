// Package table implements the import/export tables of spec.md §4.4: the
// bookkeeping by which each side tracks references to local (exported) and
// remote (imported) capabilities, refcounts them, and disposes of them.
package table

import (
	"fmt"
	"sync"

	"github.com/capnweb-go/capnweb/wire"
)

// Export is a locally held capability the peer has been given a reference
// to (spec.md §3 "Export entry"). Identified by a positive id chosen by
// this side; RefCount is the number of outstanding remote references.
type Export struct {
	ID         int64
	Capability interface{}
	RefCount   int64
	Path       wire.Path
}

// Exports is the local side's export table. Allocation policy is a
// monotonic counter starting above the reserved main id 0 (spec.md §4.4:
// "smallest unused id, or a monotonic counter — consistency is local").
type Exports struct {
	mu      sync.Mutex
	next    int64
	entries map[int64]*Export
	main    interface{}
}

// NewExports seeds entry id 0 with main, the reserved main-capability slot
// (spec.md §3 "Main capability"): every peer reference to our main is
// devaluated as wire.Ref{Kind: RefImport, ID: 0} (session.go's targetRef),
// so id 0 must already resolve via Get/IncRef/Release like any other
// export, just never actually disposed (mirrors table/import.go's id == 0
// special-casing on the import side).
func NewExports(main interface{}) *Exports {
	entries := make(map[int64]*Export)
	entries[0] = &Export{ID: 0, Capability: main, RefCount: 1}
	return &Exports{next: 1, entries: entries, main: main}
}

// Main returns the locally declared main capability, occupying wire id 0
// (spec.md §3 "Main capability").
func (t *Exports) Main() interface{} { return t.main }

// Export allocates a fresh export entry for cap, initial refcount 1.
func (t *Exports) Export(cap interface{}, path wire.Path) *Export {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	e := &Export{ID: id, Capability: cap, RefCount: 1, Path: path}
	t.entries[id] = e
	return e
}

// FindByCapability returns an existing export entry for cap if one is
// already live, so the devaluator can reuse ids rather than exporting the
// same capability twice (spec.md §4.3 rule 2: "allocate a new export
// entry (or reuse an existing one)").
func (t *Exports) FindByCapability(cap interface{}) (*Export, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.Capability == cap && len(e.Path) == 0 {
			return e, true
		}
	}
	return nil, false
}

func (t *Exports) Get(id int64) (*Export, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return e, ok
}

// IncRef bumps id's refcount by n: the peer re-referenced one of our own
// exports via an inbound ["import", id] (spec.md §4.3 evaluation rules).
func (t *Exports) IncRef(id int64, n int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return fmt.Errorf("table: incref of unknown export %d", id)
	}
	e.RefCount += n
	return nil
}

// Release applies an inbound release(id, count) message: decrements
// refcount and removes the entry once it reaches zero (invariant 1). id 0
// names our own main capability and is never removed (spec.md invariant
// 5), matching Imports.Release's id == 0 special case.
func (t *Exports) Release(id int64, count int64) (removed bool, err error) {
	if id == 0 {
		return false, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return false, fmt.Errorf("table: release of unknown export %d", id)
	}
	e.RefCount -= count
	if e.RefCount < 0 {
		return false, fmt.Errorf("table: export %d refcount underflow", id)
	}
	if e.RefCount == 0 {
		delete(t.entries, id)
		return true, nil
	}
	return false, nil
}

func (t *Exports) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Snapshot returns the live export ids, used by tests to verify spec.md §8
// property 2: at rest, only the main entry remains.
func (t *Exports) Snapshot() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]int64, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	return ids
}

// Clear drops every export entry, including the main slot at id 0.
func (t *Exports) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[int64]*Export)
}
