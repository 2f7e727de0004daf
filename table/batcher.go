package table

import (
	"sync"
	"time"
)

// ReleaseBatcher accumulates release(id, count) pairs and flushes them
// once flushCount releases (default 32) have queued up or flushInterval
// (default 50ms) has elapsed since the first unflushed release, whichever
// comes first. Cadence is unspecified by spec.md §4.4 ("Release batching")
// and §9; this implementation's choice is recorded in SPEC_FULL.md §G.2.
type ReleaseBatcher struct {
	mu            sync.Mutex
	pending       map[int64]int64
	flushCount    int
	flushInterval time.Duration
	flush         func(map[int64]int64)
	timer         *time.Timer
}

const (
	DefaultFlushCount    = 32
	DefaultFlushInterval = 50 * time.Millisecond
)

// NewReleaseBatcher constructs a batcher that calls flush with the
// accumulated (id -> count) map whenever a flush triggers. flush must not
// block for long and must not call back into the batcher: it is called
// with the batcher's internal lock held.
func NewReleaseBatcher(flushCount int, flushInterval time.Duration, flush func(map[int64]int64)) *ReleaseBatcher {
	if flushCount <= 0 {
		flushCount = DefaultFlushCount
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &ReleaseBatcher{
		pending:       make(map[int64]int64),
		flushCount:    flushCount,
		flushInterval: flushInterval,
		flush:         flush,
	}
}

// Add records that count references to id should be released. It may
// trigger an immediate flush.
func (b *ReleaseBatcher) Add(id, count int64) {
	b.mu.Lock()
	b.pending[id] += count
	var total int64
	for _, c := range b.pending {
		total += c
	}
	if total >= int64(b.flushCount) {
		b.flushLocked()
		b.mu.Unlock()
		return
	}
	if b.timer == nil {
		b.timer = time.AfterFunc(b.flushInterval, b.timerFired)
	}
	b.mu.Unlock()
}

func (b *ReleaseBatcher) timerFired() {
	b.mu.Lock()
	b.flushLocked()
	b.mu.Unlock()
}

func (b *ReleaseBatcher) flushLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.pending) == 0 {
		return
	}
	batch := b.pending
	b.pending = make(map[int64]int64)
	if b.flush != nil {
		b.flush(batch)
	}
}

// Flush forces an immediate flush of whatever is pending.
func (b *ReleaseBatcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Stop cancels any pending timer without flushing, used at session
// teardown once releases no longer need to reach the peer.
func (b *ReleaseBatcher) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
