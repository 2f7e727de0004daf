package pipeline

import "sync"

// Call is one queued method invocation against a value that, at the time
// the call was issued, had not yet resolved (spec.md §4.5 "Call
// pipelining"). Method/Args describe the dataflow step to replay once the
// base value becomes known.
type Call struct {
	Method string
	Args   []interface{}
}

// Queue accumulates callbacks against one unresolved base value. All
// queued callbacks fire, in FIFO order, exactly once — when the base
// resolves (successfully or not). It also supports a blocking Wait for
// callers that have no further pipelining to do and just need the value.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	fired  bool
	result interface{}
	err    error
	queued []func(interface{}, error)
}

// NewQueue returns a ready-to-use Queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue registers fn to run once the base resolves. If the base has
// already resolved, fn runs immediately (synchronously, on the calling
// goroutine).
func (q *Queue) Enqueue(fn func(base interface{}, err error)) {
	q.mu.Lock()
	if q.fired {
		result, err := q.result, q.err
		q.mu.Unlock()
		fn(result, err)
		return
	}
	q.queued = append(q.queued, fn)
	q.mu.Unlock()
}

// Fire resolves the queue with (value, err) and drains every pending
// callback in order. Calling Fire more than once is a no-op after the
// first call.
func (q *Queue) Fire(value interface{}, err error) {
	q.mu.Lock()
	if q.fired {
		q.mu.Unlock()
		return
	}
	q.fired = true
	q.result = value
	q.err = err
	queued := q.queued
	q.queued = nil
	q.mu.Unlock()
	q.cond.Broadcast()

	for _, fn := range queued {
		fn(value, err)
	}
}

// Wait blocks the calling goroutine until the queue fires.
func (q *Queue) Wait() (interface{}, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.fired {
		q.cond.Wait()
	}
	return q.result, q.err
}

// Snapshot reports whether the queue has fired yet and, if so, its result.
func (q *Queue) Snapshot() (fired bool, value interface{}, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.fired, q.result, q.err
}
