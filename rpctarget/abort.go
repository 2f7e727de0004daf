package rpctarget

import "sync"

// AbortSignal is the capability exported for cancellation (spec.md §4.6
// "Cancellation"): an abort signal passed as a call argument is exported
// as a target whose "abort" method the peer may invoke to request
// cancellation. The core only guarantees delivery; it imposes no
// cancellation semantics of its own, so user code observes the signal via
// OnAbort/Aborted and decides what to do.
type AbortSignal struct {
	*Base

	mu      sync.Mutex
	aborted bool
	reason  interface{}
	onAbort []func(reason interface{})
}

func NewAbortSignal() *AbortSignal {
	s := &AbortSignal{Base: NewBase()}
	s.Method("abort", func(args []interface{}) (interface{}, error) {
		var reason interface{}
		if len(args) > 0 {
			reason = args[0]
		}
		s.trigger(reason)
		return nil, nil
	})
	return s
}

func (s *AbortSignal) trigger(reason interface{}) {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	s.reason = reason
	handlers := s.onAbort
	s.onAbort = nil
	s.mu.Unlock()
	for _, h := range handlers {
		h(reason)
	}
}

// Trigger fires the signal locally — e.g. the side that created the
// signal decided to cancel its own in-flight call — independent of any
// invocation arriving from the peer.
func (s *AbortSignal) Trigger(reason interface{}) { s.trigger(reason) }

// OnAbort registers fn to run when the signal fires. If it has already
// fired, fn runs immediately on the calling goroutine.
func (s *AbortSignal) OnAbort(fn func(reason interface{})) {
	s.mu.Lock()
	if s.aborted {
		reason := s.reason
		s.mu.Unlock()
		fn(reason)
		return
	}
	s.onAbort = append(s.onAbort, fn)
	s.mu.Unlock()
}

func (s *AbortSignal) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}
