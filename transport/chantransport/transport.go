// Package chantransport provides an in-memory, channel-backed
// transport.Transport pair for same-process peers and for tests that
// don't want to stand up a real socket.
package chantransport

import (
	"context"
	"errors"
	"sync"

	"github.com/capnweb-go/capnweb/wire"
)

// ErrClosed is returned by Send and Receive once a Transport has been
// aborted with a nil reason. Aborting one half does not close its peer.
var ErrClosed = errors.New("chantransport: closed")

// Transport is one half of a channel-backed pair built by NewPair.
type Transport struct {
	out chan<- wire.Frame
	in  <-chan wire.Frame

	mu          sync.Mutex
	closeOnce   sync.Once
	closeCh     chan struct{}
	abortReason error
}

// NewPair builds two Transports wired to each other: a frame sent on a
// arrives on b's Receive, and vice versa.
func NewPair() (a, b *Transport) {
	ab := make(chan wire.Frame, 64)
	ba := make(chan wire.Frame, 64)
	a = &Transport{out: ab, in: ba, closeCh: make(chan struct{})}
	b = &Transport{out: ba, in: ab, closeCh: make(chan struct{})}
	return a, b
}

func (t *Transport) Send(ctx context.Context, frame wire.Frame) error {
	select {
	case t.out <- frame:
		return nil
	case <-t.closeCh:
		return t.currentErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Transport) Receive(ctx context.Context) (wire.Frame, error) {
	select {
	case f, ok := <-t.in:
		if !ok {
			return nil, ErrClosed
		}
		return f, nil
	case <-t.closeCh:
		return nil, t.currentErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Transport) currentErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.abortReason != nil {
		return t.abortReason
	}
	return ErrClosed
}

func (t *Transport) Abort(reason error) {
	t.mu.Lock()
	if t.abortReason == nil {
		t.abortReason = reason
	}
	t.mu.Unlock()
	t.closeOnce.Do(func() { close(t.closeCh) })
}
