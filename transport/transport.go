// Package transport defines the core's Transport contract (spec.md §4.1,
// §6) and is the parent of the concrete transport implementations the
// spec places outside the protocol core: wstransport (WebSocket),
// httpbatch (HTTP request/response batching), streamtransport
// (length-prefixed byte streams), and chantransport (in-memory, for tests
// and same-process peers).
package transport

import (
	"context"
	"errors"

	"github.com/capnweb-go/capnweb/wire"
)

// ErrDone is returned by Receive to signal an orderly end of input —
// a finite batch transport (httpbatch) has replayed every message it
// was given — as opposed to a genuine transport failure. The session
// kernel treats it as a clean shutdown rather than a fault.
var ErrDone = errors.New("transport: done")

// Transport is consumed by the session kernel: ordered send/receive of
// opaque wire frames, plus an abort signal. Implementations must guarantee
// FIFO delivery — lost frames or reordering break the protocol. Suspension
// happens only inside Send/Receive; the core never assumes background
// threads within the transport itself.
type Transport interface {
	Send(ctx context.Context, frame wire.Frame) error
	Receive(ctx context.Context) (wire.Frame, error)
	Abort(reason error)
}
