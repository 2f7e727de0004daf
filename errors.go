package capnweb

import (
	"errors"
	"fmt"
)

// The six error taxonomy kinds of spec.md §7, as errors.Is-compatible
// sentinels each concrete error wraps.
var (
	// ErrApplication marks an error thrown by a user method body; it
	// becomes a reject of that promise only, never session-terminal.
	ErrApplication = errors.New("capnweb: application error")
	// ErrClassification marks an unsupported value encountered while
	// devaluating arguments or a return value; rejects the current
	// operation locally, no wire frame is emitted.
	ErrClassification = errors.New("capnweb: classification error")
	// ErrDecode marks a malformed wire frame; session-terminal.
	ErrDecode = errors.New("capnweb: decode error")
	// ErrTransport marks a transport send/receive failure; session-terminal.
	ErrTransport = errors.New("capnweb: transport error")
	// ErrAbort marks a terminal error announced by the peer.
	ErrAbort = errors.New("capnweb: peer abort")
	// ErrAccounting marks a reference-accounting invariant violation
	// (refcount underflow, unknown id) — indicates a protocol bug;
	// session-terminal.
	ErrAccounting = errors.New("capnweb: reference accounting error")
	// ErrDisposed marks an operation against a stub whose underlying
	// reference has already been disposed (spec.md §4.4 "Disposal").
	ErrDisposed = errors.New("capnweb: stub disposed")
	// ErrSessionClosed marks an operation attempted after the session
	// entered draining/closed/faulted and no longer accepts new calls.
	ErrSessionClosed = errors.New("capnweb: session closed")
)

// SessionError wraps an underlying cause with one of the taxonomy
// sentinels above so callers can use errors.Is(err, capnweb.ErrDecode)
// and similar regardless of the concrete message.
type SessionError struct {
	Kind  error
	Cause error
}

func (e *SessionError) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.Error(), e.Cause)
}

func (e *SessionError) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

func wrapErr(kind error, cause error) error {
	if cause == nil {
		return kind
	}
	return &SessionError{Kind: kind, Cause: cause}
}
