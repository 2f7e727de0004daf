// Package capnweb implements the Cap'n Web object-capability RPC
// protocol: a codec-agnostic session kernel that devaluates host values
// onto the wire, evaluates incoming wire expressions back into host
// values, and drives promise pipelining (both path and call pipelining)
// over any transport.Transport.
package capnweb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/capnweb-go/capnweb/codec"
	"github.com/capnweb-go/capnweb/internal/rpclog"
	"github.com/capnweb-go/capnweb/pipeline"
	"github.com/capnweb-go/capnweb/rpctarget"
	"github.com/capnweb-go/capnweb/table"
	"github.com/capnweb-go/capnweb/transport"
	"github.com/capnweb-go/capnweb/wire"
)

type sessionState int32

const (
	stateOpening sessionState = iota
	stateActive
	stateDraining
	stateClosed
	stateFaulted
)

// Session is one peer's end of a Cap'n Web connection: it owns the
// export/import tables, runs the receive loop, and is the entry point
// for making and answering remote calls. Construct one with NewSession
// per connection; a Session is safe for concurrent use.
type Session struct {
	id          string
	transport   transport.Transport
	codec       codec.Codec
	onSendError func(error) error
	log         *rpclog.Logger

	exports        *table.Exports
	imports        *table.Imports
	releaseBatcher *table.ReleaseBatcher

	mu              sync.Mutex
	state           sessionState
	faultErr        error
	recvPushCount   int64
	sentPushCount   int64
	inboundResults  map[int64]*pipeline.Queue
	outboundResults map[int64]*pipeline.Queue

	sendMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithSessionID overrides the generated session id used in log lines.
func WithSessionID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithErrorScrubber installs a hook that rewrites application errors
// before they're devaluated onto the wire (spec.md §7: servers typically
// use this to strip internal detail from error messages sent to
// untrusted peers). Returning nil leaves the error unscrubbed.
func WithErrorScrubber(fn func(error) error) Option {
	return func(s *Session) { s.onSendError = fn }
}

var sessionSeq struct {
	mu  sync.Mutex
	n   int64
}

func nextSessionID() string {
	sessionSeq.mu.Lock()
	sessionSeq.n++
	n := sessionSeq.n
	sessionSeq.mu.Unlock()
	return fmt.Sprintf("sess-%d", n)
}

// NewSession starts a session over tr, using cdc to encode/decode wire
// frames and classify host values, exposing main as the local capability
// the peer receives as import id 0. It starts the receive loop
// immediately and returns without blocking; the session runs until the
// transport closes, a protocol error occurs, either side aborts, or
// Close is called.
func NewSession(ctx context.Context, tr transport.Transport, cdc codec.Codec, main interface{}, opts ...Option) *Session {
	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:              nextSessionID(),
		transport:       tr,
		codec:           cdc,
		exports:         table.NewExports(main),
		inboundResults:  make(map[int64]*pipeline.Queue),
		outboundResults: make(map[int64]*pipeline.Queue),
		ctx:             sctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		state:           stateActive,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = rpclog.ForSession(s.id).Component("session")
	s.imports = table.NewImports(func(id, count int64) {
		s.releaseBatcher.Add(id, count)
	})
	s.releaseBatcher = table.NewReleaseBatcher(table.DefaultFlushCount, table.DefaultFlushInterval, func(batch map[int64]int64) {
		for id, count := range batch {
			if err := s.sendMessage(wire.Release(id, count)); err != nil {
				s.log.Warnf("failed to send release for export %d: %v", id, err)
			}
		}
	})
	// id 0 names the peer's main capability and is always considered
	// resolved; it is never released (table.Imports.Release special-cases
	// id 0).
	s.imports.GetOrCreate(0, nil).Resolve(nil)

	go s.recvLoop()
	return s
}

// ID returns the session's identifier, used in log lines and useful for
// correlating sessions in multi-connection servers.
func (s *Session) ID() string { return s.id }

// Main returns a stub naming the peer's main capability (import id 0).
// Call or Get on it to invoke the peer; Await is not meaningful on the
// bare main stub since it names a capability, not a value.
func (s *Session) Main() *Stub {
	imp, _ := s.imports.Get(0)
	return newImportStub(s, imp, nil)
}

// Export wraps a local host value (typically an rpctarget.Target, a
// plain function, or arbitrary data) as a Stub suitable for returning
// from a method body or passing as a call argument. A fresh export id is
// allocated the first time the stub actually crosses the wire.
func (s *Session) Export(v interface{}) *Stub {
	return newLocalStub(s, v, nil)
}

// Err returns the error that faulted the session, or nil if it is still
// active (or closed cleanly).
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faultErr
}

// Wait blocks until the session's receive loop exits, whether due to a
// clean Close, a protocol fault, or peer/local abort.
func (s *Session) Wait() {
	<-s.done
}

// Abort terminates the session, announcing reason to the peer via an
// abort message before tearing down locally (spec.md §4.6 "Abort").
func (s *Session) Abort(reason error) {
	if reason == nil {
		reason = fmt.Errorf("capnweb: session aborted")
	}
	dv := newDevaluator(s)
	errExpr, err := dv.devaluate(&RemoteError{Name: errorName(reason), Message: reason.Error()})
	if err == nil {
		_ = s.sendMessage(wire.Abort(errExpr))
	}
	s.fault(wrapErr(ErrAbort, reason))
}

// Close gracefully tears the session down: flushes any batched release
// messages, cancels the receive loop's context (which unblocks a
// transport waiting in Receive), and waits for the loop to exit.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == stateClosed || s.state == stateFaulted {
		s.mu.Unlock()
		return nil
	}
	s.state = stateClosed
	s.mu.Unlock()

	s.releaseBatcher.Flush()
	s.releaseBatcher.Stop()
	s.cancel()
	s.transport.Abort(nil)
	<-s.done
	return nil
}

// Drain marks the session as no longer accepting new locally-initiated
// calls (spec.md session lifecycle "draining") while letting in-flight
// work finish; it returns once the receive loop exits or ctx is done,
// whichever comes first.
func (s *Session) Drain(ctx context.Context) error {
	s.mu.Lock()
	if s.state == stateActive {
		s.state = stateDraining
	}
	s.mu.Unlock()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) acceptingCalls() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateActive
}

func (s *Session) nextOutboundID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentPushCount++
	return s.sentPushCount
}

func (s *Session) inboundQueue(id int64) (*pipeline.Queue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.inboundResults[id]
	return q, ok
}

// callStub is the engine behind Stub.Call: a stubLocal target dispatches
// immediately with no wire traffic, while stubImport/stubCallPromise
// targets push a call expression to the peer, pull its result, and return
// a stub for the not-yet-settled result.
func (s *Session) callStub(base *Stub, method string, args []interface{}) (*Stub, error) {
	if base.kind == stubLocal {
		capVal, err := pipeline.Follow(base.local, base.path)
		if err != nil {
			return nil, err
		}
		target, ok := capVal.(rpctarget.Target)
		if !ok {
			return nil, wrapErr(ErrClassification, fmt.Errorf("%T is not callable", capVal))
		}
		if !target.HasField(method) {
			return nil, wrapErr(ErrApplication, fmt.Errorf("no such method %q", method))
		}
		result, derr := target.Dispatch(method, args)
		q := pipeline.NewQueue()
		if derr != nil {
			q.Fire(nil, wrapErr(ErrApplication, derr))
		} else {
			q.Fire(result, nil)
		}
		return newCallPromiseStub(s, 0, q, nil), nil
	}
	return s.pushCall(base, method, args)
}

func (s *Session) pushCall(base *Stub, method string, args []interface{}) (*Stub, error) {
	if !s.acceptingCalls() {
		return nil, wrapErr(ErrSessionClosed, nil)
	}
	ref, err := targetRef(base)
	if err != nil {
		return nil, err
	}
	ref.Path = pipeline.Join(ref.Path, wire.StringSegment(method))

	dv := newDevaluator(s)
	argExprs := make(wire.Array, len(args))
	for i, a := range args {
		ae, derr := dv.devaluate(a)
		if derr != nil {
			return nil, derr
		}
		argExprs[i] = ae
	}

	id := s.nextOutboundID()
	q := pipeline.NewQueue()
	s.mu.Lock()
	s.outboundResults[id] = q
	s.mu.Unlock()

	if err := s.sendMessage(wire.Push(wire.Array{ref, argExprs})); err != nil {
		return nil, err
	}
	if err := s.sendMessage(wire.Pull(id)); err != nil {
		return nil, err
	}
	return newCallPromiseStub(s, id, q, nil), nil
}

// targetRef builds the wire reference naming base's underlying
// capability, without the refcount side effects that devaluating a Stub
// passed as a plain value carries (invoking a method on a capability
// does not hand the peer an additional reference to it).
func targetRef(base *Stub) (wire.Ref, error) {
	switch base.kind {
	case stubImport:
		return wire.Ref{Kind: wire.RefImport, ID: base.imp.ID, Path: base.path}, nil
	case stubCallPromise:
		return wire.Ref{Kind: wire.RefPromise, ID: base.id, Path: base.path}, nil
	default:
		return wire.Ref{}, fmt.Errorf("capnweb: cannot call a method remotely on a local-only stub")
	}
}

func (s *Session) sendMessage(msg wire.Message) error {
	frame, err := s.codec.Encode(msg.ToArray())
	if err != nil {
		return wrapErr(ErrClassification, err)
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := s.transport.Send(s.ctx, frame); err != nil {
		return wrapErr(ErrTransport, err)
	}
	return nil
}

func (s *Session) recvLoop() {
	defer close(s.done)
	for {
		frame, err := s.transport.Receive(s.ctx)
		if err != nil {
			if errors.Is(err, transport.ErrDone) {
				s.closeClean()
				return
			}
			s.fault(wrapErr(ErrTransport, err))
			return
		}
		expr, err := s.codec.Decode(frame)
		if err != nil {
			s.fault(wrapErr(ErrDecode, err))
			return
		}
		msg, err := wire.ParseMessage(expr)
		if err != nil {
			s.fault(wrapErr(ErrDecode, err))
			return
		}
		switch msg.Kind {
		case wire.KindPush:
			s.handlePush(msg.Expr)
		case wire.KindPull:
			s.handlePull(msg.PromiseID)
		case wire.KindResolve, wire.KindReject:
			s.handleSettle(msg.PromiseID, msg.Expr)
		case wire.KindRelease:
			if _, err := s.exports.Release(msg.ExportID, msg.Count); err != nil {
				s.fault(wrapErr(ErrAccounting, err))
				return
			}
		case wire.KindAbort:
			ev := newEvaluator(s)
			val, _ := ev.evaluate(msg.Expr)
			s.fault(wrapErr(ErrAbort, asError(val)))
			return
		default:
			s.fault(wrapErr(ErrDecode, fmt.Errorf("unhandled message kind %q", msg.Kind)))
			return
		}
		if s.isDone() {
			return
		}
	}
}

// closeClean finishes the session the way Close does, but without
// sending or recording a fault: used when a finite transport (an HTTP
// batch) has legitimately run out of input.
func (s *Session) closeClean() {
	s.mu.Lock()
	if s.state == stateClosed || s.state == stateFaulted {
		s.mu.Unlock()
		return
	}
	s.state = stateClosed
	s.mu.Unlock()
	s.releaseBatcher.Flush()
	s.releaseBatcher.Stop()
	s.cancel()
}

func (s *Session) isDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateFaulted || s.state == stateClosed
}

func (s *Session) handlePush(expr wire.Expr) {
	s.mu.Lock()
	s.recvPushCount++
	id := s.recvPushCount
	q := pipeline.NewQueue()
	s.inboundResults[id] = q
	s.mu.Unlock()

	go func() {
		val, err := s.dispatchPushExpr(expr)
		q.Fire(val, err)
	}()
}

func (s *Session) dispatchPushExpr(expr wire.Expr) (interface{}, error) {
	if arr, ok := expr.(wire.Array); ok && len(arr) == 2 {
		if ref, ok := arr[0].(wire.Ref); ok {
			return s.dispatchCall(ref, arr[1])
		}
	}
	ev := newEvaluator(s)
	return ev.evaluate(expr)
}

func (s *Session) dispatchCall(ref wire.Ref, argsExpr wire.Expr) (interface{}, error) {
	if len(ref.Path) == 0 {
		return nil, wrapErr(ErrClassification, fmt.Errorf("call expression is missing a method name"))
	}
	methodSeg := ref.Path[len(ref.Path)-1]
	if methodSeg.IsIndex {
		return nil, wrapErr(ErrClassification, fmt.Errorf("call target path must end in a method name"))
	}
	navPath := ref.Path[:len(ref.Path)-1]

	baseRef := ref
	baseRef.Path = nil
	ev := newEvaluator(s)
	baseVal, err := ev.evaluateRef(baseRef)
	if err != nil {
		return nil, err
	}
	baseStub, ok := baseVal.(*Stub)
	if !ok {
		return nil, wrapErr(ErrClassification, fmt.Errorf("call target did not resolve to a stub"))
	}
	capVal, err := baseStub.Await()
	if err != nil {
		return nil, err
	}
	navigated, err := pipeline.Follow(capVal, navPath)
	if err != nil {
		return nil, err
	}
	target, ok := navigated.(rpctarget.Target)
	if !ok {
		return nil, wrapErr(ErrClassification, fmt.Errorf("%T is not invocable", navigated))
	}
	if !target.HasField(methodSeg.Key) {
		return nil, wrapErr(ErrApplication, fmt.Errorf("no such method %q", methodSeg.Key))
	}
	argsVal, err := ev.evaluate(argsExpr)
	if err != nil {
		return nil, err
	}
	argsSlice, _ := argsVal.([]interface{})
	result, derr := target.Dispatch(methodSeg.Key, argsSlice)
	if derr != nil {
		return nil, wrapErr(ErrApplication, derr)
	}
	return result, nil
}

func (s *Session) handlePull(id int64) {
	q, ok := s.inboundQueue(id)
	if !ok {
		s.fault(wrapErr(ErrAccounting, fmt.Errorf("pull of unknown promise %d", id)))
		return
	}
	q.Enqueue(func(val interface{}, err error) {
		defer func() {
			s.mu.Lock()
			delete(s.inboundResults, id)
			s.mu.Unlock()
		}()
		if err != nil {
			if serr := s.sendMessage(wire.Reject(id, errToWireExpr(err))); serr != nil {
				s.log.Warnf("failed to send reject for %d: %v", id, serr)
			}
			return
		}
		dv := newDevaluator(s)
		expr, derr := dv.devaluate(val)
		if derr != nil {
			_ = s.sendMessage(wire.Reject(id, errToWireExpr(derr)))
			return
		}
		if serr := s.sendMessage(wire.Resolve(id, expr)); serr != nil {
			s.log.Warnf("failed to send resolve for %d: %v", id, serr)
		}
	})
}

func (s *Session) handleSettle(id int64, expr wire.Expr) {
	s.mu.Lock()
	q, ok := s.outboundResults[id]
	delete(s.outboundResults, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	ev := newEvaluator(s)
	val, err := ev.evaluate(expr)
	q.Fire(val, err)
}

// fault transitions the session to faulted, rejecting every outstanding
// promise and import, tearing down the transport, and recording err for
// Err(). It is idempotent.
func (s *Session) fault(err error) {
	s.mu.Lock()
	if s.state == stateFaulted || s.state == stateClosed {
		s.mu.Unlock()
		return
	}
	s.state = stateFaulted
	s.faultErr = err
	inbound := make([]*pipeline.Queue, 0, len(s.inboundResults))
	for _, q := range s.inboundResults {
		inbound = append(inbound, q)
	}
	outbound := make([]*pipeline.Queue, 0, len(s.outboundResults))
	for _, q := range s.outboundResults {
		outbound = append(outbound, q)
	}
	s.mu.Unlock()

	for _, q := range inbound {
		q.Fire(nil, err)
	}
	for _, q := range outbound {
		q.Fire(nil, err)
	}
	s.imports.RejectAll(err)
	s.releaseBatcher.Stop()
	s.cancel()
	s.transport.Abort(err)
	if s.log != nil {
		s.log.Errorf("session faulted: %v", err)
	}
}

func asError(val interface{}) error {
	if err, ok := val.(error); ok {
		return err
	}
	return fmt.Errorf("%v", val)
}

func errToWireExpr(err error) wire.Expr {
	return wire.WireError{Name: errorName(err), Message: err.Error()}
}
