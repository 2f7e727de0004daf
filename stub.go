package capnweb

import (
	"fmt"

	"github.com/capnweb-go/capnweb/pipeline"
	"github.com/capnweb-go/capnweb/table"
	"github.com/capnweb-go/capnweb/wire"
)

type stubKind int

const (
	stubLocal stubKind = iota
	stubImport
	stubCallPromise
)

// Stub is a local handle to a capability, as described in spec.md §3. Its
// kind distinguishes three origins:
//
//   - stubLocal: a host value living on this side, not yet given an
//     export id (one is allocated lazily, the first time the stub is
//     devaluated onto the wire);
//   - stubImport: an entry in this session's import table, naming a
//     capability the peer exported to us;
//   - stubCallPromise: the result of a call this side pushed (and pulled)
//     to the peer, identified by our own outgoing push sequence number
//     rather than any capability table, or of a call dispatched locally.
//
// A Stub whose underlying reference has not resolved is, in spec
// terminology, a "promise"; Unresolved reports this and satisfies
// codec.PromiseRef.
type Stub struct {
	session *Session
	kind    stubKind
	local   interface{}
	imp     *table.Import  // set when kind == stubImport
	queue   *pipeline.Queue // set when kind == stubCallPromise
	id      int64           // promise/import id, for WireRef and logging
	path    wire.Path
}

func newLocalStub(s *Session, local interface{}, path wire.Path) *Stub {
	return &Stub{session: s, kind: stubLocal, local: local, path: path}
}

func newImportStub(s *Session, imp *table.Import, path wire.Path) *Stub {
	return &Stub{session: s, kind: stubImport, imp: imp, id: imp.ID, path: path}
}

func newCallPromiseStub(s *Session, id int64, q *pipeline.Queue, path wire.Path) *Stub {
	return &Stub{session: s, kind: stubCallPromise, queue: q, id: id, path: path}
}

// WireRef implements codec.StubRef for any caller that only has the
// generic interface in hand; the session's own devaluator type-asserts
// to *Stub directly so it can also recognize stubCallPromise, which this
// generic form reports (imperfectly) as an import reference.
func (s *Stub) WireRef() (isExport bool, id int64, path wire.Path) {
	if s.kind == stubLocal {
		return true, 0, s.path
	}
	return false, s.id, s.path
}

// Unresolved implements codec.PromiseRef: a local host value is always
// immediately ready; import and call-promise stubs may still be pending.
func (s *Stub) Unresolved() bool {
	switch s.kind {
	case stubLocal:
		return false
	case stubCallPromise:
		fired, _, _ := s.queue.Snapshot()
		return !fired
	default:
		state, _, _ := s.imp.Snapshot()
		return state == table.Pending
	}
}

// Get returns a new Stub for the field or index named by extending this
// stub's path, without waiting for anything to resolve (path pipelining).
func (s *Stub) Get(segment wire.PathSegment) *Stub {
	next := make(wire.Path, 0, len(s.path)+1)
	next = append(next, s.path...)
	next = append(next, segment)
	switch s.kind {
	case stubImport:
		_ = s.session.imports.Dup(s.imp.ID)
		return newImportStub(s.session, s.imp, next)
	case stubCallPromise:
		return newCallPromiseStub(s.session, s.id, s.queue, next)
	default:
		return newLocalStub(s.session, s.local, next)
	}
}

// Field is shorthand for Get(wire.StringSegment(name)).
func (s *Stub) Field(name string) *Stub { return s.Get(wire.StringSegment(name)) }

// Index is shorthand for Get(wire.IndexSegment(i)).
func (s *Stub) Index(i int64) *Stub { return s.Get(wire.IndexSegment(i)) }

// Call invokes method on the capability this stub names, pipelining
// through any unresolved base (call pipelining, spec.md §4.5), and
// returns a new promise Stub for the result without blocking on the
// network. Use Await to obtain the concrete value; chaining further
// Call/Get calls on the returned stub costs no round trip.
func (s *Stub) Call(method string, args ...interface{}) (*Stub, error) {
	if s.session == nil {
		return nil, fmt.Errorf("capnweb: stub has no owning session")
	}
	return s.session.callStub(s, method, args)
}

// Await blocks until this stub's value is fully resolved and returns it
// as a plain host value (map[string]interface{}, []interface{}, or a
// scalar, or a further *Stub for a nested capability). Calling Await on
// a stubLocal value returns it immediately.
func (s *Stub) Await() (interface{}, error) {
	switch s.kind {
	case stubLocal:
		return resolvePath(s.local, s.path)
	case stubCallPromise:
		v, err := s.queue.Wait()
		if err != nil {
			return nil, err
		}
		return resolvePath(v, s.path)
	default:
		v, err := s.imp.Wait()
		if err != nil {
			return nil, err
		}
		return resolvePath(v, s.path)
	}
}

// Map awaits this stub's array result, then calls method on every element
// (each element must itself be a capability stub) concurrently, returning
// a new stub over the results in the same order as the source array
// (spec.md §4.5 "Map operation" — ordered regardless of completion order,
// per the Open Question resolution in SPEC_FULL.md §G.1). Unlike Get/Call, Map
// cannot avoid the initial round trip that resolves the array itself: the
// number and identity of elements to call isn't known until then. What it
// does avoid is one round trip per element — all of the per-element calls
// are dispatched without waiting on each other.
func (s *Stub) Map(method string, args ...interface{}) (*Stub, error) {
	val, err := s.Await()
	if err != nil {
		return nil, err
	}
	arr, ok := val.([]interface{})
	if !ok {
		return nil, fmt.Errorf("capnweb: Map requires an array result, got %T", val)
	}
	results, err := pipeline.Map(arr, func(elem interface{}, index int) (interface{}, error) {
		elemStub, ok := elem.(*Stub)
		if !ok {
			return nil, fmt.Errorf("capnweb: Map element %d is not a capability", index)
		}
		call, err := elemStub.Call(method, args...)
		if err != nil {
			return nil, err
		}
		return call.Await()
	})
	if err != nil {
		return nil, err
	}
	return newLocalStub(s.session, results, nil), nil
}

// Dispose releases this stub's reference. Local and call-promise stubs
// are no-ops; import-backed stubs decrement the session's import
// refcount and, at zero, schedule a release message to the peer
// (spec.md §4.4 "Disposal").
func (s *Stub) Dispose() {
	if s.kind != stubImport || s.session == nil {
		return
	}
	s.session.imports.Release(s.imp.ID)
}

func resolvePath(v interface{}, path wire.Path) (interface{}, error) {
	if len(path) == 0 {
		return v, nil
	}
	return pipeline.Follow(v, path)
}
