package codec

import (
	"fmt"

	"github.com/capnweb-go/capnweb/wire"
)

// StructuredClone is the codec variant of spec.md §4.2 for postMessage-style
// transports: every structured-cloneable host value classifies as Raw,
// bypassing tag rewriting entirely, because the transport (e.g. an
// in-process channel, or a real MessagePort on another host binding)
// carries the object graph natively rather than through a byte/text
// encoding. Capability references, targets, thenables and errors still
// need their own kinds since those require table bookkeeping rather than
// plain cloning.
type StructuredClone struct{}

func NewStructuredClone() *StructuredClone { return &StructuredClone{} }

func (StructuredClone) Classify(v interface{}) Kind {
	if v == nil {
		return KindPrimitive
	}
	switch t := v.(type) {
	case wire.Undefined:
		return KindUndefined
	case ErrorRaw:
		return KindErrorRaw
	case error:
		return KindError
	case PromiseRef:
		if t.Unresolved() {
			return KindRPCPromise
		}
		return KindStub
	case StubRef:
		return KindStub
	case Target:
		if t.CapnwebTarget() {
			return KindRPCTarget
		}
	case Thenable:
		if t.CapnwebThenable() {
			return KindRPCThenable
		}
	}
	// Everything else structured-cloneable — primitives, bigints, dates,
	// byte arrays, nested containers — passes through untouched.
	return KindRaw
}

// Encode is the identity transform: the transport underneath a
// StructuredClone codec carries the Go value graph directly (e.g.
// transport/chantransport), so there is no byte representation to produce.
func (StructuredClone) Encode(tree wire.Expr) (wire.Frame, error) {
	return wire.Frame(tree), nil
}

func (StructuredClone) Decode(frame wire.Frame) (wire.Expr, error) {
	if frame == nil {
		return nil, nil
	}
	expr, ok := frame.(wire.Expr)
	if !ok {
		return nil, fmt.Errorf("codec: structured-clone decode: frame is not a wire.Expr")
	}
	return expr, nil
}
