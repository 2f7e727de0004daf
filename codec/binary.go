package codec

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"

	"github.com/capnweb-go/capnweb/wire"
)

// Binary defers wire encoding entirely to a structured-clone-capable
// serializer (spec.md §4.2): msgp's generic interface{} marshaling stands
// in for the host environment's structured-clone-capable binary format
// (e.g. V8 serialization). Classification matches StructuredClone; the
// tag-array representation built by toJSON/fromJSON is reused verbatim as
// the plain value tree msgp serializes, so the only difference from Tagged
// is the wire envelope (msgpack bytes instead of JSON text).
type Binary struct{}

func NewBinary() *Binary { return &Binary{} }

func (Binary) Classify(v interface{}) Kind {
	return StructuredClone{}.Classify(v)
}

func (Binary) Encode(tree wire.Expr) (wire.Frame, error) {
	plain, err := toJSON(tree)
	if err != nil {
		return nil, err
	}
	b, err := msgp.AppendIntf(nil, plain)
	if err != nil {
		return nil, fmt.Errorf("codec: binary encode: %w", err)
	}
	return wire.BytesFrame(b), nil
}

func (Binary) Decode(frame wire.Frame) (wire.Expr, error) {
	b, ok := wire.AsBytes(frame)
	if !ok {
		return nil, fmt.Errorf("codec: binary decode: frame is not bytes")
	}
	v, _, err := msgp.ReadIntfBytes(b)
	if err != nil {
		return nil, fmt.Errorf("codec: binary decode: %w", err)
	}
	return fromJSON(v)
}
