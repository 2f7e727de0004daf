package codec

import "github.com/capnweb-go/capnweb/wire"

// Codec is the contract of spec.md §4.2/§6: encode a wire expression tree
// to a transport frame, decode a frame back to a tree, and classify a host
// value so the devaluator knows how to treat it. Classification must be
// deterministic: the same value under the same codec always yields the
// same Kind.
type Codec interface {
	Encode(tree wire.Expr) (wire.Frame, error)
	Decode(frame wire.Frame) (wire.Expr, error)
	Classify(value interface{}) Kind
}
