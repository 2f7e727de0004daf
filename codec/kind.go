// Package codec defines the Codec contract (spec.md §4.2): encoding and
// decoding wire expression trees to and from transport frames, and
// classifying arbitrary host values so the devaluator knows how to treat
// each leaf it encounters.
package codec

// Kind is one of the classification kinds enumerated in spec.md §4.2.
type Kind string

const (
	KindUnsupported Kind = "unsupported"
	KindPrimitive   Kind = "primitive"
	KindUndefined   Kind = "undefined"
	KindBigInt      Kind = "bigint"
	KindDate        Kind = "date"
	KindBytes       Kind = "bytes"
	KindArray       Kind = "array"
	KindObject      Kind = "object"
	KindFunction    Kind = "function"
	KindStub        Kind = "stub"
	KindRPCPromise  Kind = "rpc-promise"
	KindRPCTarget   Kind = "rpc-target"
	KindRPCThenable Kind = "rpc-thenable"
	KindError       Kind = "error"
	KindErrorRaw    Kind = "error-raw"
	KindRaw         Kind = "raw"
	KindRawSubtree  Kind = "raw-subtree"
)
