package codec

import (
	"math/big"
	"reflect"
	"time"

	"github.com/capnweb-go/capnweb/wire"
)

// StubRef is implemented by a host language's stub/promise types so that
// Classify can recognize them without codec importing the package that
// defines Stub (which would cycle, since that package imports codec).
type StubRef interface {
	// WireRef reports whether the reference targets a local export or a
	// peer import, the referenced id, and any pipelined path.
	WireRef() (isExport bool, id int64, path wire.Path)
}

// PromiseRef additionally reports whether the reference is still
// unresolved (classified as rpc-promise rather than stub).
type PromiseRef interface {
	StubRef
	Unresolved() bool
}

// Target is implemented by host classes marked as remotely invocable.
type Target interface {
	CapnwebTarget() bool
}

// Thenable is implemented by a host promise-like value that resolves to a
// Target.
type Thenable interface {
	CapnwebThenable() bool
}

// RawPassthrough marks a value that must be emitted without traversal.
type RawPassthrough interface {
	CapnwebRawValue() interface{}
}

// RawSubtreePassthrough marks a subtree root as raw: its contents are
// emitted verbatim, including any nested structure.
type RawSubtreePassthrough interface {
	CapnwebRawSubtree() interface{}
}

// ErrorRaw marks an error that must bypass onSendError scrubbing.
type ErrorRaw interface {
	error
	CapnwebSendRaw() bool
}

// Classify implements the classification contract of spec.md §4.2. Tagged
// uses it as is; the structured-clone and binary codecs do not call it and
// use StructuredClone.Classify instead, which folds everything cloneable
// into Raw.
func Classify(v interface{}) Kind {
	if v == nil {
		return KindPrimitive
	}
	switch t := v.(type) {
	case wire.Undefined:
		return KindUndefined
	case wire.Raw:
		return KindRaw
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return KindPrimitive
	case *big.Int:
		return KindBigInt
	case time.Time:
		return KindDate
	case []byte:
		return KindBytes
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
	case RawSubtreePassthrough:
		return KindRawSubtree
	case RawPassthrough:
		return KindRaw
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return KindFunction
	case reflect.Slice, reflect.Array:
		return KindArray
	case reflect.Map, reflect.Struct, reflect.Ptr:
		if rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return KindPrimitive
			}
			return Classify(rv.Elem().Interface())
		}
		return KindObject
	}
	return KindUnsupported
}
