package wire

import "fmt"

// Kind enumerates the wire message envelope kinds of spec.md §4.6/§6.
type Kind string

const (
	KindPush    Kind = "push"
	KindPull    Kind = "pull"
	KindResolve Kind = "resolve"
	KindReject  Kind = "reject"
	KindRelease Kind = "release"
	KindAbort   Kind = "abort"
)

// Message is one logical frame on the wire, after codec decoding and
// before evaluation (or vice versa on the send path). Only the fields
// listed for its Kind are meaningful:
//
//	push:    Expr
//	pull:    PromiseID
//	resolve: PromiseID, Expr
//	reject:  PromiseID, Expr
//	release: ExportID, Count
//	abort:   Expr
type Message struct {
	Kind      Kind
	Expr      Expr
	PromiseID int64
	ExportID  int64
	Count     int64
}

func Push(expr Expr) Message { return Message{Kind: KindPush, Expr: expr} }

func Pull(promiseID int64) Message { return Message{Kind: KindPull, PromiseID: promiseID} }

func Resolve(promiseID int64, expr Expr) Message {
	return Message{Kind: KindResolve, PromiseID: promiseID, Expr: expr}
}

func Reject(promiseID int64, expr Expr) Message {
	return Message{Kind: KindReject, PromiseID: promiseID, Expr: expr}
}

func Release(exportID, count int64) Message {
	return Message{Kind: KindRelease, ExportID: exportID, Count: count}
}

func Abort(expr Expr) Message { return Message{Kind: KindAbort, Expr: expr} }

// ParseMessage recovers a Message from the decoded top-level expression of
// one frame: an Array whose first element is one of the six kind tags,
// the inverse of ToArray.
func ParseMessage(expr Expr) (Message, error) {
	arr, ok := expr.(Array)
	if !ok {
		return Message{}, fmt.Errorf("wire: top-level message must be an array, got %T", expr)
	}
	if len(arr) == 0 {
		return Message{}, fmt.Errorf("wire: empty message array")
	}
	tag, ok := arr[0].(string)
	if !ok {
		return Message{}, fmt.Errorf("wire: message tag must be a string, got %T", arr[0])
	}
	switch Kind(tag) {
	case KindPush:
		if len(arr) != 2 {
			return Message{}, fmt.Errorf("wire: push message needs 2 elements, got %d", len(arr))
		}
		return Push(arr[1]), nil
	case KindPull:
		if len(arr) != 2 {
			return Message{}, fmt.Errorf("wire: pull message needs 2 elements, got %d", len(arr))
		}
		id, err := asInt64(arr, 1, "pull")
		if err != nil {
			return Message{}, err
		}
		return Pull(id), nil
	case KindResolve:
		if len(arr) != 3 {
			return Message{}, fmt.Errorf("wire: resolve message needs 3 elements, got %d", len(arr))
		}
		id, err := asInt64(arr, 1, "resolve")
		if err != nil {
			return Message{}, err
		}
		return Resolve(id, arr[2]), nil
	case KindReject:
		if len(arr) != 3 {
			return Message{}, fmt.Errorf("wire: reject message needs 3 elements, got %d", len(arr))
		}
		id, err := asInt64(arr, 1, "reject")
		if err != nil {
			return Message{}, err
		}
		return Reject(id, arr[2]), nil
	case KindRelease:
		if len(arr) != 3 {
			return Message{}, fmt.Errorf("wire: release message needs 3 elements, got %d", len(arr))
		}
		id, err := asInt64(arr, 1, "release")
		if err != nil {
			return Message{}, err
		}
		count, err := asInt64(arr, 2, "release")
		if err != nil {
			return Message{}, err
		}
		return Release(id, count), nil
	case KindAbort:
		if len(arr) != 2 {
			return Message{}, fmt.Errorf("wire: abort message needs 2 elements, got %d", len(arr))
		}
		return Abort(arr[1]), nil
	default:
		return Message{}, fmt.Errorf("wire: unrecognized message tag %q", tag)
	}
}

func asInt64(arr Array, index int, what string) (int64, error) {
	switch n := arr[index].(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("wire: %s id must be a number, got %T", what, n)
	}
}

// ToArray renders a Message as the wire array form described in spec.md
// §6, ready for a codec to Encode. Ref/BigInt/etc. values nested in Expr
// are left for the codec's own tree-walking encode step; ToArray only
// assembles the top-level envelope.
func (m Message) ToArray() Array {
	switch m.Kind {
	case KindPush:
		return Array{string(KindPush), m.Expr}
	case KindPull:
		return Array{string(KindPull), m.PromiseID}
	case KindResolve:
		return Array{string(KindResolve), m.PromiseID, m.Expr}
	case KindReject:
		return Array{string(KindReject), m.PromiseID, m.Expr}
	case KindRelease:
		return Array{string(KindRelease), m.ExportID, m.Count}
	case KindAbort:
		return Array{string(KindAbort), m.Expr}
	default:
		return nil
	}
}
