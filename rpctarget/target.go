// Package rpctarget implements the statically-typed dispatch surface
// spec.md §9 ("Dynamic dispatch on arbitrary host objects") calls for:
// remote methods are exposed through an explicit registry mapping method
// names to dispatch shims, rather than runtime reflection over arbitrary
// fields. Unknown method names are rejected with a clear error, and
// attempts to read a field (rather than call a method) on a target are
// likewise an error, never a silent nil.
package rpctarget

import (
	"fmt"
	"sync"
)

// MethodFunc runs one already-evaluated method call: args have already
// passed through the evaluator (plain bools/float64/strings/nil,
// []interface{}, map[string]interface{}, or further capability stubs),
// and the returned value still needs to be devaluated back onto the wire.
// An error return becomes a reject of that call's promise only (spec.md
// §7 "Application error").
type MethodFunc func(args []interface{}) (interface{}, error)

// Target is the interface a host object implements to be exported as an
// rpc-target. Servers normally embed *Base rather than implementing this
// by hand.
type Target interface {
	// CapnwebTarget marks the value to codec.Classify as KindRPCTarget.
	CapnwebTarget() bool
	Dispatch(method string, args []interface{}) (interface{}, error)
	HasField(name string) bool
}

// Base is a registry-based Target implementation, generalized from the
// teacher's BaseRpcTarget: methods receive already-evaluated Go values
// instead of json.RawMessage, so Base works under any codec, not only the
// tagged JSON one.
type Base struct {
	mu      sync.RWMutex
	methods map[string]MethodFunc
}

func NewBase() *Base {
	return &Base{methods: make(map[string]MethodFunc)}
}

func (b *Base) CapnwebTarget() bool { return true }

// Method registers a method handler under name, overwriting any previous
// registration for the same name.
func (b *Base) Method(name string, fn MethodFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.methods[name] = fn
}

// HasField reports whether name is a registered method, so the session
// kernel can distinguish a method call from a bare field read (spec.md
// §9: field reads on an rpc-target are an error, not undefined).
func (b *Base) HasField(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.methods[name]
	return ok
}

// Dispatch looks up method and invokes it with args.
func (b *Base) Dispatch(method string, args []interface{}) (interface{}, error) {
	b.mu.RLock()
	fn, ok := b.methods[method]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("rpctarget: method not found: %s", method)
	}
	return fn(args)
}
