// Package pipeline implements the pipelining engine of spec.md §4.5: path
// pipelining (symbolic field/index access on a not-yet-resolved value) and
// call pipelining (queuing a method call behind an unresolved result), plus
// the map operation. Both mechanisms must satisfy the algebraic law
// resolve(P).follow(path) ≡ resolve(P.follow(path)).
package pipeline

import (
	"fmt"

	"github.com/capnweb-go/capnweb/wire"
)

// Follow applies path to an already-resolved host value, descending
// through map[string]interface{} (field access) and []interface{} (index
// access) exactly as the evaluator produces them from wire.Object/Array.
func Follow(value interface{}, path wire.Path) (interface{}, error) {
	current := value
	for _, seg := range path {
		switch v := current.(type) {
		case map[string]interface{}:
			if seg.IsIndex {
				return nil, fmt.Errorf("pipeline: cannot index [%d] into an object", seg.Index)
			}
			nv, ok := v[seg.Key]
			if !ok {
				return nil, fmt.Errorf("pipeline: no such field %q", seg.Key)
			}
			current = nv
		case []interface{}:
			if !seg.IsIndex {
				return nil, fmt.Errorf("pipeline: cannot access field %q on an array", seg.Key)
			}
			if seg.Index < 0 || int(seg.Index) >= len(v) {
				return nil, fmt.Errorf("pipeline: array index %d out of bounds (len %d)", seg.Index, len(v))
			}
			current = v[seg.Index]
		default:
			if len(path) == 0 {
				return current, nil
			}
			return nil, fmt.Errorf("pipeline: cannot traverse %q into %T", seg, current)
		}
	}
	return current, nil
}

// Join concatenates a base path with an extension, always returning a new
// slice so that extending a stub's path never mutates the original
// (spec.md invariant 3).
func Join(base wire.Path, extra ...wire.PathSegment) wire.Path {
	out := make(wire.Path, 0, len(base)+len(extra))
	out = append(out, base...)
	out = append(out, extra...)
	return out
}
