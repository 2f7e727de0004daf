package capnweb

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/capnweb-go/capnweb/codec"
	"github.com/capnweb-go/capnweb/table"
	"github.com/capnweb-go/capnweb/wire"
)

// devaluator turns host values into wire.Expr trees per the traversal
// rules of spec.md §4.3, allocating export ids for newly-surfaced
// capabilities and bumping import refcounts for stubs that are echoed
// back to their own exporter.
type devaluator struct {
	codec       codec.Codec
	exports     *table.Exports
	imports     *table.Imports
	onSendError func(error) error
	visiting    map[uintptr]bool
}

func newDevaluator(s *Session) *devaluator {
	return &devaluator{
		codec:       s.codec,
		exports:     s.exports,
		imports:     s.imports,
		onSendError: s.onSendError,
		visiting:    make(map[uintptr]bool),
	}
}

func (d *devaluator) devaluate(v interface{}) (wire.Expr, error) {
	kind := d.codec.Classify(v)
	switch kind {
	case codec.KindUndefined:
		return wire.Undefined{}, nil

	case codec.KindRawSubtree:
		rs := v.(codec.RawSubtreePassthrough)
		return wire.Raw{Value: rs.CapnwebRawSubtree()}, nil

	case codec.KindRaw:
		if rp, ok := v.(codec.RawPassthrough); ok {
			return wire.Raw{Value: rp.CapnwebRawValue()}, nil
		}
		if raw, ok := v.(wire.Raw); ok {
			return raw, nil
		}
		return wire.Raw{Value: v}, nil

	case codec.KindPrimitive:
		return devaluatePrimitive(v), nil

	case codec.KindBigInt:
		bi := v.(*big.Int)
		return wire.BigInt{Decimal: bi.String()}, nil

	case codec.KindDate:
		t := v.(time.Time)
		return wire.Date{UnixMilli: float64(t.UnixNano()) / 1e6}, nil

	case codec.KindBytes:
		b := v.([]byte)
		cp := make([]byte, len(b))
		copy(cp, b)
		return wire.Bytes{Data: cp}, nil

	case codec.KindErrorRaw:
		er := v.(codec.ErrorRaw)
		return wire.WireError{Name: errorName(er), Message: er.Error()}, nil

	case codec.KindError:
		err := v.(error)
		msg := err.Error()
		if d.onSendError != nil {
			if rewritten := d.onSendError(err); rewritten != nil {
				msg = rewritten.Error()
			}
		}
		return wire.WireError{Name: errorName(err), Message: msg}, nil

	case codec.KindRPCPromise, codec.KindStub:
		ref, ok := v.(codec.StubRef)
		if !ok {
			return nil, wrapErr(ErrClassification, fmt.Errorf("value of type %T classified as stub but does not implement StubRef", v))
		}
		return d.devaluateStubRef(ref)

	case codec.KindRPCTarget, codec.KindFunction:
		return d.devaluateExport(v, nil)

	case codec.KindArray:
		return d.devaluateArray(v)

	case codec.KindObject:
		return d.devaluateObject(v)

	default:
		return nil, wrapErr(ErrClassification, fmt.Errorf("unsupported value of type %T", v))
	}
}

func (d *devaluator) devaluateStubRef(ref codec.StubRef) (wire.Expr, error) {
	if stub, ok := ref.(*Stub); ok {
		switch stub.kind {
		case stubCallPromise:
			return wire.Ref{Kind: wire.RefPromise, ID: stub.id, Path: stub.path}, nil
		case stubImport:
			if err := d.imports.Dup(stub.imp.ID); err != nil {
				return nil, wrapErr(ErrAccounting, err)
			}
			return wire.Ref{Kind: wire.RefImport, ID: stub.imp.ID, Path: stub.path}, nil
		default:
			return d.devaluateExport(stub.local, stub.path)
		}
	}
	isLocal, id, path := ref.WireRef()
	if !isLocal {
		if err := d.imports.Dup(id); err != nil {
			return nil, wrapErr(ErrAccounting, err)
		}
		return wire.Ref{Kind: wire.RefImport, ID: id, Path: path}, nil
	}
	return nil, wrapErr(ErrClassification, fmt.Errorf("unrecognized stub implementation %T", ref))
}

func (d *devaluator) devaluateExport(local interface{}, path wire.Path) (wire.Expr, error) {
	if e, ok := d.exports.FindByCapability(local); ok {
		return wire.Ref{Kind: wire.RefExport, ID: e.ID, Path: path}, nil
	}
	e := d.exports.Export(local, path)
	return wire.Ref{Kind: wire.RefExport, ID: e.ID, Path: path}, nil
}

func (d *devaluator) devaluateArray(v interface{}) (wire.Expr, error) {
	rv := reflect.ValueOf(v)
	ptr, track := trackable(rv)
	if track {
		if d.visiting[ptr] {
			return nil, wrapErr(ErrClassification, fmt.Errorf("cyclic value graph detected"))
		}
		d.visiting[ptr] = true
		defer delete(d.visiting, ptr)
	}
	out := make(wire.Array, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, err := d.devaluate(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = elem
	}
	return out, nil
}

func (d *devaluator) devaluateObject(v interface{}) (wire.Expr, error) {
	rv := reflect.ValueOf(v)
	ptr, track := trackable(rv)
	if track {
		if d.visiting[ptr] {
			return nil, wrapErr(ErrClassification, fmt.Errorf("cyclic value graph detected"))
		}
		d.visiting[ptr] = true
		defer delete(d.visiting, ptr)
	}

	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return wire.Undefined{}, nil
		}
		rv = rv.Elem()
	}

	out := make(wire.Object)
	switch rv.Kind() {
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			val, err := d.devaluate(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.PkgPath != "" {
				continue // unexported
			}
			name, skip := jsonFieldName(field)
			if skip {
				continue
			}
			val, err := d.devaluate(rv.Field(i).Interface())
			if err != nil {
				return nil, err
			}
			out[name] = val
		}
	default:
		return nil, wrapErr(ErrClassification, fmt.Errorf("unsupported object value of kind %s", rv.Kind()))
	}
	return out, nil
}

func trackable(rv reflect.Value) (uintptr, bool) {
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	case reflect.Ptr:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	default:
		return 0, false
	}
}

func jsonFieldName(field reflect.StructField) (name string, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if tag == "" {
		return field.Name, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] == "" {
		return field.Name, false
	}
	return parts[0], false
}

func devaluatePrimitive(v interface{}) wire.Expr {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return v
	}
}

func errorName(err error) string {
	type named interface{ CapnwebErrorName() string }
	if n, ok := err.(named); ok {
		return n.CapnwebErrorName()
	}
	return fmt.Sprintf("%T", err)
}
