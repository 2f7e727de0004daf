package codec

import (
	"reflect"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/capnweb-go/capnweb/wire"
)

func roundTrip(t *testing.T, c Codec, expr wire.Expr) wire.Expr {
	t.Helper()
	frame, err := c.Encode(expr)
	if err != nil {
		t.Fatalf("Encode(%#v): %v", expr, err)
	}
	got, err := c.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestTaggedRoundTripsPrimitives(t *testing.T) {
	c := NewTagged()
	cases := []wire.Expr{
		nil,
		true,
		"hello",
		float64(42),
		wire.Array{"a", float64(1), true},
		wire.Object{"k": "v"},
	}
	for _, expr := range cases {
		got := roundTrip(t, c, expr)
		if diff := pretty.Compare(got, expr); diff != "" {
			t.Fatalf("round trip mismatch (-got +want):\n%s", diff)
		}
	}
}

func TestTaggedRoundTripsTaggedForms(t *testing.T) {
	c := NewTagged()

	got := roundTrip(t, c, wire.BigInt{Decimal: "12345678901234567890"})
	if got != (wire.BigInt{Decimal: "12345678901234567890"}) {
		t.Fatalf("bigint round trip mismatch: got %#v", got)
	}

	got = roundTrip(t, c, wire.Bytes{Data: []byte{1, 2, 3, 4}})
	b, ok := got.(wire.Bytes)
	if !ok || !reflect.DeepEqual(b.Data, []byte{1, 2, 3, 4}) {
		t.Fatalf("bytes round trip mismatch: got %#v", got)
	}

	got = roundTrip(t, c, wire.WireError{Name: "TypeError", Message: "bad"})
	if got != (wire.WireError{Name: "TypeError", Message: "bad"}) {
		t.Fatalf("error round trip mismatch: got %#v", got)
	}

	got = roundTrip(t, c, wire.SpecialNumber(wire.PosInfinity))
	if got != wire.SpecialNumber(wire.PosInfinity) {
		t.Fatalf("special-number round trip mismatch: got %#v", got)
	}
}

func TestTaggedRoundTripsRefWithPath(t *testing.T) {
	c := NewTagged()
	ref := wire.Ref{
		Kind: wire.RefImport,
		ID:   3,
		Path: wire.Path{wire.StringSegment("field"), wire.IndexSegment(2)},
	}
	got := roundTrip(t, c, ref)
	gotRef, ok := got.(wire.Ref)
	if !ok {
		t.Fatalf("got %T, want wire.Ref", got)
	}
	if !reflect.DeepEqual(gotRef, ref) {
		t.Fatalf("ref round trip mismatch: got %#v, want %#v", gotRef, ref)
	}
}

func TestClassifyPrimitivesAndContainers(t *testing.T) {
	cases := []struct {
		value interface{}
		want  Kind
	}{
		{nil, KindPrimitive},
		{"s", KindPrimitive},
		{42, KindPrimitive},
		{[]int{1, 2}, KindArray},
		{map[string]int{"a": 1}, KindObject},
		{struct{ X int }{1}, KindObject},
		{func() {}, KindFunction},
	}
	for _, c := range cases {
		if got := Classify(c.value); got != c.want {
			t.Fatalf("Classify(%#v) = %v, want %v", c.value, got, c.want)
		}
	}
}
