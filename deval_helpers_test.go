package capnweb

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/capnweb-go/capnweb/codec"
	"github.com/capnweb-go/capnweb/wire"
)

func TestDevaluatePrimitiveNormalizesNumericKinds(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
	}{
		{int(7), 7},
		{int8(7), 7},
		{int16(7), 7},
		{int32(7), 7},
		{int64(7), 7},
		{uint(7), 7},
		{uint8(7), 7},
		{uint16(7), 7},
		{uint32(7), 7},
		{uint64(7), 7},
		{float32(7), 7},
	}
	for _, c := range cases {
		got := devaluatePrimitive(c.in)
		if got != c.want {
			t.Errorf("devaluatePrimitive(%#v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestDevaluatePrimitivePassesThroughNonNumeric(t *testing.T) {
	if got := devaluatePrimitive("hi"); got != "hi" {
		t.Fatalf("got %v, want %q unchanged", got, "hi")
	}
	if got := devaluatePrimitive(true); got != true {
		t.Fatalf("got %v, want true unchanged", got)
	}
}

type namedErr struct{ name string }

func (e *namedErr) Error() string            { return "boom" }
func (e *namedErr) CapnwebErrorName() string { return e.name }

func TestErrorNameUsesCapnwebErrorNameWhenPresent(t *testing.T) {
	err := &namedErr{name: "QuotaExceeded"}
	if got := errorName(err); got != "QuotaExceeded" {
		t.Fatalf("got %q, want %q", got, "QuotaExceeded")
	}
}

func TestErrorNameFallsBackToGoTypeName(t *testing.T) {
	err := fmt.Errorf("plain failure")
	got := errorName(err)
	if got == "" || got == "plain failure" {
		t.Fatalf("got %q, want a %%T-style type name fallback", got)
	}
}

func TestTrackableReportsPointerForNonNilReferenceKinds(t *testing.T) {
	m := map[string]int{"a": 1}
	if _, track := trackable(reflect.ValueOf(m)); !track {
		t.Fatal("a non-nil map should be trackable")
	}

	var nilMap map[string]int
	if _, track := trackable(reflect.ValueOf(nilMap)); track {
		t.Fatal("a nil map should not be trackable")
	}

	if _, track := trackable(reflect.ValueOf(42)); track {
		t.Fatal("a scalar value should not be trackable")
	}
}

func TestJSONFieldNameHonorsTagOverridesAndSkip(t *testing.T) {
	type sample struct {
		Plain   string
		Renamed string `json:"renamed_field"`
		Skipped string `json:"-"`
		Opts    string `json:"opts,omitempty"`
	}
	fields := reflect.TypeOf(sample{})

	name, skip := jsonFieldName(fields.Field(0))
	if skip || name != "Plain" {
		t.Fatalf("got (%q, %v), want (\"Plain\", false)", name, skip)
	}
	name, skip = jsonFieldName(fields.Field(1))
	if skip || name != "renamed_field" {
		t.Fatalf("got (%q, %v), want (\"renamed_field\", false)", name, skip)
	}
	_, skip = jsonFieldName(fields.Field(2))
	if !skip {
		t.Fatal("a json:\"-\" field must be skipped")
	}
	name, skip = jsonFieldName(fields.Field(3))
	if skip || name != "opts" {
		t.Fatalf("got (%q, %v), want (\"opts\", false)", name, skip)
	}
}

// arrayOnlyClassifier routes every []interface{} to KindArray and
// everything else to KindPrimitive, just enough to drive devaluateArray's
// recursion without constructing a full Session.
type arrayOnlyClassifier struct{}

func (arrayOnlyClassifier) Classify(v interface{}) codec.Kind {
	if _, ok := v.([]interface{}); ok {
		return codec.KindArray
	}
	return codec.KindPrimitive
}
func (arrayOnlyClassifier) Encode(wire.Expr) (wire.Frame, error)  { return nil, nil }
func (arrayOnlyClassifier) Decode(wire.Frame) (wire.Expr, error) { return nil, nil }

func TestDevaluateArrayDetectsCycles(t *testing.T) {
	d := &devaluator{visiting: make(map[uintptr]bool), codec: arrayOnlyClassifier{}}
	a := make([]interface{}, 1)
	a[0] = a // self-referential slice

	if _, err := d.devaluateArray(a); err == nil {
		t.Fatal("expected a cyclic value graph to be rejected")
	}
}

// structOnlyClassifier routes struct pointers to KindObject so the cycle
// test below can exercise devaluateObject directly.
type structOnlyClassifier struct{}

func (structOnlyClassifier) Classify(v interface{}) codec.Kind {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && rv.Elem().Kind() == reflect.Struct {
		return codec.KindObject
	}
	return codec.KindPrimitive
}
func (structOnlyClassifier) Encode(wire.Expr) (wire.Frame, error)  { return nil, nil }
func (structOnlyClassifier) Decode(wire.Frame) (wire.Expr, error) { return nil, nil }

type selfRefNode struct {
	Self *selfRefNode
}

func TestDevaluateObjectDetectsCycles(t *testing.T) {
	d := &devaluator{visiting: make(map[uintptr]bool), codec: structOnlyClassifier{}}
	n := &selfRefNode{}
	n.Self = n

	if _, err := d.devaluateObject(n); err == nil {
		t.Fatal("expected a cyclic struct graph to be rejected")
	}
}
