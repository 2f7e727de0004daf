package codec

import (
	"fmt"
	"testing"

	"github.com/capnweb-go/capnweb/wire"
)

func TestStructuredCloneClassifyPrimitivesAndContainers(t *testing.T) {
	sc := NewStructuredClone()
	cases := []struct {
		v    interface{}
		want Kind
	}{
		{nil, KindPrimitive},
		{42, KindRaw},
		{"hi", KindRaw},
		{[]interface{}{1, 2}, KindRaw},
		{map[string]interface{}{"a": 1}, KindRaw},
		{wire.Undefined{}, KindUndefined},
		{fmt.Errorf("boom"), KindError},
	}
	for _, c := range cases {
		if got := sc.Classify(c.v); got != c.want {
			t.Errorf("Classify(%#v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestStructuredCloneEncodeIsIdentity(t *testing.T) {
	sc := NewStructuredClone()
	tree := wire.Array{float64(1), "two"}

	frame, err := sc.Encode(tree)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := sc.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	arr, ok := got.(wire.Array)
	if !ok || len(arr) != 2 || arr[0] != float64(1) || arr[1] != "two" {
		t.Fatalf("got %#v, want the original tree unchanged", got)
	}
}

func TestStructuredCloneDecodeNilFrameReturnsNilExpr(t *testing.T) {
	sc := NewStructuredClone()
	got, err := sc.Decode(nil)
	if err != nil || got != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", got, err)
	}
}

func TestStructuredCloneDecodeRejectsNonExprFrame(t *testing.T) {
	sc := NewStructuredClone()
	if _, err := sc.Decode("not an expr"); err == nil {
		t.Fatal("expected Decode to reject a frame that isn't a wire.Expr")
	}
}
