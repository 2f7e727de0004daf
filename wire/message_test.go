package wire

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func TestMessageRoundTrip(t *testing.T) {
	cases := []Message{
		Push(Array{"hello", float64(1)}),
		Pull(42),
		Resolve(7, "ok"),
		Reject(7, WireError{Name: "Error", Message: "boom"}),
		Release(3, 2),
		Abort(WireError{Name: "Error", Message: "aborted"}),
	}

	for _, m := range cases {
		arr := m.ToArray()
		got, err := ParseMessage(arr)
		if err != nil {
			t.Fatalf("ParseMessage(%v): %v", arr, err)
		}
		if diff := pretty.Compare(got, m); diff != "" {
			t.Fatalf("round trip mismatch (-got +want):\n%s", diff)
		}
	}
}

func TestParseMessageRejectsMalformedInput(t *testing.T) {
	cases := []Expr{
		Array{},
		Array{"pull"},            // missing id
		Array{"pull", "not-a-number"},
		Array{"bogus-kind", 1},
		"not-an-array",
	}
	for _, c := range cases {
		if _, err := ParseMessage(c); err == nil {
			t.Fatalf("expected an error parsing %#v", c)
		}
	}
}

func TestAsInt64AcceptsFloatAndInt(t *testing.T) {
	arr := Array{"pull", float64(5)}
	got, err := asInt64(arr, 1, "pull")
	if err != nil {
		t.Fatalf("asInt64: %v", err)
	}
	if got != 5 {
		t.Fatalf("got %d, want 5", got)
	}

	arr2 := Array{"pull", int64(6)}
	got2, err := asInt64(arr2, 1, "pull")
	if err != nil {
		t.Fatalf("asInt64: %v", err)
	}
	if got2 != 6 {
		t.Fatalf("got %d, want 6", got2)
	}
}
