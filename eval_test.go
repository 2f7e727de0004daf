package capnweb

import (
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/capnweb-go/capnweb/wire"
)

func TestEvaluatePrimitivesPassThrough(t *testing.T) {
	e := newEvaluator(nil)
	cases := []wire.Expr{nil, true, "s", float64(3.5), wire.Undefined{}}
	for _, expr := range cases {
		got, err := e.evaluate(expr)
		if err != nil {
			t.Fatalf("evaluate(%#v): %v", expr, err)
		}
		if got != expr {
			t.Fatalf("got %#v, want %#v unchanged", got, expr)
		}
	}
}

func TestEvaluateBigInt(t *testing.T) {
	e := newEvaluator(nil)
	got, err := e.evaluate(wire.BigInt{Decimal: "123456789012345678901234567890"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	bi, ok := got.(*big.Int)
	if !ok || bi.String() != "123456789012345678901234567890" {
		t.Fatalf("got %#v, want the parsed big.Int", got)
	}
}

func TestEvaluateMalformedBigIntIsAnError(t *testing.T) {
	e := newEvaluator(nil)
	if _, err := e.evaluate(wire.BigInt{Decimal: "not-a-number"}); !errors.Is(err, ErrDecode) {
		t.Fatalf("got %v, want ErrDecode", err)
	}
}

func TestEvaluateDate(t *testing.T) {
	e := newEvaluator(nil)
	ms := float64(1700000000000)
	got, err := e.evaluate(wire.Date{UnixMilli: ms})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	tm, ok := got.(time.Time)
	if !ok || tm.UnixMilli() != int64(ms) {
		t.Fatalf("got %#v, want a time.Time at %v ms", got, ms)
	}
}

func TestEvaluateSpecialNumbers(t *testing.T) {
	e := newEvaluator(nil)

	got, err := e.evaluate(wire.SpecialNumber(wire.PosInfinity))
	if err != nil || got != math.Inf(1) {
		t.Fatalf("got (%v, %v), want +Inf", got, err)
	}
	got, err = e.evaluate(wire.SpecialNumber(wire.NegInfinity))
	if err != nil || got != math.Inf(-1) {
		t.Fatalf("got (%v, %v), want -Inf", got, err)
	}
	got, err = e.evaluate(wire.SpecialNumber(wire.NotANumber))
	if err != nil {
		t.Fatalf("evaluate NaN: %v", err)
	}
	if f, ok := got.(float64); !ok || !math.IsNaN(f) {
		t.Fatalf("got %#v, want NaN", got)
	}

	if _, err := e.evaluate(wire.SpecialNumber("bogus")); !errors.Is(err, ErrDecode) {
		t.Fatalf("got %v, want ErrDecode for an unrecognized special number", err)
	}
}

func TestEvaluateWireErrorBecomesRemoteError(t *testing.T) {
	e := newEvaluator(nil)
	got, err := e.evaluate(wire.WireError{Name: "TypeError", Message: "bad"})
	if got != nil || err == nil {
		t.Fatalf("got (%v, %v), want (nil, a RemoteError)", got, err)
	}
	re, ok := err.(*RemoteError)
	if !ok || re.Name != "TypeError" || re.Message != "bad" {
		t.Fatalf("got %#v, want RemoteError{TypeError, bad}", err)
	}
}

func TestEvaluateRawUnwrapsValue(t *testing.T) {
	e := newEvaluator(nil)
	got, err := e.evaluate(wire.Raw{Value: map[string]interface{}{"n": float64(1)}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	m, ok := got.(map[string]interface{})
	if !ok || m["n"] != float64(1) {
		t.Fatalf("got %#v, want the raw value unwrapped", got)
	}
}

func TestEvaluateArrayAndObjectRecurse(t *testing.T) {
	e := newEvaluator(nil)

	gotArr, err := e.evaluate(wire.Array{float64(1), "two", wire.Undefined{}})
	if err != nil {
		t.Fatalf("evaluate array: %v", err)
	}
	arr, ok := gotArr.([]interface{})
	if !ok || len(arr) != 3 || arr[0] != float64(1) || arr[1] != "two" {
		t.Fatalf("got %#v, want a 3-element slice", gotArr)
	}

	gotObj, err := e.evaluate(wire.Object{"k": "v"})
	if err != nil {
		t.Fatalf("evaluate object: %v", err)
	}
	obj, ok := gotObj.(map[string]interface{})
	if !ok || obj["k"] != "v" {
		t.Fatalf("got %#v, want {\"k\":\"v\"}", gotObj)
	}
}

func TestEvaluateUnrecognizedExprIsAnError(t *testing.T) {
	e := newEvaluator(nil)
	if _, err := e.evaluate(42); !errors.Is(err, ErrDecode) {
		t.Fatalf("got %v, want ErrDecode for a non-wire.Expr leaf", err)
	}
}

func TestEvaluateRefUnrecognizedKindIsAnError(t *testing.T) {
	e := newEvaluator(&Session{})
	if _, err := e.evaluate(wire.Ref{Kind: wire.RefKind("bogus"), ID: 1}); !errors.Is(err, ErrDecode) {
		t.Fatalf("got %v, want ErrDecode for an unrecognized ref kind", err)
	}
}
