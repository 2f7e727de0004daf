package pipeline

import (
	"testing"

	"github.com/capnweb-go/capnweb/wire"
)

func TestFollowFieldAndIndex(t *testing.T) {
	value := map[string]interface{}{
		"users": []interface{}{
			map[string]interface{}{"name": "Ada"},
			map[string]interface{}{"name": "Alan"},
		},
	}
	path := wire.Path{
		wire.StringSegment("users"),
		wire.IndexSegment(1),
		wire.StringSegment("name"),
	}
	got, err := Follow(value, path)
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if got != "Alan" {
		t.Fatalf("got %v, want %q", got, "Alan")
	}
}

func TestFollowEmptyPathReturnsValueUnchanged(t *testing.T) {
	got, err := Follow(42, nil)
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %v, want 42", got)
	}
}

func TestFollowRejectsIndexIntoObject(t *testing.T) {
	value := map[string]interface{}{"a": 1}
	if _, err := Follow(value, wire.Path{wire.IndexSegment(0)}); err == nil {
		t.Fatal("expected an error indexing into an object")
	}
}

func TestFollowRejectsFieldIntoArray(t *testing.T) {
	value := []interface{}{1, 2, 3}
	if _, err := Follow(value, wire.Path{wire.StringSegment("x")}); err == nil {
		t.Fatal("expected an error reading a field off an array")
	}
}

func TestFollowRejectsOutOfBoundsIndex(t *testing.T) {
	value := []interface{}{1, 2, 3}
	if _, err := Follow(value, wire.Path{wire.IndexSegment(5)}); err == nil {
		t.Fatal("expected an error for an out-of-bounds index")
	}
}

func TestJoinDoesNotMutateBase(t *testing.T) {
	base := wire.Path{wire.StringSegment("a")}
	extended := Join(base, wire.StringSegment("b"))

	if len(base) != 1 {
		t.Fatalf("base path was mutated: %v", base)
	}
	if len(extended) != 2 {
		t.Fatalf("got %d segments, want 2", len(extended))
	}
}
