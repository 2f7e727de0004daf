package rpctarget

import "testing"

func TestAbortSignalTriggerFiresRegisteredHandlers(t *testing.T) {
	s := NewAbortSignal()
	var got interface{}
	s.OnAbort(func(reason interface{}) { got = reason })

	s.Trigger("cancelled")

	if got != "cancelled" {
		t.Fatalf("got %v, want %q", got, "cancelled")
	}
	if !s.Aborted() {
		t.Fatal("Aborted should report true after Trigger")
	}
}

func TestAbortSignalOnAbortAfterFireRunsImmediately(t *testing.T) {
	s := NewAbortSignal()
	s.Trigger("already gone")

	var got interface{}
	s.OnAbort(func(reason interface{}) { got = reason })

	if got != "already gone" {
		t.Fatalf("got %v, want %q", got, "already gone")
	}
}

func TestAbortSignalTriggerIsIdempotent(t *testing.T) {
	s := NewAbortSignal()
	calls := 0
	s.OnAbort(func(reason interface{}) { calls++ })

	s.Trigger("first")
	s.Trigger("second")

	if calls != 1 {
		t.Fatalf("got %d calls, want exactly 1", calls)
	}
	if s.Aborted() == false {
		t.Fatal("expected Aborted to remain true")
	}
}

func TestAbortSignalDispatchAbortMethodTriggersSignal(t *testing.T) {
	s := NewAbortSignal()
	var got interface{}
	s.OnAbort(func(reason interface{}) { got = reason })

	if _, err := s.Dispatch("abort", []interface{}{"peer cancelled"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got != "peer cancelled" {
		t.Fatalf("got %v, want the abort reason delivered through Dispatch", got)
	}
}
