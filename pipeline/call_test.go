package pipeline

import (
	"fmt"
	"sync"
	"testing"
)

func TestQueueEnqueueBeforeFire(t *testing.T) {
	q := NewQueue()
	var got interface{}
	var gotErr error
	q.Enqueue(func(v interface{}, err error) { got, gotErr = v, err })

	q.Fire("value", nil)

	if got != "value" || gotErr != nil {
		t.Fatalf("got (%v, %v), want (\"value\", nil)", got, gotErr)
	}
}

func TestQueueEnqueueAfterFireRunsImmediately(t *testing.T) {
	q := NewQueue()
	q.Fire("value", nil)

	var got interface{}
	q.Enqueue(func(v interface{}, err error) { got = v })

	if got != "value" {
		t.Fatalf("got %v, want %q", got, "value")
	}
}

func TestQueueFireIsIdempotent(t *testing.T) {
	q := NewQueue()
	q.Fire("first", nil)
	q.Fire("second", fmt.Errorf("ignored"))

	v, err := q.Wait()
	if v != "first" || err != nil {
		t.Fatalf("got (%v, %v), want (\"first\", nil); Fire should be a no-op after the first call", v, err)
	}
}

func TestQueueWaitBlocksUntilFire(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Fire(7, nil)
	}()

	v, err := q.Wait()
	wg.Wait()
	if err != nil || v != 7 {
		t.Fatalf("got (%v, %v), want (7, nil)", v, err)
	}
}

func TestQueueSnapshotReportsFiredState(t *testing.T) {
	q := NewQueue()
	if fired, _, _ := q.Snapshot(); fired {
		t.Fatal("expected Snapshot to report not-fired before Fire")
	}
	q.Fire("done", nil)
	fired, v, err := q.Snapshot()
	if !fired || v != "done" || err != nil {
		t.Fatalf("got (%v, %v, %v), want (true, \"done\", nil)", fired, v, err)
	}
}
