package chantransport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/capnweb-go/capnweb/wire"
)

func TestPairDeliversFramesBothWays(t *testing.T) {
	a, b := NewPair()
	ctx := context.Background()

	if err := a.Send(ctx, wire.Frame(`{"from":"a"}`)); err != nil {
		t.Fatalf("a.Send: %v", err)
	}
	got, err := b.Receive(ctx)
	if err != nil {
		t.Fatalf("b.Receive: %v", err)
	}
	if text, _ := wire.AsText(got); text != `{"from":"a"}` {
		t.Fatalf("got %s, want frame sent by a", got)
	}

	if err := b.Send(ctx, wire.Frame(`{"from":"b"}`)); err != nil {
		t.Fatalf("b.Send: %v", err)
	}
	got, err = a.Receive(ctx)
	if err != nil {
		t.Fatalf("a.Receive: %v", err)
	}
	if text, _ := wire.AsText(got); text != `{"from":"b"}` {
		t.Fatalf("got %s, want frame sent by b", got)
	}
}

func TestAbortUnblocksPendingReceive(t *testing.T) {
	a, _ := NewPair()
	errCh := make(chan error, 1)
	go func() {
		_, err := a.Receive(context.Background())
		errCh <- err
	}()

	a.Abort(fmt.Errorf("peer went away"))

	select {
	case err := <-errCh:
		if err == nil || err.Error() != "peer went away" {
			t.Fatalf("got %v, want the abort reason", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock after Abort")
	}
}

func TestAbortIsIdempotentAndKeepsFirstReason(t *testing.T) {
	a, _ := NewPair()
	a.Abort(fmt.Errorf("first"))
	a.Abort(fmt.Errorf("second"))

	_, err := a.Receive(context.Background())
	if err == nil || err.Error() != "first" {
		t.Fatalf("got %v, want the first abort reason to stick", err)
	}
}

func TestSendAfterAbortFails(t *testing.T) {
	a, _ := NewPair()
	a.Abort(fmt.Errorf("closed"))

	if err := a.Send(context.Background(), wire.Frame("x")); err == nil {
		t.Fatal("expected Send to fail once the transport is aborted")
	}
}

func TestReceiveRespectsContextCancellation(t *testing.T) {
	a, _ := NewPair()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.Receive(ctx); err != context.Canceled {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
