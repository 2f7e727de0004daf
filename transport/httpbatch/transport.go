// Package httpbatch adapts one HTTP request/response body pair into the
// core's transport.Transport contract for a single logical batch round
// (spec.md §6 "Batch transport mode"), grounded on the teacher's
// server.go POST handler (bufio.Scanner over newline-delimited messages).
package httpbatch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/capnweb-go/capnweb/transport"
	"github.com/capnweb-go/capnweb/wire"
)

// ErrBatchDone is returned by Receive once every inbound message has been
// replayed; it is transport.ErrDone, so the session treats it as an
// orderly end of the batch, never as a fault.
var ErrBatchDone = transport.ErrDone

// Transport buffers the newline-delimited messages of one HTTP request
// body and accumulates outbound frames for the caller to join into the
// HTTP response body once the batch completes.
type Transport struct {
	mu        sync.Mutex
	lines     []string
	pos       int
	responses []string
}

// New scans body for newline-delimited messages; each is replayed, in
// order, by subsequent Receive calls.
func New(body io.Reader) (*Transport, error) {
	t := &Transport{}
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		t.lines = append(t.lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("httpbatch: scanning request body: %w", err)
	}
	return t, nil
}

func (t *Transport) Send(_ context.Context, frame wire.Frame) error {
	text, ok := wire.AsText(frame)
	if !ok {
		b, ok2 := wire.AsBytes(frame)
		if !ok2 {
			return fmt.Errorf("httpbatch: frame is neither text nor bytes")
		}
		text = string(b)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses = append(t.responses, text)
	return nil
}

func (t *Transport) Receive(_ context.Context) (wire.Frame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pos >= len(t.lines) {
		return nil, transport.ErrDone
	}
	line := t.lines[t.pos]
	t.pos++
	return wire.TextFrame(line), nil
}

// Abort is a no-op: an HTTP batch has no live connection to tear down
// beyond finishing the response write, which the caller controls.
func (t *Transport) Abort(error) {}

// Responses joins every frame handed to Send so far with newlines, ready
// to write as the HTTP response body.
func (t *Transport) Responses() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.responses, "\n")
}
