// Package wstransport adapts a gorilla/websocket connection to the core's
// transport.Transport contract, grounded on the teacher's server.go
// WebSocket read/write loop.
package wstransport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/capnweb-go/capnweb/wire"
)

// Transport carries wire frames over one WebSocket connection as text
// messages, falling back to binary frames for a binary codec.
type Transport struct {
	conn *websocket.Conn

	mu     sync.Mutex // gorilla requires a single writer at a time
	closed bool
}

func New(conn *websocket.Conn) *Transport {
	return &Transport{conn: conn}
}

func (t *Transport) Send(_ context.Context, frame wire.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if text, ok := wire.AsText(frame); ok {
		return t.conn.WriteMessage(websocket.TextMessage, []byte(text))
	}
	if data, ok := wire.AsBytes(frame); ok {
		return t.conn.WriteMessage(websocket.BinaryMessage, data)
	}
	return fmt.Errorf("wstransport: frame is neither text nor bytes")
}

func (t *Transport) Receive(_ context.Context) (wire.Frame, error) {
	kind, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("wstransport: receive: %w", err)
	}
	if kind == websocket.BinaryMessage {
		return wire.BytesFrame(data), nil
	}
	return wire.TextFrame(string(data)), nil
}

func (t *Transport) Abort(reason error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	msg := "session aborted"
	if reason != nil {
		msg = reason.Error()
	}
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, msg),
		time.Now().Add(time.Second))
	_ = t.conn.Close()
}
