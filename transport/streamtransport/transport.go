// Package streamtransport implements the duplex byte-stream framing of
// spec.md §6: each logical message is prefixed by a 4-byte big-endian
// unsigned length followed by that many bytes.
package streamtransport

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/capnweb-go/capnweb/wire"
)

// Transport wraps an io.ReadWriteCloser (a TCP conn, a pipe, a duplex
// named pipe) with 4-byte length-prefixed framing.
type Transport struct {
	rw  io.ReadWriteCloser
	r   *bufio.Reader
	wmu sync.Mutex
}

func New(rw io.ReadWriteCloser) *Transport {
	return &Transport{rw: rw, r: bufio.NewReader(rw)}
}

func (t *Transport) Send(_ context.Context, frame wire.Frame) error {
	var data []byte
	if text, ok := wire.AsText(frame); ok {
		data = []byte(text)
	} else if b, ok := wire.AsBytes(frame); ok {
		data = b
	} else {
		return fmt.Errorf("streamtransport: frame is neither text nor bytes")
	}

	t.wmu.Lock()
	defer t.wmu.Unlock()
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := t.rw.Write(header[:]); err != nil {
		return fmt.Errorf("streamtransport: write length prefix: %w", err)
	}
	if _, err := t.rw.Write(data); err != nil {
		return fmt.Errorf("streamtransport: write body: %w", err)
	}
	return nil
}

func (t *Transport) Receive(_ context.Context) (wire.Frame, error) {
	var header [4]byte
	if _, err := io.ReadFull(t.r, header[:]); err != nil {
		return nil, fmt.Errorf("streamtransport: read length prefix: %w", err)
	}
	n := binary.BigEndian.Uint32(header[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.r, buf); err != nil {
		return nil, fmt.Errorf("streamtransport: read body: %w", err)
	}
	return wire.BytesFrame(buf), nil
}

func (t *Transport) Abort(error) {
	_ = t.rw.Close()
}
