package wire

// Frame is an opaque logical message handed between a Transport and a
// Codec: a text string or an opaque byte buffer (spec.md §4.1), or, under
// the structured-clone codec, the wire.Expr tree itself for transports that
// carry Go values (chantransport). The codec decides which representation
// it wants; transports only move Frames, never interpret them.
type Frame interface{}

// TextFrame and BytesFrame construct the two Frame representations.
func TextFrame(s string) Frame  { return s }
func BytesFrame(b []byte) Frame { return b }

// AsText and AsBytes extract a Frame's underlying representation.
func AsText(f Frame) (string, bool) {
	s, ok := f.(string)
	return s, ok
}

func AsBytes(f Frame) ([]byte, bool) {
	b, ok := f.([]byte)
	return b, ok
}
