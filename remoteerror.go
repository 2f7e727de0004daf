package capnweb

import "fmt"

// RemoteError is the host-side representation of a wire error (rejection
// or abort payload) received from the peer: a name plus a message, with
// no Go stack trace since none crossed the wire.
type RemoteError struct {
	Name    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}
