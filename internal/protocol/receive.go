package protocol

import (
	"errors"
	"net"
	"time"
)

// DefaultBufferSize matches the editor's default receive buffer.
const DefaultBufferSize = 2_097_152

// Receiver drains a socket for the next envelope that is neither an echo of
// our own traffic nor garbage. The same loop serves the multicast discovery
// socket and the TCP command socket; only the socket and the own-message
// type differ.
type Receiver struct {
	// OwnType, when set, discards inbound envelopes of the type this side
	// most recently sent on the socket. The command channel uses it: the
	// editor never sends "command", so anything of that type is loopback.
	// The discovery channel leaves it empty because peers answer a ping
	// with type "ping" as well; there the source id is the only
	// discriminator.
	OwnType MessageType
	// LocalID discards envelopes whose source is this process. A reflected
	// self-ping is indistinguishable from a peer reply by type alone.
	LocalID    string
	BufferSize int
}

// Receive blocks until a non-echo envelope decodes or the timeout budget is
// spent. A timeout yields ErrNoReply, not a protocol error: the caller
// decides whether "no reply" is fatal. Partial frames extend the
// accumulation phase but never reset the deadline.
func (r Receiver) Receive(conn net.Conn, timeout time.Duration) (*Envelope, error) {
	size := r.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	var acc []byte
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			env, derr := Decode(acc)
			if derr == nil {
				acc = acc[:0]
				if env.Type == r.OwnType || (r.LocalID != "" && env.Source == r.LocalID) {
					continue
				}
				return env, nil
			}
			if !errors.Is(derr, ErrIncomplete) {
				// Garbage between messages only extends the wait.
				acc = acc[:0]
			}
		}
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				return nil, ErrNoReply
			}
			return nil, err
		}
	}
}
