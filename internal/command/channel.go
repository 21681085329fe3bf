package command

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/unrealctl/internal/config"
	"github.com/danmuck/unrealctl/internal/protocol"
)

var (
	ErrAcceptTimeout   = errors.New("command: peer did not connect before timeout")
	ErrNotAccepted     = errors.New("command: no accepted connection")
	ErrChannelClosed   = errors.New("command: channel closed")
	ErrExecutionFailed = errors.New("command: remote execution failed")
)

const (
	// AcceptTimeout bounds the wait for the peer's inbound connection
	// after open_connection is sent.
	AcceptTimeout = 2 * time.Second
	// DefaultSendTimeout bounds one command round trip unless the caller
	// supplies a budget.
	DefaultSendTimeout = 5 * time.Second
)

// Channel is the command socket pair: a listener bound to the pre-resolved
// command address and, once the peer dials in, the single accepted
// connection. The protocol is strictly half-duplex; one outstanding
// exchange at a time.
type Channel struct {
	cfg    config.Config
	peerID string

	listener *net.TCPListener
	conn     net.Conn

	closeOnce sync.Once
	closed    bool
}

// Listen binds the listener to the command address. This must happen before
// any discovery message referencing that address goes out, so the peer
// never dials a dead port.
func Listen(cfg config.Config, peerID string) (*Channel, error) {
	addr := &net.TCPAddr{
		IP:   net.ParseIP(cfg.CommandAddress.IP),
		Port: cfg.CommandAddress.Port,
	}
	listener, err := net.ListenTCP("tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("command: listen %s: %w", cfg.CommandAddress, err)
	}
	return &Channel{cfg: cfg, peerID: peerID, listener: listener}, nil
}

// Accept waits for exactly one inbound connection from the peer.
func (c *Channel) Accept(timeout time.Duration) error {
	if c.closed {
		return ErrChannelClosed
	}
	if timeout <= 0 {
		timeout = AcceptTimeout
	}
	if err := c.listener.SetDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	conn, err := c.listener.AcceptTCP()
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return ErrAcceptTimeout
		}
		return fmt.Errorf("command: accept: %w", err)
	}
	c.conn = conn
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("command peer connected")
	return nil
}

// Send writes one command envelope and blocks for its result within the
// timeout budget. A window that expires with no reply yields a failed
// Result, not an error: the remote side may still be executing, and its
// output is orphaned by design. With raiseOnFailure, a failed result is
// converted into an error carrying the remote result string.
func (c *Channel) Send(req Request, timeout time.Duration, raiseOnFailure bool) (Result, error) {
	if c.closed {
		return Result{}, ErrChannelClosed
	}
	if c.conn == nil {
		return Result{}, ErrNotAccepted
	}
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}

	env := protocol.NewCommand(c.cfg.LocalID, c.peerID, req.data())
	data, err := protocol.Encode(env)
	if err != nil {
		return Result{}, err
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return Result{}, err
	}
	if _, err := c.conn.Write(data); err != nil {
		return Result{}, fmt.Errorf("command: send: %w", err)
	}
	log.Debug().Str("exec_mode", string(req.ExecMode)).Msg("command sent")

	recv := protocol.Receiver{
		OwnType:    protocol.TypeCommand,
		LocalID:    c.cfg.LocalID,
		BufferSize: c.cfg.BufferSize,
	}
	reply, err := recv.Receive(c.conn, timeout)
	var res Result
	switch {
	case errors.Is(err, protocol.ErrNoReply):
		res = Result{Success: false, Result: "None"}
	case err != nil:
		return Result{}, fmt.Errorf("command: receive: %w", err)
	default:
		res = parseResult(reply)
	}

	if !res.Success && raiseOnFailure {
		return res, fmt.Errorf("%w: %s", ErrExecutionFailed, res.Result)
	}
	return res, nil
}

// Close releases the accepted socket and the listener. Safe to call
// multiple times.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed = true
		if c.conn != nil {
			err = c.conn.Close()
		}
		if lerr := c.listener.Close(); err == nil {
			err = lerr
		}
	})
	return err
}
