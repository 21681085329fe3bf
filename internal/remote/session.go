// Package remote orchestrates the session lifecycle: multicast discovery,
// command channel bootstrap, command execution, teardown.
package remote

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/unrealctl/internal/command"
	"github.com/danmuck/unrealctl/internal/config"
	"github.com/danmuck/unrealctl/internal/discovery"
)

var (
	// ErrConnectFailed covers the command-socket bootstrap: the peer
	// acknowledged discovery but never dialed in. Distinct from a
	// discovery timeout, which is discovery.ErrDiscoveryTimeout.
	ErrConnectFailed = errors.New("remote: connection failed")
	// ErrNotConnected is a programming error: Execute on a closed session.
	ErrNotConnected = errors.New("remote: not connected")
)

// State is the session lifecycle position.
type State int

const (
	StateClosed State = iota
	StateDiscovering
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateDiscovering:
		return "discovering"
	case StateOpen:
		return "open"
	}
	return "unknown"
}

// Options bound the blocking points of a session. Zero values fall back to
// the package defaults.
type Options struct {
	DiscoveryTimeout time.Duration
	AcceptTimeout    time.Duration
	CommandTimeout   time.Duration
	// RaiseOnFailure converts a success=false result into an error at the
	// Execute boundary.
	RaiseOnFailure bool
}

// DefaultDiscoveryTimeout allows a few pong sweeps before giving up.
const DefaultDiscoveryTimeout = 2 * time.Second

type discoverer interface {
	SendPing() error
	ReceivePong(timeout time.Duration) (discovery.Peer, error)
	SendOpenConnection(peerID string) error
	SendCloseConnection(peerID string) error
	Close() error
}

type commander interface {
	Accept(timeout time.Duration) error
	Send(req command.Request, timeout time.Duration, raiseOnFailure bool) (command.Result, error)
	Close() error
}

// Session is the single-threaded controller owning one discovery socket
// and, once open, one command socket pair. It is not safe for concurrent
// use; the protocol is strictly one outstanding exchange at a time.
type Session struct {
	cfg  config.Config
	opts Options

	state State
	peer  discovery.Peer
	disc  discoverer
	cmd   commander

	openDiscovery func(config.Config) (discoverer, error)
	openCommand   func(config.Config, string) (commander, error)
}

// NewSession builds a controller in the Closed state. No sockets exist
// until Open.
func NewSession(cfg config.Config, opts Options) *Session {
	if opts.DiscoveryTimeout <= 0 {
		opts.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if opts.AcceptTimeout <= 0 {
		opts.AcceptTimeout = command.AcceptTimeout
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = command.DefaultSendTimeout
	}
	return &Session{
		cfg:  cfg,
		opts: opts,
		openDiscovery: func(cfg config.Config) (discoverer, error) {
			return discovery.Open(cfg)
		},
		openCommand: func(cfg config.Config, peerID string) (commander, error) {
			return command.Listen(cfg, peerID)
		},
	}
}

// Open runs the handshake: ping, await pong, advertise the command address,
// accept the peer's inbound connection. There is no partial-open state: any
// failure tears the sockets back down and leaves the session Closed.
func (s *Session) Open() error {
	if s.state == StateOpen {
		return nil
	}

	disc, err := s.openDiscovery(s.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	s.disc = disc
	s.state = StateDiscovering

	if err := s.disc.SendPing(); err != nil {
		s.teardown()
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	peer, err := s.disc.ReceivePong(s.opts.DiscoveryTimeout)
	if err != nil {
		s.teardown()
		return err
	}
	s.peer = peer

	// The listener must be live before the peer learns the address.
	cmd, err := s.openCommand(s.cfg, peer.NodeID)
	if err != nil {
		s.teardown()
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	s.cmd = cmd

	if err := s.disc.SendOpenConnection(peer.NodeID); err != nil {
		s.teardown()
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	if err := s.cmd.Accept(s.opts.AcceptTimeout); err != nil {
		s.teardown()
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	s.state = StateOpen
	log.Info().
		Str("project", peer.ProjectName).
		Str("engine", peer.EngineVersion).
		Str("node", peer.NodeID).
		Msg("session established")
	return nil
}

// Execute runs one command on the open session. Only valid in the Open
// state.
func (s *Session) Execute(req command.Request) (command.Result, error) {
	if s.state != StateOpen {
		return command.Result{}, fmt.Errorf("%w: state %s", ErrNotConnected, s.state)
	}
	return s.cmd.Send(req, s.opts.CommandTimeout, s.opts.RaiseOnFailure)
}

// Close signals close_connection best-effort and releases every socket.
// Closing a Closed session performs no socket operations.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	if err := s.disc.SendCloseConnection(s.peer.NodeID); err != nil {
		log.Debug().Err(err).Msg("close_connection send failed")
	}
	s.teardown()
	return nil
}

// Peer reports the discovered editor instance. Zero until Open succeeds.
func (s *Session) Peer() discovery.Peer {
	return s.peer
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) teardown() {
	if s.cmd != nil {
		if err := s.cmd.Close(); err != nil {
			log.Debug().Err(err).Msg("command channel close failed")
		}
		s.cmd = nil
	}
	if s.disc != nil {
		if err := s.disc.Close(); err != nil {
			log.Debug().Err(err).Msg("discovery channel close failed")
		}
		s.disc = nil
	}
	s.peer = discovery.Peer{}
	s.state = StateClosed
}
