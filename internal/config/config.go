package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"

	"github.com/danmuck/unrealctl/internal/protocol"
)

var (
	ErrInvalidEndpoint = errors.New("config: invalid endpoint")
	ErrResolveCommand  = errors.New("config: command address resolution failed")
)

// Fallbacks mirror the editor plugin defaults.
const (
	DefaultMulticastIP   = "239.0.0.1"
	DefaultMulticastPort = 6766
	DefaultBindAddress   = "0.0.0.0"
	DefaultMulticastTTL  = 0
	DefaultBufferSize    = protocol.DefaultBufferSize
)

// Endpoint is an ip:port pair.
type Endpoint struct {
	IP   string
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(e.Port))
}

// ParseEndpoint parses "ip:port".
func ParseEndpoint(raw string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrInvalidEndpoint, raw)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrInvalidEndpoint, raw)
	}
	return Endpoint{IP: host, Port: port}, nil
}

// Config is the immutable parameter bundle consumed by every other
// component. Build it once with New; the local id and the command address
// must not change for the lifetime of the process.
type Config struct {
	BufferSize           int
	MulticastGroup       Endpoint
	MulticastBindAddress string
	MulticastTTL         int

	// LocalID uniquely identifies this process on the wire.
	LocalID string

	// CommandAddress is resolved exactly once before any socket that
	// references it exists, so the open_connection payload and the
	// listener bind agree.
	CommandAddress Endpoint

	// ProjectName, when set, restricts discovery to the editor instance
	// running that project.
	ProjectName string
}

// New fills zero fields of base with the plugin defaults, generates the
// local id, and resolves the ephemeral command address.
func New(base Config) (Config, error) {
	cfg := base
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.MulticastGroup == (Endpoint{}) {
		cfg.MulticastGroup = Endpoint{IP: DefaultMulticastIP, Port: DefaultMulticastPort}
	}
	if cfg.MulticastBindAddress == "" {
		cfg.MulticastBindAddress = DefaultBindAddress
	}
	if cfg.MulticastTTL < 0 {
		cfg.MulticastTTL = DefaultMulticastTTL
	}
	if cfg.LocalID == "" {
		cfg.LocalID = uuid.NewString()
	}
	if cfg.CommandAddress == (Endpoint{}) {
		addr, err := resolveCommandAddress()
		if err != nil {
			return Config{}, err
		}
		cfg.CommandAddress = addr
	}
	return cfg, nil
}

// resolveCommandAddress binds an ephemeral loopback port and immediately
// releases it. The port is advertised to the peer before the command
// listener rebinds it.
func resolveCommandAddress() (Endpoint, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrResolveCommand, err)
	}
	defer l.Close()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: unexpected address %T", ErrResolveCommand, l.Addr())
	}
	return Endpoint{IP: "127.0.0.1", Port: addr.Port}, nil
}
