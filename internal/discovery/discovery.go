// Package discovery owns the UDP multicast socket used to find a running
// editor instance and to signal command-channel open/close.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/ipv4"

	"github.com/danmuck/unrealctl/internal/config"
	"github.com/danmuck/unrealctl/internal/protocol"
)

var (
	ErrDiscoveryTimeout = errors.New("discovery: no matching peer before timeout")
	ErrChannelClosed    = errors.New("discovery: channel closed")
)

// DefaultReceiveTimeout bounds a single pong sweep when the caller passes
// no budget.
const DefaultReceiveTimeout = 500 * time.Millisecond

// Peer describes an editor instance derived from a pong reply. It only
// lives for the duration of a session.
type Peer struct {
	NodeID        string
	ProjectName   string
	EngineVersion string
	CommandIP     string
	CommandPort   int
}

// Channel is the multicast handshake socket. It is exclusively owned by one
// session; no concurrent use.
type Channel struct {
	cfg   config.Config
	conn  *net.UDPConn
	group *net.UDPAddr

	closeOnce sync.Once
	closed    bool
}

// Open joins the configured multicast group with loopback delivery enabled,
// so our own datagrams come back and must be filtered as echo downstream.
func Open(cfg config.Config) (*Channel, error) {
	group := &net.UDPAddr{
		IP:   net.ParseIP(cfg.MulticastGroup.IP),
		Port: cfg.MulticastGroup.Port,
	}
	if group.IP == nil {
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidEndpoint, cfg.MulticastGroup.IP)
	}

	conn, err := net.ListenMulticastUDP("udp4", bindInterface(cfg.MulticastBindAddress), group)
	if err != nil {
		return nil, fmt.Errorf("discovery: join %s: %w", group, err)
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.SetMulticastTTL(cfg.MulticastTTL); err != nil {
		log.Debug().Err(err).Msg("discovery set multicast ttl")
	}
	if err := p.SetMulticastLoopback(true); err != nil {
		log.Debug().Err(err).Msg("discovery set multicast loopback")
	}
	if err := conn.SetReadBuffer(cfg.BufferSize); err != nil {
		log.Debug().Err(err).Msg("discovery set read buffer")
	}

	return &Channel{cfg: cfg, conn: conn, group: group}, nil
}

// bindInterface maps the configured multicast bind address to a local
// interface. 0.0.0.0 or an unknown address falls back to the system default.
func bindInterface(bindAddr string) *net.Interface {
	if bindAddr == "" || bindAddr == "0.0.0.0" {
		return nil
	}
	want := net.ParseIP(bindAddr)
	if want == nil {
		return nil
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if ok && ipnet.IP.Equal(want) {
				return &ifaces[i]
			}
		}
	}
	return nil
}

func (c *Channel) send(env *protocol.Envelope) error {
	if c.closed {
		return ErrChannelClosed
	}
	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	if _, err := c.conn.WriteToUDP(data, c.group); err != nil {
		return fmt.Errorf("discovery: send %s: %w", env.Type, err)
	}
	log.Debug().Str("type", string(env.Type)).Str("dest", env.Dest).Msg("discovery sent")
	return nil
}

// SendPing broadcasts a ping to the multicast group.
func (c *Channel) SendPing() error {
	return c.send(protocol.NewPing(c.cfg.LocalID))
}

// ReceivePong sweeps the socket for a peer reply until the timeout budget
// is spent. Replies carry type "ping"; the source id separates them from
// our own reflected ping. When the config names a project, replies from
// other projects are skipped silently and the sweep continues on the same
// budget.
func (c *Channel) ReceivePong(timeout time.Duration) (Peer, error) {
	if c.closed {
		return Peer{}, ErrChannelClosed
	}
	if timeout <= 0 {
		timeout = DefaultReceiveTimeout
	}
	deadline := time.Now().Add(timeout)
	recv := protocol.Receiver{
		LocalID:    c.cfg.LocalID,
		BufferSize: c.cfg.BufferSize,
	}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Peer{}, ErrDiscoveryTimeout
		}
		env, err := recv.Receive(c.conn, remaining)
		if err != nil {
			if errors.Is(err, protocol.ErrNoReply) {
				return Peer{}, ErrDiscoveryTimeout
			}
			return Peer{}, err
		}
		if env.Type != protocol.TypePing {
			continue
		}
		peer, ok := peerFromPong(env)
		if !ok {
			continue
		}
		if c.cfg.ProjectName != "" && peer.ProjectName != c.cfg.ProjectName {
			log.Debug().
				Str("project", peer.ProjectName).
				Str("want", c.cfg.ProjectName).
				Msg("discovery skipping non-matching peer")
			continue
		}
		log.Info().
			Str("node", peer.NodeID).
			Str("project", peer.ProjectName).
			Str("engine", peer.EngineVersion).
			Msg("discovery peer found")
		return peer, nil
	}
}

// SendOpenConnection advertises the local command address to the peer so it
// can dial its outbound command socket.
func (c *Channel) SendOpenConnection(peerID string) error {
	env := protocol.NewOpenConnection(
		c.cfg.LocalID, peerID,
		c.cfg.CommandAddress.IP, c.cfg.CommandAddress.Port,
	)
	return c.send(env)
}

// SendCloseConnection signals teardown. Calling it with an empty peer id is
// a no-op so teardown paths need not track whether open ever succeeded.
func (c *Channel) SendCloseConnection(peerID string) error {
	if peerID == "" {
		return nil
	}
	return c.send(protocol.NewCloseConnection(c.cfg.LocalID, peerID))
}

// Close releases the multicast socket. Safe to call multiple times.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed = true
		err = c.conn.Close()
	})
	return err
}

func peerFromPong(env *protocol.Envelope) (Peer, bool) {
	if env.Data == nil {
		return Peer{}, false
	}
	peer := Peer{
		NodeID:        env.Source,
		ProjectName:   stringField(env.Data, "project_name"),
		EngineVersion: stringField(env.Data, "engine_version"),
		CommandIP:     stringField(env.Data, "command_ip"),
	}
	if port, ok := env.Data["command_port"].(float64); ok {
		peer.CommandPort = int(port)
	}
	if peer.ProjectName == "" && peer.EngineVersion == "" {
		return Peer{}, false
	}
	return peer, true
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}
