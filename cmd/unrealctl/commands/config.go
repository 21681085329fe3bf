package commands

import (
	"strings"
	"time"

	"github.com/danmuck/unrealctl/internal/command"
	"github.com/danmuck/unrealctl/internal/config"
	"github.com/danmuck/unrealctl/internal/rc"
	"github.com/danmuck/unrealctl/internal/remote"
)

// settings bundle the protocol config with the CLI-level knobs that do not
// belong on the wire.
type settings struct {
	base             config.Config
	discoveryTimeout time.Duration
	commandTimeout   time.Duration
	rcHost           string
	rcPort           int
}

func defaultSettings() settings {
	return settings{
		discoveryTimeout: remote.DefaultDiscoveryTimeout,
		commandTimeout:   command.DefaultSendTimeout,
		rcHost:           rc.DefaultHost,
		rcPort:           rc.DefaultPort,
	}
}

// loadSettings overlays the keys defined in the file onto base. LoadFile
// already validated the structured values, so the re-parses cannot fail.
func loadSettings(path string, base settings) (settings, error) {
	s := base

	raw, meta, err := config.LoadFile(path)
	if err != nil {
		return settings{}, err
	}

	if meta.IsDefined("project") {
		s.base.ProjectName = strings.TrimSpace(raw.Project)
	}
	if meta.IsDefined("multicast_group") {
		group, err := config.ParseEndpoint(strings.TrimSpace(raw.MulticastGroup))
		if err != nil {
			return settings{}, err
		}
		s.base.MulticastGroup = group
	}
	if meta.IsDefined("multicast_bind") {
		s.base.MulticastBindAddress = strings.TrimSpace(raw.MulticastBind)
	}
	if meta.IsDefined("multicast_ttl") {
		s.base.MulticastTTL = raw.MulticastTTL
	}
	if meta.IsDefined("buffer_size") {
		s.base.BufferSize = raw.BufferSize
	}
	if meta.IsDefined("discovery_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DiscoveryTimeout))
		if err != nil {
			return settings{}, err
		}
		s.discoveryTimeout = d
	}
	if meta.IsDefined("command_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.CommandTimeout))
		if err != nil {
			return settings{}, err
		}
		s.commandTimeout = d
	}
	if meta.IsDefined("remote_control_host") {
		s.rcHost = strings.TrimSpace(raw.RemoteHost)
	}
	if meta.IsDefined("remote_control_port") {
		s.rcPort = raw.RemotePort
	}

	return s, nil
}
