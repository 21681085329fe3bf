package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var ErrTemplateExists = errors.New("config: template target already exists")

// FileSettings is the TOML schema shared by the CLI and configgen. Values
// stay in their file form here; callers overlay the defined keys onto
// their defaults.
type FileSettings struct {
	Project          string `toml:"project"`
	MulticastGroup   string `toml:"multicast_group"`
	MulticastBind    string `toml:"multicast_bind"`
	MulticastTTL     int    `toml:"multicast_ttl"`
	BufferSize       int    `toml:"buffer_size"`
	DiscoveryTimeout string `toml:"discovery_timeout"`
	CommandTimeout   string `toml:"command_timeout"`
	RemoteHost       string `toml:"remote_control_host"`
	RemotePort       int    `toml:"remote_control_port"`
}

// LoadFile decodes a settings file and validates the keys that have a
// structured form.
func LoadFile(path string) (FileSettings, toml.MetaData, error) {
	var raw FileSettings
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return FileSettings{}, meta, fmt.Errorf("config: load %s: %w", path, err)
	}

	if meta.IsDefined("multicast_group") {
		if _, err := ParseEndpoint(strings.TrimSpace(raw.MulticastGroup)); err != nil {
			return FileSettings{}, meta, fmt.Errorf("config: multicast_group: %w", err)
		}
	}
	for key, value := range map[string]string{
		"discovery_timeout": raw.DiscoveryTimeout,
		"command_timeout":   raw.CommandTimeout,
	} {
		if !meta.IsDefined(key) {
			continue
		}
		if _, err := time.ParseDuration(strings.TrimSpace(value)); err != nil {
			return FileSettings{}, meta, fmt.Errorf("config: %s: %w", key, err)
		}
	}

	return raw, meta, nil
}

const fileTemplate = `# unrealctl configuration

# Only talk to editors running this project. Empty accepts any instance.
#project = "MyGame"

# Multicast endpoint of the editor's remote execution plugin.
#multicast_group = "239.0.0.1:6766"
#multicast_bind = "0.0.0.0"
#multicast_ttl = 0

# Receive buffer for discovery and command sockets, in bytes.
#buffer_size = 2097152

# How long to wait for an editor to answer a ping.
#discovery_timeout = "2s"

# How long to wait for a command result before reporting no result.
#command_timeout = "5s"

# Remote Control web server endpoint.
#remote_control_host = "127.0.0.1"
#remote_control_port = 30010
`

// WriteTemplate writes a commented settings template. An existing file is
// only replaced with force.
func WriteTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrTemplateExists, path)
		}
	}
	if err := os.WriteFile(path, []byte(fileTemplate), 0o644); err != nil {
		return fmt.Errorf("config: write template: %w", err)
	}
	return nil
}
