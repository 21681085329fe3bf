package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

var (
	ErrInvalidUProjectPath     = errors.New("config: invalid uproject path")
	ErrRemoteExecutionDisabled = errors.New("config: python remote execution disabled in project settings")
)

const (
	engineConfigFile = "DefaultEngine.ini"
	pluginSection    = "/Script/PythonScriptPlugin.PythonScriptPluginSettings"

	keyRemoteExecution   = "bRemoteExecution"
	keyMulticastEndpoint = "RemoteExecutionMulticastGroupEndpoint"
	keyMulticastBindAddr = "RemoteExecutionMulticastBindAddress"
	keyMulticastTTL      = "RemoteExecutionMulticastTtl"
	keyReceiveBufferSize = "RemoteExecutionReceiveBufferSizeBytes"
)

// FromUProject builds a Config from the python plugin settings of an Unreal
// project. The project name is taken from the uproject filename and becomes
// the discovery target filter. Remote execution must be enabled in the
// project or no connection is possible.
func FromUProject(uprojectPath string) (Config, error) {
	if !strings.EqualFold(filepath.Ext(uprojectPath), ".uproject") {
		return Config{}, fmt.Errorf("%w: %q", ErrInvalidUProjectPath, uprojectPath)
	}
	info, err := os.Stat(uprojectPath)
	if err != nil || info.IsDir() {
		return Config{}, fmt.Errorf("%w: %q", ErrInvalidUProjectPath, uprojectPath)
	}

	engineConfig := filepath.Join(filepath.Dir(uprojectPath), "Config", engineConfigFile)
	settings, err := loadPluginSettings(engineConfig)
	if err != nil {
		return Config{}, err
	}

	base := Config{
		ProjectName: strings.TrimSuffix(filepath.Base(uprojectPath), filepath.Ext(uprojectPath)),
	}

	if !parseIniBool(settings[keyRemoteExecution]) {
		return Config{}, ErrRemoteExecutionDisabled
	}
	if raw, ok := settings[keyMulticastEndpoint]; ok && raw != "" {
		group, err := ParseEndpoint(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", keyMulticastEndpoint, err)
		}
		base.MulticastGroup = group
	}
	if raw, ok := settings[keyMulticastBindAddr]; ok && raw != "" {
		base.MulticastBindAddress = raw
	}
	if raw, ok := settings[keyMulticastTTL]; ok && raw != "" {
		ttl, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %q", keyMulticastTTL, raw)
		}
		base.MulticastTTL = ttl
	}
	if raw, ok := settings[keyReceiveBufferSize]; ok && raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %q", keyReceiveBufferSize, raw)
		}
		base.BufferSize = size
	}

	return New(base)
}

func loadPluginSettings(path string) (map[string]string, error) {
	// Engine ini files repeat keys (+Key=...) and sections; shadows keep
	// the parser from rejecting them.
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowShadows:             true,
		IgnoreInlineComment:      true,
		SkipUnrecognizableLines:  true,
		SpaceBeforeInlineComment: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUProjectPath, err)
	}

	section := file.Section(pluginSection)
	out := make(map[string]string, len(section.Keys()))
	for _, key := range section.Keys() {
		out[key.Name()] = strings.TrimSpace(key.Value())
	}
	return out, nil
}

func parseIniBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
