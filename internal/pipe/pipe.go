// Package pipe implements the file-backed JSON side channel. Remote code
// running inside the editor writes keyed entries to a shared JSON file and
// the caller reads them back after the command returns, sidestepping the
// string-only result field of the command protocol.
package pipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnvFile overrides the pipe file location on both ends of the channel.
const EnvFile = "UPYRE_JSON_PIPE_FILE"

const defaultFileName = "uepyrc_output_pipe.json"

var ErrNoEntry = errors.New("pipe: no such entry")

// Pipe is a JSON object persisted to a single file. Every Write rewrites
// the whole file; entries written in a previous session survive until the
// pipe is flushed.
type Pipe struct {
	path string
	data map[string]any
}

// DefaultPath resolves the pipe file: the EnvFile override when set,
// otherwise a fixed name under the system temp directory.
func DefaultPath() string {
	if p := os.Getenv(EnvFile); p != "" {
		return p
	}
	return filepath.Join(os.TempDir(), defaultFileName)
}

// Open loads the pipe at path, creating the parent directory if needed.
// An unreadable or malformed file starts the pipe empty rather than
// failing; the file may simply not exist yet.
func Open(path string) (*Pipe, error) {
	if path == "" {
		path = DefaultPath()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("pipe: create directory: %w", err)
		}
	}
	p := &Pipe{path: path, data: map[string]any{}}
	if raw, err := os.ReadFile(path); err == nil {
		var data map[string]any
		if json.Unmarshal(raw, &data) == nil && data != nil {
			p.data = data
		}
	}
	return p, nil
}

// Path reports the backing file.
func (p *Pipe) Path() string {
	return p.path
}

// Write stores an entry and persists the whole object. Values that cannot
// be represented as JSON fall back to their string form, matching what
// the in-editor writer does.
func (p *Pipe) Write(name string, value any) error {
	p.data[name] = value
	if err := p.persist(); err != nil {
		p.data[name] = fmt.Sprint(value)
		return p.persist()
	}
	return nil
}

// Read returns the entry written under name, reloading the file first so
// entries written by the remote side since Open are visible.
func (p *Pipe) Read(name string) (any, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoEntry, name)
		}
		return nil, fmt.Errorf("pipe: read: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("pipe: decode: %w", err)
	}
	p.data = data
	v, ok := data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoEntry, name)
	}
	return v, nil
}

// Flush drops every entry and truncates the file to an empty object.
func (p *Pipe) Flush() error {
	p.data = map[string]any{}
	return p.persist()
}

func (p *Pipe) persist() error {
	raw, err := json.Marshal(p.data)
	if err != nil {
		return fmt.Errorf("pipe: encode: %w", err)
	}
	if err := os.WriteFile(p.path, raw, 0o644); err != nil {
		return fmt.Errorf("pipe: write: %w", err)
	}
	return nil
}
