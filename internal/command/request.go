// Package command owns the point-to-point TCP channel that carries one
// command request and its one framed result per round trip.
package command

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRequest = errors.New("command: invalid request")

// ExecMode selects the remote execution semantics for a command payload.
type ExecMode string

const (
	// ExecuteFile runs the payload as a script: multiple statements, or a
	// file path with optional arguments.
	ExecuteFile ExecMode = "ExecuteFile"
	// ExecuteStatement runs a single statement and prints its result.
	ExecuteStatement ExecMode = "ExecuteStatement"
	// EvaluateStatement evaluates a single expression and returns its
	// result.
	EvaluateStatement ExecMode = "EvaluateStatement"
)

func validExecMode(m ExecMode) bool {
	switch m {
	case ExecuteFile, ExecuteStatement, EvaluateStatement:
		return true
	}
	return false
}

// Request is one command to run on the peer.
type Request struct {
	Command    string
	Unattended bool
	ExecMode   ExecMode
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Command) == "" {
		return fmt.Errorf("%w: missing command", ErrInvalidRequest)
	}
	if !validExecMode(r.ExecMode) {
		return fmt.Errorf("%w: exec mode %q", ErrInvalidRequest, string(r.ExecMode))
	}
	return nil
}

func (r Request) data() map[string]any {
	return map[string]any{
		"command":    r.Command,
		"unattended": r.Unattended,
		"exec_mode":  string(r.ExecMode),
	}
}
