package command

import (
	"strings"

	"github.com/danmuck/unrealctl/internal/protocol"
)

// OutputEntry is one line of captured remote output.
type OutputEntry struct {
	Kind string
	Text string
}

// Result is the parsed payload of one executed command. It is built fresh
// per command and never mutated afterwards.
type Result struct {
	Success bool
	Result  string
	Output  []OutputEntry
}

// parseResult extracts a Result from a reply envelope's data. Absent fields
// fall back: success false, result "None", empty output.
func parseResult(env *protocol.Envelope) Result {
	res := Result{Result: "None"}
	if env == nil || env.Data == nil {
		return res
	}
	if success, ok := env.Data["success"].(bool); ok {
		res.Success = success
	}
	if text, ok := env.Data["result"].(string); ok {
		res.Result = text
	}
	if raw, ok := env.Data["output"].([]any); ok {
		for _, item := range raw {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			kind, _ := entry["type"].(string)
			text, _ := entry["output"].(string)
			res.Output = append(res.Output, OutputEntry{Kind: kind, Text: text})
		}
	}
	return res
}

// String renders the captured output as "Kind: text" lines when the command
// succeeded, otherwise the remote result (typically the traceback).
func (r Result) String() string {
	if !r.Success {
		return r.Result
	}
	lines := make([]string, 0, len(r.Output))
	for _, entry := range r.Output {
		lines = append(lines, entry.Kind+": "+entry.Text)
	}
	return strings.Join(lines, "\n")
}
