// Package payload renders the Python snippets the client injects into the
// editor: running a script file with arguments, and bootstrapping the JSON
// output pipe module on the remote side.
package payload

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

var ErrEmptyPath = errors.New("payload: empty file path")

var funcs = template.FuncMap{
	"py": pyString,
}

// Sent with the ExecuteFile mode, which accepts multi-statement scripts.
var runFileTmpl = template.Must(template.New("run_file").Funcs(funcs).Parse(
	`import sys
sys.argv = [{{py .FilePath}}{{range .Args}}, {{py .}}{{end}}]
with open({{py .FilePath}}) as _f:
    exec(compile(_f.read(), {{py .FilePath}}, 'exec'), {'__name__': '__main__', '__file__': {{py .FilePath}}})
`))

var initPipeTmpl = template.Must(template.New("init_pipe").Funcs(funcs).Parse(
	`import os, sys
os.environ[{{py .EnvVar}}] = {{py .PipeFile}}
{{- if .ModuleDir}}
if {{py .ModuleDir}} not in sys.path:
    sys.path.append({{py .ModuleDir}})
{{- end}}
import upyre_json_pipe
upyre_json_pipe.json_pipe.update_temp_file_path({{py .PipeFile}})
upyre_json_pipe.json_pipe.flush()
`))

// RunFile renders a script that executes path inside the editor with argv
// set to path followed by args, mirroring a command line invocation.
func RunFile(path string, args ...string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	var buf strings.Builder
	err := runFileTmpl.Execute(&buf, struct {
		FilePath string
		Args     []string
	}{FilePath: path, Args: args})
	if err != nil {
		return "", fmt.Errorf("payload: render run file: %w", err)
	}
	return buf.String(), nil
}

// InitOutputPipe renders the snippet that points the remote pipe module at
// pipeFile and clears any stale entries. moduleDir, when non-empty, is
// appended to the remote sys.path so the module can be imported from a
// client-controlled location.
func InitOutputPipe(envVar, pipeFile, moduleDir string) (string, error) {
	if pipeFile == "" {
		return "", ErrEmptyPath
	}
	var buf strings.Builder
	err := initPipeTmpl.Execute(&buf, struct {
		EnvVar    string
		PipeFile  string
		ModuleDir string
	}{EnvVar: envVar, PipeFile: pipeFile, ModuleDir: moduleDir})
	if err != nil {
		return "", fmt.Errorf("payload: render pipe init: %w", err)
	}
	return buf.String(), nil
}

// pyString quotes s as a Python single-quoted string literal. Backslashes
// are doubled so Windows paths survive the trip.
func pyString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
