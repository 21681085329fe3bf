package payload

import (
	"errors"
	"strings"
	"testing"
)

func TestRunFile(t *testing.T) {
	got, err := RunFile("/tmp/build.py", "--level", "Main")
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if !strings.Contains(got, "sys.argv = ['/tmp/build.py', '--level', 'Main']") {
		t.Fatalf("argv line missing:\n%s", got)
	}
	if !strings.Contains(got, "exec(compile(_f.read(), '/tmp/build.py', 'exec')") {
		t.Fatalf("exec line missing:\n%s", got)
	}
}

func TestRunFileNoArgs(t *testing.T) {
	got, err := RunFile("/tmp/build.py")
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if !strings.Contains(got, "sys.argv = ['/tmp/build.py']") {
		t.Fatalf("argv line missing:\n%s", got)
	}
}

func TestRunFileEmptyPath(t *testing.T) {
	if _, err := RunFile(""); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("RunFile(\"\") = %v, want ErrEmptyPath", err)
	}
}

func TestRunFileEscapesWindowsPath(t *testing.T) {
	got, err := RunFile(`C:\Game\it's.py`)
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if !strings.Contains(got, `'C:\\Game\\it\'s.py'`) {
		t.Fatalf("path not escaped:\n%s", got)
	}
}

func TestInitOutputPipe(t *testing.T) {
	got, err := InitOutputPipe("UPYRE_JSON_PIPE_FILE", "/tmp/pipe.json", "/opt/upyre")
	if err != nil {
		t.Fatalf("InitOutputPipe: %v", err)
	}
	for _, want := range []string{
		"os.environ['UPYRE_JSON_PIPE_FILE'] = '/tmp/pipe.json'",
		"if '/opt/upyre' not in sys.path:",
		"sys.path.append('/opt/upyre')",
		"update_temp_file_path('/tmp/pipe.json')",
		"flush()",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
}

func TestInitOutputPipeNoModuleDir(t *testing.T) {
	got, err := InitOutputPipe("UPYRE_JSON_PIPE_FILE", "/tmp/pipe.json", "")
	if err != nil {
		t.Fatalf("InitOutputPipe: %v", err)
	}
	if strings.Contains(got, "sys.path.append") {
		t.Fatalf("sys.path hook rendered without module dir:\n%s", got)
	}
}

func TestInitOutputPipeEmptyFile(t *testing.T) {
	if _, err := InitOutputPipe("UPYRE_JSON_PIPE_FILE", "", ""); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("InitOutputPipe = %v, want ErrEmptyPath", err)
	}
}
