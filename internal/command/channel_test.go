package command

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/unrealctl/internal/config"
	"github.com/danmuck/unrealctl/internal/protocol"
	"github.com/danmuck/unrealctl/internal/testutil/testlog"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.New(config.Config{LocalID: "local-cmd-id"})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

// fakeEditor dials the channel's listener and answers one command.
type fakeEditor struct {
	t    *testing.T
	conn net.Conn
}

// Helpers run on the fake editor goroutine, so they report with Errorf and
// bail instead of FailNow.
func dialEditor(t *testing.T, cfg config.Config) *fakeEditor {
	conn, err := net.DialTimeout("tcp", cfg.CommandAddress.String(), 2*time.Second)
	if err != nil {
		t.Errorf("dial: %v", err)
		return nil
	}
	t.Cleanup(func() { conn.Close() })
	return &fakeEditor{t: t, conn: conn}
}

func (e *fakeEditor) expectCommand() *protocol.Envelope {
	buf := make([]byte, 64*1024)
	e.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := e.conn.Read(buf)
	if err != nil {
		e.t.Errorf("editor read: %v", err)
		return nil
	}
	env, err := protocol.Decode(buf[:n])
	if err != nil {
		e.t.Errorf("editor decode: %v", err)
		return nil
	}
	if env.Type != protocol.TypeCommand {
		e.t.Errorf("expected command, got %q", env.Type)
		return nil
	}
	return env
}

func (e *fakeEditor) replyResult(dest string, data map[string]any, chunks int) {
	raw, err := protocol.Encode(&protocol.Envelope{
		Type:    protocol.TypeCommandResult,
		Version: protocol.Version,
		Magic:   protocol.Magic,
		Source:  "node-1",
		Dest:    dest,
		Data:    data,
	})
	if err != nil {
		e.t.Errorf("editor encode: %v", err)
		return
	}
	if chunks < 2 {
		if _, err := e.conn.Write(raw); err != nil {
			e.t.Errorf("editor write: %v", err)
		}
		return
	}
	cut := len(raw) / chunks
	if _, err := e.conn.Write(raw[:cut]); err != nil {
		e.t.Errorf("editor write: %v", err)
		return
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := e.conn.Write(raw[cut:]); err != nil {
		e.t.Errorf("editor write: %v", err)
	}
}

func openChannel(t *testing.T, cfg config.Config) *Channel {
	t.Helper()
	ch, err := Listen(cfg, "node-1")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ch.Close() })
	return ch
}

func TestSendEvaluateRoundTrip(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig(t)
	ch := openChannel(t, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		editor := dialEditor(t, cfg)
		if editor == nil {
			return
		}
		env := editor.expectCommand()
		if env == nil {
			return
		}
		if env.Data["command"] != "1+2" {
			t.Errorf("command payload mismatch: %v", env.Data)
		}
		if env.Data["exec_mode"] != string(EvaluateStatement) {
			t.Errorf("exec_mode mismatch: %v", env.Data["exec_mode"])
		}
		editor.replyResult(env.Source, map[string]any{
			"success": true,
			"result":  "3",
			"output":  []any{},
		}, 1)
	}()

	if err := ch.Accept(AcceptTimeout); err != nil {
		t.Fatalf("accept: %v", err)
	}
	res, err := ch.Send(Request{
		Command:    "1+2",
		Unattended: true,
		ExecMode:   EvaluateStatement,
	}, 2*time.Second, false)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.Success || res.Result != "3" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.String() != "" {
		t.Fatalf("empty output must render empty, got %q", res.String())
	}
	<-done
}

func TestSendReceivesFragmentedResult(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig(t)
	ch := openChannel(t, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		editor := dialEditor(t, cfg)
		if editor == nil {
			return
		}
		env := editor.expectCommand()
		if env == nil {
			return
		}
		editor.replyResult(env.Source, map[string]any{
			"success": true,
			"result":  "None",
			"output": []any{
				map[string]any{"type": "Log", "output": "hello"},
				map[string]any{"type": "Warning", "output": "careful"},
			},
		}, 3)
	}()

	if err := ch.Accept(AcceptTimeout); err != nil {
		t.Fatalf("accept: %v", err)
	}
	res, err := ch.Send(Request{
		Command:  "print('hello')",
		ExecMode: ExecuteStatement,
	}, 2*time.Second, false)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(res.Output) != 2 {
		t.Fatalf("output entries lost: %+v", res.Output)
	}
	if res.String() != "Log: hello\nWarning: careful" {
		t.Fatalf("rendering mismatch: %q", res.String())
	}
	<-done
}

func TestSendTimeoutYieldsFailedResult(t *testing.T) {
	cfg := testConfig(t)
	ch := openChannel(t, cfg)

	go dialEditor(t, cfg) // connects, never replies

	if err := ch.Accept(AcceptTimeout); err != nil {
		t.Fatalf("accept: %v", err)
	}
	start := time.Now()
	res, err := ch.Send(Request{
		Command:  "slow()",
		ExecMode: EvaluateStatement,
	}, 200*time.Millisecond, false)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Success {
		t.Fatalf("timeout must not succeed: %+v", res)
	}
	if res.Result != "None" {
		t.Fatalf("timeout result: %q", res.Result)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("send blocked past its window: %v", elapsed)
	}
}

func TestSendRaiseOnFailure(t *testing.T) {
	cfg := testConfig(t)
	ch := openChannel(t, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		editor := dialEditor(t, cfg)
		if editor == nil {
			return
		}
		env := editor.expectCommand()
		if env == nil {
			return
		}
		editor.replyResult(env.Source, map[string]any{
			"success": false,
			"result":  "NameError: name 'nope' is not defined",
		}, 1)
	}()

	if err := ch.Accept(AcceptTimeout); err != nil {
		t.Fatalf("accept: %v", err)
	}
	res, err := ch.Send(Request{
		Command:  "nope",
		ExecMode: EvaluateStatement,
	}, 2*time.Second, true)
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
	if res.String() != "NameError: name 'nope' is not defined" {
		t.Fatalf("failed result must render the remote message: %q", res.String())
	}
	<-done
}

func TestAcceptTimeout(t *testing.T) {
	cfg := testConfig(t)
	ch := openChannel(t, cfg)

	err := ch.Accept(100 * time.Millisecond)
	if !errors.Is(err, ErrAcceptTimeout) {
		t.Fatalf("expected ErrAcceptTimeout, got %v", err)
	}
}

func TestSendWithoutAccept(t *testing.T) {
	cfg := testConfig(t)
	ch := openChannel(t, cfg)

	_, err := ch.Send(Request{Command: "1", ExecMode: EvaluateStatement}, time.Second, false)
	if !errors.Is(err, ErrNotAccepted) {
		t.Fatalf("expected ErrNotAccepted, got %v", err)
	}
}

func TestSendInvalidRequest(t *testing.T) {
	cfg := testConfig(t)
	ch := openChannel(t, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		dialEditor(t, cfg)
	}()
	if err := ch.Accept(AcceptTimeout); err != nil {
		t.Fatalf("accept: %v", err)
	}
	<-done

	if _, err := ch.Send(Request{Command: "", ExecMode: EvaluateStatement}, time.Second, false); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := ch.Send(Request{Command: "1", ExecMode: "RunFast"}, time.Second, false); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	cfg := testConfig(t)
	ch := openChannel(t, cfg)

	if err := ch.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("double close: %v", err)
	}
	if _, err := ch.Send(Request{Command: "1", ExecMode: EvaluateStatement}, time.Second, false); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
}
