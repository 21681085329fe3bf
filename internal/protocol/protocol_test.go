package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	env := NewOpenConnection("abc-123", "def-456", "127.0.0.1", 9000)

	data, err := Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != TypeOpenConnection {
		t.Fatalf("type mismatch: %q", decoded.Type)
	}
	if decoded.Source != "abc-123" || decoded.Dest != "def-456" {
		t.Fatalf("addressing mismatch: %q -> %q", decoded.Source, decoded.Dest)
	}
	if decoded.Data["command_ip"] != "127.0.0.1" {
		t.Fatalf("command_ip mismatch: %v", decoded.Data["command_ip"])
	}
	// JSON numbers land as float64 in an untyped map.
	if port, ok := decoded.Data["command_port"].(float64); !ok || port != 9000 {
		t.Fatalf("command_port mismatch: %v", decoded.Data["command_port"])
	}
}

func TestEncodePingHasNoDest(t *testing.T) {
	data, err := Encode(NewPing("abc-123"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["dest"]; ok {
		t.Fatalf("ping must omit dest, got %v", raw["dest"])
	}
	if raw["magic"] != Magic {
		t.Fatalf("magic mismatch: %v", raw["magic"])
	}
	if raw["version"] != float64(Version) {
		t.Fatalf("version mismatch: %v", raw["version"])
	}
}

func TestDecodeIncomplete(t *testing.T) {
	whole, err := Encode(NewCloseConnection("abc", "def"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for cut := 1; cut < len(whole); cut++ {
		_, err := Decode(whole[:cut])
		if !errors.Is(err, ErrIncomplete) {
			t.Fatalf("cut=%d: expected ErrIncomplete, got %v", cut, err)
		}
	}
}

func TestDecodeFailures(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{
			name: "garbage",
			raw:  `}{not json`,
			want: ErrMalformed,
		},
		{
			name: "unknown type",
			raw:  `{"type":"shutdown","version":1,"magic":"ue_py","source":"a"}`,
			want: ErrUnknownType,
		},
		{
			name: "bad magic",
			raw:  `{"type":"ping","version":1,"magic":"nope","source":"a"}`,
			want: ErrInvalidMagic,
		},
		{
			name: "bad version",
			raw:  `{"type":"ping","version":7,"magic":"ue_py","source":"a"}`,
			want: ErrUnsupportedVersion,
		},
		{
			name: "missing source",
			raw:  `{"type":"ping","version":1,"magic":"ue_py"}`,
			want: ErrMissingSource,
		},
		{
			name: "command without dest",
			raw:  `{"type":"command","version":1,"magic":"ue_py","source":"a"}`,
			want: ErrMissingDest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestDecodeInboundPongShape(t *testing.T) {
	raw := `{"type":"ping","version":1,"magic":"ue_py","source":"node-1",` +
		`"data":{"project_name":"Foo","engine_version":"5.3","command_ip":"127.0.0.1","command_port":9000}}`
	env, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data["project_name"] != "Foo" {
		t.Fatalf("project_name mismatch: %v", env.Data["project_name"])
	}
}
