package protocol

// MessageType tags an envelope. The type set is closed; Decode rejects
// anything outside it.
type MessageType string

const (
	TypePing            MessageType = "ping"
	TypeOpenConnection  MessageType = "open_connection"
	TypeCloseConnection MessageType = "close_connection"
	TypeCommand         MessageType = "command"
	// TypeCommandResult is inbound only: the editor's reply on the command
	// socket. Never sent by this side.
	TypeCommandResult MessageType = "command_result"
)

// Protocol constants shared by both ends. The editor drops any envelope
// whose magic or version does not match.
const (
	Magic   = "ue_py"
	Version = 1
)

// Envelope is the common JSON wrapper for every message kind.
type Envelope struct {
	Type    MessageType    `json:"type"`
	Version int            `json:"version"`
	Magic   string         `json:"magic"`
	Source  string         `json:"source"`
	Dest    string         `json:"dest,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// NewPing builds the broadcast discovery envelope. Ping carries no dest and
// no data; peers answer with the same type and their own source id.
func NewPing(source string) *Envelope {
	return &Envelope{
		Type:    TypePing,
		Version: Version,
		Magic:   Magic,
		Source:  source,
	}
}

// NewOpenConnection advertises the local command address to a peer.
func NewOpenConnection(source, dest, commandIP string, commandPort int) *Envelope {
	return &Envelope{
		Type:    TypeOpenConnection,
		Version: Version,
		Magic:   Magic,
		Source:  source,
		Dest:    dest,
		Data: map[string]any{
			"command_ip":   commandIP,
			"command_port": commandPort,
		},
	}
}

// NewCloseConnection signals teardown of the command channel.
func NewCloseConnection(source, dest string) *Envelope {
	return &Envelope{
		Type:    TypeCloseConnection,
		Version: Version,
		Magic:   Magic,
		Source:  source,
		Dest:    dest,
	}
}

// NewCommand wraps a command payload for the TCP command socket.
func NewCommand(source, dest string, data map[string]any) *Envelope {
	return &Envelope{
		Type:    TypeCommand,
		Version: Version,
		Magic:   Magic,
		Source:  source,
		Dest:    dest,
		Data:    data,
	}
}

func validType(t MessageType) bool {
	switch t {
	case TypePing, TypeOpenConnection, TypeCloseConnection, TypeCommand, TypeCommandResult:
		return true
	}
	return false
}

// destRequired reports whether the type demands an addressed envelope.
// Ping is the only broadcast type.
func destRequired(t MessageType) bool {
	return t != TypePing
}
