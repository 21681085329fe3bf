package protocol

import "errors"

var (
	ErrIncomplete         = errors.New("protocol: incomplete envelope")
	ErrMalformed          = errors.New("protocol: malformed envelope")
	ErrInvalidMagic       = errors.New("protocol: invalid magic")
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")
	ErrUnknownType        = errors.New("protocol: unknown message type")
	ErrMissingSource      = errors.New("protocol: missing source")
	ErrMissingDest        = errors.New("protocol: missing dest")
	ErrNoReply            = errors.New("protocol: no reply before timeout")
)
