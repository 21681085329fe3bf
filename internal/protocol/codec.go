package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Encode serializes env to canonical JSON after validating it against the
// closed type set.
func Encode(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, ErrMalformed
	}
	if err := validate(env); err != nil {
		return nil, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return data, nil
}

// Decode parses a received byte sequence into an envelope. A truncated JSON
// document fails with ErrIncomplete so callers can keep accumulating bytes
// and retry; every other failure is terminal for the buffer.
func Decode(data []byte) (*Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var env Envelope
	if err := dec.Decode(&env); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrIncomplete
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

func validate(env *Envelope) error {
	if !validType(env.Type) {
		return fmt.Errorf("%w: %q", ErrUnknownType, string(env.Type))
	}
	if env.Magic != Magic {
		return fmt.Errorf("%w: %q", ErrInvalidMagic, env.Magic)
	}
	if env.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	if env.Source == "" {
		return ErrMissingSource
	}
	if destRequired(env.Type) && env.Dest == "" {
		return fmt.Errorf("%w: type %q", ErrMissingDest, string(env.Type))
	}
	return nil
}
