package rpc

import (
	"bytes"
	"fmt"
)

// DefaultSeparator sits between the service id and the payload.
const DefaultSeparator = ','

// Framing describes the fixed message prefix.
type Framing struct {
	IDLen     int
	Separator byte
	// AnySeparator skips the byte after the id without checking it.
	AnySeparator bool
}

// DefaultFraming returns the two-byte id, comma separated framing.
func DefaultFraming() Framing {
	return Framing{IDLen: DefaultIDLen, Separator: DefaultSeparator}
}

// Decode splits raw into target id and payload and stores both in cmd.
// The message ends at the first NUL byte, or at len(raw) when none is
// present. All earlier per-message state in cmd is cleared first; cmd is
// left Received on success and Invalid on failure.
func Decode(raw []byte, f Framing, cmd *Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", ErrNullPointer)
	}
	cmd.reset()
	if raw == nil {
		return fmt.Errorf("%w: nil message", ErrNullPointer)
	}
	if f.IDLen <= 0 {
		return fmt.Errorf("%w: id length %d", ErrInitialization, f.IDLen)
	}
	if end := bytes.IndexByte(raw, 0); end >= 0 {
		raw = raw[:end]
	}
	if len(raw) < f.IDLen+1 {
		return fmt.Errorf("%w: %d bytes, need id of %d and separator", ErrMalformedMessage, len(raw), f.IDLen)
	}
	if sep := raw[f.IDLen]; !f.AnySeparator && sep != f.Separator {
		return fmt.Errorf("%w: separator %q, want %q", ErrMalformedMessage, sep, f.Separator)
	}

	cmd.target = raw[:f.IDLen:f.IDLen]
	cmd.payload = raw[f.IDLen+1:]
	cmd.state = StateReceived
	return nil
}
