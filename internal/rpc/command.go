package rpc

import "fmt"

// State tags the live command.
type State int

const (
	StateInvalid State = iota
	StateReceived
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "invalid"
	case StateReceived:
		return "received"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Binding locates one argument inside the current payload.
type Binding struct {
	Offset int
	Length int
}

// Command is the mutable per-message state. Target and payload alias the
// message buffer handed to Decode.
type Command struct {
	target   []byte
	payload  []byte
	state    State
	schema   *Schema
	service  *Service
	bindings [MaxArgs]Binding
	argCount int
}

// TargetID returns the decoded service id. It copies; use TargetBytes on
// hot paths.
func (c *Command) TargetID() string { return string(c.target) }

// TargetBytes returns the decoded service id without copying.
func (c *Command) TargetBytes() []byte { return c.target }

func (c *Command) Payload() []byte { return c.payload }
func (c *Command) State() State    { return c.state }

// Schema returns the schema attached by validation, nil before.
func (c *Command) Schema() *Schema { return c.schema }

// Service returns the service resolved by validation, nil before.
func (c *Command) Service() *Service { return c.service }

// ArgCount is the number of arguments bound by the last validation.
func (c *Command) ArgCount() int { return c.argCount }

// Binding returns the span recorded for slot i.
func (c *Command) Binding(i int) Binding {
	if i < 0 || i >= MaxArgs {
		return Binding{}
	}
	return c.bindings[i]
}

// Arg returns the i-th bound argument as a view into the message.
func (c *Command) Arg(i int) []byte {
	if i < 0 || i >= c.argCount {
		return nil
	}
	return c.span(c.bindings[i])
}

// Value returns the argument bound to id as a view into the message. The
// view is valid until the message buffer is reused.
func (c *Command) Value(id string) ([]byte, error) {
	if c.schema == nil {
		return nil, fmt.Errorf("%w: no schema attached", ErrNullPointer)
	}
	i := c.schema.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrArgumentNotFound, id)
	}
	return c.span(c.bindings[i]), nil
}

// Extract copies the argument bound to id into out and returns the number
// of bytes written. Every configured slot is searched, bound or not; an
// unbound slot yields zero bytes. out must hold the whole argument.
func (c *Command) Extract(id string, out []byte) (int, error) {
	if out == nil {
		return 0, fmt.Errorf("%w: nil output buffer", ErrNullPointer)
	}
	v, err := c.Value(id)
	if err != nil {
		return 0, err
	}
	return boundedCopy(out, v)
}

func (c *Command) span(b Binding) []byte {
	if b.Length == 0 || b.Offset+b.Length > len(c.payload) {
		return c.payload[:0:0]
	}
	return c.payload[b.Offset : b.Offset+b.Length : b.Offset+b.Length]
}

func (c *Command) clearBindings() {
	c.bindings = [MaxArgs]Binding{}
	c.argCount = 0
}

func (c *Command) reset() {
	c.clearBindings()
	c.target = nil
	c.payload = nil
	c.state = StateInvalid
	c.schema = nil
	c.service = nil
}

func boundedCopy(dst, src []byte) (int, error) {
	if len(src) > len(dst) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferOverflow, len(src), len(dst))
	}
	return copy(dst, src), nil
}
