package rpc

import (
	"github.com/rs/zerolog"
)

// Option configures a Manager.
type Option func(*options)

type options struct {
	capacity int
	framing  Framing
	legacy   bool
	logger   zerolog.Logger
}

// WithCapacity sets the number of registry slots.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithIDLen sets the fixed width of service ids.
func WithIDLen(n int) Option {
	return func(o *options) { o.framing.IDLen = n }
}

// WithSeparator sets the byte required between service id and payload.
func WithSeparator(c byte) Option {
	return func(o *options) { o.framing.Separator = c }
}

// WithAnySeparator accepts any byte between service id and payload.
func WithAnySeparator() Option {
	return func(o *options) { o.framing.AnySeparator = true }
}

// WithLegacySlots selects single-occupant slots without key comparison.
func WithLegacySlots() Option {
	return func(o *options) { o.legacy = true }
}

// WithLogger sets the debug trace logger. The default discards.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Manager owns a registry and the single live command.
type Manager struct {
	registry *Registry
	framing  Framing
	cmd      Command
	handler  Handler
	log      zerolog.Logger
}

// NewManager initializes an empty manager.
func NewManager(opts ...Option) (*Manager, error) {
	o := options{
		capacity: DefaultCapacity,
		framing:  DefaultFraming(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	reg, err := NewRegistry(o.capacity, o.framing.IDLen, o.legacy)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		registry: reg,
		framing:  o.framing,
		log:      o.logger,
	}
	m.cmd.reset()
	return m, nil
}

// Register adds a service. All registration must happen before the first
// dispatch.
func (m *Manager) Register(name string, schema *Schema, h Handler) error {
	if err := m.registry.Register(name, schema, h); err != nil {
		m.log.Debug().Err(err).Str("service", name).Msg("rpc.Manager.Register rejected")
		return err
	}
	m.log.Debug().
		Str("service", name).
		Int("slot", m.registry.Slot(name)).
		Int("count", m.registry.Len()).
		Msg("rpc.Manager.Register ok")
	return nil
}

// Dispatch decodes raw, validates it and invokes the resolved handler.
// On any decode or validation failure the handler is not called and resp
// is not written. The handler's status is returned unchanged. The
// command keeps the outcome until Reset or the next Dispatch.
func (m *Manager) Dispatch(raw []byte, resp *Response) StatusCode {
	m.registry.Seal()
	m.handler = nil

	if err := Decode(raw, m.framing, &m.cmd); err != nil {
		m.log.Debug().Err(err).Msg("rpc.Manager.Dispatch decode failed")
		return StatusOf(err)
	}
	if err := Validate(&m.cmd, m.registry); err != nil {
		m.log.Debug().Err(err).Bytes("service", m.cmd.target).Msg("rpc.Manager.Dispatch validate failed")
		return StatusOf(err)
	}
	m.handler = m.cmd.service.Handler

	if resp == nil {
		m.log.Debug().Bytes("service", m.cmd.target).Msg("rpc.Manager.Dispatch nil response")
		return StatusNullPointer
	}

	status := m.handler.Handle(&m.cmd, resp)
	m.log.Debug().
		Bytes("service", m.cmd.target).
		Int("args", m.cmd.argCount).
		Int("status", int(status)).
		Msg("rpc.Manager.Dispatch handled")
	return status
}

// Reset clears all per-message state: bindings, target, payload, state,
// schema and the resolved handler.
func (m *Manager) Reset() {
	m.cmd.reset()
	m.handler = nil
}

// Command exposes the live command, for drivers reporting on a dispatch.
func (m *Manager) Command() *Command { return &m.cmd }

// Registry exposes the manager's registry.
func (m *Manager) Registry() *Registry { return m.registry }

// Framing returns the message prefix rules in effect.
func (m *Manager) Framing() Framing { return m.framing }
