package rpc

import "fmt"

// MaxArgs bounds the number of argument slots any schema may declare.
const MaxArgs = 16

// ArgSpec declares one argument slot.
type ArgSpec struct {
	ID      string
	MaxSize int
}

// Schema is the per-service message grammar. It is immutable once built
// and shared by every command addressed to its service.
type Schema struct {
	delimiter        byte
	maxArgs          int
	maxMessageLength int
	args             []ArgSpec
}

// NewSchema builds a schema. maxArgs of 0 means len(args).
func NewSchema(delimiter byte, maxMessageLength, maxArgs int, args ...ArgSpec) (*Schema, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: schema declares no arguments", ErrInitialization)
	}
	if len(args) > MaxArgs {
		return nil, fmt.Errorf("%w: schema declares %d arguments, limit %d", ErrInitialization, len(args), MaxArgs)
	}
	if maxArgs == 0 {
		maxArgs = len(args)
	}
	if maxArgs < 0 || maxArgs > len(args) {
		return nil, fmt.Errorf("%w: max args %d outside 1..%d", ErrInitialization, maxArgs, len(args))
	}
	if maxMessageLength < 0 {
		return nil, fmt.Errorf("%w: negative max message length", ErrInitialization)
	}
	for i, a := range args {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: arg[%d] missing id", ErrInitialization, i)
		}
		if a.MaxSize < 0 {
			return nil, fmt.Errorf("%w: arg[%d]=%q negative max size", ErrInitialization, i, a.ID)
		}
	}
	specs := make([]ArgSpec, len(args))
	copy(specs, args)
	return &Schema{
		delimiter:        delimiter,
		maxArgs:          maxArgs,
		maxMessageLength: maxMessageLength,
		args:             specs,
	}, nil
}

// MustSchema is NewSchema for static tables; it panics on error.
func MustSchema(delimiter byte, maxMessageLength, maxArgs int, args ...ArgSpec) *Schema {
	s, err := NewSchema(delimiter, maxMessageLength, maxArgs, args...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Delimiter() byte       { return s.delimiter }
func (s *Schema) MaxArgs() int          { return s.maxArgs }
func (s *Schema) MaxMessageLength() int { return s.maxMessageLength }

// Args returns the configured slots, the first MaxArgs of the declared specs.
func (s *Schema) Args() []ArgSpec {
	return s.args[:s.maxArgs:s.maxArgs]
}

// index returns the first configured slot whose id matches.
func (s *Schema) index(id string) int {
	for i := 0; i < s.maxArgs; i++ {
		if s.args[i].ID == id {
			return i
		}
	}
	return -1
}
