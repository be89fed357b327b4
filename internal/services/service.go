package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/microrpc/internal/rpc"
)

var (
	ErrHandlerExists  = errors.New("services: handler already exists")
	ErrHandlerNil     = errors.New("services: handler factory is nil")
	ErrHandlerUnknown = errors.New("services: unknown handler")
)

// Handler statuses returned by the built-ins. Positive values never clash
// with framework codes.
const (
	StatusBadInput rpc.StatusCode = 1
	StatusNotFound rpc.StatusCode = 2
)

// Factory builds a fresh handler. Each manifest service gets its own
// instance so per-handler scratch state is never shared.
type Factory func() rpc.Handler

// Catalog stores handler factories by name.
type Catalog struct {
	mu    sync.RWMutex
	items map[string]Factory
}

// NewCatalog initializes an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[string]Factory)}
}

// Builtins returns a catalog holding ack, echo, sum and kv.
func Builtins() *Catalog {
	c := NewCatalog()
	_ = c.Register(AckName, func() rpc.Handler { return NewAck() })
	_ = c.Register(EchoName, func() rpc.Handler { return Echo{} })
	_ = c.Register(SumName, func() rpc.Handler { return NewSum() })
	_ = c.Register(KVName, func() rpc.Handler { return NewKV() })
	return c
}

// Register adds a factory under name.
func (c *Catalog) Register(name string, f Factory) error {
	name = strings.TrimSpace(name)
	if f == nil {
		return ErrHandlerNil
	}
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrHandlerUnknown)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[name]; ok {
		return fmt.Errorf("%w: %q", ErrHandlerExists, name)
	}
	c.items[name] = f
	return nil
}

// Get returns the factory registered under name.
func (c *Catalog) Get(name string) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.items[name]
	return f, ok
}

// New builds a handler from the named factory.
func (c *Catalog) New(name string) (rpc.Handler, error) {
	f, ok := c.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrHandlerUnknown, name)
	}
	return f(), nil
}

// Names returns the registered handler names in order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.items))
	for name := range c.items {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
