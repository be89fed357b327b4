package rpc

import (
	"fmt"
	"sort"
)

const (
	DefaultCapacity = 5
	DefaultIDLen    = 2
)

// Handler consumes a validated command and writes a text response.
type Handler interface {
	Handle(cmd *Command, resp *Response) StatusCode
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(cmd *Command, resp *Response) StatusCode

func (f HandlerFunc) Handle(cmd *Command, resp *Response) StatusCode {
	return f(cmd, resp)
}

// Service is a registered name bound to its schema and handler.
type Service struct {
	Name    string
	Schema  *Schema
	Handler Handler
}

type slot struct {
	used bool
	svc  Service
}

// Registry is a fixed-capacity hashed store of services.
//
// By default keys are stored and compared, with linear probing on
// collision. In legacy slot mode a slot holds at most one service, a
// registration whose home slot is taken is rejected whatever the name, and
// lookup returns the home slot occupant without comparing names.
type Registry struct {
	slots  []slot
	count  int
	idLen  int
	legacy bool
	sealed bool
}

// NewRegistry creates an empty registry. capacity and idLen must be positive.
func NewRegistry(capacity, idLen int, legacy bool) (*Registry, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", ErrInitialization, capacity)
	}
	if idLen <= 0 {
		return nil, fmt.Errorf("%w: id length %d", ErrInitialization, idLen)
	}
	return &Registry{
		slots:  make([]slot, capacity),
		idLen:  idLen,
		legacy: legacy,
	}, nil
}

// hashKey accumulates h = h*31 + b over the key bytes.
func hashKey[K string | []byte](key K) uint32 {
	var h uint32
	for i := 0; i < len(key); i++ {
		h = h*31 + uint32(key[i])
	}
	return h
}

// Slot returns the home slot index of name.
func (r *Registry) Slot(name string) int {
	return int(hashKey(name) % uint32(len(r.slots)))
}

// Register stores a service under name.
func (r *Registry) Register(name string, schema *Schema, h Handler) error {
	if schema == nil || h == nil {
		return fmt.Errorf("%w: service %q needs schema and handler", ErrNullPointer, name)
	}
	if len(name) != r.idLen {
		return fmt.Errorf("%w: service name %q must be %d bytes", ErrInitialization, name, r.idLen)
	}
	if r.sealed {
		return fmt.Errorf("%w: registry sealed, cannot register %q", ErrInitialization, name)
	}

	home := r.Slot(name)
	if r.legacy {
		if r.slots[home].used {
			return fmt.Errorf("%w: slot %d held by %q, cannot register %q",
				ErrRegistrationCollision, home, r.slots[home].svc.Name, name)
		}
		r.store(home, name, schema, h)
		return nil
	}

	free := -1
	for i := 0; i < len(r.slots); i++ {
		idx := (home + i) % len(r.slots)
		s := &r.slots[idx]
		if !s.used {
			free = idx
			break
		}
		if s.svc.Name == name {
			return fmt.Errorf("%w: service %q already registered", ErrRegistrationCollision, name)
		}
	}
	if free < 0 {
		return fmt.Errorf("%w: registry full (%d), cannot register %q", ErrRegistrationCollision, len(r.slots), name)
	}
	r.store(free, name, schema, h)
	return nil
}

func (r *Registry) store(idx int, name string, schema *Schema, h Handler) {
	r.slots[idx] = slot{used: true, svc: Service{Name: name, Schema: schema, Handler: h}}
	r.count++
}

// Lookup returns the service registered under name.
func (r *Registry) Lookup(name string) (*Service, bool) {
	return lookup(r, name)
}

func lookup[K string | []byte](r *Registry, key K) (*Service, bool) {
	home := int(hashKey(key) % uint32(len(r.slots)))
	if r.legacy {
		if !r.slots[home].used {
			return nil, false
		}
		return &r.slots[home].svc, true
	}
	for i := 0; i < len(r.slots); i++ {
		s := &r.slots[(home+i)%len(r.slots)]
		if !s.used {
			return nil, false
		}
		if keyEqual(s.svc.Name, key) {
			return &s.svc, true
		}
	}
	return nil, false
}

func keyEqual[K string | []byte](name string, key K) bool {
	if len(name) != len(key) {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] != key[i] {
			return false
		}
	}
	return true
}

// Seal closes the registration phase. Lookups are safe for concurrent use
// once sealed.
func (r *Registry) Seal() {
	r.sealed = true
}

func (r *Registry) Sealed() bool { return r.sealed }
func (r *Registry) Len() int     { return r.count }
func (r *Registry) Cap() int     { return len(r.slots) }
func (r *Registry) IDLen() int   { return r.idLen }
func (r *Registry) Legacy() bool { return r.legacy }

// Services returns the registered services ordered by name.
func (r *Registry) Services() []Service {
	list := make([]Service, 0, r.count)
	for _, s := range r.slots {
		if s.used {
			list = append(list, s.svc)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}
