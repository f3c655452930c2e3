package partition

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/teekernel/tee-partition-manager/ffa"
	"github.com/teekernel/tee-partition-manager/interfaces"
)

// Context is the kernel-owned state of one live partition instance: its
// identity, its address space and the execution state saved at the last
// exit. At most one context exists per identity; it is created at the first
// session open and kept alive across sessions until destroyed explicitly.
type Context struct {
	id uuid.UUID
	vm interfaces.AddressSpace

	// regs is the saved execution state; only valid outside a transition.
	regs ffa.ExecState

	commBufBase interfaces.Addr
	commBufSize uint64

	refCount     atomic.Int32
	initializing atomic.Bool

	// busy serializes entries: a second caller invoking an already
	// executing instance waits here instead of racing into a concurrent
	// privilege transition.
	busy sync.Mutex
}

func newContext(id uuid.UUID, vm interfaces.AddressSpace) *Context {
	c := &Context{
		id: id,
		vm: vm,
	}
	c.refCount.Store(1)
	return c
}

// ID returns the partition identity.
func (c *Context) ID() uuid.UUID { return c.id }

// InstanceID returns the context's address-space identifier.
func (c *Context) InstanceID() uint32 { return c.vm.ID() }

// destroy unmaps every owned region and releases the address space. It must
// run exactly once, with no session referencing the context and no
// transition in flight.
func (c *Context) destroy() {
	c.busy.Lock()
	defer c.busy.Unlock()

	c.vm.Release()
}

// ContextStatus is a diagnostics snapshot of one live context.
type ContextStatus struct {
	ID           uuid.UUID            `json:"id"`
	InstanceID   uint32               `json:"instance_id"`
	RefCount     int32                `json:"ref_count"`
	Initializing bool                 `json:"initializing"`
	CommBufSize  uint64               `json:"comm_buf_size"`
	Mappings     []interfaces.Mapping `json:"mappings"`
}

// Registry tracks live partition contexts. Contexts are inserted only after
// a fully successful initialization; a context that failed to load is never
// visible here.
type Registry struct {
	mu       sync.Mutex
	contexts map[uuid.UUID]*Context
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{contexts: make(map[uuid.UUID]*Context)}
}

func (r *Registry) insert(c *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.contexts[c.id] = c
}

func (r *Registry) lookup(id uuid.UUID) *Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.contexts[id]
}

func (r *Registry) remove(id uuid.UUID) *Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.contexts[id]
	delete(r.contexts, id)
	return c
}

// Snapshot returns the diagnostics state of every live context.
func (r *Registry) Snapshot() []ContextStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ContextStatus, 0, len(r.contexts))
	for _, c := range r.contexts {
		out = append(out, ContextStatus{
			ID:           c.id,
			InstanceID:   c.vm.ID(),
			RefCount:     c.refCount.Load(),
			Initializing: c.initializing.Load(),
			CommBufSize:  c.commBufSize,
			Mappings:     c.vm.Mappings(),
		})
	}
	return out
}
