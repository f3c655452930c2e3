package partition

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/teekernel/tee-partition-manager/interfaces"
)

// Manager owns the partition registry and binds the consumed subsystems:
// the address-space provider, the privilege-transition primitive and the
// persistent-object stores.
type Manager struct {
	cfg      Config
	log      *slog.Logger
	platform interfaces.Platform
	provider interfaces.AddressSpaceProvider
	stores   interfaces.StoreResolver
	registry *Registry
}

// NewManager validates the configuration and returns a Manager.
func NewManager(cfg Config, platform interfaces.Platform, provider interfaces.AddressSpaceProvider,
	stores interfaces.StoreResolver, log *slog.Logger) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Manager{
		cfg:      cfg,
		log:      log,
		platform: platform,
		provider: provider,
		stores:   stores,
		registry: NewRegistry(),
	}, nil
}

// Registry exposes the live-context registry for diagnostics surfaces.
func (m *Manager) Registry() *Registry { return m.registry }

// Open binds a session to the partition named by id, initializing the
// single instance on first use and reusing it afterwards.
func (m *Manager) Open(id uuid.UUID) (*Session, error) {
	if id != m.cfg.Identity {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrUnknownPartition, id)
	}

	if ctx := m.registry.lookup(id); ctx != nil {
		ctx.refCount.Inc()
		return &Session{mgr: m, ctx: ctx, log: m.log}, nil
	}

	ctx, err := m.initSession(id)
	if err != nil {
		return nil, err
	}

	return &Session{mgr: m, ctx: ctx, log: m.log}, nil
}

// initSession creates the partition context, loads the image and performs
// the first entry. The context becomes visible in the registry only if the
// whole sequence succeeds.
func (m *Manager) initSession(id uuid.UUID) (*Context, error) {
	vm, err := m.provider.NewAddressSpace()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrOutOfMemory, err)
	}

	ctx := newContext(id, vm)
	ctx.initializing.Store(true)

	if err := m.load(ctx); err != nil {
		ctx.destroy()
		return nil, err
	}

	ctx.initializing.Store(false)
	m.registry.insert(ctx)

	m.log.Info("partition initialized",
		slog.String("id", id.String()),
		slog.Uint64("instance", uint64(ctx.InstanceID())))

	return ctx, nil
}

// Destroy tears down the partition instance named by id. It must not be
// called while any session still references the context.
func (m *Manager) Destroy(id uuid.UUID) error {
	ctx := m.registry.remove(id)
	if ctx == nil {
		return fmt.Errorf("%w: %s", interfaces.ErrUnknownPartition, id)
	}

	if n := ctx.refCount.Load(); n != 0 {
		// reinsert; the caller still holds sessions
		m.registry.insert(ctx)
		return fmt.Errorf("%w: %d sessions still open", interfaces.ErrBadState, n)
	}

	ctx.destroy()
	m.log.Info("partition destroyed", slog.String("id", id.String()))

	return nil
}
