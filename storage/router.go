package storage

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/teekernel/tee-partition-manager/interfaces"
)

// Storage-medium identifiers carried in relay requests, following the
// trusted-storage convention.
const (
	// StorageREE is the normal-world backed medium.
	StorageREE uint32 = 0x80000000
	// StorageRPMB is the replay-protected medium.
	StorageRPMB uint32 = 0x80000100
)

// Router maps storage-medium identifiers to the object stores backing them.
type Router struct {
	mu     sync.RWMutex
	stores map[uint32]interfaces.ObjectStore
	log    *slog.Logger
}

var _ interfaces.StoreResolver = (*Router)(nil)

// NewRouter returns an empty router.
func NewRouter(log *slog.Logger) *Router {
	return &Router{
		stores: make(map[uint32]interfaces.ObjectStore),
		log:    log,
	}
}

// Register binds a medium identifier to a store, replacing any previous
// binding.
func (r *Router) Register(storageID uint32, store interfaces.ObjectStore) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stores[storageID] = store
}

// StoreFor implements interfaces.StoreResolver.
func (r *Router) StoreFor(storageID uint32) (interfaces.ObjectStore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	store, ok := r.stores[storageID]
	if !ok {
		return nil, fmt.Errorf("%w: %#x", interfaces.ErrStoreNotFound, storageID)
	}
	return store, nil
}
