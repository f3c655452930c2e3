package storage

import (
	"sync"

	"github.com/teekernel/tee-partition-manager/interfaces"
)

// MemoryStore keeps persistent objects in process memory. It backs tests
// and the emulated daemon; nothing survives a restart.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	corrupt map[string]bool
}

var _ interfaces.ObjectStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		corrupt: make(map[string]bool),
	}
}

// Corrupt marks an object so that subsequent reads report corruption, the
// way a failed integrity check would on a durable medium.
func (s *MemoryStore) Corrupt(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.corrupt[name] = true
}

// Contains reports whether the named object exists.
func (s *MemoryStore) Contains(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.objects[name]
	return ok
}

// Resolve implements interfaces.ObjectStore.
func (s *MemoryStore) Resolve(name string) (interfaces.ObjectRef, error) {
	if name == "" {
		return nil, interfaces.ErrBadParameters
	}
	return &memRef{store: s, name: name}, nil
}

type memRef struct {
	store *MemoryStore
	name  string
}

// Open implements interfaces.ObjectRef.
func (r *memRef) Open() (interfaces.ObjectHandle, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.objects[r.name]; !ok {
		return nil, interfaces.ErrObjectNotFound
	}
	return &memHandle{ref: r}, nil
}

// Create implements interfaces.ObjectRef.
func (r *memRef) Create() (interfaces.ObjectHandle, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.objects[r.name]; !ok {
		r.store.objects[r.name] = nil
	}
	return &memHandle{ref: r}, nil
}

// Remove implements interfaces.ObjectRef.
func (r *memRef) Remove() error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delete(r.store.objects, r.name)
	delete(r.store.corrupt, r.name)
	return nil
}

// Release implements interfaces.ObjectRef.
func (r *memRef) Release() {}

type memHandle struct {
	ref *memRef
}

// ReadAt implements interfaces.ObjectHandle.
func (h *memHandle) ReadAt(p []byte, off int64) (int, error) {
	s := h.ref.store

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.corrupt[h.ref.name] {
		return 0, interfaces.ErrCorruptObject
	}

	data := s.objects[h.ref.name]
	if off < 0 {
		return 0, interfaces.ErrBadParameters
	}
	if off >= int64(len(data)) {
		return 0, nil
	}

	return copy(p, data[off:]), nil
}

// WriteAt implements interfaces.ObjectHandle.
func (h *memHandle) WriteAt(p []byte, off int64) (int, error) {
	s := h.ref.store

	s.mu.Lock()
	defer s.mu.Unlock()

	if off < 0 {
		return 0, interfaces.ErrBadParameters
	}

	data := s.objects[h.ref.name]
	if need := off + int64(len(p)); need > int64(len(data)) {
		data = append(data, make([]byte, need-int64(len(data)))...)
	}
	copy(data[off:], p)
	s.objects[h.ref.name] = data

	return len(p), nil
}

// Close implements interfaces.ObjectHandle.
func (h *memHandle) Close() error { return nil }
