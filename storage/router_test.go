package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teekernel/tee-partition-manager/interfaces"
)

func TestRouterResolvesRegisteredMedia(t *testing.T) {
	router := NewRouter(testLogger())

	ree := NewMemoryStore()
	rpmb := NewMemoryStore()
	router.Register(StorageREE, ree)
	router.Register(StorageRPMB, rpmb)

	got, err := router.StoreFor(StorageREE)
	require.NoError(t, err)
	assert.Same(t, ree, got)

	got, err = router.StoreFor(StorageRPMB)
	require.NoError(t, err)
	assert.Same(t, rpmb, got)
}

func TestRouterUnknownMedium(t *testing.T) {
	router := NewRouter(testLogger())
	router.Register(StorageREE, NewMemoryStore())

	_, err := router.StoreFor(0x1234)
	assert.ErrorIs(t, err, interfaces.ErrStoreNotFound)
}

func TestRouterRebind(t *testing.T) {
	router := NewRouter(testLogger())

	first := NewMemoryStore()
	second := NewMemoryStore()
	router.Register(StorageREE, first)
	router.Register(StorageREE, second)

	got, err := router.StoreFor(StorageREE)
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestMemoryStoreCorruptionLifecycle(t *testing.T) {
	store := NewMemoryStore()
	writeObject(t, store, "obj", []byte("data"))

	store.Corrupt("obj")

	_, _, err := readObject(t, store, "obj", 4)
	assert.ErrorIs(t, err, interfaces.ErrCorruptObject)

	// removal clears both the object and its corruption mark
	ref, err := store.Resolve("obj")
	require.NoError(t, err)
	require.NoError(t, ref.Remove())
	assert.False(t, store.Contains("obj"))

	writeObject(t, store, "obj", []byte("fresh"))
	got, _, err := readObject(t, store, "obj", 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), got)
}
