package partition

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"

	"github.com/teekernel/tee-partition-manager/interfaces"
	"github.com/teekernel/tee-partition-manager/storage"
	"github.com/teekernel/tee-partition-manager/vmm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// compressPayload produces a valid compressed image for payload.
func compressPayload(t *testing.T, payload []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

// testPayload is a 3-page firmware stand-in with a recognizable pattern.
func testPayload() []byte {
	payload := make([]byte, 3*interfaces.PageSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	return payload
}

type testEnv struct {
	mgr  *Manager
	plat *MockPlatform
	ree  *storage.MemoryStore
	rpmb *storage.MemoryStore
}

// newTestEnv builds a manager over the in-memory subsystems. A nil platform
// gets the default immediately-responding behavior.
func newTestEnv(t *testing.T, plat *MockPlatform) *testEnv {
	t.Helper()

	if plat == nil {
		plat = &MockPlatform{}
	}

	payload := testPayload()
	cfg := DefaultConfig(compressPayload(t, payload), uint64(len(payload)))

	log := testLogger()
	ree := storage.NewMemoryStore()
	rpmb := storage.NewMemoryStore()
	router := storage.NewRouter(log)
	router.Register(storage.StorageREE, ree)
	router.Register(storage.StorageRPMB, rpmb)

	mgr, err := NewManager(cfg, plat, vmm.NewProvider(), router, log)
	require.NoError(t, err)

	return &testEnv{mgr: mgr, plat: plat, ree: ree, rpmb: rpmb}
}

// open initializes the partition and returns the session and its context.
func (e *testEnv) open(t *testing.T) (*Session, *Context) {
	t.Helper()

	sess, err := e.mgr.Open(e.mgr.cfg.Identity)
	require.NoError(t, err)

	ctx := e.mgr.registry.lookup(e.mgr.cfg.Identity)
	require.NotNil(t, ctx)

	return sess, ctx
}

// layout recomputes the region placement of a loaded context from its first
// mapping.
func (e *testEnv) layout(t *testing.T, ctx *Context) Layout {
	t.Helper()

	mappings := ctx.vm.Mappings()
	require.NotEmpty(t, mappings)

	return ComputeLayout(&e.mgr.cfg, mappings[0].Base)
}
