package partition

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teekernel/tee-partition-manager/interfaces"
)

func TestComputeLayoutOrdering(t *testing.T) {
	tests := []struct {
		name             string
		uncompressedSize uint64
	}{
		{"sub-page image", 100},
		{"exact page image", interfaces.PageSize},
		{"three page image", 3 * interfaces.PageSize},
		{"unaligned image", 3*interfaces.PageSize + 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig([]byte{1}, tt.uncompressedSize)
			l := ComputeLayout(&cfg, 0x40000000)

			assert.Less(t, l.ImageBase, l.HeapBase)
			assert.Less(t, l.HeapBase, l.StackBase)
			assert.Less(t, l.StackBase, l.SharedBase)

			for _, base := range []interfaces.Addr{l.ImageBase, l.HeapBase, l.StackBase, l.SharedBase} {
				assert.Zero(t, uint64(base)%interfaces.PageSize, "base %#x not page aligned", uint64(base))
			}

			assert.Equal(t, l.ImageSize+cfg.HeapSize+cfg.StackSize+cfg.SharedBufSize, l.TotalSize)
		})
	}
}

func TestComputeLayoutDefaultGeometry(t *testing.T) {
	// 3-page image, 4-page stack, 398-page heap, 1-page shared buffer
	cfg := DefaultConfig([]byte{1}, 3*interfaces.PageSize)
	l := ComputeLayout(&cfg, 0x40000000)

	assert.Equal(t, uint64((3+4+398+1)*interfaces.PageSize), l.TotalSize)

	desc := newBootDescriptor(&cfg, l, 0x50000000)
	assert.Equal(t, uint32(6), desc.NumRegions)
	assert.Len(t, desc.CPUs, 1)
	assert.Equal(t, CPUFlagPrimary, desc.CPUs[0].Flags)
}

func TestBootDescriptorFixedOffsets(t *testing.T) {
	const base interfaces.Addr = 0x40000000

	desc := &BootDescriptor{
		MemBase:       0x1000,
		MemLimit:      0x2000,
		ImageBase:     0x1100,
		StackBase:     0x1200,
		HeapBase:      0x1300,
		CommBase:      0x1400,
		SharedBase:    0x1500,
		ImageSize:     0x11,
		StackSize:     0x22,
		HeapSize:      0x33,
		CommBufSize:   0x44,
		SharedBufSize: 0x55,
		NumRegions:    6,
		CPUs:          []CPUDescriptor{{MPIDR: 0x80000000, LinearID: 0, Flags: CPUFlagPrimary}},
	}

	buf := desc.MarshalBinary(base)
	require.Len(t, buf, 0x88)
	assert.Equal(t, desc.TotalSize(), uint64(len(buf)))

	le := binary.LittleEndian

	// header
	assert.Equal(t, byte(2), buf[0x00])
	assert.Equal(t, byte(1), buf[0x01])
	assert.Equal(t, uint16(0x78), le.Uint16(buf[0x02:]))
	assert.Equal(t, uint32(0), le.Uint32(buf[0x04:]))

	// regions at their frozen offsets
	assert.Equal(t, uint64(0x1000), le.Uint64(buf[0x08:]))
	assert.Equal(t, uint64(0x2000), le.Uint64(buf[0x10:]))
	assert.Equal(t, uint64(0x1100), le.Uint64(buf[0x18:]))
	assert.Equal(t, uint64(0x1200), le.Uint64(buf[0x20:]))
	assert.Equal(t, uint64(0x1300), le.Uint64(buf[0x28:]))
	assert.Equal(t, uint64(0x1400), le.Uint64(buf[0x30:]))
	assert.Equal(t, uint64(0x1500), le.Uint64(buf[0x38:]))
	assert.Equal(t, uint64(0x11), le.Uint64(buf[0x40:]))
	assert.Equal(t, uint64(0x22), le.Uint64(buf[0x48:]))
	assert.Equal(t, uint64(0x33), le.Uint64(buf[0x50:]))
	assert.Equal(t, uint64(0x44), le.Uint64(buf[0x58:]))
	assert.Equal(t, uint64(0x55), le.Uint64(buf[0x60:]))

	assert.Equal(t, uint32(6), le.Uint32(buf[0x68:]))
	assert.Equal(t, uint32(1), le.Uint32(buf[0x6c:]))

	// the CPU array pointer is absolute
	assert.Equal(t, uint64(base)+0x78, le.Uint64(buf[0x70:]))

	// trailing CPU descriptor
	assert.Equal(t, uint64(0x80000000), le.Uint64(buf[0x78:]))
	assert.Equal(t, uint32(0), le.Uint32(buf[0x80:]))
	assert.Equal(t, CPUFlagPrimary, le.Uint32(buf[0x84:]))
}
