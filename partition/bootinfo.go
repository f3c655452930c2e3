package partition

import (
	"encoding/binary"

	"github.com/teekernel/tee-partition-manager/interfaces"
)

// Boot descriptor header tags. The binary layout below is the boot contract
// the partition image expects verbatim; changing it requires rebuilding the
// image.
const (
	bootInfoType    = 2
	bootInfoVersion = 1
)

// Fixed little-endian field offsets of the serialized descriptor inside the
// shared buffer.
const (
	offHeaderType    = 0x00 // u8
	offHeaderVersion = 0x01 // u8
	offHeaderSize    = 0x02 // u16
	offHeaderAttr    = 0x04 // u32
	offMemBase       = 0x08 // u64
	offMemLimit      = 0x10 // u64
	offImageBase     = 0x18 // u64
	offStackBase     = 0x20 // u64
	offHeapBase      = 0x28 // u64
	offCommBufBase   = 0x30 // u64
	offSharedBufBase = 0x38 // u64
	offImageSize     = 0x40 // u64
	offStackSize     = 0x48 // u64
	offHeapSize      = 0x50 // u64
	offCommBufSize   = 0x58 // u64
	offSharedBufSize = 0x60 // u64
	offNumRegions    = 0x68 // u32
	offNumCPUs       = 0x6c // u32
	offCPUArray      = 0x70 // u64, address of the CPU descriptor array

	bootInfoHeaderLen = 0x78
	cpuDescriptorLen  = 0x10
)

// CPUFlagPrimary marks the primary CPU in a CPU descriptor.
const CPUFlagPrimary uint32 = 1

// CPUDescriptor describes one CPU to the partition.
type CPUDescriptor struct {
	MPIDR    uint64
	LinearID uint32
	Flags    uint32
}

// BootDescriptor describes the partition's memory layout. It is built once
// by the image loader into the shared buffer and treated as read-only by
// the partition thereafter.
type BootDescriptor struct {
	MemBase  interfaces.Addr
	MemLimit interfaces.Addr

	ImageBase  interfaces.Addr
	StackBase  interfaces.Addr
	HeapBase   interfaces.Addr
	CommBase   interfaces.Addr
	SharedBase interfaces.Addr

	// ImageSize is the size of the firmware payload as shipped.
	ImageSize     uint64
	StackSize     uint64
	HeapSize      uint64
	CommBufSize   uint64
	SharedBufSize uint64

	NumRegions uint32
	CPUs       []CPUDescriptor
}

// newBootDescriptor builds the descriptor for a computed layout, with a
// single primary CPU.
func newBootDescriptor(cfg *Config, l Layout, commBase interfaces.Addr) *BootDescriptor {
	return &BootDescriptor{
		MemBase:       l.ImageBase,
		MemLimit:      l.ImageBase + interfaces.Addr(l.TotalSize),
		ImageBase:     l.ImageBase,
		StackBase:     l.StackBase,
		HeapBase:      l.HeapBase,
		CommBase:      commBase,
		SharedBase:    l.SharedBase,
		ImageSize:     uint64(len(cfg.Image)),
		StackSize:     cfg.StackSize,
		HeapSize:      cfg.HeapSize,
		CommBufSize:   cfg.CommBufSize,
		SharedBufSize: cfg.SharedBufSize,
		NumRegions:    6,
		CPUs: []CPUDescriptor{
			{MPIDR: 0, LinearID: 0, Flags: CPUFlagPrimary},
		},
	}
}

// TotalSize returns the serialized size of the descriptor including the
// trailing CPU array. It is what the partition receives in its second
// argument register.
func (d *BootDescriptor) TotalSize() uint64 {
	return bootInfoHeaderLen + uint64(len(d.CPUs))*cpuDescriptorLen
}

// MarshalBinary serializes the descriptor at its fixed offsets, as placed
// at base inside the shared buffer. The CPU array pointer is an absolute
// address, so base must be the address the bytes will be written to.
func (d *BootDescriptor) MarshalBinary(base interfaces.Addr) []byte {
	le := binary.LittleEndian
	buf := make([]byte, d.TotalSize())

	buf[offHeaderType] = bootInfoType
	buf[offHeaderVersion] = bootInfoVersion
	le.PutUint16(buf[offHeaderSize:], bootInfoHeaderLen)
	le.PutUint32(buf[offHeaderAttr:], 0)
	le.PutUint64(buf[offMemBase:], uint64(d.MemBase))
	le.PutUint64(buf[offMemLimit:], uint64(d.MemLimit))
	le.PutUint64(buf[offImageBase:], uint64(d.ImageBase))
	le.PutUint64(buf[offStackBase:], uint64(d.StackBase))
	le.PutUint64(buf[offHeapBase:], uint64(d.HeapBase))
	le.PutUint64(buf[offCommBufBase:], uint64(d.CommBase))
	le.PutUint64(buf[offSharedBufBase:], uint64(d.SharedBase))
	le.PutUint64(buf[offImageSize:], d.ImageSize)
	le.PutUint64(buf[offStackSize:], d.StackSize)
	le.PutUint64(buf[offHeapSize:], d.HeapSize)
	le.PutUint64(buf[offCommBufSize:], d.CommBufSize)
	le.PutUint64(buf[offSharedBufSize:], d.SharedBufSize)
	le.PutUint32(buf[offNumRegions:], d.NumRegions)
	le.PutUint32(buf[offNumCPUs:], uint32(len(d.CPUs)))
	le.PutUint64(buf[offCPUArray:], uint64(base)+bootInfoHeaderLen)

	for i, cpu := range d.CPUs {
		off := bootInfoHeaderLen + i*cpuDescriptorLen
		le.PutUint64(buf[off:], cpu.MPIDR)
		le.PutUint32(buf[off+8:], cpu.LinearID)
		le.PutUint32(buf[off+12:], cpu.Flags)
	}

	return buf
}
