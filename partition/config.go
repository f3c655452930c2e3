package partition

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/teekernel/tee-partition-manager/interfaces"
)

// DefaultIdentity is the identity of the single supported partition image.
var DefaultIdentity = uuid.MustParse("ed32d533-99e6-4209-9cc0-2d72cdd998a7")

// Default region geometry, in bytes. All values are page multiples.
const (
	DefaultStackSize     = 4 * interfaces.PageSize
	DefaultHeapSize      = 398 * interfaces.PageSize
	DefaultSharedBufSize = 1 * interfaces.PageSize
	DefaultCommBufSize   = 1 * interfaces.PageSize
)

// Config fixes the partition image and its region geometry.
type Config struct {
	// Identity of the supported partition image. Sessions naming any
	// other identity are rejected.
	Identity uuid.UUID

	// Image is the compressed firmware payload.
	Image []byte

	// ImageUncompressedSize is the declared size of the inflated image.
	// A mismatch during decompression is an unrecoverable fault.
	ImageUncompressedSize uint64

	// Region sizes; every one must be a non-zero page multiple.
	StackSize     uint64
	HeapSize      uint64
	SharedBufSize uint64
	CommBufSize   uint64
}

// DefaultConfig returns a Config for the given image with the default
// identity and geometry.
func DefaultConfig(image []byte, uncompressedSize uint64) Config {
	return Config{
		Identity:              DefaultIdentity,
		Image:                 image,
		ImageUncompressedSize: uncompressedSize,
		StackSize:             DefaultStackSize,
		HeapSize:              DefaultHeapSize,
		SharedBufSize:         DefaultSharedBufSize,
		CommBufSize:           DefaultCommBufSize,
	}
}

func (c *Config) validate() error {
	sizes := map[string]uint64{
		"stack":      c.StackSize,
		"heap":       c.HeapSize,
		"shared buf": c.SharedBufSize,
		"comm buf":   c.CommBufSize,
	}
	for name, size := range sizes {
		if size == 0 || size%interfaces.PageSize != 0 {
			return fmt.Errorf("%w: %s size %d is not a non-zero page multiple",
				interfaces.ErrBadParameters, name, size)
		}
	}
	if len(c.Image) == 0 {
		return fmt.Errorf("%w: empty image", interfaces.ErrBadParameters)
	}
	return nil
}

// Layout is the computed placement of the partition's regions. The image,
// heap, stack and shared buffer live in one combined mapping; the
// non-secure communication buffer is mapped separately.
type Layout struct {
	TotalSize uint64 // combined region size, comm buffer excluded

	ImageBase  interfaces.Addr
	ImageSize  uint64 // uncompressed size rounded up to a page
	HeapBase   interfaces.Addr
	StackBase  interfaces.Addr
	SharedBase interfaces.Addr
}

func roundUpPage(size uint64) uint64 {
	return (size + interfaces.PageSize - 1) &^ uint64(interfaces.PageSize-1)
}

// ComputeLayout places the partition regions inside a combined mapping at
// base. Region bases are strictly increasing and page aligned.
func ComputeLayout(cfg *Config, base interfaces.Addr) Layout {
	imageSize := roundUpPage(cfg.ImageUncompressedSize)

	l := Layout{
		TotalSize: imageSize + cfg.StackSize + cfg.HeapSize + cfg.SharedBufSize,
		ImageBase: base,
		ImageSize: imageSize,
	}
	l.HeapBase = l.ImageBase + interfaces.Addr(imageSize)
	l.StackBase = l.HeapBase + interfaces.Addr(cfg.HeapSize)
	l.SharedBase = l.StackBase + interfaces.Addr(cfg.StackSize)

	return l
}
