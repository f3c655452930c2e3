package partition

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/klauspost/compress/zlib"

	"github.com/teekernel/tee-partition-manager/ffa"
	"github.com/teekernel/tee-partition-manager/interfaces"
)

// ImageCorruptionError is the unrecoverable load-time fault: the firmware
// payload failed to decompress or did not match its declared size. Image
// integrity is a build-time guarantee, so this is raised as a panic rather
// than returned; the context never becomes usable.
type ImageCorruptionError struct {
	Err error
}

func (e *ImageCorruptionError) Error() string {
	return fmt.Sprintf("partition image corrupt: %v", e.Err)
}

func (e *ImageCorruptionError) Unwrap() error { return e.Err }

// uncompressImage inflates the payload and requires it to produce exactly
// the declared size.
func uncompressImage(image []byte, uncompressedSize uint64) []byte {
	zr, err := zlib.NewReader(bytes.NewReader(image))
	if err != nil {
		panic(&ImageCorruptionError{Err: err})
	}
	defer zr.Close()

	out := make([]byte, uncompressedSize)
	if _, err := io.ReadFull(zr, out); err != nil {
		panic(&ImageCorruptionError{Err: err})
	}

	// the stream must end exactly at the declared size
	var overrun [1]byte
	n, err := zr.Read(overrun[:])
	if n != 0 {
		panic(&ImageCorruptionError{Err: fmt.Errorf("inflated payload exceeds declared size %d", uncompressedSize)})
	}
	if err != nil && err != io.EOF {
		// checksum failures surface here on a stream of exactly the
		// declared size
		panic(&ImageCorruptionError{Err: err})
	}

	return out
}

// load populates a freshly created context: it maps the combined region and
// the communication buffer, decompresses the image, applies final
// protections, builds the boot descriptor and performs the first entry.
//
// Allocation and protection failures propagate without partial cleanup;
// every mapping is torn down in one place, at context destruction.
func (m *Manager) load(c *Context) error {
	base, err := c.vm.Map(ComputeLayout(&m.cfg, 0).TotalSize, interfaces.ProtRW)
	if err != nil {
		return fmt.Errorf("%w: combined region: %v", interfaces.ErrOutOfMemory, err)
	}
	l := ComputeLayout(&m.cfg, base)

	commBase, err := c.vm.Map(m.cfg.CommBufSize, interfaces.ProtRW|interfaces.ProtExternal)
	if err != nil {
		return fmt.Errorf("%w: comm buffer: %v", interfaces.ErrOutOfMemory, err)
	}

	image := uncompressImage(m.cfg.Image, m.cfg.ImageUncompressedSize)
	if err := c.vm.WriteAt(image, l.ImageBase); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}

	if err := c.vm.SetProtection(l.ImageBase, l.ImageSize, interfaces.ProtRead|interfaces.ProtExec); err != nil {
		return err
	}
	if err := c.vm.SetProtection(l.HeapBase, m.cfg.HeapSize, interfaces.ProtRW); err != nil {
		return err
	}
	if err := c.vm.SetProtection(l.StackBase, m.cfg.StackSize, interfaces.ProtRW); err != nil {
		return err
	}
	if err := c.vm.SetProtection(l.SharedBase, m.cfg.SharedBufSize, interfaces.ProtRW); err != nil {
		return err
	}

	m.log.Debug("partition image loaded",
		slog.String("image_base", fmt.Sprintf("%#x", uint64(l.ImageBase))),
		slog.Uint64("image_size", l.ImageSize))

	desc := newBootDescriptor(&m.cfg, l, commBase)
	if err := c.vm.WriteAt(desc.MarshalBinary(l.SharedBase), l.SharedBase); err != nil {
		return fmt.Errorf("writing boot descriptor: %w", err)
	}

	c.commBufBase = commBase
	c.commBufSize = m.cfg.CommBufSize

	// entry state: a0 = shared buffer, a1 = descriptor size,
	// SP = top of stack, PC = image base
	c.regs = ffa.ExecState{
		X:  [8]uint64{uint64(l.SharedBase), desc.TotalSize()},
		SP: uint64(l.StackBase) + m.cfg.StackSize,
		PC: uint64(l.ImageBase),
	}

	return m.enter(c)
}
