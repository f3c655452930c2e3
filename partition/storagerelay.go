package partition

import (
	"errors"
	"log/slog"

	"github.com/teekernel/tee-partition-manager/ffa"
	"github.com/teekernel/tee-partition-manager/interfaces"
)

// objectName is the fixed persistent object backing UEFI-style variable
// storage. The storage identifier in the request selects the physical
// medium only.
const objectName = "EFI_VARS"

// handleStorageService serves the storage-proxy endpoint: combined
// open/read/close and open-or-create/write/close against a named persistent
// object, relayed between partition memory and the object store.
func (m *Manager) handleStorageService(c *Context, frame *ffa.ExecState) {
	action := frame.X[3]
	buf := interfaces.Addr(frame.X[4])
	length := frame.X[5]
	offset := frame.X[6]
	storageID := uint32(frame.X[7])

	switch action {
	case ffa.FuncStorageRead:
		frame.ComposeDirectResp(m.storageRead(c, storageID, objectName, buf, length, offset))
	case ffa.FuncStorageWrite:
		frame.ComposeDirectResp(m.storageWrite(c, storageID, objectName, buf, length, offset))
	default:
		m.log.Error("undefined storage service id", slog.Uint64("action", action))
		frame.ComposeDirectResp(ffa.RetInvalidParameters)
	}
}

// storageRead opens the named object, reads length bytes at offset into
// partition memory and closes it. A read that reports corruption deletes
// the object; a read that succeeds short of length is reclassified as
// corruption without deleting. The handle and the object reference are
// released on every exit path.
func (m *Manager) storageRead(c *Context, storageID uint32, name string,
	buf interfaces.Addr, length, offset uint64) int64 {
	store, err := m.stores.StoreFor(storageID)
	if err != nil {
		return ffa.RetNotFound
	}

	if len(name) > interfaces.MaxObjectNameLen {
		return ffa.RetInvalidParameters
	}

	// the kernel writes the destination range on the partition's behalf
	if err := c.vm.CheckAccess(interfaces.AccessWrite, buf, length); err != nil {
		return ffa.RetDenied
	}

	ref, err := store.Resolve(name)
	if err != nil {
		return ffa.RetDenied
	}
	defer ref.Release()

	h, err := ref.Open()
	if err != nil {
		if errors.Is(err, interfaces.ErrObjectNotFound) {
			return ffa.RetNotFound
		}
		return ffa.RetDenied
	}
	defer h.Close()

	data := make([]byte, length)
	n, err := h.ReadAt(data, int64(offset))

	// whatever was read lands in the partition buffer
	if n > 0 {
		if werr := c.vm.WriteAt(data[:n], buf); werr != nil {
			return ffa.RetDenied
		}
	}

	switch {
	case errors.Is(err, interfaces.ErrCorruptObject):
		m.log.Error("persistent object corrupt, removing",
			slog.String("object", name))
		if rerr := ref.Remove(); rerr != nil {
			m.log.Error("removing corrupt object failed", slog.Any("err", rerr))
		}
		return ffa.RetAborted
	case err != nil:
		return ffa.RetDenied
	case uint64(n) != length:
		// short read without an underlying corruption report: corrupt,
		// but the object is kept
		m.log.Error("short object read",
			slog.String("object", name),
			slog.Uint64("want", length),
			slog.Int("got", n))
		return ffa.RetAborted
	}

	return ffa.RetSuccess
}

// storageWrite reads length bytes of partition memory and writes them into
// the named object at offset, creating the object if absent. There is
// deliberately no short-write reclassification mirroring the read path.
func (m *Manager) storageWrite(c *Context, storageID uint32, name string,
	buf interfaces.Addr, length, offset uint64) int64 {
	store, err := m.stores.StoreFor(storageID)
	if err != nil {
		return ffa.RetNotFound
	}

	if len(name) > interfaces.MaxObjectNameLen {
		return ffa.RetInvalidParameters
	}

	// the kernel reads the source range on the partition's behalf
	if err := c.vm.CheckAccess(interfaces.AccessRead, buf, length); err != nil {
		return ffa.RetDenied
	}

	data := make([]byte, length)
	if err := c.vm.ReadAt(data, buf); err != nil {
		return ffa.RetDenied
	}

	ref, err := store.Resolve(name)
	if err != nil {
		return ffa.RetDenied
	}
	defer ref.Release()

	h, err := ref.Create()
	if err != nil {
		return ffa.RetDenied
	}
	defer h.Close()

	if _, err := h.WriteAt(data, int64(offset)); err != nil {
		return ffa.RetDenied
	}

	return ffa.RetSuccess
}
