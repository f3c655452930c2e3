package partition

import (
	"log/slog"
	"math"

	"github.com/teekernel/tee-partition-manager/ffa"
	"github.com/teekernel/tee-partition-manager/interfaces"
)

// handleMemAttrService serves the memory-manager endpoint: page permission
// queries and changes, always scoped to the calling partition's own address
// space.
func (m *Manager) handleMemAttrService(c *Context, frame *ffa.ExecState) {
	action := frame.X[3]
	addr := interfaces.Addr(frame.X[4])
	pages := frame.X[5]
	perm := frame.X[6]

	switch action {
	case ffa.FuncMemAttrGet:
		frame.ComposeDirectResp(c.memAttrGet(addr))
	case ffa.FuncMemAttrSet:
		frame.ComposeDirectResp(c.memAttrSet(addr, pages, perm))
	default:
		m.log.Error("undefined memory service id", slog.Uint64("action", action))
		frame.ComposeDirectResp(ffa.RetInvalidParameters)
	}
}

// memAttrGet reports the partition's own protection at addr as a permission
// code. Unmapped or invalid addresses yield the denied sentinel, never a
// fault.
func (c *Context) memAttrGet(addr interfaces.Addr) int64 {
	if addr == 0 {
		return ffa.RetDenied
	}

	prot, err := c.vm.Protection(addr)
	if err != nil {
		return ffa.RetDenied
	}

	var perm uint64
	switch {
	case prot&interfaces.ProtWrite != 0:
		perm |= ffa.MemAttrAccessRW
	case prot&interfaces.ProtRead != 0:
		perm |= ffa.MemAttrAccessRO
	}
	if prot&interfaces.ProtExec == 0 {
		perm |= ffa.MemAttrExecNever
	}

	return int64(perm)
}

// memAttrSet translates a requested permission into protection flags and
// applies them over pages starting at addr. Rejections happen before any
// mapping change.
func (c *Context) memAttrSet(addr interfaces.Addr, pages, perm uint64) int64 {
	if addr == 0 || pages == 0 {
		return ffa.RetInvalidParameters
	}
	if pages > math.MaxUint64/interfaces.PageSize {
		// page_count * page_size overflows the address width
		return ffa.RetInvalidParameters
	}
	if perm&^ffa.MemAttrAll != 0 {
		return ffa.RetInvalidParameters
	}

	var prot interfaces.Prot
	switch perm & ffa.MemAttrAccessMask {
	case ffa.MemAttrAccessRO:
		prot |= interfaces.ProtRead
	case ffa.MemAttrAccessRW:
		prot |= interfaces.ProtRW
	}
	if perm&ffa.MemAttrExecNever == 0 {
		prot |= interfaces.ProtExec
	}

	if err := c.vm.SetProtection(addr, pages*interfaces.PageSize, prot); err != nil {
		return ffa.RetDenied
	}

	return ffa.RetSuccess
}
