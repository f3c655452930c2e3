package partition

import (
	"fmt"
	"log/slog"

	"go.uber.org/atomic"

	"github.com/teekernel/tee-partition-manager/ffa"
	"github.com/teekernel/tee-partition-manager/interfaces"
)

// CmdCommunicate is the only command the partition session serves: one
// synchronous exchange through the non-secure communication buffer.
const CmdCommunicate uint32 = 0

// Service is the closed set of per-context session behaviors, dispatched
// through an interface rather than a shared operations table. The secure
// partition is the only variant this module ships.
type Service interface {
	// OpenSession validates that the context can accept a session.
	OpenSession() error

	// InvokeCommand runs one command. For CmdCommunicate, buf is copied
	// into the communication buffer, the partition is entered, and the
	// buffer is copied back; the returned value is the response length
	// the partition reported.
	InvokeCommand(cmd uint32, buf []byte) (uint64, error)

	// CloseSession releases the session's reference. The context stays
	// alive for future sessions.
	CloseSession()

	// DumpState reports the context's mappings for diagnostics.
	DumpState() []interfaces.Mapping

	// InstanceID returns the context's instance identifier.
	InstanceID() uint32
}

// Session binds one caller to the partition context.
type Session struct {
	mgr    *Manager
	ctx    *Context
	log    *slog.Logger
	failed atomic.Bool
}

var _ Service = (*Session)(nil)

// OpenSession implements Service. The partition initializes during the
// first session creation, so a context still marked initializing cannot be
// opened.
func (s *Session) OpenSession() error {
	if s.ctx.initializing.Load() {
		return fmt.Errorf("%w: partition still initializing", interfaces.ErrBadState)
	}
	return nil
}

// InvokeCommand implements Service.
func (s *Session) InvokeCommand(cmd uint32, buf []byte) (uint64, error) {
	if cmd != CmdCommunicate {
		return 0, fmt.Errorf("%w: unknown command %d", interfaces.ErrBadParameters, cmd)
	}
	if s.failed.Load() {
		return 0, fmt.Errorf("%w: session failed by an earlier fault", interfaces.ErrBadState)
	}

	c := s.ctx

	c.busy.Lock()
	defer c.busy.Unlock()

	// the caller's buffer originates outside the trust boundary; it is
	// copied through the communication buffer, never exposed directly
	if uint64(len(buf)) > c.commBufSize {
		return 0, &interfaces.ExcessDataError{Required: c.commBufSize}
	}

	if err := c.vm.WriteAt(buf, c.commBufBase); err != nil {
		return 0, fmt.Errorf("copying into comm buffer: %w", err)
	}

	ffa.DirectMessage{
		Function:    ffa.FuncMsgSendDirectReq64,
		Source:      ffa.KernelID,
		Destination: ffa.PartitionID,
		Params:      [5]uint64{uint64(c.commBufBase), uint64(len(buf))},
	}.EncodeInto(&c.regs)

	if err := s.mgr.enter(c); err != nil {
		s.failed.Store(true)
		return 0, err
	}

	if err := c.vm.ReadAt(buf, c.commBufBase); err != nil {
		return 0, fmt.Errorf("copying out of comm buffer: %w", err)
	}

	// the partition reports the response length in the second parameter
	return c.regs.X[4], nil
}

// CloseSession implements Service.
func (s *Session) CloseSession() {
	s.ctx.refCount.Dec()
}

// DumpState implements Service.
func (s *Session) DumpState() []interfaces.Mapping {
	mappings := s.ctx.vm.Mappings()
	for _, mp := range mappings {
		s.log.Info("mapping",
			slog.String("base", fmt.Sprintf("%#x", uint64(mp.Base))),
			slog.Uint64("size", mp.Size),
			slog.String("prot", fmt.Sprintf("%04b", mp.Prot)))
	}
	return mappings
}

// InstanceID implements Service.
func (s *Session) InstanceID() uint32 {
	return s.ctx.InstanceID()
}
