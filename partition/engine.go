package partition

import (
	"fmt"
	"log/slog"

	"github.com/teekernel/tee-partition-manager/interfaces"
)

// enter performs one full exchange with the partition: it transfers control
// and keeps re-entering for every message the dispatcher services in place,
// until the partition produces a direct response, faults, or violates the
// protocol.
//
// Asynchronous exceptions stay masked and the partition's virtual timer
// access stays granted for the whole exchange, so no interrupt observes a
// half-completed switch. The caller must hold the context's busy lock.
func (m *Manager) enter(c *Context) error {
	mask := m.platform.MaskExceptions()
	timer := m.platform.GrantTimerAccess()
	defer func() {
		m.platform.RestoreTimerAccess(timer)
		m.platform.UnmaskExceptions(mask)
	}()

	// the saved register set is restored into a live frame; it is copied
	// back only on a genuine direct response
	frame := c.regs

	for {
		trap, err := m.platform.Enter(&frame)
		if err != nil {
			return fmt.Errorf("privilege transition failed: %w", err)
		}

		if trap.Kind == interfaces.TrapFault {
			m.log.Error("partition faulted",
				slog.String("code", fmt.Sprintf("%#x", trap.Code)),
				slog.String("pc", fmt.Sprintf("%#x", frame.PC)))
			return &interfaces.TargetFaultError{Code: trap.Code}
		}

		action, code := m.handleMessage(c, &frame)
		switch action {
		case resumePartition:
			continue
		case returnToHost:
			c.regs = frame
			return nil
		case abortPartition:
			// protocol-fatal: reported to the caller exactly like a
			// fault, without resuming the partition
			return &interfaces.TargetFaultError{Code: code}
		}
	}
}
