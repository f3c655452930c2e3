package interfaces

import "github.com/teekernel/tee-partition-manager/ffa"

// TrapKind classifies why control returned from the partition.
type TrapKind int

const (
	// TrapMessage: the partition issued a protocol message; the frame
	// holds it.
	TrapMessage TrapKind = iota
	// TrapFault: the partition faulted; Code carries the diagnostic.
	TrapFault
)

// Trap is the outcome of one entry into the partition.
type Trap struct {
	Kind TrapKind
	Code uint32
}

// Platform is the privilege-transition primitive. It saves and restores all
// hardware state not carried in the frame.
type Platform interface {
	// MaskExceptions masks all asynchronous exceptions and returns the
	// previous mask for UnmaskExceptions.
	MaskExceptions() uint32
	UnmaskExceptions(mask uint32)

	// GrantTimerAccess lets the partition access its virtual timer and
	// returns the previous control value for RestoreTimerAccess.
	GrantTimerAccess() uint64
	RestoreTimerAccess(v uint64)

	// Enter switches to the partition with the register state in frame
	// and blocks until the partition traps back. On return the frame
	// holds the live register state at the trap.
	Enter(frame *ffa.ExecState) (Trap, error)
}
