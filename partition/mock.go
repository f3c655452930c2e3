package partition

import (
	"github.com/teekernel/tee-partition-manager/ffa"
	"github.com/teekernel/tee-partition-manager/interfaces"
)

// MockPlatform implements the privilege-transition primitive without any
// hardware: a Handler function stands in for the partition and rewrites the
// frame the way a real image would. It backs the package tests and the
// emulated daemon.
type MockPlatform struct {
	// Handler is invoked on every entry with the live frame and decides
	// how the "partition" traps back. When nil, the partition
	// immediately issues an empty direct response.
	Handler func(frame *ffa.ExecState) interfaces.Trap

	// Entries counts privilege transitions into the partition.
	Entries int

	// Mask/timer bookkeeping, for asserting bracketing.
	MaskCalls     int
	UnmaskCalls   int
	TimerGrants   int
	TimerRestores int
}

var _ interfaces.Platform = (*MockPlatform)(nil)

// MaskExceptions implements interfaces.Platform.
func (p *MockPlatform) MaskExceptions() uint32 {
	p.MaskCalls++
	return 0xf
}

// UnmaskExceptions implements interfaces.Platform.
func (p *MockPlatform) UnmaskExceptions(uint32) {
	p.UnmaskCalls++
}

// GrantTimerAccess implements interfaces.Platform.
func (p *MockPlatform) GrantTimerAccess() uint64 {
	p.TimerGrants++
	return 0
}

// RestoreTimerAccess implements interfaces.Platform.
func (p *MockPlatform) RestoreTimerAccess(uint64) {
	p.TimerRestores++
}

// Enter implements interfaces.Platform.
func (p *MockPlatform) Enter(frame *ffa.ExecState) (interfaces.Trap, error) {
	p.Entries++

	if p.Handler == nil {
		DirectResponse(frame, 0)
		return interfaces.Trap{Kind: interfaces.TrapMessage}, nil
	}

	return p.Handler(frame), nil
}

// DirectResponse rewrites frame into a partition-to-kernel direct response
// reporting length in the second parameter word. It is what a well-behaved
// image sends to end an exchange.
func DirectResponse(frame *ffa.ExecState, length uint64) {
	ffa.DirectMessage{
		Function:    ffa.FuncMsgSendDirectResp64,
		Source:      ffa.PartitionID,
		Destination: ffa.KernelID,
		Params:      [5]uint64{0, length},
	}.EncodeInto(frame)
}
