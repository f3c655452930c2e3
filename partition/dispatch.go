package partition

import (
	"log/slog"

	"github.com/teekernel/tee-partition-manager/ffa"
)

// dispatchAction tells the engine what to do with the partition after a
// message has been interpreted.
type dispatchAction int

const (
	// resumePartition re-enters immediately with the (possibly rewritten)
	// frame; the caller observes nothing.
	resumePartition dispatchAction = iota
	// returnToHost ends the exchange; the frame is saved into the context.
	returnToHost
	// abortPartition reports a protocol-fatal condition to the caller
	// without resuming the partition.
	abortPartition
)

// handleMessage interprets the register frame the partition trapped with.
func (m *Manager) handleMessage(c *Context, frame *ffa.ExecState) (dispatchAction, uint32) {
	switch frame.Function() {
	case ffa.FuncVersion:
		m.log.Debug("version query")
		frame.X[0] = ffa.MakeVersion(ffa.VersionMajor, ffa.VersionMinor)
		return resumePartition, 0

	case ffa.FuncMsgSendDirectResp64:
		m.log.Debug("direct response")
		return returnToHost, 0

	case ffa.FuncMsgSendDirectReq64:
		m.handleDirectRequest(c, frame)
		return resumePartition, 0

	default:
		m.log.Error("undefined message kind",
			slog.Uint64("function", frame.Function()))
		return abortPartition, ffa.UndefinedMessageCode
	}
}

// handleDirectRequest routes a direct request to its destination endpoint.
// Every outcome, including an unknown endpoint, is composed back into the
// frame and the partition is resumed; it never observes a host exit for
// internally serviced calls.
func (m *Manager) handleDirectRequest(c *Context, frame *ffa.ExecState) {
	switch frame.DestinationID() {
	case ffa.MemoryManagerID:
		m.handleMemAttrService(c, frame)
	case ffa.StorageProxyID:
		m.handleStorageService(c, frame)
	default:
		m.log.Error("undefined endpoint",
			slog.Uint64("endpoint", uint64(frame.DestinationID())))
		frame.ComposeError(ffa.RetInvalidParameters)
	}
}
