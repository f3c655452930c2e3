package ffa

// Function identifiers carried in word 0 of the frame.
const (
	// FuncVersion queries the supported protocol version.
	FuncVersion uint64 = 0x84000063

	// FuncError reports a protocol-level error to the partition.
	FuncError uint64 = 0x84000060

	// FuncMsgSendDirectReq64 is a direct request from the partition to a
	// kernel service endpoint.
	FuncMsgSendDirectReq64 uint64 = 0xC400006F

	// FuncMsgSendDirectResp64 is a direct response. It is the only message
	// kind that ends the current exchange and returns control to the
	// caller.
	FuncMsgSendDirectResp64 uint64 = 0xC4000070
)

// Service identifiers carried in word 3 of a direct request.
const (
	FuncMemAttrGet   uint64 = 0xC4000064
	FuncMemAttrSet   uint64 = 0xC4000065
	FuncStorageRead  uint64 = 0xC4000066
	FuncStorageWrite uint64 = 0xC4000067
)

// Endpoint identifiers. These are fixed until full endpoint discovery is
// specified; the partition image carries the same values.
const (
	PartitionID     uint16 = 1
	KernelID        uint16 = 2
	MemoryManagerID uint16 = 3
	StorageProxyID  uint16 = 4
)

// Supported protocol version.
const (
	VersionMajor uint16 = 1
	VersionMinor uint16 = 0
)

// ParamMBZ fills frame words that must be zero.
const ParamMBZ uint64 = 0

// Service result codes returned in word 3 of a composed direct response.
// Negative codes are sign extended into the 64-bit register.
const (
	RetSuccess           int64 = 0
	RetNotSupported      int64 = -1
	RetInvalidParameters int64 = -2
	RetNoMemory          int64 = -3
	RetBusy              int64 = -4
	RetDenied            int64 = -6
	RetNotFound          int64 = -7
	RetAborted           int64 = -8
)

// Memory attribute encoding used by the memory-manager endpoint.
const (
	MemAttrAccessMask uint64 = 0x3
	MemAttrAccessNone uint64 = 0x0
	MemAttrAccessRW   uint64 = 0x1
	MemAttrAccessRO   uint64 = 0x3

	// MemAttrExecNever marks a page non-executable; a cleared bit means
	// executable.
	MemAttrExecNever uint64 = 0x4

	MemAttrAll uint64 = MemAttrAccessMask | MemAttrExecNever
)

// UndefinedMessageCode is the diagnostic panic code reported to the caller
// when the partition sends a message kind the dispatcher does not recognize.
const UndefinedMessageCode uint32 = 0xabcd

// MakeVersion packs a major.minor protocol version into a single word.
func MakeVersion(major, minor uint16) uint64 {
	return uint64(major)<<16 | uint64(minor)
}

// ExecState is the partition execution state exchanged at every privilege
// transition: eight general-purpose words, stack pointer, program counter
// and processor status.
type ExecState struct {
	X   [8]uint64
	SP  uint64
	PC  uint64
	PSR uint64
}

// Function returns the message function identifier in word 0.
func (s *ExecState) Function() uint64 { return s.X[0] }

// SourceID returns the sender endpoint packed in the high half of word 1.
func (s *ExecState) SourceID() uint16 { return uint16(s.X[1] >> 16) }

// DestinationID returns the receiver endpoint in the low half of word 1.
func (s *ExecState) DestinationID() uint16 { return uint16(s.X[1]) }

// ComposeDirectResp rewrites the frame into a direct response to the request
// it currently holds: endpoint identifiers are swapped, the reserved word is
// cleared and ret is placed in the first parameter word.
func (s *ExecState) ComposeDirectResp(ret int64) {
	src := s.SourceID()
	dst := s.DestinationID()

	s.X[0] = FuncMsgSendDirectResp64
	s.X[1] = uint64(dst)<<16 | uint64(src)
	s.X[2] = ParamMBZ
	s.X[3] = uint64(ret)
	s.X[4] = 0
	s.X[5] = 0
	s.X[6] = 0
	s.X[7] = 0
}

// ComposeError rewrites the frame into a protocol error report carrying code
// in word 2.
func (s *ExecState) ComposeError(code int64) {
	s.X[0] = FuncError
	s.X[1] = ParamMBZ
	s.X[2] = uint64(code)
	s.X[3] = ParamMBZ
	s.X[4] = ParamMBZ
	s.X[5] = ParamMBZ
	s.X[6] = ParamMBZ
	s.X[7] = ParamMBZ
}
