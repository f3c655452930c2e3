package ffa

// DirectMessage is one synchronous call or response carried in a register
// frame. It is transient: it exists only for the duration of a single
// transition round trip and is never persisted.
type DirectMessage struct {
	Function    uint64
	Source      uint16
	Destination uint16
	Params      [5]uint64
}

// DecodeMessage extracts the direct message held in a frame.
func DecodeMessage(s *ExecState) DirectMessage {
	return DirectMessage{
		Function:    s.X[0],
		Source:      s.SourceID(),
		Destination: s.DestinationID(),
		Params:      [5]uint64{s.X[3], s.X[4], s.X[5], s.X[6], s.X[7]},
	}
}

// EncodeInto writes the message into a frame, clearing the reserved word.
func (m DirectMessage) EncodeInto(s *ExecState) {
	s.X[0] = m.Function
	s.X[1] = uint64(m.Source)<<16 | uint64(m.Destination)
	s.X[2] = ParamMBZ
	s.X[3] = m.Params[0]
	s.X[4] = m.Params[1]
	s.X[5] = m.Params[2]
	s.X[6] = m.Params[3]
	s.X[7] = m.Params[4]
}
