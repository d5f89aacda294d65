package evt

// Event parameter views. Each type wraps the parameter bytes of an event,
// i.e. everything after the two byte event header. The plain accessors
// return a default value on short input; use the WErr variants when the
// caller needs to tell.

type CommandComplete []byte
type CommandStatus []byte
type LEMeta []byte
type Vendor []byte
type NumberOfCompletedPackets []byte
type DisconnectionComplete []byte
type LECISEstablished []byte
type HardwareError []byte

func (e CommandComplete) NumHCICommandPackets() uint8 {
	v, _ := e.NumHCICommandPacketsWErr()
	return v
}

func (e CommandComplete) CommandOpcode() uint16 {
	v, _ := e.CommandOpcodeWErr()
	return v
}

func (e CommandComplete) ReturnParameters() []byte {
	v, _ := e.ReturnParametersWErr()
	return v
}

// Status returns the first return parameter, which is the status for
// nearly every command.
func (e CommandComplete) Status() uint8 {
	v, _ := getByte(e, 3, 0x00)
	return v
}

func (e CommandStatus) Status() uint8 {
	v, _ := e.StatusWErr()
	return v
}

func (e CommandStatus) NumHCICommandPackets() uint8 {
	v, _ := e.NumHCICommandPacketsWErr()
	return v
}

func (e CommandStatus) CommandOpcode() uint16 {
	v, _ := e.CommandOpcodeWErr()
	return v
}

// Valid reports whether the event carries all its fixed parameters.
func (e CommandStatus) Valid() bool {
	return len(e) >= 4
}

func (e LEMeta) SubeventCode() uint8 {
	v, _ := e.SubeventCodeWErr()
	return v
}

func (e Vendor) SubeventCode() uint8 {
	v, _ := e.SubeventCodeWErr()
	return v
}

// Per-spec [Vol 4, Part E, 7.7.19] the handle and count arrays are
// interleaved per entry:
//
//     NumOfHandle, HandleA, CompPktNumA, HandleB, CompPktNumB
//              02,   40 00,       01 00,   41 00,       01 00

func (e NumberOfCompletedPackets) NumberOfHandles() uint8 {
	v, _ := e.NumberOfHandlesWErr()
	return v
}

func (e NumberOfCompletedPackets) ConnectionHandle(i int) uint16 {
	v, _ := e.ConnectionHandleWErr(i)
	return v
}

func (e NumberOfCompletedPackets) HCNumOfCompletedPackets(i int) uint16 {
	v, _ := e.HCNumOfCompletedPacketsWErr(i)
	return v
}

func (e DisconnectionComplete) Status() uint8 {
	v, _ := getByte(e, 0, 0xff)
	return v
}

func (e DisconnectionComplete) ConnectionHandle() uint16 {
	v, _ := e.ConnectionHandleWErr()
	return v
}

func (e DisconnectionComplete) Reason() uint8 {
	v, _ := getByte(e, 3, 0)
	return v
}

func (e LECISEstablished) Status() uint8 {
	v, _ := getByte(e, 1, 0xff)
	return v
}

func (e LECISEstablished) ConnectionHandle() uint16 {
	v, _ := e.ConnectionHandleWErr()
	return v
}

func (e HardwareError) HardwareCode() uint8 {
	v, _ := getByte(e, 0, 0)
	return v
}
