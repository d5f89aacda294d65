package cmd

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Reset implements Reset (0x03|0x0003) [Vol 4, Part E, 7.3.2].
type Reset struct{}

func (c *Reset) OpCode() OpCode         { return ResetOpCode }
func (c *Reset) Len() int               { return 0 }
func (c *Reset) Marshal(b []byte) error { return nil }

// SetEventMask implements Set Event Mask (0x03|0x0001) [Vol 4, Part E, 7.3.1].
type SetEventMask struct {
	EventMask uint64
}

func (c *SetEventMask) OpCode() OpCode { return SetEventMaskOpCode }
func (c *SetEventMask) Len() int       { return 8 }
func (c *SetEventMask) Marshal(b []byte) error {
	if len(b) < c.Len() {
		return io.ErrShortBuffer
	}
	binary.LittleEndian.PutUint64(b, c.EventMask)
	return nil
}

// Disconnect implements Disconnect (0x01|0x0006) [Vol 4, Part E, 7.1.6].
type Disconnect struct {
	ConnectionHandle uint16
	Reason           uint8
}

func (c *Disconnect) OpCode() OpCode { return DisconnectOpCode }
func (c *Disconnect) Len() int       { return 3 }
func (c *Disconnect) Marshal(b []byte) error {
	if len(b) < c.Len() {
		return io.ErrShortBuffer
	}
	binary.LittleEndian.PutUint16(b, c.ConnectionHandle)
	b[2] = c.Reason
	return nil
}

// ReadLocalVersionInformation implements (0x04|0x0001) [Vol 4, Part E, 7.4.1].
type ReadLocalVersionInformation struct{}

func (c *ReadLocalVersionInformation) OpCode() OpCode         { return ReadLocalVersionInformationOpCode }
func (c *ReadLocalVersionInformation) Len() int               { return 0 }
func (c *ReadLocalVersionInformation) Marshal(b []byte) error { return nil }

// ReadLocalVersionInformationRP returns the return parameter of Read Local Version Information.
type ReadLocalVersionInformationRP struct {
	Status           uint8
	HCIVersion       uint8
	HCIRevision      uint16
	LMPVersion       uint8
	ManufacturerName uint16
	LMPSubversion    uint16
}

func (rp *ReadLocalVersionInformationRP) Unmarshal(b []byte) error {
	r := reader{b: b}
	rp.Status = r.u8()
	rp.HCIVersion = r.u8()
	rp.HCIRevision = r.u16()
	rp.LMPVersion = r.u8()
	rp.ManufacturerName = r.u16()
	rp.LMPSubversion = r.u16()
	return r.err("read local version information")
}

// ReadBufferSize implements Read Buffer Size (0x04|0x0005) [Vol 4, Part E, 7.4.5].
type ReadBufferSize struct{}

func (c *ReadBufferSize) OpCode() OpCode         { return ReadBufferSizeOpCode }
func (c *ReadBufferSize) Len() int               { return 0 }
func (c *ReadBufferSize) Marshal(b []byte) error { return nil }

// ReadBufferSizeRP returns the return parameter of Read Buffer Size.
type ReadBufferSizeRP struct {
	Status                           uint8
	HCACLDataPacketLength            uint16
	HCSynchronousDataPacketLength    uint8
	HCTotalNumACLDataPackets         uint16
	HCTotalNumSynchronousDataPackets uint16
}

func (rp *ReadBufferSizeRP) Unmarshal(b []byte) error {
	r := reader{b: b}
	rp.Status = r.u8()
	rp.HCACLDataPacketLength = r.u16()
	rp.HCSynchronousDataPacketLength = r.u8()
	rp.HCTotalNumACLDataPackets = r.u16()
	rp.HCTotalNumSynchronousDataPackets = r.u16()
	return r.err("read buffer size")
}

// ReadBDADDR implements Read BD_ADDR (0x04|0x0009) [Vol 4, Part E, 7.4.6].
type ReadBDADDR struct{}

func (c *ReadBDADDR) OpCode() OpCode         { return ReadBDADDROpCode }
func (c *ReadBDADDR) Len() int               { return 0 }
func (c *ReadBDADDR) Marshal(b []byte) error { return nil }

// ReadBDADDRRP returns the return parameter of Read BD_ADDR.
type ReadBDADDRRP struct {
	Status uint8
	BDADDR [6]byte
}

func (rp *ReadBDADDRRP) Unmarshal(b []byte) error {
	r := reader{b: b}
	rp.Status = r.u8()
	copy(rp.BDADDR[:], r.bytes(6))
	return r.err("read bd_addr")
}

// LESetEventMask implements LE Set Event Mask (0x08|0x0001) [Vol 4, Part E, 7.8.1].
type LESetEventMask struct {
	LEEventMask uint64
}

func (c *LESetEventMask) OpCode() OpCode { return LESetEventMaskOpCode }
func (c *LESetEventMask) Len() int       { return 8 }
func (c *LESetEventMask) Marshal(b []byte) error {
	if len(b) < c.Len() {
		return io.ErrShortBuffer
	}
	binary.LittleEndian.PutUint64(b, c.LEEventMask)
	return nil
}

// LEReadBufferSizeV2 implements LE Read Buffer Size v2 (0x08|0x0060) [Vol 4, Part E, 7.8.2].
type LEReadBufferSizeV2 struct{}

func (c *LEReadBufferSizeV2) OpCode() OpCode         { return LEReadBufferSizeV2OpCode }
func (c *LEReadBufferSizeV2) Len() int               { return 0 }
func (c *LEReadBufferSizeV2) Marshal(b []byte) error { return nil }

// LEReadBufferSizeV2RP returns the return parameter of LE Read Buffer Size v2.
type LEReadBufferSizeV2RP struct {
	Status                   uint8
	LEACLDataPacketLength    uint16
	TotalNumLEACLDataPackets uint8
	ISODataPacketLength      uint16
	TotalNumISODataPackets   uint8
}

func (rp *LEReadBufferSizeV2RP) Unmarshal(b []byte) error {
	r := reader{b: b}
	rp.Status = r.u8()
	rp.LEACLDataPacketLength = r.u16()
	rp.TotalNumLEACLDataPackets = r.u8()
	rp.ISODataPacketLength = r.u16()
	rp.TotalNumISODataPackets = r.u8()
	return r.err("le read buffer size v2")
}

// LEReadISOTxSync implements LE Read ISO TX Sync (0x08|0x0061) [Vol 4, Part E, 7.8.96].
type LEReadISOTxSync struct {
	ConnectionHandle uint16
}

func (c *LEReadISOTxSync) OpCode() OpCode { return LEReadISOTxSyncOpCode }
func (c *LEReadISOTxSync) Len() int       { return 2 }
func (c *LEReadISOTxSync) Marshal(b []byte) error {
	if len(b) < c.Len() {
		return io.ErrShortBuffer
	}
	binary.LittleEndian.PutUint16(b, c.ConnectionHandle)
	return nil
}

// LEReadISOTxSyncRP returns the return parameter of LE Read ISO TX Sync.
type LEReadISOTxSyncRP struct {
	Status               uint8
	ConnectionHandle     uint16
	PacketSequenceNumber uint16
	TxTimeStamp          uint32
	TimeOffset           uint32
}

func (rp *LEReadISOTxSyncRP) Unmarshal(b []byte) error {
	r := reader{b: b}
	rp.Status = r.u8()
	rp.ConnectionHandle = r.u16()
	rp.PacketSequenceNumber = r.u16()
	rp.TxTimeStamp = r.u32()
	rp.TimeOffset = r.u24()
	return r.err("le read iso tx sync")
}

// CISParameters configures one CIS of a CIG.
type CISParameters struct {
	CISID      uint8
	MaxSDUCToP uint16
	MaxSDUPToC uint16
	PHYCToP    uint8
	PHYPToC    uint8
	RTNCToP    uint8
	RTNPToC    uint8
}

// LESetCIGParameters implements LE Set CIG Parameters (0x08|0x0062) [Vol 4, Part E, 7.8.97].
type LESetCIGParameters struct {
	CIGID                   uint8
	SDUIntervalCToP         uint32 // 24 bits
	SDUIntervalPToC         uint32 // 24 bits
	WorstCaseSCA            uint8
	Packing                 uint8
	Framing                 uint8
	MaxTransportLatencyCToP uint16
	MaxTransportLatencyPToC uint16
	CIS                     []CISParameters
}

func (c *LESetCIGParameters) OpCode() OpCode { return LESetCIGParametersOpCode }
func (c *LESetCIGParameters) Len() int       { return 15 + 9*len(c.CIS) }
func (c *LESetCIGParameters) Marshal(b []byte) error {
	if len(b) < c.Len() {
		return io.ErrShortBuffer
	}
	w := writer{b: b}
	w.u8(c.CIGID)
	w.u24(c.SDUIntervalCToP)
	w.u24(c.SDUIntervalPToC)
	w.u8(c.WorstCaseSCA)
	w.u8(c.Packing)
	w.u8(c.Framing)
	w.u16(c.MaxTransportLatencyCToP)
	w.u16(c.MaxTransportLatencyPToC)
	w.u8(uint8(len(c.CIS)))
	for _, p := range c.CIS {
		w.u8(p.CISID)
		w.u16(p.MaxSDUCToP)
		w.u16(p.MaxSDUPToC)
		w.u8(p.PHYCToP)
		w.u8(p.PHYPToC)
		w.u8(p.RTNCToP)
		w.u8(p.RTNPToC)
	}
	return nil
}

// LESetCIGParametersRP returns the return parameter of LE Set CIG Parameters.
type LESetCIGParametersRP struct {
	Status            uint8
	CIGID             uint8
	ConnectionHandles []uint16
}

func (rp *LESetCIGParametersRP) Unmarshal(b []byte) error {
	r := reader{b: b}
	rp.Status = r.u8()
	if rp.Status != 0x00 {
		// only the status is guaranteed on failure
		return nil
	}
	rp.CIGID = r.u8()
	n := int(r.u8())
	rp.ConnectionHandles = make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		rp.ConnectionHandles = append(rp.ConnectionHandles, r.u16())
	}
	return r.err("le set cig parameters")
}

// CISConnection pairs a configured CIS with the ACL it is created on.
type CISConnection struct {
	CISConnectionHandle uint16
	ACLConnectionHandle uint16
}

// LECreateCIS implements LE Create CIS (0x08|0x0064) [Vol 4, Part E, 7.8.99].
// The controller answers with Command Status, then one LE CIS Established
// subevent per CIS.
type LECreateCIS struct {
	CIS []CISConnection
}

func (c *LECreateCIS) OpCode() OpCode { return LECreateCISOpCode }
func (c *LECreateCIS) Len() int       { return 1 + 4*len(c.CIS) }
func (c *LECreateCIS) Marshal(b []byte) error {
	if len(b) < c.Len() {
		return io.ErrShortBuffer
	}
	w := writer{b: b}
	w.u8(uint8(len(c.CIS)))
	for _, p := range c.CIS {
		w.u16(p.CISConnectionHandle)
		w.u16(p.ACLConnectionHandle)
	}
	return nil
}

// LERemoveCIG implements LE Remove CIG (0x08|0x0065) [Vol 4, Part E, 7.8.100].
type LERemoveCIG struct {
	CIGID uint8
}

func (c *LERemoveCIG) OpCode() OpCode { return LERemoveCIGOpCode }
func (c *LERemoveCIG) Len() int       { return 1 }
func (c *LERemoveCIG) Marshal(b []byte) error {
	if len(b) < c.Len() {
		return io.ErrShortBuffer
	}
	b[0] = c.CIGID
	return nil
}

// LESetupISODataPath implements LE Setup ISO Data Path (0x08|0x006E) [Vol 4, Part E, 7.8.109].
type LESetupISODataPath struct {
	ConnectionHandle   uint16
	DataPathDirection  uint8
	DataPathID         uint8
	CodecID            [5]byte
	ControllerDelay    uint32 // 24 bits
	CodecConfiguration []byte
}

func (c *LESetupISODataPath) OpCode() OpCode { return LESetupISODataPathOpCode }
func (c *LESetupISODataPath) Len() int       { return 13 + len(c.CodecConfiguration) }
func (c *LESetupISODataPath) Marshal(b []byte) error {
	if len(b) < c.Len() {
		return io.ErrShortBuffer
	}
	w := writer{b: b}
	w.u16(c.ConnectionHandle)
	w.u8(c.DataPathDirection)
	w.u8(c.DataPathID)
	w.raw(c.CodecID[:])
	w.u24(c.ControllerDelay)
	w.u8(uint8(len(c.CodecConfiguration)))
	w.raw(c.CodecConfiguration)
	return nil
}

// StatusRP is the return parameter of commands that only report a status,
// optionally followed by fields the caller does not need.
type StatusRP struct {
	Status uint8
}

func (rp *StatusRP) Unmarshal(b []byte) error {
	r := reader{b: b}
	rp.Status = r.u8()
	return r.err("status")
}

type writer struct {
	b []byte
	o int
}

func (w *writer) u8(v uint8) {
	w.b[w.o] = v
	w.o++
}

func (w *writer) u16(v uint16) {
	binary.LittleEndian.PutUint16(w.b[w.o:], v)
	w.o += 2
}

func (w *writer) u24(v uint32) {
	w.b[w.o] = byte(v)
	w.b[w.o+1] = byte(v >> 8)
	w.b[w.o+2] = byte(v >> 16)
	w.o += 3
}

func (w *writer) raw(v []byte) {
	w.o += copy(w.b[w.o:], v)
}

// reader decodes little endian fields and remembers the first short read.
type reader struct {
	b     []byte
	o     int
	short bool
}

func (r *reader) bytes(n int) []byte {
	if r.short || r.o+n > len(r.b) {
		r.short = true
		return make([]byte, n)
	}
	v := r.b[r.o : r.o+n]
	r.o += n
	return v
}

func (r *reader) u8() uint8   { return r.bytes(1)[0] }
func (r *reader) u16() uint16 { return binary.LittleEndian.Uint16(r.bytes(2)) }
func (r *reader) u32() uint32 { return binary.LittleEndian.Uint32(r.bytes(4)) }

func (r *reader) u24() uint32 {
	v := r.bytes(3)
	return uint32(v[0]) | uint32(v[1])<<8 | uint32(v[2])<<16
}

func (r *reader) err(what string) error {
	if r.short {
		return errors.Wrapf(io.ErrUnexpectedEOF, "%s: return parameters [% X]", what, r.b)
	}
	return nil
}
