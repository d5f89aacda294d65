package iso

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// HeaderLen is the size of the ISO data packet header [Vol 4, Part E, 5.4.5].
const HeaderLen = 4

// MaxHandle is the largest connection handle the 12 bit field can carry.
const MaxHandle = 0x0EFF

// MaxDataLoadLength is the largest load the 14 bit length field can carry.
const MaxDataLoadLength = 0x3FFF

// PacketBoundary is the PB_Flag of an ISO data packet.
type PacketBoundary uint8

const (
	FirstFragment        PacketBoundary = 0x00
	ContinuationFragment PacketBoundary = 0x01
	CompleteSDU          PacketBoundary = 0x02
	LastFragment         PacketBoundary = 0x03
)

func (pb PacketBoundary) String() string {
	switch pb {
	case FirstFragment:
		return "first"
	case ContinuationFragment:
		return "continuation"
	case CompleteSDU:
		return "complete"
	case LastFragment:
		return "last"
	default:
		return fmt.Sprintf("PacketBoundary(%d)", uint8(pb))
	}
}

// Packet implements HCI ISO Data Packet [Vol 4, Part E, 5.4.5].
//
//	bits 0-11 handle, 12-13 PB_Flag, 14 TS_Flag, 15 RFU
//	bits 16-29 ISO_Data_Load_Length, 30-31 RFU
type Packet []byte

// ParsePacket checks the header of b against its length. The returned
// Packet aliases b.
func ParsePacket(b []byte) (Packet, error) {
	if len(b) < HeaderLen {
		return nil, errors.Wrapf(ErrMalformedPacket, "short header [% X]", b)
	}
	p := Packet(b)
	if p.DataLoadLength() != len(b)-HeaderLen {
		return nil, errors.Wrapf(ErrMalformedPacket, "header length %d, have %d", p.DataLoadLength(), len(b)-HeaderLen)
	}
	return p, nil
}

// NewPacket builds an ISO data packet around load.
func NewPacket(handle uint16, pb PacketBoundary, ts bool, load []byte) (Packet, error) {
	if handle > MaxHandle {
		return nil, errors.Errorf("invalid connection handle 0x%04X", handle)
	}
	if len(load) > MaxDataLoadLength {
		return nil, errors.Wrapf(ErrPacketTooLarge, "data load of %d bytes", len(load))
	}

	hf := handle | uint16(pb&0x03)<<12
	if ts {
		hf |= 1 << 14
	}
	b := make([]byte, HeaderLen+len(load))
	binary.LittleEndian.PutUint16(b, hf)
	binary.LittleEndian.PutUint16(b[2:], uint16(len(load)))
	copy(b[HeaderLen:], load)
	return b, nil
}

func (p Packet) Handle() uint16 { return binary.LittleEndian.Uint16(p) & 0x0FFF }

func (p Packet) PacketBoundary() PacketBoundary { return PacketBoundary(p[1]>>4) & 0x03 }

// TimeStamped reports whether the load starts with a Time_Stamp field.
func (p Packet) TimeStamped() bool { return p[1]&0x40 != 0 }

func (p Packet) DataLoadLength() int { return int(binary.LittleEndian.Uint16(p[2:]) & MaxDataLoadLength) }

// DataLoad returns everything after the header: the optional time stamp,
// the packet sequence number and SDU length of a first fragment, and the
// SDU bytes.
func (p Packet) DataLoad() []byte { return p[HeaderLen:] }

func (p Packet) String() string {
	return fmt.Sprintf("iso handle 0x%03X pb %v ts %v len %d", p.Handle(), p.PacketBoundary(), p.TimeStamped(), p.DataLoadLength())
}
