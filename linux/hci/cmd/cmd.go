package cmd

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// OpCode identifies an HCI command: OGF in the upper 6 bits, OCF in the
// lower 10 [Vol 4, Part E, 5.4.1].
type OpCode uint16

// NoOp is the opcode a controller uses in Command Complete/Status events
// that carry only flow control information.
const NoOp OpCode = 0x0000

// Command groups.
const (
	OGFLinkControl     = 0x01
	OGFControllerBB    = 0x03
	OGFInformational   = 0x04
	OGFLEController    = 0x08
	OGFVendorSpecific  = 0x3F
	ogfBitShift        = 10
	ocfMask            = 0x03FF
	HeaderLen          = 3
	MaxParameterLength = 0xFF
	MaxPacketLength    = HeaderLen + MaxParameterLength
)

const errInvalidPacket = "invalid command packet"

// NewOpCode composes an opcode from its group and command fields.
func NewOpCode(ogf, ocf uint16) OpCode {
	return OpCode(ogf<<ogfBitShift | ocf&ocfMask)
}

func (o OpCode) OGF() uint16 { return uint16(o) >> ogfBitShift }
func (o OpCode) OCF() uint16 { return uint16(o) & ocfMask }

func (o OpCode) String() string {
	if n, ok := names[o]; ok {
		return fmt.Sprintf("%s (0x%02X|0x%04X)", n, o.OGF(), o.OCF())
	}
	return fmt.Sprintf("0x%04X (0x%02X|0x%04X)", uint16(o), o.OGF(), o.OCF())
}

// Command is a structured HCI command.
type Command interface {
	OpCode() OpCode
	Len() int
	Marshal([]byte) error
}

// ReturnParameters decodes the return parameters of a Command Complete.
type ReturnParameters interface {
	Unmarshal(b []byte) error
}

// Encode builds the outbound frame {opcode LE, parameter length, params}.
func Encode(c Command) ([]byte, error) {
	l := c.Len()
	if l < 0 || l > MaxParameterLength {
		return nil, errors.Errorf("%v: parameter length %d out of range", c.OpCode(), l)
	}
	b := make([]byte, HeaderLen+l)
	binary.LittleEndian.PutUint16(b, uint16(c.OpCode()))
	b[2] = byte(l)
	if err := c.Marshal(b[HeaderLen:]); err != nil {
		return nil, errors.Wrapf(err, "can't marshal %v", c.OpCode())
	}
	return b, nil
}

// Packet is either a pre-encoded command frame or a structured Command.
// Exactly one of the two forms is set.
type Packet struct {
	raw []byte
	cmd Command
}

// Raw wraps a copy of an already encoded command frame after checking its
// header.
func Raw(b []byte) (Packet, error) {
	if len(b) < HeaderLen {
		return Packet{}, errors.Errorf("%s: short header [% X]", errInvalidPacket, b)
	}
	if int(b[2]) != len(b)-HeaderLen {
		return Packet{}, errors.Errorf("%s: header length %d, have %d", errInvalidPacket, b[2], len(b)-HeaderLen)
	}
	return Packet{raw: append([]byte(nil), b...)}, nil
}

// FromCommand wraps a structured command; it is encoded on Bytes.
func FromCommand(c Command) Packet {
	return Packet{cmd: c}
}

func (p Packet) OpCode() OpCode {
	switch {
	case p.cmd != nil:
		return p.cmd.OpCode()
	case len(p.raw) >= 2:
		return OpCode(binary.LittleEndian.Uint16(p.raw))
	default:
		return NoOp
	}
}

// Command returns the structured view, if the packet was built from one.
func (p Packet) Command() (Command, bool) {
	return p.cmd, p.cmd != nil
}

// Bytes returns the wire form of the packet.
func (p Packet) Bytes() ([]byte, error) {
	switch {
	case p.cmd != nil:
		return Encode(p.cmd)
	case p.raw != nil:
		return p.raw, nil
	default:
		return nil, errors.New("empty command packet")
	}
}
