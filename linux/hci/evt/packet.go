package evt

import (
	"fmt"

	"github.com/pkg/errors"
)

// HeaderLen is the size of the event header: event code and parameter
// total length [Vol 4, Part E, 5.4.4].
const HeaderLen = 2

var (
	// ErrShortPacket is returned for frames that cannot hold an event header.
	ErrShortPacket = errors.New("event packet too short")

	// ErrLengthMismatch is returned when the header length disagrees with
	// the number of parameter bytes received.
	ErrLengthMismatch = errors.New("event parameter length mismatch")
)

// Packet is a complete HCI event, header included.
type Packet []byte

// Parse validates the fixed header of b. The returned Packet aliases b.
func Parse(b []byte) (Packet, error) {
	if len(b) < HeaderLen {
		return nil, errors.Wrapf(ErrShortPacket, "% X", b)
	}
	if plen := int(b[1]); plen != len(b)-HeaderLen {
		return nil, errors.Wrapf(ErrLengthMismatch, "header %d, have %d: % X", plen, len(b)-HeaderLen, b)
	}
	return Packet(b), nil
}

// NewPacket builds an event from its code and parameters.
func NewPacket(code uint8, params []byte) Packet {
	if len(params) > 0xff {
		panic(fmt.Sprintf("event parameters too long: %d", len(params)))
	}
	b := make([]byte, HeaderLen+len(params))
	b[0] = code
	b[1] = byte(len(params))
	copy(b[HeaderLen:], params)
	return b
}

func (p Packet) Code() uint8 { return p[0] }

func (p Packet) Params() []byte { return p[HeaderLen:] }

func (p Packet) CommandComplete() CommandComplete { return CommandComplete(p.Params()) }

func (p Packet) CommandStatus() CommandStatus { return CommandStatus(p.Params()) }

func (p Packet) LEMeta() LEMeta { return LEMeta(p.Params()) }

func (p Packet) Vendor() Vendor { return Vendor(p.Params()) }

func (p Packet) NumberOfCompletedPackets() NumberOfCompletedPackets {
	return NumberOfCompletedPackets(p.Params())
}

func (p Packet) String() string {
	return fmt.Sprintf("event 0x%02X plen %d [% X]", p.Code(), len(p.Params()), p.Params())
}
