package cmd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// CustomCommand carries an arbitrary payload under a vendor specific opcode.
// Payload is encoded with encoding/binary in little endian order.
type CustomCommand struct {
	Payload interface{}
	opCode  OpCode
	length  int
}

// NewVendorCommand builds a command in the vendor specific group (OGF 0x3F).
func NewVendorCommand(ocf uint16, length uint8, payload interface{}) (*CustomCommand, error) {
	if ocf > ocfMask {
		return nil, errors.Errorf("invalid ocf 0x%04X", ocf)
	}
	if payload == nil && length != 0 {
		return nil, errors.Errorf("nil payload with length %v", length)
	}
	if payload != nil {
		if sz := binary.Size(payload); sz != int(length) {
			return nil, errors.Errorf("payload encodes to %d bytes, length is %d", sz, length)
		}
	}
	return &CustomCommand{
		opCode:  NewOpCode(OGFVendorSpecific, ocf),
		length:  int(length),
		Payload: payload,
	}, nil
}

func (c *CustomCommand) OpCode() OpCode {
	return c.opCode
}

func (c *CustomCommand) Len() int {
	return c.length
}

func (c *CustomCommand) Marshal(b []byte) error {
	if c.length == 0 {
		return nil
	}

	buf := bytes.NewBuffer(b)
	buf.Reset()
	if buf.Cap() < c.Len() {
		return io.ErrShortBuffer
	}

	return binary.Write(buf, binary.LittleEndian, c.Payload)
}

func (c *CustomCommand) String() string {
	return fmt.Sprintf("Custom Command (0x%02x|0x%04x); Payload (%02x)", c.opCode.OGF(), c.opCode.OCF(), c.Payload)
}
