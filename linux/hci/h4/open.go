package h4

import (
	"io"
	"net"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
)

// DefaultBaudRate is used when no rate is configured.
const DefaultBaudRate = 1000000

// DefaultSerialOptions returns 8N1 options with hardware flow control, as
// H4 requires [Vol 4, Part A, 1].
func DefaultSerialOptions() serial.OpenOptions {
	return serial.OpenOptions{
		BaudRate:              DefaultBaudRate,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		RTSCTSFlowControl:     true,
		MinimumReadSize:       0,
		InterCharacterTimeout: 100,
	}
}

// NewSerial opens a UART. Reads return after InterCharacterTimeout
// milliseconds without data, so the read loop can notice Close.
func NewSerial(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	// force these
	opts.MinimumReadSize = 0
	if opts.InterCharacterTimeout == 0 {
		opts.InterCharacterTimeout = 100
	}

	Logger.Infof("opening %v at %d baud", opts.PortName, opts.BaudRate)
	sp, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %v", opts.PortName)
	}
	return &serialPort{sp}, nil
}

// serialPort reports an idle read as (0, nil) rather than io.EOF.
type serialPort struct {
	io.ReadWriteCloser
}

func (s *serialPort) Read(b []byte) (int, error) {
	n, err := s.ReadWriteCloser.Read(b)
	if n == 0 && err == io.EOF {
		return 0, nil
	}
	return n, err
}

// NewSocket connects to a controller exposing H4 over TCP, such as a
// virtual controller or a serial-to-network bridge.
func NewSocket(addr string, timeout time.Duration) (io.ReadWriteCloser, error) {
	Logger.Infof("dialing %v", addr)
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "can't dial %v", addr)
	}
	return &connWithTimeout{c: c, timeout: timeout}, nil
}
