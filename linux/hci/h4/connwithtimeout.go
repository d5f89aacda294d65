package h4

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// connWithTimeout bounds each read and write, so the read loop notices Close.
type connWithTimeout struct {
	c       net.Conn
	timeout time.Duration
}

func (cwt *connWithTimeout) Read(b []byte) (int, error) {
	if err := cwt.c.SetReadDeadline(time.Now().Add(cwt.timeout)); err != nil {
		return 0, err
	}
	n, err := cwt.c.Read(b)
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		// idle, not an error
		return n, nil
	}
	return n, err
}

func (cwt *connWithTimeout) Write(b []byte) (int, error) {
	if err := cwt.c.SetWriteDeadline(time.Now().Add(cwt.timeout)); err != nil {
		return 0, err
	}
	return cwt.c.Write(b)
}

func (cwt *connWithTimeout) Close() error {
	return cwt.c.Close()
}
