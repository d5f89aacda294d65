package h4

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rigado/hcicore"
	"github.com/rigado/hcicore/linux/hci"
)

// ErrClosed is returned by Err after Close.
var ErrClosed = errors.New("h4 link closed")

// Link carries HCI packets over an H4 byte stream. A read goroutine
// reassembles packets and posts each one to the dispatcher, where the
// registered callbacks run. Writes happen on the caller's goroutine.
//
// Link implements hci.CommandTransport; ACL and ISO return the data
// transports for the two data packet types.
type Link struct {
	rwc    io.ReadWriteCloser
	d      *hci.Dispatcher
	logger hcicore.Logger

	wmu sync.Mutex

	// callbacks; only touched on the dispatch sequence
	onEvent func([]byte)
	onACL   func([]byte)
	onISO   func([]byte)
	onError func(error)

	mu   sync.Mutex
	err  error
	done chan struct{}
	exit chan struct{}
}

// NewLink starts reading rwc. onError, if not nil, is called on the
// dispatch sequence once the link fails.
func NewLink(rwc io.ReadWriteCloser, d *hci.Dispatcher, onError func(error)) *Link {
	l := &Link{
		rwc:     rwc,
		d:       d,
		logger:  Logger,
		onError: onError,
		done:    make(chan struct{}),
		exit:    make(chan struct{}),
	}
	go l.readLoop()
	return l
}

// SendCommand writes a command packet. Write errors fail the link.
func (l *Link) SendCommand(b []byte) {
	l.write(hci.PktTypeCommand, b)
}

func (l *Link) SetEventCallback(cb func([]byte)) {
	l.onEvent = cb
}

// ACL returns the ACL data transport of the link.
func (l *Link) ACL() hci.DataTransport {
	return &dataLink{l: l, pktType: hci.PktTypeACLData}
}

// ISO returns the ISO data transport of the link.
func (l *Link) ISO() hci.DataTransport {
	return &dataLink{l: l, pktType: hci.PktTypeISOData}
}

// Done is closed when the link fails or is closed.
func (l *Link) Done() <-chan struct{} {
	return l.done
}

// Err returns the error that ended the link, if any.
func (l *Link) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close stops the read loop and closes the underlying stream.
func (l *Link) Close() error {
	err := l.fail(ErrClosed)
	<-l.exit
	return err
}

func (l *Link) write(pktType byte, b []byte) {
	select {
	case <-l.done:
		l.logger.Debugf("link closed, dropping packet type 0x%02X", pktType)
		return
	default:
	}

	p := make([]byte, 0, 1+len(b))
	p = append(p, pktType)
	p = append(p, b...)

	l.wmu.Lock()
	_, err := l.rwc.Write(p)
	l.wmu.Unlock()
	if err != nil {
		l.fail(errors.Wrap(err, "can't write h4"))
	}
}

// fail records the first error, closes the stream and reports the error.
func (l *Link) fail(err error) error {
	l.mu.Lock()
	if l.err != nil {
		l.mu.Unlock()
		return nil
	}
	l.err = err
	close(l.done)
	l.mu.Unlock()

	cerr := l.rwc.Close()
	if err != ErrClosed {
		l.logger.Errorf("link failed: %v", err)
		l.d.Post(func() {
			if l.onError != nil {
				l.onError(err)
			}
		})
	}
	return errors.Wrap(cerr, "can't close h4")
}

func (l *Link) readLoop() {
	defer close(l.exit)

	fr := newFrame(l.dispatch)
	b := make([]byte, 4096)

	for {
		n, err := l.rwc.Read(b)

		select {
		case <-l.done:
			return
		default:
		}

		switch {
		case n == 0 && err == nil:
			// read timeout
			continue

		case err == io.EOF:
			l.fail(err)
			return

		case err != nil:
			l.fail(errors.Wrap(err, "can't read h4"))
			return

		default:
			fr.Assemble(b[:n])
		}
	}
}

// dispatch posts one complete packet to the sequence.
func (l *Link) dispatch(p []byte) {
	t, b := p[0], p[1:]
	l.d.Post(func() {
		var cb func([]byte)
		switch t {
		case hci.PktTypeEvent:
			cb = l.onEvent
		case hci.PktTypeACLData:
			cb = l.onACL
		case hci.PktTypeISOData:
			cb = l.onISO
		}
		if cb == nil {
			l.logger.Debugf("no receiver for packet type 0x%02X [% X]", t, b)
			return
		}
		cb(b)
	})
}

type dataLink struct {
	l       *Link
	pktType byte
}

func (d *dataLink) SendData(b []byte) {
	d.l.write(d.pktType, b)
}

func (d *dataLink) SetReceiveDataCallback(cb func([]byte)) {
	switch d.pktType {
	case hci.PktTypeACLData:
		d.l.onACL = cb
	case hci.PktTypeISOData:
		d.l.onISO = cb
	}
}
