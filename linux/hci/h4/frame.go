package h4

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/hcicore/linux/hci"
)

const (
	headerOffsetIndicator = 0

	eventHeaderLength = 3 // indicator, event code, parameter length
	dataHeaderLength  = 5 // indicator, handle and flags, data length

	// a partial frame older than this is discarded
	frameTimeout = 500 * time.Millisecond
)

var errIncomplete = errors.New("not enough bytes")

// frame reassembles H4 packets from the byte stream of a UART or TCP link.
// Each complete packet, indicator included, is handed to out.
type frame struct {
	b       []byte
	timeout time.Time
	pktType byte
	out     func([]byte)
}

func newFrame(out func([]byte)) *frame {
	f := &frame{out: out}
	f.reset()
	return f
}

func (f *frame) Assemble(b []byte) {
	for len(b) > 0 {
		if len(f.b) != 0 && time.Now().After(f.timeout) {
			Logger.Debugf("discarding stale partial frame [% X]", f.b)
			f.reset()
		}

		if len(f.b) == 0 {
			i := f.waitStart(b)
			if i < 0 {
				Logger.Debugf("no packet indicator in [% X]", b)
				return
			}
			b = b[i:]
		}

		f.b = append(f.b, b...)
		b = nil

		for len(f.b) > 0 {
			tl, err := f.length()
			if err != nil || len(f.b) < tl {
				break
			}

			out := make([]byte, tl)
			copy(out, f.b)
			rem := f.b[tl:]
			f.reset()
			f.out(out)

			if len(rem) > 0 {
				// the remainder may need hunting for a start byte again
				b = append([]byte(nil), rem...)
				break
			}
		}
	}
}

func (f *frame) reset() {
	f.b = make([]byte, 0, 256)
	f.timeout = time.Time{}
	f.pktType = 0
}

// waitStart returns the offset of the first packet indicator in b.
func (f *frame) waitStart(b []byte) int {
	for i, v := range b {
		switch v {
		case hci.PktTypeEvent, hci.PktTypeACLData, hci.PktTypeISOData:
		default:
			continue
		}

		f.pktType = v
		f.timeout = time.Now().Add(frameTimeout)
		return i
	}
	return -1
}

// length returns the size of the whole packet at the head of the buffer.
func (f *frame) length() (int, error) {
	switch f.pktType {
	case hci.PktTypeEvent:
		if len(f.b) < eventHeaderLength {
			return 0, errIncomplete
		}
		return int(f.b[2]) + eventHeaderLength, nil

	case hci.PktTypeACLData:
		if len(f.b) < dataHeaderLength {
			return 0, errIncomplete
		}
		return (int(f.b[3]) | int(f.b[4])<<8) + dataHeaderLength, nil

	case hci.PktTypeISOData:
		if len(f.b) < dataHeaderLength {
			return 0, errIncomplete
		}
		return (int(f.b[3]) | int(f.b[4]&0x3f)<<8) + dataHeaderLength, nil

	default:
		return 0, errors.Errorf("invalid packet type 0x%02X", f.b[headerOffsetIndicator])
	}
}
