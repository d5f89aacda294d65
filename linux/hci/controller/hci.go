package controller

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rigado/hcicore"
	"github.com/rigado/hcicore/linux/hci"
	"github.com/rigado/hcicore/linux/hci/cmd"
	"github.com/rigado/hcicore/linux/hci/h4"
	"github.com/rigado/hcicore/linux/hci/iso"
	"github.com/rigado/hcicore/sliceops"
)

const (
	// event masks applied at bring-up [Vol 4, Part E, 7.3.1 and 7.8.1]
	defaultEventMask   = 0x3dbff807fffbffff
	defaultLEEventMask = 0x000000000000001F | 1<<(0x19-1) | 1<<(0x1A-1)
)

// HCI brings up a controller and owns the dispatcher, command channel and
// ISO data channel talking to it.
type HCI struct {
	transport transport
	open      func() (io.ReadWriteCloser, error)

	timeout      time.Duration
	reg          prometheus.Registerer
	logger       hcicore.Logger
	errorHandler func(error)

	d       *hci.Dispatcher
	link    *h4.Link
	cmd     *hci.CommandChannel
	iso     *iso.DataChannel
	metrics *hci.Metrics

	addr    net.HardwareAddr
	version cmd.ReadLocalVersionInformationRP
	aclBuf  iso.BufferInfo
	isoBuf  iso.BufferInfo

	handlers []hci.HandlerID

	muClose sync.Mutex
	done    chan struct{}
	err     error
}

// New returns a controller configured by opts. Nothing is opened until Init.
func New(opts ...hcicore.Option) (*HCI, error) {
	h := &HCI{
		timeout: hci.DefaultCommandTimeout,
		logger:  hci.Logger.ChildLogger(map[string]interface{}{"component": "controller"}),
		done:    make(chan struct{}),
	}
	if err := h.Option(opts...); err != nil {
		return nil, errors.Wrap(err, "can't set options")
	}
	return h, nil
}

// Option sets the options specified.
func (h *HCI) Option(opts ...hcicore.Option) error {
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return err
		}
	}
	return nil
}

// Init opens the transport, starts the command channel and runs the
// bring-up sequence. The ISO data channel is created if the controller
// has ISO buffers.
func (h *HCI) Init(ctx context.Context) error {
	open := h.open
	if open == nil {
		open = h.transport.open
	}
	rwc, err := open()
	if err != nil {
		return errors.Wrap(err, "can't open transport")
	}

	if h.reg != nil {
		if h.metrics, err = hci.NewMetrics(h.reg); err != nil {
			rwc.Close()
			return err
		}
	}

	h.d = hci.NewDispatcher()
	h.link = h4.NewLink(rwc, h.d, h.dispatchError)

	var cerr error
	err = h.d.Do(ctx, func() {
		h.cmd, cerr = hci.NewCommandChannel(h.link, h.d,
			hci.OptCommandTimeout(h.timeout),
			hci.OptLogger(h.logger.ChildLogger(map[string]interface{}{"component": "cmd"})),
			hci.OptMetrics(h.metrics),
			hci.OptFatalErrorHandler(h.dispatchError),
		)
		if cerr != nil {
			return
		}
		h.addHandlers()
	})
	if err == nil {
		err = cerr
	}
	if err != nil {
		h.Close()
		return errors.Wrap(err, "can't start command channel")
	}

	if err := h.init(ctx); err != nil {
		h.Close()
		return err
	}
	return nil
}

func (h *HCI) init(ctx context.Context) error {
	h.logger.Info("hci reset")
	if err := h.Send(ctx, &cmd.Reset{}, nil); err != nil {
		return errors.Wrap(err, "reset")
	}

	ReadBDADDRRP := cmd.ReadBDADDRRP{}
	if err := h.Send(ctx, &cmd.ReadBDADDR{}, &ReadBDADDRRP); err != nil {
		return errors.Wrap(err, "read bd_addr")
	}
	h.addr = net.HardwareAddr(sliceops.Reverse(ReadBDADDRRP.BDADDR[:]))

	if err := h.Send(ctx, &cmd.ReadLocalVersionInformation{}, &h.version); err != nil {
		return errors.Wrap(err, "read local version information")
	}

	//ES note: Per Core Spec 5.0, Part E, 7.4.5
	//This command is _not_ to be supported by LE only controllers
	ReadBufferSizeRP := cmd.ReadBufferSizeRP{}
	if err := h.Send(ctx, &cmd.ReadBufferSize{}, &ReadBufferSizeRP); err == nil {
		h.aclBuf = iso.BufferInfo{
			MaxDataLength: int(ReadBufferSizeRP.HCACLDataPacketLength),
			MaxNumPackets: int(ReadBufferSizeRP.HCTotalNumACLDataPackets),
		}
	} else if errors.Cause(err) != hci.ErrUnknownCommand {
		return errors.Wrap(err, "read buffer size")
	}

	LEReadBufferSizeRP := cmd.LEReadBufferSizeV2RP{}
	if err := h.Send(ctx, &cmd.LEReadBufferSizeV2{}, &LEReadBufferSizeRP); err == nil {
		if LEReadBufferSizeRP.TotalNumLEACLDataPackets != 0 {
			// Okay, LE-U do have their own buffers.
			h.aclBuf = iso.BufferInfo{
				MaxDataLength: int(LEReadBufferSizeRP.LEACLDataPacketLength),
				MaxNumPackets: int(LEReadBufferSizeRP.TotalNumLEACLDataPackets),
			}
		}
		h.isoBuf = iso.BufferInfo{
			MaxDataLength: int(LEReadBufferSizeRP.ISODataPacketLength),
			MaxNumPackets: int(LEReadBufferSizeRP.TotalNumISODataPackets),
		}
	} else if errors.Cause(err) == hci.ErrUnknownCommand {
		h.logger.Warn("controller does not support iso channels")
	} else {
		return errors.Wrap(err, "le read buffer size v2")
	}

	if err := h.Send(ctx, &cmd.SetEventMask{EventMask: defaultEventMask}, nil); err != nil {
		return errors.Wrap(err, "set event mask")
	}
	if err := h.Send(ctx, &cmd.LESetEventMask{LEEventMask: defaultLEEventMask}, nil); err != nil {
		return errors.Wrap(err, "le set event mask")
	}

	if h.isoBuf.MaxNumPackets > 0 {
		var err error
		derr := h.d.Do(ctx, func() {
			h.iso, err = iso.NewDataChannel(h.cmd, h.link.ISO(), h.isoBuf,
				iso.OptLogger(h.logger.ChildLogger(map[string]interface{}{"component": "iso"})),
				iso.OptMetrics(h.metrics),
			)
		})
		if derr != nil {
			return derr
		}
		if err != nil {
			return errors.Wrap(err, "can't start iso channel")
		}
	}

	h.logger.Infof("controller %v up: hci version %d, manufacturer 0x%04X, acl %+v, iso %+v",
		h.addr, h.version.HCIVersion, h.version.ManufacturerName, h.aclBuf, h.isoBuf)
	return nil
}

// Close stops the dispatcher and closes the transport.
func (h *HCI) Close() error {
	h.muClose.Lock()
	defer h.muClose.Unlock()

	select {
	case <-h.done:
		//already closed, nothing to do
		return nil
	default:
		close(h.done)
	}

	var err error
	if h.d != nil {
		_ = h.d.Do(context.Background(), func() {
			if h.iso != nil {
				h.iso.Close()
			}
			if h.cmd != nil {
				for _, id := range h.handlers {
					h.cmd.RemoveEventHandler(id)
				}
			}
		})
	}
	if h.link != nil {
		err = h.link.Close()
	}
	if h.d != nil {
		h.d.Close()
	}
	return err
}

// Done is closed once the controller is closed.
func (h *HCI) Done() <-chan struct{} {
	return h.done
}

// Error returns the fatal error reported by the command channel or the
// transport, if any.
func (h *HCI) Error() error {
	h.muClose.Lock()
	defer h.muClose.Unlock()
	return h.err
}
