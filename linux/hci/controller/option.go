package controller

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rigado/hcicore"
)

// SetErrorHandler ...
func (h *HCI) SetErrorHandler(handler func(error)) error {
	h.errorHandler = handler
	return nil
}

// SetCommandTimeout sets how long a command may go unanswered before the
// command channel stops.
func (h *HCI) SetCommandTimeout(d time.Duration) error {
	if d <= 0 {
		return errors.Errorf("invalid command timeout %v", d)
	}
	h.timeout = d
	return nil
}

// SetMetricsRegisterer registers the channel metrics with reg at Init.
func (h *HCI) SetMetricsRegisterer(reg prometheus.Registerer) error {
	h.reg = reg
	return nil
}

// SetLogger ...
func (h *HCI) SetLogger(l hcicore.Logger) error {
	if l == nil {
		return errors.New("nil logger")
	}
	h.logger = l
	return nil
}

// SetTransportHCISocket sets HCI device for hci socket
func (h *HCI) SetTransportHCISocket(id int) error {
	h.transport = transport{
		hci: &transportHci{id},
	}
	return nil
}

// SetTransportH4Socket sets h4 socket server
func (h *HCI) SetTransportH4Socket(addr string, timeout time.Duration) error {
	if timeout <= 0 {
		return errors.Errorf("invalid socket timeout %v", timeout)
	}
	h.transport = transport{
		h4socket: &transportH4Socket{addr, timeout},
	}
	return nil
}

// SetTransportH4Uart sets h4 uart path and baud rate
func (h *HCI) SetTransportH4Uart(path string, baud uint) error {
	h.transport = transport{
		h4uart: &transportH4Uart{path, baud},
	}
	return nil
}
