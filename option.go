package hcicore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeviceOption is an interface which the device should implement to allow using configuration options
type DeviceOption interface {
	SetErrorHandler(handler func(error)) error
	SetCommandTimeout(time.Duration) error
	SetMetricsRegisterer(prometheus.Registerer) error
	SetLogger(Logger) error

	SetTransportHCISocket(id int) error
	SetTransportH4Socket(addr string, timeout time.Duration) error
	SetTransportH4Uart(path string, baud uint) error
}

// An Option is a configuration function, which configures the device.
type Option func(DeviceOption) error

// OptErrorHandler sets the handler called once when the command channel
// fails fatally or the transport dies.
func OptErrorHandler(handler func(error)) Option {
	return func(opt DeviceOption) error {
		return opt.SetErrorHandler(handler)
	}
}

// OptCommandTimeout overrides how long a dispatched command may go without
// a Command Complete or Command Status before the channel is stopped.
func OptCommandTimeout(d time.Duration) Option {
	return func(opt DeviceOption) error {
		return opt.SetCommandTimeout(d)
	}
}

// OptMetrics registers channel metrics with reg.
func OptMetrics(reg prometheus.Registerer) Option {
	return func(opt DeviceOption) error {
		return opt.SetMetricsRegisterer(reg)
	}
}

// OptLogger replaces the logger used by the device.
func OptLogger(l Logger) Option {
	return func(opt DeviceOption) error {
		return opt.SetLogger(l)
	}
}

// OptTransportHCISocket set hci socket transport
func OptTransportHCISocket(id int) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportHCISocket(id)
	}
}

// OptTransportH4Socket set h4 socket transport
func OptTransportH4Socket(addr string, timeout time.Duration) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportH4Socket(addr, timeout)
	}
}

// OptTransportH4Uart set h4 uart transport. A zero baud rate selects the default.
func OptTransportH4Uart(path string, baud uint) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportH4Uart(path, baud)
	}
}
