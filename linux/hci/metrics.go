package hci

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks Prometheus metrics for the command channel and the data
// channels sharing its event bus.
//
// Methods handle a nil receiver, so a nil *Metrics is a no-op.
type Metrics struct {
	// CommandsSent counts command frames handed to the transport.
	CommandsSent prometheus.Counter

	// CommandCredits is the controller's last advertised command credit.
	CommandCredits prometheus.Gauge

	// Events counts inbound events by class.
	// Labels: class=[command_complete, command_status, generic, le_meta, vendor]
	Events *prometheus.CounterVec

	// DroppedEvents counts events that were not delivered.
	// Labels: reason=[malformed, unhandled, unexpected_opcode]
	DroppedEvents *prometheus.CounterVec

	// Timeouts counts command timeouts. Each one stops the channel.
	Timeouts prometheus.Counter

	// DataPackets counts data frames by direction.
	// Labels: direction=[tx, rx]
	DataPackets *prometheus.CounterVec

	// DroppedDataPackets counts inbound data frames that were not delivered.
	// Labels: reason=[malformed, unknown_handle]
	DroppedDataPackets *prometheus.CounterVec

	// DataCredits is the number of controller data buffers available.
	DataCredits prometheus.Gauge
}

// NewMetrics creates the channel metrics and registers them with reg. If
// reg is nil, prometheus.DefaultRegisterer is used. Collectors already
// registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		CommandsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hci_commands_sent_total",
			Help: "Total HCI command frames sent to the controller",
		}),
		CommandCredits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hci_command_credits",
			Help: "Command packets the controller currently accepts",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hci_events_total",
			Help: "Total HCI events received by class",
		}, []string{"class"}),
		DroppedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hci_events_dropped_total",
			Help: "Total HCI events dropped by reason",
		}, []string{"reason"}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hci_command_timeouts_total",
			Help: "Total HCI commands that timed out",
		}),
		DataPackets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hci_data_packets_total",
			Help: "Total HCI data packets by direction",
		}, []string{"direction"}),
		DroppedDataPackets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hci_data_packets_dropped_total",
			Help: "Total inbound HCI data packets dropped by reason",
		}, []string{"reason"}),
		DataCredits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hci_data_credits",
			Help: "Controller data buffers currently available",
		}),
	}

	var err error
	m.CommandsSent, err = register(reg, m.CommandsSent)
	if err != nil {
		return nil, err
	}
	m.CommandCredits, err = register(reg, m.CommandCredits)
	if err != nil {
		return nil, err
	}
	m.Events, err = register(reg, m.Events)
	if err != nil {
		return nil, err
	}
	m.DroppedEvents, err = register(reg, m.DroppedEvents)
	if err != nil {
		return nil, err
	}
	m.Timeouts, err = register(reg, m.Timeouts)
	if err != nil {
		return nil, err
	}
	m.DataPackets, err = register(reg, m.DataPackets)
	if err != nil {
		return nil, err
	}
	m.DroppedDataPackets, err = register(reg, m.DroppedDataPackets)
	if err != nil {
		return nil, err
	}
	m.DataCredits, err = register(reg, m.DataCredits)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "can't register metric")
	}
	return c, nil
}

func (m *Metrics) commandSent() {
	if m == nil {
		return
	}
	m.CommandsSent.Inc()
}

func (m *Metrics) setCommandCredits(n int) {
	if m == nil {
		return
	}
	m.CommandCredits.Set(float64(n))
}

func (m *Metrics) event(class string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(class).Inc()
}

func (m *Metrics) droppedEvent(reason string) {
	if m == nil {
		return
	}
	m.DroppedEvents.WithLabelValues(reason).Inc()
}

func (m *Metrics) timeout() {
	if m == nil {
		return
	}
	m.Timeouts.Inc()
}

// DataPacketSent records a data frame handed to the transport.
func (m *Metrics) DataPacketSent() {
	if m == nil {
		return
	}
	m.DataPackets.WithLabelValues("tx").Inc()
}

// DataPacketReceived records a data frame delivered to an endpoint.
func (m *Metrics) DataPacketReceived() {
	if m == nil {
		return
	}
	m.DataPackets.WithLabelValues("rx").Inc()
}

// DataPacketDropped records an inbound data frame that was not delivered.
func (m *Metrics) DataPacketDropped(reason string) {
	if m == nil {
		return
	}
	m.DroppedDataPackets.WithLabelValues(reason).Inc()
}

// SetDataCredits records the available controller data buffers.
func (m *Metrics) SetDataCredits(n int) {
	if m == nil {
		return
	}
	m.DataCredits.Set(float64(n))
}
