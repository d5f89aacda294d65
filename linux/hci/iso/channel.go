package iso

import (
	"github.com/pkg/errors"
	"github.com/rigado/hcicore"
	"github.com/rigado/hcicore/linux/hci"
	"github.com/rigado/hcicore/linux/hci/evt"
)

var (
	// ErrPacketTooLarge is returned for frames longer than the controller
	// buffers. Frames must be fragmented before SendData.
	ErrPacketTooLarge = errors.New("iso packet larger than controller buffer")

	// ErrMalformedPacket is returned for frames whose header does not
	// match their length.
	ErrMalformedPacket = errors.New("malformed iso packet")

	// ErrDuplicateConnection is logged when a handle is registered twice.
	ErrDuplicateConnection = errors.New("connection already registered")

	// ErrUnknownConnection is returned for frames addressed to a handle
	// that is not registered with the channel.
	ErrUnknownConnection = errors.New("unknown connection")
)

// Endpoint consumes the inbound packets of one connection.
type Endpoint interface {
	ReceiveInboundPacket(p Packet)
}

// BufferInfo describes the controller's ISO data buffers, as reported by
// LE Read Buffer Size [v2].
type BufferInfo struct {
	// MaxDataLength is the largest data load of one packet.
	MaxDataLength int `json:"max_data_length"`

	// MaxNumPackets is the number of packets the controller can buffer.
	MaxNumPackets int `json:"max_num_packets"`
}

// DataChannel multiplexes the ISO connections of one controller onto a
// data transport. Outbound packets are sent while the controller has
// buffers free; Number Of Completed Packets events return the credit.
//
// Like the command channel it is attached to, a DataChannel must only be
// used from the dispatch sequence.
type DataChannel struct {
	cmd       *hci.CommandChannel
	transport hci.DataTransport
	buf       BufferInfo
	logger    hcicore.Logger
	metrics   *hci.Metrics

	handlerID   hci.HandlerID
	connections map[uint16]Endpoint

	// inFlight counts packets per handle not yet reported complete.
	inFlight map[uint16]int
	credits  int
	queue    []Packet
}

// NewDataChannel subscribes to Number Of Completed Packets on ch and takes
// over the receive callback of t.
func NewDataChannel(ch *hci.CommandChannel, t hci.DataTransport, buf BufferInfo, opts ...Option) (*DataChannel, error) {
	if ch == nil || t == nil {
		return nil, errors.New("iso channel needs a command channel and a transport")
	}
	if buf.MaxDataLength <= 0 || buf.MaxNumPackets <= 0 {
		return nil, errors.Errorf("controller has no iso buffers: %+v", buf)
	}

	c := &DataChannel{
		cmd:         ch,
		transport:   t,
		buf:         buf,
		logger:      hci.Logger.ChildLogger(map[string]interface{}{"component": "iso"}),
		connections: make(map[uint16]Endpoint),
		inFlight:    make(map[uint16]int),
		credits:     buf.MaxNumPackets,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "can't set options")
		}
	}

	c.handlerID = ch.AddEventHandler(evt.NumberOfCompletedPacketsCode, c.onNumberOfCompletedPackets)
	if c.handlerID == 0 {
		return nil, errors.New("can't subscribe to number of completed packets")
	}
	t.SetReceiveDataCallback(c.onReceive)
	c.metrics.SetDataCredits(c.credits)
	return c, nil
}

// Close detaches the channel from the command channel and the transport.
func (c *DataChannel) Close() {
	c.cmd.RemoveEventHandler(c.handlerID)
	c.transport.SetReceiveDataCallback(nil)
	c.queue = nil
}

// RegisterConnection routes the packets of handle to e. It returns false
// if handle is already registered or is not a valid connection handle.
// UnregisterConnection must be called before e goes away.
func (c *DataChannel) RegisterConnection(handle uint16, e Endpoint) bool {
	if handle > MaxHandle {
		c.logger.Warnf("invalid connection handle 0x%04X", handle)
		return false
	}
	if e == nil {
		c.logger.Warnf("nil endpoint for handle 0x%03X", handle)
		return false
	}
	if _, ok := c.connections[handle]; ok {
		c.logger.Warnf("handle 0x%03X: %v", handle, ErrDuplicateConnection)
		return false
	}
	c.connections[handle] = e
	c.logger.Debugf("registered handle 0x%03X", handle)
	return true
}

// UnregisterConnection stops routing for handle. Packets of handle still
// queued are dropped, and buffers held by its unacknowledged packets are
// returned, since the controller flushes them with the connection.
func (c *DataChannel) UnregisterConnection(handle uint16) bool {
	if _, ok := c.connections[handle]; !ok {
		c.logger.Warnf("handle 0x%03X: %v", handle, ErrUnknownConnection)
		return false
	}
	delete(c.connections, handle)

	kept := c.queue[:0]
	dropped := 0
	for _, p := range c.queue {
		if p.Handle() == handle {
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(c.queue); i++ {
		c.queue[i] = nil
	}
	c.queue = kept

	reclaimed := c.inFlight[handle]
	delete(c.inFlight, handle)
	c.credits += reclaimed
	c.metrics.SetDataCredits(c.credits)

	c.logger.Debugf("unregistered handle 0x%03X, dropped %d queued, reclaimed %d credits", handle, dropped, reclaimed)
	c.TrySendPackets()
	return true
}

// SendData queues a copy of one ISO data packet, header included, and
// sends what the controller has room for.
func (c *DataChannel) SendData(b []byte) error {
	p, err := ParsePacket(b)
	if err != nil {
		return err
	}
	if p.DataLoadLength() > c.buf.MaxDataLength {
		return errors.Wrapf(ErrPacketTooLarge, "%d bytes, max %d", p.DataLoadLength(), c.buf.MaxDataLength)
	}
	if _, ok := c.connections[p.Handle()]; !ok {
		return errors.Wrapf(ErrUnknownConnection, "handle 0x%03X", p.Handle())
	}

	c.queue = append(c.queue, append(Packet(nil), p...))
	c.TrySendPackets()
	return nil
}

// TrySendPackets sends queued packets in order while credit remains.
func (c *DataChannel) TrySendPackets() {
	for c.credits > 0 && len(c.queue) > 0 {
		p := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]

		c.transport.SendData(p)
		c.credits--
		c.inFlight[p.Handle()]++
		c.metrics.DataPacketSent()
	}
	c.metrics.SetDataCredits(c.credits)
}

// Credits returns the number of controller buffers available.
func (c *DataChannel) Credits() int {
	return c.credits
}

// QueuedPackets returns the number of packets waiting for credit.
func (c *DataChannel) QueuedPackets() int {
	return len(c.queue)
}

// Registered reports whether handle has an endpoint.
func (c *DataChannel) Registered(handle uint16) bool {
	_, ok := c.connections[handle]
	return ok
}

// InFlight returns the number of packets sent on handle and not yet
// reported complete.
func (c *DataChannel) InFlight(handle uint16) int {
	return c.inFlight[handle]
}

func (c *DataChannel) onNumberOfCompletedPackets(e evt.Packet) hci.EventCallbackResult {
	nocp := e.NumberOfCompletedPackets()
	if err := nocp.ValidWErr(); err != nil {
		c.logger.Warnf("dropping malformed event: %v", err)
		return hci.EventCallbackContinue
	}

	for i := 0; i < int(nocp.NumberOfHandles()); i++ {
		handle := nocp.ConnectionHandle(i) & 0x0FFF
		n := int(nocp.HCNumOfCompletedPackets(i))

		if _, ok := c.connections[handle]; !ok {
			// ACL, or another channel's handle
			continue
		}
		if n > c.inFlight[handle] {
			c.logger.Warnf("handle 0x%03X: %d packets completed, %d in flight", handle, n, c.inFlight[handle])
			c.inFlight[handle] = 0
		} else {
			c.inFlight[handle] -= n
		}
		c.credits += n
	}

	c.TrySendPackets()
	return hci.EventCallbackContinue
}

func (c *DataChannel) onReceive(b []byte) {
	p, err := ParsePacket(b)
	if err != nil {
		c.logger.Warnf("dropping inbound packet: %v", err)
		c.metrics.DataPacketDropped("malformed")
		return
	}

	e, ok := c.connections[p.Handle()]
	if !ok {
		c.logger.Debugf("dropping packet for unknown handle 0x%03X", p.Handle())
		c.metrics.DataPacketDropped("unknown_handle")
		return
	}
	c.metrics.DataPacketReceived()
	e.ReceiveInboundPacket(p)
}
