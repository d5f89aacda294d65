package hci

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/hcicore"
	"github.com/rigado/hcicore/linux/hci/cmd"
)

type queuedCommand struct {
	b []byte
	t *transaction
}

// CommandChannel correlates outbound commands with the events that
// complete them, under the controller's command flow control
// [Vol 4, Part E, 4.4].
//
// At most one command per opcode is in flight. A command also waits while
// any opcode of its exclusion set is in flight, or while another command
// is waiting on the same completion event. Otherwise commands go out in
// submission order while the controller grants credit.
//
// A CommandChannel is not safe for concurrent use: every method, and the
// transport callbacks, must run on the same dispatch sequence.
type CommandChannel struct {
	transport CommandTransport
	clock     Clock
	logger    hcicore.Logger
	metrics   *Metrics
	timeout   time.Duration

	state        channelState
	err          error
	done         chan struct{}
	fatalHandler func(error)

	allowedCommands int

	nextTransactionID TransactionID
	sendQueue         []queuedCommand
	pending           map[cmd.OpCode]*transaction

	nextHandlerID HandlerID
	handlers      map[HandlerID]*eventHandler
	handlersByKey map[handlerKey][]HandlerID
}

// NewCommandChannel attaches a command channel to t. Timers are scheduled
// on clock, which must run them on the same sequence as the transport
// callbacks.
func NewCommandChannel(t CommandTransport, clock Clock, opts ...ChannelOption) (*CommandChannel, error) {
	if t == nil || clock == nil {
		return nil, errors.New("command channel needs a transport and a clock")
	}

	c := &CommandChannel{
		transport:         t,
		clock:             clock,
		logger:            Logger.ChildLogger(map[string]interface{}{"component": "cmd"}),
		timeout:           DefaultCommandTimeout,
		state:             stateActive,
		done:              make(chan struct{}),
		allowedCommands:   initialCommandCredits,
		nextTransactionID: 1,
		pending:           make(map[cmd.OpCode]*transaction),
		nextHandlerID:     1,
		handlers:          make(map[HandlerID]*eventHandler),
		handlersByKey:     make(map[handlerKey][]HandlerID),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "can't set options")
		}
	}

	c.metrics.setCommandCredits(c.allowedCommands)
	t.SetEventCallback(c.OnTransportEvent)
	return c, nil
}

// Submit queues a command and returns its transaction id, or 0 if the
// channel is stopped or the command can never be completed. The command
// is not dispatched while any opcode in exclusions, or its own opcode, is
// in flight.
//
// For asynchronous completions the event handler is registered before the
// command is queued, so the completion event cannot outrun it.
func (c *CommandChannel) Submit(p cmd.Packet, completion Completion, cb CommandCallback, exclusions ...cmd.OpCode) TransactionID {
	if c.state != stateActive {
		c.logger.Warnf("channel %v, rejecting %v", c.state, p.OpCode())
		return 0
	}

	op := p.OpCode()
	if op == cmd.NoOp {
		c.logger.Warn("can't correlate a command with the NOP opcode")
		return 0
	}

	b, err := p.Bytes()
	if err != nil {
		c.logger.Warnf("can't encode %v: %v", op, err)
		return 0
	}

	if completion.Async() {
		for _, hid := range c.handlersByKey[completion.key] {
			h := c.handlers[hid]
			if !h.async() {
				c.logger.Warnf("%v: %v is held by permanent handler %d", op, completion, hid)
				return 0
			}
			if h.pendingOpcode != op {
				c.logger.Warnf("%v: %v is already owned by %v", op, completion, h.owner)
				return 0
			}
		}
	}

	t := newTransaction(c.newTransactionID(), op, completion, cb, exclusions)
	c.maybeAddTransactionHandler(t)

	c.sendQueue = append(c.sendQueue, queuedCommand{b: b, t: t})
	c.trySendQueuedCommands()
	return t.id
}

// SubmitCommand queues a structured command that completes on its Command Complete.
func (c *CommandChannel) SubmitCommand(cm cmd.Command, cb CommandCallback) TransactionID {
	return c.Submit(cmd.FromCommand(cm), CompleteOnCommandComplete(), cb)
}

// Cancel drops a command that has not been sent yet, together with its
// event handler. Commands already sent cannot be cancelled.
func (c *CommandChannel) Cancel(id TransactionID) bool {
	for i, q := range c.sendQueue {
		if q.t.id != id {
			continue
		}
		c.sendQueue = append(c.sendQueue[:i], c.sendQueue[i+1:]...)
		if q.t.handlerID != 0 {
			c.removeEventHandlerInternal(q.t.handlerID)
		}
		c.logger.Debugf("cancelled %v", q.t)
		return true
	}
	return false
}

// AllowedCommands returns the command credit last advertised by the controller.
func (c *CommandChannel) AllowedCommands() int {
	return c.allowedCommands
}

// QueuedCommands returns the number of commands not yet sent.
func (c *CommandChannel) QueuedCommands() int {
	return len(c.sendQueue)
}

// PendingCommands returns the number of commands in flight.
func (c *CommandChannel) PendingCommands() int {
	return len(c.pending)
}

func (c *CommandChannel) newTransactionID() TransactionID {
	id := c.nextTransactionID
	for id == 0 || c.transactionLive(id) {
		id++
	}
	c.nextTransactionID = id + 1
	return id
}

func (c *CommandChannel) transactionLive(id TransactionID) bool {
	for _, t := range c.pending {
		if t.id == id {
			return true
		}
	}
	for _, q := range c.sendQueue {
		if q.t.id == id {
			return true
		}
	}
	return false
}

// trySendQueuedCommands dispatches queued commands while the controller
// grants credit. Each pass scans from the head and sends the first command
// that is not blocked.
func (c *CommandChannel) trySendQueuedCommands() {
	for c.state == stateActive && c.allowedCommands > 0 {
		idx := -1
		for i, q := range c.sendQueue {
			if !c.blocked(q.t) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}

		q := c.sendQueue[idx]
		c.sendQueue = append(c.sendQueue[:idx], c.sendQueue[idx+1:]...)
		c.sendQueuedCommand(q)
	}
}

func (c *CommandChannel) blocked(t *transaction) bool {
	for op := range t.exclusions {
		if _, ok := c.pending[op]; ok {
			return true
		}
	}

	if t.completion.Async() {
		// a shared handler could not tell which command an event belongs to
		for _, hid := range c.handlersByKey[t.completion.key] {
			if hid != t.handlerID {
				return true
			}
		}
	}
	return false
}

func (c *CommandChannel) sendQueuedCommand(q queuedCommand) {
	t := q.t

	c.transport.SendCommand(q.b)
	c.allowedCommands--
	c.metrics.commandSent()
	c.metrics.setCommandCredits(c.allowedCommands)

	t.start(c.clock, c.timeout, func() { c.onCommandTimeout(t) })
	c.maybeAddTransactionHandler(t)
	c.pending[t.opcode] = t
	c.logger.Debugf("sent %v [% X]", t, q.b)
}

func (c *CommandChannel) onCommandTimeout(t *transaction) {
	if c.pending[t.opcode] != t {
		return
	}
	c.metrics.timeout()
	err := errors.Wrapf(ErrTimeout, "%v", t)
	if !c.stop(err) {
		return
	}

	c.logger.Errorf("%v timed out after %v, %d pending, %d queued; channel stopped",
		t, c.timeout, len(c.pending), len(c.sendQueue))
	if c.fatalHandler != nil {
		c.fatalHandler(err)
	}
}
