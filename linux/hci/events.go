package hci

import (
	"github.com/rigado/hcicore/linux/hci/cmd"
	"github.com/rigado/hcicore/linux/hci/evt"
)

// OnTransportEvent handles one inbound event frame. Malformed frames are
// dropped. It must run on the dispatch sequence.
func (c *CommandChannel) OnTransportEvent(b []byte) {
	e, err := evt.Parse(b)
	if err != nil {
		c.logger.Warnf("dropping event: %v", err)
		c.metrics.droppedEvent("malformed")
		return
	}

	switch e.Code() {
	case evt.CommandCompleteCode, evt.CommandStatusCode:
		c.updateTransaction(e)
	default:
		c.notifyEventHandlers(e)
	}

	c.trySendQueuedCommands()
}

// updateTransaction applies a Command Complete or Command Status: it
// refreshes the command credit and moves the matching transaction on.
func (c *CommandChannel) updateTransaction(e evt.Packet) {
	var op cmd.OpCode
	var credits uint8
	failed := false

	if e.Code() == evt.CommandCompleteCode {
		cc := e.CommandComplete()
		v, err := cc.CommandOpcodeWErr()
		if err != nil {
			c.logger.Warnf("dropping malformed command complete: %v", e)
			c.metrics.droppedEvent("malformed")
			return
		}
		op, credits = cmd.OpCode(v), cc.NumHCICommandPackets()
		c.metrics.event("command_complete")
	} else {
		cs := e.CommandStatus()
		if !cs.Valid() {
			c.logger.Warnf("dropping malformed command status: %v", e)
			c.metrics.droppedEvent("malformed")
			return
		}
		op, credits = cmd.OpCode(cs.CommandOpcode()), cs.NumHCICommandPackets()
		failed = cs.Status() != 0x00
		c.metrics.event("command_status")
	}

	c.allowedCommands = int(credits)
	c.metrics.setCommandCredits(c.allowedCommands)

	// NOP command, used for flow control purpose [Vol 4, Part E, 4.4]
	if op == cmd.NoOp {
		return
	}

	t, ok := c.pending[op]
	if !ok {
		c.logger.Errorf("update for unexpected opcode %v: %v", op, e)
		c.metrics.droppedEvent("unexpected_opcode")
		return
	}

	switch {
	case t.handlerID == 0:
		// synchronous, or nothing left to clean up
		delete(c.pending, op)

	case e.Code() == evt.CommandCompleteCode:
		// Asynchronous commands should finish on their own event. Some
		// controllers end them with Command Complete instead; treat it as
		// terminal so the opcode does not stay blocked.
		c.logger.Warnf("%v received command complete", t)
		c.removeEventHandlerInternal(t.handlerID)
		delete(c.pending, op)

	case failed:
		// no completion event follows a failed status
		c.removeEventHandlerInternal(t.handlerID)
		delete(c.pending, op)
	}

	t.complete(e)
}

// notifyEventHandlers routes an event to every handler of its code. The
// handlers are snapshotted first so callbacks may add and remove handlers
// or submit commands. A transient handler and its in-flight entry are
// removed before its callback runs.
func (c *CommandChannel) notifyEventHandlers(e evt.Packet) {
	key := handlerKey{kindGeneric, e.Code()}

	switch e.Code() {
	case evt.LEMetaCode:
		sub, err := e.LEMeta().SubeventCodeWErr()
		if err != nil {
			c.logger.Warnf("dropping LE meta event without subevent code")
			c.metrics.droppedEvent("malformed")
			return
		}
		key = handlerKey{kindLEMeta, sub}
	case evt.VendorDebugCode:
		sub, err := e.Vendor().SubeventCodeWErr()
		if err != nil {
			c.logger.Warnf("dropping vendor event without subevent code")
			c.metrics.droppedEvent("malformed")
			return
		}
		key = handlerKey{kindVendor, sub}
	}
	c.metrics.event(key.kind.String())

	ids := c.handlersByKey[key]
	if len(ids) == 0 {
		c.logger.Debugf("no handler for %v", key)
		c.metrics.droppedEvent("unhandled")
		return
	}

	type pendingCallback struct {
		id    HandlerID
		cb    EventCallback
		owned bool
	}
	callbacks := make([]pendingCallback, 0, len(ids))

	for _, id := range append([]HandlerID(nil), ids...) {
		h := c.handlers[id]
		if !h.async() {
			callbacks = append(callbacks, pendingCallback{id: id, cb: h.cb})
			continue
		}

		if c.pending[h.pendingOpcode] != h.owner {
			// the owning command has not been sent yet
			c.logger.Debugf("%v: %v not in flight, ignoring event", key, h.owner)
			continue
		}
		delete(c.pending, h.pendingOpcode)
		c.removeEventHandlerInternal(id)
		callbacks = append(callbacks, pendingCallback{id: id, cb: h.cb, owned: true})
	}

	for _, p := range callbacks {
		if p.cb(e) == EventCallbackRemove && !p.owned {
			c.RemoveEventHandler(p.id)
		}
	}
}
