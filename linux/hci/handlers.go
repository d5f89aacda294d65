package hci

import (
	"github.com/rigado/hcicore/linux/hci/cmd"
	"github.com/rigado/hcicore/linux/hci/evt"
)

// HandlerID identifies a registered event handler. Zero means none.
type HandlerID uint64

// EventCallbackResult tells the channel whether to keep a handler.
type EventCallbackResult int

const (
	EventCallbackContinue EventCallbackResult = iota
	EventCallbackRemove
)

// EventCallback handles one event.
type EventCallback func(e evt.Packet) EventCallbackResult

type eventHandler struct {
	id  HandlerID
	key handlerKey
	cb  EventCallback

	// owner is set for transient handlers; pendingOpcode is its opcode.
	owner         *transaction
	pendingOpcode cmd.OpCode
}

func (h *eventHandler) async() bool {
	return h.owner != nil
}

// AddEventHandler registers a permanent handler for an event code. It
// returns 0 for the codes the channel routes itself (Command Complete,
// Command Status, LE Meta, vendor debug) or if an asynchronous command is
// waiting on the code.
func (c *CommandChannel) AddEventHandler(code uint8, cb EventCallback) HandlerID {
	switch code {
	case evt.CommandCompleteCode, evt.CommandStatusCode, evt.LEMetaCode, evt.VendorDebugCode:
		c.logger.Warnf("reserved event code 0x%02X cannot be handled directly", code)
		return 0
	}
	return c.addEventHandler(handlerKey{kindGeneric, code}, cb)
}

// AddLEMetaEventHandler registers a permanent handler for an LE Meta subevent.
func (c *CommandChannel) AddLEMetaEventHandler(subevent uint8, cb EventCallback) HandlerID {
	return c.addEventHandler(handlerKey{kindLEMeta, subevent}, cb)
}

// AddVendorEventHandler registers a permanent handler for a vendor subevent.
func (c *CommandChannel) AddVendorEventHandler(subevent uint8, cb EventCallback) HandlerID {
	return c.addEventHandler(handlerKey{kindVendor, subevent}, cb)
}

// RemoveEventHandler removes a handler registered with one of the Add
// methods. Unknown ids and handlers owned by a command are ignored.
func (c *CommandChannel) RemoveEventHandler(id HandlerID) {
	h, ok := c.handlers[id]
	if !ok {
		return
	}
	if h.async() {
		c.logger.Debugf("handler %d belongs to %v, not removing", id, h.owner)
		return
	}
	c.removeEventHandlerInternal(id)
}

func (c *CommandChannel) addEventHandler(key handlerKey, cb EventCallback) HandlerID {
	if cb == nil {
		c.logger.Warnf("nil callback for %v", key)
		return 0
	}
	if h := c.findAsyncHandler(key); h != nil {
		c.logger.Warnf("%v is already owned by %v", key, h.owner)
		return 0
	}
	return c.newEventHandler(key, nil, cb)
}

func (c *CommandChannel) newEventHandler(key handlerKey, owner *transaction, cb EventCallback) HandlerID {
	id := c.nextHandlerID
	for {
		if _, used := c.handlers[id]; id != 0 && !used {
			break
		}
		id++
	}
	c.nextHandlerID = id + 1

	h := &eventHandler{id: id, key: key, cb: cb, owner: owner}
	if owner != nil {
		h.pendingOpcode = owner.opcode
	}
	c.handlers[id] = h
	c.handlersByKey[key] = append(c.handlersByKey[key], id)
	return id
}

// removeEventHandlerInternal drops any handler, owned or not. The owning
// transaction forgets the id so it is released exactly once.
func (c *CommandChannel) removeEventHandlerInternal(id HandlerID) {
	h, ok := c.handlers[id]
	if !ok {
		return
	}
	delete(c.handlers, id)

	ids := c.handlersByKey[h.key]
	for i, v := range ids {
		if v == id {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(c.handlersByKey, h.key)
	} else {
		c.handlersByKey[h.key] = ids
	}

	if h.owner != nil && h.owner.handlerID == id {
		h.owner.handlerID = 0
	}
}

func (c *CommandChannel) findAsyncHandler(key handlerKey) *eventHandler {
	for _, id := range c.handlersByKey[key] {
		if h := c.handlers[id]; h.async() {
			return h
		}
	}
	return nil
}

// maybeAddTransactionHandler registers the transient handler that routes
// the completion event of an asynchronous command. Nothing is added if a
// handler already listens on the code; the command then waits in the
// queue until the code is free.
func (c *CommandChannel) maybeAddTransactionHandler(t *transaction) {
	if !t.completion.Async() || t.handlerID != 0 {
		return
	}
	key := t.completion.key
	if len(c.handlersByKey[key]) > 0 {
		c.logger.Debugf("%v: %v already has a handler", t, key)
		return
	}
	t.handlerID = c.newEventHandler(key, t, func(e evt.Packet) EventCallbackResult {
		t.complete(e)
		return EventCallbackRemove
	})
}
