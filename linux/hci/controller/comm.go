package controller

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rigado/hcicore/linux/hci"
	"github.com/rigado/hcicore/linux/hci/cmd"
	"github.com/rigado/hcicore/linux/hci/evt"
)

var errNotInitialized = errors.New("controller not initialized")

// Send runs c to its Command Complete and decodes the return parameters
// into r, which may be nil.
func (h *HCI) Send(ctx context.Context, c cmd.Command, r cmd.ReturnParameters) error {
	if h.cmd == nil {
		return errNotInitialized
	}
	return hci.Send(ctx, h.d, h.cmd, c, r)
}

// Exchange submits p and waits for its terminal event. See hci.Exchange.
func (h *HCI) Exchange(ctx context.Context, p cmd.Packet, completion hci.Completion, exclusions ...cmd.OpCode) (evt.Packet, error) {
	if h.cmd == nil {
		return nil, errNotInitialized
	}
	return hci.Exchange(ctx, h.d, h.cmd, p, completion, exclusions...)
}

// Do runs f on the dispatch sequence with the command channel, for
// registering event handlers or submitting commands without blocking.
func (h *HCI) Do(ctx context.Context, f func(ch *hci.CommandChannel)) error {
	if h.cmd == nil {
		return errNotInitialized
	}
	return h.d.Do(ctx, func() { f(h.cmd) })
}

// dispatchError records the first fatal error and hands it to the error
// handler. It runs on the dispatch sequence; the handler runs on its own
// goroutine so it may call Close.
func (h *HCI) dispatchError(e error) {
	h.muClose.Lock()
	if h.err == nil {
		h.err = e
	}
	h.muClose.Unlock()

	select {
	case <-h.done:
		//don't dispatch
		h.logger.Debugf("hci closing: %v", e)
		return
	default:
	}

	if h.errorHandler == nil {
		h.logger.Error(e)
		return
	}
	go h.errorHandler(e)
}

// Disconnect asks the controller to close a connection. It returns once
// the controller accepted the request; the Disconnection Complete that
// follows is handled by the controller's permanent handler.
func (h *HCI) Disconnect(ctx context.Context, handle uint16, reason uint8) error {
	e, err := h.Exchange(ctx, cmd.FromCommand(&cmd.Disconnect{
		ConnectionHandle: handle,
		Reason:           reason,
	}), hci.CompleteOnCommandStatus())
	if err != nil {
		return err
	}
	if s := e.CommandStatus().Status(); s != 0x00 {
		return hci.ErrCommand(s)
	}
	return nil
}
