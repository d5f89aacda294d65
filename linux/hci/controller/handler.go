package controller

import (
	"github.com/pkg/errors"
	"github.com/rigado/hcicore/linux/hci"
	"github.com/rigado/hcicore/linux/hci/evt"
)

// addHandlers subscribes to the controller events the stack itself
// reacts to. It runs on the dispatch sequence.
func (h *HCI) addHandlers() {
	add := func(code uint8, cb hci.EventCallback) {
		if id := h.cmd.AddEventHandler(code, cb); id != 0 {
			h.handlers = append(h.handlers, id)
		}
	}

	add(evt.HardwareErrorCode, h.handleHardwareError)
	add(evt.DataBufferOverflowCode, h.handleDataBufferOverflow)
	add(evt.DisconnectionCompleteCode, h.handleDisconnectionComplete)
}

func (h *HCI) handleHardwareError(e evt.Packet) hci.EventCallbackResult {
	code := evt.HardwareError(e.Params()).HardwareCode()
	h.dispatchError(errors.Errorf("controller hardware error 0x%02X", code))
	return hci.EventCallbackContinue
}

func (h *HCI) handleDataBufferOverflow(e evt.Packet) hci.EventCallbackResult {
	h.logger.Warnf("controller data buffer overflow: %v", e)
	return hci.EventCallbackContinue
}

// handleDisconnectionComplete releases the ISO state of a closed CIS.
func (h *HCI) handleDisconnectionComplete(e evt.Packet) hci.EventCallbackResult {
	dc := evt.DisconnectionComplete(e.Params())
	handle, err := dc.ConnectionHandleWErr()
	if err != nil {
		h.logger.Warnf("dropping malformed disconnection complete: %v", e)
		return hci.EventCallbackContinue
	}
	if dc.Status() != 0x00 {
		return hci.EventCallbackContinue
	}

	h.logger.Debugf("handle 0x%03X disconnected, reason 0x%02X", handle, dc.Reason())
	if h.iso != nil && h.iso.Registered(handle) {
		h.iso.UnregisterConnection(handle)
	}
	return hci.EventCallbackContinue
}
