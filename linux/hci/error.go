package hci

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrChannelInactive is reported for work submitted after the command
	// channel stopped.
	ErrChannelInactive = errors.New("command channel inactive")

	// ErrTimeout is the fatal error raised when a dispatched command gets
	// no Command Complete or Command Status in time.
	ErrTimeout = errors.New("hci: no response to command, hci connection failed")

	// ErrRejected is returned by the blocking helpers when Submit refuses a command.
	ErrRejected = errors.New("command rejected")
)

// ErrCommand is an HCI error code reported by the controller [Vol 1, Part F, 1.3].
type ErrCommand uint8

// Controller error codes.
const (
	ErrUnknownCommand        ErrCommand = 0x01
	ErrConnID                ErrCommand = 0x02
	ErrHardware              ErrCommand = 0x03
	ErrPageTimeout           ErrCommand = 0x04
	ErrAuth                  ErrCommand = 0x05
	ErrPINMissing            ErrCommand = 0x06
	ErrMemCapacity           ErrCommand = 0x07
	ErrConnTimeout           ErrCommand = 0x08
	ErrConnLimit             ErrCommand = 0x09
	ErrConnExists            ErrCommand = 0x0B
	ErrDisallowed            ErrCommand = 0x0C
	ErrLimitedResources      ErrCommand = 0x0D
	ErrUnsupportedParams     ErrCommand = 0x11
	ErrInvalidParams         ErrCommand = 0x12
	ErrRemoteUser            ErrCommand = 0x13
	ErrLocalHost             ErrCommand = 0x16
	ErrUnspecified           ErrCommand = 0x1F
	ErrControllerBusy        ErrCommand = 0x3A
	ErrConnFailedToEstablish ErrCommand = 0x3E
)

var errCommandNames = map[ErrCommand]string{
	ErrUnknownCommand:        "unknown HCI command",
	ErrConnID:                "unknown connection identifier",
	ErrHardware:              "hardware failure",
	ErrPageTimeout:           "page timeout",
	ErrAuth:                  "authentication failure",
	ErrPINMissing:            "PIN or key missing",
	ErrMemCapacity:           "memory capacity exceeded",
	ErrConnTimeout:           "connection timeout",
	ErrConnLimit:             "connection limit exceeded",
	ErrConnExists:            "connection already exists",
	ErrDisallowed:            "command disallowed",
	ErrLimitedResources:      "connection rejected due to limited resources",
	ErrUnsupportedParams:     "unsupported feature or parameter value",
	ErrInvalidParams:         "invalid HCI command parameters",
	ErrRemoteUser:            "remote user terminated connection",
	ErrLocalHost:             "connection terminated by local host",
	ErrUnspecified:           "unspecified error",
	ErrControllerBusy:        "controller busy",
	ErrConnFailedToEstablish: "connection failed to be established",
}

func (e ErrCommand) Error() string {
	if n, ok := errCommandNames[e]; ok {
		return fmt.Sprintf("hci: %s (0x%02X)", n, uint8(e))
	}
	return fmt.Sprintf("hci: error code 0x%02X", uint8(e))
}
