package hci

import "time"

// HCI Packet types
const (
	PktTypeCommand uint8 = 0x01
	PktTypeACLData uint8 = 0x02
	PktTypeSCOData uint8 = 0x03
	PktTypeEvent   uint8 = 0x04
	PktTypeISOData uint8 = 0x05
	PktTypeVendor  uint8 = 0xFF
)

const (
	// DefaultCommandTimeout bounds the wait for the Command Complete or
	// Command Status of a dispatched command.
	DefaultCommandTimeout = 10 * time.Second

	// A controller accepts one command after power up until it advertises
	// its real command buffer count [Vol 4, Part E, 4.4].
	initialCommandCredits = 1
)
