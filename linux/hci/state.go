package hci

import "fmt"

// channelState has a single allowed transition: active to fatallyStopped.
type channelState int

const (
	stateActive channelState = iota
	stateFatallyStopped
)

func (s channelState) String() string {
	switch s {
	case stateActive:
		return "active"
	case stateFatallyStopped:
		return "fatally stopped"
	default:
		return fmt.Sprintf("channelState(%d)", int(s))
	}
}

// stop latches the channel. It reports false if it was already stopped.
func (c *CommandChannel) stop(err error) bool {
	if c.state != stateActive {
		return false
	}
	c.state = stateFatallyStopped
	c.err = err
	close(c.done)
	return true
}

// IsActive reports whether the channel still accepts commands.
func (c *CommandChannel) IsActive() bool {
	return c.state == stateActive
}

// Done is closed when the channel stops. It may be watched from any goroutine.
func (c *CommandChannel) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that stopped the channel. Off the dispatch
// sequence it is only valid once Done is closed.
func (c *CommandChannel) Err() error {
	return c.err
}
