package hci

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/hcicore"
)

// ChannelOption configures a CommandChannel.
type ChannelOption func(*CommandChannel) error

// OptCommandTimeout sets how long a sent command may wait for its Command
// Complete or Command Status before the channel stops.
func OptCommandTimeout(d time.Duration) ChannelOption {
	return func(c *CommandChannel) error {
		if d <= 0 {
			return errors.Errorf("invalid command timeout %v", d)
		}
		c.timeout = d
		return nil
	}
}

// OptLogger replaces the channel logger.
func OptLogger(l hcicore.Logger) ChannelOption {
	return func(c *CommandChannel) error {
		if l == nil {
			return errors.New("nil logger")
		}
		c.logger = l
		return nil
	}
}

// OptMetrics records channel activity in m.
func OptMetrics(m *Metrics) ChannelOption {
	return func(c *CommandChannel) error {
		c.metrics = m
		return nil
	}
}

// OptFatalErrorHandler sets the function called, once, when the channel stops.
func OptFatalErrorHandler(f func(error)) ChannelOption {
	return func(c *CommandChannel) error {
		c.fatalHandler = f
		return nil
	}
}
