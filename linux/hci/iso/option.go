package iso

import (
	"github.com/pkg/errors"
	"github.com/rigado/hcicore"
	"github.com/rigado/hcicore/linux/hci"
)

// Option configures a DataChannel.
type Option func(*DataChannel) error

// OptLogger replaces the channel logger.
func OptLogger(l hcicore.Logger) Option {
	return func(c *DataChannel) error {
		if l == nil {
			return errors.New("nil logger")
		}
		c.logger = l
		return nil
	}
}

// OptMetrics records data traffic in m.
func OptMetrics(m *hci.Metrics) Option {
	return func(c *DataChannel) error {
		c.metrics = m
		return nil
	}
}
