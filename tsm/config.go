package tsm

import (
	"time"

	"github.com/pkg/errors"
)

// Bounds on the two tunables, ASHRAE 135 Annex H's common defaults and the
// outer limits a real installation would ever configure.
const (
	MinAPDUTimeout = 1 * time.Second
	MaxAPDUTimeout = 60 * time.Second

	MinRetries = 0
	MaxRetries = 10

	DefaultAPDUTimeout     = 3 * time.Second
	DefaultRetries         = 3
	DefaultMaxTransactions = 255
)

// Config tunes a TSM instance. The zero value is invalid; call Valid (or
// start from DefaultConfig) before use.
type Config struct {
	// MaxTransactions bounds the number of concurrently outstanding
	// confirmed requests (invoke-ids 1..MaxTransactions).
	MaxTransactions int
	// APDUTimeout is the retry interval for an unacknowledged confirmed
	// request.
	APDUTimeout time.Duration
	// Retries is the number of retransmissions attempted before a
	// Timeout is reported.
	Retries int
}

// DefaultConfig returns a Config with ASHRAE-typical defaults.
func DefaultConfig() Config {
	return Config{
		MaxTransactions: DefaultMaxTransactions,
		APDUTimeout:     DefaultAPDUTimeout,
		Retries:         DefaultRetries,
	}
}

// Valid fills in zero fields with their defaults and rejects out-of-range
// values.
func (c *Config) Valid() error {
	if c.MaxTransactions == 0 {
		c.MaxTransactions = DefaultMaxTransactions
	}
	if c.MaxTransactions < 1 || c.MaxTransactions > 255 {
		return errors.Errorf("tsm: MaxTransactions %d out of range [1,255]", c.MaxTransactions)
	}
	if c.APDUTimeout == 0 {
		c.APDUTimeout = DefaultAPDUTimeout
	}
	if c.APDUTimeout < MinAPDUTimeout || c.APDUTimeout > MaxAPDUTimeout {
		return errors.Errorf("tsm: APDUTimeout %s out of range [%s,%s]", c.APDUTimeout, MinAPDUTimeout, MaxAPDUTimeout)
	}
	if c.Retries < MinRetries || c.Retries > MaxRetries {
		return errors.Errorf("tsm: Retries %d out of range [%d,%d]", c.Retries, MinRetries, MaxRetries)
	}
	return nil
}
