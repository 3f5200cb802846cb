// Package stack wires the core components together into one runnable
// BACnet device: the value that owns the address cache, the TSM, the
// dispatcher and the datalink, so callers construct engine instances
// explicitly instead of sharing file-scope state.
package stack

import (
	"errors"
	"time"

	"github.com/rob-gra/go-bacnet/asdu"
)

// Config is the environment configuration recognised at initialisation.
type Config struct {
	VendorID              uint16
	MaxAPDULengthAccepted uint16 // one of {50, 128, 206, 480, 1024, 1476}
	MaxTSMTransactions    uint8  // [1, 255]
	MaxAddressCache       uint16
	APDUTimeout           time.Duration
	APDURetries           int
	SegmentationSupported asdu.Segmentation
}

// Recognised values for MaxAPDULengthAccepted, ASHRAE 135 clause 20.1.2.5.
var validAPDULengths = map[uint16]bool{
	50: true, 128: true, 206: true, 480: true, 1024: true, 1476: true,
}

// DefaultConfig returns a vendor-id 260 device accepting 480-octet APDUs,
// with 255 TSM slots, a 255-entry address cache, and the 3000ms x 3 APDU
// retry schedule.
func DefaultConfig() Config {
	return Config{
		VendorID:              260,
		MaxAPDULengthAccepted: 480,
		MaxTSMTransactions:    255,
		MaxAddressCache:       255,
		APDUTimeout:           3000 * time.Millisecond,
		APDURetries:           3,
		SegmentationSupported: asdu.SegmentationNone,
	}
}

// Valid defaults and range-checks cfg in place.
func (c *Config) Valid() error {
	if c.VendorID == 0 {
		c.VendorID = 260
	}
	if c.MaxAPDULengthAccepted == 0 {
		c.MaxAPDULengthAccepted = 480
	} else if !validAPDULengths[c.MaxAPDULengthAccepted] {
		return errors.New("stack: MaxAPDULengthAccepted must be one of {50,128,206,480,1024,1476}")
	}
	if c.MaxTSMTransactions == 0 {
		c.MaxTSMTransactions = 255
	}
	if c.MaxAddressCache == 0 {
		c.MaxAddressCache = 255
	}
	if c.APDUTimeout <= 0 {
		c.APDUTimeout = 3000 * time.Millisecond
	}
	if c.APDURetries < 0 {
		return errors.New("stack: APDURetries must be >= 0")
	}
	if c.APDURetries == 0 {
		c.APDURetries = 3
	}
	return nil
}
