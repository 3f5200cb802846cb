// Package address implements the fixed-capacity device-instance address
// cache: bindings from a device instance to its directly reachable network
// address and negotiated max-apdu, aged out by TTL and bounded in size.
package address

import (
	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/npdu"
)

// DefaultTTLSeconds is the binding lifetime applied when Add does not
// specify one, ASHRAE 135 Annex H's typical Who-Is/I-Am refresh interval.
const DefaultTTLSeconds = 60

// entry is one cached binding. held entries are immune to both TTL ageing
// and full-cache eviction.
type entry struct {
	deviceID uint32
	addr     npdu.Address
	maxAPDU  uint32
	ttl      uint32
	held     bool
	inserted uint64 // monotonically increasing insertion sequence, eviction tiebreak
}

// Cache is a fixed-capacity device_instance -> (address, max_apdu, ttl,
// hold) map. The zero value is not usable; construct with New.
type Cache struct {
	entries  []entry
	capacity int
	seq      uint64
}

// New builds a Cache that holds at most capacity bindings.
func New(capacity int) *Cache {
	return &Cache{capacity: capacity}
}

// Count returns the number of bindings currently held.
func (c *Cache) Count() int {
	return len(c.entries)
}

// ByIndex returns the deviceID and address at position i (0 <= i <
// Count()), in insertion order.
func (c *Cache) ByIndex(i int) (deviceID uint32, addr npdu.Address, maxAPDU uint32, ok bool) {
	if i < 0 || i >= len(c.entries) {
		return 0, npdu.Address{}, 0, false
	}
	e := c.entries[i]
	return e.deviceID, e.addr, e.maxAPDU, true
}

// Add inserts or refreshes a binding. If the cache is full and no slot is
// free, the oldest non-held entry is evicted; if every slot is held, Add
// fails with bacerr.ErrCacheFull.
func (c *Cache) Add(deviceID uint32, addr npdu.Address, maxAPDU uint32) error {
	return c.AddWithTTL(deviceID, addr, maxAPDU, DefaultTTLSeconds)
}

// AddWithTTL is Add with an explicit TTL in seconds.
func (c *Cache) AddWithTTL(deviceID uint32, addr npdu.Address, maxAPDU, ttlSeconds uint32) error {
	for i := range c.entries {
		if c.entries[i].deviceID == deviceID {
			c.entries[i].addr = addr
			c.entries[i].maxAPDU = maxAPDU
			c.entries[i].ttl = ttlSeconds
			return nil
		}
	}

	if len(c.entries) >= c.capacity {
		victim := -1
		for i := range c.entries {
			if c.entries[i].held {
				continue
			}
			if victim == -1 || c.entries[i].inserted < c.entries[victim].inserted {
				victim = i
			}
		}
		if victim == -1 {
			return bacerr.ErrCacheFull
		}
		c.entries = append(c.entries[:victim], c.entries[victim+1:]...)
	}

	c.seq++
	c.entries = append(c.entries, entry{
		deviceID: deviceID,
		addr:     addr,
		maxAPDU:  maxAPDU,
		ttl:      ttlSeconds,
		inserted: c.seq,
	})
	return nil
}

// Remove deletes a binding. Idempotent.
func (c *Cache) Remove(deviceID uint32) {
	for i := range c.entries {
		if c.entries[i].deviceID == deviceID {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

// Hold marks (or unmarks) a binding as held, exempting it from TTL ageing
// and full-cache eviction.
func (c *Cache) Hold(deviceID uint32, held bool) {
	for i := range c.entries {
		if c.entries[i].deviceID == deviceID {
			c.entries[i].held = held
			return
		}
	}
}

// Get looks up a binding without side effects.
func (c *Cache) Get(deviceID uint32) (addr npdu.Address, maxAPDU uint32, ok bool) {
	for i := range c.entries {
		if c.entries[i].deviceID == deviceID {
			return c.entries[i].addr, c.entries[i].maxAPDU, true
		}
	}
	return npdu.Address{}, 0, false
}

// BindRequest returns the cached address if present; otherwise it reports
// that a Who-Is should be (re-)issued for deviceID.
func (c *Cache) BindRequest(deviceID uint32) (addr npdu.Address, maxAPDU uint32, err error) {
	addr, maxAPDU, ok := c.Get(deviceID)
	if !ok {
		return npdu.Address{}, 0, bacerr.ErrNotBound
	}
	return addr, maxAPDU, nil
}

// OnTick ages every non-held entry by one second. Entries reaching zero
// TTL are deleted.
func (c *Cache) OnTick() {
	live := c.entries[:0]
	for _, e := range c.entries {
		if !e.held {
			if e.ttl == 0 {
				continue
			}
			e.ttl--
			if e.ttl == 0 {
				continue
			}
		}
		live = append(live, e)
	}
	c.entries = live
}
