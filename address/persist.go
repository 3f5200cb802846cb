package address

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/npdu"
)

// Store is the storage contract a caller supplies to persist the cache
// across restarts. The blob format is owned by this package; the store
// only moves opaque bytes.
type Store interface {
	Save(blob []byte) error
	Load() ([]byte, error)
}

const snapshotVersion = 1

// Snapshot serialises every current binding (held or not) into a blob the
// matching Restore can read back. TTLs are not persisted: a restored entry
// starts a fresh lifetime, since the wall-clock gap between Save and Load
// is unknown.
func (c *Cache) Snapshot(s Store) error {
	blob := []byte{snapshotVersion}
	blob = binary.BigEndian.AppendUint16(blob, uint16(len(c.entries)))
	for _, e := range c.entries {
		blob = binary.BigEndian.AppendUint32(blob, e.deviceID)
		blob = binary.BigEndian.AppendUint32(blob, e.maxAPDU)
		blob = binary.BigEndian.AppendUint16(blob, e.addr.Net)
		blob = append(blob, e.addr.MACLen)
		blob = append(blob, e.addr.MACBytes()...)
		blob = append(blob, e.addr.Len)
		blob = append(blob, e.addr.AdrBytes()...)
		if e.held {
			blob = append(blob, 1)
		} else {
			blob = append(blob, 0)
		}
	}
	return errors.Wrap(s.Save(blob), "address: saving snapshot")
}

// Restore loads a blob written by Snapshot and re-adds every binding with
// a fresh default TTL, preserving held flags. Existing bindings for the
// same device instance are refreshed in place.
func (c *Cache) Restore(s Store) error {
	blob, err := s.Load()
	if err != nil {
		return errors.Wrap(err, "address: loading snapshot")
	}
	if len(blob) < 3 {
		return bacerr.ErrTruncated
	}
	if blob[0] != snapshotVersion {
		return errors.Wrapf(bacerr.ErrOutOfRange, "address: snapshot version %d", blob[0])
	}
	count := int(binary.BigEndian.Uint16(blob[1:3]))
	off := 3

	for i := 0; i < count; i++ {
		if len(blob) < off+11 {
			return bacerr.ErrTruncated
		}
		deviceID := binary.BigEndian.Uint32(blob[off:])
		maxAPDU := binary.BigEndian.Uint32(blob[off+4:])
		var addr npdu.Address
		addr.Net = binary.BigEndian.Uint16(blob[off+8:])
		off += 10

		macLen := int(blob[off])
		off++
		if macLen > npdu.MaxMACLen || len(blob) < off+macLen+1 {
			return bacerr.ErrTruncated
		}
		addr.MACLen = uint8(macLen)
		copy(addr.MAC[:], blob[off:off+macLen])
		off += macLen

		adrLen := int(blob[off])
		off++
		if adrLen > npdu.MaxAdrLen || len(blob) < off+adrLen+1 {
			return bacerr.ErrTruncated
		}
		addr.Len = uint8(adrLen)
		copy(addr.Adr[:], blob[off:off+adrLen])
		off += adrLen

		held := blob[off] == 1
		off++

		if err := c.Add(deviceID, addr, maxAPDU); err != nil {
			return err
		}
		if held {
			c.Hold(deviceID, true)
		}
	}
	return nil
}
