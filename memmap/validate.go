package memmap

import (
	"github.com/cockroachdb/errors"
)

// Validate performs internal consistency checks on the map: every entry has a valid kind and a
// non-zero length that does not wrap the address space, and entries are sorted ascending by base
// without overlapping. When the map is functioning correctly, it should not be possible for this
// method to return an error.
func (m *MemoryMap) Validate() error {
	if len(m.regions) > m.maxEntries {
		return errors.Newf("the map holds %d entries, but its capacity is %d", len(m.regions), m.maxEntries)
	}

	for index, region := range m.regions {
		if !region.Kind.Valid() {
			return errors.Newf("entry %d at 0x%x has invalid kind %d", index, region.Base, uint32(region.Kind))
		}

		if region.Length == 0 {
			return errors.Newf("entry %d at 0x%x has zero length", index, region.Base)
		}

		if region.End() < region.Base {
			return errors.Newf("entry %d at 0x%x with length 0x%x wraps the address space", index, region.Base, region.Length)
		}

		if index > 0 {
			previous := m.regions[index-1]
			if previous.End() > region.Base {
				return errors.Newf("entry %d %s overlaps or precedes entry %d %s", index, region, index-1, previous)
			}
		}
	}

	return nil
}
