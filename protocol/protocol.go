// Package protocol converts the final memory map into the entry lists that boot protocols hand
// to the kernel, each with its own numeric type codes.
package protocol

import "github.com/bootkit/pmm/memmap"

// Encoder maps a region kind to a boot protocol's memory type code
type Encoder func(kind memmap.RegionKind) uint32

// Entry is a single memory map entry as a boot protocol reports it
type Entry struct {
	Base   uint64
	Length uint64
	Type   uint32
}

// End returns the first address past the entry
func (e Entry) End() uint64 {
	return e.Base + e.Length
}

// Encode translates regions, which must be sorted and non-overlapping, into protocol entries.
// Adjacent regions that encode to the same type are merged into a single entry.
func Encode(regions []memmap.Region, encoder Encoder) []Entry {
	entries := make([]Entry, 0, len(regions))

	for _, region := range regions {
		entryType := encoder(region.Kind)

		if len(entries) > 0 {
			last := &entries[len(entries)-1]
			if last.Type == entryType && last.End() == region.Base {
				last.Length += region.Length
				continue
			}
		}

		entries = append(entries, Entry{Base: region.Base, Length: region.Length, Type: entryType})
	}

	return entries
}
