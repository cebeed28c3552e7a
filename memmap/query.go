package memmap

import (
	"sort"

	"github.com/bootkit/pmm/memutils"
)

// FindContaining returns the entry containing addr, if any
func (m *MemoryMap) FindContaining(addr uint64) (Region, bool) {
	index := sort.Search(len(m.regions), func(index int) bool {
		return m.regions[index].End() > addr
	})

	if index < len(m.regions) && m.regions[index].Contains(addr) {
		return m.regions[index], true
	}

	return Region{}, false
}

// KindOf returns the kind of the memory in [base, base+length) if the whole range is covered,
// without gaps, by entries of a single kind
func (m *MemoryMap) KindOf(base, length uint64) (RegionKind, bool) {
	if length == 0 || memutils.AddOverflows(base, length) {
		return KindInvalid, false
	}

	end := base + length
	first, last := m.intersecting(base, end)
	if first == last {
		return KindInvalid, false
	}

	kind := m.regions[first].Kind
	cursor := base
	for index := first; index < last; index++ {
		region := m.regions[index]
		if region.Base > cursor || region.Kind != kind {
			return KindInvalid, false
		}
		cursor = region.End()
	}

	if cursor < end {
		return KindInvalid, false
	}

	return kind, true
}

// TotalUsableBytes returns the number of bytes currently in Usable entries
func (m *MemoryMap) TotalUsableBytes() uint64 {
	var total uint64
	for _, region := range m.regions {
		if region.Kind == Usable {
			total += region.Length
		}
	}
	return total
}

// HighestAddress returns the first address past the highest entry in the map, or 0 if the map is empty
func (m *MemoryMap) HighestAddress() uint64 {
	if len(m.regions) == 0 {
		return 0
	}
	return m.regions[len(m.regions)-1].End()
}

// Regions returns a copy of every entry in the map, in ascending order
func (m *MemoryMap) Regions() []Region {
	regions := make([]Region, len(m.regions))
	copy(regions, m.regions)
	return regions
}

// RegionsOfKind returns a copy of every entry of the given kind, in ascending order
func (m *MemoryMap) RegionsOfKind(kind RegionKind) []Region {
	var regions []Region
	for _, region := range m.regions {
		if region.Kind == kind {
			regions = append(regions, region)
		}
	}
	return regions
}

// VisitAllRegions calls handleRegion once for each entry in ascending order, stopping at the first error.
// handleRegion must not mutate the map.
func (m *MemoryMap) VisitAllRegions(handleRegion func(region Region) error) error {
	for _, region := range m.regions {
		err := handleRegion(region)
		if err != nil {
			return err
		}
	}
	return nil
}

// Iterator walks the entries of a MemoryMap in ascending order. It reads the live map, so
// it must be Reset after any mutation.
type Iterator struct {
	m     *MemoryMap
	index int
}

// Iterator returns an Iterator positioned before the first entry
func (m *MemoryMap) Iterator() *Iterator {
	return &Iterator{m: m}
}

// Next returns the next entry, or false once every entry has been returned
func (it *Iterator) Next() (Region, bool) {
	if it.index >= len(it.m.regions) {
		return Region{}, false
	}

	region := it.m.regions[it.index]
	it.index++
	return region, true
}

// Reset repositions the iterator before the first entry
func (it *Iterator) Reset() {
	it.index = 0
}
