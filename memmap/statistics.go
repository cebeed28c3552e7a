package memmap

import "math"

// Statistics summarizes the contents of a MemoryMap
type Statistics struct {
	RegionCount int
	TotalBytes  uint64
	KindCount   [kindCount]int
	KindBytes   [kindCount]uint64
}

// Clear resets every counter to zero
func (s *Statistics) Clear() {
	*s = Statistics{}
}

// Bytes returns the number of bytes counted for kind
func (s *Statistics) Bytes(kind RegionKind) uint64 {
	if !kind.Valid() {
		return 0
	}
	return s.KindBytes[kind]
}

// Count returns the number of regions counted for kind
func (s *Statistics) Count(kind RegionKind) int {
	if !kind.Valid() {
		return 0
	}
	return s.KindCount[kind]
}

// AddRegion counts a single region
func (s *Statistics) AddRegion(region Region) {
	s.RegionCount++
	s.TotalBytes += region.Length

	if region.Kind.Valid() {
		s.KindCount[region.Kind]++
		s.KindBytes[region.Kind] += region.Length
	}
}

// AddStatistics sums other into s
func (s *Statistics) AddStatistics(other *Statistics) {
	s.RegionCount += other.RegionCount
	s.TotalBytes += other.TotalBytes

	for kind := range s.KindCount {
		s.KindCount[kind] += other.KindCount[kind]
		s.KindBytes[kind] += other.KindBytes[kind]
	}
}

// DetailedStatistics extends Statistics with size extremes for free and allocated ranges.
// An allocated range is any BootloaderReclaimable or KernelAndModules entry.
type DetailedStatistics struct {
	Statistics
	UsableRangeCount   int
	UsableRangeSizeMin uint64
	UsableRangeSizeMax uint64
	AllocationCount    int
	AllocationSizeMin  uint64
	AllocationSizeMax  uint64
}

// Clear resets every counter, leaving the minimums at their identity value
func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.UsableRangeCount = 0
	s.UsableRangeSizeMin = math.MaxUint64
	s.UsableRangeSizeMax = 0
	s.AllocationCount = 0
	s.AllocationSizeMin = math.MaxUint64
	s.AllocationSizeMax = 0
}

// AddRegion counts a single region
func (s *DetailedStatistics) AddRegion(region Region) {
	s.Statistics.AddRegion(region)

	switch region.Kind {
	case Usable:
		s.UsableRangeCount++
		if region.Length < s.UsableRangeSizeMin {
			s.UsableRangeSizeMin = region.Length
		}
		if region.Length > s.UsableRangeSizeMax {
			s.UsableRangeSizeMax = region.Length
		}
	case BootloaderReclaimable, KernelAndModules:
		s.AllocationCount++
		if region.Length < s.AllocationSizeMin {
			s.AllocationSizeMin = region.Length
		}
		if region.Length > s.AllocationSizeMax {
			s.AllocationSizeMax = region.Length
		}
	}
}

// AddStatistics sums this map's contents into the statistics currently present in stats
func (m *MemoryMap) AddStatistics(stats *Statistics) {
	for _, region := range m.regions {
		stats.AddRegion(region)
	}
}

// AddDetailedStatistics sums this map's contents into the statistics currently present in stats
func (m *MemoryMap) AddDetailedStatistics(stats *DetailedStatistics) {
	for _, region := range m.regions {
		stats.AddRegion(region)
	}
}
