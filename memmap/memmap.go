package memmap

import (
	"github.com/bootkit/pmm/memutils"
	"github.com/cockroachdb/errors"
)

const (
	// DefaultMaxEntries is the entry capacity used when Options.MaxEntries is left at zero. It
	// matches the size of the static E820 buffer used on the BIOS path.
	DefaultMaxEntries = 256
)

// Options contains optional settings used when building a MemoryMap
type Options struct {
	// MaxEntries is the fixed capacity of the map. Firmware reporting more descriptors than this,
	// or a mutation that would split the map past it, fails with ErrTooManyEntries.
	MaxEntries int
	// UsableAlignment, if greater than 1, shrinks every Usable entry inward to this alignment
	// while the map is built. It must be a power of two.
	UsableAlignment uint64
}

func (o Options) maxEntries() int {
	if o.MaxEntries <= 0 {
		return DefaultMaxEntries
	}
	return o.MaxEntries
}

// MemoryMap is the canonical list of typed intervals describing physical memory. Entries are
// kept sorted ascending by base and never overlap.
//
// The entry vector is allocated once at construction with room for MaxEntries regions and is
// never reallocated, so growing the map can never require an allocation from the memory the
// map itself describes. Region values handed out by queries are copies; callers must re-query
// after any mutation rather than hold on to them.
type MemoryMap struct {
	maxEntries int
	regions    []Region
}

var _ memutils.Validatable = &MemoryMap{}

// New creates an empty MemoryMap with the given capacity. A capacity of zero or less selects
// DefaultMaxEntries.
func New(maxEntries int) *MemoryMap {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	return &MemoryMap{
		maxEntries: maxEntries,
		regions:    make([]Region, 0, maxEntries),
	}
}

// NewFromRegions creates a MemoryMap holding a copy of regions, which must already be sorted,
// non-overlapping and fit in maxEntries.
func NewFromRegions(maxEntries int, regions []Region) (*MemoryMap, error) {
	m := New(maxEntries)
	if len(regions) > m.maxEntries {
		return nil, errors.Wrapf(ErrTooManyEntries, "%d regions provided, limit is %d", len(regions), m.maxEntries)
	}

	m.regions = append(m.regions, regions...)
	err := m.Validate()
	if err != nil {
		return nil, err
	}

	return m, nil
}

// MaxEntries returns the fixed entry capacity of the map
func (m *MemoryMap) MaxEntries() int { return m.maxEntries }

// Len returns the number of entries currently in the map
func (m *MemoryMap) Len() int { return len(m.regions) }

// Clear removes every entry from the map without releasing its storage
func (m *MemoryMap) Clear() {
	m.regions = m.regions[:0]
}

// Coalesce merges adjacent entries of identical kind and returns the number of entries removed
func (m *MemoryMap) Coalesce() int {
	if len(m.regions) < 2 {
		return 0
	}

	out := 0
	for i := 1; i < len(m.regions); i++ {
		current := m.regions[i]
		previous := &m.regions[out]

		if previous.Kind == current.Kind && previous.End() == current.Base {
			previous.Length += current.Length
			continue
		}

		out++
		m.regions[out] = current
	}

	removed := len(m.regions) - (out + 1)
	m.regions = m.regions[:out+1]
	memutils.DebugValidate(m)

	return removed
}

// splice replaces the entries in [first, last) with replacement, shifting the tail of the
// vector as needed. The caller has already verified that the result fits in maxEntries.
func (m *MemoryMap) splice(first, last int, replacement []Region) {
	oldLen := len(m.regions)
	newLen := oldLen - (last - first) + len(replacement)

	if newLen > oldLen {
		m.regions = m.regions[:newLen]
	}

	copy(m.regions[first+len(replacement):newLen], m.regions[last:oldLen])
	copy(m.regions[first:], replacement)
	m.regions = m.regions[:newLen]
}

// alignUsable shrinks every Usable entry inward to alignment, dropping entries that
// disappear entirely
func (m *MemoryMap) alignUsable(alignment uint64) {
	memutils.DebugCheckPow2(alignment, "alignment")

	out := 0
	for _, region := range m.regions {
		if region.Kind == Usable {
			base, ok := memutils.AlignUp(region.Base, alignment)
			end := memutils.AlignDown(region.End(), alignment)
			if !ok || end <= base {
				continue
			}

			region.Base = base
			region.Length = end - base
		}

		m.regions[out] = region
		out++
	}

	m.regions = m.regions[:out]
}
