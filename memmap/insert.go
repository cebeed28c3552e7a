package memmap

import (
	"math"
	"sort"

	"github.com/bootkit/pmm/memutils"
	"github.com/cockroachdb/errors"
)

// Insert places a new entry of the given kind covering exactly [base, base+length), splitting
// any entries it intersects so that their remainders on either side survive with their original
// kind. policy decides what happens when the range covers memory that is not free; see Policy.
//
// Insert is all-or-nothing: if it returns an error, the map has not been modified. This is what
// allows the allocator to test candidate addresses by simply attempting an insertion.
func (m *MemoryMap) Insert(base, length uint64, kind RegionKind, policy Policy) error {
	if length == 0 || memutils.AddOverflows(base, length) {
		return errors.Wrapf(ErrInvalidRange, "base 0x%x length 0x%x", base, length)
	}
	if !kind.Valid() {
		return errors.Newf("cannot insert a region of kind %d", uint32(kind))
	}

	end := base + length
	first, last := m.intersecting(base, end)

	if policy != PolicyForce {
		err := m.checkClaimable(base, end, first, last)
		if err != nil {
			return err
		}

		if policy == PolicySimulateOnly {
			return nil
		}
	}

	var replacement [3]Region
	count := 0

	if first < last && m.regions[first].Base < base {
		left := m.regions[first]
		left.Length = base - left.Base
		replacement[count] = left
		count++
	}

	replacement[count] = Region{Base: base, Length: length, Kind: kind}
	count++

	if first < last && m.regions[last-1].End() > end {
		right := m.regions[last-1]
		right.Length = right.End() - end
		right.Base = end
		replacement[count] = right
		count++
	}

	newLen := len(m.regions) - (last - first) + count
	if newLen > m.maxEntries {
		return errors.Wrapf(ErrTooManyEntries, "inserting [0x%x - 0x%x) would grow the map to %d entries, limit is %d",
			base, end, newLen, m.maxEntries)
	}

	m.splice(first, last, replacement[:count])
	memutils.DebugValidate(m)

	return nil
}

// Check reports whether [base, base+length) could currently be claimed with
// PolicyMustBeUsableOrReclaimable. It is shorthand for an Insert with PolicySimulateOnly.
func (m *MemoryMap) Check(base, length uint64) error {
	return m.Insert(base, length, Usable, PolicySimulateOnly)
}

// intersecting returns the half-open index range of entries that share at least one byte with [base, end)
func (m *MemoryMap) intersecting(base, end uint64) (int, int) {
	first := sort.Search(len(m.regions), func(index int) bool {
		return m.regions[index].End() > base
	})
	last := sort.Search(len(m.regions), func(index int) bool {
		return m.regions[index].Base >= end
	})

	if last < first {
		last = first
	}

	return first, last
}

// checkClaimable verifies that every byte of [base, end) is covered by claimable entries. The
// first offending entry or uncovered gap is returned as a ConflictError.
func (m *MemoryMap) checkClaimable(base, end uint64, first, last int) error {
	cursor := base

	for index := first; index < last; index++ {
		region := m.regions[index]

		if region.Base > cursor {
			return &ConflictError{
				Region: Region{Base: cursor, Length: region.Base - cursor, Kind: Reserved},
				Hole:   true,
			}
		}

		if !region.Kind.Claimable() {
			return &ConflictError{Region: region}
		}

		cursor = region.End()
	}

	if cursor < end {
		holeEnd := uint64(math.MaxUint64)
		if last < len(m.regions) {
			holeEnd = m.regions[last].Base
		}

		return &ConflictError{
			Region: Region{Base: cursor, Length: holeEnd - cursor, Kind: Reserved},
			Hole:   true,
		}
	}

	return nil
}
