package alloc

import (
	"fmt"

	"github.com/bootkit/pmm/memmap"
	"github.com/cockroachdb/errors"
)

var (
	// ErrMisaligned is returned by AllocFixed when the requested base is not a multiple of
	// CreateOptions.FixedAlignment. The base is never silently aligned.
	ErrMisaligned = errors.New("requested base is misaligned")
	// ErrRegionUnavailable is the sentinel wrapped by RegionUnavailableError
	ErrRegionUnavailable = errors.New("requested region is unavailable")
	// ErrExcluded is returned by AllocFixed when the requested range overlaps a range reported
	// by CreateOptions.Exclude
	ErrExcluded = errors.New("requested region overlaps an excluded range")
	// ErrOutOfMemory is returned when no candidate address in the extended window can hold the
	// requested range
	ErrOutOfMemory = errors.New("out of memory")
	// ErrOutOfLowMemory is returned when no candidate address below the conventional ceiling
	// can hold the requested range
	ErrOutOfLowMemory = errors.New("out of conventional memory")
)

// RegionUnavailableError is returned by AllocFixed when the requested range covers memory that
// cannot be claimed. Kind is the kind of the first conflicting region, which is Reserved when
// the range runs into unmapped address space.
type RegionUnavailableError struct {
	Kind   memmap.RegionKind
	Region memmap.Region
	Hole   bool
}

func (e *RegionUnavailableError) Error() string {
	if e.Hole {
		return fmt.Sprintf("requested region is unavailable: unmapped memory at [0x%x - 0x%x)", e.Region.Base, e.Region.End())
	}
	return fmt.Sprintf("requested region is unavailable: %s memory at [0x%x - 0x%x)", e.Kind, e.Region.Base, e.Region.End())
}

func (e *RegionUnavailableError) Unwrap() error {
	return ErrRegionUnavailable
}
