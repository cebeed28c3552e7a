package alloc

import (
	"math"

	"github.com/bootkit/pmm/memmap"
	"github.com/bootkit/pmm/memutils"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

const (
	// DefaultExtendedStart is the first candidate address for extended allocations when none
	// is provided via CreateOptions. The first megabyte is left to the conventional allocator.
	DefaultExtendedStart uint64 = 0x100000
	// DefaultConventionalStart is the first candidate address for conventional allocations.
	// Page zero is never handed out.
	DefaultConventionalStart uint64 = 0x1000
	// DefaultConventionalCeiling is the end of real-mode addressable memory on legacy BIOS
	// machines, where the EBDA and video memory begin
	DefaultConventionalCeiling uint64 = 0xA0000
	// DefaultFixedAlignment is the granularity required of AllocFixed base addresses
	DefaultFixedAlignment uint64 = 0x1000
	// DefaultAddressLimit is the highest address ScrambleUsable will touch: memory above 4GiB
	// is not reachable from protected mode without paging
	DefaultAddressLimit uint64 = 1 << 32
)

// CreateOptions contains optional settings when creating an allocator. It is valid to leave all
// the fields blank.
type CreateOptions struct {
	// ExtendedStart is the initial value of the extended high-water cursor. Zero selects
	// DefaultExtendedStart: page zero is never handed out, so an extended cursor cannot start there.
	// Use a small nonzero value such as 0x1000 to scan from the bottom of memory.
	ExtendedStart uint64
	// ConventionalStart is the initial value of the conventional high-water cursor
	ConventionalStart uint64
	// ConventionalCeiling is the exclusive upper bound of conventional allocations
	ConventionalCeiling uint64
	// FixedAlignment is the alignment AllocFixed requires of its base address. It must be a
	// power of two.
	FixedAlignment uint64
	// AddressLimit is the exclusive upper bound of memory ScrambleUsable is permitted to write
	AddressLimit uint64

	// Exclude, if provided, is consulted before every claim. It reports whether [base, base+length)
	// overlaps memory the caller has already handed out, and if so the end of the overlapping
	// range, so that floating allocations can skip it.
	Exclude ExclusionFunc
}

// ExclusionFunc reports whether [base, base+length) overlaps an excluded range and, if it does,
// the first address past that range
type ExclusionFunc func(base, length uint64) (end uint64, excluded bool)

func (o CreateOptions) withDefaults() CreateOptions {
	if o.ExtendedStart == 0 {
		o.ExtendedStart = DefaultExtendedStart
	}
	if o.ConventionalStart == 0 {
		o.ConventionalStart = DefaultConventionalStart
	}
	if o.ConventionalCeiling == 0 {
		o.ConventionalCeiling = DefaultConventionalCeiling
	}
	if o.FixedAlignment == 0 {
		o.FixedAlignment = DefaultFixedAlignment
	}
	if o.AddressLimit == 0 {
		o.AddressLimit = DefaultAddressLimit
	}
	return o
}

// New creates a new Allocator
//
// memoryMap - The map that allocations are claimed from. The allocator does not take a copy:
// all claims are made directly in this map.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, memoryMap *memmap.MemoryMap, options CreateOptions) (*Allocator, error) {
	if memoryMap == nil {
		return nil, errors.New("alloc.New requires a memory map")
	}

	options = options.withDefaults()

	err := memutils.CheckPow2(options.FixedAlignment, "alloc.CreateOptions.FixedAlignment")
	if err != nil {
		return nil, err
	}

	if options.ConventionalStart >= options.ConventionalCeiling {
		return nil, errors.Newf("alloc.CreateOptions.ConventionalStart 0x%x must be below ConventionalCeiling 0x%x",
			options.ConventionalStart, options.ConventionalCeiling)
	}

	if options.AddressLimit > math.MaxInt64 {
		return nil, errors.Newf("alloc.CreateOptions.AddressLimit 0x%x is not addressable", options.AddressLimit)
	}

	allocator := &Allocator{
		logger:    logger,
		memoryMap: memoryMap,
		options:   options,
	}
	allocator.Reset()

	return allocator, nil
}
