// Package alloc claims ranges of physical memory out of a memmap.MemoryMap, either at a
// caller-chosen address or anywhere above a monotonically advancing cursor.
package alloc

import (
	"github.com/bootkit/pmm/memmap"
	"github.com/bootkit/pmm/memutils"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Cursor holds the next candidate addresses for floating allocations. Both fields only ever
// increase between calls to Allocator.Reset.
type Cursor struct {
	ExtendedHighWater     uint64
	ConventionalHighWater uint64
}

// Allocator is the range allocator for a single boot stage. It is not safe for concurrent use.
type Allocator struct {
	logger    *slog.Logger
	memoryMap *memmap.MemoryMap
	options   CreateOptions

	cursor Cursor
}

// Cursor returns the current high-water marks
func (a *Allocator) Cursor() Cursor {
	return a.cursor
}

// MemoryMap returns the map this allocator claims from
func (a *Allocator) MemoryMap() *memmap.MemoryMap {
	return a.memoryMap
}

// Options returns the allocator's options with defaults applied
func (a *Allocator) Options() CreateOptions {
	return a.options
}

// Reset returns both cursors to their starting addresses. It should be called when the
// underlying map has been rebuilt for a new boot stage.
func (a *Allocator) Reset() {
	a.cursor = Cursor{
		ExtendedHighWater:     a.options.ExtendedStart,
		ConventionalHighWater: a.options.ConventionalStart,
	}
}

// AllocFixed claims exactly [base, base+length) as the given kind. base must be a multiple of
// CreateOptions.FixedAlignment. If any part of the range is not usable or reclaimable, a
// *RegionUnavailableError is returned and the map is left untouched.
func (a *Allocator) AllocFixed(base, length uint64, kind memmap.RegionKind) error {
	a.logger.Debug("Allocator::AllocFixed", slog.Uint64("Base", base), slog.Uint64("Length", length), slog.String("Kind", kind.String()))

	if !memutils.IsAligned(base, a.options.FixedAlignment) {
		return errors.Wrapf(ErrMisaligned, "base 0x%x is not aligned to 0x%x", base, a.options.FixedAlignment)
	}

	if end, excluded := a.excluded(base, length); excluded {
		return errors.Wrapf(ErrExcluded, "[0x%x - 0x%x) overlaps a range ending at 0x%x", base, base+length, end)
	}

	err := a.memoryMap.Insert(base, length, kind, memmap.PolicyMustBeUsableOrReclaimable)
	var conflict *memmap.ConflictError
	if errors.As(err, &conflict) {
		a.logger.Debug("  AllocFixed FAILED", slog.String("Conflict", conflict.Region.String()))
		return &RegionUnavailableError{
			Kind:   conflict.Region.Kind,
			Region: conflict.Region,
			Hole:   conflict.Hole,
		}
	}

	return err
}

// AllocAnywhere claims length bytes aligned to alignment as the given kind, at the lowest
// address not below the extended cursor that can hold them. On success the extended cursor
// moves to the end of the claimed range.
func (a *Allocator) AllocAnywhere(length, alignment uint64, kind memmap.RegionKind) (uint64, error) {
	a.logger.Debug("Allocator::AllocAnywhere", slog.Uint64("Length", length), slog.Uint64("Alignment", alignment), slog.String("Kind", kind.String()))

	base, err := a.scan(a.cursor.ExtendedHighWater, a.memoryMap.HighestAddress(), length, alignment, kind, ErrOutOfMemory)
	if err != nil {
		return 0, err
	}

	a.cursor.ExtendedHighWater = base + length
	return base, nil
}

// AllocConventional claims length bytes aligned to alignment below the conventional ceiling,
// for buffers that must be reachable from real mode. Allocations are always
// BootloaderReclaimable. Exhaustion is reported as ErrOutOfLowMemory even when extended memory
// is plentiful.
func (a *Allocator) AllocConventional(length, alignment uint64) (uint64, error) {
	a.logger.Debug("Allocator::AllocConventional", slog.Uint64("Length", length), slog.Uint64("Alignment", alignment))

	base, err := a.scan(a.cursor.ConventionalHighWater, a.options.ConventionalCeiling, length, alignment,
		memmap.BootloaderReclaimable, ErrOutOfLowMemory)
	if err != nil {
		return 0, err
	}

	a.cursor.ConventionalHighWater = base + length
	return base, nil
}

func (a *Allocator) excluded(base, length uint64) (uint64, bool) {
	if a.options.Exclude == nil || length == 0 || memutils.AddOverflows(base, length) {
		return 0, false
	}
	return a.options.Exclude(base, length)
}

// scan tries candidate addresses from start upward, claiming the first one at which
// [candidate, candidate+length) fits below ceiling. Each failed attempt moves past the region
// that caused the conflict, so the candidate strictly increases on every iteration.
func (a *Allocator) scan(start, ceiling, length, alignment uint64, kind memmap.RegionKind, exhausted error) (uint64, error) {
	if length == 0 {
		return 0, errors.Wrap(memmap.ErrInvalidRange, "cannot allocate zero bytes")
	}
	if alignment == 0 {
		alignment = 1
	}
	err := memutils.CheckPow2(alignment, "alignment")
	if err != nil {
		return 0, err
	}

	candidate, ok := memutils.AlignUp(start, alignment)
	for ok {
		if memutils.AddOverflows(candidate, length) || candidate+length > ceiling {
			break
		}

		if end, excluded := a.excluded(candidate, length); excluded {
			next, aligned := memutils.AlignUp(end, alignment)
			candidate, ok = next, aligned && next > candidate
			continue
		}

		err = a.memoryMap.Insert(candidate, length, kind, memmap.PolicyMustBeUsableOrReclaimable)
		if err == nil {
			a.logger.Debug("  Claimed", slog.Uint64("Base", candidate), slog.Uint64("Length", length))
			return candidate, nil
		}

		var conflict *memmap.ConflictError
		if !errors.As(err, &conflict) {
			return 0, err
		}

		candidate, ok = memutils.AlignUp(conflict.Region.End(), alignment)
	}

	a.logger.Debug("  Scan exhausted", slog.Uint64("Start", start), slog.Uint64("Ceiling", ceiling))
	return 0, errors.Wrapf(exhausted, "no 0x%x-aligned range of 0x%x bytes of %s below 0x%x", alignment, length, kind, ceiling)
}
