// Package boot is the allocation facade used by every boot stage. A Session owns the memory
// map and allocator for one stage and offers typed wrappers that fix the allocation parameters
// downstream code should not have to think about.
package boot

import (
	"io"

	"github.com/bootkit/pmm/alloc"
	"github.com/bootkit/pmm/memmap"
	"github.com/bootkit/pmm/memutils"
	"github.com/bootkit/pmm/protocol"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

const (
	// DefaultAlignment is the alignment of AllocExtended and AllocConventional
	DefaultAlignment uint64 = 16
	// ElsewhereAlignment is the alignment of staging areas chosen by PlaceElsewhere
	ElsewhereAlignment uint64 = 0x1000
)

// Session is the memory manager for a single boot stage. It is not safe for concurrent use.
type Session struct {
	logger    *slog.Logger
	translate memmap.Translator
	options   SessionOptions
	fatal     FatalHandler

	memoryMap *memmap.MemoryMap
	allocator *alloc.Allocator
	ledger    *ledger
	plan      *alloc.RelocationPlan
}

// MemoryMap returns the session's memory map. It must not be retained across Reset.
func (s *Session) MemoryMap() *memmap.MemoryMap {
	return s.memoryMap
}

// Cursor returns the allocator's current high-water marks
func (s *Session) Cursor() alloc.Cursor {
	return s.allocator.Cursor()
}

// LiveAllocations returns the number of allocations that have not been freed
func (s *Session) LiveAllocations() int {
	return s.ledger.count()
}

// AllocExtended allocates size bytes of BootloaderReclaimable memory anywhere above the
// extended cursor, aligned to DefaultAlignment
func (s *Session) AllocExtended(size uint64) (uint64, error) {
	return s.AllocExtendedAligned(size, DefaultAlignment, memmap.BootloaderReclaimable)
}

// AllocExtendedKind allocates size bytes of the given kind, aligned to DefaultAlignment
func (s *Session) AllocExtendedKind(size uint64, kind memmap.RegionKind) (uint64, error) {
	return s.AllocExtendedAligned(size, DefaultAlignment, kind)
}

// AllocExtendedAligned allocates size bytes of the given kind with the given alignment
func (s *Session) AllocExtendedAligned(size, alignment uint64, kind memmap.RegionKind) (uint64, error) {
	base, err := s.allocator.AllocAnywhere(size, alignment, kind)
	if err != nil {
		return 0, err
	}

	s.ledger.record(base, allocation{size: size, kind: kind, previous: memmap.Usable})
	return base, nil
}

// AllocConventional allocates size bytes below the conventional ceiling, aligned to
// DefaultAlignment, for buffers shared with real-mode firmware
func (s *Session) AllocConventional(size uint64) (uint64, error) {
	return s.AllocConventionalAligned(size, DefaultAlignment)
}

// AllocConventionalAligned allocates size bytes below the conventional ceiling with the given alignment
func (s *Session) AllocConventionalAligned(size, alignment uint64) (uint64, error) {
	base, err := s.allocator.AllocConventional(size, alignment)
	if err != nil {
		return 0, err
	}

	s.ledger.record(base, allocation{size: size, kind: memmap.BootloaderReclaimable, previous: memmap.Usable})
	return base, nil
}

// AllocFixed claims exactly [base, base+size) as the given kind. Reclaimable memory that
// still backs a live allocation from this session cannot be claimed.
func (s *Session) AllocFixed(base, size uint64, kind memmap.RegionKind) error {
	if size > 0 && !memutils.AddOverflows(base, size) {
		entryBase, entry, found := s.ledger.overlapping(base, size)
		if found {
			return errors.Wrapf(ErrOverlapsAllocation, "[0x%x - 0x%x) overlaps %s allocation [0x%x - 0x%x)",
				base, base+size, entry.kind, entryBase, entryBase+entry.size)
		}
	}

	previous, uniform := s.memoryMap.KindOf(base, size)
	if !uniform || !previous.Claimable() {
		previous = memmap.Usable
	}

	err := s.allocator.AllocFixed(base, size, kind)
	if err != nil {
		return err
	}

	s.ledger.record(base, allocation{size: size, kind: kind, previous: previous})
	return nil
}

// MustAllocExtended is AllocExtended, escalating failure to the fatal handler
func (s *Session) MustAllocExtended(size uint64) uint64 {
	return s.MustAllocExtendedAligned(size, DefaultAlignment, memmap.BootloaderReclaimable)
}

// MustAllocExtendedKind is AllocExtendedKind, escalating failure to the fatal handler
func (s *Session) MustAllocExtendedKind(size uint64, kind memmap.RegionKind) uint64 {
	return s.MustAllocExtendedAligned(size, DefaultAlignment, kind)
}

// MustAllocExtendedAligned is AllocExtendedAligned, escalating failure to the fatal handler
func (s *Session) MustAllocExtendedAligned(size, alignment uint64, kind memmap.RegionKind) uint64 {
	base, err := s.AllocExtendedAligned(size, alignment, kind)
	if err != nil {
		s.fatal(&AllocationFailure{Operation: "alloc_extended", Size: size, Alignment: alignment, Kind: kind, Err: err})
		return 0
	}
	return base
}

// MustAllocConventional is AllocConventional, escalating failure to the fatal handler
func (s *Session) MustAllocConventional(size uint64) uint64 {
	return s.MustAllocConventionalAligned(size, DefaultAlignment)
}

// MustAllocConventionalAligned is AllocConventionalAligned, escalating failure to the fatal handler
func (s *Session) MustAllocConventionalAligned(size, alignment uint64) uint64 {
	base, err := s.AllocConventionalAligned(size, alignment)
	if err != nil {
		s.fatal(&AllocationFailure{Operation: "alloc_conventional", Size: size, Alignment: alignment,
			Kind: memmap.BootloaderReclaimable, Err: err})
		return 0
	}
	return base
}

// MustAllocFixed is AllocFixed, escalating failure to the fatal handler
func (s *Session) MustAllocFixed(base, size uint64, kind memmap.RegionKind) {
	err := s.AllocFixed(base, size, kind)
	if err != nil {
		s.fatal(&AllocationFailure{Operation: "alloc_fixed", Size: size, Kind: kind, Address: &base, Err: err})
	}
}

// Free gives an allocation back, restoring the kind its span had before it was allocated. ptr
// and size must match an earlier allocation from this session exactly. Freed memory is not
// coalesced with its neighbours.
func (s *Session) Free(ptr, size uint64) error {
	entry, ok := s.ledger.lookup(ptr)
	if !ok {
		return errors.Wrapf(ErrUnknownAllocation, "free of 0x%x", ptr)
	}
	if entry.size != size {
		return errors.Wrapf(ErrSizeMismatch, "free of 0x%x with size 0x%x, allocated with size 0x%x", ptr, size, entry.size)
	}

	kind, uniform := s.memoryMap.KindOf(ptr, size)
	if !uniform || kind != entry.kind {
		return errors.Wrapf(ErrAllocationModified, "free of 0x%x, allocated as %s", ptr, entry.kind)
	}

	err := s.memoryMap.Insert(ptr, size, entry.previous, memmap.PolicyForce)
	if err != nil {
		return err
	}

	s.ledger.forget(ptr)
	s.logger.Debug("Session::Free", slog.Uint64("Base", ptr), slog.Uint64("Size", size), slog.String("Kind", entry.previous.String()))
	return nil
}

// ReleaseRange unconditionally marks [base, base+length) Usable. It is meant for memory that was
// provisionally reserved during firmware negotiation and turned out not to be needed.
func (s *Session) ReleaseRange(base, length uint64) error {
	s.logger.Debug("Session::ReleaseRange", slog.Uint64("Base", base), slog.Uint64("Length", length))
	return s.memoryMap.Insert(base, length, memmap.Usable, memmap.PolicyForce)
}

// ReleaseFirmwareReclaimable converts every FirmwareReclaimable entry to Usable and coalesces
// the map. It must only be called once the firmware has relinquished that memory, such as after
// ExitBootServices. Firmware runtime memory is left in place. The number of bytes released is
// returned.
func (s *Session) ReleaseFirmwareReclaimable() (uint64, error) {
	var released uint64
	for _, region := range s.memoryMap.RegionsOfKind(memmap.FirmwareReclaimable) {
		err := s.memoryMap.Insert(region.Base, region.Length, memmap.Usable, memmap.PolicyForce)
		if err != nil {
			return released, err
		}
		released += region.Length
	}

	s.memoryMap.Coalesce()
	s.logger.Debug("Session::ReleaseFirmwareReclaimable", slog.Uint64("Released", released))
	return released, nil
}

// PlaceElsewhere claims a page-aligned staging area for an image of length bytes loaded at
// source that must be copied to target at handoff
func (s *Session) PlaceElsewhere(source, length, target uint64) (uint64, error) {
	return s.allocator.PlaceElsewhere(s.plan, source, length, target, ElsewhereAlignment)
}

// Relocations returns the copies that must be performed at handoff, in the order they were planned
func (s *Session) Relocations() []alloc.Relocation {
	return s.plan.Relocations()
}

// Statistics returns detailed statistics over the current map
func (s *Session) Statistics() memmap.DetailedStatistics {
	var stats memmap.DetailedStatistics
	stats.Clear()
	s.memoryMap.AddDetailedStatistics(&stats)
	return stats
}

// DumpMap writes a human-readable listing of the memory map to w
func (s *Session) DumpMap(w io.Writer) error {
	return s.memoryMap.Dump(w)
}

// DumpMapJSON returns the memory map as JSON
func (s *Session) DumpMapJSON() ([]byte, error) {
	return s.memoryMap.JSON()
}

// Handoff returns the final memory map in a boot protocol's type codes. Adjacent entries with
// the same protocol type are merged.
func (s *Session) Handoff(encoder protocol.Encoder) []protocol.Entry {
	return protocol.Encode(s.memoryMap.Regions(), encoder)
}
