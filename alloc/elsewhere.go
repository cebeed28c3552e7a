package alloc

import (
	"github.com/bootkit/pmm/memmap"
	"github.com/bootkit/pmm/memutils"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// sourceStep is how far a temporary placement advances when it overlaps the source of an
// image. Source buffers are small allocations that are already in place, so a page step is
// enough to clear them.
const sourceStep uint64 = 0x1000

// Relocation describes an image that has been loaded at Source, staged at Elsewhere, and must be
// copied to Target immediately before the kernel is entered
type Relocation struct {
	Source    uint64
	Elsewhere uint64
	Target    uint64
	Length    uint64
}

func (r Relocation) overlapsSource(base, length uint64) bool {
	return base < r.Source+r.Length && r.Source < base+length
}

func (r Relocation) overlapsTarget(base, length uint64) bool {
	return base < r.Target+r.Length && r.Target < base+length
}

// RelocationPlan collects the relocations that must be performed at handoff. Staging areas
// are chosen so that they never overlap the source or target of any image in the plan, which
// means the final copies can be performed in any order.
type RelocationPlan struct {
	relocations []Relocation
}

// Relocations returns a copy of the recorded relocations in the order they were planned
func (p *RelocationPlan) Relocations() []Relocation {
	relocations := make([]Relocation, len(p.relocations))
	copy(relocations, p.relocations)
	return relocations
}

// Len returns the number of recorded relocations
func (p *RelocationPlan) Len() int {
	return len(p.relocations)
}

// avoid returns the next candidate to try when a staging area at candidate would overlap the
// source or target of any planned image, or of pending itself
func (p *RelocationPlan) avoid(pending Relocation, candidate, alignment uint64) (uint64, bool) {
	for index := 0; index <= len(p.relocations); index++ {
		relocation := pending
		if index < len(p.relocations) {
			relocation = p.relocations[index]
		}

		if relocation.overlapsTarget(candidate, pending.Length) {
			next, _ := memutils.AlignUp(relocation.Target+relocation.Length, alignment)
			return next, true
		}

		if relocation.overlapsSource(candidate, pending.Length) {
			if memutils.AddOverflows(candidate, sourceStep) {
				return 0, true
			}
			next, _ := memutils.AlignUp(candidate+sourceStep, alignment)
			return next, true
		}
	}

	return candidate, false
}

// PlaceElsewhere finds and claims a BootloaderReclaimable staging area for an image of length
// bytes currently at source that must eventually land at target, and records it in plan.
//
// The search starts at the extended cursor. A candidate that overlaps the target of any planned
// image jumps to the top of that target. A candidate that overlaps the source of any planned
// image only advances by one page. A candidate the map refuses jumps to the top of the
// conflicting region.
func (a *Allocator) PlaceElsewhere(plan *RelocationPlan, source, length, target, alignment uint64) (uint64, error) {
	a.logger.Debug("Allocator::PlaceElsewhere",
		slog.Uint64("Source", source),
		slog.Uint64("Target", target),
		slog.Uint64("Length", length))

	if length == 0 || memutils.AddOverflows(source, length) || memutils.AddOverflows(target, length) {
		return 0, errors.Wrapf(memmap.ErrInvalidRange, "relocation of 0x%x bytes from 0x%x to 0x%x", length, source, target)
	}
	if alignment == 0 {
		alignment = 1
	}
	err := memutils.CheckPow2(alignment, "alignment")
	if err != nil {
		return 0, err
	}

	pending := Relocation{Source: source, Target: target, Length: length}
	ceiling := a.memoryMap.HighestAddress()

	candidate, ok := memutils.AlignUp(a.cursor.ExtendedHighWater, alignment)
	for ok {
		if memutils.AddOverflows(candidate, length) || candidate+length > ceiling {
			break
		}

		next, moved := plan.avoid(pending, candidate, alignment)
		if moved {
			candidate, ok = next, next > candidate
			continue
		}

		if end, excluded := a.excluded(candidate, length); excluded {
			next, aligned := memutils.AlignUp(end, alignment)
			candidate, ok = next, aligned && next > candidate
			continue
		}

		err = a.memoryMap.Insert(candidate, length, memmap.BootloaderReclaimable, memmap.PolicyMustBeUsableOrReclaimable)
		if err == nil {
			pending.Elsewhere = candidate
			plan.relocations = append(plan.relocations, pending)

			if candidate+length > a.cursor.ExtendedHighWater {
				a.cursor.ExtendedHighWater = candidate + length
			}

			return candidate, nil
		}

		var conflict *memmap.ConflictError
		if !errors.As(err, &conflict) {
			return 0, err
		}

		candidate, ok = memutils.AlignUp(conflict.Region.End(), alignment)
	}

	return 0, errors.Wrapf(ErrOutOfMemory, "no staging area for 0x%x bytes bound for 0x%x", length, target)
}
