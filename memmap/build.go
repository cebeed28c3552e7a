package memmap

import (
	"sort"

	"github.com/bootkit/pmm/memutils"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// BuildFromRaw creates a MemoryMap from the descriptors reported by the firmware.
//
// Descriptors with zero length, or whose end would wrap the address space, are skipped with a
// warning: firmware is known to report garbage entries and they are not worth failing the boot
// over. Type codes are converted with translate; anything that does not translate to a valid kind
// is treated as Reserved. Where descriptors overlap, the more restrictive kind wins (so a Reserved
// descriptor inside a Usable one punches a hole in it). Finally, adjacent entries of the same kind
// are merged.
//
// ErrTooManyEntries is returned if the firmware reported more descriptors than options.MaxEntries,
// or if resolving overlaps produced more entries than fit.
func BuildFromRaw(logger *slog.Logger, descriptors []RawDescriptor, translate Translator, options Options) (*MemoryMap, error) {
	maxEntries := options.maxEntries()
	if len(descriptors) > maxEntries {
		return nil, errors.Wrapf(ErrTooManyEntries, "firmware reported %d entries, limit is %d", len(descriptors), maxEntries)
	}

	if options.UsableAlignment > 1 {
		err := memutils.CheckPow2(options.UsableAlignment, "memmap.Options.UsableAlignment")
		if err != nil {
			return nil, err
		}
	}

	entries := make([]Region, 0, len(descriptors))
	for index, desc := range descriptors {
		if desc.Length == 0 {
			logger.Warn("skipping zero-length firmware memory descriptor",
				slog.Int("Index", index),
				slog.Uint64("Base", desc.Base),
				slog.Uint64("FirmwareType", uint64(desc.FirmwareType)))
			continue
		}

		if memutils.AddOverflows(desc.Base, desc.Length) {
			logger.Warn("skipping firmware memory descriptor that wraps the address space",
				slog.Int("Index", index),
				slog.Uint64("Base", desc.Base),
				slog.Uint64("Length", desc.Length))
			continue
		}

		kind := translate(desc.FirmwareType)
		if !kind.Valid() {
			kind = Reserved
		}

		entries = append(entries, Region{Base: desc.Base, Length: desc.Length, Kind: kind})
	}

	// Overlay the least restrictive kinds first, so more restrictive ones overwrite them
	sort.SliceStable(entries, func(i, j int) bool {
		left, right := restrictiveness[entries[i].Kind], restrictiveness[entries[j].Kind]
		if left != right {
			return left < right
		}
		return entries[i].Base < entries[j].Base
	})

	// Overlapping descriptors can split each other, so resolve them with room to spare and
	// check the final entry count against the real limit afterwards
	scratch := New(2*len(entries) + 1)
	for _, entry := range entries {
		err := scratch.Insert(entry.Base, entry.Length, entry.Kind, PolicyForce)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to place firmware descriptor [0x%x - 0x%x)", entry.Base, entry.End())
		}
	}

	if options.UsableAlignment > 1 {
		scratch.alignUsable(options.UsableAlignment)
	}
	scratch.Coalesce()

	if scratch.Len() > maxEntries {
		return nil, errors.Wrapf(ErrTooManyEntries, "firmware map resolved to %d entries, limit is %d", scratch.Len(), maxEntries)
	}

	m := New(maxEntries)
	m.regions = append(m.regions, scratch.regions...)
	memutils.DebugValidate(m)

	logger.Debug("MemoryMap::BuildFromRaw",
		slog.Int("Descriptors", len(descriptors)),
		slog.Int("Entries", m.Len()),
		slog.Uint64("UsableBytes", m.TotalUsableBytes()))

	return m, nil
}
