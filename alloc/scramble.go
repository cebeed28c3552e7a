package alloc

import (
	"io"

	"github.com/bootkit/pmm/memmap"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slog"
)

const scramblePageSize = 0x1000

// ScrambleUsable overwrites every Usable byte below CreateOptions.AddressLimit with output from
// rng, so that code relying on zeroed memory fails early. Regions that cross the limit are
// clipped to it. Physical memory is reached through mem, addressed by physical address. The
// map itself is not modified.
func (a *Allocator) ScrambleUsable(rng *rand.Rand, mem io.WriterAt) error {
	a.logger.Debug("Allocator::ScrambleUsable", slog.Uint64("AddressLimit", a.options.AddressLimit))

	page := make([]byte, scramblePageSize)
	return a.memoryMap.VisitAllRegions(func(region memmap.Region) error {
		if region.Kind != memmap.Usable || region.Base >= a.options.AddressLimit {
			return nil
		}

		end := region.End()
		if end > a.options.AddressLimit {
			end = a.options.AddressLimit
		}

		for offset := region.Base; offset < end; {
			chunk := end - offset
			if chunk > scramblePageSize {
				chunk = scramblePageSize
			}

			_, _ = rng.Read(page[:chunk])
			_, err := mem.WriteAt(page[:chunk], int64(offset))
			if err != nil {
				return errors.Wrapf(err, "failed to scramble memory at 0x%x", offset)
			}

			offset += chunk
		}

		return nil
	})
}
