package boot

import (
	"io"

	"github.com/bootkit/pmm/alloc"
	"github.com/bootkit/pmm/firmware"
	"github.com/bootkit/pmm/memmap"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slog"
)

// FatalHandler is called by the Must functions when an allocation fails. The bootloader has no
// degraded mode without the memory it asked for, so a FatalHandler is not expected to return.
// If it does, the Must function returns zero.
type FatalHandler func(err error)

// SessionOptions contains optional settings when creating a Session. It is valid to leave all
// the fields blank.
type SessionOptions struct {
	memmap.Options
	alloc.CreateOptions

	// FatalHandler replaces the default handler, which logs the failure at Error level and panics
	FatalHandler FatalHandler

	// ScrambleTarget, if provided, receives a pass of pseudo-random bytes over all usable memory
	// below the address limit as soon as the map is built
	ScrambleTarget io.WriterAt
	// ScrambleSeed seeds the scramble pass
	ScrambleSeed uint64
}

// New queries source for the firmware memory map, builds the session's memory map from it and
// prepares the allocator. source is queried exactly once.
func New(logger *slog.Logger, source firmware.Source, translate memmap.Translator, options SessionOptions) (*Session, error) {
	if translate == nil {
		return nil, errors.New("boot.New requires a translator")
	}

	session := &Session{
		logger:    logger,
		translate: translate,
		options:   options,
		fatal:     options.FatalHandler,
	}
	if session.fatal == nil {
		session.fatal = session.defaultFatal
	}

	err := session.Reset(source)
	if err != nil {
		return nil, err
	}

	return session, nil
}

// Reset discards the current map, ledger and relocation plan, queries source again and starts
// the allocator over. Each boot stage that owns its own view of memory starts with a Reset.
func (s *Session) Reset(source firmware.Source) error {
	if source == nil {
		return errors.New("boot.Session requires a firmware source")
	}

	descriptors, err := source.QueryRawEntries()
	if err != nil {
		return errors.Wrap(err, "failed to query the firmware memory map")
	}

	memoryMap, err := memmap.BuildFromRaw(s.logger, descriptors, s.translate, s.options.Options)
	if err != nil {
		return err
	}

	createOptions := s.options.CreateOptions
	createOptions.Exclude = s.excludeLive
	allocator, err := alloc.New(s.logger, memoryMap, createOptions)
	if err != nil {
		return err
	}

	if s.options.ScrambleTarget != nil {
		err = allocator.ScrambleUsable(rand.New(rand.NewSource(s.options.ScrambleSeed)), s.options.ScrambleTarget)
		if err != nil {
			return err
		}
	}

	s.memoryMap = memoryMap
	s.allocator = allocator
	s.ledger = newLedger()
	s.plan = &alloc.RelocationPlan{}

	s.logger.Debug("Session::Reset",
		slog.Int("Descriptors", len(descriptors)),
		slog.Int("Entries", memoryMap.Len()),
		slog.Uint64("UsableBytes", memoryMap.TotalUsableBytes()))

	return nil
}

// excludeLive keeps the allocator from claiming reclaimable memory that still backs a live
// allocation, along with anything the caller's own Exclude reports
func (s *Session) excludeLive(base, length uint64) (uint64, bool) {
	if s.options.Exclude != nil {
		if end, excluded := s.options.Exclude(base, length); excluded {
			return end, true
		}
	}

	if s.ledger == nil {
		return 0, false
	}

	entryBase, entry, found := s.ledger.overlapping(base, length)
	if !found {
		return 0, false
	}
	return entryBase + entry.size, true
}

func (s *Session) defaultFatal(err error) {
	s.logger.Error("fatal allocation failure", slog.Any("error", err))
	panic(err)
}
