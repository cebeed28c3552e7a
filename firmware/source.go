// Package firmware is the boundary between the physical memory manager and the platform
// firmware's memory map query. It owns the firmware-specific type codes and their translation
// into memmap.RegionKind.
package firmware

//go:generate mockgen -source source.go -destination ./mocks/source.go -package mock_firmware

import (
	"github.com/bootkit/pmm/memmap"
	"github.com/cockroachdb/errors"
)

// ErrUnsupported should be returned by a Source that has no way to query the memory map on
// the current platform
var ErrUnsupported = errors.New("firmware memory map query is not supported")

// Source retrieves the raw memory map from the platform firmware. QueryRawEntries is called
// exactly once each time a boot stage initializes its memory map.
type Source interface {
	QueryRawEntries() ([]memmap.RawDescriptor, error)
}

// StaticSource is a Source that returns a fixed set of descriptors, such as a map handed over
// by a previous boot stage
type StaticSource []memmap.RawDescriptor

// QueryRawEntries returns a copy of the descriptors
func (s StaticSource) QueryRawEntries() ([]memmap.RawDescriptor, error) {
	if s == nil {
		return nil, ErrUnsupported
	}

	descriptors := make([]memmap.RawDescriptor, len(s))
	copy(descriptors, s)
	return descriptors, nil
}
