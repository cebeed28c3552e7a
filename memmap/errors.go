package memmap

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrTooManyEntries is returned when the firmware reports, or a mutation would produce,
	// more entries than the map's fixed capacity
	ErrTooManyEntries = errors.New("memory map entry limit exceeded")
	// ErrConflict is the sentinel wrapped by ConflictError
	ErrConflict = errors.New("range conflicts with the memory map")
	// ErrInvalidRange is returned for zero-length ranges and ranges that wrap the address space
	ErrInvalidRange = errors.New("invalid memory range")
)

// ConflictError is returned by Insert when the target range covers memory that the policy does
// not allow to be claimed. Region is the first offending entry; when Hole is true, the target range
// ran into address space that no entry describes and Region spans that gap with kind Reserved.
type ConflictError struct {
	Region Region
	Hole   bool
}

func (e *ConflictError) Error() string {
	if e.Hole {
		return fmt.Sprintf("range conflicts with unmapped memory at [0x%x - 0x%x)", e.Region.Base, e.Region.End())
	}
	return fmt.Sprintf("range conflicts with %s memory at [0x%x - 0x%x)", e.Region.Kind, e.Region.Base, e.Region.End())
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
