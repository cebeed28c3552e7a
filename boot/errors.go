package boot

import (
	"fmt"
	"strings"

	"github.com/bootkit/pmm/alloc"
	"github.com/bootkit/pmm/memmap"
	"github.com/cockroachdb/errors"
)

var (
	// ErrUnknownAllocation is returned by Free for a pointer the session never handed out
	ErrUnknownAllocation = errors.New("pointer was not allocated by this session")
	// ErrSizeMismatch is returned by Free when the size differs from the allocated size
	ErrSizeMismatch = errors.New("size does not match the allocation")
	// ErrOverlapsAllocation is returned by AllocFixed when the requested range overlaps an
	// allocation this session has not freed
	ErrOverlapsAllocation = errors.New("range overlaps a live allocation")
	// ErrAllocationModified is returned by Free when the allocated span no longer carries the
	// kind it was allocated as
	ErrAllocationModified = errors.New("allocation was modified after it was made")
)

// AllocationFailure describes a failed allocation that a Must function escalated to the fatal
// handler. Its message is the diagnostic printed before the machine halts.
type AllocationFailure struct {
	Operation string
	Size      uint64
	Alignment uint64
	Kind      memmap.RegionKind
	// Address is the requested base for fixed allocations
	Address *uint64
	Err     error
}

func (f *AllocationFailure) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%s: failed to allocate 0x%x bytes", f.Operation, f.Size)
	if f.Address != nil {
		fmt.Fprintf(&builder, " at 0x%x", *f.Address)
	}
	if f.Alignment > 0 {
		fmt.Fprintf(&builder, " aligned to 0x%x", f.Alignment)
	}
	fmt.Fprintf(&builder, " as %s", f.Kind)

	var unavailable *alloc.RegionUnavailableError
	if errors.As(f.Err, &unavailable) {
		fmt.Fprintf(&builder, ", conflicting with %s", unavailable.Kind)
	}

	fmt.Fprintf(&builder, ": %v", f.Err)
	return builder.String()
}

func (f *AllocationFailure) Unwrap() error {
	return f.Err
}
