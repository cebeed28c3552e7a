package boot

import (
	"github.com/bootkit/pmm/memmap"
	"github.com/dolthub/swiss"
)

type allocation struct {
	size     uint64
	kind     memmap.RegionKind
	previous memmap.RegionKind
}

// ledger tracks every live allocation made through a Session by base address
type ledger struct {
	allocations *swiss.Map[uint64, allocation]
}

func newLedger() *ledger {
	return &ledger{
		allocations: swiss.NewMap[uint64, allocation](64),
	}
}

func (l *ledger) record(base uint64, entry allocation) {
	l.allocations.Put(base, entry)
}

func (l *ledger) lookup(base uint64) (allocation, bool) {
	return l.allocations.Get(base)
}

func (l *ledger) forget(base uint64) {
	l.allocations.Delete(base)
}

// overlapping returns the base and entry of a live allocation sharing at least one byte with
// [base, base+length), if there is one
func (l *ledger) overlapping(base, length uint64) (uint64, allocation, bool) {
	var foundBase uint64
	var found allocation
	var ok bool

	l.allocations.Iter(func(entryBase uint64, entry allocation) bool {
		if entryBase < base+length && base < entryBase+entry.size {
			foundBase, found, ok = entryBase, entry, true
			return true
		}
		return false
	})

	return foundBase, found, ok
}

func (l *ledger) count() int {
	return l.allocations.Count()
}
