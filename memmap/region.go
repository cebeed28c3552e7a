package memmap

import "fmt"

// Region is a single entry in the MemoryMap: a typed, half-open interval [Base, Base+Length)
// of physical address space.
type Region struct {
	Base   uint64
	Length uint64
	Kind   RegionKind
}

// End returns the first address past the region. The map never holds a region whose end
// wraps the 64-bit address space.
func (r Region) End() uint64 {
	return r.Base + r.Length
}

// Last returns the final address contained in the region
func (r Region) Last() uint64 {
	return r.Base + r.Length - 1
}

// Contains returns true if addr lies within the region
func (r Region) Contains(addr uint64) bool {
	return addr >= r.Base && addr-r.Base < r.Length
}

// Overlaps returns true if [base, base+length) shares at least one byte with the region
func (r Region) Overlaps(base, length uint64) bool {
	if length == 0 || r.Length == 0 {
		return false
	}
	return base <= r.Last() && r.Base <= base+length-1
}

func (r Region) String() string {
	return fmt.Sprintf("[0x%016x - 0x%016x) %s", r.Base, r.End(), r.Kind)
}

// RawDescriptor is a single memory map entry as reported by the firmware, before its type
// code has been translated.
type RawDescriptor struct {
	Base         uint64
	Length       uint64
	FirmwareType uint32
}

// Translator maps a firmware-specific type code to a RegionKind. Implementations must
// map codes they don't recognize to Reserved.
type Translator func(firmwareType uint32) RegionKind
