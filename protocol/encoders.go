package protocol

import "github.com/bootkit/pmm/memmap"

// E820 type codes
const (
	E820Usable          uint32 = 1
	E820Reserved        uint32 = 2
	E820AcpiReclaimable uint32 = 3
	E820AcpiNvs         uint32 = 4
	E820BadMemory       uint32 = 5
)

// E820 encodes regions the way a BIOS reports them. Memory the bootloader or firmware still
// owns has no E820 code, so it is reported as reserved.
func E820(kind memmap.RegionKind) uint32 {
	switch kind {
	case memmap.Usable:
		return E820Usable
	case memmap.AcpiReclaimable:
		return E820AcpiReclaimable
	case memmap.AcpiNvs:
		return E820AcpiNvs
	case memmap.BadMemory:
		return E820BadMemory
	default:
		return E820Reserved
	}
}

// Multiboot type codes, from the multiboot_mmap_entry structure
const (
	MultibootMemoryAvailable       uint32 = 1
	MultibootMemoryReserved        uint32 = 2
	MultibootMemoryAcpiReclaimable uint32 = 3
	MultibootMemoryNvs             uint32 = 4
	MultibootMemoryBadRAM          uint32 = 5
)

// Multiboot encodes regions for a multiboot (1 or 2) memory map tag. Bootloader reclaimable
// memory holds the boot information structure itself, so it is not reported as available.
func Multiboot(kind memmap.RegionKind) uint32 {
	switch kind {
	case memmap.Usable:
		return MultibootMemoryAvailable
	case memmap.AcpiReclaimable:
		return MultibootMemoryAcpiReclaimable
	case memmap.AcpiNvs:
		return MultibootMemoryNvs
	case memmap.BadMemory:
		return MultibootMemoryBadRAM
	default:
		return MultibootMemoryReserved
	}
}

// Stivale2 type codes
const (
	Stivale2MmapUsable                uint32 = 1
	Stivale2MmapReserved              uint32 = 2
	Stivale2MmapAcpiReclaimable       uint32 = 3
	Stivale2MmapAcpiNvs               uint32 = 4
	Stivale2MmapBadMemory             uint32 = 5
	Stivale2MmapBootloaderReclaimable uint32 = 0x1000
	Stivale2MmapKernelAndModules      uint32 = 0x1001
	Stivale2MmapFramebuffer           uint32 = 0x1002
)

// Stivale2 encodes regions for the stivale2 memory map struct tag
func Stivale2(kind memmap.RegionKind) uint32 {
	switch kind {
	case memmap.Usable:
		return Stivale2MmapUsable
	case memmap.AcpiReclaimable:
		return Stivale2MmapAcpiReclaimable
	case memmap.AcpiNvs:
		return Stivale2MmapAcpiNvs
	case memmap.BadMemory:
		return Stivale2MmapBadMemory
	case memmap.BootloaderReclaimable, memmap.FirmwareReclaimable:
		return Stivale2MmapBootloaderReclaimable
	case memmap.KernelAndModules:
		return Stivale2MmapKernelAndModules
	case memmap.Framebuffer:
		return Stivale2MmapFramebuffer
	default:
		return Stivale2MmapReserved
	}
}

// Limine type codes
const (
	LimineMemmapUsable                uint32 = 0
	LimineMemmapReserved              uint32 = 1
	LimineMemmapAcpiReclaimable       uint32 = 2
	LimineMemmapAcpiNvs               uint32 = 3
	LimineMemmapBadMemory             uint32 = 4
	LimineMemmapBootloaderReclaimable uint32 = 5
	LimineMemmapKernelAndModules      uint32 = 6
	LimineMemmapFramebuffer           uint32 = 7
)

// Limine encodes regions for the limine memory map request
func Limine(kind memmap.RegionKind) uint32 {
	switch kind {
	case memmap.Usable:
		return LimineMemmapUsable
	case memmap.AcpiReclaimable:
		return LimineMemmapAcpiReclaimable
	case memmap.AcpiNvs:
		return LimineMemmapAcpiNvs
	case memmap.BadMemory:
		return LimineMemmapBadMemory
	case memmap.BootloaderReclaimable, memmap.FirmwareReclaimable:
		return LimineMemmapBootloaderReclaimable
	case memmap.KernelAndModules:
		return LimineMemmapKernelAndModules
	case memmap.Framebuffer:
		return LimineMemmapFramebuffer
	default:
		return LimineMemmapReserved
	}
}

// Lookup returns the encoder for a protocol by name: e820, multiboot, stivale2 or limine
func Lookup(name string) (Encoder, bool) {
	encoder, ok := encoders[name]
	return encoder, ok
}

var encoders = map[string]Encoder{
	"e820":      E820,
	"multiboot": Multiboot,
	"stivale2":  Stivale2,
	"limine":    Limine,
}
