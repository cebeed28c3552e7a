package memmap

// RegionKind identifies what a range of physical memory is used for. The set of kinds is closed;
// firmware-specific type codes are translated into one of these values when the map is built.
type RegionKind uint32

const (
	// KindInvalid is the zero value and never appears in a valid map
	KindInvalid RegionKind = iota
	// Usable memory is free RAM that can be handed out by the allocator
	Usable
	// Reserved memory must never be touched by the bootloader or the loaded kernel
	Reserved
	// AcpiReclaimable memory holds ACPI tables which the kernel may reuse once it has parsed them
	AcpiReclaimable
	// AcpiNvs memory must be preserved across sleep states
	AcpiNvs
	// BadMemory has been reported defective by the firmware
	BadMemory
	// BootloaderReclaimable memory holds bootloader scratch data that the kernel may reuse
	// after reading any bootloader-provided structures out of it
	BootloaderReclaimable
	// KernelAndModules memory holds the loaded kernel image and its modules
	KernelAndModules
	// Framebuffer memory is the linear framebuffer handed to the kernel
	Framebuffer
	// FirmwareReclaimable memory is in use by firmware boot services and becomes usable once they have exited
	FirmwareReclaimable
	// FirmwareRuntime memory is in use by firmware runtime services and must be preserved
	FirmwareRuntime

	kindCount
)

var regionKindMapping = map[RegionKind]string{
	KindInvalid:           "Invalid",
	Usable:                "Usable",
	Reserved:              "Reserved",
	AcpiReclaimable:       "AcpiReclaimable",
	AcpiNvs:               "AcpiNvs",
	BadMemory:             "BadMemory",
	BootloaderReclaimable: "BootloaderReclaimable",
	KernelAndModules:      "KernelAndModules",
	Framebuffer:           "Framebuffer",
	FirmwareReclaimable:   "FirmwareReclaimable",
	FirmwareRuntime:       "FirmwareRuntime",
}

func (k RegionKind) String() string {
	str, ok := regionKindMapping[k]
	if !ok {
		return "Unknown"
	}
	return str
}

// Valid returns true if k is one of the defined region kinds
func (k RegionKind) Valid() bool {
	return k > KindInvalid && k < kindCount
}

// Claimable returns true if memory of this kind may be claimed by a new allocation made
// with PolicyMustBeUsableOrReclaimable
func (k RegionKind) Claimable() bool {
	return k == Usable || k == BootloaderReclaimable
}

// restrictiveness orders kinds for resolving overlapping firmware descriptors: when two
// descriptors overlap, the kind with the higher value wins the overlapping bytes.
var restrictiveness = [kindCount]int{
	Usable:                1,
	BootloaderReclaimable: 2,
	FirmwareReclaimable:   3,
	AcpiReclaimable:       4,
	AcpiNvs:               5,
	FirmwareRuntime:       6,
	Framebuffer:           7,
	KernelAndModules:      8,
	Reserved:              9,
	BadMemory:             10,
}

// Kinds returns every valid region kind in declaration order
func Kinds() []RegionKind {
	kinds := make([]RegionKind, 0, kindCount-1)
	for k := Usable; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}
