package firmware

import "github.com/bootkit/pmm/memmap"

// E820Type is the type code of a BIOS INT 15h, AX=E820h memory map entry
type E820Type uint32

const (
	// E820Usable indicates RAM available for use
	E820Usable E820Type = iota + 1
	// E820Reserved indicates memory that is not available for use
	E820Reserved
	// E820AcpiReclaimable indicates memory holding ACPI tables that can be reused once they are parsed
	E820AcpiReclaimable
	// E820AcpiNvs indicates memory that must be preserved across sleep states
	E820AcpiNvs
	// E820BadMemory indicates memory the firmware found to be defective
	E820BadMemory
)

var e820TypeMapping = map[E820Type]string{
	E820Usable:          "Usable",
	E820Reserved:        "Reserved",
	E820AcpiReclaimable: "ACPI (reclaimable)",
	E820AcpiNvs:         "ACPI NVS",
	E820BadMemory:       "Bad memory",
}

func (t E820Type) String() string {
	str, ok := e820TypeMapping[t]
	if !ok {
		return "Unknown"
	}
	return str
}

// TranslateE820 is a memmap.Translator for BIOS E820 type codes
func TranslateE820(firmwareType uint32) memmap.RegionKind {
	switch E820Type(firmwareType) {
	case E820Usable:
		return memmap.Usable
	case E820AcpiReclaimable:
		return memmap.AcpiReclaimable
	case E820AcpiNvs:
		return memmap.AcpiNvs
	case E820BadMemory:
		return memmap.BadMemory
	default:
		return memmap.Reserved
	}
}
