package firmware

import "github.com/bootkit/pmm/memmap"

// EFIMemoryType is the Type field of a UEFI EFI_MEMORY_DESCRIPTOR
type EFIMemoryType uint32

// EFI_MEMORY_TYPE
const (
	EfiReservedMemoryType EFIMemoryType = iota
	EfiLoaderCode
	EfiLoaderData
	EfiBootServicesCode
	EfiBootServicesData
	EfiRuntimeServicesCode
	EfiRuntimeServicesData
	EfiConventionalMemory
	EfiUnusableMemory
	EfiACPIReclaimMemory
	EfiACPIMemoryNVS
	EfiMemoryMappedIO
	EfiMemoryMappedIOPortSpace
	EfiPalCode
	EfiPersistentMemory
	EfiUnacceptedMemoryType
	EfiMaxMemoryType
)

const (
	// EFIPageSize is the unit of EFI_MEMORY_DESCRIPTOR.NumberOfPages
	EFIPageSize = 4096
)

var efiMemoryTypeMapping = map[EFIMemoryType]string{
	EfiReservedMemoryType:      "EfiReservedMemoryType",
	EfiLoaderCode:              "EfiLoaderCode",
	EfiLoaderData:              "EfiLoaderData",
	EfiBootServicesCode:        "EfiBootServicesCode",
	EfiBootServicesData:        "EfiBootServicesData",
	EfiRuntimeServicesCode:     "EfiRuntimeServicesCode",
	EfiRuntimeServicesData:     "EfiRuntimeServicesData",
	EfiConventionalMemory:      "EfiConventionalMemory",
	EfiUnusableMemory:          "EfiUnusableMemory",
	EfiACPIReclaimMemory:       "EfiACPIReclaimMemory",
	EfiACPIMemoryNVS:           "EfiACPIMemoryNVS",
	EfiMemoryMappedIO:          "EfiMemoryMappedIO",
	EfiMemoryMappedIOPortSpace: "EfiMemoryMappedIOPortSpace",
	EfiPalCode:                 "EfiPalCode",
	EfiPersistentMemory:        "EfiPersistentMemory",
	EfiUnacceptedMemoryType:    "EfiUnacceptedMemoryType",
}

func (t EFIMemoryType) String() string {
	str, ok := efiMemoryTypeMapping[t]
	if !ok {
		return "Unknown"
	}
	return str
}

// TranslateEFI is a memmap.Translator for UEFI memory types.
//
// Memory owned by the loaded image is bootloader-reclaimable. Boot services memory is
// firmware-reclaimable: it only becomes usable after ExitBootServices. Runtime services memory
// must be preserved for the lifetime of the system.
func TranslateEFI(firmwareType uint32) memmap.RegionKind {
	switch EFIMemoryType(firmwareType) {
	case EfiConventionalMemory:
		return memmap.Usable
	case EfiLoaderCode, EfiLoaderData:
		return memmap.BootloaderReclaimable
	case EfiBootServicesCode, EfiBootServicesData:
		return memmap.FirmwareReclaimable
	case EfiRuntimeServicesCode, EfiRuntimeServicesData:
		return memmap.FirmwareRuntime
	case EfiUnusableMemory:
		return memmap.BadMemory
	case EfiACPIReclaimMemory:
		return memmap.AcpiReclaimable
	case EfiACPIMemoryNVS:
		return memmap.AcpiNvs
	default:
		return memmap.Reserved
	}
}

// EFIDescriptor is the subset of EFI_MEMORY_DESCRIPTOR the memory manager consumes
type EFIDescriptor struct {
	Type          EFIMemoryType
	PhysicalStart uint64
	NumberOfPages uint64
}

// RawFromEFI converts UEFI memory descriptors into raw descriptors
func RawFromEFI(descriptors []EFIDescriptor) []memmap.RawDescriptor {
	raw := make([]memmap.RawDescriptor, 0, len(descriptors))
	for _, desc := range descriptors {
		raw = append(raw, memmap.RawDescriptor{
			Base:         desc.PhysicalStart,
			Length:       desc.NumberOfPages * EFIPageSize,
			FirmwareType: uint32(desc.Type),
		})
	}
	return raw
}
