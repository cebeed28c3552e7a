package memmap_test

import (
	"testing"

	"github.com/bootkit/pmm/memmap"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func mustMap(t *testing.T, regions ...memmap.Region) *memmap.MemoryMap {
	m, err := memmap.NewFromRegions(memmap.DefaultMaxEntries, regions)
	require.NoError(t, err)
	return m
}

func TestInsertSplitsCoveringRegion(t *testing.T) {
	m := mustMap(t, memmap.Region{Base: 0x10000, Length: 0x10000, Kind: memmap.Usable})

	err := m.Insert(0x18000, 0x4000, memmap.KernelAndModules, memmap.PolicyMustBeUsableOrReclaimable)
	require.NoError(t, err)

	require.Equal(t, []memmap.Region{
		{Base: 0x10000, Length: 0x8000, Kind: memmap.Usable},
		{Base: 0x18000, Length: 0x4000, Kind: memmap.KernelAndModules},
		{Base: 0x1c000, Length: 0x4000, Kind: memmap.Usable},
	}, m.Regions())
	require.NoError(t, m.Validate())
}

func TestInsertAtEdges(t *testing.T) {
	m := mustMap(t, memmap.Region{Base: 0x1000, Length: 0x3000, Kind: memmap.Usable})

	require.NoError(t, m.Insert(0x1000, 0x1000, memmap.BootloaderReclaimable, memmap.PolicyMustBeUsableOrReclaimable))
	require.NoError(t, m.Insert(0x3000, 0x1000, memmap.Framebuffer, memmap.PolicyMustBeUsableOrReclaimable))

	require.Equal(t, []memmap.Region{
		{Base: 0x1000, Length: 0x1000, Kind: memmap.BootloaderReclaimable},
		{Base: 0x2000, Length: 0x1000, Kind: memmap.Usable},
		{Base: 0x3000, Length: 0x1000, Kind: memmap.Framebuffer},
	}, m.Regions())

	// Bootloader-reclaimable memory may be claimed again, even spanning into usable memory
	require.NoError(t, m.Insert(0x1800, 0x1000, memmap.KernelAndModules, memmap.PolicyMustBeUsableOrReclaimable))
	require.Equal(t, []memmap.Region{
		{Base: 0x1000, Length: 0x800, Kind: memmap.BootloaderReclaimable},
		{Base: 0x1800, Length: 0x1000, Kind: memmap.KernelAndModules},
		{Base: 0x2800, Length: 0x800, Kind: memmap.Usable},
		{Base: 0x3000, Length: 0x1000, Kind: memmap.Framebuffer},
	}, m.Regions())
}

func TestInsertConflictLeavesMapUntouched(t *testing.T) {
	m := mustMap(t,
		memmap.Region{Base: 0, Length: 0x1000, Kind: memmap.Reserved},
		memmap.Region{Base: 0x1000, Length: 0xff000, Kind: memmap.Usable},
	)
	before := m.Regions()

	err := m.Insert(0x800, 0x1000, memmap.BootloaderReclaimable, memmap.PolicyMustBeUsableOrReclaimable)
	require.Error(t, err)
	require.True(t, errors.Is(err, memmap.ErrConflict))

	var conflict *memmap.ConflictError
	require.True(t, errors.As(err, &conflict))
	require.False(t, conflict.Hole)
	require.Equal(t, memmap.Region{Base: 0, Length: 0x1000, Kind: memmap.Reserved}, conflict.Region)

	require.Equal(t, before, m.Regions())
}

func TestInsertConflictOnHole(t *testing.T) {
	m := mustMap(t,
		memmap.Region{Base: 0x1000, Length: 0x1000, Kind: memmap.Usable},
		memmap.Region{Base: 0x4000, Length: 0x1000, Kind: memmap.Usable},
	)

	err := m.Insert(0x1000, 0x2000, memmap.BootloaderReclaimable, memmap.PolicyMustBeUsableOrReclaimable)
	var conflict *memmap.ConflictError
	require.True(t, errors.As(err, &conflict))
	require.True(t, conflict.Hole)
	require.Equal(t, uint64(0x2000), conflict.Region.Base)
	require.Equal(t, uint64(0x4000), conflict.Region.End())

	// Past the last entry, the hole runs to the top of the address space
	err = m.Insert(0x4800, 0x1000, memmap.BootloaderReclaimable, memmap.PolicyMustBeUsableOrReclaimable)
	require.True(t, errors.As(err, &conflict))
	require.True(t, conflict.Hole)
	require.Equal(t, uint64(0x5000), conflict.Region.Base)
	require.Equal(t, uint64(0xffffffffffffffff), conflict.Region.End())

	require.Len(t, m.Regions(), 2)
}

func TestInsertForceOverwritesAcrossEntries(t *testing.T) {
	m := mustMap(t,
		memmap.Region{Base: 0x0, Length: 0x1000, Kind: memmap.Usable},
		memmap.Region{Base: 0x1000, Length: 0x1000, Kind: memmap.Reserved},
		memmap.Region{Base: 0x3000, Length: 0x1000, Kind: memmap.AcpiNvs},
	)

	require.NoError(t, m.Insert(0x800, 0x3000, memmap.FirmwareRuntime, memmap.PolicyForce))
	require.Equal(t, []memmap.Region{
		{Base: 0x0, Length: 0x800, Kind: memmap.Usable},
		{Base: 0x800, Length: 0x3000, Kind: memmap.FirmwareRuntime},
		{Base: 0x3800, Length: 0x800, Kind: memmap.AcpiNvs},
	}, m.Regions())
	require.NoError(t, m.Validate())
}

func TestInsertSimulateOnly(t *testing.T) {
	m := mustMap(t,
		memmap.Region{Base: 0x0, Length: 0x2000, Kind: memmap.Usable},
		memmap.Region{Base: 0x2000, Length: 0x1000, Kind: memmap.Reserved},
	)
	before := m.Regions()

	require.NoError(t, m.Insert(0x0, 0x1000, memmap.KernelAndModules, memmap.PolicySimulateOnly))
	require.Equal(t, before, m.Regions())

	err := m.Insert(0x1000, 0x2000, memmap.KernelAndModules, memmap.PolicySimulateOnly)
	require.True(t, errors.Is(err, memmap.ErrConflict))
	require.Equal(t, before, m.Regions())

	require.NoError(t, m.Check(0x0, 0x2000))
}

func TestInsertInvalidRange(t *testing.T) {
	m := mustMap(t, memmap.Region{Base: 0, Length: 0x1000, Kind: memmap.Usable})

	err := m.Insert(0, 0, memmap.Reserved, memmap.PolicyForce)
	require.True(t, errors.Is(err, memmap.ErrInvalidRange))

	err = m.Insert(0xffffffffffff0000, 0x10000, memmap.Reserved, memmap.PolicyForce)
	require.True(t, errors.Is(err, memmap.ErrInvalidRange))

	err = m.Insert(0, 0x1000, memmap.KindInvalid, memmap.PolicyForce)
	require.Error(t, err)
}

func TestInsertTooManyEntries(t *testing.T) {
	m, err := memmap.NewFromRegions(3, []memmap.Region{
		{Base: 0, Length: 0x10000, Kind: memmap.Usable},
	})
	require.NoError(t, err)

	require.NoError(t, m.Insert(0x1000, 0x1000, memmap.BootloaderReclaimable, memmap.PolicyMustBeUsableOrReclaimable))
	require.Equal(t, 3, m.Len())
	before := m.Regions()

	err = m.Insert(0x4000, 0x1000, memmap.BootloaderReclaimable, memmap.PolicyMustBeUsableOrReclaimable)
	require.True(t, errors.Is(err, memmap.ErrTooManyEntries))
	require.Equal(t, before, m.Regions())

	// Replacing an entry exactly does not grow the map
	require.NoError(t, m.Insert(0x1000, 0x1000, memmap.KernelAndModules, memmap.PolicyMustBeUsableOrReclaimable))

	// Simulation never fails structurally
	require.NoError(t, m.Insert(0x4000, 0x1000, memmap.BootloaderReclaimable, memmap.PolicySimulateOnly))
}

func TestInsertRandomSequencePreservesInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const span = 0x100000

	m, err := memmap.NewFromRegions(1024, []memmap.Region{
		{Base: 0, Length: span, Kind: memmap.Usable},
	})
	require.NoError(t, err)

	kinds := memmap.Kinds()
	policies := []memmap.Policy{memmap.PolicyMustBeUsableOrReclaimable, memmap.PolicyForce, memmap.PolicySimulateOnly}

	for i := 0; i < 2000; i++ {
		base := uint64(rng.Intn(span/0x100)) * 0x100
		length := uint64(rng.Intn(64)+1) * 0x100
		kind := kinds[rng.Intn(len(kinds))]
		policy := policies[rng.Intn(len(policies))]
		before := m.Regions()

		err := m.Insert(base, length, kind, policy)
		require.NoError(t, m.Validate())

		if err != nil {
			require.Equal(t, before, m.Regions())
			continue
		}

		if policy == memmap.PolicySimulateOnly {
			require.Equal(t, before, m.Regions())
			continue
		}

		got, ok := m.KindOf(base, length)
		require.True(t, ok)
		require.Equal(t, kind, got)
	}

	// Inserting only inside the original span never changes total coverage
	var covered uint64
	for _, region := range m.Regions() {
		covered += region.Length
	}
	require.GreaterOrEqual(t, covered, uint64(span))
}
