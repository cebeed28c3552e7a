package alloc_test

import (
	"testing"

	"github.com/bootkit/pmm/alloc"
	"github.com/bootkit/pmm/memmap"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

type physicalMemory struct {
	bytes  []byte
	writes []memmap.Region
}

func (p *physicalMemory) WriteAt(data []byte, offset int64) (int, error) {
	if offset < 0 || int(offset)+len(data) > len(p.bytes) {
		return 0, errors.Newf("write at 0x%x is outside physical memory", offset)
	}

	p.writes = append(p.writes, memmap.Region{Base: uint64(offset), Length: uint64(len(data)), Kind: memmap.Usable})
	return copy(p.bytes[offset:], data), nil
}

func isZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

func TestScrambleUsable(t *testing.T) {
	allocator := newAllocator(t, alloc.CreateOptions{AddressLimit: 0x5400},
		memmap.Region{Base: 0x1000, Length: 0x2000, Kind: memmap.Usable},
		memmap.Region{Base: 0x3000, Length: 0x1000, Kind: memmap.Reserved},
		memmap.Region{Base: 0x4000, Length: 0x1800, Kind: memmap.Usable},
		memmap.Region{Base: 0x8000, Length: 0x1000, Kind: memmap.Usable})
	before := allocator.MemoryMap().Regions()

	mem := &physicalMemory{bytes: make([]byte, 0x6000)}
	require.NoError(t, allocator.ScrambleUsable(rand.New(rand.NewSource(42)), mem))

	require.Equal(t, []memmap.Region{
		{Base: 0x1000, Length: 0x1000, Kind: memmap.Usable},
		{Base: 0x2000, Length: 0x1000, Kind: memmap.Usable},
		{Base: 0x4000, Length: 0x1000, Kind: memmap.Usable},
		{Base: 0x5000, Length: 0x400, Kind: memmap.Usable},
	}, mem.writes)

	require.True(t, isZero(mem.bytes[:0x1000]))
	require.False(t, isZero(mem.bytes[0x1000:0x3000]))
	require.True(t, isZero(mem.bytes[0x3000:0x4000]))
	require.False(t, isZero(mem.bytes[0x4000:0x5400]))
	require.True(t, isZero(mem.bytes[0x5400:]))

	require.Equal(t, before, allocator.MemoryMap().Regions())

	again := &physicalMemory{bytes: make([]byte, 0x6000)}
	require.NoError(t, allocator.ScrambleUsable(rand.New(rand.NewSource(42)), again))
	require.Equal(t, mem.bytes, again.bytes)
}

func TestScrambleUsablePropagatesWriteErrors(t *testing.T) {
	allocator := newAllocator(t, alloc.CreateOptions{},
		memmap.Region{Base: 0x1000, Length: 0x2000, Kind: memmap.Usable})

	mem := &physicalMemory{bytes: make([]byte, 0x2000)}
	err := allocator.ScrambleUsable(rand.New(rand.NewSource(1)), mem)
	require.Error(t, err)
	require.Len(t, mem.writes, 1)
}
