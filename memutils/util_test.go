package memutils_test

import (
	"math"
	"testing"

	"github.com/bootkit/pmm/memutils"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestCheckPow2(t *testing.T) {
	require.NoError(t, memutils.CheckPow2(uint64(1), "alignment"))
	require.NoError(t, memutils.CheckPow2(uint64(0x1000), "alignment"))

	err := memutils.CheckPow2(uint64(0x1800), "alignment")
	require.Error(t, err)
	require.True(t, errors.Is(err, memutils.PowerOfTwoError))
	require.Contains(t, err.Error(), "alignment is 6144")

	require.Error(t, memutils.CheckPow2(uint64(0), "alignment"))
}

func TestAlignUp(t *testing.T) {
	value, ok := memutils.AlignUp(uint64(0x1001), 0x1000)
	require.True(t, ok)
	require.Equal(t, uint64(0x2000), value)

	value, ok = memutils.AlignUp(uint64(0x2000), 0x1000)
	require.True(t, ok)
	require.Equal(t, uint64(0x2000), value)

	value, ok = memutils.AlignUp(uint64(17), 1)
	require.True(t, ok)
	require.Equal(t, uint64(17), value)

	_, ok = memutils.AlignUp(uint64(math.MaxUint64-5), 16)
	require.False(t, ok)
}

func TestAlignDown(t *testing.T) {
	require.Equal(t, uint64(0x1000), memutils.AlignDown(uint64(0x1fff), 0x1000))
	require.Equal(t, uint64(0x2000), memutils.AlignDown(uint64(0x2000), 0x1000))
	require.True(t, memutils.IsAligned(uint64(0x18000), 0x1000))
	require.False(t, memutils.IsAligned(uint64(0x18010), 0x1000))
}

func TestAddOverflows(t *testing.T) {
	require.False(t, memutils.AddOverflows(uint64(0), math.MaxUint64))
	require.True(t, memutils.AddOverflows(uint64(1), math.MaxUint64))
	require.False(t, memutils.AddOverflows(uint64(0x1000), 0x1000))
}
