package memmap_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bootkit/pmm/memmap"
	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/stretchr/testify/require"
)

func TestDump(t *testing.T) {
	m := sampleMap(t)

	var buf bytes.Buffer
	require.NoError(t, m.Dump(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 7)
	require.Contains(t, lines[0], "5 entries")
	require.Contains(t, lines[2], "[0x000000000009f000 - 0x0000000000100000]")
	require.Contains(t, lines[2], "type: Reserved")
	require.Contains(t, lines[6], "usable memory: 2684Kb")
}

func TestJSON(t *testing.T) {
	m := sampleMap(t)

	data, err := m.JSON()
	require.NoError(t, err)

	r := jreader.NewReader(data)
	var entries int
	var kinds []string
	for obj := r.Object(); obj.Next(); {
		switch string(obj.Name()) {
		case "Entries":
			entries = r.Int()
		case "Regions":
			for arr := r.Array(); arr.Next(); {
				for region := r.Object(); region.Next(); {
					if string(region.Name()) == "Kind" {
						kinds = append(kinds, r.String())
					} else {
						require.NoError(t, r.SkipValue())
					}
				}
			}
		default:
			require.NoError(t, r.SkipValue())
		}
	}
	require.NoError(t, r.Error())

	require.Equal(t, 5, entries)
	require.Equal(t, []string{"Usable", "Reserved", "Usable", "Usable", "AcpiReclaimable"}, kinds)
	require.Contains(t, string(data), `"UsableBytes":"0x29f000"`)
}

func TestKindStrings(t *testing.T) {
	for _, kind := range memmap.Kinds() {
		require.True(t, kind.Valid())
		require.NotEqual(t, "Unknown", kind.String())
	}
	require.Equal(t, "Unknown", memmap.RegionKind(99).String())
	require.False(t, memmap.KindInvalid.Valid())
	require.True(t, memmap.BootloaderReclaimable.Claimable())
	require.False(t, memmap.KernelAndModules.Claimable())
}
