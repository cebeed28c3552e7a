package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kingpin/v2"
	"github.com/bootkit/pmm/alloc"
	"github.com/bootkit/pmm/memmap"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

const testMap = `[
	{"base": "0x0", "length": "0x1000", "type": 2},
	{"base": "0x1000", "length": "0x9e000", "type": 1, "comment": "conventional"},
	{"base": 655360, "length": 393216, "type": 2},
	{"base": "0x100000", "length": "0x3f00000", "type": 1},
	{"base": "0x4000000", "length": "0", "type": 1}
]`

func TestParseDescriptors(t *testing.T) {
	descriptors, err := parseDescriptors([]byte(testMap))
	require.NoError(t, err)
	require.Equal(t, []memmap.RawDescriptor{
		{Base: 0, Length: 0x1000, FirmwareType: 2},
		{Base: 0x1000, Length: 0x9e000, FirmwareType: 1},
		{Base: 0xa0000, Length: 0x60000, FirmwareType: 2},
		{Base: 0x100000, Length: 0x3f00000, FirmwareType: 1},
		{Base: 0x4000000, Length: 0, FirmwareType: 1},
	}, descriptors)

	_, err = parseDescriptors([]byte(`[{"base": "zero"}]`))
	require.Error(t, err)

	_, err = parseDescriptors([]byte(`[{"base": true}]`))
	require.Error(t, err)

	for _, data := range []string{
		`[{"base": -4096, "length": 4096, "type": 1}]`,
		`[{"base": 4096.5, "length": 4096, "type": 1}]`,
		`[{"base": 0, "length": 9007199254740993, "type": 1}]`,
		`[{"base": 0, "length": 4096, "type": -1}]`,
		`[{"base": 0, "length": 4096, "type": 4294967296}]`,
		`[{"base": 0, "length": 4096, "type": "0x100000000"}]`,
		`[{"base": "0x10000000000000000", "length": 4096, "type": 1}]`,
	} {
		_, err = parseDescriptors([]byte(data))
		require.Error(t, err, data)
	}

	descriptors, err = parseDescriptors([]byte(
		`[{"base": "0xfffffffffffff000", "length": "9007199254740993", "type": "0x1000"}, {"base": 9007199254740991, "length": 1, "type": 4294967295}]`))
	require.NoError(t, err)
	require.Equal(t, []memmap.RawDescriptor{
		{Base: 0xfffffffffffff000, Length: 9007199254740993, FirmwareType: 0x1000},
		{Base: 9007199254740991, Length: 1, FirmwareType: 0xffffffff},
	}, descriptors)

	_, err = parseDescriptors([]byte(`{"base": 0}`))
	require.Error(t, err)

	descriptors, err = parseDescriptors([]byte(`[]`))
	require.NoError(t, err)
	require.Empty(t, descriptors)
}

func TestParseSize(t *testing.T) {
	for text, expected := range map[string]uint64{
		"4096":   4096,
		"0x1000": 0x1000,
		"4KB":    0x1000,
		"2MiB":   0x200000,
	} {
		size, err := parseSize(text)
		require.NoError(t, err, text)
		require.Equal(t, expected, size, text)
	}

	_, err := parseSize("lots")
	require.Error(t, err)
}

func parseSimulation(t *testing.T, args ...string) *simulation {
	app := kingpin.New("pmmsim", "")
	sim := addSimulationFlags(app)
	_, err := app.Parse(args)
	require.NoError(t, err)
	return sim
}

func writeMap(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "map.json")
	require.NoError(t, os.WriteFile(path, []byte(testMap), 0o644))
	return path
}

func TestRun(t *testing.T) {
	sim := parseSimulation(t, "--map", writeMap(t), "--alloc", "0x1000", "--alloc", "4KB",
		"--conventional", "512", "--protocol", "limine")

	var stdout, stderr bytes.Buffer
	require.NoError(t, sim.run(&stdout, &stderr))

	output := stdout.String()
	require.Contains(t, output, "alloc_extended 0x1000 -> 0x100000\n")
	require.Contains(t, output, "alloc_extended 0x1000 -> 0x101000\n")
	require.Contains(t, output, "alloc_conventional 0x200 -> 0x1000\n")
	require.Contains(t, output, "[memmap] physical memory map, 7 entries:\n")
	require.Contains(t, output, "limine handoff:\n\t[0x0000000000000000 - 0x0000000000001000] type 1\n")

	// The zero-length descriptor is reported, not fatal
	require.Contains(t, stderr.String(), "skipping zero-length firmware memory descriptor")
}

func TestRunJSON(t *testing.T) {
	sim := parseSimulation(t, "--map", writeMap(t), "--json", "--firmware", "efi")

	var stdout, stderr bytes.Buffer
	require.NoError(t, sim.run(&stdout, &stderr))
	require.True(t, strings.HasPrefix(stdout.String(), `{"Entries":`))
}

func TestRunAllocationFailure(t *testing.T) {
	sim := parseSimulation(t, "--map", writeMap(t), "--conventional", "0xa0000")

	var stdout, stderr bytes.Buffer
	err := sim.run(&stdout, &stderr)
	require.True(t, errors.Is(err, alloc.ErrOutOfLowMemory))
	require.Contains(t, err.Error(), "alloc_conventional: failed to allocate 0xa0000 bytes")
}
