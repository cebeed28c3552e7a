package memmap

import (
	"fmt"
	"io"
	"strconv"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

const (
	kb = 1024
)

// Dump prints a human-readable listing of the map to w, one entry per line, followed by
// the amount of usable memory
func (m *MemoryMap) Dump(w io.Writer) error {
	_, err := fmt.Fprintf(w, "[memmap] physical memory map, %d entries:\n", len(m.regions))
	if err != nil {
		return err
	}

	for _, region := range m.regions {
		_, err = fmt.Fprintf(w, "\t[0x%016x - 0x%016x], size: %16d, type: %s\n",
			region.Base, region.End(), region.Length, region.Kind)
		if err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "[memmap] usable memory: %dKb\n", m.TotalUsableBytes()/kb)
	return err
}

// BlockJsonData populates a json object with a summary of the map and every entry in it
func (m *MemoryMap) BlockJsonData(json *jwriter.ObjectState) {
	var stats Statistics
	m.AddStatistics(&stats)

	json.Name("Entries").Int(len(m.regions))
	json.Name("TotalBytes").String(hexString(stats.TotalBytes))
	json.Name("UsableBytes").String(hexString(stats.Bytes(Usable)))

	regions := json.Name("Regions").Array()
	defer regions.End()

	for _, region := range m.regions {
		obj := regions.Object()
		obj.Name("Base").String(hexString(region.Base))
		obj.Name("End").String(hexString(region.End()))
		obj.Name("Length").String(hexString(region.Length))
		obj.Name("Kind").String(region.Kind.String())
		obj.End()
	}
}

// JSON renders the map as a JSON document
func (m *MemoryMap) JSON() ([]byte, error) {
	writer := jwriter.NewWriter()

	obj := writer.Object()
	m.BlockJsonData(&obj)
	obj.End()

	if err := writer.Error(); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}

func hexString(value uint64) string {
	return "0x" + strconv.FormatUint(value, 16)
}
