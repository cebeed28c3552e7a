package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/bootkit/pmm/boot"
	"github.com/bootkit/pmm/firmware"
	"github.com/bootkit/pmm/memmap"
	"github.com/bootkit/pmm/protocol"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

type simulation struct {
	mapFile         string
	firmware        string
	extended        []string
	conventional    []string
	releaseFirmware bool
	json            bool
	protocol        string
	verbose         bool
}

func addSimulationFlags(app *kingpin.Application) *simulation {
	sim := &simulation{}
	app.Flag("map", "JSON file of firmware memory map descriptors").Required().StringVar(&sim.mapFile)
	app.Flag("firmware", "Firmware type codes used by the descriptors").Default("e820").EnumVar(&sim.firmware, "e820", "efi")
	app.Flag("alloc", "Allocate this many bytes of extended memory; may be repeated").StringsVar(&sim.extended)
	app.Flag("conventional", "Allocate this many bytes of conventional memory; may be repeated").StringsVar(&sim.conventional)
	app.Flag("release-firmware", "Release firmware reclaimable memory after allocating").BoolVar(&sim.releaseFirmware)
	app.Flag("json", "Print the map as JSON").BoolVar(&sim.json)
	app.Flag("protocol", "Also print the handoff map for a boot protocol").EnumVar(&sim.protocol, "e820", "multiboot", "stivale2", "limine")
	app.Flag("verbose", "Log allocator activity to stderr").Short('v').BoolVar(&sim.verbose)
	return sim
}

func (sim *simulation) translator() memmap.Translator {
	if sim.firmware == "efi" {
		return firmware.TranslateEFI
	}
	return firmware.TranslateE820
}

func (sim *simulation) run(stdout, stderr io.Writer) error {
	data, err := os.ReadFile(sim.mapFile)
	if err != nil {
		return errors.Wrap(err, "failed to read memory map")
	}

	descriptors, err := parseDescriptors(data)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if sim.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(stderr))

	var fatal error
	session, err := boot.New(logger, firmware.StaticSource(descriptors), sim.translator(), boot.SessionOptions{
		FatalHandler: func(err error) {
			if fatal == nil {
				fatal = err
			}
		},
	})
	if err != nil {
		return err
	}

	for _, text := range sim.extended {
		size, err := parseSize(text)
		if err != nil {
			return err
		}

		base := session.MustAllocExtended(size)
		if fatal != nil {
			return fatal
		}
		fmt.Fprintf(stdout, "alloc_extended 0x%x -> 0x%x\n", size, base)
	}

	for _, text := range sim.conventional {
		size, err := parseSize(text)
		if err != nil {
			return err
		}

		base := session.MustAllocConventional(size)
		if fatal != nil {
			return fatal
		}
		fmt.Fprintf(stdout, "alloc_conventional 0x%x -> 0x%x\n", size, base)
	}

	if sim.releaseFirmware {
		released, err := session.ReleaseFirmwareReclaimable()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "released 0x%x bytes of firmware reclaimable memory\n", released)
	}

	if sim.json {
		data, err := session.DumpMapJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(data))
		if err != nil {
			return err
		}
	} else {
		err = session.DumpMap(stdout)
		if err != nil {
			return err
		}
	}

	if sim.protocol != "" {
		encoder, _ := protocol.Lookup(sim.protocol)
		fmt.Fprintf(stdout, "%s handoff:\n", sim.protocol)
		for _, entry := range session.Handoff(encoder) {
			fmt.Fprintf(stdout, "\t[0x%016x - 0x%016x] type %d\n", entry.Base, entry.End(), entry.Type)
		}
	}

	return nil
}
