// Command pmmsim runs the physical memory manager over a firmware memory map read from a file,
// performs the requested allocations, and prints the resulting map.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
)

func main() {
	app := kingpin.New("pmmsim", "Simulate boot-time physical memory management over a firmware memory map.")
	sim := addSimulationFlags(app)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := sim.run(os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
