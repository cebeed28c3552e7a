package main

import (
	"math"
	"strconv"

	"github.com/alecthomas/units"
	"github.com/bootkit/pmm/memmap"
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jreader"
)

// parseDescriptors reads a JSON array of {"base", "length", "type"} objects. Values may be
// numbers or strings in any base strconv understands, such as "0x100000". Numbers must be
// integers below 2^53; larger addresses have to be strings. Unknown properties are ignored.
func parseDescriptors(data []byte) ([]memmap.RawDescriptor, error) {
	r := jreader.NewReader(data)
	descriptors := make([]memmap.RawDescriptor, 0)

	for arr := r.Array(); arr.Next(); {
		var desc memmap.RawDescriptor
		for obj := r.Object(); obj.Next(); {
			switch string(obj.Name()) {
			case "base":
				desc.Base = readAddress(&r)
			case "length":
				desc.Length = readAddress(&r)
			case "type":
				desc.FirmwareType = uint32(readUint(&r, "type", math.MaxUint32))
			default:
				_ = r.SkipValue()
			}
		}
		descriptors = append(descriptors, desc)
	}

	if err := r.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to parse memory map descriptors")
	}
	if err := r.RequireEOF(); err != nil {
		return nil, errors.Wrap(err, "failed to parse memory map descriptors")
	}

	return descriptors, nil
}

// maxExactNumber is the largest integer a JSON number is guaranteed to carry without rounding.
// Larger addresses must be written as strings.
const maxExactNumber = 1<<53 - 1

func readAddress(r *jreader.Reader) uint64 {
	return readUint(r, "address", math.MaxUint64)
}

// readUint reads a non-negative integer no larger than limit, given either as a JSON number or
// as a string in any base strconv understands
func readUint(r *jreader.Reader, what string, limit uint64) uint64 {
	value := r.Any()
	switch value.Kind {
	case jreader.NumberValue:
		number := value.Number
		if number < 0 || number != math.Trunc(number) {
			r.AddError(errors.Newf("%s %v is not a non-negative integer", what, number))
			return 0
		}
		if number > maxExactNumber {
			r.AddError(errors.Newf("%s %v cannot be represented exactly as a JSON number; pass it as a string such as \"0x%x\"",
				what, number, uint64(number)))
			return 0
		}
		if uint64(number) > limit {
			r.AddError(errors.Newf("%s %v is larger than 0x%x", what, number, limit))
			return 0
		}
		return uint64(number)
	case jreader.StringValue:
		parsed, err := strconv.ParseUint(value.String, 0, 64)
		if err != nil {
			r.AddError(errors.Wrapf(err, "invalid %s %q", what, value.String))
			return 0
		}
		if parsed > limit {
			r.AddError(errors.Newf("%s %q is larger than 0x%x", what, value.String, limit))
			return 0
		}
		return parsed
	default:
		r.AddError(errors.Newf("%s must be a number or a string, found %s", what, value.Kind))
		return 0
	}
}

// parseSize accepts a plain or 0x-prefixed integer, or a size with a binary unit such as 4KB
// or 2MiB
func parseSize(text string) (uint64, error) {
	size, err := strconv.ParseUint(text, 0, 64)
	if err == nil {
		return size, nil
	}

	bytes, unitErr := units.ParseBase2Bytes(text)
	if unitErr != nil || bytes < 0 {
		return 0, errors.Newf("invalid size %q", text)
	}

	return uint64(bytes), nil
}
