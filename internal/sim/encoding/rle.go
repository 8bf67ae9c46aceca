package encoding

import (
	"encoding/binary"
	"fmt"
)

// Grid layers are flattened one scalar per cell in fixed row-major order
// (z*width + x) and run-length encoded as (value, run_len) uvarint pairs.
// Region layers are dominated by long runs (open terrain, unroofed sky), so
// RLE keeps archive files small before compression even sees them.

// EncodeLayer encodes a sequence of per-cell scalar values.
func EncodeLayer(vals []uint16) []byte {
	var out []byte
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(vals) {
		v := vals[i]
		run := 1
		for j := i + 1; j < len(vals) && vals[j] == v && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(v))
		out = append(out, tmp[:n]...)
		n = binary.PutUvarint(tmp[:], uint64(run))
		out = append(out, tmp[:n]...)

		i += run
	}
	return out
}

// DecodeLayer decodes an RLE buffer and verifies it holds exactly cellCount
// values. A short or overlong buffer is a corrupt layer.
func DecodeLayer(raw []byte, cellCount int) ([]uint16, error) {
	out := make([]uint16, 0, cellCount)
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if v > 0xFFFF {
			return nil, fmt.Errorf("cell value too large: %d", v)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(v))
		}
		if len(out) > cellCount {
			return nil, fmt.Errorf("layer overruns %d cells", cellCount)
		}
	}
	if len(out) != cellCount {
		return nil, fmt.Errorf("layer holds %d cells, want %d", len(out), cellCount)
	}
	return out, nil
}

// SerializeGrid flattens a width×height grid through cellFn in row-major
// order and encodes it.
func SerializeGrid(width, height int, cellFn func(x, z int) uint16) []byte {
	vals := make([]uint16, 0, width*height)
	for z := 0; z < height; z++ {
		for x := 0; x < width; x++ {
			vals = append(vals, cellFn(x, z))
		}
	}
	return EncodeLayer(vals)
}

// DeserializeGrid decodes a layer buffer and applies it cell by cell in the
// same row-major order SerializeGrid used.
func DeserializeGrid(raw []byte, width, height int, applyFn func(x, z int, v uint16)) error {
	vals, err := DecodeLayer(raw, width*height)
	if err != nil {
		return err
	}
	for z := 0; z < height; z++ {
		for x := 0; x < width; x++ {
			applyFn(x, z, vals[z*width+x])
		}
	}
	return nil
}
