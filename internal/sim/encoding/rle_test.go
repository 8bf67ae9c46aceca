package encoding

import "testing"

func TestLayer_RoundTrip(t *testing.T) {
	in := make([]uint16, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 9, 10, 10, 10)

	enc := EncodeLayer(in)
	out, err := DecodeLayer(enc, len(in))
	if err != nil {
		t.Fatalf("DecodeLayer: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestLayer_CellCountMismatch(t *testing.T) {
	enc := EncodeLayer([]uint16{5, 5, 5, 5})
	if _, err := DecodeLayer(enc, 3); err == nil {
		t.Fatalf("expected overrun error")
	}
	if _, err := DecodeLayer(enc, 5); err == nil {
		t.Fatalf("expected short-layer error")
	}
}

func TestGrid_RowMajorOrder(t *testing.T) {
	const w, h = 4, 3
	src := [][]uint16{
		{1, 1, 2, 2},
		{1, 3, 3, 2},
		{4, 4, 4, 4},
	}
	raw := SerializeGrid(w, h, func(x, z int) uint16 { return src[z][x] })

	got := make([][]uint16, h)
	for z := range got {
		got[z] = make([]uint16, w)
	}
	if err := DeserializeGrid(raw, w, h, func(x, z int, v uint16) { got[z][x] = v }); err != nil {
		t.Fatalf("DeserializeGrid: %v", err)
	}
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			if got[z][x] != src[z][x] {
				t.Fatalf("cell (%d,%d): got %d want %d", x, z, got[z][x], src[z][x])
			}
		}
	}
}
