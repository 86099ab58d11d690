package bmff

import (
	"bytes"
	"testing"
)

func TestImageGridMarshalMatchesLiteralScenario(t *testing.T) {
	g := &ImageGrid{
		Version:         0,
		Flags:           0,
		RowsMinusOne:    1,
		ColumnsMinusOne: 1,
		OutputWidth:     1024,
		OutputHeight:    1024,
	}
	got, err := g.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := []byte{
		0x00,             // version
		0x00, 0x00, 0x00, // flags
		0x01,       // rows_minus_one
		0x01,       // columns_minus_one
		0x04, 0x00, // output_width = 1024
		0x04, 0x00, // output_height = 1024
	}
	if len(got) != 10 {
		t.Fatalf("Marshal produced %d bytes, want 10", len(got))
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal = % x, want % x", got, want)
	}
}

func TestImageGridRoundTrip(t *testing.T) {
	g := &ImageGrid{RowsMinusOne: 3, ColumnsMinusOne: 2, OutputWidth: 4096, OutputHeight: 3072}
	data, err := g.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := ParseImageGrid(data)
	if err != nil {
		t.Fatalf("ParseImageGrid: %v", err)
	}
	if *got != *g {
		t.Errorf("round trip = %+v, want %+v", got, g)
	}
	if got.TileCount() != 12 {
		t.Errorf("TileCount = %d, want 12", got.TileCount())
	}
}

func TestImageGridLargeSize(t *testing.T) {
	g := &ImageGrid{Flags: 1, RowsMinusOne: 0, ColumnsMinusOne: 0, OutputWidth: 100000, OutputHeight: 100000}
	data, err := g.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) != 14 {
		t.Fatalf("large-size Marshal produced %d bytes, want 14", len(data))
	}
	got, err := ParseImageGrid(data)
	if err != nil {
		t.Fatalf("ParseImageGrid: %v", err)
	}
	if got.OutputWidth != 100000 || got.OutputHeight != 100000 {
		t.Errorf("got %+v", got)
	}
}

func TestImageOverlayRoundTrip(t *testing.T) {
	o := &ImageOverlay{
		CanvasFillR: 0xFFFF, CanvasFillG: 0xFFFF, CanvasFillB: 0xFFFF, CanvasFillA: 0xFFFF,
		OutputWidth: 800, OutputHeight: 600,
		Offsets: []Offset{{Horizontal: 0, Vertical: 0}, {Horizontal: -10, Vertical: 20}},
	}
	data, err := o.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// version(1) + flags(1) + canvas(8) + dims(4) + 2*offsets(4) = 22
	if len(data) != 22 {
		t.Fatalf("Marshal produced %d bytes, want 22", len(data))
	}
	got, err := ParseImageOverlay(data, len(o.Offsets))
	if err != nil {
		t.Fatalf("ParseImageOverlay: %v", err)
	}
	if got.OutputWidth != 800 || got.OutputHeight != 600 {
		t.Errorf("got dims %d x %d", got.OutputWidth, got.OutputHeight)
	}
	if len(got.Offsets) != 2 || got.Offsets[1].Horizontal != -10 || got.Offsets[1].Vertical != 20 {
		t.Errorf("got offsets %+v", got.Offsets)
	}
}

func TestImageOverlayLargeSizeNegativeOffsets(t *testing.T) {
	o := &ImageOverlay{
		Flags:       1,
		OutputWidth: 70000, OutputHeight: 70000,
		Offsets: []Offset{{Horizontal: -70000, Vertical: 5}},
	}
	data, err := o.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := ParseImageOverlay(data, 1)
	if err != nil {
		t.Fatalf("ParseImageOverlay: %v", err)
	}
	if got.Offsets[0].Horizontal != -70000 || got.Offsets[0].Vertical != 5 {
		t.Errorf("got offsets %+v", got.Offsets)
	}
}
