package writer

import (
	"bytes"
	"testing"

	"github.com/heifbox/heifbox/bmff"
	"github.com/heifbox/heifbox/heif"
)

func hevcPayload(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

// TestWriteSingleStillImage reproduces end-to-end scenario 1: one hvc1
// item with an ispe property, no thumbnails, file-offset construction.
func TestWriteSingleStillImage(t *testing.T) {
	payload := hevcPayload(t, 14213)
	cfg := &Config{
		Items: []ItemConfig{
			{
				ItemType: "hvc1",
				Data:     payload,
				Properties: []bmff.Property{
					&bmff.ImageSpatialExtentsProperty{ImageWidth: 1024, ImageHeight: 768},
				},
				Essential: []bool{true},
				Primary:   true,
			},
		},
	}
	w := New(cfg)
	out, err := w.Write()
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if w.State() != StateDone {
		t.Fatalf("State() = %v, want StateDone", w.State())
	}

	top, err := bmff.ReadTopLevel(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("ReadTopLevel: %v", err)
	}
	if top.FileType == nil || top.FileType.MajorBrand.String() != "heic" {
		t.Fatalf("ftyp major brand = %+v", top.FileType)
	}
	if top.Meta == nil || top.Meta.PrimaryItem == nil || top.Meta.PrimaryItem.ItemID != 1 {
		t.Fatalf("primary item: %+v", top.Meta.PrimaryItem)
	}
	if got := top.Meta.ItemLocation.Items[0]; len(got.Extents) != 1 || got.Extents[0].Length != uint64(len(payload)) {
		t.Fatalf("iloc entry = %+v", got)
	}

	r, err := heif.Open(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("heif.Open: %v", err)
	}
	data, err := r.GetItemData(0, 1)
	if err != nil {
		t.Fatalf("GetItemData: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("round-tripped item data does not match")
	}
}

// TestWriteThumbnails reproduces end-to-end scenario 2: 5 masters + 5
// thumbnails, one "thmb" edge per pair.
func TestWriteThumbnails(t *testing.T) {
	var items []ItemConfig
	masters := make([]int, 5)
	for i := 0; i < 5; i++ {
		items = append(items, ItemConfig{ItemType: "hvc1", Data: hevcPayload(t, 100+i)})
		masters[i] = i
	}
	for i := 0; i < 5; i++ {
		m := masters[i]
		items = append(items, ItemConfig{ItemType: "hvc1", Data: hevcPayload(t, 20), Thumbnail: &m})
	}
	cfg := &Config{Items: items}
	out, err := New(cfg).Write()
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	top, err := bmff.ReadTopLevel(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("ReadTopLevel: %v", err)
	}
	if len(top.Meta.ItemInfo.Entries) != 10 {
		t.Fatalf("got %d items, want 10", len(top.Meta.ItemInfo.Entries))
	}
	thmb := 0
	for _, e := range top.Meta.ItemReference.Refs {
		if e.RefType.String() == "thmb" {
			thmb++
		}
	}
	if thmb != 5 {
		t.Errorf("got %d thmb entries, want 5", thmb)
	}
}

// TestWriteGrid reproduces end-to-end scenario 3: 4 tiles of 512x512
// arranged into a 2x2 grid with output 1024x1024.
func TestWriteGrid(t *testing.T) {
	var items []ItemConfig
	tiles := make([]int, 4)
	for i := 0; i < 4; i++ {
		items = append(items, ItemConfig{
			ItemType: "hvc1",
			Data:     hevcPayload(t, 50),
			Properties: []bmff.Property{
				&bmff.ImageSpatialExtentsProperty{ImageWidth: 512, ImageHeight: 512},
			},
		})
		tiles[i] = i
	}
	items = append(items, ItemConfig{
		ItemType: "grid",
		Primary:  true,
		Grid: &GridConfig{
			RowsMinusOne: 1, ColumnsMinusOne: 1,
			OutputWidth: 1024, OutputHeight: 1024,
			Tiles: tiles,
		},
	})
	cfg := &Config{Items: items}
	out, err := New(cfg).Write()
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	r, err := heif.Open(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("heif.Open: %v", err)
	}
	gridID, err := r.PrimaryItem(0)
	if err != nil {
		t.Fatalf("PrimaryItem: %v", err)
	}
	grid, tileIDs, err := r.GetItemGrid(0, gridID)
	if err != nil {
		t.Fatalf("GetItemGrid: %v", err)
	}
	if grid.RowsMinusOne != 1 || grid.ColumnsMinusOne != 1 || grid.OutputWidth != 1024 || grid.OutputHeight != 1024 {
		t.Errorf("got %+v", grid)
	}
	if len(tileIDs) != 4 {
		t.Fatalf("got %d tile refs, want 4", len(tileIDs))
	}

	raw, err := r.GetItemData(0, gridID)
	if err != nil {
		t.Fatalf("GetItemData(grid): %v", err)
	}
	if len(raw) != 10 {
		t.Errorf("grid descriptor payload is %d bytes, want 10", len(raw))
	}
}

// TestWriteAuxiliaryAlpha reproduces end-to-end scenario 6: one master
// hvc1, one auxiliary hvc1 with an auxC URN, essential-associated.
func TestWriteAuxiliaryAlpha(t *testing.T) {
	master := 0
	cfg := &Config{
		Items: []ItemConfig{
			{ItemType: "hvc1", Data: hevcPayload(t, 200), Primary: true},
			{
				ItemType:  "hvc1",
				Data:      hevcPayload(t, 100),
				Auxiliary: &master,
				Properties: []bmff.Property{
					&bmff.AuxiliaryTypeProperty{AuxType: "urn:mpeg:mpegB:cicp:systems:auxiliary:alpha"},
				},
				Essential: []bool{true},
			},
		},
	}
	out, err := New(cfg).Write()
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	r, err := heif.Open(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("heif.Open: %v", err)
	}

	top, err := bmff.ReadTopLevel(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("ReadTopLevel: %v", err)
	}
	found := false
	for _, e := range top.Meta.ItemReference.Refs {
		if e.RefType.String() == "auxl" {
			found = true
			if len(e.ToItemIDs) != 1 || e.ToItemIDs[0] != 1 || e.FromItemID != 2 {
				t.Errorf("auxl entry = %+v", e)
			}
		}
	}
	if !found {
		t.Error("no auxl reference found")
	}

	auxItems, err := r.GetItemListByType(0, "auxl")
	if err != nil {
		t.Fatalf("GetItemListByType(auxl): %v", err)
	}
	if len(auxItems) != 1 || auxItems[0] != 2 {
		t.Errorf("GetItemListByType(auxl) = %v, want [2]", auxItems)
	}
}
