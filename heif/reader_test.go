package heif

import (
	"bytes"
	"errors"
	"testing"

	"github.com/heifbox/heifbox/bmff"
	"github.com/heifbox/heifbox/fourcc"
	"github.com/heifbox/heifbox/heiferr"
)

func rawReaderAt(t *testing.T, data []byte) *bytes.Reader {
	t.Helper()
	return bytes.NewReader(data)
}

func metaContext(t *testing.T) (*Reader, ContextId) {
	t.Helper()
	payload := []byte("hevc-nal-payload")
	ra := rawReaderAt(t, payload)

	meta := &bmff.MetaBox{
		PrimaryItem: &bmff.PrimaryItemBox{ItemID: 1},
		ItemInfo: &bmff.ItemInfoBox{Entries: []*bmff.ItemInfoEntry{
			{ItemID: 1, ItemType: fourcc.New("hvc1")},
			{ItemID: 2, ItemType: fourcc.New("hvc1")},
			{ItemID: 3, ItemType: fourcc.New("Exif"), ProtectionIndex: 1},
		}},
		ItemLocation: &bmff.ItemLocationBox{Items: []bmff.ItemLocationEntry{
			{ItemID: 1, ConstructionMethod: bmff.ConstructFileOffset, Extents: []bmff.Extent{{Offset: 0, Length: uint64(len(payload))}}},
			{ItemID: 2, ConstructionMethod: bmff.ConstructFileOffset, Extents: []bmff.Extent{{Offset: 0, Length: uint64(len(payload))}}},
		}},
	}

	r := &Reader{ra: ra, state: stateReady, contexts: map[ContextId]*context{}}
	ctx := &context{id: rootMetaContextId, meta: meta}
	ctx.indexItems()
	r.contexts[rootMetaContextId] = ctx
	r.order = []ContextId{rootMetaContextId}
	return r, rootMetaContextId
}

func TestGetItemListByTypeFiltersByItemType(t *testing.T) {
	r, ctx := metaContext(t)
	ids, err := r.GetItemListByType(ctx, "hvc1")
	if err != nil {
		t.Fatalf("GetItemListByType: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("got %v, want [1 2]", ids)
	}
}

func TestGetItemDataFileOffsetConstruction(t *testing.T) {
	r, ctx := metaContext(t)
	data, err := r.GetItemData(ctx, 2)
	if err != nil {
		t.Fatalf("GetItemData: %v", err)
	}
	if string(data) != "hevc-nal-payload" {
		t.Errorf("got %q", data)
	}
}

func TestGetItemDataRefusesProtectedItem(t *testing.T) {
	r, ctx := metaContext(t)
	_, err := r.GetItemData(ctx, 3)
	if err == nil {
		t.Fatal("expected an error for a protected item")
	}
	if !errors.Is(err, heiferr.ErrProtectedItem) {
		t.Errorf("got %v, want ErrProtectedItem", err)
	}
}

func TestGetItemDataInvalidItemId(t *testing.T) {
	r, ctx := metaContext(t)
	if _, err := r.GetItemData(ctx, 99); !errors.Is(err, heiferr.ErrInvalidItemId) {
		t.Errorf("got %v, want ErrInvalidItemId", err)
	}
}

func TestInvalidContextId(t *testing.T) {
	r, _ := metaContext(t)
	if _, err := r.GetItemListByType(ContextId(999), "hvc1"); !errors.Is(err, heiferr.ErrInvalidContextId) {
		t.Errorf("got %v, want ErrInvalidContextId", err)
	}
}

func TestPrimaryItem(t *testing.T) {
	r, ctx := metaContext(t)
	id, err := r.PrimaryItem(ctx)
	if err != nil {
		t.Fatalf("PrimaryItem: %v", err)
	}
	if id != 1 {
		t.Errorf("PrimaryItem = %d, want 1", id)
	}
}

func gridContext(t *testing.T) (*Reader, ContextId) {
	t.Helper()
	grid := &bmff.ImageGrid{RowsMinusOne: 1, ColumnsMinusOne: 1, OutputWidth: 1024, OutputHeight: 1024}
	payload, err := grid.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	ra := rawReaderAt(t, payload)

	meta := &bmff.MetaBox{
		ItemInfo: &bmff.ItemInfoBox{Entries: []*bmff.ItemInfoEntry{
			{ItemID: 1, ItemType: fourcc.New("grid")},
			{ItemID: 2, ItemType: fourcc.New("hvc1")},
			{ItemID: 3, ItemType: fourcc.New("hvc1")},
			{ItemID: 4, ItemType: fourcc.New("hvc1")},
			{ItemID: 5, ItemType: fourcc.New("hvc1")},
		}},
		ItemLocation: &bmff.ItemLocationBox{Items: []bmff.ItemLocationEntry{
			{ItemID: 1, ConstructionMethod: bmff.ConstructFileOffset, Extents: []bmff.Extent{{Offset: 0, Length: uint64(len(payload))}}},
		}},
		ItemReference: &bmff.ItemReferenceBox{Refs: []*bmff.ItemReferenceEntry{
			{RefType: fourcc.New("dimg"), FromItemID: 1, ToItemIDs: []uint32{2, 3, 4, 5}},
		}},
	}

	r := &Reader{ra: ra, state: stateReady, contexts: map[ContextId]*context{}}
	ctx := &context{id: rootMetaContextId, meta: meta}
	ctx.indexItems()
	r.contexts[rootMetaContextId] = ctx
	r.order = []ContextId{rootMetaContextId}
	return r, rootMetaContextId
}

func TestGetItemGrid(t *testing.T) {
	r, ctx := gridContext(t)
	grid, tiles, err := r.GetItemGrid(ctx, 1)
	if err != nil {
		t.Fatalf("GetItemGrid: %v", err)
	}
	if grid.RowsMinusOne != 1 || grid.ColumnsMinusOne != 1 || grid.OutputWidth != 1024 || grid.OutputHeight != 1024 {
		t.Errorf("got %+v", grid)
	}
	want := []uint32{2, 3, 4, 5}
	if len(tiles) != len(want) {
		t.Fatalf("got %d tiles, want %d", len(tiles), len(want))
	}
	for i, id := range want {
		if tiles[i] != id {
			t.Errorf("tile %d = %d, want %d", i, tiles[i], id)
		}
	}
}

func TestGetItemGridWrongType(t *testing.T) {
	r, ctx := gridContext(t)
	if _, _, err := r.GetItemGrid(ctx, 2); !errors.Is(err, heiferr.ErrInvalidItemId) {
		t.Errorf("got %v, want ErrInvalidItemId", err)
	}
}
