package heif

import (
	"testing"

	"github.com/heifbox/heifbox/bmff"
	"github.com/heifbox/heifbox/fourcc"
)

// minimalTIFF is the smallest legal little-endian TIFF stream: a header
// pointing at an IFD0 with zero entries and no next IFD.
var minimalTIFF = []byte{
	'I', 'I', 0x2A, 0x00, // byte order + magic
	0x08, 0x00, 0x00, 0x00, // offset of IFD0
	0x00, 0x00, // IFD0 entry count
	0x00, 0x00, 0x00, 0x00, // next IFD offset
}

func exifContext(t *testing.T) (*Reader, ContextId, []byte) {
	t.Helper()
	payload := append([]byte{0x00, 0x00, 0x00, 0x00}, minimalTIFF...)
	ra := rawReaderAt(t, payload)

	meta := &bmff.MetaBox{
		ItemInfo: &bmff.ItemInfoBox{Entries: []*bmff.ItemInfoEntry{
			{ItemID: 1, ItemType: fourcc.New("Exif")},
		}},
		ItemLocation: &bmff.ItemLocationBox{Items: []bmff.ItemLocationEntry{
			{ItemID: 1, ConstructionMethod: bmff.ConstructFileOffset, Extents: []bmff.Extent{{Offset: 0, Length: uint64(len(payload))}}},
		}},
	}

	r := &Reader{ra: ra, state: stateReady, contexts: map[ContextId]*context{}}
	ctx := &context{id: rootMetaContextId, meta: meta}
	ctx.indexItems()
	r.contexts[rootMetaContextId] = ctx
	r.order = []ContextId{rootMetaContextId}
	return r, rootMetaContextId, payload
}

func TestDecodeExifItem(t *testing.T) {
	r, ctx, _ := exifContext(t)
	if _, err := r.DecodeExifItem(ctx, 1); err != nil {
		t.Fatalf("DecodeExifItem: %v", err)
	}
}

func TestDecodeExifItemTooShort(t *testing.T) {
	r, ctx, _ := exifContext(t)
	r.contexts[ctx].meta.ItemLocation.Items[0].Extents[0].Length = 2
	if _, err := r.DecodeExifItem(ctx, 1); err == nil {
		t.Fatal("expected error for truncated Exif payload")
	}
}
