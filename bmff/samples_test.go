package bmff

import (
	"testing"

	"github.com/heifbox/heifbox/bitio"
)

// TestChunkOffsetBoxPromotesToCo64 reproduces the end-to-end co64
// promotion scenario: a chunk offset beyond 2^32-1 forces co64 with
// 64-bit entries, and the written box round-trips to the same offsets.
func TestChunkOffsetBoxPromotesToCo64(t *testing.T) {
	b := &ChunkOffsetBox{}
	offsets := []uint64{100, 0x100000000 + 42, 9000}
	b.SetOffsets(offsets)
	if !b.Large {
		t.Fatal("expected promotion to co64")
	}
	if b.Type().String() != "co64" {
		t.Errorf("Type() = %q, want co64", b.Type().String())
	}

	c := bitio.NewWriter()
	if err := b.Write(c); err != nil {
		t.Fatalf("Write: %v", err)
	}
	c.Finalize()

	rc := bitio.NewReader(c.Bytes())
	typ, sub, err := ReadBoxHeader(rc)
	if err != nil {
		t.Fatalf("ReadBoxHeader: %v", err)
	}
	if typ.String() != "co64" {
		t.Fatalf("parsed type = %q, want co64", typ.String())
	}
	got, err := ParseChunkOffsetBox(sub, typ)
	if err != nil {
		t.Fatalf("ParseChunkOffsetBox: %v", err)
	}
	if len(got.Offsets) != len(offsets) {
		t.Fatalf("got %d offsets, want %d", len(got.Offsets), len(offsets))
	}
	for i, o := range offsets {
		if got.Offsets[i] != o {
			t.Errorf("offset %d = %d, want %d", i, got.Offsets[i], o)
		}
	}
}

func TestChunkOffsetBoxStaysStcoWhenSmall(t *testing.T) {
	b := &ChunkOffsetBox{}
	b.SetOffsets([]uint64{10, 20, 30})
	if b.Large {
		t.Fatal("did not expect co64 promotion")
	}
	if b.Type().String() != "stco" {
		t.Errorf("Type() = %q, want stco", b.Type().String())
	}
}
