package heif

import "testing"

func TestGetItemName(t *testing.T) {
	r, ctx := metaContext(t)
	r.contexts[ctx].itemsByID[1].Name = "cover"
	name, err := r.GetItemName(ctx, 1)
	if err != nil {
		t.Fatalf("GetItemName: %v", err)
	}
	if name != "cover" {
		t.Errorf("GetItemName = %q, want %q", name, "cover")
	}
}

func TestSanitizeItemNameLatin1Fallback(t *testing.T) {
	// 0xE9 alone is not valid UTF-8; as ISO-8859-1 it's "é".
	got := sanitizeItemName(string([]byte{'r', 0xE9, 's', 'u', 'm', 'e'}))
	want := "résume"
	if got != want {
		t.Errorf("sanitizeItemName = %q, want %q", got, want)
	}
}
