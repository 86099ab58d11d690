package heif

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// GetItemName is get_item_name (spec glossary: Item, item_name): the infe
// item_name string for itemID. item_name is a NUL-terminated UTF-8 string
// per the box spec, but legacy encoders occasionally emit raw Latin-1
// bytes for non-ASCII names; a string that fails UTF-8 validation is
// reinterpreted as ISO-8859-1 rather than surfaced as mojibake.
func (r *Reader) GetItemName(id ContextId, itemID uint32) (string, error) {
	ctx, err := r.context(id)
	if err != nil {
		return "", err
	}
	e, err := ctx.item(itemID)
	if err != nil {
		return "", err
	}
	return sanitizeItemName(e.Name), nil
}

func sanitizeItemName(name string) string {
	if utf8.ValidString(name) {
		return name
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().String(name)
	if err != nil {
		return name
	}
	return decoded
}
