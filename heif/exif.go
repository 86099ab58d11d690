package heif

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/rwcarlsen/goexif/exif"
)

// DecodeExifItem reads an "Exif" item's payload and decodes the embedded
// TIFF/Exif block with goexif. Per the "Exif" item data layout, the
// payload begins with a 4-byte big-endian exif_tiff_header_offset: the
// number of padding bytes, counted from the byte right after this field,
// before the actual TIFF header goexif understands.
func (r *Reader) DecodeExifItem(id ContextId, itemID uint32) (*exif.Exif, error) {
	data, err := r.GetItemData(id, itemID)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("heif: Exif item %d payload too short for tiff header offset", itemID)
	}
	off := 4 + int(binary.BigEndian.Uint32(data[:4]))
	if off > len(data) {
		return nil, fmt.Errorf("heif: Exif item %d tiff header offset %d exceeds payload length %d", itemID, off, len(data))
	}
	x, err := exif.Decode(bytes.NewReader(data[off:]))
	if err != nil {
		return nil, fmt.Errorf("heif: decoding Exif item %d: %w", itemID, err)
	}
	return x, nil
}
