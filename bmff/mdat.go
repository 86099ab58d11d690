package bmff

import (
	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

var fourccMdat = fourcc.New("mdat")

// MediaDataBox is "mdat": a single opaque payload. The reader never
// materializes one (file.go records a MediaDataRange instead); the
// writer builds one to hold every item's and sample's bytes, addressed
// afterwards by iloc/stco file offsets into this box's body.
type MediaDataBox struct {
	Header
	Data []byte
}

func (b *MediaDataBox) Size() int64 { return int64(16 + len(b.Data)) }

// Write reserves a large-size slot up front since mdat is the one box
// routinely expected to cross the 4GiB boundary.
func (b *MediaDataBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourccMdat)
	if err != nil {
		return err
	}
	if err := h.ReserveLargeSize(c); err != nil {
		return err
	}
	if err := c.WriteBytes(b.Data); err != nil {
		return err
	}
	return h.UpdateSize(c)
}
