package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// ConstructionMethod selects how an ItemLocationExtent's offset resolves
// (spec glossary: Construction method).
type ConstructionMethod uint8

const (
	ConstructFileOffset ConstructionMethod = 0
	ConstructIdatOffset ConstructionMethod = 1
	ConstructItemOffset ConstructionMethod = 2 // not implemented; ErrNotApplicable
)

// Extent is a single (offset, length) pair within an ItemLocationEntry.
type Extent struct {
	Offset uint64
	Length uint64
}

// ItemLocationEntry is one item's location record within "iloc".
type ItemLocationEntry struct {
	ItemID             uint32
	ConstructionMethod ConstructionMethod
	DataReferenceIndex uint16
	BaseOffset         uint64
	Extents            []Extent
}

// ItemLocationBox is "iloc". Integer widths for offset/length/base_offset
// /index are packed into 4-bit nibbles in the header; construction_method
// exists only in v1/v2; item_id is 32-bit in v2, 16-bit otherwise.
type ItemLocationBox struct {
	FullBox
	OffsetSize, LengthSize, BaseOffsetSize, IndexSize uint8
	Items                                             []ItemLocationEntry
}

func (b *ItemLocationBox) Size() int64 { return 0 }

func ParseItemLocationBox(c *bitio.Cursor) (*ItemLocationBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("iloc"))
	if err != nil {
		return nil, err
	}
	ilb := &ItemLocationBox{FullBox: *fb}

	nibbles, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	ilb.OffsetSize = nibbles >> 4
	ilb.LengthSize = nibbles & 0xF

	nibbles2, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	ilb.BaseOffsetSize = nibbles2 >> 4
	if fb.Version == 1 || fb.Version == 2 {
		ilb.IndexSize = nibbles2 & 0xF
	}

	var itemCount uint32
	if fb.Version < 2 {
		n, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		itemCount = uint32(n)
	} else {
		itemCount, err = c.ReadU32()
		if err != nil {
			return nil, err
		}
	}

	for i := uint32(0); i < itemCount; i++ {
		var ent ItemLocationEntry
		if fb.Version < 2 {
			id, err := c.ReadU16()
			if err != nil {
				return nil, err
			}
			ent.ItemID = uint32(id)
		} else {
			ent.ItemID, err = c.ReadU32()
			if err != nil {
				return nil, err
			}
		}
		if fb.Version == 1 || fb.Version == 2 {
			cm, err := c.ReadU16()
			if err != nil {
				return nil, err
			}
			ent.ConstructionMethod = ConstructionMethod(cm & 0xF)
		}
		ent.DataReferenceIndex, err = c.ReadU16()
		if err != nil {
			return nil, err
		}
		bo, err := c.ReadUintN(int(ilb.BaseOffsetSize) * 8)
		if err != nil {
			return nil, err
		}
		ent.BaseOffset = bo

		extentCount, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		for j := 0; j < int(extentCount); j++ {
			if ilb.IndexSize > 0 {
				// extent_index present but unused by this reader (no
				// item_offset construction support, §3 NotApplicable).
				if _, err := c.ReadUintN(int(ilb.IndexSize) * 8); err != nil {
					return nil, err
				}
			}
			off, err := c.ReadUintN(int(ilb.OffsetSize) * 8)
			if err != nil {
				return nil, err
			}
			length, err := c.ReadUintN(int(ilb.LengthSize) * 8)
			if err != nil {
				return nil, err
			}
			ent.Extents = append(ent.Extents, Extent{Offset: off, Length: length})
		}
		if len(ent.Extents) == 0 {
			return ilb, fmt.Errorf("bmff: iloc item %d has empty extent list", ent.ItemID)
		}
		ilb.Items = append(ilb.Items, ent)
	}
	return ilb, nil
}

func (b *ItemLocationBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("iloc"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU8(b.OffsetSize<<4 | b.LengthSize); err != nil {
		return err
	}
	baseNibble := b.BaseOffsetSize << 4
	if b.Version == 1 || b.Version == 2 {
		baseNibble |= b.IndexSize
	}
	if err := c.WriteU8(baseNibble); err != nil {
		return err
	}
	if b.Version < 2 {
		if err := c.WriteU16(uint16(len(b.Items))); err != nil {
			return err
		}
	} else {
		if err := c.WriteU32(uint32(len(b.Items))); err != nil {
			return err
		}
	}
	for _, ent := range b.Items {
		if b.Version < 2 {
			if ent.ItemID > 0xFFFF {
				return fmt.Errorf("bmff: iloc v%d cannot encode item id %d", b.Version, ent.ItemID)
			}
			if err := c.WriteU16(uint16(ent.ItemID)); err != nil {
				return err
			}
		} else {
			if err := c.WriteU32(ent.ItemID); err != nil {
				return err
			}
		}
		if b.Version == 1 || b.Version == 2 {
			if err := c.WriteU16(uint16(ent.ConstructionMethod)); err != nil {
				return err
			}
		}
		if err := c.WriteU16(ent.DataReferenceIndex); err != nil {
			return err
		}
		if err := c.WriteUintN(ent.BaseOffset, int(b.BaseOffsetSize)*8); err != nil {
			return err
		}
		if len(ent.Extents) == 0 {
			return fmt.Errorf("bmff: iloc item %d has empty extent list", ent.ItemID)
		}
		if err := c.WriteU16(uint16(len(ent.Extents))); err != nil {
			return err
		}
		for _, ex := range ent.Extents {
			if b.IndexSize > 0 {
				if err := c.WriteUintN(0, int(b.IndexSize)*8); err != nil {
					return err
				}
			}
			if err := c.WriteUintN(ex.Offset, int(b.OffsetSize)*8); err != nil {
				return err
			}
			if err := c.WriteUintN(ex.Length, int(b.LengthSize)*8); err != nil {
				return err
			}
		}
	}
	return h.UpdateSize(c)
}
