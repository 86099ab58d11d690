package bmff

import (
	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// ItemReferenceEntry is a "SingleItemTypeReferenceBox": the box type IS the
// reference type (e.g. "dimg"); its body is from_item_id plus a list of
// to_item_ids.
type ItemReferenceEntry struct {
	RefType    fourcc.Code
	FromItemID uint32
	ToItemIDs  []uint32
}

// ItemReferenceBox is "iref": a FullBox container of ItemReferenceEntry
// children, with item ID widths controlled by the box version (16-bit for
// version 0, 32-bit otherwise).
type ItemReferenceBox struct {
	FullBox
	Refs []*ItemReferenceEntry
}

func (b *ItemReferenceBox) Size() int64 { return 0 }

func ParseItemReferenceBox(c *bitio.Cursor) (*ItemReferenceBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("iref"))
	if err != nil {
		return nil, err
	}
	ib := &ItemReferenceBox{FullBox: *fb}
	children, err := ContainerParse(c)
	if err != nil {
		return ib, err
	}
	for _, ch := range children {
		entry := &ItemReferenceEntry{RefType: ch.Type}
		if fb.Version == 0 {
			id, err := ch.Body.ReadU16()
			if err != nil {
				return ib, err
			}
			entry.FromItemID = uint32(id)
		} else {
			entry.FromItemID, err = ch.Body.ReadU32()
			if err != nil {
				return ib, err
			}
		}
		count, err := ch.Body.ReadU16()
		if err != nil {
			return ib, err
		}
		for i := 0; i < int(count); i++ {
			var id uint32
			if fb.Version == 0 {
				id16, err := ch.Body.ReadU16()
				if err != nil {
					return ib, err
				}
				id = uint32(id16)
			} else {
				id, err = ch.Body.ReadU32()
				if err != nil {
					return ib, err
				}
			}
			entry.ToItemIDs = append(entry.ToItemIDs, id)
		}
		ib.Refs = append(ib.Refs, entry)
	}
	return ib, nil
}

func (b *ItemReferenceBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("iref"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	for _, entry := range b.Refs {
		eh, err := WriteHeader(c, entry.RefType)
		if err != nil {
			return err
		}
		if b.Version == 0 {
			if entry.FromItemID > 0xFFFF {
				return ErrLargeItemIDInV0IRef
			}
			if err := c.WriteU16(uint16(entry.FromItemID)); err != nil {
				return err
			}
		} else {
			if err := c.WriteU32(entry.FromItemID); err != nil {
				return err
			}
		}
		if err := c.WriteU16(uint16(len(entry.ToItemIDs))); err != nil {
			return err
		}
		for _, id := range entry.ToItemIDs {
			if b.Version == 0 {
				if id > 0xFFFF {
					return ErrLargeItemIDInV0IRef
				}
				if err := c.WriteU16(uint16(id)); err != nil {
					return err
				}
			} else {
				if err := c.WriteU32(id); err != nil {
					return err
				}
			}
		}
		if err := eh.UpdateSize(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// AddReference appends toID to the existing (RefType, fromID) entry if one
// exists, otherwise creates a new entry, matching spec §4.6's reference-
// graph mutation contract.
func (b *ItemReferenceBox) AddReference(refType fourcc.Code, fromID, toID uint32) {
	for _, e := range b.Refs {
		if e.RefType == refType && e.FromItemID == fromID {
			e.ToItemIDs = append(e.ToItemIDs, toID)
			return
		}
	}
	b.Refs = append(b.Refs, &ItemReferenceEntry{RefType: refType, FromItemID: fromID, ToItemIDs: []uint32{toID}})
}
