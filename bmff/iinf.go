package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// ItemInfoEntry is "infe". The body is version-switched (spec §4.3): v0/v1
// carry item_type implicitly as "" with free-form content_type/encoding;
// v2 carries an explicit 4CC item_type and conditionally mime/uri fields.
// v1 additionally carries an FDItemInfoExtension.
type ItemInfoEntry struct {
	FullBox
	ItemID          uint32
	ProtectionIndex uint16
	ItemType        fourcc.Code
	Name            string
	Hidden          bool // flags bit 0

	ContentType     string // v0/v1, or v2 when item_type=="mime"
	ContentEncoding string // v0/v1, or v2 when item_type=="mime"
	ItemURIType     string // v2 when item_type=="uri "

	// v1 FDItemInfoExtension
	ExtensionType   fourcc.Code
	ContentLocation string
	ContentMD5      string
	ContentLength   uint64
	TransferLength  uint64
	GroupIDs        []uint32
}

func (e *ItemInfoEntry) Size() int64 { return 0 }

func ParseItemInfoEntry(c *bitio.Cursor) (*ItemInfoEntry, error) {
	fb, err := ParseFullHeader(c, fourcc.New("infe"))
	if err != nil {
		return nil, err
	}
	ie := &ItemInfoEntry{FullBox: *fb, Hidden: fb.Flags&1 != 0}

	switch {
	case fb.Version == 0 || fb.Version == 1:
		id, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		ie.ItemID = uint32(id)
		ie.ProtectionIndex, err = c.ReadU16()
		if err != nil {
			return nil, err
		}
		ie.Name, err = c.ReadZString()
		if err != nil {
			return nil, err
		}
		ie.ContentType, err = c.ReadZString()
		if err != nil {
			return nil, err
		}
		if c.AnyRemain() {
			ie.ContentEncoding, err = c.ReadZString()
			if err != nil {
				return nil, err
			}
		}
		if fb.Version == 1 && c.AnyRemain() {
			ext, err := c.ReadU32()
			if err != nil {
				return nil, err
			}
			ie.ExtensionType = fourcc.Code(ext)
			if ie.ExtensionType == fourcc.New("fdel") {
				if ie.ContentLocation, err = c.ReadZString(); err != nil {
					return nil, err
				}
				if ie.ContentMD5, err = c.ReadZString(); err != nil {
					return nil, err
				}
				if ie.ContentLength, err = c.ReadU64(); err != nil {
					return nil, err
				}
				if ie.TransferLength, err = c.ReadU64(); err != nil {
					return nil, err
				}
				n, err := c.ReadU8()
				if err != nil {
					return nil, err
				}
				for i := 0; i < int(n); i++ {
					gid, err := c.ReadU32()
					if err != nil {
						return nil, err
					}
					ie.GroupIDs = append(ie.GroupIDs, gid)
				}
			}
		}
	case fb.Version >= 2:
		if fb.Version == 2 {
			id, err := c.ReadU16()
			if err != nil {
				return nil, err
			}
			ie.ItemID = uint32(id)
		} else {
			id, err := c.ReadU32()
			if err != nil {
				return nil, err
			}
			ie.ItemID = id
		}
		pi, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		ie.ProtectionIndex = pi
		tb, err := c.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		ie.ItemType = fourcc.FromBytes(tb)
		ie.Name, err = c.ReadZString()
		if err != nil {
			return nil, err
		}
		switch ie.ItemType.String() {
		case "mime":
			ie.ContentType, err = c.ReadZString()
			if err != nil {
				return nil, err
			}
			if c.AnyRemain() {
				ie.ContentEncoding, err = c.ReadZString()
				if err != nil {
					return nil, err
				}
			}
		case "uri ":
			ie.ItemURIType, err = c.ReadZString()
			if err != nil {
				return nil, err
			}
		}
	}
	return ie, nil
}

func (e *ItemInfoEntry) Write(c *bitio.Cursor) error {
	flags := e.Flags &^ 1
	if e.Hidden {
		flags |= 1
	}
	h, err := WriteFullHeader(c, fourcc.New("infe"), e.Version, flags)
	if err != nil {
		return err
	}
	switch {
	case e.Version <= 1:
		if err := c.WriteU16(uint16(e.ItemID)); err != nil {
			return err
		}
		if err := c.WriteU16(e.ProtectionIndex); err != nil {
			return err
		}
		if err := c.WriteZString(e.Name); err != nil {
			return err
		}
		if err := c.WriteZString(e.ContentType); err != nil {
			return err
		}
		if e.ContentEncoding != "" {
			if err := c.WriteZString(e.ContentEncoding); err != nil {
				return err
			}
		}
	default:
		if e.Version == 2 {
			if err := c.WriteU16(uint16(e.ItemID)); err != nil {
				return err
			}
		} else {
			if err := c.WriteU32(e.ItemID); err != nil {
				return err
			}
		}
		if err := c.WriteU16(e.ProtectionIndex); err != nil {
			return err
		}
		tb := e.ItemType.Bytes()
		if err := c.WriteBytes(tb[:]); err != nil {
			return err
		}
		if err := c.WriteZString(e.Name); err != nil {
			return err
		}
		switch e.ItemType.String() {
		case "mime":
			if err := c.WriteZString(e.ContentType); err != nil {
				return err
			}
			if e.ContentEncoding != "" {
				if err := c.WriteZString(e.ContentEncoding); err != nil {
					return err
				}
			}
		case "uri ":
			if err := c.WriteZString(e.ItemURIType); err != nil {
				return err
			}
		}
	}
	return h.UpdateSize(c)
}

// ItemInfoBox is "iinf": a count (16- or 32-bit by version) followed by
// that many ItemInfoEntry children.
type ItemInfoBox struct {
	FullBox
	Entries []*ItemInfoEntry
}

func (b *ItemInfoBox) Size() int64 { return 0 }

func ParseItemInfoBox(c *bitio.Cursor) (*ItemInfoBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("iinf"))
	if err != nil {
		return nil, err
	}
	var count uint32
	if fb.Version == 0 {
		c16, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		count = uint32(c16)
	} else {
		count, err = c.ReadU32()
		if err != nil {
			return nil, err
		}
	}
	ib := &ItemInfoBox{FullBox: *fb}
	children, err := ContainerParse(c)
	if err != nil {
		return ib, err
	}
	for _, ch := range children {
		if ch.Type != fourcc.New("infe") {
			continue // unknown child: skip (§4.11)
		}
		entry, err := ParseItemInfoEntry(ch.Body)
		if err != nil {
			return ib, fmt.Errorf("bmff: infe: %w", err)
		}
		ib.Entries = append(ib.Entries, entry)
	}
	if int(count) != len(ib.Entries) {
		return ib, fmt.Errorf("bmff: iinf entry_count %d != parsed %d", count, len(ib.Entries))
	}
	return ib, nil
}

func (b *ItemInfoBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("iinf"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if b.Version == 0 {
		if err := c.WriteU16(uint16(len(b.Entries))); err != nil {
			return err
		}
	} else {
		if err := c.WriteU32(uint32(len(b.Entries))); err != nil {
			return err
		}
	}
	for _, e := range b.Entries {
		if err := e.Write(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}
