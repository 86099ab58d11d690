package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// MetaBox is the root "meta" FullBox. It owns exactly one each of the
// children enumerated in spec §3; ParseMetaBox parses each known child into
// its typed field, and the reader façade (heif package) builds the item and
// property graphs (C7/C8) on top of those fields.
type MetaBox struct {
	FullBox
	Handler       *HandlerBox
	PrimaryItem   *PrimaryItemBox
	DataInfo      *DataInformationBox
	ItemLocation  *ItemLocationBox
	ItemProtection *ItemProtectionBox
	ItemInfo      *ItemInfoBox
	ItemReference *ItemReferenceBox
	ItemData      *ItemDataBox
	ItemProps     *ItemPropertiesBox
	GroupsList    *GroupsListBox
}

func (m *MetaBox) Size() int64 { return 0 } // computed via UpdateSize during Write

func ParseMetaBox(c *bitio.Cursor) (*MetaBox, error) {
	fb, err := ParseFullHeader(c, fourcc.Meta)
	if err != nil {
		return nil, err
	}
	mb := &MetaBox{FullBox: *fb}
	children, err := ContainerParse(c)
	if err != nil {
		return mb, err
	}
	for _, ch := range children {
		switch ch.Type {
		case fourcc.New("hdlr"):
			mb.Handler, err = ParseHandlerBox(ch.Body)
		case fourcc.New("pitm"):
			mb.PrimaryItem, err = ParsePrimaryItemBox(ch.Body)
		case fourcc.New("dinf"):
			mb.DataInfo, err = ParseDataInformationBox(ch.Body)
		case fourcc.New("iloc"):
			mb.ItemLocation, err = ParseItemLocationBox(ch.Body)
		case fourcc.New("ipro"):
			mb.ItemProtection, err = ParseItemProtectionBox(ch.Body)
		case fourcc.New("iinf"):
			mb.ItemInfo, err = ParseItemInfoBox(ch.Body)
		case fourcc.New("iref"):
			mb.ItemReference, err = ParseItemReferenceBox(ch.Body)
		case fourcc.New("idat"):
			mb.ItemData, err = ParseItemDataBox(ch.Body)
		case fourcc.New("iprp"):
			mb.ItemProps, err = ParseItemPropertiesBox(ch.Body)
		case fourcc.New("grpl"):
			mb.GroupsList, err = ParseGroupsListBox(ch.Body)
		default:
			// unknown root-level meta child: skipped (not logged) per §4.11
		}
		if err != nil {
			return mb, fmt.Errorf("bmff: meta child %q: %w", ch.Type, err)
		}
	}
	return mb, nil
}

// Write emits children in the prescribed order (spec §5): Handler,
// PrimaryItem, DataInformation, ItemLocation, ItemProtection, ItemInfo,
// ItemReference, ItemData, ItemProperties, GroupsList.
func (m *MetaBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.Meta, m.Version, m.Flags)
	if err != nil {
		return err
	}
	writers := []func(*bitio.Cursor) error{}
	if m.Handler != nil {
		writers = append(writers, m.Handler.Write)
	}
	if m.PrimaryItem != nil {
		writers = append(writers, m.PrimaryItem.Write)
	}
	if m.DataInfo != nil {
		writers = append(writers, m.DataInfo.Write)
	}
	if m.ItemLocation != nil {
		writers = append(writers, m.ItemLocation.Write)
	}
	if m.ItemProtection != nil {
		writers = append(writers, m.ItemProtection.Write)
	}
	if m.ItemInfo != nil {
		writers = append(writers, m.ItemInfo.Write)
	}
	if m.ItemReference != nil {
		writers = append(writers, m.ItemReference.Write)
	}
	if m.ItemData != nil {
		writers = append(writers, m.ItemData.Write)
	}
	if m.ItemProps != nil {
		writers = append(writers, m.ItemProps.Write)
	}
	if m.GroupsList != nil {
		writers = append(writers, m.GroupsList.Write)
	}
	for _, w := range writers {
		if err := w(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// HandlerBox is "hdlr": a 4-byte predefined field, handler_type, 12
// reserved bytes, and a name string.
type HandlerBox struct {
	FullBox
	HandlerType fourcc.Code
	Name        string
}

func (b *HandlerBox) Size() int64 { return 0 }

func ParseHandlerBox(c *bitio.Cursor) (*HandlerBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("hdlr"))
	if err != nil {
		return nil, err
	}
	if _, err := c.ReadU32(); err != nil { // pre_defined
		return nil, err
	}
	ht, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	for i := 0; i < 3; i++ {
		if _, err := c.ReadU32(); err != nil { // reserved
			return nil, err
		}
	}
	name, err := c.ReadZString()
	if err != nil {
		return nil, err
	}
	return &HandlerBox{FullBox: *fb, HandlerType: fourcc.Code(ht), Name: name}, nil
}

func (b *HandlerBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("hdlr"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(0); err != nil {
		return err
	}
	if err := c.WriteU32(uint32(b.HandlerType)); err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		if err := c.WriteU32(0); err != nil {
			return err
		}
	}
	if err := c.WriteZString(b.Name); err != nil {
		return err
	}
	return h.UpdateSize(c)
}

// PrimaryItemBox is "pitm": a single ItemID (16-bit; spec never version-2s
// this box, unlike iinf/iloc/ipma).
type PrimaryItemBox struct {
	FullBox
	ItemID uint32
}

func (b *PrimaryItemBox) Size() int64 { return 0 }

func ParsePrimaryItemBox(c *bitio.Cursor) (*PrimaryItemBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("pitm"))
	if err != nil {
		return nil, err
	}
	id, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	return &PrimaryItemBox{FullBox: *fb, ItemID: uint32(id)}, nil
}

func (b *PrimaryItemBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("pitm"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU16(uint16(b.ItemID)); err != nil {
		return err
	}
	return h.UpdateSize(c)
}

// DataInformationBox is "dinf": a container for exactly one DataReferenceBox.
type DataInformationBox struct {
	Header
	DataReference *DataReferenceBox
}

func (b *DataInformationBox) Size() int64 { return 0 }

func ParseDataInformationBox(c *bitio.Cursor) (*DataInformationBox, error) {
	dib := &DataInformationBox{Header: Header{boxType: fourcc.New("dinf")}}
	children, err := ContainerParse(c)
	if err != nil {
		return dib, err
	}
	for _, ch := range children {
		if ch.Type == fourcc.New("dref") {
			dib.DataReference, err = ParseDataReferenceBox(ch.Body)
			if err != nil {
				return dib, err
			}
		}
	}
	return dib, nil
}

func (b *DataInformationBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("dinf"))
	if err != nil {
		return err
	}
	if b.DataReference != nil {
		if err := b.DataReference.Write(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// DataEntry is a "url " or "urn " child of DataReferenceBox. Per spec
// §4.3, the url body is elided when flag bit 0 (self-contained) is set.
type DataEntry struct {
	FullBox
	IsURN    bool
	Name     string // urn only
	Location string
}

func (e *DataEntry) selfContained() bool { return e.Flags&1 != 0 }

// DataReferenceBox is "dref": entry_count followed by that many DataEntry
// children.
type DataReferenceBox struct {
	FullBox
	Entries []*DataEntry
}

func (b *DataReferenceBox) Size() int64 { return 0 }

func ParseDataReferenceBox(c *bitio.Cursor) (*DataReferenceBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("dref"))
	if err != nil {
		return nil, err
	}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	drb := &DataReferenceBox{FullBox: *fb}
	children, err := ContainerParse(c)
	if err != nil {
		return drb, err
	}
	for _, ch := range children {
		isURN := ch.Type == fourcc.New("urn ")
		if ch.Type != fourcc.New("url ") && !isURN {
			continue
		}
		efb, err := ParseFullHeader(ch.Body, ch.Type)
		if err != nil {
			return drb, err
		}
		entry := &DataEntry{FullBox: *efb, IsURN: isURN}
		if isURN {
			entry.Name, err = ch.Body.ReadZString()
			if err != nil {
				return drb, err
			}
			entry.Location, err = ch.Body.ReadZString()
			if err != nil {
				return drb, err
			}
		} else if !entry.selfContained() {
			entry.Location, err = ch.Body.ReadZString()
			if err != nil {
				return drb, err
			}
		}
		drb.Entries = append(drb.Entries, entry)
	}
	if int(count) != len(drb.Entries) {
		return drb, fmt.Errorf("bmff: dref entry_count %d != parsed %d", count, len(drb.Entries))
	}
	return drb, nil
}

func (b *DataReferenceBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("dref"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(uint32(len(b.Entries))); err != nil {
		return err
	}
	for _, e := range b.Entries {
		typ := fourcc.New("url ")
		if e.IsURN {
			typ = fourcc.New("urn ")
		}
		eh, err := WriteFullHeader(c, typ, e.Version, e.Flags)
		if err != nil {
			return err
		}
		if e.IsURN {
			if err := c.WriteZString(e.Name); err != nil {
				return err
			}
			if err := c.WriteZString(e.Location); err != nil {
				return err
			}
		} else if !e.selfContained() {
			if err := c.WriteZString(e.Location); err != nil {
				return err
			}
		}
		if err := eh.UpdateSize(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// ItemDataBox is "idat": a raw byte payload addressed by idat_offset
// construction-method ItemLocation extents.
type ItemDataBox struct {
	Header
	Data []byte
}

func (b *ItemDataBox) Size() int64 { return int64(8 + len(b.Data)) }

func ParseItemDataBox(c *bitio.Cursor) (*ItemDataBox, error) {
	data, err := c.ReadBytes(c.Remaining())
	if err != nil {
		return nil, err
	}
	return &ItemDataBox{Header: Header{boxType: fourcc.New("idat")}, Data: data}, nil
}

func (b *ItemDataBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("idat"))
	if err != nil {
		return err
	}
	if err := c.WriteBytes(b.Data); err != nil {
		return err
	}
	return h.UpdateSize(c)
}

// ItemProtectionBox is "ipro": a FullBox wrapping an ordered list of
// opaque protection-scheme-info entries, 1-indexed by infe.protection_index
// (§D in SPEC_FULL.md — no DRM scheme parsing, passthrough only).
type ItemProtectionBox struct {
	FullBox
	Schemes [][]byte // each a raw "sinf" child, opaque
}

func (b *ItemProtectionBox) Size() int64 { return 0 }

func ParseItemProtectionBox(c *bitio.Cursor) (*ItemProtectionBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("ipro"))
	if err != nil {
		return nil, err
	}
	count, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	ipb := &ItemProtectionBox{FullBox: *fb}
	children, err := ContainerParse(c)
	if err != nil {
		return ipb, err
	}
	for _, ch := range children {
		raw, err := ch.Body.ReadBytes(ch.Body.Remaining())
		if err != nil {
			return ipb, err
		}
		ipb.Schemes = append(ipb.Schemes, raw)
	}
	if int(count) != len(ipb.Schemes) {
		return ipb, fmt.Errorf("bmff: ipro protection_count %d != parsed %d", count, len(ipb.Schemes))
	}
	return ipb, nil
}

func (b *ItemProtectionBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("ipro"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU16(uint16(len(b.Schemes))); err != nil {
		return err
	}
	for _, s := range b.Schemes {
		sh, err := WriteHeader(c, fourcc.New("sinf"))
		if err != nil {
			return err
		}
		if err := c.WriteBytes(s); err != nil {
			return err
		}
		if err := sh.UpdateSize(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}
