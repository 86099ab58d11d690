package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// Property is the capability set every item-property type satisfies. The
// property set is mostly closed (spec glossary's AUXC/AVCC/CLAP/HVCC/IMIR/
// IROT/ISPE/LHVC/LSEL/OINF/RLOC/TOLS), but ItemPropertyContainerBox is the
// one open extension point (design notes §9): unrecognized property types
// round-trip opaquely via OpaqueProperty instead of being dropped.
type Property interface {
	Type() fourcc.Code
	Write(c *bitio.Cursor) error
}

type propertyParser func(c *bitio.Cursor, typ fourcc.Code) (Property, error)

var propertyParsers = map[fourcc.Code]propertyParser{
	fourcc.New("auxC"): func(c *bitio.Cursor, _ fourcc.Code) (Property, error) { return ParseAuxiliaryTypeProperty(c) },
	fourcc.New("avcC"): func(c *bitio.Cursor, _ fourcc.Code) (Property, error) { return ParseAvcConfigurationBox(c) },
	fourcc.New("clap"): func(c *bitio.Cursor, _ fourcc.Code) (Property, error) { return ParseCleanAperture(c) },
	fourcc.New("hvcC"): func(c *bitio.Cursor, _ fourcc.Code) (Property, error) { return ParseHevcConfigurationBox(c) },
	fourcc.New("imir"): func(c *bitio.Cursor, _ fourcc.Code) (Property, error) { return ParseImageMirror(c) },
	fourcc.New("irot"): func(c *bitio.Cursor, _ fourcc.Code) (Property, error) { return ParseImageRotation(c) },
	fourcc.New("ispe"): func(c *bitio.Cursor, _ fourcc.Code) (Property, error) { return ParseImageSpatialExtentsProperty(c) },
	fourcc.New("lhvC"): func(c *bitio.Cursor, _ fourcc.Code) (Property, error) { return ParseLHevcConfigurationBox(c) },
	fourcc.New("lsel"): func(c *bitio.Cursor, _ fourcc.Code) (Property, error) { return ParseLayerSelectorProperty(c) },
	fourcc.New("oinf"): func(c *bitio.Cursor, _ fourcc.Code) (Property, error) { return ParseOperatingPointsInformation(c) },
	fourcc.New("rloc"): func(c *bitio.Cursor, _ fourcc.Code) (Property, error) { return ParseImageRelativeLocationProperty(c) },
	fourcc.New("tols"): func(c *bitio.Cursor, _ fourcc.Code) (Property, error) { return ParseTargetOlsProperty(c) },
}

// OpaqueProperty preserves an unrecognized property's raw bytes for
// lossless round-trip (design notes §9).
type OpaqueProperty struct {
	PropType fourcc.Code
	RawBody  []byte
}

func (p *OpaqueProperty) Type() fourcc.Code { return p.PropType }

func (p *OpaqueProperty) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, p.PropType)
	if err != nil {
		return err
	}
	if err := c.WriteBytes(p.RawBody); err != nil {
		return err
	}
	return h.UpdateSize(c)
}

// ItemPropertyContainerBox is "ipco": an ordered list of properties. A
// property's 1-based position in this list is its index, referenced by
// ItemPropertyAssociation entries.
type ItemPropertyContainerBox struct {
	Header
	Properties []Property
}

func (b *ItemPropertyContainerBox) Size() int64 { return 0 }

func ParseItemPropertyContainerBox(c *bitio.Cursor) (*ItemPropertyContainerBox, error) {
	ipc := &ItemPropertyContainerBox{Header: Header{boxType: fourcc.New("ipco")}}
	children, err := ContainerParse(c)
	if err != nil {
		return ipc, err
	}
	for _, ch := range children {
		parser, ok := propertyParsers[ch.Type]
		if !ok {
			raw, err := ch.Body.ReadBytes(ch.Body.Remaining())
			if err != nil {
				return ipc, err
			}
			ipc.Properties = append(ipc.Properties, &OpaqueProperty{PropType: ch.Type, RawBody: raw})
			continue
		}
		prop, err := parser(ch.Body, ch.Type)
		if err != nil {
			return ipc, fmt.Errorf("bmff: property %q: %w", ch.Type, err)
		}
		ipc.Properties = append(ipc.Properties, prop)
	}
	return ipc, nil
}

func (b *ItemPropertyContainerBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("ipco"))
	if err != nil {
		return err
	}
	for _, p := range b.Properties {
		if err := p.Write(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// AddProperty appends a property and returns its 1-based index, deduping
// ISPE properties with identical dimensions to the existing index (spec
// §4.3: "On write, duplicate detection for ISPE is performed").
func (b *ItemPropertyContainerBox) AddProperty(p Property) int {
	if ispe, ok := p.(*ImageSpatialExtentsProperty); ok {
		for i, existing := range b.Properties {
			if other, ok := existing.(*ImageSpatialExtentsProperty); ok &&
				other.ImageWidth == ispe.ImageWidth && other.ImageHeight == ispe.ImageHeight {
				return i + 1
			}
		}
	}
	b.Properties = append(b.Properties, p)
	return len(b.Properties)
}

// ItemPropertyAssoc is one (item_id, associations) entry in an
// ItemPropertyAssociation box.
type ItemPropertyAssoc struct {
	ItemID       uint32
	Associations []PropertyAssociation
}

// PropertyAssociation is one (essential, property_index) pair.
type PropertyAssociation struct {
	Essential bool
	Index     uint16 // 1-based into ItemPropertyContainerBox.Properties
}

// ItemPropertyAssociation is "ipma". item_id width is 16-bit when version
// is 0, 32-bit otherwise; property_index is 7 bits when flag bit 0 is 0,
// 15 bits otherwise; essential always leads as 1 bit.
type ItemPropertyAssociation struct {
	FullBox
	Entries []ItemPropertyAssoc
}

func (b *ItemPropertyAssociation) Size() int64 { return 0 }

func (b *ItemPropertyAssociation) largeIndex() bool { return b.Flags&1 != 0 }

func ParseItemPropertyAssociation(c *bitio.Cursor) (*ItemPropertyAssociation, error) {
	fb, err := ParseFullHeader(c, fourcc.New("ipma"))
	if err != nil {
		return nil, err
	}
	ipa := &ItemPropertyAssociation{FullBox: *fb}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		var itemID uint32
		if fb.Version == 0 {
			id, err := c.ReadU16()
			if err != nil {
				return nil, err
			}
			itemID = uint32(id)
		} else {
			itemID, err = c.ReadU32()
			if err != nil {
				return nil, err
			}
		}
		assocCount, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		entry := ItemPropertyAssoc{ItemID: itemID}
		for j := 0; j < int(assocCount); j++ {
			first, err := c.ReadU8()
			if err != nil {
				return nil, err
			}
			essential := first&0x80 != 0
			first &^= 0x80
			var index uint16
			if ipa.largeIndex() {
				second, err := c.ReadU8()
				if err != nil {
					return nil, err
				}
				index = uint16(first)<<8 | uint16(second)
			} else {
				index = uint16(first)
			}
			entry.Associations = append(entry.Associations, PropertyAssociation{Essential: essential, Index: index})
		}
		ipa.Entries = append(ipa.Entries, entry)
	}
	return ipa, nil
}

func (b *ItemPropertyAssociation) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("ipma"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(uint32(len(b.Entries))); err != nil {
		return err
	}
	for _, entry := range b.Entries {
		if b.Version == 0 {
			if err := c.WriteU16(uint16(entry.ItemID)); err != nil {
				return err
			}
		} else {
			if err := c.WriteU32(entry.ItemID); err != nil {
				return err
			}
		}
		if err := c.WriteU8(uint8(len(entry.Associations))); err != nil {
			return err
		}
		for _, a := range entry.Associations {
			if b.largeIndex() {
				first := byte(a.Index >> 8 & 0x7F)
				if a.Essential {
					first |= 0x80
				}
				if err := c.WriteU8(first); err != nil {
					return err
				}
				if err := c.WriteU8(byte(a.Index)); err != nil {
					return err
				}
			} else {
				first := byte(a.Index & 0x7F)
				if a.Essential {
					first |= 0x80
				}
				if err := c.WriteU8(first); err != nil {
					return err
				}
			}
		}
	}
	return h.UpdateSize(c)
}

// ItemPropertiesBox is "iprp": exactly one ItemPropertyContainerBox
// followed by one or more ItemPropertyAssociation boxes.
type ItemPropertiesBox struct {
	Header
	Container    *ItemPropertyContainerBox
	Associations []*ItemPropertyAssociation
}

func (b *ItemPropertiesBox) Size() int64 { return 0 }

func ParseItemPropertiesBox(c *bitio.Cursor) (*ItemPropertiesBox, error) {
	ip := &ItemPropertiesBox{Header: Header{boxType: fourcc.New("iprp")}}
	children, err := ContainerParse(c)
	if err != nil {
		return ip, err
	}
	if len(children) < 2 {
		return ip, fmt.Errorf("bmff: iprp expects container + at least one association, got %d children", len(children))
	}
	if children[0].Type != fourcc.New("ipco") {
		return ip, fmt.Errorf("bmff: iprp first child must be ipco, got %q", children[0].Type)
	}
	ip.Container, err = ParseItemPropertyContainerBox(children[0].Body)
	if err != nil {
		return ip, err
	}
	for _, ch := range children[1:] {
		if ch.Type != fourcc.New("ipma") {
			return ip, fmt.Errorf("bmff: iprp expected ipma, got %q", ch.Type)
		}
		ipa, err := ParseItemPropertyAssociation(ch.Body)
		if err != nil {
			return ip, err
		}
		ip.Associations = append(ip.Associations, ipa)
	}
	return ip, nil
}

func (b *ItemPropertiesBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("iprp"))
	if err != nil {
		return err
	}
	if err := b.Container.Write(c); err != nil {
		return err
	}
	for _, ipa := range b.Associations {
		if err := ipa.Write(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}
