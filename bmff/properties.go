package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// ImageSpatialExtentsProperty is "ispe": the transformative-property-free
// pixel geometry of an image item, pre any irot/imir/clap application.
type ImageSpatialExtentsProperty struct {
	FullBox
	ImageWidth, ImageHeight uint32
}

func (p *ImageSpatialExtentsProperty) Type() fourcc.Code { return fourcc.New("ispe") }

func ParseImageSpatialExtentsProperty(c *bitio.Cursor) (*ImageSpatialExtentsProperty, error) {
	fb, err := ParseFullHeader(c, fourcc.New("ispe"))
	if err != nil {
		return nil, err
	}
	p := &ImageSpatialExtentsProperty{FullBox: *fb}
	if p.ImageWidth, err = c.ReadU32(); err != nil {
		return nil, err
	}
	if p.ImageHeight, err = c.ReadU32(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ImageSpatialExtentsProperty) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("ispe"), p.Version, p.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(p.ImageWidth); err != nil {
		return err
	}
	if err := c.WriteU32(p.ImageHeight); err != nil {
		return err
	}
	return h.UpdateSize(c)
}

// ImageRotation is "irot": a plain (non-Full) box holding a 2-bit
// clockwise quarter-turn count in the low bits of its single byte.
type ImageRotation struct {
	Header
	Angle uint8 // 0..3, quarter turns clockwise
}

func (p *ImageRotation) Type() fourcc.Code { return fourcc.New("irot") }

func ParseImageRotation(c *bitio.Cursor) (*ImageRotation, error) {
	v, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	return &ImageRotation{Header: Header{boxType: fourcc.New("irot")}, Angle: uint8(v & 0x3)}, nil
}

func (p *ImageRotation) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("irot"))
	if err != nil {
		return err
	}
	c.WriteBits(uint32(p.Angle&0x3), 8)
	return h.UpdateSize(c)
}

// ImageMirror is "imir": a plain box with a 1-bit mirror axis in the low
// bit of its single byte (0 = vertical axis, 1 = horizontal axis).
type ImageMirror struct {
	Header
	Axis uint8
}

func (p *ImageMirror) Type() fourcc.Code { return fourcc.New("imir") }

func ParseImageMirror(c *bitio.Cursor) (*ImageMirror, error) {
	v, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	return &ImageMirror{Header: Header{boxType: fourcc.New("imir")}, Axis: uint8(v & 0x1)}, nil
}

func (p *ImageMirror) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("imir"))
	if err != nil {
		return err
	}
	c.WriteBits(uint32(p.Axis&0x1), 8)
	return h.UpdateSize(c)
}

// Fraction is a signed rational, num/denom, as used by CleanAperture.
type Fraction struct {
	Num, Denom int32
}

// CleanAperture is "clap": the displayed crop rectangle expressed as four
// fractions (spec §4.3).
type CleanAperture struct {
	Header
	CleanApertureWidth, CleanApertureHeight Fraction
	HorizOff, VertOff                       Fraction
}

func (p *CleanAperture) Type() fourcc.Code { return fourcc.New("clap") }

func readClapFraction(c *bitio.Cursor) (Fraction, error) {
	n, err := c.ReadU32()
	if err != nil {
		return Fraction{}, err
	}
	d, err := c.ReadU32()
	if err != nil {
		return Fraction{}, err
	}
	return Fraction{Num: int32(n), Denom: int32(d)}, nil
}

func writeClapFraction(c *bitio.Cursor, f Fraction) error {
	if err := c.WriteU32(uint32(f.Num)); err != nil {
		return err
	}
	return c.WriteU32(uint32(f.Denom))
}

func ParseCleanAperture(c *bitio.Cursor) (*CleanAperture, error) {
	p := &CleanAperture{Header: Header{boxType: fourcc.New("clap")}}
	var err error
	if p.CleanApertureWidth, err = readClapFraction(c); err != nil {
		return nil, err
	}
	if p.CleanApertureHeight, err = readClapFraction(c); err != nil {
		return nil, err
	}
	if p.HorizOff, err = readClapFraction(c); err != nil {
		return nil, err
	}
	if p.VertOff, err = readClapFraction(c); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *CleanAperture) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("clap"))
	if err != nil {
		return err
	}
	for _, f := range []Fraction{p.CleanApertureWidth, p.CleanApertureHeight, p.HorizOff, p.VertOff} {
		if err := writeClapFraction(c, f); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// ImageRelativeLocationProperty is "rloc": the horizontal/vertical offset
// of a derived image's constituent within the overlay/grid canvas.
type ImageRelativeLocationProperty struct {
	FullBox
	HorizontalOffset, VerticalOffset uint32
}

func (p *ImageRelativeLocationProperty) Type() fourcc.Code { return fourcc.New("rloc") }

func ParseImageRelativeLocationProperty(c *bitio.Cursor) (*ImageRelativeLocationProperty, error) {
	fb, err := ParseFullHeader(c, fourcc.New("rloc"))
	if err != nil {
		return nil, err
	}
	p := &ImageRelativeLocationProperty{FullBox: *fb}
	if p.HorizontalOffset, err = c.ReadU32(); err != nil {
		return nil, err
	}
	if p.VerticalOffset, err = c.ReadU32(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ImageRelativeLocationProperty) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("rloc"), p.Version, p.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(p.HorizontalOffset); err != nil {
		return err
	}
	if err := c.WriteU32(p.VerticalOffset); err != nil {
		return err
	}
	return h.UpdateSize(c)
}

// AuxiliaryTypeProperty is "auxC": a zero-terminated URN identifying the
// auxiliary image's role (e.g. alpha, depth) plus subtype bytes whose
// meaning is URN-specific.
type AuxiliaryTypeProperty struct {
	FullBox
	AuxType    string
	AuxSubtype []byte
}

func (p *AuxiliaryTypeProperty) Type() fourcc.Code { return fourcc.New("auxC") }

func ParseAuxiliaryTypeProperty(c *bitio.Cursor) (*AuxiliaryTypeProperty, error) {
	fb, err := ParseFullHeader(c, fourcc.New("auxC"))
	if err != nil {
		return nil, err
	}
	p := &AuxiliaryTypeProperty{FullBox: *fb}
	if p.AuxType, err = c.ReadZString(); err != nil {
		return nil, err
	}
	if c.AnyRemain() {
		if p.AuxSubtype, err = c.ReadBytes(c.Remaining()); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *AuxiliaryTypeProperty) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("auxC"), p.Version, p.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteZString(p.AuxType); err != nil {
		return err
	}
	if len(p.AuxSubtype) > 0 {
		if err := c.WriteBytes(p.AuxSubtype); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// LayerSelectorProperty is "lsel": selects a single L-HEVC layer to
// expose as an independently decodable image (supplemented feature,
// design notes §9/§D).
type LayerSelectorProperty struct {
	Header
	LayerID uint16
}

func (p *LayerSelectorProperty) Type() fourcc.Code { return fourcc.New("lsel") }

func ParseLayerSelectorProperty(c *bitio.Cursor) (*LayerSelectorProperty, error) {
	id, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	return &LayerSelectorProperty{Header: Header{boxType: fourcc.New("lsel")}, LayerID: id}, nil
}

func (p *LayerSelectorProperty) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("lsel"))
	if err != nil {
		return err
	}
	if err := c.WriteU16(p.LayerID); err != nil {
		return err
	}
	return h.UpdateSize(c)
}

// TargetOlsProperty is "tols": pins an item to a specific L-HEVC output
// layer set index (supplemented feature, design notes §9/§D).
type TargetOlsProperty struct {
	FullBox
	TargetOlsIndex uint16
}

func (p *TargetOlsProperty) Type() fourcc.Code { return fourcc.New("tols") }

func ParseTargetOlsProperty(c *bitio.Cursor) (*TargetOlsProperty, error) {
	fb, err := ParseFullHeader(c, fourcc.New("tols"))
	if err != nil {
		return nil, err
	}
	idx, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	return &TargetOlsProperty{FullBox: *fb, TargetOlsIndex: idx}, nil
}

func (p *TargetOlsProperty) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("tols"), p.Version, p.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU16(p.TargetOlsIndex); err != nil {
		return err
	}
	return h.UpdateSize(c)
}

// CodingConstraintsBox is "ccst": declares whether the referencing track's
// samples may rely on out-of-band parameter sets or reordering
// (supplemented feature, design notes §9/§D). Carried on VisualSampleEntry,
// not as an item property, but defined here alongside the other small
// fixed-layout boxes it structurally resembles.
type CodingConstraintsBox struct {
	FullBox
	AllRefPicsIntra    bool
	IntraPredUsed      bool
	MaxNumReorderPics  uint32
}

func (b *CodingConstraintsBox) Size() int64 { return 0 }

func ParseCodingConstraintsBox(c *bitio.Cursor) (*CodingConstraintsBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("ccst"))
	if err != nil {
		return nil, err
	}
	b := &CodingConstraintsBox{FullBox: *fb}
	flags, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	b.AllRefPicsIntra = flags&0x02 != 0
	b.IntraPredUsed = flags&0x01 != 0
	reorder, err := c.ReadBits(32)
	if err != nil {
		return nil, err
	}
	b.MaxNumReorderPics = reorder & 0x3FFF
	return b, nil
}

func (b *CodingConstraintsBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("ccst"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	var flags uint32
	if b.AllRefPicsIntra {
		flags |= 0x02
	}
	if b.IntraPredUsed {
		flags |= 0x01
	}
	c.WriteBits(flags, 8)
	if b.MaxNumReorderPics > 0x3FFF {
		return fmt.Errorf("bmff: ccst max_num_reorder_pics %d exceeds 14 bits", b.MaxNumReorderPics)
	}
	c.WriteBits(b.MaxNumReorderPics, 32)
	return h.UpdateSize(c)
}
