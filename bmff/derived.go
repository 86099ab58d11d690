package bmff

import "github.com/heifbox/heifbox/bitio"

// ImageGrid is the "grid" derived-image item payload (spec §4.3): not a
// framed box (no size/type header, no UpdateSize) but a small descriptor
// stored directly as an item's data bytes, referencing its tiles through
// the item's own "dimg" item references rather than anything in this
// struct. Flag bit 0 selects 16- vs 32-bit output_width/output_height.
//
// Deliberate deviation from the Nokia original_source layout: that parser
// reads a plain 8-bit version and 8-bit flags (2-byte header), but
// spec.md's literal testable scenario calls for a 10-byte total payload
// for rows_minus_one=1, columns_minus_one=1, output=1024x1024 — which
// only comes out right with a FullBox-style 1-byte version + 3-byte
// (24-bit) flags: 1+3+1+1+2+2 = 10. ImageOverlay below keeps the
// original's plain version+flags layout since no test vector contradicts
// it there.
type ImageGrid struct {
	Version                   uint8
	Flags                     uint32 // low 24 bits significant
	RowsMinusOne              uint8
	ColumnsMinusOne           uint8
	OutputWidth, OutputHeight uint32
}

// LargeSize reports whether output_width/output_height are encoded as
// 32-bit fields (flags bit 0).
func (g *ImageGrid) LargeSize() bool { return g.Flags&1 != 0 }

// ParseImageGrid decodes a "grid" item's raw data bytes.
func ParseImageGrid(data []byte) (*ImageGrid, error) {
	c := bitio.NewReader(data)
	g := &ImageGrid{}
	var err error
	if g.Version, err = c.ReadU8(); err != nil {
		return nil, err
	}
	if g.Flags, err = c.ReadU24(); err != nil {
		return nil, err
	}
	if g.RowsMinusOne, err = c.ReadU8(); err != nil {
		return nil, err
	}
	if g.ColumnsMinusOne, err = c.ReadU8(); err != nil {
		return nil, err
	}
	if g.LargeSize() {
		if g.OutputWidth, err = c.ReadU32(); err != nil {
			return nil, err
		}
		if g.OutputHeight, err = c.ReadU32(); err != nil {
			return nil, err
		}
		return g, nil
	}
	w, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	h, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	g.OutputWidth, g.OutputHeight = uint32(w), uint32(h)
	return g, nil
}

// Marshal encodes g into its item-data byte form.
func (g *ImageGrid) Marshal() ([]byte, error) {
	c := bitio.NewWriter()
	if err := c.WriteU8(g.Version); err != nil {
		return nil, err
	}
	if err := c.WriteU24(g.Flags & 0xFFFFFF); err != nil {
		return nil, err
	}
	if err := c.WriteU8(g.RowsMinusOne); err != nil {
		return nil, err
	}
	if err := c.WriteU8(g.ColumnsMinusOne); err != nil {
		return nil, err
	}
	if g.LargeSize() {
		if err := c.WriteU32(g.OutputWidth); err != nil {
			return nil, err
		}
		if err := c.WriteU32(g.OutputHeight); err != nil {
			return nil, err
		}
	} else {
		if err := c.WriteU16(uint16(g.OutputWidth)); err != nil {
			return nil, err
		}
		if err := c.WriteU16(uint16(g.OutputHeight)); err != nil {
			return nil, err
		}
	}
	c.Finalize()
	return c.Bytes(), nil
}

// TileCount is rows*columns, the number of "dimg" edges a grid item's
// item reference entry must carry.
func (g *ImageGrid) TileCount() int {
	return (int(g.RowsMinusOne) + 1) * (int(g.ColumnsMinusOne) + 1)
}

// Offset is one (horizontal_offset, vertical_offset) pair for a tile in
// an ImageOverlay, always stored signed regardless of the on-wire width.
type Offset struct {
	Horizontal, Vertical int32
}

// ImageOverlay is the "iovl" derived-image item payload (spec §4.3):
// canvas fill color plus output dimensions plus one offset per "dimg"
// target, laid out in the original_source's plain (non-FullBox) version
// + flags form.
type ImageOverlay struct {
	Version                   uint8
	Flags                     uint8
	CanvasFillR, CanvasFillG  uint16
	CanvasFillB, CanvasFillA  uint16
	OutputWidth, OutputHeight uint32
	Offsets                   []Offset
}

// LargeSize reports whether output dimensions and offsets are encoded as
// 32-bit fields (flags bit 0).
func (o *ImageOverlay) LargeSize() bool { return o.Flags&1 != 0 }

// ParseImageOverlay decodes an "iovl" item's raw data bytes. count is the
// number of dimg targets the item's reference entry lists, since nothing
// in the descriptor itself carries it.
func ParseImageOverlay(data []byte, count int) (*ImageOverlay, error) {
	c := bitio.NewReader(data)
	o := &ImageOverlay{}
	var err error
	if o.Version, err = c.ReadU8(); err != nil {
		return nil, err
	}
	if o.Flags, err = c.ReadU8(); err != nil {
		return nil, err
	}
	for _, dst := range []*uint16{&o.CanvasFillR, &o.CanvasFillG, &o.CanvasFillB, &o.CanvasFillA} {
		if *dst, err = c.ReadU16(); err != nil {
			return nil, err
		}
	}
	if o.LargeSize() {
		w, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		h, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		o.OutputWidth, o.OutputHeight = w, h
	} else {
		w, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		h, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		o.OutputWidth, o.OutputHeight = uint32(w), uint32(h)
	}
	for i := 0; i < count; i++ {
		var off Offset
		if o.LargeSize() {
			h, err := c.ReadU32()
			if err != nil {
				return nil, err
			}
			v, err := c.ReadU32()
			if err != nil {
				return nil, err
			}
			off.Horizontal, off.Vertical = int32(h), int32(v)
		} else {
			h, err := c.ReadU16()
			if err != nil {
				return nil, err
			}
			v, err := c.ReadU16()
			if err != nil {
				return nil, err
			}
			off.Horizontal, off.Vertical = int32(int16(h)), int32(int16(v))
		}
		o.Offsets = append(o.Offsets, off)
	}
	return o, nil
}

// Marshal encodes o into its item-data byte form.
func (o *ImageOverlay) Marshal() ([]byte, error) {
	c := bitio.NewWriter()
	if err := c.WriteU8(o.Version); err != nil {
		return nil, err
	}
	if err := c.WriteU8(o.Flags); err != nil {
		return nil, err
	}
	for _, v := range []uint16{o.CanvasFillR, o.CanvasFillG, o.CanvasFillB, o.CanvasFillA} {
		if err := c.WriteU16(v); err != nil {
			return nil, err
		}
	}
	if o.LargeSize() {
		if err := c.WriteU32(o.OutputWidth); err != nil {
			return nil, err
		}
		if err := c.WriteU32(o.OutputHeight); err != nil {
			return nil, err
		}
	} else {
		if err := c.WriteU16(uint16(o.OutputWidth)); err != nil {
			return nil, err
		}
		if err := c.WriteU16(uint16(o.OutputHeight)); err != nil {
			return nil, err
		}
	}
	for _, off := range o.Offsets {
		if o.LargeSize() {
			if err := c.WriteU32(uint32(off.Horizontal)); err != nil {
				return nil, err
			}
			if err := c.WriteU32(uint32(off.Vertical)); err != nil {
				return nil, err
			}
		} else {
			if err := c.WriteU16(uint16(int16(off.Horizontal))); err != nil {
				return nil, err
			}
			if err := c.WriteU16(uint16(int16(off.Vertical))); err != nil {
				return nil, err
			}
		}
	}
	c.Finalize()
	return c.Bytes(), nil
}
