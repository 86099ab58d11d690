package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// FileTypeBox is the "ftyp" box: major_brand, minor_version, and a list of
// compatible brands filling the rest of the box.
type FileTypeBox struct {
	Header
	MajorBrand       fourcc.Code
	MinorVersion     uint32
	CompatibleBrands []fourcc.Code
}

func (b *FileTypeBox) Size() int64 { return int64(8 + 8 + 4*len(b.CompatibleBrands)) }

func ParseFileTypeBox(c *bitio.Cursor) (*FileTypeBox, error) {
	major, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	minor, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	ft := &FileTypeBox{
		Header:       Header{boxType: fourcc.Ftyp},
		MajorBrand:   fourcc.Code(major),
		MinorVersion: minor,
	}
	for c.AnyRemain() {
		b, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		ft.CompatibleBrands = append(ft.CompatibleBrands, fourcc.Code(b))
	}
	return ft, nil
}

func (b *FileTypeBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.Ftyp)
	if err != nil {
		return err
	}
	if err := c.WriteU32(uint32(b.MajorBrand)); err != nil {
		return err
	}
	if err := c.WriteU32(b.MinorVersion); err != nil {
		return err
	}
	for _, cb := range b.CompatibleBrands {
		if err := c.WriteU32(uint32(cb)); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// recognizedMajorBrands is the set accepted on read (spec §6).
var recognizedMajorBrands = map[fourcc.Code]bool{
	fourcc.BrandHeic: true, fourcc.BrandHeix: true, fourcc.BrandHeim: true, fourcc.BrandHeis: true,
	fourcc.BrandHevc: true, fourcc.BrandHevx: true, fourcc.BrandHevm: true, fourcc.BrandHevs: true,
	fourcc.BrandMif1: true, fourcc.BrandMsf1: true,
}

// Validate confirms the brand combination required by spec §6: at least
// one of {mif1,heic} (still image) or {msf1,hevc} (track form) must be
// present among major+compatible brands.
func (b *FileTypeBox) Validate() error {
	if !recognizedMajorBrands[b.MajorBrand] {
		return fmt.Errorf("bmff: unrecognized major brand %q", b.MajorBrand)
	}
	all := map[fourcc.Code]bool{b.MajorBrand: true}
	for _, cb := range b.CompatibleBrands {
		all[cb] = true
	}
	stillImage := all[fourcc.BrandMif1] && all[fourcc.BrandHeic]
	trackForm := all[fourcc.BrandMsf1] && all[fourcc.BrandHevc]
	if !stillImage && !trackForm {
		return fmt.Errorf("bmff: brand set has neither {mif1,heic} nor {msf1,hevc}")
	}
	return nil
}
