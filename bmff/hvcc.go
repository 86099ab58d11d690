package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// HevcNalArray groups NAL units of one NAL_unit_type inside a decoder
// configuration record, alongside whether the array is known-complete
// (no other NAL units of this type appear in the bitstream).
type HevcNalArray struct {
	ArrayCompleteness bool
	NalUnitType       uint8
	Units             [][]byte
}

// HevcConfigurationRecord is the HEVCDecoderConfigurationRecord payload
// shared by "hvcC" (full profile) and "lhvC" (L-HEVC layer extension).
// Field widths follow ISO/IEC 14496-15 bit-for-bit, including the
// reserved-bit patterns the teacher's parser skipped over (min_spatial_
// segmentation_idc, parallelismType, chromaFormat, bitDepth*, and
// lengthSizeMinusOne, which the original parser dropped entirely).
type HevcConfigurationRecord struct {
	ConfigurationVersion              uint8
	GeneralProfileSpace               uint8
	GeneralTierFlag                   uint8
	GeneralProfileIdc                 uint8
	GeneralProfileCompatibilityFlags  uint32
	GeneralConstraintIndicatorFlags   uint64 // 48 bits
	GeneralLevelIdc                   uint8
	MinSpatialSegmentationIdc         uint16 // 12 bits
	ParallelismType                   uint8  // 2 bits
	ChromaFormat                      uint8  // 2 bits
	BitDepthLumaMinus8                uint8  // 3 bits
	BitDepthChromaMinus8              uint8  // 3 bits
	AvgFrameRate                      uint16
	ConstantFrameRate                 uint8 // 2 bits
	NumTemporalLayers                 uint8 // 3 bits
	TemporalIdNested                  uint8 // 1 bit
	LengthSizeMinusOne                uint8 // 2 bits
	NalArrays                         []HevcNalArray
}

func parseHevcConfigurationRecord(c *bitio.Cursor) (HevcConfigurationRecord, error) {
	var r HevcConfigurationRecord
	v, err := c.ReadBits(8)
	if err != nil {
		return r, err
	}
	r.ConfigurationVersion = uint8(v)

	b, err := c.ReadBits(8)
	if err != nil {
		return r, err
	}
	r.GeneralProfileSpace = uint8(b >> 6 & 0x3)
	r.GeneralTierFlag = uint8(b >> 5 & 0x1)
	r.GeneralProfileIdc = uint8(b & 0x1F)

	if r.GeneralProfileCompatibilityFlags, err = c.ReadU32(); err != nil {
		return r, err
	}
	if r.GeneralConstraintIndicatorFlags, err = c.ReadBits64(48); err != nil {
		return r, err
	}
	lv, err := c.ReadBits(8)
	if err != nil {
		return r, err
	}
	r.GeneralLevelIdc = uint8(lv)

	seg, err := c.ReadBits(16)
	if err != nil {
		return r, err
	}
	r.MinSpatialSegmentationIdc = uint16(seg & 0xFFF)

	par, err := c.ReadBits(8)
	if err != nil {
		return r, err
	}
	r.ParallelismType = uint8(par & 0x3)

	chroma, err := c.ReadBits(8)
	if err != nil {
		return r, err
	}
	r.ChromaFormat = uint8(chroma & 0x3)

	bdl, err := c.ReadBits(8)
	if err != nil {
		return r, err
	}
	r.BitDepthLumaMinus8 = uint8(bdl & 0x7)

	bdc, err := c.ReadBits(8)
	if err != nil {
		return r, err
	}
	r.BitDepthChromaMinus8 = uint8(bdc & 0x7)

	fr, err := c.ReadBits(16)
	if err != nil {
		return r, err
	}
	r.AvgFrameRate = uint16(fr)

	tail, err := c.ReadBits(8)
	if err != nil {
		return r, err
	}
	r.ConstantFrameRate = uint8(tail >> 6 & 0x3)
	r.NumTemporalLayers = uint8(tail >> 3 & 0x7)
	r.TemporalIdNested = uint8(tail >> 2 & 0x1)
	r.LengthSizeMinusOne = uint8(tail & 0x3)

	numArrays, err := c.ReadBits(8)
	if err != nil {
		return r, err
	}
	for i := uint32(0); i < numArrays; i++ {
		head, err := c.ReadBits(8)
		if err != nil {
			return r, err
		}
		arr := HevcNalArray{
			ArrayCompleteness: head&0x80 != 0,
			NalUnitType:       uint8(head & 0x3F),
		}
		numNalus, err := c.ReadBits(16)
		if err != nil {
			return r, err
		}
		for j := uint32(0); j < numNalus; j++ {
			length, err := c.ReadBits(16)
			if err != nil {
				return r, err
			}
			if length == 0 {
				continue
			}
			unit, err := c.ReadBytes(int(length))
			if err != nil {
				return r, err
			}
			arr.Units = append(arr.Units, unit)
		}
		r.NalArrays = append(r.NalArrays, arr)
	}
	return r, nil
}

func writeHevcConfigurationRecord(c *bitio.Cursor, r HevcConfigurationRecord) error {
	c.WriteBits(uint32(r.ConfigurationVersion), 8)
	c.WriteBits(uint32(r.GeneralProfileSpace&0x3)<<6|uint32(r.GeneralTierFlag&0x1)<<5|uint32(r.GeneralProfileIdc&0x1F), 8)
	c.Finalize()
	if err := c.WriteU32(r.GeneralProfileCompatibilityFlags); err != nil {
		return err
	}
	c.WriteBits64(r.GeneralConstraintIndicatorFlags, 48)
	c.WriteBits(uint32(r.GeneralLevelIdc), 8)
	c.WriteBits(0xF000|uint32(r.MinSpatialSegmentationIdc&0xFFF), 16)
	c.WriteBits(0xFC|uint32(r.ParallelismType&0x3), 8)
	c.WriteBits(0xFC|uint32(r.ChromaFormat&0x3), 8)
	c.WriteBits(0xF8|uint32(r.BitDepthLumaMinus8&0x7), 8)
	c.WriteBits(0xF8|uint32(r.BitDepthChromaMinus8&0x7), 8)
	c.WriteBits(uint32(r.AvgFrameRate), 16)
	tail := uint32(r.ConstantFrameRate&0x3)<<6 | uint32(r.NumTemporalLayers&0x7)<<3 | uint32(r.TemporalIdNested&0x1)<<2 | uint32(r.LengthSizeMinusOne&0x3)
	c.WriteBits(tail, 8)
	c.WriteBits(uint32(len(r.NalArrays)), 8)
	c.Finalize()
	for _, arr := range r.NalArrays {
		head := uint32(arr.NalUnitType & 0x3F)
		if arr.ArrayCompleteness {
			head |= 0x80
		}
		c.WriteBits(head, 8)
		c.WriteBits(uint32(len(arr.Units)), 16)
		c.Finalize()
		for _, u := range arr.Units {
			c.WriteBits(uint32(len(u)), 16)
			c.Finalize()
			if err := c.WriteBytes(u); err != nil {
				return err
			}
		}
	}
	return nil
}

// HevcConfigurationBox is "hvcC": the HEVC decoder configuration record
// property, required on every HEVC image item.
type HevcConfigurationBox struct {
	Header
	Record HevcConfigurationRecord
}

func (b *HevcConfigurationBox) Type() fourcc.Code { return fourcc.New("hvcC") }

func ParseHevcConfigurationBox(c *bitio.Cursor) (*HevcConfigurationBox, error) {
	r, err := parseHevcConfigurationRecord(c)
	if err != nil {
		return nil, fmt.Errorf("hvcC: %w", err)
	}
	return &HevcConfigurationBox{Header: Header{boxType: fourcc.New("hvcC")}, Record: r}, nil
}

func (b *HevcConfigurationBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("hvcC"))
	if err != nil {
		return err
	}
	if err := writeHevcConfigurationRecord(c, b.Record); err != nil {
		return err
	}
	return h.UpdateSize(c)
}

// ParameterSets returns the SPS/PPS/VPS NAL units carried in this
// configuration record, each already start-code-free (raw NAL payload).
func (b *HevcConfigurationBox) ParameterSets(nalUnitType uint8) [][]byte {
	var out [][]byte
	for _, arr := range b.Record.NalArrays {
		if arr.NalUnitType == nalUnitType {
			out = append(out, arr.Units...)
		}
	}
	return out
}

// LengthSize is the byte width of the length prefix used on samples
// referencing this configuration (lengthSizeMinusOne + 1).
func (b *HevcConfigurationBox) LengthSize() int { return int(b.Record.LengthSizeMinusOne) + 1 }

// LHevcConfigurationBox is "lhvC": the L-HEVC non-base-layer counterpart
// to hvcC, structurally identical (spec §4.5.3 / supplemented feature).
type LHevcConfigurationBox struct {
	Header
	Record HevcConfigurationRecord
}

func (b *LHevcConfigurationBox) Type() fourcc.Code { return fourcc.New("lhvC") }

func ParseLHevcConfigurationBox(c *bitio.Cursor) (*LHevcConfigurationBox, error) {
	r, err := parseHevcConfigurationRecord(c)
	if err != nil {
		return nil, fmt.Errorf("lhvC: %w", err)
	}
	return &LHevcConfigurationBox{Header: Header{boxType: fourcc.New("lhvC")}, Record: r}, nil
}

func (b *LHevcConfigurationBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("lhvC"))
	if err != nil {
		return err
	}
	if err := writeHevcConfigurationRecord(c, b.Record); err != nil {
		return err
	}
	return h.UpdateSize(c)
}

// OperatingPoint is one row of an OperatingPointsInformation property,
// synthesized from a VPS extension's operating-points table (spec
// §4.5.3: "derived, not parsed directly from a single box field").
type OperatingPoint struct {
	OutputLayerSetIdx  uint16
	MaxTemporalID      uint8
	LayerCount         uint8
	LayerID            []uint8
	MinPicWidth        uint16
	MinPicHeight       uint16
	MaxPicWidth        uint16
	MaxPicHeight       uint16
	MaxChromaFormat    uint8
	MaxBitDepthMinus8  uint8
	FrameRateInfoFlag  bool
	BitRateInfoFlag    bool
	AvgFrameRate       uint16
	ConstantFrameRate  uint8
	MaxBitRate         uint32
	AvgBitRate         uint32
}

// OperatingPointsInformation is "oinf": describes the operating points
// (layer subsets) an L-HEVC bitstream exposes, letting a reader pick a
// reduced-complexity decode path without inspecting VPS NAL units
// directly (supplemented feature, design notes §9/§D).
type OperatingPointsInformation struct {
	Header
	SCalabilityMask    uint16
	NumProfileTierLevel uint8
	NumOperatingPoints uint16
	OperatingPoints    []OperatingPoint
	MaxLayerCount      uint8
	DependentLayerID    []uint8
	DependentLayerIDs   map[uint8][]uint8
}

func (p *OperatingPointsInformation) Type() fourcc.Code { return fourcc.New("oinf") }

func ParseOperatingPointsInformation(c *bitio.Cursor) (*OperatingPointsInformation, error) {
	p := &OperatingPointsInformation{Header: Header{boxType: fourcc.New("oinf")}, DependentLayerIDs: map[uint8][]uint8{}}
	mask, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	p.SCalabilityMask = mask

	nptl, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	p.NumProfileTierLevel = uint8(nptl)
	// profile_tier_level() structures are consumed generically here; the
	// fixed portion is 12 bytes per the HEVC spec's general profile_tier_level
	// without sub-layers (spec §4.5.3 defers sub-layer PTL to the VPS
	// parser in bmff/paramset, not duplicated in this synthesized box).
	for i := uint8(0); i < p.NumProfileTierLevel; i++ {
		if _, err := c.ReadBytes(12); err != nil {
			return nil, err
		}
	}

	numOps, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	p.NumOperatingPoints = numOps
	for i := uint16(0); i < numOps; i++ {
		var op OperatingPoint
		if op.OutputLayerSetIdx, err = c.ReadU16(); err != nil {
			return nil, err
		}
		mtid, err := c.ReadBits(8)
		if err != nil {
			return nil, err
		}
		op.MaxTemporalID = uint8(mtid)
		lc, err := c.ReadBits(8)
		if err != nil {
			return nil, err
		}
		op.LayerCount = uint8(lc)
		for j := uint8(0); j < op.LayerCount; j++ {
			lid, err := c.ReadBits(8)
			if err != nil {
				return nil, err
			}
			op.LayerID = append(op.LayerID, uint8(lid))
		}
		if op.MinPicWidth, err = c.ReadU16(); err != nil {
			return nil, err
		}
		if op.MinPicHeight, err = c.ReadU16(); err != nil {
			return nil, err
		}
		if op.MaxPicWidth, err = c.ReadU16(); err != nil {
			return nil, err
		}
		if op.MaxPicHeight, err = c.ReadU16(); err != nil {
			return nil, err
		}
		chromaBits, err := c.ReadBits(8)
		if err != nil {
			return nil, err
		}
		op.MaxChromaFormat = uint8(chromaBits & 0x3)
		op.MaxBitDepthMinus8 = uint8(chromaBits >> 2 & 0x7)
		flags, err := c.ReadBits(8)
		if err != nil {
			return nil, err
		}
		op.FrameRateInfoFlag = flags&0x2 != 0
		op.BitRateInfoFlag = flags&0x1 != 0
		if op.FrameRateInfoFlag {
			if op.AvgFrameRate, err = c.ReadU16(); err != nil {
				return nil, err
			}
			cfr, err := c.ReadBits(8)
			if err != nil {
				return nil, err
			}
			op.ConstantFrameRate = uint8(cfr)
		}
		if op.BitRateInfoFlag {
			if op.MaxBitRate, err = c.ReadU32(); err != nil {
				return nil, err
			}
			if op.AvgBitRate, err = c.ReadU32(); err != nil {
				return nil, err
			}
		}
		p.OperatingPoints = append(p.OperatingPoints, op)
	}

	maxLayers, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	p.MaxLayerCount = uint8(maxLayers)
	for i := uint8(0); i < p.MaxLayerCount; i++ {
		lid, err := c.ReadBits(8)
		if err != nil {
			return nil, err
		}
		numDirect, err := c.ReadBits(8)
		if err != nil {
			return nil, err
		}
		var deps []uint8
		for j := uint32(0); j < numDirect; j++ {
			dep, err := c.ReadBits(8)
			if err != nil {
				return nil, err
			}
			deps = append(deps, uint8(dep))
		}
		p.DependentLayerIDs[uint8(lid)] = deps
	}
	return p, nil
}

func (p *OperatingPointsInformation) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("oinf"))
	if err != nil {
		return err
	}
	if err := c.WriteU16(p.SCalabilityMask); err != nil {
		return err
	}
	c.WriteBits(uint32(p.NumProfileTierLevel), 8)
	zero12 := make([]byte, 12)
	for i := uint8(0); i < p.NumProfileTierLevel; i++ {
		if err := c.WriteBytes(zero12); err != nil {
			return err
		}
	}
	if err := c.WriteU16(uint16(len(p.OperatingPoints))); err != nil {
		return err
	}
	for _, op := range p.OperatingPoints {
		if err := c.WriteU16(op.OutputLayerSetIdx); err != nil {
			return err
		}
		c.WriteBits(uint32(op.MaxTemporalID), 8)
		c.WriteBits(uint32(op.LayerCount), 8)
		for _, lid := range op.LayerID {
			c.WriteBits(uint32(lid), 8)
		}
		if err := c.WriteU16(op.MinPicWidth); err != nil {
			return err
		}
		if err := c.WriteU16(op.MinPicHeight); err != nil {
			return err
		}
		if err := c.WriteU16(op.MaxPicWidth); err != nil {
			return err
		}
		if err := c.WriteU16(op.MaxPicHeight); err != nil {
			return err
		}
		c.WriteBits(uint32(op.MaxBitDepthMinus8&0x7)<<2|uint32(op.MaxChromaFormat&0x3), 8)
		var flags uint32
		if op.FrameRateInfoFlag {
			flags |= 0x2
		}
		if op.BitRateInfoFlag {
			flags |= 0x1
		}
		c.WriteBits(flags, 8)
		if op.FrameRateInfoFlag {
			if err := c.WriteU16(op.AvgFrameRate); err != nil {
				return err
			}
			c.WriteBits(uint32(op.ConstantFrameRate), 8)
		}
		if op.BitRateInfoFlag {
			if err := c.WriteU32(op.MaxBitRate); err != nil {
				return err
			}
			if err := c.WriteU32(op.AvgBitRate); err != nil {
				return err
			}
		}
	}
	c.WriteBits(uint32(p.MaxLayerCount), 8)
	for lid := uint16(0); lid < 256; lid++ {
		deps, ok := p.DependentLayerIDs[uint8(lid)]
		if !ok {
			continue
		}
		c.WriteBits(uint32(lid), 8)
		c.WriteBits(uint32(len(deps)), 8)
		for _, d := range deps {
			c.WriteBits(uint32(d), 8)
		}
	}
	return h.UpdateSize(c)
}
