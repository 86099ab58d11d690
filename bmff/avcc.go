package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// AvcParameterSet is one SPS or PPS NAL unit stored in an AVC decoder
// configuration record.
type AvcParameterSet struct {
	Data []byte
}

// AvcConfigurationRecord is the AVCDecoderConfigurationRecord payload
// ("avcC"). The chroma/bit-depth trailer only exists for the high-profile
// family (100, 110, 122, 144); ParseAvcConfigurationBox gates on
// AvcProfileIndication exactly as the standard requires.
type AvcConfigurationRecord struct {
	ConfigurationVersion uint8
	AvcProfileIndication uint8
	ProfileCompatibility uint8
	AvcLevelIndication   uint8
	LengthSizeMinusOne   uint8 // 2 bits

	SequenceParameterSets   []AvcParameterSet
	PictureParameterSets    []AvcParameterSet

	// High-profile trailer, present only for profiles 100/110/122/144.
	HasHighProfileTrailer bool
	ChromaFormat          uint8 // 2 bits
	BitDepthLumaMinus8    uint8 // 3 bits
	BitDepthChromaMinus8  uint8 // 3 bits
	SequenceParameterSetExt []AvcParameterSet
}

func highProfileFamily(profile uint8) bool {
	switch profile {
	case 100, 110, 122, 144:
		return true
	default:
		return false
	}
}

// AvcConfigurationBox is "avcC": the AVC decoder configuration record
// property, required on every AVC image item.
type AvcConfigurationBox struct {
	Header
	Record AvcConfigurationRecord
}

func (b *AvcConfigurationBox) Type() fourcc.Code { return fourcc.New("avcC") }

func readAvcParamSetList(c *bitio.Cursor, countMask uint32) ([]AvcParameterSet, error) {
	raw, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	count := raw & countMask
	var out []AvcParameterSet
	for i := uint32(0); i < count; i++ {
		length, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		data, err := c.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		out = append(out, AvcParameterSet{Data: data})
	}
	return out, nil
}

func writeAvcParamSetList(c *bitio.Cursor, sets []AvcParameterSet, reservedOnes uint32) error {
	c.WriteBits(reservedOnes|uint32(len(sets)), 8)
	for _, s := range sets {
		if err := c.WriteU16(uint16(len(s.Data))); err != nil {
			return err
		}
		if err := c.WriteBytes(s.Data); err != nil {
			return err
		}
	}
	return nil
}

func ParseAvcConfigurationBox(c *bitio.Cursor) (*AvcConfigurationBox, error) {
	r := AvcConfigurationRecord{}
	v, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	r.ConfigurationVersion = uint8(v)
	p, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	r.AvcProfileIndication = uint8(p)
	compat, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	r.ProfileCompatibility = uint8(compat)
	level, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	r.AvcLevelIndication = uint8(level)
	lenMinusOne, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	r.LengthSizeMinusOne = uint8(lenMinusOne & 0x3)

	// Top 3 bits of the sps count byte are reserved='111'; only the low
	// 5 bits carry numOfSequenceParameterSets.
	if r.SequenceParameterSets, err = readAvcParamSetList(c, 0x1F); err != nil {
		return nil, fmt.Errorf("avcC: sps list: %w", err)
	}
	if r.PictureParameterSets, err = readAvcParamSetList(c, 0xFF); err != nil {
		return nil, fmt.Errorf("avcC: pps list: %w", err)
	}

	if highProfileFamily(r.AvcProfileIndication) && c.AnyRemain() {
		r.HasHighProfileTrailer = true
		chroma, err := c.ReadBits(8)
		if err != nil {
			return nil, err
		}
		r.ChromaFormat = uint8(chroma & 0x3)
		bdl, err := c.ReadBits(8)
		if err != nil {
			return nil, err
		}
		r.BitDepthLumaMinus8 = uint8(bdl & 0x7)
		bdc, err := c.ReadBits(8)
		if err != nil {
			return nil, err
		}
		r.BitDepthChromaMinus8 = uint8(bdc & 0x7)
		if r.SequenceParameterSetExt, err = readAvcParamSetList(c, 0xFF); err != nil {
			return nil, fmt.Errorf("avcC: sps-ext list: %w", err)
		}
	}

	return &AvcConfigurationBox{Header: Header{boxType: fourcc.New("avcC")}, Record: r}, nil
}

func (b *AvcConfigurationBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("avcC"))
	if err != nil {
		return err
	}
	r := b.Record
	c.WriteBits(uint32(r.ConfigurationVersion), 8)
	c.WriteBits(uint32(r.AvcProfileIndication), 8)
	c.WriteBits(uint32(r.ProfileCompatibility), 8)
	c.WriteBits(uint32(r.AvcLevelIndication), 8)
	c.WriteBits(0xFC|uint32(r.LengthSizeMinusOne&0x3), 8)
	if err := writeAvcParamSetList(c, r.SequenceParameterSets, 0xE0); err != nil {
		return err
	}
	if err := writeAvcParamSetList(c, r.PictureParameterSets, 0); err != nil {
		return err
	}
	if r.HasHighProfileTrailer {
		c.WriteBits(0xFC|uint32(r.ChromaFormat&0x3), 8)
		c.WriteBits(0xF8|uint32(r.BitDepthLumaMinus8&0x7), 8)
		c.WriteBits(0xF8|uint32(r.BitDepthChromaMinus8&0x7), 8)
		if err := writeAvcParamSetList(c, r.SequenceParameterSetExt, 0); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// ParameterSets returns the raw SPS (if sps=true) or PPS NAL units.
func (b *AvcConfigurationBox) ParameterSets(sps bool) [][]byte {
	list := b.Record.PictureParameterSets
	if sps {
		list = b.Record.SequenceParameterSets
	}
	out := make([][]byte, len(list))
	for i, s := range list {
		out[i] = s.Data
	}
	return out
}

// LengthSize is the byte width of the length prefix used on samples
// referencing this configuration (lengthSizeMinusOne + 1).
func (b *AvcConfigurationBox) LengthSize() int { return int(b.Record.LengthSizeMinusOne) + 1 }
