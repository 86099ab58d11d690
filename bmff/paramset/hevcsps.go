package paramset

import "github.com/heifbox/heifbox/bitio"

// HevcSPS is the decoded subset of an HEVC Sequence Parameter Set needed
// to report picture dimensions and chroma/bit-depth info (spec §4.5.2).
type HevcSPS struct {
	VideoParameterSetID     uint8
	MaxSubLayersMinus1      uint8
	TemporalIDNestingFlag   bool
	ProfileTierLevel        *ProfileTierLevel
	SeqParameterSetID       uint32
	ChromaFormatIdc         uint32
	SeparateColourPlane     bool
	Width, Height           uint32
	BitDepthLumaMinus8      uint32
	BitDepthChromaMinus8    uint32
	Log2MaxPicOrderCntLsbM4 uint32
}

// ParseHevcSPS parses an HEVC SPS NAL unit's RBSP (2-byte NAL header
// already stripped, emulation prevention already removed), per spec
// §4.5.2: "sps_video_parameter_set_id(4), sps_max_sub_layers_minus1(3),
// ..., picture width/height (Exp-Golomb), optional conformance window,
// bit depths, and log2_max_pic_order_cnt_lsb_minus4."
func ParseHevcSPS(rbsp []byte) (*HevcSPS, error) {
	c := bitio.NewReader(rbsp)
	sps := &HevcSPS{}

	vps, err := c.ReadBits(4)
	if err != nil {
		return nil, err
	}
	sps.VideoParameterSetID = uint8(vps)
	maxSub, err := c.ReadBits(3)
	if err != nil {
		return nil, err
	}
	sps.MaxSubLayersMinus1 = uint8(maxSub)
	nesting, err := c.ReadBits(1)
	if err != nil {
		return nil, err
	}
	sps.TemporalIDNestingFlag = nesting != 0

	sps.ProfileTierLevel, err = ParseProfileTierLevel(c, int(sps.MaxSubLayersMinus1))
	if err != nil {
		return nil, err
	}

	sps.SeqParameterSetID, err = c.ReadExpGolomb()
	if err != nil {
		return nil, err
	}
	sps.ChromaFormatIdc, err = c.ReadExpGolomb()
	if err != nil {
		return nil, err
	}
	if sps.ChromaFormatIdc == 3 {
		flag, err := c.ReadBits(1)
		if err != nil {
			return nil, err
		}
		sps.SeparateColourPlane = flag != 0
	}
	sps.Width, err = c.ReadExpGolomb()
	if err != nil {
		return nil, err
	}
	sps.Height, err = c.ReadExpGolomb()
	if err != nil {
		return nil, err
	}
	conformanceWindow, err := c.ReadBits(1)
	if err != nil {
		return nil, err
	}
	if conformanceWindow != 0 {
		idx := sps.ChromaFormatIdc
		if sps.SeparateColourPlane {
			idx = 0
		}
		swc, shc := subWidthC[idx], subHeightC[idx]
		left, err := c.ReadExpGolomb()
		if err != nil {
			return nil, err
		}
		right, err := c.ReadExpGolomb()
		if err != nil {
			return nil, err
		}
		top, err := c.ReadExpGolomb()
		if err != nil {
			return nil, err
		}
		bottom, err := c.ReadExpGolomb()
		if err != nil {
			return nil, err
		}
		sps.Width -= (left + right) * swc
		sps.Height -= (top + bottom) * shc
	}
	sps.BitDepthLumaMinus8, err = c.ReadExpGolomb()
	if err != nil {
		return nil, err
	}
	sps.BitDepthChromaMinus8, err = c.ReadExpGolomb()
	if err != nil {
		return nil, err
	}
	sps.Log2MaxPicOrderCntLsbM4, err = c.ReadExpGolomb()
	if err != nil {
		return nil, err
	}
	return sps, nil
}
