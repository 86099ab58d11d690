// Package paramset parses AVC and HEVC parameter sets (SPS/PPS/VPS) out
// of their RBSP bytes, following spec §4.5 — a direct transliteration of
// the HEVC/AVC specifications' parse trees, grounded in
// hevcdecoderconfigrecord.cpp/avcdecoderconfigrecord.cpp's call sites and
// the bit-layout tables in ITU-T H.264/H.265.
package paramset

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
)

// subWidthC/subHeightC are indexed by chroma_format_idc (0..3); index 3
// with separate_colour_plane_flag is handled by the caller (both are 1).
var subWidthC = [4]uint32{1, 2, 2, 1}
var subHeightC = [4]uint32{1, 2, 1, 1}

// AvcSPS is the decoded subset of an AVC Sequence Parameter Set needed
// to report picture dimensions (spec §4.5.1).
type AvcSPS struct {
	ProfileIdc           uint8
	ConstraintFlags      uint8
	LevelIdc             uint8
	SeqParameterSetID    uint32
	ChromaFormatIdc      uint32
	SeparateColourPlane  bool
	BitDepthLumaMinus8   uint32
	BitDepthChromaMinus8 uint32
	Width, Height        uint32
}

// avcHighProfile reports whether profile_idc is one whose SPS carries the
// chroma/bit depth extension fields. This set is wider than the avcC
// high-profile trailer gate (100/110/122/144).
func avcHighProfile(profile uint8) bool {
	switch profile {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		return true
	default:
		return false
	}
}

// ParseAvcSPS parses an AVC SPS NAL unit's RBSP (NAL header already
// stripped, emulation prevention already removed).
func ParseAvcSPS(rbsp []byte) (*AvcSPS, error) {
	c := bitio.NewReader(rbsp)
	sps := &AvcSPS{ChromaFormatIdc: 1} // default when absent, per H.264 §7.4.2.1.1

	profile, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	sps.ProfileIdc = uint8(profile)
	constraints, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	sps.ConstraintFlags = uint8(constraints)
	level, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	sps.LevelIdc = uint8(level)
	sps.SeqParameterSetID, err = c.ReadExpGolomb()
	if err != nil {
		return nil, err
	}

	if avcHighProfile(sps.ProfileIdc) {
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
		if sps.BitDepthLumaMinus8, err = c.ReadExpGolomb(); err != nil {
			return nil, err
		}
		if sps.BitDepthChromaMinus8, err = c.ReadExpGolomb(); err != nil {
			return nil, err
		}
		if _, err := c.ReadBits(1); err != nil { // qpprime_y_zero_transform_bypass_flag
			return nil, err
		}
		seqScalingMatrix, err := c.ReadBits(1)
		if err != nil {
			return nil, err
		}
		if seqScalingMatrix != 0 {
			return nil, fmt.Errorf("paramset: avc sps seq_scaling_matrix_present not supported")
		}
	}

	if _, err := c.ReadExpGolomb(); err != nil { // log2_max_frame_num_minus4
		return nil, err
	}
	picOrderCntType, err := c.ReadExpGolomb()
	if err != nil {
		return nil, err
	}
	switch picOrderCntType {
	case 0:
		if _, err := c.ReadExpGolomb(); err != nil { // log2_max_pic_order_cnt_lsb_minus4
			return nil, err
		}
	case 1:
		if _, err := c.ReadBits(1); err != nil { // delta_pic_order_always_zero_flag
			return nil, err
		}
		if _, err := c.ReadSignedExpGolomb(); err != nil { // offset_for_non_ref_pic
			return nil, err
		}
		if _, err := c.ReadSignedExpGolomb(); err != nil { // offset_for_top_to_bottom_field
			return nil, err
		}
		numRefFrames, err := c.ReadExpGolomb()
		if err != nil {
			return nil, err
		}
		for i := uint32(0); i < numRefFrames; i++ {
			if _, err := c.ReadSignedExpGolomb(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := c.ReadExpGolomb(); err != nil { // max_num_ref_frames
		return nil, err
	}
	if _, err := c.ReadBits(1); err != nil { // gaps_in_frame_num_value_allowed_flag
		return nil, err
	}
	picWidthInMbsMinus1, err := c.ReadExpGolomb()
	if err != nil {
		return nil, err
	}
	picHeightInMapUnitsMinus1, err := c.ReadExpGolomb()
	if err != nil {
		return nil, err
	}
	frameMbsOnly, err := c.ReadBits(1)
	if err != nil {
		return nil, err
	}
	if frameMbsOnly == 0 {
		if _, err := c.ReadBits(1); err != nil { // mb_adaptive_frame_field_flag
			return nil, err
		}
	}
	if _, err := c.ReadBits(1); err != nil { // direct_8x8_inference_flag
		return nil, err
	}

	width := (picWidthInMbsMinus1 + 1) * 16
	height := (picHeightInMapUnitsMinus1 + 1) * 16 * (2 - frameMbsOnly)

	cropFlag, err := c.ReadBits(1)
	if err != nil {
		return nil, err
	}
	if cropFlag != 0 {
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
		idx := sps.ChromaFormatIdc
		if sps.SeparateColourPlane {
			idx = 0
		}
		swc, shc := subWidthC[idx], subHeightC[idx]
		width -= (left + right) * swc
		height -= (top + bottom) * shc * (2 - frameMbsOnly)
	}

	sps.Width = width
	sps.Height = height
	return sps, nil
}
