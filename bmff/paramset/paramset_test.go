package paramset

import (
	"testing"

	"github.com/heifbox/heifbox/bitio"
)

// writeExpGolomb writes an unsigned Exp-Golomb codeword for v, matching
// the encoding ReadExpGolomb expects to decode.
func writeExpGolomb(c *bitio.Cursor, v uint32) {
	codeNum := v + 1
	bits := 0
	for n := codeNum; n > 1; n >>= 1 {
		bits++
	}
	for i := 0; i < bits; i++ {
		c.WriteBits(0, 1)
	}
	c.WriteBits(codeNum, bits+1)
}

func TestParseAvcSPSBaseline(t *testing.T) {
	c := bitio.NewWriter()
	c.WriteBits(66, 8)  // profile_idc (baseline, no high-profile fields)
	c.WriteBits(0, 8)   // constraint flags
	c.WriteBits(30, 8)  // level_idc
	writeExpGolomb(c, 0) // seq_parameter_set_id
	writeExpGolomb(c, 0) // log2_max_frame_num_minus4
	writeExpGolomb(c, 2) // pic_order_cnt_type = 2 (no extra fields)
	writeExpGolomb(c, 1) // max_num_ref_frames
	c.WriteBits(0, 1)    // gaps_in_frame_num_value_allowed_flag
	writeExpGolomb(c, 79) // pic_width_in_mbs_minus1 -> width = 80*16 = 1280
	writeExpGolomb(c, 44) // pic_height_in_map_units_minus1 -> height = 45*16 = 720
	c.WriteBits(1, 1)    // frame_mbs_only_flag
	c.WriteBits(0, 1)    // direct_8x8_inference_flag
	c.WriteBits(0, 1)    // frame_cropping_flag
	c.Finalize()

	sps, err := ParseAvcSPS(c.Bytes())
	if err != nil {
		t.Fatalf("ParseAvcSPS: %v", err)
	}
	if sps.Width != 1280 || sps.Height != 720 {
		t.Errorf("got %dx%d, want 1280x720", sps.Width, sps.Height)
	}
	if sps.ProfileIdc != 66 {
		t.Errorf("ProfileIdc = %d, want 66", sps.ProfileIdc)
	}
	if sps.ChromaFormatIdc != 1 {
		t.Errorf("ChromaFormatIdc default = %d, want 1", sps.ChromaFormatIdc)
	}
}

func TestParseAvcSPSHighProfileCropping(t *testing.T) {
	c := bitio.NewWriter()
	c.WriteBits(100, 8) // profile_idc (High)
	c.WriteBits(0, 8)
	c.WriteBits(40, 8)
	writeExpGolomb(c, 0) // seq_parameter_set_id
	writeExpGolomb(c, 1) // chroma_format_idc = 1 (4:2:0)
	writeExpGolomb(c, 0) // bit_depth_luma_minus8
	writeExpGolomb(c, 0) // bit_depth_chroma_minus8
	c.WriteBits(0, 1)    // qpprime_y_zero_transform_bypass_flag
	c.WriteBits(0, 1)    // seq_scaling_matrix_present_flag
	writeExpGolomb(c, 0) // log2_max_frame_num_minus4
	writeExpGolomb(c, 0) // pic_order_cnt_type = 0
	writeExpGolomb(c, 4) // log2_max_pic_order_cnt_lsb_minus4
	writeExpGolomb(c, 1) // max_num_ref_frames
	c.WriteBits(0, 1)    // gaps_in_frame_num_value_allowed_flag
	writeExpGolomb(c, 79) // pic_width_in_mbs_minus1 -> 1280
	writeExpGolomb(c, 44) // pic_height_in_map_units_minus1 -> 720
	c.WriteBits(1, 1)    // frame_mbs_only_flag
	c.WriteBits(0, 1)    // direct_8x8_inference_flag
	c.WriteBits(1, 1)    // frame_cropping_flag
	writeExpGolomb(c, 0) // crop_left
	writeExpGolomb(c, 0) // crop_right
	writeExpGolomb(c, 0) // crop_top
	writeExpGolomb(c, 2) // crop_bottom -> trims 2*2*1=4 rows (chroma_format_idc=1: SubHeightC=2, frame_mbs_only=1)
	c.Finalize()

	sps, err := ParseAvcSPS(c.Bytes())
	if err != nil {
		t.Fatalf("ParseAvcSPS: %v", err)
	}
	if sps.Width != 1280 {
		t.Errorf("Width = %d, want 1280", sps.Width)
	}
	if sps.Height != 716 {
		t.Errorf("Height = %d, want 716 after crop", sps.Height)
	}
}

func TestParseHevcSPSNoSubLayers(t *testing.T) {
	c := bitio.NewWriter()
	c.WriteBits(0, 4) // sps_video_parameter_set_id
	c.WriteBits(0, 3) // sps_max_sub_layers_minus1
	c.WriteBits(0, 1) // sps_temporal_id_nesting_flag
	writeProfileTierLevel(c)
	writeExpGolomb(c, 0) // sps_seq_parameter_set_id
	writeExpGolomb(c, 1) // chroma_format_idc
	writeExpGolomb(c, 1920)
	writeExpGolomb(c, 1080)
	c.WriteBits(0, 1)    // conformance_window_flag
	writeExpGolomb(c, 0) // bit_depth_luma_minus8
	writeExpGolomb(c, 0) // bit_depth_chroma_minus8
	writeExpGolomb(c, 4) // log2_max_pic_order_cnt_lsb_minus4
	c.Finalize()

	sps, err := ParseHevcSPS(c.Bytes())
	if err != nil {
		t.Fatalf("ParseHevcSPS: %v", err)
	}
	if sps.Width != 1920 || sps.Height != 1080 {
		t.Errorf("got %dx%d, want 1920x1080", sps.Width, sps.Height)
	}
	if sps.ProfileTierLevel == nil {
		t.Fatal("ProfileTierLevel not populated")
	}
}

func writeProfileTierLevel(c *bitio.Cursor) {
	c.WriteBits(0, 2)  // general_profile_space
	c.WriteBits(0, 1)  // general_tier_flag
	c.WriteBits(1, 5)  // general_profile_idc
	c.WriteBits(0, 32) // general_profile_compatibility_flags
	c.WriteBits64(0, 48) // general_constraint flags
	c.WriteBits(120, 8) // general_level_idc
	// maxNumSubLayersMinus1 == 0: no per-sub-layer fields, no reserved skip.
}

func TestParseHevcVPSNoExtension(t *testing.T) {
	c := bitio.NewWriter()
	c.WriteBits(0, 4) // vps_video_parameter_set_id
	c.WriteBits(0, 2) // base layer internal/available
	c.WriteBits(0, 6) // vps_max_layers_minus1
	c.WriteBits(0, 3) // vps_max_sub_layers_minus1
	c.WriteBits(0, 1) // vps_temporal_id_nesting_flag
	c.WriteBits(0xFFFF, 16) // vps_reserved_0xffff_16bits
	writeProfileTierLevel(c)
	c.WriteBits(1, 1)    // vps_sub_layer_ordering_info_present_flag
	writeExpGolomb(c, 4) // vps_max_dec_pic_buffering_minus1[0]
	writeExpGolomb(c, 0) // vps_max_num_reorder_pics[0]
	writeExpGolomb(c, 0) // vps_max_latency_increase_plus1[0]
	c.WriteBits(0, 6)    // vps_max_layer_id
	writeExpGolomb(c, 0) // vps_num_layer_sets_minus1
	c.WriteBits(0, 1)    // vps_timing_info_present_flag
	c.WriteBits(0, 1)    // vps_extension_flag
	c.Finalize()

	vps, err := ParseHevcVPS(c.Bytes())
	if err != nil {
		t.Fatalf("ParseHevcVPS: %v", err)
	}
	if vps.NumLayerSets != 1 {
		t.Errorf("NumLayerSets = %d, want 1", vps.NumLayerSets)
	}
	if vps.Extension != nil {
		t.Errorf("Extension should be nil when vps_extension_flag is 0")
	}

	oinf := SynthesizeOperatingPointsInformation(vps)
	if len(oinf.OperatingPoints) != 1 {
		t.Fatalf("got %d operating points, want 1", len(oinf.OperatingPoints))
	}
}
