package paramset

import "github.com/heifbox/heifbox/bitio"

// ProfileTierLevel is the general_profile_tier_level() structure shared by
// HEVC SPS and VPS (spec §4.5.2/§4.5.3).
type ProfileTierLevel struct {
	GeneralProfileSpace              uint8
	GeneralTierFlag                  bool
	GeneralProfileIdc                uint8
	GeneralProfileCompatibilityFlags uint32
	GeneralConstraintFlags           uint64 // 48 bits of constraint indicator flags
	GeneralLevelIdc                  uint8

	SubLayerProfilePresent []bool
	SubLayerLevelPresent   []bool
	SubLayerLevelIdc       []uint8
}

// ParseProfileTierLevel reads profile_tier_level() for maxNumSubLayersMinus1
// sub-layers (spec §4.5.3: "profile_tier_level ... sub-layer present flags,
// and sub-layer profile/level skipping").
//
// The Open Question recorded in design notes §9/§D (sub_layer_reserved_
// zero_44bits) is resolved here as a single 44-bit discard, since this
// cursor supports reads up to 64 bits — an intentional improvement over
// the original's 32-bit-limited two-step read.
func ParseProfileTierLevel(c *bitio.Cursor, maxNumSubLayersMinus1 int) (*ProfileTierLevel, error) {
	ptl := &ProfileTierLevel{}
	space, err := c.ReadBits(2)
	if err != nil {
		return nil, err
	}
	ptl.GeneralProfileSpace = uint8(space)
	tier, err := c.ReadBits(1)
	if err != nil {
		return nil, err
	}
	ptl.GeneralTierFlag = tier != 0
	profile, err := c.ReadBits(5)
	if err != nil {
		return nil, err
	}
	ptl.GeneralProfileIdc = uint8(profile)
	compat, err := c.ReadBits(32)
	if err != nil {
		return nil, err
	}
	ptl.GeneralProfileCompatibilityFlags = compat
	constraints, err := c.ReadBits64(48)
	if err != nil {
		return nil, err
	}
	ptl.GeneralConstraintFlags = constraints
	level, err := c.ReadBits(8)
	if err != nil {
		return nil, err
	}
	ptl.GeneralLevelIdc = uint8(level)

	for i := 0; i < maxNumSubLayersMinus1; i++ {
		p, err := c.ReadBits(1)
		if err != nil {
			return nil, err
		}
		l, err := c.ReadBits(1)
		if err != nil {
			return nil, err
		}
		ptl.SubLayerProfilePresent = append(ptl.SubLayerProfilePresent, p != 0)
		ptl.SubLayerLevelPresent = append(ptl.SubLayerLevelPresent, l != 0)
	}
	if maxNumSubLayersMinus1 > 0 {
		for i := maxNumSubLayersMinus1; i < 8; i++ {
			if _, err := c.ReadBits(2); err != nil { // reserved_zero_2bits
				return nil, err
			}
		}
	}
	for i := 0; i < maxNumSubLayersMinus1; i++ {
		var subLevel uint8
		if ptl.SubLayerProfilePresent[i] {
			if _, err := c.ReadBits(2); err != nil { // sub_layer_profile_space
				return nil, err
			}
			if _, err := c.ReadBits(1); err != nil { // sub_layer_tier_flag
				return nil, err
			}
			if _, err := c.ReadBits(5); err != nil { // sub_layer_profile_idc
				return nil, err
			}
			if _, err := c.ReadBits(32); err != nil { // sub_layer_profile_compatibility_flag
				return nil, err
			}
			if _, err := c.ReadBits(1); err != nil { // sub_layer_progressive_source_flag
				return nil, err
			}
			if _, err := c.ReadBits(1); err != nil { // sub_layer_interlaced_source_flag
				return nil, err
			}
			if _, err := c.ReadBits(1); err != nil { // sub_layer_non_packed_constraint_flag
				return nil, err
			}
			if _, err := c.ReadBits(1); err != nil { // sub_layer_frame_only_constraint_flag
				return nil, err
			}
			if _, err := c.ReadBits64(44); err != nil { // sub_layer_reserved_zero_44bits
				return nil, err
			}
		}
		if ptl.SubLayerLevelPresent[i] {
			lv, err := c.ReadBits(8)
			if err != nil {
				return nil, err
			}
			subLevel = uint8(lv)
		}
		ptl.SubLayerLevelIdc = append(ptl.SubLayerLevelIdc, subLevel)
	}
	return ptl, nil
}
