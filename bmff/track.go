package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// TrackHeaderBox is "tkhd". Version 1 widens creation/modification/
// duration to 64 bits (spec §4.9's timing composer needs a real Duration,
// unlike the teacher's v0-only Nokia counterpart, which hardcodes
// 32-bit fields).
type TrackHeaderBox struct {
	FullBox
	CreationTime, ModificationTime uint64
	TrackID                        uint32
	Duration                       uint64
	AlternateGroup                 uint16
	Width, Height                  uint32 // 16.16 fixed point
}

func (b *TrackHeaderBox) Size() int64 { return 0 }

func ParseTrackHeaderBox(c *bitio.Cursor) (*TrackHeaderBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("tkhd"))
	if err != nil {
		return nil, err
	}
	b := &TrackHeaderBox{FullBox: *fb}
	if fb.Version == 1 {
		if b.CreationTime, err = c.ReadU64(); err != nil {
			return nil, err
		}
		if b.ModificationTime, err = c.ReadU64(); err != nil {
			return nil, err
		}
		if b.TrackID, err = c.ReadU32(); err != nil {
			return nil, err
		}
		if _, err = c.ReadU32(); err != nil { // reserved
			return nil, err
		}
		if b.Duration, err = c.ReadU64(); err != nil {
			return nil, err
		}
	} else {
		ct, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		b.CreationTime = uint64(ct)
		mt, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		b.ModificationTime = uint64(mt)
		if b.TrackID, err = c.ReadU32(); err != nil {
			return nil, err
		}
		if _, err = c.ReadU32(); err != nil {
			return nil, err
		}
		dur, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		b.Duration = uint64(dur)
	}
	if _, err := c.ReadBytes(8); err != nil { // reserved[2]
		return nil, err
	}
	if _, err := c.ReadU16(); err != nil { // layer
		return nil, err
	}
	if b.AlternateGroup, err = c.ReadU16(); err != nil {
		return nil, err
	}
	if _, err := c.ReadU16(); err != nil { // volume
		return nil, err
	}
	if _, err := c.ReadU16(); err != nil { // reserved
		return nil, err
	}
	if _, err := c.ReadBytes(36); err != nil { // unity matrix
		return nil, err
	}
	if b.Width, err = c.ReadU32(); err != nil {
		return nil, err
	}
	if b.Height, err = c.ReadU32(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *TrackHeaderBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("tkhd"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if b.Version == 1 {
		if err := c.WriteU64(b.CreationTime); err != nil {
			return err
		}
		if err := c.WriteU64(b.ModificationTime); err != nil {
			return err
		}
		if err := c.WriteU32(b.TrackID); err != nil {
			return err
		}
		if err := c.WriteU32(0); err != nil {
			return err
		}
		if err := c.WriteU64(b.Duration); err != nil {
			return err
		}
	} else {
		if err := c.WriteU32(uint32(b.CreationTime)); err != nil {
			return err
		}
		if err := c.WriteU32(uint32(b.ModificationTime)); err != nil {
			return err
		}
		if err := c.WriteU32(b.TrackID); err != nil {
			return err
		}
		if err := c.WriteU32(0); err != nil {
			return err
		}
		if err := c.WriteU32(uint32(b.Duration)); err != nil {
			return err
		}
	}
	if err := c.WriteBytes(make([]byte, 8)); err != nil {
		return err
	}
	if err := c.WriteU16(0); err != nil { // layer
		return err
	}
	if err := c.WriteU16(b.AlternateGroup); err != nil {
		return err
	}
	if err := c.WriteU16(0); err != nil { // volume
		return err
	}
	if err := c.WriteU16(0); err != nil { // reserved
		return err
	}
	matrix := []uint32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}
	for _, m := range matrix {
		if err := c.WriteU32(m); err != nil {
			return err
		}
	}
	if err := c.WriteU32(b.Width); err != nil {
		return err
	}
	if err := c.WriteU32(b.Height); err != nil {
		return err
	}
	return h.UpdateSize(c)
}

// TrackReferenceTypeEntry is a single typed child of TrackReferenceBox
// (e.g. "thmb", "auxl"), holding referenced track IDs.
type TrackReferenceTypeEntry struct {
	RefType  fourcc.Code
	TrackIDs []uint32
}

// TrackReferenceBox is "tref": an optional container of typed track
// references, structurally the track-level analogue of iref.
type TrackReferenceBox struct {
	Header
	Refs []*TrackReferenceTypeEntry
}

func (b *TrackReferenceBox) Size() int64 { return 0 }

func ParseTrackReferenceBox(c *bitio.Cursor) (*TrackReferenceBox, error) {
	tb := &TrackReferenceBox{Header: Header{boxType: fourcc.New("tref")}}
	children, err := ContainerParse(c)
	if err != nil {
		return tb, err
	}
	for _, ch := range children {
		entry := &TrackReferenceTypeEntry{RefType: ch.Type}
		for ch.Body.AnyRemain() {
			id, err := ch.Body.ReadU32()
			if err != nil {
				return tb, err
			}
			entry.TrackIDs = append(entry.TrackIDs, id)
		}
		tb.Refs = append(tb.Refs, entry)
	}
	return tb, nil
}

func (b *TrackReferenceBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("tref"))
	if err != nil {
		return err
	}
	for _, entry := range b.Refs {
		eh, err := WriteHeader(c, entry.RefType)
		if err != nil {
			return err
		}
		for _, id := range entry.TrackIDs {
			if err := c.WriteU32(id); err != nil {
				return err
			}
		}
		if err := eh.UpdateSize(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// MediaHeaderBox is "mdhd": timescale and duration for a track's media
// timeline, consumed directly by the timing composer (spec §4.7).
type MediaHeaderBox struct {
	FullBox
	CreationTime, ModificationTime uint64
	Timescale                      uint32
	Duration                       uint64
}

func (b *MediaHeaderBox) Size() int64 { return 0 }

func ParseMediaHeaderBox(c *bitio.Cursor) (*MediaHeaderBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("mdhd"))
	if err != nil {
		return nil, err
	}
	b := &MediaHeaderBox{FullBox: *fb}
	if fb.Version == 1 {
		if b.CreationTime, err = c.ReadU64(); err != nil {
			return nil, err
		}
		if b.ModificationTime, err = c.ReadU64(); err != nil {
			return nil, err
		}
		if b.Timescale, err = c.ReadU32(); err != nil {
			return nil, err
		}
		if b.Duration, err = c.ReadU64(); err != nil {
			return nil, err
		}
	} else {
		ct, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		b.CreationTime = uint64(ct)
		mt, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		b.ModificationTime = uint64(mt)
		if b.Timescale, err = c.ReadU32(); err != nil {
			return nil, err
		}
		dur, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		b.Duration = uint64(dur)
	}
	if _, err := c.ReadU16(); err != nil { // pad(1)+language(15)
		return nil, err
	}
	if _, err := c.ReadU16(); err != nil { // pre_defined
		return nil, err
	}
	return b, nil
}

func (b *MediaHeaderBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("mdhd"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if b.Version == 1 {
		if err := c.WriteU64(b.CreationTime); err != nil {
			return err
		}
		if err := c.WriteU64(b.ModificationTime); err != nil {
			return err
		}
		if err := c.WriteU32(b.Timescale); err != nil {
			return err
		}
		if err := c.WriteU64(b.Duration); err != nil {
			return err
		}
	} else {
		if err := c.WriteU32(uint32(b.CreationTime)); err != nil {
			return err
		}
		if err := c.WriteU32(uint32(b.ModificationTime)); err != nil {
			return err
		}
		if err := c.WriteU32(b.Timescale); err != nil {
			return err
		}
		if err := c.WriteU32(uint32(b.Duration)); err != nil {
			return err
		}
	}
	if err := c.WriteU16(0x55C4); err != nil { // "und" language, pad bit 0
		return err
	}
	if err := c.WriteU16(0); err != nil {
		return err
	}
	return h.UpdateSize(c)
}

// DataInformationBox is reused from meta.go; minf carries its own dinf,
// so MediaInformationBox simply holds one.

// MediaInformationBox is "minf": data information plus the sample table.
type MediaInformationBox struct {
	Header
	DataInfo     *DataInformationBox
	SampleTable  *SampleTableBox
}

func (b *MediaInformationBox) Size() int64 { return 0 }

func ParseMediaInformationBox(c *bitio.Cursor) (*MediaInformationBox, error) {
	mb := &MediaInformationBox{Header: Header{boxType: fourcc.New("minf")}}
	children, err := ContainerParse(c)
	if err != nil {
		return mb, err
	}
	for _, ch := range children {
		switch ch.Type {
		case fourcc.New("dinf"):
			mb.DataInfo, err = ParseDataInformationBox(ch.Body)
		case fourcc.New("stbl"):
			mb.SampleTable, err = ParseSampleTableBox(ch.Body)
		default:
			// vmhd/smhd/nmhd/hmhd and other media-handler headers: no
			// HEIF-relevant content, skipped per §4.11.
		}
		if err != nil {
			return mb, fmt.Errorf("bmff: minf child %q: %w", ch.Type, err)
		}
	}
	return mb, nil
}

func (b *MediaInformationBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("minf"))
	if err != nil {
		return err
	}
	if b.DataInfo != nil {
		if err := b.DataInfo.Write(c); err != nil {
			return err
		}
	}
	if b.SampleTable != nil {
		if err := b.SampleTable.Write(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// MediaBox is "mdia": header, handler, and media information for one track.
type MediaBox struct {
	Header
	MediaHeader     *MediaHeaderBox
	Handler         *HandlerBox
	MediaInfo       *MediaInformationBox
}

func (b *MediaBox) Size() int64 { return 0 }

func ParseMediaBox(c *bitio.Cursor) (*MediaBox, error) {
	mb := &MediaBox{Header: Header{boxType: fourcc.New("mdia")}}
	children, err := ContainerParse(c)
	if err != nil {
		return mb, err
	}
	for _, ch := range children {
		switch ch.Type {
		case fourcc.New("mdhd"):
			mb.MediaHeader, err = ParseMediaHeaderBox(ch.Body)
		case fourcc.New("hdlr"):
			mb.Handler, err = ParseHandlerBox(ch.Body)
		case fourcc.New("minf"):
			mb.MediaInfo, err = ParseMediaInformationBox(ch.Body)
		}
		if err != nil {
			return mb, fmt.Errorf("bmff: mdia child %q: %w", ch.Type, err)
		}
	}
	return mb, nil
}

func (b *MediaBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("mdia"))
	if err != nil {
		return err
	}
	if b.MediaHeader != nil {
		if err := b.MediaHeader.Write(c); err != nil {
			return err
		}
	}
	if b.Handler != nil {
		if err := b.Handler.Write(c); err != nil {
			return err
		}
	}
	if b.MediaInfo != nil {
		if err := b.MediaInfo.Write(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// TrackBox is "trak": one timed-media track, used by track-form HEIF
// files (image sequences) per spec §3/§4.9.
type TrackBox struct {
	Header
	TrackHeader *TrackHeaderBox
	TrackRef    *TrackReferenceBox
	Edit        *EditBox
	Media       *MediaBox
}

func (b *TrackBox) Size() int64 { return 0 }

func ParseTrackBox(c *bitio.Cursor) (*TrackBox, error) {
	tb := &TrackBox{Header: Header{boxType: fourcc.New("trak")}}
	children, err := ContainerParse(c)
	if err != nil {
		return tb, err
	}
	for _, ch := range children {
		switch ch.Type {
		case fourcc.New("tkhd"):
			tb.TrackHeader, err = ParseTrackHeaderBox(ch.Body)
		case fourcc.New("tref"):
			tb.TrackRef, err = ParseTrackReferenceBox(ch.Body)
		case fourcc.New("edts"):
			tb.Edit, err = ParseEditBox(ch.Body)
		case fourcc.New("mdia"):
			tb.Media, err = ParseMediaBox(ch.Body)
		}
		if err != nil {
			return tb, fmt.Errorf("bmff: trak child %q: %w", ch.Type, err)
		}
	}
	return tb, nil
}

func (b *TrackBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("trak"))
	if err != nil {
		return err
	}
	if b.TrackHeader != nil {
		if err := b.TrackHeader.Write(c); err != nil {
			return err
		}
	}
	if b.TrackRef != nil {
		if err := b.TrackRef.Write(c); err != nil {
			return err
		}
	}
	if b.Edit != nil {
		if err := b.Edit.Write(c); err != nil {
			return err
		}
	}
	if b.Media != nil {
		if err := b.Media.Write(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// VisualSampleEntry is the shared prefix of "hev1"/"hvc1" and "avc1"
// sample description entries: reserved fields, width/height, resolution,
// frame/compressor/depth, followed by a codec-specific configuration box
// and the supplemented CodingConstraintsBox.
type VisualSampleEntry struct {
	FullBox // reuses Header+Version/Flags storage; Version/Flags unused (data_reference_index lives where flags would)
	DataReferenceIndex uint16
	Width, Height      uint16
	HorizResolution    uint32
	VertResolution     uint32
	FrameCount         uint16
	CompressorName     [32]byte
	Depth              uint16

	HevcConfig  *HevcConfigurationBox
	LHevcConfig *LHevcConfigurationBox
	AvcConfig   *AvcConfigurationBox
	CodingConstraints *CodingConstraintsBox
}

func ParseVisualSampleEntry(c *bitio.Cursor, typ fourcc.Code) (*VisualSampleEntry, error) {
	e := &VisualSampleEntry{FullBox: FullBox{Header: Header{boxType: typ}}}
	if _, err := c.ReadBytes(6); err != nil { // reserved
		return nil, err
	}
	dri, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	e.DataReferenceIndex = dri
	if _, err := c.ReadU16(); err != nil { // pre_defined
		return nil, err
	}
	if _, err := c.ReadU16(); err != nil { // reserved
		return nil, err
	}
	if _, err := c.ReadBytes(12); err != nil { // pre_defined[3]
		return nil, err
	}
	if e.Width, err = c.ReadU16(); err != nil {
		return nil, err
	}
	if e.Height, err = c.ReadU16(); err != nil {
		return nil, err
	}
	if e.HorizResolution, err = c.ReadU32(); err != nil {
		return nil, err
	}
	if e.VertResolution, err = c.ReadU32(); err != nil {
		return nil, err
	}
	if _, err := c.ReadU32(); err != nil { // reserved
		return nil, err
	}
	if e.FrameCount, err = c.ReadU16(); err != nil {
		return nil, err
	}
	name, err := c.ReadBytes(32)
	if err != nil {
		return nil, err
	}
	copy(e.CompressorName[:], name)
	if e.Depth, err = c.ReadU16(); err != nil {
		return nil, err
	}
	if _, err := c.ReadBits(16); err != nil { // pre_defined = -1
		return nil, err
	}

	children, err := ContainerParse(c)
	if err != nil {
		return e, err
	}
	for _, ch := range children {
		switch ch.Type {
		case fourcc.New("hvcC"):
			e.HevcConfig, err = ParseHevcConfigurationBox(ch.Body)
		case fourcc.New("lhvC"):
			e.LHevcConfig, err = ParseLHevcConfigurationBox(ch.Body)
		case fourcc.New("avcC"):
			e.AvcConfig, err = ParseAvcConfigurationBox(ch.Body)
		case fourcc.New("ccst"):
			e.CodingConstraints, err = ParseCodingConstraintsBox(ch.Body)
		}
		if err != nil {
			return e, fmt.Errorf("bmff: sample entry %q child %q: %w", typ, ch.Type, err)
		}
	}
	return e, nil
}

func (e *VisualSampleEntry) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, e.Type())
	if err != nil {
		return err
	}
	if err := c.WriteBytes(make([]byte, 6)); err != nil {
		return err
	}
	if err := c.WriteU16(e.DataReferenceIndex); err != nil {
		return err
	}
	if err := c.WriteU16(0); err != nil {
		return err
	}
	if err := c.WriteU16(0); err != nil {
		return err
	}
	if err := c.WriteBytes(make([]byte, 12)); err != nil {
		return err
	}
	if err := c.WriteU16(e.Width); err != nil {
		return err
	}
	if err := c.WriteU16(e.Height); err != nil {
		return err
	}
	if err := c.WriteU32(e.HorizResolution); err != nil {
		return err
	}
	if err := c.WriteU32(e.VertResolution); err != nil {
		return err
	}
	if err := c.WriteU32(0); err != nil {
		return err
	}
	if err := c.WriteU16(e.FrameCount); err != nil {
		return err
	}
	if err := c.WriteBytes(e.CompressorName[:]); err != nil {
		return err
	}
	if err := c.WriteU16(e.Depth); err != nil {
		return err
	}
	c.WriteBits(0xFFFF, 16)
	if e.HevcConfig != nil {
		if err := e.HevcConfig.Write(c); err != nil {
			return err
		}
	}
	if e.LHevcConfig != nil {
		if err := e.LHevcConfig.Write(c); err != nil {
			return err
		}
	}
	if e.AvcConfig != nil {
		if err := e.AvcConfig.Write(c); err != nil {
			return err
		}
	}
	if e.CodingConstraints != nil {
		if err := e.CodingConstraints.Write(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// SampleDescriptionBox is "stsd": a version/flags pair followed by one or
// more codec-specific VisualSampleEntry children, indexed 1-based by
// sample_description_index fields elsewhere in the sample table.
type SampleDescriptionBox struct {
	FullBox
	Entries []*VisualSampleEntry
}

func (b *SampleDescriptionBox) Size() int64 { return 0 }

func ParseSampleDescriptionBox(c *bitio.Cursor) (*SampleDescriptionBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("stsd"))
	if err != nil {
		return nil, err
	}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	b := &SampleDescriptionBox{FullBox: *fb}
	children, err := ContainerParse(c)
	if err != nil {
		return b, err
	}
	for _, ch := range children {
		switch ch.Type {
		case fourcc.New("hev1"), fourcc.New("hvc1"), fourcc.New("avc1"):
			entry, err := ParseVisualSampleEntry(ch.Body, ch.Type)
			if err != nil {
				return b, err
			}
			b.Entries = append(b.Entries, entry)
		default:
			// unsupported sample entry type: skipped, not fatal (§4.11)
		}
	}
	if int(count) != len(b.Entries) {
		return b, fmt.Errorf("bmff: stsd entry_count %d != parsed %d", count, len(b.Entries))
	}
	return b, nil
}

func (b *SampleDescriptionBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("stsd"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(uint32(len(b.Entries))); err != nil {
		return err
	}
	for _, e := range b.Entries {
		if err := e.Write(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}
