package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
	"github.com/heifbox/heifbox/heiferr"
)

// TimeToSampleEntry is one run-length (sample_count, sample_delta) pair.
type TimeToSampleEntry struct {
	SampleCount uint32
	SampleDelta uint32
}

// TimeToSampleBox is "stts": the decode-time run-length table the timing
// composer (heif/timing) integrates to build each sample's DTS.
type TimeToSampleBox struct {
	FullBox
	Entries []TimeToSampleEntry
}

func (b *TimeToSampleBox) Size() int64 { return 0 }

func ParseTimeToSampleBox(c *bitio.Cursor) (*TimeToSampleBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("stts"))
	if err != nil {
		return nil, err
	}
	b := &TimeToSampleBox{FullBox: *fb}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		var e TimeToSampleEntry
		if e.SampleCount, err = c.ReadU32(); err != nil {
			return nil, err
		}
		if e.SampleDelta, err = c.ReadU32(); err != nil {
			return nil, err
		}
		b.Entries = append(b.Entries, e)
	}
	return b, nil
}

func (b *TimeToSampleBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("stts"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(uint32(len(b.Entries))); err != nil {
		return err
	}
	for _, e := range b.Entries {
		if err := c.WriteU32(e.SampleCount); err != nil {
			return err
		}
		if err := c.WriteU32(e.SampleDelta); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// Expand returns one decode delta per sample, in sample order.
func (b *TimeToSampleBox) Expand() []uint32 {
	var out []uint32
	for _, e := range b.Entries {
		for i := uint32(0); i < e.SampleCount; i++ {
			out = append(out, e.SampleDelta)
		}
	}
	return out
}

// CompositionOffsetBox is "ctts": per-sample DTS-to-CTS offsets. Version 0
// offsets are unsigned; version 1 offsets are signed. Write refuses a
// version-0 box that holds a negative offset (spec §9 Open Question: the source's
// silent v0-unsigned-downgrade-on-negative-offset is not reproduced here —
// callers get a WriterValidationError instead).
type CompositionOffsetBox struct {
	FullBox
	SampleCounts []uint32
	Offsets      []int64 // always stored signed regardless of version
}

func (b *CompositionOffsetBox) Size() int64 { return 0 }

func ParseCompositionOffsetBox(c *bitio.Cursor) (*CompositionOffsetBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("ctts"))
	if err != nil {
		return nil, err
	}
	b := &CompositionOffsetBox{FullBox: *fb}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		sc, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		off, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		b.SampleCounts = append(b.SampleCounts, sc)
		if fb.Version == 0 {
			b.Offsets = append(b.Offsets, int64(off))
		} else {
			b.Offsets = append(b.Offsets, int64(int32(off)))
		}
	}
	return b, nil
}

func (b *CompositionOffsetBox) Write(c *bitio.Cursor) error {
	if len(b.SampleCounts) != len(b.Offsets) {
		return fmt.Errorf("bmff: ctts sample_counts/offsets length mismatch")
	}
	if b.Version == 0 {
		for _, off := range b.Offsets {
			if off < 0 {
				return fmt.Errorf("bmff: ctts version 0 cannot encode negative offset %d: %w", off, heiferr.ErrWriterValidation)
			}
		}
	}
	h, err := WriteFullHeader(c, fourcc.New("ctts"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(uint32(len(b.Offsets))); err != nil {
		return err
	}
	for i, off := range b.Offsets {
		if err := c.WriteU32(b.SampleCounts[i]); err != nil {
			return err
		}
		if err := c.WriteU32(uint32(int32(off))); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// Expand returns one CTS offset per sample, in sample order.
func (b *CompositionOffsetBox) Expand() []int64 {
	var out []int64
	for i, sc := range b.SampleCounts {
		for j := uint32(0); j < sc; j++ {
			out = append(out, b.Offsets[i])
		}
	}
	return out
}

// CompositionToDecodeBox is "cslg": summary composition/decode extrema for
// a track. Parsed and written, but deliberately not folded into the
// timing composer's PMap construction — the original DecodePts leaves it
// unused too (design notes §9/§D: "CompositionToDecodeBox is currently
// ignored").
type CompositionToDecodeBox struct {
	FullBox
	CompositionToDTSShift       int64
	LeastDecodeToDisplayDelta   int64
	GreatestDecodeToDisplayDelta int64
	CompositionStartTime        int64
	CompositionEndTime          int64
}

func (b *CompositionToDecodeBox) Size() int64 { return 0 }

func ParseCompositionToDecodeBox(c *bitio.Cursor) (*CompositionToDecodeBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("cslg"))
	if err != nil {
		return nil, err
	}
	b := &CompositionToDecodeBox{FullBox: *fb}
	read := func() (int64, error) {
		if fb.Version == 1 {
			v, err := c.ReadU64()
			return int64(v), err
		}
		v, err := c.ReadU32()
		return int64(int32(v)), err
	}
	if b.CompositionToDTSShift, err = read(); err != nil {
		return nil, err
	}
	if b.LeastDecodeToDisplayDelta, err = read(); err != nil {
		return nil, err
	}
	if b.GreatestDecodeToDisplayDelta, err = read(); err != nil {
		return nil, err
	}
	if b.CompositionStartTime, err = read(); err != nil {
		return nil, err
	}
	if b.CompositionEndTime, err = read(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *CompositionToDecodeBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("cslg"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	write := func(v int64) error {
		if b.Version == 1 {
			return c.WriteU64(uint64(v))
		}
		return c.WriteU32(uint32(int32(v)))
	}
	for _, v := range []int64{b.CompositionToDTSShift, b.LeastDecodeToDisplayDelta, b.GreatestDecodeToDisplayDelta, b.CompositionStartTime, b.CompositionEndTime} {
		if err := write(v); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// SyncSampleBox is "stss": the 1-based indices of sync (random-access)
// samples. Absence means every sample is a sync sample.
type SyncSampleBox struct {
	FullBox
	SampleNumbers []uint32
}

func (b *SyncSampleBox) Size() int64 { return 0 }

func ParseSyncSampleBox(c *bitio.Cursor) (*SyncSampleBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("stss"))
	if err != nil {
		return nil, err
	}
	b := &SyncSampleBox{FullBox: *fb}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		n, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		b.SampleNumbers = append(b.SampleNumbers, n)
	}
	return b, nil
}

func (b *SyncSampleBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("stss"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(uint32(len(b.SampleNumbers))); err != nil {
		return err
	}
	for _, n := range b.SampleNumbers {
		if err := c.WriteU32(n); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// IsSync reports whether 1-based sampleNumber is a sync sample.
func (b *SyncSampleBox) IsSync(sampleNumber uint32) bool {
	for _, n := range b.SampleNumbers {
		if n == sampleNumber {
			return true
		}
	}
	return false
}

// ChunkEntry is one run-length entry in a SampleToChunkBox.
type ChunkEntry struct {
	FirstChunk            uint32
	SamplesPerChunk       uint32
	SampleDescriptionIndex uint32
}

// SampleToChunkBox is "stsc": the run-length table mapping chunks to
// per-chunk sample counts and sample description index (spec §4.10, C10).
type SampleToChunkBox struct {
	FullBox
	Entries []ChunkEntry
}

func (b *SampleToChunkBox) Size() int64 { return 0 }

func ParseSampleToChunkBox(c *bitio.Cursor) (*SampleToChunkBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("stsc"))
	if err != nil {
		return nil, err
	}
	b := &SampleToChunkBox{FullBox: *fb}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		var e ChunkEntry
		if e.FirstChunk, err = c.ReadU32(); err != nil {
			return nil, err
		}
		if e.SamplesPerChunk, err = c.ReadU32(); err != nil {
			return nil, err
		}
		if e.SampleDescriptionIndex, err = c.ReadU32(); err != nil {
			return nil, err
		}
		b.Entries = append(b.Entries, e)
	}
	if err := b.validate(); err != nil {
		return b, err
	}
	return b, nil
}

func (b *SampleToChunkBox) validate() error {
	if len(b.Entries) == 0 {
		return fmt.Errorf("bmff: stsc has no entries")
	}
	if b.Entries[0].FirstChunk != 1 {
		return fmt.Errorf("bmff: stsc first entry first_chunk != 1")
	}
	for i := 1; i < len(b.Entries); i++ {
		if b.Entries[i].FirstChunk <= b.Entries[i-1].FirstChunk {
			return fmt.Errorf("bmff: stsc entry %d first_chunk %d not strictly increasing", i, b.Entries[i].FirstChunk)
		}
	}
	return nil
}

func (b *SampleToChunkBox) Write(c *bitio.Cursor) error {
	if err := b.validate(); err != nil {
		return err
	}
	h, err := WriteFullHeader(c, fourcc.New("stsc"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(uint32(len(b.Entries))); err != nil {
		return err
	}
	for _, e := range b.Entries {
		if err := c.WriteU32(e.FirstChunk); err != nil {
			return err
		}
		if err := c.WriteU32(e.SamplesPerChunk); err != nil {
			return err
		}
		if err := c.WriteU32(e.SampleDescriptionIndex); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// SampleChunkRecord is one sample's expanded chunk-membership record,
// produced by Expand for a given total chunk count.
type SampleChunkRecord struct {
	ChunkIndex             uint32 // 1-based
	SampleDescriptionIndex uint32
}

// Expand turns the run-length entries into one record per sample,
// needing the total chunk count (from the matching ChunkOffsetBox) to
// know how far the last run extends.
func (b *SampleToChunkBox) Expand(totalChunks uint32) []SampleChunkRecord {
	var out []SampleChunkRecord
	for i, e := range b.Entries {
		var lastChunk uint32
		if i+1 < len(b.Entries) {
			lastChunk = b.Entries[i+1].FirstChunk - 1
		} else {
			lastChunk = totalChunks
		}
		for chunk := e.FirstChunk; chunk <= lastChunk; chunk++ {
			for s := uint32(0); s < e.SamplesPerChunk; s++ {
				out = append(out, SampleChunkRecord{ChunkIndex: chunk, SampleDescriptionIndex: e.SampleDescriptionIndex})
			}
		}
	}
	return out
}

// ChunkOffsetBox is "stco" (32-bit) or "co64" (64-bit); the writer picks
// the type based on whether any offset exceeds 2^32-1.
type ChunkOffsetBox struct {
	FullBox
	Large   bool
	Offsets []uint64
}

func (b *ChunkOffsetBox) Type() fourcc.Code {
	if b.Large {
		return fourcc.New("co64")
	}
	return fourcc.New("stco")
}

func (b *ChunkOffsetBox) Size() int64 { return 0 }

func ParseChunkOffsetBox(c *bitio.Cursor, typ fourcc.Code) (*ChunkOffsetBox, error) {
	fb, err := ParseFullHeader(c, typ)
	if err != nil {
		return nil, err
	}
	b := &ChunkOffsetBox{FullBox: *fb, Large: typ == fourcc.New("co64")}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		if b.Large {
			v, err := c.ReadU64()
			if err != nil {
				return nil, err
			}
			b.Offsets = append(b.Offsets, v)
		} else {
			v, err := c.ReadU32()
			if err != nil {
				return nil, err
			}
			b.Offsets = append(b.Offsets, uint64(v))
		}
	}
	return b, nil
}

// SetOffsets assigns offsets and auto-promotes to co64 when any exceeds
// the 32-bit range (grounded in the original ChunkOffsetBox::setChunkOffsets).
func (b *ChunkOffsetBox) SetOffsets(offsets []uint64) {
	b.Offsets = offsets
	b.Large = false
	for _, o := range offsets {
		if o > 0xFFFFFFFF {
			b.Large = true
			break
		}
	}
}

func (b *ChunkOffsetBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, b.Type(), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(uint32(len(b.Offsets))); err != nil {
		return err
	}
	for _, o := range b.Offsets {
		if b.Large {
			if err := c.WriteU64(o); err != nil {
				return err
			}
		} else {
			if err := c.WriteU32(uint32(o)); err != nil {
				return err
			}
		}
	}
	return h.UpdateSize(c)
}

// SampleSizeBox is "stsz": either a single uniform sample_size (sample_size
// != 0, no per-sample entries) or a per-sample size table.
type SampleSizeBox struct {
	FullBox
	SampleSize  uint32 // nonzero means uniform; EntrySizes is then empty
	SampleCount uint32
	EntrySizes  []uint32
}

func (b *SampleSizeBox) Size() int64 { return 0 }

func ParseSampleSizeBox(c *bitio.Cursor) (*SampleSizeBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("stsz"))
	if err != nil {
		return nil, err
	}
	b := &SampleSizeBox{FullBox: *fb}
	if b.SampleSize, err = c.ReadU32(); err != nil {
		return nil, err
	}
	if b.SampleCount, err = c.ReadU32(); err != nil {
		return nil, err
	}
	if b.SampleSize == 0 {
		for i := uint32(0); i < b.SampleCount; i++ {
			sz, err := c.ReadU32()
			if err != nil {
				return nil, err
			}
			b.EntrySizes = append(b.EntrySizes, sz)
		}
	}
	return b, nil
}

func (b *SampleSizeBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("stsz"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(b.SampleSize); err != nil {
		return err
	}
	if err := c.WriteU32(b.SampleCount); err != nil {
		return err
	}
	if b.SampleSize == 0 {
		for _, sz := range b.EntrySizes {
			if err := c.WriteU32(sz); err != nil {
				return err
			}
		}
	}
	return h.UpdateSize(c)
}

// SampleBytes returns the size of the 1-based sampleNumber-th sample.
func (b *SampleSizeBox) SampleBytes(sampleNumber uint32) uint32 {
	if b.SampleSize != 0 {
		return b.SampleSize
	}
	if sampleNumber < 1 || int(sampleNumber) > len(b.EntrySizes) {
		return 0
	}
	return b.EntrySizes[sampleNumber-1]
}

// SampleGroupDescriptionBox is "sgpd": a grouping_type plus a list of
// opaque group-description payloads, indexed 1-based by SampleToGroupBox
// group_description_index.
type SampleGroupDescriptionBox struct {
	FullBox
	GroupingType      fourcc.Code
	DefaultLength     uint32 // version 1 only
	DefaultGroupDesc  uint32 // version 2 only: default_sample_description_index
	Descriptions      [][]byte
}

func (b *SampleGroupDescriptionBox) Size() int64 { return 0 }

func ParseSampleGroupDescriptionBox(c *bitio.Cursor) (*SampleGroupDescriptionBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("sgpd"))
	if err != nil {
		return nil, err
	}
	b := &SampleGroupDescriptionBox{FullBox: *fb}
	gt, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	b.GroupingType = fourcc.Code(gt)
	if fb.Version == 1 {
		if b.DefaultLength, err = c.ReadU32(); err != nil {
			return nil, err
		}
	} else if fb.Version >= 2 {
		if b.DefaultGroupDesc, err = c.ReadU32(); err != nil {
			return nil, err
		}
	}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		length := b.DefaultLength
		if fb.Version == 1 && length == 0 {
			l, err := c.ReadU32()
			if err != nil {
				return nil, err
			}
			length = l
		}
		if fb.Version == 0 {
			return nil, fmt.Errorf("bmff: sgpd version 0 has no description_length field, use version 1 or 2")
		}
		data, err := c.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		b.Descriptions = append(b.Descriptions, data)
	}
	return b, nil
}

func (b *SampleGroupDescriptionBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("sgpd"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(uint32(b.GroupingType)); err != nil {
		return err
	}
	if b.Version == 1 {
		if err := c.WriteU32(b.DefaultLength); err != nil {
			return err
		}
	} else if b.Version >= 2 {
		if err := c.WriteU32(b.DefaultGroupDesc); err != nil {
			return err
		}
	}
	if err := c.WriteU32(uint32(len(b.Descriptions))); err != nil {
		return err
	}
	for _, d := range b.Descriptions {
		if b.Version == 1 && b.DefaultLength == 0 {
			if err := c.WriteU32(uint32(len(d))); err != nil {
				return err
			}
		}
		if err := c.WriteBytes(d); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// SampleToGroupEntry is one run-length (sample_count, group_description_index)
// pair; group_description_index 0 means "not in this grouping type".
type SampleToGroupEntry struct {
	SampleCount          uint32
	GroupDescriptionIndex uint32
}

// SampleToGroupBox is "sbgp": assigns runs of samples to sample groups
// defined by a matching SampleGroupDescriptionBox with the same grouping_type.
type SampleToGroupBox struct {
	FullBox
	GroupingType fourcc.Code
	Entries      []SampleToGroupEntry
}

func (b *SampleToGroupBox) Size() int64 { return 0 }

func ParseSampleToGroupBox(c *bitio.Cursor) (*SampleToGroupBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("sbgp"))
	if err != nil {
		return nil, err
	}
	b := &SampleToGroupBox{FullBox: *fb}
	gt, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	b.GroupingType = fourcc.Code(gt)
	if fb.Version == 1 {
		if _, err := c.ReadU32(); err != nil { // grouping_type_parameter
			return nil, err
		}
	}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		var e SampleToGroupEntry
		if e.SampleCount, err = c.ReadU32(); err != nil {
			return nil, err
		}
		if e.GroupDescriptionIndex, err = c.ReadU32(); err != nil {
			return nil, err
		}
		b.Entries = append(b.Entries, e)
	}
	return b, nil
}

func (b *SampleToGroupBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("sbgp"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(uint32(b.GroupingType)); err != nil {
		return err
	}
	if b.Version == 1 {
		if err := c.WriteU32(0); err != nil {
			return err
		}
	}
	if err := c.WriteU32(uint32(len(b.Entries))); err != nil {
		return err
	}
	for _, e := range b.Entries {
		if err := c.WriteU32(e.SampleCount); err != nil {
			return err
		}
		if err := c.WriteU32(e.GroupDescriptionIndex); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// SampleTableBox is "stbl": the complete sample table for one track,
// assembled and queried by heif/sampletable (C10).
type SampleTableBox struct {
	Header
	SampleDescription *SampleDescriptionBox
	TimeToSample      *TimeToSampleBox
	CompositionOffset *CompositionOffsetBox
	CompositionToDecode *CompositionToDecodeBox
	SyncSample        *SyncSampleBox
	SampleToChunk     *SampleToChunkBox
	ChunkOffset       *ChunkOffsetBox
	SampleSize        *SampleSizeBox
	SampleGroupDescriptions []*SampleGroupDescriptionBox
	SampleToGroups          []*SampleToGroupBox
}

func (b *SampleTableBox) Size() int64 { return 0 }

func ParseSampleTableBox(c *bitio.Cursor) (*SampleTableBox, error) {
	sb := &SampleTableBox{Header: Header{boxType: fourcc.New("stbl")}}
	children, err := ContainerParse(c)
	if err != nil {
		return sb, err
	}
	for _, ch := range children {
		switch ch.Type {
		case fourcc.New("stsd"):
			sb.SampleDescription, err = ParseSampleDescriptionBox(ch.Body)
		case fourcc.New("stts"):
			sb.TimeToSample, err = ParseTimeToSampleBox(ch.Body)
		case fourcc.New("ctts"):
			sb.CompositionOffset, err = ParseCompositionOffsetBox(ch.Body)
		case fourcc.New("cslg"):
			sb.CompositionToDecode, err = ParseCompositionToDecodeBox(ch.Body)
		case fourcc.New("stss"):
			sb.SyncSample, err = ParseSyncSampleBox(ch.Body)
		case fourcc.New("stsc"):
			sb.SampleToChunk, err = ParseSampleToChunkBox(ch.Body)
		case fourcc.New("stco"), fourcc.New("co64"):
			sb.ChunkOffset, err = ParseChunkOffsetBox(ch.Body, ch.Type)
		case fourcc.New("stsz"):
			sb.SampleSize, err = ParseSampleSizeBox(ch.Body)
		case fourcc.New("sgpd"):
			var sg *SampleGroupDescriptionBox
			sg, err = ParseSampleGroupDescriptionBox(ch.Body)
			if err == nil {
				sb.SampleGroupDescriptions = append(sb.SampleGroupDescriptions, sg)
			}
		case fourcc.New("sbgp"):
			var s2g *SampleToGroupBox
			s2g, err = ParseSampleToGroupBox(ch.Body)
			if err == nil {
				sb.SampleToGroups = append(sb.SampleToGroups, s2g)
			}
		}
		if err != nil {
			return sb, fmt.Errorf("bmff: stbl child %q: %w", ch.Type, err)
		}
	}
	return sb, nil
}

func (b *SampleTableBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("stbl"))
	if err != nil {
		return err
	}
	writers := []func(*bitio.Cursor) error{}
	if b.SampleDescription != nil {
		writers = append(writers, b.SampleDescription.Write)
	}
	if b.TimeToSample != nil {
		writers = append(writers, b.TimeToSample.Write)
	}
	if b.CompositionOffset != nil {
		writers = append(writers, b.CompositionOffset.Write)
	}
	if b.CompositionToDecode != nil {
		writers = append(writers, b.CompositionToDecode.Write)
	}
	if b.SyncSample != nil {
		writers = append(writers, b.SyncSample.Write)
	}
	if b.SampleToChunk != nil {
		writers = append(writers, b.SampleToChunk.Write)
	}
	if b.ChunkOffset != nil {
		writers = append(writers, b.ChunkOffset.Write)
	}
	if b.SampleSize != nil {
		writers = append(writers, b.SampleSize.Write)
	}
	for _, sg := range b.SampleGroupDescriptions {
		writers = append(writers, sg.Write)
	}
	for _, s2g := range b.SampleToGroups {
		writers = append(writers, s2g.Write)
	}
	for _, w := range writers {
		if err := w(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}
