// Package sampletable turns a parsed stbl box graph (bmff.SampleTableBox)
// into per-sample lookups: byte offset, size, sync flag, sample
// description index, and sample group membership (spec §4.10, C10).
package sampletable

import (
	"fmt"

	"github.com/heifbox/heifbox/bmff"
	"github.com/heifbox/heifbox/fourcc"
)

// Table is the semantic layer over one track's SampleTableBox: it
// expands the run-length stsc table once at construction into one chunk
// record per sample, so chunk lookups do not re-walk run-length entries.
// stts/ctts are not expanded here; the timing package reads them.
type Table struct {
	stbl   *bmff.SampleTableBox
	chunks []bmff.SampleChunkRecord // one entry per sample, in sample order
}

// New validates that stbl carries the boxes every sample needs
// (stsc, stsz, and one of stco/co64) and expands the chunk map.
func New(stbl *bmff.SampleTableBox) (*Table, error) {
	if stbl.SampleToChunk == nil {
		return nil, fmt.Errorf("sampletable: stbl missing stsc")
	}
	if stbl.SampleSize == nil {
		return nil, fmt.Errorf("sampletable: stbl missing stsz")
	}
	if stbl.ChunkOffset == nil {
		return nil, fmt.Errorf("sampletable: stbl missing stco/co64")
	}
	t := &Table{stbl: stbl}
	t.chunks = stbl.SampleToChunk.Expand(uint32(len(stbl.ChunkOffset.Offsets)))
	return t, nil
}

// SampleCount returns the number of samples stsz describes.
func (t *Table) SampleCount() uint32 {
	return t.stbl.SampleSize.SampleCount
}

// Size returns the byte size of the 1-based sampleNumber-th sample.
func (t *Table) Size(sampleNumber uint32) uint32 {
	return t.stbl.SampleSize.SampleBytes(sampleNumber)
}

// SampleDescriptionIndex returns the 1-based sample description index
// (into stsd.Entries) the sample's chunk was written against.
func (t *Table) SampleDescriptionIndex(sampleNumber uint32) (uint32, error) {
	rec, err := t.chunkRecord(sampleNumber)
	if err != nil {
		return 0, err
	}
	return rec.SampleDescriptionIndex, nil
}

// Offset returns the absolute file byte offset of the 1-based
// sampleNumber-th sample: its chunk's base offset plus the sizes of the
// samples preceding it within that chunk.
func (t *Table) Offset(sampleNumber uint32) (int64, error) {
	if sampleNumber < 1 || int(sampleNumber) > len(t.chunks) {
		return 0, fmt.Errorf("sampletable: sample %d out of range (have %d)", sampleNumber, len(t.chunks))
	}
	rec := t.chunks[sampleNumber-1]
	if int(rec.ChunkIndex) < 1 || int(rec.ChunkIndex) > len(t.stbl.ChunkOffset.Offsets) {
		return 0, fmt.Errorf("sampletable: sample %d references chunk %d out of range", sampleNumber, rec.ChunkIndex)
	}
	offset := int64(t.stbl.ChunkOffset.Offsets[rec.ChunkIndex-1])

	// Walk backward to the first sample of this chunk, summing sizes of
	// the samples before sampleNumber within the same chunk.
	first := sampleNumber
	for first > 1 && t.chunks[first-2].ChunkIndex == rec.ChunkIndex {
		first--
	}
	for s := first; s < sampleNumber; s++ {
		offset += int64(t.stbl.SampleSize.SampleBytes(s))
	}
	return offset, nil
}

func (t *Table) chunkRecord(sampleNumber uint32) (bmff.SampleChunkRecord, error) {
	if sampleNumber < 1 || int(sampleNumber) > len(t.chunks) {
		return bmff.SampleChunkRecord{}, fmt.Errorf("sampletable: sample %d out of range (have %d)", sampleNumber, len(t.chunks))
	}
	return t.chunks[sampleNumber-1], nil
}

// IsSync reports whether the 1-based sampleNumber-th sample is a random
// access point. Absence of stss means every sample is sync.
func (t *Table) IsSync(sampleNumber uint32) bool {
	if t.stbl.SyncSample == nil {
		return true
	}
	return t.stbl.SyncSample.IsSync(sampleNumber)
}

// GroupDescription returns the sample-group description payload for
// sampleNumber under the named grouping_type, and whether one was
// assigned (group_description_index 0 means "not a member").
func (t *Table) GroupDescription(groupingType fourcc.Code, sampleNumber uint32) ([]byte, bool) {
	var sbgp *bmff.SampleToGroupBox
	for _, g := range t.stbl.SampleToGroups {
		if g.GroupingType == groupingType {
			sbgp = g
			break
		}
	}
	if sbgp == nil {
		return nil, false
	}
	var sgpd *bmff.SampleGroupDescriptionBox
	for _, d := range t.stbl.SampleGroupDescriptions {
		if d.GroupingType == groupingType {
			sgpd = d
			break
		}
	}
	if sgpd == nil {
		return nil, false
	}

	idx := groupIndexFor(sbgp, sampleNumber, sgpd.DefaultGroupDesc)
	if idx == 0 || int(idx) > len(sgpd.Descriptions) {
		return nil, false
	}
	return sgpd.Descriptions[idx-1], true
}

// groupIndexFor walks sbgp's run-length entries to find the
// group_description_index assigned to the 1-based sampleNumber-th
// sample, defaulting unlisted trailing samples to the default
// description when sgpd carries one.
func groupIndexFor(sbgp *bmff.SampleToGroupBox, sampleNumber, defaultIndex uint32) uint32 {
	var sample uint32 = 1
	for _, e := range sbgp.Entries {
		if sampleNumber >= sample && sampleNumber < sample+e.SampleCount {
			return e.GroupDescriptionIndex
		}
		sample += e.SampleCount
	}
	return defaultIndex
}
