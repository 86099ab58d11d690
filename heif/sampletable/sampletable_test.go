package sampletable

import (
	"testing"

	"github.com/heifbox/heifbox/bmff"
	"github.com/heifbox/heifbox/fourcc"
)

func buildTable(t *testing.T) *Table {
	t.Helper()
	stbl := &bmff.SampleTableBox{
		SampleToChunk: &bmff.SampleToChunkBox{Entries: []bmff.ChunkEntry{
			{FirstChunk: 1, SamplesPerChunk: 2, SampleDescriptionIndex: 1},
			{FirstChunk: 2, SamplesPerChunk: 1, SampleDescriptionIndex: 1},
		}},
		SampleSize: &bmff.SampleSizeBox{SampleCount: 4, EntrySizes: []uint32{100, 150, 200, 50}},
		ChunkOffset: &bmff.ChunkOffsetBox{Offsets: []uint64{1000, 2000, 3000}},
		SyncSample: &bmff.SyncSampleBox{SampleNumbers: []uint32{1, 3}},
	}
	tbl, err := New(stbl)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tbl
}

func TestOffsetWithinChunk(t *testing.T) {
	tbl := buildTable(t)
	// chunk 1 holds samples 1,2; chunk 2 holds sample 3; chunk 3 holds sample 4.
	cases := []struct {
		sample uint32
		want   int64
	}{
		{1, 1000},
		{2, 1100}, // 1000 + size(sample 1)=100
		{3, 2000},
		{4, 3000},
	}
	for _, c := range cases {
		got, err := tbl.Offset(c.sample)
		if err != nil {
			t.Fatalf("Offset(%d): %v", c.sample, err)
		}
		if got != c.want {
			t.Errorf("Offset(%d) = %d, want %d", c.sample, got, c.want)
		}
	}
}

func TestSizeUniformAndPerSample(t *testing.T) {
	tbl := buildTable(t)
	if got := tbl.Size(2); got != 150 {
		t.Errorf("Size(2) = %d, want 150", got)
	}
	uniform := &Table{stbl: &bmff.SampleTableBox{SampleSize: &bmff.SampleSizeBox{SampleSize: 42, SampleCount: 5}}}
	if got := uniform.Size(3); got != 42 {
		t.Errorf("uniform Size(3) = %d, want 42", got)
	}
}

func TestIsSync(t *testing.T) {
	tbl := buildTable(t)
	if !tbl.IsSync(1) {
		t.Error("sample 1 should be sync")
	}
	if tbl.IsSync(2) {
		t.Error("sample 2 should not be sync")
	}
	if !tbl.IsSync(3) {
		t.Error("sample 3 should be sync")
	}
}

func TestIsSyncAbsentMeansAllSync(t *testing.T) {
	tbl := &Table{stbl: &bmff.SampleTableBox{}}
	if !tbl.IsSync(7) {
		t.Error("absent stss should mean every sample is sync")
	}
}

func TestGroupDescription(t *testing.T) {
	gt := fourcc.New("refs")
	stbl := &bmff.SampleTableBox{
		SampleToChunk: &bmff.SampleToChunkBox{Entries: []bmff.ChunkEntry{{FirstChunk: 1, SamplesPerChunk: 3, SampleDescriptionIndex: 1}}},
		SampleSize:    &bmff.SampleSizeBox{SampleCount: 3, EntrySizes: []uint32{10, 10, 10}},
		ChunkOffset:   &bmff.ChunkOffsetBox{Offsets: []uint64{0}},
		SampleToGroups: []*bmff.SampleToGroupBox{{
			GroupingType: gt,
			Entries: []bmff.SampleToGroupEntry{
				{SampleCount: 1, GroupDescriptionIndex: 0},
				{SampleCount: 2, GroupDescriptionIndex: 1},
			},
		}},
		SampleGroupDescriptions: []*bmff.SampleGroupDescriptionBox{{
			GroupingType: gt,
			Descriptions: [][]byte{[]byte("payload")},
		}},
	}
	tbl, err := New(stbl)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := tbl.GroupDescription(gt, 1); ok {
		t.Error("sample 1 has group_description_index 0, expected no membership")
	}
	data, ok := tbl.GroupDescription(gt, 2)
	if !ok || string(data) != "payload" {
		t.Errorf("GroupDescription(2) = %q, %v; want \"payload\", true", data, ok)
	}
}

func TestNewRequiresCoreBoxes(t *testing.T) {
	if _, err := New(&bmff.SampleTableBox{}); err == nil {
		t.Error("expected error when stsc/stsz/stco are all missing")
	}
}
