package timing

import (
	"testing"

	"github.com/heifbox/heifbox/bmff"
)

func sttsBox(deltas ...uint32) *bmff.TimeToSampleBox {
	b := &bmff.TimeToSampleBox{}
	for _, d := range deltas {
		b.Entries = append(b.Entries, bmff.TimeToSampleEntry{SampleCount: 1, SampleDelta: d})
	}
	return b
}

func TestIntegrateNoCtts(t *testing.T) {
	stts := sttsBox(100, 100, 100, 100)
	times := Integrate(stts, nil)
	want := []int64{0, 100, 200, 300}
	for i, w := range want {
		if times.DTS[i] != w {
			t.Errorf("DTS[%d] = %d, want %d", i, times.DTS[i], w)
		}
		if times.PTS[i] != w {
			t.Errorf("PTS[%d] = %d, want %d (no ctts should mirror dts)", i, times.PTS[i], w)
		}
	}
}

func TestIntegrateWithCtts(t *testing.T) {
	stts := sttsBox(100, 100, 100, 100)
	ctts := &bmff.CompositionOffsetBox{
		SampleCounts: []uint32{1, 1, 1, 1},
		Offsets:      []int64{200, -100, 0, -100},
	}
	times := Integrate(stts, ctts)
	wantPts := []int64{200, 0, 200, 200}
	for i, w := range wantPts {
		if times.PTS[i] != w {
			t.Errorf("PTS[%d] = %d, want %d", i, times.PTS[i], w)
		}
	}
}

func TestMediaPtsSortedAscending(t *testing.T) {
	times := &SampleTimes{DTS: []int64{0, 100, 200}, PTS: []int64{200, 0, 100}}
	mp := MediaPts(times)
	wantOrder := []uint32{1, 2, 0} // pts 0, 100, 200
	for i, w := range wantOrder {
		if mp[i].Sample != w {
			t.Errorf("MediaPts[%d].Sample = %d, want %d", i, mp[i].Sample, w)
		}
	}
}

func TestDurationSingleSample(t *testing.T) {
	mp := []Entry{{Pts: 0, Sample: 0}}
	if got := Duration(mp); got != 0 {
		t.Errorf("Duration = %d, want 0 for a single sample", got)
	}
}

func TestDurationExtrapolatesLastDelta(t *testing.T) {
	mp := []Entry{{Pts: 0, Sample: 0}, {Pts: 100, Sample: 1}, {Pts: 200, Sample: 2}}
	if got := Duration(mp); got != 300 {
		t.Errorf("Duration = %d, want 300 (200 + (200-100))", got)
	}
}

func TestReplayEditListEmptySegmentShiftsOffset(t *testing.T) {
	stts := sttsBox(100, 100, 100)
	times := Integrate(stts, nil)
	mp := MediaPts(times)

	edit := &bmff.EditListBox{Entries: []bmff.EditListEntry{
		{SegmentDuration: 50, MediaTime: -1, MediaRateInteger: 1}, // empty
		{SegmentDuration: 300, MediaTime: 0, MediaRateInteger: 1}, // shift, whole track
	}}
	c := &Composer{MediaTimescale: 1, MovieTimescale: 1}
	pmap := c.ReplayEditList(mp, edit)

	if len(pmap) != 3 {
		t.Fatalf("got %d pmap entries, want 3", len(pmap))
	}
	if pmap[0].Pts != 50 {
		t.Errorf("first shifted sample at %d, want 50 (after the empty segment)", pmap[0].Pts)
	}
	if pmap[0].Sample != 0 || pmap[1].Sample != 1 || pmap[2].Sample != 2 {
		t.Errorf("sample order = %v, want 0,1,2", []uint32{pmap[0].Sample, pmap[1].Sample, pmap[2].Sample})
	}
}

func TestReplayEditListDwellPicksPredecessorOnMiss(t *testing.T) {
	stts := sttsBox(100, 100, 100)
	times := Integrate(stts, nil)
	mp := MediaPts(times) // pts 0,100,200 -> samples 0,1,2

	edit := &bmff.EditListBox{Entries: []bmff.EditListEntry{
		{SegmentDuration: 40, MediaTime: 150, MediaRateInteger: 0}, // dwell, no exact match at 150
	}}
	c := &Composer{MediaTimescale: 1, MovieTimescale: 1}
	pmap := c.ReplayEditList(mp, edit)

	if len(pmap) != 1 {
		t.Fatalf("got %d pmap entries, want 1", len(pmap))
	}
	if pmap[0].Sample != 1 {
		t.Errorf("dwell sample = %d, want 1 (the sample immediately before pts 150)", pmap[0].Sample)
	}
}

func TestIsLooped(t *testing.T) {
	edit := &bmff.EditListBox{FullBox: bmff.FullBox{Flags: 1}}
	if !IsLooped(edit, 0xFFFFFFFF) {
		t.Error("expected looped with flags=1 and duration=0xffffffff")
	}
	if IsLooped(edit, 1000) {
		t.Error("expected not looped when track duration is finite")
	}
	edit.Flags = 0
	if IsLooped(edit, 0xFFFFFFFF) {
		t.Error("expected not looped when edit-list flags are 0")
	}
}

func TestLoopRepeatsUntilTargetDuration(t *testing.T) {
	pmap := []Entry{{Pts: 0, Sample: 0}, {Pts: 50, Sample: 1}}
	out := Loop(pmap, 100, 250)
	// rep*span < 250 for rep in {0,1,2} -> 3 repetitions
	if len(out) != 6 {
		t.Fatalf("got %d entries, want 6 (3 repetitions of 2 samples)", len(out))
	}
	if out[4].Pts != 200 || out[5].Pts != 250 {
		t.Errorf("third repetition offsets = %d,%d, want 200,250", out[4].Pts, out[5].Pts)
	}
}

func TestToMilliseconds(t *testing.T) {
	entries := []Entry{{Pts: 4800, Sample: 0}}
	out := ToMilliseconds(entries, 9600)
	if out[0].Pts != 500 {
		t.Errorf("got %d ms, want 500", out[0].Pts)
	}
}

func TestComposeNoEditList(t *testing.T) {
	stts := sttsBox(1000, 1000, 1000)
	pmap, mediaPts, dur := Compose(stts, nil, nil, 1000, 1000, 0, 0)
	if len(pmap) != 3 || len(mediaPts) != 3 {
		t.Fatalf("got pmap=%d mediaPts=%d, want 3 each", len(pmap), len(mediaPts))
	}
	if dur != 3000 {
		t.Errorf("Duration = %d, want 3000 (2000 + (2000-1000))", dur)
	}
}
