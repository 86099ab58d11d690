// Package timing composes a track's decode/presentation timeline out of
// its stts/ctts/elst boxes (spec §4.7, C9). It is the Go-native
// equivalent of a DecodePts-style pass: integrate stts into decode
// timestamps, fold in ctts for presentation timestamps, then replay any
// edit list to produce the movie-timeline PMap a reader or writer needs
// for frame ordering and playback timing.
package timing

import (
	"sort"

	"github.com/heifbox/heifbox/bmff"
)

// Entry is one (timestamp, sample index) pair. Sample indices are
// 0-based and refer to decode order in the sample table.
type Entry struct {
	Pts    int64
	Sample uint32
}

// SampleTimes holds the per-sample decode and presentation timestamps,
// in media timescale ticks, before any edit list is applied.
type SampleTimes struct {
	DTS []int64
	PTS []int64
}

// Integrate turns stts (required) and ctts (optional) into per-sample
// decode/presentation timestamps (spec §4.7 steps 1-2): "Integrate stts
// to get media_dts[i] ... If ctts present, compute media_pts[i] =
// media_dts[i] + ctts[i]".
func Integrate(stts *bmff.TimeToSampleBox, ctts *bmff.CompositionOffsetBox) *SampleTimes {
	deltas := stts.Expand()
	dts := make([]int64, len(deltas))
	var acc int64
	for i, d := range deltas {
		dts[i] = acc
		acc += int64(d)
	}
	pts := make([]int64, len(dts))
	if ctts != nil {
		offsets := ctts.Expand()
		for i := range dts {
			var off int64
			if i < len(offsets) {
				off = offsets[i]
			}
			pts[i] = dts[i] + off
		}
	} else {
		copy(pts, dts)
	}
	return &SampleTimes{DTS: dts, PTS: pts}
}

// MediaPts builds the unedited presentation-order map (spec §4.7 step
// 3): "Insert (media_pts[i] -> i) into MediaPts", sorted ascending by
// pts since later steps binary-search it.
func MediaPts(times *SampleTimes) []Entry {
	out := make([]Entry, len(times.PTS))
	for i, p := range times.PTS {
		out[i] = Entry{Pts: p, Sample: uint32(i)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pts < out[j].Pts })
	return out
}

// lowerBound returns the index of the first entry with Pts >= target.
func lowerBound(entries []Entry, target int64) int {
	return sort.Search(len(entries), func(i int) bool { return entries[i].Pts >= target })
}

// upperBound returns the index of the first entry with Pts > target.
func upperBound(entries []Entry, target int64) int {
	return sort.Search(len(entries), func(i int) bool { return entries[i].Pts > target })
}

// Composer holds everything needed to replay an edit list over a
// track's media-pts map and, optionally, to loop the result out to a
// target duration.
type Composer struct {
	MediaTimescale uint32
	MovieTimescale uint32
}

// Duration computes the movie duration from an unedited MediaPts map
// (spec §4.7 step 4): "movie duration = last_pts + (last_pts -
// prev_pts), or 0 if only one sample."
func Duration(mediaPts []Entry) int64 {
	n := len(mediaPts)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return 0
	}
	last := mediaPts[n-1].Pts
	prev := mediaPts[n-2].Pts
	return last + (last - prev)
}

// scaleToMedia converts a duration in movie timescale ticks into media
// timescale ticks. Edit-list segment_duration is expressed in the movie
// timescale (mvhd); media_time and the composed MediaPts map are in the
// track's media timescale (mdhd) — this conversion is necessary before
// the two can be compared, and is not spelled out box-by-box in spec
// §4.7's prose, which otherwise treats both as abstract "ticks".
func (c *Composer) scaleToMedia(movieTicks uint64) int64 {
	if c.MovieTimescale == 0 {
		return int64(movieTicks)
	}
	return int64(movieTicks) * int64(c.MediaTimescale) / int64(c.MovieTimescale)
}

// ReplayEditList applies one pass of an edit list over mediaPts (spec
// §4.7 step 5), producing the movie-pts -> sample PMap.
func (c *Composer) ReplayEditList(mediaPts []Entry, edit *bmff.EditListBox) []Entry {
	var pmap []Entry
	var movieOffset int64

	for _, seg := range edit.Entries {
		segDur := c.scaleToMedia(seg.SegmentDuration)
		segmentStart := movieOffset

		switch {
		case seg.IsEmpty():
			movieOffset += segDur

		case seg.IsDwell():
			lb := lowerBound(mediaPts, seg.MediaTime)
			ub := upperBound(mediaPts, seg.MediaTime)
			idx := lb
			if lb == ub {
				idx = lb - 1
			}
			if idx >= 0 && idx < len(mediaPts) {
				pmap = append(pmap, Entry{Pts: movieOffset, Sample: mediaPts[idx].Sample})
			}
			movieOffset += segDur

		default: // shift
			segStart := seg.MediaTime
			segEnd := seg.MediaTime + segDur
			start := lowerBound(mediaPts, segStart)
			end := lowerBound(mediaPts, segEnd)

			if start < end && mediaPts[start].Pts > segStart && start > 0 {
				prev := mediaPts[start-1]
				pmap = append(pmap, Entry{Pts: movieOffset, Sample: prev.Sample})
				movieOffset += mediaPts[start].Pts - segStart
			}

			for i := start; i < end; i++ {
				pmap = append(pmap, Entry{Pts: movieOffset, Sample: mediaPts[i].Sample})
				if i+1 < end {
					movieOffset += mediaPts[i+1].Pts - mediaPts[i].Pts
				}
			}
			movieOffset = segmentStart + segDur
		}
	}
	return pmap
}

// IsLooped reports the writer's "infinite loop" signal (spec §4.7 step
// 6): edit-list flags == 1 and tkhd.duration == 0xffffffff.
func IsLooped(edit *bmff.EditListBox, trackDuration uint64) bool {
	return edit != nil && edit.Flags == 1 && trackDuration == 0xFFFFFFFF
}

// Loop repeats pmap, each repetition offset by its span, until the
// accumulated duration reaches targetDuration (spec §4.7 step 6: "the
// reader reproduces the MoviePts map repeatedly offset by span *
// repetition until target duration is reached").
func Loop(pmap []Entry, span int64, targetDuration int64) []Entry {
	if span <= 0 || targetDuration <= 0 || len(pmap) == 0 {
		return pmap
	}
	var out []Entry
	for rep := int64(0); rep*span < targetDuration; rep++ {
		offset := rep * span
		for _, e := range pmap {
			out = append(out, Entry{Pts: e.Pts + offset, Sample: e.Sample})
		}
	}
	return out
}

// ToMilliseconds converts a PMap's timescale-tick keys to milliseconds
// (spec §4.7: "(media_units * 1000) / timescale").
func ToMilliseconds(entries []Entry, timescale uint32) []Entry {
	if timescale == 0 {
		return entries
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Pts: e.Pts * 1000 / int64(timescale), Sample: e.Sample}
	}
	return out
}

// Compose runs the full algorithm for one track: integrate stts/ctts,
// build the unedited MediaPts map, and — when an edit list is present —
// replay it (looping if signaled) into the final PMap. targetDuration is
// the forced playback duration in media ticks; 0 means "one pass, no
// looping".
func Compose(stts *bmff.TimeToSampleBox, ctts *bmff.CompositionOffsetBox, edit *bmff.EditListBox, mediaTimescale, movieTimescale uint32, trackDuration uint64, targetDuration int64) (pmap []Entry, mediaPtsOut []Entry, movieDuration int64) {
	times := Integrate(stts, ctts)
	mediaPtsOut = MediaPts(times)
	movieDuration = Duration(mediaPtsOut)

	if edit == nil {
		return mediaPtsOut, mediaPtsOut, movieDuration
	}

	c := &Composer{MediaTimescale: mediaTimescale, MovieTimescale: movieTimescale}
	pmap = c.ReplayEditList(mediaPtsOut, edit)

	if IsLooped(edit, trackDuration) && targetDuration > 0 {
		var span int64
		for _, seg := range edit.Entries {
			span += c.scaleToMedia(seg.SegmentDuration)
		}
		pmap = Loop(pmap, span, targetDuration)
	}
	return pmap, mediaPtsOut, movieDuration
}
