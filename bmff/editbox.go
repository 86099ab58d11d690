package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// EditListEntry is one segment of an edit list: a span of the movie
// timeline mapped onto a span of the track's own media timeline.
//
// Three shapes occur in practice, none carrying an explicit tag of its
// own kind — callers classify by field values (no original_source file
// covers edit lists directly; this follows the plain ISOBMFF layout
// instead, per spec §4.9's segment-type description):
//
//   - empty edit:  MediaTime == -1, inserts a gap before media starts
//   - dwell edit:  MediaRateInteger == 0, holds a single sample still
//   - shift edit:  ordinary values, a plain linear segment
type EditListEntry struct {
	SegmentDuration  uint64
	MediaTime        int64
	MediaRateInteger int16
	MediaRateFraction int16
}

func (e EditListEntry) IsEmpty() bool { return e.MediaTime == -1 }
func (e EditListEntry) IsDwell() bool { return !e.IsEmpty() && e.MediaRateInteger == 0 }

// EditListBox is "elst": the list of EditListEntry segments composing
// the presentation timeline for a track (spec §4.9, C9's timing composer
// consumes this ahead of stts/ctts when present).
type EditListBox struct {
	FullBox
	Entries []EditListEntry
}

func (b *EditListBox) Size() int64 { return 0 }

func ParseEditListBox(c *bitio.Cursor) (*EditListBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("elst"))
	if err != nil {
		return nil, err
	}
	b := &EditListBox{FullBox: *fb}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		var e EditListEntry
		if fb.Version == 1 {
			dur, err := c.ReadU64()
			if err != nil {
				return nil, err
			}
			mt, err := c.ReadU64()
			if err != nil {
				return nil, err
			}
			e.SegmentDuration = dur
			e.MediaTime = int64(mt)
		} else {
			dur, err := c.ReadU32()
			if err != nil {
				return nil, err
			}
			mt, err := c.ReadU32()
			if err != nil {
				return nil, err
			}
			e.SegmentDuration = uint64(dur)
			e.MediaTime = int64(int32(mt))
		}
		rate, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		e.MediaRateInteger = int16(int32(rate) >> 16)
		e.MediaRateFraction = int16(int32(rate) & 0xFFFF)
		b.Entries = append(b.Entries, e)
	}
	return b, nil
}

func (b *EditListBox) Write(c *bitio.Cursor) error {
	for _, e := range b.Entries {
		if b.Version == 0 && (e.SegmentDuration > 0xFFFFFFFF || e.MediaTime < -0x80000000 || e.MediaTime > 0x7FFFFFFF) {
			return fmt.Errorf("bmff: elst version 0 cannot encode segment duration %d / media time %d", e.SegmentDuration, e.MediaTime)
		}
	}
	h, err := WriteFullHeader(c, fourcc.New("elst"), b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(uint32(len(b.Entries))); err != nil {
		return err
	}
	for _, e := range b.Entries {
		if b.Version == 1 {
			if err := c.WriteU64(e.SegmentDuration); err != nil {
				return err
			}
			if err := c.WriteU64(uint64(e.MediaTime)); err != nil {
				return err
			}
		} else {
			if err := c.WriteU32(uint32(e.SegmentDuration)); err != nil {
				return err
			}
			if err := c.WriteU32(uint32(int32(e.MediaTime))); err != nil {
				return err
			}
		}
		rate := uint32(e.MediaRateInteger)<<16 | uint32(uint16(e.MediaRateFraction))
		if err := c.WriteU32(rate); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// EditBox is "edts": the edit-list container on a TrackBox.
type EditBox struct {
	Header
	EditList *EditListBox
}

func (b *EditBox) Size() int64 { return 0 }

func ParseEditBox(c *bitio.Cursor) (*EditBox, error) {
	eb := &EditBox{Header: Header{boxType: fourcc.New("edts")}}
	children, err := ContainerParse(c)
	if err != nil {
		return eb, err
	}
	for _, ch := range children {
		if ch.Type == fourcc.New("elst") {
			if eb.EditList, err = ParseEditListBox(ch.Body); err != nil {
				return eb, fmt.Errorf("bmff: edts child %q: %w", ch.Type, err)
			}
		}
	}
	return eb, nil
}

func (b *EditBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("edts"))
	if err != nil {
		return err
	}
	if b.EditList != nil {
		if err := b.EditList.Write(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}
