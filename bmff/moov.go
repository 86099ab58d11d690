package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// MovieHeaderBox is "mvhd": the timescale and overall duration shared by
// every track in a track-form (image sequence) file.
type MovieHeaderBox struct {
	FullBox
	CreationTime     uint64
	ModificationTime uint64
	Timescale        uint32
	Duration         uint64
	Rate             int32 // 16.16 fixed point, typically 0x00010000
	Volume           int16 // 8.8 fixed point, typically 0x0100
	NextTrackID      uint32
}

func (b *MovieHeaderBox) Size() int64 { return 0 }

func ParseMovieHeaderBox(c *bitio.Cursor) (*MovieHeaderBox, error) {
	fb, err := ParseFullHeader(c, fourcc.New("mvhd"))
	if err != nil {
		return nil, err
	}
	b := &MovieHeaderBox{FullBox: *fb}
	if fb.Version == 1 {
		ct, err := c.ReadU64()
		if err != nil {
			return nil, err
		}
		mt, err := c.ReadU64()
		if err != nil {
			return nil, err
		}
		ts, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		dur, err := c.ReadU64()
		if err != nil {
			return nil, err
		}
		b.CreationTime, b.ModificationTime, b.Timescale, b.Duration = ct, mt, ts, dur
	} else {
		ct, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		mt, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		ts, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		dur, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		b.CreationTime, b.ModificationTime, b.Timescale, b.Duration = uint64(ct), uint64(mt), ts, uint64(dur)
	}
	rate, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	b.Rate = int32(rate)
	vol, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	b.Volume = int16(vol)
	if _, err := c.ReadBytes(2); err != nil { // reserved
		return nil, err
	}
	if _, err := c.ReadBytes(8); err != nil { // reserved[2]
		return nil, err
	}
	for i := 0; i < 9; i++ { // unity matrix
		if _, err := c.ReadU32(); err != nil {
			return nil, err
		}
	}
	if _, err := c.ReadBytes(24); err != nil { // pre_defined[6]
		return nil, err
	}
	if b.NextTrackID, err = c.ReadU32(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *MovieHeaderBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, fourcc.New("mvhd"), b.Version, b.Flags)
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
	rate := b.Rate
	if rate == 0 {
		rate = 0x00010000
	}
	if err := c.WriteU32(uint32(rate)); err != nil {
		return err
	}
	vol := b.Volume
	if vol == 0 {
		vol = 0x0100
	}
	if err := c.WriteU16(uint16(vol)); err != nil {
		return err
	}
	if err := c.WriteBytes(make([]byte, 2+8)); err != nil {
		return err
	}
	matrix := []uint32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}
	for _, m := range matrix {
		if err := c.WriteU32(m); err != nil {
			return err
		}
	}
	if err := c.WriteBytes(make([]byte, 24)); err != nil {
		return err
	}
	if err := c.WriteU32(b.NextTrackID); err != nil {
		return err
	}
	return h.UpdateSize(c)
}

// MovieBox is "moov": the top-level container for a track-form file's
// movie header and all its tracks (spec §3, C9's timing composer input).
type MovieBox struct {
	Header
	MovieHeader *MovieHeaderBox
	Tracks      []*TrackBox
}

func (b *MovieBox) Size() int64 { return 0 }

func ParseMovieBox(c *bitio.Cursor) (*MovieBox, error) {
	mb := &MovieBox{Header: Header{boxType: fourcc.New("moov")}}
	children, err := ContainerParse(c)
	if err != nil {
		return mb, err
	}
	for _, ch := range children {
		switch ch.Type {
		case fourcc.New("mvhd"):
			mb.MovieHeader, err = ParseMovieHeaderBox(ch.Body)
		case fourcc.New("trak"):
			var t *TrackBox
			t, err = ParseTrackBox(ch.Body)
			if err == nil {
				mb.Tracks = append(mb.Tracks, t)
			}
		default:
			// meta/udta and similar top-level siblings of mvhd/trak carry
			// no HEIF-relevant content in a track-form file, skipped per
			// §4.11.
		}
		if err != nil {
			return mb, fmt.Errorf("bmff: moov child %q: %w", ch.Type, err)
		}
	}
	return mb, nil
}

func (b *MovieBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("moov"))
	if err != nil {
		return err
	}
	if b.MovieHeader != nil {
		if err := b.MovieHeader.Write(c); err != nil {
			return err
		}
	}
	for _, t := range b.Tracks {
		if err := t.Write(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// TrackByID returns the track whose TrackHeader.TrackID matches id, or nil.
func (b *MovieBox) TrackByID(id uint32) *TrackBox {
	for _, t := range b.Tracks {
		if t.TrackHeader != nil && t.TrackHeader.TrackID == id {
			return t
		}
	}
	return nil
}
