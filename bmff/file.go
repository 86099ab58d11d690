package bmff

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// TopLevel is the result of reading a file's contiguous root-level boxes
// (spec §4.8: "Top-level read(stream) consumes contiguous top-level
// boxes. It enforces that exactly one ftyp appears, at most one meta at
// the root, at most one moov; unknown root-level boxes are logged and
// skipped. mdat content is not materialized in memory").
type TopLevel struct {
	FileType *FileTypeBox
	Meta     *MetaBox
	Movie    *MovieBox

	// MediaData records each "mdat" box's absolute file offset and length
	// without reading its payload; item/sample data is fetched later by
	// direct io.ReaderAt access using iloc/stco offsets into the same
	// stream, not from these ranges.
	MediaData []MediaDataRange

	// Unknown lists root-level box types that were seen and skipped.
	Unknown []fourcc.Code
}

// MediaDataRange is the file-offset span of one root-level "mdat" box,
// header excluded.
type MediaDataRange struct {
	Offset int64
	Length int64
}

// sizer is implemented by io.ReaderAt backends that know their own
// length (e.g. *io.SectionReader, *bytes.Reader).
type sizer interface {
	Size() int64
}

// StreamSize determines the total byte length of ra, trying a Size()
// method first and falling back to io.Seeker if present.
func StreamSize(ra io.ReaderAt) (int64, error) {
	if s, ok := ra.(sizer); ok {
		return s.Size(), nil
	}
	if s, ok := ra.(io.Seeker); ok {
		cur, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		end, err := s.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		if _, err := s.Seek(cur, io.SeekStart); err != nil {
			return 0, err
		}
		return end, nil
	}
	return 0, fmt.Errorf("bmff: cannot determine stream size: %T implements neither Size() nor io.Seeker", ra)
}

// ReadTopLevel scans ra from offset 0 for contiguous top-level boxes,
// parsing ftyp/meta/moov fully and recording mdat spans without reading
// their payload. free/skip/uuid and any other unrecognized root box is
// logged into Unknown and skipped.
func ReadTopLevel(ra io.ReaderAt) (*TopLevel, error) {
	total, err := StreamSize(ra)
	if err != nil {
		return nil, err
	}
	tl := &TopLevel{}
	var off int64
	for off < total {
		typ, headerLen, bodyLen, err := readBoxFraming(ra, off, total)
		if err != nil {
			return tl, err
		}
		switch typ {
		case fourcc.Ftyp, fourcc.Meta, fourcc.Moov:
			buf := make([]byte, headerLen+bodyLen)
			if _, err := ra.ReadAt(buf, off); err != nil {
				return tl, fmt.Errorf("bmff: reading %q at %d: %w", typ, off, err)
			}
			c := bitio.NewReader(buf)
			_, body, err := ReadBoxHeader(c)
			if err != nil {
				return tl, err
			}
			switch typ {
			case fourcc.Ftyp:
				if tl.FileType != nil {
					return tl, fmt.Errorf("bmff: more than one root-level ftyp")
				}
				tl.FileType, err = ParseFileTypeBox(body)
			case fourcc.Meta:
				if tl.Meta != nil {
					return tl, fmt.Errorf("bmff: more than one root-level meta")
				}
				tl.Meta, err = ParseMetaBox(body)
			case fourcc.Moov:
				if tl.Movie != nil {
					return tl, fmt.Errorf("bmff: more than one root-level moov")
				}
				tl.Movie, err = ParseMovieBox(body)
			}
			if err != nil {
				return tl, fmt.Errorf("bmff: parsing root-level %q: %w", typ, err)
			}
		case fourcc.Mdat:
			tl.MediaData = append(tl.MediaData, MediaDataRange{Offset: off + headerLen, Length: bodyLen})
		default:
			tl.Unknown = append(tl.Unknown, typ)
		}
		off += headerLen + bodyLen
	}
	if tl.FileType == nil {
		return tl, fmt.Errorf("bmff: no root-level ftyp box")
	}
	return tl, nil
}

// readBoxFraming reads one box's size+type fields at off without
// touching its body, resolving the large-size and extends-to-EOF forms.
func readBoxFraming(ra io.ReaderAt, off, total int64) (typ fourcc.Code, headerLen, bodyLen int64, err error) {
	var hdr [8]byte
	if _, err = ra.ReadAt(hdr[:], off); err != nil {
		return 0, 0, 0, fmt.Errorf("bmff: reading box header at %d: %w", off, err)
	}
	size32 := binary.BigEndian.Uint32(hdr[0:4])
	typ = fourcc.FromBytes(hdr[4:8])
	headerLen = 8
	var boxTotal int64
	switch size32 {
	case 0:
		boxTotal = total - off
	case 1:
		var ext [8]byte
		if _, err = ra.ReadAt(ext[:], off+8); err != nil {
			return 0, 0, 0, fmt.Errorf("bmff: reading large size at %d: %w", off, err)
		}
		boxTotal = int64(binary.BigEndian.Uint64(ext[:]))
		headerLen = 16
	default:
		boxTotal = int64(size32)
	}
	if typ == fourcc.Uuid {
		headerLen += 16
	}
	if boxTotal < headerLen {
		return 0, 0, 0, fmt.Errorf("bmff: box %q at %d has size %d smaller than its header", typ, off, boxTotal)
	}
	return typ, headerLen, boxTotal - headerLen, nil
}
