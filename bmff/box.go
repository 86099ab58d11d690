// Package bmff implements the ISOBMFF box header codec (spec §4.2, C3) and
// the typed box library (spec §4.3, C4) used by both the HEIF reader and
// writer. Each concrete box type satisfies Box: header/body parse and
// write, wired through a shared bitio.Cursor.
//
// This package's box-parse state machine follows spec §4.10: Initial ->
// HeaderRead -> (LargeSizeRead | Direct) -> (UserTypeRead | Direct) ->
// BodyRead -> Done, expressed here as the linear sequence inside
// ReadBoxHeader and each box's Parse* function rather than as an explicit
// state enum, matching
// how the teacher's bmff.ReadBox and Nokia's BBox::parseHeader both read
// it as one straight-line function.
package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// Box is the interface every concrete box type implements: its type and
// its size. Parsing and writing are per-type Parse*/Write functions, not
// interface methods. Plain Box and FullBox headers share this interface;
// FullBox additionally carries version/flags (see FullBox).
type Box interface {
	Type() fourcc.Code
	// Size returns the box's total encoded size in bytes, including its
	// header, for boxes whose size follows directly from their fields
	// (ftyp, idat, mdat). Every other box returns 0: its size is only
	// fixed when UpdateSize back-patches it during Write.
	Size() int64
}

// Header is the common 8/16/32-byte box framing: size, type, optional
// 64-bit large size, optional 16-byte user type.
type Header struct {
	startOff    int  // byte offset of the size field, recorded by WriteHeader
	largeSizePos int // byte offset of the reserved large-size field, or -1
	boxType     fourcc.Code
	UserType    [16]byte // only meaningful when boxType == "uuid"
}

func (h *Header) Type() fourcc.Code { return h.boxType }

// WriteHeader records the box's start offset, writes a placeholder 32-bit
// size, the 4-byte type, and (for "uuid") the 16-byte user type. Callers
// must call UpdateSize after writing the body.
func WriteHeader(c *bitio.Cursor, typ fourcc.Code) (*Header, error) {
	h := &Header{startOff: c.Pos(), boxType: typ, largeSizePos: -1}
	if err := c.WriteU32(0); err != nil {
		return nil, err
	}
	tb := typ.Bytes()
	if err := c.WriteBytes(tb[:]); err != nil {
		return nil, err
	}
	if typ == fourcc.Uuid {
		if err := c.WriteBytes(h.UserType[:]); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// ReserveLargeSize pre-reserves 8 bytes for a 64-bit large-size field right
// after the header, so a box expected to exceed 4GiB (e.g. MediaDataBox)
// doesn't need to shift its body on UpdateSize. WriteHeader must have just
// been called.
func (h *Header) ReserveLargeSize(c *bitio.Cursor) error {
	h.largeSizePos = c.Pos()
	return c.WriteU64(0)
}

// UpdateSize computes size = current position - start offset and
// back-patches it. Without a reserved slot the 4-byte size field gets the
// size, and a size above 2^32-1 is an error. If ReserveLargeSize was
// called, the box always uses large-size form, whatever its size: the
// size field becomes 1 and the 8-byte reserved slot gets the size.
func (h *Header) UpdateSize(c *bitio.Cursor) error {
	end := c.Pos()
	size := uint64(end - h.startOff)
	if size <= 0xFFFFFFFF && h.largeSizePos < 0 {
		return writeU32At(c, h.startOff, uint32(size))
	}
	if h.largeSizePos < 0 {
		return fmt.Errorf("bmff: box %q grew to %d bytes without a reserved large-size slot", h.boxType, size)
	}
	if err := writeU32At(c, h.startOff, 1); err != nil {
		return err
	}
	return writeU64At(c, h.largeSizePos, size)
}

func writeU32At(c *bitio.Cursor, offset int, v uint32) error {
	b := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	for i, x := range b {
		if err := c.SetByte(offset+i, x); err != nil {
			return err
		}
	}
	return nil
}

func writeU64At(c *bitio.Cursor, offset int, v uint64) error {
	b := [8]byte{
		byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
		byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	}
	for i, x := range b {
		if err := c.SetByte(offset+i, x); err != nil {
			return err
		}
	}
	return nil
}

// ParsedHeader is the result of reading a box's framing off a parent
// cursor via ReadSubBox: the raw type and a sub-cursor scoped exactly to
// this box's bytes (header included, positioned just past the header).
type ParsedHeader struct {
	Type fourcc.Code
	Body *bitio.Cursor // positioned just past the 8-byte (or larger) header
}

// ReadBoxHeader reads one box's header off cur (which must be positioned
// at a box boundary) and returns the box type plus a sub-cursor scoped to
// the box body (header already consumed).
func ReadBoxHeader(cur *bitio.Cursor) (fourcc.Code, *bitio.Cursor, error) {
	typBytes, sub, err := cur.ReadSubBox()
	if err != nil {
		return 0, nil, err
	}
	typ := fourcc.FromBytes(typBytes[:])
	// sub is positioned at 0 over the full box (header included); replay
	// the header fields ReadSubBox already inspected so the body starts
	// exactly where the caller expects it.
	size32, err := sub.ReadU32()
	if err != nil {
		return 0, nil, err
	}
	if _, err := sub.ReadBytes(4); err != nil {
		return 0, nil, err
	}
	if size32 == 1 {
		if _, err := sub.ReadU64(); err != nil {
			return 0, nil, err
		}
	}
	if typ == fourcc.Uuid {
		if _, err := sub.ReadBytes(16); err != nil {
			return 0, nil, err
		}
	}
	return typ, sub, nil
}

// FullBox extends Header with the 1-byte version + 24-bit flags common to
// most metadata boxes.
type FullBox struct {
	Header
	Version uint8
	Flags   uint32 // low 24 bits significant
}

// WriteFullHeader writes the plain header followed by version+flags, and
// reserves the 4 bytes during construction per spec §4.2.
func WriteFullHeader(c *bitio.Cursor, typ fourcc.Code, version uint8, flags uint32) (*FullBox, error) {
	h, err := WriteHeader(c, typ)
	if err != nil {
		return nil, err
	}
	fb := &FullBox{Header: *h, Version: version, Flags: flags & 0xFFFFFF}
	if err := c.WriteU8(version); err != nil {
		return nil, err
	}
	if err := c.WriteU24(fb.Flags); err != nil {
		return nil, err
	}
	return fb, nil
}

// ParseFullHeader reads the version+flags pair at the front of a FullBox
// body. c must already be positioned past the plain header.
func ParseFullHeader(c *bitio.Cursor, typ fourcc.Code) (*FullBox, error) {
	version, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	flags, err := c.ReadU24()
	if err != nil {
		return nil, err
	}
	return &FullBox{Header: Header{boxType: typ}, Version: version, Flags: flags}, nil
}

// ContainerParse reads successive sub-boxes out of c until exhausted,
// returning each as (type, raw sub-cursor) pairs for the caller to
// dispatch. Matches the teacher's parseAppendBoxes: unknown or malformed
// children are the caller's concern (§4.11: best-effort within a
// container), this helper only frames them.
func ContainerParse(c *bitio.Cursor) ([]ParsedHeader, error) {
	var out []ParsedHeader
	for c.AnyRemain() {
		typ, sub, err := ReadBoxHeader(c)
		if err != nil {
			return out, err
		}
		out = append(out, ParsedHeader{Type: typ, Body: sub})
	}
	return out, nil
}
