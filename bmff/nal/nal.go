// Package nal implements the NAL-unit codec shared by HEVC and AVC
// bitstreams: start-code scanning, emulation-prevention stripping, and
// conversion between Annex-B byte-stream form and the length-prefixed
// form ISOBMFF samples use (spec §4.4, C5).
//
// Grounded in mediadatabox.cpp's findStartCode/addNalData (write side);
// the length-prefix-to-start-code reader path has no direct
// original_source file (not present in the retrieved reader sources) and
// follows spec §4.4's prose description instead.
package nal

import (
	"encoding/binary"
	"fmt"
)

// Type is the HEVC NAL unit type, occupying bits [1:6] of the first NAL
// header byte (HEVC uses a 2-byte header; AVC a 1-byte header with the
// type in bits [0:4] instead — see AVCType).
type Type uint8

const (
	TypeVPS Type = 32
	TypeSPS Type = 33
	TypePPS Type = 34
)

// IsParameterSet reports whether t is VPS, SPS, or PPS.
func (t Type) IsParameterSet() bool {
	return t == TypeVPS || t == TypeSPS || t == TypePPS
}

// HEVCType extracts the NAL unit type from a HEVC NAL unit's 2-byte header.
func HEVCType(header []byte) (Type, error) {
	if len(header) < 2 {
		return 0, fmt.Errorf("nal: hevc header needs 2 bytes, got %d", len(header))
	}
	return Type(header[0] >> 1 & 0x3F), nil
}

// AVCType is the AVC nal_unit_type, the low 5 bits of the single header byte.
type AVCType uint8

const (
	AVCTypeIDR AVCType = 5
	AVCTypeSPS AVCType = 7
	AVCTypePPS AVCType = 8
)

func AVCNalType(header []byte) (AVCType, error) {
	if len(header) < 1 {
		return 0, fmt.Errorf("nal: avc header needs 1 byte, got %d", len(header))
	}
	return AVCType(header[0] & 0x1F), nil
}

// FindStartCode scans data from searchStart for the next Annex-B start
// code (a run of two or more 0x00 bytes followed by 0x01). It returns the
// start code's length (the whole zero run plus the 0x01 byte: 3 for
// 00 00 01, 4 for 00 00 00 01) and the byte position where the run begins. If
// no start code is found, pos is len(data) and length is 0 — ported
// directly from MediaDataBox::findStartCode.
func FindStartCode(data []byte, searchStart int) (length int, pos int) {
	i := searchStart
	run := 0
	found := false
	for i < len(data) && !found {
		switch {
		case data[i] == 0:
			run++
		case run > 1 && data[i] == 1:
			run++
			found = true
		default:
			run = 0
		}
		i++
	}
	if found {
		return run, i - run
	}
	return 0, i
}

// SplitByStartCode splits an Annex-B byte stream into its constituent NAL
// unit bodies (start codes stripped), in order.
func SplitByStartCode(data []byte) [][]byte {
	var units [][]byte
	scLen, pos := FindStartCode(data, 0)
	cur := pos + scLen
	for cur < len(data) {
		nextLen, nextPos := FindStartCode(data, cur)
		units = append(units, data[cur:nextPos])
		if nextLen == 0 {
			break
		}
		cur = nextPos + nextLen
	}
	return units
}

// StripEmulationPrevention removes 0x03 emulation-prevention bytes that
// follow a run of two zero bytes within a NAL unit body, yielding the raw
// byte sequence (RBSP) a parameter-set parser consumes.
func StripEmulationPrevention(nal []byte) []byte {
	out := make([]byte, 0, len(nal))
	zeroRun := 0
	for _, b := range nal {
		if zeroRun >= 2 && b == 0x03 {
			zeroRun = 0
			continue
		}
		out = append(out, b)
		if b == 0 {
			zeroRun++
		} else {
			zeroRun = 0
		}
	}
	return out
}

// ToLengthPrefixed converts an Annex-B byte stream into the ISOBMFF
// length-prefixed sample form: each NAL unit (start code stripped) is
// preceded by its 4-byte big-endian length.
func ToLengthPrefixed(byteStream []byte) []byte {
	units := SplitByStartCode(byteStream)
	out := make([]byte, 0, len(byteStream))
	var lenBuf [4]byte
	for _, u := range units {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(u)))
		out = append(out, lenBuf[:]...)
		out = append(out, u...)
	}
	return out
}

var (
	startCode4 = []byte{0x00, 0x00, 0x00, 0x01}
	startCode3 = []byte{0x00, 0x00, 0x01}
)

// ToByteStream converts a length-prefixed sample (lengthSize-byte length
// fields, as declared by the matching hvcC/avcC record) back into Annex-B
// form. The first NAL unit and any VPS/SPS/PPS get a 4-byte start code;
// all others get a 3-byte start code, per spec §4.4.
func ToByteStream(sample []byte, lengthSize int, isParamSet func(nalUnit []byte) bool) ([]byte, error) {
	if lengthSize < 1 || lengthSize > 4 {
		return nil, fmt.Errorf("nal: invalid length size %d", lengthSize)
	}
	out := make([]byte, 0, len(sample)+len(sample)/8)
	pos := 0
	first := true
	for pos < len(sample) {
		if pos+lengthSize > len(sample) {
			return nil, fmt.Errorf("nal: truncated length prefix at offset %d", pos)
		}
		var n uint32
		for i := 0; i < lengthSize; i++ {
			n = n<<8 | uint32(sample[pos+i])
		}
		pos += lengthSize
		if pos+int(n) > len(sample) {
			return nil, fmt.Errorf("nal: nal unit length %d exceeds remaining sample bytes at offset %d", n, pos)
		}
		unit := sample[pos : pos+int(n)]
		pos += int(n)

		useLong := first || (isParamSet != nil && isParamSet(unit))
		if useLong {
			out = append(out, startCode4...)
		} else {
			out = append(out, startCode3...)
		}
		out = append(out, unit...)
		first = false
	}
	return out, nil
}

// HEVCIsParameterSet is an isParamSet callback for ToByteStream over HEVC
// samples, recognizing VPS/SPS/PPS NAL units.
func HEVCIsParameterSet(unit []byte) bool {
	t, err := HEVCType(unit)
	if err != nil {
		return false
	}
	return t.IsParameterSet()
}

// AVCIsParameterSet is an isParamSet callback for ToByteStream over AVC
// samples, recognizing SPS/PPS NAL units.
func AVCIsParameterSet(unit []byte) bool {
	t, err := AVCNalType(unit)
	if err != nil {
		return false
	}
	return t == AVCTypeSPS || t == AVCTypePPS
}
