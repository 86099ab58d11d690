package nal

import (
	"bytes"
	"testing"
)

func TestFindStartCode(t *testing.T) {
	cases := []struct {
		name       string
		data       []byte
		start      int
		wantLength int
		wantPos    int
	}{
		{"four byte", []byte{0x00, 0x00, 0x00, 0x01, 0xAB}, 0, 4, 0},
		{"three byte", []byte{0x00, 0x00, 0x01, 0xAB}, 0, 3, 0},
		{"no start code", []byte{0xAB, 0xCD}, 0, 0, 2},
		{"offset search", []byte{0xFF, 0x00, 0x00, 0x01, 0xAB}, 1, 3, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			length, pos := FindStartCode(c.data, c.start)
			if length != c.wantLength || pos != c.wantPos {
				t.Errorf("FindStartCode(%v, %d) = (%d, %d), want (%d, %d)", c.data, c.start, length, pos, c.wantLength, c.wantPos)
			}
		})
	}
}

func TestSplitByStartCode(t *testing.T) {
	stream := []byte{
		0x00, 0x00, 0x00, 0x01, 0x26, 0x01, 0x02,
		0x00, 0x00, 0x01, 0x44, 0x03, 0x04,
	}
	units := SplitByStartCode(stream)
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
	if !bytes.Equal(units[0], []byte{0x26, 0x01, 0x02}) {
		t.Errorf("unit 0 = %v", units[0])
	}
	if !bytes.Equal(units[1], []byte{0x44, 0x03, 0x04}) {
		t.Errorf("unit 1 = %v", units[1])
	}
}

func TestStripEmulationPrevention(t *testing.T) {
	in := []byte{0x00, 0x00, 0x03, 0x01, 0x00, 0x00, 0x03, 0x02, 0xFF}
	want := []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x02, 0xFF}
	got := StripEmulationPrevention(in)
	if !bytes.Equal(got, want) {
		t.Errorf("StripEmulationPrevention(%v) = %v, want %v", in, got, want)
	}
}

func TestStripEmulationPreventionIdempotent(t *testing.T) {
	in := []byte{0x01, 0x02, 0x03, 0x04, 0x00, 0x01}
	once := StripEmulationPrevention(in)
	twice := StripEmulationPrevention(once)
	if !bytes.Equal(once, twice) {
		t.Errorf("not idempotent on emulation-free input: %v vs %v", once, twice)
	}
}

func TestToLengthPrefixedRoundTrip(t *testing.T) {
	stream := []byte{
		0x00, 0x00, 0x00, 0x01, 0x26, 0xAA, 0xBB,
		0x00, 0x00, 0x01, 0x02, 0xCC,
	}
	prefixed := ToLengthPrefixed(stream)
	back, err := ToByteStream(prefixed, 4, HEVCIsParameterSet)
	if err != nil {
		t.Fatalf("ToByteStream: %v", err)
	}
	// Every NAL gets a 4-byte start code on the way back except those
	// past the first that aren't parameter sets, which is still the
	// case here since neither unit is a recognized VPS/SPS/PPS type
	// except possibly the first (always long).
	units := SplitByStartCode(back)
	if len(units) != 2 {
		t.Fatalf("got %d units after round trip, want 2", len(units))
	}
	if !bytes.Equal(units[0], []byte{0x26, 0xAA, 0xBB}) || !bytes.Equal(units[1], []byte{0x02, 0xCC}) {
		t.Errorf("round trip mismatch: %v / %v", units[0], units[1])
	}
}

func TestToByteStreamLongStartCodeForParameterSets(t *testing.T) {
	// VPS (type 32) NAL header: (32<<1)=0x40 in byte0, bits [1:6].
	vps := []byte{0x40, 0x01, 0xAA}
	slice := []byte{0x26, 0x01, 0xBB}
	var sample []byte
	// The VPS comes second so its 4-byte start code is owed to its type,
	// not to being the first unit.
	for _, u := range [][]byte{slice, vps} {
		sample = append(sample, 0, 0, 0, byte(len(u)))
		sample = append(sample, u...)
	}
	out, err := ToByteStream(sample, 4, HEVCIsParameterSet)
	if err != nil {
		t.Fatalf("ToByteStream: %v", err)
	}
	if !bytes.HasPrefix(out, []byte{0x00, 0x00, 0x00, 0x01}) {
		t.Errorf("first NAL should get a 4-byte start code: %v", out)
	}
	want := []byte{0x00, 0x00, 0x00, 0x01, 0x26, 0x01, 0xBB, 0x00, 0x00, 0x00, 0x01, 0x40, 0x01, 0xAA}
	if !bytes.Equal(out, want) {
		t.Errorf("VPS after a slice should get a 4-byte start code: got %v want %v", out, want)
	}
}

func TestHEVCType(t *testing.T) {
	typ, err := HEVCType([]byte{0x40, 0x01}) // (32<<1)
	if err != nil {
		t.Fatal(err)
	}
	if typ != TypeVPS {
		t.Errorf("got %d, want TypeVPS", typ)
	}
	if !typ.IsParameterSet() {
		t.Errorf("VPS should be a parameter set")
	}
}
