package bitio

import (
	"math"
	"testing"
)

func TestWriteReadBits(t *testing.T) {
	for n := 1; n <= 32; n++ {
		var maxV uint32
		if n == 32 {
			maxV = math.MaxUint32
		} else {
			maxV = (1 << uint(n)) - 1
		}
		for _, v := range []uint32{0, 1, maxV, maxV / 2} {
			w := NewWriter()
			w.WriteBits(v, n)
			w.Finalize()

			r := NewReader(w.Bytes())
			got, err := r.ReadBits(n)
			if err != nil {
				t.Fatalf("n=%d v=%d: %v", n, v, err)
			}
			if got != v {
				t.Errorf("n=%d v=%d: got %d", n, v, got)
			}
		}
	}
}

func TestWriteReadUintN(t *testing.T) {
	cases := []struct {
		bits int
		v    uint64
	}{
		{8, 0xAB}, {16, 0x1234}, {24, 0x123456}, {32, 0xDEADBEEF}, {64, 0x0102030405060708},
	}
	for _, c := range cases {
		w := NewWriter()
		if err := w.WriteUintN(c.v, c.bits); err != nil {
			t.Fatal(err)
		}
		r := NewReader(w.Bytes())
		got, err := r.ReadUintN(c.bits)
		if err != nil {
			t.Fatal(err)
		}
		if got != c.v {
			t.Errorf("bits=%d: got %x want %x", c.bits, got, c.v)
		}
	}
}

func TestExpGolombRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 2, 3, 4, 100, 1 << 20, (1 << 31) - 1} {
		w := NewWriter()
		// canonical ue(v) encoding: (leadingZeros = bitlen(v+1)-1) zero bits, a 1, then suffix.
		codeNum := v
		tmp := codeNum + 1
		nbits := 0
		for t := tmp; t > 1; t >>= 1 {
			nbits++
		}
		if nbits == 0 {
			w.WriteBits(1, 1)
		} else {
			w.WriteBits(0, nbits)
			w.WriteBits(tmp, nbits+1)
		}
		w.Finalize()

		r := NewReader(w.Bytes())
		got, err := r.ReadExpGolomb()
		if err != nil {
			t.Fatalf("v=%d: %v", v, err)
		}
		if got != v {
			t.Errorf("v=%d: got %d", v, got)
		}
	}
}

func max1(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

func TestSignedExpGolomb(t *testing.T) {
	// codeNum odd -> +ceil(codeNum/2), even -> -(codeNum/2)
	w := NewWriter()
	// codeNum=1 (ue encoding: "010") -> +1
	w.WriteBits(2, 3)
	// codeNum=2 (ue encoding: "011") -> -1
	w.WriteBits(3, 3)
	w.Finalize()

	r := NewReader(w.Bytes())
	v1, err := r.ReadSignedExpGolomb()
	if err != nil {
		t.Fatal(err)
	}
	if v1 != 1 {
		t.Errorf("got %d want 1", v1)
	}
	v2, err := r.ReadSignedExpGolomb()
	if err != nil {
		t.Fatal(err)
	}
	if v2 != -1 {
		t.Errorf("got %d want -1", v2)
	}
}

func TestByteAlignedRequiresAlignment(t *testing.T) {
	w := NewWriter()
	w.WriteBits(1, 3)
	if err := w.WriteU8(1); err != ErrMisaligned {
		t.Fatalf("expected ErrMisaligned, got %v", err)
	}
}

func TestZStringRoundTrip(t *testing.T) {
	w := NewWriter()
	if err := w.WriteZString("hello"); err != nil {
		t.Fatal(err)
	}
	r := NewReader(w.Bytes())
	s, err := r.ReadZString()
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello" {
		t.Errorf("got %q", s)
	}
}

func TestExtractIsPureSlice(t *testing.T) {
	base := NewReader([]byte{1, 2, 3, 4, 5})
	sub, err := base.Extract(1, 4)
	if err != nil {
		t.Fatal(err)
	}
	sub.storage[0] = 99
	if base.storage[1] != 2 {
		t.Errorf("mutation of sub leaked into parent: %v", base.storage)
	}
}

func TestReadSubBox(t *testing.T) {
	w := NewWriter()
	w.WriteU32(16) // size
	w.WriteBytes([]byte("ispe"))
	w.WriteU32(0)
	w.WriteU32(42)

	r := NewReader(w.Bytes())
	typ, sub, err := r.ReadSubBox()
	if err != nil {
		t.Fatal(err)
	}
	if string(typ[:]) != "ispe" {
		t.Fatalf("got type %q", typ)
	}
	if r.Pos() != 16 {
		t.Errorf("parent cursor not advanced: pos=%d", r.Pos())
	}
	if sub.Len() != 16 {
		t.Errorf("sub-cursor len=%d want 16", sub.Len())
	}
}

func TestSetByteBackPatch(t *testing.T) {
	w := NewWriter()
	w.WriteU32(0)
	w.WriteBytes([]byte("ftyp"))
	if err := w.SetByte(3, 8); err != nil {
		t.Fatal(err)
	}
	if w.Bytes()[3] != 8 {
		t.Errorf("back-patch failed")
	}
}
