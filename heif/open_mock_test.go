package heif

import (
	"testing"

	"go.uber.org/mock/gomock"
)

// TestOpenRejectsReaderAtWithoutSize exercises Open against a bare
// io.ReaderAt that implements neither Size() nor io.Seeker: bmff.StreamSize
// has no way to learn the stream's length, so Open must fail rather than
// scan forever. A gomock double stands in for a reader we never actually
// need to drive ReadAt on, since the size check fails before any is issued.
func TestOpenRejectsReaderAtWithoutSize(t *testing.T) {
	ctrl := gomock.NewController(t)
	ra := NewMockReaderAt(ctrl)

	if _, err := Open(ra); err == nil {
		t.Fatal("expected Open to fail for a sizeless ReaderAt")
	}
}
