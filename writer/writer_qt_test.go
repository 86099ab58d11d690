package writer

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"

	"github.com/heifbox/heifbox/bmff"
	"github.com/heifbox/heifbox/heif"
)

// eqGrid compares two ImageGrid values field by field, the way the pack's
// metadata-decoder test suite builds a cmp.Comparer per domain type rather
// than relying on cmp's default struct walk.
var eqGrid = qt.CmpEquals(cmp.Comparer(func(a, b bmff.ImageGrid) bool {
	return a.RowsMinusOne == b.RowsMinusOne &&
		a.ColumnsMinusOne == b.ColumnsMinusOne &&
		a.OutputWidth == b.OutputWidth &&
		a.OutputHeight == b.OutputHeight
}))

func TestWriteGridStructuralEquality(t *testing.T) {
	c := qt.New(t)

	tiles := make([]int, 4)
	var items []ItemConfig
	for i := 0; i < 4; i++ {
		items = append(items, ItemConfig{
			ItemType: "hvc1",
			Data:     hevcPayload(t, 50),
			Properties: []bmff.Property{
				&bmff.ImageSpatialExtentsProperty{ImageWidth: 512, ImageHeight: 512},
			},
		})
		tiles[i] = i
	}
	want := GridConfig{RowsMinusOne: 1, ColumnsMinusOne: 1, OutputWidth: 1024, OutputHeight: 1024, Tiles: tiles}
	items = append(items, ItemConfig{ItemType: "grid", Primary: true, Grid: &want})

	out, err := New(&Config{Items: items}).Write()
	c.Assert(err, qt.IsNil)

	r, err := heif.Open(bytes.NewReader(out))
	c.Assert(err, qt.IsNil)

	gridID, err := r.PrimaryItem(0)
	c.Assert(err, qt.IsNil)

	got, _, err := r.GetItemGrid(0, gridID)
	c.Assert(err, qt.IsNil)

	c.Assert(*got, eqGrid, bmff.ImageGrid{
		RowsMinusOne: want.RowsMinusOne, ColumnsMinusOne: want.ColumnsMinusOne,
		OutputWidth: want.OutputWidth, OutputHeight: want.OutputHeight,
	})
}
