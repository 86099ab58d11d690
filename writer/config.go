// Package writer implements the declarative, two-pass write orchestrator
// (spec §4.9, C12): pass 1 assigns item IDs and resolves the property
// and reference graph from a Config, pass 2 serializes ftyp/meta/mdat.
package writer

import "github.com/heifbox/heifbox/bmff"

// ItemConfig is one content source: a master bitstream, a thumbnail, an
// auxiliary image, a metadata item, or a derived-image descriptor. Items
// reference each other by their index in Config.Items; the writer's ID
// allocator turns those indices into real ItemIds in pass 1.
type ItemConfig struct {
	// ItemType is the infe item_type 4CC ("hvc1", "avc1", "grid", "iovl",
	// "Exif", "mime", ...).
	ItemType string
	Name     string
	Hidden   bool

	// Data is the item's raw payload for every type except Grid/Overlay,
	// whose payload is synthesized from Grid/Overlay below.
	Data []byte

	// Properties are attached via ipco/ipma in list order; Essential
	// marks the matching index (by position in Properties) as essential.
	Properties []bmff.Property
	Essential  []bool

	// Thumbnail, if set, is the Items index of this item's master; a
	// "thmb" iref edge is added from this item to that master.
	Thumbnail *int
	// Auxiliary, if set, is the Items index of this item's master; an
	// "auxl" edge is added. The aux item should also carry an auxC
	// property in Properties (spec §8 scenario 6).
	Auxiliary *int
	// Metadata, if set, is the Items index this metadata item describes;
	// a "cdsc" edge is added (e.g. Exif/XMP items referencing a master).
	Metadata *int

	// Grid, if non-nil, makes this a "grid" derived item: Tiles lists the
	// raster-order Items indices, wired as "dimg" edges and consumed to
	// build the ImageGrid descriptor bytes.
	Grid *GridConfig
	// Overlay, if non-nil, makes this an "iovl" derived item analogously.
	Overlay *OverlayConfig

	// Primary marks this item as the file's primary item (pitm). At most
	// one ItemConfig may set this.
	Primary bool
}

// GridConfig is the raster layout for a "grid" derived item (spec §4.3).
type GridConfig struct {
	RowsMinusOne, ColumnsMinusOne uint8
	OutputWidth, OutputHeight     uint32
	// Tiles are Config.Items indices in raster (row-major) order; its
	// length must equal (RowsMinusOne+1)*(ColumnsMinusOne+1).
	Tiles []int
}

// OverlayConfig is the canvas and per-input placement for an "iovl"
// derived item (spec §4.3).
type OverlayConfig struct {
	CanvasFillR, CanvasFillG, CanvasFillB, CanvasFillA uint16
	OutputWidth, OutputHeight                          uint32
	// Inputs are Config.Items indices, one per Offsets entry, wired as
	// "dimg" edges in list order.
	Inputs  []int
	Offsets []bmff.Offset
}

// Config is the writer's entire declarative input for one file: the
// brand set plus every item to materialize.
type Config struct {
	MajorBrand       string
	CompatibleBrands []string
	Items            []ItemConfig
}
