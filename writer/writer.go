package writer

import (
	"fmt"

	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/bmff"
	"github.com/heifbox/heifbox/fourcc"
	"github.com/heifbox/heifbox/heiferr"
)

// State is the writer's own state machine (spec §4.10): ConfigLoaded ->
// IDsAssigned -> ReferencesResolved -> MediaDataSerialized ->
// BoxesEmitted -> SizePatched -> Done. Writer errors abort the write
// entirely (spec §4.11: "the writer does not emit a partial file"), so a
// Writer that returns an error from Write is left short of StateDone.
type State uint8

const (
	StateConfigLoaded State = iota
	StateIDsAssigned
	StateReferencesResolved
	StateMediaDataSerialized
	StateBoxesEmitted
	StateSizePatched
	StateDone
)

func (s State) String() string {
	switch s {
	case StateConfigLoaded:
		return "ConfigLoaded"
	case StateIDsAssigned:
		return "IDsAssigned"
	case StateReferencesResolved:
		return "ReferencesResolved"
	case StateMediaDataSerialized:
		return "MediaDataSerialized"
	case StateBoxesEmitted:
		return "BoxesEmitted"
	case StateSizePatched:
		return "SizePatched"
	default:
		return "Done"
	}
}

// Writer drives Config through the two-pass orchestration (spec §4.9,
// C12) to produce one ISOBMFF byte stream.
type Writer struct {
	cfg   *Config
	state State
}

// New returns a Writer in StateConfigLoaded.
func New(cfg *Config) *Writer {
	return &Writer{cfg: cfg, state: StateConfigLoaded}
}

// State reports the writer's current position in its state machine.
func (w *Writer) State() State { return w.state }

// Write runs both passes and returns the complete file bytes: ftyp, then
// meta, then mdat (spec §4.9 pass 2's first ordering option).
func (w *Writer) Write() ([]byte, error) {
	if err := validate(w.cfg); err != nil {
		return nil, err
	}

	wc := newWriteContext(1)

	// Pass 1: identity, property/reference graph, and media data.
	for range w.cfg.Items {
		wc.itemIDs = append(wc.itemIDs, wc.allocateID())
	}
	w.state = StateIDsAssigned

	iref := w.buildReferences(wc)
	w.state = StateReferencesResolved

	ipco := &bmff.ItemPropertyContainerBox{}
	var ipma []bmff.ItemPropertyAssoc
	iinf := &bmff.ItemInfoBox{Version: 0}
	iloc := &bmff.ItemLocationBox{OffsetSize: 4, LengthSize: 4, BaseOffsetSize: 4}
	var primary *bmff.PrimaryItemBox

	for idx, item := range w.cfg.Items {
		id := wc.itemID(idx)

		data, err := w.itemData(wc, idx, item)
		if err != nil {
			return nil, err
		}
		ext := wc.putMediaData(idx, data)
		iloc.Items = append(iloc.Items, bmff.ItemLocationEntry{
			ItemID:             id,
			ConstructionMethod: bmff.ConstructFileOffset,
			Extents:            []bmff.Extent{ext},
		})

		iinf.Entries = append(iinf.Entries, &bmff.ItemInfoEntry{
			FullBox:  bmff.FullBox{Version: 2},
			ItemID:   id,
			ItemType: fourcc.New(item.ItemType),
			Name:     item.Name,
			Hidden:   item.Hidden,
		})

		if assoc := w.propertyAssociation(ipco, item); len(assoc.Associations) > 0 {
			assoc.ItemID = id
			ipma = append(ipma, assoc)
		}

		if item.Primary {
			primary = &bmff.PrimaryItemBox{ItemID: id}
		}
	}
	w.state = StateMediaDataSerialized

	ipma0 := &bmff.ItemPropertyAssociation{Entries: ipma}
	iprp := &bmff.ItemPropertiesBox{Container: ipco, Associations: []*bmff.ItemPropertyAssociation{ipma0}}

	meta := &bmff.MetaBox{
		Handler:       &bmff.HandlerBox{HandlerType: fourcc.New("pict")},
		PrimaryItem:   primary,
		ItemLocation:  iloc,
		ItemInfo:      iinf,
		ItemReference: iref,
		ItemProps:     iprp,
	}
	ftyp := w.buildFileType()

	// Pass 2: serialize. Dry-run ftyp+meta to learn mdat's absolute
	// payload offset, then patch base_offset and serialize for real.
	dry := bitio.NewWriter()
	if err := ftyp.Write(dry); err != nil {
		return nil, fmt.Errorf("writer: ftyp: %w", err)
	}
	if err := meta.Write(dry); err != nil {
		return nil, fmt.Errorf("writer: meta: %w", err)
	}
	w.state = StateBoxesEmitted

	const mdatHeaderLen = 16 // MediaDataBox always reserves the large-size slot
	payloadOffset := uint64(dry.Pos() + mdatHeaderLen)
	for i := range iloc.Items {
		iloc.Items[i].BaseOffset = payloadOffset
	}
	w.state = StateSizePatched

	out := bitio.NewWriter()
	if err := ftyp.Write(out); err != nil {
		return nil, fmt.Errorf("writer: ftyp: %w", err)
	}
	if err := meta.Write(out); err != nil {
		return nil, fmt.Errorf("writer: meta: %w", err)
	}
	if out.Pos() != dry.Pos() {
		return nil, fmt.Errorf("%w: meta size changed between passes (%d vs %d bytes)",
			heiferr.ErrWriterValidation, out.Pos(), dry.Pos())
	}
	mdat := &bmff.MediaDataBox{Data: wc.mdat}
	if err := mdat.Write(out); err != nil {
		return nil, fmt.Errorf("writer: mdat: %w", err)
	}
	out.Finalize()

	w.state = StateDone
	return out.Bytes(), nil
}

// itemData returns the raw bytes to place in mdat for item idx, deriving
// Grid/Overlay descriptors from their config rather than Data.
func (w *Writer) itemData(wc *WriteContext, idx int, item ItemConfig) ([]byte, error) {
	switch {
	case item.Grid != nil:
		g := &bmff.ImageGrid{
			RowsMinusOne:    item.Grid.RowsMinusOne,
			ColumnsMinusOne: item.Grid.ColumnsMinusOne,
			OutputWidth:     item.Grid.OutputWidth,
			OutputHeight:    item.Grid.OutputHeight,
		}
		data, err := g.Marshal()
		if err != nil {
			return nil, fmt.Errorf("writer: item %d grid: %w", idx, err)
		}
		return data, nil
	case item.Overlay != nil:
		o := &bmff.ImageOverlay{
			CanvasFillR: item.Overlay.CanvasFillR, CanvasFillG: item.Overlay.CanvasFillG,
			CanvasFillB: item.Overlay.CanvasFillB, CanvasFillA: item.Overlay.CanvasFillA,
			OutputWidth: item.Overlay.OutputWidth, OutputHeight: item.Overlay.OutputHeight,
			Offsets: item.Overlay.Offsets,
		}
		data, err := o.Marshal()
		if err != nil {
			return nil, fmt.Errorf("writer: item %d overlay: %w", idx, err)
		}
		return data, nil
	default:
		return item.Data, nil
	}
}

// buildReferences materializes thmb/auxl/cdsc/dimg edges (spec §4.9 pass 1).
func (w *Writer) buildReferences(wc *WriteContext) *bmff.ItemReferenceBox {
	iref := &bmff.ItemReferenceBox{}
	for idx, item := range w.cfg.Items {
		id := wc.itemID(idx)
		if item.Thumbnail != nil {
			iref.AddReference(fourcc.New("thmb"), id, wc.itemID(*item.Thumbnail))
		}
		if item.Auxiliary != nil {
			iref.AddReference(fourcc.New("auxl"), id, wc.itemID(*item.Auxiliary))
		}
		if item.Metadata != nil {
			iref.AddReference(fourcc.New("cdsc"), id, wc.itemID(*item.Metadata))
		}
		if item.Grid != nil {
			for _, tileIdx := range item.Grid.Tiles {
				iref.AddReference(fourcc.New("dimg"), id, wc.itemID(tileIdx))
			}
		}
		if item.Overlay != nil {
			for _, inputIdx := range item.Overlay.Inputs {
				iref.AddReference(fourcc.New("dimg"), id, wc.itemID(inputIdx))
			}
		}
	}
	if len(iref.Refs) == 0 {
		return nil
	}
	return iref
}

// propertyAssociation appends item's properties to ipco and returns the
// ipma entry linking them, leaving ItemID for the caller to fill in.
func (w *Writer) propertyAssociation(ipco *bmff.ItemPropertyContainerBox, item ItemConfig) bmff.ItemPropertyAssoc {
	var entry bmff.ItemPropertyAssoc
	for i, p := range item.Properties {
		idx := ipco.AddProperty(p)
		essential := i < len(item.Essential) && item.Essential[i]
		entry.Associations = append(entry.Associations, bmff.PropertyAssociation{
			Essential: essential,
			Index:     uint16(idx),
		})
	}
	return entry
}

func (w *Writer) buildFileType() *bmff.FileTypeBox {
	major := w.cfg.MajorBrand
	if major == "" {
		major = "heic"
	}
	compat := w.cfg.CompatibleBrands
	if len(compat) == 0 {
		compat = []string{"mif1", "heic"}
	}
	ft := &bmff.FileTypeBox{MajorBrand: fourcc.New(major), MinorVersion: 0}
	for _, b := range compat {
		ft.CompatibleBrands = append(ft.CompatibleBrands, fourcc.New(b))
	}
	return ft
}

// validate enforces the invariants the writer refuses to silently paper
// over (spec §9's note that a conformant writer must refuse an
// unresolvable primary item, generalized to the rest of the index-based
// reference fields here).
func validate(cfg *Config) error {
	n := len(cfg.Items)
	primaryCount := 0
	inRange := func(idx int) bool { return idx >= 0 && idx < n }
	for i, item := range cfg.Items {
		if item.Primary {
			primaryCount++
		}
		for _, ref := range []struct {
			name string
			idx  *int
		}{{"thumbnail", item.Thumbnail}, {"auxiliary", item.Auxiliary}, {"metadata", item.Metadata}} {
			if ref.idx != nil && !inRange(*ref.idx) {
				return fmt.Errorf("%w: item %d: %s index %d out of range", heiferr.ErrWriterValidation, i, ref.name, *ref.idx)
			}
		}
		if item.Grid != nil {
			want := (int(item.Grid.RowsMinusOne) + 1) * (int(item.Grid.ColumnsMinusOne) + 1)
			if len(item.Grid.Tiles) != want {
				return fmt.Errorf("%w: item %d: grid declares %d tiles but lists %d",
					heiferr.ErrWriterValidation, i, want, len(item.Grid.Tiles))
			}
			for _, t := range item.Grid.Tiles {
				if !inRange(t) {
					return fmt.Errorf("%w: item %d: grid tile index %d out of range", heiferr.ErrWriterValidation, i, t)
				}
			}
		}
		if item.Overlay != nil {
			if len(item.Overlay.Inputs) != len(item.Overlay.Offsets) {
				return fmt.Errorf("%w: item %d: overlay has %d inputs but %d offsets",
					heiferr.ErrWriterValidation, i, len(item.Overlay.Inputs), len(item.Overlay.Offsets))
			}
			for _, t := range item.Overlay.Inputs {
				if !inRange(t) {
					return fmt.Errorf("%w: item %d: overlay input index %d out of range", heiferr.ErrWriterValidation, i, t)
				}
			}
		}
	}
	if primaryCount > 1 {
		return fmt.Errorf("%w: more than one item marked Primary", heiferr.ErrWriterValidation)
	}
	return nil
}
