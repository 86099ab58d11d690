package heif

import (
	"fmt"

	"github.com/heifbox/heifbox/bmff"
	"github.com/heifbox/heifbox/bmff/nal"
	"github.com/heifbox/heifbox/fourcc"
	"github.com/heifbox/heifbox/heiferr"
)

// DecoderParameterSets is the {VPS, SPS, PPS} triple get_decoder_parameter_sets
// returns, each still in its raw NAL payload form (no start code, no length
// prefix) — spec §4.8: "derived from the associated hvcC or avcC".
type DecoderParameterSets struct {
	VPS [][]byte
	SPS [][]byte
	PPS [][]byte
}

func (ctx *context) item(itemID uint32) (*bmff.ItemInfoEntry, error) {
	if ctx.meta == nil {
		return nil, heiferr.ErrNotApplicable
	}
	e, ok := ctx.itemsByID[itemID]
	if !ok {
		return nil, heiferr.ErrInvalidItemId
	}
	return e, nil
}

// isProtected reports protection_index != 0 (spec glossary: Protection index).
func isProtected(e *bmff.ItemInfoEntry) bool {
	return e.ProtectionIndex != 0
}

// locationEntry finds the iloc entry for itemID.
func (ctx *context) locationEntry(itemID uint32) (*bmff.ItemLocationEntry, error) {
	if ctx.meta.ItemLocation == nil {
		return nil, heiferr.ErrInvalidItemId
	}
	for i := range ctx.meta.ItemLocation.Items {
		if ctx.meta.ItemLocation.Items[i].ItemID == itemID {
			return &ctx.meta.ItemLocation.Items[i], nil
		}
	}
	return nil, heiferr.ErrInvalidItemId
}

// readExtents concatenates every extent's bytes for an item location
// entry, resolving construction_method 0 (file offset, read via r.ra) and
// 1 (idat offset, sliced from meta.ItemData). Method 2 (item offset,
// "construction from another item") is not implemented (spec §D).
func (r *Reader) readExtents(ctx *context, loc *bmff.ItemLocationEntry) ([]byte, error) {
	var out []byte
	for _, ext := range loc.Extents {
		switch loc.ConstructionMethod {
		case bmff.ConstructFileOffset:
			buf := make([]byte, ext.Length)
			off := int64(loc.BaseOffset + ext.Offset)
			if _, err := r.ra.ReadAt(buf, off); err != nil {
				return nil, fmt.Errorf("%w: reading item extent at %d: %v", heiferr.ErrFileReadError, off, err)
			}
			out = append(out, buf...)
		case bmff.ConstructIdatOffset:
			if ctx.meta.ItemData == nil {
				return nil, fmt.Errorf("%w: idat construction method with no idat box", heiferr.ErrFileReadError)
			}
			start := loc.BaseOffset + ext.Offset
			end := start + ext.Length
			if end > uint64(len(ctx.meta.ItemData.Data)) {
				return nil, fmt.Errorf("%w: idat extent out of range", heiferr.ErrFileReadError)
			}
			out = append(out, ctx.meta.ItemData.Data[start:end]...)
		default:
			return nil, heiferr.ErrNotApplicable
		}
	}
	return out, nil
}

// hevcConfig finds the hvcC property associated with itemID, if any.
func (ctx *context) hevcConfig(itemID uint32) *bmff.HevcConfigurationBox {
	for _, p := range ctx.propertiesFor(itemID) {
		if hvcc, ok := p.(*bmff.HevcConfigurationBox); ok {
			return hvcc
		}
	}
	return nil
}

func (ctx *context) avcConfig(itemID uint32) *bmff.AvcConfigurationBox {
	for _, p := range ctx.propertiesFor(itemID) {
		if avcc, ok := p.(*bmff.AvcConfigurationBox); ok {
			return avcc
		}
	}
	return nil
}

// propertiesFor resolves itemID's associated properties from ipco/ipma,
// in the order ipma lists them.
func (ctx *context) propertiesFor(itemID uint32) []bmff.Property {
	if ctx.meta.ItemProps == nil || ctx.meta.ItemProps.Container == nil {
		return nil
	}
	var out []bmff.Property
	for _, ipa := range ctx.meta.ItemProps.Associations {
		for _, assoc := range ipa.Entries {
			if assoc.ItemID != itemID {
				continue
			}
			for _, pa := range assoc.Associations {
				idx := int(pa.Index)
				if idx < 1 || idx > len(ctx.meta.ItemProps.Container.Properties) {
					continue
				}
				out = append(out, ctx.meta.ItemProps.Container.Properties[idx-1])
			}
		}
	}
	return out
}

// GetProperties returns every property associated with itemID in a meta
// context, resolved from ipco via ipma (spec §4.8 get_property_*).
func (r *Reader) GetProperties(id ContextId, itemID uint32) ([]bmff.Property, error) {
	ctx, err := r.context(id)
	if err != nil {
		return nil, err
	}
	if _, err := ctx.item(itemID); err != nil {
		return nil, err
	}
	return ctx.propertiesFor(itemID), nil
}

// GetDecoderParameterSets is get_decoder_parameter_sets: VPS/SPS/PPS NAL
// units from the item's hvcC, or SPS/PPS from its avcC (no VPS in AVC).
func (r *Reader) GetDecoderParameterSets(id ContextId, itemID uint32) (*DecoderParameterSets, error) {
	ctx, err := r.context(id)
	if err != nil {
		return nil, err
	}
	if _, err := ctx.item(itemID); err != nil {
		return nil, err
	}
	if hvcc := ctx.hevcConfig(itemID); hvcc != nil {
		return &DecoderParameterSets{
			VPS: hvcc.ParameterSets(uint8(nal.TypeVPS)),
			SPS: hvcc.ParameterSets(uint8(nal.TypeSPS)),
			PPS: hvcc.ParameterSets(uint8(nal.TypePPS)),
		}, nil
	}
	if avcc := ctx.avcConfig(itemID); avcc != nil {
		return &DecoderParameterSets{
			SPS: avcc.ParameterSets(true),
			PPS: avcc.ParameterSets(false),
		}, nil
	}
	return nil, heiferr.ErrNotApplicable
}

// lengthSize returns the sample length-prefix width for itemID's codec,
// defaulting to 4 (the near-universal value) when no configuration
// property is present.
func (ctx *context) lengthSize(itemID uint32) int {
	if hvcc := ctx.hevcConfig(itemID); hvcc != nil {
		return hvcc.LengthSize()
	}
	if avcc := ctx.avcConfig(itemID); avcc != nil {
		return avcc.LengthSize()
	}
	return 4
}

// isParamSetFor returns the right nal.IsParameterSet predicate for
// itemID's codec.
func (ctx *context) isParamSetFor(itemID uint32) func([]byte) bool {
	if ctx.avcConfig(itemID) != nil {
		return nal.AVCIsParameterSet
	}
	return nal.HEVCIsParameterSet
}

// GetItemData is get_item_data: raw item bytes, rewritten from
// length-prefixed to Annex-B start-code form for HEVC image items (spec
// §4.4/§4.8). Protected items are refused.
func (r *Reader) GetItemData(id ContextId, itemID uint32) ([]byte, error) {
	ctx, err := r.context(id)
	if err != nil {
		return nil, err
	}
	entry, err := ctx.item(itemID)
	if err != nil {
		return nil, err
	}
	if isProtected(entry) {
		return nil, heiferr.ErrProtectedItem
	}
	loc, err := ctx.locationEntry(itemID)
	if err != nil {
		return nil, err
	}
	raw, err := r.readExtents(ctx, loc)
	if err != nil {
		return nil, err
	}
	if ctx.hevcConfig(itemID) == nil && ctx.avcConfig(itemID) == nil {
		return raw, nil
	}
	return nal.ToByteStream(raw, ctx.lengthSize(itemID), ctx.isParamSetFor(itemID))
}

// GetItemDataWithDecoderParameters is get_item_data_with_decoder_parameters:
// GetItemData's bytes with VPS/SPS/PPS prepended, each with its own
// start code (spec §4.8).
func (r *Reader) GetItemDataWithDecoderParameters(id ContextId, itemID uint32) ([]byte, error) {
	data, err := r.GetItemData(id, itemID)
	if err != nil {
		return nil, err
	}
	params, err := r.GetDecoderParameterSets(id, itemID)
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, group := range [][][]byte{params.VPS, params.SPS, params.PPS} {
		for _, unit := range group {
			out = append(out, 0x00, 0x00, 0x00, 0x01)
			out = append(out, unit...)
		}
	}
	return append(out, data...), nil
}

// dimgTargets returns the to_item_ids of the "dimg" reference entry whose
// from_item_id is itemID, in list order — the tile/overlay-input order
// for grid and overlay derived images (spec §4.3).
func (ctx *context) dimgTargets(itemID uint32) []uint32 {
	if ctx.meta.ItemReference == nil {
		return nil
	}
	dimg := fourcc.New("dimg")
	for _, e := range ctx.meta.ItemReference.Refs {
		if e.RefType == dimg && e.FromItemID == itemID {
			return e.ToItemIDs
		}
	}
	return nil
}

// itemsReferencedAs returns the deduplicated from_item_ids of every iref
// entry of the given type, in entry order: for "auxl" this is every item
// that IS an auxiliary image (the edge points from the auxiliary item to
// the master it supplements), not the masters it targets.
func (ctx *context) itemsReferencedAs(typ fourcc.Code) []uint32 {
	if ctx.meta.ItemReference == nil {
		return nil
	}
	var out []uint32
	seen := map[uint32]bool{}
	for _, e := range ctx.meta.ItemReference.Refs {
		if e.RefType != typ {
			continue
		}
		if !seen[e.FromItemID] {
			seen[e.FromItemID] = true
			out = append(out, e.FromItemID)
		}
	}
	return out
}

// GetItemGrid is get_item_grid: the parsed ImageGrid descriptor for a
// "grid" item, plus its tile item ids in raster order (spec §4.8).
func (r *Reader) GetItemGrid(id ContextId, itemID uint32) (*bmff.ImageGrid, []uint32, error) {
	ctx, err := r.context(id)
	if err != nil {
		return nil, nil, err
	}
	entry, err := ctx.item(itemID)
	if err != nil {
		return nil, nil, err
	}
	if entry.ItemType != fourcc.New("grid") {
		return nil, nil, heiferr.ErrInvalidItemId
	}
	data, err := r.GetItemData(id, itemID)
	if err != nil {
		return nil, nil, err
	}
	grid, err := bmff.ParseImageGrid(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parsing grid item %d: %v", heiferr.ErrInvalidItemId, itemID, err)
	}
	return grid, ctx.dimgTargets(itemID), nil
}

// GetItemOverlay is get_item_overlay: the parsed ImageOverlay descriptor
// for an "iovl" item, plus its input item ids in offset order (spec §4.8).
func (r *Reader) GetItemOverlay(id ContextId, itemID uint32) (*bmff.ImageOverlay, []uint32, error) {
	ctx, err := r.context(id)
	if err != nil {
		return nil, nil, err
	}
	entry, err := ctx.item(itemID)
	if err != nil {
		return nil, nil, err
	}
	if entry.ItemType != fourcc.New("iovl") {
		return nil, nil, heiferr.ErrInvalidItemId
	}
	targets := ctx.dimgTargets(itemID)
	data, err := r.GetItemData(id, itemID)
	if err != nil {
		return nil, nil, err
	}
	overlay, err := bmff.ParseImageOverlay(data, len(targets))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parsing overlay item %d: %v", heiferr.ErrInvalidItemId, itemID, err)
	}
	return overlay, targets, nil
}

// ItemType returns the infe item_type of itemID in a meta context.
func (r *Reader) ItemType(id ContextId, itemID uint32) (fourcc.Code, error) {
	ctx, err := r.context(id)
	if err != nil {
		return 0, err
	}
	e, err := ctx.item(itemID)
	if err != nil {
		return 0, err
	}
	return e.ItemType, nil
}
