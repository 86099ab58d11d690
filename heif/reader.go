// Package heif implements the reader façade (spec §4.8, C11): a registry
// of ContextIds over a parsed bmff.TopLevel, each either a MetaBox view
// (items, properties, references) or a track view (samples, timing).
package heif

import (
	"fmt"
	"io"
	"sort"

	"github.com/heifbox/heifbox/bmff"
	"github.com/heifbox/heifbox/fourcc"
	"github.com/heifbox/heifbox/heif/sampletable"
	"github.com/heifbox/heifbox/heif/timing"
	"github.com/heifbox/heifbox/heiferr"
)

// ContextId identifies one root-level meta box or track (spec glossary).
// The root meta box, if present, is always context 0; tracks use their
// tkhd.track_id, which ISOBMFF guarantees is never 0.
type ContextId uint32

const rootMetaContextId ContextId = 0

// state is the reader's own small state machine (spec §4.10):
// Uninitialized -> Initializing -> Ready, or -> Failed on a read error.
type state uint8

const (
	stateUninitialized state = iota
	stateInitializing
	stateReady
	stateFailed
)

//go:generate mockgen -destination=readerat_mock_test.go -package=heif io ReaderAt

// Reader is the entry point to the reader façade. Open builds it in one
// pass; every other method requires it to have reached stateReady.
type Reader struct {
	ra    io.ReaderAt
	top   *bmff.TopLevel
	state state

	contexts map[ContextId]*context
	order    []ContextId // insertion order, root meta first when present
}

// context is the per-ContextId view: exactly one of meta/track is set.
type context struct {
	id    ContextId
	meta  *bmff.MetaBox
	track *bmff.TrackBox

	// meta-context derived state
	itemsByID map[uint32]*bmff.ItemInfoEntry
	itemOrder []uint32

	// track-context derived state
	table          *sampletable.Table
	mediaTimescale uint32
	movieTimescale uint32
}

// Open reads ra's top-level boxes and builds the context registry. It
// does not itself validate brand compatibility beyond what
// bmff.ParseFileTypeBox already enforces; callers that need the
// ErrUnsupportedInput brand check should inspect FileType() first.
func Open(ra io.ReaderAt) (*Reader, error) {
	r := &Reader{ra: ra, state: stateInitializing, contexts: map[ContextId]*context{}}
	top, err := bmff.ReadTopLevel(ra)
	if err != nil {
		r.state = stateFailed
		return nil, fmt.Errorf("%w: %v", heiferr.ErrFileReadError, err)
	}
	r.top = top

	if top.Meta != nil {
		ctx := &context{id: rootMetaContextId, meta: top.Meta}
		ctx.indexItems()
		r.contexts[rootMetaContextId] = ctx
		r.order = append(r.order, rootMetaContextId)
	}

	if top.Movie != nil {
		movieTimescale := uint32(0)
		if top.Movie.MovieHeader != nil {
			movieTimescale = top.Movie.MovieHeader.Timescale
		}
		for _, trak := range top.Movie.Tracks {
			if trak.TrackHeader == nil {
				continue
			}
			cid := ContextId(trak.TrackHeader.TrackID)
			ctx := &context{id: cid, track: trak, movieTimescale: movieTimescale}
			if err := ctx.indexTrack(); err != nil {
				r.state = stateFailed
				return nil, err
			}
			r.contexts[cid] = ctx
			r.order = append(r.order, cid)
		}
	}

	r.state = stateReady
	return r, nil
}

func (ctx *context) indexItems() {
	ctx.itemsByID = map[uint32]*bmff.ItemInfoEntry{}
	if ctx.meta.ItemInfo == nil {
		return
	}
	for _, e := range ctx.meta.ItemInfo.Entries {
		ctx.itemsByID[e.ItemID] = e
		ctx.itemOrder = append(ctx.itemOrder, e.ItemID)
	}
}

func (ctx *context) indexTrack() error {
	if ctx.track.Media == nil || ctx.track.Media.MediaInfo == nil || ctx.track.Media.MediaInfo.SampleTable == nil {
		return nil // reference/hint tracks may carry no sample table
	}
	if ctx.track.Media.MediaHeader != nil {
		ctx.mediaTimescale = ctx.track.Media.MediaHeader.Timescale
	}
	table, err := sampletable.New(ctx.track.Media.MediaInfo.SampleTable)
	if err != nil {
		return fmt.Errorf("bmff: track %d: %w", ctx.track.TrackHeader.TrackID, err)
	}
	ctx.table = table
	return nil
}

// Contexts returns every ContextId in registry order (root meta, if any,
// first; then tracks in moov order).
func (r *Reader) Contexts() []ContextId {
	return append([]ContextId(nil), r.order...)
}

func (r *Reader) context(id ContextId) (*context, error) {
	if r.state != stateReady {
		return nil, heiferr.ErrUninitialized
	}
	ctx, ok := r.contexts[id]
	if !ok {
		return nil, heiferr.ErrInvalidContextId
	}
	return ctx, nil
}

// IsMetaContext reports whether ctx is a MetaBox view rather than a track.
func (r *Reader) IsMetaContext(id ContextId) bool {
	ctx, err := r.context(id)
	return err == nil && ctx.meta != nil
}

// PrimaryItem returns the root meta box's primary item id.
func (r *Reader) PrimaryItem(id ContextId) (uint32, error) {
	ctx, err := r.context(id)
	if err != nil {
		return 0, err
	}
	if ctx.meta == nil || ctx.meta.PrimaryItem == nil {
		return 0, heiferr.ErrNotApplicable
	}
	return ctx.meta.PrimaryItem.ItemID, nil
}

// GetItemListByType implements spec §4.8's get_item_list_by_type: for a
// meta context, item ids whose infe.item_type matches typ, in iinf order;
// for a track context, typ selects among "display" (decode-order sample
// indices with an available composition time, i.e. every sample — ordering
// by presentation time is the caller's job via GetItemTimestamps),
// "samples" (every sample, decode order), "out_ref"/"non_out_ref"/
// "out_non_ref" (partition by the "sync"/non-sync classification stss
// gives us, since no richer sample-group grouping_type is assumed here).
func (r *Reader) GetItemListByType(id ContextId, typ string) ([]uint32, error) {
	ctx, err := r.context(id)
	if err != nil {
		return nil, err
	}
	if ctx.meta != nil {
		code := fourcc.New(typ)
		var out []uint32
		for _, itemID := range ctx.itemOrder {
			if ctx.itemsByID[itemID].ItemType == code {
				out = append(out, itemID)
			}
		}
		if len(out) == 0 {
			// typ may name an item reference type ("auxl", "thmb", "cdsc",
			// "dimg", "base", ...) rather than an infe item_type: no item
			// is ever typed "auxl" itself, the "auxl" edge is what marks an
			// item as another's auxiliary. Fall back to the from_item_ids of
			// every iref entry of that type.
			out = ctx.itemsReferencedAs(code)
		}
		return out, nil
	}
	if ctx.table == nil {
		return nil, heiferr.ErrNotApplicable
	}
	n := ctx.table.SampleCount()
	switch typ {
	case "samples", "display":
		out := make([]uint32, n)
		for i := uint32(0); i < n; i++ {
			out[i] = i + 1
		}
		return out, nil
	case "out_ref":
		return syncSamples(ctx.table, n, true), nil
	case "non_out_ref", "out_non_ref":
		return syncSamples(ctx.table, n, false), nil
	}
	return nil, heiferr.ErrInvalidFunctionParameter
}

func syncSamples(table *sampletable.Table, n uint32, wantSync bool) []uint32 {
	var out []uint32
	for i := uint32(1); i <= n; i++ {
		if table.IsSync(i) == wantSync {
			out = append(out, i)
		}
	}
	return out
}

// GetItemTimestamps returns the composed movie-pts -> sample map for a
// track context (spec §4.8 get_item_timestamps / C9), sorted ascending
// by movie timestamp (milliseconds).
func (r *Reader) GetItemTimestamps(id ContextId) ([]timing.Entry, error) {
	ctx, err := r.context(id)
	if err != nil {
		return nil, err
	}
	if ctx.track == nil || ctx.track.Media == nil || ctx.track.Media.MediaInfo == nil {
		return nil, heiferr.ErrNotApplicable
	}
	stbl := ctx.track.Media.MediaInfo.SampleTable
	if stbl == nil || stbl.TimeToSample == nil {
		return nil, heiferr.ErrNotApplicable
	}
	var editList *bmff.EditListBox
	if ctx.track.Edit != nil {
		editList = ctx.track.Edit.EditList
	}
	var trackDuration uint64
	if ctx.track.TrackHeader != nil {
		trackDuration = ctx.track.TrackHeader.Duration
	}
	pmap, _, _ := timing.Compose(stbl.TimeToSample, stbl.CompositionOffset, editList, ctx.mediaTimescale, ctx.movieTimescale, trackDuration, 0)
	ms := timing.ToMilliseconds(pmap, ctx.mediaTimescale)
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Pts < ms[j].Pts })
	return ms, nil
}

// GetItemsInDecodingOrder is get_items_in_decoding_order: plain ascending
// sample-index order, independent of the PMap's presentation ordering.
func (r *Reader) GetItemsInDecodingOrder(id ContextId) ([]uint32, error) {
	return r.GetItemListByType(id, "samples")
}
