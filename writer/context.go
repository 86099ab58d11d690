package writer

import "github.com/heifbox/heifbox/bmff"

// WriteContext is the single-owner replacement for the cross-context
// key-value store design notes §9 calls out (the original's process-wide
// `DataServe` mutable map keyed by context ID): one value threaded
// through pass 1 and pass 2 instead of a global registry. It currently
// only ever holds the root MetaBox's item space — this repo never writes
// a track/moov side — but keeps the per-context shape so a second
// capsulation ("trak") could be added without reshaping callers.
type WriteContext struct {
	nextID  uint32
	itemIDs []uint32 // index-aligned with Config.Items

	mdat      []byte
	itemRange map[int][2]int // Items index -> [offset, length) within mdat
}

func newWriteContext(base uint32) *WriteContext {
	if base == 0 {
		base = 1
	}
	return &WriteContext{nextID: base, itemRange: map[int][2]int{}}
}

// allocateID is the ID allocator (spec §5: "a single counter with an
// optional base offset"): every call returns a fresh, never-reused item ID.
func (wc *WriteContext) allocateID() uint32 {
	id := wc.nextID
	wc.nextID++
	return id
}

// itemID returns the previously allocated ItemId for Config.Items[idx].
func (wc *WriteContext) itemID(idx int) uint32 {
	return wc.itemIDs[idx]
}

// putMediaData appends data to the shared mdat payload and records idx's
// extent within it, returning the extent's offset.
func (wc *WriteContext) putMediaData(idx int, data []byte) bmff.Extent {
	off := len(wc.mdat)
	wc.mdat = append(wc.mdat, data...)
	wc.itemRange[idx] = [2]int{off, len(data)}
	return bmff.Extent{Offset: uint64(off), Length: uint64(len(data))}
}
