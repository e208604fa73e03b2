// Package window virtualizes a growing transcript against a finite viewport:
// only the items near the visible region get rendered, everything else is
// represented by measured or estimated extents.
package window

import "sort"

// DefaultEstimate is the assumed extent of an item that has never been
// measured. Real extents replace it as items get rendered.
const DefaultEstimate = 150

// DefaultOverscan is how many items beyond each viewport edge stay mounted
// so small scrolls reveal already-rendered content.
const DefaultOverscan = 5

// Windower tracks item extents and computes the mounted range for a scroll
// position. Extents are keyed by sequence index, not list position, so a
// measurement survives items being filtered in and out around it. Each
// viewer owns its own Windower; the type is not safe for concurrent use.
type Windower struct {
	estimate int
	overscan int
	measured map[uint64]int
	keys     []uint64
	posBySeq map[uint64]int
	offsets  []int
}

// New returns a windower with the given estimate and overscan. Zero values
// select the defaults.
func New(estimate, overscan int) *Windower {
	if estimate <= 0 {
		estimate = DefaultEstimate
	}
	if overscan < 0 {
		overscan = DefaultOverscan
	}
	return &Windower{
		estimate: estimate,
		overscan: overscan,
		measured: make(map[uint64]int),
		posBySeq: make(map[uint64]int),
		offsets:  []int{0},
	}
}

// SetItems replaces the projection with the given sequence indices, in
// display order. Measurements recorded for any of these keys are reused.
func (w *Windower) SetItems(keys []uint64) {
	w.keys = append(w.keys[:0], keys...)

	w.posBySeq = make(map[uint64]int, len(keys))
	for pos, seq := range keys {
		w.posBySeq[seq] = pos
	}

	w.offsets = append(w.offsets[:0], 0)
	for _, seq := range keys {
		w.offsets = append(w.offsets, w.offsets[len(w.offsets)-1]+w.extentOf(seq))
	}
}

// Len returns the number of items in the projection.
func (w *Windower) Len() int {
	return len(w.keys)
}

// KeyAt returns the sequence index at a position.
func (w *Windower) KeyAt(pos int) uint64 {
	return w.keys[pos]
}

// Measure records the rendered extent of an item. Offsets of later items
// shift by the difference; items before the measured one never move. Items
// not currently projected still remember their measurement for when they
// reappear.
func (w *Windower) Measure(seq uint64, extent int) {
	if extent < 0 {
		extent = 0
	}
	old := w.extentOf(seq)
	w.measured[seq] = extent
	if extent == old {
		return
	}

	pos, ok := w.posBySeq[seq]
	if !ok {
		return
	}
	delta := extent - old
	for i := pos + 1; i < len(w.offsets); i++ {
		w.offsets[i] += delta
	}
}

// ExtentOf returns the extent used for the item at a position.
func (w *Windower) ExtentOf(pos int) int {
	return w.extentOf(w.keys[pos])
}

// OffsetOf returns the cumulative offset of the item at a position.
func (w *Windower) OffsetOf(pos int) int {
	return w.offsets[pos]
}

// TotalExtent returns the extent of the whole projection.
func (w *Windower) TotalExtent() int {
	return w.offsets[len(w.offsets)-1]
}

// Range returns the half-open position range [start, end) to mount for a
// viewport of the given extent at scrollTop, including overscan on both
// sides. Binary search over the offset table keeps this cheap for long
// transcripts.
func (w *Windower) Range(scrollTop, viewport int) (int, int) {
	n := len(w.keys)
	if n == 0 {
		return 0, 0
	}
	if scrollTop < 0 {
		scrollTop = 0
	}

	start := sort.Search(n, func(i int) bool {
		return w.offsets[i+1] > scrollTop
	})
	end := sort.Search(n, func(i int) bool {
		return w.offsets[i] >= scrollTop+viewport
	})

	start -= w.overscan
	if start < 0 {
		start = 0
	}
	end += w.overscan
	if end > n {
		end = n
	}
	return start, end
}

func (w *Windower) extentOf(seq uint64) int {
	if extent, ok := w.measured[seq]; ok {
		return extent
	}
	return w.estimate
}
