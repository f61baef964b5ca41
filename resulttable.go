package archer

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// ResultTable is sparse query-time scratch space mapping a document id
// to the WordOccurrences accumulated for it so far, before they are
// flattened into a sorted ResultList. Grounded on the operation surface
// named by the original archer_query_table (new/free, invert, empty,
// copy, to_result_list_consuming), implemented as a Go map since the
// document universe a single evaluation touches is expected to be
// sparse relative to the full corpus.
type ResultTable struct {
	slots    map[int][]WordOccurrence
	occupied *roaring.Bitmap
}

// NewResultTable returns an empty table.
func NewResultTable() *ResultTable {
	return &ResultTable{slots: make(map[int][]WordOccurrence), occupied: roaring.New()}
}

// Add records wo against document di, merging into an existing
// WordOccurrence for the same (WordID, IsLabel) pair if one is already
// present for that document, so repeated positions of the same term
// accumulate into one occurrence rather than many.
func (t *ResultTable) Add(di int, wo WordOccurrence) {
	existing := t.slots[di]
	for i := range existing {
		if existing[i].WordID == wo.WordID && existing[i].IsLabel == wo.IsLabel {
			existing[i].Positions = append(existing[i].Positions, wo.Positions...)
			return
		}
	}
	t.slots[di] = append(existing, wo)
	t.occupied.Add(uint32(di))
}

// Empty reports whether no document has been recorded.
func (t *ResultTable) Empty() bool {
	return t.occupied.IsEmpty()
}

// Copy returns an independent deep copy of t.
func (t *ResultTable) Copy() *ResultTable {
	out := NewResultTable()
	for di, wos := range t.slots {
		cloned := make([]WordOccurrence, len(wos))
		for i, wo := range wos {
			cloned[i] = wo.Clone()
		}
		out.slots[di] = cloned
	}
	out.occupied = t.occupied.Clone()
	return out
}

// Invert returns the documents in universe that are NOT present in t,
// each with an empty WordOccurrence list — the scratch-table analogue
// of negating a roaring bitmap, used by the evaluator's exclusion path
// (spec §4.K: exclusion is "invert, then subtract").
func (t *ResultTable) Invert(universe *roaring.Bitmap) *ResultTable {
	out := NewResultTable()
	it := universe.Iterator()
	for it.HasNext() {
		di := it.Next()
		if !t.occupied.Contains(di) {
			out.slots[int(di)] = nil
			out.occupied.Add(di)
		}
	}
	return out
}

// ToResultListConsuming flattens t into a DocID-ascending ResultList,
// sorting each document's WordOccurrences by the same (wi, is_label)
// order ResultAlgebra expects, and leaves t empty.
func (t *ResultTable) ToResultListConsuming() ResultList {
	dis := make([]int, 0, len(t.slots))
	for di := range t.slots {
		dis = append(dis, di)
	}
	sort.Ints(dis)

	out := make(ResultList, 0, len(dis))
	for _, di := range dis {
		wos := t.slots[di]
		sort.Slice(wos, func(i, j int) bool { return woLess(wos[i], wos[j]) })
		out = append(out, Result{DocID: di, WOs: wos})
	}
	t.slots = make(map[int][]WordOccurrence)
	t.occupied = roaring.New()
	return out
}
