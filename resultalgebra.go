package archer

import "sort"

// WordOccurrence is one word (or label) occurrence record within a
// Result: which word/label id, whether it is a label marker, and the
// positions at which it occurs for that document.
type WordOccurrence struct {
	WordID    int
	IsLabel   bool
	Positions []int
}

// Clone deep-copies wo, grounded on bow_array_duplicate_wo.
func (wo WordOccurrence) Clone() WordOccurrence {
	positions := make([]int, len(wo.Positions))
	copy(positions, wo.Positions)
	return WordOccurrence{WordID: wo.WordID, IsLabel: wo.IsLabel, Positions: positions}
}

// woLess orders WordOccurrences by word id ascending, with label
// entries sorted before word entries at equal id — grounded exactly on
// wo_cmp's tie-break ("is_li TRUE sorts before is_li FALSE").
func woLess(a, b WordOccurrence) bool {
	if a.WordID != b.WordID {
		return a.WordID < b.WordID
	}
	if a.IsLabel != b.IsLabel {
		return a.IsLabel
	}
	return false
}

// mergeInt is a two-pointer sorted-int union with de-duplication,
// grounded on merge_int.
func mergeInt(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// mergeWO merges two sorted WordOccurrence slices, combining positions
// of entries that share (WordID, IsLabel), grounded on merge_wo.
func mergeWO(a, b []WordOccurrence) []WordOccurrence {
	out := make([]WordOccurrence, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case woLess(a[i], b[j]):
			out = append(out, a[i].Clone())
			i++
		case woLess(b[j], a[i]):
			out = append(out, b[j].Clone())
			j++
		default:
			out = append(out, WordOccurrence{
				WordID:    a[i].WordID,
				IsLabel:   a[i].IsLabel,
				Positions: mergeInt(a[i].Positions, b[j].Positions),
			})
			i++
			j++
		}
	}
	for ; i < len(a); i++ {
		out = append(out, a[i].Clone())
	}
	for ; j < len(b); j++ {
		out = append(out, b[j].Clone())
	}
	return out
}

// Result holds every WordOccurrence known for one document, used as the
// element type of the sorted-by-di lists that ResultAlgebra combines.
type Result struct {
	DocID int
	WOs   []WordOccurrence
}

// Clone deep-copies r, grounded on bow_array_duplicate + the
// bow_array_duplicate_wo calls it makes per element.
func (r Result) Clone() Result {
	wos := make([]WordOccurrence, len(r.WOs))
	for i, wo := range r.WOs {
		wos[i] = wo.Clone()
	}
	return Result{DocID: r.DocID, WOs: wos}
}

func mergeResult(a, b Result) Result {
	return Result{DocID: a.DocID, WOs: mergeWO(a.WOs, b.WOs)}
}

// ResultList is a document-id-ascending-sorted slice of Result, the
// type every ResultAlgebra operation consumes and produces.
type ResultList []Result

// unionOrIntersection implements both Union and Intersection via a
// single flag, grounded exactly on union_or_intersection: matched `di`s
// always merge; unmatched entries are only carried through when
// unionMode is set.
func unionOrIntersection(a, b ResultList, unionMode bool) ResultList {
	out := make(ResultList, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].DocID < b[j].DocID:
			if unionMode {
				out = append(out, a[i].Clone())
			}
			i++
		case a[i].DocID > b[j].DocID:
			if unionMode {
				out = append(out, b[j].Clone())
			}
			j++
		default:
			out = append(out, mergeResult(a[i], b[j]))
			i++
			j++
		}
	}
	if unionMode {
		for ; i < len(a); i++ {
			out = append(out, a[i].Clone())
		}
		for ; j < len(b); j++ {
			out = append(out, b[j].Clone())
		}
	}
	return out
}

// Intersection returns documents present in both a and b, with their
// WordOccurrences merged. Grounded on archer_query_array_intersection.
func Intersection(a, b ResultList) ResultList {
	return unionOrIntersection(a, b, false)
}

// Union returns every document present in a or b, merging
// WordOccurrences where both contributed. Grounded on
// archer_query_array_union.
func Union(a, b ResultList) ResultList {
	return unionOrIntersection(a, b, true)
}

// Subtract returns the documents of a whose DocID does not appear in b.
// Grounded on archer_query_array_subtract, with the strict `len(a) >
// len(b)` assertion relaxed to `len(a) >= len(b)` (DESIGN.md Open
// Question: subtract(A, A) must yield the empty list, not an
// assertion failure). Every entry of b is still required to match a
// corresponding entry of a — b must be a subset of a's documents — and
// violating that remains an error, since it means b's scan produced a
// document a's scan never visited.
func Subtract(a, b ResultList) (ResultList, error) {
	if len(a) < len(b) {
		return nil, errSubtractShape
	}
	out := make(ResultList, 0, len(a))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].DocID < b[j].DocID {
			out = append(out, a[i].Clone())
			i++
			continue
		}
		if a[i].DocID != b[j].DocID {
			return nil, errSubtractShape
		}
		i++
		j++
	}
	if j < len(b) {
		return nil, errSubtractShape
	}
	for ; i < len(a); i++ {
		out = append(out, a[i].Clone())
	}
	return out, nil
}

var errSubtractShape = wrapFormat("subtract operand b is not a subset of a")

func wrapFormat(msg string) error {
	return &formatErr{msg}
}

type formatErr struct{ msg string }

func (e *formatErr) Error() string { return "archer: " + e.msg }
func (e *formatErr) Unwrap() error { return ErrMonotonicityViolated }

// Append mutates onto by consuming from: if from's first document
// equals onto's last, their WordOccurrences are merged in place;
// otherwise from's Results are appended as deep copies. from must not
// be used after this call, grounded on archer_query_array_append's
// "frees `from` at the end" contract.
func Append(onto ResultList, from ResultList) ResultList {
	if len(from) == 0 {
		return onto
	}
	if len(onto) > 0 && onto[len(onto)-1].DocID == from[0].DocID {
		onto[len(onto)-1] = mergeResult(onto[len(onto)-1], from[0])
		from = from[1:]
	}
	for _, r := range from {
		onto = append(onto, r.Clone())
	}
	return onto
}

// Contains reports whether di appears in rl, grounded on
// archer_query_array_contains.
func Contains(rl ResultList, di int) bool {
	i := sort.Search(len(rl), func(i int) bool { return rl[i].DocID >= di })
	return i < len(rl) && rl[i].DocID == di
}
