package archer

import "fmt"

// QueryIndex provides the cursor primitives evaluation is built on:
// scanning forward through a term's postings while honoring label
// restrictions, grounded file-for-file on archer_query_index.c.
type QueryIndex struct {
	idx *Index
}

// NewQueryIndex returns a QueryIndex over idx.
func NewQueryIndex(idx *Index) *QueryIndex {
	return &QueryIndex{idx: idx}
}

// Reset rewinds both the word and label directories, grounded on
// archer_query_index_reset.
func (q *QueryIndex) Reset() {
	q.idx.Words.Rewind()
	q.idx.Labels.Rewind()
}

// termID resolves term to a word id or, for a bare label term, a label
// id, grounded on archer_query_term_id. Returns -1 if unresolved.
func (q *QueryIndex) termID(term *Term) int {
	if term.Word != "" {
		id, ok := q.idx.WordIntern.Lookup(term.Word)
		if !ok {
			return -1
		}
		return id
	}
	if len(term.Labels) == 0 {
		return -1
	}
	id, ok := q.idx.LabelIntern.Lookup(term.Labels[0])
	if !ok {
		return -1
	}
	return id
}

// isBareLabel reports whether term has no word, grounded on
// archer_query_bare_label.
func isBareLabel(term *Term) bool { return term.Word == "" }

// prolog resolves term to its directory and id, grounded on
// archer_query_prolog.
func (q *QueryIndex) prolog(term *Term) (dir *Wi2Pv, id int, isLabel bool) {
	id = q.termID(term)
	if id == -1 {
		return nil, -1, false
	}
	isLabel = isBareLabel(term)
	if isLabel {
		return q.idx.Labels, id, true
	}
	return q.idx.Words, id, false
}

// scanMatch advances fp forward, record by record, until it finds one
// matching term (for bare-label terms every posting is a match; for word
// terms every label in term.Labels must be present on the occurrence's
// label set), or exhausts the stream. It always leaves the cursor
// exactly where it lands — callers decide whether to keep that advance
// (Advance) or undo it (NextDiPi's peek).
func scanMatch(pv *PostingVector, fp pvFile, term *Term, isLabel bool, idx *Index) (di, pi int, ok bool, err error) {
	if isLabel {
		di, _, pi, ok, err = pv.NextDiLiPi(fp)
		return
	}
	for {
		var lis []int
		di, lis, pi, ok, err = pv.NextDiLiPi(fp)
		if err != nil || !ok {
			return
		}
		if labelsAllPresent(idx, term.Labels, lis) {
			return
		}
	}
}

// NextDiPi scans forward from the current position for the next (di, pi)
// matching term without disturbing the read cursor, grounded on
// archer_query_index_next_di_pi, including its remember/recall
// discipline: the source restores the cursor unconditionally at exit, so
// this is a peek, not an advance. CurrentDi/CurrentPositions use it that
// way, driving real progress with their own direct reads;
// Advance is the consuming counterpart the evaluator scans with.
func (q *QueryIndex) NextDiPi(term *Term) (di, pi int, ok bool, err error) {
	dir, id, isLabel := q.prolog(term)
	if id == -1 {
		return -1, -1, false, nil
	}
	pv, exists := dir.PV(id)
	if !exists {
		return -1, -1, false, nil
	}
	fp := dir.File()

	snap := pv.Remember()
	di, pi, ok, err = scanMatch(pv, fp, term, isLabel, q.idx)
	pv.Recall(snap)
	return
}

// Advance is NextDiPi's consuming counterpart: it scans forward the same
// way but commits the cursor to wherever the match (or end of stream)
// was found, so repeated calls walk through every matching occurrence
// exactly once. This is the primitive the evaluator's materializeTerm
// drives its per-term scan with (spec §4.K's iterator path); it has no
// direct analogue in archer_query_index.c because the source's callers
// each perform their own direct consuming reads instead of sharing one.
func (q *QueryIndex) Advance(term *Term) (di, pi int, ok bool, err error) {
	dir, id, isLabel := q.prolog(term)
	if id == -1 {
		return -1, -1, false, nil
	}
	pv, exists := dir.PV(id)
	if !exists {
		return -1, -1, false, nil
	}
	return scanMatch(pv, dir.File(), term, isLabel, q.idx)
}

// labelsAllPresent reports whether every name in required resolves to a
// label id present in got.
func labelsAllPresent(idx *Index, required []string, got []int) bool {
	for _, name := range required {
		li, ok := idx.LabelIntern.Lookup(name)
		if !ok {
			return false
		}
		found := false
		for _, g := range got {
			if g == li {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// NextDi scans forward for the next di that differs from the last one
// returned and carries at least one record matching term, leaving the
// read cursor on the first record of the document group that follows it.
// Grounded on archer_query_index_next_di, reworked to scan entire
// same-di record groups for a match (the source's version compares only
// a single peeked record per document, which misses documents whose
// matching position is not the first one written for them).
func (q *QueryIndex) NextDi(term *Term) (di int, ok bool, err error) {
	dir, id, isLabel := q.prolog(term)
	if id == -1 {
		return -1, false, nil
	}
	pv, exists := dir.PV(id)
	if !exists {
		return -1, false, nil
	}
	fp := dir.File()

	exclude := pv.readLastDi
	haveGroup := false
	groupDi := -1
	groupMatched := false

	for {
		snap := pv.Remember()
		d, lis, _, ok2, err2 := pv.NextDiLiPi(fp)
		if err2 != nil {
			return -1, false, err2
		}
		if !ok2 {
			if haveGroup && groupMatched && groupDi != exclude {
				return groupDi, true, nil
			}
			return -1, false, nil
		}

		if haveGroup && d != groupDi {
			if groupMatched && groupDi != exclude {
				pv.Unnext(snap)
				return groupDi, true, nil
			}
			haveGroup = false
		}

		matched := isLabel || labelsAllPresent(q.idx, term.Labels, lis)
		if !haveGroup {
			haveGroup, groupDi, groupMatched = true, d, matched
		} else {
			groupMatched = groupMatched || matched
		}
	}
}

// CurrentDi returns the document id the read cursor currently sits on
// without moving the cursor. If nothing has been read yet, it first
// checks with the NextDiPi peek that a matching record exists.
// Grounded on archer_query_index_current_di.
func (q *QueryIndex) CurrentDi(term *Term) (di int, ok bool, err error) {
	dir, id, _ := q.prolog(term)
	if id == -1 {
		return -1, false, nil
	}
	pv, exists := dir.PV(id)
	if !exists {
		return -1, false, nil
	}
	fp := dir.File()

	if pv.readLastDi < 0 {
		if _, _, ok2, err := q.NextDiPi(term); err != nil {
			return -1, false, err
		} else if !ok2 {
			return -1, false, nil
		}
	}

	snap := pv.Remember()
	di, _, _, ok, err = pv.NextDiLiPi(fp)
	pv.Recall(snap)
	return
}

// CurrentPositions returns every valid position for the document the
// cursor currently sits on. For word terms this is one position per
// occurrence; for label terms each occurrence is a boundary-marker pair
// bracketing a half-open extent [pi, npi), and every integer in that
// range is returned. Grounded on archer_query_index_current_pis, with
// the empty-extent case (npi == pi) treated as zero positions instead
// of an assertion failure (DESIGN.md Open Question: npi == pi is a
// valid, merely useless, annotation — not corrupt data).
func (q *QueryIndex) CurrentPositions(term *Term) ([]int, error) {
	dir, id, isLabel := q.prolog(term)
	if id == -1 {
		return nil, nil
	}
	pv, exists := dir.PV(id)
	if !exists {
		return nil, nil
	}
	fp := dir.File()

	currentDi, ok, err := q.CurrentDi(term)
	if err != nil || !ok {
		return nil, err
	}

	snap := pv.Remember()
	defer pv.Recall(snap)

	var result []int
	di, _, pi, ok, err := pv.NextDiLiPi(fp)
	if err != nil {
		return nil, err
	}
	for ok && di == currentDi {
		if !isLabel {
			result = append(result, pi)
			di, _, pi, ok, err = pv.NextDiLiPi(fp)
			if err != nil {
				return nil, err
			}
			continue
		}

		ndi, _, npi, ok2, err := q.NextDiPi(term)
		if err != nil {
			return nil, err
		}
		if !ok2 {
			break
		}
		if ndi != currentDi {
			return nil, fmt.Errorf("%w: label extent spans documents", ErrFormat)
		}
		for j := pi; j < npi; j++ {
			result = append(result, j)
		}
		// Consume the closing marker just peeked, then read the next
		// opening marker.
		if _, _, _, _, err := pv.NextDiLiPi(fp); err != nil {
			return nil, err
		}
		di, _, pi, ok, err = pv.NextDiLiPi(fp)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
