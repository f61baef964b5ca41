package archer

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// BM25Parameters holds the tuning constants for BM25 scoring, grounded
// on blaze.BM25Parameters.
type BM25Parameters struct {
	K1 float64
	B  float64
}

// DefaultBM25Parameters returns the standard BM25 constants, grounded
// on blaze.DefaultBM25Parameters.
func DefaultBM25Parameters() BM25Parameters {
	return BM25Parameters{K1: 1.5, B: 0.75}
}

// RankingMode selects how Evaluator scores ranking-term matches.
type RankingMode int

const (
	// RankProximity is the source's own ranking formula: a lazy,
	// per-term IDF weight accumulated over the ranking union. Spec §4.K.
	RankProximity RankingMode = iota
	// RankBM25 scores with the standard BM25 formula, grounded on
	// blaze.calculateBM25Score/calculateIDF/RankBM25.
	RankBM25
)

// Match is one scored result document.
type Match struct {
	DocID int
	Score float64
}

// Evaluator drives QueryIndex and ResultAlgebra per Query, producing
// (ranking ∩ inclusion) \ exclusion sorted by score desc, di asc.
// Grounded on spec §4.K.
type Evaluator struct {
	idx  *Index
	qi   *QueryIndex
	Mode RankingMode
	BM25 BM25Parameters
}

// NewEvaluator returns an Evaluator over idx using the proximity
// ranking mode by default.
func NewEvaluator(idx *Index) *Evaluator {
	return &Evaluator{idx: idx, qi: NewQueryIndex(idx), Mode: RankProximity, BM25: DefaultBM25Parameters()}
}

// Evaluate runs q against the index and returns scored matches.
func (e *Evaluator) Evaluate(q *Query) ([]Match, error) {
	e.qi.Reset()

	rankingLists := make([]ResultList, 0, len(q.Ranking))
	for _, t := range q.Ranking {
		rl, err := e.materializeTerm(t)
		if err != nil {
			return nil, err
		}
		rankingLists = append(rankingLists, rl)
	}
	ranking := unionAll(rankingLists)

	inclusionLists := make([]ResultList, 0, len(q.Inclusion))
	for _, t := range q.Inclusion {
		rl, err := e.materializeTerm(t)
		if err != nil {
			return nil, err
		}
		inclusionLists = append(inclusionLists, rl)
	}

	combined := ranking
	if len(inclusionLists) > 0 {
		combined = inclusionLists[0]
		for _, rl := range inclusionLists[1:] {
			combined = Intersection(combined, rl)
		}
		if len(q.Ranking) > 0 {
			combined = Intersection(combined, ranking)
		}
	}

	if len(q.Exclusion) > 0 {
		exclusionLists := make([]ResultList, 0, len(q.Exclusion))
		for _, t := range q.Exclusion {
			rl, err := e.materializeTerm(t)
			if err != nil {
				return nil, err
			}
			exclusionLists = append(exclusionLists, rl)
		}
		excluded := unionAll(exclusionLists)
		allowed := e.invertExcluded(excluded)
		combined = Intersection(combined, allowed)
	}

	return e.score(combined, q), nil
}

func unionAll(lists []ResultList) ResultList {
	if len(lists) == 0 {
		return nil
	}
	out := lists[0]
	for _, rl := range lists[1:] {
		out = Union(out, rl)
	}
	return out
}

// invertExcluded returns every document NOT present in excluded, with
// empty WordOccurrence lists — the ResultTable.Invert path spec §4.K
// describes for exclusion ("invert, then intersect/subtract"), rather
// than Subtract directly: excluded is an arbitrary union and is not
// guaranteed to be a subset of combined, which Subtract requires.
func (e *Evaluator) invertExcluded(excluded ResultList) ResultList {
	table := NewResultTable()
	for _, r := range excluded {
		table.Add(r.DocID, WordOccurrence{})
	}
	universe := e.documentUniverse()
	return table.Invert(universe).ToResultListConsuming()
}

func (e *Evaluator) documentUniverse() *roaring.Bitmap {
	b := roaring.New()
	for i := range e.idx.Documents {
		b.Add(uint32(i))
	}
	return b
}

// materializeTerm scans term to completion and returns its postings
// grouped by document, honoring label restrictions via QueryIndex. A
// term carrying a proximity sub-query is additionally filtered per
// spec §4.K: a document is kept only if some position of term and some
// position of term.Proximity fall within term.Window of each other.
func (e *Evaluator) materializeTerm(term *Term) (ResultList, error) {
	id := e.qi.termID(term)
	if id == -1 {
		return nil, nil
	}
	isLabel := isBareLabel(term)
	table := NewResultTable()
	for {
		di, pi, ok, err := e.qi.Advance(term)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		table.Add(di, WordOccurrence{WordID: id, IsLabel: isLabel, Positions: []int{pi}})
	}
	rl := table.ToResultListConsuming()
	if term.Proximity != nil {
		var err error
		rl, err = e.filterByProximity(rl, id, term)
		if err != nil {
			return nil, err
		}
	}
	return rl, nil
}

// filterByProximity keeps only the documents in rl where term's own
// positions and term.Proximity's positions come within term.Window of
// each other, grounded on spec §4.K's proximity combination rule.
func (e *Evaluator) filterByProximity(rl ResultList, parentID int, term *Term) (ResultList, error) {
	subRL, err := e.materializeTerm(term.Proximity)
	if err != nil {
		return nil, err
	}
	subID := e.qi.termID(term.Proximity)
	subByDoc := make(map[int][]int, len(subRL))
	for _, r := range subRL {
		for _, wo := range r.WOs {
			if wo.WordID == subID && !wo.IsLabel {
				subByDoc[r.DocID] = append(subByDoc[r.DocID], wo.Positions...)
			}
		}
	}

	out := make(ResultList, 0, len(rl))
	for _, r := range rl {
		var parentPositions []int
		for _, wo := range r.WOs {
			if wo.WordID == parentID && !wo.IsLabel {
				parentPositions = append(parentPositions, wo.Positions...)
			}
		}
		if withinWindow(parentPositions, subByDoc[r.DocID], term.Window) {
			out = append(out, r)
		}
	}
	return out, nil
}

// score computes each remaining document's score under the evaluator's
// ranking mode, then sorts by score descending, di ascending.
func (e *Evaluator) score(rl ResultList, q *Query) []Match {
	matches := make([]Match, 0, len(rl))
	for _, r := range rl {
		var s float64
		switch e.Mode {
		case RankBM25:
			s = e.bm25Score(r, q)
		default:
			s = e.proximityScore(r, q)
		}
		matches = append(matches, Match{DocID: r.DocID, Score: s})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].DocID < matches[j].DocID
	})
	return matches
}

// proximityScore accumulates weight * lazy-IDF over every ranking term
// that matched this document — the spec's own ranking formula (§4.K),
// distinct from BM25. A term with a proximity sub-query has already
// been filtered down to documents satisfying the window constraint by
// materializeTerm, so no further gating happens here.
func (e *Evaluator) proximityScore(r Result, q *Query) float64 {
	byWord := make(map[int][]int, len(r.WOs))
	for _, wo := range r.WOs {
		if !wo.IsLabel {
			byWord[wo.WordID] = wo.Positions
		}
	}

	var total float64
	for _, t := range q.Ranking {
		id := e.qi.termID(t)
		if _, ok := byWord[id]; !ok {
			continue
		}
		weight := t.Weight
		if weight == 0 {
			weight = 1
		}
		total += weight * e.idf(id)
	}
	return total
}

func withinWindow(a, b []int, window int) bool {
	if window <= 0 {
		window = 1
	}
	for _, pa := range a {
		for _, pb := range b {
			d := pa - pb
			if d < 0 {
				d = -d
			}
			if d <= window {
				return true
			}
		}
	}
	return false
}

// idf computes a BM25-style inverse document frequency for word id wi
// from its live posting count, grounded on blaze.calculateIDF.
func (e *Evaluator) idf(wi int) float64 {
	n := float64(len(e.idx.Documents))
	df := float64(e.idx.Words.WiCount(wi))
	if n == 0 {
		return 0
	}
	return math.Log((n-df+0.5)/(df+0.5) + 1.0)
}

// bm25Score computes the standard BM25 score for r against q's ranking
// terms, grounded on blaze.calculateBM25Score.
func (e *Evaluator) bm25Score(r Result, q *Query) float64 {
	doc := e.idx.Documents[r.DocID]
	avgLen := e.averageDocLength()
	k1, b := e.BM25.K1, e.BM25.B

	byWord := make(map[int]int, len(r.WOs))
	for _, wo := range r.WOs {
		if !wo.IsLabel {
			byWord[wo.WordID] = len(wo.Positions)
		}
	}

	var total float64
	for _, t := range q.Ranking {
		id := e.qi.termID(t)
		tf, ok := byWord[id]
		if !ok {
			continue
		}
		idf := e.idf(id)
		num := float64(tf) * (k1 + 1)
		den := float64(tf) + k1*(1-b+b*float64(doc.TokenCount)/avgLen)
		total += idf * num / den
	}
	return total
}

func (e *Evaluator) averageDocLength() float64 {
	if len(e.idx.Documents) == 0 {
		return 1
	}
	var sum int
	for _, d := range e.idx.Documents {
		sum += d.TokenCount
	}
	avg := float64(sum) / float64(len(e.idx.Documents))
	if avg == 0 {
		return 1
	}
	return avg
}
