package archer

import "testing"

func occ(wi int, isLabel bool, positions ...int) WordOccurrence {
	return WordOccurrence{WordID: wi, IsLabel: isLabel, Positions: positions}
}

func result(di int, wos ...WordOccurrence) Result {
	return Result{DocID: di, WOs: wos}
}

func TestWoLessOrdersLabelsBeforeWordsAtEqualID(t *testing.T) {
	label := occ(3, true, 1)
	word := occ(3, false, 1)

	if !woLess(label, word) {
		t.Fatalf("expected label entry to sort before word entry at equal word id")
	}
	if woLess(word, label) {
		t.Fatalf("word entry must not sort before label entry at equal word id")
	}
}

func TestMergeIntDeduplicates(t *testing.T) {
	got := mergeInt([]int{1, 3, 5}, []int{2, 3, 4})
	want := []int{1, 2, 3, 4, 5}
	if !intSliceEqual(got, want) {
		t.Fatalf("mergeInt = %v, want %v", got, want)
	}
}

func TestIntersectionKeepsOnlySharedDocuments(t *testing.T) {
	a := ResultList{result(1, occ(10, false, 0)), result(2, occ(10, false, 1))}
	b := ResultList{result(2, occ(11, false, 5)), result(3, occ(11, false, 6))}

	got := Intersection(a, b)
	if len(got) != 1 || got[0].DocID != 2 {
		t.Fatalf("Intersection = %+v, want single Result for DocID 2", got)
	}
	if len(got[0].WOs) != 2 {
		t.Fatalf("expected merged WordOccurrences from both sides, got %+v", got[0].WOs)
	}
}

func TestUnionKeepsEveryDocument(t *testing.T) {
	a := ResultList{result(1, occ(10, false, 0))}
	b := ResultList{result(2, occ(11, false, 1))}

	got := Union(a, b)
	if len(got) != 2 {
		t.Fatalf("Union length = %d, want 2", len(got))
	}
}

func TestSubtractRemovesMatchingDocuments(t *testing.T) {
	a := ResultList{result(1, occ(1, false, 0)), result(2, occ(1, false, 1)), result(3, occ(1, false, 2))}
	b := ResultList{result(2, occ(1, false, 1))}

	got, err := Subtract(a, b)
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	if len(got) != 2 || got[0].DocID != 1 || got[1].DocID != 3 {
		t.Fatalf("Subtract = %+v, want documents 1 and 3", got)
	}
}

// TestSubtractSelfIsEmpty exercises the Open Question decision recorded
// in DESIGN.md: subtract(A, A) must yield an empty list rather than
// fail an |A| > |B| assertion.
func TestSubtractSelfIsEmpty(t *testing.T) {
	a := ResultList{result(1, occ(1, false, 0)), result(2, occ(1, false, 1))}

	got, err := Subtract(a, a)
	if err != nil {
		t.Fatalf("Subtract(A, A): %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Subtract(A, A) = %+v, want empty", got)
	}
}

func TestSubtractRejectsNonSubsetB(t *testing.T) {
	a := ResultList{result(1, occ(1, false, 0))}
	b := ResultList{result(2, occ(1, false, 0))}

	if _, err := Subtract(a, b); err == nil {
		t.Fatalf("expected error when b is not a subset of a")
	}
}

func TestAppendMergesMatchingTailDocument(t *testing.T) {
	onto := ResultList{result(1, occ(1, false, 0))}
	from := ResultList{result(1, occ(2, false, 5)), result(2, occ(1, false, 0))}

	got := Append(onto, from)
	if len(got) != 2 {
		t.Fatalf("Append length = %d, want 2", len(got))
	}
	if len(got[0].WOs) != 2 {
		t.Fatalf("expected tail document's WordOccurrences merged, got %+v", got[0].WOs)
	}
}

func TestAppendWithDisjointDocumentsJustConcatenates(t *testing.T) {
	onto := ResultList{result(1, occ(1, false, 0))}
	from := ResultList{result(5, occ(1, false, 0))}

	got := Append(onto, from)
	if len(got) != 2 || got[1].DocID != 5 {
		t.Fatalf("Append = %+v, want [1, 5]", got)
	}
}

func TestContains(t *testing.T) {
	rl := ResultList{result(1), result(4), result(9)}
	if !Contains(rl, 4) {
		t.Error("Contains(rl, 4) = false, want true")
	}
	if Contains(rl, 5) {
		t.Error("Contains(rl, 5) = true, want false")
	}
}

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
