package archer

import (
	"os"
	"testing"
)

func newTestPVFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "pv-*.bin")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	if err := WritePVFileHeader(f); err != nil {
		t.Fatalf("WritePVFileHeader: %v", err)
	}
	return f
}

func TestPostingVectorAppendAndReadRoundTrip(t *testing.T) {
	fp := newTestPVFile(t)
	opts := DefaultSegmentOptions()
	pv := NewPostingVector()

	records := [][2]int{{1, 0}, {1, 3}, {2, 0}, {5, 1}}
	for _, r := range records {
		if err := pv.Append(fp, opts, r[0], r[1]); err != nil {
			t.Fatalf("Append(%d,%d): %v", r[0], r[1], err)
		}
	}

	pv.Rewind()
	for i, want := range records {
		di, pi, ok, err := pv.NextDiPi(fp)
		if err != nil {
			t.Fatalf("NextDiPi[%d]: %v", i, err)
		}
		if !ok {
			t.Fatalf("NextDiPi[%d]: unexpected end of stream", i)
		}
		if di != want[0] || pi != want[1] {
			t.Fatalf("NextDiPi[%d] = (%d,%d), want (%d,%d)", i, di, pi, want[0], want[1])
		}
	}
	if _, _, ok, err := pv.NextDiPi(fp); err != nil || ok {
		t.Fatalf("expected end of stream after %d records, ok=%v err=%v", len(records), ok, err)
	}
}

func TestPostingVectorRejectsNonMonotonicAppend(t *testing.T) {
	fp := newTestPVFile(t)
	opts := DefaultSegmentOptions()
	pv := NewPostingVector()

	if err := pv.Append(fp, opts, 5, 2); err != nil {
		t.Fatalf("Append(5,2): %v", err)
	}
	if err := pv.Append(fp, opts, 5, 2); err == nil {
		t.Fatal("expected ErrMonotonicityViolated for a repeated (di, pi)")
	}
	if err := pv.Append(fp, opts, 3, 0); err == nil {
		t.Fatal("expected ErrMonotonicityViolated for a decreasing di")
	}
}

func TestPostingVectorSegmentRollover(t *testing.T) {
	fp := newTestPVFile(t)
	opts := SegmentOptions{MaxSegmentBytes: 8, MaxWordLabels: 32}
	pv := NewPostingVector()

	for i := 0; i < 50; i++ {
		if err := pv.Append(fp, opts, i, 0); err != nil {
			t.Fatalf("Append(%d,0): %v", i, err)
		}
	}
	if pv.Head == pv.Tail {
		t.Fatal("expected multiple chained segments with a tiny MaxSegmentBytes")
	}

	pv.Rewind()
	for i := 0; i < 50; i++ {
		di, _, ok, err := pv.NextDiPi(fp)
		if err != nil || !ok {
			t.Fatalf("NextDiPi[%d]: ok=%v err=%v", i, ok, err)
		}
		if di != i {
			t.Fatalf("NextDiPi[%d] di = %d, want %d", i, di, i)
		}
	}
}

func TestPostingVectorRememberRecallRestoresCursor(t *testing.T) {
	fp := newTestPVFile(t)
	opts := DefaultSegmentOptions()
	pv := NewPostingVector()
	for _, r := range [][2]int{{1, 0}, {2, 0}, {3, 0}} {
		if err := pv.Append(fp, opts, r[0], r[1]); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	pv.Rewind()

	if _, _, _, err := pv.NextDiPi(fp); err != nil {
		t.Fatalf("NextDiPi: %v", err)
	}
	snap := pv.Remember()
	di, _, ok, err := pv.NextDiPi(fp)
	if err != nil || !ok || di != 2 {
		t.Fatalf("NextDiPi peek = (%d, %v), err=%v", di, ok, err)
	}
	pv.Recall(snap)

	di2, _, ok2, err2 := pv.NextDiPi(fp)
	if err2 != nil || !ok2 || di2 != 2 {
		t.Fatalf("NextDiPi after Recall = (%d, %v), want (2, true); err=%v", di2, ok2, err2)
	}
}

func TestPostingVectorRememberRecallRestoresStartedOnFreshStream(t *testing.T) {
	fp := newTestPVFile(t)
	opts := DefaultSegmentOptions()
	pv := NewPostingVector()
	if err := pv.Append(fp, opts, 1, 0); err != nil {
		t.Fatalf("Append: %v", err)
	}
	pv.Rewind()

	// A peek (Remember immediately after Rewind, before any real read,
	// then Recall) must leave the cursor exactly as unstarted as it
	// found it, so the following real read still re-initializes from
	// the head segment instead of treating the stream as exhausted.
	snap := pv.Remember()
	di, _, ok, err := pv.NextDiPi(fp)
	if err != nil || !ok || di != 1 {
		t.Fatalf("peek NextDiPi = (%d, %v), err=%v, want (1, true)", di, ok, err)
	}
	pv.Recall(snap)

	di2, _, ok2, err2 := pv.NextDiPi(fp)
	if err2 != nil || !ok2 || di2 != 1 {
		t.Fatalf("NextDiPi after Recall on a never-started stream = (%d, %v), err=%v, want (1, true)", di2, ok2, err2)
	}
}

func TestPostingVectorFirstSegmentIsNotMistakenForStub(t *testing.T) {
	fp := newTestPVFile(t)
	opts := DefaultSegmentOptions()
	pv := NewPostingVector()

	if err := pv.Append(fp, opts, 1, 0); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if pv.IsStub() {
		t.Fatal("the first word ever appended to a backing file must not read as a stub")
	}
	if pv.Head == 0 {
		t.Fatalf("Head = 0, want a nonzero offset reserved past WritePVFileHeader's magic")
	}
}

func TestPostingVectorLabeledAppendRoundTrip(t *testing.T) {
	fp := newTestPVFile(t)
	opts := DefaultSegmentOptions()
	pv := NewPostingVector()

	if err := pv.AppendLabeled(fp, opts, 1, 0, []int{7, 9}); err != nil {
		t.Fatalf("AppendLabeled: %v", err)
	}
	pv.Rewind()
	di, labels, pi, ok, err := pv.NextDiLiPi(fp)
	if err != nil || !ok {
		t.Fatalf("NextDiLiPi: ok=%v err=%v", ok, err)
	}
	if di != 1 || pi != 0 {
		t.Fatalf("NextDiLiPi di/pi = %d/%d, want 1/0", di, pi)
	}
	if len(labels) != 2 || labels[0] != 7 || labels[1] != 9 {
		t.Fatalf("NextDiLiPi labels = %v, want [7 9]", labels)
	}
}
