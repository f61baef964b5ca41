package archer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWi2PvAddAndNextDiPi(t *testing.T) {
	fp := newTestPVFile(t)
	w := NewWi2Pv(fp, DefaultSegmentOptions())

	if err := w.AddWiDiPi(3, 1, 0); err != nil {
		t.Fatalf("AddWiDiPi: %v", err)
	}
	if err := w.AddWiDiPi(3, 1, 4); err != nil {
		t.Fatalf("AddWiDiPi: %v", err)
	}
	if err := w.AddWiDiPi(3, 2, 0); err != nil {
		t.Fatalf("AddWiDiPi: %v", err)
	}

	w.Rewind()
	want := [][2]int{{1, 0}, {1, 4}, {2, 0}}
	for i, rec := range want {
		di, pi, ok, err := w.NextDiPi(3)
		if err != nil || !ok {
			t.Fatalf("NextDiPi[%d]: ok=%v err=%v", i, ok, err)
		}
		if di != rec[0] || pi != rec[1] {
			t.Fatalf("NextDiPi[%d] = (%d,%d), want (%d,%d)", i, di, pi, rec[0], rec[1])
		}
	}
	if _, _, ok, err := w.NextDiPi(3); err != nil || ok {
		t.Fatalf("expected exhausted stream, ok=%v err=%v", ok, err)
	}
}

func TestWi2PvStubWordReturnsNoResults(t *testing.T) {
	fp := newTestPVFile(t)
	w := NewWi2Pv(fp, DefaultSegmentOptions())

	di, pi, ok, err := w.NextDiPi(42)
	if err != nil {
		t.Fatalf("NextDiPi on never-seen wi: %v", err)
	}
	if ok || di != -1 || pi != -1 {
		t.Fatalf("NextDiPi on stub = (%d,%d,%v), want (-1,-1,false)", di, pi, ok)
	}
	if w.WiCount(42) != 0 {
		t.Fatalf("WiCount on stub = %d, want 0", w.WiCount(42))
	}
}

func TestWi2PvLabeledAppendAndScan(t *testing.T) {
	fp := newTestPVFile(t)
	w := NewWi2Pv(fp, DefaultSegmentOptions())

	if err := w.AddWiDiLiPi(1, 5, []int{2, 9}, 0); err != nil {
		t.Fatalf("AddWiDiLiPi: %v", err)
	}
	w.Rewind()
	di, labels, pi, ok, err := w.NextDiLiPi(1)
	if err != nil || !ok {
		t.Fatalf("NextDiLiPi: ok=%v err=%v", ok, err)
	}
	if di != 5 || pi != 0 {
		t.Fatalf("NextDiLiPi di/pi = %d/%d, want 5/0", di, pi)
	}
	if len(labels) != 2 || labels[0] != 2 || labels[1] != 9 {
		t.Fatalf("NextDiLiPi labels = %v, want [2 9]", labels)
	}
}

func TestWi2PvWriteAndReopenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pvPath := filepath.Join(dir, "pv")
	dirPath := filepath.Join(dir, "wi2pv")

	fp, err := os.Create(pvPath)
	if err != nil {
		t.Fatalf("create pv: %v", err)
	}
	if err := WritePVFileHeader(fp); err != nil {
		t.Fatalf("WritePVFileHeader: %v", err)
	}
	opts := DefaultSegmentOptions()
	w := NewWi2Pv(fp, opts)
	if err := w.AddWiDiPi(0, 1, 0); err != nil {
		t.Fatalf("AddWiDiPi: %v", err)
	}
	// leave wi=1 as a gap/stub
	if err := w.AddWiDiPi(2, 3, 7); err != nil {
		t.Fatalf("AddWiDiPi: %v", err)
	}

	dirFP, err := os.Create(dirPath)
	if err != nil {
		t.Fatalf("create dir file: %v", err)
	}
	if err := w.Write(dirFP); err != nil {
		t.Fatalf("Write: %v", err)
	}
	dirFP.Close()
	fp.Close()

	fp2, err := os.OpenFile(pvPath, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("reopen pv: %v", err)
	}
	t.Cleanup(func() { fp2.Close() })

	reopened, err := NewWi2PvFromFilename(dirPath, fp2, opts)
	if err != nil {
		t.Fatalf("NewWi2PvFromFilename: %v", err)
	}

	if reopened.WiCount(0) != 1 {
		t.Fatalf("WiCount(0) = %d, want 1", reopened.WiCount(0))
	}
	if reopened.WiCount(2) != 1 {
		t.Fatalf("WiCount(2) = %d, want 1", reopened.WiCount(2))
	}

	reopened.Rewind()
	di, pi, ok, err := reopened.NextDiPi(2)
	if err != nil || !ok || di != 3 || pi != 7 {
		t.Fatalf("NextDiPi(2) after reopen = (%d,%d,%v), want (3,7,true); err=%v", di, pi, ok, err)
	}
}
