package archer

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/RoaringBitmap/roaring"
)

const wi2pvMagic = "ARW2"

// Wi2Pv is the directory mapping word (or label) ids to posting-vector
// head/tail metadata, grounded file-for-file on the original's
// bow_wi2pv: a doubling-growth array of per-id PV headers sharing one
// backing posting file, with "stub" entries for ids that have not yet
// been written (bow_wi2pv_new_from_filename's gap marking,
// bow_wi2pv_write_entry's gap-filling on write).
type Wi2Pv struct {
	entries  *GrowVec[*PostingVector]
	fp       *os.File
	opts     SegmentOptions
	nextWord int // bow_wi2pv's next_word: entries < nextWord have been written to the directory file
	live     *roaring.Bitmap
}

// NewWi2Pv creates an empty directory backed by fp (already open for
// read/write), grounded on bow_wi2pv_new.
func NewWi2Pv(fp *os.File, opts SegmentOptions) *Wi2Pv {
	return &Wi2Pv{
		entries: NewGrowVec[*PostingVector](64),
		fp:      fp,
		opts:    opts,
		live:    roaring.New(),
	}
}

func (w *Wi2Pv) ensureEntry(wi int) *PostingVector {
	for w.entries.Len() <= wi {
		w.entries.Append(nil) // stub: count == -1 equivalent is "nil pointer" here
	}
	if w.entries.At(wi) == nil {
		w.entries.Set(wi, NewPostingVector())
	}
	return w.entries.At(wi)
}

// AddWiDiPi appends an unlabeled (di, pi) occurrence for word id wi,
// grounded on bow_wi2pv_add_wi_di_pi.
func (w *Wi2Pv) AddWiDiPi(wi, di, pi int) error {
	pv := w.ensureEntry(wi)
	if err := pv.Append(w.fp, w.opts, di, pi); err != nil {
		return err
	}
	w.live.Add(uint32(wi))
	return nil
}

// AddWiDiLiPi appends a labeled occurrence, grounded on
// bow_wi2pv_add_wi_di_li_pi. The source asserts di >= write_last_di for
// this labeled-append path; PostingVector.appendRecord already enforces
// the stricter (di, pi) lexicographic monotonicity, which subsumes it.
func (w *Wi2Pv) AddWiDiLiPi(wi, di int, labels []int, pi int) error {
	pv := w.ensureEntry(wi)
	if err := pv.AppendLabeled(w.fp, w.opts, di, pi, labels); err != nil {
		return err
	}
	w.live.Add(uint32(wi))
	return nil
}

// entryOrStub returns the PV for wi without creating it, or nil and
// false if wi is out of range or stub.
func (w *Wi2Pv) entryOrStub(wi int) (*PostingVector, bool) {
	if wi < 0 || wi >= w.entries.Len() {
		return nil, false
	}
	pv := w.entries.At(wi)
	if pv == nil || pv.IsStub() {
		return nil, false
	}
	return pv, true
}

// NextDiPi is bow_wi2pv_wi_next_di_pi: di == -1 on out-of-range or stub.
func (w *Wi2Pv) NextDiPi(wi int) (di, pi int, ok bool, err error) {
	pv, exists := w.entryOrStub(wi)
	if !exists {
		return -1, -1, false, nil
	}
	return pv.NextDiPi(w.fp)
}

// NextDiLiPi is bow_wi2pv_wi_next_di_li_pi.
func (w *Wi2Pv) NextDiLiPi(wi int) (di int, labels []int, pi int, ok bool, err error) {
	pv, exists := w.entryOrStub(wi)
	if !exists {
		return -1, nil, -1, false, nil
	}
	return pv.NextDiLiPi(w.fp)
}

// Rewind resets every non-stub, non-empty PV's read cursor to its head,
// grounded on bow_wi2pv_rewind (which explicitly skips stubs AND
// zero-count entries).
func (w *Wi2Pv) Rewind() {
	for i := 0; i < w.entries.Len(); i++ {
		pv := w.entries.At(i)
		if pv == nil || pv.Count == 0 {
			continue
		}
		pv.Rewind()
	}
}

// WiUnnext rewinds wi's read cursor by one record using a previously
// captured snapshot, grounded on bow_wi2pv_wi_unnext.
func (w *Wi2Pv) WiUnnext(wi int, s cursorSnapshot) {
	if pv, ok := w.entryOrStub(wi); ok {
		pv.Unnext(s)
	}
}

// WiCount returns the number of records recorded for wi, 0 for a stub.
func (w *Wi2Pv) WiCount(wi int) int64 {
	pv, ok := w.entryOrStub(wi)
	if !ok {
		return 0
	}
	return pv.Count
}

// LiveWordIDs returns the ids that have ever had anything appended.
func (w *Wi2Pv) LiveWordIDs() *roaring.Bitmap {
	return w.live.Clone()
}

// PV returns the raw header for wi, or nil and false if wi is out of
// range or stub (no entry is created), for use by QueryIndex, which needs both the header and the shared
// file handle per the archer_query_prolog split.
func (w *Wi2Pv) PV(wi int) (*PostingVector, bool) {
	return w.entryOrStub(wi)
}

// File returns the shared backing file.
func (w *Wi2Pv) File() *os.File { return w.fp }

// wi2pvEntryRecord is the on-disk shape of one directory entry.
type wi2pvEntryRecord struct {
	head, tail, count int64
}

// WriteEntry serializes the directory up through word id wi, writing
// stub records for any skipped ids in between (bow_wi2pv_write_entry's
// "while (wi > wi2pv->next_word++)" gap-fill loop) and advancing
// nextWord. out is a destination separate from the posting file itself —
// callers typically call WriteEntry for every live id in order, then
// Write to finalize the header.
func (w *Wi2Pv) WriteEntry(out *os.File, wi int) error {
	for wi > w.nextWord {
		if err := writeWi2PvEntryRecord(out, wi2pvEntryRecord{}); err != nil {
			return err
		}
		w.nextWord++
	}
	pv, _ := w.entryOrStub(wi)
	rec := wi2pvEntryRecord{}
	if pv != nil {
		rec = wi2pvEntryRecord{head: pv.Head, tail: pv.Tail, count: pv.Count}
	}
	if err := writeWi2PvEntryRecord(out, rec); err != nil {
		return err
	}
	w.nextWord++
	return nil
}

func writeWi2PvEntryRecord(out *os.File, rec wi2pvEntryRecord) error {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(rec.head))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(rec.tail))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(rec.count))
	_, err := out.Write(buf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// Write serializes the full directory to out: header, then one entry
// per known word id, then the header again to finalize entry_count and
// next_word — mirroring bow_wi2pv_write's header / entries /
// header-again structure. Like the source, this assumes no gaps remain
// beyond what WriteEntry has already filled.
func (w *Wi2Pv) Write(out *os.File) error {
	if err := w.writeHeader(out); err != nil {
		return err
	}
	for wi := 0; wi < w.entries.Len(); wi++ {
		if err := w.WriteEntry(out, wi); err != nil {
			return err
		}
	}
	if _, err := out.Seek(0, 0); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return w.writeHeader(out)
}

func (w *Wi2Pv) writeHeader(out *os.File) error {
	if _, err := out.WriteString(wi2pvMagic); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(w.entries.Len()))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(w.nextWord))
	if _, err := out.Write(buf); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// NewWi2PvFromFilename reopens a directory previously written by Write,
// marking ids in [nextWord, entryCount) as stub, grounded on
// bow_wi2pv_new_from_filename.
func NewWi2PvFromFilename(dirPath string, fp *os.File, opts SegmentOptions) (*Wi2Pv, error) {
	in, err := os.Open(dirPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer in.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(in, magic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if string(magic) != wi2pvMagic {
		return nil, fmt.Errorf("%w: bad wi2pv magic", ErrFormat)
	}
	hdr := make([]byte, 8)
	if _, err := io.ReadFull(in, hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	entryCount := int(binary.LittleEndian.Uint32(hdr[0:4]))
	nextWord := int(binary.LittleEndian.Uint32(hdr[4:8]))

	w := NewWi2Pv(fp, opts)
	w.nextWord = nextWord
	for wi := 0; wi < entryCount; wi++ {
		rec := make([]byte, 24)
		if _, err := io.ReadFull(in, rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIO, err)
		}
		if wi >= nextWord {
			w.entries.Append(nil) // stub, per bow_wi2pv_new_from_filename
			continue
		}
		pv := NewPostingVector()
		pv.Head = int64(binary.LittleEndian.Uint64(rec[0:8]))
		pv.Tail = int64(binary.LittleEndian.Uint64(rec[8:16]))
		pv.Count = int64(binary.LittleEndian.Uint64(rec[16:24]))
		w.entries.Append(pv)
		if pv.Count > 0 {
			w.live.Add(uint32(wi))
		}
	}
	return w, nil
}

// ReopenPV closes and reopens the shared backing file, grounded on
// bow_wi2pv_reopen_pv: after forking (or, in Go, after handing this
// *Wi2Pv to a goroutine pool worker launched via a separate process),
// the underlying file descriptor's seek position is no longer safely
// shared, since every read/write above is expressed as absolute-offset
// ReadAt/WriteAt rather than a stateful Seek+Read. Call this before
// reusing a *Wi2Pv obtained from a parent process's inherited handle.
func (w *Wi2Pv) ReopenPV(path string) error {
	if w.fp != nil {
		w.fp.Close()
	}
	fp, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	w.fp = fp
	return nil
}
