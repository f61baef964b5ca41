package archer

import (
	"encoding/binary"
	"fmt"
	"io"
)

// segmentHeaderSize is the on-disk size of one segment's fixed header:
// capacity (uint32), used (uint32), next (int64, 0 == none).
const segmentHeaderSize = 16

// pvFileMagic identifies a shared posting-vector backing file (spec §6).
// It is written once at offset 0 by WritePVFileHeader, which matters for
// more than identification: allocateSegment places a new segment at
// whatever offset is currently end-of-file, and PostingVector.IsStub
// treats Head == 0 as "nothing ever appended". Without reserving offset
// 0 for this header, the very first segment ever allocated in a fresh
// backing file would itself land at offset 0 and be indistinguishable
// from a stub.
const pvFileMagic = "ARPV"

// WritePVFileHeader stamps a brand-new backing file with its magic,
// reserving offset 0 so no real segment can ever be allocated there.
// Must be called once, immediately after creating the file, before any
// PostingVector.Append.
func WritePVFileHeader(fp io.WriterAt) error {
	if _, err := fp.WriteAt([]byte(pvFileMagic), 0); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// SegmentOptions bounds segment allocation, the config-carrying analogue
// of blaze's AnalyzerConfig/BM25Parameters DefaultXxx() pattern.
type SegmentOptions struct {
	// MaxSegmentBytes is the payload capacity of one allocated segment.
	// Smaller values chain more segments per long posting list; larger
	// values waste more space on short ones.
	MaxSegmentBytes uint32
	// MaxWordLabels bounds how many labels may be simultaneously
	// recorded against one position (spec's BOW_MAX_WORD_LABELS).
	MaxWordLabels int
}

// DefaultSegmentOptions returns the standard segment sizing.
func DefaultSegmentOptions() SegmentOptions {
	return SegmentOptions{
		MaxSegmentBytes: 64 * 1024,
		MaxWordLabels:   32,
	}
}

// cursorSnapshot is the first-class value form of the source's
// remember/recall macro pair (archer_query_remember_pointer /
// archer_query_recall_pointer): the exact fields that must be captured
// and restored around a peek-ahead read, including whether the cursor
// had ever been positioned at all — omitting that let a peek on a
// freshly-rewound stream leave `started` permanently set while putting
// the rest of the cursor back at the head, so the following real read
// skipped re-initialization and walked off the chain as if exhausted.
type cursorSnapshot struct {
	seekEnd        int64
	segBytesRemain uint32
	lastDi         int
	lastPi         int
	started        bool
}

// PostingVector is the in-memory header + cursor state for one word's
// (or label's) posting stream within a shared backing file. It holds no
// *os.File itself — every operation takes the shared handle, mirroring
// archer_query_prolog's `*pv = &index->wi2pv->entry[id]; *fp =
// index->wi2pv->fp` split between per-word header and shared stream.
type PostingVector struct {
	Head  int64 // offset of first segment; 0 means stub/empty
	Tail  int64 // offset of segment currently accepting appends
	Count int64 // number of records ever appended

	writeLastDi int
	writeLastPi int

	readSeekEnd    int64
	readSegRemain  uint32
	readLastDi     int
	readLastPi     int
	started        bool // whether the read cursor has been positioned at least once
}

// NewPostingVector returns a fresh, empty (stub) posting vector.
func NewPostingVector() *PostingVector {
	return &PostingVector{writeLastDi: -1, writeLastPi: -1, readLastDi: -1, readLastPi: -1}
}

// IsStub reports whether the vector has never had anything appended.
func (pv *PostingVector) IsStub() bool { return pv.Head == 0 }

type segmentHeader struct {
	capacity uint32
	used     uint32
	next     int64
}

func readSegmentHeader(fp io.ReaderAt, offset int64) (segmentHeader, error) {
	buf := make([]byte, segmentHeaderSize)
	if _, err := fp.ReadAt(buf, offset); err != nil {
		return segmentHeader{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return segmentHeader{
		capacity: binary.LittleEndian.Uint32(buf[0:4]),
		used:     binary.LittleEndian.Uint32(buf[4:8]),
		next:     int64(binary.LittleEndian.Uint64(buf[8:16])),
	}, nil
}

func writeSegmentHeader(fp io.WriterAt, offset int64, h segmentHeader) error {
	buf := make([]byte, segmentHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.capacity)
	binary.LittleEndian.PutUint32(buf[4:8], h.used)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.next))
	if _, err := fp.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// allocateSegment appends a brand new, zeroed segment at the end of fp
// and returns its offset.
func allocateSegment(fp interface {
	io.WriterAt
	io.Seeker
}, capacity uint32) (int64, error) {
	end, err := fp.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := writeSegmentHeader(fp, end, segmentHeader{capacity: capacity}); err != nil {
		return 0, err
	}
	// Zero-fill the payload region so reads past `used` see defined bytes.
	zero := make([]byte, capacity)
	if _, err := fp.WriteAt(zero, end+segmentHeaderSize); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return end, nil
}

type pvFile interface {
	io.ReaderAt
	io.WriterAt
	io.Seeker
}

// appendRecord is the shared implementation behind Append/AppendLabeled.
// It enforces strict (di, pi) monotonicity (spec §7 MonotonicityViolated)
// and transparently rolls over to a new chained segment when the
// current tail segment has no room.
func (pv *PostingVector) appendRecord(fp pvFile, opts SegmentOptions, di, pi int, labels []int) error {
	if di < pv.writeLastDi || (di == pv.writeLastDi && pi <= pv.writeLastPi) {
		return fmt.Errorf("%w: append (%d,%d) after (%d,%d)", ErrMonotonicityViolated, di, pi, pv.writeLastDi, pv.writeLastPi)
	}
	if len(labels) > opts.MaxWordLabels {
		return fmt.Errorf("%w: %d labels exceeds max %d", ErrCapacityExceeded, len(labels), opts.MaxWordLabels)
	}

	deltaDi := 0
	if pv.writeLastDi >= 0 {
		deltaDi = di - pv.writeLastDi
	} else {
		deltaDi = di
	}
	deltaPi := pi
	if deltaDi == 0 && pv.writeLastPi >= 0 {
		deltaPi = pi - pv.writeLastPi
	}

	rec := make([]byte, 0, 16+len(labels)*binary.MaxVarintLen64)
	rec = binary.AppendUvarint(rec, uint64(deltaDi))
	rec = binary.AppendUvarint(rec, uint64(deltaPi))
	rec = binary.AppendUvarint(rec, uint64(len(labels)))
	for _, li := range labels {
		rec = binary.AppendUvarint(rec, uint64(li))
	}

	if pv.Head == 0 {
		off, err := allocateSegment(fp, opts.MaxSegmentBytes)
		if err != nil {
			return err
		}
		pv.Head, pv.Tail = off, off
	}

	tail, err := readSegmentHeader(fp, pv.Tail)
	if err != nil {
		return err
	}
	if uint64(tail.used)+uint64(len(rec)) > uint64(tail.capacity) {
		newOff, err := allocateSegment(fp, opts.MaxSegmentBytes)
		if err != nil {
			return err
		}
		tail.next = newOff
		if err := writeSegmentHeader(fp, pv.Tail, tail); err != nil {
			return err
		}
		pv.Tail = newOff
		tail, err = readSegmentHeader(fp, pv.Tail)
		if err != nil {
			return err
		}
	}

	writeOff := pv.Tail + segmentHeaderSize + int64(tail.used)
	if _, err := fp.WriteAt(rec, writeOff); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	tail.used += uint32(len(rec))
	if err := writeSegmentHeader(fp, pv.Tail, tail); err != nil {
		return err
	}

	pv.writeLastDi, pv.writeLastPi = di, pi
	pv.Count++
	return nil
}

// Append records an unlabeled (document, position) occurrence.
func (pv *PostingVector) Append(fp pvFile, opts SegmentOptions, di, pi int) error {
	return pv.appendRecord(fp, opts, di, pi, nil)
}

// AppendLabeled records a (document, position) occurrence together with
// the set of label ids active at that position.
func (pv *PostingVector) AppendLabeled(fp pvFile, opts SegmentOptions, di, pi int, labels []int) error {
	return pv.appendRecord(fp, opts, di, pi, labels)
}

// Rewind resets the read cursor to the head of the chain.
func (pv *PostingVector) Rewind() {
	pv.readSeekEnd = pv.Head
	pv.readSegRemain = 0
	pv.readLastDi = -1
	pv.readLastPi = -1
	pv.started = false
}

// Remember captures the read cursor (the source's
// archer_query_remember_pointer).
func (pv *PostingVector) Remember() cursorSnapshot {
	return cursorSnapshot{pv.readSeekEnd, pv.readSegRemain, pv.readLastDi, pv.readLastPi, pv.started}
}

// Recall restores a previously captured read cursor (the source's
// archer_query_recall_pointer).
func (pv *PostingVector) Recall(s cursorSnapshot) {
	pv.readSeekEnd, pv.readSegRemain, pv.readLastDi, pv.readLastPi, pv.started = s.seekEnd, s.segBytesRemain, s.lastDi, s.lastPi, s.started
}

// Unnext rewinds the read cursor by exactly one record, given the
// snapshot taken immediately before that record was read.
func (pv *PostingVector) Unnext(s cursorSnapshot) {
	pv.Recall(s)
}

func readUvarintAt(fp io.ReaderAt, offset int64) (uint64, int, error) {
	buf := make([]byte, binary.MaxVarintLen64)
	n, err := fp.ReadAt(buf, offset)
	if n == 0 && err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	v, consumed := binary.Uvarint(buf[:n])
	if consumed <= 0 {
		return 0, 0, fmt.Errorf("%w: truncated varint", ErrFormat)
	}
	return v, consumed, nil
}

// NextDiLiPi scans forward for the next record, returning its document
// id, label ids, and position. ok is false once the chain is exhausted.
func (pv *PostingVector) NextDiLiPi(fp pvFile) (di int, labels []int, pi int, ok bool, err error) {
	if pv.Head == 0 {
		return 0, nil, 0, false, nil
	}
	if !pv.started {
		pv.readSeekEnd = pv.Head + segmentHeaderSize
		hdr, herr := readSegmentHeader(fp, pv.Head)
		if herr != nil {
			return 0, nil, 0, false, herr
		}
		pv.readSegRemain = hdr.used
		pv.started = true
	}

	for pv.readSegRemain == 0 {
		hdr, herr := currentSegmentHeader(fp, pv.Head, pv.readSeekEnd)
		if herr != nil {
			return 0, nil, 0, false, herr
		}
		if hdr.next == 0 {
			return 0, nil, 0, false, nil
		}
		nextHdr, herr := readSegmentHeader(fp, hdr.next)
		if herr != nil {
			return 0, nil, 0, false, herr
		}
		pv.readSeekEnd = hdr.next + segmentHeaderSize
		pv.readSegRemain = nextHdr.used
	}

	deltaDi, n1, err := readUvarintAt(fp, pv.readSeekEnd)
	if err != nil {
		return 0, nil, 0, false, err
	}
	deltaPi, n2, err := readUvarintAt(fp, pv.readSeekEnd+int64(n1))
	if err != nil {
		return 0, nil, 0, false, err
	}
	numLabels, n3, err := readUvarintAt(fp, pv.readSeekEnd+int64(n1+n2))
	if err != nil {
		return 0, nil, 0, false, err
	}
	off := pv.readSeekEnd + int64(n1+n2+n3)
	lis := make([]int, 0, numLabels)
	for i := uint64(0); i < numLabels; i++ {
		li, n, err := readUvarintAt(fp, off)
		if err != nil {
			return 0, nil, 0, false, err
		}
		lis = append(lis, int(li))
		off += int64(n)
	}

	recLen := off - pv.readSeekEnd
	pv.readSeekEnd = off
	pv.readSegRemain -= uint32(recLen)

	if pv.readLastDi < 0 {
		di, pi = int(deltaDi), int(deltaPi)
	} else if deltaDi == 0 {
		di, pi = pv.readLastDi, pv.readLastPi+int(deltaPi)
	} else {
		di, pi = pv.readLastDi+int(deltaDi), int(deltaPi)
	}

	pv.readLastDi, pv.readLastPi = di, pi
	return di, lis, pi, true, nil
}

// currentSegmentHeader finds the header of the segment containing
// seekEnd by walking the chain from head. Segments are allocated in
// file-offset order, so this walk visits each segment at most once per
// call; it trades a per-call linear scan for not needing an extra cursor
// field outside the documented remember/recall tuple.
func currentSegmentHeader(fp pvFile, head, seekEnd int64) (segmentHeader, error) {
	offset := head
	for {
		hdr, err := readSegmentHeader(fp, offset)
		if err != nil {
			return segmentHeader{}, err
		}
		segEnd := offset + segmentHeaderSize + int64(hdr.capacity)
		if seekEnd >= offset+segmentHeaderSize && seekEnd <= segEnd {
			return hdr, nil
		}
		if hdr.next == 0 {
			return hdr, nil
		}
		offset = hdr.next
	}
}

// NextDiPi is NextDiLiPi without labels, for unlabeled word PVs.
func (pv *PostingVector) NextDiPi(fp pvFile) (di, pi int, ok bool, err error) {
	di, _, pi, ok, err = pv.NextDiLiPi(fp)
	return
}
