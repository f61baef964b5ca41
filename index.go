package archer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
)

// DocumentRecord is one row of the document table: the externally
// stable identifier stamped at ingest time, plus the length statistics
// the evaluator's BM25 ranking mode needs.
type DocumentRecord struct {
	ULID       ulid.ULID
	ByteLength int
	TokenCount int
}

// Index pairs a word-keyed and a label-keyed Wi2Pv directory with the
// document table and the two independent StringInterns (spec §4.F).
type Index struct {
	Dir string

	WordIntern  *Intern
	LabelIntern *Intern
	Words       *Wi2Pv
	Labels      *Wi2Pv
	Documents   []DocumentRecord

	opts SegmentOptions
	log  *slog.Logger
}

func indexFilePaths(dir string) (pv, li2pv, vocab, labels string) {
	return filepath.Join(dir, "pv"),
		filepath.Join(dir, "li2pv"),
		filepath.Join(dir, "vocab"),
		filepath.Join(dir, "labels")
}

// Create initializes a brand-new index directory.
func Create(dir string, opts IndexOptions) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	pvPath, li2pvPath, _, _ := indexFilePaths(dir)

	wordsFP, err := os.Create(pvPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := WritePVFileHeader(wordsFP); err != nil {
		return nil, err
	}
	labelsFP, err := os.Create(li2pvPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := WritePVFileHeader(labelsFP); err != nil {
		return nil, err
	}

	idx := &Index{
		Dir:         dir,
		WordIntern:  NewIntern(),
		LabelIntern: NewIntern(),
		Words:       NewWi2Pv(wordsFP, opts.Segment),
		Labels:      NewWi2Pv(labelsFP, opts.Segment),
		opts:        opts.Segment,
		log:         slog.Default().With("component", "index", "dir", dir),
	}
	idx.log.Info("created index")
	return idx, nil
}

// Open reopens an index directory previously written by Close, grounded
// on bow_wi2pv_new_from_filename plus the vocab/labels/document-table
// side files written alongside it.
func Open(dir string) (*Index, error) {
	pvPath, li2pvPath, vocabPath, labelsPath := indexFilePaths(dir)

	wordsFP, err := os.OpenFile(pvPath, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	labelsFP, err := os.OpenFile(li2pvPath, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	wordIntern, err := loadInternFromFile(vocabPath)
	if err != nil {
		return nil, err
	}
	labelIntern, err := loadInternFromFile(labelsPath)
	if err != nil {
		return nil, err
	}

	opts := DefaultSegmentOptions()
	words, err := NewWi2PvFromFilename(filepath.Join(dir, "wi2pv"), wordsFP, opts)
	if err != nil {
		return nil, err
	}
	labels, err := NewWi2PvFromFilename(filepath.Join(dir, "li2pv.dir"), labelsFP, opts)
	if err != nil {
		return nil, err
	}

	return &Index{
		Dir:         dir,
		WordIntern:  wordIntern,
		LabelIntern: labelIntern,
		Words:       words,
		Labels:      labels,
		opts:        opts,
		log:         slog.Default().With("component", "index", "dir", dir),
	}, nil
}

// Close flushes the directories and side tables to disk.
func (idx *Index) Close() error {
	wi2pvFP, err := os.Create(filepath.Join(idx.Dir, "wi2pv"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer wi2pvFP.Close()
	if err := idx.Words.Write(wi2pvFP); err != nil {
		return err
	}

	li2pvDirFP, err := os.Create(filepath.Join(idx.Dir, "li2pv.dir"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer li2pvDirFP.Close()
	if err := idx.Labels.Write(li2pvDirFP); err != nil {
		return err
	}

	_, _, vocabPath, labelsPath := indexFilePaths(idx.Dir)
	if err := dumpInternToFile(vocabPath, idx.WordIntern); err != nil {
		return err
	}
	if err := dumpInternToFile(labelsPath, idx.LabelIntern); err != nil {
		return err
	}

	idx.log.Info("closed index", "documents", len(idx.Documents), "words", idx.WordIntern.Count())
	return idx.Words.File().Close()
}

// Release closes the underlying file handles without rewriting the
// directory or side tables — for read-only callers (query evaluation)
// that never mutated the index and so have nothing new to persist.
func (idx *Index) Release() error {
	if err := idx.Words.File().Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return idx.Labels.File().Close()
}

// AddDocument ingests one document's lexer event stream, interning new
// words/labels, appending to the word and label directories, and
// recording a DocumentRecord. di is the new document's id (its index
// into idx.Documents). Grounded on blaze.InvertedIndex.Index's
// per-position loop, generalized from the teacher's dense per-term
// skip-list postings to the Wi2Pv/PostingVector model.
func (idx *Index) AddDocument(lex Lexer) (di int, err error) {
	di = len(idx.Documents)
	stack := NewLabelStack()
	pos := 0
	byteLen := 0

	for {
		ev, ok := lex.Next()
		if !ok {
			break
		}
		switch ev.Kind {
		case EventWord:
			wi := idx.WordIntern.Intern(ev.Word)
			openLabels := stack.seq
			lis := make([]int, len(openLabels))
			for i, l := range openLabels {
				lis[i] = idx.LabelIntern.Intern(l)
			}
			if len(lis) == 0 {
				err = idx.Words.AddWiDiPi(wi, di, pos)
			} else {
				err = idx.Words.AddWiDiLiPi(wi, di, lis, pos)
			}
			if err != nil {
				return di, err
			}
			byteLen += len(ev.Word)
			pos++
		case EventLabelOpen:
			if err := stack.Open(ev.Label); err != nil {
				return di, err
			}
			li := idx.LabelIntern.Intern(ev.Label)
			if err := idx.Labels.AddWiDiPi(li, di, pos); err != nil {
				return di, err
			}
		case EventLabelClose:
			stack.Close(ev.Label)
			li := idx.LabelIntern.Intern(ev.Label)
			if err := idx.Labels.AddWiDiPi(li, di, pos); err != nil {
				return di, err
			}
		}
	}

	idx.Documents = append(idx.Documents, DocumentRecord{
		ULID:       ulid.Make(),
		ByteLength: byteLen,
		TokenCount: pos,
	})
	idx.log.Info("indexed document", "di", di, "tokens", pos)
	return di, nil
}
