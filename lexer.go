package archer

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// EventKind distinguishes the three things a Lexer can emit.
type EventKind int

const (
	// EventWord carries one normalized token at the current position.
	// Position advances by one after every EventWord.
	EventWord EventKind = iota
	// EventLabelOpen marks the start of a labeled field at the current
	// position (before the position advances).
	EventLabelOpen
	// EventLabelClose marks the end of a labeled field at the current
	// position (the field's half-open range is [open, close)).
	EventLabelClose
)

// LexEvent is one unit of lexer output: either a word at a position, or
// a label boundary marker at a position. The PostingVector's "two
// boundary markers" field-extent encoding (spec §4.D/§9) is built
// directly from the Open/Close pairs a Lexer emits.
type LexEvent struct {
	Kind     EventKind
	Word     string // set when Kind == EventWord
	Label    string // set when Kind == EventLabelOpen/EventLabelClose
	Position int
}

// Lexer turns raw bytes into a stream of LexEvents. It is an external
// collaborator (spec §4.C): the core index never depends on
// tokenization policy, only on this interface.
type Lexer interface {
	// Next returns the next event and true, or a zero event and false
	// once the input is exhausted.
	Next() (LexEvent, bool)
}

// LabelStack tracks currently-open labels during lexing and forbids
// opening a label that is already open — overlapping/nested same-label
// fields are undefined by the field-extent encoding (DESIGN.md Open
// Question #3), so ingest rejects them outright.
type LabelStack struct {
	open map[string]int // label -> len(seq) when it was opened; only membership is consulted
	seq  []string
}

// NewLabelStack returns an empty stack.
func NewLabelStack() *LabelStack {
	return &LabelStack{open: make(map[string]int)}
}

// Open pushes label, returning ErrOverlappingLabel if it is already open.
func (s *LabelStack) Open(label string) error {
	if _, ok := s.open[label]; ok {
		return fmt.Errorf("%w: %q", ErrOverlappingLabel, label)
	}
	s.open[label] = len(s.seq)
	s.seq = append(s.seq, label)
	return nil
}

// Close pops label. It is a no-op if label was never opened.
func (s *LabelStack) Close(label string) {
	if _, ok := s.open[label]; !ok {
		return
	}
	delete(s.open, label)
	for i, l := range s.seq {
		if l == label {
			s.seq = append(s.seq[:i], s.seq[i+1:]...)
			break
		}
	}
}

// CloseAll closes every label still open, in LIFO order, for callers
// that reach end-of-input with unterminated fields.
func (s *LabelStack) CloseAll() []string {
	out := make([]string, len(s.seq))
	for i := len(s.seq) - 1; i >= 0; i-- {
		out[len(out)-1-i] = s.seq[i]
	}
	s.open = make(map[string]int)
	s.seq = nil
	return out
}

// DefaultLexer reuses the token-analysis pipeline (tokenize, lowercase,
// stopword, length filter, stem) to produce an unlabeled word stream —
// the plain-text ingest path with no field structure.
type DefaultLexer struct {
	config AnalyzerConfig
	tokens []string
	pos    int
}

// NewDefaultLexer analyzes text up front and returns a Lexer over the
// resulting token stream.
func NewDefaultLexer(text string) *DefaultLexer {
	return NewDefaultLexerWithConfig(text, DefaultConfig())
}

// NewDefaultLexerWithConfig is NewDefaultLexer with an explicit AnalyzerConfig.
func NewDefaultLexerWithConfig(text string, config AnalyzerConfig) *DefaultLexer {
	return &DefaultLexer{config: config, tokens: AnalyzeWithConfig(text, config)}
}

// Next implements Lexer.
func (l *DefaultLexer) Next() (LexEvent, bool) {
	if l.pos >= len(l.tokens) {
		return LexEvent{}, false
	}
	ev := LexEvent{Kind: EventWord, Word: l.tokens[l.pos], Position: l.pos}
	l.pos++
	return ev, true
}

// HTMLLexer strips markup with the standard HTML tokenizer and emits
// label open/close events on element boundaries, grounded on the
// original source's notion of a lexer that tracks nested field regions
// while scanning — here using x/net/html instead of hand-rolled tag
// scanning. Only tag names present in TrackedTags become labels; all
// other tags are transparent (their text content still flows through).
type HTMLLexer struct {
	z           *html.Tokenizer
	TrackedTags map[string]bool
	stack       *LabelStack
	config      AnalyzerConfig
	pending     []LexEvent
	pos         int
	done        bool
}

// DefaultTrackedTags is the tag set HTMLLexer treats as labels when none
// is supplied explicitly.
var DefaultTrackedTags = map[string]bool{
	"title": true, "h1": true, "h2": true, "h3": true, "p": true, "a": true,
}

// NewHTMLLexer wraps r, tracking the given tags as labels (nil uses
// DefaultTrackedTags).
func NewHTMLLexer(r io.Reader, trackedTags map[string]bool) *HTMLLexer {
	if trackedTags == nil {
		trackedTags = DefaultTrackedTags
	}
	return &HTMLLexer{
		z:           html.NewTokenizer(r),
		TrackedTags: trackedTags,
		stack:       NewLabelStack(),
		config:      DefaultConfig(),
	}
}

// Next implements Lexer.
func (l *HTMLLexer) Next() (LexEvent, bool) {
	for {
		if l.pos < len(l.pending) {
			ev := l.pending[l.pos]
			l.pos++
			return ev, true
		}
		if l.done {
			return LexEvent{}, false
		}
		l.pending, l.pos = nil, 0
		tt := l.z.Next()
		switch tt {
		case html.ErrorToken:
			l.done = true
			for _, label := range l.stack.CloseAll() {
				l.pending = append(l.pending, LexEvent{Kind: EventLabelClose, Label: label})
			}
			if len(l.pending) == 0 {
				return LexEvent{}, false
			}
			continue
		case html.StartTagToken:
			name, _ := l.z.TagName()
			tag := string(name)
			if l.TrackedTags[tag] {
				if err := l.stack.Open(tag); err == nil {
					l.pending = append(l.pending, LexEvent{Kind: EventLabelOpen, Label: tag})
				}
			}
		case html.EndTagToken:
			name, _ := l.z.TagName()
			tag := string(name)
			if l.TrackedTags[tag] {
				l.stack.Close(tag)
				l.pending = append(l.pending, LexEvent{Kind: EventLabelClose, Label: tag})
			}
		case html.TextToken:
			text := string(l.z.Text())
			for _, tok := range AnalyzeWithConfig(text, l.config) {
				l.pending = append(l.pending, LexEvent{Kind: EventWord, Word: tok})
			}
		}
	}
}

// htmlTextReader is a small convenience for callers that have a string
// rather than an io.Reader.
func htmlTextReader(s string) io.Reader {
	return strings.NewReader(s)
}
