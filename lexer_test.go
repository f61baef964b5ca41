package archer

import (
	"strings"
	"testing"
)

func TestLabelStackRejectsReopeningSameLabel(t *testing.T) {
	s := NewLabelStack()
	if err := s.Open("title"); err != nil {
		t.Fatalf("Open(title): %v", err)
	}
	if err := s.Open("title"); err == nil {
		t.Fatalf("expected ErrOverlappingLabel when reopening an already-open label")
	}
}

func TestLabelStackAllowsReopenAfterClose(t *testing.T) {
	s := NewLabelStack()
	if err := s.Open("title"); err != nil {
		t.Fatalf("Open(title): %v", err)
	}
	s.Close("title")
	if err := s.Open("title"); err != nil {
		t.Fatalf("Open(title) after Close: %v", err)
	}
}

func TestLabelStackCloseAllReturnsLIFOOrder(t *testing.T) {
	s := NewLabelStack()
	s.Open("a")
	s.Open("b")
	s.Open("c")

	got := s.CloseAll()
	want := []string{"c", "b", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CloseAll() = %v, want %v", got, want)
		}
	}
}

func TestDefaultLexerEmitsAnalyzedWords(t *testing.T) {
	lex := NewDefaultLexer("The Quick Brown Foxes")
	var words []string
	for {
		ev, ok := lex.Next()
		if !ok {
			break
		}
		if ev.Kind != EventWord {
			t.Fatalf("DefaultLexer emitted non-word event: %+v", ev)
		}
		words = append(words, ev.Word)
	}
	if len(words) == 0 {
		t.Fatal("expected at least one word from DefaultLexer")
	}
	for _, w := range words {
		if w == "the" {
			t.Fatalf("expected stopword \"the\" to be filtered out, got %v", words)
		}
	}
}

func TestHTMLLexerEmitsLabelBoundaries(t *testing.T) {
	html := `<html><body><title>Quick Fox</title><p>Runs fast</p></body></html>`
	lex := NewHTMLLexer(strings.NewReader(html), nil)

	var opens, closes []string
	var words []string
	for {
		ev, ok := lex.Next()
		if !ok {
			break
		}
		switch ev.Kind {
		case EventLabelOpen:
			opens = append(opens, ev.Label)
		case EventLabelClose:
			closes = append(closes, ev.Label)
		case EventWord:
			words = append(words, ev.Word)
		}
	}

	if len(opens) != len(closes) {
		t.Fatalf("unbalanced label events: opens=%v closes=%v", opens, closes)
	}
	if len(words) == 0 {
		t.Fatal("expected words extracted from HTML text nodes")
	}
}
