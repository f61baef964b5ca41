package archer

import "testing"

func TestParserRoutesBareWordsToRanking(t *testing.T) {
	q := NewParser().Parse("quick brown fox")
	if len(q.Ranking) != 3 {
		t.Fatalf("Ranking = %+v, want 3 terms", q.Ranking)
	}
	if len(q.Inclusion) != 0 || len(q.Exclusion) != 0 {
		t.Fatalf("expected no inclusion/exclusion terms, got %+v / %+v", q.Inclusion, q.Exclusion)
	}
}

func TestParserRoutesPlusAndMinusPrefixes(t *testing.T) {
	q := NewParser().Parse("fox +quick -lazy")
	if len(q.Ranking) != 1 || q.Ranking[0].Word != "fox" {
		t.Fatalf("Ranking = %+v, want [fox]", q.Ranking)
	}
	if len(q.Inclusion) != 1 || q.Inclusion[0].Word != "quick" {
		t.Fatalf("Inclusion = %+v, want [quick]", q.Inclusion)
	}
	if len(q.Exclusion) != 1 || q.Exclusion[0].Word != "lazy" {
		t.Fatalf("Exclusion = %+v, want [lazy]", q.Exclusion)
	}
}

func TestParserKeepsQuotedPhraseIntact(t *testing.T) {
	q := NewParser().Parse(`"quick brown" fox`)
	if len(q.Ranking) != 2 {
		t.Fatalf("Ranking = %+v, want 2 terms", q.Ranking)
	}
	if q.Ranking[0].Word != "quick brown" {
		t.Fatalf("Ranking[0].Word = %q, want %q", q.Ranking[0].Word, "quick brown")
	}
}

func TestParserLabelRestriction(t *testing.T) {
	q := NewParser().Parse("title:fox")
	if len(q.Ranking) != 1 {
		t.Fatalf("Ranking = %+v, want 1 term", q.Ranking)
	}
	term := q.Ranking[0]
	if term.Word != "fox" {
		t.Fatalf("term.Word = %q, want %q", term.Word, "fox")
	}
	if len(term.Labels) != 1 || term.Labels[0] != "title" {
		t.Fatalf("term.Labels = %v, want [title]", term.Labels)
	}
}

func TestParserProximityWindow(t *testing.T) {
	q := NewParser().Parse("fox~5")
	if len(q.Ranking) != 1 {
		t.Fatalf("Ranking = %+v, want 1 term", q.Ranking)
	}
	term := q.Ranking[0]
	if term.Word != "fox" {
		t.Fatalf("term.Word = %q, want %q", term.Word, "fox")
	}
	if term.Window != 5 {
		t.Fatalf("term.Window = %d, want 5", term.Window)
	}
}

func TestNewTermDefaultsToWeightOne(t *testing.T) {
	term := NewTerm("fox")
	if term.Weight != 1 {
		t.Fatalf("Weight = %v, want 1", term.Weight)
	}
}

func TestWithLabelsAppends(t *testing.T) {
	term := NewTerm("fox").WithLabels("title", "body")
	if len(term.Labels) != 2 || term.Labels[0] != "title" || term.Labels[1] != "body" {
		t.Fatalf("Labels = %v, want [title body]", term.Labels)
	}
}
