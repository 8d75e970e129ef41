package search

import "testing"

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		max  int
		want int
	}{
		{"", "", 2, 0},
		{"abc", "abc", 2, 0},
		{"abc", "abd", 2, 1},
		{"abc", "acb", 2, 2},
		{"kitten", "sitten", 2, 1},
		{"tolkien", "tolkein", 2, 2},
		{"abc", "xyz", 2, 3}, // exceeds max, reported as max+1
		{"a", "abc", 2, 2},
		{"résumé", "resume", 2, 2}, // rune-based, not byte-based
	}

	for _, tt := range tests {
		got := editDistance(tt.a, tt.b, tt.max)
		if got != tt.want {
			t.Errorf("editDistance(%q, %q, %d) = %d, want %d", tt.a, tt.b, tt.max, got, tt.want)
		}
	}
}

func TestEditDistanceEarlyExit(t *testing.T) {
	// Completely dissimilar long strings must give up at max+1
	got := editDistance("aaaaaaaaaa", "bbbbbbbbbb", 2)
	if got != 3 {
		t.Errorf("Expected early exit value 3, got %d", got)
	}
}

func TestFuzzyEqual(t *testing.T) {
	if !fuzzyEqual("tolkien", "tolkein") {
		t.Error("Expected transposition within distance 2 to match")
	}
	if fuzzyEqual("tolkien", "rowling") {
		t.Error("Expected dissimilar strings not to match")
	}
	// Short needles degrade to exact comparison
	if fuzzyEqual("ab", "ba") {
		t.Error("Expected short strings to require exact equality")
	}
	if !fuzzyEqual("ab", "ab") {
		t.Error("Expected short exact strings to match")
	}
}

func TestFuzzyContains(t *testing.T) {
	if !fuzzyContains("the lord of the rings", "rings") {
		t.Error("Expected substring hit")
	}
	if !fuzzyContains("the lord of the rnigs", "rings") {
		t.Error("Expected word within edit distance 2 to match")
	}
	if fuzzyContains("completely different text", "rings") {
		t.Error("Expected no match for dissimilar text")
	}
	// Short needles never fuzzy-match
	if fuzzyContains("ba", "ab") {
		t.Error("Expected short needle not to fuzzy-match")
	}
}

func TestTrigramSimilarity(t *testing.T) {
	if sim := trigramSimilarity("document", "document"); sim != 1.0 {
		t.Errorf("Identical strings: similarity %f, want 1.0", sim)
	}
	if sim := trigramSimilarity("document", "documnt"); sim < trigramGateThreshold {
		t.Errorf("Near-identical strings should pass the gate, got %f", sim)
	}
	if sim := trigramSimilarity("document", "zzzzzzz"); sim != 0 {
		t.Errorf("Disjoint strings: similarity %f, want 0", sim)
	}
	// Strings too short for any trigram
	if sim := trigramSimilarity("ab", "ab"); sim != 0 {
		t.Errorf("Sub-trigram strings: similarity %f, want 0", sim)
	}
}

func TestNormalizeString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Café", "cafe"},
		{"RÉSUMÉ", "resume"},
		{"Hello World", "hello world"},
		{"naïve", "naive"},
	}
	for _, tt := range tests {
		if got := normalizeString(tt.in); got != tt.want {
			t.Errorf("normalizeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeForScoring(t *testing.T) {
	if got := normalizeForScoring("The Two Towers!"); got != "the two towers" {
		t.Errorf("normalizeForScoring = %q", got)
	}
	if got := normalizeForScoring("C++ & Go (2024)"); got != "c  go 2024" {
		t.Errorf("normalizeForScoring = %q", got)
	}
}
