package search

import (
	"fmt"
	"testing"
)

func runSearch(t *testing.T, env *testEnv, query string, ctx *Context) []*Result {
	t.Helper()
	results, err := NewSearcher(env.store).Search(query, ctx)
	if err != nil {
		t.Fatalf("Search(%q) failed: %v", query, err)
	}
	return results
}

func resultFor(results []*Result, noteID string) *Result {
	for _, r := range results {
		if r.NoteID == noteID {
			return r
		}
	}
	return nil
}

func TestSufficientExactPhaseSkipsFuzzy(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		env.addNote("", fmt.Sprintf("Document %d", i), "a document about documents")
	}
	typo := env.addNote("", "Documnt Draft", "")

	results := runSearch(t, env, "document", &Context{})
	if len(results) != 5 {
		t.Fatalf("Expected the 5 exact matches only, got %d", len(results))
	}
	if resultFor(results, typo.NoteID) != nil {
		t.Error("Typo note must be excluded when the exact phase is sufficient")
	}
	for _, r := range results {
		if r.FuzzyScore != 0 {
			t.Errorf("Exact-phase result %s carries fuzzy score %v", r.NoteID, r.FuzzyScore)
		}
	}
}

func TestInsufficientExactPhaseAppendsFuzzy(t *testing.T) {
	env := newTestEnv(t)
	exact1 := env.addNote("", "Document One", "")
	exact2 := env.addNote("", "Document Two", "")
	typo := env.addNote("", "Documnt Draft", "")

	results := runSearch(t, env, "document", &Context{})
	if len(results) != 3 {
		t.Fatalf("Expected 2 exact + 1 fuzzy result, got %d", len(results))
	}
	if resultFor(results, typo.NoteID) == nil {
		t.Fatal("Expected the typo note through the fuzzy phase")
	}

	// Fuzzy fallback results always rank below every exact result.
	if results[2].NoteID != typo.NoteID {
		t.Errorf("Typo note must rank last, got order %s, %s, %s",
			results[0].NoteID, results[1].NoteID, results[2].NoteID)
	}
	for _, id := range []string{exact1.NoteID, exact2.NoteID} {
		er := resultFor(results, id)
		tr := resultFor(results, typo.NoteID)
		if er.Score <= tr.Score {
			t.Errorf("Exact result %s score %v not above fuzzy-only score %v", id, er.Score, tr.Score)
		}
	}
	if tr := resultFor(results, typo.NoteID); tr.FuzzyScore == 0 {
		t.Error("Fuzzy-only result must carry a fuzzy score")
	}
}

func TestFuzzyOnlyScoreCapped(t *testing.T) {
	env := newTestEnv(t)
	env.addNote("", "Documnt", "documnt documnt documnt documnt")

	results := runSearch(t, env, "document", &Context{})
	if len(results) != 1 {
		t.Fatalf("Expected a single fuzzy result, got %d", len(results))
	}
	if results[0].Score > maxTotalFuzzyScore {
		t.Errorf("Fuzzy-only score %v exceeds cap %v", results[0].Score, maxTotalFuzzyScore)
	}
}

func TestResultsDeduplicatedAcrossPhases(t *testing.T) {
	env := newTestEnv(t)
	note := env.addNote("", "Document", "")

	results := runSearch(t, env, "document", &Context{})
	seen := 0
	for _, r := range results {
		if r.NoteID == note.NoteID {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("Expected note exactly once across phases, got %d", seen)
	}
}

func TestScoreOrdering(t *testing.T) {
	env := newTestEnv(t)
	exact := env.addNote("", "recipes", "")
	prefix := env.addNote("", "recipes and techniques", "")
	word := env.addNote("", "favorite recipes collected", "")
	content := env.addNote("", "kitchen notebook", "all my recipes live here")
	// Pad the exact phase so no fuzzy hits dilute the order.
	env.addNote("", "recipes archive", "")
	env.addNote("", "old recipes", "")

	results := runSearch(t, env, "recipes", &Context{})

	pos := func(id string) int {
		for i, r := range results {
			if r.NoteID == id {
				return i
			}
		}
		t.Fatalf("Note %s missing from results", id)
		return -1
	}

	if pos(exact.NoteID) >= pos(prefix.NoteID) {
		t.Error("Exact title match must outrank prefix match")
	}
	if pos(prefix.NoteID) >= pos(word.NoteID) {
		t.Error("Title prefix match must outrank mid-title word match")
	}
	if pos(word.NoteID) >= pos(content.NoteID) {
		t.Error("Any title match must outrank a content-only match")
	}
}

func TestNoteIDMentionsAreSearchable(t *testing.T) {
	env := newTestEnv(t)
	target := env.addNote("", "Target", "")
	ref := env.addNote("", "Reference", "see also "+target.NoteID+" for details")

	results := runSearch(t, env, target.NoteID, &Context{})
	if resultFor(results, ref.NoteID) == nil {
		t.Error("Expected note mentioning the id in its content")
	}
}

func TestStructuredQueryScoresByLiteral(t *testing.T) {
	env := newTestEnv(t)
	titled := env.addNote("", "Tolkien Reader", "")
	plain := env.addNote("", "Misc", "")
	env.addLabel(titled.NoteID, "author", "Tolkien", false)
	env.addLabel(plain.NoteID, "author", "Tolkien", false)

	results := runSearch(t, env, "#author = Tolkien", &Context{})
	if len(results) != 2 {
		t.Fatalf("Expected both labeled notes, got %d", len(results))
	}
	// The comparison literal drives ranking, so the title hit comes first.
	if results[0].NoteID != titled.NoteID {
		t.Errorf("Expected title-matching note first, got %s", results[0].NoteID)
	}
}

func TestHiddenNotePenalty(t *testing.T) {
	env := newTestEnv(t)
	visible := env.addNote("", "meeting notes", "")
	hiddenParent := env.addNote("", "internals", "")
	hidden := env.addNote(hiddenParent.NoteID, "meeting notes", "")
	env.addLabel(hiddenParent.NoteID, "hidden", "", true)
	env.addNote("", "meeting agenda", "")
	env.addNote("", "meeting minutes", "")
	env.addNote("", "team meeting", "")

	results := runSearch(t, env, "meeting", &Context{})
	vr := resultFor(results, visible.NoteID)
	hr := resultFor(results, hidden.NoteID)
	if vr == nil || hr == nil {
		t.Fatal("Expected both notes in results")
	}
	if hr.Score >= vr.Score {
		t.Errorf("Hidden note score %v not penalized below %v", hr.Score, vr.Score)
	}
}

func TestResultCarriesPathAndSnippets(t *testing.T) {
	env := newTestEnv(t)
	parent := env.addNote("", "Projects", "")
	note := env.addNote(parent.NoteID, "Trellis", "growing a trellis from seed takes patience")

	results := runSearch(t, env, "trellis", &Context{})
	r := resultFor(results, note.NoteID)
	if r == nil {
		t.Fatal("Expected note in results")
	}
	want := []string{"root", parent.NoteID, note.NoteID}
	if len(r.NotePathArray) != len(want) {
		t.Fatalf("Unexpected path %v", r.NotePathArray)
	}
	for i, id := range want {
		if r.NotePathArray[i] != id {
			t.Errorf("Path[%d] = %s, want %s", i, r.NotePathArray[i], id)
		}
	}
	if len(r.Snippets) == 0 {
		t.Error("Expected a content snippet")
	}
}

func TestParseErrorSurfacesFromSearch(t *testing.T) {
	env := newTestEnv(t)
	if _, err := NewSearcher(env.store).Search("(#book", &Context{}); err == nil {
		t.Error("Expected parse error for unbalanced parenthesis")
	}
}
