package search

import (
	"sort"
	"time"

	"github.com/trellis-notes/trellis/internal/graph"
	"github.com/trellis-notes/trellis/internal/logger"
)

// Result is one ranked search hit. NotePathArray is the root-to-note path
// disambiguating which branch instance matched; NoteID is its last element.
type Result struct {
	NotePathArray []string `json:"notePathArray"`
	NoteID        string   `json:"noteId"`
	Score         float64  `json:"score"`
	// FuzzyScore is nonzero only for results found solely in the fuzzy
	// phase; exact-phase scoring runs with fuzzy matching disabled.
	FuzzyScore float64 `json:"fuzzyScore"`
	Snippets      []string `json:"snippets,omitempty"`
}

// Sufficiency thresholds for the exact phase: with at least this many
// results, of which at least this fraction score above the quality floor,
// the fuzzy fallback phase is skipped entirely.
const (
	minExactResultCount = 5
	minQualityScore     = 10.0
	minQualityFraction  = 0.5
)

// exactPhaseBand lifts every exact-phase score above the highest score a
// fuzzy-only result can reach, so exact matches always outrank fuzzy ones
// no matter the raw magnitudes.
const exactPhaseBand = maxTotalFuzzyScore + 1

// Searcher drives progressive two-phase search over the entity graph.
type Searcher struct {
	store *graph.Store

	// SlowQueryThresholdMs logs queries slower than this; zero disables.
	SlowQueryThresholdMs int64
}

func NewSearcher(store *graph.Store) *Searcher {
	return &Searcher{store: store}
}

// Search parses and evaluates a query, returning a relevance-ranked,
// de-duplicated result list. Phase 1 evaluates with fuzzy operators
// disabled; only when its results are too few or too weak does phase 2
// re-evaluate with fuzzy matching enabled and append the fallback hits.
func (s *Searcher) Search(query string, ctx *Context) ([]*Result, error) {
	started := time.Now()

	tree, err := Parse(query)
	if err != nil {
		return nil, err
	}

	universe := s.buildUniverse(ctx)
	scoringQuery := scoringTermsOf(tree, query)

	exactCtx := ctx.withFuzzy(false)
	exactSet := NewEvaluator(s.store, exactCtx).Evaluate(tree, universe)
	exactResults := s.scoreSet(exactSet, scoringQuery, false)

	if !s.exactPhaseSufficient(exactResults) {
		fuzzyCtx := ctx.withFuzzy(true)
		fuzzySet := NewEvaluator(s.store, fuzzyCtx).Evaluate(tree, universe)

		// De-duplicate by noteId: a note found in both phases keeps its
		// exact score.
		fuzzyOnly := fuzzySet.Subtract(exactSet)
		fuzzyResults := s.scoreSet(fuzzyOnly, scoringQuery, true)
		for _, r := range fuzzyResults {
			// A fuzzy-only result never scores above the fuzzy ceiling.
			if r.Score > maxTotalFuzzyScore {
				r.Score = maxTotalFuzzyScore
			}
		}
		sortByScore(fuzzyResults)
		sortByScore(exactResults)
		for _, r := range exactResults {
			r.Score += exactPhaseBand
		}
		exactResults = append(exactResults, fuzzyResults...)
	} else {
		sortByScore(exactResults)
		for _, r := range exactResults {
			r.Score += exactPhaseBand
		}
	}

	if s.SlowQueryThresholdMs > 0 {
		if elapsed := time.Since(started).Milliseconds(); elapsed > s.SlowQueryThresholdMs {
			logger.SlowQuery(query, elapsed)
		}
	}

	return exactResults, nil
}

// buildUniverse collects the candidate notes: every non-deleted note except
// the root, minus archived subtrees unless the context includes them.
func (s *Searcher) buildUniverse(ctx *Context) *NoteSet {
	universe := NewNoteSet()
	for _, note := range s.store.Notes() {
		if note.NoteID == graph.RootNoteID {
			continue
		}
		if !ctx.IncludeArchivedNotes && s.store.IsArchived(note.NoteID) {
			continue
		}
		universe.Add(note)
	}
	return universe
}

func (s *Searcher) scoreSet(set *NoteSet, scoringQuery string, fuzzyEnabled bool) []*Result {
	sc := newScorer(s.store, scoringQuery, fuzzyEnabled)
	results := make([]*Result, 0, set.Len())
	for _, note := range set.SortedNotes() {
		score, fuzzyScore := sc.score(note)
		results = append(results, &Result{
			NotePathArray: s.store.NotePath(note.NoteID),
			NoteID:        note.NoteID,
			Score:         score,
			FuzzyScore:    fuzzyScore,
			Snippets:      snippetsFor(note, sc.tokens),
		})
	}
	return results
}

// exactPhaseSufficient decides whether the fuzzy phase can be skipped.
func (s *Searcher) exactPhaseSufficient(results []*Result) bool {
	if len(results) < minExactResultCount {
		return false
	}
	quality := 0
	for _, r := range results {
		if r.Score >= minQualityScore {
			quality++
		}
	}
	return float64(quality)/float64(len(results)) >= minQualityFraction
}

// sortByScore orders descending by score; ties keep the stable input
// order (noteId), so repeated queries return identical lists.
func sortByScore(results []*Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// scoringTermsOf extracts the terms worth ranking on: full-text leaves
// first, falling back to comparison literals, then the raw query.
func scoringTermsOf(tree *Node, rawQuery string) string {
	var fullText []string
	var literals []string
	var walk func(n *Node)
	walk = func(n *Node) {
		switch n.Kind {
		case NodeFullText:
			fullText = append(fullText, n.Value)
		case NodeLabel, NodeRelation, NodeProperty:
			if n.Value != "" && !n.ValueIsDate {
				literals = append(literals, n.Value)
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tree)

	if len(fullText) > 0 {
		return joinTerms(fullText)
	}
	if len(literals) > 0 {
		return joinTerms(literals)
	}
	return rawQuery
}

func joinTerms(terms []string) string {
	out := terms[0]
	for _, t := range terms[1:] {
		out += " " + t
	}
	return out
}
