package search

import (
	"strings"

	"github.com/trellis-notes/trellis/internal/graph"
	"github.com/trellis-notes/trellis/internal/models"
)

// Deterministic signal weights. Categories are evaluated in priority order;
// within a category the strongest signal wins, categories accumulate.
const (
	scoreNoteIDExactMatch = 1000.0
	scoreTitleExactMatch  = 2000.0
	scoreTitlePrefixMatch = 500.0
	scoreTitleWordMatch   = 300.0

	scoreLabelValueExact    = 400.0
	scoreLabelValuePrefix   = 200.0
	scoreLabelValueContains = 100.0
	scoreLabelKeyExact      = 150.0
	scoreLabelKeyPrefix     = 75.0
	scoreLabelKeyContains   = 40.0

	tokenExactWeight    = 4.0
	tokenPrefixWeight   = 2.0
	tokenContainsWeight = 1.0
	tokenFuzzyWeight    = 0.5

	titleFactor = 2.0
	pathFactor  = 0.3

	hiddenNotePenalty = 3.0
)

// Fuzzy anti-inflation caps: per-token fuzzy contribution is capped, and
// the cumulative fuzzy contribution per result is capped at a ceiling, so
// no pile of fuzzy matches can outrank a genuine exact or prefix match.
const (
	maxFuzzyScorePerToken      = 3.0
	maxFuzzyTokenLength        = 3
	maxTotalFuzzyScore         = 200.0
	fuzzyTitleEditDistance     = 3
	fuzzyTitleMaxDistanceRatio = 0.3
	fuzzyLabelWeight           = 30.0

	// trigramGateThreshold is the minimum trigram-Jaccard similarity
	// before edit distance is worth computing on a pair of strings.
	trigramGateThreshold = 0.25
)

// scorer computes the relevance score of candidate notes for one query.
type scorer struct {
	store           *graph.Store
	query           string
	tokens          []string
	normalizedQuery string
	fuzzyEnabled    bool
}

func newScorer(store *graph.Store, query string, fuzzyEnabled bool) *scorer {
	return &scorer{
		store:           store,
		query:           strings.ToLower(query),
		tokens:          tokenizeQuery(query),
		normalizedQuery: normalizeForScoring(query),
		fuzzyEnabled:    fuzzyEnabled,
	}
}

// score computes the scalar relevance of one note plus the separately
// tracked fuzzy-only contribution.
func (sc *scorer) score(note *models.Note) (score, fuzzyScore float64) {
	if strings.ToLower(note.NoteID) == sc.query {
		score += scoreNoteIDExactMatch
	}

	normalizedTitle := normalizeForScoring(note.Title)
	switch {
	case normalizedTitle == sc.normalizedQuery:
		score += scoreTitleExactMatch
	case strings.HasPrefix(normalizedTitle, sc.normalizedQuery):
		score += scoreTitlePrefixMatch
	case wordMatch(normalizedTitle, sc.normalizedQuery):
		score += scoreTitleWordMatch
	default:
		score += sc.fuzzyTitleScore(normalizedTitle, &fuzzyScore)
	}

	score += sc.labelScore(note, &fuzzyScore)

	score += sc.tokenScore(note.Title, titleFactor, &fuzzyScore)
	score += sc.tokenScore(sc.store.PathTitle(note.NoteID), pathFactor, &fuzzyScore)

	if sc.store.IsHidden(note.NoteID) {
		score /= hiddenNotePenalty
	}

	return score, fuzzyScore
}

// wordMatch reports whether query appears as a whole word of text.
func wordMatch(text, query string) bool {
	return strings.Contains(text, " "+query+" ") ||
		strings.HasPrefix(text, query+" ") ||
		strings.HasSuffix(text, " "+query)
}

// fuzzyTitleScore awards a partial title match scaled by edit-distance
// quality, charged against the cumulative fuzzy cap.
func (sc *scorer) fuzzyTitleScore(title string, fuzzyScore *float64) float64 {
	if !sc.fuzzyEnabled || *fuzzyScore >= maxTotalFuzzyScore {
		return 0
	}
	if len(sc.normalizedQuery) < minFuzzyTokenLength {
		return 0
	}
	if trigramSimilarity(title, sc.normalizedQuery) < trigramGateThreshold {
		return 0
	}

	dist := editDistance(title, sc.normalizedQuery, fuzzyTitleEditDistance)
	maxLen := len(title)
	if len(sc.normalizedQuery) > maxLen {
		maxLen = len(sc.normalizedQuery)
	}
	if maxLen == 0 || dist > fuzzyTitleEditDistance {
		return 0
	}
	ratio := float64(dist) / float64(maxLen)
	if ratio > fuzzyTitleMaxDistanceRatio {
		return 0
	}

	similarity := 1.0 - ratio
	base := scoreTitleWordMatch * similarity * 0.7
	capped := base
	if limit := maxTotalFuzzyScore * 0.3; capped > limit {
		capped = limit
	}
	*fuzzyScore += capped
	return capped
}

// labelScore awards matches of the query against label values and names.
// Value matches outrank key matches; fuzzy fallbacks sit below both and
// are charged against the fuzzy cap.
func (sc *scorer) labelScore(note *models.Note, fuzzyScore *float64) float64 {
	if sc.normalizedQuery == "" {
		return 0
	}

	var best float64
	for _, attr := range sc.store.OwnedAttributes(note.NoteID) {
		if attr.Type != models.AttributeLabel {
			continue
		}

		value := normalizeForScoring(attr.Value)
		key := normalizeForScoring(attr.Name)

		var s float64
		switch {
		case value != "" && value == sc.normalizedQuery:
			s = scoreLabelValueExact
		case value != "" && strings.HasPrefix(value, sc.normalizedQuery):
			s = scoreLabelValuePrefix
		case value != "" && strings.Contains(value, sc.normalizedQuery):
			s = scoreLabelValueContains
		case key == sc.normalizedQuery:
			s = scoreLabelKeyExact
		case strings.HasPrefix(key, sc.normalizedQuery):
			s = scoreLabelKeyPrefix
		case strings.Contains(key, sc.normalizedQuery):
			s = scoreLabelKeyContains
		default:
			s = sc.fuzzyLabelScore(value, key, fuzzyScore)
		}
		if s > best {
			best = s
		}
	}
	return best
}

func (sc *scorer) fuzzyLabelScore(value, key string, fuzzyScore *float64) float64 {
	if !sc.fuzzyEnabled || *fuzzyScore >= maxTotalFuzzyScore {
		return 0
	}
	if len(sc.normalizedQuery) < minFuzzyTokenLength {
		return 0
	}

	for _, candidate := range []string{value, key} {
		if candidate == "" {
			continue
		}
		if trigramSimilarity(candidate, sc.normalizedQuery) < trigramGateThreshold {
			continue
		}
		dist := editDistance(candidate, sc.normalizedQuery, maxEditDistance)
		if dist <= maxEditDistance {
			quality := 1.0 - float64(dist)/float64(maxEditDistance+1)
			award := fuzzyLabelWeight * quality
			if remaining := maxTotalFuzzyScore - *fuzzyScore; award > remaining {
				award = remaining
			}
			*fuzzyScore += award
			return award
		}
	}
	return 0
}

// tokenScore awards per-token matches against a text (title or note-path
// title), scaled by the text's factor. Fuzzy token matches are weighted
// below their deterministic counterparts and doubly capped.
func (sc *scorer) tokenScore(text string, factor float64, fuzzyScore *float64) float64 {
	chunks := strings.Split(normalizeForScoring(text), " ")

	var score float64
	for _, chunk := range chunks {
		if chunk == "" {
			continue
		}
		for _, tok := range sc.tokens {
			normTok := normalizeForScoring(tok)
			if normTok == "" {
				continue
			}

			switch {
			case chunk == normTok:
				score += tokenExactWeight * float64(len(tok)) * factor
			case strings.HasPrefix(chunk, normTok):
				score += tokenPrefixWeight * float64(len(tok)) * factor
			case strings.Contains(chunk, normTok):
				score += tokenContainsWeight * float64(len(tok)) * factor
			default:
				if !sc.fuzzyEnabled || *fuzzyScore >= maxTotalFuzzyScore || len(normTok) < minFuzzyTokenLength {
					continue
				}
				if trigramSimilarity(chunk, normTok) < trigramGateThreshold {
					continue
				}
				dist := editDistance(chunk, normTok, fuzzyTitleEditDistance)
				if dist > fuzzyTitleEditDistance {
					continue
				}
				weight := tokenFuzzyWeight * (1.0 - float64(dist)/float64(fuzzyTitleEditDistance))
				cappedLen := len(tok)
				if cappedLen > maxFuzzyTokenLength {
					cappedLen = maxFuzzyTokenLength
				}
				fuzzy := weight * float64(cappedLen) * factor
				if fuzzy > maxFuzzyScorePerToken {
					fuzzy = maxFuzzyScorePerToken
				}
				score += fuzzy
				*fuzzyScore += fuzzy
			}
		}
	}
	return score
}
