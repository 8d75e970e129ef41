package search

import (
	"strings"

	"github.com/trellis-notes/trellis/internal/models"
)

const (
	snippetRadius = 40
	maxSnippets   = 3
)

// snippetsFor extracts short content excerpts around query token matches.
// Notes without content, or without a token hit in it, yield no snippets.
func snippetsFor(note *models.Note, tokens []string) []string {
	if note.Content == "" || len(tokens) == 0 {
		return nil
	}
	lower := strings.ToLower(note.Content)

	var snippets []string
	seen := make(map[int]bool)
	for _, tok := range tokens {
		if len(snippets) >= maxSnippets {
			break
		}
		idx := strings.Index(lower, tok)
		if idx < 0 {
			continue
		}
		start := idx - snippetRadius
		if start < 0 {
			start = 0
		}
		end := idx + len(tok) + snippetRadius
		if end > len(note.Content) {
			end = len(note.Content)
		}
		// Trim to rune boundaries so multi-byte characters survive slicing.
		for start > 0 && note.Content[start]&0xC0 == 0x80 {
			start--
		}
		for end < len(note.Content) && note.Content[end]&0xC0 == 0x80 {
			end++
		}
		if seen[start] {
			continue
		}
		seen[start] = true

		snippet := strings.TrimSpace(note.Content[start:end])
		if start > 0 {
			snippet = "…" + snippet
		}
		if end < len(note.Content) {
			snippet = snippet + "…"
		}
		snippets = append(snippets, snippet)
	}
	return snippets
}
