package search

import (
	"sort"

	"github.com/trellis-notes/trellis/internal/models"
)

// Context is the per-query configuration. It is immutable for the duration
// of one query; the progressive orchestrator derives per-phase copies.
type Context struct {
	// FastSearch skips scanning note content bodies.
	FastSearch bool
	// IncludeArchivedNotes keeps notes under an "archived" label in the
	// candidate universe.
	IncludeArchivedNotes bool
	// FuzzyAttributeSearch lets attribute equality fall back to fuzzy
	// matching, used by typo-tolerant autocomplete callers.
	FuzzyAttributeSearch bool
	// EnableFuzzyMatching activates the fuzzy operators; the orchestrator
	// turns it off for the exact phase and on for the fallback phase.
	EnableFuzzyMatching bool
}

// withFuzzy returns a copy of the context with fuzzy matching toggled.
func (c Context) withFuzzy(enabled bool) *Context {
	c.EnableFuzzyMatching = enabled
	return &c
}

// NoteSet is the ephemeral working collection threaded through expression
// evaluation. Order is irrelevant; results are ordered later by scoring.
type NoteSet struct {
	notes map[string]*models.Note
}

func NewNoteSet(notes ...*models.Note) *NoteSet {
	s := &NoteSet{notes: make(map[string]*models.Note, len(notes))}
	for _, n := range notes {
		s.Add(n)
	}
	return s
}

func (s *NoteSet) Add(note *models.Note) {
	if note != nil {
		s.notes[note.NoteID] = note
	}
}

func (s *NoteSet) Contains(noteID string) bool {
	_, ok := s.notes[noteID]
	return ok
}

func (s *NoteSet) Len() int {
	return len(s.notes)
}

// SortedNotes returns the members ordered by noteId, giving evaluation a
// deterministic iteration order so repeated queries rank ties identically.
func (s *NoteSet) SortedNotes() []*models.Note {
	notes := make([]*models.Note, 0, len(s.notes))
	for _, n := range s.notes {
		notes = append(notes, n)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].NoteID < notes[j].NoteID })
	return notes
}

// Intersect returns the notes present in both sets.
func (s *NoteSet) Intersect(other *NoteSet) *NoteSet {
	out := NewNoteSet()
	for id, n := range s.notes {
		if other.Contains(id) {
			out.notes[id] = n
		}
	}
	return out
}

// Union returns the notes present in either set.
func (s *NoteSet) Union(other *NoteSet) *NoteSet {
	out := NewNoteSet()
	for id, n := range s.notes {
		out.notes[id] = n
	}
	for id, n := range other.notes {
		out.notes[id] = n
	}
	return out
}

// Subtract returns the notes of s absent from other.
func (s *NoteSet) Subtract(other *NoteSet) *NoteSet {
	out := NewNoteSet()
	for id, n := range s.notes {
		if !other.Contains(id) {
			out.notes[id] = n
		}
	}
	return out
}
