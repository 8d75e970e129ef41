package graph

import (
	"strings"

	"github.com/trellis-notes/trellis/internal/models"
)

// RootNoteID anchors every note path.
const RootNoteID = "root"

// NotePath returns the root-to-note id path, choosing the first parent
// branch at each level. The DAG means a note can have several paths; this
// is the canonical one used for search results.
func (s *Store) NotePath(noteID string) []string {
	path := []string{noteID}
	current := noteID
	for current != RootNoteID {
		parents := s.ParentNoteIDs(current)
		if len(parents) == 0 {
			break
		}
		current = parents[0]
		path = append([]string{current}, path...)
	}
	return path
}

// PathTitle joins the titles along the note path, used as a secondary
// scoring signal.
func (s *Store) PathTitle(noteID string) string {
	var titles []string
	for _, id := range s.NotePath(noteID) {
		if id == RootNoteID {
			continue
		}
		if note := s.GetNote(id); note != nil {
			titles = append(titles, note.Title)
		}
	}
	return strings.Join(titles, " / ")
}

// HasLabel reports whether a note carries the (possibly inherited) label.
func (s *Store) HasLabel(noteID, name string) bool {
	for _, a := range s.Attributes(noteID) {
		if a.Type == models.AttributeLabel && strings.EqualFold(a.Name, name) {
			return true
		}
	}
	return false
}

// LabelValue returns the value of a note's first (possibly inherited)
// label of the given name.
func (s *Store) LabelValue(noteID, name string) (string, bool) {
	for _, a := range s.Attributes(noteID) {
		if a.Type == models.AttributeLabel && strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}
	return "", false
}

// IsArchived is derived from the inheritable "archived" label.
func (s *Store) IsArchived(noteID string) bool {
	return s.HasLabel(noteID, "archived")
}

// IsHidden is derived from the inheritable "hidden" label; hidden-subtree
// notes are penalized in scoring.
func (s *Store) IsHidden(noteID string) bool {
	return s.HasLabel(noteID, "hidden")
}

// ParentCount returns the number of non-deleted incoming branches.
func (s *Store) ParentCount(noteID string) int {
	return len(s.ParentNoteIDs(noteID))
}

// ChildrenCount returns the number of non-deleted outgoing branches.
func (s *Store) ChildrenCount(noteID string) int {
	return len(s.ChildNoteIDs(noteID))
}

// RevisionCount returns the number of stored revisions of a note.
func (s *Store) RevisionCount(noteID string) int {
	return s.revisionCounts[noteID]
}

// LabelCount counts a note's owned labels.
func (s *Store) LabelCount(noteID string) int {
	count := 0
	for _, a := range s.OwnedAttributes(noteID) {
		if a.Type == models.AttributeLabel {
			count++
		}
	}
	return count
}

// RelationCount counts a note's owned relations.
func (s *Store) RelationCount(noteID string) int {
	count := 0
	for _, a := range s.OwnedAttributes(noteID) {
		if a.Type == models.AttributeRelation {
			count++
		}
	}
	return count
}

// AttributeCount counts all attributes owned by a note.
func (s *Store) AttributeCount(noteID string) int {
	return len(s.OwnedAttributes(noteID))
}

// TargetRelationCount counts the relations pointing at a note.
func (s *Store) TargetRelationCount(noteID string) int {
	return len(s.TargetRelations(noteID))
}
