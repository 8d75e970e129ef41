// Package graph holds the in-memory entity graph mirroring the persisted
// note, branch and attribute tables. All search evaluation reads from this
// structure, never from the store directly.
//
// Entities live in flat maps keyed by their stable string ids; every
// relationship is an id lookup, never a direct pointer, so a reload simply
// swaps the maps. Reads take no lock: the graph is only mutated at
// transaction commit/rollback boundaries, which are the single-writer
// synchronization points.
package graph

import (
	"sort"
	"strings"

	"github.com/trellis-notes/trellis/internal/database"
	"github.com/trellis-notes/trellis/internal/logger"
	"github.com/trellis-notes/trellis/internal/models"
)

type Store struct {
	notes      map[string]*models.Note
	branches   map[string]*models.Branch
	attributes map[string]*models.Attribute

	// Reverse indexes, all id-valued.
	childBranchIDs  map[string][]string // parentNoteId -> branchIds
	parentBranchIDs map[string][]string // noteId -> branchIds
	noteAttrIDs     map[string][]string // noteId -> attributeIds
	attrNameIndex   map[string][]string // type + "/" + lower(name) -> attributeIds
	targetRelIDs    map[string][]string // target noteId -> relation attributeIds

	revisionCounts map[string]int

	noteRepo   *models.NoteRepository
	branchRepo *models.BranchRepository
	attrRepo   *models.AttributeRepository
}

// NewStore builds an empty store bound to the persistence layer and hooks
// itself into its commit/rollback notifications.
func NewStore(db *database.DB) *Store {
	s := &Store{
		noteRepo:   models.NewNoteRepository(db),
		branchRepo: models.NewBranchRepository(db),
		attrRepo:   models.NewAttributeRepository(db),
	}
	s.Reset()

	db.OnCommit(s.ApplyChanges)
	db.OnRollback(func() {
		if err := s.Reload(); err != nil {
			logger.Error("Graph reload after rollback failed: %v", err)
		}
	})
	return s
}

// Reset empties the graph without touching the persistence layer.
func (s *Store) Reset() {
	s.notes = make(map[string]*models.Note)
	s.branches = make(map[string]*models.Branch)
	s.attributes = make(map[string]*models.Attribute)
	s.childBranchIDs = make(map[string][]string)
	s.parentBranchIDs = make(map[string][]string)
	s.noteAttrIDs = make(map[string][]string)
	s.attrNameIndex = make(map[string][]string)
	s.targetRelIDs = make(map[string][]string)
	s.revisionCounts = make(map[string]int)
}

// Load populates the graph from the persistence layer.
func (s *Store) Load() error {
	notes, err := s.noteRepo.LoadAll()
	if err != nil {
		return err
	}
	branches, err := s.branchRepo.LoadAll()
	if err != nil {
		return err
	}
	attrs, err := s.attrRepo.LoadAll()
	if err != nil {
		return err
	}
	revisions, err := s.noteRepo.RevisionCounts()
	if err != nil {
		return err
	}

	for _, note := range notes {
		s.notes[note.NoteID] = note
	}
	for _, branch := range branches {
		s.putBranch(branch)
	}
	for _, attr := range attrs {
		s.putAttribute(attr)
	}
	s.revisionCounts = revisions

	logger.Debug("Graph loaded: %d notes, %d branches, %d attributes",
		len(s.notes), len(s.branches), len(s.attributes))
	return nil
}

// Reload performs a full rebuild from the persistence layer. Called after a
// failed transaction was rolled back, because the cache may have observed
// in-flight mutations the rollback undid.
func (s *Store) Reload() error {
	s.Reset()
	return s.Load()
}

func attrIndexKey(attrType, name string) string {
	return attrType + "/" + strings.ToLower(name)
}

func (s *Store) putBranch(b *models.Branch) {
	s.branches[b.BranchID] = b
	s.childBranchIDs[b.ParentNoteID] = append(s.childBranchIDs[b.ParentNoteID], b.BranchID)
	s.parentBranchIDs[b.NoteID] = append(s.parentBranchIDs[b.NoteID], b.BranchID)
}

func (s *Store) putAttribute(a *models.Attribute) {
	s.attributes[a.AttributeID] = a
	s.noteAttrIDs[a.NoteID] = append(s.noteAttrIDs[a.NoteID], a.AttributeID)
	key := attrIndexKey(a.Type, a.Name)
	s.attrNameIndex[key] = append(s.attrNameIndex[key], a.AttributeID)
	if target, ok := a.TargetNoteID(); ok {
		s.targetRelIDs[target] = append(s.targetRelIDs[target], a.AttributeID)
	}
}

func (s *Store) dropBranch(b *models.Branch) {
	delete(s.branches, b.BranchID)
	s.childBranchIDs[b.ParentNoteID] = removeID(s.childBranchIDs[b.ParentNoteID], b.BranchID)
	s.parentBranchIDs[b.NoteID] = removeID(s.parentBranchIDs[b.NoteID], b.BranchID)
}

func (s *Store) dropAttribute(a *models.Attribute) {
	delete(s.attributes, a.AttributeID)
	s.noteAttrIDs[a.NoteID] = removeID(s.noteAttrIDs[a.NoteID], a.AttributeID)
	key := attrIndexKey(a.Type, a.Name)
	s.attrNameIndex[key] = removeID(s.attrNameIndex[key], a.AttributeID)
	if target, ok := a.TargetNoteID(); ok {
		s.targetRelIDs[target] = removeID(s.targetRelIDs[target], a.AttributeID)
	}
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// ApplyChanges folds committed entity changes into the graph by refetching
// each changed row. Missing or soft-deleted rows drop out of the graph.
func (s *Store) ApplyChanges(changes []database.EntityChange) {
	for _, change := range changes {
		switch change.EntityName {
		case "notes":
			note, err := s.noteRepo.GetByID(change.EntityID)
			if err != nil || note.IsDeleted {
				delete(s.notes, change.EntityID)
				continue
			}
			s.notes[note.NoteID] = note
		case "branches":
			branch, err := s.branchRepo.GetByID(change.EntityID)
			if old, ok := s.branches[change.EntityID]; ok {
				s.dropBranch(old)
			}
			if err != nil || branch.IsDeleted {
				continue
			}
			s.putBranch(branch)
		case "attributes":
			attr, err := s.attrRepo.GetByID(change.EntityID)
			if old, ok := s.attributes[change.EntityID]; ok {
				s.dropAttribute(old)
			}
			if err != nil || attr.IsDeleted {
				continue
			}
			s.putAttribute(attr)
		default:
			logger.Warn("Unknown entity change: %s/%s", change.EntityName, change.EntityID)
		}
	}
}

// GetNote returns the cached note, or nil when the id is unknown. Callers
// must treat nil as a non-match, never as an error.
func (s *Store) GetNote(noteID string) *models.Note {
	return s.notes[noteID]
}

// GetBranch returns the cached branch, or nil.
func (s *Store) GetBranch(branchID string) *models.Branch {
	return s.branches[branchID]
}

// GetAttribute returns the cached attribute, or nil.
func (s *Store) GetAttribute(attributeID string) *models.Attribute {
	return s.attributes[attributeID]
}

// Notes returns every cached note in unspecified order.
func (s *Store) Notes() []*models.Note {
	notes := make([]*models.Note, 0, len(s.notes))
	for _, n := range s.notes {
		notes = append(notes, n)
	}
	return notes
}

// GetAttributesByName answers the reverse index: all attributes of the
// given type and (case-insensitive) name, in O(matches).
func (s *Store) GetAttributesByName(attrType, name string) []*models.Attribute {
	ids := s.attrNameIndex[attrIndexKey(attrType, name)]
	attrs := make([]*models.Attribute, 0, len(ids))
	for _, id := range ids {
		if a := s.attributes[id]; a != nil {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

// OwnedAttributes returns the attributes owned directly by a note, in
// position order.
func (s *Store) OwnedAttributes(noteID string) []*models.Attribute {
	ids := s.noteAttrIDs[noteID]
	attrs := make([]*models.Attribute, 0, len(ids))
	for _, id := range ids {
		if a := s.attributes[id]; a != nil {
			attrs = append(attrs, a)
		}
	}
	sort.SliceStable(attrs, func(i, j int) bool { return attrs[i].Position < attrs[j].Position })
	return attrs
}

// Attributes returns a note's owned attributes plus every inheritable
// attribute of its ancestors reachable through non-deleted branches.
func (s *Store) Attributes(noteID string) []*models.Attribute {
	attrs := s.OwnedAttributes(noteID)
	for ancestorID := range s.AncestorNoteIDs(noteID) {
		for _, a := range s.OwnedAttributes(ancestorID) {
			if a.IsInheritable {
				attrs = append(attrs, a)
			}
		}
	}
	return attrs
}

// TargetRelations returns the relations pointing at the given note.
func (s *Store) TargetRelations(noteID string) []*models.Attribute {
	ids := s.targetRelIDs[noteID]
	attrs := make([]*models.Attribute, 0, len(ids))
	for _, id := range ids {
		if a := s.attributes[id]; a != nil {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

// ParentNoteIDs returns the direct parents of a note through non-deleted
// branches.
func (s *Store) ParentNoteIDs(noteID string) []string {
	var parents []string
	for _, branchID := range s.parentBranchIDs[noteID] {
		if b := s.branches[branchID]; b != nil && !b.IsDeleted {
			parents = append(parents, b.ParentNoteID)
		}
	}
	return parents
}

// ChildNoteIDs returns the direct children of a note, ordered by branch
// position.
func (s *Store) ChildNoteIDs(noteID string) []string {
	var childBranches []*models.Branch
	for _, branchID := range s.childBranchIDs[noteID] {
		if b := s.branches[branchID]; b != nil && !b.IsDeleted {
			childBranches = append(childBranches, b)
		}
	}
	sort.SliceStable(childBranches, func(i, j int) bool {
		return childBranches[i].NotePosition < childBranches[j].NotePosition
	})
	children := make([]string, 0, len(childBranches))
	for _, b := range childBranches {
		children = append(children, b.NoteID)
	}
	return children
}

// ParentBranches returns the non-deleted incoming branches of a note.
func (s *Store) ParentBranches(noteID string) []*models.Branch {
	var branches []*models.Branch
	for _, branchID := range s.parentBranchIDs[noteID] {
		if b := s.branches[branchID]; b != nil && !b.IsDeleted {
			branches = append(branches, b)
		}
	}
	return branches
}

// AncestorNoteIDs walks up all parent branches and returns every ancestor
// noteId. DAG fan-in is handled with a visited set so shared ancestors are
// visited once.
func (s *Store) AncestorNoteIDs(noteID string) map[string]struct{} {
	visited := make(map[string]struct{})
	var walk func(id string)
	walk = func(id string) {
		for _, parentID := range s.ParentNoteIDs(id) {
			if _, seen := visited[parentID]; seen {
				continue
			}
			visited[parentID] = struct{}{}
			walk(parentID)
		}
	}
	walk(noteID)
	return visited
}

// SubtreeNoteIDs returns the note itself plus every descendant reachable
// through non-deleted branches, each visited once.
func (s *Store) SubtreeNoteIDs(noteID string) map[string]struct{} {
	visited := make(map[string]struct{})
	var walk func(id string)
	walk = func(id string) {
		if _, seen := visited[id]; seen {
			return
		}
		visited[id] = struct{}{}
		for _, childID := range s.ChildNoteIDs(id) {
			walk(childID)
		}
	}
	walk(noteID)
	return visited
}

// WouldCreateCycle reports whether putting childNoteID under parentNoteID
// would close a cycle: the degenerate self-parent case, or any overlap
// between the child's subtree and the parent's ancestry (parent included).
func (s *Store) WouldCreateCycle(parentNoteID, childNoteID string) bool {
	if parentNoteID == childNoteID {
		return true
	}
	subtree := s.SubtreeNoteIDs(childNoteID)
	if _, ok := subtree[parentNoteID]; ok {
		return true
	}
	for ancestorID := range s.AncestorNoteIDs(parentNoteID) {
		if _, ok := subtree[ancestorID]; ok {
			return true
		}
	}
	return false
}
