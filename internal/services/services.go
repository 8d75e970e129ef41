package services

import (
	"sort"

	"github.com/trellis-notes/trellis/internal/config"
	"github.com/trellis-notes/trellis/internal/database"
	apperrors "github.com/trellis-notes/trellis/internal/errors"
	"github.com/trellis-notes/trellis/internal/graph"
	"github.com/trellis-notes/trellis/internal/models"
	"github.com/trellis-notes/trellis/internal/search"
)

// Services contains all the service dependencies
type Services struct {
	Config     *config.Config
	DB         *database.DB
	Store      *graph.Store
	Notes      *NotesService
	Tree       *TreeService
	Attributes *AttributesService
	Search     *SearchService
}

// NewServices creates a new services container
func NewServices(cfg *config.Config, db *database.DB) (*Services, error) {
	store := graph.NewStore(db)
	if err := store.Load(); err != nil {
		return nil, err
	}

	noteRepo := models.NewNoteRepository(db)
	branchRepo := models.NewBranchRepository(db)
	attrRepo := models.NewAttributeRepository(db)

	notesService := NewNotesService(db, store, noteRepo, branchRepo, attrRepo)
	treeService := NewTreeService(db, store, branchRepo)
	attributesService := NewAttributesService(db, store, attrRepo)
	searchService := NewSearchService(cfg, store)

	return &Services{
		Config:     cfg,
		DB:         db,
		Store:      store,
		Notes:      notesService,
		Tree:       treeService,
		Attributes: attributesService,
		Search:     searchService,
	}, nil
}

// Close cleans up any resources
func (s *Services) Close() error {
	return s.DB.Close()
}

// NotesService handles note lifecycle operations
type NotesService struct {
	db         *database.DB
	store      *graph.Store
	noteRepo   *models.NoteRepository
	branchRepo *models.BranchRepository
	attrRepo   *models.AttributeRepository
}

func NewNotesService(db *database.DB, store *graph.Store, noteRepo *models.NoteRepository, branchRepo *models.BranchRepository, attrRepo *models.AttributeRepository) *NotesService {
	return &NotesService{
		db:         db,
		store:      store,
		noteRepo:   noteRepo,
		branchRepo: branchRepo,
		attrRepo:   attrRepo,
	}
}

func (s *NotesService) GetByID(noteID string) (*models.Note, error) {
	note := s.store.GetNote(noteID)
	if note == nil {
		return nil, apperrors.ErrNoteNotFound
	}
	return note, nil
}

// List returns every live note ordered by title.
func (s *NotesService) List() []*models.Note {
	notes := s.store.Notes()
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Title != notes[j].Title {
			return notes[i].Title < notes[j].Title
		}
		return notes[i].NoteID < notes[j].NoteID
	})
	return notes
}

// Create adds a note and its placement branch under parentNoteID in a
// single transaction. An empty parent places the note under the root.
func (s *NotesService) Create(parentNoteID, title, noteType, mime, content string) (*models.Note, error) {
	if title == "" {
		return nil, apperrors.ErrEmptyTitle
	}
	if parentNoteID == "" {
		parentNoteID = graph.RootNoteID
	}
	if s.store.GetNote(parentNoteID) == nil {
		return nil, apperrors.NewValidationError("parent note %q does not exist", parentNoteID)
	}
	if noteType == "" {
		noteType = "text"
	}
	if mime == "" {
		mime = "text/html"
	}

	position := s.store.ChildrenCount(parentNoteID) * 10

	var note *models.Note
	err := s.db.Transaction(func(tx *database.Tx) error {
		var err error
		note, err = s.noteRepo.Create(tx, title, noteType, mime, content)
		if err != nil {
			return err
		}
		_, err = s.branchRepo.Create(tx, note.NoteID, parentNoteID, "", position)
		return err
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (s *NotesService) Update(noteID, title, content string) (*models.Note, error) {
	note := s.store.GetNote(noteID)
	if note == nil {
		return nil, apperrors.ErrNoteNotFound
	}
	if title == "" {
		return nil, apperrors.ErrEmptyTitle
	}

	updated := *note
	updated.Title = title
	updated.Content = content
	err := s.db.Transaction(func(tx *database.Tx) error {
		return s.noteRepo.Update(tx, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete soft-deletes the note's subtree: each descendant reachable only
// through noteID goes away along with its branches and owned attributes.
func (s *NotesService) Delete(noteID string) error {
	if noteID == graph.RootNoteID {
		return apperrors.NewValidationError("the root note cannot be deleted")
	}
	if s.store.GetNote(noteID) == nil {
		return apperrors.ErrNoteNotFound
	}

	subtree := s.store.SubtreeNoteIDs(noteID)
	return s.db.Transaction(func(tx *database.Tx) error {
		for id := range subtree {
			// A descendant cloned under a parent outside the subtree
			// survives; it only loses its in-subtree placements.
			survives := false
			if id != noteID {
				for _, parentID := range s.store.ParentNoteIDs(id) {
					if _, inSubtree := subtree[parentID]; !inSubtree {
						survives = true
						break
					}
				}
			}

			for _, branch := range s.store.ParentBranches(id) {
				if _, inSubtree := subtree[branch.ParentNoteID]; !inSubtree && id != noteID {
					continue
				}
				if err := s.branchRepo.SoftDelete(tx, branch.BranchID); err != nil {
					return err
				}
			}
			if survives {
				continue
			}
			for _, attr := range s.store.OwnedAttributes(id) {
				if err := s.attrRepo.SoftDelete(tx, attr.AttributeID); err != nil {
					return err
				}
			}
			if err := s.noteRepo.SoftDelete(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// TreeService handles tree placement operations
type TreeService struct {
	db         *database.DB
	store      *graph.Store
	branchRepo *models.BranchRepository
}

func NewTreeService(db *database.DB, store *graph.Store, branchRepo *models.BranchRepository) *TreeService {
	return &TreeService{db: db, store: store, branchRepo: branchRepo}
}

// Move reparents a branch. Cycle detection runs against the in-memory
// graph before any row is touched, so a rejected move changes nothing.
func (s *TreeService) Move(branchID, newParentNoteID string) error {
	branch := s.store.GetBranch(branchID)
	if branch == nil {
		return apperrors.ErrBranchNotFound
	}
	if s.store.GetNote(newParentNoteID) == nil {
		return apperrors.NewValidationError("target parent %q does not exist", newParentNoteID)
	}
	if s.store.WouldCreateCycle(newParentNoteID, branch.NoteID) {
		return apperrors.NewValidationError("moving %q under %q would create a cycle", branch.NoteID, newParentNoteID)
	}

	return s.db.Transaction(func(tx *database.Tx) error {
		return s.branchRepo.Move(tx, branchID, newParentNoteID)
	})
}

// Clone adds a second placement for a note: a new branch under
// parentNoteID. The note itself is shared, not copied.
func (s *TreeService) Clone(noteID, parentNoteID string) (*models.Branch, error) {
	if s.store.GetNote(noteID) == nil {
		return nil, apperrors.ErrNoteNotFound
	}
	if s.store.GetNote(parentNoteID) == nil {
		return nil, apperrors.NewValidationError("target parent %q does not exist", parentNoteID)
	}
	for _, existing := range s.store.ParentNoteIDs(noteID) {
		if existing == parentNoteID {
			return nil, apperrors.NewValidationError("note %q is already placed under %q", noteID, parentNoteID)
		}
	}
	if s.store.WouldCreateCycle(parentNoteID, noteID) {
		return nil, apperrors.NewValidationError("cloning %q under %q would create a cycle", noteID, parentNoteID)
	}

	position := s.store.ChildrenCount(parentNoteID) * 10
	var branch *models.Branch
	err := s.db.Transaction(func(tx *database.Tx) error {
		var err error
		branch, err = s.branchRepo.Create(tx, noteID, parentNoteID, "", position)
		return err
	})
	if err != nil {
		return nil, err
	}
	return branch, nil
}

// AttributesService handles label and relation operations
type AttributesService struct {
	db       *database.DB
	store    *graph.Store
	attrRepo *models.AttributeRepository
}

func NewAttributesService(db *database.DB, store *graph.Store, attrRepo *models.AttributeRepository) *AttributesService {
	return &AttributesService{db: db, store: store, attrRepo: attrRepo}
}

func (s *AttributesService) AddLabel(noteID, name, value string, inheritable bool) (*models.Attribute, error) {
	return s.add(noteID, models.AttributeLabel, name, value, inheritable)
}

// AddRelation validates that the target note exists before creating the
// relation.
func (s *AttributesService) AddRelation(noteID, name, targetNoteID string, inheritable bool) (*models.Attribute, error) {
	if s.store.GetNote(targetNoteID) == nil {
		return nil, apperrors.NewValidationError("relation target %q does not exist", targetNoteID)
	}
	return s.add(noteID, models.AttributeRelation, name, targetNoteID, inheritable)
}

func (s *AttributesService) add(noteID, attrType, name, value string, inheritable bool) (*models.Attribute, error) {
	if s.store.GetNote(noteID) == nil {
		return nil, apperrors.ErrNoteNotFound
	}
	if name == "" {
		return nil, apperrors.NewValidationError("attribute name cannot be empty")
	}

	position := len(s.store.OwnedAttributes(noteID)) * 10
	var attr *models.Attribute
	err := s.db.Transaction(func(tx *database.Tx) error {
		var err error
		attr, err = s.attrRepo.Create(tx, noteID, attrType, name, value, inheritable, position)
		return err
	})
	if err != nil {
		return nil, err
	}
	return attr, nil
}

func (s *AttributesService) UpdateValue(attributeID, value string) error {
	attr := s.store.GetAttribute(attributeID)
	if attr == nil {
		return apperrors.ErrAttributeNotFound
	}
	if attr.Type == models.AttributeRelation && s.store.GetNote(value) == nil {
		return apperrors.NewValidationError("relation target %q does not exist", value)
	}
	return s.db.Transaction(func(tx *database.Tx) error {
		return s.attrRepo.UpdateValue(tx, attributeID, value)
	})
}

func (s *AttributesService) Delete(attributeID string) error {
	if s.store.GetAttribute(attributeID) == nil {
		return apperrors.ErrAttributeNotFound
	}
	return s.db.Transaction(func(tx *database.Tx) error {
		return s.attrRepo.SoftDelete(tx, attributeID)
	})
}

// SearchService handles query search operations
type SearchService struct {
	searcher *search.Searcher
}

func NewSearchService(cfg *config.Config, store *graph.Store) *SearchService {
	searcher := search.NewSearcher(store)
	searcher.SlowQueryThresholdMs = cfg.SlowQueryThresholdMs
	return &SearchService{searcher: searcher}
}

func (s *SearchService) Search(query string, ctx *search.Context) ([]*search.Result, error) {
	return s.searcher.Search(query, ctx)
}
