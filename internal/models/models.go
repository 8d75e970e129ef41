package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateTimeFormat is the storage format for all entity timestamps.
const DateTimeFormat = "2006-01-02 15:04:05"

// Attribute types. A label carries a string value; a relation's value is
// the noteId of its target.
const (
	AttributeLabel    = "label"
	AttributeRelation = "relation"
)

// Note is one row of the notes table.
type Note struct {
	NoteID          string `json:"noteId"`
	Title           string `json:"title"`
	Type            string `json:"type"`
	Mime            string `json:"mime"`
	Content         string `json:"content,omitempty"`
	IsProtected     bool   `json:"isProtected"`
	IsDeleted       bool   `json:"isDeleted"`
	DateCreated     string `json:"dateCreated"`
	DateModified    string `json:"dateModified"`
	UTCDateCreated  string `json:"utcDateCreated"`
	UTCDateModified string `json:"utcDateModified"`
}

// Branch is one parent→child edge. A note may have several incoming
// branches (cloning), so the tree is really a DAG.
type Branch struct {
	BranchID        string `json:"branchId"`
	NoteID          string `json:"noteId"`
	ParentNoteID    string `json:"parentNoteId"`
	Prefix          string `json:"prefix"`
	NotePosition    int    `json:"notePosition"`
	IsDeleted       bool   `json:"isDeleted"`
	UTCDateModified string `json:"utcDateModified"`
}

// Attribute is one label or relation owned by a note.
type Attribute struct {
	AttributeID     string `json:"attributeId"`
	NoteID          string `json:"noteId"`
	Type            string `json:"type"`
	Name            string `json:"name"`
	Value           string `json:"value"`
	IsInheritable   bool   `json:"isInheritable"`
	Position        int    `json:"position"`
	IsDeleted       bool   `json:"isDeleted"`
	UTCDateModified string `json:"utcDateModified"`
}

// LabelValue returns the attribute's string value if it is a label.
func (a *Attribute) LabelValue() (string, bool) {
	if a.Type != AttributeLabel {
		return "", false
	}
	return a.Value, true
}

// TargetNoteID returns the target noteId if the attribute is a relation.
func (a *Attribute) TargetNoteID() (string, bool) {
	if a.Type != AttributeRelation {
		return "", false
	}
	return a.Value, true
}

// Revision is a point-in-time snapshot of a note taken before an update.
type Revision struct {
	RevisionID     string `json:"revisionId"`
	NoteID         string `json:"noteId"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	UTCDateCreated string `json:"utcDateCreated"`
}

// NewEntityID generates a stable 12-character entity id.
func NewEntityID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// NowLocal returns the current local timestamp in storage format.
func NowLocal() string {
	return time.Now().Format(DateTimeFormat)
}

// NowUTC returns the current UTC timestamp in storage format.
func NowUTC() string {
	return time.Now().UTC().Format(DateTimeFormat)
}
