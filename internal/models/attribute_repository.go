package models

import (
	"database/sql"
	"errors"
	"fmt"

	interrors "github.com/trellis-notes/trellis/internal/errors"
	"github.com/trellis-notes/trellis/internal/database"
)

type AttributeRepository struct {
	db *database.DB
}

func NewAttributeRepository(db *database.DB) *AttributeRepository {
	return &AttributeRepository{db: db}
}

const attributeColumns = `attribute_id, note_id, type, name, value, is_inheritable, position, is_deleted, utc_date_modified`

func scanAttribute(row interface{ Scan(...interface{}) error }) (*Attribute, error) {
	var a Attribute
	err := row.Scan(&a.AttributeID, &a.NoteID, &a.Type, &a.Name, &a.Value,
		&a.IsInheritable, &a.Position, &a.IsDeleted, &a.UTCDateModified)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a label or relation for a note. Relation target existence
// is validated by the service layer before this runs.
func (r *AttributeRepository) Create(tx *database.Tx, noteID, attrType, name, value string, inheritable bool, position int) (*Attribute, error) {
	if attrType != AttributeLabel && attrType != AttributeRelation {
		return nil, fmt.Errorf("unknown attribute type %q", attrType)
	}

	attr := &Attribute{
		AttributeID:     NewEntityID(),
		NoteID:          noteID,
		Type:            attrType,
		Name:            name,
		Value:           value,
		IsInheritable:   inheritable,
		Position:        position,
		UTCDateModified: NowUTC(),
	}

	_, err := tx.Exec(`
		INSERT INTO attributes (attribute_id, note_id, type, name, value, is_inheritable, position, is_deleted, utc_date_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		attr.AttributeID, attr.NoteID, attr.Type, attr.Name, attr.Value,
		attr.IsInheritable, attr.Position, attr.UTCDateModified,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attribute: %w", err)
	}
	tx.RecordEntityChange("attributes", attr.AttributeID)
	return attr, nil
}

// GetByID loads an attribute row.
func (r *AttributeRepository) GetByID(attributeID string) (*Attribute, error) {
	attr, err := scanAttribute(r.db.QueryRow(
		"SELECT "+attributeColumns+" FROM attributes WHERE attribute_id = ?", attributeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interrors.ErrAttributeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attribute: %w", err)
	}
	return attr, nil
}

// LoadAll returns every non-deleted attribute. Used by the entity graph loader.
func (r *AttributeRepository) LoadAll() ([]*Attribute, error) {
	rows, err := r.db.Query("SELECT " + attributeColumns + " FROM attributes WHERE is_deleted = 0")
	if err != nil {
		return nil, fmt.Errorf("failed to load attributes: %w", err)
	}
	defer rows.Close()

	var attrs []*Attribute
	for rows.Next() {
		attr, err := scanAttribute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		attrs = append(attrs, attr)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return attrs, nil
}

// UpdateValue rewrites an attribute's value.
func (r *AttributeRepository) UpdateValue(tx *database.Tx, attributeID, value string) error {
	result, err := tx.Exec(
		"UPDATE attributes SET value = ?, utc_date_modified = ? WHERE attribute_id = ? AND is_deleted = 0",
		value, NowUTC(), attributeID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attribute: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 && !r.db.IsReadOnly() {
		return interrors.ErrAttributeNotFound
	}
	tx.RecordEntityChange("attributes", attributeID)
	return nil
}

// SoftDelete marks an attribute deleted.
func (r *AttributeRepository) SoftDelete(tx *database.Tx, attributeID string) error {
	result, err := tx.Exec(
		"UPDATE attributes SET is_deleted = 1, utc_date_modified = ? WHERE attribute_id = ? AND is_deleted = 0",
		NowUTC(), attributeID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete attribute: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 && !r.db.IsReadOnly() {
		return interrors.ErrAttributeNotFound
	}
	tx.RecordEntityChange("attributes", attributeID)
	return nil
}
