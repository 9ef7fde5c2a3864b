package repository

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.

import (
	"context"

	"dataapi/internal/model"
	"dataapi/internal/query"
	"dataapi/internal/schema"
)

// ListQuery carries the compiled inputs of a list operation.
type ListQuery struct {
	Filter *query.Filter
	Limit  int
	Cursor *query.Cursor
}

// ListPage is one page of records. NextCursor is nil only when the scan is
// exhausted. Rows that could not be scanned are reported in ScanErrors and
// excluded from Items; a page can carry both, so Items alone says nothing
// about whether more pages exist.
type ListPage struct {
	Items      []model.Record
	NextCursor *query.Cursor
	ScanErrors []error
}

// RecordRepository is schema-generic data access for model records.
// No business logic here — strictly persistence operations.
type RecordRepository interface {
	// List returns a keyset-paginated page ordered by (created_at, id) descending.
	List(ctx context.Context, m *schema.Model, q ListQuery) (*ListPage, error)

	// FindByID returns a record by primary key. Missing rows surface as
	// sql.ErrNoRows for the service layer to translate.
	FindByID(ctx context.Context, m *schema.Model, id string) (model.Record, error)

	// FindRelated returns the child records of a hasMany relation.
	FindRelated(ctx context.Context, rel *schema.Model, foreignKey, parentID string) ([]model.Record, error)

	// Create inserts a record. The caller provides all schema fields,
	// including id and timestamps.
	Create(ctx context.Context, m *schema.Model, rec model.Record) (model.Record, error)

	// Update applies the given field changes and returns the stored record.
	Update(ctx context.Context, m *schema.Model, id string, changes model.Record) (model.Record, error)

	// Delete removes a record by id. Deleting a missing row is not an error.
	Delete(ctx context.Context, m *schema.Model, id string) error
}
