package repository

import (
	"context"

	"dataapi/internal/model"
)

// AttachmentRepository defines data access for attachment metadata.
type AttachmentRepository interface {
	// Upsert inserts the attachment row for (model, record_id), replacing a
	// previous attachment of the same record. Returns the stored row.
	Upsert(ctx context.Context, att *model.Attachment) (*model.Attachment, error)

	// FindByRecord returns the attachment of a record.
	FindByRecord(ctx context.Context, modelName, recordID string) (*model.Attachment, error)

	// Delete removes the attachment row of a record. It returns nil if the
	// row was deleted or did not exist.
	Delete(ctx context.Context, modelName, recordID string) error
}
