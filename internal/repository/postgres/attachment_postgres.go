package postgres

import (
	"context"
	"database/sql"

	"dataapi/internal/model"
	"dataapi/internal/repository"
)

// AttachmentPostgres is a PostgreSQL implementation of
// repository.AttachmentRepository.
type AttachmentPostgres struct {
	db *sql.DB
}

// NewAttachmentPostgres creates a new AttachmentPostgres repository.
func NewAttachmentPostgres(db *sql.DB) *AttachmentPostgres {
	return &AttachmentPostgres{db: db}
}

var _ repository.AttachmentRepository = (*AttachmentPostgres)(nil)

// Upsert inserts or replaces the attachment row of a record.
func (r *AttachmentPostgres) Upsert(ctx context.Context, att *model.Attachment) (*model.Attachment, error) {
	const q = `
		INSERT INTO attachments (id, model, record_id, filename, storage_path, size, content_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (model, record_id) DO UPDATE SET
			id = EXCLUDED.id,
			filename = EXCLUDED.filename,
			storage_path = EXCLUDED.storage_path,
			size = EXCLUDED.size,
			content_type = EXCLUDED.content_type,
			created_at = EXCLUDED.created_at
		RETURNING id, model, record_id, filename, storage_path, size, content_type, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		att.ID,
		att.Model,
		att.RecordID,
		att.Filename,
		att.StoragePath,
		att.Size,
		att.ContentType,
		att.CreatedAt,
	)
	var out model.Attachment
	if err := row.Scan(
		&out.ID,
		&out.Model,
		&out.RecordID,
		&out.Filename,
		&out.StoragePath,
		&out.Size,
		&out.ContentType,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByRecord fetches the attachment of a record.
func (r *AttachmentPostgres) FindByRecord(ctx context.Context, modelName, recordID string) (*model.Attachment, error) {
	const q = `
		SELECT id, model, record_id, filename, storage_path, size, content_type, created_at
		FROM attachments
		WHERE model = $1 AND record_id = $2
	`
	row := r.db.QueryRowContext(ctx, q, modelName, recordID)
	var a model.Attachment
	if err := row.Scan(
		&a.ID,
		&a.Model,
		&a.RecordID,
		&a.Filename,
		&a.StoragePath,
		&a.Size,
		&a.ContentType,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete removes the attachment row of a record.
func (r *AttachmentPostgres) Delete(ctx context.Context, modelName, recordID string) error {
	const q = `DELETE FROM attachments WHERE model = $1 AND record_id = $2`
	res, err := r.db.ExecContext(ctx, q, modelName, recordID)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}
