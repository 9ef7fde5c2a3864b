package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"dataapi/internal/auth"
	"dataapi/internal/model"
	"dataapi/internal/repository"
	"dataapi/internal/schema"
	"dataapi/internal/storage"
)

var (
	ErrReaderNil          = errors.New("reader is nil")
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// PresignExpiry bounds how long a download URL stays valid.
const PresignExpiry = 15 * time.Minute

// AttachmentService handles files linked to records. Content lives in object
// storage; metadata lives in the attachments table.
type AttachmentService interface {
	// Upload streams the content to object storage, saves metadata, and rolls
	// back the stored object if the metadata save fails. The stored object key
	// is UUID-based; originalFilename only contributes the extension.
	Upload(ctx context.Context, modelName, recordID string, r io.Reader, originalFilename, contentType string, size int64, actor auth.Context) (*model.Attachment, error)

	// PresignDownload returns a time-limited URL for the record's attachment.
	PresignDownload(ctx context.Context, modelName, recordID string, actor auth.Context) (string, error)

	// Open returns the attachment content as a stream, for direct downloads.
	Open(ctx context.Context, modelName, recordID string, actor auth.Context) (io.ReadCloser, *model.Attachment, error)

	// Delete removes the attachment from both storage and the repository.
	Delete(ctx context.Context, modelName, recordID string, actor auth.Context) error
}

type attachmentService struct {
	reg     *schema.Registry
	store   storage.Storage
	records repository.RecordRepository
	repo    repository.AttachmentRepository
}

// NewAttachmentService constructs a new AttachmentService.
func NewAttachmentService(reg *schema.Registry, store storage.Storage, records repository.RecordRepository, repo repository.AttachmentRepository) AttachmentService {
	return &attachmentService{reg: reg, store: store, records: records, repo: repo}
}

func (s *attachmentService) Upload(ctx context.Context, modelName, recordID string, r io.Reader, originalFilename, contentType string, size int64, actor auth.Context) (*model.Attachment, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	m, _, err := s.ownedRecord(ctx, modelName, recordID, actor, true)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(originalFilename)
	genName := uuid.New().String() + ext
	key := filepath.ToSlash(filepath.Join("attachments", m.Table, genName))

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
			"record-id":         recordID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	att := &model.Attachment{
		ID:          uuid.New().String(),
		Model:       m.Name,
		RecordID:    recordID,
		Filename:    genName,
		StoragePath: objInfo.Key,
		Size:        objInfo.Size,
		ContentType: objInfo.ContentType,
		CreatedAt:   time.Now().UTC(),
	}
	stored, err := s.repo.Upsert(ctx, att)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *attachmentService) PresignDownload(ctx context.Context, modelName, recordID string, actor auth.Context) (string, error) {
	att, err := s.find(ctx, modelName, recordID, actor)
	if err != nil {
		return "", err
	}
	url, err := s.store.PresignGet(ctx, att.StoragePath, PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return url, nil
}

func (s *attachmentService) Open(ctx context.Context, modelName, recordID string, actor auth.Context) (io.ReadCloser, *model.Attachment, error) {
	att, err := s.find(ctx, modelName, recordID, actor)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, att.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage object: %w", err)
	}
	return rc, att, nil
}

func (s *attachmentService) Delete(ctx context.Context, modelName, recordID string, actor auth.Context) error {
	if _, _, err := s.ownedRecord(ctx, modelName, recordID, actor, true); err != nil {
		return err
	}
	att, err := s.repo.FindByRecord(ctx, modelName, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAttachmentNotFound
		}
		return err
	}
	// Delete from storage first; a failed object delete keeps the metadata row
	// so the reference is not lost.
	if err := s.store.Delete(ctx, att.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.repo.Delete(ctx, modelName, recordID)
}

// find resolves the attachment of a readable record.
func (s *attachmentService) find(ctx context.Context, modelName, recordID string, actor auth.Context) (*model.Attachment, error) {
	if _, _, err := s.ownedRecord(ctx, modelName, recordID, actor, false); err != nil {
		return nil, err
	}
	att, err := s.repo.FindByRecord(ctx, modelName, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	return att, nil
}

// ownedRecord loads the parent record and enforces the model's auth rules
// for the requested access.
func (s *attachmentService) ownedRecord(ctx context.Context, modelName, recordID string, actor auth.Context, write bool) (*schema.Model, model.Record, error) {
	m, ok := s.reg.Model(modelName)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelName)
	}
	allowed := m.ReadAllowed(string(actor.Mode))
	if write {
		allowed = m.WriteAllowed(string(actor.Mode))
	}
	if !allowed {
		return nil, nil, fmt.Errorf("%w: auth mode %s cannot access %s", auth.ErrUnauthorized, actor.Mode, m.Name)
	}
	if recordID == "" {
		return nil, nil, ErrIDRequired
	}

	rec, err := s.records.FindByID(ctx, m, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if m.Auth.OwnerField != "" && actor.Mode == auth.ModeUserPool {
		owner, _ := rec[m.Auth.OwnerField].(string)
		if owner != actor.Subject {
			return nil, nil, fmt.Errorf("%w: not authorized to access %s/%s", auth.ErrUnauthorized, m.Name, recordID)
		}
	}
	return m, rec, nil
}
