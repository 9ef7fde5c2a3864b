package mocks

import (
	"context"
	"io"

	"dataapi/internal/auth"
	"dataapi/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockAttachmentService struct {
	mock.Mock
}

func (m *MockAttachmentService) Upload(ctx context.Context, modelName, recordID string, r io.Reader, originalFilename, contentType string, size int64, actor auth.Context) (*model.Attachment, error) {
	args := m.Called(ctx, modelName, recordID, r, originalFilename, contentType, size, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attachment), args.Error(1)
}

func (m *MockAttachmentService) PresignDownload(ctx context.Context, modelName, recordID string, actor auth.Context) (string, error) {
	args := m.Called(ctx, modelName, recordID, actor)
	return args.String(0), args.Error(1)
}

func (m *MockAttachmentService) Open(ctx context.Context, modelName, recordID string, actor auth.Context) (io.ReadCloser, *model.Attachment, error) {
	args := m.Called(ctx, modelName, recordID, actor)
	var rc io.ReadCloser
	if args.Get(0) != nil {
		rc = args.Get(0).(io.ReadCloser)
	}
	var att *model.Attachment
	if args.Get(1) != nil {
		att = args.Get(1).(*model.Attachment)
	}
	return rc, att, args.Error(2)
}

func (m *MockAttachmentService) Delete(ctx context.Context, modelName, recordID string, actor auth.Context) error {
	args := m.Called(ctx, modelName, recordID, actor)
	return args.Error(0)
}
