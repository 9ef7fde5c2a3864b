package mocks

import (
	"context"

	"dataapi/internal/model"
	"dataapi/internal/repository"
	"dataapi/internal/schema"
	"github.com/stretchr/testify/mock"
)

type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) List(ctx context.Context, mdl *schema.Model, q repository.ListQuery) (*repository.ListPage, error) {
	args := m.Called(ctx, mdl, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ListPage), args.Error(1)
}

func (m *MockRecordRepository) FindByID(ctx context.Context, mdl *schema.Model, id string) (model.Record, error) {
	args := m.Called(ctx, mdl, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Record), args.Error(1)
}

func (m *MockRecordRepository) FindRelated(ctx context.Context, rel *schema.Model, foreignKey, parentID string) ([]model.Record, error) {
	args := m.Called(ctx, rel, foreignKey, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Record), args.Error(1)
}

func (m *MockRecordRepository) Create(ctx context.Context, mdl *schema.Model, rec model.Record) (model.Record, error) {
	args := m.Called(ctx, mdl, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Record), args.Error(1)
}

func (m *MockRecordRepository) Update(ctx context.Context, mdl *schema.Model, id string, changes model.Record) (model.Record, error) {
	args := m.Called(ctx, mdl, id, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Record), args.Error(1)
}

func (m *MockRecordRepository) Delete(ctx context.Context, mdl *schema.Model, id string) error {
	args := m.Called(ctx, mdl, id)
	return args.Error(0)
}
