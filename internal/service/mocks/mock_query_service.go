package mocks

import (
	"context"

	"dataapi/internal/model"
	"dataapi/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) List(ctx context.Context, in service.ListInput) (*service.ListResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult), args.Error(1)
}

func (m *MockQueryService) Get(ctx context.Context, in service.GetInput) (model.Record, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Record), args.Error(1)
}

func (m *MockQueryService) Create(ctx context.Context, in service.MutateInput) (model.Record, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Record), args.Error(1)
}

func (m *MockQueryService) Update(ctx context.Context, in service.MutateInput) (model.Record, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Record), args.Error(1)
}

func (m *MockQueryService) Delete(ctx context.Context, in service.DeleteInput) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}
