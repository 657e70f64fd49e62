package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/cle/internal/domain/models"
)

type MockLicenseRepository struct {
	mock.Mock
}

func (m *MockLicenseRepository) Save(ctx context.Context, lic *models.License) error {
	args := m.Called(ctx, lic)
	return args.Error(0)
}

func (m *MockLicenseRepository) FindByID(ctx context.Context, id string) (*models.License, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.License), args.Error(1)
}

func (m *MockLicenseRepository) ListAll(ctx context.Context) ([]*models.License, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.License), args.Error(1)
}

func (m *MockLicenseRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLicenseRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
