package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockClientRegistry struct {
	mock.Mock
}

func (m *MockClientRegistry) AddClient(ctx context.Context, clientID string) (bool, error) {
	args := m.Called(ctx, clientID)
	return args.Bool(0), args.Error(1)
}

func (m *MockClientRegistry) HasClient(ctx context.Context, clientID string) (bool, error) {
	args := m.Called(ctx, clientID)
	return args.Bool(0), args.Error(1)
}

func (m *MockClientRegistry) CountClients(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClientRegistry) AddIssuer(ctx context.Context, issuer string) (bool, error) {
	args := m.Called(ctx, issuer)
	return args.Bool(0), args.Error(1)
}

func (m *MockClientRegistry) HasIssuer(ctx context.Context, issuer string) (bool, error) {
	args := m.Called(ctx, issuer)
	return args.Bool(0), args.Error(1)
}

func (m *MockClientRegistry) CountIssuers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockClientDirectory struct {
	mock.Mock
}

func (m *MockClientDirectory) Exists(ctx context.Context, clientID string) (bool, error) {
	args := m.Called(ctx, clientID)
	return args.Bool(0), args.Error(1)
}
