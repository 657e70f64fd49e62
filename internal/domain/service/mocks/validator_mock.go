package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/internal/domain/service"
)

type MockLicenseValidator struct {
	mock.Mock
}

func (m *MockLicenseValidator) Validate(ctx context.Context, token string) (*models.LicenseClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LicenseClaims), args.Error(1)
}

type MockTokenProvider struct {
	mock.Mock
}

func (m *MockTokenProvider) Tokens(ctx context.Context) ([]service.ProvidedToken, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.ProvidedToken), args.Error(1)
}
