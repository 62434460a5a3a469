package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockResolver is a mock implementation of identity.Resolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) OwnerOf(ctx context.Context, unitID uint64) (string, error) {
	args := m.Called(ctx, unitID)
	return args.String(0), args.Error(1)
}

func (m *MockResolver) IsEligibleUnit(ctx context.Context, unitID uint64) (bool, error) {
	args := m.Called(ctx, unitID)
	return args.Bool(0), args.Error(1)
}

func (m *MockResolver) PenaltyCount(ctx context.Context, unitID uint64) (uint64, error) {
	args := m.Called(ctx, unitID)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockResolver) SupportedTokens(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
