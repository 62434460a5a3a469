package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTransfer is a mock implementation of payment.Transfer
type MockTransfer struct {
	mock.Mock
}

func (m *MockTransfer) Send(ctx context.Context, to string, amount uint64, token string) error {
	args := m.Called(ctx, to, amount, token)
	return args.Error(0)
}

// MockAuthorization is a mock implementation of payment.Authorization
type MockAuthorization struct {
	mock.Mock
}

func (m *MockAuthorization) IsAuthorizedDepositor(ctx context.Context, wallet string) (bool, error) {
	args := m.Called(ctx, wallet)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthorization) IsAuthorizedSessionCaller(ctx context.Context, wallet string) (bool, error) {
	args := m.Called(ctx, wallet)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthorization) IsAdmin(ctx context.Context, wallet string) (bool, error) {
	args := m.Called(ctx, wallet)
	return args.Bool(0), args.Error(1)
}
