package testutils

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRevocationService struct {
	mock.Mock
}

func (m *MockRevocationService) IsRevoked(jti string) (bool, error) {
	args := m.Called(jti)
	return args.Bool(0), args.Error(1)
}

func (m *MockRevocationService) Revoke(jti string, expiresAt time.Time) error {
	args := m.Called(jti, expiresAt)
	return args.Error(0)
}
