package services

import (
	"github.com/stretchr/testify/mock"
)

// MockClientCounter is a mock for the ClientCounter interface
type MockClientCounter struct {
	mock.Mock
}

func (m *MockClientCounter) ClientCount() int {
	args := m.Called()
	return args.Int(0)
}
