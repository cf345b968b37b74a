// Package mocks provides mock implementations of the platform contracts
// for consumers testing their own code against them.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/schwarzerdavid/family-helper/platform/types"
)

// MockLogger is a mock implementation of the Logger contract.
type MockLogger struct {
	mock.Mock
}

var _ types.Logger = (*MockLogger)(nil)

// Info mocks the Info method
func (m *MockLogger) Info(msg string, meta types.Fields) {
	m.Called(msg, meta)
}

// Warn mocks the Warn method
func (m *MockLogger) Warn(msg string, meta types.Fields) {
	m.Called(msg, meta)
}

// Error mocks the Error method
func (m *MockLogger) Error(msg string, meta types.Fields) {
	m.Called(msg, meta)
}

// Debug mocks the Debug method
func (m *MockLogger) Debug(msg string, meta types.Fields) {
	m.Called(msg, meta)
}

// WithFields mocks the WithFields method. When no return value is
// configured the mock returns itself, so derivations keep recording on the
// same instance.
func (m *MockLogger) WithFields(fields types.Fields) types.Logger {
	args := m.Called(fields)
	if log, ok := args.Get(0).(types.Logger); ok {
		return log
	}
	return m
}
