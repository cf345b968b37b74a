package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/schwarzerdavid/family-helper/platform/types"
)

// MockConfig is a mock implementation of the Config contract.
type MockConfig struct {
	mock.Mock
}

var _ types.Config = (*MockConfig)(nil)

// Get mocks the Get method
func (m *MockConfig) Get(key string, required bool, defaultValue ...any) (any, error) {
	callArgs := []any{key, required}
	callArgs = append(callArgs, defaultValue...)
	args := m.Called(callArgs...)
	return args.Get(0), args.Error(1)
}

// GetInt mocks the GetInt method
func (m *MockConfig) GetInt(key string, required bool, defaultValue ...int) (int, error) {
	callArgs := []any{key, required}
	for _, v := range defaultValue {
		callArgs = append(callArgs, v)
	}
	args := m.Called(callArgs...)
	return args.Int(0), args.Error(1)
}

// GetBool mocks the GetBool method
func (m *MockConfig) GetBool(key string, required bool, defaultValue ...bool) (bool, error) {
	callArgs := []any{key, required}
	for _, v := range defaultValue {
		callArgs = append(callArgs, v)
	}
	args := m.Called(callArgs...)
	return args.Bool(0), args.Error(1)
}

// GetFloat mocks the GetFloat method
func (m *MockConfig) GetFloat(key string, required bool, defaultValue ...float64) (float64, error) {
	callArgs := []any{key, required}
	for _, v := range defaultValue {
		callArgs = append(callArgs, v)
	}
	args := m.Called(callArgs...)
	value, _ := args.Get(0).(float64)
	return value, args.Error(1)
}

// GetKeysWithPrefix mocks the GetKeysWithPrefix method
func (m *MockConfig) GetKeysWithPrefix(prefix string) map[string]string {
	args := m.Called(prefix)
	if keys, ok := args.Get(0).(map[string]string); ok {
		return keys
	}
	return nil
}
