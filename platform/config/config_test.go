package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentConfig_Get(t *testing.T) {
	tests := []struct {
		name     string
		source   StaticSource
		key      string
		required bool
		def      []any
		expected any
		wantErr  string
	}{
		{
			name:     "existing string value",
			source:   StaticSource{"TEST_KEY": "test_value"},
			key:      "TEST_KEY",
			expected: "test_value",
		},
		{
			name:     "missing key not required returns empty string",
			source:   StaticSource{},
			key:      "MISSING_KEY",
			expected: "",
		},
		{
			name:     "missing key required fails",
			source:   StaticSource{},
			key:      "MISSING_KEY",
			required: true,
			wantErr:  "required configuration key 'MISSING_KEY' is missing or empty",
		},
		{
			name:     "empty value required fails",
			source:   StaticSource{"EMPTY_KEY": ""},
			key:      "EMPTY_KEY",
			required: true,
			wantErr:  "required configuration key 'EMPTY_KEY' is missing or empty",
		},
		{
			name:     "default fills in for missing key",
			source:   StaticSource{},
			key:      "MISSING_KEY",
			def:      []any{"default_value"},
			expected: "default_value",
		},
		{
			name:     "source value beats default",
			source:   StaticSource{"TEST_KEY": "env_value"},
			key:      "TEST_KEY",
			def:      []any{"default_value"},
			expected: "env_value",
		},
		{
			name:     "zero is a valid default",
			source:   StaticSource{},
			key:      "MISSING_KEY",
			def:      []any{0},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New(tt.source)

			result, err := cfg.Get(tt.key, tt.required, tt.def...)

			if tt.wantErr != "" {
				require.Error(t, err)
				var configErr *ConfigError
				require.ErrorAs(t, err, &configErr)
				assert.Contains(t, configErr.Message, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEnvironmentConfig_AutoDetection(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected any
	}{
		{"integer string", "123", 123},
		{"float string", "123.456", 123.456},
		{"true token", "true", true},
		{"false token", "false", false},
		{"mixed case token", "TrUe", true},
		{"yes token", "yes", true},
		{"off token", "off", false},
		{"json object", `{"key": "value", "number": 42}`, map[string]any{"key": "value", "number": float64(42)}},
		{"json array", `[1, 2, "three", true]`, []any{float64(1), float64(2), "three", true}},
		{"invalid json stays string", `{"invalid": json}`, `{"invalid": json}`},
		{"plain string", "hello world", "hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New(StaticSource{"KEY": tt.raw})

			result, err := cfg.Get("KEY", false)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEnvironmentConfig_DefaultTypeHints(t *testing.T) {
	t.Run("int default converts", func(t *testing.T) {
		cfg := New(StaticSource{"PORT": "8080"})

		result, err := cfg.Get("PORT", false, 0)

		require.NoError(t, err)
		assert.Equal(t, 8080, result)
	})

	t.Run("float default converts", func(t *testing.T) {
		cfg := New(StaticSource{"RATIO": "42.0"})

		result, err := cfg.Get("RATIO", false, 0.0)

		require.NoError(t, err)
		assert.Equal(t, 42.0, result)
	})

	t.Run("bool default converts tokens", func(t *testing.T) {
		cfg := New(StaticSource{"ENABLED": "on"})

		result, err := cfg.Get("ENABLED", false, false)

		require.NoError(t, err)
		assert.Equal(t, true, result)
	})

	t.Run("string default gives no hint, auto-detection still runs", func(t *testing.T) {
		cfg := New(StaticSource{"PORT": "8080"})

		result, err := cfg.Get("PORT", false, "")

		require.NoError(t, err)
		assert.Equal(t, 8080, result)
	})

	t.Run("map default requires valid json", func(t *testing.T) {
		cfg := New(StaticSource{"OPTS": "not json"})

		_, err := cfg.Get("OPTS", false, map[string]any{})

		var configErr *ConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Contains(t, configErr.Message, "is not valid JSON")
	})

	t.Run("int default with unparsable value fails", func(t *testing.T) {
		cfg := New(StaticSource{"PORT": "eighty"})

		_, err := cfg.Get("PORT", false, 0)

		var configErr *ConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Contains(t, configErr.Message, "cannot be converted to integer")
		assert.Contains(t, configErr.Message, "'PORT'")
	})

	t.Run("bool default with unparsable value fails", func(t *testing.T) {
		cfg := New(StaticSource{"ENABLED": "maybe"})

		_, err := cfg.Get("ENABLED", false, false)

		var configErr *ConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Contains(t, configErr.Message, "cannot be converted to boolean")
	})
}

func TestEnvironmentConfig_GetInt(t *testing.T) {
	tests := []struct {
		name     string
		source   StaticSource
		def      []int
		expected int
		wantErr  bool
	}{
		{"valid integer", StaticSource{"KEY": "42"}, nil, 42, false},
		{"missing key returns zero", StaticSource{}, nil, 0, false},
		{"default when missing", StaticSource{}, []int{100}, 100, false},
		{"float value truncates", StaticSource{"KEY": "3.9"}, nil, 3, false},
		{"negative integer", StaticSource{"KEY": "-42"}, nil, -42, false},
		{"invalid integer", StaticSource{"KEY": "not_a_number"}, nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New(tt.source)

			result, err := cfg.GetInt("KEY", false, tt.def...)

			if tt.wantErr {
				var configErr *ConfigError
				require.ErrorAs(t, err, &configErr)
				assert.Contains(t, configErr.Message, "cannot be converted to integer")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEnvironmentConfig_GetBool(t *testing.T) {
	trueTokens := []string{"true", "True", "TRUE", "1", "yes", "YES", "on", "ON"}
	for _, token := range trueTokens {
		t.Run("true token "+token, func(t *testing.T) {
			cfg := New(StaticSource{"KEY": token})

			result, err := cfg.GetBool("KEY", false)

			require.NoError(t, err)
			assert.True(t, result)
		})
	}

	falseTokens := []string{"false", "False", "FALSE", "0", "no", "NO", "off", "OFF"}
	for _, token := range falseTokens {
		t.Run("false token "+token, func(t *testing.T) {
			cfg := New(StaticSource{"KEY": token})

			result, err := cfg.GetBool("KEY", false)

			require.NoError(t, err)
			assert.False(t, result)
		})
	}

	t.Run("invalid token fails", func(t *testing.T) {
		cfg := New(StaticSource{"KEY": "maybe"})

		_, err := cfg.GetBool("KEY", false)

		var configErr *ConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Contains(t, configErr.Message, "cannot be converted to boolean")
	})

	t.Run("defaults apply when missing", func(t *testing.T) {
		cfg := New(StaticSource{})

		enabled, err := cfg.GetBool("MISSING_TRUE", false, true)
		require.NoError(t, err)
		assert.True(t, enabled)

		disabled, err := cfg.GetBool("MISSING_FALSE", false, false)
		require.NoError(t, err)
		assert.False(t, disabled)
	})

	t.Run("missing without default returns false", func(t *testing.T) {
		cfg := New(StaticSource{})

		result, err := cfg.GetBool("MISSING", false)

		require.NoError(t, err)
		assert.False(t, result)
	})
}

func TestEnvironmentConfig_GetFloat(t *testing.T) {
	tests := []struct {
		name     string
		source   StaticSource
		def      []float64
		expected float64
		wantErr  bool
	}{
		{"valid float", StaticSource{"KEY": "3.14"}, nil, 3.14, false},
		{"integer string widens", StaticSource{"KEY": "42"}, nil, 42.0, false},
		{"negative float", StaticSource{"KEY": "-3.14"}, nil, -3.14, false},
		{"missing key returns zero", StaticSource{}, nil, 0, false},
		{"default when missing", StaticSource{}, []float64{1.5}, 1.5, false},
		{"invalid float", StaticSource{"KEY": "not_a_number"}, nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New(tt.source)

			result, err := cfg.GetFloat("KEY", false, tt.def...)

			if tt.wantErr {
				var configErr *ConfigError
				require.ErrorAs(t, err, &configErr)
				assert.Contains(t, configErr.Message, "cannot be converted to float")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEnvironmentConfig_Caching(t *testing.T) {
	t.Run("first resolution wins over a later default", func(t *testing.T) {
		cfg := New(StaticSource{})

		first, err := cfg.Get("KEY", false, "a")
		require.NoError(t, err)
		assert.Equal(t, "a", first)

		// The second default is ignored: the cache answers first
		second, err := cfg.Get("KEY", false, "b")
		require.NoError(t, err)
		assert.Equal(t, "a", second)
	})

	t.Run("cache hit short-circuits the required check", func(t *testing.T) {
		cfg := New(StaticSource{})

		first, err := cfg.Get("KEY", false)
		require.NoError(t, err)
		assert.Equal(t, "", first)

		// Once cached, even a required lookup succeeds with the cached value
		second, err := cfg.Get("KEY", true)
		require.NoError(t, err)
		assert.Equal(t, "", second)
	})

	t.Run("source changes invisible until cache cleared", func(t *testing.T) {
		source := StaticSource{"KEY": "before"}
		cfg := New(source)

		first, err := cfg.Get("KEY", false)
		require.NoError(t, err)
		assert.Equal(t, "before", first)

		source["KEY"] = "after"

		cached, err := cfg.Get("KEY", false)
		require.NoError(t, err)
		assert.Equal(t, "before", cached)

		cfg.ClearCache()

		fresh, err := cfg.Get("KEY", false)
		require.NoError(t, err)
		assert.Equal(t, "after", fresh)
	})
}

func TestEnvironmentConfig_GetKeysWithPrefix(t *testing.T) {
	source := StaticSource{
		"APP_NAME":     "family-helper",
		"APP_VERSION":  "1.0.0",
		"APP_DEBUG":    "true",
		"DATABASE_URL": "postgres://localhost/app",
		"OTHER_KEY":    "value",
	}
	cfg := New(source)

	t.Run("returns matching keys", func(t *testing.T) {
		result := cfg.GetKeysWithPrefix("APP_")

		assert.Equal(t, map[string]string{
			"APP_NAME":    "family-helper",
			"APP_VERSION": "1.0.0",
			"APP_DEBUG":   "true",
		}, result)
	})

	t.Run("no matches returns empty map", func(t *testing.T) {
		result := cfg.GetKeysWithPrefix("NONEXISTENT_")

		assert.Empty(t, result)
	})

	t.Run("bypasses the cache", func(t *testing.T) {
		// Resolve APP_DEBUG so a converted value sits in the cache
		value, err := cfg.Get("APP_DEBUG", false)
		require.NoError(t, err)
		assert.Equal(t, true, value)

		// The prefix scan still reports the raw source string
		result := cfg.GetKeysWithPrefix("APP_DEBUG")
		assert.Equal(t, map[string]string{"APP_DEBUG": "true"}, result)
	})
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("required configuration key '%s' is missing or empty", "API_KEY")

	assert.Equal(t, "required configuration key 'API_KEY' is missing or empty", err.Message)
	assert.Equal(t, err.Message, err.Error())
}
