// Package config implements the platform configuration contract on top of
// pluggable raw-value sources (process environment, dotenv files, fixed
// maps).
//
// Values resolve once per key and stay cached for the lifetime of the
// instance. A default value doubles as a type hint for conversion; without
// one, common patterns (integers, decimals, boolean tokens, JSON containers)
// are auto-detected.
package config

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// EnvironmentConfig reads configuration values from a Source with type
// conversion and per-key caching. The first resolution of a key wins: later
// calls return the cached value even when they carry a different default.
type EnvironmentConfig struct {
	mu     sync.Mutex
	source Source
	cache  map[string]any
}

// New returns a config reader backed by source. A nil source falls back to
// the process environment.
func New(source Source) *EnvironmentConfig {
	if source == nil {
		source = EnvSource{}
	}
	return &EnvironmentConfig{
		source: source,
		cache:  make(map[string]any),
	}
}

// NewFromEnv returns a config reader backed by the process environment.
func NewFromEnv() *EnvironmentConfig {
	return New(EnvSource{})
}

// Get resolves key to a typed value. A default, when given, fills in for a
// missing key and hints the conversion of a present one.
func (c *EnvironmentConfig) Get(key string, required bool, defaultValue ...any) (any, error) {
	return c.resolve(key, required, optional(defaultValue))
}

// GetInt resolves key and coerces the result to an int. A missing key with
// no default yields 0 without error.
func (c *EnvironmentConfig) GetInt(key string, required bool, defaultValue ...int) (int, error) {
	value, err := c.resolve(key, required, optionalInt(defaultValue))
	if err != nil {
		return 0, err
	}
	if value == nil || value == "" {
		return 0, nil
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, NewConfigError("configuration value '%s' for key '%s' cannot be converted to integer", v, key)
		}
		return n, nil
	default:
		return 0, NewConfigError("configuration value '%v' for key '%s' cannot be converted to integer", value, key)
	}
}

// GetBool resolves key and coerces the result to a bool. String values must
// be one of the accepted tokens; numeric values use non-zero truthiness. A
// missing key with no default yields false without error.
func (c *EnvironmentConfig) GetBool(key string, required bool, defaultValue ...bool) (bool, error) {
	value, err := c.resolve(key, required, optionalBool(defaultValue))
	if err != nil {
		return false, err
	}
	if value == nil || value == "" {
		return false, nil
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, ok := parseBoolToken(v)
		if !ok {
			return false, NewConfigError("configuration value '%s' for key '%s' cannot be converted to boolean", v, key)
		}
		return b, nil
	case int:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return false, NewConfigError("configuration value '%v' for key '%s' cannot be converted to boolean", value, key)
	}
}

// GetFloat resolves key and coerces the result to a float64. A missing key
// with no default yields 0 without error.
func (c *EnvironmentConfig) GetFloat(key string, required bool, defaultValue ...float64) (float64, error) {
	value, err := c.resolve(key, required, optionalFloat(defaultValue))
	if err != nil {
		return 0, err
	}
	if value == nil || value == "" {
		return 0, nil
	}
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, NewConfigError("configuration value '%s' for key '%s' cannot be converted to float", v, key)
		}
		return f, nil
	default:
		return 0, NewConfigError("configuration value '%v' for key '%s' cannot be converted to float", value, key)
	}
}

// GetKeysWithPrefix returns every key/value pair in the source whose key
// starts with prefix. The resolution cache is bypassed so the result always
// reflects the live source.
func (c *EnvironmentConfig) GetKeysWithPrefix(prefix string) map[string]string {
	result := make(map[string]string)
	for key, value := range c.source.All() {
		if strings.HasPrefix(key, prefix) {
			result[key] = value
		}
	}
	return result
}

// ClearCache drops every cached resolution so subsequent gets re-read the
// source. Useful for testing.
func (c *EnvironmentConfig) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]any)
}

// resolve implements the shared resolution order: cache, then the source,
// then the default, then the empty-string fallback. The cache answers before
// the required check runs, so a key resolved optionally earlier never fails
// a later required lookup.
func (c *EnvironmentConfig) resolve(key string, required bool, def any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.cache[key]; ok {
		return cached, nil
	}

	raw, ok := c.source.Lookup(key)
	if !ok || raw == "" {
		if required {
			return nil, NewConfigError("required configuration key '%s' is missing or empty", key)
		}
		if def != nil {
			c.cache[key] = def
			return def, nil
		}
		c.cache[key] = ""
		return "", nil
	}

	converted, err := convertValue(key, raw, def)
	if err != nil {
		return nil, err
	}
	c.cache[key] = converted
	return converted, nil
}

// convertValue turns a raw string into a typed value. A non-nil default
// hints the target type and makes conversion failures hard errors; a string
// default carries no hint. Without a hint, auto-detection applies.
func convertValue(key, raw string, def any) (any, error) {
	if def != nil {
		switch def.(type) {
		case int:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, NewConfigError("configuration value '%s' for key '%s' cannot be converted to integer", raw, key)
			}
			return n, nil
		case float64:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, NewConfigError("configuration value '%s' for key '%s' cannot be converted to float", raw, key)
			}
			return f, nil
		case bool:
			b, ok := parseBoolToken(raw)
			if !ok {
				return nil, NewConfigError("configuration value '%s' for key '%s' cannot be converted to boolean", raw, key)
			}
			return b, nil
		case string:
			// a string default carries no type hint
		default:
			if isJSONContainer(def) {
				var parsed any
				if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
					return nil, NewConfigError("configuration value '%s' for key '%s' is not valid JSON", raw, key)
				}
				return parsed, nil
			}
		}
	}
	return autoDetect(raw), nil
}

// autoDetect converts raw according to common patterns. Detection order:
// unsigned digit runs become ints, single-dot numerics become floats,
// boolean tokens become bools, brace/bracket-delimited values are tried as
// JSON. Anything else, including values that merely look numeric or like
// JSON but fail to parse, stays a string.
func autoDetect(raw string) any {
	if isAllDigits(raw) {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
		return raw
	}
	if looksLikeDecimal(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	if b, ok := parseBoolToken(raw); ok {
		return b
	}
	if (strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}")) ||
		(strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]")) {
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			return parsed
		}
	}
	return raw
}

// parseBoolToken maps the accepted boolean tokens, case-insensitively:
// true/1/yes/on and false/0/no/off.
func parseBoolToken(raw string) (value, ok bool) {
	switch strings.ToLower(raw) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	}
	return false, false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// looksLikeDecimal accepts values whose non-sign characters are digits with
// exactly one decimal point, e.g. "3.14" or "-0.5".
func looksLikeDecimal(s string) bool {
	stripped := strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), "-", "")
	return isAllDigits(stripped) && strings.Count(s, ".") == 1
}

func isJSONContainer(def any) bool {
	switch reflect.ValueOf(def).Kind() {
	case reflect.Map, reflect.Slice:
		return true
	}
	return false
}

func optional(values []any) any {
	if len(values) > 0 {
		return values[0]
	}
	return nil
}

func optionalInt(values []int) any {
	if len(values) > 0 {
		return values[0]
	}
	return nil
}

func optionalBool(values []bool) any {
	if len(values) > 0 {
		return values[0]
	}
	return nil
}

func optionalFloat(values []float64) any {
	if len(values) > 0 {
		return values[0]
	}
	return nil
}
