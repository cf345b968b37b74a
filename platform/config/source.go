package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Source supplies raw configuration values. Keeping the source explicit
// (instead of reading the process environment from inside the reader) lets
// tests and embedded tooling run against fixed values.
type Source interface {
	// Lookup returns the raw value for key and whether the key is set.
	Lookup(key string) (string, bool)

	// All returns every key/value pair the source currently holds.
	All() map[string]string
}

// EnvSource reads from the process environment.
type EnvSource struct{}

func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (EnvSource) All() map[string]string {
	values := make(map[string]string)
	for _, entry := range os.Environ() {
		if k, v, ok := strings.Cut(entry, "="); ok {
			values[k] = v
		}
	}
	return values
}

// StaticSource serves a fixed set of values. Useful for tests and for
// composing layered stacks.
type StaticSource map[string]string

func (s StaticSource) Lookup(key string) (string, bool) {
	value, ok := s[key]
	return value, ok
}

func (s StaticSource) All() map[string]string {
	values := make(map[string]string, len(s))
	for k, v := range s {
		values[k] = v
	}
	return values
}

// NewDotenvSource reads the given dotenv files into a static source.
// Missing files are skipped; later files override earlier ones, so callers
// list files from lowest to highest precedence (.env, .env.staging,
// .env.local).
func NewDotenvSource(paths ...string) (StaticSource, error) {
	merged := StaticSource{}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	return merged, nil
}

// Layered combines sources with first-hit-wins precedence: the first source
// that has the key set answers the lookup.
type Layered []Source

func (l Layered) Lookup(key string) (string, bool) {
	for _, source := range l {
		if value, ok := source.Lookup(key); ok {
			return value, true
		}
	}
	return "", false
}

func (l Layered) All() map[string]string {
	merged := make(map[string]string)
	for i := len(l) - 1; i >= 0; i-- {
		for k, v := range l[i].All() {
			merged[k] = v
		}
	}
	return merged
}
