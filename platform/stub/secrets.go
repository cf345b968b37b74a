package stub

import (
	"context"
	"sync"

	"github.com/schwarzerdavid/family-helper/platform/config"
	"github.com/schwarzerdavid/family-helper/platform/types"
)

// Secrets implements the Secrets contract by falling back to configuration
// values, so development environments can keep secrets in the environment or
// a dotenv file. Unknown names resolve to a deterministic placeholder
// instead of failing.
type Secrets struct {
	mu     sync.Mutex
	logger types.Logger
	source config.Source
	cache  map[string]string
}

// NewSecrets creates the stub secrets service. A nil logger falls back to a
// console logger; a nil source falls back to the process environment.
func NewSecrets(log types.Logger, source config.Source) *Secrets {
	if log == nil {
		log = fallbackLogger()
	}
	if source == nil {
		source = config.EnvSource{}
	}
	return &Secrets{
		logger: log,
		source: source,
		cache:  make(map[string]string),
	}
}

// Get resolves a secret: first the permanent cache, then the source, then a
// "stub-secret-" placeholder that is cached like a real value.
func (s *Secrets) Get(ctx context.Context, name string) (string, error) {
	s.logger.Debug("Retrieving secret", types.Fields{"secret_name": name})

	s.mu.Lock()
	defer s.mu.Unlock()

	if value, ok := s.cache[name]; ok {
		s.logger.Debug("Secret found in cache", types.Fields{"secret_name": name})
		return value, nil
	}

	if value, ok := s.source.Lookup(name); ok && value != "" {
		s.logger.Debug("Secret found in environment variables", types.Fields{"secret_name": name})
		s.cache[name] = value
		return value, nil
	}

	// A real backend would fail here; the stub returns a placeholder so
	// development flows keep moving.
	placeholder := "stub-secret-" + name

	s.logger.Warn("Secret not found, returning placeholder", types.Fields{
		"secret_name": name,
		"placeholder": placeholder,
	})

	s.cache[name] = placeholder
	return placeholder, nil
}
