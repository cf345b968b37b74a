package stub

import (
	"context"

	"github.com/schwarzerdavid/family-helper/platform/types"
)

// FeatureFlags implements the FeatureFlags contract with fixed answers:
// every flag is enabled and every value lookup yields its default. Local
// runs exercise both sides of a flag by flipping the caller's default.
type FeatureFlags struct {
	logger types.Logger
}

// NewFeatureFlags creates the stub flag provider. A nil logger falls back
// to a console logger.
func NewFeatureFlags(log types.Logger) *FeatureFlags {
	if log == nil {
		log = fallbackLogger()
	}
	return &FeatureFlags{logger: log}
}

// IsEnabled always reports the flag as enabled.
func (f *FeatureFlags) IsEnabled(ctx context.Context, flag string, evalCtx map[string]any) (bool, error) {
	f.logger.Debug("Checking feature flag enabled status", types.Fields{
		"flag":    flag,
		"context": evalCtx,
		"result":  true,
	})
	return true, nil
}

// GetValue always yields the caller's default.
func (f *FeatureFlags) GetValue(ctx context.Context, flag string, defaultValue any, evalCtx map[string]any) (any, error) {
	f.logger.Debug("Getting feature flag value", types.Fields{
		"flag":          flag,
		"default_value": defaultValue,
		"context":       evalCtx,
		"result":        defaultValue,
	})
	return defaultValue, nil
}
