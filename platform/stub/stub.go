// Package stub provides in-memory implementations of every platform service
// contract. The stubs simulate their external system well enough for
// development and tests: they log every call, keep state in process memory
// and never touch the network.
package stub

import (
	"github.com/schwarzerdavid/family-helper/platform/logger"
	"github.com/schwarzerdavid/family-helper/platform/types"
)

// fallbackLogger is used when a stub is constructed without a logger.
func fallbackLogger() types.Logger {
	return logger.New(types.Fields{"component": "stub"})
}
