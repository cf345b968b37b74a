package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/schwarzerdavid/family-helper/platform/types"
)

// Database implements the Db contract without a backing database: queries
// return no rows, statements report one affected row, and transactions track
// their nesting depth so the logs show which operations ran transactionally.
type Database struct {
	mu               sync.Mutex
	logger           types.Logger
	transactionDepth int
}

// NewDatabase creates the stub database. A nil logger falls back to a
// console logger.
func NewDatabase(log types.Logger) *Database {
	if log == nil {
		log = fallbackLogger()
	}
	return &Database{logger: log}
}

// Query logs the statement and returns an empty result set.
func (d *Database) Query(ctx context.Context, query string, params ...any) ([]map[string]any, error) {
	d.logger.Debug(d.txPrefix()+"Stub database query executed", types.Fields{
		"sql":               query,
		"params":            normalizeParams(params),
		"transaction_depth": d.depth(),
	})
	return []map[string]any{}, nil
}

// Execute logs the statement and reports one affected row.
func (d *Database) Execute(ctx context.Context, query string, params ...any) (int64, error) {
	d.logger.Debug(d.txPrefix()+"Stub database execute performed", types.Fields{
		"sql":               query,
		"params":            normalizeParams(params),
		"transaction_depth": d.depth(),
	})
	return 1, nil
}

// WithTx runs fn with the transaction depth raised, handing fn this same
// instance as the transaction-scoped handle. fn's error rolls the
// transaction back (in logs) and is returned unchanged; nested calls just
// raise the depth further.
func (d *Database) WithTx(ctx context.Context, fn func(tx types.Db) error) error {
	d.mu.Lock()
	entryDepth := d.transactionDepth
	d.transactionDepth++
	d.mu.Unlock()

	d.logger.Debug("Starting database transaction", types.Fields{
		"transaction_depth": entryDepth,
	})

	defer func() {
		d.mu.Lock()
		d.transactionDepth--
		d.mu.Unlock()
	}()

	if err := fn(d); err != nil {
		d.logger.Error("Database transaction rolled back", types.Fields{
			"error":             err.Error(),
			"error_type":        fmt.Sprintf("%T", err),
			"transaction_depth": entryDepth,
		})
		return err
	}

	d.logger.Debug("Database transaction committed", types.Fields{
		"transaction_depth": entryDepth,
	})
	return nil
}

func (d *Database) depth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transactionDepth
}

func (d *Database) txPrefix() string {
	if d.depth() > 0 {
		return "[TX] "
	}
	return ""
}

// normalizeParams keeps the params log field an array even for calls with
// no parameters.
func normalizeParams(params []any) []any {
	if params == nil {
		return []any{}
	}
	return params
}
