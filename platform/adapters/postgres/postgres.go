// Package postgres adapts a PostgreSQL connection pool to the Db contract.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/schwarzerdavid/family-helper/platform/metrics"
	"github.com/schwarzerdavid/family-helper/platform/types"
)

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 5
	connectTimeout      = 5 * time.Second
)

// Config carries the connection settings for the PostgreSQL adapter.
type Config struct {
	// DSN is a lib/pq connection string or postgres:// URL.
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Database implements the Db contract on a PostgreSQL connection pool.
type Database struct {
	db      *sqlx.DB
	logger  types.Logger
	metrics *metrics.Recorder
}

// New connects to PostgreSQL and verifies the connection before returning.
func New(cfg Config, log types.Logger, rec *metrics.Recorder) (*Database, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: DSN is required")
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}

	log.Info("Connecting to PostgreSQL database", types.Fields{
		"max_open_conns": cfg.MaxOpenConns,
		"max_idle_conns": cfg.MaxIdleConns,
	})

	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		log.Error("Failed to open database connection", types.Fields{"error": err})
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping database", types.Fields{"error": err})
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Successfully connected to PostgreSQL database", nil)
	rec.RecordSuccess("database_connect")

	return &Database{db: db, logger: log, metrics: rec}, nil
}

// Query runs query and returns every row as a column-name keyed map.
func (d *Database) Query(ctx context.Context, query string, params ...any) ([]map[string]any, error) {
	start := time.Now()

	rows, err := d.db.QueryxContext(ctx, query, params...)
	if err != nil {
		d.observe("database_query", start, err)
		d.logger.Error("Failed to query", types.Fields{"error": err})
		return nil, err
	}
	defer rows.Close()

	results := []map[string]any{}
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			d.observe("database_query", start, err)
			d.logger.Error("Failed to scan row", types.Fields{"error": err})
			return nil, err
		}
		results = append(results, normalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		d.observe("database_query", start, err)
		d.logger.Error("Failed to read rows", types.Fields{"error": err})
		return nil, err
	}

	d.observe("database_query", start, nil)
	return results, nil
}

// Execute runs a statement and returns the number of affected rows.
func (d *Database) Execute(ctx context.Context, query string, params ...any) (int64, error) {
	start := time.Now()

	result, err := d.db.ExecContext(ctx, query, params...)
	if err != nil {
		d.observe("database_execute", start, err)
		d.logger.Error("Failed to execute query", types.Fields{"error": err})
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		d.observe("database_execute", start, err)
		return 0, err
	}

	d.observe("database_execute", start, nil)
	return affected, nil
}

// WithTx runs fn inside a transaction, committing on nil and rolling back on
// error or panic. fn receives a tx-scoped handle satisfying the same Db
// contract; its WithTx joins the ongoing transaction instead of nesting.
func (d *Database) WithTx(ctx context.Context, fn func(tx types.Db) error) error {
	start := time.Now()

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		d.logger.Error("Failed to begin transaction", types.Fields{"error": err})
		return err
	}

	handle := &txHandle{tx: tx, logger: d.logger}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(handle); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Error("Failed to rollback", types.Fields{"error": rbErr})
		}
		d.observe("database_transaction", start, err)
		return err
	}

	if err := tx.Commit(); err != nil {
		d.logger.Error("Failed to commit", types.Fields{"error": err})
		d.observe("database_transaction", start, err)
		return err
	}

	d.observe("database_transaction", start, nil)
	return nil
}

// Ping verifies the connection.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the connection pool.
func (d *Database) Close() error {
	d.logger.Info("Closing database connection", nil)
	return d.db.Close()
}

func (d *Database) observe(operation string, start time.Time, err error) {
	d.metrics.RecordDuration(operation, time.Since(start).Seconds())
	if err != nil {
		d.metrics.RecordError(operation, fmt.Sprintf("%T", err))
		return
	}
	d.metrics.RecordSuccess(operation)
}

// txHandle satisfies the Db contract inside a transaction.
type txHandle struct {
	tx     *sqlx.Tx
	logger types.Logger
}

func (t *txHandle) Query(ctx context.Context, query string, params ...any) ([]map[string]any, error) {
	rows, err := t.tx.QueryxContext(ctx, query, params...)
	if err != nil {
		t.logger.Error("Failed to query in transaction", types.Fields{"error": err})
		return nil, err
	}
	defer rows.Close()

	results := []map[string]any{}
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		results = append(results, normalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (t *txHandle) Execute(ctx context.Context, query string, params ...any) (int64, error) {
	result, err := t.tx.ExecContext(ctx, query, params...)
	if err != nil {
		t.logger.Error("Failed to execute in transaction", types.Fields{"error": err})
		return 0, err
	}
	return result.RowsAffected()
}

// WithTx inside a transaction joins the ongoing one. PostgreSQL savepoints
// are out of scope.
func (t *txHandle) WithTx(ctx context.Context, fn func(tx types.Db) error) error {
	return fn(t)
}

// normalizeRow converts driver byte slices to strings so map results carry
// printable values. lib/pq scans most text columns as []byte.
func normalizeRow(row map[string]any) map[string]any {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}
