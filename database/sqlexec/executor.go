// Package sqlexec runs sqlbuilder statements through database/sql.  An
// Executor renders each statement for its dialect and hands the ordered
// parameter values to the driver.
package sqlexec

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/dropbox/sqldsl/database/sqlbuilder"
	"github.com/dropbox/sqldsl/dlog"
	"github.com/dropbox/sqldsl/errors"
)

// The subset of *sql.DB and *sql.Tx the executor needs.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Executor struct {
	db      *sql.DB
	run     runner
	dialect sqlbuilder.Database
	logger  *slog.Logger
}

// Open connects to the database described by cfg and verifies the
// connection.
func Open(ctx context.Context, cfg Config) (*Executor, error) {
	dialect, err := cfg.database()
	if err != nil {
		return nil, err
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "Failed to connect using driver %s", cfg.Driver)
	}

	return New(db, dialect), nil
}

// New wraps an already opened database.  Statements are rendered for
// dialect.
func New(db *sql.DB, dialect sqlbuilder.Database) *Executor {
	return &Executor{
		db:      db,
		run:     db,
		dialect: dialect,
	}
}

// WithLogger returns a copy of the executor that logs statements to logger
// instead of the dlog package logger.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	copied := *e
	copied.logger = logger
	return &copied
}

func (e *Executor) DB() *sql.DB {
	return e.db
}

func (e *Executor) Dialect() sqlbuilder.Database {
	return e.dialect
}

func (e *Executor) Close() error {
	return e.db.Close()
}

func (e *Executor) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return dlog.Logger()
}

// Render renders stmt for the executor's dialect.
func (e *Executor) Render(stmt sqlbuilder.Statement) (*sqlbuilder.RenderedStatement, error) {
	return stmt.Render(e.dialect)
}

func (e *Executor) Exec(
	ctx context.Context,
	stmt sqlbuilder.Statement) (sql.Result, error) {

	rendered, err := e.Render(stmt)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := e.run.ExecContext(ctx, rendered.SQL, rendered.Args()...)
	e.logStatement(ctx, "exec", rendered, start, err)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to execute: %s", rendered.SQL)
	}
	return result, nil
}

// Query runs stmt and returns the open rows.  The caller must close them.
func (e *Executor) Query(
	ctx context.Context,
	stmt sqlbuilder.Statement) (*sql.Rows, error) {

	rendered, err := e.Render(stmt)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := e.run.QueryContext(ctx, rendered.SQL, rendered.Args()...)
	e.logStatement(ctx, "query", rendered, start, err)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to query: %s", rendered.SQL)
	}
	return rows, nil
}

// QueryMaps runs stmt and reads every row into a column name to value map.
// Byte slices are returned as strings.
func (e *Executor) QueryMaps(
	ctx context.Context,
	stmt sqlbuilder.Statement) ([]string, []map[string]interface{}, error) {

	rows, err := e.Query(ctx, stmt)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	return ScanMaps(rows)
}

// QueryInt64 runs stmt, which must select a single integer value, and
// returns that value.
func (e *Executor) QueryInt64(
	ctx context.Context,
	stmt sqlbuilder.Statement) (int64, error) {

	rows, err := e.Query(ctx, stmt)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, errors.Wrap(err, "Failed to read row")
		}
		return 0, errors.New("Query returned no rows")
	}

	var value int64
	if err := rows.Scan(&value); err != nil {
		return 0, errors.Wrap(err, "Failed to scan value")
	}
	return value, rows.Err()
}

// InTx runs fn with an executor bound to a new transaction.  The
// transaction commits when fn returns nil and rolls back otherwise.
func (e *Executor) InTx(
	ctx context.Context,
	fn func(tx *Executor) error) (err error) {

	if _, ok := e.run.(*sql.Tx); ok {
		return errors.New("Nested transactions are not supported")
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Failed to begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	txExecutor := *e
	txExecutor.run = tx

	if err := fn(&txExecutor); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.log().WarnContext(ctx, "rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "Failed to commit transaction")
	}
	return nil
}

func (e *Executor) logStatement(
	ctx context.Context,
	kind string,
	rendered *sqlbuilder.RenderedStatement,
	start time.Time,
	err error) {

	attrs := []any{
		"kind", kind,
		"dialect", e.dialect.Name(),
		"sql", rendered.SQL,
		"params", len(rendered.Parameters),
		"elapsed", time.Since(start),
	}
	if err != nil {
		e.log().WarnContext(ctx, "statement failed", append(attrs, "error", err)...)
		return
	}
	e.log().DebugContext(ctx, "statement", attrs...)
}

// ScanMaps reads the remaining rows into maps keyed by column name.
func ScanMaps(rows *sql.Rows) ([]string, []map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.Wrap(err, "Failed to read columns")
	}

	results := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, errors.Wrap(err, "Failed to scan row")
		}

		row := make(map[string]interface{}, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "Failed to read rows")
	}
	return columns, results, nil
}
