package sqlexec

import (
	"database/sql"
	"database/sql/driver"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/dropbox/sqldsl/database/sqlbuilder"
	"github.com/dropbox/sqldsl/errors"
)

// Driver names accepted by Open.
const (
	MySQLDriver    = "mysql"
	PgxDriver      = "pgx"
	PostgresDriver = "postgres"
	SQLiteDriver   = "sqlite"
)

type Config struct {
	Driver string
	DSN    string

	// Dialect overrides the placeholder style implied by Driver.
	Dialect string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// database returns the render dialect for the config.
func (c Config) database() (sqlbuilder.Database, error) {
	if c.Dialect != "" {
		return sqlbuilder.DatabaseForDialect(c.Dialect)
	}
	if c.Driver == "" {
		return nil, errors.New("No database driver configured")
	}
	return sqlbuilder.DatabaseForDialect(c.Driver)
}

// NormalizeMySQLDSN parses a go-sql-driver DSN and turns on the options
// the executor relies on: time values are scanned into time.Time and
// multi-statement strings are rejected.
func NormalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysqlConfig(dsn)
	if err != nil {
		return "", err
	}
	return cfg.FormatDSN(), nil
}

func mysqlConfig(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid mysql dsn")
	}
	cfg.ParseTime = true
	cfg.MultiStatements = false
	return cfg, nil
}

func openDB(cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.Newf("No dsn configured for driver %s", cfg.Driver)
	}

	var connector driver.Connector
	switch strings.ToLower(cfg.Driver) {
	case MySQLDriver:
		mysqlCfg, err := mysqlConfig(cfg.DSN)
		if err != nil {
			return nil, err
		}
		connector, err = mysql.NewConnector(mysqlCfg)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to create mysql connector")
		}
	case PgxDriver:
		connCfg, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid pgx dsn")
		}
		return stdlib.OpenDB(*connCfg), nil
	case PostgresDriver:
		var err error
		connector, err = pq.NewConnector(cfg.DSN)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid postgres dsn")
		}
	case SQLiteDriver:
		db, err := sql.Open(SQLiteDriver, cfg.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to open sqlite database")
		}
		if strings.Contains(cfg.DSN, ":memory:") {
			// Each connection to :memory: is a separate database.
			db.SetMaxOpenConns(1)
		}
		return db, nil
	default:
		return nil, errors.Newf("Unsupported database driver: %s", cfg.Driver)
	}

	return sql.OpenDB(connector), nil
}
