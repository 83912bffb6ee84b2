package sqlbuilder

import (
	"strconv"

	"github.com/dropbox/sqldsl/errors"
)

// Database describes how a rendered statement hands its parameters to a
// driver.  It only controls placeholder syntax; the rest of the statement
// text is the same for every database.
type Database interface {
	// Name of the dialect, e.g. "mysql".
	Name() string

	// Placeholder returns the text written in place of the parameter with
	// the given name and 1-based position.
	Placeholder(name string, position int) string

	// NamedParameters reports whether the driver receives sql.Named args
	// rather than positional ones.
	NamedParameters() bool
}

type genericDatabase struct {
	name        string
	placeholder func(name string, position int) string
	named       bool
}

func (db *genericDatabase) Name() string {
	return db.name
}

func (db *genericDatabase) Placeholder(name string, position int) string {
	return db.placeholder(name, position)
}

func (db *genericDatabase) NamedParameters() bool {
	return db.named
}

func questionMark(string, int) string {
	return "?"
}

func NewMySQLDatabase() Database {
	return &genericDatabase{
		name:        "mysql",
		placeholder: questionMark,
	}
}

func NewPostgresDatabase() Database {
	return &genericDatabase{
		name: "postgres",
		placeholder: func(_ string, position int) string {
			return "$" + strconv.Itoa(position)
		},
	}
}

func NewSQLiteDatabase() Database {
	return &genericDatabase{
		name:        "sqlite",
		placeholder: questionMark,
	}
}

// NewNamedDatabase renders ":p1" style placeholders.  Use with drivers that
// accept sql.Named arguments (sqlite, sqlserver).
func NewNamedDatabase() Database {
	return &genericDatabase{
		name: "named",
		placeholder: func(name string, _ int) string {
			return ":" + name
		},
		named: true,
	}
}

// DatabaseForDialect maps a dialect name, as found in configuration files, to
// a Database.
func DatabaseForDialect(dialect string) (Database, error) {
	switch dialect {
	case "mysql":
		return NewMySQLDatabase(), nil
	case "postgres", "postgresql", "pgx":
		return NewPostgresDatabase(), nil
	case "sqlite", "sqlite3":
		return NewSQLiteDatabase(), nil
	case "named":
		return NewNamedDatabase(), nil
	}
	return nil, errors.Newf("Unknown dialect: %s", dialect)
}
