// Modeling of tables.  This is where query preparation starts

package sqlbuilder

import (
	"fmt"

	"github.com/dropbox/sqldsl/errors"
)

// The sql table read interface.  NOTE: NATURAL JOINs, and join "USING" clause
// are not supported.
type ReadableTable interface {
	// Returns the list of columns that are in the current table expression.
	Columns() []NonAliasColumn

	// Generates the sql string for the current table expression.  Note: the
	// generated string may not be a valid/executable sql statement.
	SerializeSql(out *RenderContext) error

	// Generates a select query on the current table.
	Select(projections ...Projection) SelectStatement

	// Creates a inner join table expression, with the on clause built by fn.
	InnerJoinOn(table ReadableTable, fn func(*CriteriaCollector)) ReadableTable

	// Creates a left join table expression, with the on clause built by fn.
	LeftJoinOn(table ReadableTable, fn func(*CriteriaCollector)) ReadableTable

	// Creates a right join table expression, with the on clause built by fn.
	RightJoinOn(table ReadableTable, fn func(*CriteriaCollector)) ReadableTable
}

// The sql table write interface.
type WritableTable interface {
	// Returns the list of columns that are in the table.
	Columns() []NonAliasColumn

	// Generates the sql string for the current table expression.
	SerializeSql(out *RenderContext) error

	Insert(columns ...NonAliasColumn) InsertStatement
	Update() UpdateStatement
	Delete() DeleteStatement
}

// Defines a physical table in the database that is both readable and writable.
// This function will panic if name is not valid
func NewTable(name string, columns ...NonAliasColumn) *Table {
	if !validIdentifierName(name) {
		panic("Invalid table name")
	}

	t := &Table{
		name:         name,
		columns:      columns,
		columnLookup: make(map[string]NonAliasColumn),
	}
	for _, c := range columns {
		err := c.setTableName(name)
		if err != nil {
			panic(err)
		}
		t.columnLookup[c.Name()] = c
	}

	if len(columns) == 0 {
		panic(fmt.Sprintf("Table %s has no columns", name))
	}

	return t
}

type Table struct {
	name         string
	columns      []NonAliasColumn
	columnLookup map[string]NonAliasColumn
}

// Returns the specified column, or errors if it doesn't exist in the table
func (t *Table) getColumn(name string) (NonAliasColumn, error) {
	if c, ok := t.columnLookup[name]; ok {
		return c, nil
	}
	return nil, errors.Newf("No such column '%s' in table '%s'", name, t.name)
}

// Returns a pseudo column representation of the column name.  Error checking
// is deferred to SerializeSql.
func (t *Table) C(name string) NonAliasColumn {
	return &deferredLookupColumn{
		table:   t,
		colName: name,
	}
}

// Returns all columns for a table as a slice of projections
func (t *Table) Projections() []Projection {
	result := make([]Projection, 0, len(t.columns))

	for _, col := range t.columns {
		result = append(result, col)
	}

	return result
}

// Returns the table's name in the database
func (t *Table) Name() string {
	return t.name
}

// Returns a list of the table's columns
func (t *Table) Columns() []NonAliasColumn {
	return t.columns
}

func (t *Table) SerializeSql(out *RenderContext) error {
	_, _ = out.WriteString(t.name)
	return nil
}

// Generates a select query on the current table.
func (t *Table) Select(projections ...Projection) SelectStatement {
	return newSelectStatement(t, projections)
}

// Generates "select count(*) from <table>".
func (t *Table) Count() SelectStatement {
	return Count(t)
}

func (t *Table) InnerJoinOn(
	table ReadableTable,
	fn func(*CriteriaCollector)) ReadableTable {

	return InnerJoinOn(t, table, fn)
}

func (t *Table) LeftJoinOn(
	table ReadableTable,
	fn func(*CriteriaCollector)) ReadableTable {

	return LeftJoinOn(t, table, fn)
}

func (t *Table) RightJoinOn(
	table ReadableTable,
	fn func(*CriteriaCollector)) ReadableTable {

	return RightJoinOn(t, table, fn)
}

func (t *Table) Insert(columns ...NonAliasColumn) InsertStatement {
	return newInsertStatement(t, columns...)
}

func (t *Table) Update() UpdateStatement {
	return newUpdateStatement(t)
}

func (t *Table) Delete() DeleteStatement {
	return newDeleteStatement(t)
}

type joinType int

const (
	INNER_JOIN joinType = iota
	LEFT_JOIN
	RIGHT_JOIN
)

// Join expressions are pseudo readable tables.
type joinTable struct {
	lhs         ReadableTable
	rhs         ReadableTable
	join_type   joinType
	onCondition *CriteriaGroup
	err         error
}

func newJoinTable(
	lhs ReadableTable,
	rhs ReadableTable,
	join_type joinType,
	fn func(*CriteriaCollector)) ReadableTable {

	on, err := Criteria(fn)
	return &joinTable{
		lhs:         lhs,
		rhs:         rhs,
		join_type:   join_type,
		onCondition: on,
		err:         err,
	}
}

func InnerJoinOn(
	lhs ReadableTable,
	rhs ReadableTable,
	fn func(*CriteriaCollector)) ReadableTable {

	return newJoinTable(lhs, rhs, INNER_JOIN, fn)
}

func LeftJoinOn(
	lhs ReadableTable,
	rhs ReadableTable,
	fn func(*CriteriaCollector)) ReadableTable {

	return newJoinTable(lhs, rhs, LEFT_JOIN, fn)
}

func RightJoinOn(
	lhs ReadableTable,
	rhs ReadableTable,
	fn func(*CriteriaCollector)) ReadableTable {

	return newJoinTable(lhs, rhs, RIGHT_JOIN, fn)
}

func (t *joinTable) Columns() []NonAliasColumn {
	columns := make([]NonAliasColumn, 0)
	columns = append(columns, t.lhs.Columns()...)
	columns = append(columns, t.rhs.Columns()...)

	return columns
}

// Column references inside a join are written table qualified.
func (t *joinTable) SerializeSql(out *RenderContext) (err error) {
	if t.err != nil {
		return errors.Wrap(t.err, "Invalid join condition")
	}
	if t.lhs == nil {
		return errors.Newf("nil lhs.  Generated sql: %s", out.String())
	}
	if t.rhs == nil {
		return errors.Newf("nil rhs.  Generated sql: %s", out.String())
	}

	if err = t.lhs.SerializeSql(out); err != nil {
		return
	}

	switch t.join_type {
	case INNER_JOIN:
		_, _ = out.WriteString(" join ")
	case LEFT_JOIN:
		_, _ = out.WriteString(" left join ")
	case RIGHT_JOIN:
		_, _ = out.WriteString(" right join ")
	}

	if err = t.rhs.SerializeSql(out); err != nil {
		return
	}

	_, _ = out.WriteString(" on ")
	ok, err := t.onCondition.serializeRoot(out)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf(
			"Join condition renders nothing.  Generated sql: %s",
			out.String())
	}

	return nil
}

func (t *joinTable) Select(projections ...Projection) SelectStatement {
	return newSelectStatement(t, projections)
}

func (t *joinTable) InnerJoinOn(
	table ReadableTable,
	fn func(*CriteriaCollector)) ReadableTable {

	return InnerJoinOn(t, table, fn)
}

func (t *joinTable) LeftJoinOn(
	table ReadableTable,
	fn func(*CriteriaCollector)) ReadableTable {

	return LeftJoinOn(t, table, fn)
}

func (t *joinTable) RightJoinOn(
	table ReadableTable,
	fn func(*CriteriaCollector)) ReadableTable {

	return RightJoinOn(t, table, fn)
}
