// Modeling of columns

package sqlbuilder

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/dropbox/sqldsl/errors"
)

// Representation of a table column for query generation
type Column interface {
	isProjectionInterface

	Name() string
	// Serialization for use in column lists
	SerializeSqlForColumnList(out *RenderContext) error
	// Serialization for use in an expression (Clause)
	SerializeSql(out *RenderContext) error

	// Internal function for tracking table that a column belongs to
	// for the purpose of serialization
	setTableName(table string) error
}

type NullableColumn bool

const (
	Nullable    NullableColumn = true
	NotNullable NullableColumn = false
)

// A column that can be refer to outside of the projection list
type NonAliasColumn interface {
	Column
	isOrderByClauseInterface
	isExpressionInterface

	// The sql type reported with parameters bound against this column.
	TypeName() string
	IsNullable() NullableColumn
}

// Sql type names reported in Parameter.Type.
const (
	IntegerType   = "INTEGER"
	VarcharType   = "VARCHAR"
	VarbinaryType = "VARBINARY"
	TimestampType = "TIMESTAMP"
	DecimalType   = "DECIMAL"
	DoubleType    = "DOUBLE"
	BooleanType   = "BOOLEAN"
	BigintType    = "BIGINT"
)

// The base type for real materialized columns.
type baseColumn struct {
	isProjection
	isExpression
	name     string
	typeName string
	nullable NullableColumn
	table    string
}

func newBaseColumn(name string, typeName string, nullable NullableColumn) baseColumn {
	if !validIdentifierName(name) {
		panic("Invalid column name: " + name)
	}
	return baseColumn{name: name, typeName: typeName, nullable: nullable}
}

func (c *baseColumn) Name() string {
	return c.name
}

func (c *baseColumn) TypeName() string {
	return c.typeName
}

func (c *baseColumn) IsNullable() NullableColumn {
	return c.nullable
}

func (c *baseColumn) setTableName(table string) error {
	c.table = table
	return nil
}

func (c *baseColumn) SerializeSqlForColumnList(out *RenderContext) error {
	if out.qualifyColumns && c.table != "" {
		_, _ = out.WriteString(c.table)
		_ = out.WriteByte('.')
	}
	_, _ = out.WriteString(c.name)
	return nil
}

func (c *baseColumn) SerializeSql(out *RenderContext) error {
	return c.SerializeSqlForColumnList(out)
}

type bytesColumn struct {
	baseColumn
	isExpression
}

// Representation of VARBINARY/BLOB columns
// This function will panic if name is not valid
func BytesColumn(name string, nullable NullableColumn) NonAliasColumn {
	return &bytesColumn{baseColumn: newBaseColumn(name, VarbinaryType, nullable)}
}

type stringColumn struct {
	baseColumn
	isExpression
}

// Representation of VARCHAR/TEXT columns
// This function will panic if name is not valid
func StrColumn(name string, nullable NullableColumn) NonAliasColumn {
	return &stringColumn{baseColumn: newBaseColumn(name, VarcharType, nullable)}
}

type dateTimeColumn struct {
	baseColumn
	isExpression
}

// Representation of DateTime-like columns, including DATETIME, DATE, and TIMESTAMP
// This function will panic if name is not valid
func DateTimeColumn(name string, nullable NullableColumn) NonAliasColumn {
	return &dateTimeColumn{baseColumn: newBaseColumn(name, TimestampType, nullable)}
}

type integerColumn struct {
	baseColumn
	isExpression
}

// Representation of any integer column
// This function will panic if name is not valid
func IntColumn(name string, nullable NullableColumn) NonAliasColumn {
	return &integerColumn{baseColumn: newBaseColumn(name, IntegerType, nullable)}
}

type decimalColumn struct {
	baseColumn
	isExpression
	precision int
	scale     int
}

// Representation of DECIMAL/NUMERIC columns
// This function will panic if name is not valid
func DecimalColumn(
	name string,
	precision int,
	scale int,
	nullable NullableColumn,
) NonAliasColumn {

	dc := &decimalColumn{precision: precision, scale: scale}
	dc.baseColumn = newBaseColumn(name, DecimalType, nullable)
	return dc
}

func (c *decimalColumn) TypeName() string {
	return DecimalType + "(" + strconv.Itoa(c.precision) + "," + strconv.Itoa(c.scale) + ")"
}

type doubleColumn struct {
	baseColumn
	isExpression
}

// Representation of any double column
// This function will panic if name is not valid
func DoubleColumn(name string, nullable NullableColumn) NonAliasColumn {
	return &doubleColumn{baseColumn: newBaseColumn(name, DoubleType, nullable)}
}

type booleanColumn struct {
	baseColumn
	isExpression
}

// Representation of BOOLEAN (or TINYINT used as a bool)
// This function will panic if name is not valid
func BoolColumn(name string, nullable NullableColumn) NonAliasColumn {
	return &booleanColumn{baseColumn: newBaseColumn(name, BooleanType, nullable)}
}

type aliasColumn struct {
	baseColumn
	expression Expression
}

func (c *aliasColumn) SerializeSql(out *RenderContext) error {
	_, _ = out.WriteString(c.name)
	return nil
}

func (c *aliasColumn) SerializeSqlForColumnList(out *RenderContext) error {
	if !validIdentifierName(c.name) {
		return errors.Newf(
			"Invalid alias name `%s`.  Generated sql: %s",
			c.name,
			out.String())
	}
	if c.expression == nil {
		return errors.Newf(
			"Cannot alias a nil expression.  Generated sql: %s",
			out.String())
	}

	if err := c.expression.SerializeSql(out); err != nil {
		return err
	}
	_, _ = out.WriteString(" as ")
	_, _ = out.WriteString(c.name)
	return nil
}

func (c *aliasColumn) setTableName(table string) error {
	return errors.Newf(
		"Alias column '%s' should never have setTableName called on it",
		c.name)
}

// Representation of aliased clauses (expression as name)
func Alias(name string, c Expression) Column {
	ac := &aliasColumn{}
	ac.name = name
	ac.expression = c
	return ac
}

// This is a strict subset of the actual allowed identifiers
var validIdentifierRegexp = regexp.MustCompile("^[a-zA-Z_]\\w*$")

// Holds strings as keys that have passed validation; value is nil.
var identifierValidationCache sync.Map

// Returns true if the given string is suitable as an identifier.
func validIdentifierName(name string) bool {
	if _, ok := identifierValidationCache.Load(name); ok {
		return true
	}
	ok := validIdentifierRegexp.MatchString(name)
	if ok {
		identifierValidationCache.Store(name, nil)
	}
	return ok
}

// Pseudo Column type returned by table.C(name)
type deferredLookupColumn struct {
	isProjection
	isExpression
	table   *Table
	colName string
}

func (c *deferredLookupColumn) Name() string {
	return c.colName
}

func (c *deferredLookupColumn) TypeName() string {
	col, err := c.table.getColumn(c.colName)
	if err != nil {
		return ""
	}
	return col.TypeName()
}

func (c *deferredLookupColumn) IsNullable() NullableColumn {
	col, err := c.table.getColumn(c.colName)
	if err != nil {
		return Nullable
	}
	return col.IsNullable()
}

func (c *deferredLookupColumn) SerializeSqlForColumnList(
	out *RenderContext) error {

	return c.SerializeSql(out)
}

func (c *deferredLookupColumn) SerializeSql(out *RenderContext) error {
	col, err := c.table.getColumn(c.colName)
	if err != nil {
		return err
	}
	return col.SerializeSql(out)
}

func (c *deferredLookupColumn) setTableName(table string) error {
	return errors.Newf(
		"Lookup column '%s' should never have setTableName called on it",
		c.colName)
}
