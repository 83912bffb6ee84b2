package sqlbuilder

import (
	"regexp"

	"github.com/dropbox/sqldsl/errors"
)

// Type names accepted by As: a word sequence with an optional
// "(precision[, scale])" suffix, e.g. "decimal(10, 2)" or "double precision".
var castTypeRegexp = regexp.MustCompile(
	`^[a-zA-Z][a-zA-Z0-9_]*( [a-zA-Z][a-zA-Z0-9_]*)*( ?\(\d+( ?, ?\d+)?\))?$`)

// CastExpression renders "cast(<value> as <type>)".
type CastExpression struct {
	isExpression
	isProjection

	value   Expression
	sqlType string

	err error
}

func (c *CastExpression) Err() error {
	return c.err
}

func (c *CastExpression) SerializeSql(out *RenderContext) error {
	if c.err != nil {
		return c.err
	}
	_, _ = out.WriteString("cast(")
	if err := c.value.SerializeSql(out); err != nil {
		return err
	}
	_, _ = out.WriteString(" as ")
	_, _ = out.WriteString(c.sqlType)
	_ = out.WriteByte(')')
	return nil
}

func (c *CastExpression) SerializeSqlForColumnList(out *RenderContext) error {
	return c.SerializeSql(out)
}

type CastBuilder struct {
	errorRecorder

	valueClaimed bool
	value        *Expression
	typeClaimed  bool
	sqlType      *string
}

// Value sets the casted value.  Non expressions are bound as parameters.
func (b *CastBuilder) Value(value interface{}) *CastBuilder {
	if err := claimOnce(&b.valueClaimed, errors.DoubleCastValue, "cast value"); err != nil {
		b.record(err)
		return b
	}
	expr, ok := value.(Expression)
	if !ok {
		if absent(value) {
			b.record(invalidValue("cast"))
			return b
		}
		expr = Bound(value)
	}
	b.value = &expr
	return b
}

// As sets the target sql type.
func (b *CastBuilder) As(sqlType string) *CastBuilder {
	if err := claimOnce(&b.typeClaimed, errors.DoubleCastType, "cast type"); err != nil {
		b.record(err)
		return b
	}
	if !castTypeRegexp.MatchString(sqlType) {
		b.record(errors.NewCoded(
			errors.InvalidCastType,
			"invalid cast type %q",
			sqlType))
		return b
	}
	b.sqlType = &sqlType
	return b
}

func (b *CastBuilder) Build() (*CastExpression, error) {
	if b.value == nil {
		b.record(errors.NewCoded(errors.MissingCastValue, "cast has no value"))
	}
	if b.sqlType == nil {
		b.record(errors.NewCoded(errors.MissingCastType, "cast has no type"))
	}
	expr := &CastExpression{err: b.err}
	if b.err == nil {
		expr.value = *b.value
		expr.sqlType = *b.sqlType
	}
	return expr, b.err
}

// Cast returns the expression built by fn.  Usage errors are kept in the
// expression; see CastExpression.Err.
func Cast(fn func(*CastBuilder)) *CastExpression {
	b := &CastBuilder{}
	if fn != nil {
		fn(b)
	}
	expr, _ := b.Build()
	return expr
}
