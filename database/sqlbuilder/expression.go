// Query building functions for expression components
package sqlbuilder

import (
	"strings"

	"github.com/dropbox/sqldsl/database/sqltypes"
	"github.com/dropbox/sqldsl/errors"
)

type orderByClause struct {
	isOrderByClause
	expression Expression
	ascent     bool
}

func (o *orderByClause) SerializeSql(out *RenderContext) error {
	if o.expression == nil {
		return errors.Newf(
			"nil order by clause.  Generated sql: %s",
			out.String())
	}

	if err := o.expression.SerializeSql(out); err != nil {
		return err
	}

	if o.ascent {
		_, _ = out.WriteString(" asc")
	} else {
		_, _ = out.WriteString(" desc")
	}

	return nil
}

func Asc(expression Expression) OrderByClause {
	return &orderByClause{expression: expression, ascent: true}
}

func Desc(expression Expression) OrderByClause {
	return &orderByClause{expression: expression, ascent: false}
}

// Representation of an escaped literal, written inline
type literalExpression struct {
	isExpression
	isProjection
	value sqltypes.Value
}

func (c *literalExpression) SerializeSql(out *RenderContext) error {
	c.value.EncodeSql(out)
	return nil
}

func (c *literalExpression) SerializeSqlForColumnList(out *RenderContext) error {
	return c.SerializeSql(out)
}

// Returns an escaped literal.  This function will panic if the value's type
// is not supported.
func Literal(v interface{}) Expression {
	value, err := sqltypes.BuildValue(v)
	if err != nil {
		panic(errors.Wrap(err, "Invalid literal value"))
	}
	return &literalExpression{value: value}
}

// Representation of a value passed as a bind parameter
type boundExpression struct {
	isExpression
	value    interface{}
	typeName string
}

func (c *boundExpression) SerializeSql(out *RenderContext) error {
	out.bind(c.value, c.typeName)
	return nil
}

// Bound returns an expression rendered as a bind parameter, e.g. to pass a
// case result to the driver instead of inlining it.
func Bound(v interface{}) Expression {
	return &boundExpression{value: v}
}

// BoundAs is Bound with an explicit sql type for the parameter.
func BoundAs(v interface{}, typeName string) Expression {
	return &boundExpression{value: v, typeName: typeName}
}

func serializeClauses(
	clauses []Clause,
	separator string,
	out *RenderContext) (err error) {

	if len(clauses) == 0 {
		return errors.Newf("Empty clauses.  Generated sql: %s", out.String())
	}

	for i, c := range clauses {
		if i > 0 {
			_, _ = out.WriteString(separator)
		}
		if c == nil {
			return errors.Newf("nil clause.  Generated sql: %s", out.String())
		}
		if err = c.SerializeSql(out); err != nil {
			return
		}
	}

	return nil
}

// Representation of n-ary arithmetic (+ - * /)
type arithmeticExpression struct {
	isExpression
	expressions []Expression
	operator    string
}

func (arith *arithmeticExpression) SerializeSql(out *RenderContext) (err error) {
	if len(arith.expressions) == 0 {
		return errors.Newf(
			"Empty arithmetic expression.  Generated sql: %s",
			out.String())
	}

	clauses := make([]Clause, len(arith.expressions))
	for i, expr := range arith.expressions {
		clauses[i] = expr
	}

	useParentheses := len(clauses) > 1
	if useParentheses {
		_ = out.WriteByte('(')
	}

	if err = serializeClauses(clauses, arith.operator, out); err != nil {
		return
	}

	if useParentheses {
		_ = out.WriteByte(')')
	}

	return nil
}

// Returns a representation of "c[0] + ... + c[n-1]" for c in clauses
func Add(expressions ...Expression) Expression {
	return &arithmeticExpression{expressions: expressions, operator: " + "}
}

// Returns a representation of "c[0] - ... - c[n-1]" for c in clauses
func Sub(expressions ...Expression) Expression {
	return &arithmeticExpression{expressions: expressions, operator: " - "}
}

// Returns a representation of "c[0] * ... * c[n-1]" for c in clauses
func Mul(expressions ...Expression) Expression {
	return &arithmeticExpression{expressions: expressions, operator: " * "}
}

// Returns a representation of "c[0] / ... / c[n-1]" for c in clauses
func Div(expressions ...Expression) Expression {
	return &arithmeticExpression{expressions: expressions, operator: " / "}
}

// Representation of a comma separated list of clauses
type listClause struct {
	clauses            []Clause
	includeParentheses bool
}

func (list *listClause) SerializeSql(out *RenderContext) error {
	if list.includeParentheses {
		_ = out.WriteByte('(')
	}

	if err := serializeClauses(list.clauses, ", ", out); err != nil {
		return err
	}

	if list.includeParentheses {
		_ = out.WriteByte(')')
	}
	return nil
}

type funcExpression struct {
	isExpression
	isProjection
	funcName string
	args     *listClause
}

func (c *funcExpression) SerializeSql(out *RenderContext) (err error) {
	if !validIdentifierName(c.funcName) {
		return errors.Newf(
			"Invalid function name: %s.  Generated sql: %s",
			c.funcName,
			out.String())
	}
	_, _ = out.WriteString(c.funcName)
	if c.args == nil {
		_, _ = out.WriteString("()")
		return nil
	}
	return c.args.SerializeSql(out)
}

func (c *funcExpression) SerializeSqlForColumnList(out *RenderContext) error {
	return c.SerializeSql(out)
}

// Returns a representation of sql function call "func_call(c[0], ..., c[n-1])
func SqlFunc(funcName string, expressions ...Expression) Expression {
	f := &funcExpression{
		funcName: funcName,
	}
	if len(expressions) > 0 {
		args := make([]Clause, len(expressions))
		for i, expr := range expressions {
			args[i] = expr
		}

		f.args = &listClause{
			clauses:            args,
			includeParentheses: true,
		}
	}
	return f
}

type countStarExpression struct {
	isExpression
	isProjection
}

func (c *countStarExpression) SerializeSql(out *RenderContext) error {
	_, _ = out.WriteString("count(*)")
	return nil
}

func (c *countStarExpression) SerializeSqlForColumnList(out *RenderContext) error {
	return c.SerializeSql(out)
}

// Returns a representation of "count(*)"
func CountStar() Expression {
	return &countStarExpression{}
}

var likeEscaper = strings.NewReplacer("\\", "\\\\", "_", "\\_", "%", "\\%")

// EscapeForLike escapes like wildcards so s matches literally.
func EscapeForLike(s string) string {
	return likeEscaper.Replace(s)
}
