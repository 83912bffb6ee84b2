// CASE expressions

package sqlbuilder

import (
	"fmt"

	"github.com/dropbox/sqldsl/database/sqltypes"
	"github.com/dropbox/sqldsl/errors"
)

type whenClause struct {
	// searched form
	predicate *CriteriaGroup

	// simple form; exactly one of values and conditions is non empty
	values     []interface{}
	conditions []Condition

	result Expression
}

// CaseExpression is a frozen searched or simple CASE.  Usage errors made
// while building it are reported by Err and by every render.
type CaseExpression struct {
	isExpression
	isProjection

	// nil for a searched case
	column    Expression
	whens     []whenClause
	elseValue Expression

	err error
}

// Err returns the first usage error recorded while building the expression.
func (c *CaseExpression) Err() error {
	return c.err
}

func (c *CaseExpression) SerializeSqlForColumnList(out *RenderContext) error {
	return c.SerializeSql(out)
}

func (c *CaseExpression) SerializeSql(out *RenderContext) error {
	if c.err != nil {
		return c.err
	}

	_, _ = out.WriteString("case")
	if c.column != nil {
		_ = out.WriteByte(' ')
		if err := c.column.SerializeSql(out); err != nil {
			return err
		}
	}

	for i, w := range c.whens {
		_, _ = out.WriteString(" when ")
		var err error
		if w.predicate != nil {
			err = c.serializePredicate(out, i, w.predicate)
		} else {
			err = c.serializeMatch(out, i, &w)
		}
		if err != nil {
			return err
		}
		_, _ = out.WriteString(" then ")
		if err = w.result.SerializeSql(out); err != nil {
			return err
		}
	}

	if c.elseValue != nil {
		_, _ = out.WriteString(" else ")
		if err := c.elseValue.SerializeSql(out); err != nil {
			return err
		}
	}

	_, _ = out.WriteString(" end")
	return nil
}

func (c *CaseExpression) serializePredicate(
	out *RenderContext,
	index int,
	predicate *CriteriaGroup) error {

	ok, err := predicate.serializeRoot(out)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewCoded(
			errors.NonRenderingWhenCondition,
			"when #%d renders no condition.  Generated sql: %s",
			index+1,
			out.String())
	}
	return nil
}

func (c *CaseExpression) serializeMatch(
	out *RenderContext,
	index int,
	w *whenClause) error {

	typeName := typeNameOf(c.column)
	for i, v := range w.values {
		if i > 0 {
			_, _ = out.WriteString(", ")
		}
		out.bind(v, typeName)
	}

	rendered := 0
	for _, cond := range w.conditions {
		if !cond.shouldRender() {
			continue
		}
		if rendered > 0 {
			_, _ = out.WriteString(", ")
		}
		if err := cond.serializeCondition(out, typeName); err != nil {
			return err
		}
		rendered++
	}

	if len(w.values) == 0 && rendered == 0 {
		return errors.NewCoded(
			errors.NonRenderingWhenCondition,
			"when #%d renders no condition.  Generated sql: %s",
			index+1,
			out.String())
	}
	return nil
}

// Render renders the expression on its own.
func (c *CaseExpression) Render(db Database) (*RenderedStatement, error) {
	out := newRenderContext(db)
	if err := c.SerializeSql(out); err != nil {
		return nil, err
	}
	return out.statement(), nil
}

// THEN and ELSE values: expressions are used as is, anything else is
// written inline as a literal.
func resultExpression(value interface{}) (Expression, error) {
	if expr, ok := value.(Expression); ok {
		return expr, nil
	}
	v, err := sqltypes.BuildValue(value)
	if err != nil {
		return nil, errors.Wrap(err, "Invalid case result value")
	}
	return &literalExpression{value: v}, nil
}

type caseResults struct {
	errorRecorder
	elseClaimed bool
	elseValue   *Expression
}

func (r *caseResults) setElse(value interface{}) {
	if err := claimOnce(&r.elseClaimed, errors.DoubleElse, "else"); err != nil {
		r.record(err)
		return
	}
	expr, err := resultExpression(value)
	if err != nil {
		r.record(err)
		return
	}
	r.elseValue = &expr
}

func (r *caseResults) build(
	column Expression,
	whens []whenClause) (*CaseExpression, error) {

	if len(whens) == 0 {
		r.record(errors.NewCoded(
			errors.MissingWhen,
			"case expression requires at least one when"))
	}
	expr := &CaseExpression{
		column: column,
		whens:  make([]whenClause, len(whens)),
		err:    r.err,
	}
	copy(expr.whens, whens)
	if r.elseValue != nil {
		expr.elseValue = *r.elseValue
	}
	return expr, r.err
}

func thenField(index int) string {
	return fmt.Sprintf("then for when #%d", index)
}

//
// Searched case
//

// SearchedCaseBuilder collects "when <criteria> then <value>" clauses.
type SearchedCaseBuilder struct {
	caseResults
	whens []whenClause
}

// SearchedWhen is the receiver of a When closure: a criteria collector for
// the predicate plus Then.
type SearchedWhen struct {
	CriteriaCollector

	index       int
	thenClaimed bool
	then        *Expression
}

func (w *SearchedWhen) Start(criterion SqlCriterion) *SearchedWhen {
	w.CriteriaCollector.Start(criterion)
	return w
}

func (w *SearchedWhen) Where(lhs Expression, cond Condition) *SearchedWhen {
	w.CriteriaCollector.Where(lhs, cond)
	return w
}

func (w *SearchedWhen) And(criterion SqlCriterion) *SearchedWhen {
	w.CriteriaCollector.And(criterion)
	return w
}

func (w *SearchedWhen) Or(criterion SqlCriterion) *SearchedWhen {
	w.CriteriaCollector.Or(criterion)
	return w
}

func (w *SearchedWhen) AndGroup(fn func(*CriteriaCollector)) *SearchedWhen {
	w.CriteriaCollector.AndGroup(fn)
	return w
}

func (w *SearchedWhen) OrGroup(fn func(*CriteriaCollector)) *SearchedWhen {
	w.CriteriaCollector.OrGroup(fn)
	return w
}

func (w *SearchedWhen) Then(value interface{}) *SearchedWhen {
	err := claimOnce(&w.thenClaimed, errors.DoubleThen, thenField(w.index))
	if err != nil {
		w.record(err)
		return w
	}
	expr, err := resultExpression(value)
	if err != nil {
		w.record(err)
		return w
	}
	w.then = &expr
	return w
}

func (b *SearchedCaseBuilder) When(fn func(*SearchedWhen)) *SearchedCaseBuilder {
	w := &SearchedWhen{index: len(b.whens) + 1}
	if fn != nil {
		fn(w)
	}

	predicate, err := w.Build()
	if err != nil {
		b.record(err)
	}
	if w.then == nil {
		b.record(errors.NewCoded(
			errors.MissingThen,
			"when #%d has no then",
			w.index))
		return b
	}
	b.whens = append(b.whens, whenClause{predicate: predicate, result: *w.then})
	return b
}

func (b *SearchedCaseBuilder) Else(value interface{}) *SearchedCaseBuilder {
	b.setElse(value)
	return b
}

func (b *SearchedCaseBuilder) Build() (*CaseExpression, error) {
	return b.build(nil, b.whens)
}

// SearchedCase returns "case when ... then ... [else ...] end" built by fn.
// Usage errors are kept in the expression; see CaseExpression.Err.
func SearchedCase(fn func(*SearchedCaseBuilder)) *CaseExpression {
	b := &SearchedCaseBuilder{}
	if fn != nil {
		fn(b)
	}
	expr, _ := b.Build()
	return expr
}

//
// Simple case
//

// SimpleCaseBuilder collects "when <values> then <value>" clauses compared
// against a fixed column.
type SimpleCaseBuilder struct {
	caseResults
	whens []*SimpleWhen
}

// SimpleWhen holds the gathered match values of one when clause until Then
// is called.
type SimpleWhen struct {
	builder    *SimpleCaseBuilder
	index      int
	values     []interface{}
	conditions []Condition

	thenClaimed bool
	then        *Expression
}

func (w *SimpleWhen) Then(value interface{}) *SimpleWhen {
	err := claimOnce(&w.thenClaimed, errors.DoubleThen, thenField(w.index))
	if err != nil {
		w.builder.record(err)
		return w
	}
	expr, err := resultExpression(value)
	if err != nil {
		w.builder.record(err)
		return w
	}
	w.then = &expr
	return w
}

func (b *SimpleCaseBuilder) newWhen() *SimpleWhen {
	w := &SimpleWhen{builder: b, index: len(b.whens) + 1}
	b.whens = append(b.whens, w)
	return w
}

// When gathers literal match values, bound with the type of the case column.
func (b *SimpleCaseBuilder) When(values ...interface{}) *SimpleWhen {
	w := b.newWhen()
	values = flattenValues(values)
	if len(values) == 0 {
		b.record(errors.NewCoded(
			errors.MissingWhenValues,
			"when #%d has no values",
			w.index))
		return w
	}
	for _, v := range values {
		if absent(v) {
			b.record(errors.NewCoded(
				errors.InvalidConditionValue,
				"when #%d has a null match value",
				w.index))
			return w
		}
	}
	w.values = values
	return w
}

// WhenConditions gathers conditions, rendered without the case column, e.g.
// "when > ? then ...".
func (b *SimpleCaseBuilder) WhenConditions(conds ...Condition) *SimpleWhen {
	w := b.newWhen()
	if len(conds) == 0 {
		b.record(errors.NewCoded(
			errors.MissingWhenValues,
			"when #%d has no conditions",
			w.index))
		return w
	}
	for _, cond := range conds {
		if cond == nil {
			b.record(errors.NewCoded(
				errors.InvalidConditionValue,
				"when #%d has a nil condition",
				w.index))
			return w
		}
		if err := cond.validate(); err != nil {
			b.record(err)
			return w
		}
	}
	w.conditions = conds
	return w
}

func (b *SimpleCaseBuilder) Else(value interface{}) *SimpleCaseBuilder {
	b.setElse(value)
	return b
}

func (b *SimpleCaseBuilder) Build(column Expression) (*CaseExpression, error) {
	if column == nil {
		b.record(errors.Newf("simple case requires a column"))
	}
	whens := make([]whenClause, 0, len(b.whens))
	for _, w := range b.whens {
		if w.then == nil {
			b.record(errors.NewCoded(
				errors.MissingThen,
				"when #%d has no then",
				w.index))
			continue
		}
		whens = append(whens, whenClause{
			values:     w.values,
			conditions: w.conditions,
			result:     *w.then,
		})
	}
	return b.build(column, whens)
}

// SimpleCase returns "case <column> when ... then ... [else ...] end" built
// by fn.  Usage errors are kept in the expression; see CaseExpression.Err.
func SimpleCase(column Expression, fn func(*SimpleCaseBuilder)) *CaseExpression {
	b := &SimpleCaseBuilder{}
	if fn != nil {
		fn(b)
	}
	expr, _ := b.Build(column)
	return expr
}
