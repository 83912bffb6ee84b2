// Conditions tested against the left hand side of a criterion

package sqlbuilder

import (
	"reflect"

	"github.com/dropbox/sqldsl/database/sqltypes"
	"github.com/dropbox/sqldsl/errors"
)

// A Condition is the operator half of a criterion ("= ?", "in (?, ?)",
// "is null").  Conditions are immutable; presence of when-present values is
// decided when the condition is constructed.
type Condition interface {
	// Writes "<operator>[ <operands>]".  typeName is the sql type of the
	// tested expression and is attached to every bound operand.
	serializeCondition(out *RenderContext, typeName string) error

	// False for when-present conditions whose value was absent.
	shouldRender() bool

	// Non nil if the condition was built with an invalid value.
	validate() error
}

// absent reports whether v is nil or a typed nil pointer.
func absent(v interface{}) bool {
	return sqltypes.Deref(v) == nil
}

func invalidValue(op string) error {
	return errors.NewCoded(
		errors.InvalidConditionValue,
		"%s requires a non-null value; use the WhenPresent variant to "+
			"skip absent values",
		op)
}

// Comparison against a single bound value.
type valueCondition struct {
	op      string
	value   interface{}
	present bool
	err     error
}

func (c *valueCondition) serializeCondition(
	out *RenderContext,
	typeName string) error {

	_, _ = out.WriteString(c.op)
	_ = out.WriteByte(' ')
	out.bind(c.value, typeName)
	return nil
}

func (c *valueCondition) shouldRender() bool {
	return c.present
}

func (c *valueCondition) validate() error {
	return c.err
}

func newValueCondition(op string, value interface{}) *valueCondition {
	cond := &valueCondition{op: op, value: value, present: true}
	if absent(value) {
		cond.err = invalidValue(op)
	}
	return cond
}

func newValueConditionWhenPresent(
	op string,
	value interface{}) *valueCondition {

	return &valueCondition{op: op, value: value, present: !absent(value)}
}

// Comparison against another expression, usually a column.
type expressionCondition struct {
	op  string
	rhs Expression
}

func (c *expressionCondition) serializeCondition(
	out *RenderContext,
	typeName string) error {

	if c.rhs == nil {
		return errors.Newf(
			"nil rhs for %s.  Generated sql: %s",
			c.op,
			out.String())
	}
	_, _ = out.WriteString(c.op)
	_ = out.WriteByte(' ')
	return c.rhs.SerializeSql(out)
}

func (c *expressionCondition) shouldRender() bool {
	return true
}

func (c *expressionCondition) validate() error {
	if c.rhs == nil {
		return invalidValue(c.op)
	}
	return nil
}

// "is null" style conditions without operands.
type noValueCondition struct {
	op string
}

func (c *noValueCondition) serializeCondition(
	out *RenderContext,
	typeName string) error {

	_, _ = out.WriteString(c.op)
	return nil
}

func (c *noValueCondition) shouldRender() bool {
	return true
}

func (c *noValueCondition) validate() error {
	return nil
}

type betweenCondition struct {
	op      string
	low     interface{}
	high    interface{}
	present bool
	err     error
}

func (c *betweenCondition) serializeCondition(
	out *RenderContext,
	typeName string) error {

	_, _ = out.WriteString(c.op)
	_ = out.WriteByte(' ')
	out.bind(c.low, typeName)
	_, _ = out.WriteString(" and ")
	out.bind(c.high, typeName)
	return nil
}

func (c *betweenCondition) shouldRender() bool {
	return c.present
}

func (c *betweenCondition) validate() error {
	return c.err
}

type listCondition struct {
	op      string
	values  []interface{}
	present bool
	err     error
}

func (c *listCondition) serializeCondition(
	out *RenderContext,
	typeName string) error {

	_, _ = out.WriteString(c.op)
	_, _ = out.WriteString(" (")
	for i, v := range c.values {
		if i > 0 {
			_, _ = out.WriteString(", ")
		}
		out.bind(v, typeName)
	}
	_ = out.WriteByte(')')
	return nil
}

func (c *listCondition) shouldRender() bool {
	return c.present
}

func (c *listCondition) validate() error {
	return c.err
}

// A single slice argument is expanded into its elements, so both
// IsIn(1, 2, 3) and IsIn(ids) work.  []byte is a value, not a list.
func flattenValues(values []interface{}) []interface{} {
	if len(values) != 1 {
		return values
	}
	rv := reflect.ValueOf(values[0])
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return values
	}
	flat := make([]interface{}, rv.Len())
	for i := range flat {
		flat[i] = rv.Index(i).Interface()
	}
	return flat
}

func newListCondition(op string, values []interface{}) *listCondition {
	values = flattenValues(values)
	cond := &listCondition{op: op, values: values, present: true}
	if len(values) == 0 {
		cond.err = errors.NewCoded(
			errors.InvalidConditionValue,
			"%s requires at least one value",
			op)
		return cond
	}
	for _, v := range values {
		if absent(v) {
			cond.err = invalidValue(op)
			break
		}
	}
	return cond
}

func newListConditionWhenPresent(
	op string,
	values []interface{}) *listCondition {

	kept := make([]interface{}, 0, len(values))
	for _, v := range flattenValues(values) {
		if !absent(v) {
			kept = append(kept, v)
		}
	}
	return &listCondition{op: op, values: kept, present: len(kept) > 0}
}

func IsEqualTo(value interface{}) Condition {
	return newValueCondition("=", value)
}

func IsNotEqualTo(value interface{}) Condition {
	return newValueCondition("<>", value)
}

func IsGreaterThan(value interface{}) Condition {
	return newValueCondition(">", value)
}

func IsGreaterThanOrEqualTo(value interface{}) Condition {
	return newValueCondition(">=", value)
}

func IsLessThan(value interface{}) Condition {
	return newValueCondition("<", value)
}

func IsLessThanOrEqualTo(value interface{}) Condition {
	return newValueCondition("<=", value)
}

// The pattern is bound as is; see EscapeForLike.
func IsLike(pattern interface{}) Condition {
	return newValueCondition("like", pattern)
}

func IsNotLike(pattern interface{}) Condition {
	return newValueCondition("not like", pattern)
}

// Returns a representation of "in (v[0], ..., v[n-1])".  An empty list or a
// nil element makes the condition invalid.
func IsIn(values ...interface{}) Condition {
	return newListCondition("in", values)
}

func IsNotIn(values ...interface{}) Condition {
	return newListCondition("not in", values)
}

func IsBetween(low, high interface{}) Condition {
	cond := &betweenCondition{op: "between", low: low, high: high, present: true}
	if absent(low) || absent(high) {
		cond.err = invalidValue("between")
	}
	return cond
}

func IsNotBetween(low, high interface{}) Condition {
	cond := &betweenCondition{
		op:      "not between",
		low:     low,
		high:    high,
		present: true,
	}
	if absent(low) || absent(high) {
		cond.err = invalidValue("not between")
	}
	return cond
}

func IsNull() Condition {
	return &noValueCondition{op: "is null"}
}

func IsNotNull() Condition {
	return &noValueCondition{op: "is not null"}
}

func IsEqualToColumn(rhs Expression) Condition {
	return &expressionCondition{op: "=", rhs: rhs}
}

func IsNotEqualToColumn(rhs Expression) Condition {
	return &expressionCondition{op: "<>", rhs: rhs}
}

func IsGreaterThanColumn(rhs Expression) Condition {
	return &expressionCondition{op: ">", rhs: rhs}
}

func IsLessThanColumn(rhs Expression) Condition {
	return &expressionCondition{op: "<", rhs: rhs}
}

//
// When-present variants.  These never fail on absent values; the criterion
// holding them is dropped from the rendered tree along with its connector.
//

func IsEqualToWhenPresent(value interface{}) Condition {
	return newValueConditionWhenPresent("=", value)
}

func IsNotEqualToWhenPresent(value interface{}) Condition {
	return newValueConditionWhenPresent("<>", value)
}

func IsGreaterThanWhenPresent(value interface{}) Condition {
	return newValueConditionWhenPresent(">", value)
}

func IsGreaterThanOrEqualToWhenPresent(value interface{}) Condition {
	return newValueConditionWhenPresent(">=", value)
}

func IsLessThanWhenPresent(value interface{}) Condition {
	return newValueConditionWhenPresent("<", value)
}

func IsLessThanOrEqualToWhenPresent(value interface{}) Condition {
	return newValueConditionWhenPresent("<=", value)
}

func IsLikeWhenPresent(pattern interface{}) Condition {
	return newValueConditionWhenPresent("like", pattern)
}

func IsNotLikeWhenPresent(pattern interface{}) Condition {
	return newValueConditionWhenPresent("not like", pattern)
}

// Absent elements are dropped; the condition renders only if at least one
// element remains.
func IsInWhenPresent(values ...interface{}) Condition {
	return newListConditionWhenPresent("in", values)
}

func IsNotInWhenPresent(values ...interface{}) Condition {
	return newListConditionWhenPresent("not in", values)
}

// Renders only when both bounds are present.
func IsBetweenWhenPresent(low, high interface{}) Condition {
	return &betweenCondition{
		op:      "between",
		low:     low,
		high:    high,
		present: !absent(low) && !absent(high),
	}
}
