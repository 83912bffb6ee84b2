// Criteria trees: conditions joined by and/or with explicit grouping

package sqlbuilder

import (
	"reflect"

	"github.com/dropbox/sqldsl/errors"
)

// A SqlCriterion is one element of a criteria tree.  The implementations are
// *ColumnCriterion (leaf), *CriteriaGroup and *NotCriterion.
type SqlCriterion interface {
	isCriterionType()

	// Renders the criterion into a detached fragment.  Parameters are
	// allocated from out's bindings in rendering order.
	renderCriterion(out *RenderContext) (fragment, error)

	// Returns the first usage error carried by the criterion.
	validate() error
}

// The rendered text of a criterion.  compound is set when the text joins
// two or more parts with connectors, i.e. when embedding it in a larger
// conjunction requires parentheses.
type fragment struct {
	sql      string
	compound bool
}

type connector string

const (
	and connector = "and"
	or  connector = "or"
)

// An element of CriteriaGroup.rest.
type AndOrCriteria struct {
	Connector string
	Criterion SqlCriterion
}

//
// Leaf criterion
//

type ColumnCriterion struct {
	lhs       Expression
	condition Condition
}

// Returns a criterion testing lhs against cond.  Values bound by cond carry
// the sql type of lhs, when lhs is a column.
func Criterion(lhs Expression, cond Condition) *ColumnCriterion {
	return &ColumnCriterion{lhs: lhs, condition: cond}
}

func (c *ColumnCriterion) isCriterionType() {
}

func (c *ColumnCriterion) validate() error {
	if c.lhs == nil {
		return errors.NewCoded(
			errors.InvalidConditionValue,
			"criterion has a nil left hand side")
	}
	if c.condition == nil {
		return errors.NewCoded(
			errors.InvalidConditionValue,
			"criterion has a nil condition")
	}
	return c.condition.validate()
}

func (c *ColumnCriterion) renderCriterion(
	out *RenderContext) (fragment, error) {

	if err := c.validate(); err != nil {
		return fragment{}, err
	}
	if !c.condition.shouldRender() {
		return fragment{}, nil
	}

	buf := out.fork()
	if err := c.lhs.SerializeSql(buf); err != nil {
		return fragment{}, err
	}
	_ = buf.WriteByte(' ')
	if err := c.condition.serializeCondition(buf, typeNameOf(c.lhs)); err != nil {
		return fragment{}, err
	}
	return fragment{sql: buf.String()}, nil
}

func typeNameOf(expr Expression) string {
	if typed, ok := expr.(interface{ TypeName() string }); ok {
		return typed.TypeName()
	}
	return ""
}

//
// Groups
//

// CriteriaGroup is a frozen criteria tree: an optional initial element
// followed by connector tagged elements in call order.
type CriteriaGroup struct {
	isExpression

	initial SqlCriterion
	rest    []AndOrCriteria

	// Set for groups built with Group; such a group renders in parentheses
	// even at the root, as long as it joins two or more parts.
	parenthesized bool

	err error
}

func (g *CriteriaGroup) isCriterionType() {
}

func (g *CriteriaGroup) validate() error {
	return g.err
}

// Initial returns the first element, or nil for an empty group.
func (g *CriteriaGroup) Initial() SqlCriterion {
	return g.initial
}

// Rest returns a copy of the connector tagged elements.
func (g *CriteriaGroup) Rest() []AndOrCriteria {
	rest := make([]AndOrCriteria, len(g.rest))
	copy(rest, g.rest)
	return rest
}

func (g *CriteriaGroup) IsParenthesized() bool {
	return g.parenthesized
}

func (g *CriteriaGroup) renderCriterion(out *RenderContext) (fragment, error) {
	if g.err != nil {
		return fragment{}, g.err
	}

	buf := out.fork()
	parts := 0
	appendElement := func(conn string, c SqlCriterion) error {
		f, err := c.renderCriterion(buf.fork())
		if err != nil {
			return err
		}
		if f.sql == "" {
			return nil
		}
		if parts > 0 {
			_ = buf.WriteByte(' ')
			_, _ = buf.WriteString(conn)
			_ = buf.WriteByte(' ')
		}
		if f.compound {
			_ = buf.WriteByte('(')
			_, _ = buf.WriteString(f.sql)
			_ = buf.WriteByte(')')
		} else {
			_, _ = buf.WriteString(f.sql)
		}
		parts++
		return nil
	}

	if g.initial != nil {
		if err := appendElement("", g.initial); err != nil {
			return fragment{}, err
		}
	}
	for _, r := range g.rest {
		if err := appendElement(r.Connector, r.Criterion); err != nil {
			return fragment{}, err
		}
	}

	return fragment{sql: buf.String(), compound: parts > 1}, nil
}

// Renders the group as a root: parentheses are only written for explicitly
// grouped trees.  Returns false if nothing was rendered.
func (g *CriteriaGroup) serializeRoot(out *RenderContext) (bool, error) {
	f, err := g.renderCriterion(out)
	if err != nil {
		return false, err
	}
	if f.sql == "" {
		return false, nil
	}
	if f.compound && g.parenthesized {
		_ = out.WriteByte('(')
		_, _ = out.WriteString(f.sql)
		_ = out.WriteByte(')')
	} else {
		_, _ = out.WriteString(f.sql)
	}
	return true, nil
}

// SerializeSql allows a criteria tree to be used as a boolean expression,
// e.g. in a projection list.  An empty tree is an error here.
func (g *CriteriaGroup) SerializeSql(out *RenderContext) error {
	ok, err := g.serializeRoot(out)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf(
			"Criteria group renders nothing.  Generated sql: %s",
			out.String())
	}
	return nil
}

// Render renders the tree on its own, as it would appear after "where".
// An empty tree renders as an empty string.
func (g *CriteriaGroup) Render(db Database) (*RenderedStatement, error) {
	out := newRenderContext(db)
	if _, err := g.serializeRoot(out); err != nil {
		return nil, err
	}
	return out.statement(), nil
}

// NotCriterion negates a criteria group: "not (<group>)".
type NotCriterion struct {
	group *CriteriaGroup
}

func (n *NotCriterion) isCriterionType() {
}

func (n *NotCriterion) validate() error {
	return n.group.validate()
}

func (n *NotCriterion) renderCriterion(out *RenderContext) (fragment, error) {
	f, err := n.group.renderCriterion(out)
	if err != nil || f.sql == "" {
		return fragment{}, err
	}
	return fragment{sql: "not (" + f.sql + ")"}, nil
}

//
// Collector
//

// CriteriaCollector accumulates a criteria tree inside a builder closure.
// Usage errors are recorded rather than returned by each call; Build
// reports the first one.
type CriteriaCollector struct {
	errorRecorder

	initialClaimed bool
	initial        *SqlCriterion
	rest           []AndOrCriteria
}

func isNilCriterion(c SqlCriterion) bool {
	if c == nil {
		return true
	}
	rv := reflect.ValueOf(c)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func (c *CriteriaCollector) checkElement(
	method string,
	criterion SqlCriterion) bool {

	if isNilCriterion(criterion) {
		c.record(errors.NewCoded(
			errors.EmptyConjunction,
			"%s called with a nil criterion",
			method))
		return false
	}
	if err := criterion.validate(); err != nil {
		c.record(err)
		return false
	}
	return true
}

// Start sets the first element of the tree.  It may be called once.
func (c *CriteriaCollector) Start(criterion SqlCriterion) *CriteriaCollector {
	err := claimOnce(
		&c.initialClaimed,
		errors.DoubleInitialCriterion,
		"initial criterion")
	if err != nil {
		c.record(err)
		return c
	}
	if !c.checkElement("Start", criterion) {
		return c
	}
	c.initial = &criterion
	return c
}

// Where is shorthand for Start(Criterion(lhs, cond)).
func (c *CriteriaCollector) Where(lhs Expression, cond Condition) *CriteriaCollector {
	return c.Start(Criterion(lhs, cond))
}

func (c *CriteriaCollector) add(conn connector, criterion SqlCriterion) {
	if c.initial == nil {
		c.record(errors.NewCoded(
			errors.MissingInitialCriterion,
			"%s called before Start",
			conn))
		return
	}
	if !c.checkElement(string(conn), criterion) {
		return
	}
	c.rest = append(c.rest, AndOrCriteria{
		Connector: string(conn),
		Criterion: criterion,
	})
}

func (c *CriteriaCollector) And(criterion SqlCriterion) *CriteriaCollector {
	c.add(and, criterion)
	return c
}

func (c *CriteriaCollector) Or(criterion SqlCriterion) *CriteriaCollector {
	c.add(or, criterion)
	return c
}

// AndGroup appends "and (<group built by fn>)".
func (c *CriteriaCollector) AndGroup(fn func(*CriteriaCollector)) *CriteriaCollector {
	return c.And(Group(fn))
}

// OrGroup appends "or (<group built by fn>)".
func (c *CriteriaCollector) OrGroup(fn func(*CriteriaCollector)) *CriteriaCollector {
	return c.Or(Group(fn))
}

// Build freezes the collected tree.  It may be called more than once; each
// call returns an independent snapshot.
func (c *CriteriaCollector) Build() (*CriteriaGroup, error) {
	g := &CriteriaGroup{
		rest: make([]AndOrCriteria, len(c.rest)),
		err:  c.err,
	}
	copy(g.rest, c.rest)
	if c.initial != nil {
		g.initial = *c.initial
	}
	return g, c.err
}

// Group runs fn against a fresh collector and returns the result as an
// explicitly parenthesized group, for use with Start, And and Or.  Usage
// errors inside fn surface when the group is added to a collector.
func Group(fn func(*CriteriaCollector)) *CriteriaGroup {
	c := &CriteriaCollector{}
	if fn != nil {
		fn(c)
	}
	g, _ := c.Build()
	g.parenthesized = true
	return g
}

// Not returns the negation of the group built by fn.
func Not(fn func(*CriteriaCollector)) *NotCriterion {
	return &NotCriterion{group: Group(fn)}
}

// Criteria builds a root criteria tree, as used by Where clauses.
func Criteria(fn func(*CriteriaCollector)) (*CriteriaGroup, error) {
	c := &CriteriaCollector{}
	if fn != nil {
		fn(c)
	}
	return c.Build()
}
