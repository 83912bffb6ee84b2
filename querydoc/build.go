package querydoc

import (
	"strings"

	sb "github.com/dropbox/sqldsl/database/sqlbuilder"
	"github.com/dropbox/sqldsl/errors"
)

// Params supplies values for criteria and assignments that name a param.
// A missing param is absent, which omits a when_present criterion.
type Params map[string]interface{}

type schema map[string]*sb.Table

func (d *Document) schema() (schema, error) {
	tables := schema{}
	for _, t := range d.Tables {
		columns := make([]sb.NonAliasColumn, 0, len(t.Columns))
		for _, c := range t.Columns {
			col, err := newColumn(c)
			if err != nil {
				return nil, errors.Wrapf(err, "Invalid column in table %s", t.Name)
			}
			columns = append(columns, col)
		}

		var table *sb.Table
		err := catchPanic(func() {
			table = sb.NewTable(t.Name, columns...)
		})
		if err != nil {
			return nil, err
		}
		tables[t.Name] = table
	}
	return tables, nil
}

// Table and column constructors panic on invalid identifiers.
func catchPanic(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = errors.Wrap(e, "Invalid schema")
			} else {
				err = errors.Newf("Invalid schema: %v", r)
			}
		}
	}()
	fn()
	return nil
}

func newColumn(c ColumnDoc) (col sb.NonAliasColumn, err error) {
	nullable := sb.NotNullable
	if c.Nullable {
		nullable = sb.Nullable
	}

	err = catchPanic(func() {
		switch strings.ToLower(c.Type) {
		case "int", "integer":
			col = sb.IntColumn(c.Name, nullable)
		case "string", "varchar", "text":
			col = sb.StrColumn(c.Name, nullable)
		case "bytes", "varbinary", "blob":
			col = sb.BytesColumn(c.Name, nullable)
		case "datetime", "timestamp":
			col = sb.DateTimeColumn(c.Name, nullable)
		case "double", "float":
			col = sb.DoubleColumn(c.Name, nullable)
		case "bool", "boolean":
			col = sb.BoolColumn(c.Name, nullable)
		case "decimal":
			col = sb.DecimalColumn(c.Name, c.Precision, c.Scale, nullable)
		}
	})
	if err != nil {
		return nil, err
	}
	if col == nil {
		return nil, errors.Newf("Unknown type %q for column %s", c.Type, c.Name)
	}
	return col, nil
}

func (s schema) table(name string) (*sb.Table, error) {
	t, ok := s[name]
	if !ok {
		return nil, errors.Newf("Unknown table: %s", name)
	}
	return t, nil
}

func column(t *sb.Table, name string) (sb.NonAliasColumn, error) {
	for _, c := range t.Columns() {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, errors.Newf("Unknown column %s in table %s", name, t.Name())
}

// Statement builds the named query.
func (d *Document) Statement(name string, params Params) (sb.Statement, error) {
	q, err := d.query(name)
	if err != nil {
		return nil, err
	}

	tables, err := d.schema()
	if err != nil {
		return nil, err
	}

	b := &builder{params: params}
	var stmt sb.Statement
	switch {
	case q.Select != nil:
		stmt, err = b.selectStatement(tables, q.Select, q.AllowEmptyWhere)
	case q.Count != nil:
		stmt, err = b.countStatement(tables, q.Count, q.AllowEmptyWhere)
	case q.Update != nil:
		stmt, err = b.updateStatement(tables, q.Update, q.AllowEmptyWhere)
	default:
		stmt, err = b.deleteStatement(tables, q.Delete, q.AllowEmptyWhere)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to build query %s", name)
	}
	return stmt, nil
}

type builder struct {
	params Params
	// First document error; nested collectors cannot return one.
	err error
}

func (b *builder) record(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

func (b *builder) value(v interface{}, param string) interface{} {
	if param != "" {
		return b.params[param]
	}
	return v
}

func (b *builder) values(doc *CriteriaDoc) []interface{} {
	if doc.Param != "" {
		v, ok := b.params[doc.Param]
		if !ok {
			return nil
		}
		if list, ok := v.([]interface{}); ok {
			return list
		}
		return []interface{}{v}
	}
	return doc.Values
}

func allowEmpty(allow bool) func(*sb.StatementConfiguration) {
	return func(cfg *sb.StatementConfiguration) {
		cfg.NonRenderingWhereClauseAllowed = allow
	}
}

func (b *builder) selectStatement(
	tables schema,
	doc *SelectDoc,
	allowEmptyWhere bool) (sb.Statement, error) {

	t, err := tables.table(doc.From)
	if err != nil {
		return nil, err
	}

	projections := make([]sb.Projection, 0, len(doc.Columns))
	for i := range doc.Columns {
		p, err := b.projection(t, &doc.Columns[i])
		if err != nil {
			return nil, err
		}
		projections = append(projections, p)
	}
	if len(projections) == 0 {
		projections = t.Projections()
	}

	stmt := t.Select(projections...).ConfigureStatement(allowEmpty(allowEmptyWhere))
	if doc.Distinct {
		stmt = stmt.Distinct()
	}
	if doc.Where != nil {
		stmt = stmt.Where(b.whereFunc(t, doc.Where))
	}

	if len(doc.GroupBy) > 0 {
		groupBy := make([]sb.Expression, 0, len(doc.GroupBy))
		for _, name := range doc.GroupBy {
			col, err := column(t, name)
			if err != nil {
				return nil, err
			}
			groupBy = append(groupBy, col)
		}
		stmt = stmt.GroupBy(groupBy...)
	}

	if len(doc.OrderBy) > 0 {
		orderBy := make([]sb.OrderByClause, 0, len(doc.OrderBy))
		for _, o := range doc.OrderBy {
			col, err := column(t, o.Column)
			if err != nil {
				return nil, err
			}
			if o.Desc {
				orderBy = append(orderBy, sb.Desc(col))
			} else {
				orderBy = append(orderBy, sb.Asc(col))
			}
		}
		stmt = stmt.OrderBy(orderBy...)
	}

	if doc.Limit != nil {
		stmt = stmt.Limit(*doc.Limit)
	}
	if doc.Offset != nil {
		stmt = stmt.Offset(*doc.Offset)
	}

	return stmt, b.err
}

func (b *builder) countStatement(
	tables schema,
	doc *CountDoc,
	allowEmptyWhere bool) (sb.Statement, error) {

	t, err := tables.table(doc.From)
	if err != nil {
		return nil, err
	}

	stmt := t.Count().ConfigureStatement(allowEmpty(allowEmptyWhere))
	if doc.Where != nil {
		stmt = stmt.Where(b.whereFunc(t, doc.Where))
	}
	return stmt, b.err
}

func (b *builder) updateStatement(
	tables schema,
	doc *UpdateDoc,
	allowEmptyWhere bool) (sb.Statement, error) {

	t, err := tables.table(doc.Table)
	if err != nil {
		return nil, err
	}

	stmt := t.Update().ConfigureStatement(allowEmpty(allowEmptyWhere))
	for _, set := range doc.Set {
		col, err := column(t, set.Column)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Set(col, b.value(set.Value, set.Param))
	}
	if doc.Where != nil {
		stmt = stmt.Where(b.whereFunc(t, doc.Where))
	}
	if doc.AllRows {
		stmt = stmt.AllRows()
	}
	return stmt, b.err
}

func (b *builder) deleteStatement(
	tables schema,
	doc *DeleteDoc,
	allowEmptyWhere bool) (sb.Statement, error) {

	t, err := tables.table(doc.Table)
	if err != nil {
		return nil, err
	}

	stmt := t.Delete().ConfigureStatement(allowEmpty(allowEmptyWhere))
	if doc.Where != nil {
		stmt = stmt.Where(b.whereFunc(t, doc.Where))
	}
	if doc.AllRows {
		stmt = stmt.AllRows()
	}
	return stmt, b.err
}

func (b *builder) projection(
	t *sb.Table,
	doc *ProjectionDoc) (sb.Projection, error) {

	var expr sb.Expression
	switch {
	case doc.Case != nil:
		c, err := b.caseExpression(t, doc.Case)
		if err != nil {
			return nil, err
		}
		expr = c
	case doc.Count:
		expr = sb.CountStar()
	default:
		col, err := column(t, doc.Column)
		if err != nil {
			return nil, err
		}
		if doc.Alias == "" {
			return col, nil
		}
		expr = col
	}

	if doc.Alias == "" {
		return nil, errors.New("Computed columns require an alias")
	}

	var alias sb.Column
	if err := catchPanic(func() { alias = sb.Alias(doc.Alias, expr) }); err != nil {
		return nil, err
	}
	return alias, nil
}

func (b *builder) caseExpression(
	t *sb.Table,
	doc *CaseDoc) (*sb.CaseExpression, error) {

	if doc.Column != "" {
		col, err := column(t, doc.Column)
		if err != nil {
			return nil, err
		}
		expr := sb.SimpleCase(col, func(cb *sb.SimpleCaseBuilder) {
			for _, w := range doc.Whens {
				cb.When(w.Values...).Then(w.Then)
			}
			if doc.Else != nil {
				cb.Else(doc.Else)
			}
		})
		return expr, expr.Err()
	}

	expr := sb.SearchedCase(func(cb *sb.SearchedCaseBuilder) {
		for i := range doc.Whens {
			w := &doc.Whens[i]
			cb.When(func(sw *sb.SearchedWhen) {
				if w.Where == nil {
					b.record(errors.New("Searched case when requires a where"))
					return
				}
				b.fill(t, &sw.CriteriaCollector, w.Where)
				sw.Then(w.Then)
			})
		}
		if doc.Else != nil {
			cb.Else(doc.Else)
		}
	})
	if b.err != nil {
		return nil, b.err
	}
	return expr, expr.Err()
}

func (b *builder) whereFunc(
	t *sb.Table,
	doc *CriteriaDoc) func(*sb.CriteriaCollector) {

	return func(c *sb.CriteriaCollector) {
		b.fill(t, c, doc)
	}
}

// fill adds doc to an empty collector.  A group document contributes its
// members directly so the outermost level is never parenthesized.
func (b *builder) fill(t *sb.Table, c *sb.CriteriaCollector, doc *CriteriaDoc) {
	members, join := doc.members()
	if members == nil {
		c.Start(b.criterion(t, doc))
		return
	}

	for i := range members {
		crit := b.criterion(t, &members[i])
		switch {
		case i == 0:
			c.Start(crit)
		case join == "or":
			c.Or(crit)
		default:
			c.And(crit)
		}
	}
}

func (doc *CriteriaDoc) members() ([]CriteriaDoc, string) {
	if len(doc.All) > 0 {
		return doc.All, "and"
	}
	if len(doc.Any) > 0 {
		return doc.Any, "or"
	}
	return nil, ""
}

func (b *builder) criterion(t *sb.Table, doc *CriteriaDoc) sb.SqlCriterion {
	if doc.Not != nil {
		return sb.Not(func(c *sb.CriteriaCollector) {
			b.fill(t, c, doc.Not)
		})
	}

	if members, _ := doc.members(); members != nil {
		return sb.Group(func(c *sb.CriteriaCollector) {
			b.fill(t, c, doc)
		})
	}

	col, err := column(t, doc.Column)
	if err != nil {
		b.record(err)
		return nil
	}

	cond, err := b.condition(t, doc)
	if err != nil {
		b.record(errors.Wrapf(err, "Invalid criterion on %s", doc.Column))
		return nil
	}
	return sb.Criterion(col, cond)
}

func (b *builder) condition(t *sb.Table, doc *CriteriaDoc) (sb.Condition, error) {
	op := strings.ToLower(doc.Op)

	if doc.OtherColumn != "" {
		other, err := column(t, doc.OtherColumn)
		if err != nil {
			return nil, err
		}
		switch op {
		case "eq", "=":
			return sb.IsEqualToColumn(other), nil
		case "ne", "<>":
			return sb.IsNotEqualToColumn(other), nil
		case "gt", ">":
			return sb.IsGreaterThanColumn(other), nil
		case "lt", "<":
			return sb.IsLessThanColumn(other), nil
		}
		return nil, errors.Newf("Unsupported column comparison: %s", doc.Op)
	}

	value := b.value(doc.Value, doc.Param)
	present := doc.WhenPresent

	switch op {
	case "null":
		return sb.IsNull(), nil
	case "not_null":
		return sb.IsNotNull(), nil
	case "eq", "=":
		return pick(present, sb.IsEqualTo, sb.IsEqualToWhenPresent)(value), nil
	case "ne", "<>":
		return pick(present, sb.IsNotEqualTo, sb.IsNotEqualToWhenPresent)(value), nil
	case "gt", ">":
		return pick(present, sb.IsGreaterThan, sb.IsGreaterThanWhenPresent)(value), nil
	case "ge", ">=":
		return pick(present, sb.IsGreaterThanOrEqualTo, sb.IsGreaterThanOrEqualToWhenPresent)(value), nil
	case "lt", "<":
		return pick(present, sb.IsLessThan, sb.IsLessThanWhenPresent)(value), nil
	case "le", "<=":
		return pick(present, sb.IsLessThanOrEqualTo, sb.IsLessThanOrEqualToWhenPresent)(value), nil
	case "like":
		return pick(present, sb.IsLike, sb.IsLikeWhenPresent)(value), nil
	case "not_like":
		return pick(present, sb.IsNotLike, sb.IsNotLikeWhenPresent)(value), nil
	case "in":
		if present {
			return sb.IsInWhenPresent(b.values(doc)...), nil
		}
		return sb.IsIn(b.values(doc)...), nil
	case "not_in":
		if present {
			return sb.IsNotInWhenPresent(b.values(doc)...), nil
		}
		return sb.IsNotIn(b.values(doc)...), nil
	case "between", "not_between":
		values := b.values(doc)
		if len(values) != 2 {
			return nil, errors.Newf("%s requires exactly two values", op)
		}
		if op == "not_between" {
			if present {
				return nil, errors.New("not_between does not support when_present")
			}
			return sb.IsNotBetween(values[0], values[1]), nil
		}
		if present {
			return sb.IsBetweenWhenPresent(values[0], values[1]), nil
		}
		return sb.IsBetween(values[0], values[1]), nil
	}
	return nil, errors.Newf("Unknown operator: %q", doc.Op)
}

func pick(
	whenPresent bool,
	required func(interface{}) sb.Condition,
	optional func(interface{}) sb.Condition) func(interface{}) sb.Condition {

	if whenPresent {
		return optional
	}
	return required
}
