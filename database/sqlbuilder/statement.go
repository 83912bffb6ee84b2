package sqlbuilder

import (
	"regexp"

	"github.com/dropbox/sqldsl/errors"
)

type Statement interface {
	// Render returns the generated sql and its bind parameters, with
	// placeholders written for db.
	Render(db Database) (*RenderedStatement, error)
}

// StatementConfiguration holds per statement rendering switches.
type StatementConfiguration struct {
	// When false (the default), a where clause whose criteria all render
	// nothing (e.g. only absent when-present conditions) is an error
	// instead of being dropped from the statement.
	NonRenderingWhereClauseAllowed bool
}

type SelectStatement interface {
	Statement

	Where(fn func(*CriteriaCollector)) SelectStatement
	AndWhere(fn func(*CriteriaCollector)) SelectStatement
	GroupBy(expressions ...Expression) SelectStatement
	OrderBy(clauses ...OrderByClause) SelectStatement
	Limit(limit int64) SelectStatement
	Offset(offset int64) SelectStatement
	Distinct() SelectStatement
	ForUpdate() SelectStatement
	Comment(comment string) SelectStatement
	ConfigureStatement(fn func(*StatementConfiguration)) SelectStatement
	Copy() SelectStatement
}

type InsertStatement interface {
	Statement

	// Add a row of values to the insert statement.  Values that are not
	// expressions are bound as parameters.
	Add(row ...interface{}) InsertStatement
	Comment(comment string) InsertStatement
}

// Rows selected by a UNION statement are unordered unless the union itself
// has an ORDER BY.  Inner selects may not carry ORDER BY or LIMIT.
type UnionStatement interface {
	Statement

	OrderBy(clauses ...OrderByClause) UnionStatement
	Limit(limit int64) UnionStatement
	Offset(offset int64) UnionStatement
}

type UpdateStatement interface {
	Statement

	// Set assigns value to column.  Setting the same column again replaces
	// the earlier value but keeps its position.
	Set(column NonAliasColumn, value interface{}) UpdateStatement
	SetToNull(column NonAliasColumn) UpdateStatement
	Where(fn func(*CriteriaCollector)) UpdateStatement
	AndWhere(fn func(*CriteriaCollector)) UpdateStatement
	// AllRows acknowledges that the statement may run without a where
	// clause.
	AllRows() UpdateStatement
	Limit(limit int64) UpdateStatement
	Comment(comment string) UpdateStatement
	ConfigureStatement(fn func(*StatementConfiguration)) UpdateStatement
}

type DeleteStatement interface {
	Statement

	Where(fn func(*CriteriaCollector)) DeleteStatement
	AndWhere(fn func(*CriteriaCollector)) DeleteStatement
	AllRows() DeleteStatement
	Limit(limit int64) DeleteStatement
	Comment(comment string) DeleteStatement
	ConfigureStatement(fn func(*StatementConfiguration)) DeleteStatement
}

func render(
	db Database,
	serialize func(out *RenderContext) error) (*RenderedStatement, error) {

	out := newRenderContext(db)
	if err := serialize(out); err != nil {
		return nil, err
	}
	return out.statement(), nil
}

//
// WHERE clause ================================================================
//

// whereClause is shared by select, update and delete.  Every Where/AndWhere
// call contributes one criteria tree; the trees are joined with "and".
type whereClause struct {
	errorRecorder

	trees  []*CriteriaGroup
	config StatementConfiguration
}

// set replaces every tree, along with any error the replaced trees carried.
func (w *whereClause) set(fn func(*CriteriaCollector)) {
	w.errorRecorder = errorRecorder{}
	g, err := Criteria(fn)
	w.record(err)
	w.trees = []*CriteriaGroup{g}
}

func (w *whereClause) and(fn func(*CriteriaCollector)) {
	g, err := Criteria(fn)
	w.record(err)
	w.trees = append(w.trees, g)
}

func (w *whereClause) configure(fn func(*StatementConfiguration)) {
	if fn != nil {
		fn(&w.config)
	}
}

func (w *whereClause) copy() whereClause {
	c := *w
	c.trees = append([]*CriteriaGroup(nil), w.trees...)
	return c
}

func (w *whereClause) combined() *CriteriaGroup {
	if len(w.trees) == 1 {
		return w.trees[0]
	}
	g := &CriteriaGroup{initial: w.trees[0]}
	for _, t := range w.trees[1:] {
		g.rest = append(g.rest, AndOrCriteria{Connector: string(and), Criterion: t})
	}
	return g
}

// Writes " where <criteria>".  Returns false if there was no where clause
// to write.
func (w *whereClause) serialize(out *RenderContext) (bool, error) {
	if len(w.trees) == 0 {
		return false, nil
	}

	buf := out.fork()
	ok, err := w.combined().serializeRoot(buf)
	if err != nil {
		return false, err
	}
	if !ok {
		if w.config.NonRenderingWhereClauseAllowed {
			return false, nil
		}
		return false, errors.NewCoded(
			errors.NonRenderingWhereClause,
			"Where clause renders nothing.  Set "+
				"NonRenderingWhereClauseAllowed to run the statement "+
				"without it.  Generated sql: %s",
			out.String())
	}

	_, _ = out.WriteString(" where ")
	_, _ = out.WriteString(buf.String())
	return true, nil
}

//
// UNION SELECT Statement ======================================================
//

func Union(selects ...SelectStatement) UnionStatement {
	return &unionStatementImpl{
		selects: selects,
		limit:   -1,
		offset:  -1,
		unique:  true,
	}
}

func UnionAll(selects ...SelectStatement) UnionStatement {
	return &unionStatementImpl{
		selects: selects,
		limit:   -1,
		offset:  -1,
		unique:  false,
	}
}

// Similar to selectStatementImpl, but less complete
type unionStatementImpl struct {
	selects       []SelectStatement
	order         *listClause
	limit, offset int64
	// True if results of the union should be deduped.
	unique bool
}

func (us *unionStatementImpl) OrderBy(
	clauses ...OrderByClause) UnionStatement {

	us.order = newOrderByListClause(clauses...)
	return us
}

func (us *unionStatementImpl) Limit(limit int64) UnionStatement {
	us.limit = limit
	return us
}

func (us *unionStatementImpl) Offset(offset int64) UnionStatement {
	us.offset = offset
	return us
}

func (us *unionStatementImpl) Render(db Database) (*RenderedStatement, error) {
	return render(db, us.serialize)
}

func (us *unionStatementImpl) serialize(out *RenderContext) (err error) {
	if len(us.selects) == 0 {
		return errors.Newf("Union statement must have at least one SELECT")
	}

	var projections []Projection
	impls := make([]*selectStatementImpl, 0, len(us.selects))
	for _, statement := range us.selects {
		// do a type assertion to get at the underlying struct
		statementImpl, ok := statement.(*selectStatementImpl)
		if !ok {
			return errors.Newf(
				"Expected inner select statement to be of type " +
					"selectStatementImpl")
		}

		if statementImpl.order != nil || statementImpl.limit >= 0 ||
			statementImpl.offset >= 0 {
			return errors.Newf(
				"Inner selects in Union statement may not have ORDER BY, " +
					"LIMIT or OFFSET; set them on the union instead")
		}

		// check number of projections
		if projections == nil {
			projections = statementImpl.projections
		} else if len(projections) != len(statementImpl.projections) {
			return errors.Newf(
				"All inner selects in Union statement must select the " +
					"same number of columns.")
		}
		impls = append(impls, statementImpl)
	}

	for i, statementImpl := range impls {
		if i != 0 {
			if us.unique {
				_, _ = out.WriteString(" union ")
			} else {
				_, _ = out.WriteString(" union all ")
			}
		}
		if err = statementImpl.serialize(out); err != nil {
			return
		}
	}

	if us.order != nil {
		_, _ = out.WriteString(" order by ")
		if err = us.order.SerializeSql(out); err != nil {
			return
		}
	}

	writeLimitOffset(out, us.limit, us.offset)
	return nil
}

//
// SELECT Statement ============================================================
//

func newSelectStatement(
	table ReadableTable,
	projections []Projection) SelectStatement {

	return &selectStatementImpl{
		table:       table,
		projections: projections,
		limit:       -1,
		offset:      -1,
	}
}

// Count returns "select count(*) from <table>".
func Count(table ReadableTable) SelectStatement {
	return newSelectStatement(table, []Projection{&countStarExpression{}})
}

type selectStatementImpl struct {
	table         ReadableTable
	projections   []Projection
	where         whereClause
	group         *listClause
	order         *listClause
	comment       string
	limit, offset int64
	forUpdate     bool
	distinct      bool
}

func (q *selectStatementImpl) Copy() SelectStatement {
	ret := *q
	ret.projections = append([]Projection(nil), q.projections...)
	ret.where = q.where.copy()
	return &ret
}

func (q *selectStatementImpl) Where(
	fn func(*CriteriaCollector)) SelectStatement {

	q.where.set(fn)
	return q
}

// Further filter the query, instead of replacing the filter
func (q *selectStatementImpl) AndWhere(
	fn func(*CriteriaCollector)) SelectStatement {

	q.where.and(fn)
	return q
}

func (q *selectStatementImpl) ConfigureStatement(
	fn func(*StatementConfiguration)) SelectStatement {

	q.where.configure(fn)
	return q
}

func (q *selectStatementImpl) GroupBy(
	expressions ...Expression) SelectStatement {

	q.group = &listClause{
		clauses:            make([]Clause, len(expressions)),
		includeParentheses: false,
	}

	for i, e := range expressions {
		q.group.clauses[i] = e
	}
	return q
}

func (q *selectStatementImpl) OrderBy(
	clauses ...OrderByClause) SelectStatement {

	q.order = newOrderByListClause(clauses...)
	return q
}

func (q *selectStatementImpl) Limit(limit int64) SelectStatement {
	q.limit = limit
	return q
}

func (q *selectStatementImpl) Offset(offset int64) SelectStatement {
	q.offset = offset
	return q
}

func (q *selectStatementImpl) Distinct() SelectStatement {
	q.distinct = true
	return q
}

func (q *selectStatementImpl) ForUpdate() SelectStatement {
	q.forUpdate = true
	return q
}

func (q *selectStatementImpl) Comment(comment string) SelectStatement {
	q.comment = comment
	return q
}

func (q *selectStatementImpl) Render(db Database) (*RenderedStatement, error) {
	return render(db, q.serialize)
}

func (q *selectStatementImpl) serialize(out *RenderContext) (err error) {
	if q.where.err != nil {
		return q.where.err
	}

	if _, ok := q.table.(*joinTable); ok {
		out.qualifyColumns = true
		defer func() { out.qualifyColumns = false }()
	}

	_, _ = out.WriteString("select ")

	if err = writeComment(q.comment, out); err != nil {
		return
	}

	if q.distinct {
		_, _ = out.WriteString("distinct ")
	}

	if len(q.projections) == 0 {
		return errors.Newf(
			"No column selected.  Generated sql: %s",
			out.String())
	}

	for i, col := range q.projections {
		if i > 0 {
			_, _ = out.WriteString(", ")
		}
		if col == nil {
			return errors.Newf(
				"nil column selected.  Generated sql: %s",
				out.String())
		}
		if err = col.SerializeSqlForColumnList(out); err != nil {
			return
		}
	}

	_, _ = out.WriteString(" from ")
	if q.table == nil {
		return errors.Newf("nil table.  Generated sql: %s", out.String())
	}
	if err = q.table.SerializeSql(out); err != nil {
		return
	}

	if _, err = q.where.serialize(out); err != nil {
		return
	}

	if q.group != nil {
		_, _ = out.WriteString(" group by ")
		if err = q.group.SerializeSql(out); err != nil {
			return
		}
	}

	if q.order != nil {
		_, _ = out.WriteString(" order by ")
		if err = q.order.SerializeSql(out); err != nil {
			return
		}
	}

	writeLimitOffset(out, q.limit, q.offset)

	if q.forUpdate {
		_, _ = out.WriteString(" for update")
	}

	return nil
}

//
// INSERT Statement ============================================================
//

func newInsertStatement(
	t WritableTable,
	columns ...NonAliasColumn) InsertStatement {

	return &insertStatementImpl{
		table:   t,
		columns: columns,
		rows:    make([][]Expression, 0, 1),
	}
}

type insertStatementImpl struct {
	errorRecorder

	table   WritableTable
	columns []NonAliasColumn
	rows    [][]Expression
	comment string
}

func (s *insertStatementImpl) Add(row ...interface{}) InsertStatement {
	if len(row) != len(s.columns) {
		s.record(errors.Newf(
			"# of values (%d) does not match # of columns (%d) in row %d",
			len(row),
			len(s.columns),
			len(s.rows)))
		return s
	}

	exprs := make([]Expression, len(row))
	for i, value := range row {
		expr, err := assignedValue(s.columns[i], value)
		if err != nil {
			s.record(errors.Wrapf(err, "row %d col %d", len(s.rows), i))
			return s
		}
		exprs[i] = expr
	}
	s.rows = append(s.rows, exprs)
	return s
}

func (s *insertStatementImpl) Comment(comment string) InsertStatement {
	s.comment = comment
	return s
}

func (s *insertStatementImpl) Render(db Database) (*RenderedStatement, error) {
	return render(db, s.serialize)
}

func (s *insertStatementImpl) serialize(out *RenderContext) (err error) {
	if s.err != nil {
		return s.err
	}

	_, _ = out.WriteString("insert ")
	if err = writeComment(s.comment, out); err != nil {
		return
	}
	_, _ = out.WriteString("into ")

	if s.table == nil {
		return errors.Newf("nil table.  Generated sql: %s", out.String())
	}

	if err = s.table.SerializeSql(out); err != nil {
		return
	}

	if len(s.columns) == 0 {
		return errors.Newf(
			"No column specified.  Generated sql: %s",
			out.String())
	}

	_, _ = out.WriteString(" (")
	for i, col := range s.columns {
		if i > 0 {
			_, _ = out.WriteString(", ")
		}

		if col == nil {
			return errors.Newf(
				"nil column in columns list.  Generated sql: %s",
				out.String())
		}

		if err = col.SerializeSqlForColumnList(out); err != nil {
			return
		}
	}

	if len(s.rows) == 0 {
		return errors.Newf(
			"No row specified.  Generated sql: %s",
			out.String())
	}

	_, _ = out.WriteString(") values ")
	for rowIdx, row := range s.rows {
		if rowIdx > 0 {
			_, _ = out.WriteString(", ")
		}
		_ = out.WriteByte('(')
		for colIdx, value := range row {
			if colIdx > 0 {
				_, _ = out.WriteString(", ")
			}
			if err = value.SerializeSql(out); err != nil {
				return
			}
		}
		_ = out.WriteByte(')')
	}

	return nil
}

//
// UPDATE statement ===========================================================
//

func newUpdateStatement(table WritableTable) UpdateStatement {
	return &updateStatementImpl{
		table: table,
		limit: -1,
	}
}

type columnAssignment struct {
	col  NonAliasColumn
	expr Expression
}

type updateStatementImpl struct {
	errorRecorder

	table       WritableTable
	assignments []columnAssignment
	where       whereClause
	allRows     bool
	limit       int64
	comment     string
}

func (u *updateStatementImpl) Set(
	column NonAliasColumn,
	value interface{}) UpdateStatement {

	if column == nil {
		u.record(errors.Newf("Set called with a nil column"))
		return u
	}
	expr, err := assignedValue(column, value)
	if err != nil {
		u.record(errors.Wrapf(err, "set %s", column.Name()))
		return u
	}

	for i, a := range u.assignments {
		if a.col.Name() == column.Name() {
			u.assignments[i].expr = expr
			return u
		}
	}
	u.assignments = append(u.assignments, columnAssignment{column, expr})
	return u
}

func (u *updateStatementImpl) SetToNull(column NonAliasColumn) UpdateStatement {
	return u.Set(column, nil)
}

func (u *updateStatementImpl) Where(
	fn func(*CriteriaCollector)) UpdateStatement {

	u.where.set(fn)
	return u
}

func (u *updateStatementImpl) AndWhere(
	fn func(*CriteriaCollector)) UpdateStatement {

	u.where.and(fn)
	return u
}

func (u *updateStatementImpl) AllRows() UpdateStatement {
	u.allRows = true
	return u
}

func (u *updateStatementImpl) ConfigureStatement(
	fn func(*StatementConfiguration)) UpdateStatement {

	u.where.configure(fn)
	return u
}

func (u *updateStatementImpl) Limit(limit int64) UpdateStatement {
	u.limit = limit
	return u
}

func (u *updateStatementImpl) Comment(comment string) UpdateStatement {
	u.comment = comment
	return u
}

func (u *updateStatementImpl) Render(db Database) (*RenderedStatement, error) {
	return render(db, u.serialize)
}

func (u *updateStatementImpl) serialize(out *RenderContext) (err error) {
	if u.err != nil {
		return u.err
	}
	if u.where.err != nil {
		return u.where.err
	}

	_, _ = out.WriteString("update ")

	if err = writeComment(u.comment, out); err != nil {
		return
	}

	if u.table == nil {
		return errors.Newf("nil table.  Generated sql: %s", out.String())
	}

	if err = u.table.SerializeSql(out); err != nil {
		return
	}

	if len(u.assignments) == 0 {
		return errors.Newf(
			"No column updated.  Generated sql: %s",
			out.String())
	}

	_, _ = out.WriteString(" set ")
	for i, a := range u.assignments {
		if i > 0 {
			_, _ = out.WriteString(", ")
		}
		if err = a.col.SerializeSql(out); err != nil {
			return
		}
		_, _ = out.WriteString(" = ")
		if err = a.expr.SerializeSql(out); err != nil {
			return
		}
	}

	if len(u.where.trees) == 0 && !u.allRows {
		return errors.NewCoded(
			errors.MissingWhere,
			"Updating without a WHERE clause; call AllRows to update "+
				"every row.  Generated sql: %s",
			out.String())
	}

	if _, err = u.where.serialize(out); err != nil {
		return
	}

	writeLimitOffset(out, u.limit, -1)
	return nil
}

//
// DELETE statement ===========================================================
//

func newDeleteStatement(table WritableTable) DeleteStatement {
	return &deleteStatementImpl{
		table: table,
		limit: -1,
	}
}

type deleteStatementImpl struct {
	table   WritableTable
	where   whereClause
	allRows bool
	limit   int64
	comment string
}

func (d *deleteStatementImpl) Where(
	fn func(*CriteriaCollector)) DeleteStatement {

	d.where.set(fn)
	return d
}

func (d *deleteStatementImpl) AndWhere(
	fn func(*CriteriaCollector)) DeleteStatement {

	d.where.and(fn)
	return d
}

func (d *deleteStatementImpl) AllRows() DeleteStatement {
	d.allRows = true
	return d
}

func (d *deleteStatementImpl) ConfigureStatement(
	fn func(*StatementConfiguration)) DeleteStatement {

	d.where.configure(fn)
	return d
}

func (d *deleteStatementImpl) Limit(limit int64) DeleteStatement {
	d.limit = limit
	return d
}

func (d *deleteStatementImpl) Comment(comment string) DeleteStatement {
	d.comment = comment
	return d
}

func (d *deleteStatementImpl) Render(db Database) (*RenderedStatement, error) {
	return render(db, d.serialize)
}

func (d *deleteStatementImpl) serialize(out *RenderContext) (err error) {
	if d.where.err != nil {
		return d.where.err
	}

	_, _ = out.WriteString("delete ")

	if err = writeComment(d.comment, out); err != nil {
		return
	}
	_, _ = out.WriteString("from ")

	if d.table == nil {
		return errors.Newf("nil table.  Generated sql: %s", out.String())
	}

	if err = d.table.SerializeSql(out); err != nil {
		return
	}

	if len(d.where.trees) == 0 && !d.allRows {
		return errors.NewCoded(
			errors.MissingWhere,
			"Deleting without a WHERE clause; call AllRows to delete "+
				"every row.  Generated sql: %s",
			out.String())
	}

	if _, err = d.where.serialize(out); err != nil {
		return
	}

	writeLimitOffset(out, d.limit, -1)
	return nil
}

//
// Util functions =============================================================
//

// Values written by insert and update: expressions are used as is, nil
// becomes null (rejected for NotNullable columns), anything else is bound
// with the column's type.
func assignedValue(col NonAliasColumn, value interface{}) (Expression, error) {
	if expr, ok := value.(Expression); ok {
		return expr, nil
	}
	if absent(value) {
		if col.IsNullable() == NotNullable {
			return nil, errors.NewCoded(
				errors.InvalidConditionValue,
				"column %s is not nullable",
				col.Name())
		}
		return Literal(nil), nil
	}
	return BoundAs(value, col.TypeName()), nil
}

func writeLimitOffset(out *RenderContext, limit, offset int64) {
	if limit >= 0 {
		_, _ = out.WriteString(" limit ")
		out.bind(limit, BigintType)
	}
	if offset >= 0 {
		_, _ = out.WriteString(" offset ")
		out.bind(offset, BigintType)
	}
}

// Here's a quick filter on comments
var validCommentRegexp *regexp.Regexp = regexp.MustCompile("^[\\w .?]*$")

func isValidComment(comment string) bool {
	return validCommentRegexp.MatchString(comment)
}

func writeComment(comment string, out *RenderContext) error {
	if comment != "" {
		if !isValidComment(comment) {
			return errors.Newf("Invalid comment: %s", comment)
		}
		_, _ = out.WriteString("/* ")
		_, _ = out.WriteString(comment)
		_, _ = out.WriteString(" */ ")
	}
	return nil
}

func newOrderByListClause(clauses ...OrderByClause) *listClause {
	ret := &listClause{
		clauses:            make([]Clause, len(clauses)),
		includeParentheses: false,
	}

	for i, c := range clauses {
		ret.clauses[i] = c
	}

	return ret
}
