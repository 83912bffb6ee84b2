// A library for generating parameterized sql programmatically.
//
// Criteria are assembled inside builder closures and frozen into immutable
// trees:
//
//	q := person.Select(personId, firstName).Where(func(c *CriteriaCollector) {
//		c.Start(Group(func(g *CriteriaCollector) {
//			g.Where(personId, IsEqualTo(1)).Or(Criterion(personId, IsEqualTo(2)))
//		}))
//		c.And(Criterion(firstName, IsLikeWhenPresent(name)))
//	})
//	rendered, err := q.Render(NewPostgresDatabase())
//
// Rendering walks the tree depth first.  Bind parameters are named p1, p2, ...
// in the order they appear in the text; the Database only decides how a
// placeholder is spelled ("?", "$1" or ":p1").
//
// Usage errors (a second Then, a case without When, And before Start, ...)
// are recorded by the builders and reported, with a stable errors.Code, by
// Build or Render before any sql is produced.
//
// Known limitations for SELECT queries:
//   - does not support subqueries
//   - does not currently support join table alias (and hence self join)
//   - does not support NATURAL joins and join USING
//
// Known limitation for INSERT statements:
//   - does not support "INSERT INTO SELECT"
//
// Known limitation for UPDATE and DELETE statements:
//   - running without a WHERE clause requires an explicit AllRows()
//   - does not support multi-table update or delete
package sqlbuilder
