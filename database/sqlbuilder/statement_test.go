package sqlbuilder

import (
	"time"

	gc "gopkg.in/check.v1"

	"github.com/dropbox/sqldsl/errors"
	. "github.com/dropbox/sqldsl/gocheck2"
)

type StmtSuite struct {
}

var _ = gc.Suite(&StmtSuite{})

// NOTE: tables / columns are defined in test_utils_test.go

func whereIdIs(id interface{}) func(*CriteriaCollector) {
	return func(c *CriteriaCollector) {
		c.Where(personId, IsEqualTo(id))
	}
}

func noFilter(c *CriteriaCollector) {
	c.Where(personLastName, IsEqualToWhenPresent(nil))
}

func allowNonRendering(config *StatementConfiguration) {
	config.NonRenderingWhereClauseAllowed = true
}

//
// SELECT statement tests
//

func (s *StmtSuite) TestSelectEmptyProjection(c *gc.C) {
	_, err := person.Select().Render(nil)

	c.Assert(err, gc.NotNil)
}

func (s *StmtSuite) TestSelectSingleColumn(c *gc.C) {
	rendered, err := person.Select(personId).Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "select id from person")
	c.Assert(rendered.Parameters, gc.HasLen, 0)
}

func (s *StmtSuite) TestSelectMultiColumns(c *gc.C) {
	rendered, err := person.Select(person.Projections()...).Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"select id, first_name, last_name, birth_date, employed, "+
			"occupation, address_id from person")
}

func (s *StmtSuite) TestSelectWhere(c *gc.C) {
	rendered, err := person.Select(personId).
		Where(func(cc *CriteriaCollector) {
			cc.Where(personId, IsGreaterThan(123))
		}).
		Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "select id from person where id > ?")
	c.Assert(rendered.Args(), DeepEqualsDump, []interface{}{123})
}

func (s *StmtSuite) TestSelectWhereDate(c *gc.C) {
	date := time.Date(1999, 1, 2, 3, 4, 5, 0, time.UTC)

	rendered, err := person.Select(personId).
		Where(func(cc *CriteriaCollector) {
			cc.Where(personBirthDate, IsGreaterThan(date))
		}).
		Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "select id from person where birth_date > ?")
	c.Assert(
		rendered.Parameters["p1"],
		gc.DeepEquals,
		Parameter{Name: "p1", Value: date, Type: "TIMESTAMP"})
}

func (s *StmtSuite) TestSelectAndWhere(c *gc.C) {
	q := letters.Select(colA).Where(func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1)).Or(Criterion(colB, IsEqualTo(2)))
	})
	q.AndWhere(func(cc *CriteriaCollector) {
		cc.Where(colC, IsEqualTo("x"))
	})
	rendered, err := q.Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"select A from letters where (A = ? or B = ?) and C = ?")
}

func (s *StmtSuite) TestSelectAndWhereWithoutWhere(c *gc.C) {
	rendered, err := letters.Select(colA).AndWhere(func(cc *CriteriaCollector) {
		cc.Where(colC, IsEqualTo("x"))
	}).Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "select A from letters where C = ?")
}

func (s *StmtSuite) TestSelectWhereReplaces(c *gc.C) {
	rendered, err := letters.Select(colA).
		Where(func(cc *CriteriaCollector) { cc.Where(colA, IsEqualTo(1)) }).
		Where(func(cc *CriteriaCollector) { cc.Where(colB, IsEqualTo(2)) }).
		Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "select A from letters where B = ?")
}

func (s *StmtSuite) TestSelectDistinctAndComment(c *gc.C) {
	rendered, err := person.Select(personFirstName).
		Distinct().
		Comment("hello world").
		Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"select /* hello world */ distinct first_name from person")
}

func (s *StmtSuite) TestSelectInvalidComment(c *gc.C) {
	_, err := person.Select(personId).Comment("*/ drop").Render(nil)

	c.Assert(err, gc.NotNil)
}

func (s *StmtSuite) TestSelectGroupByOrderBy(c *gc.C) {
	rendered, err := person.Select(personOccupation, Alias("n", CountStar())).
		GroupBy(personOccupation).
		OrderBy(Asc(personOccupation), Desc(SqlFunc("count", personId))).
		Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"select occupation, count(*) as n from person group by occupation "+
			"order by occupation asc, count(id) desc")
}

func (s *StmtSuite) TestSelectLimitOffset(c *gc.C) {
	rendered, err := person.Select(personId).
		Limit(10).
		Offset(20).
		ForUpdate().
		Render(NewPostgresDatabase())

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"select id from person limit $1 offset $2 for update")
	c.Assert(
		rendered.Args(),
		DeepEqualsDump,
		[]interface{}{int64(10), int64(20)})
	c.Assert(rendered.Parameters["p1"].Type, gc.Equals, "BIGINT")
}

func (s *StmtSuite) TestSelectJoin(c *gc.C) {
	join := person.LeftJoinOn(address, func(cc *CriteriaCollector) {
		cc.Where(personAddressId, IsEqualToColumn(addressId))
	})
	rendered, err := join.Select(personId, addressCity).
		Where(func(cc *CriteriaCollector) {
			cc.Where(addressCity, IsEqualTo("Bedrock"))
		}).
		Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"select person.id, address.city from person left join address "+
			"on person.address_id = address.id where address.city = ?")
}

func (s *StmtSuite) TestSelectJoinTypes(c *gc.C) {
	on := func(cc *CriteriaCollector) {
		cc.Where(personAddressId, IsEqualToColumn(addressId))
	}

	rendered, err := person.InnerJoinOn(address, on).
		Select(personId).
		Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"select person.id from person join address "+
			"on person.address_id = address.id")

	rendered, err = person.RightJoinOn(address, on).
		Select(addressId).
		Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"select address.id from person right join address "+
			"on person.address_id = address.id")
}

func (s *StmtSuite) TestSelectJoinInvalidOn(c *gc.C) {
	join := person.InnerJoinOn(address, func(cc *CriteriaCollector) {
		cc.And(Criterion(personAddressId, IsEqualToColumn(addressId)))
	})

	_, err := join.Select(personId).Render(nil)
	c.Assert(err, HasCode, errors.MissingInitialCriterion)

	join = person.InnerJoinOn(address, func(cc *CriteriaCollector) {})
	_, err = join.Select(personId).Render(nil)
	c.Assert(err, gc.NotNil)
}

func (s *StmtSuite) TestCount(c *gc.C) {
	rendered, err := Count(person).
		Where(func(cc *CriteriaCollector) {
			cc.Where(personEmployed, IsEqualTo(true))
		}).
		Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"select count(*) from person where employed = ?")
	c.Assert(
		rendered.Parameters["p1"],
		gc.DeepEquals,
		Parameter{Name: "p1", Value: true, Type: "BOOLEAN"})

	rendered, err = person.Count().Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "select count(*) from person")
}

func (s *StmtSuite) TestSelectCopy(c *gc.C) {
	q := person.Select(personId).Where(whereIdIs(1))
	copied := q.Copy().AndWhere(func(cc *CriteriaCollector) {
		cc.Where(personEmployed, IsEqualTo(true))
	})

	rendered, err := q.Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "select id from person where id = ?")

	rendered, err = copied.Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"select id from person where id = ? and employed = ?")
}

func (s *StmtSuite) TestSelectWhereUsageError(c *gc.C) {
	_, err := person.Select(personId).
		Where(func(cc *CriteriaCollector) {
			cc.Where(personId, IsEqualTo(1))
			cc.Where(personId, IsEqualTo(2))
		}).
		Render(nil)

	c.Assert(err, HasCode, errors.DoubleInitialCriterion)
}

func orWithoutStart(cc *CriteriaCollector) {
	cc.Or(Criterion(personId, IsEqualTo(1)))
}

func (s *StmtSuite) TestWhereReplacesFailedWhere(c *gc.C) {
	rendered, err := person.Select(personId).
		Where(orWithoutStart).
		Where(whereIdIs(1)).
		Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "select id from person where id = ?")

	rendered, err = person.Update().
		Set(personFirstName, "Wilma").
		Where(orWithoutStart).
		Where(whereIdIs(2)).
		Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"update person set first_name = ? where id = ?")

	rendered, err = person.Delete().
		Where(orWithoutStart).
		Where(whereIdIs(3)).
		Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "delete from person where id = ?")
}

func (s *StmtSuite) TestAndWhereKeepsFailedWhere(c *gc.C) {
	_, err := person.Select(personId).
		Where(orWithoutStart).
		AndWhere(whereIdIs(1)).
		Render(nil)
	c.Assert(err, HasCode, errors.MissingInitialCriterion)
}

func (s *StmtSuite) TestSelectNonRenderingWhere(c *gc.C) {
	_, err := person.Select(personId).Where(noFilter).Render(nil)
	c.Assert(err, HasCode, errors.NonRenderingWhereClause)

	rendered, err := person.Select(personId).
		Where(noFilter).
		ConfigureStatement(allowNonRendering).
		Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "select id from person")
}

func (s *StmtSuite) TestRenderRestartsParameterNames(c *gc.C) {
	q := person.Select(personId).Where(whereIdIs(7)).Limit(1)

	first, err := q.Render(nil)
	c.Assert(err, gc.IsNil)
	second, err := q.Render(nil)
	c.Assert(err, gc.IsNil)

	c.Assert(first.ParameterNames(), gc.DeepEquals, []string{"p1", "p2"})
	c.Assert(second.ParameterNames(), gc.DeepEquals, []string{"p1", "p2"})
	c.Assert(second.SQL, gc.Equals, first.SQL)
}

//
// UNION statement tests
//

func (s *StmtSuite) TestUnion(c *gc.C) {
	rendered, err := Union(
		person.Select(personId).Where(whereIdIs(1)),
		address.Select(addressId)).
		OrderBy(Asc(personId)).
		Limit(5).
		Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"select id from person where id = ? union select id from address "+
			"order by id asc limit ?")
	c.Assert(rendered.Args(), DeepEqualsDump, []interface{}{1, int64(5)})
}

func (s *StmtSuite) TestUnionAll(c *gc.C) {
	rendered, err := UnionAll(
		person.Select(personId),
		address.Select(addressId)).
		Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"select id from person union all select id from address")
}

func (s *StmtSuite) TestUnionErrors(c *gc.C) {
	_, err := Union().Render(nil)
	c.Assert(err, gc.NotNil)

	_, err = Union(
		person.Select(personId).Limit(1),
		address.Select(addressId)).Render(nil)
	c.Assert(err, gc.NotNil)

	_, err = Union(
		person.Select(personId, personFirstName),
		address.Select(addressId)).Render(nil)
	c.Assert(err, gc.NotNil)
}

//
// INSERT statement tests
//

func (s *StmtSuite) TestInsertRows(c *gc.C) {
	rendered, err := person.Insert(personId, personFirstName, personLastName).
		Add(1, "Fred", nil).
		Add(2, "Wilma", "Flintstone").
		Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"insert into person (id, first_name, last_name) "+
			"values (?, ?, null), (?, ?, ?)")
	c.Assert(
		rendered.Args(),
		DeepEqualsDump,
		[]interface{}{1, "Fred", 2, "Wilma", "Flintstone"})
	c.Assert(rendered.Parameters["p1"].Type, gc.Equals, "INTEGER")
	c.Assert(rendered.Parameters["p2"].Type, gc.Equals, "VARCHAR")
}

func (s *StmtSuite) TestInsertExpressionValue(c *gc.C) {
	rendered, err := person.Insert(personId, personFirstName).
		Comment("seed").
		Add(Literal(3), SqlFunc("upper", Bound("barney"))).
		Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"insert /* seed */ into person (id, first_name) values (3, upper(?))")
}

func (s *StmtSuite) TestInsertErrors(c *gc.C) {
	_, err := person.Insert(personId, personFirstName).
		Add(1, nil).
		Render(nil)
	c.Assert(err, HasCode, errors.InvalidConditionValue)

	_, err = person.Insert(personId, personFirstName).Add(1).Render(nil)
	c.Assert(err, gc.NotNil)

	_, err = person.Insert(personId).Render(nil)
	c.Assert(err, gc.NotNil)

	_, err = person.Insert().Add().Render(nil)
	c.Assert(err, gc.NotNil)
}

//
// UPDATE statement tests
//

func (s *StmtSuite) TestUpdate(c *gc.C) {
	rendered, err := person.Update().
		Set(personFirstName, "Barney").
		SetToNull(personOccupation).
		Set(personFirstName, "Betty").
		Where(whereIdIs(5)).
		Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"update person set first_name = ?, occupation = null where id = ?")
	c.Assert(rendered.Args(), DeepEqualsDump, []interface{}{"Betty", 5})
}

func (s *StmtSuite) TestUpdateExpression(c *gc.C) {
	rendered, err := person.Update().
		Set(personAddressId, Add(personAddressId, Literal(1))).
		Where(whereIdIs(5)).
		Limit(1).
		Render(NewPostgresDatabase())

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"update person set address_id = (address_id + 1) where id = $1 limit $2")
}

func (s *StmtSuite) TestUpdateMissingWhere(c *gc.C) {
	_, err := person.Update().Set(personEmployed, false).Render(nil)
	c.Assert(err, HasCode, errors.MissingWhere)

	rendered, err := person.Update().
		Set(personEmployed, false).
		AllRows().
		Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "update person set employed = ?")
}

func (s *StmtSuite) TestUpdateNonRenderingWhere(c *gc.C) {
	_, err := person.Update().
		Set(personEmployed, false).
		Where(noFilter).
		Render(nil)
	c.Assert(err, HasCode, errors.NonRenderingWhereClause)

	rendered, err := person.Update().
		Set(personEmployed, false).
		Where(noFilter).
		ConfigureStatement(allowNonRendering).
		Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "update person set employed = ?")
}

func (s *StmtSuite) TestUpdateErrors(c *gc.C) {
	_, err := person.Update().
		SetToNull(personFirstName).
		Where(whereIdIs(1)).
		Render(nil)
	c.Assert(err, HasCode, errors.InvalidConditionValue)

	_, err = person.Update().Where(whereIdIs(1)).Render(nil)
	c.Assert(err, gc.NotNil)
}

//
// DELETE statement tests
//

func (s *StmtSuite) TestDelete(c *gc.C) {
	rendered, err := person.Delete().
		Where(func(cc *CriteriaCollector) {
			cc.Where(personId, IsIn(1, 2))
		}).
		Comment("purge").
		Render(nil)

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"delete /* purge */ from person where id in (?, ?)")
}

func (s *StmtSuite) TestDeleteMissingWhere(c *gc.C) {
	_, err := person.Delete().Render(nil)
	c.Assert(err, HasCode, errors.MissingWhere)

	rendered, err := person.Delete().AllRows().Limit(10).Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "delete from person limit ?")
}

func (s *StmtSuite) TestDeleteNonRenderingWhere(c *gc.C) {
	_, err := person.Delete().Where(noFilter).Render(nil)
	c.Assert(err, HasCode, errors.NonRenderingWhereClause)

	rendered, err := person.Delete().
		Where(noFilter).
		ConfigureStatement(allowNonRendering).
		Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "delete from person")
}

func (s *StmtSuite) TestDeleteAndWhere(c *gc.C) {
	rendered, err := person.Delete().
		Where(whereIdIs(1)).
		AndWhere(func(cc *CriteriaCollector) {
			cc.Where(personEmployed, IsEqualTo(false))
		}).
		Render(NewNamedDatabase())

	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"delete from person where id = :p1 and employed = :p2")
}
