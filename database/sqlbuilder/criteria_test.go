package sqlbuilder

import (
	"database/sql"

	gc "gopkg.in/check.v1"

	"github.com/dropbox/sqldsl/errors"
	. "github.com/dropbox/sqldsl/gocheck2"
)

type CriteriaSuite struct {
}

var _ = gc.Suite(&CriteriaSuite{})

func renderCriteria(
	c *gc.C,
	fn func(*CriteriaCollector)) *RenderedStatement {

	g, err := Criteria(fn)
	c.Assert(err, gc.IsNil)
	rendered, err := g.Render(NewMySQLDatabase())
	c.Assert(err, gc.IsNil)
	return rendered
}

func (s *CriteriaSuite) TestGroupThenAnd(c *gc.C) {
	rendered := renderCriteria(c, func(cc *CriteriaCollector) {
		cc.Start(Group(func(g *CriteriaCollector) {
			g.Where(colA, IsEqualTo(1)).Or(Criterion(colA, IsEqualTo(2)))
		}))
		cc.And(Criterion(colB, IsEqualTo(3)))
	})

	c.Assert(rendered.SQL, SqlEquals, "(A = ? or A = ?) and B = ?")
	c.Assert(rendered.ParameterNames(), gc.DeepEquals, []string{"p1", "p2", "p3"})
	c.Assert(rendered.Args(), DeepEqualsDump, []interface{}{1, 2, 3})
	c.Assert(
		rendered.Parameters["p3"],
		gc.DeepEquals,
		Parameter{Name: "p3", Value: 3, Type: "INTEGER"})
}

func (s *CriteriaSuite) TestPlaceholdersPerDatabase(c *gc.C) {
	g, err := Criteria(func(cc *CriteriaCollector) {
		cc.Start(Group(func(g *CriteriaCollector) {
			g.Where(colA, IsEqualTo(1)).Or(Criterion(colA, IsEqualTo(2)))
		}))
		cc.And(Criterion(colB, IsEqualTo(3)))
	})
	c.Assert(err, gc.IsNil)

	rendered, err := g.Render(NewPostgresDatabase())
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "(A = $1 or A = $2) and B = $3")

	rendered, err = g.Render(NewNamedDatabase())
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "(A = :p1 or A = :p2) and B = :p3")
	c.Assert(
		rendered.Args(),
		DeepEqualsDump,
		[]interface{}{
			sql.Named("p1", 1),
			sql.Named("p2", 2),
			sql.Named("p3", 3),
		})

	rendered, err = g.Render(NewSQLiteDatabase())
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "(A = ? or A = ?) and B = ?")
}

func (s *CriteriaSuite) TestConnectorOrderFollowsCalls(c *gc.C) {
	rendered := renderCriteria(c, func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1)).
			Or(Criterion(colB, IsEqualTo(2))).
			And(Criterion(colC, IsEqualTo("x"))).
			Or(Criterion(colA, IsEqualTo(4)))
	})

	c.Assert(rendered.SQL, SqlEquals, "A = ? or B = ? and C = ? or A = ?")
	c.Assert(rendered.Args(), DeepEqualsDump, []interface{}{1, 2, "x", 4})
}

func (s *CriteriaSuite) TestGroupInRest(c *gc.C) {
	rendered := renderCriteria(c, func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1))
		cc.AndGroup(func(g *CriteriaCollector) {
			g.Where(colB, IsEqualTo(2)).Or(Criterion(colB, IsEqualTo(3)))
		})
	})

	c.Assert(rendered.SQL, SqlEquals, "A = ? and (B = ? or B = ?)")
}

func (s *CriteriaSuite) TestSingleElementGroupIsNotParenthesized(c *gc.C) {
	rendered := renderCriteria(c, func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1))
		cc.OrGroup(func(g *CriteriaCollector) {
			g.Where(colB, IsEqualTo(2))
		})
	})

	c.Assert(rendered.SQL, SqlEquals, "A = ? or B = ?")
}

func (s *CriteriaSuite) TestNestedGroups(c *gc.C) {
	rendered := renderCriteria(c, func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1))
		cc.OrGroup(func(g *CriteriaCollector) {
			g.Where(colB, IsEqualTo(2))
			g.AndGroup(func(inner *CriteriaCollector) {
				inner.Where(colC, IsEqualTo("x")).
					Or(Criterion(colC, IsEqualTo("y")))
			})
		})
	})

	c.Assert(
		rendered.SQL,
		SqlEquals,
		"A = ? or (B = ? and (C = ? or C = ?))")
	c.Assert(
		rendered.Args(),
		DeepEqualsDump,
		[]interface{}{1, 2, "x", "y"})
}

func (s *CriteriaSuite) TestRootParenthesization(c *gc.C) {
	grouped := Group(func(g *CriteriaCollector) {
		g.Where(colA, IsEqualTo(1)).Or(Criterion(colB, IsEqualTo(2)))
	})
	c.Assert(grouped.IsParenthesized(), IsTrue)

	rendered, err := grouped.Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "(A = ? or B = ?)")

	plain := renderCriteria(c, func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1)).Or(Criterion(colB, IsEqualTo(2)))
	})
	c.Assert(plain.SQL, SqlEquals, "A = ? or B = ?")
}

func (s *CriteriaSuite) TestNot(c *gc.C) {
	rendered := renderCriteria(c, func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1))
		cc.And(Not(func(g *CriteriaCollector) {
			g.Where(colB, IsEqualTo(2)).Or(Criterion(colB, IsEqualTo(3)))
		}))
	})

	c.Assert(rendered.SQL, SqlEquals, "A = ? and not (B = ? or B = ?)")
}

func (s *CriteriaSuite) TestEmptyCollectorRendersNothing(c *gc.C) {
	rendered := renderCriteria(c, func(cc *CriteriaCollector) {})

	c.Assert(rendered.SQL, gc.Equals, "")
	c.Assert(rendered.Parameters, gc.HasLen, 0)
}

//
// When-present omission
//

func (s *CriteriaSuite) TestAbsentInitialDropsNextConnector(c *gc.C) {
	var missing *int
	rendered := renderCriteria(c, func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualToWhenPresent(missing))
		cc.And(Criterion(colB, IsEqualTo(2)))
		cc.Or(Criterion(colB, IsEqualTo(3)))
	})

	c.Assert(rendered.SQL, SqlEquals, "B = ? or B = ?")
	c.Assert(rendered.ParameterNames(), gc.DeepEquals, []string{"p1", "p2"})
	c.Assert(rendered.Args(), DeepEqualsDump, []interface{}{2, 3})
}

func (s *CriteriaSuite) TestAbsentMiddleElement(c *gc.C) {
	rendered := renderCriteria(c, func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1))
		cc.And(Criterion(colC, IsLikeWhenPresent(nil)))
		cc.Or(Criterion(colB, IsEqualTo(3)))
	})

	c.Assert(rendered.SQL, SqlEquals, "A = ? or B = ?")
}

func (s *CriteriaSuite) TestGroupShrinksToSingleElement(c *gc.C) {
	rendered := renderCriteria(c, func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1))
		cc.AndGroup(func(g *CriteriaCollector) {
			g.Where(colB, IsEqualTo(2)).
				Or(Criterion(colC, IsEqualToWhenPresent(nil)))
		})
	})

	c.Assert(rendered.SQL, SqlEquals, "A = ? and B = ?")
}

func (s *CriteriaSuite) TestAllAbsent(c *gc.C) {
	rendered := renderCriteria(c, func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualToWhenPresent(nil))
		cc.AndGroup(func(g *CriteriaCollector) {
			g.Where(colB, IsGreaterThanWhenPresent(nil))
		})
		cc.And(Not(func(g *CriteriaCollector) {
			g.Where(colC, IsInWhenPresent(nil, nil))
		}))
	})

	c.Assert(rendered.SQL, gc.Equals, "")
	c.Assert(rendered.Args(), gc.HasLen, 0)
}

func (s *CriteriaSuite) TestPointerValuesAreDereferenced(c *gc.C) {
	five := 5
	rendered := renderCriteria(c, func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualToWhenPresent(&five))
	})

	c.Assert(rendered.SQL, SqlEquals, "A = ?")
	c.Assert(rendered.Args(), DeepEqualsDump, []interface{}{5})
}

//
// Determinism
//

func (s *CriteriaSuite) TestRenderIsRepeatable(c *gc.C) {
	g, err := Criteria(func(cc *CriteriaCollector) {
		cc.Where(colA, IsIn(1, 2, 3))
		cc.OrGroup(func(g *CriteriaCollector) {
			g.Where(colB, IsBetween(4, 5)).And(Criterion(colC, IsNotNull()))
		})
	})
	c.Assert(err, gc.IsNil)

	first, err := g.Render(nil)
	c.Assert(err, gc.IsNil)
	second, err := g.Render(nil)
	c.Assert(err, gc.IsNil)

	c.Assert(
		first.SQL,
		SqlEquals,
		"A in (?, ?, ?) or (B between ? and ? and C is not null)")
	c.Assert(second.SQL, gc.Equals, first.SQL)
	c.Assert(second.Parameters, gc.DeepEquals, first.Parameters)
	c.Assert(second.ParameterNames(), gc.DeepEquals, first.ParameterNames())
	c.Assert(first.Parameters, gc.HasLen, 5)
}

func (s *CriteriaSuite) TestBuildReturnsSnapshots(c *gc.C) {
	cc := &CriteriaCollector{}
	cc.Where(colA, IsEqualTo(1))

	first, err := cc.Build()
	c.Assert(err, gc.IsNil)

	cc.Or(Criterion(colB, IsEqualTo(2)))
	second, err := cc.Build()
	c.Assert(err, gc.IsNil)

	c.Assert(first.Rest(), gc.HasLen, 0)
	c.Assert(second.Rest(), gc.HasLen, 1)
	c.Assert(second.Rest()[0].Connector, gc.Equals, "or")
	c.Assert(second.Initial(), gc.Equals, first.Initial())
}

//
// Usage errors
//

func (s *CriteriaSuite) TestConnectorBeforeStart(c *gc.C) {
	_, err := Criteria(func(cc *CriteriaCollector) {
		cc.And(Criterion(colA, IsEqualTo(1)))
	})
	c.Assert(err, HasCode, errors.MissingInitialCriterion)

	_, err = Criteria(func(cc *CriteriaCollector) {
		cc.Or(Criterion(colA, IsEqualTo(1)))
	})
	c.Assert(err, HasCode, errors.MissingInitialCriterion)
}

func (s *CriteriaSuite) TestDoubleStart(c *gc.C) {
	_, err := Criteria(func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1))
		cc.Where(colB, IsEqualTo(2))
	})
	c.Assert(err, HasCode, errors.DoubleInitialCriterion)
}

func (s *CriteriaSuite) TestDoubleStartInvalidSecondElement(c *gc.C) {
	_, err := Criteria(func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1))
		cc.Start(nil)
	})
	c.Assert(err, HasCode, errors.DoubleInitialCriterion)
}

func (s *CriteriaSuite) TestNilCriterion(c *gc.C) {
	_, err := Criteria(func(cc *CriteriaCollector) {
		cc.Start(nil)
	})
	c.Assert(err, HasCode, errors.EmptyConjunction)

	var typedNil *ColumnCriterion
	_, err = Criteria(func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1))
		cc.And(typedNil)
	})
	c.Assert(err, HasCode, errors.EmptyConjunction)
}

func (s *CriteriaSuite) TestRequiredValueMissing(c *gc.C) {
	var missing *string
	_, err := Criteria(func(cc *CriteriaCollector) {
		cc.Where(colC, IsEqualTo(missing))
	})
	c.Assert(err, HasCode, errors.InvalidConditionValue)

	_, err = Criteria(func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1))
		cc.Or(Criterion(colA, IsIn()))
	})
	c.Assert(err, HasCode, errors.InvalidConditionValue)
}

func (s *CriteriaSuite) TestErrorInsideGroupPropagates(c *gc.C) {
	_, err := Criteria(func(cc *CriteriaCollector) {
		cc.Where(colA, IsEqualTo(1))
		cc.AndGroup(func(g *CriteriaCollector) {
			g.Or(Criterion(colB, IsEqualTo(2)))
		})
	})
	c.Assert(err, HasCode, errors.MissingInitialCriterion)
}

func (s *CriteriaSuite) TestFirstErrorWins(c *gc.C) {
	_, err := Criteria(func(cc *CriteriaCollector) {
		cc.And(Criterion(colA, IsEqualTo(1)))
		cc.Start(nil)
	})
	c.Assert(err, HasCode, errors.MissingInitialCriterion)
}

func (s *CriteriaSuite) TestInvalidGroupFailsRender(c *gc.C) {
	g := Group(func(g *CriteriaCollector) {
		g.Where(colA, IsEqualTo(nil))
	})

	_, err := g.Render(nil)
	c.Assert(err, HasCode, errors.InvalidConditionValue)
}
