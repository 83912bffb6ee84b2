package sqlbuilder

import (
	gc "gopkg.in/check.v1"

	"github.com/dropbox/sqldsl/errors"
	. "github.com/dropbox/sqldsl/gocheck2"
)

type CaseSuite struct {
}

var _ = gc.Suite(&CaseSuite{})

func (s *CaseSuite) TestSearchedCase(c *gc.C) {
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(colA, IsEqualTo(1)).Or(Criterion(colA, IsEqualTo(2)))
			w.Then("low")
		})
		b.When(func(w *SearchedWhen) {
			w.Where(colA, IsEqualTo(3)).Or(Criterion(colA, IsEqualTo(4)))
			w.Then("high")
		})
		b.Else("other")
	})
	c.Assert(expr.Err(), gc.IsNil)

	rendered, err := expr.Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"case when A = ? or A = ? then 'low' "+
			"when A = ? or A = ? then 'high' else 'other' end")
	c.Assert(
		rendered.ParameterNames(),
		gc.DeepEquals,
		[]string{"p1", "p2", "p3", "p4"})
	c.Assert(rendered.Args(), DeepEqualsDump, []interface{}{1, 2, 3, 4})
}

func (s *CaseSuite) TestSearchedCaseWithoutElse(c *gc.C) {
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(colB, IsNull()).Then(0)
		})
	})

	rendered, err := expr.Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(rendered.SQL, SqlEquals, "case when B is null then 0 end")
}

func (s *CaseSuite) TestSearchedCaseGroupedPredicate(c *gc.C) {
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(colC, IsEqualTo("x"))
			w.AndGroup(func(g *CriteriaCollector) {
				g.Where(colA, IsEqualTo(1)).Or(Criterion(colB, IsEqualTo(2)))
			})
			w.Then(colA)
		})
		b.Else(Bound("fallback"))
	})

	rendered, err := expr.Render(NewPostgresDatabase())
	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"case when C = $1 and (A = $2 or B = $3) then A else $4 end")
	c.Assert(
		rendered.Args(),
		DeepEqualsDump,
		[]interface{}{"x", 1, 2, "fallback"})
}

func (s *CaseSuite) TestMissingWhen(c *gc.C) {
	b := &SearchedCaseBuilder{}
	b.Else("x")
	_, err := b.Build()
	c.Assert(err, HasCode, errors.MissingWhen)

	expr := SearchedCase(func(b *SearchedCaseBuilder) {})
	c.Assert(expr.Err(), HasCode, errors.MissingWhen)

	rendered, err := expr.Render(nil)
	c.Assert(rendered, gc.IsNil)
	c.Assert(err, HasCode, errors.MissingWhen)
}

func (s *CaseSuite) TestDoubleThen(c *gc.C) {
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(colA, IsEqualTo(1)).Then("a")
		})
		b.When(func(w *SearchedWhen) {
			w.Where(colA, IsEqualTo(2)).Then("b").Then("c")
		})
	})

	c.Assert(expr.Err(), HasCode, errors.DoubleThen)
	c.Assert(
		errors.GetMessage(expr.Err()),
		gc.Equals,
		"[DOUBLE_THEN] then for when #2 may only be set once")
}

func (s *CaseSuite) TestDoubleThenAnyValue(c *gc.C) {
	// The second Then fails whatever it is given, even the same value.
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(colA, IsEqualTo(1)).Then(colB).Then(colB)
		})
	})

	c.Assert(expr.Err(), HasCode, errors.DoubleThen)
}

func (s *CaseSuite) TestDoubleThenInvalidSecondValue(c *gc.C) {
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(colA, IsEqualTo(1)).Then("a").Then(struct{}{})
		})
	})
	c.Assert(expr.Err(), HasCode, errors.DoubleThen)

	expr = SimpleCase(colA, func(b *SimpleCaseBuilder) {
		b.When(1).Then("a").Then(struct{}{})
	})
	c.Assert(expr.Err(), HasCode, errors.DoubleThen)
}

func (s *CaseSuite) TestThenAfterRejectedThen(c *gc.C) {
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(colA, IsEqualTo(1)).Then(struct{}{}).Then("a")
		})
	})
	c.Assert(expr.Err(), gc.NotNil)
	c.Assert(expr.Err(), gc.Not(HasCode), errors.DoubleThen)
}

func (s *CaseSuite) TestChainedPredicateThen(c *gc.C) {
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(colA, IsEqualTo(1)).
				Or(Criterion(colB, IsEqualTo(2))).
				Then("a")
		})
		b.When(func(w *SearchedWhen) {
			w.Start(Criterion(colA, IsEqualTo(3))).
				AndGroup(func(g *CriteriaCollector) {
					g.Where(colB, IsEqualTo(4)).Or(Criterion(colB, IsEqualTo(5)))
				}).
				Then("b")
		})
	})
	c.Assert(expr.Err(), gc.IsNil)

	rendered, err := expr.Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"case when A = ? or B = ? then 'a' "+
			"when A = ? and (B = ? or B = ?) then 'b' end")
}

func (s *CaseSuite) TestMissingThen(c *gc.C) {
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(colA, IsEqualTo(1))
		})
	})

	c.Assert(expr.Err(), HasCode, errors.MissingThen)
}

func (s *CaseSuite) TestDoubleElse(c *gc.C) {
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(colA, IsEqualTo(1)).Then(1)
		})
		b.Else(2)
		b.Else(3)
	})

	c.Assert(expr.Err(), HasCode, errors.DoubleElse)
}

func (s *CaseSuite) TestDoubleElseInvalidSecondValue(c *gc.C) {
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(colA, IsEqualTo(1)).Then(1)
		})
		b.Else(2)
		b.Else(map[string]int{})
	})

	c.Assert(expr.Err(), HasCode, errors.DoubleElse)
}

func (s *CaseSuite) TestPredicateErrorIsReported(c *gc.C) {
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Or(Criterion(colA, IsEqualTo(1)))
			w.Then(1)
		})
	})

	c.Assert(expr.Err(), HasCode, errors.MissingInitialCriterion)
}

func (s *CaseSuite) TestUnsupportedResultValue(c *gc.C) {
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(colA, IsEqualTo(1)).Then(struct{}{})
		})
	})

	c.Assert(expr.Err(), gc.NotNil)
}

func (s *CaseSuite) TestNonRenderingWhen(c *gc.C) {
	expr := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(colA, IsEqualToWhenPresent(nil)).Then(1)
		})
	})
	c.Assert(expr.Err(), gc.IsNil)

	_, err := expr.Render(nil)
	c.Assert(err, HasCode, errors.NonRenderingWhenCondition)
}

//
// Simple case
//

func (s *CaseSuite) TestSimpleCase(c *gc.C) {
	expr := SimpleCase(colA, func(b *SimpleCaseBuilder) {
		b.When(1, 2).Then("small")
		b.WhenConditions(IsGreaterThan(10)).Then("big")
		b.Else(Bound("none"))
	})
	c.Assert(expr.Err(), gc.IsNil)

	rendered, err := expr.Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"case A when ?, ? then 'small' when > ? then 'big' else ? end")
	c.Assert(
		rendered.Args(),
		DeepEqualsDump,
		[]interface{}{1, 2, 10, "none"})
	c.Assert(rendered.Parameters["p1"].Type, gc.Equals, "INTEGER")
	c.Assert(rendered.Parameters["p3"].Type, gc.Equals, "INTEGER")
	c.Assert(rendered.Parameters["p4"].Type, gc.Equals, "")
}

func (s *CaseSuite) TestSimpleCaseSliceValues(c *gc.C) {
	expr := SimpleCase(colC, func(b *SimpleCaseBuilder) {
		b.When([]string{"a", "b"}).Then(true)
		b.Else(false)
	})

	rendered, err := expr.Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"case C when ?, ? then true else false end")
}

func (s *CaseSuite) TestSimpleCaseErrors(c *gc.C) {
	expr := SimpleCase(colA, func(b *SimpleCaseBuilder) {
		b.When().Then(1)
	})
	c.Assert(expr.Err(), HasCode, errors.MissingWhenValues)

	expr = SimpleCase(colA, func(b *SimpleCaseBuilder) {
		b.WhenConditions().Then(1)
	})
	c.Assert(expr.Err(), HasCode, errors.MissingWhenValues)

	expr = SimpleCase(colA, func(b *SimpleCaseBuilder) {
		b.When(1, nil).Then(1)
	})
	c.Assert(expr.Err(), HasCode, errors.InvalidConditionValue)

	expr = SimpleCase(colA, func(b *SimpleCaseBuilder) {
		b.When(1).Then(1).Then(2)
	})
	c.Assert(expr.Err(), HasCode, errors.DoubleThen)

	expr = SimpleCase(colA, func(b *SimpleCaseBuilder) {
		b.When(1)
	})
	c.Assert(expr.Err(), HasCode, errors.MissingThen)

	expr = SimpleCase(colA, func(b *SimpleCaseBuilder) {
		b.When(1).Then(1)
		b.Else(2)
		b.Else(2)
	})
	c.Assert(expr.Err(), HasCode, errors.DoubleElse)

	expr = SimpleCase(colA, func(b *SimpleCaseBuilder) {
		b.Else(2)
	})
	c.Assert(expr.Err(), HasCode, errors.MissingWhen)
}

func (s *CaseSuite) TestCaseInSelect(c *gc.C) {
	bracket := SearchedCase(func(b *SearchedCaseBuilder) {
		b.When(func(w *SearchedWhen) {
			w.Where(personBirthDate, IsNull()).Then("unknown")
		})
		b.Else("known")
	})

	rendered, err := person.Select(personId, Alias("birth", bracket)).
		Where(func(cc *CriteriaCollector) {
			cc.Where(personId, IsGreaterThan(10))
		}).
		Render(nil)
	c.Assert(err, gc.IsNil)
	c.Assert(
		rendered.SQL,
		SqlEquals,
		"select id, case when birth_date is null then 'unknown' "+
			"else 'known' end as birth from person where id > ?")
}

func (s *CaseSuite) TestInvalidCaseFailsStatement(c *gc.C) {
	bad := SearchedCase(func(b *SearchedCaseBuilder) {})

	_, err := person.Select(Alias("x", bad)).Render(nil)
	c.Assert(err, HasCode, errors.MissingWhen)
}
