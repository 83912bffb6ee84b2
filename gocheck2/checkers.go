// Extensions to the go-check unittest framework.
//
// NOTE: see https://github.com/go-check/check/pull/6 for reasons why these
// checkers live here.
package gocheck2

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
	. "gopkg.in/check.v1"

	"github.com/dropbox/sqldsl/errors"
)

// -----------------------------------------------------------------------
// IsTrue / IsFalse checker.

type isBoolValueChecker struct {
	*CheckerInfo
	expected bool
}

func (checker *isBoolValueChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	errStr string) {

	obtained, ok := params[0].(bool)
	if !ok {
		return false, "Argument to " + checker.Name + " must be bool"
	}

	return obtained == checker.expected, ""
}

// The IsTrue checker verifies that the obtained value is true.
//
//	c.Assert(value, IsTrue)
var IsTrue Checker = &isBoolValueChecker{
	&CheckerInfo{Name: "IsTrue", Params: []string{"obtained"}},
	true,
}

// The IsFalse checker verifies that the obtained value is false.
//
//	c.Assert(value, IsFalse)
var IsFalse Checker = &isBoolValueChecker{
	&CheckerInfo{Name: "IsFalse", Params: []string{"obtained"}},
	false,
}

// -----------------------------------------------------------------------
// HasCode checker.

type hasCodeChecker struct {
	*CheckerInfo
}

func (checker *hasCodeChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	errStr string) {

	if params[0] == nil {
		return false, "obtained error is nil"
	}
	err, ok := params[0].(error)
	if !ok {
		return false, "First argument to HasCode must be an error"
	}
	code, ok := params[1].(errors.Code)
	if !ok {
		return false, "Second argument to HasCode must be an errors.Code"
	}
	if errors.HasCode(err, code) {
		return true, ""
	}
	return false, fmt.Sprintf("error carries code %q", errors.CodeOf(err))
}

// The HasCode checker verifies that an error, or an error it wraps, carries
// the expected code.
//
//	c.Assert(err, HasCode, errors.DoubleThen)
var HasCode Checker = &hasCodeChecker{
	&CheckerInfo{Name: "HasCode", Params: []string{"obtained", "code"}},
}

// -----------------------------------------------------------------------
// SqlEquals checker.

type sqlEqualsChecker struct {
	*CheckerInfo
}

func (checker *sqlEqualsChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	errStr string) {

	obtained, ok := params[0].(string)
	if !ok {
		return false, "First argument to SqlEquals must be a string"
	}
	expected, ok := params[1].(string)
	if !ok {
		return false, "Second argument to SqlEquals must be a string"
	}
	if obtained == expected {
		return true, ""
	}
	return false, "sql differs:\n" + SqlDiff(expected, obtained)
}

// The SqlEquals checker compares rendered sql and reports a token level diff
// on mismatch, which is much easier to read than two long lines.
//
//	c.Assert(rendered.SQL, SqlEquals, "select id from person")
var SqlEquals Checker = &sqlEqualsChecker{
	&CheckerInfo{Name: "SqlEquals", Params: []string{"obtained", "expected"}},
}

// SqlDiff returns a unified diff between two sql strings, one token per line.
func SqlDiff(expected, obtained string) string {
	diff := difflib.UnifiedDiff{
		A:        splitSqlTokens(expected),
		B:        splitSqlTokens(obtained),
		FromFile: "expected",
		ToFile:   "obtained",
		Context:  2,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return err.Error()
	}
	return text
}

func splitSqlTokens(sql string) []string {
	fields := strings.Fields(sql)
	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = f + "\n"
	}
	return lines
}

// -----------------------------------------------------------------------
// DeepEqualsDump checker.

type deepEqualsDumpChecker struct {
	*CheckerInfo
}

func (checker *deepEqualsDumpChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	errStr string) {

	if reflect.DeepEqual(params[0], params[1]) {
		return true, ""
	}
	return false, "obtained:\n" + spew.Sdump(params[0]) +
		"expected:\n" + spew.Sdump(params[1])
}

// The DeepEqualsDump checker behaves like DeepEquals but dumps both values
// with go-spew on mismatch, including the types hidden in interface{}
// fields (int vs int64 parameters look identical otherwise).
//
//	c.Assert(rendered.Args(), DeepEqualsDump, []interface{}{1, 2})
var DeepEqualsDump Checker = &deepEqualsDumpChecker{
	&CheckerInfo{Name: "DeepEqualsDump", Params: []string{"obtained", "expected"}},
}
