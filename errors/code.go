package errors

// Code is a stable identifier for a class of failure.  Codes never change
// once published; messages may.
type Code string

const NoCode Code = ""

// Usage errors raised while building statements.
const (
	DoubleThen              Code = "DOUBLE_THEN"
	DoubleElse              Code = "DOUBLE_ELSE"
	DoubleCastType          Code = "DOUBLE_CAST_TYPE"
	DoubleCastValue         Code = "DOUBLE_CAST_VALUE"
	MissingCastType         Code = "MISSING_CAST_TYPE"
	MissingCastValue        Code = "MISSING_CAST_VALUE"
	MissingWhen             Code = "MISSING_WHEN"
	MissingThen             Code = "MISSING_THEN"
	MissingWhenValues       Code = "MISSING_WHEN_VALUES"
	MissingInitialCriterion Code = "MISSING_INITIAL_CRITERION"
	DoubleInitialCriterion  Code = "DOUBLE_INITIAL_CRITERION"
	EmptyConjunction        Code = "EMPTY_CONJUNCTION"
	MissingWhere            Code = "MISSING_WHERE"
)

// Invalid values and clauses.
const (
	InvalidConditionValue     Code = "INVALID_CONDITION_VALUE"
	NonRenderingWhereClause   Code = "NON_RENDERING_WHERE_CLAUSE"
	NonRenderingWhenCondition Code = "NON_RENDERING_WHEN_CONDITION"
	InvalidCastType           Code = "INVALID_CAST_TYPE"
)

// CodeOf returns the outermost code found while walking err and the errors
// it wraps.  Returns NoCode when none is attached.
func CodeOf(err error) Code {
	for i := 0; err != nil && i < 20; i++ {
		if e, ok := err.(Error); ok && e.GetCode() != NoCode {
			return e.GetCode()
		}
		err = unwrapError(err)
	}
	return NoCode
}

// HasCode reports whether err, or any error it wraps, carries code.
func HasCode(err error, code Code) bool {
	for i := 0; err != nil && i < 20; i++ {
		if e, ok := err.(Error); ok && e.GetCode() == code {
			return true
		}
		err = unwrapError(err)
	}
	return false
}
