// This module implements errors which carry stack trace information and an
// optional stable code identifying the violated invariant.
//
// NOTE: This package intentionally mirrors the standard "errors" module.
// All sqldsl code should use this.
package errors

import (
	"bytes"
	"fmt"
	"runtime"
	"sync"
)

// This interface exposes additional information about the error.
type Error interface {
	// This returns the error message without the stack trace.
	GetMessage() string

	// This returns the wrapped error.  This returns nil if this does not wrap
	// another error.
	GetInner() error

	// Returns the code attached to this error, or NoCode.
	GetCode() Code

	// Implements the built-in error interface.
	Error() string

	// Returns stack frames.
	StackFrames() []StackFrame

	// Returns string representation of stack frames.  Do not parse it, use
	// StackFrames() instead.
	GetStack() string
}

// Represents a single stack frame.
type StackFrame struct {
	PC         uintptr
	FuncName   string
	File       string
	LineNumber int
}

type baseError struct {
	msg   string
	code  Code
	inner error

	stack       []uintptr
	framesOnce  sync.Once
	stackFrames []StackFrame
}

// This returns the error string without stack trace information.
func GetMessage(err interface{}) string {
	switch e := err.(type) {
	case Error:
		return extractFullErrorMessage(e, false)
	case error:
		return e.Error()
	default:
		return "Passed a non-error to GetMessage"
	}
}

// This returns a string with all available error information, including inner
// errors that are wrapped by this errors.
func (e *baseError) Error() string {
	return extractFullErrorMessage(e, true)
}

func (e *baseError) GetMessage() string {
	return e.msg
}

func (e *baseError) GetInner() error {
	return e.inner
}

func (e *baseError) GetCode() Code {
	return e.code
}

// Unwrap lets the standard library's errors.Is / errors.As see through.
func (e *baseError) Unwrap() error {
	return e.inner
}

func (e *baseError) StackFrames() []StackFrame {
	e.framesOnce.Do(func() {
		// CallersFrames expands inlined calls, which FuncForPC would
		// attribute to the innermost inlined function.
		frames := runtime.CallersFrames(e.stack)
		e.stackFrames = make([]StackFrame, 0, len(e.stack))
		for {
			frame, more := frames.Next()
			if frame.PC != 0 || frame.Function != "" {
				e.stackFrames = append(e.stackFrames, StackFrame{
					PC:         frame.PC,
					FuncName:   frame.Function,
					File:       frame.File,
					LineNumber: frame.Line,
				})
			}
			if !more {
				break
			}
		}
	})
	return e.stackFrames
}

func (e *baseError) GetStack() string {
	buf := bytes.NewBuffer(make([]byte, 0, 256))
	for _, frame := range e.StackFrames() {
		_, _ = buf.WriteString(frame.FuncName)
		_, _ = buf.WriteString("\n")
		fmt.Fprintf(buf, "\t%s:%d +0x%x\n",
			frame.File, frame.LineNumber, frame.PC)
	}
	return buf.String()
}

// This returns a new error initialized with the given message and
// the current stack trace.
func New(msg string) Error {
	return newError(nil, NoCode, msg)
}

// Same as New, but with fmt.Printf-style parameters.
func Newf(format string, args ...interface{}) Error {
	return newError(nil, NoCode, fmt.Sprintf(format, args...))
}

// NewCoded returns an error tagged with code.  The code, not the message, is
// the stable contract callers should match on.
func NewCoded(code Code, format string, args ...interface{}) Error {
	return newError(nil, code, fmt.Sprintf(format, args...))
}

// Wraps another error in a new error.
func Wrap(err error, msg string) Error {
	return newError(err, NoCode, msg)
}

// Same as Wrap, but with fmt.Printf-style parameters.
func Wrapf(err error, format string, args ...interface{}) Error {
	return newError(err, NoCode, fmt.Sprintf(format, args...))
}

// Internal helper to create new baseError objects.  If there is more than one
// level of indirection to call this function, the stack frame information
// will include that level too.
func newError(err error, code Code, msg string) *baseError {
	stack := make([]uintptr, 200)
	stackLength := runtime.Callers(3, stack)
	return &baseError{
		msg:   msg,
		code:  code,
		stack: stack[:stackLength],
		inner: err,
	}
}

// Constructs the full error message by traversing all inner errors.  If
// includeStack is true, the stack trace of the deepest Error is appended.
func extractFullErrorMessage(e Error, includeStack bool) string {
	var ok bool
	var lastErr Error
	errMsg := bytes.NewBuffer(make([]byte, 0, 1024))

	cur := e
	for {
		lastErr = cur
		if code := cur.GetCode(); code != NoCode {
			errMsg.WriteString("[")
			errMsg.WriteString(string(code))
			errMsg.WriteString("] ")
		}
		errMsg.WriteString(cur.GetMessage())

		innerErr := cur.GetInner()
		if innerErr == nil {
			break
		}
		cur, ok = innerErr.(Error)
		if !ok {
			errMsg.WriteString("\n")
			errMsg.WriteString(innerErr.Error())
			break
		}
		errMsg.WriteString("\n")
	}
	if includeStack {
		errMsg.WriteString("\nORIGINAL STACK TRACE:\n")
		errMsg.WriteString(lastErr.GetStack())
	}
	return errMsg.String()
}

func unwrapError(err error) error {
	if e, ok := err.(Error); ok {
		return e.GetInner()
	}
	if u, ok := err.(interface{ Unwrap() error }); ok {
		return u.Unwrap()
	}
	return nil
}

// Keep peeling away layers of context until a primitive error is revealed.
func RootError(err error) error {
	for i := 0; i < 20; i++ {
		inner := unwrapError(err)
		if inner == nil {
			return err
		}
		err = inner
	}
	return fmt.Errorf("too many iterations: %T", err)
}
