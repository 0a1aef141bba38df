package sqlist

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes list errors.
type ErrorCode string

const (
	// CodeInvalidArgument indicates unusable configuration or input, reported
	// before any data is touched.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// CodeIndexOutOfRange indicates a position with no entry behind it.
	CodeIndexOutOfRange ErrorCode = "INDEX_OUT_OF_RANGE"

	// CodeNotComparable indicates two values that cannot be ordered.
	CodeNotComparable ErrorCode = "NOT_COMPARABLE"

	// CodeTypeMismatch indicates a selector that is neither an index nor a range.
	CodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// CodeNotFound indicates a value that is not in the list.
	CodeNotFound ErrorCode = "NOT_FOUND"
)

// Sentinels for errors.Is. Any *Error matches the sentinel with the same code.
var (
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument}
	ErrIndexOutOfRange = &Error{Code: CodeIndexOutOfRange}
	ErrNotComparable   = &Error{Code: CodeNotComparable}
	ErrTypeMismatch    = &Error{Code: CodeTypeMismatch}
	ErrNotFound        = &Error{Code: CodeNotFound}
)

// Error is returned by list operations for every failure the list itself
// detects. Storage and codec failures are wrapped with the operation name
// instead.
//
// An operation that fails with an *Error has changed nothing: any open
// transaction was rolled back.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the list operation that failed ("get", "pop", "sort", ...).
	Op string

	// Index is the requested index, for CodeIndexOutOfRange.
	Index int

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// IsIndexError returns true if err is an out-of-range error.
// Uses errors.As to handle wrapped errors.
func IsIndexError(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Code == CodeIndexOutOfRange
}

// IsNotComparable returns true if err reports values that cannot be ordered.
func IsNotComparable(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Code == CodeNotComparable
}

func indexError(op string, index int) *Error {
	return &Error{
		Code:    CodeIndexOutOfRange,
		Op:      op,
		Index:   index,
		Message: fmt.Sprintf("index %d out of range", index),
	}
}

func notComparable(op string, err error) *Error {
	return &Error{
		Code:    CodeNotComparable,
		Op:      op,
		Message: "values not comparable",
		Err:     err,
	}
}

func invalidArgument(op, msg string, err error) *Error {
	return &Error{
		Code:    CodeInvalidArgument,
		Op:      op,
		Message: msg,
		Err:     err,
	}
}
