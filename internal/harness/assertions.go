package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == EventInvocation {
				fmt.Fprintf(&buf, "  [%d] %s %s\n", i+1, event.Op, toJSON(event.Args))
			}
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains an invocation matching
// the specified op and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == EventInvocation && event.Op == assertion.Op && matchArgs(event.Args, assertion.Args) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("op %s with args %s", assertion.Op, toJSON(assertion.Args)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if ops appear in the specified order.
// Ops don't need to be consecutive (intervening ops are allowed); each
// expected op is matched after the previous match.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next == len(assertion.Ops) {
			break
		}
		if event.Type == EventInvocation && event.Op == assertion.Ops[next] {
			next++
		}
	}
	if next == len(assertion.Ops) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("ops in order: %v", assertion.Ops),
		Actual:   fmt.Sprintf("no %s after %v", assertion.Ops[next], assertion.Ops[:next]),
		Trace:    trace,
	}
}

// assertTraceCount checks if the op appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.Op == assertion.Op {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalValues checks the final contents in order.
func assertFinalValues(final []any, assertion Assertion) error {
	if sameJSON(assertion.Values, final) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalValues,
		Expected: toJSON(assertion.Values),
		Actual:   toJSON(final),
	}
}

// assertFinalLen checks the final length.
func assertFinalLen(final []any, assertion Assertion) error {
	if len(final) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalLen,
		Expected: fmt.Sprintf("%d entries", assertion.Count),
		Actual:   fmt.Sprintf("%d entries", len(final)),
	}
}

// matchArgs checks if actual args contain all expected args (subset match).
// Extra keys in actual are ignored.
func matchArgs(actual, expected map[string]any) bool {
	for key, expectedVal := range expected {
		actualVal, exists := actual[key]
		if !exists || !sameJSON(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalValues:
			err = assertFinalValues(result.Final, assertion)
		case AssertFinalLen:
			err = assertFinalLen(result.Final, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
