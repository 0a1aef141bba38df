package sqlist

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/sqlist/internal/store"
)

// Range selects the half-open span [Start, Stop) of logical positions.
// Negative bounds count from the end and out-of-range bounds are clamped,
// as with slices in most dynamic languages. The step is always 1.
type Range struct {
	start, stop       int
	hasStart, hasStop bool
}

// All selects every entry.
func All() Range { return Range{} }

// From selects entries from start to the end.
func From(start int) Range { return Range{start: start, hasStart: true} }

// To selects entries from the beginning up to, not including, stop.
func To(stop int) Range { return Range{stop: stop, hasStop: true} }

// Span selects entries from start up to, not including, stop.
func Span(start, stop int) Range {
	return Range{start: start, stop: stop, hasStart: true, hasStop: true}
}

// Bounds clamps r against a list of length n and returns the offsets
// [lo, hi) it covers, with lo <= hi.
func (r Range) Bounds(n int) (lo, hi int) {
	clamp := func(x int) int {
		if x < 0 {
			x += n
			if x < 0 {
				x = 0
			}
		} else if x > n {
			x = n
		}
		return x
	}

	lo, hi = 0, n
	if r.hasStart {
		lo = clamp(r.start)
	}
	if r.hasStop {
		hi = clamp(r.stop)
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// String renders r in "start:stop" form with open ends left empty.
func (r Range) String() string {
	var b strings.Builder
	if r.hasStart {
		b.WriteString(strconv.Itoa(r.start))
	}
	b.WriteByte(':')
	if r.hasStop {
		b.WriteString(strconv.Itoa(r.stop))
	}
	return b.String()
}

// Selector is a parsed position: a single index or a Range.
type Selector struct {
	Index   int
	Range   Range
	IsRange bool
}

// ParseSelector parses "3", "-1", "1:3", ":2", "2:" or ":".
// Anything else fails with CodeTypeMismatch.
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	mismatch := func(err error) error {
		return &Error{
			Code:    CodeTypeMismatch,
			Op:      "parse",
			Message: fmt.Sprintf("%q is neither an index nor a range", s),
			Err:     err,
		}
	}

	startText, stopText, isRange := strings.Cut(s, ":")
	if !isRange {
		i, err := strconv.Atoi(s)
		if err != nil {
			return Selector{}, mismatch(err)
		}
		return Selector{Index: i}, nil
	}
	if strings.Contains(stopText, ":") {
		return Selector{}, mismatch(errors.New("ranges take no step"))
	}

	var r Range
	if startText = strings.TrimSpace(startText); startText != "" {
		i, err := strconv.Atoi(startText)
		if err != nil {
			return Selector{}, mismatch(err)
		}
		r.start, r.hasStart = i, true
	}
	if stopText = strings.TrimSpace(stopText); stopText != "" {
		i, err := strconv.Atoi(stopText)
		if err != nil {
			return Selector{}, mismatch(err)
		}
		r.stop, r.hasStop = i, true
	}
	return Selector{Range: r, IsRange: true}, nil
}

// resolve finds the entry at logical index i. The lookup is read-only and
// must run on the same Querier as any write that depends on it.
//
// Non-negative indexes scan ascending from the head. Negative indexes scan
// descending from the tail with offset -i-1, or with HeadScan set, count the
// entries and scan ascending from n+i. Both address the same entry.
func (l *List[T]) resolve(ctx context.Context, q store.Querier, op string, i int) (store.Row, error) {
	var (
		row store.Row
		err error
	)

	switch {
	case i >= 0:
		row, err = l.tbl.At(ctx, q, i, false)
	case !l.headScan:
		row, err = l.tbl.At(ctx, q, -i-1, true)
	default:
		n, cerr := l.tbl.Count(ctx, q)
		if cerr != nil {
			return store.Row{}, fmt.Errorf("%s: %w", op, cerr)
		}
		if n+i < 0 {
			return store.Row{}, indexError(op, i)
		}
		row, err = l.tbl.At(ctx, q, n+i, false)
	}

	if errors.Is(err, store.ErrNoRow) {
		return store.Row{}, indexError(op, i)
	}
	if err != nil {
		return store.Row{}, fmt.Errorf("%s: %w", op, err)
	}
	return row, nil
}

// bounds clamps r against the current length.
func (l *List[T]) bounds(ctx context.Context, q store.Querier, r Range) (lo, hi int, err error) {
	n, err := l.tbl.Count(ctx, q)
	if err != nil {
		return 0, 0, err
	}
	lo, hi = r.Bounds(n)
	return lo, hi, nil
}
