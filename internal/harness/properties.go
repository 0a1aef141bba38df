package harness

import (
	"context"
	"fmt"

	"github.com/roach88/sqlist"
)

// Property names accepted in a scenario's properties list.
const (
	PropNegativeIndex  = "negative_index"
	PropContainsAll    = "contains_all"
	PropIndexFirst     = "index_first"
	PropLenMatchesIter = "len_matches_iter"
)

type property func(ctx context.Context, l *sqlist.List[any], values []any) error

var properties = map[string]property{
	PropNegativeIndex:  negativeIndex,
	PropContainsAll:    containsAll,
	PropIndexFirst:     indexFirst,
	PropLenMatchesIter: lenMatchesIter,
}

// checkProperty evaluates the named invariant against the list.
func checkProperty(ctx context.Context, name string, l *sqlist.List[any]) error {
	p, ok := properties[name]
	if !ok {
		return fmt.Errorf("unknown property %q", name)
	}
	values, err := l.ToSlice(ctx)
	if err != nil {
		return err
	}
	return p(ctx, l, values)
}

// negativeIndex: Get(i-n) equals Get(i) for every i, and both ends are
// bounded by out-of-range errors.
func negativeIndex(ctx context.Context, l *sqlist.List[any], values []any) error {
	n := len(values)
	for i := range values {
		v, err := l.Get(ctx, i-n)
		if err != nil {
			return fmt.Errorf("get(%d): %w", i-n, err)
		}
		if !sameJSON(v, values[i]) {
			return fmt.Errorf("get(%d) = %s, get(%d) = %s", i-n, toJSON(v), i, toJSON(values[i]))
		}
	}
	for _, i := range []int{n, -n - 1} {
		if _, err := l.Get(ctx, i); !sqlist.IsIndexError(err) {
			return fmt.Errorf("get(%d): expected index error, got %v", i, err)
		}
	}
	return nil
}

// containsAll: every value in the list is reported as contained.
func containsAll(ctx context.Context, l *sqlist.List[any], values []any) error {
	for i, v := range values {
		ok, err := l.Contains(ctx, v)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("contains(%s) = false for entry %d", toJSON(v), i)
		}
	}
	return nil
}

// indexFirst: Index returns the first position holding an equal value.
func indexFirst(ctx context.Context, l *sqlist.List[any], values []any) error {
	for i, v := range values {
		got, err := l.Index(ctx, v)
		if err != nil {
			return err
		}
		if got > i || !sameJSON(values[got], v) {
			return fmt.Errorf("index(%s) = %d, entry %d holds it", toJSON(v), got, i)
		}
	}
	return nil
}

// lenMatchesIter: Len agrees with the number of iterated values.
func lenMatchesIter(ctx context.Context, l *sqlist.List[any], values []any) error {
	n, err := l.Len(ctx)
	if err != nil {
		return err
	}
	if n != len(values) {
		return fmt.Errorf("len = %d, iterated %d", n, len(values))
	}
	return nil
}
