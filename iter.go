package sqlist

import (
	"context"
	"iter"
	"reflect"
)

// Values iterates the list in logical order, one page of BatchSize entries
// per query. Every call starts a fresh scan.
//
// Mutating the list while iterating is not supported: pages are addressed by
// offset, so entries inserted or removed mid-iteration may be skipped or seen
// twice. The first error is yielded with a zero value and ends the iteration.
func (l *List[T]) Values(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for off := 0; ; off += l.batch {
			rows, err := l.tbl.Range(ctx, l.st.DB(), off, l.batch)
			if err != nil {
				yield(zero, err)
				return
			}
			for _, row := range rows {
				v, err := l.decode("iterate", row.Value)
				if !yield(v, err) || err != nil {
					return
				}
			}
			if len(rows) < l.batch {
				return
			}
		}
	}
}

// ToSlice returns every value in logical order.
func (l *List[T]) ToSlice(ctx context.Context) ([]T, error) {
	out := []T{}
	for v, err := range l.Values(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Equal reports whether the list holds exactly other, in order. Values are
// compared decoded, with reflect.DeepEqual; the scan stops at the first
// difference.
func (l *List[T]) Equal(ctx context.Context, other []T) (bool, error) {
	n, err := l.Len(ctx)
	if err != nil {
		return false, err
	}
	if n != len(other) {
		return false, nil
	}

	i := 0
	for v, err := range l.Values(ctx) {
		if err != nil {
			return false, err
		}
		if i >= len(other) || !reflect.DeepEqual(v, other[i]) {
			return false, nil
		}
		i++
	}
	return i == len(other), nil
}
