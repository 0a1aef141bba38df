package sqlist

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/sqlist/internal/store"
)

// SortOptions controls a Sort.
type SortOptions[T any] struct {
	// Key derives the comparison value. Nil compares the values themselves.
	Key KeyFunc[T]

	// Reverse sorts descending. Equal elements keep their relative order
	// either way.
	Reverse bool
}

// Sort reorders the list in place, stably, by the key in opts.
//
// The result is materialized: payloads move between physical identities and
// every stored key is cleared. Afterwards the configured ordering function
// is nil, so later Append and Set calls keep natural order rather than
// re-deriving a stale one.
//
// Values whose keys cannot be ordered against each other fail the sort with
// CodeNotComparable and leave the list exactly as it was.
func (l *List[T]) Sort(ctx context.Context, opts SortOptions[T]) error {
	var err error
	switch l.strategy {
	case SortExchange:
		err = l.sortExchange(ctx, opts)
	default:
		err = l.sortRekey(ctx, opts)
	}
	if err != nil {
		return err
	}
	l.key = nil
	return nil
}

// sortRekey stages every entry with its sort key and current position, then
// has SQLite rank them and rewrites payloads in ranked order.
func (l *List[T]) sortRekey(ctx context.Context, opts SortOptions[T]) error {
	var rewritten int64
	err := l.atomic(ctx, "sort", func(tx *sql.Tx) error {
		n, err := l.tbl.Count(ctx, tx)
		if err != nil {
			return fmt.Errorf("sort: %w", err)
		}

		stage, err := l.tbl.Stage(ctx, tx)
		if err != nil {
			return fmt.Errorf("sort: %w", err)
		}

		// SQLite orders across storage classes without complaint; require
		// one class for all non-NULL keys.
		var first any
		for off := 0; off < n; off += l.batch {
			rows, err := l.tbl.Range(ctx, tx, off, l.batch)
			if err != nil {
				return fmt.Errorf("sort: %w", err)
			}
			for j, row := range rows {
				v, err := l.decode("sort", row.Value)
				if err != nil {
					return err
				}
				k, err := sortKey(opts.Key, v)
				if err != nil {
					return err
				}
				if k != nil {
					if first == nil {
						first = k
					} else if _, err := compareKeys(first, k); err != nil {
						return notComparable("sort", err)
					}
				}
				if err := stage.Add(ctx, store.Staged{ID: row.ID, Pos: off + j, Key: k, Value: row.Value}); err != nil {
					return fmt.Errorf("sort: %w", err)
				}
			}
		}

		rewritten, err = stage.Apply(ctx, opts.Reverse)
		if err != nil {
			return fmt.Errorf("sort: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.log.Debug("sort", "strategy", SortRekey.String(), "reverse", opts.Reverse, "rows", rewritten)
	return nil
}

// sortExchange is a gnome sort over physical order: compare the pair at the
// cursor, swap payloads and step back when out of order, step forward
// otherwise. It finishes when the cursor runs off the end.
func (l *List[T]) sortExchange(ctx context.Context, opts SortOptions[T]) error {
	var swaps int
	err := l.atomic(ctx, "sort", func(tx *sql.Tx) error {
		// Move the current logical order into physical order so that ties
		// stay where the caller saw them.
		if _, err := l.tbl.Flatten(ctx, tx); err != nil {
			return fmt.Errorf("sort: %w", err)
		}

		pos := 0
		for {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("sort: %w", err)
			}

			rows, err := l.tbl.Physical(ctx, tx, pos, 2)
			if err != nil {
				return fmt.Errorf("sort: %w", err)
			}
			if len(rows) < 2 {
				return nil
			}

			swap, err := l.outOfOrder(opts, rows[0], rows[1])
			if err != nil {
				return err
			}
			if !swap {
				pos++
				continue
			}

			if _, err := l.tbl.Update(ctx, tx, rows[0].ID, store.Entry{Value: rows[1].Value}); err != nil {
				return fmt.Errorf("sort: %w", err)
			}
			if _, err := l.tbl.Update(ctx, tx, rows[1].ID, store.Entry{Value: rows[0].Value}); err != nil {
				return fmt.Errorf("sort: %w", err)
			}
			swaps++
			if pos > 0 {
				pos--
			}
		}
	})
	if err != nil {
		return err
	}

	l.log.Debug("sort", "strategy", SortExchange.String(), "reverse", opts.Reverse, "swaps", swaps)
	return nil
}

// outOfOrder reports whether a must move after b.
func (l *List[T]) outOfOrder(opts SortOptions[T], a, b store.Row) (bool, error) {
	va, err := l.decode("sort", a.Value)
	if err != nil {
		return false, err
	}
	vb, err := l.decode("sort", b.Value)
	if err != nil {
		return false, err
	}
	ka, err := sortKey(opts.Key, va)
	if err != nil {
		return false, err
	}
	kb, err := sortKey(opts.Key, vb)
	if err != nil {
		return false, err
	}

	c, err := compareKeys(ka, kb)
	if err != nil {
		return false, notComparable("sort", err)
	}
	if opts.Reverse {
		return c < 0, nil
	}
	return c > 0, nil
}
