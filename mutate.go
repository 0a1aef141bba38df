package sqlist

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/sqlist/internal/store"
)

// Append adds v. Its position follows from its key; in natural order it
// becomes the last entry.
func (l *List[T]) Append(ctx context.Context, v T) error {
	e, err := l.entry("append", v)
	if err != nil {
		return err
	}
	id, err := l.tbl.Insert(ctx, l.st.DB(), e)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	l.log.Debug("append", "id", id)
	return nil
}

// Extend adds values in order as one atomic batch. Entries with equal or
// NULL keys keep the relative order of values.
//
// Keys and payloads are computed concurrently before the transaction opens,
// so a bad value fails the call without touching the table.
func (l *List[T]) Extend(ctx context.Context, values ...T) error {
	if len(values) == 0 {
		return nil
	}

	entries := make([]store.Entry, len(values))
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, v := range values {
		g.Go(func() error {
			e, err := l.entry("extend", v)
			entries[i] = e
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	err := l.atomic(ctx, "extend", func(tx *sql.Tx) error {
		if err := l.tbl.InsertMany(ctx, tx, entries); err != nil {
			return fmt.Errorf("extend: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.log.Debug("extend", "rows", len(entries))
	return nil
}

// Set replaces the value at logical index i and recomputes its key, so with
// an ordering function configured the value may move.
func (l *List[T]) Set(ctx context.Context, i int, v T) error {
	e, err := l.entry("set", v)
	if err != nil {
		return err
	}

	return l.atomic(ctx, "set", func(tx *sql.Tx) error {
		row, err := l.resolve(ctx, tx, "set", i)
		if err != nil {
			return err
		}
		n, err := l.tbl.Update(ctx, tx, row.ID, e)
		if err != nil {
			return fmt.Errorf("set: %w", err)
		}
		if n == 0 {
			return indexError("set", i)
		}
		l.log.Debug("set", "index", i, "id", row.ID)
		return nil
	})
}

// Delete removes the entry at logical index i.
func (l *List[T]) Delete(ctx context.Context, i int) error {
	return l.atomic(ctx, "delete", func(tx *sql.Tx) error {
		row, err := l.resolve(ctx, tx, "delete", i)
		if err != nil {
			return err
		}
		n, err := l.tbl.Delete(ctx, tx, row.ID)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		if n == 0 {
			return indexError("delete", i)
		}
		l.log.Debug("delete", "index", i, "id", row.ID)
		return nil
	})
}

// DeleteRange removes every entry in r and returns how many were removed.
// Like Slice it clamps r and never fails on an empty selection.
func (l *List[T]) DeleteRange(ctx context.Context, r Range) (int, error) {
	var removed int64
	err := l.atomic(ctx, "delete range", func(tx *sql.Tx) error {
		lo, hi, err := l.bounds(ctx, tx, r)
		if err != nil {
			return fmt.Errorf("delete range: %w", err)
		}
		if hi == lo {
			return nil
		}
		removed, err = l.tbl.DeleteRange(ctx, tx, lo, hi-lo)
		if err != nil {
			return fmt.Errorf("delete range: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	l.log.Debug("delete range", "range", r.String(), "rows", removed)
	return int(removed), nil
}

// Pop removes the entry at logical index i and returns its value. Use -1
// for the last entry.
func (l *List[T]) Pop(ctx context.Context, i int) (T, error) {
	var v T
	err := l.atomic(ctx, "pop", func(tx *sql.Tx) error {
		row, err := l.resolve(ctx, tx, "pop", i)
		if err != nil {
			return err
		}
		if v, err = l.decode("pop", row.Value); err != nil {
			return err
		}
		n, err := l.tbl.Delete(ctx, tx, row.ID)
		if err != nil {
			return fmt.Errorf("pop: %w", err)
		}
		if n == 0 {
			return indexError("pop", i)
		}
		l.log.Debug("pop", "index", i, "id", row.ID)
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Clear removes every entry.
func (l *List[T]) Clear(ctx context.Context) error {
	return l.atomic(ctx, "clear", func(tx *sql.Tx) error {
		n, err := l.tbl.Clear(ctx, tx)
		if err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		l.log.Debug("clear", "rows", n)
		return nil
	})
}

// Rekey recomputes every entry's key under fn and installs fn as the
// ordering function. A nil fn clears every key, restoring natural order.
// The whole rewrite is one transaction; on failure neither the keys nor the
// configured function change.
func (l *List[T]) Rekey(ctx context.Context, fn KeyFunc[T]) error {
	var rekeyed int64
	err := l.atomic(ctx, "rekey", func(tx *sql.Tx) error {
		if fn == nil {
			n, err := l.tbl.ClearKeys(ctx, tx)
			if err != nil {
				return fmt.Errorf("rekey: %w", err)
			}
			rekeyed = n
			return nil
		}

		var after int64
		for {
			rows, err := l.tbl.Walk(ctx, tx, after, l.batch)
			if err != nil {
				return fmt.Errorf("rekey: %w", err)
			}
			if len(rows) == 0 {
				return nil
			}
			for _, row := range rows {
				v, err := l.decode("rekey", row.Value)
				if err != nil {
					return err
				}
				k, err := l.computeKey("rekey", fn, v)
				if err != nil {
					return err
				}
				if _, err := l.tbl.SetKey(ctx, tx, row.ID, k); err != nil {
					return fmt.Errorf("rekey: %w", err)
				}
				after = row.ID
				rekeyed++
			}
		}
	})
	if err != nil {
		return err
	}

	l.key = fn
	l.log.Debug("rekey", "rows", rekeyed, "natural", fn == nil)
	return nil
}
