package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Staged is one entry prepared for a ranked reorder: its identity, its
// position in the current logical order, the sort key and the payload.
type Staged struct {
	ID    int64
	Pos   int
	Key   any
	Value []byte
}

// Stager collects staged entries inside a transaction and then rewrites the
// table so that physical order equals the ranked order.
type Stager struct {
	t    *Table
	tx   *sql.Tx
	stmt *sql.Stmt
}

// Stage prepares the scratch tables for a reorder. The scratch tables are
// connection-local TEMP tables and are emptied on every call.
func (t *Table) Stage(ctx context.Context, tx *sql.Tx) (*Stager, error) {
	if _, err := tx.ExecContext(ctx, t.q.stageCreate); err != nil {
		return nil, fmt.Errorf("stage: create scratch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, t.q.stageInsert)
	if err != nil {
		return nil, fmt.Errorf("stage: prepare: %w", err)
	}
	return &Stager{t: t, tx: tx, stmt: stmt}, nil
}

// Add stages one entry.
func (s *Stager) Add(ctx context.Context, e Staged) error {
	if _, err := s.stmt.ExecContext(ctx, e.ID, e.Pos, e.Key, e.Value); err != nil {
		return fmt.Errorf("stage: entry %d: %w", e.ID, err)
	}
	return nil
}

// Apply ranks the staged entries by key (descending when desc is set), with
// ties kept in staged position order, and writes the ranked payloads back onto
// the existing identities in ascending id order. Every key is cleared, so the
// new order is carried by physical identity alone.
// Returns the number of entries rewritten.
func (s *Stager) Apply(ctx context.Context, desc bool) (int64, error) {
	if err := s.stmt.Close(); err != nil {
		return 0, fmt.Errorf("stage: close: %w", err)
	}

	rank := s.t.q.orderFromStage
	if desc {
		rank = s.t.q.orderFromStageDesc
	}
	if _, err := s.tx.ExecContext(ctx, rank); err != nil {
		return 0, fmt.Errorf("stage: rank: %w", err)
	}
	return s.t.applyOrder(ctx, s.tx)
}

// Flatten rewrites payloads so that physical order equals the current
// logical order and clears every key. The visible sequence is unchanged.
func (t *Table) Flatten(ctx context.Context, tx *sql.Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx, t.q.orderCreate); err != nil {
		return 0, fmt.Errorf("flatten: create scratch: %w", err)
	}
	if _, err := tx.ExecContext(ctx, t.q.orderFromTable); err != nil {
		return 0, fmt.Errorf("flatten: rank: %w", err)
	}
	return t.applyOrder(ctx, tx)
}

func (t *Table) applyOrder(ctx context.Context, tx *sql.Tx) (int64, error) {
	n, err := t.exec(ctx, tx, "apply order", t.q.applyOrder)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, t.q.dropScratch); err != nil {
		return 0, fmt.Errorf("apply order: drop scratch: %w", err)
	}
	return n, nil
}
