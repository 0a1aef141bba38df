package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNoRow is returned when a positional lookup finds no entry.
var ErrNoRow = errors.New("no row at position")

// Row is one stored entry: its physical identity and encoded payload.
type Row struct {
	ID    int64
	Value []byte
}

// Entry is an entry to insert: ordering key (nil for NULL) and payload.
type Entry struct {
	Key   any
	Value []byte
}

// Table addresses one list table. All queries are pre-rendered for its name.
type Table struct {
	name string
	q    queries
}

type queries struct {
	count, at, atDesc, rangeAsc, physical        string
	insert, update, setKey, remove, removeRange string
	clear, clearKeys, contains, position        string
	walk                                        string
	stageCreate, stageInsert, orderCreate       string
	orderFromStage, orderFromStageDesc          string
	orderFromTable, applyOrder, dropScratch     string
}

func newTable(name string) *Table {
	t := fmt.Sprintf("%q", name)
	stage := fmt.Sprintf("temp.%q", name+"_stage")
	order := fmt.Sprintf("temp.%q", name+"_order")

	orderFrom := func(source, rank string) string {
		return fmt.Sprintf(`
			INSERT INTO %[1]s (id, value)
			SELECT slot.id, ranked.value
			FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY id ASC) AS n FROM %[2]s) AS slot
			JOIN (SELECT value, ROW_NUMBER() OVER (ORDER BY %[3]s) AS n FROM %[2]s) AS ranked
			ON slot.n = ranked.n
		`, order, source, rank)
	}

	return &Table{
		name: name,
		q: queries{
			count:       fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t),
			at:          fmt.Sprintf(`SELECT id, value FROM %s ORDER BY "key" ASC, id ASC LIMIT 1 OFFSET ?`, t),
			atDesc:      fmt.Sprintf(`SELECT id, value FROM %s ORDER BY "key" DESC, id DESC LIMIT 1 OFFSET ?`, t),
			rangeAsc:    fmt.Sprintf(`SELECT id, value FROM %s ORDER BY "key" ASC, id ASC LIMIT ? OFFSET ?`, t),
			physical:    fmt.Sprintf(`SELECT id, value FROM %s ORDER BY id ASC LIMIT ? OFFSET ?`, t),
			walk:        fmt.Sprintf(`SELECT id, value FROM %s WHERE id > ? ORDER BY id ASC LIMIT ?`, t),
			insert:      fmt.Sprintf(`INSERT INTO %s ("key", value) VALUES (?, ?)`, t),
			update:      fmt.Sprintf(`UPDATE %s SET "key" = ?, value = ? WHERE id = ?`, t),
			setKey:      fmt.Sprintf(`UPDATE %s SET "key" = ? WHERE id = ?`, t),
			remove:      fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t),
			removeRange: fmt.Sprintf(`DELETE FROM %[1]s WHERE id IN (SELECT id FROM %[1]s ORDER BY "key" ASC, id ASC LIMIT ? OFFSET ?)`, t),
			clear:       fmt.Sprintf(`DELETE FROM %s`, t),
			clearKeys:   fmt.Sprintf(`UPDATE %s SET "key" = NULL WHERE "key" IS NOT NULL`, t),
			contains:    fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE value = ?)`, t),
			position: fmt.Sprintf(`
				SELECT pos FROM (
					SELECT value, ROW_NUMBER() OVER (ORDER BY "key" ASC, id ASC) - 1 AS pos FROM %s
				) WHERE value = ? ORDER BY pos ASC LIMIT 1
			`, t),

			stageCreate: fmt.Sprintf(`
				CREATE TEMP TABLE IF NOT EXISTS %[1]q (
					id    INTEGER PRIMARY KEY,
					pos   INTEGER NOT NULL,
					k,
					value BLOB NOT NULL
				);
				CREATE TEMP TABLE IF NOT EXISTS %[2]q (
					id    INTEGER PRIMARY KEY,
					value BLOB NOT NULL
				);
				DELETE FROM %[3]s;
				DELETE FROM %[4]s;
			`, name+"_stage", name+"_order", stage, order),
			stageInsert:        fmt.Sprintf(`INSERT INTO %s (id, pos, k, value) VALUES (?, ?, ?, ?)`, stage),
			orderCreate:        fmt.Sprintf(`CREATE TEMP TABLE IF NOT EXISTS %q (id INTEGER PRIMARY KEY, value BLOB NOT NULL); DELETE FROM %s;`, name+"_order", order),
			orderFromStage:     orderFrom(stage, `k ASC, pos ASC`),
			orderFromStageDesc: orderFrom(stage, `k DESC, pos ASC`),
			orderFromTable:     orderFrom(t, `"key" ASC, id ASC`),
			applyOrder: fmt.Sprintf(`
				UPDATE %[1]s SET "key" = NULL, value = (SELECT o.value FROM %[2]s AS o WHERE o.id = %[1]s.id)
				WHERE id IN (SELECT id FROM %[2]s)
			`, t, order),
			dropScratch: fmt.Sprintf(`DROP TABLE IF EXISTS %s; DROP TABLE IF EXISTS %s;`, stage, order),
		},
	}
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Count returns the number of entries.
func (t *Table) Count(ctx context.Context, q Querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, t.q.count).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// At returns the entry at offset in logical order. With desc set the scan
// runs from the tail: offset 0 is the last entry.
// Returns ErrNoRow when offset is past the end.
func (t *Table) At(ctx context.Context, q Querier, offset int, desc bool) (Row, error) {
	query := t.q.at
	if desc {
		query = t.q.atDesc
	}

	var r Row
	err := q.QueryRowContext(ctx, query, offset).Scan(&r.ID, &r.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, ErrNoRow
	}
	if err != nil {
		return Row{}, fmt.Errorf("select at %d: %w", offset, err)
	}
	return r, nil
}

// Range returns up to limit entries starting at offset in logical order.
// Returns an empty slice (not nil) when nothing matches.
func (t *Table) Range(ctx context.Context, q Querier, offset, limit int) ([]Row, error) {
	return t.collect(ctx, q, t.q.rangeAsc, limit, offset)
}

// Physical returns up to limit entries starting at offset in physical
// (id) order.
func (t *Table) Physical(ctx context.Context, q Querier, offset, limit int) ([]Row, error) {
	return t.collect(ctx, q, t.q.physical, limit, offset)
}

// Walk returns up to limit entries with id greater than after, in id order.
// Unlike offset paging it stays correct while keys are being rewritten.
func (t *Table) Walk(ctx context.Context, q Querier, after int64, limit int) ([]Row, error) {
	return t.collect(ctx, q, t.q.walk, after, limit)
}

func (t *Table) collect(ctx context.Context, q Querier, query string, args ...any) ([]Row, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Insert adds one entry and returns its physical identity.
func (t *Table) Insert(ctx context.Context, q Querier, e Entry) (int64, error) {
	res, err := q.ExecContext(ctx, t.q.insert, e.Key, e.Value)
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert: last insert id: %w", err)
	}
	return id, nil
}

// InsertMany adds entries in order with one prepared statement, so their
// physical identities ascend in slice order.
func (t *Table) InsertMany(ctx context.Context, tx *sql.Tx, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, t.q.insert)
	if err != nil {
		return fmt.Errorf("insert many: prepare: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Key, e.Value); err != nil {
			return fmt.Errorf("insert many: entry %d: %w", i, err)
		}
	}
	return nil
}

// Update replaces key and payload of the entry with the given id.
// Returns the number of rows affected (0 or 1).
func (t *Table) Update(ctx context.Context, q Querier, id int64, e Entry) (int64, error) {
	return t.exec(ctx, q, "update", t.q.update, e.Key, e.Value, id)
}

// SetKey replaces the ordering key of the entry with the given id.
func (t *Table) SetKey(ctx context.Context, q Querier, id int64, key any) (int64, error) {
	return t.exec(ctx, q, "set key", t.q.setKey, key, id)
}

// Delete removes the entry with the given id.
// Returns the number of rows affected (0 or 1).
func (t *Table) Delete(ctx context.Context, q Querier, id int64) (int64, error) {
	return t.exec(ctx, q, "delete", t.q.remove, id)
}

// DeleteRange removes up to limit entries starting at offset in logical order.
func (t *Table) DeleteRange(ctx context.Context, q Querier, offset, limit int) (int64, error) {
	return t.exec(ctx, q, "delete range", t.q.removeRange, limit, offset)
}

// Clear removes every entry.
func (t *Table) Clear(ctx context.Context, q Querier) (int64, error) {
	return t.exec(ctx, q, "clear", t.q.clear)
}

// ClearKeys sets every ordering key to NULL, making physical order the
// logical order.
func (t *Table) ClearKeys(ctx context.Context, q Querier) (int64, error) {
	return t.exec(ctx, q, "clear keys", t.q.clearKeys)
}

func (t *Table) exec(ctx context.Context, q Querier, op, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}

// Contains reports whether any entry has exactly this payload.
// This is a linear scan; the key index does not help.
func (t *Table) Contains(ctx context.Context, q Querier, value []byte) (bool, error) {
	var found bool
	if err := q.QueryRowContext(ctx, t.q.contains, value).Scan(&found); err != nil {
		return false, fmt.Errorf("contains: %w", err)
	}
	return found, nil
}

// Position returns the logical position of the first entry with exactly
// this payload. Returns ErrNoRow when there is none.
func (t *Table) Position(ctx context.Context, q Querier, value []byte) (int, error) {
	var pos int
	err := q.QueryRowContext(ctx, t.q.position, value).Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoRow
	}
	if err != nil {
		return 0, fmt.Errorf("position: %w", err)
	}
	return pos, nil
}
