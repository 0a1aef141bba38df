package sqlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/sqlist/codec"
	"github.com/roach88/sqlist/internal/store"
)

// DefaultBatchSize is the page size for iteration, rekeying and sorting.
const DefaultBatchSize = 256

// reprLimit is how many values String and Format show.
const reprLimit = 20

// SortStrategy selects how Sort reorders the stored entries.
type SortStrategy int

const (
	// SortRekey computes every sort key once, lets SQLite rank them and
	// rewrites the payloads in ranked order. O(n log n).
	SortRekey SortStrategy = iota

	// SortExchange repeatedly swaps physically adjacent out-of-order
	// payloads. O(n²) queries; useful for small lists.
	SortExchange
)

// String returns the strategy name used in configuration files.
func (s SortStrategy) String() string {
	switch s {
	case SortRekey:
		return "rekey"
	case SortExchange:
		return "exchange"
	default:
		return "SortStrategy(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseSortStrategy maps a configuration name to a SortStrategy.
// The empty name selects SortRekey.
func ParseSortStrategy(name string) (SortStrategy, error) {
	switch name {
	case "", "rekey":
		return SortRekey, nil
	case "exchange":
		return SortExchange, nil
	default:
		return 0, invalidArgument("config", fmt.Sprintf("unknown sort strategy %q", name), nil)
	}
}

// Config configures a List. The zero value is an in-memory list in natural
// order using the default codec.
type Config[T any] struct {
	// Path of the database file. Empty or ":memory:" keeps the list in memory.
	Path string

	// Table holds the entries. Defaults to "data".
	Table string

	// Key is the ordering function applied on insert and replace.
	// Nil keeps natural (insertion) order.
	Key KeyFunc[T]

	// Codec encodes values. Defaults to codec.Default.
	Codec codec.Codec

	// KeepExisting reuses an existing table of the same name instead of
	// dropping it.
	KeepExisting bool

	// AutoRemove deletes the database file on Close.
	AutoRemove bool

	// Strategy selects the Sort implementation.
	Strategy SortStrategy

	// HeadScan resolves negative indexes by counting and scanning from the
	// head instead of scanning backwards from the tail. Both give the same
	// entry; the tail scan skips the count.
	HeadScan bool

	// BatchSize is the page size for iteration and bulk rewrites.
	BatchSize int

	// Logger receives debug events. Defaults to slog.Default().
	Logger *slog.Logger
}

// TempConfig places the database file of a temporary list.
type TempConfig struct {
	// Dir defaults to os.TempDir().
	Dir    string
	Prefix string
	Suffix string

	// Keep leaves the file behind on Close.
	Keep bool
}

// List is a persistent, ordered, randomly indexable sequence of T stored in
// one SQLite table.
//
// A List owns a single database connection and is not safe for concurrent
// use; callers serialize access. Every mutation runs in its own transaction
// and is either fully applied or not at all.
type List[T any] struct {
	st    *store.Store
	tbl   *store.Table
	codec codec.Codec
	log   *slog.Logger

	key        KeyFunc[T]
	strategy   SortStrategy
	headScan   bool
	batch      int
	autoRemove bool
}

// Open opens (or creates) the list described by cfg and appends values to it.
//
// Configuration errors are reported as CodeInvalidArgument before the
// database is touched.
func Open[T any](ctx context.Context, cfg Config[T], values ...T) (*List[T], error) {
	if cfg.Table == "" {
		cfg.Table = store.DefaultTable
	}
	if !store.ValidTableName(cfg.Table) {
		return nil, invalidArgument("open", fmt.Sprintf("invalid table name %q", cfg.Table), nil)
	}
	if cfg.BatchSize < 0 {
		return nil, invalidArgument("open", fmt.Sprintf("batch size %d", cfg.BatchSize), nil)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Strategy != SortRekey && cfg.Strategy != SortExchange {
		return nil, invalidArgument("open", "unknown sort strategy "+cfg.Strategy.String(), nil)
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.Default
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	st, err := store.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	tbl, err := st.Table(ctx, cfg.Table, !cfg.KeepExisting)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open: %w", err)
	}

	l := &List[T]{
		st:         st,
		tbl:        tbl,
		codec:      cfg.Codec,
		log:        cfg.Logger.With("table", cfg.Table),
		key:        cfg.Key,
		strategy:   cfg.Strategy,
		headScan:   cfg.HeadScan,
		batch:      cfg.BatchSize,
		autoRemove: cfg.AutoRemove,
	}

	if len(values) > 0 {
		if err := l.Extend(ctx, values...); err != nil {
			l.Close()
			return nil, err
		}
	}

	l.log.Debug("list opened", "path", st.Path(), "codec", l.codec.Name(), "values", len(values))
	return l, nil
}

// Temp opens a list on a new, uniquely named file. Unless tc.Keep is set the
// file is removed on Close. cfg.Path and cfg.AutoRemove are overridden.
func Temp[T any](ctx context.Context, tc TempConfig, cfg Config[T], values ...T) (*List[T], error) {
	dir := tc.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, tc.Prefix+uuid.NewString()+tc.Suffix)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("temp: %w", err)
	}
	f.Close()

	cfg.Path = path
	cfg.AutoRemove = !tc.Keep
	l, err := Open(ctx, cfg, values...)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return l, nil
}

// Close releases the database connection and, with AutoRemove, deletes the
// database file.
func (l *List[T]) Close() error {
	err := l.st.Close()
	if l.autoRemove && !l.st.InMemory() {
		for _, p := range []string{l.st.Path(), l.st.Path() + "-wal", l.st.Path() + "-shm"} {
			if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
				err = rmErr
			}
		}
	}
	l.log.Debug("list closed", "removed", l.autoRemove)
	return err
}

// Path returns the database path (":memory:" for in-memory lists).
func (l *List[T]) Path() string {
	return l.st.Path()
}

// Codec returns the value codec.
func (l *List[T]) Codec() codec.Codec {
	return l.codec
}

// HasKey reports whether an ordering function is configured.
func (l *List[T]) HasKey() bool {
	return l.key != nil
}

// Len returns the number of entries.
func (l *List[T]) Len(ctx context.Context) (int, error) {
	n, err := l.tbl.Count(ctx, l.st.DB())
	if err != nil {
		return 0, fmt.Errorf("len: %w", err)
	}
	return n, nil
}

// Get returns the value at logical index i. Negative indexes count from the
// end. Fails with CodeIndexOutOfRange when there is no such entry.
func (l *List[T]) Get(ctx context.Context, i int) (T, error) {
	var zero T
	row, err := l.resolve(ctx, l.st.DB(), "get", i)
	if err != nil {
		return zero, err
	}
	return l.decode("get", row.Value)
}

// Slice returns the values in r. Out-of-range bounds are clamped; a range
// that selects nothing yields an empty slice, never an error.
func (l *List[T]) Slice(ctx context.Context, r Range) ([]T, error) {
	db := l.st.DB()
	lo, hi, err := l.bounds(ctx, db, r)
	if err != nil {
		return nil, fmt.Errorf("slice: %w", err)
	}

	out := make([]T, 0, hi-lo)
	if hi == lo {
		return out, nil
	}
	rows, err := l.tbl.Range(ctx, db, lo, hi-lo)
	if err != nil {
		return nil, fmt.Errorf("slice: %w", err)
	}
	for _, row := range rows {
		v, err := l.decode("slice", row.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Contains reports whether some entry's payload equals the encoding of v.
// This is a linear scan.
func (l *List[T]) Contains(ctx context.Context, v T) (bool, error) {
	data, err := l.encode("contains", v)
	if err != nil {
		return false, err
	}
	ok, err := l.tbl.Contains(ctx, l.st.DB(), data)
	if err != nil {
		return false, fmt.Errorf("contains: %w", err)
	}
	return ok, nil
}

// Index returns the logical index of the first entry equal to v.
// Fails with CodeNotFound when v is not in the list.
func (l *List[T]) Index(ctx context.Context, v T) (int, error) {
	data, err := l.encode("index", v)
	if err != nil {
		return 0, err
	}
	pos, err := l.tbl.Position(ctx, l.st.DB(), data)
	if errors.Is(err, store.ErrNoRow) {
		return 0, &Error{Code: CodeNotFound, Op: "index", Message: "value not in list"}
	}
	if err != nil {
		return 0, fmt.Errorf("index: %w", err)
	}
	return pos, nil
}

// String renders up to the first 20 values, for debugging.
func (l *List[T]) String() string {
	s, err := l.Format(context.Background())
	if err != nil {
		return "sqlist.List(<" + err.Error() + ">)"
	}
	return s
}

// Format renders up to the first 20 values; longer lists end in "...".
func (l *List[T]) Format(ctx context.Context) (string, error) {
	n, err := l.Len(ctx)
	if err != nil {
		return "", err
	}
	vals, err := l.Slice(ctx, To(reprLimit))
	if err != nil {
		return "", err
	}

	parts := make([]string, len(vals))
	for i, v := range vals {
		if s, ok := any(v).(string); ok {
			parts[i] = strconv.Quote(s)
		} else {
			parts[i] = fmt.Sprintf("%v", v)
		}
	}

	var b strings.Builder
	b.WriteString("sqlist.List([")
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString("]")
	if n > reprLimit {
		b.WriteString("...")
	}
	b.WriteString(")")
	return b.String(), nil
}

func (l *List[T]) encode(op string, v T) ([]byte, error) {
	data, err := l.codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s: encode: %w", op, err)
	}
	return data, nil
}

func (l *List[T]) decode(op string, data []byte) (T, error) {
	var v T
	if err := l.codec.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%s: decode: %w", op, err)
	}
	return v, nil
}

// entry builds the stored form of v: its key under the configured ordering
// function and its payload.
func (l *List[T]) entry(op string, v T) (store.Entry, error) {
	k, err := l.computeKey(op, l.key, v)
	if err != nil {
		return store.Entry{}, err
	}
	data, err := l.encode(op, v)
	if err != nil {
		return store.Entry{}, err
	}
	return store.Entry{Key: k, Value: data}, nil
}

// atomic runs fn in a transaction: commit when fn succeeds, rollback on any
// error including list errors.
func (l *List[T]) atomic(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := l.st.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}
