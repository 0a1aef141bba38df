package store

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"text/template"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

var schemaTmpl = template.Must(template.New("schema").Parse(schemaSQL))

// MemoryPath is the path that selects a private in-memory database.
const MemoryPath = ":memory:"

// DefaultTable is the table used when none is configured.
const DefaultTable = "data"

// ErrInvalidTable is returned for table names that are not plain SQL identifiers.
var ErrInvalidTable = errors.New("invalid table name")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Querier is the subset of *sql.DB and *sql.Tx used by Table.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides durable storage for persistent lists.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
// An empty path or MemoryPath opens a private in-memory database.
//
// The database is configured with:
//   - WAL mode for file-backed databases
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times on one path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = MemoryPath
	}

	// Open database (creates file if doesn't exist)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, and an in-memory database
	// disappears with its connection, so pin exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.applyPragmas(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Table methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// InMemory reports whether the store has no backing file.
func (s *Store) InMemory() bool {
	return s.path == MemoryPath
}

// Begin starts a transaction on the store's single connection.
// Callers must either Commit or Rollback; deferring Rollback is always safe.
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

// Table creates the list table called name if it does not exist yet and
// returns a handle to it. With drop set, any existing table of that name is
// removed first.
func (s *Store) Table(ctx context.Context, name string, drop bool) (*Table, error) {
	if name == "" {
		name = DefaultTable
	}
	if !ValidTableName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // No-op if committed

	if drop {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, name)); err != nil {
			return nil, fmt.Errorf("drop table %s: %w", name, err)
		}
	}

	var buf bytes.Buffer
	if err := schemaTmpl.Execute(&buf, struct{ Table string }{name}); err != nil {
		return nil, fmt.Errorf("render schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, buf.String()); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create table %s: commit: %w", name, err)
	}

	return newTable(name), nil
}

// ValidTableName reports whether name can be used as a list table.
func ValidTableName(name string) bool {
	return identRe.MatchString(name)
}

// applyPragmas sets required SQLite configuration.
func (s *Store) applyPragmas() error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	if !s.InMemory() {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
