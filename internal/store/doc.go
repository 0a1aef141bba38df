// Package store provides the SQLite storage engine behind a persistent list.
//
// A Store owns exactly one database connection. Each list lives in one table
// of that database:
//
//	id    INTEGER PRIMARY KEY AUTOINCREMENT  -- physical identity, never reused
//	key   (any storage class, nullable)      -- ordering value
//	value BLOB NOT NULL                      -- encoded payload
//
// plus a non-unique index on key. The index is an access path for ordered
// scans, not a constraint.
//
// # Ordering
//
// Logical order is always ORDER BY key ASC, id ASC. NULL keys sort first,
// which is SQLite's native behaviour and part of the contract. Entries that
// share a key keep insertion order through the id tie-break.
//
// # Database Configuration
//
//   - journal_mode=WAL for file-backed stores (in-memory stores keep MEMORY)
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - MaxOpenConns=1: single writer, and an in-memory database lives only as
//     long as its one connection
//
// Every Table method takes a Querier so the same query can run directly on the
// database or inside a transaction. While a transaction is open the single
// connection belongs to it; callers must route every query of that operation
// through the *sql.Tx.
package store
