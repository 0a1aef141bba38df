// Package sqlist provides a persistent list backed by SQLite.
//
// A List[T] behaves like a slice that lives in a database table: values can
// be read and replaced by position, appended, popped, deleted, tested for
// membership, iterated and sorted, while only the requested entries are ever
// held in memory.
//
// # Ordering
//
// Every entry stores an encoded value and an optional ordering key. Logical
// order is ascending by key, with entries of equal key (and NULL keys, which
// sort first) kept in insertion order. Without an ordering function every key
// is NULL and the list is in plain insertion order.
//
//	l, err := sqlist.Open(ctx, sqlist.Config[string]{
//	    Key: func(s string) any { return len(s) },
//	}, "bb", "a", "ccc")
//	// l holds ["a", "bb", "ccc"]
//
// Positions follow the usual conventions: index 0 is the first entry, -1 the
// last. A single index past either end fails with CodeIndexOutOfRange; a
// Range is clamped and never fails.
//
// # Transactions
//
// A List owns one connection and assumes it is the only writer. Each
// structural mutation (Set, Delete, DeleteRange, Pop, Extend, Sort, Rekey,
// Clear) runs in one transaction that is committed on success and rolled
// back on any error, so a failed call changes nothing. Reads run without an
// explicit transaction.
//
// # Sorting
//
// Sort materializes the new order and resets the ordering function to
// natural order. Two strategies are available through Config.Strategy:
// SortRekey (default) ranks all keys in SQLite in one pass; SortExchange
// swaps adjacent payloads in place. Both are stable and both fail with
// CodeNotComparable, leaving the list untouched, when keys of different kinds
// meet.
package sqlist
