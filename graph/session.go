package graph

import "context"

// BatchKind selects which batch mode a Session.Batch call uses. The column
// store forbids mixing counter and non-counter mutations in one batch, so the
// two kinds are always issued separately.
type BatchKind int

const (
	// LoggedBatch gives atomic, all-or-nothing semantics across statements in
	// the same partition. Unused by the graph core today but exposed for
	// forward compatibility with the write path's batching needs.
	LoggedBatch BatchKind = iota
	// UnloggedBatch trades atomicity for throughput; used for the
	// content and page-list writes in the edge write path.
	UnloggedBatch
	// CounterBatch is the only batch kind the store allows counter
	// increments to travel in.
	CounterBatch
)

// Statement is a single parameterized query to include in a Session.Batch call.
type Statement struct {
	Query string
	Args  []any
}

// Rows is a forward-only cursor over a query result set.
type Rows interface {
	// Next advances to the next row, returning false at end-of-results or on
	// error (call Err to distinguish the two).
	Next() bool
	// Scan copies the current row's columns into dest.
	Scan(dest ...any) error
	// Err returns the first error encountered by Next, if any.
	Err() error
	// Close releases resources held by the cursor.
	Close() error
}

// Session is the graph core's sole dependency on the underlying wide-column
// store, scoped to one collection's keyspace. Implementations are expected to
// be cached process-globally per (store, collection) and are safe for
// concurrent use by many callers.
type Session interface {
	// Execute runs an unpaged read or a single write/DDL statement.
	Execute(ctx context.Context, query string, args ...any) (Rows, error)

	// ExecutePaged runs a read statement, returning at most pageSize rows and
	// an opaque paging state to resume from on the next call. A nil
	// pageState starts from the beginning; a nil returned state means no
	// more pages remain.
	ExecutePaged(ctx context.Context, query string, pageSize int, pageState []byte, args ...any) (rows Rows, nextPageState []byte, err error)

	// Batch issues statements of a single BatchKind atomically with respect
	// to that kind's semantics (logged, unlogged, or counter).
	Batch(ctx context.Context, kind BatchKind, statements []Statement) error

	// Keyspace returns the fully-qualified keyspace name this session is
	// bound to (e.g. "hoover3__acme_corp").
	Keyspace() string
}
