package graph

import (
	"context"
	"fmt"
)

// HashPair is a (source, target) pair of PK hashes, the unit the write path
// operates on. The write path never sees concrete vertex records, only their
// hashes — endpoint resolution happens through the PK map.
type HashPair struct {
	Source string
	Target string
}

// pkMapRow mirrors graph_node_pk_map: pk text primary key, value text.
type pkMapRow struct {
	PK    string
	Value string
}

// pagesCounterRow mirrors graph_edge_pages_counter.
type pagesCounterRow struct {
	PKSource     string
	EdgeType     string
	DirectionOut bool
	ItemCount    int64
}

// pageListRow mirrors graph_edge_page.
type pageListRow struct {
	PKSource     string
	EdgeType     string
	DirectionOut bool
	PageID       int32
}

// pageContentRow mirrors graph_edge_page_content.
type pageContentRow struct {
	PKSource     string
	EdgeType     string
	DirectionOut bool
	PageID       int32
	PKTarget     string
}

// pageAssignmentRow mirrors graph_edge_page_assignment. EnsureSchema creates
// the table for forward compatibility (existence checks, explicit deletes),
// but the write path does not populate it and the read path does not read it.
type pageAssignmentRow struct {
	EdgePKs      [2]string
	EdgeType     string
	DirectionOut bool
	PageID       int32
}

// SchemaStatements returns the CREATE TABLE statements for the graph core's
// five tables, in dependency order. EnsureSchema runs them once per
// collection keyspace; they are idempotent (IF NOT EXISTS).
func SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS graph_node_pk_map (
			pk text PRIMARY KEY,
			value text
		)`,
		`CREATE TABLE IF NOT EXISTS graph_edge_pages_counter (
			pk_source text,
			edge_type text,
			direction_out boolean,
			item_count counter,
			PRIMARY KEY (pk_source, edge_type, direction_out)
		)`,
		`CREATE TABLE IF NOT EXISTS graph_edge_page (
			pk_source text,
			edge_type text,
			direction_out boolean,
			page_id int,
			PRIMARY KEY ((pk_source, edge_type, direction_out), page_id)
		)`,
		`CREATE TABLE IF NOT EXISTS graph_edge_page_content (
			pk_source text,
			edge_type text,
			direction_out boolean,
			page_id int,
			pk_target text,
			PRIMARY KEY ((pk_source, edge_type, direction_out, page_id), pk_target)
		)`,
		`CREATE TABLE IF NOT EXISTS graph_edge_page_assignment (
			edge_pks frozen<tuple<text, text>>,
			edge_type text,
			direction_out boolean,
			page_id int,
			PRIMARY KEY (edge_pks, edge_type, direction_out, page_id)
		)`,
	}
}

// EnsureSchema issues SchemaStatements against session. It is safe to call
// repeatedly; every statement is IF NOT EXISTS.
func EnsureSchema(ctx context.Context, session Session) error {
	for _, stmt := range SchemaStatements() {
		if rows, err := session.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("%w: ensure schema: %v", ErrBackendUnavailable, err)
		} else {
			rows.Close()
		}
	}
	return nil
}
