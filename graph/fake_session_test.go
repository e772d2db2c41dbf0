package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// memRow is a generic row keyed by its CQL table name; cols maps each column
// name to its value. memSession never models partitions
// or clustering precisely — it sorts and filters just enough to exercise the
// write and read paths the way a real column store's ORDER BY would.
type memRow struct {
	table string
	cols  map[string]any
}

// memSession is a minimal in-process stand-in for Session, good enough to
// drive CreateEdges/StreamDecoded without a running cluster. It is not a
// general CQL interpreter: it only understands the handful of statement
// shapes the graph core actually issues.
type memSession struct {
	mu   sync.Mutex
	rows []memRow

	// failContentBatch/failCounterBatch, when true, make the next Batch call
	// touching that table family fail once, then clear themselves. Used to
	// exercise the partial-write and counter-lag paths independently.
	failContentBatch bool
	failCounterBatch bool

	// failPKMapWrite, when true, makes the next graph_node_pk_map INSERT fail
	// once, then clears itself.
	failPKMapWrite bool
}

func newMemSession() *memSession {
	return &memSession{}
}

var _ Session = (*memSession)(nil)

func (m *memSession) Keyspace() string { return "test_keyspace" }

func (m *memSession) Execute(ctx context.Context, query string, args ...any) (Rows, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case strings.HasPrefix(query, "INSERT INTO graph_node_pk_map"):
		if m.failPKMapWrite {
			m.failPKMapWrite = false
			return nil, fmt.Errorf("memSession: simulated pk map write failure")
		}
		m.upsertPKMap(args[0].(string), args[1].(string))
		return &memRows{}, nil

	case strings.HasPrefix(query, "SELECT pk, value FROM graph_node_pk_map"):
		wanted := toStringSet(args)
		var matched []memRow
		for _, r := range m.rows {
			if r.table == "graph_node_pk_map" && wanted[r.cols["pk"].(string)] {
				matched = append(matched, r)
			}
		}
		return &memRows{data: matched, cols: []string{"pk", "value"}}, nil

	case strings.HasPrefix(query, "SELECT pk_source, item_count FROM graph_edge_pages_counter"):
		n := len(args) - 2
		wanted := toStringSet(args[:n])
		edgeType := args[n].(string)
		directionOut := args[n+1].(bool)
		var matched []memRow
		for _, r := range m.rows {
			if r.table == "graph_edge_pages_counter" &&
				wanted[r.cols["pk_source"].(string)] &&
				r.cols["edge_type"].(string) == edgeType &&
				r.cols["direction_out"].(bool) == directionOut {
				matched = append(matched, r)
			}
		}
		return &memRows{data: matched, cols: []string{"pk_source", "item_count"}}, nil

	default:
		return nil, fmt.Errorf("memSession: unsupported Execute query: %s", query)
	}
}

func (m *memSession) ExecutePaged(ctx context.Context, query string, pageSize int, pageState []byte, args ...any) (Rows, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case strings.HasPrefix(query, "SELECT page_id FROM graph_edge_page"):
		source, edgeType, directionOut := args[0].(string), args[1].(string), args[2].(bool)
		var matched []memRow
		for _, r := range m.rows {
			if r.table == "graph_edge_page" &&
				r.cols["pk_source"].(string) == source &&
				r.cols["edge_type"].(string) == edgeType &&
				r.cols["direction_out"].(bool) == directionOut {
				matched = append(matched, r)
			}
		}
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].cols["page_id"].(int32) < matched[j].cols["page_id"].(int32)
		})
		page, next := paginate(matched, pageState, pageSize)
		return &memRows{data: page, cols: []string{"page_id"}}, next, nil

	case strings.HasPrefix(query, "SELECT pk_target FROM graph_edge_page_content"):
		source, edgeType, directionOut, pageID := args[0].(string), args[1].(string), args[2].(bool), args[3].(int32)
		var matched []memRow
		for _, r := range m.rows {
			if r.table == "graph_edge_page_content" &&
				r.cols["pk_source"].(string) == source &&
				r.cols["edge_type"].(string) == edgeType &&
				r.cols["direction_out"].(bool) == directionOut &&
				r.cols["page_id"].(int32) == pageID {
				matched = append(matched, r)
			}
		}
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].cols["pk_target"].(string) < matched[j].cols["pk_target"].(string)
		})
		page, next := paginate(matched, pageState, pageSize)
		return &memRows{data: page, cols: []string{"pk_target"}}, next, nil

	default:
		return nil, nil, fmt.Errorf("memSession: unsupported ExecutePaged query: %s", query)
	}
}

func (m *memSession) Batch(ctx context.Context, kind BatchKind, statements []Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if kind == CounterBatch {
		if m.failCounterBatch {
			m.failCounterBatch = false
			return fmt.Errorf("memSession: simulated counter batch failure")
		}
	} else if m.failContentBatch {
		m.failContentBatch = false
		return fmt.Errorf("memSession: simulated content batch failure")
	}

	for _, stmt := range statements {
		switch {
		case strings.HasPrefix(stmt.Query, "INSERT INTO graph_edge_page "):
			m.upsertPageList(stmt.Args[0].(string), stmt.Args[1].(string), stmt.Args[2].(bool), stmt.Args[3].(int32))
		case strings.HasPrefix(stmt.Query, "INSERT INTO graph_edge_page_content"):
			m.rows = append(m.rows, memRow{table: "graph_edge_page_content", cols: map[string]any{
				"pk_source": stmt.Args[0].(string), "edge_type": stmt.Args[1].(string),
				"direction_out": stmt.Args[2].(bool), "page_id": stmt.Args[3].(int32), "pk_target": stmt.Args[4].(string),
			}})
		case strings.HasPrefix(stmt.Query, "UPDATE graph_edge_pages_counter"):
			delta := stmt.Args[0].(int64)
			m.incrCounter(stmt.Args[1].(string), stmt.Args[2].(string), stmt.Args[3].(bool), delta)
		default:
			return fmt.Errorf("memSession: unsupported Batch statement: %s", stmt.Query)
		}
	}
	return nil
}

func (m *memSession) upsertPKMap(pk, value string) {
	for i, r := range m.rows {
		if r.table == "graph_node_pk_map" && r.cols["pk"].(string) == pk {
			m.rows[i].cols["value"] = value
			return
		}
	}
	m.rows = append(m.rows, memRow{table: "graph_node_pk_map", cols: map[string]any{"pk": pk, "value": value}})
}

func (m *memSession) upsertPageList(source, edgeType string, directionOut bool, pageID int32) {
	for _, r := range m.rows {
		if r.table == "graph_edge_page" &&
			r.cols["pk_source"].(string) == source && r.cols["edge_type"].(string) == edgeType &&
			r.cols["direction_out"].(bool) == directionOut && r.cols["page_id"].(int32) == pageID {
			return
		}
	}
	m.rows = append(m.rows, memRow{table: "graph_edge_page", cols: map[string]any{
		"pk_source": source, "edge_type": edgeType, "direction_out": directionOut, "page_id": pageID,
	}})
}

func (m *memSession) incrCounter(source, edgeType string, directionOut bool, delta int64) {
	for i, r := range m.rows {
		if r.table == "graph_edge_pages_counter" &&
			r.cols["pk_source"].(string) == source && r.cols["edge_type"].(string) == edgeType &&
			r.cols["direction_out"].(bool) == directionOut {
			m.rows[i].cols["item_count"] = r.cols["item_count"].(int64) + delta
			return
		}
	}
	m.rows = append(m.rows, memRow{table: "graph_edge_pages_counter", cols: map[string]any{
		"pk_source": source, "edge_type": edgeType, "direction_out": directionOut, "item_count": delta,
	}})
}

func toStringSet(args []any) map[string]bool {
	out := make(map[string]bool, len(args))
	for _, a := range args {
		out[a.(string)] = true
	}
	return out
}

// paginate slices matched starting at the offset encoded in pageState (a
// decimal ASCII index, reused as both input and output token) and returns at
// most pageSize rows plus the next token, or nil once exhausted.
func paginate(matched []memRow, pageState []byte, pageSize int) ([]memRow, []byte) {
	offset := 0
	if len(pageState) > 0 {
		fmt.Sscanf(string(pageState), "%d", &offset)
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	page := matched[offset:end]
	if end >= len(matched) {
		return page, nil
	}
	return page, []byte(fmt.Sprintf("%d", end))
}

// memRows adapts a pre-filtered []memRow slice to Rows. data may be nil, in
// which case it behaves like a zero-row result (used for INSERT/UPDATE acks).
type memRows struct {
	data []memRow
	cols []string
	pos  int
}

func (r *memRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *memRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	for i, col := range r.cols {
		if i >= len(dest) {
			break
		}
		switch d := dest[i].(type) {
		case *string:
			*d = row.cols[col].(string)
		case *int64:
			*d = row.cols[col].(int64)
		case *int32:
			*d = row.cols[col].(int32)
		case *bool:
			*d = row.cols[col].(bool)
		default:
			return fmt.Errorf("memRows: unsupported scan dest type for column %s", col)
		}
	}
	return nil
}

func (r *memRows) Err() error   { return nil }
func (r *memRows) Close() error { return nil }
