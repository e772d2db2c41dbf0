package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/evalgo/graphcore/common"
)

type pageKey struct {
	source string
	pageID int32
}

// CreateEdges assigns each (source_hash, target_hash) pair to a page and
// persists the derived content, page-list, and counter rows for the given
// edge type and direction. It returns the number of pairs written on
// success.
//
// No pair is silently dropped: on partial failure the error surfaces as a
// *PartialWriteError and already-written rows remain (content writes are
// idempotent because pk_target is the clustering key). Concurrent callers
// touching the same (source, edge type, direction) may race on page
// assignment, so a page can briefly hold more than PageSize entries (see
// PageSize).
func CreateEdges(ctx context.Context, session Session, edgeType string, pairs []HashPair, directionOut bool) (int, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	sources := distinctSources(pairs)

	snapshot, err := snapshotCounters(ctx, session, edgeType, directionOut, sources)
	if err != nil {
		return 0, fmt.Errorf("%w: snapshot counters: %v", ErrBackendUnavailable, err)
	}

	counterNow := make(map[string]int64, len(sources))
	for _, s := range sources {
		counterNow[s] = snapshot[s]
	}

	contentRows := make([]pageContentRow, 0, len(pairs))
	var pageRows []pageListRow
	seenPages := make(map[pageKey]bool)

	for _, p := range pairs {
		cur := counterNow[p.Source]
		pageID := int32(cur / PageSize)

		contentRows = append(contentRows, pageContentRow{
			PKSource: p.Source, EdgeType: edgeType, DirectionOut: directionOut,
			PageID: pageID, PKTarget: p.Target,
		})

		key := pageKey{p.Source, pageID}
		if !seenPages[key] {
			seenPages[key] = true
			pageRows = append(pageRows, pageListRow{
				PKSource: p.Source, EdgeType: edgeType, DirectionOut: directionOut, PageID: pageID,
			})
		}

		counterNow[p.Source] = cur + 1
	}

	confirmed, writeErr := persistContentAndPages(ctx, session, contentRows, pageRows)
	if writeErr != nil {
		remainder := make([]HashPair, 0, len(pairs)-confirmed)
		if confirmed < len(pairs) {
			remainder = append(remainder, pairs[confirmed:]...)
		}
		return confirmed, &PartialWriteError{Confirmed: confirmed, Remainder: remainder, Cause: writeErr}
	}

	deltas := make(map[string]int64, len(sources))
	for _, s := range sources {
		deltas[s] = counterNow[s] - snapshot[s]
	}
	if err := incrementCounters(ctx, session, edgeType, directionOut, deltas); err != nil {
		common.Logger.WithError(err).WithField("edge_type", edgeType).Warn("graph: counter increment failed after content commit")
		return len(pairs), fmt.Errorf("%w: %v", ErrCounterLag, err)
	}

	metrics.EdgesWritten.WithLabelValues(edgeType, directionLabel(directionOut)).Add(float64(len(pairs)))
	metrics.PagesWritten.Add(float64(len(pageRows)))

	return len(pairs), nil
}

// CreateEdgesWithEndpoints hardens the write path for callers (namely the
// typed-edge registry's EdgeBatch) that already hold concrete endpoint
// records: it persists both endpoints' PK-map rows before delegating to
// CreateEdges, so a caller can never forget to satisfy invariant 6 (PK-map
// coverage). PK-map writes are deduplicated within one call by hash, since
// the same endpoint commonly recurs across many pairs in a batch.
func CreateEdgesWithEndpoints(ctx context.Context, session Session, edgeType string, directionOut bool, endpoints []EndpointPair) (int, error) {
	pairs := make([]HashPair, len(endpoints))
	persisted := make(map[string]bool, len(endpoints)*2)
	for i, e := range endpoints {
		if !persisted[e.SourceHash] {
			if err := PutPKMap(ctx, session, e.SourceHash, e.SourceValue); err != nil {
				return 0, err
			}
			persisted[e.SourceHash] = true
		}
		if !persisted[e.TargetHash] {
			if err := PutPKMap(ctx, session, e.TargetHash, e.TargetValue); err != nil {
				return 0, err
			}
			persisted[e.TargetHash] = true
		}
		pairs[i] = HashPair{Source: e.SourceHash, Target: e.TargetHash}
	}
	return CreateEdges(ctx, session, edgeType, pairs, directionOut)
}

// EndpointPair carries both a hash pair and the canonical values needed to
// harden the PK map, for use by CreateEdgesWithEndpoints.
type EndpointPair struct {
	SourceHash  string
	SourceValue []byte
	TargetHash  string
	TargetValue []byte
}

func distinctSources(pairs []HashPair) []string {
	seen := make(map[string]bool, len(pairs))
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if !seen[p.Source] {
			seen[p.Source] = true
			out = append(out, p.Source)
		}
	}
	return out
}

func snapshotCounters(ctx context.Context, session Session, edgeType string, directionOut bool, sources []string) (map[string]int64, error) {
	result := make(map[string]int64, len(sources))
	for _, s := range sources {
		result[s] = 0
	}

	for start := 0; start < len(sources); start += InBatchLimit {
		end := start + InBatchLimit
		if end > len(sources) {
			end = len(sources)
		}
		chunk := sources[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)+2)
		for i, s := range chunk {
			placeholders[i] = "?"
			args = append(args, s)
		}
		args = append(args, edgeType, directionOut)

		query := fmt.Sprintf(
			"SELECT pk_source, item_count FROM graph_edge_pages_counter WHERE pk_source IN (%s) AND edge_type = ? AND direction_out = ?",
			strings.Join(placeholders, ","),
		)

		rows, err := session.Execute(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var source string
			var count int64
			if err := rows.Scan(&source, &count); err != nil {
				rows.Close()
				return nil, err
			}
			result[source] = count
		}
		scanErr := rows.Err()
		rows.Close()
		if scanErr != nil {
			return nil, scanErr
		}
	}
	return result, nil
}

func persistContentAndPages(ctx context.Context, session Session, contentRows []pageContentRow, pageRows []pageListRow) (int, error) {
	statements := make([]Statement, 0, len(contentRows)+len(pageRows))
	for _, r := range pageRows {
		statements = append(statements, Statement{
			Query: `INSERT INTO graph_edge_page (pk_source, edge_type, direction_out, page_id) VALUES (?, ?, ?, ?)`,
			Args:  []any{r.PKSource, r.EdgeType, r.DirectionOut, r.PageID},
		})
	}
	for _, r := range contentRows {
		statements = append(statements, Statement{
			Query: `INSERT INTO graph_edge_page_content (pk_source, edge_type, direction_out, page_id, pk_target) VALUES (?, ?, ?, ?, ?)`,
			Args:  []any{r.PKSource, r.EdgeType, r.DirectionOut, r.PageID, r.PKTarget},
		})
	}

	confirmedContent := 0
	for start := 0; start < len(statements); start += ContentBatchChunk {
		end := start + ContentBatchChunk
		if end > len(statements) {
			end = len(statements)
		}
		chunk := statements[start:end]
		if err := session.Batch(ctx, UnloggedBatch, chunk); err != nil {
			// Best-effort accounting: count whole content rows confirmed
			// before this chunk. Page-list statements don't count toward
			// the pair total.
			return countContentConfirmed(statements[:start], len(contentRows)), err
		}
	}
	confirmedContent = len(contentRows)
	return confirmedContent, nil
}

func countContentConfirmed(confirmedStatements []Statement, totalContent int) int {
	n := 0
	for _, s := range confirmedStatements {
		if strings.Contains(s.Query, "graph_edge_page_content") {
			n++
		}
	}
	if n > totalContent {
		n = totalContent
	}
	return n
}

func incrementCounters(ctx context.Context, session Session, edgeType string, directionOut bool, deltas map[string]int64) error {
	sources := make([]string, 0, len(deltas))
	for s := range deltas {
		sources = append(sources, s)
	}

	for start := 0; start < len(sources); start += CounterBatchChunk {
		end := start + CounterBatchChunk
		if end > len(sources) {
			end = len(sources)
		}
		chunk := sources[start:end]

		statements := make([]Statement, 0, len(chunk))
		for _, s := range chunk {
			delta := deltas[s]
			if delta == 0 {
				continue
			}
			statements = append(statements, Statement{
				Query: `UPDATE graph_edge_pages_counter SET item_count = item_count + ? WHERE pk_source = ? AND edge_type = ? AND direction_out = ?`,
				Args:  []any{delta, s, edgeType, directionOut},
			})
		}
		if len(statements) == 0 {
			continue
		}
		if err := session.Batch(ctx, CounterBatch, statements); err != nil {
			return err
		}
	}
	return nil
}
