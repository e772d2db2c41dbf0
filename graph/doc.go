// Package graph implements the graph-edge storage and traversal subsystem: a
// data model for typed, directed edges between domain vertices, persisted over a
// wide-column store so that a single source vertex can hold billions of
// outgoing or incoming references while a single neighborhood's traversal
// remains bounded-latency and paginatable.
//
// A vertex is identified by the stable hash of its primary-key tuple (see
// package identifier). Edges are written in both directions so that
// traversal from either endpoint is symmetric, and are grouped into
// fixed-capacity pages so that a hot vertex's neighbor list never requires an
// unbounded partition scan. Pages are assigned by a per-(source, edge type,
// direction) counter; the write path (CreateEdges) and read path
// (TargetsForSource / SourcesForTarget) are the two halves of that contract.
//
// Domain code declares named edges once, at process start, through
// RegisterEdgeType, and thereafter works with typed EdgeBatch values rather
// than raw hashes.
package graph

// PageSize bounds how many target entries a single graph_edge_page_content
// partition may hold under normal (non-concurrent-writer) conditions.
const PageSize = 1000

// InBatchLimit bounds how many keys a single IN-style lookup batches
// together, to respect the column store's query size limits.
const InBatchLimit = 100

// ContentBatchChunk bounds how many content/page-list rows are written in a
// single batch during CreateEdges.
const ContentBatchChunk = 1024

// CounterBatchChunk bounds how many distinct sources are lumped into a single
// counter-increment batch. Fixed at the same size as InBatchLimit to keep the
// write path's peak memory profile uniform across its batched stages.
const CounterBatchChunk = 100
