package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/evalgo/graphcore/common"
	"github.com/sirupsen/logrus"
)

// EdgeTypeInfo is the static inventory entry recorded for every edge type at
// process start, consulted for schema validation. It is the Go analogue of
// the source's macro-generated registration: a plain declarative record
// rather than metaprogramming.
type EdgeTypeInfo struct {
	EdgeType   string
	SourceType string
	TargetType string
}

var (
	inventoryMu sync.Mutex
	inventory   []EdgeTypeInfo
)

// RegisteredEdgeTypes returns every edge type registered so far, in
// registration order. Useful for schema validation at startup and for
// tooling that needs to enumerate the graph's declared relations.
func RegisteredEdgeTypes() []EdgeTypeInfo {
	inventoryMu.Lock()
	defer inventoryMu.Unlock()
	out := make([]EdgeTypeInfo, len(inventory))
	copy(out, inventory)
	return out
}

// EdgeCodec encodes a domain record into its (hash, canonical value) pair and
// decodes a canonical value back into the domain record. Domain code
// typically implements this by calling identifier.Hash / identifier.Serialize
// / identifier.Deserialize on the record's declared primary-key tuple.
type EdgeCodec[V any] struct {
	Encode func(V) (hash string, canonical []byte, err error)
	Decode func([]byte) (V, error)
}

// EdgeType binds a named edge type to its source and target record types. It
// is constructed once per relation via RegisterEdgeType and is safe to share
// across goroutines.
type EdgeType[S, T any] struct {
	name   string
	source EdgeCodec[S]
	target EdgeCodec[T]
}

// RegisterEdgeType declares an edge type named name, from sourceTypeName to
// targetTypeName, and records it in the process-wide inventory. Call this
// once at process start (typically from an init function in the package that
// owns the relation), before any traffic touches the edge type.
func RegisterEdgeType[S, T any](name, sourceTypeName, targetTypeName string, source EdgeCodec[S], target EdgeCodec[T]) *EdgeType[S, T] {
	inventoryMu.Lock()
	inventory = append(inventory, EdgeTypeInfo{EdgeType: name, SourceType: sourceTypeName, TargetType: targetTypeName})
	inventoryMu.Unlock()

	return &EdgeType[S, T]{name: name, source: source, target: target}
}

// Name returns the edge type's declared name.
func (e *EdgeType[S, T]) Name() string { return e.name }

// TargetsForSource walks the edge in the forward direction from source,
// returning a lazy stream of target records.
func (e *EdgeType[S, T]) TargetsForSource(ctx context.Context, session Session, source S) (<-chan Result[T], error) {
	hash, _, err := e.source.Encode(source)
	if err != nil {
		return nil, fmt.Errorf("graph: encode source: %w", err)
	}
	return StreamDecoded(ctx, session, e.name, true, hash, e.target.Decode), nil
}

// SourcesForTarget walks the edge in the reverse direction from target,
// returning a lazy stream of source records.
func (e *EdgeType[S, T]) SourcesForTarget(ctx context.Context, session Session, target T) (<-chan Result[S], error) {
	hash, _, err := e.target.Encode(target)
	if err != nil {
		return nil, fmt.Errorf("graph: encode target: %w", err)
	}
	return StreamDecoded(ctx, session, e.name, false, hash, e.source.Decode), nil
}

// batchState is the EdgeBatch lifecycle: Open -> Executed -> Closed.
type batchState int

const (
	batchOpen batchState = iota
	batchExecuted
	batchClosed
)

// Batch returns a new, open accumulator for edges of this type, scoped to
// collectionID (used for logging only — session already identifies the
// target keyspace).
func (e *EdgeType[S, T]) Batch(collectionID string, session Session) *EdgeBatch[S, T] {
	return &EdgeBatch[S, T]{
		edgeType:     e,
		collectionID: collectionID,
		session:      session,
		state:        batchOpen,
	}
}

// EdgeBatch accumulates edges of one type bound to one collection. Endpoint
// records are resolved to hashes on Add and buffered; their PK-map rows are
// persisted by Execute (via CreateEdgesWithEndpoints), so invariant 6
// (PK-map coverage) holds by the time the batch's content is readable.
type EdgeBatch[S, T any] struct {
	edgeType     *EdgeType[S, T]
	collectionID string
	session      Session
	state        batchState
	outgoing     []EndpointPair // direction_out = true, keyed by source
	incoming     []EndpointPair // direction_out = false, keyed by target
}

// Add resolves source and target to hashes and canonical values and buffers
// the resulting endpoint pair for both directions. Returns ErrInvalidState if
// the batch has already been executed or closed.
func (b *EdgeBatch[S, T]) Add(ctx context.Context, source S, target T) error {
	if b.state != batchOpen {
		return ErrInvalidState
	}

	srcHash, srcValue, err := b.edgeType.source.Encode(source)
	if err != nil {
		return fmt.Errorf("graph: encode source: %w", err)
	}
	tgtHash, tgtValue, err := b.edgeType.target.Encode(target)
	if err != nil {
		return fmt.Errorf("graph: encode target: %w", err)
	}

	b.outgoing = append(b.outgoing, EndpointPair{SourceHash: srcHash, SourceValue: srcValue, TargetHash: tgtHash, TargetValue: tgtValue})
	b.incoming = append(b.incoming, EndpointPair{SourceHash: tgtHash, SourceValue: tgtValue, TargetHash: srcHash, TargetValue: srcValue})
	return nil
}

// ExecuteResult reports how many pairs were written in each direction.
type ExecuteResult struct {
	Outgoing int
	Incoming int
}

// Execute flushes both direction buffers through CreateEdgesWithEndpoints
// independently, persisting each endpoint's PK-map row before its edge
// content, and transitions the batch to Executed. Adding after Execute
// returns ErrInvalidState.
func (b *EdgeBatch[S, T]) Execute(ctx context.Context) (ExecuteResult, error) {
	if b.state != batchOpen {
		return ExecuteResult{}, ErrInvalidState
	}
	b.state = batchExecuted

	var result ExecuteResult
	var err error

	result.Outgoing, err = CreateEdgesWithEndpoints(ctx, b.session, b.edgeType.name, true, b.outgoing)
	if err != nil {
		return result, err
	}
	result.Incoming, err = CreateEdgesWithEndpoints(ctx, b.session, b.edgeType.name, false, b.incoming)
	if err != nil {
		return result, err
	}

	common.Logger.WithFields(logrus.Fields{
		"collection": b.collectionID,
		"edge_type":  b.edgeType.name,
		"outgoing":   result.Outgoing,
		"incoming":   result.Incoming,
	}).Debug("graph: edge batch executed")

	return result, nil
}

// Close releases the batch. It is idempotent and safe to call whether or not
// Execute ran; it never returns an error.
func (b *EdgeBatch[S, T]) Close() {
	b.state = batchClosed
}
