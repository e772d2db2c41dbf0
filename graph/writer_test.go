package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEdges_EmptyIsNoop(t *testing.T) {
	session := newMemSession()
	n, err := CreateEdges(context.Background(), session, "knows", nil, true)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, session.rows)
}

func TestCreateEdges_SingleEdgeIsReadableBack(t *testing.T) {
	session := newMemSession()
	ctx := context.Background()

	n, err := CreateEdges(ctx, session, "knows", []HashPair{{Source: "alice", Target: "bob"}}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	targets, err := Collect(streamTargetHashes(ctx, session, "knows", true, "alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, targets)
}

func TestCreateEdges_PageRolloverSplitsAcrossPages(t *testing.T) {
	session := newMemSession()
	ctx := context.Background()

	total := 2*PageSize + 500
	pairs := make([]HashPair, total)
	for i := 0; i < total; i++ {
		pairs[i] = HashPair{Source: "hub", Target: targetName(i)}
	}

	n, err := CreateEdges(ctx, session, "follows", pairs, true)
	require.NoError(t, err)
	assert.Equal(t, total, n)

	var pageCount int
	for _, r := range session.rows {
		if r.table == "graph_edge_page" {
			pageCount++
		}
	}
	assert.Equal(t, 3, pageCount, "2*PageSize+500 targets should span 3 pages")

	got, err := Collect(streamTargetHashes(ctx, session, "follows", true, "hub"))
	require.NoError(t, err)
	assert.Len(t, got, total)
}

func TestCreateEdges_ContentBatchFailureReportsPartialWrite(t *testing.T) {
	session := newMemSession()
	session.failContentBatch = true
	ctx := context.Background()

	pairs := []HashPair{{Source: "alice", Target: "bob"}, {Source: "alice", Target: "carol"}}
	n, err := CreateEdges(ctx, session, "knows", pairs, true)

	assert.Equal(t, 0, n)
	var partial *PartialWriteError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, 0, partial.Confirmed)
	assert.Equal(t, pairs, partial.Remainder)
}

func TestCreateEdges_RetryAfterFullBatchFailureIsIdempotent(t *testing.T) {
	session := newMemSession()
	ctx := context.Background()
	pairs := []HashPair{{Source: "alice", Target: "bob"}, {Source: "alice", Target: "carol"}}

	session.failContentBatch = true
	_, err := CreateEdges(ctx, session, "knows", pairs, true)
	require.Error(t, err)

	n, err := CreateEdges(ctx, session, "knows", pairs, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var contentRows int
	for _, r := range session.rows {
		if r.table == "graph_edge_page_content" {
			contentRows++
		}
	}
	assert.Equal(t, 2, contentRows, "retried write must not duplicate content rows")
}

func TestCreateEdges_CounterBatchFailureReturnsCounterLag(t *testing.T) {
	session := newMemSession()
	session.failCounterBatch = true
	ctx := context.Background()

	n, err := CreateEdges(ctx, session, "knows", []HashPair{{Source: "alice", Target: "bob"}}, true)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, ErrCounterLag)

	var contentRows int
	for _, r := range session.rows {
		if r.table == "graph_edge_page_content" {
			contentRows++
		}
	}
	assert.Equal(t, 1, contentRows, "content must have committed despite the counter lagging")
}

func TestCreateEdgesWithEndpoints_PersistsPKMapAndContent(t *testing.T) {
	session := newMemSession()
	ctx := context.Background()

	endpoints := []EndpointPair{
		{SourceHash: "alice", SourceValue: []byte("Alice"), TargetHash: "bob", TargetValue: []byte("Bob")},
		{SourceHash: "alice", SourceValue: []byte("Alice"), TargetHash: "carol", TargetValue: []byte("Carol")},
	}

	n, err := CreateEdgesWithEndpoints(ctx, session, "knows", true, endpoints)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := BatchLookupPKMap(ctx, session, []string{"alice", "bob", "carol"})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	var aliceRows int
	for _, r := range session.rows {
		if r.table == "graph_node_pk_map" && r.cols["pk"].(string) == "alice" {
			aliceRows++
		}
	}
	assert.Equal(t, 1, aliceRows, "repeated source hash must be persisted once")

	got, err := Collect(streamTargetHashes(ctx, session, "knows", true, "alice"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, got)
}

func TestCreateEdgesWithEndpoints_PropagatesPKMapFailure(t *testing.T) {
	session := newMemSession()
	session.failPKMapWrite = true
	ctx := context.Background()

	endpoints := []EndpointPair{
		{SourceHash: "alice", SourceValue: []byte("Alice"), TargetHash: "bob", TargetValue: []byte("Bob")},
	}

	_, err := CreateEdgesWithEndpoints(ctx, session, "knows", true, endpoints)
	assert.Error(t, err)
	assert.Empty(t, session.rows, "no content should be written if pk-map persistence fails first")
}

func targetName(i int) string {
	const alphabet = "0123456789abcdef"
	b := make([]byte, 8)
	for j := range b {
		b[j] = alphabet[(i>>(4*j))&0xf]
	}
	return string(b)
}
