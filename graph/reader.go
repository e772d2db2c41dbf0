package graph

import (
	"context"
	"fmt"
)

// Result carries either a yielded value or a terminal stream error. Once an
// Err is sent, no further values follow and the channel is closed.
type Result[T any] struct {
	Value T
	Err   error
}

// streamPageIDs yields the page_id rows for (sourceHash, edgeType, direction)
// from graph_edge_page, in page_id ascending order (the store's natural
// clustering order), one chunk of rows at a time.
func streamPageIDs(ctx context.Context, session Session, edgeType string, directionOut bool, sourceHash string) <-chan Result[int32] {
	out := make(chan Result[int32])
	go func() {
		defer close(out)
		var pageState []byte
		for {
			select {
			case <-ctx.Done():
				send(ctx, out, Result[int32]{Err: fmt.Errorf("%w: %v", ErrStreamFailed, ctx.Err())})
				return
			default:
			}

			rows, next, err := session.ExecutePaged(ctx,
				`SELECT page_id FROM graph_edge_page WHERE pk_source = ? AND edge_type = ? AND direction_out = ?`,
				InBatchLimit, pageState, sourceHash, edgeType, directionOut,
			)
			if err != nil {
				send(ctx, out, Result[int32]{Err: fmt.Errorf("%w: list pages: %v", ErrStreamFailed, err)})
				return
			}
			for rows.Next() {
				var pageID int32
				if err := rows.Scan(&pageID); err != nil {
					rows.Close()
					send(ctx, out, Result[int32]{Err: fmt.Errorf("%w: scan page id: %v", ErrStreamFailed, err)})
					return
				}
				if !send(ctx, out, Result[int32]{Value: pageID}) {
					rows.Close()
					return
				}
			}
			scanErr := rows.Err()
			rows.Close()
			if scanErr != nil {
				send(ctx, out, Result[int32]{Err: fmt.Errorf("%w: list pages: %v", ErrStreamFailed, scanErr)})
				return
			}
			if next == nil {
				return
			}
			pageState = next
		}
	}()
	return out
}

// streamPageContent yields pk_target rows for one page, in pk_target
// ascending (clustering) order.
func streamPageContent(ctx context.Context, session Session, edgeType string, directionOut bool, sourceHash string, pageID int32) <-chan Result[string] {
	out := make(chan Result[string])
	go func() {
		defer close(out)
		var pageState []byte
		for {
			rows, next, err := session.ExecutePaged(ctx,
				`SELECT pk_target FROM graph_edge_page_content WHERE pk_source = ? AND edge_type = ? AND direction_out = ? AND page_id = ?`,
				ContentBatchChunk, pageState, sourceHash, edgeType, directionOut, pageID,
			)
			if err != nil {
				send(ctx, out, Result[string]{Err: fmt.Errorf("%w: list page content: %v", ErrStreamFailed, err)})
				return
			}
			for rows.Next() {
				var target string
				if err := rows.Scan(&target); err != nil {
					rows.Close()
					send(ctx, out, Result[string]{Err: fmt.Errorf("%w: scan page content: %v", ErrStreamFailed, err)})
					return
				}
				if !send(ctx, out, Result[string]{Value: target}) {
					rows.Close()
					return
				}
			}
			scanErr := rows.Err()
			rows.Close()
			if scanErr != nil {
				send(ctx, out, Result[string]{Err: fmt.Errorf("%w: list page content: %v", ErrStreamFailed, scanErr)})
				return
			}
			if next == nil {
				return
			}
			pageState = next
		}
	}()
	return out
}

// streamTargetHashes concatenates every page's content, in (page_id ASC,
// pk_target ASC) order, for one (sourceHash, edgeType, direction).
func streamTargetHashes(ctx context.Context, session Session, edgeType string, directionOut bool, sourceHash string) <-chan Result[string] {
	out := make(chan Result[string])
	go func() {
		defer close(out)
		for pageResult := range streamPageIDs(ctx, session, edgeType, directionOut, sourceHash) {
			if pageResult.Err != nil {
				send(ctx, out, Result[string]{Err: pageResult.Err})
				return
			}
			for contentResult := range streamPageContent(ctx, session, edgeType, directionOut, sourceHash, pageResult.Value) {
				if !send(ctx, out, contentResult) {
					return
				}
				if contentResult.Err != nil {
					return
				}
			}
		}
	}()
	return out
}

// StreamDecoded resolves every target hash in the (source, edgeType,
// direction) neighborhood through the PK map, chunked at InBatchLimit, and
// decodes each resolved value with decode. The returned channel is lazy
// (pulls one chunk at a time), finite, and not restartable from an arbitrary
// offset: a consumer that stops must traverse from the beginning again.
func StreamDecoded[T any](ctx context.Context, session Session, edgeType string, directionOut bool, sourceHash string, decode func([]byte) (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)
	go func() {
		defer close(out)

		// fail reports a terminal error. The one-slot buffer on out takes it
		// even once ctx is done, where send alone could drop it.
		fail := func(err error) {
			select {
			case out <- Result[T]{Err: err}:
			default:
				send(ctx, out, Result[T]{Err: err})
			}
		}

		hashes := streamTargetHashes(ctx, session, edgeType, directionOut, sourceHash)
		chunk := make([]string, 0, InBatchLimit)

		flush := func() bool {
			if len(chunk) == 0 {
				return true
			}
			metrics.StreamChunks.WithLabelValues(edgeType, directionLabel(directionOut)).Inc()
			entries, err := BatchLookupPKMap(ctx, session, chunk)
			chunk = chunk[:0]
			if err != nil {
				metrics.StreamErrors.WithLabelValues(edgeType, directionLabel(directionOut)).Inc()
				send(ctx, out, Result[T]{Err: fmt.Errorf("%w: %v", ErrStreamFailed, err)})
				return false
			}
			for _, e := range entries {
				value, err := decode(e.Value)
				if err != nil {
					send(ctx, out, Result[T]{Err: fmt.Errorf("%w: %v", ErrCorrupted, err)})
					return false
				}
				if !send(ctx, out, Result[T]{Value: value}) {
					return false
				}
			}
			return true
		}

		for hr := range hashes {
			if hr.Err != nil {
				fail(hr.Err)
				return
			}
			chunk = append(chunk, hr.Value)
			if len(chunk) >= InBatchLimit {
				if !flush() {
					return
				}
			}
		}
		if flush() && ctx.Err() != nil {
			fail(fmt.Errorf("%w: %v", ErrStreamFailed, ctx.Err()))
		}
	}()
	return out
}

// send writes v to out unless ctx is done first, returning false if the
// caller should stop producing (either ctx cancellation or no receiver).
func send[T any](ctx context.Context, out chan<- Result[T], v Result[T]) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

// Collect drains a Result stream into a slice, stopping at the first error.
// Convenience for tests and small neighborhoods; production consumers should
// range over the channel directly to stay lazy.
func Collect[T any](stream <-chan Result[T]) ([]T, error) {
	var out []T
	for r := range stream {
		if r.Err != nil {
			return out, r.Err
		}
		out = append(out, r.Value)
	}
	return out, nil
}
