package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/evalgo/graphcore/common"
)

// PutPKMap stores (hash, canonicalValue) in graph_node_pk_map. It is
// idempotent: overwriting with identical content is a no-op as far as
// observers are concerned, since the value for a given hash never changes
// (invariant 1: hash is pure and total).
func PutPKMap(ctx context.Context, session Session, hash string, canonicalValue []byte) error {
	rows, err := session.Execute(ctx,
		`INSERT INTO graph_node_pk_map (pk, value) VALUES (?, ?)`,
		hash, string(canonicalValue),
	)
	if err != nil {
		return fmt.Errorf("%w: put pk map %s: %v", ErrBackendUnavailable, hash, err)
	}
	rows.Close()
	return nil
}

// PKMapEntry is one resolved (hash, canonical value) pair.
type PKMapEntry struct {
	Hash  string
	Value []byte
}

// BatchLookupPKMap resolves hashes back to their canonical serialized values,
// chunking the input into groups of at most InBatchLimit to respect the
// store's IN-query limits. Order of arrival across chunks is preserved; a
// hash with no matching row is silently skipped (the reader decides policy).
func BatchLookupPKMap(ctx context.Context, session Session, hashes []string) ([]PKMapEntry, error) {
	var out []PKMapEntry
	for start := 0; start < len(hashes); start += InBatchLimit {
		end := start + InBatchLimit
		if end > len(hashes) {
			end = len(hashes)
		}
		chunk := hashes[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for i, h := range chunk {
			placeholders[i] = "?"
			args[i] = h
		}
		query := fmt.Sprintf("SELECT pk, value FROM graph_node_pk_map WHERE pk IN (%s)", strings.Join(placeholders, ","))

		rows, err := session.Execute(ctx, query, args...)
		if err != nil {
			return out, fmt.Errorf("%w: batch lookup pk map: %v", ErrBackendUnavailable, err)
		}

		// Index results by hash so we can preserve the caller's chunk order
		// rather than whatever order the store returns rows in.
		found := make(map[string]string, len(chunk))
		for rows.Next() {
			var row pkMapRow
			if err := rows.Scan(&row.PK, &row.Value); err != nil {
				rows.Close()
				return out, fmt.Errorf("%w: scan pk map row: %v", ErrBackendUnavailable, err)
			}
			found[row.PK] = row.Value
		}
		scanErr := rows.Err()
		rows.Close()
		if scanErr != nil {
			return out, fmt.Errorf("%w: batch lookup pk map: %v", ErrBackendUnavailable, scanErr)
		}

		for _, h := range chunk {
			if v, ok := found[h]; ok {
				out = append(out, PKMapEntry{Hash: h, Value: []byte(v)})
			} else {
				common.Logger.WithField("hash", h).Debug("graph: pk map lookup miss")
			}
		}
	}
	return out, nil
}
