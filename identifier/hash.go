package identifier

import (
	"fmt"

	"github.com/evalgo/graphcore/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/xxh3"
)

// PrimaryKey is implemented by any primary-key tuple type that the graph core can
// hash and persist. Concrete tuple types satisfy it by embedding BasePrimaryKey,
// which also carries the `cbor:",toarray"` tag that makes Serialize encode their
// fields positionally, in declaration order, rather than as a map — this is what
// makes the encoding reproducible across processes and platforms.
type PrimaryKey interface {
	isPrimaryKey()
}

// BasePrimaryKey is embedded by concrete primary-key tuple types to satisfy the
// PrimaryKey marker interface and to enable toarray encoding, without either
// being repeated by hand on every tuple type.
type BasePrimaryKey struct {
	_ struct{} `cbor:",toarray"`
}

func (BasePrimaryKey) isPrimaryKey() {}

var canonicalMode cbor.EncMode

func init() {
	canonicalMode = common.Must(cbor.CanonicalEncOptions().EncMode())
}

// Serialize produces the canonical binary encoding of a primary-key tuple. The same
// logical tuple always serializes to the same bytes, independent of process or
// platform: field order follows struct declaration order (via the `toarray`
// struct tag), and canonical CBOR fixes integer and map encodings deterministically.
func Serialize(pk PrimaryKey) ([]byte, error) {
	b, err := canonicalMode.Marshal(pk)
	if err != nil {
		return nil, fmt.Errorf("identifier: serialize: %w", err)
	}
	return b, nil
}

// Deserialize decodes bytes produced by Serialize back into out, which must be a
// pointer to the same concrete type that was serialized.
func Deserialize(data []byte, out PrimaryKey) error {
	if err := cbor.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return nil
}

// ErrCorrupted is returned when a stored PK-map value fails to deserialize back
// into its declared type. It is never retriable.
var ErrCorrupted = fmt.Errorf("corrupted primary-key value")

// Hash computes the stable, deterministic, hex-encoded digest of a primary-key
// tuple's canonical serialization. hash(x) == hash(y) iff their canonical
// serializations are byte-equal; collisions across distinct tuples are
// negligibly probable (128-bit xxh3).
func Hash(pk PrimaryKey) (string, error) {
	b, err := Serialize(pk)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes computes the 128-bit xxh3 digest of already-canonicalized bytes,
// rendered as 32 uppercase hex characters. Exposed so callers that already hold a
// canonical serialization (e.g. round-trip tests) need not re-serialize.
func HashBytes(canonical []byte) string {
	h := xxh3.Hash128(canonical)
	return fmt.Sprintf("%016X%016X", h.Hi, h.Lo)
}
