// Package identifier validates the tenant and database names used throughout the
// graph core, and computes the stable content hashes that identify a vertex's
// primary-key tuple across processes and platforms.
package identifier

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	collectionPattern = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)
	databasePattern   = regexp.MustCompile(`^[a-z0-9_]{3,48}$`)
)

// DefaultKeyspacePrefix is prepended to every collection's keyspace name.
const DefaultKeyspacePrefix = "hoover3"

// CollectionID is a validated tenant identifier. It is immutable once constructed.
type CollectionID struct {
	value string
}

// NewCollectionID validates s and returns a CollectionID, or ErrInvalidIdentifier.
//
// Rules: length 3-32, lowercase alphanumeric plus underscore, no double underscore,
// must not start with "system".
func NewCollectionID(s string) (CollectionID, error) {
	if err := validateBasic(s, 3, 32, collectionPattern); err != nil {
		return CollectionID{}, err
	}
	c := CollectionID{value: s}
	if _, err := c.DatabaseName(); err != nil {
		return CollectionID{}, err
	}
	return c, nil
}

// String returns the raw collection name.
func (c CollectionID) String() string { return c.value }

// DatabaseName derives the keyspace identifier "hoover3__<collection>" for this
// collection.
func (c CollectionID) DatabaseName() (DatabaseIdentifier, error) {
	return NewDatabaseIdentifier(fmt.Sprintf("%s__%s", DefaultKeyspacePrefix, c.value))
}

// DatabaseIdentifier is a validated database/keyspace identifier.
type DatabaseIdentifier struct {
	value string
}

// NewDatabaseIdentifier validates name and returns a DatabaseIdentifier, or
// ErrInvalidIdentifier.
//
// Rules: length 3-48, first character alphabetic, must not start with "system".
func NewDatabaseIdentifier(name string) (DatabaseIdentifier, error) {
	if len(name) < 3 || len(name) > 48 {
		return DatabaseIdentifier{}, fmt.Errorf("%w: database identifier %q must be 3-48 chars long", ErrInvalidIdentifier, name)
	}
	first := rune(name[0])
	if !isAlpha(first) {
		return DatabaseIdentifier{}, fmt.Errorf("%w: database identifier %q must start with a letter", ErrInvalidIdentifier, name)
	}
	if strings.HasPrefix(name, "system") {
		return DatabaseIdentifier{}, fmt.Errorf("%w: database identifier %q must not start with \"system\"", ErrInvalidIdentifier, name)
	}
	if !databasePattern.MatchString(name) {
		return DatabaseIdentifier{}, fmt.Errorf("%w: database identifier %q does not match %s", ErrInvalidIdentifier, name, databasePattern.String())
	}
	return DatabaseIdentifier{value: name}, nil
}

// String returns the raw database identifier.
func (d DatabaseIdentifier) String() string { return d.value }

func validateBasic(s string, min, max int, pattern *regexp.Regexp) error {
	if len(s) < min || len(s) > max {
		return fmt.Errorf("%w: identifier %q must be %d-%d chars long", ErrInvalidIdentifier, s, min, max)
	}
	if strings.Contains(s, "__") {
		return fmt.Errorf("%w: identifier %q must not contain a double underscore", ErrInvalidIdentifier, s)
	}
	if strings.HasPrefix(s, "system") {
		return fmt.Errorf("%w: identifier %q must not start with \"system\"", ErrInvalidIdentifier, s)
	}
	if !pattern.MatchString(s) {
		return fmt.Errorf("%w: identifier %q does not match %s", ErrInvalidIdentifier, s, pattern.String())
	}
	return nil
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// EdgeTypeName is a validated edge type identifier. It shares CollectionID's
// alphabet (lowercase alphanumeric plus underscore, no double underscore).
type EdgeTypeName struct {
	value string
}

// NewEdgeTypeName validates s as an edge type name.
func NewEdgeTypeName(s string) (EdgeTypeName, error) {
	if err := validateBasic(s, 3, 32, collectionPattern); err != nil {
		return EdgeTypeName{}, err
	}
	return EdgeTypeName{value: s}, nil
}

// String returns the raw edge type name.
func (e EdgeTypeName) String() string { return e.value }
