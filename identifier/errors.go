package identifier

import "errors"

// ErrInvalidIdentifier is returned when a collection, database, or edge type name
// fails validation. It is never retriable: the caller must supply a corrected name.
var ErrInvalidIdentifier = errors.New("invalid identifier")
