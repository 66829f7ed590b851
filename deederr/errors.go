// Package deederr declares the recoverable error kinds the core raises
// across its public boundary.
package deederr

import errors "gopkg.in/src-d/go-errors.v1"

// ErrNotFound is returned where the contract does not allow an "absent"
// zero value instead (most lookups return ok=false rather than this).
var ErrNotFound = errors.NewKind("not found: %s")

// ErrUnknownCollection is raised when a plan names a collection that
// does not exist for an operation that requires it to.
var ErrUnknownCollection = errors.NewKind("unknown collection: %s")

// ErrUnsupportedOperation is raised when a plan's operation field is
// unrecognized.
var ErrUnsupportedOperation = errors.NewKind("unsupported operation: %s")

// ErrTypeMismatch is raised when lookup_range cannot compare its bounds
// against the index's value type and coercion is not possible. Filter
// comparisons during select/match never raise this: they reject the row.
var ErrTypeMismatch = errors.NewKind("type mismatch: %s")

// ErrInvariantViolation signals an internal consistency failure such as
// adjacency and the edge table disagreeing. It always surfaces; it is
// never a user error.
var ErrInvariantViolation = errors.NewKind("invariant violation: %s")
