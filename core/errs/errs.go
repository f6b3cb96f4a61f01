// Package errs collects the error kinds named in the protocol's error
// handling design: compile-time SQL errors, circuit validation errors,
// runtime protocol errors, and share-ingest errors. Each kind is a
// sentinel; wrapper structs carry the offending context.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedSQL is returned when a query does not match the
	// restricted grammar SELECT <agg>(<col>) FROM <table> [WHERE <col> (= | !=) <literal>].
	ErrUnsupportedSQL = errors.New("unsupported sql")

	// ErrUnsupportedAggregate is returned for aggregates that are
	// reserved but not yet implemented (Sum, Avg).
	ErrUnsupportedAggregate = errors.New("unsupported aggregate")

	// ErrCircuitValidation is returned when a circuit fails topological
	// or single-write validation before any network I/O occurs.
	ErrCircuitValidation = errors.New("circuit validation failed")

	// ErrProtocolDesync is returned when a gate sequence number
	// observed on a transport channel does not match the expected
	// in-order value.
	ErrProtocolDesync = errors.New("protocol desync")

	// ErrTimeout is returned when a query's deadline elapses while
	// waiting on a transport send/recv.
	ErrTimeout = errors.New("timeout")

	// ErrTransportFailure is returned when a channel send/recv fails
	// for a reason other than a deadline.
	ErrTransportFailure = errors.New("transport failure")

	// ErrInvalidShareSet is returned when a reconstruction is attempted
	// from share components that do not cover the index set {1,2,3}.
	ErrInvalidShareSet = errors.New("invalid share set")

	// ErrSchemaMismatch is returned when submitted party data does not
	// match the previously registered table schema.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrDuplicateSubmission is returned when a share submission reuses
	// an (owner_id, table_id, submission_timestamp) key already seen.
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrInvalidPartyID is returned when BinaryPartyData names a party
	// index outside {0,1,2}.
	ErrInvalidPartyID = errors.New("invalid party id")

	// ErrRandomnessExhausted is returned if the correlated-randomness
	// counter space is exceeded. Treated as unreachable for realistic
	// queries.
	ErrRandomnessExhausted = errors.New("randomness exhausted")
)

// QueryError wraps one of the sentinels above with the query_id it
// occurred in, so callers can log and correlate failures across the
// three nodes.
type QueryError struct {
	error
	QueryID string
}

// NewQueryError annotates err with the query it belongs to.
func NewQueryError(queryID string, err error) error {
	return QueryError{fmt.Errorf("query %s: %w", queryID, err), queryID}
}

// Unwrap exposes the wrapped sentinel to errors.Is/errors.As.
func (e QueryError) Unwrap() error {
	return errors.Unwrap(e.error)
}
