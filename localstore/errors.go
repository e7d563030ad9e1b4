package localstore

import "errors"

// Error taxonomy for the local store. Callers are expected to test with
// errors.Is; every error returned by this package wraps one of these or a
// driver error.
var (
	// ErrNotFound is returned by FindByID-style lookups when no row matches.
	// Discovery finders (FindByPhone, FindBySKU, ...) return a boolean
	// instead and never produce ErrNotFound.
	ErrNotFound = errors.New("row not found")

	// ErrMalformedRow is returned when a JSON-encoded column cannot be
	// decoded. The read fails; the codec never substitutes defaults for
	// corrupt data.
	ErrMalformedRow = errors.New("malformed row")

	// ErrTxRetryExhausted is returned when an exclusive transaction kept
	// hitting lock contention past the retry budget.
	ErrTxRetryExhausted = errors.New("transaction retry budget exhausted")

	// ErrPushFailed is returned when the remote endpoint did not
	// acknowledge a pushed batch. The batch stays pending as one unit.
	ErrPushFailed = errors.New("push_failed")

	// ErrTableNotRegistered is returned when an operation names a table
	// that is not in the entity registry.
	ErrTableNotRegistered = errors.New("table not registered")
)
