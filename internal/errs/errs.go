// Package errs defines the tagged error kinds of §7: sentinel values that
// call sites wrap with fmt.Errorf("...: %w", errs.X) and callers test
// with errors.Is. Triple-not-found is deliberately absent — delete and
// insert are idempotent, so "the triple wasn't there" is success, not an
// error.
package errs

import "errors"

var (
	// ErrInvalidURI is returned for an empty URI at a public entry point.
	ErrInvalidURI = errors.New("tristore: invalid URI (empty)")

	// ErrDanglingID means an index entry referenced an ID with no
	// corresponding i2u dictionary row — store corruption.
	ErrDanglingID = errors.New("tristore: dangling dictionary ID")

	// ErrCorruptKey means an index key failed to decode against its
	// expected shape.
	ErrCorruptKey = errors.New("tristore: corrupt index key")

	// ErrTransactionTooLong means a transaction's wall-clock budget
	// elapsed before it could commit.
	ErrTransactionTooLong = errors.New("tristore: transaction exceeded its time budget")

	// ErrTransactionTooLarge means a batch would exceed the KV store's
	// per-transaction payload ceiling.
	ErrTransactionTooLarge = errors.New("tristore: batch exceeds transaction payload ceiling")

	// ErrMaxRetriesExceeded means the KV store exhausted its retry
	// budget on a retriable conflict.
	ErrMaxRetriesExceeded = errors.New("tristore: exceeded maximum retry attempts")

	// ErrInternal marks an invariant violation — a bug signal, not an
	// expected runtime condition.
	ErrInternal = errors.New("tristore: internal invariant violation")
)
