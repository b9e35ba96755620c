package store

import "github.com/aleksaelezovic/tristore/internal/errs"

// Sentinel errors returned by Store methods. Callers should compare with
// errors.Is, since operations wrap these with additional context.
var (
	// ErrInvalidURI is returned when a Triple or Pattern carries an empty
	// URI in a bound position.
	ErrInvalidURI = errs.ErrInvalidURI

	// ErrDanglingID means the store's on-disk state is corrupt: an index
	// entry referenced a dictionary ID with no corresponding URI.
	ErrDanglingID = errs.ErrDanglingID

	// ErrCorruptKey means an index key failed to decode against its
	// expected shape.
	ErrCorruptKey = errs.ErrCorruptKey

	// ErrTransactionTooLarge means InsertBatch was given a triple whose
	// own URIs exceed the per-transaction payload ceiling on their own.
	ErrTransactionTooLarge = errs.ErrTransactionTooLarge

	// ErrTransactionTooLong means an operation's context deadline elapsed
	// before its transaction could commit.
	ErrTransactionTooLong = errs.ErrTransactionTooLong

	// ErrMaxRetriesExceeded means an operation exhausted its retry budget
	// on a persistent write-write conflict.
	ErrMaxRetriesExceeded = errs.ErrMaxRetriesExceeded
)
