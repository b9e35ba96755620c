// Package storage defines the ordered key-value contract the store core
// consumes (§6 of the spec): point reads, ranged snapshot scans, buffered
// set/clear, an atomic-add primitive, and transactions with automatic
// retry on conflict.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// ErrConflict is returned by Commit when the transaction lost a
// write-write race and should be retried from scratch.
var ErrConflict = errors.New("storage: transaction conflict")

// ErrReadOnly is returned by Set/Clear/AtomicAdd on a read-only
// transaction.
var ErrReadOnly = errors.New("storage: transaction is read-only")

// ErrTransactionTooLong is returned when a transaction's context deadline
// elapses before it commits.
var ErrTransactionTooLong = errors.New("storage: transaction exceeded its time budget")

// ErrMaxRetriesExceeded is returned when RunTransaction exhausts its
// retry budget without a successful commit.
var ErrMaxRetriesExceeded = errors.New("storage: exceeded maximum retry attempts")

// DefaultMaxRetries is the guideline bound on transaction attempts (§5).
const DefaultMaxRetries = 100

// DefaultTransactionBudget is the guideline wall-clock limit per
// transaction (§5).
const DefaultTransactionBudget = 5 * time.Second

// Storage is the KV engine handle: shareable across goroutines, freely
// reusable to start any number of transactions.
type Storage interface {
	// Begin starts a new transaction. Read-only transactions are
	// snapshot reads that never participate in conflict detection.
	Begin(writable bool) (Transaction, error)

	// Close releases the underlying engine.
	Close() error

	// Sync flushes buffered writes to stable storage.
	Sync() error
}

// Transaction is a single unit of work: a bounded set of reads and
// writes committed or discarded atomically. Reads observe this
// transaction's own prior writes.
type Transaction interface {
	// Get retrieves a value by key, or ErrNotFound if absent.
	Get(key []byte) ([]byte, error)

	// Set buffers a key/value write, visible to subsequent Gets in this
	// transaction and to other transactions only after Commit.
	Set(key, value []byte) error

	// Clear buffers a key removal.
	Clear(key []byte) error

	// AtomicAdd adds delta to the little-endian-stored signed 64-bit
	// integer at key (treating an absent key as 0) and returns the
	// resulting value. The read and write happen as part of this
	// transaction, so a subsequent Get of key within the same
	// transaction observes the post-add value.
	AtomicAdd(key []byte, delta int64) (int64, error)

	// Scan returns a snapshot iterator over keys in [begin, end).
	Scan(begin, end []byte) (Iterator, error)

	// Commit attempts to make the transaction's writes visible. It
	// returns ErrConflict if a concurrent writer raced it and the
	// caller should retry from scratch.
	Commit() error

	// Rollback discards the transaction. Safe to call after Commit
	// (no-op) and safe to call multiple times.
	Rollback() error
}

// Iterator streams key/value pairs over a range, in ascending key order.
type Iterator interface {
	// Next advances to the next pair, returning false when exhausted.
	Next() bool

	// Key returns the current key. Valid only after Next returns true.
	Key() []byte

	// Value returns the current value.
	Value() ([]byte, error)

	// Close releases the iterator's resources. Safe to call before
	// exhausting the range, to abort a streaming consumer early.
	Close() error
}

// RunTransaction runs fn inside a transaction, retrying automatically on
// ErrConflict for at most maxRetries attempts in all, and failing with
// ErrTransactionTooLong if ctx's deadline elapses first. fn's returned
// error (other than ErrConflict) aborts the transaction and propagates
// unchanged.
func RunTransaction(ctx context.Context, db Storage, writable bool, maxRetries int, fn func(Transaction) error) error {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionBudget)
	defer cancel()

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return ErrTransactionTooLong
		}

		txn, err := db.Begin(writable)
		if err != nil {
			return err
		}

		if err := fn(txn); err != nil {
			_ = txn.Rollback()
			if errors.Is(err, ErrConflict) {
				continue
			}
			return err
		}

		if err := ctx.Err(); err != nil {
			_ = txn.Rollback()
			return ErrTransactionTooLong
		}

		err = txn.Commit()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrConflict) {
			continue
		}
		return err
	}
	return ErrMaxRetriesExceeded
}
