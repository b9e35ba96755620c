// Package store implements the Store Facade of spec §4.5: the public
// entry point wiring the Key Codec, Dictionary, Index Set, and Query
// Engine into Insert/InsertBatch/Delete/Contains/Count/Query.
// Insert/Delete/Contains/Count each run as a single retry-safe
// transaction, InsertBatch as one per chunk, and Query as one read-only
// snapshot transaction held by its Cursor. Grounded on the teacher's TripleStore
// (internal/store/store.go): Begin/defer-Rollback/Commit per operation,
// generalized to route through storage.RunTransaction for the automatic
// conflict-retry loop spec §5 requires, which the teacher's single-shot
// BadgerDB transactions didn't need.
package store

import (
	"context"
	"fmt"

	"github.com/aleksaelezovic/tristore/internal/dictionary"
	"github.com/aleksaelezovic/tristore/internal/errs"
	"github.com/aleksaelezovic/tristore/internal/index"
	"github.com/aleksaelezovic/tristore/internal/query"
	"github.com/aleksaelezovic/tristore/internal/schema"
	"github.com/aleksaelezovic/tristore/internal/storage"
)

// Triple is an (subject, predicate, object) triple of opaque URI strings.
type Triple = query.Triple

// Pattern is a triple pattern with optional bound components; a nil
// field is unbound and matches any value in that position.
type Pattern = query.Pattern

// maxBatchTriples bounds how many triples InsertBatch folds into a
// single underlying transaction before starting a new one, independent
// of the byte-ceiling check (§4.5, §9: large batches are chunked rather
// than rejected outright).
const maxBatchTriples = 1000

// maxBatchBytes is the approximate payload ceiling per chunk; a single
// triple's three URIs overshooting it on their own is the one case that
// surfaces as ErrTransactionTooLarge instead of being chunked away.
const maxBatchBytes = 10 << 20

// Store is the public handle onto a triple store backed by an ordered
// key-value engine. The zero value is not usable; construct with New.
type Store struct {
	db     storage.Storage
	schema *schema.Schema
	dict   *dictionary.Dictionary
}

// New returns a Store rooted at rootPrefix within db's key space, so
// that multiple logical stores can share one physical KV engine.
func New(db storage.Storage, rootPrefix string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil storage", errs.ErrInternal)
	}
	s := schema.New([]byte(rootPrefix))
	return &Store{db: db, schema: s, dict: dictionary.New(s)}, nil
}

// Close releases the underlying storage engine.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert adds a triple, interning any URIs not yet known. Re-inserting
// an existing triple is a no-op.
func (s *Store) Insert(ctx context.Context, t Triple) error {
	// Each retry attempt gets its own Scratch (§9 design choice (a)): a
	// retry must never trust IDs a losing, rolled-back attempt allocated.
	// attemptScratch is only ever merged into the Dictionary's persistent
	// cache below, after RunTransaction reports that this attempt's own
	// commit actually succeeded.
	var attemptScratch *dictionary.Scratch
	err := storage.RunTransaction(ctx, s.db, true, storage.DefaultMaxRetries, func(txn storage.Transaction) error {
		attemptScratch = dictionary.NewScratch()
		return s.insertInTxn(txn, attemptScratch, t)
	})
	if err != nil {
		return wrapRunErr(err)
	}
	s.dict.Commit(attemptScratch)
	return nil
}

func (s *Store) insertInTxn(txn storage.Transaction, scratch *dictionary.Scratch, t Triple) error {
	sID, err := s.dict.Intern(txn, scratch, t.Subject)
	if err != nil {
		return err
	}
	pID, err := s.dict.Intern(txn, scratch, t.Predicate)
	if err != nil {
		return err
	}
	oID, err := s.dict.Intern(txn, scratch, t.Object)
	if err != nil {
		return err
	}
	return index.Insert(txn, s.schema, sID, pID, oID)
}

// InsertBatch inserts many triples, chunking the work across several
// transactions so a single batch cannot exceed the underlying engine's
// per-transaction payload ceiling. A single triple whose own URIs
// already exceed that ceiling fails with ErrTransactionTooLarge rather
// than being silently dropped.
func (s *Store) InsertBatch(ctx context.Context, triples []Triple) error {
	for start := 0; start < len(triples); {
		end, err := nextChunkEnd(triples, start)
		if err != nil {
			return err
		}
		chunk := triples[start:end]
		// See Insert: a fresh Scratch per attempt, merged only after that
		// attempt's own commit succeeds.
		var attemptScratch *dictionary.Scratch
		runErr := storage.RunTransaction(ctx, s.db, true, storage.DefaultMaxRetries, func(txn storage.Transaction) error {
			attemptScratch = dictionary.NewScratch()
			for _, t := range chunk {
				if err := s.insertInTxn(txn, attemptScratch, t); err != nil {
					return err
				}
			}
			return nil
		})
		if runErr != nil {
			return wrapRunErr(runErr)
		}
		s.dict.Commit(attemptScratch)
		start = end
	}
	return nil
}

// nextChunkEnd returns the exclusive end index of the next chunk
// starting at start, bounded by maxBatchTriples and maxBatchBytes.
func nextChunkEnd(triples []Triple, start int) (int, error) {
	size := 0
	end := start
	for end < len(triples) && end-start < maxBatchTriples {
		tripleBytes := len(triples[end].Subject) + len(triples[end].Predicate) + len(triples[end].Object)
		if tripleBytes > maxBatchBytes {
			return 0, fmt.Errorf("%w: single triple at index %d exceeds the per-transaction payload ceiling", errs.ErrTransactionTooLarge, end)
		}
		if end > start && size+tripleBytes > maxBatchBytes {
			break
		}
		size += tripleBytes
		end++
	}
	return end, nil
}

// Delete removes a triple. Deleting an absent triple is a no-op.
func (s *Store) Delete(ctx context.Context, t Triple) error {
	err := storage.RunTransaction(ctx, s.db, true, storage.DefaultMaxRetries, func(txn storage.Transaction) error {
		sID, ok, err := s.dict.LookupID(txn, nil, t.Subject)
		if err != nil || !ok {
			return err
		}
		pID, ok, err := s.dict.LookupID(txn, nil, t.Predicate)
		if err != nil || !ok {
			return err
		}
		oID, ok, err := s.dict.LookupID(txn, nil, t.Object)
		if err != nil || !ok {
			return err
		}
		return index.Delete(txn, s.schema, sID, pID, oID)
	})
	return wrapRunErr(err)
}

// Contains reports whether a triple is currently present.
func (s *Store) Contains(ctx context.Context, t Triple) (bool, error) {
	var present bool
	err := storage.RunTransaction(ctx, s.db, false, storage.DefaultMaxRetries, func(txn storage.Transaction) error {
		sID, ok, err := s.dict.LookupID(txn, nil, t.Subject)
		if err != nil || !ok {
			return err
		}
		pID, ok, err := s.dict.LookupID(txn, nil, t.Predicate)
		if err != nil || !ok {
			return err
		}
		oID, ok, err := s.dict.LookupID(txn, nil, t.Object)
		if err != nil || !ok {
			return err
		}
		present, err = index.Contains(txn, s.schema, sID, pID, oID)
		return err
	})
	if err != nil {
		return false, wrapRunErr(err)
	}
	return present, nil
}

// Count returns the current number of triples in the store.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	var count int64
	err := storage.RunTransaction(ctx, s.db, false, storage.DefaultMaxRetries, func(txn storage.Transaction) error {
		var err error
		count, err = index.Count(txn, s.schema)
		return err
	})
	if err != nil {
		return 0, wrapRunErr(err)
	}
	return uint64(count), nil
}

// Cursor streams triples matching a Query pattern. It must be Closed
// when done, including when abandoned before exhaustion, to release its
// underlying snapshot transaction.
type Cursor struct {
	txn storage.Transaction
	cur *query.Cursor
}

// Next advances to the next matching triple.
func (c *Cursor) Next() bool {
	return c.cur.Next()
}

// Triple decodes and resolves the current row. Call only after Next
// returns true.
func (c *Cursor) Triple() (Triple, error) {
	return c.cur.Triple()
}

// Close releases the cursor's snapshot transaction.
func (c *Cursor) Close() error {
	cerr := c.cur.Close()
	rerr := c.txn.Rollback()
	if cerr != nil {
		return cerr
	}
	return rerr
}

// Query opens a streaming cursor over all triples matching pattern. The
// returned Cursor holds a live read-only snapshot transaction and must
// be Closed by the caller.
func (s *Store) Query(ctx context.Context, pattern Pattern) (*Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn, err := s.db.Begin(false)
	if err != nil {
		return nil, err
	}
	cur, err := query.Open(txn, s.schema, s.dict, pattern)
	if err != nil {
		_ = txn.Rollback()
		return nil, err
	}
	return &Cursor{txn: txn, cur: cur}, nil
}

// wrapRunErr translates storage-level retry/timeout sentinels to their
// public errs counterparts.
func wrapRunErr(err error) error {
	switch err {
	case nil:
		return nil
	case storage.ErrMaxRetriesExceeded:
		return errs.ErrMaxRetriesExceeded
	case storage.ErrTransactionTooLong:
		return errs.ErrTransactionTooLong
	default:
		return err
	}
}
