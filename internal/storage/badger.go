package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStorage implements Storage on top of BadgerDB.
type BadgerStorage struct {
	db *badger.DB
}

// NewBadgerStorage opens (creating if needed) a BadgerDB database at path.
func NewBadgerStorage(path string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // the core never logs; see SPEC_FULL.md ambient stack

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open badger db: %w", err)
	}

	return &BadgerStorage{db: db}, nil
}

// Begin starts a new transaction.
func (s *BadgerStorage) Begin(writable bool) (Transaction, error) {
	txn := s.db.NewTransaction(writable)
	return &badgerTransaction{txn: txn, writable: writable}, nil
}

// Close closes the database.
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

// Sync flushes writes to disk.
func (s *BadgerStorage) Sync() error {
	return s.db.Sync()
}

// badgerTransaction implements Transaction using a *badger.Txn. Badger's
// optimistic concurrency control (SSI) already gives us exactly the
// isolation spec.md §5 asks for: read-only transactions are pure
// snapshots that never enter another transaction's conflict set, and
// writable transactions detect write-write races at Commit time, which
// we surface as ErrConflict for RunTransaction to retry.
type badgerTransaction struct {
	txn      *badger.Txn
	writable bool
}

func (t *badgerTransaction) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var value []byte
	err = item.Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (t *badgerTransaction) Set(key, value []byte) error {
	if !t.writable {
		return ErrReadOnly
	}
	return t.txn.Set(key, value)
}

func (t *badgerTransaction) Clear(key []byte) error {
	if !t.writable {
		return ErrReadOnly
	}
	return t.txn.Delete(key)
}

// AtomicAdd performs a read-modify-write on the little-endian signed
// 64-bit counter at key. Badger has no FoundationDB-style lock-free
// atomic-add primitive, so this reads the current value, adds delta,
// and writes it back within the same transaction; badger's SSI conflict
// detection at Commit makes this safe under concurrent writers, exactly
// as §5 describes for "atomic add" at the KV contract level.
func (t *badgerTransaction) AtomicAdd(key []byte, delta int64) (int64, error) {
	if !t.writable {
		return 0, ErrReadOnly
	}

	current, err := t.Get(key)
	var value int64
	switch {
	case err == nil:
		if len(current) != 8 {
			return 0, fmt.Errorf("storage: counter at key has invalid width %d", len(current))
		}
		value = int64(binary.LittleEndian.Uint64(current))
	case err == ErrNotFound:
		value = 0
	default:
		return 0, err
	}

	value += delta

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(value))
	if err := t.txn.Set(key, buf); err != nil {
		return 0, err
	}
	return value, nil
}

func (t *badgerTransaction) Scan(begin, end []byte) (Iterator, error) {
	opts := badger.DefaultIteratorOptions
	it := t.txn.NewIterator(opts)
	return &badgerIterator{it: it, begin: begin, end: end}, nil
}

func (t *badgerTransaction) Commit() error {
	err := t.txn.Commit()
	if err == badger.ErrConflict {
		return ErrConflict
	}
	return err
}

func (t *badgerTransaction) Rollback() error {
	t.txn.Discard()
	return nil
}

// badgerIterator implements Iterator over a half-open byte range.
type badgerIterator struct {
	it       *badger.Iterator
	begin    []byte
	end      []byte
	started  bool
	hasValue bool
}

// Next advances to the next item.
func (i *badgerIterator) Next() bool {
	if !i.started {
		i.it.Seek(i.begin)
		i.started = true
	} else {
		i.it.Next()
	}

	if !i.it.Valid() {
		i.hasValue = false
		return false
	}

	if i.end != nil && bytes.Compare(i.it.Item().Key(), i.end) >= 0 {
		i.hasValue = false
		return false
	}

	i.hasValue = true
	return true
}

// Key returns the current key.
func (i *badgerIterator) Key() []byte {
	if !i.hasValue {
		return nil
	}
	return append([]byte{}, i.it.Item().Key()...)
}

// Value returns the current value.
func (i *badgerIterator) Value() ([]byte, error) {
	if !i.hasValue {
		return nil, ErrNotFound
	}
	var value []byte
	err := i.it.Item().Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Close releases the iterator.
func (i *badgerIterator) Close() error {
	i.it.Close()
	return nil
}
