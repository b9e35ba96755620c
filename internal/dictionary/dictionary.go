// Package dictionary implements the Dictionary of §4.2: interning URIs to
// monotonically allocated 64-bit IDs, with a bidirectional in-memory
// cache shared across transactions and protected by a mutex (§3's
// ownership rule: the Dictionary owns the cache, nothing else mutates
// it). Grounded on the teacher's storeString dedup-before-write pattern
// in internal/store/store.go, generalized to the bidirectional
// URI<->ID scheme and monotonic counter this spec requires instead of
// content hashing.
package dictionary

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/aleksaelezovic/tristore/internal/errs"
	"github.com/aleksaelezovic/tristore/internal/schema"
	"github.com/aleksaelezovic/tristore/internal/storage"
)

// Dictionary interns URIs within transactions supplied by its caller; it
// holds no transaction of its own.
type Dictionary struct {
	schema *schema.Schema

	mu  sync.RWMutex
	u2i map[string]uint64
	i2u map[uint64]string
}

// New returns a Dictionary backed by the given key schema.
func New(s *schema.Schema) *Dictionary {
	return &Dictionary{
		schema: s,
		u2i:    make(map[string]uint64),
		i2u:    make(map[uint64]string),
	}
}

// Scratch accumulates URI->ID mappings discovered or allocated during one
// transaction attempt. It is populated eagerly within the attempt but
// only merged into the Dictionary's persistent cache after that attempt's
// transaction actually commits (§9's design choice (a)): if the attempt
// is retried, the caller must start a fresh Scratch, so a write path
// can never "skip" the KV lookup/allocation by trusting a premature
// cache entry from an aborted attempt.
type Scratch struct {
	u2i map[string]uint64
}

// NewScratch returns an empty per-attempt scratch map.
func NewScratch() *Scratch {
	return &Scratch{u2i: make(map[string]uint64)}
}

// Commit merges a successful attempt's scratch mappings into the
// persistent cache. Call this only after the transaction that produced
// scratch has committed.
func (d *Dictionary) Commit(scratch *Scratch) {
	if scratch == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for uri, id := range scratch.u2i {
		d.u2i[uri] = id
		d.i2u[id] = uri
	}
}

// Intern returns uri's ID within txn, allocating a new one on first
// encounter. scratch may be nil for callers outside a retried-attempt
// context (e.g. tests exercising a single successful transaction).
func (d *Dictionary) Intern(txn storage.Transaction, scratch *Scratch, uri string) (uint64, error) {
	if uri == "" {
		return 0, errs.ErrInvalidURI
	}

	if id, ok := d.cached(scratch, uri); ok {
		return id, nil
	}

	u2iKey := d.schema.U2IKey(uri)
	val, err := txn.Get(u2iKey)
	switch {
	case err == nil:
		if len(val) != 8 {
			return 0, fmt.Errorf("%w: u2i entry for %q has invalid width %d", errs.ErrInternal, uri, len(val))
		}
		id := binary.LittleEndian.Uint64(val)
		d.remember(scratch, uri, id)
		return id, nil
	case err != storage.ErrNotFound:
		return 0, err
	}

	newVal, err := txn.AtomicAdd(d.schema.CounterKey(), 1)
	if err != nil {
		return 0, err
	}
	if newVal <= 0 {
		return 0, fmt.Errorf("%w: ID counter produced non-positive value %d", errs.ErrInternal, newVal)
	}
	id := uint64(newVal)

	idBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(idBuf, id)
	if err := txn.Set(u2iKey, idBuf); err != nil {
		return 0, err
	}
	if err := txn.Set(d.schema.I2UKey(id), []byte(uri)); err != nil {
		return 0, err
	}

	d.remember(scratch, uri, id)
	return id, nil
}

// LookupID returns uri's ID if it has ever been interned, without
// allocating one.
func (d *Dictionary) LookupID(txn storage.Transaction, scratch *Scratch, uri string) (uint64, bool, error) {
	if uri == "" {
		return 0, false, errs.ErrInvalidURI
	}

	if id, ok := d.cached(scratch, uri); ok {
		return id, true, nil
	}

	val, err := txn.Get(d.schema.U2IKey(uri))
	if err == storage.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(val) != 8 {
		return 0, false, fmt.Errorf("%w: u2i entry for %q has invalid width %d", errs.ErrInternal, uri, len(val))
	}
	id := binary.LittleEndian.Uint64(val)
	d.remember(scratch, uri, id)
	return id, true, nil
}

// LookupURI resolves id back to its URI. Unlike Intern/LookupID this is
// always safe to cache immediately: an i2u row, once written, never
// changes, so there is no premature-cache hazard on the read path.
func (d *Dictionary) LookupURI(txn storage.Transaction, id uint64) (string, error) {
	d.mu.RLock()
	if uri, ok := d.i2u[id]; ok {
		d.mu.RUnlock()
		return uri, nil
	}
	d.mu.RUnlock()

	val, err := txn.Get(d.schema.I2UKey(id))
	if err == storage.ErrNotFound {
		return "", fmt.Errorf("%w: no i2u entry for ID %d", errs.ErrDanglingID, id)
	}
	if err != nil {
		return "", err
	}
	uri := string(val)

	d.mu.Lock()
	d.i2u[id] = uri
	d.u2i[uri] = id
	d.mu.Unlock()

	return uri, nil
}

func (d *Dictionary) cached(scratch *Scratch, uri string) (uint64, bool) {
	if scratch != nil {
		if id, ok := scratch.u2i[uri]; ok {
			return id, true
		}
	}
	d.mu.RLock()
	id, ok := d.u2i[uri]
	d.mu.RUnlock()
	if ok && scratch != nil {
		scratch.u2i[uri] = id
	}
	return id, ok
}

func (d *Dictionary) remember(scratch *Scratch, uri string, id uint64) {
	if scratch != nil {
		scratch.u2i[uri] = id
	}
}
