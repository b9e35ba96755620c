// Package query implements the Query Engine of §4.4: choosing the
// optimal covering index for a pattern, building the scan range,
// streaming matching keys, and rehydrating triples through the
// Dictionary. Adapted from the teacher's selectIndex/buildScanPrefix/
// quadIterator (internal/store/query.go), reduced from the 6-way
// graph-aware selection to the 8-row table spec.md §4.4 specifies.
package query

import (
	"fmt"

	"github.com/aleksaelezovic/tristore/internal/dictionary"
	"github.com/aleksaelezovic/tristore/internal/errs"
	"github.com/aleksaelezovic/tristore/internal/schema"
	"github.com/aleksaelezovic/tristore/internal/storage"
)

// Triple is an (subject, predicate, object) triple of URIs.
type Triple struct {
	Subject, Predicate, Object string
}

// Pattern is a triple pattern with optional bound components; a nil
// field is unbound.
type Pattern struct {
	Subject, Predicate, Object *string
}

// selectIndex picks the covering index and the prefix length for a
// pattern's boundness, per the table in spec.md §4.4. postFilterObject
// is true only for the one pattern with no pure-prefix index
// (s bound, p unbound, o bound), which scans SPO on s and filters o.
func selectIndex(sBound, pBound, oBound bool) (tag schema.IndexTag, prefixLen int, postFilterObject bool) {
	switch {
	case sBound && pBound && oBound:
		return schema.SPO, 3, false
	case sBound && pBound:
		return schema.SPO, 2, false
	case sBound && oBound:
		return schema.SPO, 1, true
	case sBound:
		return schema.SPO, 1, false
	case pBound && oBound:
		return schema.POS, 2, false
	case pBound:
		return schema.PSO, 1, false
	case oBound:
		return schema.OSP, 1, false
	default:
		return schema.SPO, 0, false
	}
}

// Cursor streams triples matching a pattern in the selected index's key
// order. It must be Closed when done, including when abandoned before
// exhaustion.
type Cursor struct {
	txn          storage.Transaction
	it           storage.Iterator
	schema       *schema.Schema
	dict         *dictionary.Dictionary
	tag          schema.IndexTag
	filterObject *uint64
	pendingErr   error
	closed       bool
	empty        bool
}

// Open resolves any bound URIs, selects an index, and begins a snapshot
// scan over the matching key range. If a bound URI was never interned,
// the result set is empty (per §4.4 step 1) and Open succeeds with a
// Cursor that immediately reports no rows, without interning anything.
func Open(txn storage.Transaction, s *schema.Schema, dict *dictionary.Dictionary, pattern Pattern) (*Cursor, error) {
	sBound, pBound, oBound := pattern.Subject != nil, pattern.Predicate != nil, pattern.Object != nil

	var sID, pID, oID uint64
	var ok bool
	var err error

	if sBound {
		if sID, ok, err = dict.LookupID(txn, nil, *pattern.Subject); err != nil {
			return nil, err
		} else if !ok {
			return &Cursor{empty: true}, nil
		}
	}
	if pBound {
		if pID, ok, err = dict.LookupID(txn, nil, *pattern.Predicate); err != nil {
			return nil, err
		} else if !ok {
			return &Cursor{empty: true}, nil
		}
	}
	if oBound {
		if oID, ok, err = dict.LookupID(txn, nil, *pattern.Object); err != nil {
			return nil, err
		} else if !ok {
			return &Cursor{empty: true}, nil
		}
	}

	tag, prefixLen, postFilterObject := selectIndex(sBound, pBound, oBound)

	order, err := schema.KeyOrder(tag)
	if err != nil {
		return nil, err
	}
	spo := [3]uint64{sID, pID, oID}
	// order[i] tells us which logical (s=0,p=1,o=2) position sits at key
	// position i; build the prefix in that key order.
	prefix := make([]uint64, prefixLen)
	for i := 0; i < prefixLen; i++ {
		prefix[i] = spo[order[i]]
	}

	begin, end, err := s.IndexRange(tag, prefix...)
	if err != nil {
		return nil, err
	}

	it, err := txn.Scan(begin, end)
	if err != nil {
		return nil, err
	}

	c := &Cursor{txn: txn, it: it, schema: s, dict: dict, tag: tag}
	if postFilterObject {
		o := oID
		c.filterObject = &o
	}
	return c, nil
}

// Next advances to the next matching triple, applying the post-filter
// (if any) transparently. It returns false when the scan is exhausted or
// the cursor was opened empty.
func (c *Cursor) Next() bool {
	if c.empty || c.closed || c.it == nil {
		return false
	}
	for c.it.Next() {
		if c.filterObject == nil {
			return true
		}
		_, _, oID, err := c.schema.DecodeIndexKey(c.it.Key(), c.tag)
		if err != nil {
			// A decode failure surfaces on the next Triple() call instead
			// of being silently skipped.
			c.pendingErr = fmt.Errorf("%w: %v", errs.ErrCorruptKey, err)
			return true
		}
		if oID == *c.filterObject {
			return true
		}
	}
	return false
}

// Triple decodes and resolves the current row. Call only after Next
// returns true.
func (c *Cursor) Triple() (Triple, error) {
	if c.pendingErr != nil {
		err := c.pendingErr
		c.pendingErr = nil
		return Triple{}, err
	}

	sID, pID, oID, err := c.schema.DecodeIndexKey(c.it.Key(), c.tag)
	if err != nil {
		return Triple{}, fmt.Errorf("%w: %v", errs.ErrCorruptKey, err)
	}

	subject, err := c.dict.LookupURI(c.txn, sID)
	if err != nil {
		return Triple{}, err
	}
	predicate, err := c.dict.LookupURI(c.txn, pID)
	if err != nil {
		return Triple{}, err
	}
	object, err := c.dict.LookupURI(c.txn, oID)
	if err != nil {
		return Triple{}, err
	}

	return Triple{Subject: subject, Predicate: predicate, Object: object}, nil
}

// Close releases the underlying iterator, aborting the scan cleanly if
// called before exhaustion.
func (c *Cursor) Close() error {
	if c.closed || c.it == nil {
		c.closed = true
		return nil
	}
	c.closed = true
	return c.it.Close()
}
