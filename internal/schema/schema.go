// Package schema builds on pkg/tuple to implement the concrete key shapes
// of the store: dictionary keys (URI<->ID, ID counter), index keys (one
// per covering index), and the triple-count key. All keys live under a
// caller-supplied root prefix so that multiple logical stores can share
// one physical key-value namespace.
package schema

import (
	"fmt"

	"github.com/aleksaelezovic/tristore/pkg/tuple"
)

// IndexTag identifies one of the four covering indexes.
type IndexTag string

const (
	SPO IndexTag = "spo"
	PSO IndexTag = "pso"
	POS IndexTag = "pos"
	OSP IndexTag = "osp"
)

// indexOrder returns, for a tag, the order in which (s, p, o) appear in
// its key — e.g. PSO keys are (p, s, o).
func indexOrder(tag IndexTag) ([3]int, error) {
	// position indices refer to (s=0, p=1, o=2)
	switch tag {
	case SPO:
		return [3]int{0, 1, 2}, nil
	case PSO:
		return [3]int{1, 0, 2}, nil
	case POS:
		return [3]int{1, 2, 0}, nil
	case OSP:
		return [3]int{2, 0, 1}, nil
	default:
		return [3]int{}, fmt.Errorf("schema: unknown index tag %q", tag)
	}
}

// Schema namespaces all keys under root.
type Schema struct {
	root []byte
}

// New returns a Schema rooted at the given prefix.
func New(root []byte) *Schema {
	return &Schema{root: append([]byte(nil), root...)}
}

// U2IKey returns the URI->ID dictionary key for uri.
func (s *Schema) U2IKey(uri string) []byte {
	return tuple.Encode(tuple.Bytes(s.root), tuple.Bytes("dict"), tuple.Bytes("u2i"), tuple.Bytes(uri))
}

// I2UKey returns the ID->URI dictionary key for id.
func (s *Schema) I2UKey(id uint64) []byte {
	return tuple.Encode(tuple.Bytes(s.root), tuple.Bytes("dict"), tuple.Bytes("i2u"), tuple.Int(int64(id)))
}

// CounterKey returns the monotonic ID-allocation counter key.
func (s *Schema) CounterKey() []byte {
	return tuple.Encode(tuple.Bytes(s.root), tuple.Bytes("dict"), tuple.Bytes("cnt"))
}

// TripleCountKey returns the key holding the store's triple count.
func (s *Schema) TripleCountKey() []byte {
	return tuple.Encode(tuple.Bytes(s.root), tuple.Bytes("meta"), tuple.Bytes("cnt"))
}

// IndexKey returns the key for one index entry given the (s, p, o) IDs.
func (s *Schema) IndexKey(tag IndexTag, sID, pID, oID uint64) ([]byte, error) {
	order, err := indexOrder(tag)
	if err != nil {
		return nil, err
	}
	ids := [3]uint64{sID, pID, oID}
	return tuple.Encode(
		tuple.Bytes(s.root), tuple.Bytes("idx"), tuple.Bytes(string(tag)),
		tuple.Int(int64(ids[order[0]])), tuple.Int(int64(ids[order[1]])), tuple.Int(int64(ids[order[2]])),
	), nil
}

// IndexRange returns the half-open byte range [begin, end) for a scan of
// the given index with a prefix of zero to three bound IDs, supplied in
// that index's own key order (not necessarily s,p,o order).
func (s *Schema) IndexRange(tag IndexTag, prefix ...uint64) ([]byte, []byte, error) {
	if _, err := indexOrder(tag); err != nil {
		return nil, nil, err
	}
	elems := []tuple.Elem{tuple.Bytes(s.root), tuple.Bytes("idx"), tuple.Bytes(string(tag))}
	for _, id := range prefix {
		elems = append(elems, tuple.Int(int64(id)))
	}
	begin, end := tuple.Range(elems...)
	return begin, end, nil
}

// DecodeIndexKey strips the root/idx/tag prefix from key and decodes the
// three trailing signed 64-bit IDs, returning them in (s, p, o) order
// regardless of the index's on-disk permutation.
func (s *Schema) DecodeIndexKey(key []byte, tag IndexTag) (sID, pID, oID uint64, err error) {
	order, err := indexOrder(tag)
	if err != nil {
		return 0, 0, 0, err
	}
	elems, err := tuple.Decode(key)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("schema: %w", err)
	}
	if len(elems) != 6 {
		return 0, 0, 0, fmt.Errorf("schema: index key has %d elements, want 6", len(elems))
	}
	rootB, ok := elems[0].(tuple.Bytes)
	if !ok || string(rootB) != string(s.root) {
		return 0, 0, 0, fmt.Errorf("schema: index key has mismatched root prefix")
	}
	subspace, ok := elems[1].(tuple.Bytes)
	if !ok || string(subspace) != "idx" {
		return 0, 0, 0, fmt.Errorf("schema: index key missing idx subspace")
	}
	gotTag, ok := elems[2].(tuple.Bytes)
	if !ok || IndexTag(gotTag) != tag {
		return 0, 0, 0, fmt.Errorf("schema: index key tag mismatch")
	}
	var ids [3]uint64
	for i := 0; i < 3; i++ {
		v, ok := elems[3+i].(tuple.Int)
		if !ok {
			return 0, 0, 0, fmt.Errorf("schema: index key element %d is not an integer", i)
		}
		ids[i] = uint64(int64(v))
	}
	// ids is in the index's own key order; un-permute back to (s,p,o).
	var spo [3]uint64
	for keyPos, logicalPos := range order {
		spo[logicalPos] = ids[keyPos]
	}
	return spo[0], spo[1], spo[2], nil
}

// AllTags lists every covering index, in the order mutations must touch
// them.
var AllTags = []IndexTag{SPO, PSO, POS, OSP}

// KeyOrder exposes, for a tag, the order in which the logical (s, p, o)
// positions appear in that index's on-disk key — e.g. POS is (p, o, s),
// so KeyOrder(POS) is [1, 2, 0]. The Query Engine uses this to build
// scan prefixes in the right order for whichever index it selects.
func KeyOrder(tag IndexTag) ([3]int, error) {
	return indexOrder(tag)
}
