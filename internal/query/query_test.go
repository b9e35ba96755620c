package query

import (
	"context"
	"testing"

	"github.com/aleksaelezovic/tristore/internal/dictionary"
	"github.com/aleksaelezovic/tristore/internal/index"
	"github.com/aleksaelezovic/tristore/internal/schema"
	"github.com/aleksaelezovic/tristore/internal/storage"
)

type fixture struct {
	schema *schema.Schema
	dict   *dictionary.Dictionary
	db     storage.Storage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.NewBadgerStorage(t.TempDir())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s := schema.New([]byte("root"))
	return &fixture{schema: s, dict: dictionary.New(s), db: db}
}

func (f *fixture) insert(t *testing.T, subj, pred, obj string) {
	t.Helper()
	scratch := dictionary.NewScratch()
	err := storage.RunTransaction(context.Background(), f.db, true, 1, func(txn storage.Transaction) error {
		sID, err := f.dict.Intern(txn, scratch, subj)
		if err != nil {
			return err
		}
		pID, err := f.dict.Intern(txn, scratch, pred)
		if err != nil {
			return err
		}
		oID, err := f.dict.Intern(txn, scratch, obj)
		if err != nil {
			return err
		}
		return index.Insert(txn, f.schema, sID, pID, oID)
	})
	if err != nil {
		t.Fatalf("insert %s %s %s: %v", subj, pred, obj, err)
	}
	f.dict.Commit(scratch)
}

func strPtr(s string) *string { return &s }

func (f *fixture) queryAll(t *testing.T, pattern Pattern) []Triple {
	t.Helper()
	var results []Triple
	err := storage.RunTransaction(context.Background(), f.db, false, 1, func(txn storage.Transaction) error {
		cur, err := Open(txn, f.schema, f.dict, pattern)
		if err != nil {
			return err
		}
		defer cur.Close()
		for cur.Next() {
			tr, err := cur.Triple()
			if err != nil {
				return err
			}
			results = append(results, tr)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	return results
}

func TestQueryBySubject(t *testing.T) {
	f := newFixture(t)
	f.insert(t, "alice", "knows", "bob")
	f.insert(t, "alice", "knows", "charlie")
	f.insert(t, "bob", "knows", "alice")

	got := f.queryAll(t, Pattern{Subject: strPtr("alice")})
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d: %v", len(got), got)
	}
	for _, tr := range got {
		if tr.Subject != "alice" {
			t.Errorf("expected subject alice, got %+v", tr)
		}
	}
}

func TestQueryByObject(t *testing.T) {
	f := newFixture(t)
	f.insert(t, "alice", "knows", "bob")
	f.insert(t, "alice", "knows", "charlie")
	f.insert(t, "bob", "knows", "alice")
	f.insert(t, "charlie", "knows", "bob")

	got := f.queryAll(t, Pattern{Object: strPtr("bob")})
	if len(got) != 2 {
		t.Fatalf("expected 2 results ending in bob, got %d: %v", len(got), got)
	}
}

func TestQuerySubjectAndObjectPostFilter(t *testing.T) {
	f := newFixture(t)
	f.insert(t, "alice", "knows", "bob")
	f.insert(t, "alice", "likes", "bob")
	f.insert(t, "alice", "knows", "charlie")

	got := f.queryAll(t, Pattern{Subject: strPtr("alice"), Object: strPtr("bob")})
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d: %v", len(got), got)
	}
	for _, tr := range got {
		if tr.Subject != "alice" || tr.Object != "bob" {
			t.Errorf("unexpected triple in s+o filter result: %+v", tr)
		}
	}
}

func TestQueryFullPattern(t *testing.T) {
	f := newFixture(t)
	f.insert(t, "alice", "knows", "bob")
	f.insert(t, "alice", "knows", "charlie")

	got := f.queryAll(t, Pattern{Subject: strPtr("alice"), Predicate: strPtr("knows"), Object: strPtr("bob")})
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 result, got %d: %v", len(got), got)
	}
}

func TestQueryUnknownURIIsEmptyAndDoesNotIntern(t *testing.T) {
	f := newFixture(t)
	f.insert(t, "alice", "knows", "bob")

	got := f.queryAll(t, Pattern{Subject: strPtr("http://example.org/unknown")})
	if len(got) != 0 {
		t.Fatalf("expected no results for unknown subject, got %v", got)
	}

	err := storage.RunTransaction(context.Background(), f.db, false, 1, func(txn storage.Transaction) error {
		_, found, err := f.dict.LookupID(txn, nil, "http://example.org/unknown")
		if err != nil {
			return err
		}
		if found {
			t.Error("querying an unknown URI must not intern it")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestQueryFullScan(t *testing.T) {
	f := newFixture(t)
	f.insert(t, "alice", "knows", "bob")
	f.insert(t, "bob", "knows", "carol")

	got := f.queryAll(t, Pattern{})
	if len(got) != 2 {
		t.Fatalf("expected 2 results from a full scan, got %d: %v", len(got), got)
	}
}

func TestSelectIndexTable(t *testing.T) {
	cases := []struct {
		s, p, o  bool
		wantTag  schema.IndexTag
		wantLen  int
		wantPost bool
	}{
		{true, true, true, schema.SPO, 3, false},
		{true, true, false, schema.SPO, 2, false},
		{true, false, true, schema.SPO, 1, true},
		{true, false, false, schema.SPO, 1, false},
		{false, true, true, schema.POS, 2, false},
		{false, true, false, schema.PSO, 1, false},
		{false, false, true, schema.OSP, 1, false},
		{false, false, false, schema.SPO, 0, false},
	}
	for _, c := range cases {
		tag, length, post := selectIndex(c.s, c.p, c.o)
		if tag != c.wantTag || length != c.wantLen || post != c.wantPost {
			t.Errorf("selectIndex(%v,%v,%v) = (%v,%d,%v), want (%v,%d,%v)",
				c.s, c.p, c.o, tag, length, post, c.wantTag, c.wantLen, c.wantPost)
		}
	}
}
