package storage

import (
	"context"
	"testing"
)

func newTestStorage(t *testing.T) *BadgerStorage {
	t.Helper()
	db, err := NewBadgerStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSetGetClear(t *testing.T) {
	db := newTestStorage(t)

	txn, err := db.Begin(true)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := txn.Set([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := txn.Get([]byte("k1"))
	if err != nil {
		t.Fatalf("get after set in same txn: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("expected v1, got %q", got)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	txn2, err := db.Begin(false)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer txn2.Rollback()
	got, err = txn2.Get([]byte("k1"))
	if err != nil {
		t.Fatalf("get from new txn: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("expected v1, got %q", got)
	}

	txn3, err := db.Begin(true)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := txn3.Clear([]byte("k1")); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := txn3.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	txn4, err := db.Begin(false)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer txn4.Rollback()
	if _, err := txn4.Get([]byte("k1")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	db := newTestStorage(t)
	txn, err := db.Begin(false)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer txn.Rollback()

	if err := txn.Set([]byte("k"), []byte("v")); err != ErrReadOnly {
		t.Errorf("expected ErrReadOnly on Set, got %v", err)
	}
	if err := txn.Clear([]byte("k")); err != ErrReadOnly {
		t.Errorf("expected ErrReadOnly on Clear, got %v", err)
	}
	if _, err := txn.AtomicAdd([]byte("k"), 1); err != ErrReadOnly {
		t.Errorf("expected ErrReadOnly on AtomicAdd, got %v", err)
	}
}

func TestAtomicAdd(t *testing.T) {
	db := newTestStorage(t)

	err := RunTransaction(context.Background(), db, true, 1, func(txn Transaction) error {
		v, err := txn.AtomicAdd([]byte("counter"), 1)
		if err != nil {
			return err
		}
		if v != 1 {
			t.Errorf("expected 1 on first add to absent key, got %d", v)
		}
		v, err = txn.AtomicAdd([]byte("counter"), 1)
		if err != nil {
			return err
		}
		if v != 2 {
			t.Errorf("expected 2 after second add within same txn, got %d", v)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTransaction: %v", err)
	}

	err = RunTransaction(context.Background(), db, true, 1, func(txn Transaction) error {
		v, err := txn.AtomicAdd([]byte("counter"), -1)
		if err != nil {
			return err
		}
		if v != 1 {
			t.Errorf("expected 1 after decrement, got %d", v)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTransaction: %v", err)
	}
}

func TestScanRange(t *testing.T) {
	db := newTestStorage(t)

	err := RunTransaction(context.Background(), db, true, 1, func(txn Transaction) error {
		for _, k := range []string{"a", "b", "c", "d"} {
			if err := txn.Set([]byte(k), []byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	txn, err := db.Begin(false)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer txn.Rollback()

	it, err := txn.Scan([]byte("b"), []byte("d"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	defer it.Close()

	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	want := []string{"b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
}

func TestRunTransactionRetriesOnConflict(t *testing.T) {
	db := newTestStorage(t)
	attempts := 0

	err := RunTransaction(context.Background(), db, true, 5, func(txn Transaction) error {
		attempts++
		if attempts < 3 {
			return ErrConflict
		}
		return txn.Set([]byte("k"), []byte("v"))
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRunTransactionExceedsMaxRetries(t *testing.T) {
	db := newTestStorage(t)

	err := RunTransaction(context.Background(), db, true, 3, func(txn Transaction) error {
		return ErrConflict
	})
	if err != ErrMaxRetriesExceeded {
		t.Fatalf("expected ErrMaxRetriesExceeded, got %v", err)
	}
}

func TestRunTransactionHonorsDeadline(t *testing.T) {
	db := newTestStorage(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunTransaction(ctx, db, true, 5, func(txn Transaction) error {
		return txn.Set([]byte("k"), []byte("v"))
	})
	if err != ErrTransactionTooLong {
		t.Fatalf("expected ErrTransactionTooLong, got %v", err)
	}
}
