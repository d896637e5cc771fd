package badger

import (
	"context"
	"eats/pkg/domain"
	"eats/testutil"
	"testing"

	"github.com/dgraph-io/badger/v4"
)

func TestBadgerStorePersistAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(Config{Dir: dir}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var person testutil.Person
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		f, err := testutil.SeedVocabulary(tx)
		if err != nil {
			return err
		}
		person, err = testutil.AddPerson(tx, f, "entity-000001", "Jane", "Doe")
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(Config{Dir: dir}, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reloaded.Close() }()
	_ = reloaded.View(context.Background(), func(v domain.TransactionView) error {
		if _, ok := v.FindAssertion(person.Existence.ID); !ok {
			t.Fatalf("expected existence after reload")
		}
		if len(v.ListAuthorities()) != 2 {
			t.Fatalf("expected authorities after reload")
		}
		return nil
	})
}

func TestBadgerStoreInMemoryAndCorruptBucket(t *testing.T) {
	store, err := NewStore(Config{InMemory: true}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+"entities"), []byte("{bad"))
	}); err != nil {
		t.Fatalf("seed corrupt bucket: %v", err)
	}
	if _, err := load(store.db); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestBadgerStoreRequiresDir(t *testing.T) {
	if _, err := NewStore(Config{}, nil); err == nil {
		t.Fatalf("expected missing directory error")
	}
}
