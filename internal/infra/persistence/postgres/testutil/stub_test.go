package testutil

import (
	"context"
	"database/sql/driver"
	"eats/internal/infra/persistence/memory"
	"eats/pkg/domain"
	seed "eats/testutil"
	"testing"
)

const upsertState = `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`

func TestStubDBKeepsStateBuckets(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	store := memory.NewStore(nil)
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		f, err := seed.SeedVocabulary(tx)
		if err != nil {
			return err
		}
		_, err = seed.AddPerson(tx, f, "entity-000001", "Jane", "Doe")
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	state := store.ExportState()
	buckets, err := state.MarshalBuckets()
	if err != nil {
		t.Fatalf("MarshalBuckets: %v", err)
	}
	names := memory.BucketNames()
	for _, name := range names {
		if _, err := conn.ExecContext(ctx, upsertState, []driver.NamedValue{{Value: name}, {Value: buckets[name]}}); err != nil {
			t.Fatalf("upsert %s: %v", name, err)
		}
	}
	// A second upsert replaces the row instead of adding one.
	if _, err := conn.ExecContext(ctx, upsertState, []driver.NamedValue{{Value: "entities"}, {Value: buckets["entities"]}}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if got := len(conn.Tables["state"]); got != len(names) {
		t.Fatalf("state rows = %d, want one per bucket (%d)", got, len(names))
	}

	rows, err := conn.QueryContext(ctx, "SELECT bucket, payload FROM state", nil)
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()
	var snapshot memory.Snapshot
	dest := make([]driver.Value, 2)
	seen := 0
	for rows.Next(dest) == nil {
		bucket, _ := dest[0].(string)
		payload, _ := dest[1].([]byte)
		if err := snapshot.UnmarshalBucket(bucket, payload); err != nil {
			t.Fatalf("decode %s: %v", bucket, err)
		}
		seen++
	}
	if seen != len(names) {
		t.Fatalf("read %d buckets, want %d", seen, len(names))
	}
	if len(snapshot.Entities) != len(state.Entities) || len(snapshot.Users) != len(state.Users) {
		t.Fatalf("decoded snapshot lost rows: %d entities, %d users", len(snapshot.Entities), len(snapshot.Users))
	}
}

func TestStubDBRecordsOtherStatements(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	if _, err := conn.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS state (bucket TEXT PRIMARY KEY, payload JSONB NOT NULL)", nil); err != nil {
		t.Fatalf("ddl: %v", err)
	}
	if len(conn.Execs) != 1 || len(conn.Tables) != 0 {
		t.Fatalf("ddl should only be recorded, got execs %v tables %v", conn.Execs, conn.Tables)
	}
	if _, err := conn.ExecContext(ctx, upsertState, []driver.NamedValue{{Value: "entities"}}); err == nil {
		t.Fatalf("expected a column/arg mismatch")
	}
	if _, err := conn.QueryContext(ctx, "DELETE FROM state", nil); err == nil {
		t.Fatalf("expected a parse error for a non-select query")
	}
}
