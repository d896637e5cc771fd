package eatsml

import (
	"context"
	"eats/internal/core"
	"eats/pkg/domain"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestInfrastructureCacheSharesFills(t *testing.T) {
	c := NewInfrastructureCache(time.Minute)
	user := domain.User{ID: 3}
	var calls atomic.Int32
	release := make(chan struct{})
	fill := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("<collection/>"), nil
	}

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := c.Get(context.Background(), user, InfraOptions{Limited: true}, fill)
			if err != nil {
				t.Errorf("get: %v", err)
			}
			results[i] = data
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	if n := calls.Load(); n != 1 {
		t.Fatalf("fill ran %d times", n)
	}
	for i, r := range results {
		if string(r) != "<collection/>" {
			t.Fatalf("result %d = %q", i, r)
		}
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d", c.Len())
	}

	if _, err := c.Get(context.Background(), user, InfraOptions{}, fill); err != nil {
		t.Fatalf("get: %v", err)
	}
	if calls.Load() != 2 || c.Len() != 2 {
		t.Fatalf("options should key separate entries")
	}
	c.Flush()
	if c.Len() != 0 {
		t.Fatalf("flush left %d entries", c.Len())
	}
}

func TestInfrastructureCacheDoesNotKeepErrors(t *testing.T) {
	c := NewInfrastructureCache(0)
	boom := errors.New("boom")
	_, err := c.Get(context.Background(), domain.User{ID: 1}, InfraOptions{}, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fill error, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failed fill was cached")
	}
}

func TestImportFlushesCache(t *testing.T) {
	svc, f := newSeededService(t)
	c := NewInfrastructureCache(time.Minute)
	ctx := context.Background()
	before, err := CachedInfrastructure(ctx, c, svc.Store(), f.Admin, InfraOptions{})
	if err != nil {
		t.Fatalf("cached export: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("export not cached")
	}
	importBytes(t, svc.Store(), f.Admin, []byte(janeDoeDoc), WithCache(c))
	if c.Len() != 0 {
		t.Fatalf("import did not flush the cache")
	}
	after, err := CachedInfrastructure(ctx, c, svc.Store(), f.Admin, InfraOptions{})
	if err != nil {
		t.Fatalf("cached export: %v", err)
	}
	if string(before) == string(after) {
		t.Fatalf("export after import should include the imported vocabulary")
	}
}

func TestImportAndRegister(t *testing.T) {
	svc, f := newSeededService(t)
	ctx := context.Background()
	ri, err := ImportAndRegister(ctx, svc, f.Admin, "first load", []byte(janeDoeDoc))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if ri.ID == "" || ri.Description != "first load" || ri.ImporterID != f.Admin.ID {
		t.Fatalf("unexpected registered import %+v", ri)
	}
	processed, err := svc.ImportDocumentBytes(ctx, ri.ID, core.ImportProcessed)
	if err != nil {
		t.Fatalf("read processed: %v", err)
	}
	mustContain(t, string(processed), "entity-000001")
	raw, err := svc.ImportDocumentBytes(ctx, ri.ID, core.ImportRaw)
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if string(raw) == string(processed) {
		t.Fatalf("raw and processed documents should differ")
	}
	list, err := svc.ListImports(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list imports = %v, %v", list, err)
	}

	if _, err := ImportAndRegister(ctx, svc, f.Admin, "broken", []byte("<collection")); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if list, _ = svc.ListImports(ctx); len(list) != 1 {
		t.Fatalf("failed import was registered")
	}
}

func TestExportAuthorityFrom(t *testing.T) {
	svc, f := newSeededService(t)
	addPerson(t, svc, f, "entity-000001", "Jane", "Doe")
	ctx := context.Background()
	data, err := ExportAuthorityFrom(ctx, svc.Store(), f.Authority.ID, ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entityElements(doc)) != 1 {
		t.Fatalf("expected the authority's entity")
	}
	data, err = ExportAuthorityFrom(ctx, svc.Store(), f.Other.ID, ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc, _ = Parse(data); len(entityElements(doc)) != 0 {
		t.Fatalf("other authority has no entities")
	}
	if _, err := ExportAuthorityFrom(ctx, svc.Store(), 999, ExportOptions{}); !errors.Is(err, ErrMissingObject) {
		t.Fatalf("expected ErrMissingObject, got %v", err)
	}
}
