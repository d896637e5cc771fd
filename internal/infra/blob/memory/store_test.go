package memory

import (
	"context"
	"eats/internal/blob/core"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.SetNowFunc(func() time.Time { return fixed })
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	info, err := s.Put(ctx, "imports/1/raw.xml", strings.NewReader("<collection/>"), core.PutOptions{ContentType: "application/xml", Metadata: map[string]string{"user": "admin"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("<collection/>")) || !info.LastModified.Equal(fixed) {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "imports/1/raw.xml", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, " ", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
	got, rc, err := s.Get(ctx, "imports/1/raw.xml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "<collection/>" || got.Metadata["user"] != "admin" {
		t.Fatalf("unexpected blob %q %+v", body, got)
	}
	got.Metadata["user"] = "changed"
	head, err := s.Head(ctx, "imports/1/raw.xml")
	if err != nil || head.Metadata["user"] != "admin" {
		t.Fatalf("metadata leaked: %+v %v", head, err)
	}
	if _, err := s.Put(ctx, "exports/a.xml", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	list, err := s.List(ctx, "imports/")
	if err != nil || len(list) != 1 || list[0].Key != "imports/1/raw.xml" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 2 || all[0].Key != "exports/a.xml" {
		t.Fatalf("expected sorted list, got %+v", all)
	}
	if _, err := s.PresignURL(ctx, "exports/a.xml", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign, got %v", err)
	}
	if ok, _ := s.Delete(ctx, "exports/a.xml"); !ok {
		t.Fatalf("expected delete to report existing blob")
	}
	if ok, _ := s.Delete(ctx, "exports/a.xml"); ok {
		t.Fatalf("expected second delete to report missing blob")
	}
	if _, _, err := s.Get(ctx, "exports/a.xml"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
}
