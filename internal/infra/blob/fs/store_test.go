package fs

import (
	"context"
	"eats/internal/blob/core"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	info, err := s.Put(ctx, "imports/abc/raw.xml", strings.NewReader("<collection/>"), core.PutOptions{ContentType: "application/xml", Metadata: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ETag == "" || info.Size != 13 || info.URL != "http://local.blob/imports/abc/raw.xml" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "imports/abc/raw.xml", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, rc, err := s.Get(ctx, "imports/abc/raw.xml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "<collection/>" || got.ContentType != "application/xml" || got.Metadata["k"] != "v" {
		t.Fatalf("unexpected blob %q %+v", body, got)
	}
	if _, err := s.Put(ctx, "imports/def/raw.xml", strings.NewReader("y"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	list, err := s.List(ctx, "imports/")
	if err != nil || len(list) != 2 || list[0].Key != "imports/abc/raw.xml" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	if only, _ := s.List(ctx, "imports/def"); len(only) != 1 {
		t.Fatalf("expected prefix filter, got %+v", only)
	}
	if ok, err := s.Delete(ctx, "imports/abc/raw.xml"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "imports/abc/raw.xml"); ok {
		t.Fatalf("expected missing blob on second delete")
	}
	if _, _, err := s.Get(ctx, "imports/abc/raw.xml"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Head(ctx, "imports/abc/raw.xml"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
}

func TestStoreRejectsUnsafeKeys(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/b.meta"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
	if _, err := s.PresignURL(ctx, "a.xml", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported PUT presign, got %v", err)
	}
	url, err := s.PresignURL(ctx, "a.xml", core.SignedURLOptions{})
	if err != nil || url != "http://local.blob/a.xml" {
		t.Fatalf("unexpected presign %q %v", url, err)
	}
}

func TestStoreCorruptSidecar(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.Put(ctx, "doc.xml", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "doc.xml.meta"), []byte("{"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := s.Head(ctx, "doc.xml"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := s.List(ctx, ""); err == nil {
		t.Fatalf("expected list to surface decode error")
	}
}

func TestNewDefaultsRoot(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	s, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Root() != "./blobdata" || s.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected store %s %s", s.Root(), s.Driver())
	}
	if _, err := os.Stat(filepath.Join(dir, "blobdata")); err != nil {
		t.Fatalf("expected root dir: %v", err)
	}
}
