package s3

import (
	"context"
	"eats/internal/blob/core"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMockStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	if s.Driver() != core.DriverS3 || s.Bucket() != "mock-bucket" {
		t.Fatalf("unexpected store %s %s", s.Driver(), s.Bucket())
	}
	info, err := s.Put(ctx, "imports/1/raw.xml", strings.NewReader("<collection/>"), core.PutOptions{ContentType: "application/xml"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 13 || info.ContentType != "application/xml" || info.ETag != "etag" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.URL != "https://mock.s3.local/mock-bucket/imports/1/raw.xml" {
		t.Fatalf("unexpected url %q", info.URL)
	}
	if _, err := s.Put(ctx, "imports/1/raw.xml", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, rc, err := s.Get(ctx, "imports/1/raw.xml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "<collection/>" {
		t.Fatalf("unexpected body %q", body)
	}
	if _, err := s.Put(ctx, "exports/a.xml", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	list, err := s.List(ctx, "imports/")
	if err != nil || len(list) != 1 || list[0].Key != "imports/1/raw.xml" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	if ok, err := s.Delete(ctx, "imports/1/raw.xml"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := s.Delete(ctx, "imports/1/raw.xml"); err != nil || ok {
		t.Fatalf("expected missing delete, got %v %v", ok, err)
	}
	if _, _, err := s.Get(ctx, "imports/1/raw.xml"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
	if _, err := s.Head(ctx, "imports/1/raw.xml"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
}

func TestPresignURL(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	u, err := s.PresignURL(ctx, "exports/a.xml", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(u, "exports/a.xml") || !strings.Contains(u, "X-Amz-Signature") {
		t.Fatalf("unexpected presigned url %q", u)
	}
	if _, err := s.PresignURL(ctx, "exports/a.xml", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("EATS_BLOB_S3_BUCKET", "eats-docs")
	t.Setenv("EATS_BLOB_S3_REGION", "ap-southeast-2")
	t.Setenv("EATS_BLOB_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("EATS_BLOB_S3_PATH_STYLE", "TRUE")
	t.Setenv("EATS_BLOB_S3_ACCESS_KEY_ID", "key")
	cfg := ConfigFromEnv()
	if cfg.Bucket != "eats-docs" || cfg.Region != "ap-southeast-2" || !cfg.PathStyle || cfg.AccessKeyID != "key" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	store, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.baseURL == nil || store.baseURL.Host != "localhost:9000" {
		t.Fatalf("expected endpoint base url, got %v", store.baseURL)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestDecodeChunked(t *testing.T) {
	body := []byte("5;chunk-signature=abc\r\nhello\r\n6\r\n world\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n")
	got, ok := decodeChunked(body)
	if !ok || string(got) != "hello world" {
		t.Fatalf("unexpected decode %q %v", got, ok)
	}
	if _, ok := decodeChunked([]byte("<collection/>")); ok {
		t.Fatalf("expected plain body to be rejected")
	}
	if _, ok := decodeChunked([]byte("ff\r\nshort\r\n")); ok {
		t.Fatalf("expected truncated chunk to be rejected")
	}
}
