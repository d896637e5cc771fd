package config

import (
	"bytes"
	"eats/internal/core"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Blob.Driver != "fs" {
		t.Fatalf("unexpected drivers %+v %+v", cfg.Storage, cfg.Blob)
	}
	if cfg.Export.BatchSize != 1000 || !cfg.Export.ReverseRelationships {
		t.Fatalf("unexpected export defaults %+v", cfg.Export)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Fatalf("cache ttl = %v", cfg.Cache.TTL)
	}
	if cfg.StorageSelection().Driver != core.StorageSQLite {
		t.Fatalf("storage selection = %+v", cfg.StorageSelection())
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eats.yaml")
	body := `storage:
  driver: memory
export:
  batch_size: 50
  reverse_relationships: false
cache:
  ttl: 30s
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("EATS_EXPORT_BATCH_SIZE", "25")
	t.Setenv("EATS_HTTP_ADDR", "127.0.0.1:9000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "memory" || cfg.Cache.TTL != 30*time.Second || cfg.Export.ReverseRelationships {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Export.BatchSize != 25 || cfg.HTTP.Addr != "127.0.0.1:9000" {
		t.Fatalf("environment should override the file: %+v", cfg)
	}

	var buf bytes.Buffer
	cfg.NewLogger(&buf).Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Fatalf("expected a json debug line, got %q", buf.String())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"storage driver": {"EATS_STORAGE_DRIVER": "mongo"},
		"postgres dsn":   {"EATS_STORAGE_DRIVER": "postgres"},
		"batch size":     {"EATS_EXPORT_BATCH_SIZE": "0"},
		"log level":      {"EATS_LOG_LEVEL": "loud"},
		"s3 bucket":      {"EATS_BLOB_DRIVER": "s3"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatalf("expected a validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestRecordDetails(t *testing.T) {
	var cfg Config
	g, err := cfg.RecordDetails()
	if err != nil || g == nil {
		t.Fatalf("default scheme: %v, %v", g, err)
	}
	path := filepath.Join(t.TempDir(), "schemes.yaml")
	if err := os.WriteFile(path, []byte("schemes:\n  \"Test Authority\":\n    prefix: \"ta-\"\n    digits: 4\n"), 0o600); err != nil {
		t.Fatalf("write schemes: %v", err)
	}
	cfg.AuthorityRecords.SchemesFile = path
	g, err = cfg.RecordDetails()
	if err != nil {
		t.Fatalf("load schemes: %v", err)
	}
	if _, ok := g.(*core.SchemeRegistry); !ok {
		t.Fatalf("expected a scheme registry, got %T", g)
	}
}
