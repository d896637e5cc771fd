package blob

import (
	"context"
	"errors"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("memory open: %v %v", mem, err)
	}
	fs, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil || fs.Driver() != DriverFilesystem {
		t.Fatalf("default open should be filesystem: %v %v", fs, err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected s3 without bucket to fail")
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestConfigFromEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("EATS_BLOB_DRIVER", "fs")
	t.Setenv("EATS_BLOB_FS_ROOT", root)
	t.Setenv("EATS_BLOB_S3_BUCKET", "docs")
	cfg := ConfigFromEnv()
	if cfg.Driver != DriverFilesystem || cfg.FSRoot != root || cfg.S3.Bucket != "docs" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	store, err := OpenFromEnv(context.Background())
	if err != nil || store.Driver() != DriverFilesystem {
		t.Fatalf("open from env: %v %v", store, err)
	}
}

func TestPutBytesAndReadAll(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]Store{"memory": NewMemory(), "s3": NewMockS3ForTests()} {
		t.Run(name, func(t *testing.T) {
			info, err := PutBytes(ctx, store, "imports/x/raw.xml", []byte("<collection/>"), "application/xml")
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Key != "imports/x/raw.xml" {
				t.Fatalf("unexpected key %q", info.Key)
			}
			got, err := ReadAll(ctx, store, "imports/x/raw.xml")
			if err != nil || string(got) != "<collection/>" {
				t.Fatalf("read: %q %v", got, err)
			}
			if _, err := ReadAll(ctx, store, "imports/missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := PutBytes(ctx, store, "imports/x/raw.xml", nil, ""); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
		})
	}
}
