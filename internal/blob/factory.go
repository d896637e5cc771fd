package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

// Config selects and configures a blob driver.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// ConfigFromEnv builds a Config from the environment.
//
//	EATS_BLOB_DRIVER: fs|s3|memory (default fs)
//	EATS_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	EATS_BLOB_S3_*: see S3ConfigFromEnv
func ConfigFromEnv() Config {
	return Config{
		Driver: Driver(os.Getenv("EATS_BLOB_DRIVER")),
		FSRoot: os.Getenv("EATS_BLOB_FS_ROOT"),
		S3:     S3ConfigFromEnv(),
	}
}

// Open constructs the store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// OpenFromEnv is Open(ctx, ConfigFromEnv()).
func OpenFromEnv(ctx context.Context) (Store, error) {
	return Open(ctx, ConfigFromEnv())
}

// PutBytes stores data under key.
func PutBytes(ctx context.Context, store Store, key string, data []byte, contentType string) (Info, error) {
	return store.Put(ctx, key, bytes.NewReader(data), PutOptions{ContentType: contentType})
}

// ReadAll returns the full content stored under key.
func ReadAll(ctx context.Context, store Store, key string) ([]byte, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
