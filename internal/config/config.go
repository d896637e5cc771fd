// Package config loads the runtime configuration of the eats binaries from
// defaults, an optional YAML file and EATS_* environment variables, in
// increasing order of precedence.
package config

import (
	"eats/internal/blob"
	"eats/internal/core"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable. Nested keys join with an
// underscore, so storage.sqlite_path is EATS_STORAGE_SQLITE_PATH.
const EnvPrefix = "EATS"

// Config is the full runtime configuration.
type Config struct {
	Storage          StorageConfig          `mapstructure:"storage"`
	Blob             BlobConfig             `mapstructure:"blob"`
	Export           ExportConfig           `mapstructure:"export"`
	Cache            CacheConfig            `mapstructure:"cache"`
	HTTP             HTTPConfig             `mapstructure:"http"`
	Log              LogConfig              `mapstructure:"log"`
	AuthorityRecords AuthorityRecordsConfig `mapstructure:"authority_records"`
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver" validate:"oneof=memory sqlite postgres badger"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" validate:"required_if=Driver postgres"`
	BadgerDir   string `mapstructure:"badger_dir"`
}

type BlobConfig struct {
	Driver string        `mapstructure:"driver" validate:"oneof=fs s3 memory"`
	FSRoot string        `mapstructure:"fs_root"`
	S3     blob.S3Config `mapstructure:"s3"`
}

type ExportConfig struct {
	BatchSize            int    `mapstructure:"batch_size" validate:"gt=0"`
	ReverseRelationships bool   `mapstructure:"reverse_relationships"`
	DiagnosticKey        string `mapstructure:"diagnostic_key" validate:"required"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type AuthorityRecordsConfig struct {
	// SchemesFile is a YAML file of per-authority record id schemes. Empty
	// selects the default entity- scheme for every authority.
	SchemesFile string `mapstructure:"schemes_file"`
}

var defaults = map[string]any{
	"storage.driver":                 string(core.StorageSQLite),
	"storage.sqlite_path":            "eats.db",
	"storage.postgres_dsn":           "",
	"storage.badger_dir":             "eats-badger",
	"blob.driver":                    string(blob.DriverFilesystem),
	"blob.fs_root":                   "blobdata",
	"blob.s3.region":                 "us-east-1",
	"blob.s3.bucket":                 "",
	"blob.s3.endpoint":               "",
	"blob.s3.access_key_id":          "",
	"blob.s3.secret_access_key":      "",
	"blob.s3.session_token":          "",
	"blob.s3.path_style":             false,
	"export.batch_size":              1000,
	"export.reverse_relationships":   true,
	"export.diagnostic_key":          "diagnostics/invalid-export.xml",
	"cache.ttl":                      "5m",
	"http.addr":                      ":8080",
	"log.level":                      "info",
	"log.format":                     "text",
	"authority_records.schemes_file": "",
}

// New returns a viper instance with every default registered and the
// environment bound. Callers may bind flags on it before calling Decode.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, when not empty, over the defaults and environment and
// returns the validated result.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	return Decode(v)
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and the cross-section requirements the
// tags cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Blob.Driver == string(blob.DriverS3) && c.Blob.S3.Bucket == "" {
		return errors.New("invalid config: blob.s3.bucket is required when blob.driver is s3")
	}
	return nil
}

// StorageSelection returns the persistence selection.
func (c Config) StorageSelection() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(c.Storage.Driver),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
		BadgerDir:   c.Storage.BadgerDir,
	}
}

// BlobSelection returns the blob driver selection.
func (c Config) BlobSelection() blob.Config {
	return blob.Config{Driver: blob.Driver(c.Blob.Driver), FSRoot: c.Blob.FSRoot, S3: c.Blob.S3}
}

// RecordDetails returns the authority record id generator.
func (c Config) RecordDetails() (core.RecordDetailsGenerator, error) {
	if c.AuthorityRecords.SchemesFile == "" {
		return core.DefaultScheme(), nil
	}
	return core.LoadSchemeFile(c.AuthorityRecords.SchemesFile)
}

// NewLogger builds the slog logger described by the log section.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch c.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
