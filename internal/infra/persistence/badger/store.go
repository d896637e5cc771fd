// Package badger persists the entity graph snapshot into an embedded Badger
// key-value database, one key per snapshot bucket.
package badger

import (
	"context"
	"eats/internal/infra/persistence/memory"
	"eats/pkg/domain"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

var _ domain.PersistentStore = (*Store)(nil)

const keyPrefix = "state/"

// Config controls where and how the database is opened.
type Config struct {
	// Dir is the database directory. Required unless InMemory is set.
	Dir string
	// InMemory keeps all data in memory; used by tests.
	InMemory bool
	// Logger receives Badger's internal log output. Nil silences it.
	Logger *slog.Logger
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Store snapshots the memory store into Badger after every committed
// transaction.
type Store struct {
	*memory.Store
	db *badger.DB
	mu sync.Mutex
}

// NewStore opens the database and hydrates the memory store from it.
func NewStore(cfg Config, engine *domain.RulesEngine) (*Store, error) {
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Dir == "":
		return nil, errors.New("badger: directory is required for a persistent database")
	default:
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	snapshot, err := load(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem := memory.NewStore(engine)
	mem.ImportState(snapshot)
	return &Store{Store: mem, db: db}, nil
}

func load(db *badger.DB) (memory.Snapshot, error) {
	var snapshot memory.Snapshot
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			bucket := strings.TrimPrefix(string(item.Key()), keyPrefix)
			payload, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", bucket, err)
			}
			if err := snapshot.UnmarshalBucket(bucket, payload); err != nil {
				return err
			}
		}
		return nil
	})
	return snapshot, err
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buckets, err := s.ExportState().MarshalBuckets()
	if err != nil {
		return err
	}
	txn := s.db.NewTransaction(true)
	defer txn.Discard()
	for _, bucket := range memory.BucketNames() {
		if err := txn.Set([]byte(keyPrefix+bucket), buckets[bucket]); err != nil {
			return fmt.Errorf("set %s: %w", bucket, err)
		}
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit badger: %w", err)
	}
	return nil
}

// RunInTransaction applies fn through the memory store and persists the
// resulting snapshot.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(); err != nil {
		return res, err
	}
	return res, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
