package model

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
)

// BadgerConfig configures the badger database behind a BadgerPersister.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps the database in RAM. Useful for tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Key under which the model blob is stored.
	Key string
}

// DefaultBadgerConfig stores the blob under key "model" at path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true, Key: "model"}
}

// InMemoryBadgerConfig is a non-durable configuration for tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true, Key: "model"}
}

// badgerLogger adapts log.Logger to badger's Logger interface.
type badgerLogger struct {
	logger log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerPersister stores model blobs in a badger key-value database. It owns
// the database and must be closed.
type BadgerPersister struct {
	db  *badger.DB
	key []byte
}

// OpenBadger opens (or creates) the database described by cfg.
func OpenBadger(cfg BadgerConfig) (*BadgerPersister, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.NewValidationError("path", "is required for a persistent database", cfg.Path)
	}
	if cfg.Key == "" {
		return nil, errors.NewValidationError("key", "must not be empty", cfg.Key)
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, errors.Wrapf(err, "create database directory %s", cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: log.GetLoggerWithName("badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger database")
	}
	return &BadgerPersister{db: db, key: []byte(cfg.Key)}, nil
}

// WithKey returns a persister sharing the database but using another key.
func (b *BadgerPersister) WithKey(key string) *BadgerPersister {
	return &BadgerPersister{db: b.db, key: []byte(key)}
}

func (b *BadgerPersister) Save(blob []byte) error {
	return errors.Wrap(b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key, blob)
	}), "badger save")
}

func (b *BadgerPersister) Load() ([]byte, error) {
	var blob []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key)
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.Wrapf(errors.ErrNotFound, "key %q", b.key)
	}
	if err != nil {
		return nil, errors.Wrap(err, "badger load")
	}
	return blob, nil
}

// Keys lists the stored model keys.
func (b *BadgerPersister) Keys() ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, errors.Wrap(err, "badger keys")
}

// Close closes the database.
func (b *BadgerPersister) Close() error {
	return b.db.Close()
}
