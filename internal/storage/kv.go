package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vantagebrowser/tabengine/internal/infrastructure/config"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/monitoring"
)

var (
	// ErrNotFound is returned when a key has no value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("storage: store closed")
	// ErrBadKey is returned for keys the store cannot represent.
	ErrBadKey = errors.New("storage: invalid key")
)

// KV is the engine's durable key-value store. Keys are ':'-separated
// segments (for example "tabs:snapshot:<id>"); List patterns use
// doublestar syntax over those segments.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete is idempotent: deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

// New builds the configured backend.
func New(cfg *config.Config, logger *logging.Logger) (KV, error) {
	log := logger.Component("storage")
	switch cfg.Storage.Backend {
	case "file":
		return NewFile(cfg.Storage.Path, log)
	case "sqlite":
		return NewSQLite(cfg.Storage.Path, log)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}
}

// Instrument wraps a store with operation metrics.
func Instrument(kv KV, metrics *monitoring.Metrics, backend string) KV {
	if metrics == nil {
		return kv
	}
	return &instrumented{kv: kv, metrics: metrics, backend: backend}
}

type instrumented struct {
	kv      KV
	metrics *monitoring.Metrics
	backend string
}

func (i *instrumented) record(op string, start time.Time, err error) {
	status := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "miss"
	case err != nil:
		status = "error"
	}
	i.metrics.RecordStorageOp(i.backend, op, status, time.Since(start))
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := i.kv.Get(ctx, key)
	i.record("get", start, err)
	return value, err
}

func (i *instrumented) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := i.kv.Set(ctx, key, value)
	i.record("set", start, err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.kv.Delete(ctx, key)
	i.record("delete", start, err)
	return err
}

func (i *instrumented) List(ctx context.Context, pattern string) ([]string, error) {
	start := time.Now()
	keys, err := i.kv.List(ctx, pattern)
	i.record("list", start, err)
	return keys, err
}

func (i *instrumented) Close() error {
	return i.kv.Close()
}
