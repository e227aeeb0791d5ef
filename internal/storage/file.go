package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
)

// File stores one value per key as a file under the root directory.
// Writes go through a temp file and rename, so readers never observe a
// partial value even if the host dies mid-write.
type File struct {
	root string
	log  *logging.Logger

	mu     sync.RWMutex
	closed bool
}

// NewFile creates a file-backed store rooted at dir.
func NewFile(dir string, logger *logging.Logger) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: empty root directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	logger.Info("File store ready", zap.String("root", dir))
	return &File{root: dir, log: logger}, nil
}

func (f *File) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return filepath.Join(f.root, filepath.FromSlash(keyToPath(key))), nil
}

// Get reads the value stored at key.
func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	if err := f.live(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: read %q: %w", key, err)
	}
	return data, nil
}

// Set writes the value atomically.
func (f *File) Set(ctx context.Context, key string, value []byte) error {
	if err := f.live(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("storage: create dir for %q: %w", key, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p)+".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: temp file for %q: %w", key, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(value); err != nil {
		cleanup()
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("storage: sync %q: %w", key, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		cleanup()
		return fmt.Errorf("storage: chmod %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: close %q: %w", key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: rename %q: %w", key, err)
	}
	return nil
}

// Delete removes the value. Missing keys are fine.
func (f *File) Delete(ctx context.Context, key string) error {
	if err := f.live(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return nil
}

// List returns keys matching the doublestar pattern, sorted.
func (f *File) List(ctx context.Context, pattern string) ([]string, error) {
	if err := f.live(); err != nil {
		return nil, err
	}

	var (
		keysMu sync.Mutex
		keys   []string
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, f.root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || d.IsDir() {
			return nil
		}
		// Skip in-flight temp files
		if strings.Contains(filepath.Base(p), ".tmp-") {
			return nil
		}

		rel, relErr := filepath.Rel(f.root, p)
		if relErr != nil {
			return nil
		}
		key := pathToKey(filepath.ToSlash(rel))

		matched, matchErr := matchKey(pattern, key)
		if matchErr != nil {
			return matchErr
		}
		if matched {
			keysMu.Lock()
			keys = append(keys, key)
			keysMu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %q: %w", pattern, err)
	}

	sort.Strings(keys)
	return keys, nil
}

// Close marks the store closed. Files stay on disk.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.log.Info("File store closed")
	return nil
}

func (f *File) live() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrClosed
	}
	return nil
}
