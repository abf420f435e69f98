// Package pkg provides utilities shared by covmap commands.
package pkg

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileSpill is a generic interface for spilling items of type T to disk.
type FileSpill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	AppendBatch(items []T) error
	Get(index uint64) (T, error)
	Range(f func(index uint64, item T) error) error
	// Batches calls f with consecutive runs of at most size items.
	Batches(size int, f func(items []T) error) error
	// Close releases the spill and removes its file.
	Close() error
}

// SpillOption configures NewFileSpill.
type SpillOption func(*spillConfig)

type spillConfig struct {
	dir string
}

// WithSpillDir places the spill file in dir instead of the system temp dir.
func WithSpillDir(dir string) SpillOption {
	return func(c *spillConfig) {
		c.dir = dir
	}
}

type fileSpillImpl[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
}

// Append implements FileSpill.
func (f *fileSpillImpl[T]) Append(item T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return fmt.Errorf("spill %s is closed", f.path)
	}

	if err := f.encoder.Encode(item); err != nil {
		slog.Error("failed to encode item", "path", f.path, "index", f.length, "error", err)
		return fmt.Errorf("failed to encode item: %w", err)
	}

	f.length++
	slog.Debug("appended item", "path", f.path, "index", f.length-1)

	return nil
}

// Path implements FileSpill.
func (f *fileSpillImpl[T]) Path() string {
	return f.path
}

// AppendBatch implements FileSpill.
func (f *fileSpillImpl[T]) AppendBatch(items []T) error {
	for _, item := range items {
		if err := f.Append(item); err != nil {
			return err
		}
	}

	return nil
}

// Close implements FileSpill.
func (f *fileSpillImpl[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}

	if err := f.file.Close(); err != nil {
		slog.Error("failed to close file", "path", f.path, "error", err)
		return err
	}

	f.file = nil

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to remove spill file", "path", f.path, "error", err)
		return fmt.Errorf("failed to remove spill file: %w", err)
	}

	slog.Debug("closed filespill", "path", f.path, "length", f.length)

	return nil
}

// Get implements FileSpill.
func (f *fileSpillImpl[T]) Get(index uint64) (T, error) {
	var zero T

	if index >= f.Len() {
		slog.Warn("get index out of bounds", "path", f.path, "index", index, "length", f.Len())
		return zero, fmt.Errorf("index %d out of bounds (length %d)", index, f.Len())
	}

	var (
		found T
		done  = errors.New("found")
	)

	err := f.Range(func(i uint64, item T) error {
		if i == index {
			found = item
			return done
		}

		return nil
	})
	if err != nil && !errors.Is(err, done) {
		return zero, err
	}

	slog.Debug("got item", "path", f.path, "index", index)

	return found, nil
}

// Len implements FileSpill.
func (f *fileSpillImpl[T]) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.length
}

// Range implements FileSpill.
func (f *fileSpillImpl[T]) Range(fn func(index uint64, item T) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		slog.Error("failed to open file for range", "path", f.path, "error", err)
		return fmt.Errorf("failed to open file: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close file", "path", f.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	for i := range f.length {
		// gob leaves zero-valued fields untouched, so every item is decoded
		// into fresh storage.
		var item T
		if err := decoder.Decode(&item); err != nil {
			slog.Error("failed to decode item during range", "path", f.path, "index", i, "error", err)
			return fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	slog.Debug("range completed", "path", f.path, "count", f.length)

	return nil
}

// Batches implements FileSpill.
func (f *fileSpillImpl[T]) Batches(size int, fn func(items []T) error) error {
	if size < 1 {
		size = 1
	}

	batch := make([]T, 0, size)

	err := f.Range(func(_ uint64, item T) error {
		batch = append(batch, item)
		if len(batch) < size {
			return nil
		}

		err := fn(batch)
		batch = make([]T, 0, size)

		return err
	})
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		return fn(batch)
	}

	return nil
}

// NewFileSpill creates a new FileSpill for items of type T.
func NewFileSpill[T any](options ...SpillOption) (FileSpill[T], error) {
	config := spillConfig{dir: filepath.Join(os.TempDir(), "covmap-spill")}
	for _, option := range options {
		option(&config)
	}

	if err := os.MkdirAll(config.dir, 0o750); err != nil {
		slog.Error("failed to create temp directory", "path", config.dir, "error", err)
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	file, err := os.CreateTemp(config.dir, "spill-*.gob")
	if err != nil {
		slog.Error("failed to create temp file", "path", config.dir, "error", err)
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	slog.Debug("created filespill", "path", file.Name())

	return &fileSpillImpl[T]{
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
		length:  0,
	}, nil
}
