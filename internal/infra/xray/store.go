package xray

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	app_errors "github.com/server24/provisiond/internal/errors"
)

// ErrUnchanged can be returned from an Update callback to signal that
// the document does not need to be written back.
var ErrUnchanged = errors.New("document unchanged")

// Store gives scoped, exclusive access to the proxy config document.
// Every read-modify-write cycle against the document goes through
// Update; the store is the single writer.
type Store interface {
	View(ctx context.Context, fn func(*Document) error) error
	Update(ctx context.Context, fn func(*Document) error) error
}

// FileStore is the on-disk implementation of Store. The daemon owns the
// file; the store only ever rewrites it whole, atomically, under an
// exclusive lock.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Path returns the document's location on disk.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) View(ctx context.Context, fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := s.load()
	if err != nil {
		return err
	}
	return fn(doc)
}

func (s *FileStore) Update(ctx context.Context, fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := s.load()
	if err != nil {
		return err
	}

	if err := fn(doc); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return nil
		}
		return err
	}

	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %v", app_errors.ErrProxyConfigUnavailable, err)
	}
	return s.persist(data)
}

func (s *FileStore) load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", app_errors.ErrProxyConfigUnavailable, err)
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", app_errors.ErrProxyConfigUnavailable, err)
	}
	return doc, nil
}

// persist writes the document to a temp file in the same directory and
// renames it over the original, so the daemon never observes a partial
// write.
func (s *FileStore) persist(data []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("%w: %v", app_errors.ErrProxyConfigUnavailable, err)
	}

	_, writeErr := tmp.Write(append(data, '\n'))
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		if err := os.Remove(tmp.Name()); err != nil {
			s.logger.Warn("failed to remove temp document", "path", tmp.Name(), "error", err)
		}
		if writeErr != nil {
			return fmt.Errorf("%w: %v", app_errors.ErrProxyConfigUnavailable, writeErr)
		}
		return fmt.Errorf("%w: %v", app_errors.ErrProxyConfigUnavailable, closeErr)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			s.logger.Warn("failed to remove temp document", "path", tmp.Name(), "error", rmErr)
		}
		return fmt.Errorf("%w: %v", app_errors.ErrProxyConfigUnavailable, err)
	}
	return nil
}
