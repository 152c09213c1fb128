// Package repository persists scores documents.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/okian/ctfscores/internal/codec"
	"github.com/okian/ctfscores/internal/domain/model"
	"github.com/okian/ctfscores/pkg/metrics"
)

// Store provides read/write access to a scores document.
type Store interface {
	// Load reads and decodes the stored scores.
	// Returns ErrNotFound if nothing has been saved yet.
	Load(ctx context.Context) (*model.Scores, error)

	// Save encodes s and replaces the stored document.
	Save(ctx context.Context, s *model.Scores) error
}

// FileStore keeps one scores document in a single file, written in the
// format of its codec.
type FileStore struct {
	mu    sync.RWMutex
	path  string
	codec *codec.Codec
	perm  fs.FileMode
}

// NewFileStore creates a store backed by path. The default codec writes
// compact JSON.
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	s := &FileStore{
		path:  path,
		codec: codec.New(),
		perm:  0o644,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load implements Store.Load.
func (s *FileStore) Load(ctx context.Context) (*model.Scores, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, err := os.ReadFile(s.path)
	s.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		metrics.RecordRepositoryOperation("load", "not_found")
		return nil, fmt.Errorf("load %s: %w", s.path, ErrNotFound)
	}
	if err != nil {
		metrics.RecordRepositoryOperation("load", "error")
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}

	scores, err := s.codec.UnmarshalScores(data)
	if err != nil {
		metrics.RecordRepositoryOperation("load", "error")
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	metrics.RecordRepositoryOperation("load", "ok")
	return scores, nil
}

// Save implements Store.Save.
func (s *FileStore) Save(ctx context.Context, scores *model.Scores) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if scores == nil {
		metrics.RecordRepositoryOperation("save", "error")
		return fmt.Errorf("save %s: %w", s.path, ErrNilScores)
	}

	data, err := s.codec.Marshal(scores)
	if err != nil {
		metrics.RecordRepositoryOperation("save", "error")
		return fmt.Errorf("save %s: %w", s.path, err)
	}

	s.mu.Lock()
	err = os.WriteFile(s.path, data, s.perm)
	s.mu.Unlock()
	if err != nil {
		metrics.RecordRepositoryOperation("save", "error")
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	metrics.RecordRepositoryOperation("save", "ok")
	return nil
}

var _ Store = (*FileStore)(nil)
