package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// StagingStore wraps a remote Store and copies each blob to a local
// directory the first time it is opened. Training reads its source once per
// pass, so every pass after the first is served from local disk.
type StagingStore struct {
	remote Store
	local  *LocalStore
	dir    string

	mu     sync.Mutex
	staged map[string]bool
}

// NewStagingStore creates a StagingStore that stages into dir.
func NewStagingStore(remote Store, dir string) *StagingStore {
	return &StagingStore{
		remote: remote,
		local:  NewLocalStore(dir),
		dir:    dir,
		staged: make(map[string]bool),
	}
}

// Open stages the blob if needed and opens the local copy.
func (s *StagingStore) Open(ctx context.Context, name string) (Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.staged[name] {
		if err := s.stage(ctx, name); err != nil {
			return nil, err
		}
		s.staged[name] = true
	}
	return s.local.Open(ctx, name)
}

func (s *StagingStore) stage(ctx context.Context, name string) error {
	b, err := s.remote.Open(ctx, name)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	r, err := NewReader(ctx, b)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	path := s.local.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return err
	}
	_, err = io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Put writes to the remote store and drops any staged copy.
func (s *StagingStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.evict(ctx, name); err != nil {
		return err
	}
	return s.remote.Put(ctx, name, data)
}

// Delete removes the blob remotely and locally.
func (s *StagingStore) Delete(ctx context.Context, name string) error {
	if err := s.evict(ctx, name); err != nil {
		return err
	}
	return s.remote.Delete(ctx, name)
}

func (s *StagingStore) evict(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.staged, name)
	if err := s.local.Delete(ctx, name); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// List lists the remote store.
func (s *StagingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.remote.List(ctx, prefix)
}

// Staged reports whether name has a local copy.
func (s *StagingStore) Staged(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staged[name]
}
