package snippet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps each snippet in its own JSON file under a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based snippet store.
// If baseDir is empty, defaults to ~/.config/objgraph/snippets/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("get config dir: %w", err)
		}
		baseDir = filepath.Join(dir, "objgraph", "snippets")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create snippet dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.baseDir, filepath.Base(id)+".json")
}

func (f *FileStore) Save(ctx context.Context, s *Snippet) error {
	if s.ID == "" {
		return errNoID
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snippet: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.WriteFile(f.path(s.ID), data, 0o600); err != nil {
		return fmt.Errorf("write snippet file: %w", err)
	}
	return nil
}

func (f *FileStore) Get(ctx context.Context, id string) (*Snippet, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.read(f.path(id))
}

func (f *FileStore) read(path string) (*Snippet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read snippet file: %w", err)
	}
	var s Snippet
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snippet %s: %w", filepath.Base(path), err)
	}
	return &s, nil
}

// List skips files that cannot be parsed.
func (f *FileStore) List(ctx context.Context) ([]*Snippet, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read snippet dir: %w", err)
	}

	list := make([]*Snippet, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		s, err := f.read(filepath.Join(f.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		list = append(list, s)
	}
	sortNewest(list)
	return list, nil
}

func (f *FileStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove snippet file: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

// Path returns the base directory for snippet files.
func (f *FileStore) Path() string {
	return f.baseDir
}

var _ Store = (*FileStore)(nil)
