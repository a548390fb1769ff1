package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DirectoryStore archives metainfo files as <HASH>.torrent in one local
// directory.
type DirectoryStore struct {
	dir string
}

var _ Store = (*DirectoryStore)(nil)

func NewDirectoryStore(dir string) *DirectoryStore {
	return &DirectoryStore{dir: dir}
}

func (s *DirectoryStore) Save(_ context.Context, raw []byte) (Entry, error) {
	hash, err := InfoHash(raw)
	if err != nil {
		return Entry{}, err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return Entry{}, fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(s.path(hash), raw, 0o660); err != nil {
		return Entry{}, fmt.Errorf("failed to write %s: %w", hash, err)
	}
	now := time.Now().UTC()
	return Entry{Hash: hash, Size: int64(len(raw)), ArchivedAt: &now}, nil
}

func (s *DirectoryStore) Load(_ context.Context, hash string) ([]byte, error) {
	raw, err := os.ReadFile(s.path(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", hash, err)
	}
	return raw, nil
}

func (s *DirectoryStore) List(_ context.Context) ([]Entry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		hash := hashFromKey(e.Name())
		if hash == "" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime().UTC()
		out = append(out, Entry{Hash: hash, Size: info.Size(), ArchivedAt: &mod})
	}
	return out, nil
}

func (s *DirectoryStore) Delete(_ context.Context, hash string) error {
	if err := os.Remove(s.path(hash)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", hash, err)
	}
	return nil
}

func (s *DirectoryStore) path(hash string) string {
	return filepath.Join(s.dir, normalizeKey(hash)+torrentExt)
}
