package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const fileExt = ".json"

// FileBackend stores one JSON file per session in a directory, so staged
// batches survive a process restart.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// path maps an id to its file. Only uuids are accepted so an id can never
// name a file outside dir.
func (f *FileBackend) path(id string) (string, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return filepath.Join(f.dir, strings.ToLower(id)+fileExt), true
}

func (f *FileBackend) Save(_ context.Context, s *Session) error {
	p, ok := f.path(s.ID)
	if !ok {
		return fmt.Errorf("invalid session id %q", s.ID)
	}

	data, err := encode(s)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("commit session file: %w", err)
	}
	return nil
}

func (f *FileBackend) Load(_ context.Context, id string) (*Session, error) {
	p, ok := f.path(id)
	if !ok {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return decode(data)
}

func (f *FileBackend) Delete(_ context.Context, id string) error {
	p, ok := f.path(id)
	if !ok {
		return nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Sweep uses file modification times; session files are written once.
func (f *FileBackend) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(f.dir, e.Name())); err == nil {
				n++
			}
		}
	}
	return n, nil
}

func (f *FileBackend) Close() error { return nil }
