package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"StockCast/internal/domain/errs"
	domrepo "StockCast/internal/domain/repository"
	applogger "StockCast/pkg/logger"
)

// FSBlobStore keeps objects under a local directory. Locations are
// file:// URIs; bare keys are accepted wherever a location is.
type FSBlobStore struct {
	root string
	l    *applogger.Logger
}

func NewFSBlobStore(root string, l *applogger.Logger) (*FSBlobStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSBlobStore{root: abs, l: l}, nil
}

var _ domrepo.BlobStore = (*FSBlobStore)(nil)

func (s *FSBlobStore) Location(key string) string {
	return "file://" + filepath.ToSlash(filepath.Join(s.root, filepath.FromSlash(key)))
}

func (s *FSBlobStore) Key(location string) (string, error) {
	p, ok := strings.CutPrefix(location, "file://")
	if !ok {
		if strings.Contains(location, "://") {
			return "", errs.New(errs.MalformedInput, "not a file location: %q", location)
		}
		return cleanKey(strings.TrimPrefix(location, "/"))
	}
	rel, err := filepath.Rel(s.root, filepath.FromSlash(p))
	if err != nil {
		return "", errs.New(errs.MalformedInput, "location %q is outside the blob root", location)
	}
	return cleanKey(filepath.ToSlash(rel))
}

// cleanKey normalises a key and rejects any key that resolves outside the
// store root.
func cleanKey(key string) (string, error) {
	k := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if k == "." || k == ".." || strings.HasPrefix(k, "../") || path.IsAbs(k) || filepath.IsAbs(key) {
		return "", errs.New(errs.MalformedInput, "key %q is outside the blob root", key)
	}
	return k, nil
}

// Put writes to a temporary file next to the target and renames it into
// place, so readers never observe a partial object. The temporary file is
// removed on every failure path.
func (s *FSBlobStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".put-*")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", key, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("rename %s: %w", key, err)
	}
	committed = true

	if s.l != nil {
		s.l.Debug("fs blob stored", applogger.String("key", key), applogger.Int("bytes", len(data)))
	}
	return s.Location(key), nil
}

func (s *FSBlobStore) Get(_ context.Context, location string) ([]byte, error) {
	key, err := s.Key(location)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

// PresignGet has nothing to sign locally; it returns the file URI.
func (s *FSBlobStore) PresignGet(_ context.Context, location string, _ time.Duration) (string, error) {
	key, err := s.Key(location)
	if err != nil {
		return "", err
	}
	return s.Location(key), nil
}
