package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"photogallery/internal/config"
	"photogallery/internal/models"
)

// TempPrefix marks partially written uploads in the local directory.
const TempPrefix = ".upload-"

var ErrInvalidKey = errors.New("invalid storage key")

// Local writes uploads into a single flat directory.
type Local struct {
	dir          string
	publicPrefix string
}

func NewLocal(cfg config.LocalStorageConfig) (*Local, error) {
	if cfg.Dir == "" {
		return nil, errors.New("local storage dir is empty")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	prefix := "/" + strings.Trim(cfg.PublicPrefix, "/")
	return &Local{
		dir:          cfg.Dir,
		publicPrefix: prefix,
	}, nil
}

func (s *Local) Driver() string {
	return models.StorageLocal
}

func (s *Local) Dir() string {
	return s.dir
}

func (s *Local) PublicPrefix() string {
	return s.publicPrefix
}

func (s *Local) Write(ctx context.Context, data []byte, name, _ string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	// The directory may have been removed since startup.
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Object{}, upstreamError("create upload dir", err)
	}

	filename := uuid.NewString() + Extension(name)

	tmp, err := os.CreateTemp(s.dir, TempPrefix+"*")
	if err != nil {
		return Object{}, upstreamError("create temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return Object{}, upstreamError("write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Object{}, upstreamError("close temp file", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return Object{}, upstreamError("chmod temp file", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, filename)); err != nil {
		os.Remove(tmpName)
		return Object{}, upstreamError("rename temp file", err)
	}

	return Object{
		Key: filename,
		URL: path.Join(s.publicPrefix, filename),
	}, nil
}

// Remove deletes a previously written file. A missing file yields an error
// wrapping fs.ErrNotExist.
func (s *Local) Remove(_ context.Context, key string) error {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// SweepTemp deletes temp files older than maxAge left behind by interrupted writes.
// Committed uploads are never touched.
func (s *Local) SweepTemp(now time.Time, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read upload dir: %w", err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), TempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
