package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"photogallery/internal/config"
	"photogallery/internal/models"
)

// ErrUpstream marks a failed write to or delete from a backing store.
var ErrUpstream = errors.New("storage upstream failure")

// Object identifies bytes written to a store. Key is driver specific; URL is what
// clients use to fetch the bytes.
type Object struct {
	Key string
	URL string
}

type Store interface {
	Driver() string
	Write(ctx context.Context, data []byte, name, mimeType string) (Object, error)
	Remove(ctx context.Context, key string) error
}

// New builds the store selected by cfg.Driver.
func New(cfg config.StorageConfig) (Store, error) {
	if cfg.Driver == models.StorageLocal {
		local, err := NewLocal(cfg.Local)
		if err != nil {
			return nil, err
		}
		return local, nil
	}
	return NewRemote(cfg, cfg.Driver)
}

// NewRemote builds a client for a remote driver regardless of which driver is
// active, so objects written before a driver switch can still be purged.
func NewRemote(cfg config.StorageConfig, driver string) (Store, error) {
	switch driver {
	case models.StorageMinio:
		store, err := NewMinio(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return store, nil
	case models.StorageCloudinary:
		store, err := NewCloudinary(cfg.Cloudinary)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%q is not a remote storage driver", driver)
	}
}

// Extension returns the lower-cased extension of name, dot included.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(filepath.Base(name)))
}

func upstreamError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}
