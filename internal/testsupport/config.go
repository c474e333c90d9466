package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"photogallery/internal/config"
)

// NewConfig produces an AppConfig backed by sqlite and a local upload directory,
// both inside a per-test temp directory.
func NewConfig(t testing.TB) *config.AppConfig {
	t.Helper()

	base := t.TempDir()
	return &config.AppConfig{
		Environment: "test",
		HTTP: config.HTTPConfig{
			Host:         "127.0.0.1",
			Port:         0,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  5 * time.Second,
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         filepath.Join(base, "gallery.db"),
			AutoMigrate: true,
		},
		Storage: config.StorageConfig{
			Driver: "local",
			Local: config.LocalStorageConfig{
				Dir:          filepath.Join(base, "uploads"),
				PublicPrefix: "/uploads",
			},
		},
		Upload: config.UploadConfig{
			Field:       "photos",
			MaxFileSize: 10 << 20,
			MaxMemory:   8 << 20,
		},
		Gallery: config.GalleryConfig{PageSize: 50},
		Worker: config.WorkerConfig{
			Stream:     "gallery:events",
			Group:      "gallery-workers",
			Consumer:   "test",
			CleanupAge: time.Hour,
		},
	}
}
