package testsupport

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"photogallery/internal/config"
	"photogallery/internal/database"
)

// NewDB opens a migrated sqlite database for cfg and closes it when the test ends.
func NewDB(t testing.TB, cfg *config.AppConfig) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), cfg.Database, zerolog.Nop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
