package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"photogallery/internal/config"
	"photogallery/internal/models"
)

// DB is the process-wide persistence handle. It is opened once in main, shared by
// every request and closed once at shutdown.
type DB struct {
	Gorm *gorm.DB

	sqlDB     *sql.DB
	pool      *pgxpool.Pool
	closeOnce sync.Once
	closeErr  error
}

func Open(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*DB, error) {
	gormConfig := &gorm.Config{
		Logger:         NewGormLogger(log, 200*time.Millisecond),
		TranslateError: true,
	}

	var (
		db  = &DB{}
		err error
	)

	switch cfg.Driver {
	case "postgres":
		db.pool, err = openPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		db.sqlDB = stdlib.OpenDBFromPool(db.pool)
		db.Gorm, err = gorm.Open(postgres.New(postgres.Config{Conn: db.sqlDB}), gormConfig)
		if err != nil {
			db.sqlDB.Close()
			db.pool.Close()
			return nil, fmt.Errorf("gorm postgres: %w", err)
		}
	case "sqlite":
		if cfg.DSN == "" {
			return nil, errors.New("sqlite dsn is empty")
		}
		db.Gorm, err = gorm.Open(sqlite.Open(cfg.DSN), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("gorm sqlite: %w", err)
		}
		db.sqlDB, err = db.Gorm.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		// sqlite allows a single writer.
		db.sqlDB.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if cfg.AutoMigrate {
		if err := db.Gorm.WithContext(ctx).AutoMigrate(&models.Photo{}); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	return db, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.sqlDB.PingContext(ctx)
}

// Close releases the connection pool. Calls after the first are no-ops.
func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		if db.sqlDB != nil {
			db.closeErr = db.sqlDB.Close()
		}
		if db.pool != nil {
			db.pool.Close()
		}
	})
	return db.closeErr
}
