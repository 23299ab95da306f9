// Package repo is the GORM persistence layer for orders, discounts, support
// issues, and processed Telegram updates. This file opens the SQLite
// database and owns the schema.
package repo

import (
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/merch-order-bot/internal/domain"
)

// sqlitePragmas run on every open. WAL lets the HTTP API read while the bot
// writes; busy_timeout covers the reconciler and the dispatcher racing for
// the write lock.
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA synchronous=NORMAL;",
	"PRAGMA foreign_keys=ON;",
	"PRAGMA busy_timeout=5000;",
}

const slowQuery = 250 * time.Millisecond

// OpenSQLite opens (or creates) the bot database at path, applies the
// PRAGMAs, sizes the pool, and installs query tracing so every statement is
// a child span of the update or sweep that issued it. The parent directory
// must already exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.New(stdlog.New(log.Logger, "", 0), logger.Config{
			SlowThreshold:             slowQuery,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("install tracing: %w", err)
	}

	for _, p := range sqlitePragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("%s %w", p, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// AutoMigrate creates or updates every table the bot persists.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Order{},
		&domain.Discount{},
		&domain.SupportIssue{},
		&domain.ProcessedUpdate{},
	)
}
