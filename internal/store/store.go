// Package store is the durable session ledger: tasks, one row per
// tracked interval, and a change feed that fires after every committed
// write so viewers can re-query derived totals.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avanti-suite/timekeep/internal/config"
	"github.com/avanti-suite/timekeep/internal/models"
)

// Store wraps the underlying database and owns the change feed.
// Construct one per process with Open and pass it by injection.
type Store struct {
	db   *gorm.DB
	feed *Feed
	log  *logrus.Entry
}

// Open connects to the ledger backend named by cfg and runs
// migrations. An empty DSN selects SQLite at cfg.DBPath; a
// postgres:// or postgresql:// DSN selects PostgreSQL.
func Open(cfg config.Config, log *logrus.Logger) (*Store, error) {
	var dial gorm.Dialector
	switch {
	case strings.HasPrefix(cfg.DSN, "postgres://"), strings.HasPrefix(cfg.DSN, "postgresql://"):
		dial = postgres.Open(cfg.DSN)
	case cfg.DSN != "":
		return nil, fmt.Errorf("unsupported DSN %q", cfg.DSN)
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
		dial = sqlite.Open(cfg.DBPath)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		db:   db,
		feed: NewFeed(log),
		log:  log.WithField("component", "store"),
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&models.Task{},
		&models.Session{},
	)
}

// Feed exposes the ledger change feed for subscription.
func (s *Store) Feed() *Feed {
	return s.feed
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
