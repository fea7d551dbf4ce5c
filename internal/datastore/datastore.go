// Package datastore manages the application's SQLite connections and the
// settings key-value table shared by other components.
package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"faunadex/internal/errors"
)

// Setting is a single persisted key-value pair.
type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"size:255"`
	UpdatedAt time.Time
}

// Open opens (creating if necessary) the application cache database at the
// given path and runs migrations for the tables this package owns.
//
// The DSN enables WAL mode and a busy timeout: the connection is shared by
// concurrent readers, while writers are serialized by their owning
// components.
func Open(path string, debug bool) (*gorm.DB, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Newf("failed to create database directory %s: %w", dir, err).
				Category(errors.CategoryFileIO).
				Component("datastore").
				Build()
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)

	logLevel := gormlogger.Silent
	if debug {
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, errors.Newf("failed to open database %s: %w", path, err).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}

	if err := db.AutoMigrate(&Setting{}); err != nil {
		return nil, errors.Newf("failed to migrate settings table: %w", err).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}

	return db, nil
}

var memorySeq atomic.Uint64

// OpenMemory opens a private in-memory database, primarily for tests.
// Each call gets its own database; the shared cache only ties together
// the pooled connections of this one handle.
func OpenMemory() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:memdb%d?mode=memory&cache=shared&_busy_timeout=5000", memorySeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return db, db.AutoMigrate(&Setting{})
}

// GetSetting returns the stored value for key, or the empty string when the
// key has never been written.
func GetSetting(db *gorm.DB, key string) (string, error) {
	var setting Setting
	err := db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", errors.Newf("failed to read setting %s: %w", key, err).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}
	return setting.Value, nil
}

// SetSetting stores value under key, replacing any previous value.
func SetSetting(db *gorm.DB, key, value string) error {
	setting := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	err := db.Save(&setting).Error
	if err != nil {
		return errors.Newf("failed to write setting %s: %w", key, err).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}
	return nil
}
