// Package enrichcache persists provider records per taxon and provider.
//
// Entries never expire; a stale record is better than no record when the
// network is gone. Writes are last-write-wins upserts funneled through a
// single mutex so concurrent enrichments cannot interleave partial
// updates.
package enrichcache

import (
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"faunadex/internal/errors"
	"faunadex/internal/provider"
)

// Entry is one cached provider record for one taxon.
type Entry struct {
	ID       uint          `gorm:"primaryKey"`
	TaxonID  uint          `gorm:"uniqueIndex:idx_taxon_provider;not null"`
	Provider provider.Kind `gorm:"uniqueIndex:idx_taxon_provider;type:varchar(32);not null"`
	Payload  []byte        `gorm:"not null"`
	CachedAt time.Time     `gorm:"not null"`
}

// Store is the enrichment cache backed by the application database.
type Store struct {
	db      *gorm.DB
	logger  *slog.Logger
	writeMu sync.Mutex
}

// New prepares the cache schema and returns the store.
func New(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, errors.Newf("failed to migrate enrichment cache schema: %w", err).
			Category(errors.CategoryDatabase).
			Component("enrichcache").
			Build()
	}
	return &Store{db: db, logger: logger}, nil
}

// Get returns the cached record for a taxon and provider, or nil when no
// entry exists. A corrupt entry is dropped and treated as a miss.
func (s *Store) Get(taxonID uint, kind provider.Kind) (*provider.Record, error) {
	var entry Entry
	err := s.db.Where("taxon_id = ? AND provider = ?", taxonID, kind).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Newf("failed to read enrichment cache: %w", err).
			Category(errors.CategoryDatabase).
			Component("enrichcache").
			Context("taxon_id", taxonID).
			Context("provider", string(kind)).
			Build()
	}

	rec, err := provider.DecodeRecord(entry.Payload)
	if err != nil {
		s.logger.Warn("dropping undecodable cache entry",
			"taxon_id", taxonID, "provider", kind, "error", err)
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		_ = s.db.Delete(&Entry{}, entry.ID).Error
		return nil, nil
	}
	return rec, nil
}

// GetAll returns the cached records for a taxon keyed by provider.
func (s *Store) GetAll(taxonID uint) (map[provider.Kind]*provider.Record, error) {
	var entries []Entry
	if err := s.db.Where("taxon_id = ?", taxonID).Find(&entries).Error; err != nil {
		return nil, errors.Newf("failed to read enrichment cache: %w", err).
			Category(errors.CategoryDatabase).
			Component("enrichcache").
			Context("taxon_id", taxonID).
			Build()
	}

	records := make(map[provider.Kind]*provider.Record, len(entries))
	for i := range entries {
		rec, err := provider.DecodeRecord(entries[i].Payload)
		if err != nil {
			s.logger.Warn("skipping undecodable cache entry",
				"taxon_id", taxonID, "provider", entries[i].Provider, "error", err)
			continue
		}
		records[entries[i].Provider] = rec
	}
	return records, nil
}

// Put stores records for a taxon in one transaction. Existing entries for
// the same taxon and provider are overwritten; nil records are skipped.
// Either all given records become visible or none do.
func (s *Store) Put(taxonID uint, records ...*provider.Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := time.Now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			if rec == nil {
				continue
			}
			payload, err := provider.EncodeRecord(rec)
			if err != nil {
				return err
			}
			entry := Entry{
				TaxonID:  taxonID,
				Provider: rec.Kind,
				Payload:  payload,
				CachedAt: now,
			}
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "taxon_id"}, {Name: "provider"}},
				DoUpdates: clause.AssignmentColumns([]string{"payload", "cached_at"}),
			}).Create(&entry).Error
			if err != nil {
				return errors.Newf("failed to write enrichment cache: %w", err).
					Category(errors.CategoryDatabase).
					Component("enrichcache").
					Context("taxon_id", taxonID).
					Context("provider", string(rec.Kind)).
					Build()
			}
		}
		return nil
	})
}

// Delete removes all cached records for a taxon.
func (s *Store) Delete(taxonID uint) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.db.Where("taxon_id = ?", taxonID).Delete(&Entry{}).Error; err != nil {
		return errors.Newf("failed to delete enrichment cache entries: %w", err).
			Category(errors.CategoryDatabase).
			Component("enrichcache").
			Context("taxon_id", taxonID).
			Build()
	}
	return nil
}

// Clear removes every cached record.
func (s *Store) Clear() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.db.Where("1 = 1").Delete(&Entry{}).Error; err != nil {
		return errors.Newf("failed to clear enrichment cache: %w", err).
			Category(errors.CategoryDatabase).
			Component("enrichcache").
			Build()
	}
	return nil
}

// Count returns the number of cached entries.
func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&Entry{}).Count(&count).Error; err != nil {
		return 0, errors.Newf("failed to count enrichment cache entries: %w", err).
			Category(errors.CategoryDatabase).
			Component("enrichcache").
			Build()
	}
	return count, nil
}
