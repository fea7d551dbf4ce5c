package taxonomy

import (
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"faunadex/internal/errors"
)

// Direction selects the scan direction for ScanFrom.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Store provides read access to the local taxonomy index.
//
// The store never writes; concurrent readers are safe. A separate import
// pipeline owns the schema and contents.
type Store struct {
	db       *gorm.DB
	logger   *slog.Logger
	ftsReady bool
}

// Open opens the taxonomy index at the given path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&mode=ro", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Newf("failed to open taxonomy index %s: %w", path, err).
			Category(errors.CategoryDatabase).
			Component("taxonomy").
			Build()
	}
	return NewStore(db, logger), nil
}

// NewStore wraps an existing database handle. Used by tests and by callers
// that manage the connection themselves.
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{db: db, logger: logger}
	s.ftsReady = s.detectFTS()
	return s
}

// DB exposes the underlying handle, primarily for test fixtures.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// detectFTS checks whether the import pipeline created the optional FTS5
// table for name search.
func (s *Store) detectFTS() bool {
	var count int64
	err := s.db.Raw(
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'taxa_fts'",
	).Scan(&count).Error
	if err != nil {
		s.logger.Debug("FTS detection failed, using fallback search", "error", err)
		return false
	}
	return count > 0
}

// GetByID returns the taxon with the given id, or nil when absent.
func (s *Store) GetByID(id uint) (*Taxon, error) {
	var taxon Taxon
	err := s.db.Preload("Vernaculars", func(db *gorm.DB) *gorm.DB {
		return db.Order("language, priority")
	}).First(&taxon, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Newf("failed to load taxon %d: %w", id, err).
			Category(errors.CategoryDatabase).
			Component("taxonomy").
			Build()
	}
	return &taxon, nil
}

// GetByName returns the first taxon whose scientific or canonical name
// matches exactly, or nil when absent. Non-synonym matches win over
// synonyms.
func (s *Store) GetByName(name string) (*Taxon, error) {
	var taxon Taxon
	err := s.db.Preload("Vernaculars", func(db *gorm.DB) *gorm.DB {
		return db.Order("language, priority")
	}).
		Where("scientific_name = ? OR canonical_name = ?", name, name).
		Order("synonym, id").
		First(&taxon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Newf("failed to load taxon %q: %w", name, err).
			Category(errors.CategoryDatabase).
			Component("taxonomy").
			Build()
	}
	return &taxon, nil
}

// GetIDRange returns the primary-key bounds of the whole index. The query
// only touches the primary-key ordering, never a filtered predicate, so it
// stays cheap on a multi-million-row table.
func (s *Store) GetIDRange() (IDRange, error) {
	var bounds struct {
		Min uint
		Max uint
	}
	err := s.db.Model(&Taxon{}).
		Select("COALESCE(MIN(id), 0) AS min, COALESCE(MAX(id), 0) AS max").
		Scan(&bounds).Error
	if err != nil {
		return IDRange{}, errors.Newf("failed to compute id range: %w", err).
			Category(errors.CategoryDatabase).
			Component("taxonomy").
			Build()
	}
	return IDRange{Min: bounds.Min, Max: bounds.Max}, nil
}

// ScanFrom returns the first taxon at or past the given id (in the given
// direction) that satisfies the filter, or nil when no such row exists on
// that side of the range.
func (s *Store) ScanFrom(id uint, filter Filter, direction Direction) (*Taxon, error) {
	query := s.db.Model(&Taxon{})
	switch direction {
	case Forward:
		query = query.Where("id >= ?", id).Order("id")
	case Backward:
		query = query.Where("id <= ?", id).Order("id DESC")
	}
	query = applyFilter(query, filter)

	var taxon Taxon
	err := query.First(&taxon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Newf("failed to scan from id %d: %w", id, err).
			Category(errors.CategoryDatabase).
			Component("taxonomy").
			Build()
	}
	return &taxon, nil
}

// SearchText returns up to limit taxa matching the query. When the FTS
// table is present it is used; otherwise a substring match on the name
// columns serves as the fallback.
func (s *Store) SearchText(query string, limit int) ([]Taxon, error) {
	if limit <= 0 {
		limit = 25
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var taxa []Taxon
	var err error
	if s.ftsReady {
		err = s.db.Raw(
			`SELECT taxa.* FROM taxa
			 JOIN taxa_fts ON taxa_fts.rowid = taxa.id
			 WHERE taxa_fts MATCH ?
			 LIMIT ?`,
			query, limit,
		).Scan(&taxa).Error
		if err == nil {
			return taxa, nil
		}
		// A malformed FTS query is a user input problem; fall through to
		// the substring match rather than failing the search.
		s.logger.Debug("FTS query failed, using substring fallback",
			"query", query,
			"error", err)
	}

	pattern := "%" + query + "%"
	err = s.db.
		Where("scientific_name LIKE ? OR canonical_name LIKE ?", pattern, pattern).
		Order("synonym, id").
		Limit(limit).
		Find(&taxa).Error
	if err != nil {
		return nil, errors.Newf("failed to search taxa for %q: %w", query, err).
			Category(errors.CategoryDatabase).
			Component("taxonomy").
			Build()
	}
	return taxa, nil
}

func applyFilter(query *gorm.DB, filter Filter) *gorm.DB {
	if filter.Rank != "" {
		query = query.Where("rank = ?", filter.Rank)
	}
	if !filter.IncludeSynonyms {
		query = query.Where("synonym = ?", false)
	}
	return query
}
