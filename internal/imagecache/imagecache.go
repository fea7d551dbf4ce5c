// Package imagecache stores downloaded media on disk under a hard
// capacity bound.
//
// Files are content-addressed by the SHA-256 of their source URL and
// sharded into subdirectories by resolution class and hash prefix.
// Eviction is strict LRU over the last access time tracked in the
// database; after every insert the cache is brought back under capacity
// before the call returns.
package imagecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"faunadex/internal/errors"
	"faunadex/internal/httpclient"
	"faunadex/internal/observability/metrics"
)

// Class selects the resolution variant a media file was cached under.
type Class string

const (
	ClassHD    Class = "hd"
	ClassThumb Class = "thumb"
)

// maxDownloadBytes bounds a single media download.
const maxDownloadBytes = 32 << 20

// MediaEntry is the database row tracking one cached file.
type MediaEntry struct {
	ID             uint   `gorm:"primaryKey"`
	URLHash        string `gorm:"uniqueIndex:idx_media_hash_class;size:64;not null"`
	Class          Class  `gorm:"uniqueIndex:idx_media_hash_class;type:varchar(16);not null"`
	URL            string `gorm:"not null"`
	Path           string `gorm:"not null"`
	SizeBytes      int64  `gorm:"not null"`
	LastAccessedAt time.Time
	CreatedAt      time.Time
}

// Service is the on-disk media cache.
//
// One mutex covers the lookup-download-insert-evict sequence so the
// capacity invariant holds at every return from Resolve.
type Service struct {
	db       *gorm.DB
	client   *httpclient.Client
	root     string
	capacity int64
	mu       sync.Mutex
	logger   *slog.Logger
	metrics  *metrics.ImageCacheMetrics
}

// New creates the media cache rooted at dir with the given capacity in
// bytes. The schema is migrated and the size gauge primed from existing
// entries.
func New(db *gorm.DB, client *httpclient.Client, dir string, capacity int64, logger *slog.Logger, m *metrics.ImageCacheMetrics) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		return nil, errors.Newf("media cache capacity must be positive, got %d", capacity).
			Category(errors.CategoryValidation).
			Component("imagecache").
			Build()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Newf("failed to create media cache directory %s: %w", dir, err).
			Category(errors.CategoryFileIO).
			Component("imagecache").
			Build()
	}
	if err := db.AutoMigrate(&MediaEntry{}); err != nil {
		return nil, errors.Newf("failed to migrate media cache schema: %w", err).
			Category(errors.CategoryDatabase).
			Component("imagecache").
			Build()
	}

	s := &Service{
		db:       db,
		client:   client,
		root:     dir,
		capacity: capacity,
		logger:   logger,
		metrics:  m,
	}
	if m != nil {
		if usage, err := s.UsageBytes(); err == nil {
			m.SetCacheSize(float64(usage))
		}
	}
	return s, nil
}

// Resolve returns the local path of the media file for a URL, downloading
// it on first use. A hit refreshes the entry's access time; a miss
// downloads, inserts, and then evicts least-recently-used entries until
// the cache fits its capacity again.
//
// Download failures are reported to the caller only; they are never
// treated as evidence of being offline.
func (s *Service) Resolve(ctx context.Context, rawURL string, class Class) (string, error) {
	if rawURL == "" {
		return "", errors.Newf("empty media URL").
			Category(errors.CategoryValidation).
			Component("imagecache").
			Build()
	}

	hash := hashURL(rawURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	var entry MediaEntry
	err := s.db.Where("url_hash = ? AND class = ?", hash, class).First(&entry).Error
	switch {
	case err == nil:
		if _, statErr := os.Stat(entry.Path); statErr == nil {
			s.touch(&entry)
			if s.metrics != nil {
				s.metrics.IncrementCacheHits()
			}
			return entry.Path, nil
		}
		// Row without file: drop the orphan and fall through to a fresh
		// download
		s.logger.Warn("cached media file missing on disk, re-downloading",
			"path", entry.Path)
		_ = s.db.Delete(&MediaEntry{}, entry.ID).Error
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", errors.Newf("failed to read media cache index: %w", err).
			Category(errors.CategoryDatabase).
			Component("imagecache").
			Build()
	}

	if s.metrics != nil {
		s.metrics.IncrementCacheMisses()
	}

	localPath, size, err := s.download(ctx, rawURL, hash, class)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementDownloadErrors()
		}
		return "", err
	}

	entry = MediaEntry{
		URLHash:        hash,
		Class:          class,
		URL:            rawURL,
		Path:           localPath,
		SizeBytes:      size,
		LastAccessedAt: time.Now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		_ = os.Remove(localPath)
		return "", errors.Newf("failed to index media file: %w", err).
			Category(errors.CategoryDatabase).
			Component("imagecache").
			Build()
	}

	if err := s.evictToCapacity(); err != nil {
		s.logger.Warn("media cache eviction failed", "error", err)
	}
	s.updateSizeGauge()

	return entry.Path, nil
}

// touch refreshes the LRU position of an entry.
func (s *Service) touch(entry *MediaEntry) {
	err := s.db.Model(entry).Update("last_accessed_at", time.Now()).Error
	if err != nil {
		s.logger.Warn("failed to update media access time", "error", err)
	}
}

// download fetches the URL into the sharded cache layout, writing to a
// temp file first so partially downloaded files never become visible.
func (s *Service) download(ctx context.Context, rawURL, hash string, class Class) (string, int64, error) {
	start := time.Now()

	resp, err := s.client.Get(ctx, rawURL)
	if err != nil {
		return "", 0, errors.Newf("media download failed: %w", err).
			Category(errors.CategoryImageFetch).
			Component("imagecache").
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", 0, errors.Newf("media download returned status %d", resp.StatusCode).
			Category(errors.CategoryImageFetch).
			Component("imagecache").
			Context("status_code", resp.StatusCode).
			Build()
	}

	shardDir := filepath.Join(s.root, string(class), hash[:2])
	if err := os.MkdirAll(shardDir, 0o755); err != nil {
		return "", 0, errors.Newf("failed to create media shard directory: %w", err).
			Category(errors.CategoryFileIO).
			Component("imagecache").
			Build()
	}

	finalPath := filepath.Join(shardDir, hash+extensionFor(rawURL, resp.Header.Get("Content-Type")))

	tmp, err := os.CreateTemp(shardDir, "download-*")
	if err != nil {
		return "", 0, errors.Newf("failed to create temp file: %w", err).
			Category(errors.CategoryFileIO).
			Component("imagecache").
			Build()
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, io.LimitReader(resp.Body, maxDownloadBytes))
	closeErr := tmp.Close()
	if err != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		return "", 0, errors.Newf("failed to write media file: %w", errors.Join(err, closeErr)).
			Category(errors.CategoryFileIO).
			Component("imagecache").
			Build()
	}
	if err := os.Rename(tmpName, finalPath); err != nil {
		_ = os.Remove(tmpName)
		return "", 0, errors.Newf("failed to move media file into place: %w", err).
			Category(errors.CategoryFileIO).
			Component("imagecache").
			Build()
	}

	if s.metrics != nil {
		s.metrics.IncrementDownloads()
		s.metrics.ObserveDownloadDuration(time.Since(start).Seconds())
	}
	s.logger.Debug("media downloaded",
		"class", class, "bytes", size, "duration_ms", time.Since(start).Milliseconds())

	return finalPath, size, nil
}

// evictToCapacity removes least-recently-used entries until the total
// size fits the capacity bound. Ties on access time break by insertion
// order.
func (s *Service) evictToCapacity() error {
	usage, err := s.currentUsage()
	if err != nil {
		return err
	}

	for usage > s.capacity {
		var victim MediaEntry
		err := s.db.Order("last_accessed_at, id").First(&victim).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return errors.Newf("failed to select eviction victim: %w", err).
				Category(errors.CategoryDatabase).
				Component("imagecache").
				Build()
		}

		if err := os.Remove(victim.Path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove evicted media file",
				"path", victim.Path, "error", err)
		}
		if err := s.db.Delete(&MediaEntry{}, victim.ID).Error; err != nil {
			return errors.Newf("failed to delete evicted media entry: %w", err).
				Category(errors.CategoryDatabase).
				Component("imagecache").
				Build()
		}

		usage -= victim.SizeBytes
		if s.metrics != nil {
			s.metrics.IncrementEvictions()
		}
		s.logger.Debug("evicted media file",
			"path", victim.Path, "bytes", victim.SizeBytes)
	}
	return nil
}

// UsageBytes returns the total size of all cached media files.
func (s *Service) UsageBytes() (int64, error) {
	return s.currentUsage()
}

// currentUsage sums the index; safe without the mutex, reads see a
// consistent snapshot.
func (s *Service) currentUsage() (int64, error) {
	var usage int64
	err := s.db.Model(&MediaEntry{}).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&usage).Error
	if err != nil {
		return 0, errors.Newf("failed to sum media cache usage: %w", err).
			Category(errors.CategoryDatabase).
			Component("imagecache").
			Build()
	}
	return usage, nil
}

// Clear removes every cached file and index row.
func (s *Service) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []MediaEntry
	if err := s.db.Find(&entries).Error; err != nil {
		return errors.Newf("failed to list media cache entries: %w", err).
			Category(errors.CategoryDatabase).
			Component("imagecache").
			Build()
	}
	for i := range entries {
		if err := os.Remove(entries[i].Path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove media file",
				"path", entries[i].Path, "error", err)
		}
	}
	if err := s.db.Where("1 = 1").Delete(&MediaEntry{}).Error; err != nil {
		return errors.Newf("failed to clear media cache index: %w", err).
			Category(errors.CategoryDatabase).
			Component("imagecache").
			Build()
	}
	s.updateSizeGauge()
	return nil
}

func (s *Service) updateSizeGauge() {
	if s.metrics == nil {
		return
	}
	if usage, err := s.currentUsage(); err == nil {
		s.metrics.SetCacheSize(float64(usage))
	}
}

func hashURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// extensionFor derives a file extension from the URL path, falling back
// to the response content type.
func extensionFor(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}
