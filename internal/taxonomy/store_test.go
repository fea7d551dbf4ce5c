package taxonomy

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestStore builds a writable index the way the import pipeline would.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "taxonomy.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Taxon{}, &VernacularName{}))
	return NewStore(db, nil)
}

func seedTaxa(t *testing.T, s *Store, taxa ...Taxon) {
	t.Helper()
	for i := range taxa {
		require.NoError(t, s.DB().Create(&taxa[i]).Error)
	}
}

func TestGetByID(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	seedTaxa(t, s, Taxon{
		ID:             7,
		ScientificName: "Vulpes vulpes (Linnaeus, 1758)",
		CanonicalName:  "Vulpes vulpes",
		Rank:           "species",
		Vernaculars: []VernacularName{
			{Language: "en", Name: "Red Fox", Priority: 0},
			{Language: "de", Name: "Rotfuchs", Priority: 0},
		},
	})

	taxon, err := s.GetByID(7)
	require.NoError(t, err)
	require.NotNil(t, taxon)
	assert.Equal(t, "Vulpes vulpes", taxon.CanonicalName)
	assert.Equal(t, "Red Fox", taxon.CommonName("en"))
	assert.Equal(t, "Rotfuchs", taxon.CommonName("de"))
	assert.Equal(t, "Vulpes vulpes", taxon.CommonName("fi"))

	missing, err := s.GetByID(9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetByNamePrefersAcceptedOverSynonym(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	seedTaxa(t, s,
		Taxon{ID: 1, ScientificName: "Canis aureus", CanonicalName: "Canis aureus", Rank: "species", Synonym: true},
		Taxon{ID: 2, ScientificName: "Canis aureus", CanonicalName: "Canis aureus", Rank: "species"},
	)

	taxon, err := s.GetByName("Canis aureus")
	require.NoError(t, err)
	require.NotNil(t, taxon)
	assert.Equal(t, uint(2), taxon.ID)
	assert.False(t, taxon.Synonym)
}

func TestGetIDRange(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	empty, err := s.GetIDRange()
	require.NoError(t, err)
	assert.True(t, empty.Empty())
	assert.Zero(t, empty.Span())

	seedTaxa(t, s,
		Taxon{ID: 5, CanonicalName: "a", Rank: "species"},
		Taxon{ID: 500, CanonicalName: "b", Rank: "genus"},
		Taxon{ID: 999, CanonicalName: "c", Rank: "species"},
	)

	bounds, err := s.GetIDRange()
	require.NoError(t, err)
	assert.Equal(t, uint(5), bounds.Min)
	assert.Equal(t, uint(999), bounds.Max)
	assert.Equal(t, uint(995), bounds.Span())
}

func TestScanFrom(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	seedTaxa(t, s,
		Taxon{ID: 5, CanonicalName: "a", Rank: "species"},
		Taxon{ID: 10, CanonicalName: "b", Rank: "genus"},
		Taxon{ID: 20, CanonicalName: "c", Rank: "species", Synonym: true},
		Taxon{ID: 30, CanonicalName: "d", Rank: "species"},
	)

	filter := Filter{Rank: "species"}

	taxon, err := s.ScanFrom(6, filter, Forward)
	require.NoError(t, err)
	require.NotNil(t, taxon)
	// 10 is a genus, 20 is a synonym; the scan lands on 30
	assert.Equal(t, uint(30), taxon.ID)

	taxon, err = s.ScanFrom(6, Filter{Rank: "species", IncludeSynonyms: true}, Forward)
	require.NoError(t, err)
	require.NotNil(t, taxon)
	assert.Equal(t, uint(20), taxon.ID)

	taxon, err = s.ScanFrom(29, Filter{}, Backward)
	require.NoError(t, err)
	require.NotNil(t, taxon)
	assert.Equal(t, uint(10), taxon.ID)

	taxon, err = s.ScanFrom(31, filter, Forward)
	require.NoError(t, err)
	assert.Nil(t, taxon)
}

func TestSearchTextFallback(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	for i := 1; i <= 30; i++ {
		seedTaxa(t, s, Taxon{
			ID:             uint(i),
			ScientificName: fmt.Sprintf("Parus species%02d", i),
			CanonicalName:  fmt.Sprintf("Parus species%02d", i),
			Rank:           "species",
		})
	}
	seedTaxa(t, s, Taxon{ID: 100, ScientificName: "Corvus corax", CanonicalName: "Corvus corax", Rank: "species"})

	results, err := s.SearchText("Corvus", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint(100), results[0].ID)

	results, err = s.SearchText("Parus", 10)
	require.NoError(t, err)
	assert.Len(t, results, 10)

	results, err = s.SearchText("   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
