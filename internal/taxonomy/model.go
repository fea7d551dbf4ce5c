// model.go defines the data model of the local taxonomy index.
//
// The index is produced by the batch import pipeline and is read-only from
// this application's point of view.
package taxonomy

// Taxon represents a single node of the classification hierarchy.
type Taxon struct {
	ID             uint   `gorm:"primaryKey"`
	ScientificName string `gorm:"index:idx_taxa_sciname"`
	CanonicalName  string `gorm:"index:idx_taxa_canonical"`
	Rank           string `gorm:"index:idx_taxa_rank;size:32"`
	Synonym        bool
	Vernaculars    []VernacularName `gorm:"foreignKey:TaxonID;constraint:OnDelete:CASCADE"`
}

// VernacularName is a common name for a taxon in a given language.
// Priority orders names within one language, lowest first.
type VernacularName struct {
	ID       uint   `gorm:"primaryKey"`
	TaxonID  uint   `gorm:"index;not null"`
	Language string `gorm:"size:8"`
	Name     string
	Priority int
}

// DisplayName returns the canonical name, falling back to the full
// scientific name when the import pipeline left it empty.
func (t *Taxon) DisplayName() string {
	if t.CanonicalName != "" {
		return t.CanonicalName
	}
	return t.ScientificName
}

// CommonName returns the highest-priority vernacular name for the given
// language, falling back to the first name of any language, then to the
// canonical name.
func (t *Taxon) CommonName(language string) string {
	for i := range t.Vernaculars {
		if t.Vernaculars[i].Language == language {
			return t.Vernaculars[i].Name
		}
	}
	if len(t.Vernaculars) > 0 {
		return t.Vernaculars[0].Name
	}
	return t.CanonicalName
}

// Filter restricts which taxa a scan or pick may return.
// A zero Rank matches any rank. Synonyms are excluded unless
// IncludeSynonyms is set.
type Filter struct {
	Rank            string
	IncludeSynonyms bool
}

// IDRange holds the primary-key bounds of the index for the unfiltered
// table. Derived, never stored.
type IDRange struct {
	Min uint
	Max uint
}

// Empty reports whether the range covers no rows at all.
func (r IDRange) Empty() bool {
	return r.Max == 0 && r.Min == 0
}

// Span returns the number of ids covered by the range, inclusive.
func (r IDRange) Span() uint {
	if r.Empty() {
		return 0
	}
	return r.Max - r.Min + 1
}
