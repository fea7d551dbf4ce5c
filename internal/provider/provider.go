// Package provider defines the external content providers and the records
// they contribute to an enriched taxon.
//
// Three providers exist, one per record variant: gbif (profile facts),
// wikipedia (article summary) and inaturalist (media). All three expose
// the same three operations so the orchestrator can treat them
// polymorphically.
package provider

import (
	"context"
	"time"
)

// Kind identifies a provider and doubles as the cache key tag.
type Kind string

const (
	KindGBIF        Kind = "gbif"
	KindWikipedia   Kind = "wikipedia"
	KindINaturalist Kind = "inaturalist"
)

// Kinds lists all providers in the order the orchestrator reports them.
func Kinds() []Kind {
	return []Kind{KindGBIF, KindWikipedia, KindINaturalist}
}

// Attribution carries the license and author information a provider
// requires to be displayed with its content.
type Attribution struct {
	LicenseName string `json:"license_name,omitempty"`
	LicenseURL  string `json:"license_url,omitempty"`
	AuthorName  string `json:"author_name,omitempty"`
	AuthorURL   string `json:"author_url,omitempty"`
}

// Profile holds the structured species facts contributed by GBIF.
type Profile struct {
	NativeID       string `json:"native_id"`
	ScientificName string `json:"scientific_name"`
	CanonicalName  string `json:"canonical_name"`
	Rank           string `json:"rank"`
	Status         string `json:"status"`
	Kingdom        string `json:"kingdom,omitempty"`
	Phylum         string `json:"phylum,omitempty"`
	Class          string `json:"class,omitempty"`
	Order          string `json:"order,omitempty"`
	Family         string `json:"family,omitempty"`
	Genus          string `json:"genus,omitempty"`
	VernacularName string `json:"vernacular_name,omitempty"`
}

// Summary holds an article summary contributed by Wikipedia.
type Summary struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	PageURL string `json:"page_url,omitempty"`
}

// MediaItem is a single photo with its display and thumbnail URLs.
type MediaItem struct {
	URL         string      `json:"url"`
	ThumbURL    string      `json:"thumb_url,omitempty"`
	Attribution Attribution `json:"attribution"`
}

// MediaSet holds the photos contributed by iNaturalist.
type MediaSet struct {
	Items []MediaItem `json:"items"`
}

// Record is the tagged union over the three provider payloads. Exactly one
// of Profile, Summary and Media is non-nil, selected by Kind.
type Record struct {
	Kind        Kind
	Profile     *Profile
	Summary     *Summary
	Media       *MediaSet
	Attribution Attribution
	FetchedAt   time.Time
}

// Provider is implemented by each concrete content source. All operations
// report absence through errors with CategoryNotFound; the resilient
// wrapper converts those (and every other expected failure) into a nil
// record.
type Provider interface {
	Name() Kind
	// FetchByNativeID fetches by the provider's own identifier scheme.
	FetchByNativeID(ctx context.Context, id string) (*Record, error)
	// FetchByName fetches by taxonomic (scientific) name.
	FetchByName(ctx context.Context, name string) (*Record, error)
	// Search runs a free-text query and returns up to limit records.
	Search(ctx context.Context, query string, limit int) ([]*Record, error)
}
