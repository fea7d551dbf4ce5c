package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"faunadex/internal/errors"
	"faunadex/internal/httpclient"
)

// DefaultGBIFEndpoint is the public GBIF API base URL.
const DefaultGBIFEndpoint = "https://api.gbif.org/v1"

// gbifRateLimit is the request budget against the public GBIF API.
const gbifRateLimit = 10 // requests per second

// GBIF fetches structured species facts from the GBIF backbone taxonomy.
type GBIF struct {
	api      *apiClient
	endpoint string
	logger   *slog.Logger
}

// NewGBIF creates the GBIF provider. An empty endpoint selects the public
// API.
func NewGBIF(client *httpclient.Client, endpoint string, logger *slog.Logger) *GBIF {
	if endpoint == "" {
		endpoint = DefaultGBIFEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GBIF{
		api:      newAPIClient(client, rate.NewLimiter(rate.Limit(gbifRateLimit), gbifRateLimit), "gbif"),
		endpoint: endpoint,
		logger:   logger,
	}
}

// gbifSpecies mirrors the fields we use from GBIF species responses. The
// match and lookup endpoints share this shape.
type gbifSpecies struct {
	Key            int64  `json:"key"`
	UsageKey       int64  `json:"usageKey"`
	ScientificName string `json:"scientificName"`
	CanonicalName  string `json:"canonicalName"`
	Rank           string `json:"rank"`
	Status         string `json:"status"`
	TaxonomicStat  string `json:"taxonomicStatus"`
	MatchType      string `json:"matchType"`
	Kingdom        string `json:"kingdom"`
	Phylum         string `json:"phylum"`
	Class          string `json:"class"`
	Order          string `json:"order"`
	Family         string `json:"family"`
	Genus          string `json:"genus"`
	VernacularName string `json:"vernacularName"`
}

type gbifSearchResponse struct {
	Results []gbifSpecies `json:"results"`
}

// Name implements Provider.
func (g *GBIF) Name() Kind {
	return KindGBIF
}

// FetchByNativeID looks up a species by GBIF usage key.
func (g *GBIF) FetchByNativeID(ctx context.Context, id string) (*Record, error) {
	body, err := g.api.getBytes(ctx, fmt.Sprintf("%s/species/%s", g.endpoint, url.PathEscape(id)))
	if err != nil {
		return nil, err
	}

	var species gbifSpecies
	if err := json.Unmarshal(body, &species); err != nil {
		return nil, g.parseError(err)
	}
	return g.record(&species), nil
}

// FetchByName resolves a scientific name through the backbone match
// endpoint. A fuzzy miss ("NONE" match) is reported as absence.
func (g *GBIF) FetchByName(ctx context.Context, name string) (*Record, error) {
	query := url.Values{}
	query.Set("name", name)
	query.Set("strict", "false")

	body, err := g.api.getBytes(ctx, fmt.Sprintf("%s/species/match?%s", g.endpoint, query.Encode()))
	if err != nil {
		return nil, err
	}

	var species gbifSpecies
	if err := json.Unmarshal(body, &species); err != nil {
		return nil, g.parseError(err)
	}
	if species.MatchType == "NONE" || (species.Key == 0 && species.UsageKey == 0) {
		return nil, errors.Newf("no backbone match for %q", name).
			Category(errors.CategoryNotFound).
			Component("gbif").
			Build()
	}
	return g.record(&species), nil
}

// Search runs a free-text species search.
func (g *GBIF) Search(ctx context.Context, queryText string, limit int) ([]*Record, error) {
	query := url.Values{}
	query.Set("q", queryText)
	query.Set("limit", strconv.Itoa(limit))

	body, err := g.api.getBytes(ctx, fmt.Sprintf("%s/species/search?%s", g.endpoint, query.Encode()))
	if err != nil {
		return nil, err
	}

	var resp gbifSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, g.parseError(err)
	}

	records := make([]*Record, 0, len(resp.Results))
	for i := range resp.Results {
		records = append(records, g.record(&resp.Results[i]))
	}
	return records, nil
}

func (g *GBIF) record(s *gbifSpecies) *Record {
	key := s.Key
	if key == 0 {
		key = s.UsageKey
	}
	status := s.Status
	if status == "" {
		status = s.TaxonomicStat
	}
	return &Record{
		Kind: KindGBIF,
		Profile: &Profile{
			NativeID:       strconv.FormatInt(key, 10),
			ScientificName: s.ScientificName,
			CanonicalName:  s.CanonicalName,
			Rank:           s.Rank,
			Status:         status,
			Kingdom:        s.Kingdom,
			Phylum:         s.Phylum,
			Class:          s.Class,
			Order:          s.Order,
			Family:         s.Family,
			Genus:          s.Genus,
			VernacularName: s.VernacularName,
		},
		Attribution: Attribution{
			LicenseName: "CC BY 4.0",
			LicenseURL:  "https://creativecommons.org/licenses/by/4.0/",
			AuthorName:  "GBIF",
			AuthorURL:   "https://www.gbif.org",
		},
		FetchedAt: time.Now(),
	}
}

func (g *GBIF) parseError(err error) error {
	return errors.Newf("failed to parse GBIF response: %w", err).
		Category(errors.CategoryFileParsing).
		Component("gbif").
		Build()
}
