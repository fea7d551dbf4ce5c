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

// DefaultINaturalistEndpoint is the public iNaturalist API base URL.
const DefaultINaturalistEndpoint = "https://api.inaturalist.org/v1"

// inatRateLimit stays under the documented 60 requests/minute budget.
const inatRateLimit = 1 // requests per second

// maxTaxonPhotos caps how many photos a media set carries.
const maxTaxonPhotos = 8

// INaturalist fetches curated taxon photos from the iNaturalist API.
type INaturalist struct {
	api      *apiClient
	endpoint string
	logger   *slog.Logger
}

// NewINaturalist creates the iNaturalist provider. An empty endpoint
// selects the public API.
func NewINaturalist(client *httpclient.Client, endpoint string, logger *slog.Logger) *INaturalist {
	if endpoint == "" {
		endpoint = DefaultINaturalistEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &INaturalist{
		api:      newAPIClient(client, rate.NewLimiter(rate.Limit(inatRateLimit), 3), "inaturalist"),
		endpoint: endpoint,
		logger:   logger,
	}
}

type inatPhoto struct {
	URL         string `json:"url"`
	OriginalURL string `json:"original_url"`
	LargeURL    string `json:"large_url"`
	MediumURL   string `json:"medium_url"`
	SmallURL    string `json:"small_url"`
	SquareURL   string `json:"square_url"`
	Attribution string `json:"attribution"`
	LicenseCode string `json:"license_code"`
}

type inatTaxon struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Rank         string     `json:"rank"`
	DefaultPhoto *inatPhoto `json:"default_photo"`
	TaxonPhotos  []struct {
		Photo inatPhoto `json:"photo"`
	} `json:"taxon_photos"`
}

type inatResponse struct {
	TotalResults int         `json:"total_results"`
	Results      []inatTaxon `json:"results"`
}

// Name implements Provider.
func (n *INaturalist) Name() Kind {
	return KindINaturalist
}

// FetchByNativeID fetches photos for an iNaturalist taxon ID.
func (n *INaturalist) FetchByNativeID(ctx context.Context, id string) (*Record, error) {
	body, err := n.api.getBytes(ctx, fmt.Sprintf("%s/taxa/%s", n.endpoint, url.PathEscape(id)))
	if err != nil {
		return nil, err
	}
	resp, err := n.parse(body)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, n.notFound(id)
	}
	rec := n.record(&resp.Results[0])
	if rec == nil {
		return nil, n.notFound(id)
	}
	return rec, nil
}

// FetchByName resolves a taxon by name and returns photos for the best
// match. Matches without photos are reported as absence.
func (n *INaturalist) FetchByName(ctx context.Context, name string) (*Record, error) {
	records, err := n.Search(ctx, name, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, n.notFound(name)
	}
	return records[0], nil
}

// Search queries taxa by name and returns one media record per taxon
// that has photos.
func (n *INaturalist) Search(ctx context.Context, queryText string, limit int) ([]*Record, error) {
	query := url.Values{}
	query.Set("q", queryText)
	query.Set("per_page", strconv.Itoa(limit))

	body, err := n.api.getBytes(ctx, fmt.Sprintf("%s/taxa?%s", n.endpoint, query.Encode()))
	if err != nil {
		return nil, err
	}
	resp, err := n.parse(body)
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(resp.Results))
	for i := range resp.Results {
		if rec := n.record(&resp.Results[i]); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (n *INaturalist) parse(body []byte) (*inatResponse, error) {
	var resp inatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Newf("failed to parse iNaturalist response: %w", err).
			Category(errors.CategoryFileParsing).
			Component("inaturalist").
			Build()
	}
	return &resp, nil
}

// record builds a media record from a taxon, or nil when the taxon
// carries no photos at all.
func (n *INaturalist) record(t *inatTaxon) *Record {
	items := make([]MediaItem, 0, maxTaxonPhotos)
	for i := range t.TaxonPhotos {
		if len(items) == maxTaxonPhotos {
			break
		}
		if item, ok := mediaItem(&t.TaxonPhotos[i].Photo); ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 && t.DefaultPhoto != nil {
		if item, ok := mediaItem(t.DefaultPhoto); ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil
	}

	return &Record{
		Kind:        KindINaturalist,
		Media:       &MediaSet{Items: items},
		Attribution: items[0].Attribution,
		FetchedAt:   time.Now(),
	}
}

// mediaItem picks the display URL (largest available) and the thumbnail
// URL (smallest available) for a photo.
func mediaItem(p *inatPhoto) (MediaItem, bool) {
	display := firstNonEmpty(p.LargeURL, p.OriginalURL, p.MediumURL, p.URL)
	thumb := firstNonEmpty(p.SmallURL, p.SquareURL, p.MediumURL, p.URL)
	if display == "" {
		return MediaItem{}, false
	}
	return MediaItem{
		URL:      display,
		ThumbURL: thumb,
		Attribution: Attribution{
			LicenseName: p.LicenseCode,
			AuthorName:  p.Attribution,
		},
	}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (n *INaturalist) notFound(subject string) error {
	return errors.Newf("no taxon with photos found for %q", subject).
		Category(errors.CategoryNotFound).
		Component("inaturalist").
		Build()
}
