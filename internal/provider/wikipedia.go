package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/google/uuid"
	"github.com/k3a/html2text"
	"golang.org/x/time/rate"

	"faunadex/internal/errors"
	"faunadex/internal/httpclient"
)

// DefaultWikipediaEndpoint is the English Wikipedia action API.
const DefaultWikipediaEndpoint = "https://en.wikipedia.org/w/api.php"

// wikipediaRateLimit keeps us well inside the Wikimedia API etiquette.
const wikipediaRateLimit = 10 // requests per second

// Wikipedia fetches article summaries through the MediaWiki action API.
type Wikipedia struct {
	api      *apiClient
	endpoint string
	logger   *slog.Logger
}

// NewWikipedia creates the Wikipedia provider. An empty endpoint selects
// English Wikipedia; language editions are selected by endpoint, e.g.
// https://de.wikipedia.org/w/api.php.
func NewWikipedia(client *httpclient.Client, endpoint string, logger *slog.Logger) *Wikipedia {
	if endpoint == "" {
		endpoint = DefaultWikipediaEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Wikipedia{
		api:      newAPIClient(client, rate.NewLimiter(rate.Limit(wikipediaRateLimit), wikipediaRateLimit), "wikipedia"),
		endpoint: endpoint,
		logger:   logger,
	}
}

// Name implements Provider.
func (w *Wikipedia) Name() Kind {
	return KindWikipedia
}

// FetchByNativeID fetches a summary by page ID.
func (w *Wikipedia) FetchByNativeID(ctx context.Context, id string) (*Record, error) {
	return w.fetchSummary(ctx, url.Values{"pageids": []string{id}})
}

// FetchByName fetches a summary by article title, following redirects so
// scientific names resolve to the common-name article.
func (w *Wikipedia) FetchByName(ctx context.Context, name string) (*Record, error) {
	return w.fetchSummary(ctx, url.Values{
		"titles":    []string{name},
		"redirects": []string{"1"},
	})
}

// Search runs a full-text search and fetches a summary per hit.
func (w *Wikipedia) Search(ctx context.Context, queryText string, limit int) ([]*Record, error) {
	reqID := uuid.New().String()
	params := url.Values{
		"action":   []string{"query"},
		"format":   []string{"json"},
		"list":     []string{"search"},
		"srsearch": []string{queryText},
		"srlimit":  []string{strconv.Itoa(limit)},
	}

	body, err := w.api.getBytes(ctx, w.endpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	root, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return nil, w.parseError(reqID, err)
	}
	hits, err := root.GetObjectArray("query", "search")
	if err != nil {
		return nil, w.parseError(reqID, err)
	}

	records := make([]*Record, 0, len(hits))
	for _, hit := range hits {
		title, err := hit.GetString("title")
		if err != nil {
			continue
		}
		rec, err := w.FetchByName(ctx, title)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		w.logger.Debug("wikipedia search returned no usable pages",
			"request_id", reqID, "query", queryText)
	}
	return records, nil
}

// fetchSummary runs an extracts query for a single page selected by the
// given parameters.
func (w *Wikipedia) fetchSummary(ctx context.Context, selector url.Values) (*Record, error) {
	reqID := uuid.New().String()

	params := url.Values{
		"action":        []string{"query"},
		"format":        []string{"json"},
		"formatversion": []string{"2"},
		"prop":          []string{"extracts|info"},
		"inprop":        []string{"url"},
		"exintro":       []string{"1"},
	}
	for key, values := range selector {
		params[key] = values
	}

	body, err := w.api.getBytes(ctx, w.endpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	root, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return nil, w.parseError(reqID, err)
	}
	pages, err := root.GetObjectArray("query", "pages")
	if err != nil || len(pages) == 0 {
		return nil, w.notFound(reqID)
	}

	page := pages[0]
	if missing, _ := page.GetBoolean("missing"); missing {
		return nil, w.notFound(reqID)
	}

	title, err := page.GetString("title")
	if err != nil {
		return nil, w.parseError(reqID, err)
	}
	extract, _ := page.GetString("extract")
	pageURL, _ := page.GetString("fullurl")

	// Extracts come back as limited HTML; strip it down to plain text.
	text := strings.TrimSpace(html2text.HTML2Text(extract))
	if text == "" {
		return nil, w.notFound(reqID)
	}

	w.logger.Debug("fetched wikipedia summary",
		"request_id", reqID, "title", title, "chars", len(text))

	return &Record{
		Kind: KindWikipedia,
		Summary: &Summary{
			Title:   title,
			Extract: text,
			PageURL: pageURL,
		},
		Attribution: Attribution{
			LicenseName: "CC BY-SA 4.0",
			LicenseURL:  "https://creativecommons.org/licenses/by-sa/4.0/",
			AuthorName:  "Wikipedia contributors",
			AuthorURL:   pageURL,
		},
		FetchedAt: time.Now(),
	}, nil
}

func (w *Wikipedia) notFound(reqID string) error {
	return errors.Newf("no article found").
		Category(errors.CategoryNotFound).
		Component("wikipedia").
		Context("request_id", reqID).
		Build()
}

func (w *Wikipedia) parseError(reqID string, err error) error {
	return errors.New(fmt.Errorf("failed to parse wikipedia response: %w", err)).
		Category(errors.CategoryFileParsing).
		Component("wikipedia").
		Context("request_id", reqID).
		Build()
}
