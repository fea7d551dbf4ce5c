package provider

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faunadex/internal/errors"
	"faunadex/internal/httpclient"
)

// newMockClient returns an HTTP client whose transport is fully mocked.
func newMockClient(t *testing.T) (*httpclient.Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	client := httpclient.New(nil)
	client.SetTransport(transport)
	return client, transport
}

const gbifMatchResponse = `{
	"usageKey": 5219243,
	"scientificName": "Vulpes vulpes (Linnaeus, 1758)",
	"canonicalName": "Vulpes vulpes",
	"rank": "SPECIES",
	"status": "ACCEPTED",
	"matchType": "EXACT",
	"kingdom": "Animalia",
	"phylum": "Chordata",
	"class": "Mammalia",
	"order": "Carnivora",
	"family": "Canidae",
	"genus": "Vulpes"
}`

func TestGBIFFetchByName(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, `=~^https://api\.gbif\.org/v1/species/match`,
		httpmock.NewStringResponder(http.StatusOK, gbifMatchResponse))

	gbif := NewGBIF(client, "", nil)
	rec, err := gbif.FetchByName(context.Background(), "Vulpes vulpes")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, KindGBIF, rec.Kind)
	require.NotNil(t, rec.Profile)
	assert.Equal(t, "5219243", rec.Profile.NativeID)
	assert.Equal(t, "Vulpes vulpes", rec.Profile.CanonicalName)
	assert.Equal(t, "SPECIES", rec.Profile.Rank)
	assert.Equal(t, "Canidae", rec.Profile.Family)
	assert.Nil(t, rec.Summary)
	assert.Nil(t, rec.Media)
	assert.False(t, rec.FetchedAt.IsZero())
}

func TestGBIFFetchByNameNoMatch(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, `=~^https://api\.gbif\.org/v1/species/match`,
		httpmock.NewStringResponder(http.StatusOK, `{"matchType": "NONE", "confidence": 100}`))

	gbif := NewGBIF(client, "", nil)
	rec, err := gbif.FetchByName(context.Background(), "Nonexistus maximus")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Nil(t, rec)
}

func TestGBIFFetchByNativeID(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, "https://api.gbif.org/v1/species/5219243",
		httpmock.NewStringResponder(http.StatusOK, `{
			"key": 5219243,
			"scientificName": "Vulpes vulpes (Linnaeus, 1758)",
			"canonicalName": "Vulpes vulpes",
			"rank": "SPECIES",
			"taxonomicStatus": "ACCEPTED"
		}`))

	gbif := NewGBIF(client, "", nil)
	rec, err := gbif.FetchByNativeID(context.Background(), "5219243")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "5219243", rec.Profile.NativeID)
	assert.Equal(t, "ACCEPTED", rec.Profile.Status)
}

func TestGBIFRateLimitCarriesStatus(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, `=~^https://api\.gbif\.org/v1/species/match`,
		httpmock.NewStringResponder(http.StatusTooManyRequests, "slow down"))

	gbif := NewGBIF(client, "", nil)
	_, err := gbif.FetchByName(context.Background(), "Vulpes vulpes")
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	assert.True(t, errors.IsCategory(err, errors.CategoryLimit))
	assert.False(t, IsConnFailure(err), "a well-formed 429 is not a connection failure")
}

func TestGBIFTransportFailureIsConnFailure(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, `=~^https://api\.gbif\.org/v1/species/match`,
		httpmock.NewErrorResponder(assert.AnError))

	gbif := NewGBIF(client, "", nil)
	_, err := gbif.FetchByName(context.Background(), "Vulpes vulpes")
	require.Error(t, err)
	assert.True(t, IsConnFailure(err))
	assert.Zero(t, StatusCode(err))
}

func TestGBIFSearch(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, `=~^https://api\.gbif\.org/v1/species/search`,
		httpmock.NewStringResponder(http.StatusOK, `{
			"results": [
				{"key": 1, "canonicalName": "Vulpes vulpes", "rank": "SPECIES"},
				{"key": 2, "canonicalName": "Vulpes lagopus", "rank": "SPECIES"}
			]
		}`))

	gbif := NewGBIF(client, "", nil)
	records, err := gbif.Search(context.Background(), "vulpes", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].Profile.NativeID)
	assert.Equal(t, "Vulpes lagopus", records[1].Profile.CanonicalName)
}
