package provider

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faunadex/internal/errors"
)

const inatTaxaResponse = `{
	"total_results": 1,
	"results": [
		{
			"id": 42069,
			"name": "Vulpes vulpes",
			"rank": "species",
			"default_photo": {
				"url": "https://static.inaturalist.org/photos/1/square.jpg",
				"medium_url": "https://static.inaturalist.org/photos/1/medium.jpg",
				"attribution": "(c) someone, CC BY-NC",
				"license_code": "cc-by-nc"
			},
			"taxon_photos": [
				{
					"photo": {
						"large_url": "https://static.inaturalist.org/photos/2/large.jpg",
						"small_url": "https://static.inaturalist.org/photos/2/small.jpg",
						"square_url": "https://static.inaturalist.org/photos/2/square.jpg",
						"attribution": "(c) alice, CC BY",
						"license_code": "cc-by"
					}
				},
				{
					"photo": {
						"original_url": "https://static.inaturalist.org/photos/3/original.jpg",
						"square_url": "https://static.inaturalist.org/photos/3/square.jpg",
						"attribution": "(c) bob, CC0",
						"license_code": "cc0"
					}
				}
			]
		}
	]
}`

func TestINaturalistFetchByName(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, `=~^https://api\.inaturalist\.org/v1/taxa`,
		httpmock.NewStringResponder(http.StatusOK, inatTaxaResponse))

	inat := NewINaturalist(client, "", nil)
	rec, err := inat.FetchByName(context.Background(), "Vulpes vulpes")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, KindINaturalist, rec.Kind)
	require.NotNil(t, rec.Media)
	require.Len(t, rec.Media.Items, 2)

	// Display URL prefers the largest size, thumbnail the smallest
	assert.Equal(t, "https://static.inaturalist.org/photos/2/large.jpg", rec.Media.Items[0].URL)
	assert.Equal(t, "https://static.inaturalist.org/photos/2/small.jpg", rec.Media.Items[0].ThumbURL)
	assert.Equal(t, "https://static.inaturalist.org/photos/3/original.jpg", rec.Media.Items[1].URL)
	assert.Equal(t, "https://static.inaturalist.org/photos/3/square.jpg", rec.Media.Items[1].ThumbURL)

	assert.Equal(t, "cc-by", rec.Media.Items[0].Attribution.LicenseName)
	assert.Equal(t, "(c) alice, CC BY", rec.Attribution.AuthorName)
	assert.Nil(t, rec.Profile)
	assert.Nil(t, rec.Summary)
}

func TestINaturalistFallsBackToDefaultPhoto(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, `=~^https://api\.inaturalist\.org/v1/taxa`,
		httpmock.NewStringResponder(http.StatusOK, `{
			"total_results": 1,
			"results": [
				{
					"id": 7,
					"name": "Meles meles",
					"rank": "species",
					"default_photo": {
						"medium_url": "https://static.inaturalist.org/photos/9/medium.jpg",
						"square_url": "https://static.inaturalist.org/photos/9/square.jpg",
						"attribution": "(c) carol",
						"license_code": "cc-by"
					}
				}
			]
		}`))

	inat := NewINaturalist(client, "", nil)
	rec, err := inat.FetchByName(context.Background(), "Meles meles")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Len(t, rec.Media.Items, 1)
	assert.Equal(t, "https://static.inaturalist.org/photos/9/medium.jpg", rec.Media.Items[0].URL)
}

func TestINaturalistNoPhotosIsAbsence(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, `=~^https://api\.inaturalist\.org/v1/taxa`,
		httpmock.NewStringResponder(http.StatusOK, `{
			"total_results": 1,
			"results": [{"id": 8, "name": "Obscurus taxon", "rank": "species"}]
		}`))

	inat := NewINaturalist(client, "", nil)
	rec, err := inat.FetchByName(context.Background(), "Obscurus taxon")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Nil(t, rec)
}

func TestINaturalistEmptyResults(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, `=~^https://api\.inaturalist\.org/v1/taxa`,
		httpmock.NewStringResponder(http.StatusOK, `{"total_results": 0, "results": []}`))

	inat := NewINaturalist(client, "", nil)
	rec, err := inat.FetchByName(context.Background(), "Nonexistus maximus")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Nil(t, rec)
}
