package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTripsEachVariant(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC().Truncate(time.Second)
	records := []*Record{
		{
			Kind:      KindGBIF,
			Profile:   &Profile{NativeID: "5219243", CanonicalName: "Vulpes vulpes", Rank: "SPECIES"},
			FetchedAt: now,
		},
		{
			Kind:        KindWikipedia,
			Summary:     &Summary{Title: "Red fox", Extract: "The red fox."},
			Attribution: Attribution{LicenseName: "CC BY-SA 4.0"},
			FetchedAt:   now,
		},
		{
			Kind:      KindINaturalist,
			Media:     &MediaSet{Items: []MediaItem{{URL: "https://example.org/a.jpg"}}},
			FetchedAt: now,
		},
	}

	for _, rec := range records {
		data, err := EncodeRecord(rec)
		require.NoError(t, err, "kind %s", rec.Kind)

		got, err := DecodeRecord(data)
		require.NoError(t, err, "kind %s", rec.Kind)
		assert.Equal(t, rec, got, "kind %s", rec.Kind)
	}
}

func TestCodecRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := EncodeRecord(&Record{Kind: Kind("ebird"), Profile: &Profile{}})
	assert.Error(t, err)

	_, err = DecodeRecord([]byte(`{"kind": "ebird", "payload": {}}`))
	assert.Error(t, err)
}

func TestCodecRejectsMissingPayload(t *testing.T) {
	t.Parallel()

	_, err := EncodeRecord(&Record{Kind: KindGBIF})
	assert.Error(t, err)

	_, err = EncodeRecord(nil)
	assert.Error(t, err)
}
