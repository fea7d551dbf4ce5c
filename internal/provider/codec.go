// codec.go: explicit tagged-union serialization for cached records.
//
// One encode/decode pair exists per record variant; an unknown tag is a
// decode error rather than a silently empty record.
package provider

import (
	"encoding/json"
	"time"

	"faunadex/internal/errors"
)

// envelope is the on-disk form of a Record. The Kind tag selects which of
// the payload fields is meaningful.
type envelope struct {
	Kind        Kind            `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	Attribution Attribution     `json:"attribution"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// EncodeRecord serializes a record for the enrichment cache.
func EncodeRecord(rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, errors.Newf("cannot encode nil record").
			Category(errors.CategoryValidation).
			Component("provider").
			Build()
	}

	var payload any
	switch rec.Kind {
	case KindGBIF:
		payload = rec.Profile
	case KindWikipedia:
		payload = rec.Summary
	case KindINaturalist:
		payload = rec.Media
	default:
		return nil, errors.Newf("cannot encode record of unknown kind %q", rec.Kind).
			Category(errors.CategoryValidation).
			Component("provider").
			Build()
	}
	if payload == nil {
		return nil, errors.Newf("record of kind %q has no payload", rec.Kind).
			Category(errors.CategoryValidation).
			Component("provider").
			Build()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Newf("failed to encode %s payload: %w", rec.Kind, err).
			Category(errors.CategoryFileParsing).
			Component("provider").
			Build()
	}

	return json.Marshal(envelope{
		Kind:        rec.Kind,
		Payload:     raw,
		Attribution: rec.Attribution,
		FetchedAt:   rec.FetchedAt,
	})
}

// DecodeRecord reconstructs a record from its cached form.
func DecodeRecord(data []byte) (*Record, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Newf("failed to decode record envelope: %w", err).
			Category(errors.CategoryFileParsing).
			Component("provider").
			Build()
	}

	rec := &Record{
		Kind:        env.Kind,
		Attribution: env.Attribution,
		FetchedAt:   env.FetchedAt,
	}

	switch env.Kind {
	case KindGBIF:
		rec.Profile = &Profile{}
		if err := json.Unmarshal(env.Payload, rec.Profile); err != nil {
			return nil, decodeError(env.Kind, err)
		}
	case KindWikipedia:
		rec.Summary = &Summary{}
		if err := json.Unmarshal(env.Payload, rec.Summary); err != nil {
			return nil, decodeError(env.Kind, err)
		}
	case KindINaturalist:
		rec.Media = &MediaSet{}
		if err := json.Unmarshal(env.Payload, rec.Media); err != nil {
			return nil, decodeError(env.Kind, err)
		}
	default:
		return nil, errors.Newf("cannot decode record of unknown kind %q", env.Kind).
			Category(errors.CategoryFileParsing).
			Component("provider").
			Build()
	}

	return rec, nil
}

func decodeError(kind Kind, err error) error {
	return errors.Newf("failed to decode %s payload: %w", kind, err).
		Category(errors.CategoryFileParsing).
		Component("provider").
		Build()
}
