package ghl

import (
	"encoding/json"
	"errors"

	"github.com/botpilote/ghlbridge/internal/apperr"
)

// errNoLocations marks a discovery response that parsed fine but listed
// no locations.
var errNoLocations = errors.New("no locations in response")

// ScopeKind distinguishes the two upstream account boundaries.
type ScopeKind string

// Scope kinds.
const (
	KindLocation ScopeKind = "location"
	KindCompany  ScopeKind = "company"
)

// Scope references the upstream account boundary that owns a set of
// custom-value records. A company scope aggregates zero or more locations.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// LocationScope builds a location scope reference.
func LocationScope(id string) Scope { return Scope{Kind: KindLocation, ID: id} }

// CompanyScope builds a company scope reference.
func CompanyScope(id string) Scope { return Scope{Kind: KindCompany, ID: id} }

// CustomValueRecord is one custom-value row as produced by the upstream
// CRM. Name and Value may be empty; Key is always non-empty (rows with a
// missing key are dropped during decoding rather than propagated).
type CustomValueRecord struct {
	Key   string
	Name  string
	Value string
}

// Location is one location row returned by company-level discovery.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// recordRow is the tolerant wire shape: everything optional, validated
// after decode.
type recordRow struct {
	Key   *string `json:"key"`
	Name  *string `json:"name"`
	Value *string `json:"value"`
}

// recordEnvelopeKeys lists the top-level array keys observed across
// upstream API versions, in preference order.
var recordEnvelopeKeys = []string{"customValues", "custom_values", "data", "results"}

// locationEnvelopeKeys is the equivalent for the location discovery
// endpoints.
var locationEnvelopeKeys = []string{"locations", "data"}

// extractRecords pulls a custom-value collection out of a decoded
// response body, trying each known envelope key in order. A body that
// parses as JSON but holds no recognizable collection yields
// apperr.ErrUpstreamShape.
func extractRecords(body []byte) ([]CustomValueRecord, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	for _, key := range recordEnvelopeKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var rows []recordRow
		if err := json.Unmarshal(raw, &rows); err != nil {
			continue
		}
		out := make([]CustomValueRecord, 0, len(rows))
		for _, r := range rows {
			if r.Key == nil || *r.Key == "" {
				continue
			}
			rec := CustomValueRecord{Key: *r.Key}
			if r.Name != nil {
				rec.Name = *r.Name
			}
			if r.Value != nil {
				rec.Value = *r.Value
			}
			out = append(out, rec)
		}
		return out, nil
	}
	return nil, apperr.ErrUpstreamShape
}

// extractLocations pulls a location list out of a discovery response
// body, with the same envelope-key tolerance as extractRecords.
func extractLocations(body []byte) ([]Location, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	for _, key := range locationEnvelopeKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var locs []Location
		if err := json.Unmarshal(raw, &locs); err != nil {
			continue
		}
		return locs, nil
	}
	return nil, apperr.ErrUpstreamShape
}
