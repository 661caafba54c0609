// Package resolver orchestrates the field-resolution pipeline: scope
// resolution from credential hints, record fetching through the
// upstream client, fuzzy matching, and assembly of the uniform
// success-shaped response.
package resolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/botpilote/ghlbridge/internal/apperr"
	"github.com/botpilote/ghlbridge/internal/credential"
	"github.com/botpilote/ghlbridge/internal/ghl"
	"github.com/botpilote/ghlbridge/internal/match"
)

// UpstreamClient is the slice of the GHL client the resolver needs.
type UpstreamClient interface {
	FetchCustomValues(ctx context.Context, scope ghl.Scope, cred string) ([]ghl.CustomValueRecord, error)
	DiscoverLocations(ctx context.Context, companyID, cred string) ([]ghl.Location, error)
}

// Request is one field-resolution request.
type Request struct {
	LocationID string
	Credential string
	FieldKey   string
}

// Response is the uniform resolution payload. Every outcome, including
// upstream failures, is expressed through this shape at a success-class
// HTTP status; Error carries the failure signal.
type Response struct {
	Value   *string `json:"value"`
	Key     *string `json:"key"`
	Name    *string `json:"name"`
	Found   bool    `json:"found"`
	Error   string  `json:"error,omitempty"`
	Details string  `json:"details,omitempty"`
	Status  int     `json:"status,omitempty"`

	SearchTerms             []string              `json:"searchTerms,omitempty"`
	PotentialWelcomeMatches []match.RecordPreview `json:"potentialWelcomeMatches,omitempty"`
	TextContentFields       []match.RecordPreview `json:"textContentFields,omitempty"`
	AllKeys                 []match.RecordPreview `json:"allKeys,omitempty"`
}

// Service resolves logical field names against upstream custom values.
// Safe for concurrent use: the vocabulary swaps atomically and the
// record cache is internally locked.
type Service struct {
	client UpstreamClient
	cache  *recordCache[[]ghl.CustomValueRecord]
	group  singleflight.Group
	vocab  atomic.Value // match.Vocabulary
	logger *slog.Logger
}

// NewService builds a Service. cacheTTL bounds how long a fetched
// record set is reused per scope; zero disables the cache.
func NewService(client UpstreamClient, cacheTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		client: client,
		cache:  newRecordCache[[]ghl.CustomValueRecord](cacheTTL),
		logger: logger,
	}
	s.vocab.Store(match.DefaultVocabulary())
	return s
}

// SetVocabulary swaps the synonym vocabulary used for matching.
func (s *Service) SetVocabulary(v match.Vocabulary) {
	s.vocab.Store(v)
}

func (s *Service) vocabulary() match.Vocabulary {
	return s.vocab.Load().(match.Vocabulary)
}

// Resolve runs the full pipeline for one request. It never returns an
// error: all failure modes are folded into the Response.
func (s *Service) Resolve(ctx context.Context, req Request) Response {
	if req.Credential == "" {
		return errorResponse(errorMessage(apperr.ErrCredentialMissing, ghl.Scope{}), apperr.ErrCredentialMissing)
	}
	if req.FieldKey == "" {
		return errorResponse("Missing field key to search", nil)
	}

	scope, err := s.ResolveScope(ctx, req.Credential, req.LocationID)
	if err != nil {
		return errorResponse(errorMessage(err, scope), err)
	}

	records, err := s.Records(ctx, scope, req.Credential)
	if err != nil {
		return errorResponse(errorMessage(err, scope), err)
	}

	s.logger.Debug("fetched custom values",
		slog.String("scope_kind", string(scope.Kind)),
		slog.String("scope_id", scope.ID),
		slog.Int("records", len(records)))

	result := match.Match(records, req.FieldKey, s.vocabulary())
	return assemble(result)
}

// ResolveScope determines the concrete scope to query. An explicit
// location id short-circuits everything; otherwise the credential's
// claims drive discovery.
func (s *Service) ResolveScope(ctx context.Context, cred, explicitLocationID string) (ghl.Scope, error) {
	if explicitLocationID != "" {
		return ghl.LocationScope(explicitLocationID), nil
	}

	claims := credential.Inspect(cred)
	if claims.LocationID != "" {
		return ghl.LocationScope(claims.LocationID), nil
	}

	if claims.CompanyID != "" {
		locs, err := s.client.DiscoverLocations(ctx, claims.CompanyID, cred)
		if err == nil && len(locs) > 0 {
			s.logger.Info("using first discovered location",
				slog.String("company_id", claims.CompanyID),
				slog.String("location_id", locs[0].ID))
			return ghl.LocationScope(locs[0].ID), nil
		}
		if err != nil {
			s.logger.Warn("location discovery failed, falling back to company scope",
				slog.String("company_id", claims.CompanyID),
				slog.String("error", err.Error()))
		}
		return ghl.CompanyScope(claims.CompanyID), nil
	}

	if claims.Subject != "" {
		// Last-resort heuristic: treat the subject claim as a location id
		// candidate. Not a documented upstream contract.
		s.logger.Warn("no scope claims present, trying subject claim as location id",
			slog.String("sub", claims.Subject))
		return ghl.LocationScope(claims.Subject), nil
	}

	if credential.IsJWTShaped(cred) {
		return ghl.Scope{}, fmt.Errorf("%w: JWT payload carries no usable claims",
			apperr.ErrCredentialMalformed)
	}
	return ghl.Scope{}, fmt.Errorf("%w: credential carries neither location_id nor company_id",
		apperr.ErrScopeUndeterminable)
}

// Records fetches the record set for a scope, going through the TTL
// cache and collapsing concurrent fetches for the same scope+credential
// into a single upstream call.
func (s *Service) Records(ctx context.Context, scope ghl.Scope, cred string) ([]ghl.CustomValueRecord, error) {
	key := cacheKey(scope, cred)
	if cached, ok := s.cache.get(key); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		records, err := s.client.FetchCustomValues(ctx, scope, cred)
		if err != nil {
			return nil, err
		}
		s.cache.set(key, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ghl.CustomValueRecord), nil
}

// cacheKey folds the credential into the key so two tokens with
// different access never share an entry. The credential itself is
// hashed, not stored.
func cacheKey(scope ghl.Scope, cred string) string {
	sum := sha256.Sum256([]byte(cred))
	return string(scope.Kind) + ":" + scope.ID + ":" + hex.EncodeToString(sum[:8])
}

// assemble packages a match result into the response shape.
func assemble(result match.Result) Response {
	resp := Response{
		Found:                   result.Found,
		SearchTerms:             result.SearchTerms,
		PotentialWelcomeMatches: result.CandidateMatches,
		TextContentFields:       result.TextCandidates,
		AllKeys:                 result.AllRecords,
	}
	if result.Record != nil {
		resp.Value = nullable(result.Record.Value)
		resp.Key = nullable(result.Record.Key)
		resp.Name = nullable(result.Record.Name)
	}
	return resp
}

// errorResponse builds the failure variant of the uniform payload,
// attaching upstream diagnostics when available.
func errorResponse(msg string, err error) Response {
	resp := Response{Found: false, Error: msg}
	var ue *apperr.UpstreamError
	if errors.As(err, &ue) {
		resp.Status = ue.Status
		resp.Details = ue.Body
	}
	return resp
}

// errorMessage translates a pipeline error into the user-facing message.
func errorMessage(err error, scope ghl.Scope) string {
	switch {
	case errors.Is(err, apperr.ErrCredentialMissing):
		return "Missing GHL API key"
	case errors.Is(err, apperr.ErrScopeUndeterminable),
		errors.Is(err, apperr.ErrCredentialMalformed):
		return "Could not determine location ID - please provide it explicitly or use a credential with location_id"
	case errors.Is(err, apperr.ErrUpstreamAuth):
		return "GHL API authentication error: invalid API key or token expired"
	case errors.Is(err, apperr.ErrUpstreamPermission):
		return "GHL API permission error: token does not have access to this location"
	case errors.Is(err, apperr.ErrUpstreamNotFound):
		if scope.ID != "" {
			return fmt.Sprintf("GHL API error: %s ID %s not found", scope.Kind, scope.ID)
		}
		return "GHL API error: scope not found"
	case errors.Is(err, apperr.ErrUpstreamShape):
		return "Unexpected API response format"
	default:
		return fmt.Sprintf("GHL API error: %v", err)
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
