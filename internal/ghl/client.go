// Package ghl is the upstream GoHighLevel API client. It hides the
// upstream's historical endpoint drift behind ordered fallback chains:
// each operation probes the known endpoint shapes in a fixed priority
// order and returns the first success, so callers never see which API
// version actually answered.
package ghl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/botpilote/ghlbridge/internal/credential"
)

const (
	// DefaultBaseURL is the current (v2) GHL API host.
	DefaultBaseURL = "https://services.leadconnectorhq.com"

	// DefaultLegacyBaseURL is the v1 host still honoured for raw API keys.
	DefaultLegacyBaseURL = "https://rest.gohighlevel.com"

	// DefaultVersion is the API-version header value required by the v2
	// endpoints.
	DefaultVersion = "2021-07-28"

	// maxResponseBytes caps how much of an upstream body is read, both to
	// bound memory and to keep diagnostic payloads sane.
	maxResponseBytes = 4 << 20
)

// Options configures a Client. Zero values fall back to the defaults
// above.
type Options struct {
	BaseURL        string
	LegacyBaseURL  string
	Version        string
	AttemptTimeout time.Duration
	MaxRetries     uint64
}

// Client talks to the upstream GHL API. It holds no per-request state
// and is safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	legacyBaseURL  string
	version        string
	attemptTimeout time.Duration
	maxRetries     uint64
	logger         *slog.Logger
}

// NewClient builds a Client with an in-memory ETag cache transport so
// repeated probes against a slow-changing upstream can answer from
// conditional requests. The cache keys entries by URL only: this assumes
// the upstream never marks credential-scoped responses cacheable without
// a Vary: Authorization header (as of today it sends no caching headers
// at all).
func NewClient(opts Options, logger *slog.Logger) *Client {
	hc := &http.Client{Transport: httpcache.NewMemoryCacheTransport()}
	return NewClientWithHTTPClient(hc, opts, logger)
}

// NewClientWithHTTPClient builds a Client around a caller-supplied
// http.Client. Intended for tests, where an httptest server stands in
// for the upstream.
func NewClientWithHTTPClient(hc *http.Client, opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.LegacyBaseURL == "" {
		opts.LegacyBaseURL = DefaultLegacyBaseURL
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient:     hc,
		baseURL:        opts.BaseURL,
		legacyBaseURL:  opts.LegacyBaseURL,
		version:        opts.Version,
		attemptTimeout: opts.AttemptTimeout,
		maxRetries:     opts.MaxRetries,
		logger:         logger,
	}
}

// authHeader formats the Authorization value: JWT-shaped credentials get
// the Bearer prefix, legacy raw API keys are sent as-is.
func authHeader(cred string) string {
	if credential.IsJWTShaped(cred) {
		return "Bearer " + cred
	}
	return cred
}

// newGet builds a GET request against one of the upstream hosts.
// versioned controls whether the v2 API-version header is attached.
func (c *Client) newGet(ctx context.Context, rawURL, cred string, versioned bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", authHeader(cred))
	req.Header.Set("Accept", "application/json")
	if versioned {
		req.Header.Set("Version", c.version)
	}
	return req, nil
}

// FetchCustomValues retrieves the full custom-value record set for a
// scope, probing endpoint shapes newest-first. Company scopes only probe
// the shapes that support company-level queries.
func (c *Client) FetchCustomValues(ctx context.Context, scope Scope, cred string) ([]CustomValueRecord, error) {
	var attempts []attempt[[]CustomValueRecord]

	switch scope.Kind {
	case KindLocation:
		attempts = []attempt[[]CustomValueRecord]{
			c.recordsAttempt("v2 camel", fmt.Sprintf("%s/locations/%s/customValues", c.baseURL, url.PathEscape(scope.ID)), cred, true),
			c.recordsAttempt("v2 kebab", fmt.Sprintf("%s/locations/%s/custom-values", c.baseURL, url.PathEscape(scope.ID)), cred, true),
			c.recordsAttempt("v1 legacy", c.legacyBaseURL+"/v1/custom-values/", cred, false),
		}
	case KindCompany:
		attempts = []attempt[[]CustomValueRecord]{
			c.recordsAttempt("v2 company kebab", fmt.Sprintf("%s/companies/%s/custom-values", c.baseURL, url.PathEscape(scope.ID)), cred, true),
			c.recordsAttempt("v2 company camel", fmt.Sprintf("%s/companies/%s/customValues", c.baseURL, url.PathEscape(scope.ID)), cred, true),
		}
	default:
		return nil, fmt.Errorf("unknown scope kind %q", scope.Kind)
	}

	return tryInOrder(ctx, c, attempts)
}

func (c *Client) recordsAttempt(name, rawURL, cred string, versioned bool) attempt[[]CustomValueRecord] {
	return attempt[[]CustomValueRecord]{
		name: name,
		build: func(ctx context.Context) (*http.Request, error) {
			return c.newGet(ctx, rawURL, cred, versioned)
		},
		parse: extractRecords,
	}
}

// DiscoverLocations lists the locations owned by a company, probing the
// known discovery endpoint shapes in order.
func (c *Client) DiscoverLocations(ctx context.Context, companyID, cred string) ([]Location, error) {
	attempts := []attempt[[]Location]{
		c.locationsAttempt("company locations", fmt.Sprintf("%s/companies/%s/locations/", c.baseURL, url.PathEscape(companyID)), cred, true),
		c.locationsAttempt("location search", fmt.Sprintf("%s/locations/search?companyId=%s", c.baseURL, url.QueryEscape(companyID)), cred, true),
		c.locationsAttempt("v1 locations", c.legacyBaseURL+"/v1/locations/", cred, false),
	}
	return tryInOrder(ctx, c, attempts)
}

func (c *Client) locationsAttempt(name, rawURL, cred string, versioned bool) attempt[[]Location] {
	return attempt[[]Location]{
		name: name,
		build: func(ctx context.Context) (*http.Request, error) {
			return c.newGet(ctx, rawURL, cred, versioned)
		},
		// Discovery only counts when it yields at least one location; an
		// empty list falls through to the next endpoint shape.
		parse: func(body []byte) ([]Location, error) {
			locs, err := extractLocations(body)
			if err != nil {
				return nil, err
			}
			if len(locs) == 0 {
				return nil, errNoLocations
			}
			return locs, nil
		},
	}
}
