// Package credential inspects opaque GHL bearer credentials for scope
// hints. It is a best-effort hint extractor, not an authentication
// boundary: no signature is verified, and a credential that cannot be
// decoded simply yields no hints. Authentication proper is delegated to
// the upstream API, which rejects bad credentials with a 401.
package credential

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Claims holds the scope hints extracted from a credential.
//
// Valid is true only when at least one routable scope id (location or
// company) is present; a structurally well-formed token with no
// exploitable claims is still invalid for routing purposes.
type Claims struct {
	LocationID string
	CompanyID  string
	Subject    string
	Valid      bool
}

// IsJWTShaped reports whether the credential has the three-segment
// dot-delimited shape of a JWT. Legacy GHL API keys are raw strings and
// are sent upstream as-is.
func IsJWTShaped(credential string) bool {
	return len(strings.Split(credential, ".")) == 3
}

// Inspect decodes the credential's payload segment and extracts scope
// hints. It never panics and never returns an error: any structural or
// decoding failure yields Claims{Valid: false}.
func Inspect(credential string) Claims {
	parts := strings.Split(credential, ".")
	if len(parts) != 3 {
		return Claims{}
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return Claims{}
	}

	var body struct {
		LocationID string `json:"location_id"`
		CompanyID  string `json:"company_id"`
		Subject    string `json:"sub"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return Claims{}
	}

	return Claims{
		LocationID: body.LocationID,
		CompanyID:  body.CompanyID,
		Subject:    body.Subject,
		Valid:      body.LocationID != "" || body.CompanyID != "",
	}
}

// decodeSegment tolerates both standard and URL-safe base64, with or
// without padding, since GHL tokens have been observed in both forms.
func decodeSegment(seg string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	} {
		if data, err := enc.DecodeString(seg); err == nil {
			return data, nil
		}
	}
	return base64.RawURLEncoding.DecodeString(seg)
}
