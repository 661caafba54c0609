package api

import (
	"github.com/botpilote/ghlbridge/internal/mapping"
	"github.com/botpilote/ghlbridge/internal/resolver"
)

// ResolveFieldRequest is the request body for resolving a field.
type ResolveFieldRequest struct {
	LocationID string `json:"locationId" example:"ve9EPM428h8vShlRW1KT"`
	GHLAPIKey  string `json:"ghlApiKey" validate:"required"`
	FieldKey   string `json:"fieldKey" example:"welcome_message" validate:"required"`
}

// ResolveFieldResponse is the uniform resolution payload (aliased from
// the resolver layer).
type ResolveFieldResponse = resolver.Response

// MappingRequest is the client-editable part of a mapping, used for
// both create and update.
type MappingRequest struct {
	FieldType        string `json:"field_type" example:"custom_value" validate:"required"`
	GHLFieldKey      string `json:"ghl_field_key" example:"welcome_message" validate:"required"`
	ChatbotParameter string `json:"chatbot_parameter" example:"welcome_message" validate:"required"`
	LocationID       string `json:"location_id,omitempty"`
	CompanyID        string `json:"company_id,omitempty"`
}

// MappingListResponse wraps a chatbot's mappings.
type MappingListResponse struct {
	Mappings []mapping.Mapping `json:"mappings" validate:"required"`
}

// TestMappingRequest carries the credential used to exercise a stored
// mapping against the live upstream. Credentials are never persisted.
type TestMappingRequest struct {
	GHLAPIKey  string `json:"ghlApiKey" validate:"required"`
	LocationID string `json:"locationId,omitempty"`
}
