// Package mapping persists chatbot field mappings: which GHL custom
// value feeds which chatbot parameter.
package mapping

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Field types a mapping can reference upstream.
const (
	FieldTypeCustomValue = "custom_value"
	FieldTypeCustomField = "custom_field"
)

// Chatbot parameters a mapping can feed.
const (
	ParamOpenAIKey      = "openai_key"
	ParamSystemPrompt   = "system_prompt"
	ParamWelcomeMessage = "welcome_message"
	ParamTemperature    = "temperature"
	ParamMaxTokens      = "max_tokens"
)

// maxFieldKeyLen bounds the GHL field key length accepted from clients.
const maxFieldKeyLen = 100

// Mapping links one chatbot parameter to one upstream field.
type Mapping struct {
	ID               string    `json:"id"`
	ChatbotID        string    `json:"chatbot_id"`
	FieldType        string    `json:"field_type"`
	GHLFieldKey      string    `json:"ghl_field_key"`
	ChatbotParameter string    `json:"chatbot_parameter"`
	LocationID       string    `json:"location_id,omitempty"`
	CompanyID        string    `json:"company_id,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate checks the client-supplied fields of a mapping.
func (m *Mapping) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.ChatbotID, validation.Required),
		validation.Field(&m.FieldType, validation.Required,
			validation.In(FieldTypeCustomValue, FieldTypeCustomField)),
		validation.Field(&m.GHLFieldKey, validation.Required,
			validation.Length(1, maxFieldKeyLen)),
		validation.Field(&m.ChatbotParameter, validation.Required,
			validation.In(ParamOpenAIKey, ParamSystemPrompt, ParamWelcomeMessage,
				ParamTemperature, ParamMaxTokens)),
	)
}
