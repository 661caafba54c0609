package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/botpilote/ghlbridge/internal/apperr"
	"github.com/botpilote/ghlbridge/internal/mapping"
	"github.com/botpilote/ghlbridge/internal/resolver"
)

// Handler holds API route handlers.
type Handler struct {
	resolver *resolver.Service
	mappings *mapping.Store
}

// NewHandler creates a new Handler.
func NewHandler(res *resolver.Service, store *mapping.Store) *Handler {
	return &Handler{resolver: res, mappings: store}
}

// ResolveField handles POST /api/fields/resolve.
//
// Every outcome, including upstream failures, is returned at HTTP 200
// with the "error" field as the failure signal, so the calling UI can
// always render a consistent result.
//
//	@Summary		Resolve a logical field name against GHL custom values
//	@Tags			fields
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ResolveFieldRequest	true	"Resolution request"
//	@Success		200		{object}	ResolveFieldResponse
//	@Security		BearerAuth
//	@Router			/fields/resolve [post]
func (h *Handler) ResolveField(w http.ResponseWriter, r *http.Request) {
	var req ResolveFieldRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusOK, resolver.Response{Found: false, Error: "invalid JSON body"})
		return
	}

	resp := h.resolver.Resolve(r.Context(), resolver.Request{
		LocationID: req.LocationID,
		Credential: req.GHLAPIKey,
		FieldKey:   req.FieldKey,
	})
	writeJSON(w, http.StatusOK, resp)
}

// ListMappings handles GET /api/chatbots/{chatbotID}/mappings.
//
//	@Summary		List field mappings for a chatbot
//	@Tags			mappings
//	@Produce		json
//	@Param			chatbotID	path		string	true	"Chatbot ID"
//	@Success		200			{object}	MappingListResponse
//	@Security		BearerAuth
//	@Router			/chatbots/{chatbotID}/mappings [get]
func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	chatbotID := chi.URLParam(r, "chatbotID")
	list, err := h.mappings.ListByChatbot(chatbotID)
	if err != nil {
		slog.Error("list mappings failed", slog.String("chatbot_id", chatbotID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, MappingListResponse{Mappings: list})
}

// CreateMapping handles POST /api/chatbots/{chatbotID}/mappings.
//
//	@Summary		Create a field mapping
//	@Tags			mappings
//	@Accept			json
//	@Produce		json
//	@Param			chatbotID	path		string			true	"Chatbot ID"
//	@Param			body		body		MappingRequest	true	"Mapping to create"
//	@Success		201			{object}	mapping.Mapping
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/chatbots/{chatbotID}/mappings [post]
func (h *Handler) CreateMapping(w http.ResponseWriter, r *http.Request) {
	var req MappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	m := mapping.Mapping{
		ID:               uuid.New().String(),
		ChatbotID:        chi.URLParam(r, "chatbotID"),
		FieldType:        req.FieldType,
		GHLFieldKey:      req.GHLFieldKey,
		ChatbotParameter: req.ChatbotParameter,
		LocationID:       req.LocationID,
		CompanyID:        req.CompanyID,
		UpdatedAt:        time.Now().UTC(),
	}
	if err := m.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if err := h.mappings.Create(m); err != nil {
		slog.Error("create mapping failed", slog.String("chatbot_id", m.ChatbotID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// UpdateMapping handles PUT /api/mappings/{id}.
//
//	@Summary		Update a field mapping
//	@Tags			mappings
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Mapping ID"
//	@Param			body	body		MappingRequest	true	"Updated mapping"
//	@Success		200		{object}	mapping.Mapping
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/mappings/{id} [put]
func (h *Handler) UpdateMapping(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.mappings.Get(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("load mapping failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	var req MappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	m := existing
	m.FieldType = req.FieldType
	m.GHLFieldKey = req.GHLFieldKey
	m.ChatbotParameter = req.ChatbotParameter
	m.LocationID = req.LocationID
	m.CompanyID = req.CompanyID
	m.UpdatedAt = time.Now().UTC()
	if err := m.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if err := h.mappings.Update(m); err != nil {
		slog.Error("update mapping failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMapping handles DELETE /api/mappings/{id}.
//
//	@Summary		Delete a field mapping
//	@Tags			mappings
//	@Param			id	path	string	true	"Mapping ID"
//	@Success		204	"Mapping deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/mappings/{id} [delete]
func (h *Handler) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.mappings.Delete(id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete mapping failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestMapping handles POST /api/mappings/{id}/test.
//
// Resolves the mapping's stored field key against the live upstream
// using a caller-supplied credential. Shares the uniform 200 payload of
// ResolveField.
//
//	@Summary		Test a stored mapping against the upstream API
//	@Tags			mappings
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Mapping ID"
//	@Param			body	body		TestMappingRequest	true	"Credential to test with"
//	@Success		200		{object}	ResolveFieldResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/mappings/{id}/test [post]
func (h *Handler) TestMapping(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := h.mappings.Get(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("load mapping failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	var req TestMappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusOK, resolver.Response{Found: false, Error: "invalid JSON body"})
		return
	}

	locationID := req.LocationID
	if locationID == "" {
		locationID = m.LocationID
	}

	resp := h.resolver.Resolve(r.Context(), resolver.Request{
		LocationID: locationID,
		Credential: req.GHLAPIKey,
		FieldKey:   m.GHLFieldKey,
	})
	writeJSON(w, http.StatusOK, resp)
}
