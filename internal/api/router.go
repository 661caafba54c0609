package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/botpilote/ghlbridge/internal/mapping"
	"github.com/botpilote/ghlbridge/internal/resolver"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(res *resolver.Service, store *mapping.Store, authEnabled bool, token string) chi.Router {
	h := NewHandler(res, store)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Field resolution.
	r.Post("/fields/resolve", h.ResolveField)

	// Mapping CRUD.
	r.Get("/chatbots/{chatbotID}/mappings", h.ListMappings)
	r.Post("/chatbots/{chatbotID}/mappings", h.CreateMapping)
	r.Put("/mappings/{id}", h.UpdateMapping)
	r.Delete("/mappings/{id}", h.DeleteMapping)
	r.Post("/mappings/{id}/test", h.TestMapping)

	return r
}
