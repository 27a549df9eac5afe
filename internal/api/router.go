package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sift/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)
	r.Post("/append/*", h.AppendText)
	r.Post("/tag/*", h.AddTags)
	r.Get("/backlinks/*", h.Backlinks)
	r.Get("/tags", h.ListTags)

	// Search.
	r.Get("/search", h.Search)
	r.Post("/similar", h.Similar)
	r.Get("/related/*", h.Related)
	r.Get("/suggest", h.Suggest)

	// Cache and performance.
	r.Get("/stats/cache", h.CacheStats)
	r.Get("/stats/performance", h.PerformanceReport)
	r.Delete("/cache", h.ClearCache)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
