package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/hooktriage/internal/index"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /stream inside the auth group.
func NewRouter(hooks HookService, idx index.EventIndex, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(hooks, idx)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Hook receiver.
	r.Post("/hooks", h.HandleHook)
	r.Post("/hooks/preview", h.PreviewHook)

	// Ledger queries.
	r.Get("/ledger", h.ListEvents)
	r.Get("/ledger/search", h.Search)
	r.Get("/ledger/{line}", h.GetEvent)
	r.Get("/tasks/{task}", h.TaskHistory)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/stream", sseHandler.ServeHTTP)
	}

	return r
}
