package couple

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns couple router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// All routes require authentication
	r.Use(authMiddleware)

	r.Post("/bind", h.Bind)
	r.Get("/requests", h.ListRequests)
	r.Post("/accept", h.Accept)
	r.Post("/reject", h.Reject)
	r.Get("/relation", h.GetRelation)
	r.Post("/validate", h.Validate)
	r.Post("/unbind", h.Unbind)

	return r
}
