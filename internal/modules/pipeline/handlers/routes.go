package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers pipeline and signal routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/pipeline/run", h.HandleRun)
	r.Get("/signals", h.HandleListSignals)
}
