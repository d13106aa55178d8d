package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers directive, strategy and score routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/directives", func(r chi.Router) {
		r.Get("/", h.HandleListDirectives)
		r.Post("/{id}/enable", h.HandleEnableDirective)
		r.Post("/{id}/disable", h.HandleDisableDirective)
	})

	r.Route("/strategies", func(r chi.Router) {
		r.Get("/", h.HandleListStrategies)
		r.Get("/{id}", h.HandleGetStrategy)
		r.Get("/{id}/snapshot", h.HandleGetSnapshot)
		r.Put("/{id}/weights", h.HandleConfigureWeights)
		r.Put("/{id}/thresholds", h.HandleConfigureThresholds)
	})

	r.Route("/scores/{symbol}", func(r chi.Router) {
		r.Get("/latest", h.HandleLatestScore)
		r.Get("/history", h.HandleScoreHistory)
	})
}
