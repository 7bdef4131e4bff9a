package assistant

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/assistant", func(r chi.Router) {
		r.Post("/chat", h.HandleChat)
		r.Get("/quota", h.HandleQuota)
		r.Get("/knowledge/search", h.HandleSearch)
		r.Get("/sessions/{sessionID}/history", h.HandleHistory)
		r.Delete("/sessions/{sessionID}/history", h.HandleResetHistory)
	})
}
