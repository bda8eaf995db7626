package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all resolution routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/instruments", func(r chi.Router) {
		r.Get("/isin/{isin}", h.HandleGetInstrumentByISIN)
		r.Get("/symbol/{symbol}", h.HandleGetInstrumentBySymbol)
	})

	r.Route("/dividends", func(r chi.Router) {
		r.Get("/isin/{isin}", h.HandleGetDividendByISIN)
		r.Get("/{id}", h.HandleGetDividend)
	})
}
