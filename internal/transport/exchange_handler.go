package transport

import (
	"net/http"

	"tienda-api/internal/middleware"
	"tienda-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RateResponse represents the current cached exchange rate
type RateResponse struct {
	Quote string `json:"quote"`
	Rate  string `json:"rate"`
}

// ExchangeHandler serves the cached exchange rate
type ExchangeHandler struct {
	rates     service.RateSource
	quoteName string
	logger    *zap.Logger
}

// NewExchangeHandler creates a new ExchangeHandler
func NewExchangeHandler(rates service.RateSource, quoteName string, logger *zap.Logger) *ExchangeHandler {
	return &ExchangeHandler{
		rates:     rates,
		quoteName: quoteName,
		logger:    logger,
	}
}

// RegisterRoutes registers the exchange rate route
func (h *ExchangeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/exchange-rate", h.Get)
}

// Get returns the current rate, refreshing the cache when expired
func (h *ExchangeHandler) Get(w http.ResponseWriter, r *http.Request) {
	rate, err := h.rates.Rate(r.Context())
	if err != nil {
		h.logger.Warn("Exchange rate fetch failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "exchange rate unavailable")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RateResponse{
		Quote: h.quoteName,
		Rate:  rate.StringFixed(2),
	})
}
