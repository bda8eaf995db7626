// Package handlers provides HTTP handlers for instrument and dividend queries.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/dividends/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Resolver is the resolution service as seen by the HTTP layer.
type Resolver interface {
	ResolveInstrumentByISIN(ctx context.Context, isin string) (*domain.Instrument, error)
	ResolveInstrumentBySymbol(ctx context.Context, symbol string) (*domain.Instrument, error)
	ResolveDividendByInstrumentID(ctx context.Context, id string) (*domain.DividendLookup, error)
	ResolveDividendByISIN(ctx context.Context, isin string) (*domain.InstrumentDividend, error)
}

// Handler handles resolution HTTP requests
type Handler struct {
	resolver Resolver
	now      func() time.Time
	log      zerolog.Logger
}

// NewHandler creates a new resolution handler
func NewHandler(resolver Resolver, log zerolog.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		now:      time.Now,
		log:      log.With().Str("handler", "resolution").Logger(),
	}
}

// DividendResponse is a dividend with its cache lifetime.
// DividendYield is emitted as a JSON number with full decimal precision.
type DividendResponse struct {
	InstrumentID  string      `json:"instrumentId"`
	DividendYield json.Number `json:"dividendYield"`
	ExpiresAt     time.Time   `json:"expiresAt"`
	TTLSeconds    int64       `json:"ttlSeconds"`
}

// InstrumentDividendResponse is the combined ISIN-to-dividend answer.
type InstrumentDividendResponse struct {
	domain.Instrument
	DividendYield json.Number `json:"dividendYield"`
	ExpiresAt     time.Time   `json:"expiresAt"`
	TTLSeconds    int64       `json:"ttlSeconds"`
}

// HandleGetInstrumentByISIN handles GET /api/instruments/isin/{isin}
func (h *Handler) HandleGetInstrumentByISIN(w http.ResponseWriter, r *http.Request) {
	isin := chi.URLParam(r, "isin")

	inst, err := h.resolver.ResolveInstrumentByISIN(r.Context(), isin)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, inst)
}

// HandleGetInstrumentBySymbol handles GET /api/instruments/symbol/{symbol}
func (h *Handler) HandleGetInstrumentBySymbol(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	inst, err := h.resolver.ResolveInstrumentBySymbol(r.Context(), symbol)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, inst)
}

// HandleGetDividend handles GET /api/dividends/{id}
func (h *Handler) HandleGetDividend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lookup, err := h.resolver.ResolveDividendByInstrumentID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, DividendResponse{
		InstrumentID:  lookup.InstrumentID,
		DividendYield: json.Number(lookup.Dividend.DividendYield.String()),
		ExpiresAt:     lookup.ExpiresAt,
		TTLSeconds:    int64(lookup.TTL(h.now()).Seconds()),
	})
}

// HandleGetDividendByISIN handles GET /api/dividends/isin/{isin}
func (h *Handler) HandleGetDividendByISIN(w http.ResponseWriter, r *http.Request) {
	isin := chi.URLParam(r, "isin")

	result, err := h.resolver.ResolveDividendByISIN(r.Context(), isin)
	if err != nil {
		h.writeError(w, err)
		return
	}

	lookup := domain.DividendLookup{ExpiresAt: result.ExpiresAt}
	h.writeData(w, InstrumentDividendResponse{
		Instrument:    result.Instrument,
		DividendYield: json.Number(result.DividendYield.String()),
		ExpiresAt:     result.ExpiresAt,
		TTLSeconds:    int64(lookup.TTL(h.now()).Seconds()),
	})
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": h.now().Format(time.RFC3339),
		},
	})
}

// ErrorBody is the error envelope of every failed request.
type ErrorBody struct {
	Type      string `json:"type"`
	Operation string `json:"operation,omitempty"`
	Key       string `json:"key,omitempty"`
	Message   string `json:"message"`
}

// StatusClientClosedRequest is the non-standard status for requests the
// caller abandoned before a response was ready.
const StatusClientClosedRequest = 499

// StatusFor maps a resolution error to its HTTP status and error type.
// AllSuppliersFailedError is checked before NotEligibleError and the context
// errors because it unwraps to the failures it collected.
func StatusFor(err error) (int, string) {
	var (
		validation  *domain.ValidationError
		unresolved  *domain.UnresolvedInstrumentError
		allFailed   *domain.AllSuppliersFailedError
		notEligible *domain.NotEligibleError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &unresolved):
		return http.StatusConflict, "unresolved_instrument"
	case errors.As(err, &allFailed):
		return http.StatusBadGateway, "all_suppliers_failed"
	case errors.As(err, &notEligible):
		return http.StatusUnprocessableEntity, "not_eligible"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, typ := StatusFor(err)
	body := ErrorBody{Type: typ, Message: err.Error()}

	var resolution *domain.ResolutionError
	if errors.As(err, &resolution) {
		body.Operation = resolution.Operation
		body.Key = resolution.Key
	}

	switch {
	case status == http.StatusGatewayTimeout:
		h.log.Warn().Err(err).Int("status", status).Msg("Resolution timed out")
	case status >= http.StatusInternalServerError:
		h.log.Error().Err(err).Int("status", status).Msg("Resolution failed")
	default:
		h.log.Debug().Err(err).Int("status", status).Msg("Resolution rejected")
	}

	h.writeJSON(w, status, map[string]interface{}{"error": body})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
