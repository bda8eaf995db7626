package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/dividends/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveInstrumentByISIN(ctx context.Context, isin string) (*domain.Instrument, error) {
	args := m.Called(isin)
	inst, _ := args.Get(0).(*domain.Instrument)
	return inst, args.Error(1)
}

func (m *mockResolver) ResolveInstrumentBySymbol(ctx context.Context, symbol string) (*domain.Instrument, error) {
	args := m.Called(symbol)
	inst, _ := args.Get(0).(*domain.Instrument)
	return inst, args.Error(1)
}

func (m *mockResolver) ResolveDividendByInstrumentID(ctx context.Context, id string) (*domain.DividendLookup, error) {
	args := m.Called(id)
	lookup, _ := args.Get(0).(*domain.DividendLookup)
	return lookup, args.Error(1)
}

func (m *mockResolver) ResolveDividendByISIN(ctx context.Context, isin string) (*domain.InstrumentDividend, error) {
	args := m.Called(isin)
	result, _ := args.Get(0).(*domain.InstrumentDividend)
	return result, args.Error(1)
}

var (
	testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	realty  = domain.Instrument{
		ID:     "f97bf225-b4d6-50b8-88f6-6e1d56b9230a",
		ISIN:   "US7561091049",
		Name:   "Realty Income",
		Symbol: "O",
	}
)

func setupRouter(resolver Resolver) *chi.Mux {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(resolver, logger)
	handler.now = func() time.Time { return testNow }

	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)
	return router
}

func do(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	dec := json.NewDecoder(w.Body)
	dec.UseNumber()
	require.NoError(t, dec.Decode(&body))
	return w, body
}

func TestHandleGetInstrumentByISIN(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("ResolveInstrumentByISIN", "US7561091049").Return(&realty, nil)

	w, body := do(t, setupRouter(resolver), "/api/instruments/isin/US7561091049")

	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, realty.ID, data["id"])
	assert.Equal(t, "US7561091049", data["isin"])
	assert.Equal(t, "Realty Income", data["name"])
	assert.Equal(t, "O", data["symbol"])
	assert.Contains(t, body, "metadata")
}

func TestHandleGetInstrumentBySymbol(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("ResolveInstrumentBySymbol", "o").Return(&realty, nil)

	w, body := do(t, setupRouter(resolver), "/api/instruments/symbol/o")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, realty.ID, body["data"].(map[string]interface{})["id"])
}

func TestHandleGetDividend(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("ResolveDividendByInstrumentID", realty.ID).Return(&domain.DividendLookup{
		InstrumentID: realty.ID,
		Dividend:     domain.Dividend{DividendYield: decimal.RequireFromString("0.04581570")},
		ExpiresAt:    testNow.Add(90 * time.Minute),
	}, nil)

	w, body := do(t, setupRouter(resolver), "/api/dividends/"+realty.ID)

	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, json.Number("0.0458157"), data["dividendYield"])
	assert.Equal(t, json.Number("5400"), data["ttlSeconds"])
	assert.Equal(t, realty.ID, data["instrumentId"])
}

func TestHandleGetDividendByISIN(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("ResolveDividendByISIN", "US7561091049").Return(&domain.InstrumentDividend{
		Instrument:    realty,
		DividendYield: decimal.RequireFromString("0.055"),
		ExpiresAt:     testNow.Add(24 * time.Hour),
	}, nil)

	w, body := do(t, setupRouter(resolver), "/api/dividends/isin/US7561091049")

	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, json.Number("0.055"), data["dividendYield"])
	assert.Equal(t, realty.ID, data["id"])
	assert.Equal(t, "O", data["symbol"])
	assert.Equal(t, json.Number("86400"), data["ttlSeconds"])
	resolver.AssertNotCalled(t, "ResolveDividendByInstrumentID", mock.Anything)
}

func TestErrorMapping(t *testing.T) {
	wrap := func(err error) error {
		return &domain.ResolutionError{Operation: "resolve-dividend-by-id", Key: "k", Err: err}
	}
	notEligible := &domain.NotEligibleError{Supplier: "ft", ISIN: "US0378331005"}

	tests := []struct {
		name     string
		err      error
		status   int
		typeName string
	}{
		{"validation", wrap(&domain.ValidationError{Field: "id", Value: "x", Reason: "bad"}), http.StatusBadRequest, "validation_error"},
		{"unresolved", wrap(&domain.UnresolvedInstrumentError{ID: "k"}), http.StatusConflict, "unresolved_instrument"},
		{"not eligible", wrap(notEligible), http.StatusUnprocessableEntity, "not_eligible"},
		{"all failed", wrap(&domain.AllSuppliersFailedError{
			Operation: domain.CapabilityResolveDividend,
			Key:       "k",
			Failures:  []*domain.SupplierFailure{{Supplier: "ft", Err: notEligible}},
		}), http.StatusBadGateway, "all_suppliers_failed"},
		{"deadline", wrap(context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"wrapped deadline", wrap(fmt.Errorf("failed to fetch: %w", context.DeadlineExceeded)), http.StatusGatewayTimeout, "timeout"},
		{"canceled", wrap(context.Canceled), StatusClientClosedRequest, "canceled"},
		{"all failed on supplier timeouts", wrap(&domain.AllSuppliersFailedError{
			Operation: domain.CapabilityResolveDividend,
			Key:       "k",
			Failures:  []*domain.SupplierFailure{{Supplier: "ft", Err: context.DeadlineExceeded}},
		}), http.StatusBadGateway, "all_suppliers_failed"},
		{"other", wrap(errors.New("redis down")), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mockResolver{}
			resolver.On("ResolveDividendByInstrumentID", "k").Return(nil, tt.err)

			w, body := do(t, setupRouter(resolver), "/api/dividends/k")

			assert.Equal(t, tt.status, w.Code)
			errBody := body["error"].(map[string]interface{})
			assert.Equal(t, tt.typeName, errBody["type"])
			assert.Equal(t, "resolve-dividend-by-id", errBody["operation"])
			assert.Equal(t, "k", errBody["key"])
			assert.Equal(t, tt.err.Error(), errBody["message"])
		})
	}
}

func TestRegisterRoutes(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(&mockResolver{}, logger)

	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	}, "RegisterRoutes should not panic")
}
