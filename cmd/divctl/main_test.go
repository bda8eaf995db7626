package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aristath/dividends/internal/config"
	"github.com/aristath/dividends/internal/di"
	"github.com/aristath/dividends/internal/domain"
	"github.com/aristath/dividends/internal/modules/suppliers"
	testingpkg "github.com/aristath/dividends/internal/testing"
	"github.com/rs/zerolog"
)

// testOpener wires a fresh container per invocation over a shared data
// directory, so state persists across commands like it does on disk.
func testOpener(t *testing.T, supplier *testingpkg.MockSupplier) opener {
	t.Helper()
	dir := t.TempDir()
	return func(cmd *cobra.Command) (*di.Container, *di.JobInstances, error) {
		cfg := &config.Config{
			DataDir:           dir,
			IdentityNamespace: config.DefaultIdentityNamespace,
			DividendTTL:       24 * time.Hour,
			NotEligiblePolicy: "stop",
			LookupCache: config.LookupCacheConfig{
				Backend:    "sqlite",
				Codec:      "msgpack",
				SQLitePath: filepath.Join(dir, "lookup_cache.db"),
			},
			ContentCache: config.ContentCacheConfig{
				Backend: "fs",
				Dir:     filepath.Join(dir, "content-cache"),
			},
			Suppliers: &config.SuppliersConfig{
				Suppliers: map[string]config.SupplierSettings{"mock": {Enabled: true}, "off": {Enabled: false}},
				Operations: map[domain.Capability][]string{
					domain.CapabilityResolveByISIN:   {"mock"},
					domain.CapabilityResolveBySymbol: {"mock"},
					domain.CapabilityResolveDividend: {"mock", "off"},
				},
			},
		}
		catalogue := suppliers.Catalogue{
			"mock": func(config.SupplierSettings, suppliers.Deps) (domain.Supplier, error) { return supplier, nil },
			"off":  func(config.SupplierSettings, suppliers.Deps) (domain.Supplier, error) { return supplier, nil },
		}
		return di.WireWithCatalogue(cfg, catalogue, zerolog.Nop())
	}
}

func run(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(open)
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestISINThenDividend(t *testing.T) {
	supplier := testingpkg.NewMockSupplier("mock")
	supplier.On("FetchInstrumentWithISIN", mock.Anything, "US7561091049").
		Return(&domain.Instrument{ISIN: "US7561091049", Name: "Realty Income", Symbol: "O"}, nil).Once()
	supplier.On("FetchDividend", mock.Anything, mock.Anything).
		Return(&domain.Dividend{DividendYield: decimal.RequireFromString("0.0558")}, nil).Once()
	open := testOpener(t, supplier)

	out, err := run(t, open, "isin", "US7561091049")
	require.NoError(t, err)
	var inst domain.Instrument
	require.NoError(t, json.Unmarshal([]byte(out), &inst))
	assert.Equal(t, "f97bf225-b4d6-50b8-88f6-6e1d56b9230a", inst.ID)

	out, err = run(t, open, "dividend", inst.ID)
	require.NoError(t, err)
	var div dividendOutput
	require.NoError(t, json.Unmarshal([]byte(out), &div))
	assert.Equal(t, inst.ID, div.InstrumentID)
	assert.Equal(t, json.Number("0.0558"), div.DividendYield)
	assert.InDelta(t, 24*3600, div.TTLSeconds, 5)

	// both answers now come from the lookup cache
	out, err = run(t, open, "dividend-isin", "US7561091049")
	require.NoError(t, err)
	assert.Contains(t, out, `"symbol": "O"`)
	supplier.AssertNumberOfCalls(t, "FetchInstrumentWithISIN", 1)
	supplier.AssertNumberOfCalls(t, "FetchDividend", 1)
}

func TestSymbol(t *testing.T) {
	supplier := testingpkg.NewMockSupplier("mock")
	supplier.On("FetchInstrumentWithSymbol", mock.Anything, "AAPL").
		Return(&domain.Instrument{ISIN: "US0378331005", Name: "Apple Inc.", Symbol: "AAPL"}, nil).Once()

	out, err := run(t, testOpener(t, supplier), "symbol", "aapl")
	require.NoError(t, err)
	assert.Contains(t, out, "a1279c1a-8421-5ccd-887d-d2d44fdba914")
}

func TestResolutionErrorsAreReturned(t *testing.T) {
	supplier := testingpkg.NewMockSupplier("mock")
	supplier.On("FetchInstrumentWithISIN", mock.Anything, "US7561091049").
		Return(nil, errors.New("upstream down"))

	_, err := run(t, testOpener(t, supplier), "isin", "US7561091049")
	require.Error(t, err)
	var allFailed *domain.AllSuppliersFailedError
	assert.True(t, errors.As(err, &allFailed))

	_, err = run(t, testOpener(t, supplier), "dividend", "f97bf225-b4d6-50b8-88f6-6e1d56b9230a")
	var unresolved *domain.UnresolvedInstrumentError
	assert.True(t, errors.As(err, &unresolved))
}

func TestArgsAreRequired(t *testing.T) {
	_, err := run(t, testOpener(t, testingpkg.NewMockSupplier("mock")), "isin")
	assert.Error(t, err)
}

func TestSuppliers(t *testing.T) {
	open := testOpener(t, testingpkg.NewMockSupplier("mock"))

	out, err := run(t, open, "suppliers")
	require.NoError(t, err)
	assert.Contains(t, out, "resolve-dividend:")
	assert.Contains(t, out, "1. mock")
	assert.Contains(t, out, "disabled")

	out, err = run(t, open, "suppliers", "--json")
	require.NoError(t, err)
	var all map[string][]domain.SupplierDescriptor
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	assert.Len(t, all["resolve-dividend"], 2)
}

func TestPrune(t *testing.T) {
	out, err := run(t, testOpener(t, testingpkg.NewMockSupplier("mock")), "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Purged 0 expired content cache units")
}
