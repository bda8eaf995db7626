// Package suppliers holds the compiled-in supplier catalogue and the registry
// that turns configuration into ordered, loaded suppliers per operation.
package suppliers

import (
	"errors"
	"sort"

	"github.com/aristath/dividends/internal/clientdata"
	"github.com/aristath/dividends/internal/clients/alphavantage"
	"github.com/aristath/dividends/internal/clients/dividendmax"
	"github.com/aristath/dividends/internal/clients/ft"
	"github.com/aristath/dividends/internal/clients/openfigi"
	"github.com/aristath/dividends/internal/clients/trading212"
	"github.com/aristath/dividends/internal/config"
	"github.com/aristath/dividends/internal/domain"
	"github.com/rs/zerolog"
)

// Deps are the shared dependencies handed to every supplier constructor.
type Deps struct {
	Cache *clientdata.Cache
	Log   zerolog.Logger
}

// Factory constructs a supplier from its settings.
type Factory func(settings config.SupplierSettings, deps Deps) (domain.Supplier, error)

// Catalogue maps supplier names to constructors.
type Catalogue map[string]Factory

// Names returns the catalogue's supplier names, sorted.
func (c Catalogue) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultCatalogue returns every supplier this build knows about.
func DefaultCatalogue() Catalogue {
	return Catalogue{
		trading212.Name:   newTrading212,
		openfigi.Name:     newOpenFIGI,
		ft.Name:           newFT,
		dividendmax.Name:  newDividendMax,
		alphavantage.Name: newAlphaVantage,
	}
}

func newTrading212(s config.SupplierSettings, deps Deps) (domain.Supplier, error) {
	c := trading212.NewClient(deps.Cache, s.RequestsPerMinute, deps.Log)
	if s.BaseURL != "" {
		c.SetBaseURL(s.BaseURL)
	}
	return c, nil
}

func newOpenFIGI(s config.SupplierSettings, deps Deps) (domain.Supplier, error) {
	c := openfigi.NewClient(s.APIKey, deps.Cache, s.RequestsPerMinute, deps.Log)
	if s.BaseURL != "" {
		c.SetBaseURL(s.BaseURL)
	}
	return c, nil
}

func newFT(s config.SupplierSettings, deps Deps) (domain.Supplier, error) {
	c := ft.NewClient(s.APIKey, deps.Cache, s.RequestsPerMinute, deps.Log)
	if s.BaseURL != "" {
		c.SetBaseURL(s.BaseURL)
	}
	return c, nil
}

func newDividendMax(s config.SupplierSettings, deps Deps) (domain.Supplier, error) {
	c := dividendmax.NewClient(deps.Cache, s.RequestsPerMinute, deps.Log)
	if s.BaseURL != "" {
		c.SetBaseURL(s.BaseURL)
	}
	return c, nil
}

var errAlphaVantageKey = errors.New("alphavantage requires an API key")

func newAlphaVantage(s config.SupplierSettings, deps Deps) (domain.Supplier, error) {
	if s.APIKey == "" {
		return nil, errAlphaVantageKey
	}
	c := alphavantage.NewClient(s.APIKey, deps.Cache, s.RequestsPerMinute, s.DailyLimit, deps.Log)
	if s.BaseURL != "" {
		c.SetBaseURL(s.BaseURL)
	}
	return c, nil
}
