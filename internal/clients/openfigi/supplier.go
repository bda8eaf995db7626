package openfigi

import (
	"context"
	"fmt"

	"github.com/aristath/dividends/internal/domain"
)

// Name is the supplier name used in configuration.
const Name = "openfigi"

var _ domain.InstrumentByISINFetcher = (*Client)(nil)

func (c *Client) Name() string {
	return Name
}

// FetchInstrumentWithISIN picks the US equity listing when there is one,
// otherwise the first equity, otherwise the first listing.
func (c *Client) FetchInstrumentWithISIN(ctx context.Context, isin string) (*domain.Instrument, error) {
	results, err := c.LookupISIN(ctx, isin)
	if err != nil {
		return nil, err
	}
	best := pickListing(results)
	if best == nil {
		return nil, fmt.Errorf("%w: %s on openfigi", domain.ErrInstrumentNotFound, isin)
	}
	return &domain.Instrument{ISIN: isin, Name: best.Name, Symbol: best.Ticker}, nil
}

func pickListing(results []MappingResult) *MappingResult {
	var firstEquity *MappingResult
	for i := range results {
		r := &results[i]
		if r.MarketSector != "Equity" {
			continue
		}
		if r.ExchCode == "US" {
			return r
		}
		if firstEquity == nil {
			firstEquity = r
		}
	}
	if firstEquity != nil {
		return firstEquity
	}
	if len(results) > 0 {
		return &results[0]
	}
	return nil
}
