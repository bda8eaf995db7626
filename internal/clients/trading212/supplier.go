package trading212

import (
	"context"
	"fmt"
	"strings"

	"github.com/aristath/dividends/internal/domain"
	"github.com/shopspring/decimal"
)

// Name is the supplier name used in configuration.
const Name = "trading212"

var (
	_ domain.InstrumentByISINFetcher   = (*Client)(nil)
	_ domain.InstrumentBySymbolFetcher = (*Client)(nil)
	_ domain.DividendFetcher           = (*Client)(nil)
)

func (c *Client) Name() string {
	return Name
}

// FetchInstrumentWithISIN finds the primary listing for isin.
func (c *Client) FetchInstrumentWithISIN(ctx context.Context, isin string) (*domain.Instrument, error) {
	instruments, err := c.Instruments(ctx)
	if err != nil {
		return nil, err
	}

	for _, i := range instruments {
		if i.ISIN == isin && i.primary() {
			return &domain.Instrument{ISIN: isin, Name: i.PrettyName, Symbol: i.Name}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s on trading212", domain.ErrInstrumentNotFound, isin)
}

// FetchInstrumentWithSymbol finds an instrument by ticker, ignoring case.
func (c *Client) FetchInstrumentWithSymbol(ctx context.Context, symbol string) (*domain.Instrument, error) {
	instruments, err := c.Instruments(ctx)
	if err != nil {
		return nil, err
	}

	for _, i := range instruments {
		if strings.EqualFold(i.Name, symbol) && i.primary() {
			return &domain.Instrument{ISIN: i.ISIN, Name: i.PrettyName, Symbol: symbol}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s on trading212", domain.ErrInstrumentNotFound, symbol)
}

// FetchDividend reads the dividend yield from company fundamentals.
func (c *Client) FetchDividend(ctx context.Context, instrument domain.Instrument) (*domain.Dividend, error) {
	c.log.Info().Str("isin", instrument.ISIN).Msg("Fetching dividend information")

	company, err := c.Company(ctx, instrument.ISIN)
	if err != nil {
		return nil, err
	}

	y := company.KeyRatios.DividendYield
	if y == nil {
		return nil, fmt.Errorf("no yield information for %s", instrument.ISIN)
	}
	if *y < 0 {
		return nil, &domain.NotEligibleError{Supplier: Name, ISIN: instrument.ISIN}
	}

	return &domain.Dividend{
		DividendYield: decimal.NewFromFloat(*y).Div(decimal.NewFromInt(100)).Round(8),
	}, nil
}
