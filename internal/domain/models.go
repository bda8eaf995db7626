// Package domain provides core domain models and types.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Capability names a supplier operation.
type Capability string

const (
	// CapabilityResolveByISIN fetches an instrument record from an ISIN
	CapabilityResolveByISIN Capability = "resolve-by-isin"
	// CapabilityResolveBySymbol fetches an instrument record from a ticker symbol
	CapabilityResolveBySymbol Capability = "resolve-by-symbol"
	// CapabilityResolveDividend fetches dividend data for a resolved instrument
	CapabilityResolveDividend Capability = "resolve-dividend"
)

// AllCapabilities lists every capability in a stable order.
var AllCapabilities = []Capability{
	CapabilityResolveByISIN,
	CapabilityResolveBySymbol,
	CapabilityResolveDividend,
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	for _, known := range AllCapabilities {
		if c == known {
			return true
		}
	}
	return false
}

// Instrument is the canonical identity record of a tradable instrument.
// ID is derived from ISIN and never changes once assigned.
type Instrument struct {
	ID     string `json:"id" msgpack:"id"`
	ISIN   string `json:"isin" msgpack:"isin"`
	Name   string `json:"name" msgpack:"name"`
	Symbol string `json:"symbol" msgpack:"symbol"`
}

// Dividend holds the trailing dividend yield as a fraction (0.045 = 4.5%).
type Dividend struct {
	DividendYield decimal.Decimal `json:"dividendYield" msgpack:"dividendYield"`
}

// DividendLookup is a dividend together with the instrument it belongs to
// and the moment its cached copy stops being served.
type DividendLookup struct {
	InstrumentID string    `json:"instrumentId"`
	Dividend     Dividend  `json:"dividend"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// TTL returns the remaining lifetime relative to now, never negative.
func (d DividendLookup) TTL(now time.Time) time.Duration {
	if d.ExpiresAt.IsZero() {
		return 0
	}
	if remaining := d.ExpiresAt.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// InstrumentDividend is the combined answer of an ISIN-to-dividend query.
type InstrumentDividend struct {
	Instrument
	DividendYield decimal.Decimal `json:"dividendYield"`
	ExpiresAt     time.Time       `json:"expiresAt"`
}

// SupplierDescriptor describes how a supplier participates in one operation.
// Priority is the position in the configured list; lower is tried first.
type SupplierDescriptor struct {
	Name         string       `json:"name"`
	Enabled      bool         `json:"enabled"`
	Loaded       bool         `json:"loaded"`
	Capabilities []Capability `json:"capabilities"`
	Priority     int          `json:"priority"`
}
