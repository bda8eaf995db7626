package domain

import "context"

// Supplier is an external data source. A supplier implements one or more of
// the fetcher interfaces below; the set it implements is its capabilities.
type Supplier interface {
	Name() string
}

// InstrumentByISINFetcher resolves instruments from an ISIN.
type InstrumentByISINFetcher interface {
	Supplier
	// FetchInstrumentWithISIN returns the instrument or an error when the
	// supplier does not know it.
	FetchInstrumentWithISIN(ctx context.Context, isin string) (*Instrument, error)
}

// InstrumentBySymbolFetcher resolves instruments from a ticker symbol.
type InstrumentBySymbolFetcher interface {
	Supplier
	FetchInstrumentWithSymbol(ctx context.Context, symbol string) (*Instrument, error)
}

// DividendFetcher resolves dividend data for an already-resolved instrument.
type DividendFetcher interface {
	Supplier
	// FetchDividend returns *NotEligibleError when the supplier
	// authoritatively reports that the instrument pays no dividend.
	FetchDividend(ctx context.Context, instrument Instrument) (*Dividend, error)
}

// CapabilitiesOf returns the capabilities s implements, in canonical order.
func CapabilitiesOf(s Supplier) []Capability {
	var caps []Capability
	if _, ok := s.(InstrumentByISINFetcher); ok {
		caps = append(caps, CapabilityResolveByISIN)
	}
	if _, ok := s.(InstrumentBySymbolFetcher); ok {
		caps = append(caps, CapabilityResolveBySymbol)
	}
	if _, ok := s.(DividendFetcher); ok {
		caps = append(caps, CapabilityResolveDividend)
	}
	return caps
}

// HasCapability reports whether s implements c.
func HasCapability(s Supplier, c Capability) bool {
	for _, have := range CapabilitiesOf(s) {
		if have == c {
			return true
		}
	}
	return false
}
