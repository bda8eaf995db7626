package lookupcache

// Key scheme shared by every backend.
const (
	prefixInstrumentByID     = "instrument-by-id:"
	prefixInstrumentByISIN   = "instrument-by-isin:"
	prefixInstrumentBySymbol = "instrument-by-symbol:"
	prefixDividend           = "dividend:"
)

func InstrumentByIDKey(id string) string {
	return prefixInstrumentByID + id
}

func InstrumentByISINKey(isin string) string {
	return prefixInstrumentByISIN + isin
}

func InstrumentBySymbolKey(symbol string) string {
	return prefixInstrumentBySymbol + symbol
}

func DividendKey(id string) string {
	return prefixDividend + id
}
