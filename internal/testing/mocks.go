package testing

import (
	"context"

	"github.com/aristath/dividends/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockSupplier is a testify mock implementing every capability.
type MockSupplier struct {
	mock.Mock
	name string
}

// NewMockSupplier creates a mock supplier called name.
func NewMockSupplier(name string) *MockSupplier {
	return &MockSupplier{name: name}
}

func (m *MockSupplier) Name() string {
	return m.name
}

func (m *MockSupplier) FetchInstrumentWithISIN(ctx context.Context, isin string) (*domain.Instrument, error) {
	args := m.Called(ctx, isin)
	return instrumentArg(args)
}

func (m *MockSupplier) FetchInstrumentWithSymbol(ctx context.Context, symbol string) (*domain.Instrument, error) {
	args := m.Called(ctx, symbol)
	return instrumentArg(args)
}

func (m *MockSupplier) FetchDividend(ctx context.Context, instrument domain.Instrument) (*domain.Dividend, error) {
	args := m.Called(ctx, instrument)
	if d := args.Get(0); d != nil {
		return d.(*domain.Dividend), args.Error(1)
	}
	return nil, args.Error(1)
}

func instrumentArg(args mock.Arguments) (*domain.Instrument, error) {
	if i := args.Get(0); i != nil {
		return i.(*domain.Instrument), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockISINSupplier only resolves instruments by ISIN.
type MockISINSupplier struct {
	mock.Mock
	name string
}

func NewMockISINSupplier(name string) *MockISINSupplier {
	return &MockISINSupplier{name: name}
}

func (m *MockISINSupplier) Name() string {
	return m.name
}

func (m *MockISINSupplier) FetchInstrumentWithISIN(ctx context.Context, isin string) (*domain.Instrument, error) {
	return instrumentArg(m.Called(ctx, isin))
}

// MockDividendSupplier only fetches dividends.
type MockDividendSupplier struct {
	mock.Mock
	name string
}

func NewMockDividendSupplier(name string) *MockDividendSupplier {
	return &MockDividendSupplier{name: name}
}

func (m *MockDividendSupplier) Name() string {
	return m.name
}

func (m *MockDividendSupplier) FetchDividend(ctx context.Context, instrument domain.Instrument) (*domain.Dividend, error) {
	args := m.Called(ctx, instrument)
	if d := args.Get(0); d != nil {
		return d.(*domain.Dividend), args.Error(1)
	}
	return nil, args.Error(1)
}

var (
	_ domain.InstrumentByISINFetcher   = (*MockSupplier)(nil)
	_ domain.InstrumentBySymbolFetcher = (*MockSupplier)(nil)
	_ domain.DividendFetcher           = (*MockSupplier)(nil)
	_ domain.InstrumentByISINFetcher   = (*MockISINSupplier)(nil)
	_ domain.DividendFetcher           = (*MockDividendSupplier)(nil)
)
