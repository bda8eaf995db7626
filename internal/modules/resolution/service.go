// Package resolution answers instrument and dividend queries from the fast
// lookup cache, falling back to the configured supplier chains on a miss.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/dividends/internal/domain"
	"github.com/aristath/dividends/internal/fallback"
	"github.com/aristath/dividends/internal/lookupcache"
	"github.com/aristath/dividends/internal/modules/identity"
	"github.com/rs/zerolog"
)

// Operation names carried by ResolutionError.
const (
	OpResolveInstrumentByISIN   = "resolve-instrument-by-isin"
	OpResolveInstrumentBySymbol = "resolve-instrument-by-symbol"
	OpResolveDividendByID       = "resolve-dividend-by-id"
	OpResolveDividendByISIN     = "resolve-dividend-by-isin"
)

// SupplierSource yields the suppliers to try for an operation, in order.
type SupplierSource interface {
	Load(op domain.Capability) []domain.Supplier
}

// Service is the resolution service.
type Service struct {
	suppliers   SupplierSource
	cache       *lookupcache.Cache
	identity    *identity.Resolver
	executor    *fallback.Executor
	dividendTTL time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewService creates a resolution service. dividendTTL must be positive.
func NewService(
	suppliers SupplierSource,
	cache *lookupcache.Cache,
	resolver *identity.Resolver,
	executor *fallback.Executor,
	dividendTTL time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		suppliers:   suppliers,
		cache:       cache,
		identity:    resolver,
		executor:    executor,
		dividendTTL: dividendTTL,
		now:         time.Now,
		log:         log.With().Str("service", "resolution").Logger(),
	}
}

func wrap(op, key string, err error) error {
	return &domain.ResolutionError{Operation: op, Key: key, Err: err}
}

// ResolveInstrumentByISIN returns the instrument for isin.
func (s *Service) ResolveInstrumentByISIN(ctx context.Context, isin string) (*domain.Instrument, error) {
	if err := domain.ValidateISIN(isin); err != nil {
		return nil, wrap(OpResolveInstrumentByISIN, isin, err)
	}

	key := lookupcache.InstrumentByISINKey(isin)
	if cached, ok := s.cachedInstrument(ctx, key); ok {
		s.ensureIDAlias(ctx, cached)
		return cached, nil
	}

	var attempts []fallback.Attempt[*domain.Instrument]
	for _, sup := range s.suppliers.Load(domain.CapabilityResolveByISIN) {
		f, ok := sup.(domain.InstrumentByISINFetcher)
		if !ok {
			continue
		}
		attempts = append(attempts, fallback.Attempt[*domain.Instrument]{
			Supplier: f.Name(),
			Call: func(ctx context.Context) (*domain.Instrument, error) {
				inst, err := f.FetchInstrumentWithISIN(ctx, isin)
				if err != nil || inst == nil {
					return nil, err
				}
				result := *inst
				if result.ISIN == "" {
					result.ISIN = isin
				}
				return &result, nil
			},
		})
	}

	inst, supplier, err := fallback.Run(ctx, s.executor, domain.CapabilityResolveByISIN, isin, attempts,
		func(inst *domain.Instrument) error {
			if err := checkInstrument(inst); err != nil {
				return err
			}
			if inst.ISIN != isin {
				return fmt.Errorf("supplier returned ISIN %s", inst.ISIN)
			}
			return nil
		})
	if err != nil {
		return nil, wrap(OpResolveInstrumentByISIN, isin, err)
	}

	return s.storeInstrument(ctx, inst, supplier), nil
}

// ResolveInstrumentBySymbol returns the instrument for a ticker symbol.
// The symbol is trimmed and upper-cased first.
func (s *Service) ResolveInstrumentBySymbol(ctx context.Context, symbol string) (*domain.Instrument, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if err := domain.ValidateSymbol(symbol); err != nil {
		return nil, wrap(OpResolveInstrumentBySymbol, symbol, err)
	}

	key := lookupcache.InstrumentBySymbolKey(symbol)
	if cached, ok := s.cachedInstrument(ctx, key); ok {
		s.ensureIDAlias(ctx, cached)
		return cached, nil
	}

	var attempts []fallback.Attempt[*domain.Instrument]
	for _, sup := range s.suppliers.Load(domain.CapabilityResolveBySymbol) {
		f, ok := sup.(domain.InstrumentBySymbolFetcher)
		if !ok {
			continue
		}
		attempts = append(attempts, fallback.Attempt[*domain.Instrument]{
			Supplier: f.Name(),
			Call: func(ctx context.Context) (*domain.Instrument, error) {
				inst, err := f.FetchInstrumentWithSymbol(ctx, symbol)
				if err != nil || inst == nil {
					return nil, err
				}
				result := *inst
				result.Symbol = symbol
				return &result, nil
			},
		})
	}

	inst, supplier, err := fallback.Run(ctx, s.executor, domain.CapabilityResolveBySymbol, symbol, attempts, checkInstrument)
	if err != nil {
		return nil, wrap(OpResolveInstrumentBySymbol, symbol, err)
	}

	return s.storeInstrument(ctx, inst, supplier), nil
}

// ResolveDividendByInstrumentID returns the dividend of an instrument that
// was resolved earlier, with the remaining lifetime of the cached copy.
func (s *Service) ResolveDividendByInstrumentID(ctx context.Context, id string) (*domain.DividendLookup, error) {
	if err := domain.ValidateInstrumentID(id); err != nil {
		return nil, wrap(OpResolveDividendByID, id, err)
	}

	var inst domain.Instrument
	_, ok, err := s.cache.Get(ctx, lookupcache.InstrumentByIDKey(id), &inst)
	if err != nil {
		return nil, wrap(OpResolveDividendByID, id, fmt.Errorf("failed to read instrument: %w", err))
	}
	if !ok {
		return nil, wrap(OpResolveDividendByID, id, &domain.UnresolvedInstrumentError{ID: id})
	}

	return s.resolveDividend(ctx, inst)
}

// resolveDividend serves the dividend of a resolved instrument from the
// cache or the dividend supplier chain.
func (s *Service) resolveDividend(ctx context.Context, inst domain.Instrument) (*domain.DividendLookup, error) {
	id := inst.ID
	key := lookupcache.DividendKey(id)
	var cached domain.Dividend
	expiresAt, ok, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Lookup cache read failed, treating as miss")
	} else if ok {
		return &domain.DividendLookup{InstrumentID: id, Dividend: cached, ExpiresAt: expiresAt}, nil
	}

	var attempts []fallback.Attempt[*domain.Dividend]
	for _, sup := range s.suppliers.Load(domain.CapabilityResolveDividend) {
		f, ok := sup.(domain.DividendFetcher)
		if !ok {
			continue
		}
		attempts = append(attempts, fallback.Attempt[*domain.Dividend]{
			Supplier: f.Name(),
			Call: func(ctx context.Context) (*domain.Dividend, error) {
				return f.FetchDividend(ctx, inst)
			},
		})
	}

	dividend, supplier, err := fallback.Run(ctx, s.executor, domain.CapabilityResolveDividend, id, attempts, checkDividend)
	if err != nil {
		return nil, wrap(OpResolveDividendByID, id, err)
	}

	expiresAt = s.now().Add(s.dividendTTL)
	if err := s.cache.Set(ctx, key, dividend, s.dividendTTL); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Failed to cache dividend")
	}

	s.log.Info().
		Str("id", id).
		Str("isin", inst.ISIN).
		Str("supplier", supplier).
		Str("dividend_yield", dividend.DividendYield.String()).
		Msg("Dividend resolved")

	return &domain.DividendLookup{InstrumentID: id, Dividend: *dividend, ExpiresAt: expiresAt}, nil
}

// ResolveDividendByISIN resolves the instrument and then its dividend.
func (s *Service) ResolveDividendByISIN(ctx context.Context, isin string) (*domain.InstrumentDividend, error) {
	inst, err := s.ResolveInstrumentByISIN(ctx, isin)
	if err != nil {
		return nil, wrap(OpResolveDividendByISIN, isin, err)
	}
	lookup, err := s.resolveDividend(ctx, *inst)
	if err != nil {
		return nil, wrap(OpResolveDividendByISIN, isin, err)
	}
	return &domain.InstrumentDividend{
		Instrument:    *inst,
		DividendYield: lookup.Dividend.DividendYield,
		ExpiresAt:     lookup.ExpiresAt,
	}, nil
}

// cachedInstrument treats lookup cache read failures as misses.
func (s *Service) cachedInstrument(ctx context.Context, key string) (*domain.Instrument, bool) {
	var inst domain.Instrument
	_, ok, err := s.cache.Get(ctx, key, &inst)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Lookup cache read failed, treating as miss")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	s.log.Debug().Str("key", key).Msg("Lookup cache hit")
	return &inst, true
}

// ensureIDAlias rewrites a missing id alias for an instrument served from an
// ISIN or symbol alias. Failures are logged only.
func (s *Service) ensureIDAlias(ctx context.Context, inst *domain.Instrument) {
	if inst.ID == "" {
		inst.ID = s.identity.DeriveID(inst.ISIN)
	}
	key := lookupcache.InstrumentByIDKey(inst.ID)
	var existing domain.Instrument
	if _, ok, err := s.cache.Get(ctx, key, &existing); err == nil && ok {
		return
	}
	if err := s.cache.Set(ctx, key, inst, lookupcache.NoExpiry); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Failed to restore instrument id alias")
		return
	}
	s.log.Warn().Str("key", key).Msg("Restored missing instrument id alias")
}

// storeInstrument assigns the ID and writes every alias without expiry.
// The id alias is written first and a failed write skips the rest, so no
// ISIN or symbol alias is left pointing at an unresolvable id.
func (s *Service) storeInstrument(ctx context.Context, inst *domain.Instrument, supplier string) *domain.Instrument {
	inst.ID = s.identity.DeriveID(inst.ISIN)
	inst.Symbol = domain.NormalizeSymbol(inst.Symbol)

	keys := []string{
		lookupcache.InstrumentByIDKey(inst.ID),
		lookupcache.InstrumentByISINKey(inst.ISIN),
		lookupcache.InstrumentBySymbolKey(inst.Symbol),
	}
	for _, key := range keys {
		if err := s.cache.Set(ctx, key, inst, lookupcache.NoExpiry); err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("Failed to cache instrument alias")
			break
		}
	}

	s.log.Info().
		Str("id", inst.ID).
		Str("isin", inst.ISIN).
		Str("symbol", inst.Symbol).
		Str("supplier", supplier).
		Msg("Instrument resolved")
	return inst
}

var errEmptyResult = errors.New("empty result")

func checkInstrument(inst *domain.Instrument) error {
	if inst == nil {
		return errEmptyResult
	}
	if err := domain.ValidateISIN(inst.ISIN); err != nil {
		return err
	}
	if inst.Name == "" {
		return errors.New("instrument has no name")
	}
	if err := domain.ValidateSymbol(domain.NormalizeSymbol(inst.Symbol)); err != nil {
		return err
	}
	return nil
}

func checkDividend(d *domain.Dividend) error {
	if d == nil {
		return errEmptyResult
	}
	if d.DividendYield.IsNegative() {
		return fmt.Errorf("negative dividend yield %s", d.DividendYield)
	}
	return nil
}
