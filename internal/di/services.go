package di

import (
	"fmt"

	"github.com/aristath/dividends/internal/fallback"
	"github.com/aristath/dividends/internal/modules/identity"
	"github.com/aristath/dividends/internal/modules/resolution"
	"github.com/aristath/dividends/internal/modules/suppliers"
	"github.com/rs/zerolog"
)

// InitializeServices builds the identity resolver, supplier registry,
// fallback executor and resolution service.
func InitializeServices(container *Container, catalogue suppliers.Catalogue, log zerolog.Logger) error {
	cfg := container.Config

	resolver, err := identity.NewResolver(cfg.IdentityNamespace)
	if err != nil {
		return fmt.Errorf("failed to create identity resolver: %w", err)
	}
	container.IdentityResolver = resolver

	policy, err := fallback.ParsePolicy(cfg.NotEligiblePolicy)
	if err != nil {
		return err
	}
	container.Executor = fallback.New(policy, log)

	container.SupplierRegistry = suppliers.NewRegistry(
		cfg.Suppliers,
		catalogue,
		suppliers.Deps{Cache: container.ContentCache, Log: log},
		log,
	)

	container.ResolutionService = resolution.NewService(
		container.SupplierRegistry,
		container.LookupCache,
		container.IdentityResolver,
		container.Executor,
		cfg.DividendTTL,
		log,
	)

	log.Info().
		Str("policy", policy.String()).
		Dur("dividend_ttl", cfg.DividendTTL).
		Msg("Services initialized")

	return nil
}
