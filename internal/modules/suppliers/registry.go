package suppliers

import (
	"fmt"
	"sync"

	"github.com/aristath/dividends/internal/config"
	"github.com/aristath/dividends/internal/domain"
	"github.com/rs/zerolog"
)

// Registry resolves the configured supplier list of an operation into loaded
// suppliers. Instances are constructed once and shared by all requests.
type Registry struct {
	cfg       *config.SuppliersConfig
	catalogue Catalogue
	deps      Deps
	log       zerolog.Logger

	mu        sync.RWMutex
	instances map[string]domain.Supplier
}

// NewRegistry creates a registry over cfg.
func NewRegistry(cfg *config.SuppliersConfig, catalogue Catalogue, deps Deps, log zerolog.Logger) *Registry {
	return &Registry{
		cfg:       cfg,
		catalogue: catalogue,
		deps:      deps,
		log:       log.With().Str("component", "supplier_registry").Logger(),
		instances: make(map[string]domain.Supplier),
	}
}

// Load returns the enabled suppliers offering op, in configured order.
// Suppliers that fail to load are logged and skipped.
func (r *Registry) Load(op domain.Capability) []domain.Supplier {
	names := r.cfg.Order(op)
	result := make([]domain.Supplier, 0, len(names))

	for _, name := range names {
		if !r.cfg.Settings(name).Enabled {
			r.log.Debug().Str("supplier", name).Str("operation", string(op)).Msg("Supplier disabled, skipping")
			continue
		}

		s, err := r.instance(name)
		if err != nil {
			r.log.Error().Err(err).Str("supplier", name).Str("operation", string(op)).Msg("Failed to load supplier")
			continue
		}

		if !domain.HasCapability(s, op) {
			r.log.Warn().Str("supplier", name).Str("operation", string(op)).Msg("Supplier does not offer operation, skipping")
			continue
		}
		result = append(result, s)
	}
	return result
}

// Descriptors reports how each configured supplier participates in op.
func (r *Registry) Descriptors(op domain.Capability) []domain.SupplierDescriptor {
	names := r.cfg.Order(op)
	result := make([]domain.SupplierDescriptor, 0, len(names))

	for i, name := range names {
		d := domain.SupplierDescriptor{
			Name:     name,
			Enabled:  r.cfg.Settings(name).Enabled,
			Priority: i,
		}
		if s, err := r.instance(name); err == nil {
			d.Loaded = true
			d.Capabilities = domain.CapabilitiesOf(s)
		}
		result = append(result, d)
	}
	return result
}

// AllDescriptors returns Descriptors for every operation.
func (r *Registry) AllDescriptors() map[domain.Capability][]domain.SupplierDescriptor {
	all := make(map[domain.Capability][]domain.SupplierDescriptor, len(domain.AllCapabilities))
	for _, op := range domain.AllCapabilities {
		all[op] = r.Descriptors(op)
	}
	return all
}

func (r *Registry) instance(name string) (domain.Supplier, error) {
	r.mu.RLock()
	s, ok := r.instances[name]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	factory, ok := r.catalogue[name]
	if !ok {
		return nil, fmt.Errorf("unknown supplier %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.instances[name]; ok {
		return s, nil
	}

	s, err := factory(r.cfg.Settings(name), r.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create supplier %s: %w", name, err)
	}
	r.instances[name] = s
	r.log.Debug().Str("supplier", name).Msg("Supplier loaded")
	return s, nil
}
