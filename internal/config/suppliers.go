package config

import (
	"fmt"
	"os"

	"github.com/aristath/dividends/internal/domain"
	"gopkg.in/yaml.v3"
)

// defaultSuppliersYAML is used when SUPPLIERS_CONFIG is not set.
const defaultSuppliersYAML = `
suppliers:
  trading212:
    enabled: true
    requestsPerMinute: 30
  openfigi:
    enabled: true
    requestsPerMinute: 20
  ft:
    enabled: true
    requestsPerMinute: 30
  dividendmax:
    enabled: true
    requestsPerMinute: 20
  alphavantage:
    enabled: false
    requestsPerMinute: 5
    dailyLimit: 25
operations:
  resolve-by-isin: [trading212, openfigi]
  resolve-by-symbol: [trading212]
  resolve-dividend: [trading212, ft, dividendmax, alphavantage]
`

// SupplierSettings configures a single supplier.
type SupplierSettings struct {
	Enabled           bool   `yaml:"enabled"`
	APIKey            string `yaml:"apiKey"`
	BaseURL           string `yaml:"baseURL"`
	RequestsPerMinute int    `yaml:"requestsPerMinute"`
	DailyLimit        int    `yaml:"dailyLimit"`
}

// SuppliersConfig holds per-supplier settings and the ordered supplier list
// for each operation. List order is priority order.
type SuppliersConfig struct {
	Suppliers  map[string]SupplierSettings     `yaml:"suppliers"`
	Operations map[domain.Capability][]string `yaml:"operations"`
}

// DefaultSuppliers returns the built-in supplier configuration.
func DefaultSuppliers() *SuppliersConfig {
	cfg, err := parseSuppliers([]byte(defaultSuppliersYAML))
	if err != nil {
		panic(fmt.Sprintf("invalid built-in supplier config: %v", err))
	}
	return cfg
}

// LoadSuppliers reads a supplier YAML file. An empty path returns the
// defaults. Operations missing from the file keep their default lists.
func LoadSuppliers(path string) (*SuppliersConfig, error) {
	if path == "" {
		return DefaultSuppliers(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read supplier config %s: %w", path, err)
	}
	cfg, err := parseSuppliers(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse supplier config %s: %w", path, err)
	}

	defaults := DefaultSuppliers()
	for op, names := range defaults.Operations {
		if _, ok := cfg.Operations[op]; !ok {
			cfg.Operations[op] = names
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid supplier config %s: %w", path, err)
	}
	return cfg, nil
}

func parseSuppliers(data []byte) (*SuppliersConfig, error) {
	var cfg SuppliersConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Suppliers == nil {
		cfg.Suppliers = make(map[string]SupplierSettings)
	}
	if cfg.Operations == nil {
		cfg.Operations = make(map[domain.Capability][]string)
	}
	return &cfg, nil
}

// Validate rejects unknown operations, empty or duplicated lists and negative limits.
func (c *SuppliersConfig) Validate() error {
	for op, names := range c.Operations {
		if !op.Valid() {
			return fmt.Errorf("unknown operation %q", op)
		}
		if len(names) == 0 {
			return fmt.Errorf("operation %s has no suppliers", op)
		}
		seen := make(map[string]bool, len(names))
		for _, name := range names {
			if seen[name] {
				return fmt.Errorf("operation %s lists %s twice", op, name)
			}
			seen[name] = true
		}
	}
	for name, s := range c.Suppliers {
		if s.RequestsPerMinute < 0 || s.DailyLimit < 0 {
			return fmt.Errorf("supplier %s: limits must not be negative", name)
		}
	}
	return nil
}

// Settings returns the settings for name; unknown suppliers are disabled.
func (c *SuppliersConfig) Settings(name string) SupplierSettings {
	return c.Suppliers[name]
}

// Order returns the configured supplier list for op.
func (c *SuppliersConfig) Order(op domain.Capability) []string {
	return append([]string(nil), c.Operations[op]...)
}

// applyEnvOverrides lets API keys come from the environment instead of the file.
func (c *SuppliersConfig) applyEnvOverrides() {
	overrides := map[string]string{
		"openfigi":     "OPENFIGI_API_KEY",
		"alphavantage": "ALPHAVANTAGE_API_KEY",
		"ft":           "FT_API_KEY",
	}
	for name, env := range overrides {
		if key := os.Getenv(env); key != "" {
			s := c.Suppliers[name]
			s.APIKey = key
			c.Suppliers[name] = s
		}
	}
}
