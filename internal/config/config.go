// Package config provides configuration loading for the catalog server.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GatewayOrder selects how IPFS gateways are tried.
type GatewayOrder string

const (
	// OrderFixed tries gateways in the configured order.
	OrderFixed GatewayOrder = "fixed"
	// OrderRandom tries gateways in a random permutation to spread load.
	OrderRandom GatewayOrder = "random"
)

// Config represents the complete application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Dataset     DatasetConfig     `yaml:"dataset"`
	Resolver    ResolverConfig    `yaml:"resolver"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Port the server listens on. The PORT environment variable and the
	// --port flag take precedence.
	Port string `yaml:"port"`
	// StaticDir is the directory static assets are served from.
	StaticDir string `yaml:"static_dir"`
}

// DatasetConfig configures catalog ingestion.
type DatasetConfig struct {
	// Path to the catalog dataset (.csv or .parquet).
	Path string `yaml:"path"`
}

// ResolverConfig configures the image resolver.
type ResolverConfig struct {
	// Gateways are the public IPFS gateway base URLs, highest priority first.
	Gateways []string `yaml:"gateways"`
	// GatewayOrder is "fixed" or "random".
	GatewayOrder GatewayOrder `yaml:"gateway_order"`
	// GatewayTimeout bounds each individual gateway probe.
	GatewayTimeout time.Duration `yaml:"gateway_timeout"`
	// ProbeTimeout bounds direct/external/metadata existence probes.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	// TrustSources skips existence probes for direct and external URLs and
	// uses them as-is when present.
	TrustSources bool `yaml:"trust_sources"`
	// MaxRetries is the render-failure retry ceiling per record.
	MaxRetries int `yaml:"max_retries"`
	// PlaceholderURL is shown while resolution is in progress or when every
	// source is exhausted in one pass.
	PlaceholderURL string `yaml:"placeholder_url"`
	// UnavailableURL is the terminal placeholder after the retry ceiling.
	UnavailableURL string `yaml:"unavailable_url"`
	// ExemptContracts lists contract addresses known not to support the
	// marketplace metadata path; the metadata source is skipped for them.
	ExemptContracts []string `yaml:"exempt_contracts"`
}

// MarketplaceConfig configures the upstream marketplace API proxy.
type MarketplaceConfig struct {
	// UpstreamURL is the marketplace API base the proxy forwards to.
	UpstreamURL string `yaml:"upstream_url"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`
	// Timeout bounds each upstream request.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      "3001",
			StaticDir: "static",
		},
		Dataset: DatasetConfig{
			Path: "data/catalog.csv",
		},
		Resolver: ResolverConfig{
			Gateways: []string{
				"https://ipfs.io/ipfs/",
				"https://cloudflare-ipfs.com/ipfs/",
				"https://gateway.pinata.cloud/ipfs/",
				"https://dweb.link/ipfs/",
			},
			GatewayOrder:   OrderFixed,
			GatewayTimeout: 4 * time.Second,
			ProbeTimeout:   10 * time.Second,
			TrustSources:   false,
			MaxRetries:     3,
			PlaceholderURL: "/static/img/loading.png",
			UnavailableURL: "/static/img/no-image.png",
		},
		Marketplace: MarketplaceConfig{
			UpstreamURL: "https://api.opensea.io/api/v1",
			APIKeyEnv:   "OPENSEA_API_KEY",
			Timeout:     15 * time.Second,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Dataset.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}
	if len(c.Resolver.Gateways) == 0 {
		return fmt.Errorf("resolver.gateways must list at least one gateway")
	}
	switch c.Resolver.GatewayOrder {
	case OrderFixed, OrderRandom:
	default:
		return fmt.Errorf("resolver.gateway_order must be %q or %q", OrderFixed, OrderRandom)
	}
	if c.Resolver.MaxRetries < 1 {
		return fmt.Errorf("resolver.max_retries must be at least 1")
	}
	if c.Marketplace.UpstreamURL == "" {
		return fmt.Errorf("marketplace.upstream_url is required")
	}
	return nil
}

// APIKey reads the marketplace API key from the configured environment
// variable. Empty means no key is attached to upstream requests.
func (c *Config) APIKey() string {
	return os.Getenv(c.Marketplace.APIKeyEnv)
}

// LoadFromFile loads configuration from a YAML file, applying defaults for
// any omitted fields.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// Load returns configuration from the given path, or defaults when the path
// is empty or the file does not exist.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadFromFile(path)
}
