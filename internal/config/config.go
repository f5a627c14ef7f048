package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Ethereum EthereumConfig `toml:"ethereum"`
	Redis    RedisConfig    `toml:"redis"`
	Auth     AuthConfig     `toml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Listen string `toml:"listen"`
}

// EthereumConfig holds chain access configuration
type EthereumConfig struct {
	RPCURL   string `toml:"rpc_url"`
	Registry string `toml:"registry"` // ENS registry address, empty selects mainnet
}

// RedisConfig holds the optional Redis backend. An empty URL selects
// the in-memory stores and disables event publishing.
type RedisConfig struct {
	URL string `toml:"url"`
}

// AuthConfig holds protocol policy knobs
type AuthConfig struct {
	SessionTTLHours      int  `toml:"session_ttl_hours"`
	AllowUnresolvedNames bool `toml:"allow_unresolved_names"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Listen: ":3001"},
		Ethereum: EthereumConfig{RPCURL: "https://eth.llamarpc.com"},
		Auth: AuthConfig{
			SessionTTLHours:      7 * 24,
			AllowUnresolvedNames: true,
		},
	}
}

// Load reads TOML configuration from path on top of the defaults, then
// applies environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("ETHEREUM_RPC_URL"); v != "" {
		cfg.Ethereum.RPCURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}

	return cfg, nil
}
