package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Rent      RentConfig      `yaml:"rent"`
	Ledger    LedgerConfig    `yaml:"ledger"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"` // "stdio" or "http"
}

type AuthConfig struct {
	Enabled bool        `yaml:"enabled"`
	Keys    []APIKeyDef `yaml:"keys"`
}

// APIKeyDef maps a bearer token to the identity it acts as.
type APIKeyDef struct {
	Token       string `yaml:"token"`
	Identity    string `yaml:"identity"`
	Description string `yaml:"description"`
}

// RentConfig holds the registry's identity and offer thresholds.
type RentConfig struct {
	Escrow        string        `yaml:"escrow"`
	MinDuration   time.Duration `yaml:"min_duration"`
	MinExpiryLead time.Duration `yaml:"min_expiry_lead"`
}

// LedgerConfig lists contracts preloaded into the in-memory ledger.
type LedgerConfig struct {
	Tokens      []TokenFixture      `yaml:"tokens"`
	Collections []CollectionFixture `yaml:"collections"`
}

type TokenFixture struct {
	Ref        string             `yaml:"ref"`
	Balances   map[string]string  `yaml:"balances"`
	Allowances []AllowanceFixture `yaml:"allowances"`
}

type AllowanceFixture struct {
	Owner   string `yaml:"owner"`
	Spender string `yaml:"spender"`
	Amount  string `yaml:"amount"`
}

type CollectionFixture struct {
	Ref        string            `yaml:"ref"`
	Composable bool              `yaml:"composable"`
	Assets     []AssetFixture    `yaml:"assets"`
	Operators  []OperatorFixture `yaml:"operators"`
}

type AssetFixture struct {
	ID       uint64   `yaml:"id"`
	Owner    string   `yaml:"owner"`
	URI      string   `yaml:"uri"`
	Children []uint64 `yaml:"children"`
}

type OperatorFixture struct {
	Owner    string `yaml:"owner"`
	Operator string `yaml:"operator"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "rent.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Rent: RentConfig{
			Escrow:        "rent-escrow",
			MinDuration:   time.Hour,
			MinExpiryLead: time.Minute,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
// A non-empty path takes precedence over RENTPLACE_CONFIG_PATH.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("RENTPLACE_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("RENTPLACE_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("RENTPLACE_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RENTPLACE_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("RENTPLACE_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("RENTPLACE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("RENTPLACE_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if mode := os.Getenv("RENTPLACE_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if enabled := os.Getenv("RENTPLACE_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RENTPLACE_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if escrow := os.Getenv("RENTPLACE_ESCROW"); escrow != "" {
		cfg.Rent.Escrow = escrow
	}
	if d := os.Getenv("RENTPLACE_MIN_DURATION"); d != "" {
		v, err := time.ParseDuration(d)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RENTPLACE_MIN_DURATION: %w", err)
		}
		cfg.Rent.MinDuration = v
	}
	if d := os.Getenv("RENTPLACE_MIN_EXPIRY_LEAD"); d != "" {
		v, err := time.ParseDuration(d)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RENTPLACE_MIN_EXPIRY_LEAD: %w", err)
		}
		cfg.Rent.MinExpiryLead = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration the server cannot run with.
func (c Config) Validate() error {
	if c.Rent.Escrow == "" {
		return errors.New("rent.escrow must be set")
	}
	if c.Rent.MinDuration <= 0 || c.Rent.MinExpiryLead <= 0 {
		return errors.New("rent thresholds must be positive")
	}
	if c.Transport.Mode != "stdio" && c.Transport.Mode != "http" {
		return fmt.Errorf("unknown transport mode %q", c.Transport.Mode)
	}
	for _, key := range c.Auth.Keys {
		if key.Token == "" || key.Identity == "" {
			return errors.New("auth keys need a token and an identity")
		}
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
