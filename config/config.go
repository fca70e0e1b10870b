// Package config loads the auction house process configuration from TOML,
// with a few environment overrides for deployment.
package config

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/server"
)

// Environment overrides.
const (
	EnvMaxWorkers  = "AUCTIONHOUSE_MAX_WORKERS"
	EnvPort        = "AUCTIONHOUSE_PORT"
	EnvPostgresDSN = "AUCTIONHOUSE_POSTGRES_DSN"
)

// Duration is a time.Duration written as a Go duration string ("30s", "24h").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Server   ServerConfig   `toml:"server"`
	Journal  JournalConfig  `toml:"journal"`
	Receipts ReceiptsConfig `toml:"receipts"`
	Ledger   LedgerConfig   `toml:"ledger"`
}

type EngineConfig struct {
	Owner           core.Address    `toml:"owner"`
	Account         core.Address    `toml:"account"`
	FeeReceiver     core.Address    `toml:"fee_receiver"`
	FeePercent      decimal.Decimal `toml:"fee_percent"` // whole percent, e.g. 5 or 2.5
	SettlementToken string          `toml:"settlement_token"`
	TrustedRouter   core.Address    `toml:"trusted_router"`
	Managers        []core.Address  `toml:"managers"`
	Defaults        DefaultsConfig  `toml:"defaults"`
}

type DefaultsConfig struct {
	TimeBuffer      Duration        `toml:"time_buffer"`
	ReservePrice    decimal.Decimal `toml:"reserve_price"`
	MinBidIncrement decimal.Decimal `toml:"min_bid_increment"` // whole percent
	Duration        Duration        `toml:"duration"`
}

type ServerConfig struct {
	Network     string   `toml:"network"`
	Address     string   `toml:"address"`
	Port        uint32   `toml:"port"`
	MaxWorkers  int      `toml:"max_workers"`
	ReadTimeout Duration `toml:"read_timeout"`
}

type JournalConfig struct {
	PostgresDSN string `toml:"postgres_dsn"`
	PoolSize    int    `toml:"pool_size"`
}

type ReceiptsConfig struct {
	Enabled bool   `toml:"enabled"`
	KeyFile string `toml:"key_file"` // PEM EC private key; a fresh key is generated when empty
}

// LedgerConfig describes the in-process token books and exchange routes.
type LedgerConfig struct {
	Genesis   []GenesisBalance `toml:"genesis"`
	Exchanges []ExchangeConfig `toml:"exchanges"`
}

type GenesisBalance struct {
	Token   string          `toml:"token"`
	Account core.Address    `toml:"account"`
	Amount  decimal.Decimal `toml:"amount"`
}

// ExchangeConfig is a fixed-rate route from Token into the settlement token.
type ExchangeConfig struct {
	Token     string          `toml:"token"`
	Pool      core.Address    `toml:"pool"`
	Rate      decimal.Decimal `toml:"rate"`
	CacheSize int             `toml:"cache_size"`
}

// Default returns the configuration used for unset fields.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			FeePercent:      decimal.NewFromInt(5),
			SettlementToken: "USD",
			Defaults: DefaultsConfig{
				TimeBuffer:      Duration{5 * time.Minute},
				ReservePrice:    decimal.NewFromInt(1),
				MinBidIncrement: decimal.NewFromInt(10),
				Duration:        Duration{24 * time.Hour},
			},
		},
		Server: ServerConfig{
			Network:     server.NetworkTCP,
			Address:     "127.0.0.1:7400",
			Port:        5000,
			MaxWorkers:  16,
			ReadTimeout: Duration{30 * time.Second},
		},
		Journal:  JournalConfig{PoolSize: 4},
		Receipts: ReceiptsConfig{Enabled: true},
	}
}

// LoadConfig reads path over the defaults, applies environment overrides and validates.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := Default()
	if err = toml.NewDecoder(file).DisallowUnknownFields().Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides worker count, listen port and journal DSN from the environment.
func (c *Config) ApplyEnv() error {
	if workers, ok, err := getEnvInt(EnvMaxWorkers); err != nil {
		return err
	} else if ok {
		c.Server.MaxWorkers = workers
	}

	if port, ok, err := getEnvInt(EnvPort); err != nil {
		return err
	} else if ok {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid value for %s: %d (must be a port number)", EnvPort, port)
		}
		c.Server.Port = uint32(port)
		host, _, err := net.SplitHostPort(c.Server.Address)
		if err != nil {
			host = c.Server.Address
		}
		c.Server.Address = net.JoinHostPort(host, strconv.Itoa(port))
	}

	if dsn := os.Getenv(EnvPostgresDSN); dsn != "" {
		c.Journal.PostgresDSN = dsn
		log.Printf("INFO: Using %s from environment", EnvPostgresDSN)
	}
	return nil
}

// getEnvInt parses an optional integer environment variable.
func getEnvInt(key string) (int, bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false, nil
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("invalid value for %s: %s (must be a valid integer)", key, value)
	}

	log.Printf("INFO: Using %s=%d from environment", key, intValue)
	return intValue, true, nil
}

// Validate rejects configurations the house or server would refuse at startup.
func (c *Config) Validate() error {
	e := c.Engine
	if e.Owner.IsZero() || e.Account.IsZero() || e.FeeReceiver.IsZero() {
		return fmt.Errorf("engine.owner, engine.account and engine.fee_receiver are required")
	}
	if e.SettlementToken == "" {
		return fmt.Errorf("engine.settlement_token is required")
	}
	if !core.IsValidPercentage(c.FeePercent()) {
		return fmt.Errorf("engine.fee_percent must be between 0 and 100, got %s", e.FeePercent)
	}
	if err := core.ValidateParameters(c.HouseDefaults()); err != nil {
		return fmt.Errorf("engine.defaults: %w", err)
	}

	s := c.Server
	if s.Network != server.NetworkTCP && s.Network != server.NetworkVsock {
		return fmt.Errorf("server.network must be %q or %q, got %q", server.NetworkTCP, server.NetworkVsock, s.Network)
	}
	if s.MaxWorkers <= 0 {
		return fmt.Errorf("server.max_workers must be positive, got %d", s.MaxWorkers)
	}
	if s.ReadTimeout.Duration <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	for i, g := range c.Ledger.Genesis {
		if g.Token == "" || g.Account.IsZero() {
			return fmt.Errorf("ledger.genesis[%d]: token and account are required", i)
		}
		if !core.IsWholeAmount(g.Amount) {
			return fmt.Errorf("ledger.genesis[%d]: amount must be a non-negative whole number, got %s", i, g.Amount)
		}
	}
	for i, x := range c.Ledger.Exchanges {
		if x.Token == "" || x.Token == e.SettlementToken {
			return fmt.Errorf("ledger.exchanges[%d]: token must name an alternate currency", i)
		}
		if x.Pool.IsZero() || !x.Rate.IsPositive() {
			return fmt.Errorf("ledger.exchanges[%d]: pool and a positive rate are required", i)
		}
	}
	return nil
}

// FeePercent converts engine.fee_percent to core.Precision units.
func (c *Config) FeePercent() decimal.Decimal {
	return toPrecision(c.Engine.FeePercent)
}

// HouseDefaults converts engine.defaults into auction parameters.
func (c *Config) HouseDefaults() core.AuctionParameters {
	d := c.Engine.Defaults
	return core.AuctionParameters{
		TimeBuffer:                d.TimeBuffer.Duration,
		ReservePrice:              d.ReservePrice,
		MinBidIncrementPercentage: toPrecision(d.MinBidIncrement),
		Duration:                  d.Duration.Duration,
	}
}

func (c *Config) ServerConfig() server.Config {
	return server.Config{
		Network:     c.Server.Network,
		Address:     c.Server.Address,
		Port:        c.Server.Port,
		MaxWorkers:  c.Server.MaxWorkers,
		ReadTimeout: c.Server.ReadTimeout.Duration,
	}
}

// toPrecision scales a whole percent (100 = 100%) to core.Precision units.
func toPrecision(percent decimal.Decimal) decimal.Decimal {
	return percent.Shift(8).Truncate(0)
}
