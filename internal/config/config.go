// Package config loads service configuration from a YAML file, a .env file
// and MEV_ prefixed environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MEV_RPC_URL for rpc.url.
const EnvPrefix = "MEV"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Monitor signature sources.
const (
	SourcePoll = "poll"
	SourceLogs = "logs"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	RPC      RPCConfig      `mapstructure:"rpc"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Registry RegistryConfig `mapstructure:"registry"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	FeedInterval    time.Duration `mapstructure:"feed_interval"`
}

// RPCConfig configures the Solana JSON-RPC and WebSocket endpoints.
type RPCConfig struct {
	URL        string        `mapstructure:"url"`
	WSURL      string        `mapstructure:"ws_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Commitment string        `mapstructure:"commitment"`
}

// MonitorConfig configures the background signature monitor.
type MonitorConfig struct {
	Source         string        `mapstructure:"source"`
	Autostart      bool          `mapstructure:"autostart"`
	SignatureLimit int           `mapstructure:"signature_limit"`
	MaxPerCycle    int           `mapstructure:"max_per_cycle"`
	Interval       time.Duration `mapstructure:"interval"`
	ErrorBackoff   time.Duration `mapstructure:"error_backoff"`
}

// PipelineConfig configures batch analysis.
type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// StorageConfig selects the history backend and the optional analytics sink.
type StorageConfig struct {
	Backend          string `mapstructure:"backend"`
	HistorySize      int    `mapstructure:"history_size"`
	PostgresDSN      string `mapstructure:"postgres_dsn"`
	PostgresMaxConns int32  `mapstructure:"postgres_max_conns"`
	ClickhouseDSN    string `mapstructure:"clickhouse_dsn"`
}

// PriceOverride pins a symbol to a USD price.
type PriceOverride struct {
	Symbol string  `mapstructure:"symbol"`
	Price  float64 `mapstructure:"price"`
}

// PricingConfig configures the price book.
type PricingConfig struct {
	JupiterURL      string          `mapstructure:"jupiter_url"`
	RefreshInterval time.Duration   `mapstructure:"refresh_interval"` // 0 disables live quotes
	Overrides       []PriceOverride `mapstructure:"overrides"`
}

// MintEntry adds a token to the symbol table.
type MintEntry struct {
	Mint   string `mapstructure:"mint"`
	Symbol string `mapstructure:"symbol"`
}

// ProgramEntry adds a DEX program to the venue table.
type ProgramEntry struct {
	ID    string `mapstructure:"id"`
	Venue string `mapstructure:"venue"`
}

// RegistryConfig extends the built-in mint and program tables.
// Lists are used instead of maps because viper lower-cases map keys.
type RegistryConfig struct {
	Mints             []MintEntry    `mapstructure:"mints"`
	Programs          []ProgramEntry `mapstructure:"programs"`
	MonitoredPrograms []string       `mapstructure:"monitored_programs"`
}

// NATSConfig configures MEV event publishing. An empty URL disables it.
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	Subject        string        `mapstructure:"subject"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
}

// LogConfig configures logrus output.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text | json
	File       string `mapstructure:"file"`   // empty logs to stdout only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// PriceOverrides returns the overrides keyed by symbol.
func (c PricingConfig) PriceOverrides() map[string]float64 {
	out := make(map[string]float64, len(c.Overrides))
	for _, o := range c.Overrides {
		out[o.Symbol] = o.Price
	}
	return out
}

// Loader reads configuration and can watch the config file for changes.
type Loader struct {
	v        *viper.Viper
	explicit bool // path given: a missing file is an error
}

// NewLoader prepares a loader. An empty path searches ./config.yaml and ./config/config.yaml.
func NewLoader(path string) *Loader {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return &Loader{v: v, explicit: path != ""}
}

// Load is shorthand for NewLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Load reads .env (if present), the config file (if present) and the environment.
func (l *Loader) Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return l.decode()
}

// ConfigFile returns the file in use, or "" when running from defaults and env only.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	if err := validateURL("rpc.url", c.RPC.URL, "http", "https"); err != nil {
		return err
	}
	if c.RPC.WSURL != "" {
		if err := validateURL("rpc.ws_url", c.RPC.WSURL, "ws", "wss"); err != nil {
			return err
		}
	}

	switch c.Monitor.Source {
	case SourcePoll:
	case SourceLogs:
		if c.RPC.WSURL == "" {
			return errors.New("config: monitor.source=logs requires rpc.ws_url")
		}
	default:
		return fmt.Errorf("config: unknown monitor.source %q", c.Monitor.Source)
	}
	if c.Monitor.SignatureLimit <= 0 || c.Monitor.MaxPerCycle <= 0 {
		return errors.New("config: monitor.signature_limit and monitor.max_per_cycle must be positive")
	}
	if c.Monitor.Interval <= 0 || c.Monitor.ErrorBackoff <= 0 {
		return errors.New("config: monitor.interval and monitor.error_backoff must be positive")
	}
	if c.Pipeline.Workers <= 0 {
		return errors.New("config: pipeline.workers must be positive")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("config: storage.backend=postgres requires storage.postgres_dsn")
		}
	default:
		return fmt.Errorf("config: unknown storage.backend %q", c.Storage.Backend)
	}

	for _, o := range c.Pricing.Overrides {
		if o.Symbol == "" || o.Price < 0 {
			return fmt.Errorf("config: invalid price override %+v", o)
		}
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}

func validateURL(key, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("config: %s must be an absolute URL, got %q", key, raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("config: %s scheme must be one of %v, got %q", key, schemes, u.Scheme)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.feed_interval", "2s")

	v.SetDefault("rpc.url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc.ws_url", "")
	v.SetDefault("rpc.timeout", "30s")
	v.SetDefault("rpc.max_retries", 3)
	v.SetDefault("rpc.retry_delay", "1s")
	v.SetDefault("rpc.commitment", "confirmed")

	v.SetDefault("monitor.source", SourcePoll)
	v.SetDefault("monitor.autostart", false)
	v.SetDefault("monitor.signature_limit", 50)
	v.SetDefault("monitor.max_per_cycle", 10)
	v.SetDefault("monitor.interval", "5s")
	v.SetDefault("monitor.error_backoff", "10s")

	v.SetDefault("pipeline.workers", 4)

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.history_size", 1000)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.postgres_max_conns", 10)
	v.SetDefault("storage.clickhouse_dsn", "")

	v.SetDefault("pricing.jupiter_url", "https://price.jup.ag/v4")
	v.SetDefault("pricing.refresh_interval", "0s")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "mev.verdicts")
	v.SetDefault("nats.connect_timeout", "5s")
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.max_reconnects", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)
}
