package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketConfig is the root configuration for a marketd instance.
type MarketConfig struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Log        LogConfig        `yaml:"log"`
	Engine     EngineConfig     `yaml:"engine"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Carts      CartsConfig      `yaml:"carts"`
	Server     ServerConfig     `yaml:"server"`
	Relay      RelayConfig      `yaml:"relay"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// EngineConfig holds market ticker settings.
type EngineConfig struct {
	TickInterval    time.Duration   `yaml:"tick_interval"`
	PriceDeltaBound decimal.Decimal `yaml:"price_delta_bound"`
	BidWalkBound    int             `yaml:"bid_walk_bound"`
	Seed            uint64          `yaml:"seed"` // 0 = random
	TickConcurrency int             `yaml:"tick_concurrency"`
}

// DispatcherConfig holds event fan-out settings.
type DispatcherConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// Catalog sources.
const (
	CatalogBuiltin  = "builtin"
	CatalogFile     = "file"
	CatalogPostgres = "postgres"
)

// CatalogConfig selects where seed items come from.
type CatalogConfig struct {
	Source   string   `yaml:"source"`   // builtin, file, postgres
	Path     string   `yaml:"path"`     // YAML file for the file source
	Database DBConfig `yaml:"database"` // Postgres source
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// CartsConfig holds cart session settings.
type CartsConfig struct {
	MaxSessions int `yaml:"max_sessions"`
}

// ServerConfig holds HTTP and WebSocket settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RelayConfig holds optional external event sinks. A sink is enabled when
// its address is set.
type RelayConfig struct {
	NATS  NATSConfig  `yaml:"nats"`
	Redis RedisConfig `yaml:"redis"`
}

// NATSConfig holds NATS relay settings.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// RedisConfig holds Redis pub/sub relay settings.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}
