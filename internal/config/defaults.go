package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default values for optional configuration fields.
const (
	DefaultInstanceID      = "marketd"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultTickInterval    = 5 * time.Second
	DefaultPriceDeltaBound = "1.5"
	DefaultBidWalkBound    = 1
	DefaultTickConcurrency = 16
	DefaultQueueSize       = 256
	DefaultCatalogSource   = CatalogBuiltin
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 4
	DefaultMinConns        = 1
	DefaultMaxSessions     = 1024
	DefaultServerPort      = 8080
	DefaultPingInterval    = 30 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultSubjectPrefix   = "market"
	DefaultChannelPrefix   = "market"
)

func (c *MarketConfig) applyDefaults() {
	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	// Engine defaults
	if c.Engine.TickInterval == 0 {
		c.Engine.TickInterval = DefaultTickInterval
	}
	if c.Engine.PriceDeltaBound.IsZero() {
		c.Engine.PriceDeltaBound = decimal.RequireFromString(DefaultPriceDeltaBound)
	}
	if c.Engine.BidWalkBound == 0 {
		c.Engine.BidWalkBound = DefaultBidWalkBound
	}
	if c.Engine.TickConcurrency == 0 {
		c.Engine.TickConcurrency = DefaultTickConcurrency
	}

	// Dispatcher defaults
	if c.Dispatcher.QueueSize == 0 {
		c.Dispatcher.QueueSize = DefaultQueueSize
	}

	// Catalog defaults
	if c.Catalog.Source == "" {
		c.Catalog.Source = DefaultCatalogSource
	}
	if c.Catalog.Source == CatalogPostgres {
		applyDBDefaults(&c.Catalog.Database)
	}

	// Carts defaults
	if c.Carts.MaxSessions == 0 {
		c.Carts.MaxSessions = DefaultMaxSessions
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = DefaultPingInterval
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Relay defaults
	if c.Relay.NATS.SubjectPrefix == "" {
		c.Relay.NATS.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.Relay.Redis.ChannelPrefix == "" {
		c.Relay.Redis.ChannelPrefix = DefaultChannelPrefix
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
