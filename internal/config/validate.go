package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *MarketConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.Engine.TickInterval <= 0 {
		return errors.New("engine.tick_interval must be > 0")
	}
	if c.Engine.PriceDeltaBound.IsNegative() {
		return fmt.Errorf("engine.price_delta_bound must be >= 0, got %s", c.Engine.PriceDeltaBound)
	}
	if c.Engine.BidWalkBound < 0 {
		return fmt.Errorf("engine.bid_walk_bound must be >= 0, got %d", c.Engine.BidWalkBound)
	}
	if c.Engine.TickConcurrency < 1 {
		return errors.New("engine.tick_concurrency must be >= 1")
	}

	if c.Dispatcher.QueueSize < 1 {
		return errors.New("dispatcher.queue_size must be >= 1")
	}

	switch c.Catalog.Source {
	case CatalogBuiltin:
	case CatalogFile:
		if c.Catalog.Path == "" {
			return errors.New("catalog.path is required for the file source")
		}
	case CatalogPostgres:
		if err := c.Catalog.Database.validate("catalog.database"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("catalog.source must be one of builtin, file, postgres, got %q", c.Catalog.Source)
	}

	if c.Carts.MaxSessions < 1 {
		return errors.New("carts.max_sessions must be >= 1")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.PingInterval <= 0 {
		return errors.New("server.ping_interval must be > 0")
	}

	if c.Relay.Redis.DB < 0 {
		return fmt.Errorf("relay.redis.db must be >= 0, got %d", c.Relay.Redis.DB)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
