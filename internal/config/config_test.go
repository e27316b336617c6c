package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-market
log:
  level: debug
  format: json
engine:
  tick_interval: 2s
  price_delta_bound: 2.25
  bid_walk_bound: 3
  seed: 42
catalog:
  source: file
  path: /etc/marketd/items.yaml
relay:
  nats:
    url: nats://localhost:4222
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-market" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-market")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want {debug json}", cfg.Log)
	}
	if cfg.Engine.TickInterval != 2*time.Second {
		t.Errorf("Engine.TickInterval = %v, want 2s", cfg.Engine.TickInterval)
	}
	if !cfg.Engine.PriceDeltaBound.Equal(decimal.RequireFromString("2.25")) {
		t.Errorf("Engine.PriceDeltaBound = %s, want 2.25", cfg.Engine.PriceDeltaBound)
	}
	if cfg.Engine.BidWalkBound != 3 {
		t.Errorf("Engine.BidWalkBound = %d, want 3", cfg.Engine.BidWalkBound)
	}
	if cfg.Engine.Seed != 42 {
		t.Errorf("Engine.Seed = %d, want 42", cfg.Engine.Seed)
	}
	if cfg.Catalog.Source != CatalogFile || cfg.Catalog.Path != "/etc/marketd/items.yaml" {
		t.Errorf("Catalog = %+v, want file source", cfg.Catalog)
	}
	if cfg.Relay.NATS.URL != "nats://localhost:4222" {
		t.Errorf("Relay.NATS.URL = %q, want %q", cfg.Relay.NATS.URL, "nats://localhost:4222")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-market
catalog:
  source: postgres
  database:
    host: localhost
    name: market
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Catalog.Database.Password != "secret123" {
		t.Errorf("Catalog.Database.Password = %q, want %q", cfg.Catalog.Database.Password, "secret123")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty document", "", ""},
		{"unknown key", "engine:\n  tick_intervall: 2s\n", "field tick_intervall not found"},
		{"bad duration", "engine:\n  tick_interval: soon\n", "parse config yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.content))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Parse() unexpected error: %v", err)
				}
				if cfg == nil {
					t.Fatal("Parse() returned nil config")
				}
				return
			}
			if err == nil {
				t.Fatalf("Parse() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-market
catalog:
  source: postgres
  database:
    host: localhost
    name: market
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Engine.TickInterval != DefaultTickInterval {
		t.Errorf("Engine.TickInterval = %v, want default %v", cfg.Engine.TickInterval, DefaultTickInterval)
	}
	if !cfg.Engine.PriceDeltaBound.Equal(decimal.RequireFromString(DefaultPriceDeltaBound)) {
		t.Errorf("Engine.PriceDeltaBound = %s, want default %s", cfg.Engine.PriceDeltaBound, DefaultPriceDeltaBound)
	}
	if cfg.Dispatcher.QueueSize != DefaultQueueSize {
		t.Errorf("Dispatcher.QueueSize = %d, want default %d", cfg.Dispatcher.QueueSize, DefaultQueueSize)
	}
	if cfg.Catalog.Database.Port != DefaultDBPort {
		t.Errorf("Catalog.Database.Port = %d, want default %d", cfg.Catalog.Database.Port, DefaultDBPort)
	}
	if cfg.Catalog.Database.MaxConns != DefaultMaxConns {
		t.Errorf("Catalog.Database.MaxConns = %d, want default %d", cfg.Catalog.Database.MaxConns, DefaultMaxConns)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, DefaultServerPort)
	}
	if cfg.Relay.NATS.SubjectPrefix != DefaultSubjectPrefix {
		t.Errorf("Relay.NATS.SubjectPrefix = %q, want default %q", cfg.Relay.NATS.SubjectPrefix, DefaultSubjectPrefix)
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() unexpected error: %v", err)
	}
	if cfg.Catalog.Source != CatalogBuiltin {
		t.Errorf("Catalog.Source = %q, want %q", cfg.Catalog.Source, CatalogBuiltin)
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, `
instance:
  id: test-market
dispatcher:
  queue_size: -1
`)

	if _, err := LoadAndValidate(path); err == nil {
		t.Error("LoadAndValidate() expected error for negative queue_size")
	}
}

func TestValidate(t *testing.T) {
	valid := func() MarketConfig {
		return *Default()
	}

	tests := []struct {
		name    string
		mutate  func(c *MarketConfig)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *MarketConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *MarketConfig) { c.Log.Level = "loud" },
			wantErr: `log.level must be one of debug, info, warn, error, got "loud"`,
		},
		{
			name:    "bad log format",
			mutate:  func(c *MarketConfig) { c.Log.Format = "xml" },
			wantErr: `log.format must be text or json, got "xml"`,
		},
		{
			name:    "negative price bound",
			mutate:  func(c *MarketConfig) { c.Engine.PriceDeltaBound = decimal.NewFromInt(-1) },
			wantErr: "engine.price_delta_bound must be >= 0, got -1",
		},
		{
			name:    "negative bid walk",
			mutate:  func(c *MarketConfig) { c.Engine.BidWalkBound = -1 },
			wantErr: "engine.bid_walk_bound must be >= 0, got -1",
		},
		{
			name:    "file source without path",
			mutate:  func(c *MarketConfig) { c.Catalog.Source = CatalogFile },
			wantErr: "catalog.path is required for the file source",
		},
		{
			name:    "unknown catalog source",
			mutate:  func(c *MarketConfig) { c.Catalog.Source = "s3" },
			wantErr: `catalog.source must be one of builtin, file, postgres, got "s3"`,
		},
		{
			name: "postgres missing password",
			mutate: func(c *MarketConfig) {
				c.Catalog.Source = CatalogPostgres
				c.Catalog.Database = DBConfig{Host: "localhost", Name: "db", User: "user"}
			},
			wantErr: "catalog.database.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *MarketConfig) {
				c.Catalog.Source = CatalogPostgres
				c.Catalog.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10}
			},
			wantErr: "catalog.database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "port out of range",
			mutate:  func(c *MarketConfig) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "zero sessions",
			mutate:  func(c *MarketConfig) { c.Carts.MaxSessions = 0 },
			wantErr: "carts.max_sessions must be >= 1",
		},
		{
			name:    "valid config",
			mutate:  func(c *MarketConfig) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestExampleConfigIsValid(t *testing.T) {
	t.Setenv("MARKET_DB_PASSWORD", "secret")
	t.Setenv("MARKET_REDIS_PASSWORD", "")

	cfg, err := LoadAndValidate(filepath.Join("..", "..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("LoadAndValidate(config.example.yaml) failed: %v", err)
	}
	if cfg.Catalog.Database.Password != "secret" {
		t.Errorf("Catalog.Database.Password = %q, want %q", cfg.Catalog.Database.Password, "secret")
	}
	if cfg.Engine.TickInterval != DefaultTickInterval {
		t.Errorf("Engine.TickInterval = %v, want %v", cfg.Engine.TickInterval, DefaultTickInterval)
	}
}
