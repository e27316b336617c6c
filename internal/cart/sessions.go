package cart

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
)

// ErrSessionNotFound is returned for unknown or evicted session ids.
var ErrSessionNotFound = errors.New("cart session not found")

// Config holds session registry configuration.
type Config struct {
	MaxSessions int // Carts kept before the least recently used is evicted (default: 1024)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxSessions: 1024}
}

// Sessions maps session ids to carts.
type Sessions struct {
	cache   *lru.Cache
	logger  *slog.Logger
	created atomic.Int64
	evicted atomic.Int64
}

// NewSessions creates a bounded session registry.
func NewSessions(cfg Config, logger *slog.Logger) (*Sessions, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultConfig().MaxSessions
	}

	s := &Sessions{logger: logger}

	cache, err := lru.NewWithEvict(cfg.MaxSessions, func(key, _ interface{}) {
		s.evicted.Add(1)
		s.logger.Debug("cart session evicted", "session_id", key)
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	s.cache = cache

	return s, nil
}

// Create starts a new session with an empty cart.
func (s *Sessions) Create() (uuid.UUID, *Cart) {
	id := uuid.New()
	c := New()
	s.cache.Add(id, c)
	s.created.Add(1)
	return id, c
}

// Get returns the cart for id and marks the session as recently used.
func (s *Sessions) Get(id uuid.UUID) (*Cart, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return v.(*Cart), nil
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	return s.cache.Len()
}

// Stats returns session statistics.
func (s *Sessions) Stats() SessionStats {
	return SessionStats{
		Active:  s.cache.Len(),
		Created: s.created.Load(),
		Evicted: s.evicted.Load(),
	}
}

// SessionStats contains session statistics.
type SessionStats struct {
	Active  int   `json:"active"`
	Created int64 `json:"created"`
	Evicted int64 `json:"evicted"`
}
