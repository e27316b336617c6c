package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/rickgao/live-market/internal/bidding"
	"github.com/rickgao/live-market/internal/cart"
	"github.com/rickgao/live-market/internal/dispatch"
	"github.com/rickgao/live-market/internal/engine"
	"github.com/rickgao/live-market/internal/model"
)

// Market is the engine surface the server needs. *engine.Engine satisfies it.
type Market interface {
	ListItems() []model.AuctionItemView
	Item(id string) (model.AuctionItemView, error)
	SubmitBid(ctx context.Context, itemID string, price decimal.Decimal) (bidding.Result, error)
	Subscribe(opts ...dispatch.SubscribeOption) *dispatch.Subscription
	Stats() engine.Stats
}

// Config holds server configuration.
type Config struct {
	Port         int           // Listen port (default: 8080)
	PingInterval time.Duration // WebSocket keep-alive ping period (default: 30s)
	WriteTimeout time.Duration // Per-write deadline, HTTP and WebSocket (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:         8080,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithStats adds a named section to /debug/stats.
func WithStats(name string, fn func() any) Option {
	return func(s *Server) {
		s.extraStats[name] = fn
	}
}

// Server serves the HTTP API and the event stream.
type Server struct {
	cfg      Config
	market   Market
	sessions *cart.Sessions
	logger   *slog.Logger
	router   *mux.Router
	upgrader websocket.Upgrader

	extraStats map[string]func() any

	httpServer *http.Server
	wg         sync.WaitGroup

	// Stats
	wsClients atomic.Int64
	wsTotal   atomic.Int64
}

// New creates a new Server.
func New(cfg Config, market Market, sessions *cart.Sessions, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	s := &Server{
		cfg:      cfg,
		market:   market,
		sessions: sessions,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		extraStats: make(map[string]func() any),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/debug/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/ws/events", s.handleEvents).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/items", s.handleListItems).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}", s.handleGetItem).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}/bids", s.handleSubmitBid).Methods(http.MethodPost)
	api.HandleFunc("/carts", s.handleCreateCart).Methods(http.MethodPost)
	api.HandleFunc("/carts/{session}", s.handleGetCart).Methods(http.MethodGet)
	api.HandleFunc("/carts/{session}/items/{id}", s.handleAddToCart).Methods(http.MethodPost)

	r.Use(s.loggingMiddleware)
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "err", err)
		}
	}()

	s.logger.Info("http server started", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the server down gracefully. WebSocket streams end when the
// engine closes their subscriptions.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.wg.Wait()
	s.logger.Info("http server stopped")
	return nil
}
