package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sahilm/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/rickgao/live-market/internal/cart"
	"github.com/rickgao/live-market/internal/model"
	"github.com/rickgao/live-market/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": version.Get(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"engine": s.market.Stats(),
		"websocket": map[string]int64{
			"clients": s.wsClients.Load(),
			"total":   s.wsTotal.Load(),
		},
	}
	if s.sessions != nil {
		stats["carts"] = s.sessions.Stats()
	}
	for name, fn := range s.extraStats {
		stats[name] = fn()
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items := s.market.ListItems()
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		items = searchItems(items, q)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.market.Item(mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

type bidRequest struct {
	Price *decimal.Decimal `json:"price"`
}

func (s *Server) handleSubmitBid(w http.ResponseWriter, r *http.Request) {
	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Price == nil {
		respondError(w, http.StatusBadRequest, "price is required")
		return
	}

	res, err := s.market.SubmitBid(r.Context(), mux.Vars(r)["id"], *req.Price)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleCreateCart(w http.ResponseWriter, r *http.Request) {
	id, _ := s.sessions.Create()
	respondJSON(w, http.StatusCreated, map[string]string{"session_id": id.String()})
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCart(w, mux.Vars(r)["session"])
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, c.Summary())
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	c, ok := s.lookupCart(w, vars["session"])
	if !ok {
		return
	}

	item, err := s.market.Item(vars["id"])
	if err != nil {
		respondErr(w, err)
		return
	}

	entry := c.Add(item)
	s.logger.Debug("added to cart",
		"session_id", vars["session"],
		"item_id", item.ID,
		"price", item.CurrentPrice,
	)
	respondJSON(w, http.StatusCreated, map[string]any{
		"entry": entry,
		"count": c.Len(),
	})
}

func (s *Server) lookupCart(w http.ResponseWriter, raw string) (*cart.Cart, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	c, err := s.sessions.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return c, true
}

// searchableItems implements fuzzy.Source over item names.
type searchableItems []model.AuctionItemView

func (items searchableItems) Len() int { return len(items) }

func (items searchableItems) String(i int) string { return strings.ToLower(items[i].Name) }

// searchItems returns items whose name fuzzy-matches q, best match first.
func searchItems(items []model.AuctionItemView, q string) []model.AuctionItemView {
	matches := fuzzy.FindFrom(strings.ToLower(q), searchableItems(items))

	out := make([]model.AuctionItemView, len(matches))
	for i, m := range matches {
		out[i] = items[m.Index]
	}
	return out
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrBidTooLow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrAuctionClosed):
		return http.StatusConflict
	case errors.Is(err, model.ErrEngineStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error  string             `json:"error"`
	Reason model.RejectReason `json:"reason,omitempty"`
}

// respondErr writes err with the matching status and reject reason.
func respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	respondJSON(w, status, errorResponse{Error: msg, Reason: model.ReasonOf(err)})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
