package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/rickgao/live-market/internal/cart"
	"github.com/rickgao/live-market/internal/catalog"
	"github.com/rickgao/live-market/internal/engine"
	"github.com/rickgao/live-market/internal/model"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

// newTestServer builds a server over the builtin catalog seeded at testNow,
// with the engine clock at clockAt.
func newTestServer(t *testing.T, clockAt time.Time) (*Server, *engine.Engine) {
	t.Helper()

	cfg := engine.DefaultConfig()
	cfg.Seed = 1
	eng, err := engine.New(cfg, catalog.Builtin(testNow), engine.WithClock(func() time.Time { return clockAt }))
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = eng.Stop(ctx)
	})

	sessions, err := cart.NewSessions(cart.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("cart.NewSessions failed: %v", err)
	}

	scfg := DefaultConfig()
	scfg.PingInterval = time.Second
	srv := New(scfg, eng, sessions, nil, WithStats("relay", func() any { return map[string]int{"forwarded": 7} }))
	return srv, eng
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: response is not a JSON object: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testNow)

	rec, body := do(t, srv.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", body["status"])
	}
}

func TestListItems(t *testing.T) {
	srv, _ := newTestServer(t, testNow)

	tests := []struct {
		path      string
		wantCount int
		wantFirst string
	}{
		{"/api/v1/items", 4, "Premium Basmati Rice"},
		{"/api/v1/items?q=tomato", 1, "Fresh Organic Tomatoes"},
		{"/api/v1/items?q=CHILI", 1, "Red Chili Powder"},
		{"/api/v1/items?q=zzzz", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, body := do(t, srv.Handler(), http.MethodGet, tt.path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if got := int(body["count"].(float64)); got != tt.wantCount {
				t.Fatalf("count = %d, want %d", got, tt.wantCount)
			}
			if tt.wantCount > 0 {
				first := body["items"].([]any)[0].(map[string]any)
				if first["name"] != tt.wantFirst {
					t.Errorf("first = %v, want %s", first["name"], tt.wantFirst)
				}
			}
		})
	}
}

func TestGetItem(t *testing.T) {
	srv, _ := newTestServer(t, testNow)

	rec, body := do(t, srv.Handler(), http.MethodGet, "/api/v1/items/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["time_left"] != "2h 45m" {
		t.Errorf("time_left = %v, want 2h 45m", body["time_left"])
	}

	rec, body = do(t, srv.Handler(), http.MethodGet, "/api/v1/items/9", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if body["reason"] != nil {
		t.Errorf("reason = %v, want none for a plain lookup", body["reason"])
	}
}

func TestSubmitBid(t *testing.T) {
	tests := []struct {
		name       string
		clockAt    time.Time
		path       string
		body       string
		wantStatus int
		wantReason string
	}{
		{"accepted", testNow, "/api/v1/items/1/bids", `{"price":"90"}`, http.StatusCreated, ""},
		{"accepted numeric", testNow, "/api/v1/items/1/bids", `{"price":90.5}`, http.StatusCreated, ""},
		{"too low", testNow, "/api/v1/items/1/bids", `{"price":"80"}`, http.StatusUnprocessableEntity, "too_low"},
		{"closed", testNow.Add(time.Hour), "/api/v1/items/3/bids", `{"price":"130"}`, http.StatusConflict, "closed"},
		{"not found", testNow, "/api/v1/items/9/bids", `{"price":"90"}`, http.StatusNotFound, "not_found"},
		{"bad body", testNow, "/api/v1/items/1/bids", `{"price":`, http.StatusBadRequest, ""},
		{"missing price", testNow, "/api/v1/items/1/bids", `{}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.clockAt)

			rec, body := do(t, srv.Handler(), http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", rec.Code, tt.wantStatus, body)
			}
			if tt.wantReason != "" && body["reason"] != tt.wantReason {
				t.Errorf("reason = %v, want %s", body["reason"], tt.wantReason)
			}
			if tt.wantStatus == http.StatusCreated {
				if got := int(body["active_bids"].(float64)); got != 13 {
					t.Errorf("active_bids = %d, want 13", got)
				}
			}
		})
	}
}

func TestSubmitBid_EngineStopped(t *testing.T) {
	srv, eng := newTestServer(t, testNow)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := eng.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	rec, body := do(t, srv.Handler(), http.MethodPost, "/api/v1/items/1/bids", `{"price":"90"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if body["reason"] != "engine_stopped" {
		t.Errorf("reason = %v, want engine_stopped", body["reason"])
	}
}

func TestCarts(t *testing.T) {
	srv, eng := newTestServer(t, testNow)
	h := srv.Handler()

	rec, body := do(t, h, http.MethodPost, "/api/v1/carts", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rec.Code)
	}
	session := body["session_id"].(string)

	rec, body = do(t, h, http.MethodPost, "/api/v1/carts/"+session+"/items/1", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, want 201", rec.Code)
	}
	if got := int(body["count"].(float64)); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}

	// The snapshot keeps the price at selection time.
	if _, err := eng.SubmitBid(context.Background(), "1", decimal.NewFromInt(99)); err != nil {
		t.Fatalf("SubmitBid failed: %v", err)
	}
	do(t, h, http.MethodPost, "/api/v1/carts/"+session+"/items/2", "")

	rec, body = do(t, h, http.MethodGet, "/api/v1/carts/"+session, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}
	if got := int(body["count"].(float64)); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
	if body["total"] != "130" {
		t.Errorf("total = %v, want 130", body["total"])
	}

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"bad session id", http.MethodGet, "/api/v1/carts/not-a-uuid", http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/api/v1/carts/2f1c6b1e-4c1a-4a55-9d0a-9c3c1a1f0b11", http.StatusNotFound},
		{"unknown item", http.MethodPost, "/api/v1/carts/" + session + "/items/9", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, h, tt.method, tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestStats(t *testing.T) {
	srv, _ := newTestServer(t, testNow)

	rec, body := do(t, srv.Handler(), http.MethodGet, "/debug/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	for _, key := range []string{"engine", "carts", "websocket", "relay"} {
		if _, ok := body[key]; !ok {
			t.Errorf("stats missing %q section", key)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&model.BidError{Reason: model.ReasonNotFound}, http.StatusNotFound},
		{&model.BidError{Reason: model.ReasonTooLow}, http.StatusUnprocessableEntity},
		{&model.BidError{Reason: model.ReasonClosed}, http.StatusConflict},
		{&model.BidError{Reason: model.ReasonEngineStopped}, http.StatusServiceUnavailable},
		{&model.InvariantError{ItemID: "1", Invariant: "x"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestEventsStream(t *testing.T) {
	srv, eng := newTestServer(t, testNow)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/events?item=1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snap snapshotMessage
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.Type != "snapshot" || len(snap.Items) != 1 || snap.Items[0].ID != "1" {
		t.Fatalf("snapshot = %+v, want item 1 only", snap)
	}

	// Item 2 is filtered out; item 1 arrives.
	if _, err := eng.SubmitBid(context.Background(), "2", decimal.NewFromInt(50)); err != nil {
		t.Fatalf("SubmitBid(2) failed: %v", err)
	}
	if _, err := eng.SubmitBid(context.Background(), "1", decimal.NewFromInt(90)); err != nil {
		t.Fatalf("SubmitBid(1) failed: %v", err)
	}

	var ev model.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != model.EventBidAccepted || ev.ItemID != "1" || ev.ActiveBids != 13 {
		t.Errorf("event = {%s, %s, %d}, want {bid_accepted, 1, 13}", ev.Type, ev.ItemID, ev.ActiveBids)
	}

	// Stopping the engine ends the stream with a close frame.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := eng.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() err = %v, want close going away", err)
	}
}

func TestEventsStream_UnknownItem(t *testing.T) {
	srv, _ := newTestServer(t, testNow)

	rec, _ := do(t, srv.Handler(), http.MethodGet, "/ws/events?item=9", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
