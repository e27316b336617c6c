package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/live-market/internal/dispatch"
	"github.com/rickgao/live-market/internal/model"
)

// snapshotMessage is the first frame on every stream.
type snapshotMessage struct {
	Type     string                  `json:"type"` // "snapshot"
	ClientID uuid.UUID               `json:"client_id"`
	Items    []model.AuctionItemView `json:"items"`
}

// wsClient is one WebSocket stream.
type wsClient struct {
	id     uuid.UUID
	conn   *websocket.Conn
	sub    *dispatch.Subscription
	server *Server
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["item"]
	for _, id := range ids {
		if _, err := s.market.Item(id); err != nil {
			respondErr(w, err)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &wsClient{
		id:     uuid.New(),
		conn:   conn,
		sub:    s.market.Subscribe(dispatch.ForItems(ids...)),
		server: s,
	}

	s.wsClients.Add(1)
	s.wsTotal.Add(1)
	s.logger.Info("websocket client connected", "client_id", c.id, "items", ids)

	ctx, cancel := context.WithCancel(context.Background())
	go c.readPump(cancel)
	c.writePump(ctx, s.snapshot(ids))

	cancel()
	c.sub.Close()
	_ = c.conn.Close()
	s.wsClients.Add(-1)

	s.logger.Info("websocket client disconnected",
		"client_id", c.id,
		"dropped", c.sub.Stats().Dropped,
	)
}

// snapshot returns the current state of the requested items, or all items.
func (s *Server) snapshot(ids []string) []model.AuctionItemView {
	all := s.market.ListItems()
	if len(ids) == 0 {
		return all
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]model.AuctionItemView, 0, len(ids))
	for _, item := range all {
		if _, ok := want[item.ID]; ok {
			out = append(out, item)
		}
	}
	return out
}

// writePump sends the snapshot, then every event, with periodic pings.
// It returns when the subscription closes, a write fails or ctx is done.
func (c *wsClient) writePump(ctx context.Context, snapshot []model.AuctionItemView) {
	cfg := c.server.cfg

	events := make(chan model.Event)
	go func() {
		defer close(events)
		for {
			ev, ok := c.sub.Receive(ctx)
			if !ok {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ping := time.NewTicker(cfg.PingInterval)
	defer ping.Stop()

	if err := c.writeJSON(snapshotMessage{Type: "snapshot", ClientID: c.id, Items: snapshot}); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "market closed"))
				return
			}
			if err := c.writeJSON(ev); err != nil {
				return
			}

		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *wsClient) writeJSON(v any) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.server.cfg.WriteTimeout))
	if err := c.conn.WriteJSON(v); err != nil {
		c.server.logger.Debug("websocket write failed", "client_id", c.id, "err", err)
		return err
	}
	return nil
}

// readPump discards client frames and cancels the stream when the peer goes
// away or stops answering pings.
func (c *wsClient) readPump(cancel context.CancelFunc) {
	defer cancel()

	wait := 2 * c.server.cfg.PingInterval
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Debug("websocket read failed", "client_id", c.id, "err", err)
			}
			return
		}
	}
}
