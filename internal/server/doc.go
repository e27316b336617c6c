// Package server exposes the market over HTTP and WebSocket.
//
// Routes:
//
//	GET  /health
//	GET  /api/v1/items?q=           list items, optional fuzzy name filter
//	GET  /api/v1/items/{id}
//	POST /api/v1/items/{id}/bids    {"price": "90"}
//	POST /api/v1/carts              start a cart session
//	POST /api/v1/carts/{session}/items/{id}
//	GET  /api/v1/carts/{session}
//	GET  /debug/stats
//	GET  /ws/events?item=1&item=2   live event stream
//
// Bid rejections map to status codes: 404 unknown item, 422 below the
// minimum bid, 409 auction closed, 503 engine stopped.
package server
