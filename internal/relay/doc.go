// Package relay forwards market events to external pub/sub systems.
//
// A Relay drains one dispatcher subscription and hands every event, encoded
// as JSON, to each configured Publisher:
//   - NATSPublisher publishes on <prefix>.<event type>.<item id>
//   - RedisPublisher publishes on <prefix>:<item id>
//
// Publisher failures are logged and counted. The relay's own subscription
// queue absorbs bursts, so a slow sink never blocks the engine.
package relay
