// Package ticker implements the Market Ticker component.
//
// The Market Ticker:
//   - Re-prices every open item on a fixed interval within a symmetric bound
//   - Keeps prices at or above MinimumBid - 2
//   - Walks each item's active bid count upward by a small bounded step
//   - Closes items whose auction has expired
//   - Applies each item independently, so one failing item never stalls the rest
//
// Random draws come from an injected source and are taken in item order
// before any update runs, so a seeded source replays the same ticks.
package ticker
