// Package engine assembles the live market: the item store, the market
// ticker, the bid engine and the event dispatcher.
//
// It is the surface the transport layer talks to:
//   - ListItems / Item return display projections of the current state
//   - SubmitBid places a bid
//   - Subscribe streams item events
//
// Stop marks the engine stopped before anything else, so bids arriving
// during shutdown fail with model.ErrEngineStopped. Updates already applied
// are kept.
package engine
