// Package dispatch implements the Event/Notification Dispatcher component.
//
// The Dispatcher:
//   - Fans out price_ticked, bid_accepted, bid_rejected and auction_closed events
//   - Gives each subscriber its own bounded queue (drop-oldest on overflow)
//   - Never blocks the publishing component
//   - Never delivers a stale event after a newer one for the same item
package dispatch
