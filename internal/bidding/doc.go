// Package bidding implements the Bid Engine.
//
// A bid is validated and applied inside a single store update, so nothing
// can change the item between the check and the write. Accepted bids set
// the item's price to the bid and add one to its active bid count; the last
// accepted bid wins. Every outcome is published to the dispatcher.
package bidding
