// Package store implements the AuctionItem Store component.
//
// The Store:
//   - Holds the current snapshot of every tradable item in insertion order
//   - Serializes updates per item (different items update concurrently)
//   - Routes every mutation through Apply, which enforces data model invariants
//   - Returns copies, never shared pointers, so reads see whole items
package store
