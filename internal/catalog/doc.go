// Package catalog loads the seed items the market starts with.
//
// Sources:
//   - Builtin: the four staple items of the live market screen
//   - FileSource: a YAML list of items
//   - PostgresSource: rows of the auction_items table
//
// Every loaded item is validated before it reaches the engine. Items are
// described by a "time left" duration which is anchored to the load time.
package catalog
