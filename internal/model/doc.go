// Package model defines shared data types used across the live market engine.
//
// Conventions:
//   - Prices: shopspring/decimal values in price units (e.g. rupees per kg)
//   - IDs: string item identifiers ("1", "2", ...), uuid.UUID for events and carts
//   - Timestamps: time.Time in UTC
//   - Version: per-item mutation sequence, incremented on every committed update
package model
