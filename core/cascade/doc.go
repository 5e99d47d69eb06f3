// Package cascade simulates failure propagation on a transmission grid.
//
// A run copies the node loads of a snapshot, applies per-node demand
// multipliers, optionally pre-fails nodes exposed to cold weather, and then
// repeatedly trips overloaded nodes and pushes part of their load onto the
// surviving neighbours. The result records every step so that callers can
// replay the cascade.
//
// The engine keeps no state between runs and may be called concurrently.
package cascade
