// Package snapshot publishes (record snapshot, vector index) generations.
//
// A Cache holds at most one published Generation behind an atomic pointer.
// Queries load the pointer once and use that generation for their whole
// lifetime, so a concurrent refresh never exposes a new snapshot paired with
// a stale index. Generations expire after a TTL or on Invalidate, and are
// rebuilt by the next reader.
package snapshot
