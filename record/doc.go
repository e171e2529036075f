// Package record provides Redis-backed persistence for the two authorization
// record kinds (Session, SharedLink) and the admin-panel config singleton.
//
// # Storage layout
//
// Each record is a single Redis hash, so field updates applied through one
// command (or one Lua script) are atomic with respect to readers: no reader
// can observe a half-written transition. Per-status index sets track record
// ids for the live queries; every mutation moves the id between index sets
// inside the same script that writes the hash.
//
// Writes publish a change notification on a per-kind pub/sub channel. The
// realtime package subscribes to these channels and re-queries the store, so
// the store is the single source of truth and notifications are purely a
// wake-up signal.
//
// # Architecture boundaries
//
// This package owns persistence, atomicity, and change publication. It does
// NOT gate transitions on identity checks or debouncing — those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import qrauth or realtime (no upward imports).
//   - Delete expired records: expiration is a read-time predicate, and
//     removal only happens through Terminate.
package record
