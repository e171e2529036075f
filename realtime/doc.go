// Package realtime maintains live, merged views over the record store.
//
// The store's pub/sub channels carry wake-up signals, not state: on every
// change event the Watcher re-queries the affected partition and recomputes
// its outputs from snapshots. The recomputation is a pure function of the
// partition snapshots, so events may arrive in any order, be duplicated, or
// be dropped without corrupting the view; a dropped event only delays the
// next refresh.
//
// # Architecture boundaries
//
// This package sits above record and knows nothing about authorization
// decisions. It observes; it never writes.
//
// # What this package must NOT do
//
//   - Mutate records. All writes go through record.Store from the engine.
//   - Apply policy. Whether a prompt is approved or denied is the engine's
//     business; the Watcher only reports that a link started awaiting.
package realtime
