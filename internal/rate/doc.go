// Package rate provides the scan debouncer that collapses duplicate QR reads.
//
// # Window semantics
//
// A scanner delivers the same physical code many times per second. The
// [Debouncer] admits exactly one scan at a time: Acquire marks a scan
// in-flight, Settle releases it and opens a settle window during which
// further Acquire calls are rejected. The window prevents a second
// authorization write from a single physical scan event.
//
// # What this package must NOT do
//
//   - Persist state outside the process (debouncing is device-local).
//   - Implement authorization policy — it only gates re-entrancy.
package rate
