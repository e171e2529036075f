// Package internal contains helper utilities that are intentionally private
// to qrauth, currently secure random identifier generation.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - flows — pure-function flow orchestrators for every Engine operation
//   - metrics — lock-free counters and the scan latency histogram
//   - rate — the scan debouncer that collapses duplicate QR reads
//
// # What this package must NOT do
//
//   - Export types that appear in the public qrauth API.
//   - Be imported by any package outside the qrauth module.
package internal
