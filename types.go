package qrauth

import (
	"io"

	"github.com/thecodeprism/qrauth/identity"
	"github.com/thecodeprism/qrauth/internal/audit"
	"github.com/thecodeprism/qrauth/record"
)

// Principal identifies the logged-in operator.
type Principal = identity.Principal

// PresenceVerifier is the device capability behind the presence gate.
type PresenceVerifier = identity.PresenceVerifier

// CredentialVerifier checks operator credentials at the external provider.
type CredentialVerifier = identity.CredentialVerifier

// AuditEvent is the event model delivered to audit sinks.
type AuditEvent = audit.Event

// AuditSink receives emitted audit events. Emit must not block; slow sinks
// should buffer internally.
type AuditSink = audit.Sink

// NewChannelAuditSink returns a sink buffering events on a channel, for
// tests and in-process consumers.
func NewChannelAuditSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONAuditSink returns a sink writing one JSON line per event to w.
func NewJSONAuditSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// ElevationHandler is invoked when a shared link starts awaiting
// authorization. It runs on the watcher goroutine and must hand the prompt
// off rather than block.
type ElevationHandler func(link record.SharedLink)

// ScanOutcome classifies how HandleScan resolved a payload.
type ScanOutcome int

const (
	// ScanAuthenticated means the session transition was written.
	ScanAuthenticated ScanOutcome = iota
	// ScanIgnored means the payload carried an unrecognized action.
	ScanIgnored
	// ScanDebounced means the scan fell inside the settle window.
	ScanDebounced
)

// ScanResult is returned by [Engine.HandleScan].
type ScanResult struct {
	Outcome ScanOutcome
	QRID    string
}

// IssueLinkRequest carries the three issuance parameters.
type IssueLinkRequest struct {
	UserType   record.UserType
	AccessType record.AccessType
	Duration   record.Duration
}

// IssuedLink is returned by [Engine.IssueLink].
type IssuedLink struct {
	Link record.SharedLink
	URL  string
}

// AdjustExpiry directions.
const (
	Extend = 1
	Reduce = -1
)
