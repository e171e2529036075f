package flows

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/thecodeprism/qrauth/identity"
	"github.com/thecodeprism/qrauth/record"
)

// ActionAuthenticateAdmin is the only scan action the engine recognizes.
const ActionAuthenticateAdmin = "authenticate_admin"

// ScanOutcome classifies how a scan was resolved.
type ScanOutcome int

const (
	// ScanAuthenticated means the session transition was written.
	ScanAuthenticated ScanOutcome = iota
	// ScanIgnored means the payload was well-formed but carried an
	// unrecognized action. Not an error.
	ScanIgnored
	// ScanDebounced means a scan was already in flight or inside the settle
	// window. Not an error.
	ScanDebounced
)

// ScanResult is the flow-local scan response shape.
type ScanResult struct {
	Outcome ScanOutcome
	QRID    string
}

type scanPayload struct {
	QRID   string `json:"qrId"`
	Action string `json:"action"`
}

// ScanMetrics carries metric IDs needed by the scan flow.
type ScanMetrics struct {
	Authenticated    int
	RejectedDisabled int
	InvalidPayload   int
	Ignored          int
	Debounced        int
	PresenceDenied   int
	Latency          int
}

// ScanEvents carries audit event names used by the scan flow.
type ScanEvents struct {
	Authenticated string
	Rejected      string
	Ignored       string
}

// ScanErrors carries host-level sentinel errors used by the scan flow.
type ScanErrors struct {
	EngineNotReady   error
	NotAuthenticated error
	RemoteDisabled   error
	PayloadInvalid   error
}

// ScanDeps captures scan flow dependencies.
type ScanDeps struct {
	SessionLifetime time.Duration
	PresencePrompt  string

	Now             func() time.Time
	AcquireDebounce func() bool
	SettleDebounce  func()
	RemoteEnabled   func() bool
	ConfirmPresence func(context.Context, string) error
	Principal       func() (string, bool)
	Authenticate    func(ctx context.Context, sessionID, principal string, lifetime time.Duration) error

	MetricInc      func(int)
	ObserveLatency func(int, time.Duration)
	EmitAudit      func(ctx context.Context, event string, success bool, kind, recordID string, err error, meta func() map[string]string)

	Metrics ScanMetrics
	Events  ScanEvents
	Errors  ScanErrors
}

// RunScan executes the QR self-authentication flow: debounce, payload
// validation, remote-flag precondition, presence gate, then the single
// atomic authenticated-transition write. The remote flag is checked from
// the locally observed value before any store call.
func RunScan(ctx context.Context, payload []byte, deps ScanDeps) (*ScanResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(int, time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.AcquireDebounce == nil ||
		deps.SettleDebounce == nil ||
		deps.RemoteEnabled == nil ||
		deps.ConfirmPresence == nil ||
		deps.Principal == nil ||
		deps.Authenticate == nil {
		return nil, deps.Errors.EngineNotReady
	}

	start := deps.Now()

	if !deps.AcquireDebounce() {
		deps.MetricInc(deps.Metrics.Debounced)
		return &ScanResult{Outcome: ScanDebounced}, nil
	}
	defer deps.SettleDebounce()

	var p scanPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.QRID == "" {
		deps.MetricInc(deps.Metrics.InvalidPayload)
		deps.EmitAudit(ctx, deps.Events.Rejected, false, string(record.KindSession), p.QRID, deps.Errors.PayloadInvalid, nil)
		return nil, deps.Errors.PayloadInvalid
	}
	if p.Action != ActionAuthenticateAdmin {
		deps.MetricInc(deps.Metrics.Ignored)
		deps.EmitAudit(ctx, deps.Events.Ignored, true, string(record.KindSession), p.QRID, nil, func() map[string]string {
			return map[string]string{"action": p.Action}
		})
		return &ScanResult{Outcome: ScanIgnored, QRID: p.QRID}, nil
	}

	principal, ok := deps.Principal()
	if !ok {
		return nil, deps.Errors.NotAuthenticated
	}

	if !deps.RemoteEnabled() {
		deps.MetricInc(deps.Metrics.RejectedDisabled)
		deps.EmitAudit(ctx, deps.Events.Rejected, false, string(record.KindSession), p.QRID, deps.Errors.RemoteDisabled, nil)
		return nil, deps.Errors.RemoteDisabled
	}

	if err := deps.ConfirmPresence(ctx, deps.PresencePrompt); err != nil {
		if errors.Is(err, identity.ErrPresenceDenied) {
			deps.MetricInc(deps.Metrics.PresenceDenied)
		}
		deps.EmitAudit(ctx, deps.Events.Rejected, false, string(record.KindSession), p.QRID, err, nil)
		return nil, err
	}

	if err := deps.Authenticate(ctx, p.QRID, principal, deps.SessionLifetime); err != nil {
		deps.EmitAudit(ctx, deps.Events.Rejected, false, string(record.KindSession), p.QRID, err, nil)
		return nil, err
	}

	deps.MetricInc(deps.Metrics.Authenticated)
	deps.ObserveLatency(deps.Metrics.Latency, deps.Now().Sub(start))
	deps.EmitAudit(ctx, deps.Events.Authenticated, true, string(record.KindSession), p.QRID, nil, func() map[string]string {
		return map[string]string{"principal": principal}
	})
	return &ScanResult{Outcome: ScanAuthenticated, QRID: p.QRID}, nil
}
