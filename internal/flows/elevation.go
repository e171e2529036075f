package flows

import (
	"context"
	"errors"
	"time"

	"github.com/thecodeprism/qrauth/identity"
	"github.com/thecodeprism/qrauth/record"
)

// ElevationMetrics carries metric IDs needed by the elevation flows.
type ElevationMetrics struct {
	Approved       int
	Denied         int
	PresenceDenied int
}

// ElevationEvents carries audit event names used by the elevation flows.
type ElevationEvents struct {
	Approved string
	Denied   string
	Failed   string
}

// ElevationErrors carries host-level sentinel errors used by the elevation flows.
type ElevationErrors struct {
	EngineNotReady   error
	NotAuthenticated error
}

// ElevationDeps captures elevation flow dependencies.
type ElevationDeps struct {
	PresencePrompt string

	ConfirmPresence func(context.Context, string) error
	Principal       func() (string, bool)
	GetLink         func(context.Context, string) (*record.SharedLink, error)
	Authenticate    func(ctx context.Context, linkID, principal string, lifetime time.Duration) error
	Deny            func(context.Context, string) error

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, kind, recordID string, err error, meta func() map[string]string)

	Metrics ElevationMetrics
	Events  ElevationEvents
	Errors  ElevationErrors
}

// RunApproveElevation grants an awaiting link: presence gate, then the
// authenticated transition with the lifetime the link was issued for.
func RunApproveElevation(ctx context.Context, linkID string, deps ElevationDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.ConfirmPresence == nil || deps.Principal == nil ||
		deps.GetLink == nil || deps.Authenticate == nil {
		return deps.Errors.EngineNotReady
	}

	principal, ok := deps.Principal()
	if !ok {
		return deps.Errors.NotAuthenticated
	}

	link, err := deps.GetLink(ctx, linkID)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.Failed, false, string(record.KindLink), linkID, err, nil)
		return err
	}

	if err := deps.ConfirmPresence(ctx, deps.PresencePrompt); err != nil {
		if errors.Is(err, identity.ErrPresenceDenied) {
			deps.MetricInc(deps.Metrics.PresenceDenied)
		}
		deps.EmitAudit(ctx, deps.Events.Failed, false, string(record.KindLink), linkID, err, nil)
		return err
	}

	if err := deps.Authenticate(ctx, linkID, principal, link.Duration.Lifetime()); err != nil {
		deps.EmitAudit(ctx, deps.Events.Failed, false, string(record.KindLink), linkID, err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.Approved)
	deps.EmitAudit(ctx, deps.Events.Approved, true, string(record.KindLink), linkID, nil, func() map[string]string {
		return map[string]string{
			"principal": principal,
			"duration":  string(link.Duration),
		}
	})
	return nil
}

// RunDenyElevation refuses an awaiting link. Denial runs without the
// presence gate: refusing access is never a sensitive escalation.
func RunDenyElevation(ctx context.Context, linkID string, deps ElevationDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Deny == nil {
		return deps.Errors.EngineNotReady
	}

	if err := deps.Deny(ctx, linkID); err != nil {
		deps.EmitAudit(ctx, deps.Events.Failed, false, string(record.KindLink), linkID, err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.Denied)
	deps.EmitAudit(ctx, deps.Events.Denied, true, string(record.KindLink), linkID, nil, nil)
	return nil
}
