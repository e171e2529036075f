package flows

import (
	"context"
	"errors"
	"time"

	"github.com/thecodeprism/qrauth/record"
)

// LifecycleMetrics carries metric IDs needed by the lifecycle flows.
type LifecycleMetrics struct {
	Adjusted   int
	Terminated int
}

// LifecycleEvents carries audit event names used by the lifecycle flows.
type LifecycleEvents struct {
	Adjusted   string
	Terminated string
	Failed     string
}

// LifecycleErrors carries host-level sentinel errors used by the lifecycle flows.
type LifecycleErrors struct {
	EngineNotReady error
	NotFound       error
}

// LifecycleDeps captures adjust/terminate flow dependencies.
type LifecycleDeps struct {
	Quantum time.Duration

	Adjust    func(ctx context.Context, kind record.Kind, id string, delta time.Duration) error
	Terminate func(ctx context.Context, kind record.Kind, id string) error

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, kind, recordID string, err error, meta func() map[string]string)

	Metrics LifecycleMetrics
	Events  LifecycleEvents
	Errors  LifecycleErrors
}

// RunAdjustExpiry shifts a record's expiry by one quantum in the given
// direction (negative shortens). Adjustments are unlimited and ungated. A
// vanished record is treated as already satisfied, not an error.
func RunAdjustExpiry(ctx context.Context, kind record.Kind, id string, direction int, deps LifecycleDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Adjust == nil {
		return deps.Errors.EngineNotReady
	}

	delta := deps.Quantum
	if direction < 0 {
		delta = -delta
	}

	err := deps.Adjust(ctx, kind, id, delta)
	if err != nil {
		if errors.Is(err, deps.Errors.NotFound) {
			deps.EmitAudit(ctx, deps.Events.Adjusted, true, string(kind), id, nil, func() map[string]string {
				return map[string]string{"note": "record gone, treated as satisfied"}
			})
			return nil
		}
		deps.EmitAudit(ctx, deps.Events.Failed, false, string(kind), id, err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.Adjusted)
	deps.EmitAudit(ctx, deps.Events.Adjusted, true, string(kind), id, nil, func() map[string]string {
		return map[string]string{"delta": delta.String()}
	})
	return nil
}

// RunTerminate hard-deletes a record in any state. Idempotent end to end:
// the store's delete already treats an absent record as success.
func RunTerminate(ctx context.Context, kind record.Kind, id string, deps LifecycleDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Terminate == nil {
		return deps.Errors.EngineNotReady
	}

	if err := deps.Terminate(ctx, kind, id); err != nil {
		deps.EmitAudit(ctx, deps.Events.Failed, false, string(kind), id, err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.Terminated)
	deps.EmitAudit(ctx, deps.Events.Terminated, true, string(kind), id, nil, nil)
	return nil
}
