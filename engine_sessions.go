package qrauth

import (
	"context"

	"github.com/thecodeprism/qrauth/record"
)

// AdjustExpiry shifts a record's expiry by one quantum (default 15 minutes)
// in the given direction (Extend or Reduce). Adjustments are unlimited and
// require no re-authorization; reducing below the current time expires the
// record from the live view while leaving it in the store. A record that
// vanished is treated as already satisfied.
func (e *Engine) AdjustExpiry(ctx context.Context, kind record.Kind, id string, direction int) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return e.flows.AdjustExpiry(ctx, kind, id, direction)
}

// Terminate hard-deletes a session or link in any state. Idempotent:
// terminating an already-gone record succeeds.
func (e *Engine) Terminate(ctx context.Context, kind record.Kind, id string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return e.flows.Terminate(ctx, kind, id)
}
