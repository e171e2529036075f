package qrauth

import "context"

// SetRemoteEnabled writes the admin-panel kill switch, creating the config
// singleton on first use. Disabling blocks new QR authorizations only;
// records already authenticated keep running until expiry or termination.
func (e *Engine) SetRemoteEnabled(ctx context.Context, enabled bool) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return e.flows.SetRemoteEnabled(ctx, enabled)
}
