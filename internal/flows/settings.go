package flows

import (
	"context"

	"github.com/thecodeprism/qrauth/record"
)

// SettingsMetrics carries metric IDs needed by the settings flow.
type SettingsMetrics struct {
	Toggled int
}

// SettingsEvents carries audit event names used by the settings flow.
type SettingsEvents struct {
	Toggled string
	Failed  string
}

// SettingsErrors carries host-level sentinel errors used by the settings flow.
type SettingsErrors struct {
	EngineNotReady error
}

// SettingsDeps captures settings flow dependencies.
type SettingsDeps struct {
	Set func(context.Context, bool) error

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, kind, recordID string, err error, meta func() map[string]string)

	Metrics SettingsMetrics
	Events  SettingsEvents
	Errors  SettingsErrors
}

// RunSetRemoteEnabled flips the admin-panel kill switch. Toggling off never
// touches existing records; active authorizations keep running until expiry.
func RunSetRemoteEnabled(ctx context.Context, enabled bool, deps SettingsDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Set == nil {
		return deps.Errors.EngineNotReady
	}

	if err := deps.Set(ctx, enabled); err != nil {
		deps.EmitAudit(ctx, deps.Events.Failed, false, string(record.KindConfig), "", err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.Toggled)
	deps.EmitAudit(ctx, deps.Events.Toggled, true, string(record.KindConfig), "", nil, func() map[string]string {
		if enabled {
			return map[string]string{"remote_enabled": "true"}
		}
		return map[string]string{"remote_enabled": "false"}
	})
	return nil
}
