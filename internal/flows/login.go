package flows

import (
	"context"

	"github.com/thecodeprism/qrauth/identity"
)

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	Success int
	Failure int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	Success string
	Failure string
	Logout  string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady   error
	PasswordTooShort error
	EmailRequired    error
}

// LoginDeps captures login/logout flow dependencies.
type LoginDeps struct {
	MinPasswordLength int

	Verify         func(context.Context, string, string) (identity.Principal, error)
	SetPrincipal   func(identity.Principal)
	ClearPrincipal func()
	StartWatcher   func(context.Context) error
	StopWatcher    func()

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, kind, recordID string, err error, meta func() map[string]string)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin validates the request shape locally, verifies credentials at the
// external provider, then brings up the live subscriptions. Validation
// failures never reach the provider.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (identity.Principal, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Verify == nil || deps.SetPrincipal == nil || deps.StartWatcher == nil {
		return identity.Principal{}, deps.Errors.EngineNotReady
	}

	if email == "" {
		return identity.Principal{}, deps.Errors.EmailRequired
	}
	if len(password) < deps.MinPasswordLength {
		return identity.Principal{}, deps.Errors.PasswordTooShort
	}

	principal, err := deps.Verify(ctx, email, password)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", "", err, func() map[string]string {
			return map[string]string{"email": email}
		})
		return identity.Principal{}, err
	}

	deps.SetPrincipal(principal)
	if err := deps.StartWatcher(ctx); err != nil {
		if deps.ClearPrincipal != nil {
			deps.ClearPrincipal()
		}
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", "", err, nil)
		return identity.Principal{}, err
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, "", "", nil, func() map[string]string {
		return map[string]string{"email": principal.Email}
	})
	return principal, nil
}

// RunLogout tears down the subscriptions and forgets the principal. Always
// succeeds; logging out twice is a no-op.
func RunLogout(ctx context.Context, deps LoginDeps) {
	if deps.StopWatcher != nil {
		deps.StopWatcher()
	}
	if deps.ClearPrincipal != nil {
		deps.ClearPrincipal()
	}
	if deps.EmitAudit != nil {
		deps.EmitAudit(ctx, deps.Events.Logout, true, "", "", nil, nil)
	}
}
