package qrauth

import "context"

// Login verifies the operator at the external credential provider and, on
// success, brings up the live subscriptions. Local validation (empty email,
// short password) fails before the provider is contacted.
func (e *Engine) Login(ctx context.Context, email, password string) (Principal, error) {
	if e == nil || !e.flows.Initialized() {
		return Principal{}, ErrEngineNotReady
	}
	return e.flows.Login(ctx, email, password)
}

// Logout tears down the subscriptions and forgets the operator. Safe to
// call when not logged in.
func (e *Engine) Logout(ctx context.Context) {
	if e == nil || !e.flows.Initialized() {
		return
	}
	e.flows.Logout(ctx)
}
