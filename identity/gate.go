package identity

import (
	"context"
	"errors"
	"fmt"
)

// ErrPresenceDenied is returned when the operator fails or cancels the
// local presence check.
var ErrPresenceDenied = errors.New("presence check denied")

// ErrPresenceUnavailable wraps failures to probe or run the device
// verifier itself, as opposed to the operator refusing.
var ErrPresenceUnavailable = errors.New("presence verifier unavailable")

// PresenceVerifier is the device capability behind the gate: biometric
// hardware or a device credential prompt.
type PresenceVerifier interface {
	// Available reports whether the device can run a presence check at all.
	Available(ctx context.Context) (bool, error)
	// Confirm runs the check with the given user-facing prompt and reports
	// whether the operator passed.
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Gate applies the presence policy around a PresenceVerifier: devices with
// no verifier pass without a check, devices with one must pass it. Probe
// errors fail closed.
type Gate struct {
	verifier PresenceVerifier
}

// NewGate wraps the verifier. A nil verifier yields a gate that always
// passes, for callers that opt out of presence checks entirely.
func NewGate(v PresenceVerifier) *Gate {
	return &Gate{verifier: v}
}

// Confirm runs the gate and returns nil when the sensitive operation may
// proceed. An unavailable verifier passes; a probe error does not.
func (g *Gate) Confirm(ctx context.Context, prompt string) error {
	if g == nil || g.verifier == nil {
		return nil
	}

	available, err := g.verifier.Available(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPresenceUnavailable, err)
	}
	if !available {
		return nil
	}

	ok, err := g.verifier.Confirm(ctx, prompt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPresenceUnavailable, err)
	}
	if !ok {
		return ErrPresenceDenied
	}
	return nil
}
