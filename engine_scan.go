package qrauth

import (
	"context"

	"github.com/thecodeprism/qrauth/internal/flows"
)

// HandleScan resolves a decoded QR payload. Payloads carrying the
// authenticate-admin action transition the named session to authenticated
// for the configured lifetime; the kill switch and the presence gate are
// checked first, and neither failure touches the store.
//
// Rapid repeat scans are absorbed: while a scan is being handled, and for
// the settle window after it, further scans return ScanDebounced.
func (e *Engine) HandleScan(ctx context.Context, payload []byte) (ScanResult, error) {
	if e == nil || !e.flows.Initialized() {
		return ScanResult{}, ErrEngineNotReady
	}

	res, err := e.flows.Scan(ctx, payload)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{
		Outcome: scanOutcome(res.Outcome),
		QRID:    res.QRID,
	}, nil
}

func scanOutcome(o flows.ScanOutcome) ScanOutcome {
	switch o {
	case flows.ScanAuthenticated:
		return ScanAuthenticated
	case flows.ScanDebounced:
		return ScanDebounced
	default:
		return ScanIgnored
	}
}
