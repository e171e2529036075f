package qrauth

import (
	"context"
	"sync"
	"time"

	"github.com/thecodeprism/qrauth/identity"
	"github.com/thecodeprism/qrauth/internal/audit"
	"github.com/thecodeprism/qrauth/internal/flows"
	"github.com/thecodeprism/qrauth/internal/metrics"
	"github.com/thecodeprism/qrauth/internal/rate"
	"github.com/thecodeprism/qrauth/realtime"
	"github.com/thecodeprism/qrauth/record"
)

// Engine is the authorization engine. Construct with the Builder; all
// methods are safe for concurrent use.
type Engine struct {
	config   Config
	store    *record.Store
	gate     *identity.Gate
	creds    identity.CredentialVerifier
	watcher  *realtime.Watcher
	debounce *rate.Debouncer
	audit    *audit.Dispatcher
	metrics  *metrics.Metrics
	flows    flows.Service

	mu        sync.RWMutex
	principal *identity.Principal
	watching  bool
}

// Close tears down the live subscriptions and drains the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.stopWatcher()
	e.clearPrincipal()
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters and
// histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeLatency(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

// Principal returns the logged-in operator, if any.
func (e *Engine) Principal() (Principal, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.principal == nil {
		return Principal{}, false
	}
	return *e.principal, true
}

// currentPrincipal returns the identity stamped into store writes and audit
// events: the operator's email.
func (e *Engine) currentPrincipal() (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.principal == nil {
		return "", false
	}
	return e.principal.Email, true
}

func (e *Engine) setPrincipal(p identity.Principal) {
	e.mu.Lock()
	e.principal = &p
	e.mu.Unlock()
}

func (e *Engine) clearPrincipal() {
	e.mu.Lock()
	e.principal = nil
	e.mu.Unlock()
}

func (e *Engine) startWatcher(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.watching {
		return nil
	}
	if err := e.watcher.Start(ctx); err != nil {
		return err
	}
	e.watching = true
	return nil
}

func (e *Engine) stopWatcher() {
	e.mu.Lock()
	watching := e.watching
	e.watching = false
	e.mu.Unlock()
	if watching {
		e.watcher.Close()
	}
	if e.debounce != nil {
		e.debounce.Reset()
	}
}

func (e *Engine) isWatching() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.watching
}

// RemoteEnabled returns the locally observed admin-panel kill switch. False
// unless Login has brought the subscriptions up.
func (e *Engine) RemoteEnabled() bool {
	if e == nil || e.watcher == nil || !e.isWatching() {
		return false
	}
	return e.watcher.RemoteEnabled()
}

// ActiveView returns the current merged snapshot of active sessions and
// links, sorted by expiry. Empty unless Login has brought the subscriptions
// up.
func (e *Engine) ActiveView() []realtime.Entry {
	if e == nil || e.watcher == nil || !e.isWatching() {
		return nil
	}
	return e.watcher.View()
}

// ViewUpdates subscribes to merged-view recomputations. The cancel func
// must be called when done.
func (e *Engine) ViewUpdates() (<-chan []realtime.Entry, func()) {
	return e.watcher.ViewUpdates()
}

// FindActive queries the store directly for records satisfying the live
// predicate, bypassing the watcher's snapshot.
func (e *Engine) FindActive(ctx context.Context, kind record.Kind) ([]realtime.Entry, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	switch kind {
	case record.KindSession:
		sessions, err := e.store.FindActiveSessions(ctx)
		if err != nil {
			return nil, err
		}
		return realtime.Merge(sessions, nil), nil
	default:
		links, err := e.store.FindActiveLinks(ctx)
		if err != nil {
			return nil, err
		}
		return realtime.Merge(nil, links), nil
	}
}
