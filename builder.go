package qrauth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/thecodeprism/qrauth/identity"
	"github.com/thecodeprism/qrauth/internal"
	"github.com/thecodeprism/qrauth/internal/audit"
	"github.com/thecodeprism/qrauth/internal/flows"
	"github.com/thecodeprism/qrauth/internal/metrics"
	"github.com/thecodeprism/qrauth/internal/rate"
	"github.com/thecodeprism/qrauth/realtime"
	"github.com/thecodeprism/qrauth/record"
)

// Builder assembles an Engine. Single use: Build fails on reuse.
type Builder struct {
	config Config

	redis     redis.UniversalClient
	presence  identity.PresenceVerifier
	creds     identity.CredentialVerifier
	onPrompt  ElevationHandler
	auditSink AuditSink

	built bool
}

// New returns a Builder loaded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing the record store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPresenceVerifier sets the device presence capability. Nil means every
// gate passes, matching a device without biometric hardware.
func (b *Builder) WithPresenceVerifier(v identity.PresenceVerifier) *Builder {
	b.presence = v
	return b
}

// WithCredentialVerifier sets the external credential check used by Login.
func (b *Builder) WithCredentialVerifier(v identity.CredentialVerifier) *Builder {
	b.creds = v
	return b
}

// WithElevationHandler sets the callback fired when a shared link starts
// awaiting authorization.
func (b *Builder) WithElevationHandler(h ElevationHandler) *Builder {
	b.onPrompt = h
	return b
}

// WithAuditSink sets the audit event destination.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process metrics system.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the scan latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires all subsystems, and returns the
// engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.creds == nil {
		return nil, errors.New("credential verifier required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   b.config,
		store:    record.NewStore(b.redis, b.config.Store.RedisPrefix),
		gate:     identity.NewGate(b.presence),
		creds:    b.creds,
		debounce: rate.NewDebouncer(b.config.Scan.SettleWindow),
	}

	if b.config.Metrics.Enabled {
		engine.metrics = metrics.New(metrics.Config{
			Enabled:       true,
			EnableLatency: b.config.Metrics.EnableLatencyHistograms,
		})
	}

	sink := b.auditSink
	if sink == nil {
		sink = audit.NoOpSink{}
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    b.config.Audit.Enabled,
		BufferSize: b.config.Audit.BufferSize,
		DropIfFull: b.config.Audit.DropIfFull,
	}, sink)

	onPrompt := b.onPrompt
	engine.watcher = realtime.NewWatcher(engine.store, func(link record.SharedLink) {
		engine.metricInc(MetricElevationPrompted)
		if onPrompt != nil {
			onPrompt(link)
		}
	})

	engine.flows = flows.New(engine.flowDeps())
	return engine, nil
}

func (e *Engine) flowDeps() flows.Deps {
	confirmPresence := func(ctx context.Context, prompt string) error {
		return e.gate.Confirm(ctx, prompt)
	}
	emitAudit := e.emitAudit
	metricInc := func(id int) { e.metricInc(MetricID(id)) }
	observe := func(id int, d time.Duration) { e.observeLatency(MetricID(id), d) }

	return flows.Deps{
		Scan: flows.ScanDeps{
			SessionLifetime: e.config.Scan.SessionLifetime,
			PresencePrompt:  e.config.Scan.PresencePrompt,
			AcquireDebounce: e.debounce.Acquire,
			SettleDebounce:  e.debounce.Settle,
			RemoteEnabled:   e.RemoteEnabled,
			ConfirmPresence: confirmPresence,
			Principal:       e.currentPrincipal,
			Authenticate: func(ctx context.Context, id, principal string, lifetime time.Duration) error {
				return e.store.SetAuthenticated(ctx, record.KindSession, id, principal, lifetime)
			},
			MetricInc:      metricInc,
			ObserveLatency: observe,
			EmitAudit:      emitAudit,
			Metrics: flows.ScanMetrics{
				Authenticated:    int(MetricScanAuthenticated),
				RejectedDisabled: int(MetricScanRejectedDisabled),
				InvalidPayload:   int(MetricScanInvalidPayload),
				Ignored:          int(MetricScanIgnored),
				Debounced:        int(MetricScanDebounced),
				PresenceDenied:   int(MetricPresenceDenied),
				Latency:          int(MetricScanLatency),
			},
			Events: flows.ScanEvents{
				Authenticated: auditEventScanAuthenticated,
				Rejected:      auditEventScanRejected,
				Ignored:       auditEventScanIgnored,
			},
			Errors: flows.ScanErrors{
				EngineNotReady:   ErrEngineNotReady,
				NotAuthenticated: ErrNotAuthenticated,
				RemoteDisabled:   ErrRemoteDisabled,
				PayloadInvalid:   ErrScanPayloadInvalid,
			},
		},
		Elevation: flows.ElevationDeps{
			PresencePrompt:  e.config.Scan.PresencePrompt,
			ConfirmPresence: confirmPresence,
			Principal:       e.currentPrincipal,
			GetLink:         e.store.GetLink,
			Authenticate: func(ctx context.Context, id, principal string, lifetime time.Duration) error {
				return e.store.SetAuthenticated(ctx, record.KindLink, id, principal, lifetime)
			},
			Deny:      e.store.DenyElevation,
			MetricInc: metricInc,
			EmitAudit: emitAudit,
			Metrics: flows.ElevationMetrics{
				Approved:       int(MetricElevationApproved),
				Denied:         int(MetricElevationDenied),
				PresenceDenied: int(MetricPresenceDenied),
			},
			Events: flows.ElevationEvents{
				Approved: auditEventElevationApproved,
				Denied:   auditEventElevationDenied,
				Failed:   auditEventElevationFailed,
			},
			Errors: flows.ElevationErrors{
				EngineNotReady:   ErrEngineNotReady,
				NotAuthenticated: ErrNotAuthenticated,
			},
		},
		Link: flows.LinkDeps{
			BaseURL:   e.config.Links.BaseURL,
			Route:     e.config.Links.Route,
			IDLength:  e.config.Links.IDLength,
			NewID:     internal.NewLinkID,
			Create:    e.store.CreateLink,
			Principal: e.currentPrincipal,
			MetricInc: metricInc,
			EmitAudit: emitAudit,
			Metrics: flows.LinkMetrics{
				Issued: int(MetricLinkIssued),
			},
			Events: flows.LinkEvents{
				Issued: auditEventLinkIssued,
				Failed: auditEventLinkIssueFailed,
			},
			Errors: flows.LinkErrors{
				EngineNotReady:   ErrEngineNotReady,
				NotAuthenticated: ErrNotAuthenticated,
				InvalidRequest:   ErrInvalidLinkRequest,
				AlreadyExists:    record.ErrAlreadyExists,
			},
		},
		Lifecycle: flows.LifecycleDeps{
			Quantum:   e.config.Lifecycle.AdjustQuantum,
			Adjust:    e.store.AdjustExpiry,
			Terminate: e.store.Terminate,
			MetricInc: metricInc,
			EmitAudit: emitAudit,
			Metrics: flows.LifecycleMetrics{
				Adjusted:   int(MetricExpiryAdjusted),
				Terminated: int(MetricRecordTerminated),
			},
			Events: flows.LifecycleEvents{
				Adjusted:   auditEventExpiryAdjusted,
				Terminated: auditEventRecordTerminated,
				Failed:     auditEventLifecycleFailed,
			},
			Errors: flows.LifecycleErrors{
				EngineNotReady: ErrEngineNotReady,
				NotFound:       record.ErrNotFound,
			},
		},
		Settings: flows.SettingsDeps{
			Set:       e.store.SetRemoteEnabled,
			MetricInc: metricInc,
			EmitAudit: emitAudit,
			Metrics: flows.SettingsMetrics{
				Toggled: int(MetricRemoteToggled),
			},
			Events: flows.SettingsEvents{
				Toggled: auditEventRemoteToggled,
				Failed:  auditEventSettingsFailed,
			},
			Errors: flows.SettingsErrors{
				EngineNotReady: ErrEngineNotReady,
			},
		},
		Login: flows.LoginDeps{
			MinPasswordLength: e.config.Login.MinPasswordLength,
			Verify:            e.creds.Verify,
			SetPrincipal:      e.setPrincipal,
			ClearPrincipal:    e.clearPrincipal,
			StartWatcher:      e.startWatcher,
			StopWatcher:       e.stopWatcher,
			MetricInc:         metricInc,
			EmitAudit:         emitAudit,
			Metrics: flows.LoginMetrics{
				Success: int(MetricLoginSuccess),
				Failure: int(MetricLoginFailure),
			},
			Events: flows.LoginEvents{
				Success: auditEventLoginSuccess,
				Failure: auditEventLoginFailure,
				Logout:  auditEventLogout,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:   ErrEngineNotReady,
				PasswordTooShort: ErrPasswordTooShort,
				EmailRequired:    ErrEmailRequired,
			},
		},
	}
}
