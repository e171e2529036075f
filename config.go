package qrauth

import (
	"errors"
	"time"

	"github.com/thecodeprism/qrauth/internal"
)

// StoreConfig controls the record store key namespace.
type StoreConfig struct {
	RedisPrefix string
}

// ScanConfig controls the QR self-authentication flow.
type ScanConfig struct {
	// SettleWindow is the quiet period after a handled scan during which
	// further scans are ignored.
	SettleWindow time.Duration
	// SessionLifetime is how long a QR-authenticated session stays active.
	SessionLifetime time.Duration
	// PresencePrompt is the user-facing text shown by the presence check.
	PresencePrompt string
}

// LinkConfig controls shared-link issuance.
type LinkConfig struct {
	// BaseURL is the web application origin links are addressed under.
	BaseURL string
	// Route is the admin surface's path segment in issued URLs.
	Route string
	// IDLength is the generated link id length in base36 characters.
	IDLength int
}

// LifecycleConfig controls manual expiry adjustment.
type LifecycleConfig struct {
	// AdjustQuantum is the fixed step applied per adjust action.
	AdjustQuantum time.Duration
}

// LoginConfig controls local login validation.
type LoginConfig struct {
	MinPasswordLength int
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking when the buffer is full.
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Config is the complete engine configuration. Start from DefaultConfig and
// override; Build validates the result.
type Config struct {
	Store     StoreConfig
	Scan      ScanConfig
	Links     LinkConfig
	Lifecycle LifecycleConfig
	Login     LoginConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// DefaultConfig returns the configuration the engine ships with.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			RedisPrefix: "qa",
		},
		Scan: ScanConfig{
			SettleWindow:    3 * time.Second,
			SessionLifetime: time.Hour,
			PresencePrompt:  "Confirm admin authorization",
		},
		Links: LinkConfig{
			BaseURL:  "https://app.thecodeprism.com",
			Route:    "thecodeprism-admin",
			IDLength: internal.DefaultLinkIDLength,
		},
		Lifecycle: LifecycleConfig{
			AdjustQuantum: 15 * time.Minute,
		},
		Login: LoginConfig{
			MinPasswordLength: 6,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if c.Store.RedisPrefix == "" {
		return errors.New("store redis prefix required")
	}
	if c.Scan.SettleWindow < 0 {
		return errors.New("scan settle window must not be negative")
	}
	if c.Scan.SessionLifetime <= 0 {
		return errors.New("scan session lifetime must be positive")
	}
	if c.Links.BaseURL == "" || c.Links.Route == "" {
		return errors.New("link base URL and route required")
	}
	if c.Links.IDLength < 6 {
		return errors.New("link id length must be at least 6")
	}
	if c.Lifecycle.AdjustQuantum <= 0 {
		return errors.New("adjust quantum must be positive")
	}
	if c.Login.MinPasswordLength < 1 {
		return errors.New("min password length must be at least 1")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive when audit is enabled")
	}
	return nil
}
