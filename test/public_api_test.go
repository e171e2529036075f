// Package test exercises the module through its exported surface only,
// the way an embedding application sees it.
package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/thecodeprism/qrauth"
	"github.com/thecodeprism/qrauth/record"
)

type allowAllVerifier struct{}

func (allowAllVerifier) Verify(ctx context.Context, email, password string) (qrauth.Principal, error) {
	return qrauth.Principal{UserID: "u-1", Email: email}, nil
}

func newPublicEngine(t *testing.T) (*qrauth.Engine, *record.Store, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	engine, err := qrauth.New().
		WithRedis(rdb).
		WithCredentialVerifier(allowAllVerifier{}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	store := record.NewStore(rdb, "qa")
	return engine, store, func() {
		engine.Close()
		rdb.Close()
		mr.Close()
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := qrauth.DefaultConfig()
	if cfg.Scan.SessionLifetime != time.Hour {
		t.Fatalf("expected 1h session lifetime, got %v", cfg.Scan.SessionLifetime)
	}
	if cfg.Scan.SettleWindow != 3*time.Second {
		t.Fatalf("expected 3s settle window, got %v", cfg.Scan.SettleWindow)
	}
	if cfg.Lifecycle.AdjustQuantum != 15*time.Minute {
		t.Fatalf("expected 15m adjust quantum, got %v", cfg.Lifecycle.AdjustQuantum)
	}
	if cfg.Links.IDLength != 9 {
		t.Fatalf("expected 9-char link ids, got %d", cfg.Links.IDLength)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate, got %v", err)
	}
}

func TestFullLifecycleThroughPublicAPI(t *testing.T) {
	engine, store, done := newPublicEngine(t)
	defer done()
	ctx := context.Background()

	if err := store.SetRemoteEnabled(ctx, true); err != nil {
		t.Fatalf("enable remote: %v", err)
	}
	if err := store.CreateSession(ctx, "qr-pub"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := engine.Login(ctx, "op@example.com", "long-enough"); err != nil {
		t.Fatalf("login: %v", err)
	}

	res, err := engine.HandleScan(ctx, []byte(`{"qrId":"qr-pub","action":"authenticate_admin"}`))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Outcome != qrauth.ScanAuthenticated {
		t.Fatalf("outcome = %v", res.Outcome)
	}

	issued, err := engine.IssueLink(ctx, qrauth.IssueLinkRequest{
		UserType:   record.UserGuest,
		AccessType: record.AccessViewOnly,
		Duration:   record.Duration15m,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := engine.AdjustExpiry(ctx, record.KindSession, "qr-pub", qrauth.Extend); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if err := engine.Terminate(ctx, record.KindLink, issued.Link.ID); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if err := engine.Terminate(ctx, record.KindSession, "qr-pub"); err != nil {
		t.Fatalf("terminate session: %v", err)
	}
	engine.Logout(ctx)
}

func TestSentinelErrorsAreDistinguishable(t *testing.T) {
	engine, _, done := newPublicEngine(t)
	defer done()
	ctx := context.Background()

	if _, err := engine.Login(ctx, "op@example.com", "short"); !errors.Is(err, qrauth.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	if _, err := engine.Login(ctx, "op@example.com", "long-enough"); err != nil {
		t.Fatalf("login: %v", err)
	}
	// Kill switch never enabled: scans must reject without a store write.
	_, err := engine.HandleScan(ctx, []byte(`{"qrId":"x","action":"authenticate_admin"}`))
	if !errors.Is(err, qrauth.ErrRemoteDisabled) {
		t.Fatalf("expected ErrRemoteDisabled, got %v", err)
	}

	_, err = engine.IssueLink(ctx, qrauth.IssueLinkRequest{})
	if !errors.Is(err, qrauth.ErrInvalidLinkRequest) {
		t.Fatalf("expected ErrInvalidLinkRequest, got %v", err)
	}
}
