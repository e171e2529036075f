package qrauth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thecodeprism/qrauth/record"
)

func TestIssueLink(t *testing.T) {
	f := newEngineTest(t, nil)
	defer f.done()
	ctx := context.Background()
	f.login(t)

	issued, err := f.engine.IssueLink(ctx, IssueLinkRequest{
		UserType:   record.UserAuditor,
		AccessType: record.AccessAnalytics,
		Duration:   record.Duration4h,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if len(issued.Link.ID) != 9 {
		t.Fatalf("expected 9-char id, got %q", issued.Link.ID)
	}
	wantURL := "https://app.thecodeprism.com/thecodeprism-admin/shared/" + issued.Link.ID
	if issued.URL != wantURL {
		t.Fatalf("URL = %q, want %q", issued.URL, wantURL)
	}
	for _, r := range issued.Link.ID {
		if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", r) {
			t.Fatalf("id contains non-base36 rune %q", r)
		}
	}

	stored, err := f.store.GetLink(ctx, issued.Link.ID)
	if err != nil {
		t.Fatalf("get link: %v", err)
	}
	if stored.Status != record.LinkActive {
		t.Fatalf("new link must be active, got %q", stored.Status)
	}
	if !stored.ExpiresAt.IsZero() {
		t.Fatalf("issuance must not set expiry, got %v", stored.ExpiresAt)
	}
	if stored.CreatedBy != "admin@example.com" {
		t.Fatalf("createdBy = %q", stored.CreatedBy)
	}
	if stored.UserType != record.UserAuditor ||
		stored.AccessType != record.AccessAnalytics ||
		stored.Duration != record.Duration4h {
		t.Fatalf("parameters not persisted: %+v", stored)
	}
}

func TestIssueLinkInvalidRequest(t *testing.T) {
	f := newEngineTest(t, nil)
	defer f.done()
	f.login(t)

	_, err := f.engine.IssueLink(context.Background(), IssueLinkRequest{
		UserType:   "Superuser",
		AccessType: record.AccessFull,
		Duration:   record.Duration1h,
	})
	if !errors.Is(err, ErrInvalidLinkRequest) {
		t.Fatalf("expected ErrInvalidLinkRequest, got %v", err)
	}
}

func TestIssueLinkRequiresLogin(t *testing.T) {
	f := newEngineTest(t, nil)
	defer f.done()

	_, err := f.engine.IssueLink(context.Background(), IssueLinkRequest{
		UserType:   record.UserGuest,
		AccessType: record.AccessViewOnly,
		Duration:   record.Duration15m,
	})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestApproveElevation(t *testing.T) {
	f := newEngineTest(t, nil)
	defer f.done()
	ctx := context.Background()
	f.login(t)

	issued, err := f.engine.IssueLink(ctx, IssueLinkRequest{
		UserType:   record.UserDeveloper,
		AccessType: record.AccessFull,
		Duration:   record.Duration1h,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := f.store.RequestElevation(ctx, issued.Link.ID, "visitor-1"); err != nil {
		t.Fatalf("request elevation: %v", err)
	}

	before := time.Now()
	if err := f.engine.ApproveElevation(ctx, issued.Link.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	l, err := f.store.GetLink(ctx, issued.Link.ID)
	if err != nil {
		t.Fatalf("get link: %v", err)
	}
	if l.Status != record.LinkAuthenticated {
		t.Fatalf("expected authenticated, got %q", l.Status)
	}
	if l.AuthenticatedBy != "admin@example.com" {
		t.Fatalf("authenticatedBy = %q", l.AuthenticatedBy)
	}
	lifetime := l.ExpiresAt.Sub(before.Truncate(time.Second))
	if lifetime < 59*time.Minute || lifetime > 61*time.Minute {
		t.Fatalf("expiry not the issued duration out: %v", lifetime)
	}
	if f.presence.confirms != 1 {
		t.Fatalf("approval must pass the gate exactly once, got %d", f.presence.confirms)
	}
}

func TestApproveElevationPresenceDenied(t *testing.T) {
	f := newEngineTest(t, nil)
	defer f.done()
	ctx := context.Background()
	f.login(t)
	f.presence.confirmed = false

	issued, err := f.engine.IssueLink(ctx, IssueLinkRequest{
		UserType:   record.UserGuest,
		AccessType: record.AccessViewOnly,
		Duration:   record.Duration15m,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := f.store.RequestElevation(ctx, issued.Link.ID, "visitor-1"); err != nil {
		t.Fatalf("request elevation: %v", err)
	}

	if err := f.engine.ApproveElevation(ctx, issued.Link.ID); !errors.Is(err, ErrPresenceDenied) {
		t.Fatalf("expected ErrPresenceDenied, got %v", err)
	}

	l, _ := f.store.GetLink(ctx, issued.Link.ID)
	if l.Status != record.LinkAwaitingAuth {
		t.Fatalf("denied gate must not write, status = %q", l.Status)
	}
}

func TestDenyElevationSkipsGate(t *testing.T) {
	f := newEngineTest(t, nil)
	defer f.done()
	ctx := context.Background()
	f.login(t)

	issued, err := f.engine.IssueLink(ctx, IssueLinkRequest{
		UserType:   record.UserGuest,
		AccessType: record.AccessViewOnly,
		Duration:   record.Duration15m,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := f.store.RequestElevation(ctx, issued.Link.ID, "visitor-1"); err != nil {
		t.Fatalf("request elevation: %v", err)
	}
	confirmsBefore := f.presence.confirms

	if err := f.engine.DenyElevation(ctx, issued.Link.ID); err != nil {
		t.Fatalf("deny: %v", err)
	}

	l, err := f.store.GetLink(ctx, issued.Link.ID)
	if err != nil {
		t.Fatalf("get link: %v", err)
	}
	if l.Status != record.LinkActive {
		t.Fatalf("denied link must return to active, got %q", l.Status)
	}
	if l.VisitorID != "" {
		t.Fatalf("visitor must be cleared, got %q", l.VisitorID)
	}
	if f.presence.confirms != confirmsBefore {
		t.Fatal("denial must not run the presence gate")
	}

	// The same link can be requested and approved afterwards.
	if err := f.store.RequestElevation(ctx, issued.Link.ID, "visitor-2"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if err := f.engine.ApproveElevation(ctx, issued.Link.ID); err != nil {
		t.Fatalf("approve after deny: %v", err)
	}
	l, _ = f.store.GetLink(ctx, issued.Link.ID)
	if l.Status != record.LinkAuthenticated {
		t.Fatalf("expected authenticated after re-approval, got %q", l.Status)
	}
}

func TestElevationHandlerFires(t *testing.T) {
	var mu sync.Mutex
	var prompted []string
	f := newEngineTest(t, func(b *Builder) {
		b.WithElevationHandler(func(link record.SharedLink) {
			mu.Lock()
			prompted = append(prompted, link.ID)
			mu.Unlock()
		})
	})
	defer f.done()
	ctx := context.Background()
	f.login(t)

	issued, err := f.engine.IssueLink(ctx, IssueLinkRequest{
		UserType:   record.UserGuest,
		AccessType: record.AccessViewOnly,
		Duration:   record.Duration15m,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := f.store.RequestElevation(ctx, issued.Link.ID, "visitor-1"); err != nil {
		t.Fatalf("request elevation: %v", err)
	}

	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(prompted) == 1 && prompted[0] == issued.Link.ID
	})

	snap := f.engine.MetricsSnapshot()
	if snap.Counters[MetricElevationPrompted] != 1 {
		t.Fatalf("expected one prompt metric, got %d",
			snap.Counters[MetricElevationPrompted])
	}
}
