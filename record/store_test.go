package record

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreTest(t *testing.T) (*Store, *redis.Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "qa")
	return store, rdb, func() {
		rdb.Close()
		mr.Close()
	}
}

func testLink(id string) *SharedLink {
	return &SharedLink{
		ID:         id,
		UserType:   UserAuditor,
		AccessType: AccessViewOnly,
		Duration:   Duration1h,
		CreatedAt:  time.Now(),
		CreatedBy:  "admin@example.com",
	}
}

func TestCreateAndGetSession(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.CreateSession(ctx, "qr-1"); err != nil {
		t.Fatalf("create session: %v", err)
	}

	sess, err := store.GetSession(ctx, "qr-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.Status != SessionPending {
		t.Fatalf("expected pending, got %q", sess.Status)
	}
	if !sess.AuthenticatedAt.IsZero() || !sess.ExpiresAt.IsZero() {
		t.Fatalf("new session must have no timestamps: %+v", sess)
	}

	if err := store.CreateSession(ctx, "qr-1"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists on duplicate create, got %v", err)
	}
}

func TestGetMissingRecord(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if _, err := store.GetSession(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetLink(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetAuthenticatedWritesAllFields(t *testing.T) {
	store, rdb, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return base }

	if err := store.CreateSession(ctx, "qr-2"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SetAuthenticated(ctx, KindSession, "qr-2", "admin@example.com", time.Hour); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	sess, err := store.GetSession(ctx, "qr-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Status != SessionAuthenticated {
		t.Fatalf("expected authenticated, got %q", sess.Status)
	}
	if !sess.AuthenticatedAt.Equal(base) {
		t.Fatalf("authenticatedAt = %v, want %v", sess.AuthenticatedAt, base)
	}
	if !sess.ExpiresAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("expiresAt = %v, want %v", sess.ExpiresAt, base.Add(time.Hour))
	}
	if sess.AuthenticatedBy != "admin@example.com" {
		t.Fatalf("authenticatedBy = %q", sess.AuthenticatedBy)
	}

	// Index moved from pending to authenticated.
	pending, _ := rdb.SMembers(ctx, store.sessionIdxKey(SessionPending)).Result()
	if len(pending) != 0 {
		t.Fatalf("pending index not cleared: %v", pending)
	}
	auth, _ := rdb.SMembers(ctx, store.sessionIdxKey(SessionAuthenticated)).Result()
	if len(auth) != 1 || auth[0] != "qr-2" {
		t.Fatalf("authenticated index = %v", auth)
	}
}

func TestSetAuthenticatedMissingRecord(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()

	err := store.SetAuthenticated(context.Background(), KindSession, "ghost", "a@b", time.Hour)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindActiveExcludesExpired(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return base }

	for _, id := range []string{"live-a", "live-b", "dead"} {
		if err := store.CreateSession(ctx, id); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := store.SetAuthenticated(ctx, KindSession, "live-b", "a@b", 2*time.Hour); err != nil {
		t.Fatalf("auth live-b: %v", err)
	}
	if err := store.SetAuthenticated(ctx, KindSession, "live-a", "a@b", time.Hour); err != nil {
		t.Fatalf("auth live-a: %v", err)
	}
	if err := store.SetAuthenticated(ctx, KindSession, "dead", "a@b", time.Minute); err != nil {
		t.Fatalf("auth dead: %v", err)
	}

	// Advance past dead's expiry.
	store.now = func() time.Time { return base.Add(30 * time.Minute) }

	active, err := store.FindActiveSessions(ctx)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active sessions, got %d", len(active))
	}
	// Sorted by expiry ascending.
	if active[0].ID != "live-a" || active[1].ID != "live-b" {
		t.Fatalf("unexpected order: %s, %s", active[0].ID, active[1].ID)
	}
}

func TestAdjustExpirySumsDeltas(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return base }

	if err := store.CreateLink(ctx, testLink("lnk-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SetAuthenticated(ctx, KindLink, "lnk-1", "a@b", time.Hour); err != nil {
		t.Fatalf("auth: %v", err)
	}

	deltas := []time.Duration{15 * time.Minute, 15 * time.Minute, -15 * time.Minute}
	for _, d := range deltas {
		if err := store.AdjustExpiry(ctx, KindLink, "lnk-1", d); err != nil {
			t.Fatalf("adjust %v: %v", d, err)
		}
	}

	l, err := store.GetLink(ctx, "lnk-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := base.Add(time.Hour + 15*time.Minute)
	if !l.ExpiresAt.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", l.ExpiresAt, want)
	}
}

func TestAdjustExpiryCanGoNegative(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return base }

	if err := store.CreateLink(ctx, testLink("lnk-2")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SetAuthenticated(ctx, KindLink, "lnk-2", "a@b", 15*time.Minute); err != nil {
		t.Fatalf("auth: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.AdjustExpiry(ctx, KindLink, "lnk-2", -15*time.Minute); err != nil {
			t.Fatalf("adjust: %v", err)
		}
	}

	// Expired out of the active view, but the record still exists.
	active, err := store.FindActiveLinks(ctx)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active links, got %d", len(active))
	}
	if _, err := store.GetLink(ctx, "lnk-2"); err != nil {
		t.Fatalf("record must survive expiry: %v", err)
	}
}

func TestTerminateIdempotent(t *testing.T) {
	store, rdb, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.CreateLink(ctx, testLink("lnk-3")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Terminate(ctx, KindLink, "lnk-3"); err != nil {
		t.Fatalf("first terminate: %v", err)
	}
	if err := store.Terminate(ctx, KindLink, "lnk-3"); err != nil {
		t.Fatalf("second terminate: %v", err)
	}

	if _, err := store.GetLink(ctx, "lnk-3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after terminate, got %v", err)
	}
	for _, st := range linkStatuses {
		members, _ := rdb.SMembers(ctx, store.linkIdxKey(st)).Result()
		if len(members) != 0 {
			t.Fatalf("index %q not cleared: %v", st, members)
		}
	}
}

func TestElevationRoundTrip(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.CreateLink(ctx, testLink("lnk-4")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.RequestElevation(ctx, "lnk-4", "visitor-9"); err != nil {
		t.Fatalf("request elevation: %v", err)
	}

	awaiting, err := store.AwaitingLinks(ctx)
	if err != nil {
		t.Fatalf("awaiting: %v", err)
	}
	if len(awaiting) != 1 || awaiting[0].VisitorID != "visitor-9" {
		t.Fatalf("awaiting = %+v", awaiting)
	}

	if err := store.DenyElevation(ctx, "lnk-4"); err != nil {
		t.Fatalf("deny: %v", err)
	}
	l, err := store.GetLink(ctx, "lnk-4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if l.Status != LinkActive {
		t.Fatalf("denied link must return to active, got %q", l.Status)
	}
	if l.VisitorID != "" {
		t.Fatalf("visitor must be cleared on deny, got %q", l.VisitorID)
	}
}

func TestAdminStatusUpsert(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	// Missing singleton reads as disabled.
	cfg, err := store.AdminStatus(ctx)
	if err != nil {
		t.Fatalf("admin status: %v", err)
	}
	if cfg.RemoteEnabled {
		t.Fatal("missing config must read as disabled")
	}

	base := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return base }

	if err := store.SetRemoteEnabled(ctx, true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	cfg, err = store.AdminStatus(ctx)
	if err != nil {
		t.Fatalf("admin status: %v", err)
	}
	if !cfg.RemoteEnabled {
		t.Fatal("expected enabled")
	}
	if !cfg.UpdatedAt.Equal(base) {
		t.Fatalf("updatedAt = %v, want %v", cfg.UpdatedAt, base)
	}

	if err := store.SetRemoteEnabled(ctx, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	cfg, _ = store.AdminStatus(ctx)
	if cfg.RemoteEnabled {
		t.Fatal("expected disabled after toggle off")
	}
}

func TestSubscribeDeliversChangeEvents(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	sub := store.Subscribe(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ch := sub.Channel()

	if err := store.CreateSession(ctx, "qr-5"); err != nil {
		t.Fatalf("create: %v", err)
	}

	select {
	case msg := <-ch:
		ev, err := DecodeChange(msg.Payload)
		if err != nil {
			t.Fatalf("decode change: %v", err)
		}
		if ev.Kind != KindSession || ev.ID != "qr-5" || ev.Op != OpCreated {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change event delivered")
	}
}

type pipelineFailHook struct{ err error }

func (h pipelineFailHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h pipelineFailHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (h pipelineFailHook) ProcessPipelineHook(redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		return h.err
	}
}

func TestFindActiveSurfacesFetchFailure(t *testing.T) {
	store, rdb, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.CreateSession(ctx, "qr-1"); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := store.SetAuthenticated(ctx, KindSession, "qr-1", "admin@example.com", time.Hour); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := store.CreateLink(ctx, testLink("lnk-1")); err != nil {
		t.Fatalf("create link: %v", err)
	}
	if err := store.RequestElevation(ctx, "lnk-1", "visitor-1"); err != nil {
		t.Fatalf("request elevation: %v", err)
	}

	// The index read succeeds; the pipelined record fetch drops. That must
	// surface as an error, never as an empty view.
	rdb.AddHook(pipelineFailHook{err: errors.New("connection reset by peer")})

	if _, err := store.FindActiveSessions(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from failed session fetch, got %v", err)
	}
	if _, err := store.AwaitingLinks(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from failed link fetch, got %v", err)
	}
}
