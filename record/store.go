package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable wraps transport-level Redis failures.
var ErrStoreUnavailable = errors.New("record store unavailable")

// ErrNotFound is returned when a mutation targets a record that does not
// exist (vanished or never created).
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned by create operations when the id is taken.
// The store enforces id uniqueness with create-if-absent semantics.
var ErrAlreadyExists = errors.New("record already exists")

const createSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "status", ARGV[2])
redis.call("SADD", KEYS[2], ARGV[1])
return 1
`

const createLinkScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "user_type", ARGV[2],
  "access_type", ARGV[3],
  "duration", ARGV[4],
  "status", ARGV[5],
  "created_at", ARGV[6],
  "created_by", ARGV[7])
redis.call("SADD", KEYS[2], ARGV[1])
return 1
`

const authenticateScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1],
  "status", ARGV[2],
  "authenticated_at", ARGV[3],
  "expires_at", ARGV[4],
  "authenticated_by", ARGV[5])
for i = 3, #KEYS do
  redis.call("SREM", KEYS[i], ARGV[1])
end
redis.call("SADD", KEYS[2], ARGV[1])
return 1
`

const requestElevationScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "status", ARGV[2], "visitor_id", ARGV[3])
for i = 3, #KEYS do
  redis.call("SREM", KEYS[i], ARGV[1])
end
redis.call("SADD", KEYS[2], ARGV[1])
return 1
`

const denyElevationScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "status", ARGV[2])
redis.call("HDEL", KEYS[1], "visitor_id")
for i = 3, #KEYS do
  redis.call("SREM", KEYS[i], ARGV[1])
end
redis.call("SADD", KEYS[2], ARGV[1])
return 1
`

const adjustExpiryScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local v = tonumber(redis.call("HGET", KEYS[1], "expires_at") or "0")
redis.call("HSET", KEYS[1], "expires_at", v + tonumber(ARGV[1]))
return 1
`

const terminateScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("DEL", KEYS[1])
for i = 2, #KEYS do
  redis.call("SREM", KEYS[i], ARGV[1])
end
return existed
`

var (
	createSessionLua    = redis.NewScript(createSessionScript)
	createLinkLua       = redis.NewScript(createLinkScript)
	authenticateLua     = redis.NewScript(authenticateScript)
	requestElevationLua = redis.NewScript(requestElevationScript)
	denyElevationLua    = redis.NewScript(denyElevationScript)
	adjustExpiryLua     = redis.NewScript(adjustExpiryScript)
	terminateLua        = redis.NewScript(terminateScript)
)

var sessionStatuses = []SessionStatus{SessionPending, SessionAuthenticated, SessionDenied}
var linkStatuses = []LinkStatus{LinkActive, LinkAwaitingAuth, LinkAuthenticated, LinkDenied}

// Store is the typed access layer over the shared Redis document store.
// All methods are safe for concurrent multi-client use; single-record writes
// are linearized by Redis with last-write-wins semantics.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time // test hook
}

// NewStore creates a Store backed by the given Redis client. prefix sets the
// key namespace; an empty prefix defaults to "qa".
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "qa"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *Store) recordKey(kind Kind, id string) string {
	if kind == KindSession {
		return s.prefix + ":s:" + id
	}
	return s.prefix + ":l:" + id
}

func (s *Store) sessionIdxKey(status SessionStatus) string {
	return s.prefix + ":s:idx:" + string(status)
}

func (s *Store) linkIdxKey(status LinkStatus) string {
	return s.prefix + ":l:idx:" + string(status)
}

func (s *Store) configKey() string {
	return s.prefix + ":config:admin_status"
}

// SessionChannel is the pub/sub channel carrying session change events.
func (s *Store) SessionChannel() string { return s.prefix + ":ev:session" }

// LinkChannel is the pub/sub channel carrying shared-link change events.
func (s *Store) LinkChannel() string { return s.prefix + ":ev:link" }

// ConfigChannel is the pub/sub channel carrying config singleton changes.
func (s *Store) ConfigChannel() string { return s.prefix + ":ev:config" }

// linkIdxKeysFor returns the target index first, then every other link index.
func (s *Store) linkIdxKeysFor(target LinkStatus) []string {
	keys := []string{s.linkIdxKey(target)}
	for _, st := range linkStatuses {
		if st != target {
			keys = append(keys, s.linkIdxKey(st))
		}
	}
	return keys
}

func (s *Store) sessionIdxKeysFor(target SessionStatus) []string {
	keys := []string{s.sessionIdxKey(target)}
	for _, st := range sessionStatuses {
		if st != target {
			keys = append(keys, s.sessionIdxKey(st))
		}
	}
	return keys
}

// CreateSession writes a new pending session record. The web surface that
// renders the QR code is the usual caller; the store-level operation exists
// for tooling and tests. Fails with ErrAlreadyExists when the id is taken.
func (s *Store) CreateSession(ctx context.Context, id string) error {
	keys := []string{s.recordKey(KindSession, id), s.sessionIdxKey(SessionPending)}
	created, err := createSessionLua.Run(ctx, s.redis, keys, id, string(SessionPending)).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if created == 0 {
		return ErrAlreadyExists
	}
	s.publish(ctx, ChangeEvent{Kind: KindSession, ID: id, Op: OpCreated})
	return nil
}

// CreateLink writes a new shared link with status=active and no expiry.
// Create-if-absent: a taken id fails with ErrAlreadyExists and leaves no
// partial state.
func (s *Store) CreateLink(ctx context.Context, l *SharedLink) error {
	keys := []string{s.recordKey(KindLink, l.ID), s.linkIdxKey(LinkActive)}
	created, err := createLinkLua.Run(ctx, s.redis, keys,
		l.ID,
		string(l.UserType),
		string(l.AccessType),
		string(l.Duration),
		string(LinkActive),
		encodeTime(l.CreatedAt),
		l.CreatedBy,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if created == 0 {
		return ErrAlreadyExists
	}
	s.publish(ctx, ChangeEvent{Kind: KindLink, ID: l.ID, Op: OpCreated})
	return nil
}

// GetSession fetches a session record by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	fields, err := s.redis.HGetAll(ctx, s.recordKey(KindSession, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeSession(id, fields), nil
}

// GetLink fetches a shared-link record by id.
func (s *Store) GetLink(ctx context.Context, id string) (*SharedLink, error) {
	fields, err := s.redis.HGetAll(ctx, s.recordKey(KindLink, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeLink(id, fields), nil
}

// SetAuthenticated transitions the record to authenticated in a single
// atomic script: status, authenticatedAt=now, expiresAt=now+lifetime and
// authenticatedBy are written together, and the id moves to the
// authenticated index. Fails with ErrNotFound when the record is absent.
func (s *Store) SetAuthenticated(ctx context.Context, kind Kind, id, principal string, lifetime time.Duration) error {
	now := s.now()
	keys := []string{s.recordKey(kind, id)}
	var status string
	if kind == KindSession {
		keys = append(keys, s.sessionIdxKeysFor(SessionAuthenticated)...)
		status = string(SessionAuthenticated)
	} else {
		keys = append(keys, s.linkIdxKeysFor(LinkAuthenticated)...)
		status = string(LinkAuthenticated)
	}

	found, err := authenticateLua.Run(ctx, s.redis, keys,
		id,
		status,
		encodeTime(now),
		encodeTime(now.Add(lifetime)),
		principal,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if found == 0 {
		return ErrNotFound
	}
	s.publish(ctx, ChangeEvent{Kind: kind, ID: id, Op: OpAuthenticated})
	return nil
}

// RequestElevation marks a shared link awaiting authorization on behalf of a
// visitor. This is the visitor-facing web surface's write; it lives here for
// tooling and tests.
func (s *Store) RequestElevation(ctx context.Context, id, visitorID string) error {
	keys := append([]string{s.recordKey(KindLink, id)}, s.linkIdxKeysFor(LinkAwaitingAuth)...)
	found, err := requestElevationLua.Run(ctx, s.redis, keys,
		id, string(LinkAwaitingAuth), visitorID).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if found == 0 {
		return ErrNotFound
	}
	s.publish(ctx, ChangeEvent{Kind: KindLink, ID: id, Op: OpAwaiting})
	return nil
}

// DenyElevation returns an awaiting link to active and clears its visitor.
// Denial never persists a terminal "denied" status.
func (s *Store) DenyElevation(ctx context.Context, id string) error {
	keys := append([]string{s.recordKey(KindLink, id)}, s.linkIdxKeysFor(LinkActive)...)
	found, err := denyElevationLua.Run(ctx, s.redis, keys, id, string(LinkActive)).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if found == 0 {
		return ErrNotFound
	}
	s.publish(ctx, ChangeEvent{Kind: KindLink, ID: id, Op: OpDenied})
	return nil
}

// AdjustExpiry shifts the record's expiry by delta (either sign) with an
// atomic read-modify-write. The result is not clamped: remaining time may go
// negative, which readers treat as already expired. Fails with ErrNotFound
// when the record is absent.
func (s *Store) AdjustExpiry(ctx context.Context, kind Kind, id string, delta time.Duration) error {
	deltaSec := int64(delta / time.Second)
	found, err := adjustExpiryLua.Run(ctx, s.redis,
		[]string{s.recordKey(kind, id)}, deltaSec).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if found == 0 {
		return ErrNotFound
	}
	s.publish(ctx, ChangeEvent{Kind: kind, ID: id, Op: OpAdjusted})
	return nil
}

// Terminate hard-deletes the record and removes it from every index.
// Idempotent: terminating an absent record is not an error.
func (s *Store) Terminate(ctx context.Context, kind Kind, id string) error {
	keys := []string{s.recordKey(kind, id)}
	if kind == KindSession {
		for _, st := range sessionStatuses {
			keys = append(keys, s.sessionIdxKey(st))
		}
	} else {
		for _, st := range linkStatuses {
			keys = append(keys, s.linkIdxKey(st))
		}
	}

	existed, err := terminateLua.Run(ctx, s.redis, keys, id).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if existed == 1 {
		s.publish(ctx, ChangeEvent{Kind: kind, ID: id, Op: OpTerminated})
	}
	return nil
}

// FindActiveSessions returns all sessions satisfying the live predicate
// (status==authenticated, not expired) as of query time, sorted by expiry
// ascending with id as the stable tiebreak.
func (s *Store) FindActiveSessions(ctx context.Context) ([]Session, error) {
	ids, err := s.redis.SMembers(ctx, s.sessionIdxKey(SessionAuthenticated)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sessions, err := s.fetchSessions(ctx, ids)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.ActiveAt(now) {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// FindActiveLinks returns all shared links satisfying the live predicate,
// sorted like FindActiveSessions.
func (s *Store) FindActiveLinks(ctx context.Context) ([]SharedLink, error) {
	ids, err := s.redis.SMembers(ctx, s.linkIdxKey(LinkAuthenticated)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	links, err := s.fetchLinks(ctx, ids)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]SharedLink, 0, len(links))
	for _, l := range links {
		if l.ActiveAt(now) {
			out = append(out, *l)
		}
	}
	sortLinks(out)
	return out, nil
}

// AwaitingLinks returns shared links currently awaiting authorization.
func (s *Store) AwaitingLinks(ctx context.Context) ([]SharedLink, error) {
	ids, err := s.redis.SMembers(ctx, s.linkIdxKey(LinkAwaitingAuth)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	links, err := s.fetchLinks(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]SharedLink, 0, len(links))
	for _, l := range links {
		if l.Status == LinkAwaitingAuth {
			out = append(out, *l)
		}
	}
	sortLinks(out)
	return out, nil
}

func sortLinks(links []SharedLink) {
	sort.Slice(links, func(i, j int) bool {
		if !links[i].ExpiresAt.Equal(links[j].ExpiresAt) {
			return links[i].ExpiresAt.Before(links[j].ExpiresAt)
		}
		return links[i].ID < links[j].ID
	})
}

func (s *Store) fetchSessions(ctx context.Context, ids []string) ([]*Session, error) {
	fields, err := s.fetchAll(ctx, KindSession, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*Session, 0, len(fields))
	for i, f := range fields {
		if f != nil {
			out = append(out, decodeSession(ids[i], f))
		}
	}
	return out, nil
}

func (s *Store) fetchLinks(ctx context.Context, ids []string) ([]*SharedLink, error) {
	fields, err := s.fetchAll(ctx, KindLink, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*SharedLink, 0, len(fields))
	for i, f := range fields {
		if f != nil {
			out = append(out, decodeLink(ids[i], f))
		}
	}
	return out, nil
}

// fetchAll pipelines HGETALL for all ids. Records deleted between the index
// read and the fetch come back as empty maps and are dropped as nil. A failed
// pipeline surfaces as ErrStoreUnavailable rather than an empty result: the
// caller must never mistake a dropped connection for an empty view.
func (s *Store) fetchAll(ctx context.Context, kind Kind, ids []string) ([]map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.recordKey(kind, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]map[string]string, len(ids))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		out[i] = fields
	}
	return out, nil
}

// SetRemoteEnabled writes the admin-panel kill switch. Upsert semantics: the
// singleton is created on first toggle.
func (s *Store) SetRemoteEnabled(ctx context.Context, enabled bool) error {
	val := "0"
	if enabled {
		val = "1"
	}
	err := s.redis.HSet(ctx, s.configKey(),
		fieldRemoteEnabled, val,
		fieldUpdatedAt, encodeTime(s.now()),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.publish(ctx, ChangeEvent{Kind: KindConfig, Op: OpConfig})
	return nil
}

// AdminStatus reads the config singleton. A missing singleton reads as
// disabled.
func (s *Store) AdminStatus(ctx context.Context) (AdminConfig, error) {
	fields, err := s.redis.HGetAll(ctx, s.configKey()).Result()
	if err != nil {
		return AdminConfig{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return AdminConfig{
		RemoteEnabled: fields[fieldRemoteEnabled] == "1",
		UpdatedAt:     decodeTime(fields[fieldUpdatedAt]),
	}, nil
}

// Subscribe opens a pub/sub subscription covering the session, link, and
// config channels. The caller owns the returned PubSub and must Close it.
func (s *Store) Subscribe(ctx context.Context) *redis.PubSub {
	return s.redis.Subscribe(ctx, s.SessionChannel(), s.LinkChannel(), s.ConfigChannel())
}

// DecodeChange parses a ChangeEvent from a pub/sub payload.
func DecodeChange(payload string) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ChangeEvent{}, err
	}
	return ev, nil
}

// publish is best-effort: the hash write is the source of truth, and a
// missed notification only delays the next view recomputation.
func (s *Store) publish(ctx context.Context, ev ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	channel := s.LinkChannel()
	switch ev.Kind {
	case KindSession:
		channel = s.SessionChannel()
	case KindLink:
		channel = s.LinkChannel()
	default:
		channel = s.ConfigChannel()
	}
	_ = s.redis.Publish(ctx, channel, payload).Err()
}
