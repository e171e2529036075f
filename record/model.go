package record

import "time"

// Kind distinguishes the two record collections.
type Kind string

const (
	KindSession Kind = "session"
	KindLink    Kind = "shared_link"
	// KindConfig is used only on ChangeEvent for config singleton updates.
	KindConfig Kind = "config"
)

// SessionStatus is the lifecycle state of a QR-scanned admin session.
type SessionStatus string

const (
	SessionPending       SessionStatus = "pending"
	SessionAuthenticated SessionStatus = "authenticated"
	SessionDenied        SessionStatus = "denied"
)

// LinkStatus is the lifecycle state of a shared link. A denied elevation
// returns the link to LinkActive; LinkDenied is never persisted terminally.
type LinkStatus string

const (
	LinkActive        LinkStatus = "active"
	LinkAwaitingAuth  LinkStatus = "awaiting_auth"
	LinkAuthenticated LinkStatus = "authenticated"
	LinkDenied        LinkStatus = "denied"
)

// UserType categorizes the audience a shared link is issued for.
type UserType string

const (
	UserGuest     UserType = "Guest"
	UserAuditor   UserType = "Auditor"
	UserDeveloper UserType = "Developer"
)

// Valid reports whether u is one of the issuable user types.
func (u UserType) Valid() bool {
	switch u {
	case UserGuest, UserAuditor, UserDeveloper:
		return true
	}
	return false
}

// AccessType is the capability level granted to a shared link.
type AccessType string

const (
	AccessViewOnly  AccessType = "View-only"
	AccessAnalytics AccessType = "Analytics"
	AccessFull      AccessType = "Full"
)

// Valid reports whether a is one of the issuable access types.
func (a AccessType) Valid() bool {
	switch a {
	case AccessViewOnly, AccessAnalytics, AccessFull:
		return true
	}
	return false
}

// Duration is the lifetime requested at link issuance. It only takes effect
// when the link transitions to authenticated; issuance itself sets no expiry.
type Duration string

const (
	Duration15m Duration = "15m"
	Duration1h  Duration = "1h"
	Duration4h  Duration = "4h"
	Duration24h Duration = "24h"
)

// Valid reports whether d is one of the issuable durations.
func (d Duration) Valid() bool {
	switch d {
	case Duration15m, Duration1h, Duration4h, Duration24h:
		return true
	}
	return false
}

// Lifetime returns the wall-clock lifetime d stands for. Unknown values
// fall back to 15 minutes, mirroring the issuance default.
func (d Duration) Lifetime() time.Duration {
	switch d {
	case Duration1h:
		return time.Hour
	case Duration4h:
		return 4 * time.Hour
	case Duration24h:
		return 24 * time.Hour
	default:
		return 15 * time.Minute
	}
}

// Session represents a mobile-scanned admin authentication. The record is
// created (pending) by the web surface that renders the QR code; this client
// only ever transitions it.
type Session struct {
	ID              string
	Status          SessionStatus
	AuthenticatedAt time.Time
	ExpiresAt       time.Time
	AuthenticatedBy string
}

// ActiveAt reports whether the session belongs in the live view at the given
// instant.
func (s *Session) ActiveAt(now time.Time) bool {
	return s.Status == SessionAuthenticated && s.ExpiresAt.After(now)
}

// SharedLink represents a delegated, parameterized access grant.
type SharedLink struct {
	ID              string
	UserType        UserType
	AccessType      AccessType
	Duration        Duration
	Status          LinkStatus
	CreatedAt       time.Time
	CreatedBy       string
	AuthenticatedAt time.Time
	ExpiresAt       time.Time
	AuthenticatedBy string
	VisitorID       string // empty when no visitor is attached
}

// ActiveAt reports whether the link belongs in the live view at the given
// instant.
func (l *SharedLink) ActiveAt(now time.Time) bool {
	return l.Status == LinkAuthenticated && l.ExpiresAt.After(now)
}

// AdminConfig is the singleton kill switch observed by every mobile client.
type AdminConfig struct {
	RemoteEnabled bool
	UpdatedAt     time.Time
}

// ChangeEvent is the payload published on the store's pub/sub channels after
// every successful mutation.
type ChangeEvent struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id,omitempty"`
	Op   string `json:"op"`
}

// Change operations carried by ChangeEvent.Op.
const (
	OpCreated       = "created"
	OpAuthenticated = "authenticated"
	OpAwaiting      = "awaiting"
	OpDenied        = "denied"
	OpAdjusted      = "adjusted"
	OpTerminated    = "terminated"
	OpConfig        = "config"
)
