package record

import (
	"strconv"
	"time"
)

// Hash field names. Timestamps are stored as unix seconds so that Lua
// scripts can do arithmetic on them; absent or zero means unset.
const (
	fieldStatus          = "status"
	fieldAuthenticatedAt = "authenticated_at"
	fieldExpiresAt       = "expires_at"
	fieldAuthenticatedBy = "authenticated_by"
	fieldUserType        = "user_type"
	fieldAccessType      = "access_type"
	fieldDuration        = "duration"
	fieldCreatedAt       = "created_at"
	fieldCreatedBy       = "created_by"
	fieldVisitorID       = "visitor_id"
	fieldRemoteEnabled   = "remote_enabled"
	fieldUpdatedAt       = "updated_at"
)

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.Unix(), 10)
}

func decodeTime(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	return time.Unix(n, 0)
}

func decodeSession(id string, fields map[string]string) *Session {
	return &Session{
		ID:              id,
		Status:          SessionStatus(fields[fieldStatus]),
		AuthenticatedAt: decodeTime(fields[fieldAuthenticatedAt]),
		ExpiresAt:       decodeTime(fields[fieldExpiresAt]),
		AuthenticatedBy: fields[fieldAuthenticatedBy],
	}
}

func decodeLink(id string, fields map[string]string) *SharedLink {
	return &SharedLink{
		ID:              id,
		UserType:        UserType(fields[fieldUserType]),
		AccessType:      AccessType(fields[fieldAccessType]),
		Duration:        Duration(fields[fieldDuration]),
		Status:          LinkStatus(fields[fieldStatus]),
		CreatedAt:       decodeTime(fields[fieldCreatedAt]),
		CreatedBy:       fields[fieldCreatedBy],
		AuthenticatedAt: decodeTime(fields[fieldAuthenticatedAt]),
		ExpiresAt:       decodeTime(fields[fieldExpiresAt]),
		AuthenticatedBy: fields[fieldAuthenticatedBy],
		VisitorID:       fields[fieldVisitorID],
	}
}
