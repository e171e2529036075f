package realtime

import (
	"sort"
	"time"

	"github.com/thecodeprism/qrauth/record"
)

// Entry is one row of the merged live view. Exactly one of Session or Link
// is set, matching Kind.
type Entry struct {
	Kind      record.Kind
	ID        string
	ExpiresAt time.Time
	Session   *record.Session
	Link      *record.SharedLink
}

// Merge combines active-session and active-link snapshots into a single view
// sorted by expiry ascending, with (kind, id) as the stable tiebreak. Merge
// is pure: same snapshots in, same view out, regardless of which partition
// refreshed last.
func Merge(sessions []record.Session, links []record.SharedLink) []Entry {
	out := make([]Entry, 0, len(sessions)+len(links))
	for i := range sessions {
		out = append(out, Entry{
			Kind:      record.KindSession,
			ID:        sessions[i].ID,
			ExpiresAt: sessions[i].ExpiresAt,
			Session:   &sessions[i],
		})
	}
	for i := range links {
		out = append(out, Entry{
			Kind:      record.KindLink,
			ID:        links[i].ID,
			ExpiresAt: links[i].ExpiresAt,
			Link:      &links[i],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}
