package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/thecodeprism/qrauth/record"
)

// linkIDAttempts bounds retries when a freshly generated id collides with
// an existing record.
const linkIDAttempts = 3

// LinkRequest is the flow-local issuance request shape.
type LinkRequest struct {
	UserType   record.UserType
	AccessType record.AccessType
	Duration   record.Duration
}

// IssuedLink is the flow-local issuance response shape.
type IssuedLink struct {
	Link record.SharedLink
	URL  string
}

// LinkMetrics carries metric IDs needed by the issuance flow.
type LinkMetrics struct {
	Issued int
}

// LinkEvents carries audit event names used by the issuance flow.
type LinkEvents struct {
	Issued string
	Failed string
}

// LinkErrors carries host-level sentinel errors used by the issuance flow.
type LinkErrors struct {
	EngineNotReady   error
	NotAuthenticated error
	InvalidRequest   error
	AlreadyExists    error
}

// LinkDeps captures issuance flow dependencies.
type LinkDeps struct {
	BaseURL  string
	Route    string
	IDLength int

	Now       func() time.Time
	NewID     func(int) (string, error)
	Create    func(context.Context, *record.SharedLink) error
	Principal func() (string, bool)

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, kind, recordID string, err error, meta func() map[string]string)

	Metrics LinkMetrics
	Events  LinkEvents
	Errors  LinkErrors
}

// RunIssueLink creates a new shared link: active, no expiry, addressable at
// <base-url>/<route>/shared/<id>. Id collisions retry with a fresh id; the
// store's create-if-absent write guarantees no partial state on failure.
func RunIssueLink(ctx context.Context, req LinkRequest, deps LinkDeps) (*IssuedLink, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.NewID == nil || deps.Create == nil || deps.Principal == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if !req.UserType.Valid() || !req.AccessType.Valid() || !req.Duration.Valid() {
		return nil, deps.Errors.InvalidRequest
	}

	principal, ok := deps.Principal()
	if !ok {
		return nil, deps.Errors.NotAuthenticated
	}

	var lastErr error
	for attempt := 0; attempt < linkIDAttempts; attempt++ {
		id, err := deps.NewID(deps.IDLength)
		if err != nil {
			return nil, err
		}

		link := record.SharedLink{
			ID:         id,
			UserType:   req.UserType,
			AccessType: req.AccessType,
			Duration:   req.Duration,
			Status:     record.LinkActive,
			CreatedAt:  deps.Now(),
			CreatedBy:  principal,
		}
		if err := deps.Create(ctx, &link); err != nil {
			if errors.Is(err, deps.Errors.AlreadyExists) {
				lastErr = err
				continue
			}
			deps.EmitAudit(ctx, deps.Events.Failed, false, string(record.KindLink), id, err, nil)
			return nil, err
		}

		url := strings.TrimSuffix(deps.BaseURL, "/") + "/" + deps.Route + "/shared/" + id
		deps.MetricInc(deps.Metrics.Issued)
		deps.EmitAudit(ctx, deps.Events.Issued, true, string(record.KindLink), id, nil, func() map[string]string {
			return map[string]string{
				"user_type":   string(req.UserType),
				"access_type": string(req.AccessType),
				"duration":    string(req.Duration),
			}
		})
		return &IssuedLink{Link: link, URL: url}, nil
	}

	deps.EmitAudit(ctx, deps.Events.Failed, false, string(record.KindLink), "", lastErr, nil)
	return nil, lastErr
}
