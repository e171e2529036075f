package flows

import (
	"context"

	"github.com/thecodeprism/qrauth/identity"
	"github.com/thecodeprism/qrauth/record"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Scan.Authenticate != nil
}

func (s Service) Scan(ctx context.Context, payload []byte) (*ScanResult, error) {
	return RunScan(ctx, payload, s.deps.Scan)
}

func (s Service) ApproveElevation(ctx context.Context, linkID string) error {
	return RunApproveElevation(ctx, linkID, s.deps.Elevation)
}

func (s Service) DenyElevation(ctx context.Context, linkID string) error {
	return RunDenyElevation(ctx, linkID, s.deps.Elevation)
}

func (s Service) IssueLink(ctx context.Context, req LinkRequest) (*IssuedLink, error) {
	return RunIssueLink(ctx, req, s.deps.Link)
}

func (s Service) AdjustExpiry(ctx context.Context, kind record.Kind, id string, direction int) error {
	return RunAdjustExpiry(ctx, kind, id, direction, s.deps.Lifecycle)
}

func (s Service) Terminate(ctx context.Context, kind record.Kind, id string) error {
	return RunTerminate(ctx, kind, id, s.deps.Lifecycle)
}

func (s Service) SetRemoteEnabled(ctx context.Context, enabled bool) error {
	return RunSetRemoteEnabled(ctx, enabled, s.deps.Settings)
}

func (s Service) Login(ctx context.Context, email, password string) (identity.Principal, error) {
	return RunLogin(ctx, email, password, s.deps.Login)
}

func (s Service) Logout(ctx context.Context) {
	RunLogout(ctx, s.deps.Login)
}
