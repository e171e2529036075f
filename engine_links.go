package qrauth

import (
	"context"

	"github.com/thecodeprism/qrauth/internal/flows"
)

// IssueLink creates a new shared link for the given audience, capability,
// and lifetime, returning the record and its shareable URL. The link is
// issued active with no expiry; the lifetime starts counting only when an
// elevation is approved.
func (e *Engine) IssueLink(ctx context.Context, req IssueLinkRequest) (IssuedLink, error) {
	if e == nil || !e.flows.Initialized() {
		return IssuedLink{}, ErrEngineNotReady
	}

	issued, err := e.flows.IssueLink(ctx, flows.LinkRequest{
		UserType:   req.UserType,
		AccessType: req.AccessType,
		Duration:   req.Duration,
	})
	if err != nil {
		return IssuedLink{}, err
	}
	return IssuedLink{Link: issued.Link, URL: issued.URL}, nil
}

// ApproveElevation grants an awaiting shared link after the presence gate
// passes. The link becomes authenticated for the duration it was issued
// with, stamped with the approving operator.
func (e *Engine) ApproveElevation(ctx context.Context, linkID string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return e.flows.ApproveElevation(ctx, linkID)
}

// DenyElevation refuses an awaiting shared link: the link returns to active
// and the requesting visitor is detached. Denial runs without the presence
// gate.
func (e *Engine) DenyElevation(ctx context.Context, linkID string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return e.flows.DenyElevation(ctx, linkID)
}
