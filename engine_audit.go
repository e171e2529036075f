package qrauth

import (
	"context"
	"errors"

	"github.com/thecodeprism/qrauth/internal/audit"
	"github.com/thecodeprism/qrauth/record"
)

const (
	auditEventScanAuthenticated = "scan_authenticated"
	auditEventScanRejected      = "scan_rejected"
	auditEventScanIgnored       = "scan_ignored"
	auditEventElevationApproved = "elevation_approved"
	auditEventElevationDenied   = "elevation_denied"
	auditEventElevationFailed   = "elevation_failed"
	auditEventLinkIssued        = "link_issued"
	auditEventLinkIssueFailed   = "link_issue_failed"
	auditEventExpiryAdjusted    = "expiry_adjusted"
	auditEventRecordTerminated  = "record_terminated"
	auditEventLifecycleFailed   = "lifecycle_failed"
	auditEventRemoteToggled     = "remote_toggled"
	auditEventSettingsFailed    = "settings_failed"
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventLogout            = "logout"
)

// AuditErrorCode is the normalized error label stamped on failed audit
// events.
type AuditErrorCode string

const (
	auditErrRemoteDisabled      AuditErrorCode = "remote_disabled"
	auditErrPresenceDenied      AuditErrorCode = "presence_denied"
	auditErrPresenceUnavailable AuditErrorCode = "presence_unavailable"
	auditErrPayloadInvalid      AuditErrorCode = "payload_invalid"
	auditErrInvalidRequest      AuditErrorCode = "invalid_request"
	auditErrNotFound            AuditErrorCode = "record_not_found"
	auditErrDuplicate           AuditErrorCode = "duplicate"
	auditErrStoreUnavailable    AuditErrorCode = "store_unavailable"
	auditErrPasswordPolicy      AuditErrorCode = "password_policy"
	auditErrNotAuthenticated    AuditErrorCode = "not_authenticated"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	kind string,
	recordID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil || eventType == "" {
		return
	}

	event := audit.NewEvent(eventType)
	event.Kind = kind
	event.RecordID = recordID
	event.Success = success
	if p, ok := e.currentPrincipal(); ok {
		event.Principal = p
	}
	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrRemoteDisabled):
		return auditErrRemoteDisabled
	case errors.Is(err, ErrPresenceDenied):
		return auditErrPresenceDenied
	case errors.Is(err, ErrPresenceUnavailable):
		return auditErrPresenceUnavailable
	case errors.Is(err, ErrScanPayloadInvalid):
		return auditErrPayloadInvalid
	case errors.Is(err, ErrInvalidLinkRequest):
		return auditErrInvalidRequest
	case errors.Is(err, record.ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, record.ErrAlreadyExists):
		return auditErrDuplicate
	case errors.Is(err, record.ErrStoreUnavailable):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrEmailRequired):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrNotAuthenticated):
		return auditErrNotAuthenticated
	default:
		return auditErrInternal
	}
}
