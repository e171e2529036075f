package qrauth

import (
	"errors"

	"github.com/thecodeprism/qrauth/identity"
	"github.com/thecodeprism/qrauth/record"
)

var (
	// ErrEngineNotReady is returned when an operation runs before Build
	// wired its dependencies.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrNotAuthenticated is returned when an operation requires a
	// logged-in operator and none is present.
	ErrNotAuthenticated = errors.New("no authenticated operator")
	// ErrRemoteDisabled is returned when the admin-panel kill switch is off.
	// The store is never contacted on this path.
	ErrRemoteDisabled = errors.New("remote admin panel disabled")
	// ErrScanPayloadInvalid is returned for scan payloads that are not
	// well-formed.
	ErrScanPayloadInvalid = errors.New("scan payload invalid")
	// ErrInvalidLinkRequest is returned when issuance parameters are not
	// among the issuable user types, access types, or durations.
	ErrInvalidLinkRequest = errors.New("invalid link request")
	// ErrPasswordTooShort is returned by Login before the credential
	// verifier is contacted.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrEmailRequired is returned by Login when the email is empty.
	ErrEmailRequired = errors.New("email required")

	// ErrPresenceDenied re-exports the identity sentinel for callers that
	// only import the root package.
	ErrPresenceDenied = identity.ErrPresenceDenied
	// ErrPresenceUnavailable re-exports the identity sentinel.
	ErrPresenceUnavailable = identity.ErrPresenceUnavailable
	// ErrRecordNotFound re-exports the record sentinel.
	ErrRecordNotFound = record.ErrNotFound
	// ErrRecordExists re-exports the record sentinel.
	ErrRecordExists = record.ErrAlreadyExists
	// ErrStoreUnavailable re-exports the record sentinel.
	ErrStoreUnavailable = record.ErrStoreUnavailable
)
