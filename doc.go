// Package qrauth is an embeddable authorization engine for out-of-band
// admin-session control: an operator's trusted device approves QR-initiated
// admin sessions and parameterized shared links through a shared Redis
// document store.
//
// The engine owns the authorization state machine and nothing else. Records
// are created by the web surfaces that render QR codes and shared-link pages;
// this engine observes them live, transitions them (authenticate, elevate,
// deny, adjust, terminate), and keeps a merged view of everything currently
// active. Sensitive transitions pass a local presence gate first.
//
// Construction follows the builder pattern:
//
//	engine, err := qrauth.New().
//		WithRedis(client).
//		WithCredentialVerifier(verifier).
//		WithPresenceVerifier(biometrics).
//		WithElevationHandler(onPrompt).
//		Build()
//
// # Architecture boundaries
//
// The engine sits between device capabilities (identity package interfaces)
// and the shared store (record package). It never renders UI, never decodes
// QR imagery, and never verifies credentials itself; those stay behind the
// collaborator interfaces supplied at build time.
//
// # What this package must NOT do
//
//   - Sweep expired records. Expiry is a read-time predicate; records live
//     until explicitly terminated.
//   - Retry failed writes in the background. Every failure is surfaced and
//     the user re-triggers the action.
package qrauth
